package service

import (
	"context"
	"fmt"
	"time"

	"github.com/worktally/attendance-backend/internal/application/dispatcher"
	"github.com/worktally/attendance-backend/internal/application/port"
	"github.com/worktally/attendance-backend/internal/domain/entity"
	"github.com/worktally/attendance-backend/internal/domain/event"
)

// RestoreResult summarizes one completed restore
type RestoreResult struct {
	LedgerEntryID int64 `json:"ledger_entry_id"`
	Year          int   `json:"year"`
	Month         int   `json:"month"`
	RestoredRows  int   `json:"restored_rows"`
}

// RestoreService replays a ledger entry's captured month back into the fact
// tables. The whole month is replaced: every current row of the captured
// classification is deleted and the captured rows reinserted.
type RestoreService interface {
	Restore(ctx context.Context, ledgerEntryID int64, performedBy string) (*RestoreResult, error)
}

type restoreServiceImpl struct {
	ledgerRepo     port.LedgerRepository
	eventRepo      port.AccessEventRepository
	attendanceRepo port.UsedAttendanceRepository
	txManager      port.TransactionManager
	dispatcher     dispatcher.Dispatcher
	logger         Logger
}

// NewRestoreService creates a new RestoreService
func NewRestoreService(
	ledgerRepo port.LedgerRepository,
	eventRepo port.AccessEventRepository,
	attendanceRepo port.UsedAttendanceRepository,
	txManager port.TransactionManager,
	disp dispatcher.Dispatcher,
	logger Logger,
) RestoreService {
	return &restoreServiceImpl{
		ledgerRepo:     ledgerRepo,
		eventRepo:      eventRepo,
		attendanceRepo: attendanceRepo,
		txManager:      txManager,
		dispatcher:     disp,
		logger:         logger,
	}
}

// Restore replays the entry's captured full-month state
func (s *restoreServiceImpl) Restore(ctx context.Context, ledgerEntryID int64, performedBy string) (*RestoreResult, error) {
	entry, err := s.ledgerRepo.GetByID(ctx, ledgerEntryID)
	if err != nil {
		return nil, err
	}

	payload, err := entry.DecodePayload()
	if err != nil {
		return nil, fmt.Errorf("%w: ledger entry %d is not restorable", entity.ErrInvalidState, ledgerEntryID)
	}

	unlock := monthLocks.Lock(payload.Year, payload.Month)
	defer unlock()

	var restored int
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		switch payload.DataType {
		case entity.ClassificationEventHistory:
			if err := s.eventRepo.DeleteMonth(txCtx, payload.Year, payload.Month); err != nil {
				return fmt.Errorf("clear month events: %w", err)
			}
			if len(payload.Events) > 0 {
				if err := s.eventRepo.BulkInsert(txCtx, payload.Events); err != nil {
					return fmt.Errorf("reinsert events: %w", err)
				}
			}
			restored = len(payload.Events)
		case entity.ClassificationAttendanceRequest:
			if err := s.attendanceRepo.DeleteMonth(txCtx, payload.Year, payload.Month); err != nil {
				return fmt.Errorf("clear month attendances: %w", err)
			}
			if len(payload.Attendances) > 0 {
				if err := s.attendanceRepo.BulkInsert(txCtx, payload.Attendances); err != nil {
					return fmt.Errorf("reinsert attendances: %w", err)
				}
			}
			restored = len(payload.Attendances)
		default:
			return fmt.Errorf("%w: unknown capture data type %s", entity.ErrInvalidState, payload.DataType)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Restore failed", "ledger_entry_id", ledgerEntryID, "error", err)
		return nil, err
	}

	if err := s.ledgerRepo.MarkReflected(ctx, ledgerEntryID, time.Now()); err != nil {
		s.logger.Error("Failed to mark entry reflected", "ledger_entry_id", ledgerEntryID, "error", err)
		return nil, err
	}

	s.logger.Info("Restore completed",
		"ledger_entry_id", ledgerEntryID,
		"year", payload.Year, "month", payload.Month, "rows", restored, "performed_by", performedBy)

	s.dispatcher.DispatchAsync(ctx, event.NewEvent(event.TypeRestoreCompleted, ledgerEntryID, map[string]interface{}{
		"year":  payload.Year,
		"month": payload.Month,
		"rows":  restored,
	}))

	return &RestoreResult{
		LedgerEntryID: ledgerEntryID,
		Year:          payload.Year,
		Month:         payload.Month,
		RestoredRows:  restored,
	}, nil
}
