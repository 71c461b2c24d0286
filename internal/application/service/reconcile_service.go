package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/worktally/attendance-backend/internal/application/dispatcher"
	"github.com/worktally/attendance-backend/internal/application/port"
	"github.com/worktally/attendance-backend/internal/domain/entity"
	"github.com/worktally/attendance-backend/internal/domain/event"
	"github.com/worktally/attendance-backend/pkg/utils"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// RowWarning reports one upload row that was skipped during reconciliation
type RowWarning struct {
	BadgeKey string `json:"badge_key"`
	Row      int    `json:"row"`
	Reason   string `json:"reason"`
}

// ReconcileInput identifies the upload and scope of one reconciliation run.
// An empty EmployeeIDs means every employee present in the upload; Year and
// Month may be zero when the upload itself carries a target period.
type ReconcileInput struct {
	UploadID    int64
	EmployeeIDs []int64
	Year        int
	Month       int
	PerformedBy string
}

// ReconcileResult summarizes one completed reconciliation
type ReconcileResult struct {
	UploadID           int64        `json:"upload_id"`
	LedgerEntryID      int64        `json:"ledger_entry_id"`
	EventCount         int          `json:"event_count"`
	AttendanceCount    int          `json:"attendance_count"`
	ProcessedBadgeKeys []string     `json:"processed_badge_keys"`
	Warnings           []RowWarning `json:"warnings,omitempty"`
}

// ReconcileService converts a parsed upload into canonical facts for its
// target month. Each run atomically replaces the facts of the employees in
// scope, leaves everyone else's facts in the month untouched, and appends a
// ledger entry capturing the resulting full-month state.
type ReconcileService interface {
	Reconcile(ctx context.Context, input ReconcileInput) (*ReconcileResult, error)
}

type reconcileServiceImpl struct {
	uploadRepo     port.UploadRepository
	employeeRepo   port.EmployeeRepository
	typeRepo       port.AttendanceTypeRepository
	eventRepo      port.AccessEventRepository
	attendanceRepo port.UsedAttendanceRepository
	ledgerRepo     port.LedgerRepository
	txManager      port.TransactionManager
	dispatcher     dispatcher.Dispatcher
	logger         Logger
}

// NewReconcileService creates a new ReconcileService
func NewReconcileService(
	uploadRepo port.UploadRepository,
	employeeRepo port.EmployeeRepository,
	typeRepo port.AttendanceTypeRepository,
	eventRepo port.AccessEventRepository,
	attendanceRepo port.UsedAttendanceRepository,
	ledgerRepo port.LedgerRepository,
	txManager port.TransactionManager,
	disp dispatcher.Dispatcher,
	logger Logger,
) ReconcileService {
	return &reconcileServiceImpl{
		uploadRepo:     uploadRepo,
		employeeRepo:   employeeRepo,
		typeRepo:       typeRepo,
		eventRepo:      eventRepo,
		attendanceRepo: attendanceRepo,
		ledgerRepo:     ledgerRepo,
		txManager:      txManager,
		dispatcher:     disp,
		logger:         logger,
	}
}

// Reconcile applies one upload to the fact tables
func (s *reconcileServiceImpl) Reconcile(ctx context.Context, input ReconcileInput) (*ReconcileResult, error) {
	upload, err := s.uploadRepo.GetByID(ctx, input.UploadID)
	if err != nil {
		return nil, err
	}
	if !upload.Classification.IsKnown() {
		return nil, fmt.Errorf("%w: upload %d has classification %s", entity.ErrInvalidInput, upload.ID, upload.Classification)
	}
	if upload.RowCount() == 0 {
		return nil, fmt.Errorf("%w: upload %d has no rows", entity.ErrInvalidInput, upload.ID)
	}

	year, month := input.Year, input.Month
	if year == 0 && upload.TargetYear != nil {
		year = *upload.TargetYear
	}
	if month == 0 && upload.TargetMonth != nil {
		month = *upload.TargetMonth
	}
	if err := utils.ValidateYearMonth(year, month); err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrInvalidInput, err)
	}

	scope, warnings, err := s.resolveScope(ctx, upload, input.EmployeeIDs, year, month)
	if err != nil {
		return nil, err
	}

	switch upload.Classification {
	case entity.ClassificationEventHistory:
		return s.reconcileEvents(ctx, upload, scope, warnings, input.PerformedBy)
	default:
		return s.reconcileAttendance(ctx, upload, scope, warnings, input.PerformedBy)
	}
}

// reconcileScope is the resolved employee subset one run is limited to. A
// requested employee stays in scope even when the upload carries no rows for
// them, so the replace step clears their stale facts.
type reconcileScope struct {
	Year        int
	Month       int
	Employees   map[string]*entity.Employee // badge key -> employee, nil value when unresolved
	BadgeKeys   []string
	EmployeeIDs []int64
}

// resolveScope resolves the requested employee subset into badge keys and
// employee IDs. With no subset given, the scope is every employee in the upload;
// badge keys that resolve to no employee record stay in the scope for event
// uploads (event facts carry the badge key directly) and produce a warning
// for attendance uploads, which need the employee record.
func (s *reconcileServiceImpl) resolveScope(ctx context.Context, upload *entity.RawUpload, employeeIDs []int64, year, month int) (*reconcileScope, []RowWarning, error) {
	scope := &reconcileScope{
		Year:      year,
		Month:     month,
		Employees: make(map[string]*entity.Employee),
	}
	var warnings []RowWarning

	if len(employeeIDs) > 0 {
		employees, err := s.employeeRepo.GetByIDs(ctx, employeeIDs)
		if err != nil {
			return nil, nil, err
		}
		for _, emp := range employees {
			scope.Employees[emp.BadgeKey] = emp
			scope.BadgeKeys = append(scope.BadgeKeys, emp.BadgeKey)
			scope.EmployeeIDs = append(scope.EmployeeIDs, emp.ID)
		}
		return scope, warnings, nil
	}

	keys := make([]string, 0, len(upload.RowsByBadgeKey))
	for key := range upload.RowsByBadgeKey {
		keys = append(keys, key)
	}
	employees, err := s.employeeRepo.GetByBadgeKeys(ctx, keys)
	if err != nil {
		return nil, nil, err
	}
	byBadge := make(map[string]*entity.Employee, len(employees))
	for _, emp := range employees {
		byBadge[emp.BadgeKey] = emp
	}
	for _, key := range keys {
		emp, ok := byBadge[key]
		if ok {
			scope.EmployeeIDs = append(scope.EmployeeIDs, emp.ID)
		} else if upload.Classification == entity.ClassificationAttendanceRequest {
			warnings = append(warnings, RowWarning{BadgeKey: key, Reason: "unknown badge key"})
			continue
		}
		scope.Employees[key] = emp
		scope.BadgeKeys = append(scope.BadgeKeys, key)
	}
	return scope, warnings, nil
}

func (s *reconcileServiceImpl) reconcileEvents(ctx context.Context, upload *entity.RawUpload, scope *reconcileScope, warnings []RowWarning, performedBy string) (*ReconcileResult, error) {
	monthPrefix := fmt.Sprintf("%04d%02d", scope.Year, scope.Month)

	var events []entity.AccessEvent
	for _, badgeKey := range scope.BadgeKeys {
		for i, row := range upload.RowsByBadgeKey[badgeKey] {
			stamp, err := parseEventTimestamp(row[entity.FieldEventTime])
			if err != nil {
				s.logger.Warn("Skipping event row", "badge_key", badgeKey, "row", i, "reason", err.Error())
				warnings = append(warnings, RowWarning{BadgeKey: badgeKey, Row: i, Reason: err.Error()})
				continue
			}
			// Out-of-month rows are expected in vendor exports; drop
			// them without a warning.
			if !strings.HasPrefix(stamp.DateKey, monthPrefix) {
				continue
			}
			events = append(events, entity.AccessEvent{
				EmployeeName: row[entity.FieldName],
				BadgeKey:     badgeKey,
				OccurredAt:   stamp.At,
				DateKey:      stamp.DateKey,
				TimeKey:      stamp.TimeKey,
			})
		}
	}

	unlock := monthLocks.Lock(scope.Year, scope.Month)
	defer unlock()

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.eventRepo.DeleteScoped(txCtx, scope.Year, scope.Month, scope.BadgeKeys); err != nil {
			return fmt.Errorf("delete scoped events: %w", err)
		}
		if len(events) > 0 {
			if err := s.eventRepo.BulkInsert(txCtx, events); err != nil {
				return fmt.Errorf("insert events: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, upload, scope, performedBy, err)
	}

	entry, err := s.captureEvents(ctx, upload, scope.Year, scope.Month, performedBy)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Reconciliation completed",
		"upload_id", upload.ID, "ledger_entry_id", entry.ID,
		"events", len(events), "warnings", len(warnings))

	s.dispatcher.DispatchAsync(ctx, event.NewEvent(event.TypeReconciliationCompleted, entry.ID, map[string]interface{}{
		"upload_id": upload.ID,
		"year":      scope.Year,
		"month":     scope.Month,
		"rows":      len(events),
	}))

	return &ReconcileResult{
		UploadID:           upload.ID,
		LedgerEntryID:      entry.ID,
		EventCount:         len(events),
		ProcessedBadgeKeys: scope.BadgeKeys,
		Warnings:           warnings,
	}, nil
}

func (s *reconcileServiceImpl) reconcileAttendance(ctx context.Context, upload *entity.RawUpload, scope *reconcileScope, warnings []RowWarning, performedBy string) (*ReconcileResult, error) {
	types, err := s.typeRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	typeByName := make(map[string]int64, len(types))
	for _, at := range types {
		typeByName[at.DisplayName] = at.ID
	}

	var records []entity.UsedAttendance
	for _, badgeKey := range scope.BadgeKeys {
		emp := scope.Employees[badgeKey]
		if emp == nil {
			continue
		}
		for i, row := range upload.RowsByBadgeKey[badgeKey] {
			typeID, ok := typeByName[utils.SanitizeString(row[entity.FieldLeaveType])]
			if !ok {
				reason := fmt.Sprintf("unknown leave type %q", row[entity.FieldLeaveType])
				s.logger.Warn("Skipping attendance row", "badge_key", badgeKey, "row", i, "reason", reason)
				warnings = append(warnings, RowWarning{BadgeKey: badgeKey, Row: i, Reason: reason})
				continue
			}
			dates, err := expandPeriod(row[entity.FieldPeriod], scope.Year, scope.Month)
			if err != nil {
				s.logger.Warn("Skipping attendance row", "badge_key", badgeKey, "row", i, "reason", err.Error())
				warnings = append(warnings, RowWarning{BadgeKey: badgeKey, Row: i, Reason: err.Error()})
				continue
			}
			for _, d := range dates {
				records = append(records, entity.UsedAttendance{
					UsedDate:         d.Format("2006-01-02"),
					EmployeeID:       emp.ID,
					AttendanceTypeID: typeID,
				})
			}
		}
	}

	unlock := monthLocks.Lock(scope.Year, scope.Month)
	defer unlock()

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.attendanceRepo.DeleteScoped(txCtx, scope.Year, scope.Month, scope.EmployeeIDs); err != nil {
			return fmt.Errorf("delete scoped attendances: %w", err)
		}
		if len(records) > 0 {
			if err := s.attendanceRepo.BulkInsert(txCtx, records); err != nil {
				return fmt.Errorf("insert attendances: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, upload, scope, performedBy, err)
	}

	entry, err := s.captureAttendances(ctx, upload, scope.Year, scope.Month, performedBy)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Reconciliation completed",
		"upload_id", upload.ID, "ledger_entry_id", entry.ID,
		"attendances", len(records), "warnings", len(warnings))

	s.dispatcher.DispatchAsync(ctx, event.NewEvent(event.TypeReconciliationCompleted, entry.ID, map[string]interface{}{
		"upload_id": upload.ID,
		"year":      scope.Year,
		"month":     scope.Month,
		"rows":      len(records),
	}))

	return &ReconcileResult{
		UploadID:           upload.ID,
		LedgerEntryID:      entry.ID,
		AttendanceCount:    len(records),
		ProcessedBadgeKeys: scope.BadgeKeys,
		Warnings:           warnings,
	}, nil
}

// captureEvents records the resulting full-month event state as a COMPLETED
// ledger entry. The capture always spans the whole month, not just the
// employees this run touched, so a later restore is scope-correct no matter
// which operation it undoes.
func (s *reconcileServiceImpl) captureEvents(ctx context.Context, upload *entity.RawUpload, year, month int, performedBy string) (*entity.LedgerEntry, error) {
	all, err := s.eventRepo.ListMonth(ctx, year, month)
	if err != nil {
		return nil, fmt.Errorf("capture month events: %w", err)
	}
	// Surrogate IDs are stripped so replay cannot collide.
	for i := range all {
		all[i].ID = 0
	}
	payload := entity.CapturedPayload{
		SchemaVersion: entity.CapturedPayloadVersion,
		DataType:      entity.ClassificationEventHistory,
		Year:          year,
		Month:         month,
		Events:        all,
	}
	return s.appendLedger(ctx, upload, payload, performedBy)
}

func (s *reconcileServiceImpl) captureAttendances(ctx context.Context, upload *entity.RawUpload, year, month int, performedBy string) (*entity.LedgerEntry, error) {
	all, err := s.attendanceRepo.ListMonth(ctx, year, month)
	if err != nil {
		return nil, fmt.Errorf("capture month attendances: %w", err)
	}
	for i := range all {
		all[i].ID = 0
	}
	payload := entity.CapturedPayload{
		SchemaVersion: entity.CapturedPayloadVersion,
		DataType:      entity.ClassificationAttendanceRequest,
		Year:          year,
		Month:         month,
		Attendances:   all,
	}
	return s.appendLedger(ctx, upload, payload, performedBy)
}

func (s *reconcileServiceImpl) appendLedger(ctx context.Context, upload *entity.RawUpload, payload entity.CapturedPayload, performedBy string) (*entity.LedgerEntry, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal capture: %w", err)
	}
	entry := &entity.LedgerEntry{
		UploadID:       upload.ID,
		Classification: payload.DataType,
		Status:         entity.LedgerStatusCompleted,
		Payload:        string(raw),
		PerformedBy:    performedBy,
		CapturedAt:     time.Now(),
	}
	if err := s.ledgerRepo.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("append ledger entry: %w", err)
	}
	return entry, nil
}

// fail records a FAILED ledger entry outside the rolled-back transaction so
// the attempt stays visible, then returns the original error.
func (s *reconcileServiceImpl) fail(ctx context.Context, upload *entity.RawUpload, scope *reconcileScope, performedBy string, cause error) error {
	diag := entity.FailureDiagnostic{
		Error: cause.Error(),
		Scope: entity.ReconcileScope{
			Year:        scope.Year,
			Month:       scope.Month,
			EmployeeIDs: scope.EmployeeIDs,
			BadgeKeys:   scope.BadgeKeys,
		},
	}
	raw, _ := json.Marshal(diag)

	entry := &entity.LedgerEntry{
		UploadID:       upload.ID,
		Classification: upload.Classification,
		Status:         entity.LedgerStatusFailed,
		Payload:        string(raw),
		PerformedBy:    performedBy,
		CapturedAt:     time.Now(),
	}
	if err := s.ledgerRepo.Create(ctx, entry); err != nil {
		s.logger.Error("Failed to record failure diagnostic", "upload_id", upload.ID, "error", err)
	}

	s.logger.Error("Reconciliation failed",
		"upload_id", upload.ID, "year", scope.Year, "month", scope.Month, "error", cause)

	s.dispatcher.DispatchAsync(ctx, event.NewEvent(event.TypeReconciliationFailed, upload.ID, map[string]interface{}{
		"upload_id": upload.ID,
		"year":      scope.Year,
		"month":     scope.Month,
		"error":     cause.Error(),
	}))

	return cause
}
