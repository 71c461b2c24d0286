package service

import (
	"context"

	"github.com/worktally/attendance-backend/internal/application/port"
	"github.com/worktally/attendance-backend/internal/domain/entity"
)

// LedgerService reads the reconciliation ledger
type LedgerService interface {
	Get(ctx context.Context, id int64) (*entity.LedgerEntry, error)
	ListByUpload(ctx context.Context, uploadID int64) ([]*entity.LedgerEntry, error)
}

type ledgerServiceImpl struct {
	ledgerRepo port.LedgerRepository
	logger     Logger
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(ledgerRepo port.LedgerRepository, logger Logger) LedgerService {
	return &ledgerServiceImpl{ledgerRepo: ledgerRepo, logger: logger}
}

func (s *ledgerServiceImpl) Get(ctx context.Context, id int64) (*entity.LedgerEntry, error) {
	return s.ledgerRepo.GetByID(ctx, id)
}

func (s *ledgerServiceImpl) ListByUpload(ctx context.Context, uploadID int64) ([]*entity.LedgerEntry, error) {
	entries, err := s.ledgerRepo.ListByUploadID(ctx, uploadID)
	if err != nil {
		s.logger.Error("Failed to list ledger entries", "upload_id", uploadID, "error", err)
		return nil, err
	}
	return entries, nil
}
