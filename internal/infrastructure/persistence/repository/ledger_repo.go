package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/worktally/attendance-backend/internal/application/port"
	"github.com/worktally/attendance-backend/internal/domain/entity"
	"go.uber.org/zap"
)

// LedgerRepository implements port.LedgerRepository
type LedgerRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *sql.DB, logger *zap.Logger) port.LedgerRepository {
	return &LedgerRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends a new ledger entry
func (r *LedgerRepository) Create(ctx context.Context, entry *entity.LedgerEntry) error {
	query := `
		INSERT INTO reconciliation_ledger (upload_id, classification, status, payload, performed_by)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := pickExecutor(ctx, r.db).ExecContext(ctx, query,
		entry.UploadID,
		entry.Classification.String(),
		entry.Status,
		entry.Payload,
		entry.PerformedBy,
	)
	if err != nil {
		r.logger.Error("Failed to create ledger entry", zap.Error(err))
		return fmt.Errorf("failed to create ledger entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	entry.ID = id
	return nil
}

const ledgerColumns = `id, upload_id, classification, status, payload, performed_by, captured_at, reflected_at`

// GetByID retrieves a ledger entry
func (r *LedgerRepository) GetByID(ctx context.Context, id int64) (*entity.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM reconciliation_ledger WHERE id = ?`

	var entry entity.LedgerEntry
	var classification string
	err := pickExecutor(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&entry.ID,
		&entry.UploadID,
		&classification,
		&entry.Status,
		&entry.Payload,
		&entry.PerformedBy,
		&entry.CapturedAt,
		&entry.ReflectedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to get ledger entry", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}

	entry.Classification = entity.Classification(classification)
	return &entry, nil
}

// ListByUploadID retrieves all entries for an upload, newest first
func (r *LedgerRepository) ListByUploadID(ctx context.Context, uploadID int64) ([]*entity.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM reconciliation_ledger WHERE upload_id = ? ORDER BY captured_at DESC, id DESC`

	rows, err := pickExecutor(ctx, r.db).QueryContext(ctx, query, uploadID)
	if err != nil {
		r.logger.Error("Failed to list ledger entries", zap.Int64("upload_id", uploadID), zap.Error(err))
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []*entity.LedgerEntry
	for rows.Next() {
		var entry entity.LedgerEntry
		var classification string
		err := rows.Scan(
			&entry.ID,
			&entry.UploadID,
			&classification,
			&entry.Status,
			&entry.Payload,
			&entry.PerformedBy,
			&entry.CapturedAt,
			&entry.ReflectedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entry.Classification = entity.Classification(classification)
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

// MarkReflected records when a ledger entry was last replayed into the facts
// tables by a restore
func (r *LedgerRepository) MarkReflected(ctx context.Context, id int64, at time.Time) error {
	query := `UPDATE reconciliation_ledger SET reflected_at = ? WHERE id = ?`

	result, err := pickExecutor(ctx, r.db).ExecContext(ctx, query, at, id)
	if err != nil {
		r.logger.Error("Failed to mark ledger entry reflected", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to mark ledger entry reflected: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return entity.ErrNotFound
	}
	return nil
}

// Verify interface compliance
var _ port.LedgerRepository = (*LedgerRepository)(nil)
