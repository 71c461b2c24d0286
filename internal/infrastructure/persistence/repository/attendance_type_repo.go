package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/worktally/attendance-backend/internal/application/port"
	"github.com/worktally/attendance-backend/internal/domain/entity"
	"go.uber.org/zap"
)

// AttendanceTypeRepository implements port.AttendanceTypeRepository
type AttendanceTypeRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAttendanceTypeRepository creates a new attendance type repository
func NewAttendanceTypeRepository(db *sql.DB, logger *zap.Logger) port.AttendanceTypeRepository {
	return &AttendanceTypeRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves an attendance type by ID
func (r *AttendanceTypeRepository) GetByID(ctx context.Context, id int64) (*entity.AttendanceType, error) {
	query := `SELECT id, display_name, deducted, created_at FROM attendance_types WHERE id = ?`

	var at entity.AttendanceType
	err := pickExecutor(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&at.ID,
		&at.DisplayName,
		&at.Deducted,
		&at.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to get attendance type", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get attendance type: %w", err)
	}
	return &at, nil
}

// List retrieves the full attendance type catalog
func (r *AttendanceTypeRepository) List(ctx context.Context) ([]*entity.AttendanceType, error) {
	query := `SELECT id, display_name, deducted, created_at FROM attendance_types ORDER BY id`

	rows, err := pickExecutor(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list attendance types", zap.Error(err))
		return nil, fmt.Errorf("failed to list attendance types: %w", err)
	}
	defer rows.Close()

	var types []*entity.AttendanceType
	for rows.Next() {
		var at entity.AttendanceType
		if err := rows.Scan(&at.ID, &at.DisplayName, &at.Deducted, &at.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan attendance type: %w", err)
		}
		types = append(types, &at)
	}
	return types, rows.Err()
}

// Verify interface compliance
var _ port.AttendanceTypeRepository = (*AttendanceTypeRepository)(nil)
