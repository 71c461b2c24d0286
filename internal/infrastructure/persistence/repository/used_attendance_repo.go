package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/worktally/attendance-backend/internal/application/port"
	"github.com/worktally/attendance-backend/internal/domain/entity"
	"go.uber.org/zap"
)

// attendanceInsertChunk is deliberately smaller than the event chunk:
// request exports are short and the rows are wider after expansion.
const attendanceInsertChunk = 100

// UsedAttendanceRepository implements port.UsedAttendanceRepository
type UsedAttendanceRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewUsedAttendanceRepository creates a new used-attendance fact repository
func NewUsedAttendanceRepository(db *sql.DB, logger *zap.Logger) port.UsedAttendanceRepository {
	return &UsedAttendanceRepository{
		db:     db,
		logger: logger,
	}
}

// usedMonthPrefix returns the YYYY-MM prefix of used_date values in a month
func usedMonthPrefix(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

// BulkInsert inserts records in fixed-size chunks; callers provide the
// transaction, all chunks commit or none do.
func (r *UsedAttendanceRepository) BulkInsert(ctx context.Context, records []entity.UsedAttendance) error {
	exec := pickExecutor(ctx, r.db)

	for start := 0; start < len(records); start += attendanceInsertChunk {
		end := start + attendanceInsertChunk
		if end > len(records) {
			end = len(records)
		}
		chunk := records[start:end]

		var sb strings.Builder
		sb.WriteString(`INSERT INTO used_attendance_facts (used_date, employee_id, attendance_type_id) VALUES `)
		args := make([]interface{}, 0, len(chunk)*3)
		for i, rec := range chunk {
			if i > 0 {
				sb.WriteString(",")
			}
			sb.WriteString("(?, ?, ?)")
			args = append(args, rec.UsedDate, rec.EmployeeID, rec.AttendanceTypeID)
		}

		if _, err := exec.ExecContext(ctx, sb.String(), args...); err != nil {
			r.logger.Error("Failed to bulk insert used attendances",
				zap.Int("chunk_start", start),
				zap.Int("chunk_size", len(chunk)),
				zap.Error(err))
			return fmt.Errorf("failed to bulk insert used attendances: %w", err)
		}
	}

	return nil
}

// DeleteScoped removes the month's records for the given employee IDs only
func (r *UsedAttendanceRepository) DeleteScoped(ctx context.Context, year, month int, employeeIDs []int64) error {
	if len(employeeIDs) == 0 {
		return nil
	}

	placeholders := strings.Repeat("?,", len(employeeIDs))
	placeholders = placeholders[:len(placeholders)-1]
	query := `DELETE FROM used_attendance_facts WHERE substr(used_date, 1, 7) = ? AND employee_id IN (` + placeholders + `)`

	args := make([]interface{}, 0, len(employeeIDs)+1)
	args = append(args, usedMonthPrefix(year, month))
	for _, id := range employeeIDs {
		args = append(args, id)
	}

	if _, err := pickExecutor(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.Error("Failed to delete scoped used attendances",
			zap.Int("year", year),
			zap.Int("month", month),
			zap.Error(err))
		return fmt.Errorf("failed to delete scoped used attendances: %w", err)
	}
	return nil
}

// DeleteMonth removes every record of the month (restore path)
func (r *UsedAttendanceRepository) DeleteMonth(ctx context.Context, year, month int) error {
	query := `DELETE FROM used_attendance_facts WHERE substr(used_date, 1, 7) = ?`

	if _, err := pickExecutor(ctx, r.db).ExecContext(ctx, query, usedMonthPrefix(year, month)); err != nil {
		r.logger.Error("Failed to delete month's used attendances",
			zap.Int("year", year),
			zap.Int("month", month),
			zap.Error(err))
		return fmt.Errorf("failed to delete month's used attendances: %w", err)
	}
	return nil
}

// ListMonth returns every record of the month across all employees
func (r *UsedAttendanceRepository) ListMonth(ctx context.Context, year, month int) ([]entity.UsedAttendance, error) {
	query := `
		SELECT id, used_date, employee_id, attendance_type_id, created_at
		FROM used_attendance_facts
		WHERE substr(used_date, 1, 7) = ?
		ORDER BY employee_id, used_date
	`

	rows, err := pickExecutor(ctx, r.db).QueryContext(ctx, query, usedMonthPrefix(year, month))
	if err != nil {
		r.logger.Error("Failed to list month's used attendances", zap.Error(err))
		return nil, fmt.Errorf("failed to list used attendances: %w", err)
	}
	defer rows.Close()

	return scanUsedAttendances(rows)
}

// ListScoped returns the month's records for the given employee IDs
func (r *UsedAttendanceRepository) ListScoped(ctx context.Context, year, month int, employeeIDs []int64) ([]entity.UsedAttendance, error) {
	if len(employeeIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(employeeIDs))
	placeholders = placeholders[:len(placeholders)-1]
	query := `
		SELECT id, used_date, employee_id, attendance_type_id, created_at
		FROM used_attendance_facts
		WHERE substr(used_date, 1, 7) = ? AND employee_id IN (` + placeholders + `)
		ORDER BY employee_id, used_date
	`

	args := make([]interface{}, 0, len(employeeIDs)+1)
	args = append(args, usedMonthPrefix(year, month))
	for _, id := range employeeIDs {
		args = append(args, id)
	}

	rows, err := pickExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list scoped used attendances", zap.Error(err))
		return nil, fmt.Errorf("failed to list used attendances: %w", err)
	}
	defer rows.Close()

	return scanUsedAttendances(rows)
}

func scanUsedAttendances(rows *sql.Rows) ([]entity.UsedAttendance, error) {
	var records []entity.UsedAttendance
	for rows.Next() {
		var rec entity.UsedAttendance
		err := rows.Scan(
			&rec.ID,
			&rec.UsedDate,
			&rec.EmployeeID,
			&rec.AttendanceTypeID,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan used attendance: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Verify interface compliance
var _ port.UsedAttendanceRepository = (*UsedAttendanceRepository)(nil)
