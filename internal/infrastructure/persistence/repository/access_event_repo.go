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

// eventInsertChunk bounds the per-statement payload of bulk inserts. Badge
// exports are large (one row per door pass), so the chunk is generous.
const eventInsertChunk = 500

// AccessEventRepository implements port.AccessEventRepository
type AccessEventRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAccessEventRepository creates a new access event fact repository
func NewAccessEventRepository(db *sql.DB, logger *zap.Logger) port.AccessEventRepository {
	return &AccessEventRepository{
		db:     db,
		logger: logger,
	}
}

// monthKey returns the YYYYMM prefix shared by all date keys of a month
func monthKey(year, month int) string {
	return fmt.Sprintf("%04d%02d", year, month)
}

// BulkInsert inserts events in fixed-size chunks. Chunking only splits
// statements, not atomicity: callers run this inside a transaction and all
// chunks commit or none do.
func (r *AccessEventRepository) BulkInsert(ctx context.Context, events []entity.AccessEvent) error {
	exec := pickExecutor(ctx, r.db)

	for start := 0; start < len(events); start += eventInsertChunk {
		end := start + eventInsertChunk
		if end > len(events) {
			end = len(events)
		}
		chunk := events[start:end]

		var sb strings.Builder
		sb.WriteString(`INSERT INTO access_event_facts (employee_name, badge_key, occurred_at, date_key, time_key) VALUES `)
		args := make([]interface{}, 0, len(chunk)*5)
		for i, ev := range chunk {
			if i > 0 {
				sb.WriteString(",")
			}
			sb.WriteString("(?, ?, ?, ?, ?)")
			args = append(args, ev.EmployeeName, ev.BadgeKey, ev.OccurredAt, ev.DateKey, ev.TimeKey)
		}

		if _, err := exec.ExecContext(ctx, sb.String(), args...); err != nil {
			r.logger.Error("Failed to bulk insert access events",
				zap.Int("chunk_start", start),
				zap.Int("chunk_size", len(chunk)),
				zap.Error(err))
			return fmt.Errorf("failed to bulk insert access events: %w", err)
		}
	}

	return nil
}

// DeleteScoped removes the month's events for the given badge keys only.
// Facts of employees outside the key set are left untouched.
func (r *AccessEventRepository) DeleteScoped(ctx context.Context, year, month int, badgeKeys []string) error {
	if len(badgeKeys) == 0 {
		return nil
	}

	placeholders := strings.Repeat("?,", len(badgeKeys))
	placeholders = placeholders[:len(placeholders)-1]
	query := `DELETE FROM access_event_facts WHERE substr(date_key, 1, 6) = ? AND badge_key IN (` + placeholders + `)`

	args := make([]interface{}, 0, len(badgeKeys)+1)
	args = append(args, monthKey(year, month))
	for _, key := range badgeKeys {
		args = append(args, key)
	}

	if _, err := pickExecutor(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.Error("Failed to delete scoped access events",
			zap.Int("year", year),
			zap.Int("month", month),
			zap.Error(err))
		return fmt.Errorf("failed to delete scoped access events: %w", err)
	}
	return nil
}

// DeleteMonth removes every event of the month (restore path)
func (r *AccessEventRepository) DeleteMonth(ctx context.Context, year, month int) error {
	query := `DELETE FROM access_event_facts WHERE substr(date_key, 1, 6) = ?`

	if _, err := pickExecutor(ctx, r.db).ExecContext(ctx, query, monthKey(year, month)); err != nil {
		r.logger.Error("Failed to delete month's access events",
			zap.Int("year", year),
			zap.Int("month", month),
			zap.Error(err))
		return fmt.Errorf("failed to delete month's access events: %w", err)
	}
	return nil
}

// ListMonth returns every event of the month across all employees
func (r *AccessEventRepository) ListMonth(ctx context.Context, year, month int) ([]entity.AccessEvent, error) {
	query := `
		SELECT id, employee_name, badge_key, occurred_at, date_key, time_key, created_at
		FROM access_event_facts
		WHERE substr(date_key, 1, 6) = ?
		ORDER BY badge_key, date_key, time_key
	`

	rows, err := pickExecutor(ctx, r.db).QueryContext(ctx, query, monthKey(year, month))
	if err != nil {
		r.logger.Error("Failed to list month's access events", zap.Error(err))
		return nil, fmt.Errorf("failed to list access events: %w", err)
	}
	defer rows.Close()

	return scanAccessEvents(rows)
}

// ListScoped returns the month's events for the given badge keys
func (r *AccessEventRepository) ListScoped(ctx context.Context, year, month int, badgeKeys []string) ([]entity.AccessEvent, error) {
	if len(badgeKeys) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(badgeKeys))
	placeholders = placeholders[:len(placeholders)-1]
	query := `
		SELECT id, employee_name, badge_key, occurred_at, date_key, time_key, created_at
		FROM access_event_facts
		WHERE substr(date_key, 1, 6) = ? AND badge_key IN (` + placeholders + `)
		ORDER BY badge_key, date_key, time_key
	`

	args := make([]interface{}, 0, len(badgeKeys)+1)
	args = append(args, monthKey(year, month))
	for _, key := range badgeKeys {
		args = append(args, key)
	}

	rows, err := pickExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list scoped access events", zap.Error(err))
		return nil, fmt.Errorf("failed to list access events: %w", err)
	}
	defer rows.Close()

	return scanAccessEvents(rows)
}

func scanAccessEvents(rows *sql.Rows) ([]entity.AccessEvent, error) {
	var events []entity.AccessEvent
	for rows.Next() {
		var ev entity.AccessEvent
		err := rows.Scan(
			&ev.ID,
			&ev.EmployeeName,
			&ev.BadgeKey,
			&ev.OccurredAt,
			&ev.DateKey,
			&ev.TimeKey,
			&ev.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan access event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Verify interface compliance
var _ port.AccessEventRepository = (*AccessEventRepository)(nil)
