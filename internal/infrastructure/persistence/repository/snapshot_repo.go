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

// SnapshotRepository implements port.SnapshotRepository
type SnapshotRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *sql.DB, logger *zap.Logger) port.SnapshotRepository {
	return &SnapshotRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores a new parent snapshot
func (r *SnapshotRepository) Create(ctx context.Context, snapshot *entity.Snapshot) error {
	query := `
		INSERT INTO snapshots (year, month, department_id, name, description, approval_status, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := pickExecutor(ctx, r.db).ExecContext(ctx, query,
		snapshot.Year,
		snapshot.Month,
		snapshot.DepartmentID,
		snapshot.Name,
		snapshot.Description,
		snapshot.ApprovalStatus,
		snapshot.CreatedBy,
	)
	if err != nil {
		r.logger.Error("Failed to create snapshot", zap.Error(err))
		return fmt.Errorf("failed to create snapshot: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	snapshot.ID = id
	return nil
}

const snapshotColumns = `id, year, month, department_id, name, description, approval_status, submitted_at, created_by, created_at`

// GetByID retrieves a parent snapshot
func (r *SnapshotRepository) GetByID(ctx context.Context, id int64) (*entity.Snapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM snapshots WHERE id = ?`

	snapshot, err := scanSnapshotRow(pickExecutor(ctx, r.db).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to get snapshot", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	return snapshot, nil
}

// List retrieves snapshots for a period, optionally filtered by department
// (departmentID <= 0 means all departments), newest first
func (r *SnapshotRepository) List(ctx context.Context, year, month int, departmentID int64) ([]*entity.Snapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM snapshots WHERE year = ? AND month = ?`
	args := []interface{}{year, month}
	if departmentID > 0 {
		query += ` AND department_id = ?`
		args = append(args, departmentID)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := pickExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list snapshots", zap.Error(err))
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*entity.Snapshot
	for rows.Next() {
		var s entity.Snapshot
		err := rows.Scan(
			&s.ID, &s.Year, &s.Month, &s.DepartmentID, &s.Name, &s.Description,
			&s.ApprovalStatus, &s.SubmittedAt, &s.CreatedBy, &s.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snapshots = append(snapshots, &s)
	}
	return snapshots, rows.Err()
}

// UpdateApproval sets the approval status and, when the transition is a
// submission, the submission timestamp
func (r *SnapshotRepository) UpdateApproval(ctx context.Context, id int64, status string, submittedAt *time.Time) error {
	query := `UPDATE snapshots SET approval_status = ?, submitted_at = COALESCE(?, submitted_at) WHERE id = ?`

	result, err := pickExecutor(ctx, r.db).ExecContext(ctx, query, status, submittedAt, id)
	if err != nil {
		r.logger.Error("Failed to update snapshot approval", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to update snapshot approval: %w", err)
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

// CreateChild stores one employee's computed summary under a parent snapshot
func (r *SnapshotRepository) CreateChild(ctx context.Context, child *entity.SnapshotChild) error {
	query := `
		INSERT INTO snapshot_children (snapshot_id, employee_id, year, month, summary)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := pickExecutor(ctx, r.db).ExecContext(ctx, query,
		child.SnapshotID,
		child.EmployeeID,
		child.Year,
		child.Month,
		child.Summary,
	)
	if err != nil {
		r.logger.Error("Failed to create snapshot child", zap.Error(err))
		return fmt.Errorf("failed to create snapshot child: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	child.ID = id
	return nil
}

const childColumns = `id, snapshot_id, employee_id, year, month, summary, created_at`

// GetChildren retrieves all children of a parent snapshot
func (r *SnapshotRepository) GetChildren(ctx context.Context, snapshotID int64) ([]*entity.SnapshotChild, error) {
	query := `SELECT ` + childColumns + ` FROM snapshot_children WHERE snapshot_id = ? ORDER BY employee_id`

	rows, err := pickExecutor(ctx, r.db).QueryContext(ctx, query, snapshotID)
	if err != nil {
		r.logger.Error("Failed to get snapshot children", zap.Int64("snapshot_id", snapshotID), zap.Error(err))
		return nil, fmt.Errorf("failed to get snapshot children: %w", err)
	}
	defer rows.Close()

	return scanSnapshotChildren(rows)
}

// GetChildrenForPeriod returns every child for the period across all parents
// plus a parent lookup. The tie-break selection re-derives the authoritative
// child from this raw data on every read; no winner flag is cached.
func (r *SnapshotRepository) GetChildrenForPeriod(ctx context.Context, year, month int) ([]*entity.SnapshotChild, map[int64]*entity.Snapshot, error) {
	childQuery := `
		SELECT c.id, c.snapshot_id, c.employee_id, c.year, c.month, c.summary, c.created_at
		FROM snapshot_children c
		WHERE c.year = ? AND c.month = ?
		ORDER BY c.id
	`

	rows, err := pickExecutor(ctx, r.db).QueryContext(ctx, childQuery, year, month)
	if err != nil {
		r.logger.Error("Failed to get children for period", zap.Error(err))
		return nil, nil, fmt.Errorf("failed to get children for period: %w", err)
	}
	defer rows.Close()

	children, err := scanSnapshotChildren(rows)
	if err != nil {
		return nil, nil, err
	}

	parentQuery := `SELECT ` + snapshotColumns + ` FROM snapshots WHERE year = ? AND month = ?`
	parentRows, err := pickExecutor(ctx, r.db).QueryContext(ctx, parentQuery, year, month)
	if err != nil {
		r.logger.Error("Failed to get parents for period", zap.Error(err))
		return nil, nil, fmt.Errorf("failed to get parents for period: %w", err)
	}
	defer parentRows.Close()

	parents := make(map[int64]*entity.Snapshot)
	for parentRows.Next() {
		var s entity.Snapshot
		err := parentRows.Scan(
			&s.ID, &s.Year, &s.Month, &s.DepartmentID, &s.Name, &s.Description,
			&s.ApprovalStatus, &s.SubmittedAt, &s.CreatedBy, &s.CreatedAt,
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		parents[s.ID] = &s
	}
	if err := parentRows.Err(); err != nil {
		return nil, nil, err
	}

	return children, parents, nil
}

func scanSnapshotRow(row *sql.Row) (*entity.Snapshot, error) {
	var s entity.Snapshot
	err := row.Scan(
		&s.ID, &s.Year, &s.Month, &s.DepartmentID, &s.Name, &s.Description,
		&s.ApprovalStatus, &s.SubmittedAt, &s.CreatedBy, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func scanSnapshotChildren(rows *sql.Rows) ([]*entity.SnapshotChild, error) {
	var children []*entity.SnapshotChild
	for rows.Next() {
		var c entity.SnapshotChild
		err := rows.Scan(&c.ID, &c.SnapshotID, &c.EmployeeID, &c.Year, &c.Month, &c.Summary, &c.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot child: %w", err)
		}
		children = append(children, &c)
	}
	return children, rows.Err()
}

// Verify interface compliance
var _ port.SnapshotRepository = (*SnapshotRepository)(nil)
