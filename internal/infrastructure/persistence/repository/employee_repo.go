package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/worktally/attendance-backend/internal/application/port"
	"github.com/worktally/attendance-backend/internal/domain/entity"
	"go.uber.org/zap"
)

// EmployeeRepository implements port.EmployeeRepository
type EmployeeRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewEmployeeRepository creates a new employee repository
func NewEmployeeRepository(db *sql.DB, logger *zap.Logger) port.EmployeeRepository {
	return &EmployeeRepository{
		db:     db,
		logger: logger,
	}
}

const employeeColumns = `id, badge_key, name, department_id, joined_at, is_active, created_at, updated_at`

// GetByID retrieves an employee by ID
func (r *EmployeeRepository) GetByID(ctx context.Context, id int64) (*entity.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE id = ?`

	var emp entity.Employee
	err := pickExecutor(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&emp.ID,
		&emp.BadgeKey,
		&emp.Name,
		&emp.DepartmentID,
		&emp.JoinedAt,
		&emp.IsActive,
		&emp.CreatedAt,
		&emp.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to get employee", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}
	return &emp, nil
}

// GetByIDs retrieves employees for a set of IDs. Unknown IDs are simply
// absent from the result; callers decide whether that is an error.
func (r *EmployeeRepository) GetByIDs(ctx context.Context, ids []int64) ([]*entity.Employee, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE id IN (` + placeholders + `)`

	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := pickExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to get employees by ids", zap.Error(err))
		return nil, fmt.Errorf("failed to get employees: %w", err)
	}
	defer rows.Close()

	return scanEmployees(rows)
}

// GetByBadgeKeys retrieves employees for a set of badge keys. Unknown keys
// are absent from the result.
func (r *EmployeeRepository) GetByBadgeKeys(ctx context.Context, keys []string) ([]*entity.Employee, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(keys))
	placeholders = placeholders[:len(placeholders)-1]
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE badge_key IN (` + placeholders + `)`

	args := make([]interface{}, len(keys))
	for i, key := range keys {
		args[i] = key
	}

	rows, err := pickExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to get employees by badge keys", zap.Error(err))
		return nil, fmt.Errorf("failed to get employees: %w", err)
	}
	defer rows.Close()

	return scanEmployees(rows)
}

// ListByDepartment retrieves all active employees of a department
func (r *EmployeeRepository) ListByDepartment(ctx context.Context, departmentID int64) ([]*entity.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE department_id = ? AND is_active = 1 ORDER BY id`

	rows, err := pickExecutor(ctx, r.db).QueryContext(ctx, query, departmentID)
	if err != nil {
		r.logger.Error("Failed to list employees by department", zap.Int64("department_id", departmentID), zap.Error(err))
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	defer rows.Close()

	return scanEmployees(rows)
}

// List retrieves employees with pagination
func (r *EmployeeRepository) List(ctx context.Context, limit, offset int) ([]*entity.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees ORDER BY id LIMIT ? OFFSET ?`

	rows, err := pickExecutor(ctx, r.db).QueryContext(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list employees", zap.Error(err))
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	defer rows.Close()

	return scanEmployees(rows)
}

func scanEmployees(rows *sql.Rows) ([]*entity.Employee, error) {
	var employees []*entity.Employee
	for rows.Next() {
		var emp entity.Employee
		err := rows.Scan(
			&emp.ID,
			&emp.BadgeKey,
			&emp.Name,
			&emp.DepartmentID,
			&emp.JoinedAt,
			&emp.IsActive,
			&emp.CreatedAt,
			&emp.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		employees = append(employees, &emp)
	}
	return employees, rows.Err()
}

// Verify interface compliance
var _ port.EmployeeRepository = (*EmployeeRepository)(nil)
