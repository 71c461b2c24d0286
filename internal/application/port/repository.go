package port

import (
	"context"
	"time"

	"github.com/worktally/attendance-backend/internal/domain/entity"
)

// EmployeeRepository defines persistence operations for Employee
type EmployeeRepository interface {
	GetByID(ctx context.Context, id int64) (*entity.Employee, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*entity.Employee, error)
	GetByBadgeKeys(ctx context.Context, keys []string) ([]*entity.Employee, error)
	ListByDepartment(ctx context.Context, departmentID int64) ([]*entity.Employee, error)
	List(ctx context.Context, limit, offset int) ([]*entity.Employee, error)
}

// AttendanceTypeRepository defines persistence operations for AttendanceType
type AttendanceTypeRepository interface {
	GetByID(ctx context.Context, id int64) (*entity.AttendanceType, error)
	List(ctx context.Context) ([]*entity.AttendanceType, error)
}

// UploadRepository defines persistence operations for RawUpload
type UploadRepository interface {
	Create(ctx context.Context, upload *entity.RawUpload) error
	GetByID(ctx context.Context, id int64) (*entity.RawUpload, error)
	List(ctx context.Context, limit, offset int) ([]*entity.RawUpload, error)
}

// AccessEventRepository defines persistence operations for access-event facts.
// DeleteScoped removes only facts whose badge key is in the scope's set and
// whose date key falls inside the scope's month; DeleteMonth removes every
// fact of the month regardless of employee (restore path).
type AccessEventRepository interface {
	BulkInsert(ctx context.Context, events []entity.AccessEvent) error
	DeleteScoped(ctx context.Context, year, month int, badgeKeys []string) error
	DeleteMonth(ctx context.Context, year, month int) error
	ListMonth(ctx context.Context, year, month int) ([]entity.AccessEvent, error)
	ListScoped(ctx context.Context, year, month int, badgeKeys []string) ([]entity.AccessEvent, error)
}

// UsedAttendanceRepository defines persistence operations for used-attendance facts
type UsedAttendanceRepository interface {
	BulkInsert(ctx context.Context, records []entity.UsedAttendance) error
	DeleteScoped(ctx context.Context, year, month int, employeeIDs []int64) error
	DeleteMonth(ctx context.Context, year, month int) error
	ListMonth(ctx context.Context, year, month int) ([]entity.UsedAttendance, error)
	ListScoped(ctx context.Context, year, month int, employeeIDs []int64) ([]entity.UsedAttendance, error)
}

// LedgerRepository defines persistence operations for reconciliation ledger
// entries. Entries are append-only; only the reflected timestamp of an entry
// may be set after creation.
type LedgerRepository interface {
	Create(ctx context.Context, entry *entity.LedgerEntry) error
	GetByID(ctx context.Context, id int64) (*entity.LedgerEntry, error)
	ListByUploadID(ctx context.Context, uploadID int64) ([]*entity.LedgerEntry, error)
	MarkReflected(ctx context.Context, id int64, at time.Time) error
}

// SnapshotRepository defines persistence operations for monthly snapshots
type SnapshotRepository interface {
	Create(ctx context.Context, snapshot *entity.Snapshot) error
	GetByID(ctx context.Context, id int64) (*entity.Snapshot, error)
	List(ctx context.Context, year, month int, departmentID int64) ([]*entity.Snapshot, error)
	UpdateApproval(ctx context.Context, id int64, status string, submittedAt *time.Time) error

	CreateChild(ctx context.Context, child *entity.SnapshotChild) error
	GetChildren(ctx context.Context, snapshotID int64) ([]*entity.SnapshotChild, error)
	// GetChildrenForPeriod returns every child for (year, month) across all
	// parent snapshots plus a parent lookup keyed by snapshot ID. Input for
	// tie-break selection.
	GetChildrenForPeriod(ctx context.Context, year, month int) ([]*entity.SnapshotChild, map[int64]*entity.Snapshot, error)
}

// TransactionManager handles database transactions. When the context already
// carries a transaction the callback joins it instead of opening a new one.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
