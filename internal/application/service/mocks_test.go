package service

import (
	"context"
	"sync"
	"time"

	"github.com/worktally/attendance-backend/internal/application/dispatcher"
	"github.com/worktally/attendance-backend/internal/domain/entity"
	"github.com/worktally/attendance-backend/internal/domain/event"
)

// Mock repositories

type mockUploadRepo struct {
	getByIDFunc func(ctx context.Context, id int64) (*entity.RawUpload, error)
}

func (m *mockUploadRepo) Create(ctx context.Context, upload *entity.RawUpload) error {
	upload.ID = 1
	return nil
}

func (m *mockUploadRepo) GetByID(ctx context.Context, id int64) (*entity.RawUpload, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, entity.ErrNotFound
}

func (m *mockUploadRepo) List(ctx context.Context, limit, offset int) ([]*entity.RawUpload, error) {
	return []*entity.RawUpload{}, nil
}

type mockEmployeeRepo struct {
	employees []*entity.Employee
}

func (m *mockEmployeeRepo) GetByID(ctx context.Context, id int64) (*entity.Employee, error) {
	for _, emp := range m.employees {
		if emp.ID == id {
			return emp, nil
		}
	}
	return nil, entity.ErrNotFound
}

func (m *mockEmployeeRepo) GetByIDs(ctx context.Context, ids []int64) ([]*entity.Employee, error) {
	var out []*entity.Employee
	for _, id := range ids {
		for _, emp := range m.employees {
			if emp.ID == id {
				out = append(out, emp)
			}
		}
	}
	return out, nil
}

func (m *mockEmployeeRepo) GetByBadgeKeys(ctx context.Context, keys []string) ([]*entity.Employee, error) {
	var out []*entity.Employee
	for _, key := range keys {
		for _, emp := range m.employees {
			if emp.BadgeKey == key {
				out = append(out, emp)
			}
		}
	}
	return out, nil
}

func (m *mockEmployeeRepo) ListByDepartment(ctx context.Context, departmentID int64) ([]*entity.Employee, error) {
	var out []*entity.Employee
	for _, emp := range m.employees {
		if emp.DepartmentID == departmentID {
			out = append(out, emp)
		}
	}
	return out, nil
}

func (m *mockEmployeeRepo) List(ctx context.Context, limit, offset int) ([]*entity.Employee, error) {
	return m.employees, nil
}

type mockTypeRepo struct {
	types []*entity.AttendanceType
}

func (m *mockTypeRepo) GetByID(ctx context.Context, id int64) (*entity.AttendanceType, error) {
	for _, at := range m.types {
		if at.ID == id {
			return at, nil
		}
	}
	return nil, entity.ErrNotFound
}

func (m *mockTypeRepo) List(ctx context.Context) ([]*entity.AttendanceType, error) {
	return m.types, nil
}

// mockEventRepo keeps event facts in memory and records calls, so tests can
// assert on what a reconcile or restore actually did to the table.
type mockEventRepo struct {
	mu                sync.Mutex
	facts             []entity.AccessEvent
	bulkInsertErr     error
	deleteScopedCalls [][]string
}

func (m *mockEventRepo) BulkInsert(ctx context.Context, events []entity.AccessEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bulkInsertErr != nil {
		return m.bulkInsertErr
	}
	m.facts = append(m.facts, events...)
	return nil
}

func (m *mockEventRepo) DeleteScoped(ctx context.Context, year, month int, badgeKeys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteScopedCalls = append(m.deleteScopedCalls, badgeKeys)
	keep := m.facts[:0]
	inScope := make(map[string]bool, len(badgeKeys))
	for _, key := range badgeKeys {
		inScope[key] = true
	}
	prefix := monthPrefixKey(year, month)
	for _, f := range m.facts {
		if inScope[f.BadgeKey] && f.DateKey[:6] == prefix {
			continue
		}
		keep = append(keep, f)
	}
	m.facts = keep
	return nil
}

func (m *mockEventRepo) DeleteMonth(ctx context.Context, year, month int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	keep := m.facts[:0]
	prefix := monthPrefixKey(year, month)
	for _, f := range m.facts {
		if f.DateKey[:6] != prefix {
			keep = append(keep, f)
		}
	}
	m.facts = keep
	return nil
}

func (m *mockEventRepo) ListMonth(ctx context.Context, year, month int) ([]entity.AccessEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.AccessEvent
	prefix := monthPrefixKey(year, month)
	for _, f := range m.facts {
		if f.DateKey[:6] == prefix {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *mockEventRepo) ListScoped(ctx context.Context, year, month int, badgeKeys []string) ([]entity.AccessEvent, error) {
	inScope := make(map[string]bool, len(badgeKeys))
	for _, key := range badgeKeys {
		inScope[key] = true
	}
	all, _ := m.ListMonth(ctx, year, month)
	var out []entity.AccessEvent
	for _, f := range all {
		if inScope[f.BadgeKey] {
			out = append(out, f)
		}
	}
	return out, nil
}

type mockAttendanceRepo struct {
	mu            sync.Mutex
	facts         []entity.UsedAttendance
	bulkInsertErr error
}

func (m *mockAttendanceRepo) BulkInsert(ctx context.Context, records []entity.UsedAttendance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bulkInsertErr != nil {
		return m.bulkInsertErr
	}
	m.facts = append(m.facts, records...)
	return nil
}

func (m *mockAttendanceRepo) DeleteScoped(ctx context.Context, year, month int, employeeIDs []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inScope := make(map[int64]bool, len(employeeIDs))
	for _, id := range employeeIDs {
		inScope[id] = true
	}
	prefix := usedMonthPrefixKey(year, month)
	keep := m.facts[:0]
	for _, f := range m.facts {
		if inScope[f.EmployeeID] && f.UsedDate[:7] == prefix {
			continue
		}
		keep = append(keep, f)
	}
	m.facts = keep
	return nil
}

func (m *mockAttendanceRepo) DeleteMonth(ctx context.Context, year, month int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := usedMonthPrefixKey(year, month)
	keep := m.facts[:0]
	for _, f := range m.facts {
		if f.UsedDate[:7] != prefix {
			keep = append(keep, f)
		}
	}
	m.facts = keep
	return nil
}

func (m *mockAttendanceRepo) ListMonth(ctx context.Context, year, month int) ([]entity.UsedAttendance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := usedMonthPrefixKey(year, month)
	var out []entity.UsedAttendance
	for _, f := range m.facts {
		if f.UsedDate[:7] == prefix {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *mockAttendanceRepo) ListScoped(ctx context.Context, year, month int, employeeIDs []int64) ([]entity.UsedAttendance, error) {
	inScope := make(map[int64]bool, len(employeeIDs))
	for _, id := range employeeIDs {
		inScope[id] = true
	}
	all, _ := m.ListMonth(ctx, year, month)
	var out []entity.UsedAttendance
	for _, f := range all {
		if inScope[f.EmployeeID] {
			out = append(out, f)
		}
	}
	return out, nil
}

type mockLedgerRepo struct {
	mu      sync.Mutex
	entries []*entity.LedgerEntry
}

func (m *mockLedgerRepo) Create(ctx context.Context, entry *entity.LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry.ID = int64(len(m.entries) + 1)
	m.entries = append(m.entries, entry)
	return nil
}

func (m *mockLedgerRepo) GetByID(ctx context.Context, id int64) (*entity.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, entity.ErrNotFound
}

func (m *mockLedgerRepo) ListByUploadID(ctx context.Context, uploadID int64) ([]*entity.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.LedgerEntry
	for _, e := range m.entries {
		if e.UploadID == uploadID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockLedgerRepo) MarkReflected(ctx context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.ID == id {
			e.ReflectedAt = &at
			return nil
		}
	}
	return entity.ErrNotFound
}

type mockSnapshotRepo struct {
	mu        sync.Mutex
	snapshots []*entity.Snapshot
	children  []*entity.SnapshotChild

	updateApprovalFunc func(ctx context.Context, id int64, status string, submittedAt *time.Time) error
}

func (m *mockSnapshotRepo) Create(ctx context.Context, snapshot *entity.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot.ID = int64(len(m.snapshots) + 1)
	if snapshot.CreatedAt.IsZero() {
		snapshot.CreatedAt = time.Now()
	}
	m.snapshots = append(m.snapshots, snapshot)
	return nil
}

func (m *mockSnapshotRepo) GetByID(ctx context.Context, id int64) (*entity.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.snapshots {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, entity.ErrNotFound
}

func (m *mockSnapshotRepo) List(ctx context.Context, year, month int, departmentID int64) ([]*entity.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Snapshot
	for i := len(m.snapshots) - 1; i >= 0; i-- {
		s := m.snapshots[i]
		if s.Year == year && s.Month == month && (departmentID == 0 || s.DepartmentID == departmentID) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockSnapshotRepo) UpdateApproval(ctx context.Context, id int64, status string, submittedAt *time.Time) error {
	if m.updateApprovalFunc != nil {
		return m.updateApprovalFunc(ctx, id, status, submittedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.snapshots {
		if s.ID == id {
			s.ApprovalStatus = status
			s.SubmittedAt = submittedAt
			return nil
		}
	}
	return entity.ErrNotFound
}

func (m *mockSnapshotRepo) CreateChild(ctx context.Context, child *entity.SnapshotChild) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	child.ID = int64(len(m.children) + 1)
	m.children = append(m.children, child)
	return nil
}

func (m *mockSnapshotRepo) GetChildren(ctx context.Context, snapshotID int64) ([]*entity.SnapshotChild, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.SnapshotChild
	for _, c := range m.children {
		if c.SnapshotID == snapshotID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockSnapshotRepo) GetChildrenForPeriod(ctx context.Context, year, month int) ([]*entity.SnapshotChild, map[int64]*entity.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	parents := make(map[int64]*entity.Snapshot)
	var out []*entity.SnapshotChild
	for _, c := range m.children {
		if c.Year != year || c.Month != month {
			continue
		}
		out = append(out, c)
		for _, s := range m.snapshots {
			if s.ID == c.SnapshotID {
				parents[s.ID] = s
			}
		}
	}
	return out, parents, nil
}

type mockTxManager struct {
	withTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.withTransactionFunc != nil {
		return m.withTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

// mockDispatcher records dispatched events instead of routing them
type mockDispatcher struct {
	mu     sync.Mutex
	events []*event.Event
}

func (m *mockDispatcher) Subscribe(eventType event.Type, handler dispatcher.Handler) {}

func (m *mockDispatcher) SubscribeNamed(eventType event.Type, name string, handler dispatcher.Handler) {
}

func (m *mockDispatcher) Unsubscribe(eventType event.Type, name string) {}

func (m *mockDispatcher) Dispatch(ctx context.Context, evt *event.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
	return nil
}

func (m *mockDispatcher) DispatchAsync(ctx context.Context, evt *event.Event) {
	_ = m.Dispatch(ctx, evt)
}

func (m *mockDispatcher) ListHandlers(eventType event.Type) []dispatcher.HandlerInfo { return nil }

func (m *mockDispatcher) Close() error { return nil }

func (m *mockDispatcher) typesSeen() []event.Type {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []event.Type
	for _, evt := range m.events {
		out = append(out, evt.Type)
	}
	return out
}

type mockSender struct {
	mu       sync.Mutex
	messages []string
	err      error
}

func (m *mockSender) SendText(ctx context.Context, receiveID string, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, content)
	return nil
}

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Warn(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}

func monthPrefixKey(year, month int) string {
	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).Format("200601")
}

func usedMonthPrefixKey(year, month int) string {
	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
}
