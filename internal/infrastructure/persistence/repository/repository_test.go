package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/worktally/attendance-backend/internal/domain/entity"
	"github.com/worktally/attendance-backend/internal/infrastructure/persistence/sqlite"
)

// setupTestDB opens an in-memory database with the full schema applied and a
// department plus two employees seeded.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", "file::memory:?_foreign_keys=on")
	require.NoError(t, err)
	// In-memory databases are per-connection; keep the pool at one
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	schema, err := os.ReadFile("../../../../migrations/001_initial_schema.sql")
	require.NoError(t, err)
	_, err = db.Exec(string(schema))
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO departments (id, name) VALUES (1, 'Engineering')`)
	require.NoError(t, err)
	_, err = db.Exec(`
		INSERT INTO employees (id, badge_key, name, department_id) VALUES
			(1, '1001', 'Kim', 1),
			(2, '1002', 'Lee', 1)
	`)
	require.NoError(t, err)

	return db
}

func testEvent(badgeKey, name string, year, month, day, hour int) entity.AccessEvent {
	occurred := time.Date(year, time.Month(month), day, hour, 0, 0, 0, time.UTC)
	return entity.AccessEvent{
		EmployeeName: name,
		BadgeKey:     badgeKey,
		OccurredAt:   occurred,
		DateKey:      occurred.Format("20060102"),
		TimeKey:      occurred.Format("150405"),
	}
}

func TestAccessEventRepo_ScopedDelete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAccessEventRepository(db, zap.NewNop())
	ctx := context.Background()

	err := repo.BulkInsert(ctx, []entity.AccessEvent{
		testEvent("1001", "Kim", 2025, 11, 3, 9),
		testEvent("1001", "Kim", 2025, 11, 3, 18),
		testEvent("1002", "Lee", 2025, 11, 3, 9),
		testEvent("1001", "Kim", 2025, 12, 1, 9), // next month
	})
	require.NoError(t, err)

	// Delete only Kim's November events
	require.NoError(t, repo.DeleteScoped(ctx, 2025, 11, []string{"1001"}))

	november, err := repo.ListMonth(ctx, 2025, 11)
	require.NoError(t, err)
	require.Len(t, november, 1)
	assert.Equal(t, "1002", november[0].BadgeKey)

	// Kim's December event is outside the scope and survives
	december, err := repo.ListMonth(ctx, 2025, 12)
	require.NoError(t, err)
	require.Len(t, december, 1)
	assert.Equal(t, "1001", december[0].BadgeKey)
}

func TestAccessEventRepo_DeleteMonth(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAccessEventRepository(db, zap.NewNop())
	ctx := context.Background()

	err := repo.BulkInsert(ctx, []entity.AccessEvent{
		testEvent("1001", "Kim", 2025, 11, 3, 9),
		testEvent("1002", "Lee", 2025, 11, 4, 9),
		testEvent("1001", "Kim", 2025, 12, 1, 9),
	})
	require.NoError(t, err)

	require.NoError(t, repo.DeleteMonth(ctx, 2025, 11))

	november, err := repo.ListMonth(ctx, 2025, 11)
	require.NoError(t, err)
	assert.Empty(t, november)

	december, err := repo.ListMonth(ctx, 2025, 12)
	require.NoError(t, err)
	assert.Len(t, december, 1)
}

func TestAccessEventRepo_ChunkedBulkInsert(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAccessEventRepository(db, zap.NewNop())
	ctx := context.Background()

	// More rows than one insert chunk holds
	count := eventInsertChunk*2 + 17
	events := make([]entity.AccessEvent, 0, count)
	for i := 0; i < count; i++ {
		day := (i % 28) + 1
		ev := testEvent("1001", "Kim", 2025, 11, day, 9)
		ev.TimeKey = fmt.Sprintf("%06d", i)
		events = append(events, ev)
	}

	require.NoError(t, repo.BulkInsert(ctx, events))

	stored, err := repo.ListMonth(ctx, 2025, 11)
	require.NoError(t, err)
	assert.Len(t, stored, count)
}

func TestAccessEventRepo_ListScopedOrdering(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAccessEventRepository(db, zap.NewNop())
	ctx := context.Background()

	err := repo.BulkInsert(ctx, []entity.AccessEvent{
		testEvent("1001", "Kim", 2025, 11, 5, 18),
		testEvent("1001", "Kim", 2025, 11, 5, 9),
		testEvent("1001", "Kim", 2025, 11, 3, 9),
		testEvent("1002", "Lee", 2025, 11, 4, 9),
	})
	require.NoError(t, err)

	scoped, err := repo.ListScoped(ctx, 2025, 11, []string{"1001"})
	require.NoError(t, err)
	require.Len(t, scoped, 3)
	assert.Equal(t, "20251103", scoped[0].DateKey)
	assert.Equal(t, "20251105", scoped[1].DateKey)
	assert.Equal(t, "090000", scoped[1].TimeKey)
	assert.Equal(t, "180000", scoped[2].TimeKey)

	empty, err := repo.ListScoped(ctx, 2025, 11, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestUsedAttendanceRepo_MonthPredicates(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUsedAttendanceRepository(db, zap.NewNop())
	ctx := context.Background()

	err := repo.BulkInsert(ctx, []entity.UsedAttendance{
		{UsedDate: "2025-11-03", EmployeeID: 1, AttendanceTypeID: 1},
		{UsedDate: "2025-11-04", EmployeeID: 1, AttendanceTypeID: 1},
		{UsedDate: "2025-11-03", EmployeeID: 2, AttendanceTypeID: 4},
		{UsedDate: "2025-12-01", EmployeeID: 1, AttendanceTypeID: 1},
	})
	require.NoError(t, err)

	// Scoped delete touches only employee 1's November facts
	require.NoError(t, repo.DeleteScoped(ctx, 2025, 11, []int64{1}))

	november, err := repo.ListMonth(ctx, 2025, 11)
	require.NoError(t, err)
	require.Len(t, november, 1)
	assert.Equal(t, int64(2), november[0].EmployeeID)

	scoped, err := repo.ListScoped(ctx, 2025, 12, []int64{1})
	require.NoError(t, err)
	assert.Len(t, scoped, 1)

	require.NoError(t, repo.DeleteMonth(ctx, 2025, 12))
	december, err := repo.ListMonth(ctx, 2025, 12)
	require.NoError(t, err)
	assert.Empty(t, december)
}

func TestUploadRepo_RoundTrip(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUploadRepository(db, zap.NewNop())
	ctx := context.Background()

	year, month := 2025, 11
	upload := &entity.RawUpload{
		FileName:       "events_nov.xlsx",
		Classification: entity.ClassificationEventHistory,
		RowsByBadgeKey: map[string][]entity.RawRow{
			"1001": {
				{entity.FieldBadgeKey: "1001", entity.FieldEventTime: "2025-11-03 09:00:00"},
			},
		},
		TargetYear:  &year,
		TargetMonth: &month,
		UploadedBy:  "ops@example.com",
	}

	require.NoError(t, repo.Create(ctx, upload))
	require.NotZero(t, upload.ID)

	got, err := repo.GetByID(ctx, upload.ID)
	require.NoError(t, err)
	assert.Equal(t, "events_nov.xlsx", got.FileName)
	assert.Equal(t, entity.ClassificationEventHistory, got.Classification)
	assert.Equal(t, "ops@example.com", got.UploadedBy)
	require.NotNil(t, got.TargetYear)
	assert.Equal(t, 2025, *got.TargetYear)
	require.NotNil(t, got.TargetMonth)
	assert.Equal(t, 11, *got.TargetMonth)
	require.Len(t, got.RowsByBadgeKey["1001"], 1)
	assert.Equal(t, "1001", got.RowsByBadgeKey["1001"][0][entity.FieldBadgeKey])

	_, err = repo.GetByID(ctx, 999)
	assert.ErrorIs(t, err, entity.ErrNotFound)

	uploads, err := repo.List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, uploads, 1)
}

func TestLedgerRepo_AppendAndMarkReflected(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLedgerRepository(db, zap.NewNop())
	ctx := context.Background()

	_, err := db.Exec(`INSERT INTO uploads (id, file_name, classification, rows_payload) VALUES (1, 'f.xlsx', 'EVENT_HISTORY', '{}')`)
	require.NoError(t, err)

	first := &entity.LedgerEntry{
		UploadID:       1,
		Classification: entity.ClassificationEventHistory,
		Status:         entity.LedgerStatusCompleted,
		Payload:        `{"schema_version":1,"data_type":"EVENT_HISTORY","year":2025,"month":11}`,
		PerformedBy:    "ops@example.com",
	}
	require.NoError(t, repo.Create(ctx, first))

	second := &entity.LedgerEntry{
		UploadID:       1,
		Classification: entity.ClassificationEventHistory,
		Status:         entity.LedgerStatusFailed,
		Payload:        `{"error":"disk full"}`,
		PerformedBy:    "ops@example.com",
	}
	require.NoError(t, repo.Create(ctx, second))

	entries, err := repo.ListByUploadID(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	// Newest first; the captured_at column has second resolution so the ID
	// breaks the tie
	assert.Equal(t, second.ID, entries[0].ID)
	assert.Equal(t, first.ID, entries[1].ID)

	got, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.LedgerStatusCompleted, got.Status)
	assert.Nil(t, got.ReflectedAt)

	at := time.Date(2025, 12, 2, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.MarkReflected(ctx, first.ID, at))

	got, err = repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ReflectedAt)
	assert.Equal(t, at.Unix(), got.ReflectedAt.Unix())

	assert.ErrorIs(t, repo.MarkReflected(ctx, 999, at), entity.ErrNotFound)
	_, err = repo.GetByID(ctx, 999)
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestSnapshotRepo_ChildrenForPeriod(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSnapshotRepository(db, zap.NewNop())
	ctx := context.Background()

	older := &entity.Snapshot{
		Year: 2025, Month: 11, DepartmentID: 1,
		Name: "November v1", ApprovalStatus: entity.SnapshotStatusDraft,
		CreatedBy: "ops@example.com",
	}
	require.NoError(t, repo.Create(ctx, older))

	newer := &entity.Snapshot{
		Year: 2025, Month: 11, DepartmentID: 1,
		Name: "November v2", ApprovalStatus: entity.SnapshotStatusDraft,
		CreatedBy: "ops@example.com",
	}
	require.NoError(t, repo.Create(ctx, newer))

	other := &entity.Snapshot{
		Year: 2025, Month: 12, DepartmentID: 1,
		Name: "December", ApprovalStatus: entity.SnapshotStatusDraft,
		CreatedBy: "ops@example.com",
	}
	require.NoError(t, repo.Create(ctx, other))

	for _, parent := range []*entity.Snapshot{older, newer, other} {
		require.NoError(t, repo.CreateChild(ctx, &entity.SnapshotChild{
			SnapshotID: parent.ID,
			EmployeeID: 1,
			Year:       parent.Year,
			Month:      parent.Month,
			Summary:    `{"employee_id":1}`,
		}))
	}

	children, parents, err := repo.GetChildrenForPeriod(ctx, 2025, 11)
	require.NoError(t, err)
	require.Len(t, children, 2)
	require.Len(t, parents, 2)
	assert.Contains(t, parents, older.ID)
	assert.Contains(t, parents, newer.ID)
	assert.NotContains(t, parents, other.ID)

	// Submit the newer snapshot; the update must survive a round trip
	now := time.Now().UTC()
	require.NoError(t, repo.UpdateApproval(ctx, newer.ID, entity.SnapshotStatusSubmitted, &now))

	got, err := repo.GetByID(ctx, newer.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.SnapshotStatusSubmitted, got.ApprovalStatus)
	require.NotNil(t, got.SubmittedAt)

	listed, err := repo.List(ctx, 2025, 11, 1)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, newer.ID, listed[0].ID)

	kids, err := repo.GetChildren(ctx, newer.ID)
	require.NoError(t, err)
	require.Len(t, kids, 1)
	assert.Equal(t, int64(1), kids[0].EmployeeID)
}

func TestEmployeeRepo_Lookups(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEmployeeRepository(db, zap.NewNop())
	ctx := context.Background()

	byIDs, err := repo.GetByIDs(ctx, []int64{1, 2, 99})
	require.NoError(t, err)
	assert.Len(t, byIDs, 2)

	byKeys, err := repo.GetByBadgeKeys(ctx, []string{"1002", "9999"})
	require.NoError(t, err)
	require.Len(t, byKeys, 1)
	assert.Equal(t, "Lee", byKeys[0].Name)

	dept, err := repo.ListByDepartment(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, dept, 2)

	_, err = repo.GetByID(ctx, 99)
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestAttendanceTypeRepo_SeededCatalog(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAttendanceTypeRepository(db, zap.NewNop())
	ctx := context.Background()

	types, err := repo.List(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, types)

	names := make(map[string]bool)
	for _, tp := range types {
		names[tp.DisplayName] = true
	}
	assert.True(t, names["Annual Leave"])
	assert.True(t, names["Business Trip"])
}

func TestWithTransaction_RollbackAndCommit(t *testing.T) {
	db := setupTestDB(t)
	logger := zap.NewNop()
	txManager := sqlite.NewDB(db, logger)
	eventRepo := NewAccessEventRepository(db, logger)
	attendanceRepo := NewUsedAttendanceRepository(db, logger)
	ctx := context.Background()

	// An error inside the callback rolls back every statement
	err := txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := eventRepo.BulkInsert(txCtx, []entity.AccessEvent{
			testEvent("1001", "Kim", 2025, 11, 3, 9),
		}); err != nil {
			return err
		}
		if err := attendanceRepo.BulkInsert(txCtx, []entity.UsedAttendance{
			{UsedDate: "2025-11-04", EmployeeID: 1, AttendanceTypeID: 1},
		}); err != nil {
			return err
		}
		return fmt.Errorf("reconciliation aborted")
	})
	require.Error(t, err)

	events, err := eventRepo.ListMonth(ctx, 2025, 11)
	require.NoError(t, err)
	assert.Empty(t, events)
	attendances, err := attendanceRepo.ListMonth(ctx, 2025, 11)
	require.NoError(t, err)
	assert.Empty(t, attendances)

	// The happy path commits both repositories atomically, and a nested call
	// joins the outer transaction instead of opening a second one
	err = txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := eventRepo.BulkInsert(txCtx, []entity.AccessEvent{
			testEvent("1001", "Kim", 2025, 11, 3, 9),
		}); err != nil {
			return err
		}
		return txManager.WithTransaction(txCtx, func(inner context.Context) error {
			return attendanceRepo.BulkInsert(inner, []entity.UsedAttendance{
				{UsedDate: "2025-11-04", EmployeeID: 1, AttendanceTypeID: 1},
			})
		})
	})
	require.NoError(t, err)

	events, err = eventRepo.ListMonth(ctx, 2025, 11)
	require.NoError(t, err)
	assert.Len(t, events, 1)
	attendances, err = attendanceRepo.ListMonth(ctx, 2025, 11)
	require.NoError(t, err)
	assert.Len(t, attendances, 1)
}
