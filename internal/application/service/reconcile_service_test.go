package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worktally/attendance-backend/internal/domain/entity"
	"github.com/worktally/attendance-backend/internal/domain/event"
)

func eventUpload(rows map[string][]entity.RawRow) *entity.RawUpload {
	year, month := 2025, 11
	return &entity.RawUpload{
		ID:             1,
		FileName:       "events.xlsx",
		Classification: entity.ClassificationEventHistory,
		RowsByBadgeKey: rows,
		TargetYear:     &year,
		TargetMonth:    &month,
	}
}

func attendanceUpload(rows map[string][]entity.RawRow) *entity.RawUpload {
	year, month := 2025, 11
	return &entity.RawUpload{
		ID:             2,
		FileName:       "requests.xlsx",
		Classification: entity.ClassificationAttendanceRequest,
		RowsByBadgeKey: rows,
		TargetYear:     &year,
		TargetMonth:    &month,
	}
}

func newReconcileFixture(upload *entity.RawUpload) (ReconcileService, *mockEventRepo, *mockAttendanceRepo, *mockLedgerRepo, *mockDispatcher) {
	uploadRepo := &mockUploadRepo{
		getByIDFunc: func(ctx context.Context, id int64) (*entity.RawUpload, error) {
			if upload != nil && id == upload.ID {
				return upload, nil
			}
			return nil, entity.ErrNotFound
		},
	}
	employeeRepo := &mockEmployeeRepo{employees: []*entity.Employee{
		{ID: 1, BadgeKey: "1001", Name: "Kim", DepartmentID: 1, IsActive: true},
		{ID: 2, BadgeKey: "1002", Name: "Lee", DepartmentID: 1, IsActive: true},
	}}
	typeRepo := &mockTypeRepo{types: []*entity.AttendanceType{
		{ID: 1, DisplayName: "Annual Leave", Deducted: true},
		{ID: 2, DisplayName: "Business Trip"},
	}}
	eventRepo := &mockEventRepo{}
	attendanceRepo := &mockAttendanceRepo{}
	ledgerRepo := &mockLedgerRepo{}
	disp := &mockDispatcher{}

	svc := NewReconcileService(uploadRepo, employeeRepo, typeRepo, eventRepo, attendanceRepo, ledgerRepo, &mockTxManager{}, disp, &mockLogger{})
	return svc, eventRepo, attendanceRepo, ledgerRepo, disp
}

func TestReconcile_Events(t *testing.T) {
	upload := eventUpload(map[string][]entity.RawRow{
		"1001": {
			{entity.FieldName: "Kim", entity.FieldEventTime: "2025-11-03 08:55:12"},
			{entity.FieldName: "Kim", entity.FieldEventTime: "2025-11-03 18:02:40"},
			{entity.FieldName: "Kim", entity.FieldEventTime: "2025-12-01 09:00:00"}, // out of month
		},
		"1002": {
			{entity.FieldName: "Lee", entity.FieldEventTime: "not a time"},
			{entity.FieldName: "Lee", entity.FieldEventTime: "2025-11-04 09:10:00"},
		},
	})
	svc, eventRepo, _, ledgerRepo, disp := newReconcileFixture(upload)

	result, err := svc.Reconcile(context.Background(), ReconcileInput{UploadID: 1, PerformedBy: "ops"})
	require.NoError(t, err)

	assert.Equal(t, 3, result.EventCount)
	assert.Len(t, result.Warnings, 1)
	assert.Equal(t, "1002", result.Warnings[0].BadgeKey)
	assert.Len(t, eventRepo.facts, 3)

	// The full month is captured, and the ledger entry replays cleanly.
	entry, err := ledgerRepo.GetByID(context.Background(), result.LedgerEntryID)
	require.NoError(t, err)
	payload, err := entry.DecodePayload()
	require.NoError(t, err)
	assert.Equal(t, entity.ClassificationEventHistory, payload.DataType)
	assert.Len(t, payload.Events, 3)
	for _, ev := range payload.Events {
		assert.Zero(t, ev.ID)
	}

	assert.Contains(t, disp.typesSeen(), event.TypeReconciliationCompleted)
}

func TestReconcile_ScopeIsolation(t *testing.T) {
	upload := eventUpload(map[string][]entity.RawRow{
		"1001": {{entity.FieldName: "Kim", entity.FieldEventTime: "2025-11-03 08:55:12"}},
	})
	svc, eventRepo, _, _, _ := newReconcileFixture(upload)

	// An unrelated employee already has facts in the same month.
	other := entity.AccessEvent{BadgeKey: "1002", EmployeeName: "Lee", DateKey: "20251105", TimeKey: "091000"}
	eventRepo.facts = append(eventRepo.facts, other)

	_, err := svc.Reconcile(context.Background(), ReconcileInput{UploadID: 1, EmployeeIDs: []int64{1}, PerformedBy: "ops"})
	require.NoError(t, err)

	var lee []entity.AccessEvent
	for _, f := range eventRepo.facts {
		if f.BadgeKey == "1002" {
			lee = append(lee, f)
		}
	}
	require.Len(t, lee, 1)
	assert.Equal(t, other.DateKey, lee[0].DateKey)
}

func TestReconcile_RequestedEmployeeWithoutRowsIsCleared(t *testing.T) {
	// A corrected upload carries rows for Kim only, but the run is scoped to
	// both employees: Lee's stale facts in the month must be replaced with
	// nothing.
	upload := eventUpload(map[string][]entity.RawRow{
		"1001": {{entity.FieldName: "Kim", entity.FieldEventTime: "2025-11-03 08:55:12"}},
	})
	svc, eventRepo, _, _, _ := newReconcileFixture(upload)

	eventRepo.facts = append(eventRepo.facts,
		entity.AccessEvent{BadgeKey: "1002", EmployeeName: "Lee", DateKey: "20251105", TimeKey: "091000"})

	result, err := svc.Reconcile(context.Background(), ReconcileInput{UploadID: 1, EmployeeIDs: []int64{1, 2}, PerformedBy: "ops"})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"1001", "1002"}, result.ProcessedBadgeKeys)
	for _, f := range eventRepo.facts {
		assert.NotEqual(t, "1002", f.BadgeKey)
	}
	require.Len(t, eventRepo.facts, 1)
}

func TestReconcile_Attendance_RequestedEmployeeWithoutRowsIsCleared(t *testing.T) {
	upload := attendanceUpload(map[string][]entity.RawRow{
		"1001": {{entity.FieldLeaveType: "Annual Leave", entity.FieldPeriod: "2025-11-10"}},
	})
	svc, _, attendanceRepo, _, _ := newReconcileFixture(upload)

	attendanceRepo.facts = append(attendanceRepo.facts,
		entity.UsedAttendance{EmployeeID: 2, AttendanceTypeID: 1, UsedDate: "2025-11-06"})

	_, err := svc.Reconcile(context.Background(), ReconcileInput{UploadID: 2, EmployeeIDs: []int64{1, 2}, PerformedBy: "ops"})
	require.NoError(t, err)

	require.Len(t, attendanceRepo.facts, 1)
	assert.Equal(t, int64(1), attendanceRepo.facts[0].EmployeeID)
}

func TestReconcile_IdempotentReapply(t *testing.T) {
	upload := eventUpload(map[string][]entity.RawRow{
		"1001": {
			{entity.FieldName: "Kim", entity.FieldEventTime: "2025-11-03 08:55:12"},
			{entity.FieldName: "Kim", entity.FieldEventTime: "2025-11-03 18:02:40"},
		},
	})
	svc, eventRepo, _, _, _ := newReconcileFixture(upload)

	_, err := svc.Reconcile(context.Background(), ReconcileInput{UploadID: 1, PerformedBy: "ops"})
	require.NoError(t, err)
	first := len(eventRepo.facts)

	_, err = svc.Reconcile(context.Background(), ReconcileInput{UploadID: 1, PerformedBy: "ops"})
	require.NoError(t, err)

	assert.Equal(t, first, len(eventRepo.facts))
}

func TestReconcile_Attendance_RangeExpansion(t *testing.T) {
	upload := attendanceUpload(map[string][]entity.RawRow{
		"1001": {{entity.FieldLeaveType: "Annual Leave", entity.FieldPeriod: "2025-11-24 ~ 2025-11-28"}},
		"1002": {{entity.FieldLeaveType: "Business Trip", entity.FieldPeriod: "2025-11-03"}},
	})
	svc, _, attendanceRepo, _, _ := newReconcileFixture(upload)

	result, err := svc.Reconcile(context.Background(), ReconcileInput{UploadID: 2, PerformedBy: "ops"})
	require.NoError(t, err)

	assert.Equal(t, 6, result.AttendanceCount)
	assert.Empty(t, result.Warnings)

	var kim int
	for _, f := range attendanceRepo.facts {
		if f.EmployeeID == 1 {
			kim++
			assert.Equal(t, int64(1), f.AttendanceTypeID)
		}
	}
	assert.Equal(t, 5, kim)
}

func TestReconcile_Attendance_SkipOnError(t *testing.T) {
	upload := attendanceUpload(map[string][]entity.RawRow{
		"1001": {
			{entity.FieldLeaveType: "Annual Leave", entity.FieldPeriod: "2025-11-10"},
			{entity.FieldLeaveType: "Sabbatical", entity.FieldPeriod: "2025-11-11"}, // unknown type
			{entity.FieldLeaveType: "Annual Leave", entity.FieldPeriod: "garbage"},
		},
		"9999": {{entity.FieldLeaveType: "Annual Leave", entity.FieldPeriod: "2025-11-12"}}, // unknown badge
	})
	svc, _, attendanceRepo, _, _ := newReconcileFixture(upload)

	result, err := svc.Reconcile(context.Background(), ReconcileInput{UploadID: 2, PerformedBy: "ops"})
	require.NoError(t, err)

	assert.Equal(t, 1, result.AttendanceCount)
	assert.Len(t, result.Warnings, 3)
	assert.Len(t, attendanceRepo.facts, 1)
}

func TestReconcile_FailureWritesDiagnostic(t *testing.T) {
	upload := eventUpload(map[string][]entity.RawRow{
		"1001": {{entity.FieldName: "Kim", entity.FieldEventTime: "2025-11-03 08:55:12"}},
	})
	svc, eventRepo, _, ledgerRepo, disp := newReconcileFixture(upload)
	eventRepo.bulkInsertErr = errors.New("disk full")

	_, err := svc.Reconcile(context.Background(), ReconcileInput{UploadID: 1, PerformedBy: "ops"})
	require.Error(t, err)

	entries, _ := ledgerRepo.ListByUploadID(context.Background(), 1)
	require.Len(t, entries, 1)
	assert.Equal(t, entity.LedgerStatusFailed, entries[0].Status)
	assert.Contains(t, entries[0].Payload, "disk full")

	_, err = entries[0].DecodePayload()
	assert.ErrorIs(t, err, entity.ErrInvalidState)

	assert.Contains(t, disp.typesSeen(), event.TypeReconciliationFailed)
}

func TestReconcile_InvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		upload *entity.RawUpload
		input  ReconcileInput
	}{
		{
			name: "unknown classification",
			upload: &entity.RawUpload{
				ID:             1,
				Classification: entity.ClassificationOther,
				RowsByBadgeKey: map[string][]entity.RawRow{"1001": {{}}},
			},
			input: ReconcileInput{UploadID: 1, Year: 2025, Month: 11},
		},
		{
			name: "empty upload",
			upload: &entity.RawUpload{
				ID:             1,
				Classification: entity.ClassificationEventHistory,
				RowsByBadgeKey: map[string][]entity.RawRow{},
			},
			input: ReconcileInput{UploadID: 1, Year: 2025, Month: 11},
		},
		{
			name: "missing target period",
			upload: &entity.RawUpload{
				ID:             1,
				Classification: entity.ClassificationEventHistory,
				RowsByBadgeKey: map[string][]entity.RawRow{"1001": {{}}},
			},
			input: ReconcileInput{UploadID: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, eventRepo, _, ledgerRepo, _ := newReconcileFixture(tt.upload)

			_, err := svc.Reconcile(context.Background(), tt.input)
			assert.ErrorIs(t, err, entity.ErrInvalidInput)

			// Never starts a mutating transaction, never writes a ledger entry.
			assert.Empty(t, eventRepo.facts)
			assert.Empty(t, ledgerRepo.entries)
		})
	}
}

func TestReconcile_UploadNotFound(t *testing.T) {
	svc, _, _, _, _ := newReconcileFixture(nil)

	_, err := svc.Reconcile(context.Background(), ReconcileInput{UploadID: 42, Year: 2025, Month: 11})
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestReconcile_RoundTripRestore(t *testing.T) {
	upload := eventUpload(map[string][]entity.RawRow{
		"1001": {
			{entity.FieldName: "Kim", entity.FieldEventTime: "2025-11-03 08:55:12"},
			{entity.FieldName: "Kim", entity.FieldEventTime: "2025-11-03 18:02:40"},
		},
		"1002": {{entity.FieldName: "Lee", entity.FieldEventTime: "2025-11-04 09:10:00"}},
	})
	svc, eventRepo, attendanceRepo, ledgerRepo, disp := newReconcileFixture(upload)

	result, err := svc.Reconcile(context.Background(), ReconcileInput{UploadID: 1, PerformedBy: "ops"})
	require.NoError(t, err)

	wantKeys := factKeys(eventRepo.facts)

	// Someone wipes and rewrites the month; restore must bring back the
	// exact post-apply state.
	require.NoError(t, eventRepo.DeleteMonth(context.Background(), 2025, 11))
	require.NoError(t, eventRepo.BulkInsert(context.Background(), []entity.AccessEvent{
		{BadgeKey: "2001", EmployeeName: "Park", DateKey: "20251110", TimeKey: "120000"},
	}))

	restore := NewRestoreService(ledgerRepo, eventRepo, attendanceRepo, &mockTxManager{}, disp, &mockLogger{})
	restored, err := restore.Restore(context.Background(), result.LedgerEntryID, "ops")
	require.NoError(t, err)

	assert.Equal(t, 2025, restored.Year)
	assert.Equal(t, 11, restored.Month)
	assert.Equal(t, wantKeys, factKeys(eventRepo.facts))

	entry, _ := ledgerRepo.GetByID(context.Background(), result.LedgerEntryID)
	require.NotNil(t, entry.ReflectedAt)
	assert.WithinDuration(t, time.Now(), *entry.ReflectedAt, time.Minute)
}

// factKeys projects events onto their identity triple, ignoring surrogate IDs
func factKeys(facts []entity.AccessEvent) map[string]bool {
	keys := make(map[string]bool, len(facts))
	for _, f := range facts {
		keys[f.BadgeKey+"/"+f.DateKey+"/"+f.TimeKey] = true
	}
	return keys
}
