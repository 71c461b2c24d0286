package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worktally/attendance-backend/internal/domain/entity"
)

func TestMonthlyReport(t *testing.T) {
	svc, snapshotRepo, _, _, _ := newSnapshotFixture()
	reports := NewReportService(svc, &mockLogger{})
	ctx := context.Background()

	submittedAt := time.Date(2025, 12, 1, 10, 0, 0, 0, time.UTC)
	parent := &entity.Snapshot{
		Year: 2025, Month: 11, DepartmentID: 1,
		ApprovalStatus: entity.SnapshotStatusSubmitted,
		SubmittedAt:    &submittedAt,
	}
	require.NoError(t, snapshotRepo.Create(ctx, parent))

	summaries := []entity.MonthlySummary{
		{EmployeeID: 1, EmployeeName: "Kim", Year: 2025, Month: 11, WorkedDays: 20, WorkedMinutes: 9600, LateDays: 2, UsedAttendances: map[string]int{"Annual Leave": 1}},
		{EmployeeID: 2, EmployeeName: "Lee", Year: 2025, Month: 11, WorkedDays: 18, WorkedMinutes: 8400, AbsentDays: 2, UsedAttendances: map[string]int{"Annual Leave": 2}},
	}
	for _, s := range summaries {
		raw, err := json.Marshal(s)
		require.NoError(t, err)
		require.NoError(t, snapshotRepo.CreateChild(ctx, &entity.SnapshotChild{
			SnapshotID: parent.ID, EmployeeID: s.EmployeeID, Year: 2025, Month: 11, Summary: string(raw),
		}))
	}

	report, err := reports.Monthly(ctx, 2025, 11)
	require.NoError(t, err)

	assert.Equal(t, 2, report.EmployeeCount)
	assert.Equal(t, 38, report.TotalWorkedDays)
	assert.Equal(t, 2, report.TotalLateDays)
	assert.Equal(t, 2, report.TotalAbsentDays)
	assert.Equal(t, 9000, report.AvgWorkedMinutes)
	assert.Equal(t, 3, report.AttendanceTallies["Annual Leave"])
	require.Len(t, report.Summaries, 2)
	assert.Equal(t, int64(1), report.Summaries[0].EmployeeID)
}

func TestMonthlyReport_InvalidMonth(t *testing.T) {
	svc, _, _, _, _ := newSnapshotFixture()
	reports := NewReportService(svc, &mockLogger{})

	_, err := reports.Monthly(context.Background(), 2025, 0)
	assert.ErrorIs(t, err, entity.ErrInvalidInput)
}
