package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/worktally/attendance-backend/internal/domain/entity"
	"github.com/worktally/attendance-backend/pkg/utils"
)

// MonthlyReport aggregates the authoritative snapshot children of one month
type MonthlyReport struct {
	Year              int                     `json:"year"`
	Month             int                     `json:"month"`
	EmployeeCount     int                     `json:"employee_count"`
	TotalWorkedDays   int                     `json:"total_worked_days"`
	TotalLateDays     int                     `json:"total_late_days"`
	TotalAbsentDays   int                     `json:"total_absent_days"`
	AvgWorkedMinutes  int                     `json:"avg_worked_minutes"`
	Summaries         []entity.MonthlySummary `json:"summaries"`
	AttendanceTallies map[string]int          `json:"attendance_tallies"`
}

// ReportService computes derived statistics over authoritative snapshots
type ReportService interface {
	Monthly(ctx context.Context, year, month int) (*MonthlyReport, error)
}

type reportServiceImpl struct {
	snapshots SnapshotService
	logger    Logger
}

// NewReportService creates a new ReportService
func NewReportService(snapshots SnapshotService, logger Logger) ReportService {
	return &reportServiceImpl{snapshots: snapshots, logger: logger}
}

// Monthly builds the month's report from tie-break-selected snapshot children
func (s *reportServiceImpl) Monthly(ctx context.Context, year, month int) (*MonthlyReport, error) {
	if err := utils.ValidateYearMonth(year, month); err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrInvalidInput, err)
	}

	winners, err := s.snapshots.SelectAuthoritative(ctx, year, month)
	if err != nil {
		return nil, err
	}

	report := &MonthlyReport{
		Year:              year,
		Month:             month,
		AttendanceTallies: make(map[string]int),
	}

	totalMinutes := 0
	for employeeID, winner := range winners {
		var summary entity.MonthlySummary
		if err := json.Unmarshal([]byte(winner.Child.Summary), &summary); err != nil {
			s.logger.Warn("Skipping unreadable snapshot child",
				"snapshot_id", winner.Child.SnapshotID, "employee_id", employeeID, "error", err)
			continue
		}
		report.Summaries = append(report.Summaries, summary)
		report.TotalWorkedDays += summary.WorkedDays
		report.TotalLateDays += summary.LateDays
		report.TotalAbsentDays += summary.AbsentDays
		totalMinutes += summary.WorkedMinutes
		for name, days := range summary.UsedAttendances {
			report.AttendanceTallies[name] += days
		}
	}

	report.EmployeeCount = len(report.Summaries)
	if report.EmployeeCount > 0 {
		report.AvgWorkedMinutes = totalMinutes / report.EmployeeCount
	}
	sort.Slice(report.Summaries, func(i, j int) bool {
		return report.Summaries[i].EmployeeID < report.Summaries[j].EmployeeID
	})
	return report, nil
}
