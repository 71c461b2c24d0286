package service

import (
	"sort"
	"time"

	"github.com/worktally/attendance-backend/internal/domain/entity"
)

// lateThreshold is the clock-in cutoff (HHMMSS). The first badge event of a
// day at or after this time counts the day as late.
const lateThreshold = "090300"

// computeMonthlySummary derives one employee's monthly totals from their
// canonical facts. Events are grouped per day; a day's worked minutes span
// first badge-in to last badge-out. Weekday dates with neither an event nor
// a used attendance count as absent.
func computeMonthlySummary(emp *entity.Employee, year, month int, events []entity.AccessEvent, attendances []entity.UsedAttendance, typeNames map[int64]string) entity.MonthlySummary {
	summary := entity.MonthlySummary{
		EmployeeID:      emp.ID,
		EmployeeName:    emp.Name,
		Year:            year,
		Month:           month,
		UsedAttendances: make(map[string]int),
	}

	byDay := make(map[string][]entity.AccessEvent)
	for _, ev := range events {
		byDay[ev.DateKey] = append(byDay[ev.DateKey], ev)
	}

	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.Local)
	daysInMonth := first.AddDate(0, 1, -1).Day()
	// Week buckets split at Mondays; the first partial week is bucket 0.
	mondayOffset := (int(first.Weekday()) + 6) % 7
	summary.WeeklyMinutes = make([]int, (mondayOffset+daysInMonth+6)/7)

	attendedDates := make(map[string]bool)
	for _, ua := range attendances {
		attendedDates[ua.UsedDate] = true
		name := typeNames[ua.AttendanceTypeID]
		if name == "" {
			name = "UNKNOWN"
		}
		summary.UsedAttendances[name]++
	}

	for day := 1; day <= daysInMonth; day++ {
		date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.Local)
		dateKey := date.Format("20060102")
		dayEvents := byDay[dateKey]

		if len(dayEvents) == 0 {
			wd := date.Weekday()
			if wd != time.Saturday && wd != time.Sunday && !attendedDates[date.Format("2006-01-02")] {
				summary.AbsentDays++
			}
			continue
		}

		sort.Slice(dayEvents, func(i, j int) bool {
			return dayEvents[i].TimeKey < dayEvents[j].TimeKey
		})
		summary.WorkedDays++
		if dayEvents[0].TimeKey >= lateThreshold {
			summary.LateDays++
		}

		minutes := 0
		if len(dayEvents) > 1 {
			minutes = int(dayEvents[len(dayEvents)-1].OccurredAt.Sub(dayEvents[0].OccurredAt).Minutes())
		}
		summary.WorkedMinutes += minutes
		summary.WeeklyMinutes[(mondayOffset+day-1)/7] += minutes
	}

	return summary
}
