package entity

import "time"

// AccessEvent is one canonical badge event fact. DateKey/TimeKey are the
// normalized YYYYMMDD / HHMMSS forms the aggregation readers key on.
type AccessEvent struct {
	ID           int64     `json:"id"`
	EmployeeName string    `json:"employee_name"`
	BadgeKey     string    `json:"badge_key"`
	OccurredAt   time.Time `json:"occurred_at"`
	DateKey      string    `json:"date_key"`
	TimeKey      string    `json:"time_key"`
	CreatedAt    time.Time `json:"created_at"`
}

// UsedAttendance is one canonical leave/trip fact covering a single calendar
// date. Multi-day requests expand into one record per in-month date.
type UsedAttendance struct {
	ID               int64     `json:"id"`
	UsedDate         string    `json:"used_date"` // YYYY-MM-DD
	EmployeeID       int64     `json:"employee_id"`
	AttendanceTypeID int64     `json:"attendance_type_id"`
	CreatedAt        time.Time `json:"created_at"`
}

// ReconcileScope is the (year, month, employee subset) a reconciliation or
// scoped delete is limited to
type ReconcileScope struct {
	Year        int      `json:"year"`
	Month       int      `json:"month"`
	EmployeeIDs []int64  `json:"employee_ids"`
	BadgeKeys   []string `json:"badge_keys"`
}
