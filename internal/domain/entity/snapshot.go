package entity

import "time"

// Snapshot approval status constants
const (
	SnapshotStatusDraft     = "DRAFT"
	SnapshotStatusSubmitted = "SUBMITTED"
	SnapshotStatusApproved  = "APPROVED"
	SnapshotStatusRejected  = "REJECTED"
)

// Snapshot is a human-triggered capture of computed monthly summaries for one
// department and month. Multiple snapshots may exist for the same scope
// (re-submissions, corrections); the tie-break rule decides which one wins at
// read time.
type Snapshot struct {
	ID             int64      `json:"id"`
	Year           int        `json:"year"`
	Month          int        `json:"month"`
	DepartmentID   int64      `json:"department_id"`
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	ApprovalStatus string     `json:"approval_status"`
	SubmittedAt    *time.Time `json:"submitted_at,omitempty"`
	CreatedBy      string     `json:"created_by"`
	CreatedAt      time.Time  `json:"created_at"`
}

// SnapshotChild holds one employee's computed summary inside a parent
// snapshot. Summary is a JSON MonthlySummary blob.
type SnapshotChild struct {
	ID         int64     `json:"id"`
	SnapshotID int64     `json:"snapshot_id"`
	EmployeeID int64     `json:"employee_id"`
	Year       int       `json:"year"`
	Month      int       `json:"month"`
	Summary    string    `json:"summary"`
	CreatedAt  time.Time `json:"created_at"`
}

// MonthlySummary is the computed payload stored on a snapshot child
type MonthlySummary struct {
	EmployeeID      int64          `json:"employee_id"`
	EmployeeName    string         `json:"employee_name"`
	Year            int            `json:"year"`
	Month           int            `json:"month"`
	WorkedDays      int            `json:"worked_days"`
	WorkedMinutes   int            `json:"worked_minutes"`
	LateDays        int            `json:"late_days"`
	AbsentDays      int            `json:"absent_days"`
	UsedAttendances map[string]int `json:"used_attendances"` // type display name -> days
	WeeklyMinutes   []int          `json:"weekly_minutes"`
}
