package entity

import "time"

// Employee represents a member of staff known to the attendance system.
// BadgeKey is the identifier printed on physical badge exports; it is the
// join key between access-event rows and employee records.
type Employee struct {
	ID           int64      `json:"id"`
	BadgeKey     string     `json:"badge_key"`
	Name         string     `json:"name"`
	DepartmentID int64      `json:"department_id"`
	JoinedAt     *time.Time `json:"joined_at,omitempty"`
	IsActive     bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Department is a thin organizational unit reference. Org-chart management
// lives outside this service; departments exist here only to scope snapshots.
type Department struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// AttendanceType is a catalog entry for leave/business-trip categories.
// DisplayName is what human-exported request sheets carry; the reconciliation
// engine resolves it back to the catalog ID.
type AttendanceType struct {
	ID          int64     `json:"id"`
	DisplayName string    `json:"display_name"`
	Deducted    bool      `json:"deducted"`
	CreatedAt   time.Time `json:"created_at"`
}
