package entity

import "time"

// Classification identifies what kind of export an upload contains
type Classification string

const (
	ClassificationEventHistory      Classification = "EVENT_HISTORY"
	ClassificationAttendanceRequest Classification = "ATTENDANCE_REQUEST"
	ClassificationOther             Classification = "OTHER"
)

// String returns the string representation of the classification
func (c Classification) String() string {
	return string(c)
}

// IsKnown reports whether the classification is one the reconciliation
// engine can process
func (c Classification) IsKnown() bool {
	return c == ClassificationEventHistory || c == ClassificationAttendanceRequest
}

// Canonical field keys of a parsed row. The ingest layer maps vendor header
// variants onto these; the reconciliation engine only ever sees these keys.
const (
	FieldBadgeKey  = "badge_no"
	FieldName      = "name"
	FieldEventTime = "event_time"
	FieldLeaveType = "leave_type"
	FieldPeriod    = "period"
)

// RawRow is one parsed spreadsheet row keyed by canonical field name
type RawRow map[string]string

// RawUpload holds a parsed tabular payload grouped by employee badge key.
// Immutable once created; reconciliation references it but never mutates it.
type RawUpload struct {
	ID             int64               `json:"id"`
	FileName       string              `json:"file_name"`
	Classification Classification      `json:"classification"`
	RowsByBadgeKey map[string][]RawRow `json:"rows_by_badge_key"`
	TargetYear     *int                `json:"target_year,omitempty"`
	TargetMonth    *int                `json:"target_month,omitempty"`
	UploadedBy     string              `json:"uploaded_by"`
	CreatedAt      time.Time           `json:"created_at"`
}

// RowCount returns the total number of rows across all badge keys
func (u *RawUpload) RowCount() int {
	n := 0
	for _, rows := range u.RowsByBadgeKey {
		n += len(rows)
	}
	return n
}
