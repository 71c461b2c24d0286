package entity

import (
	"encoding/json"
	"time"
)

// Ledger entry status constants
const (
	LedgerStatusPending    = "PENDING"
	LedgerStatusProcessing = "PROCESSING"
	LedgerStatusCompleted  = "COMPLETED"
	LedgerStatusFailed     = "FAILED"
)

// CapturedPayloadVersion is the current ledger payload schema version.
// Bump when the captured record shape changes; Restore checks it before replay.
const CapturedPayloadVersion = 1

// CapturedPayload is the versioned full-month capture stored on a ledger
// entry. It always covers every employee in the month, not just the subset
// the triggering reconciliation touched, so a restore is scope-correct no
// matter which operation it undoes.
type CapturedPayload struct {
	SchemaVersion int              `json:"schema_version"`
	DataType      Classification   `json:"data_type"`
	Year          int              `json:"year"`
	Month         int              `json:"month"`
	Events        []AccessEvent    `json:"events,omitempty"`
	Attendances   []UsedAttendance `json:"attendances,omitempty"`
}

// FailureDiagnostic is stored on a FAILED ledger entry instead of a capture
type FailureDiagnostic struct {
	Error string         `json:"error"`
	Scope ReconcileScope `json:"scope"`
}

// LedgerEntry is an append-only record of one reconciliation attempt.
// Immutable after reaching a terminal status.
type LedgerEntry struct {
	ID             int64          `json:"id"`
	UploadID       int64          `json:"upload_id"`
	Classification Classification `json:"classification"`
	Status         string         `json:"status"`
	Payload        string         `json:"payload"` // JSON CapturedPayload or FailureDiagnostic
	PerformedBy    string         `json:"performed_by"`
	CapturedAt     time.Time      `json:"captured_at"`
	ReflectedAt    *time.Time     `json:"reflected_at,omitempty"`
}

// DecodePayload parses the captured payload of a completed entry.
// Returns ErrInvalidState when the payload is missing, malformed, or written
// by an unknown schema version.
func (e *LedgerEntry) DecodePayload() (*CapturedPayload, error) {
	if e.Status != LedgerStatusCompleted || e.Payload == "" {
		return nil, ErrInvalidState
	}
	var p CapturedPayload
	if err := json.Unmarshal([]byte(e.Payload), &p); err != nil {
		return nil, ErrInvalidState
	}
	if p.SchemaVersion != CapturedPayloadVersion {
		return nil, ErrInvalidState
	}
	return &p, nil
}
