package event

// Type identifies the type of domain event
type Type string

const (
	TypeUploadIngested          Type = "upload.ingested"
	TypeReconciliationCompleted Type = "reconciliation.completed"
	TypeReconciliationFailed    Type = "reconciliation.failed"
	TypeRestoreCompleted        Type = "restore.completed"
	TypeSnapshotSubmitted       Type = "snapshot.submitted"
	TypeSnapshotApproved        Type = "snapshot.approved"
	TypeSnapshotRejected        Type = "snapshot.rejected"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeUploadIngested,
		TypeReconciliationCompleted,
		TypeReconciliationFailed,
		TypeRestoreCompleted,
		TypeSnapshotSubmitted,
		TypeSnapshotApproved,
		TypeSnapshotRejected:
		return true
	default:
		return false
	}
}
