package workflow

// Trigger represents an action that can cause an approval state transition
type Trigger string

const (
	TriggerSubmit   Trigger = "SUBMIT"
	TriggerApprove  Trigger = "APPROVE"
	TriggerReject   Trigger = "REJECT"
	TriggerResubmit Trigger = "RESUBMIT"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
