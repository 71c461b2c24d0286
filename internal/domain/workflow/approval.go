package workflow

// NewApprovalMachine builds the snapshot approval lifecycle:
//
//	DRAFT --SUBMIT--> SUBMITTED --APPROVE--> APPROVED
//	                  SUBMITTED --REJECT--> REJECTED --RESUBMIT--> SUBMITTED
//
// APPROVED is terminal. Guards (e.g. snapshot has children) are enforced at
// the service layer before firing.
func NewApprovalMachine(initial State) StateMachine {
	builder := NewBuilder()

	builder.Configure(StateDraft).
		Permit(TriggerSubmit, StateSubmitted)

	builder.Configure(StateSubmitted).
		Permit(TriggerApprove, StateApproved).
		Permit(TriggerReject, StateRejected)

	builder.Configure(StateRejected).
		Permit(TriggerResubmit, StateSubmitted)

	return builder.Build(initial)
}
