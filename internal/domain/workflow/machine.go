package workflow

import (
	"context"
	"fmt"
)

// StateMachine tracks a snapshot's approval state and validates transitions
type StateMachine interface {
	// State returns the current approval state
	State() State

	// CanFire reports whether the trigger is permitted in the current state
	CanFire(trigger Trigger) bool

	// Fire executes the trigger, moving to the target state if the
	// transition is configured and its guard passes
	Fire(ctx context.Context, trigger Trigger) error

	// PermittedTriggers returns the triggers that can fire from the
	// current state
	PermittedTriggers() []Trigger
}

// stateMachine is a transition-table implementation of StateMachine. The
// table is immutable after Build; only currentState moves.
type stateMachine struct {
	currentState State
	table        transitionTable
}

func (m *stateMachine) State() State {
	return m.currentState
}

func (m *stateMachine) CanFire(trigger Trigger) bool {
	return len(m.table[m.currentState][trigger]) > 0
}

func (m *stateMachine) Fire(ctx context.Context, trigger Trigger) error {
	candidates := m.table[m.currentState][trigger]
	if len(candidates) == 0 {
		return fmt.Errorf("%w: cannot fire trigger %s from state %s", ErrInvalidTransition, trigger, m.currentState)
	}

	for _, t := range candidates {
		if t.guard == nil || t.guard(ctx) {
			m.currentState = t.toState
			return nil
		}
	}

	return fmt.Errorf("%w: trigger %s from state %s", ErrGuardFailed, trigger, m.currentState)
}

func (m *stateMachine) PermittedTriggers() []Trigger {
	outgoing := m.table[m.currentState]
	triggers := make([]Trigger, 0, len(outgoing))
	for trigger, candidates := range outgoing {
		if len(candidates) > 0 {
			triggers = append(triggers, trigger)
		}
	}
	return triggers
}
