package workflow

import (
	"context"
	"fmt"
)

// GuardFunc decides at fire time whether a configured transition may run
type GuardFunc func(ctx context.Context) bool

// transition is one permitted edge out of a state
type transition struct {
	toState State
	guard   GuardFunc
}

// transitionTable maps state -> trigger -> permitted transitions
type transitionTable map[State]map[Trigger][]transition

// StateMachineBuilder assembles the approval transition table
type StateMachineBuilder interface {
	Configure(state State) StateConfiguration
	Build(initialState State) StateMachine
}

// StateConfiguration adds outgoing transitions for one state
type StateConfiguration interface {
	// Permit allows the trigger to move to the target state unconditionally
	Permit(trigger Trigger, toState State) StateConfiguration

	// PermitIf allows the trigger only while the guard passes
	PermitIf(trigger Trigger, toState State, guard GuardFunc) StateConfiguration
}

type builder struct {
	table transitionTable
}

type stateConfig struct {
	table     transitionTable
	fromState State
}

// NewBuilder creates an empty state machine builder
func NewBuilder() StateMachineBuilder {
	return &builder{table: make(transitionTable)}
}

func (b *builder) Configure(state State) StateConfiguration {
	if !state.IsValid() {
		panic(fmt.Sprintf("invalid state: %s", state))
	}
	if b.table[state] == nil {
		b.table[state] = make(map[Trigger][]transition)
	}
	return &stateConfig{table: b.table, fromState: state}
}

// Build copies the accumulated table so later Configure calls cannot mutate
// an already-built machine
func (b *builder) Build(initialState State) StateMachine {
	if !initialState.IsValid() {
		panic(fmt.Sprintf("invalid initial state: %s", initialState))
	}

	frozen := make(transitionTable, len(b.table))
	for state, outgoing := range b.table {
		edges := make(map[Trigger][]transition, len(outgoing))
		for trigger, candidates := range outgoing {
			edges[trigger] = append([]transition(nil), candidates...)
		}
		frozen[state] = edges
	}

	return &stateMachine{currentState: initialState, table: frozen}
}

func (c *stateConfig) Permit(trigger Trigger, toState State) StateConfiguration {
	return c.PermitIf(trigger, toState, nil)
}

func (c *stateConfig) PermitIf(trigger Trigger, toState State, guard GuardFunc) StateConfiguration {
	if !toState.IsValid() {
		panic(fmt.Sprintf("invalid target state: %s", toState))
	}
	c.table[c.fromState][trigger] = append(c.table[c.fromState][trigger], transition{toState: toState, guard: guard})
	return c
}
