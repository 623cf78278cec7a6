// Package fsm implements a small finite state machine used to track the
// lifecycle of detectors and alert handlers.
package fsm

import (
	"fmt"
)

// State represents a possible state for the machine
type State string

// Transition represents an allowable transition from one state to another
type Transition struct {
	From State
	To   State
}

// T is a shorthand function for declaring allowable transitions during machine creation
func T(from State, tos ...State) []Transition {
	var transitions []Transition
	for _, to := range tos {
		transitions = append(transitions, Transition{From: from, To: to})
	}
	return transitions
}

// Machine is a basic finite state machine
type Machine struct {
	current   State
	initial   State
	allowable map[State][]State
}

// MachineOption configures a machine during construction
type MachineOption func(m *Machine) error

// WithTransitions adds allowable transitions using the T(from, to...) shorthand.
// For example: NewMachine(Initial, WithTransitions(T(One, Two, Three), T(Two, Three)))
func WithTransitions(transitions ...[]Transition) MachineOption {
	return func(m *Machine) error {
		for _, group := range transitions {
			for _, t := range group {
				m.allowable[t.From] = append(m.allowable[t.From], t.To)
			}
		}
		return nil
	}
}

// NewMachine returns a new machine starting in the initial state.  A machine
// constructed without options has no allowable transitions.
func NewMachine(initial State, opts ...MachineOption) (*Machine, error) {
	machine := &Machine{
		current:   initial,
		initial:   initial,
		allowable: map[State][]State{},
	}
	for _, opt := range opts {
		if err := opt(machine); err != nil {
			return nil, err
		}
	}
	return machine, nil
}

// State returns the current state of the machine
func (m *Machine) State() State {
	return m.current
}

// Allowable checks whether a transition between two states is allowable
func (m *Machine) Allowable(from, to State) bool {
	for _, a := range m.allowable[from] {
		if a == to {
			return true
		}
	}
	return false
}

// Transition will change the current state of the machine if it is allowable
func (m *Machine) Transition(to State) error {
	if !m.Allowable(m.current, to) {
		return TransitionNotAllowed{Msg: fmt.Sprintf("cannot transition from state %s to %s", m.current, to)}
	}
	m.current = to
	return nil
}

// Reset returns the machine to its initial state
func (m *Machine) Reset() {
	m.current = m.initial
}
