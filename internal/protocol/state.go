package protocol

import (
	"errors"
	"fmt"
)

// State is the position of a reasoning loop in the protocol.
type State string

const (
	StateReasoning          State = "reasoning"
	StateAwaitingToolResult State = "awaiting_tool_result"
	StateDone               State = "done"
	StateFailed             State = "failed"
)

// ErrInvalidTransition is returned for transitions the protocol forbids.
var ErrInvalidTransition = errors.New("invalid protocol transition")

var transitions = map[State][]State{
	StateReasoning:          {StateAwaitingToolResult, StateDone, StateFailed},
	StateAwaitingToolResult: {StateReasoning, StateFailed},
}

// Machine tracks the protocol state of one loop run. It is not safe for
// concurrent use.
type Machine struct {
	state State
}

// NewMachine starts in StateReasoning.
func NewMachine() *Machine {
	return &Machine{state: StateReasoning}
}

func (m *Machine) State() State { return m.state }

// Terminal reports whether the machine reached Done or Failed.
func (m *Machine) Terminal() bool {
	return m.state == StateDone || m.state == StateFailed
}

// Transition moves to next, or returns ErrInvalidTransition.
func (m *Machine) Transition(next State) error {
	for _, allowed := range transitions[m.state] {
		if allowed == next {
			m.state = next
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.state, next)
}

// Fail moves to StateFailed from any non-terminal state.
func (m *Machine) Fail() {
	if !m.Terminal() {
		m.state = StateFailed
	}
}
