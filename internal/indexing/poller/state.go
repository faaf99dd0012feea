package poller

import (
	"errors"
	"slices"
	"time"
)

// State is a stage of a poll cycle.
type State string

const (
	StateIdle       State = "idle"
	StateFetching   State = "fetching"
	StateExtracting State = "extracting"
	StateSending    State = "sending"
	StateAdvancing  State = "advancing"
	StateFailed     State = "failed"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// ValidTransitions defines allowed state transitions.
// A dataset that fails mid-way hands over to the next dataset's fetch, or to
// the end-of-cycle decision when it was the last one.
var ValidTransitions = map[State][]State{
	StateIdle:       {StateFetching, StateFailed},
	StateFetching:   {StateExtracting, StateFetching, StateAdvancing, StateFailed},
	StateExtracting: {StateSending, StateFetching, StateAdvancing, StateFailed},
	StateSending:    {StateFetching, StateAdvancing, StateFailed},
	StateAdvancing:  {StateIdle, StateFailed},
	StateFailed:     {StateIdle},
}

// CanTransition checks if a transition from one state to another is valid.
func CanTransition(from, to State) bool {
	return slices.Contains(ValidTransitions[from], to)
}

// Transition represents a state change with metadata.
type Transition struct {
	From      State
	To        State
	Reason    string
	Timestamp time.Time
}

// NewTransition creates a new transition record.
func NewTransition(from, to State, reason string) Transition {
	return Transition{
		From:      from,
		To:        to,
		Reason:    reason,
		Timestamp: time.Now(),
	}
}

// IsValid returns true if this transition is allowed by the state machine.
func (t Transition) IsValid() bool {
	return CanTransition(t.From, t.To)
}
