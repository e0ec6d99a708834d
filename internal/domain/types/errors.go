package types

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a store has no record for the given key.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTransition is returned when an event is not permitted in the
	// current state.
	ErrInvalidTransition = errors.New("invalid state transition")
)

// TransitionError records a rejected state transition.
type TransitionError struct {
	From  string
	Event string
	// Reason is set when the state alone would allow the event.
	Reason string
}

func (e *TransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%v: %s in state %s: %s", ErrInvalidTransition, e.Event, e.From, e.Reason)
	}
	return fmt.Sprintf("%v: %s in state %s", ErrInvalidTransition, e.Event, e.From)
}

// Unwrap lets errors.Is match ErrInvalidTransition.
func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }
