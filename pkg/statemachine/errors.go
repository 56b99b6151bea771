package statemachine

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition = errors.New("invalid transition: from, to, or event cannot be empty")
	ErrInvalidEvent      = errors.New("invalid event: event cannot be empty")
)

// NoTransitionError indicates no transition exists for the given state/event combination.
type NoTransitionError struct {
	State string
	Event string
}

func (e *NoTransitionError) Error() string {
	return fmt.Sprintf("no transition from state '%s' for event '%s'", e.State, e.Event)
}

// TransitionRejectedError indicates all candidate transitions were blocked by guards.
type TransitionRejectedError struct {
	State string
	Event string
}

func (e *TransitionRejectedError) Error() string {
	return fmt.Sprintf("transition from state '%s' for event '%s' was rejected by guards", e.State, e.Event)
}

func IsNoTransitionError(err error) bool {
	var e *NoTransitionError
	return errors.As(err, &e)
}

func IsTransitionRejectedError(err error) bool {
	var e *TransitionRejectedError
	return errors.As(err, &e)
}
