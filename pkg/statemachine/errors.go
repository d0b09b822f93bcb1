package statemachine

import (
	"errors"
	"fmt"
)

var (
	// ErrNoTransition means nothing is declared for the state and event.
	ErrNoTransition = errors.New("no transition declared")
	// ErrRejected means every declared transition was vetoed by its guard.
	ErrRejected = errors.New("transition rejected by guard")
)

// TransitionError is returned by Fire when the state did not change.
// It wraps ErrNoTransition or ErrRejected.
type TransitionError struct {
	State string
	Event string
	Err   error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: event %q in state %q", e.Err, e.Event, e.State)
}

func (e *TransitionError) Unwrap() error { return e.Err }

func transitionError[S, E comparable](state S, event E, err error) *TransitionError {
	return &TransitionError{State: fmt.Sprint(state), Event: fmt.Sprint(event), Err: err}
}
