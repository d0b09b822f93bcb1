// Package statemachine provides a small, concurrency-safe finite state machine
// keyed by comparable state and event types.
//
// Transitions are declared up front as a table. Each transition lists the
// states it may fire from, the event that triggers it, the target state and an
// optional guard. Listeners registered with OnTransition observe every
// successful state change after the machine lock has been released, so a
// listener may safely read Current.
//
// # Usage
//
//	type state string
//	type event string
//
//	m := statemachine.New[state, event]("draft",
//		statemachine.Transition[state, event]{From: []state{"draft"}, Event: "submit", To: "in_review"},
//		statemachine.Transition[state, event]{From: []state{"in_review"}, Event: "approve", To: "approved"},
//	)
//
//	if _, err := m.Fire("submit"); err != nil {
//		// handle error
//	}
//
// # Errors
//
// Fire returns a *TransitionError wrapping ErrNoTransition when nothing is
// declared for the current state and event, or ErrRejected when every
// candidate transition was vetoed by its guard. Match them with errors.Is.
package statemachine
