package statemachine

import "sync"

// Guard decides at fire time whether a transition may proceed.
type Guard[S comparable] func(from S) bool

// Transition declares a state change triggered by Event from any of the From states.
type Transition[S, E comparable] struct {
	From  []S
	Event E
	To    S
	Guard Guard[S] // optional
}

// Listener observes a completed state change.
type Listener[S, E comparable] func(from, to S, event E)

// Machine is a table-driven finite state machine. The zero value is not usable; call New.
type Machine[S, E comparable] struct {
	mu          sync.RWMutex
	current     S
	transitions map[S]map[E][]Transition[S, E]
	listeners   []Listener[S, E]
}

// New creates a machine in the initial state with the given transition table.
// Transitions sharing the same from/event pair are evaluated in declaration order;
// the first one whose guard passes wins.
func New[S, E comparable](initial S, transitions ...Transition[S, E]) *Machine[S, E] {
	m := &Machine[S, E]{
		current:     initial,
		transitions: make(map[S]map[E][]Transition[S, E]),
	}
	for _, t := range transitions {
		for _, from := range t.From {
			if _, ok := m.transitions[from]; !ok {
				m.transitions[from] = make(map[E][]Transition[S, E])
			}
			m.transitions[from][t.Event] = append(m.transitions[from][t.Event], t)
		}
	}
	return m
}

// OnTransition registers a listener for successful transitions.
func (m *Machine[S, E]) OnTransition(fn Listener[S, E]) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

// Current returns the current state.
func (m *Machine[S, E]) Current() S {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Is reports whether the machine is in state s.
func (m *Machine[S, E]) Is(s S) bool {
	return m.Current() == s
}

// Fire applies event and returns the new state.
func (m *Machine[S, E]) Fire(event E) (S, error) {
	m.mu.Lock()
	t, err := m.match(event)
	if err != nil {
		cur := m.current
		m.mu.Unlock()
		return cur, err
	}
	from := m.current
	m.current = t.To
	listeners := append([]Listener[S, E](nil), m.listeners...)
	m.mu.Unlock()

	for _, l := range listeners {
		l(from, t.To, event)
	}
	return t.To, nil
}

// match must be called with m.mu held.
func (m *Machine[S, E]) match(event E) (Transition[S, E], error) {
	candidates := m.transitions[m.current][event]
	if len(candidates) == 0 {
		return Transition[S, E]{}, transitionError(m.current, event, ErrNoTransition)
	}
	for _, t := range candidates {
		if t.Guard == nil || t.Guard(m.current) {
			return t, nil
		}
	}
	return Transition[S, E]{}, transitionError(m.current, event, ErrRejected)
}
