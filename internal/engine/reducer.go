package engine

import (
	"github.com/roach88/uniflux/internal/state"
)

// reduce computes the next state for one event.
//
// Lifecycle events short-circuit the pipeline: a ResetEvent recomputes
// from the default-state factory, a StateRestoreEvent overwrites only
// the persistent slice with the carried value. Every other event folds
// through the registered reducers in registration order.
func (s *Store) reduce(current state.AppState, ev state.EnqueuedEvent) state.AppState {
	switch e := ev.Event.(type) {
	case state.ResetEvent:
		return s.defaultState()
	case state.StateRestoreEvent:
		next := current
		next.Persistent = e.Persistent
		return next
	}

	next := current
	for _, r := range s.reducers {
		next = r(next, ev)
	}
	return next
}
