package engine

import (
	"github.com/roach88/uniflux/internal/state"
)

// EffectsHandler coordinates side effects for processed events. It runs
// on the store loop after the state transition is published and before
// listeners are notified, and receives the post-transition state.
//
// The handler is awaited: a long-running effect delays the current
// event's completion. Handlers that need concurrency fork their own
// goroutines and dispatch follow-up events with the results.
type EffectsHandler func(ev state.Event, st state.AppState)
