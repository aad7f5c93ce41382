package state

import "time"

// Event is the capability interface all dispatched events implement.
//
// Concrete variants are defined by the application. The store inspects
// only the two capabilities:
//   - Persist: a true result marks the event as a trigger for saving the
//     persistent slice (debounced, see the persist package).
//   - IsUIEvent: distinguishes user-originated events from internal ones;
//     carried for filters and recorders, the store core does not branch
//     on it.
type Event interface {
	Persist() bool
	IsUIEvent() bool
}

// PersistentState is the persisted slice of the application state.
//
// Implementations must be JSON round-trippable and must declare a schema
// version. Decoders tolerate missing fields (defaults apply) and ignore
// unknown fields - that tolerance, together with the version tag, is the
// schema evolution contract.
type PersistentState interface {
	StateVersion() int
}

// AppState is the full application state tree: one persistent slice and
// one transient slice. Treat it as an immutable value.
type AppState struct {
	Persistent PersistentState
	Transient  any
}

// EnqueuedEvent wraps an event with its admission stamp. Created once at
// dispatch time and never mutated.
//
// At is uptime (monotonic, measured from the store clock's base), not
// wall clock, so ordering holds even if the wall clock jumps. Seq is
// strictly increasing per store.
type EnqueuedEvent struct {
	Event Event
	Seq   int64
	At    time.Duration
}

// Reducer is a pure state transition: next = reduce(current, event).
//
// Reducers must be referentially pure - no side effects, no I/O, fast
// termination. The store relies on purity for replay determinism and for
// the correctness of equality-based write skipping.
type Reducer func(AppState, EnqueuedEvent) AppState

// StateHolder is an immutable snapshot wrapper handed to listeners.
// Listeners receive a consistent view that cannot mutate under them.
type StateHolder struct {
	st AppState
}

// NewStateHolder wraps a state value in a snapshot holder.
func NewStateHolder(st AppState) StateHolder {
	return StateHolder{st: st}
}

// State returns the wrapped snapshot.
func (h StateHolder) State() AppState {
	return h.st
}

// ResetEvent is the built-in lifecycle event that recomputes state from
// the default-state factory, bypassing all registered reducers. The
// result is durably saved (Persist is true).
type ResetEvent struct{}

// Persist reports that a reset is saved.
func (ResetEvent) Persist() bool { return true }

// IsUIEvent reports that resets originate from the UI.
func (ResetEvent) IsUIEvent() bool { return true }

// StateRestoreEvent is the built-in lifecycle event carrying a loaded
// persistent value. The store overwrites only the persistent slice with
// the carried value, bypassing registered reducers. Never persisted
// (the value just came from storage).
type StateRestoreEvent struct {
	Persistent PersistentState
}

// Persist reports that restores are not re-saved.
func (StateRestoreEvent) Persist() bool { return false }

// IsUIEvent reports that restores are internal.
func (StateRestoreEvent) IsUIEvent() bool { return false }

// ReplayEvent is the sentinel that terminates recorder replay early when
// encountered in a recorded stream. Dispatching it outside a recording
// is harmless: it carries no state transition.
type ReplayEvent struct{}

// Persist reports that the sentinel is never saved.
func (ReplayEvent) Persist() bool { return false }

// IsUIEvent reports that the sentinel is internal.
func (ReplayEvent) IsUIEvent() bool { return false }
