// Package listener maintains the dynamic set of state observers.
//
// Registrations are weakly held: the registry never owns a listener's
// lifetime. A listener reports its own death through
// Zombie(), and the registry prunes dead registrations on the next
// notification pass. Go has no weak references usable for this, so the
// explicit-dispose strategy applies: observers flip their zombie flag
// (usually via Close) when their backing receiver goes away.
package listener

import (
	"sync/atomic"

	"github.com/roach88/uniflux/internal/state"
)

// Listener observes published state snapshots.
//
// Contract: UpdateState must be a non-blocking, low-latency observer.
// Notification is serialized on the store loop, so a slow listener
// delays completion of the current event.
type Listener interface {
	// Zombie reports that the backing receiver no longer exists; the
	// registration will be pruned and receives no further notifications.
	Zombie() bool

	// UpdateState delivers a consistent snapshot of the new state.
	UpdateState(state.StateHolder)
}

// Func is a closure-backed Listener with an explicit Close for
// deregistration.
type Func struct {
	fn     func(state.StateHolder)
	zombie atomic.Bool
}

var _ Listener = (*Func)(nil)

// NewFunc wraps fn as a listener.
func NewFunc(fn func(state.StateHolder)) *Func {
	return &Func{fn: fn}
}

// Zombie reports whether Close has been called.
func (f *Func) Zombie() bool { return f.zombie.Load() }

// UpdateState invokes the wrapped function.
func (f *Func) UpdateState(h state.StateHolder) {
	f.fn(h)
}

// Close marks the listener dead. The registry prunes it on the next
// notification pass; no further updates are delivered after that pass.
func (f *Func) Close() {
	f.zombie.Store(true)
}
