package listener

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/roach88/uniflux/internal/state"
)

// registration pairs an opaque id with a weakly-held observer.
type registration struct {
	id       string
	listener Listener
}

// Registry maintains listener registrations in registration order.
//
// Thread-safety model: the registration slice is mutated only by the
// store loop (append on Add, batch prune on Notify) - no external
// concurrent mutation, so no lock. Listeners themselves may be closed
// from any goroutine; Zombie is read through whatever synchronization
// the listener provides.
type Registry struct {
	regs   []registration
	logger *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

// Add registers a listener and immediately delivers the current state,
// so new subscribers never observe a gap. Returns the opaque
// registration id (a UUIDv7, time-sortable for debugging).
func (r *Registry) Add(l Listener, current state.StateHolder) string {
	id := uuid.Must(uuid.NewV7()).String()
	r.regs = append(r.regs, registration{id: id, listener: l})

	r.deliver(id, l, current)
	return id
}

// Notify delivers the snapshot to every live listener in registration
// order, then removes all zombie registrations in one batch. The
// collection is never mutated while iterating.
func (r *Registry) Notify(h state.StateHolder) {
	var dead []string
	for _, reg := range r.regs {
		if reg.listener.Zombie() {
			dead = append(dead, reg.id)
			continue
		}
		r.deliver(reg.id, reg.listener, h)
	}

	if len(dead) == 0 {
		return
	}

	live := r.regs[:0]
	for _, reg := range r.regs {
		if contains(dead, reg.id) {
			continue
		}
		live = append(live, reg)
	}
	// Nil out vacated slots so pruned listeners are collectable.
	for i := len(live); i < len(r.regs); i++ {
		r.regs[i] = registration{}
	}
	r.regs = live

	r.logger.Debug("pruned zombie listeners", "count", len(dead), "remaining", len(r.regs))
}

// deliver invokes one listener, converting a panic into a logged,
// skipped failure. A misbehaving listener must not take down the store
// loop.
func (r *Registry) deliver(id string, l Listener, h state.StateHolder) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("listener panicked",
				"registration_id", id,
				"panic", rec,
			)
		}
	}()
	l.UpdateState(h)
}

// Len returns the number of current registrations, including zombies
// not yet pruned.
func (r *Registry) Len() int {
	return len(r.regs)
}

func contains(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
