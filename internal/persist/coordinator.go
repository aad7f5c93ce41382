// Package persist coordinates debounced saves of the persistent state
// slice.
//
// Rationale: saving on every event would cause write amplification under
// rapid UI-driven updates (slider drags and the like). The coordinator
// collapses bursts with a trailing-edge debounce: only the last value
// within a burst is written, and a burst shorter than the delay produces
// exactly one write, durable within one delay window after the burst
// ends.
package persist

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/uniflux/internal/state"
	"github.com/roach88/uniflux/internal/store"
)

// DefaultSaveDelay is the trailing-edge debounce window.
const DefaultSaveDelay = 500 * time.Millisecond

// Coordinator debounces and serializes save requests for one
// persistence key.
//
// Thread-safety model: SaveIfNeeded and SaveImmediately are called only
// from the single store loop; FlushPendingSaves may be called from any
// goroutine; the debounce timer callback runs on its own goroutine and
// synchronizes through the internal mutex.
type Coordinator struct {
	backend store.Backend
	key     string
	delay   time.Duration
	logger  *slog.Logger

	mu         sync.Mutex
	lastSaved  []byte // canonical bytes of the last value actually written
	pending    []byte // canonical bytes of the value awaiting the timer
	pendingVal state.PersistentState
	timer      *time.Timer
	gen        uint64        // invalidates superseded timer callbacks
	inFlight   chan struct{} // closed when the armed timer's run finishes
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithSaveDelay overrides the debounce window. Primarily for tests.
func WithSaveDelay(d time.Duration) Option {
	return func(c *Coordinator) { c.delay = d }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// New creates a Coordinator writing through backend under key.
func New(backend store.Backend, key string, opts ...Option) *Coordinator {
	c := &Coordinator{
		backend: backend,
		key:     key,
		delay:   DefaultSaveDelay,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SaveIfNeeded schedules a debounced save of st's persistent slice.
//
// No-op unless ev.Persist() is true. No-op if the candidate equals the
// last value actually written or the value currently pending a write.
// Otherwise any in-flight debounce timer is cancelled and restarted with
// the newest candidate.
func (c *Coordinator) SaveIfNeeded(ctx context.Context, st state.AppState, ev state.Event) error {
	if ev == nil || !ev.Persist() {
		return nil
	}
	if st.Persistent == nil {
		return nil
	}

	canonical, err := state.MarshalCanonical(st.Persistent)
	if err != nil {
		return fmt.Errorf("save if needed: canonicalize: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if bytes.Equal(canonical, c.lastSaved) || bytes.Equal(canonical, c.pending) {
		c.logger.Debug("save skipped: unchanged", "key", c.key)
		return nil
	}

	// Supersede any armed timer. Stop may miss a concurrently firing
	// callback; the generation check in flush makes that harmless.
	if c.timer != nil {
		c.timer.Stop()
	}
	c.gen++
	gen := c.gen
	c.pending = canonical
	c.pendingVal = st.Persistent

	done := make(chan struct{})
	c.inFlight = done
	c.timer = time.AfterFunc(c.delay, func() {
		c.flush(gen, done)
	})

	c.logger.Debug("save scheduled", "key", c.key, "delay", c.delay)
	return nil
}

// flush performs the debounced write if it has not been superseded.
func (c *Coordinator) flush(gen uint64, done chan struct{}) {
	defer close(done)

	c.mu.Lock()
	if gen != c.gen || c.pendingVal == nil {
		c.mu.Unlock()
		return
	}
	val := c.pendingVal
	canonical := c.pending
	c.mu.Unlock()

	// Encode and write outside the lock; the write may be slow.
	err := c.write(context.Background(), val)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		// A newer save superseded us while writing; its bookkeeping wins.
		return
	}
	if err != nil {
		// Clear pending WITHOUT updating lastSaved so a later identical
		// save is retried, not skipped.
		c.pending = nil
		c.pendingVal = nil
		c.logger.Error("debounced save failed", "key", c.key, "error", err)
		return
	}
	c.lastSaved = canonical
	c.pending = nil
	c.pendingVal = nil
	c.logger.Debug("debounced save written", "key", c.key)
}

// SaveImmediately writes st's persistent slice synchronously, bypassing
// the debounce. Skipped if the value equals the last saved or pending
// values. Updates last-saved directly on success.
func (c *Coordinator) SaveImmediately(ctx context.Context, st state.AppState) error {
	if st.Persistent == nil {
		return nil
	}

	canonical, err := state.MarshalCanonical(st.Persistent)
	if err != nil {
		return fmt.Errorf("save immediately: canonicalize: %w", err)
	}

	c.mu.Lock()
	if bytes.Equal(canonical, c.lastSaved) || bytes.Equal(canonical, c.pending) {
		c.mu.Unlock()
		return nil
	}
	// Cancel any armed debounce; the immediate write supersedes it.
	if c.timer != nil {
		c.timer.Stop()
	}
	c.gen++
	c.pending = nil
	c.pendingVal = nil
	val := st.Persistent
	c.mu.Unlock()

	if err := c.write(ctx, val); err != nil {
		return fmt.Errorf("save immediately: %w", err)
	}

	c.mu.Lock()
	c.lastSaved = canonical
	c.mu.Unlock()
	return nil
}

// write encodes and stores one persistent value.
func (c *Coordinator) write(ctx context.Context, val state.PersistentState) error {
	payload, err := state.Encode(val)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	if err := c.backend.Put(ctx, c.key, payload); err != nil {
		return fmt.Errorf("put %q: %w", c.key, err)
	}
	return nil
}

// LoadInitialState loads and decodes the persisted value into prototype
// (a pointer pre-populated with defaults). Returns false when the key is
// absent or the payload cannot be decoded - corrupt data degrades to
// "use defaults", never an error.
//
// On success the loaded value becomes the last-saved baseline, so the
// restore pass through the pipeline does not immediately rewrite it.
func (c *Coordinator) LoadInitialState(ctx context.Context, prototype state.PersistentState) bool {
	payload, ok, err := c.backend.Get(ctx, c.key)
	if err != nil {
		c.logger.Error("load initial state failed, using defaults", "key", c.key, "error", err)
		return false
	}
	if !ok {
		return false
	}

	if err := state.Decode(payload, prototype); err != nil {
		c.logger.Warn("persisted state undecodable, using defaults", "key", c.key, "error", err)
		return false
	}

	canonical, err := state.MarshalCanonical(prototype)
	if err == nil {
		c.mu.Lock()
		c.lastSaved = canonical
		c.mu.Unlock()
	}

	return true
}

// FlushPendingSaves completes any in-flight debounce timer, then
// returns. Future saves are unaffected. If the timer has not fired yet
// it is run immediately rather than waited out, keeping tests
// deterministic.
func (c *Coordinator) FlushPendingSaves(ctx context.Context) error {
	c.mu.Lock()
	timer := c.timer
	done := c.inFlight
	gen := c.gen
	hasPending := c.pendingVal != nil
	c.mu.Unlock()

	if done == nil {
		return nil
	}

	if hasPending && timer != nil && timer.Stop() {
		// Timer was still armed: run the save now.
		c.flush(gen, done)
		return nil
	}

	// Timer already fired (or nothing pending): wait for its completion.
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("flush pending saves: %w", ctx.Err())
	}
}
