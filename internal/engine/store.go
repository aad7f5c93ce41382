package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roach88/uniflux/internal/listener"
	"github.com/roach88/uniflux/internal/persist"
	"github.com/roach88/uniflux/internal/state"
	"github.com/roach88/uniflux/internal/store"
)

// closeDrainTimeout bounds how long Close waits for outstanding events.
const closeDrainTimeout = 5 * time.Second

// Store is the single-writer state container.
//
// All state mutations happen in the Run loop goroutine. External
// callers submit events with Dispatch, which stamps and enqueues but
// never processes; reading State is lock-free from any goroutine.
//
// Thread-safety model:
//   - Dispatch / DispatchBypassingFilter / State: safe from any goroutine
//   - Run: must be called from exactly one goroutine
//   - AddReducer / SetEffects / AddListener: setup-time, or from code
//     already running on the store loop (effects, listeners)
type Store struct {
	defaultState func() state.AppState
	queue        *eventQueue
	clock        *Clock
	registry     *listener.Registry
	recorder     *Recorder
	coordinator  *persist.Coordinator
	logger       *slog.Logger

	reducers []state.Reducer
	effects  EffectsHandler
	filter   func(state.Event) bool

	backend    store.Backend
	persistKey string
	saveDelay  time.Duration

	current    atomic.Pointer[state.AppState]
	dispatched atomic.Int64
	processed  atomic.Int64

	closeOnce sync.Once
}

// StoreOption configures a Store at construction.
type StoreOption func(*Store)

// WithPersistence enables durable persistence of the persistent slice
// under key. The default-state factory must put a pointer in
// AppState.Persistent so a persisted payload can be decoded into a
// fresh default value at construction.
func WithPersistence(backend store.Backend, key string) StoreOption {
	return func(s *Store) {
		s.backend = backend
		s.persistKey = key
	}
}

// WithSaveDelay overrides the debounce window for persistence.
func WithSaveDelay(d time.Duration) StoreOption {
	return func(s *Store) { s.saveDelay = d }
}

// WithDispatchFilter installs an admission predicate. Events it rejects
// are dropped before stamping. Takes precedence over a recorder's
// built-in filter.
func WithDispatchFilter(f func(state.Event) bool) StoreOption {
	return func(s *Store) { s.filter = f }
}

// WithRecorder attaches a recorder. Unless an explicit dispatch filter
// is also set, the recorder's DispatchFilter is installed so every
// admitted event is captured.
func WithRecorder(r *Recorder) StoreOption {
	return func(s *Store) { s.recorder = r }
}

// WithClock overrides the stamping clock. Primarily for tests.
func WithClock(c *Clock) StoreOption {
	return func(s *Store) { s.clock = c }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// New creates a Store seeded from the default-state factory.
//
// When persistence is configured and a persisted value exists, the
// loaded value replaces the default persistent slice immediately, and
// one StateRestoreEvent is enqueued so the restore also flows through
// the normal pipeline (reducer bypass, effects, listener notification)
// once Run starts. Corrupt or absent persisted data degrades to the
// defaults, never an error.
func New(defaultState func() state.AppState, opts ...StoreOption) (*Store, error) {
	if defaultState == nil {
		return nil, fmt.Errorf("new store: default state factory is required")
	}

	s := &Store{
		defaultState: defaultState,
		queue:        newEventQueue(),
		saveDelay:    persist.DefaultSaveDelay,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock == nil {
		s.clock = NewClock()
	}
	if s.recorder != nil && s.filter == nil {
		s.filter = s.recorder.DispatchFilter
	}
	s.registry = listener.NewRegistry(s.logger)

	def := s.defaultState()
	if s.backend != nil && s.persistKey != "" {
		s.coordinator = persist.New(s.backend, s.persistKey,
			persist.WithSaveDelay(s.saveDelay),
			persist.WithLogger(s.logger),
		)
		if proto := def.Persistent; proto != nil && s.coordinator.LoadInitialState(context.Background(), proto) {
			def.Persistent = proto
			s.publish(def)
			s.admit(state.StateRestoreEvent{Persistent: proto})
			s.logger.Info("persisted state restored", "key", s.persistKey)
			return s, nil
		}
	}

	s.publish(def)
	return s, nil
}

// AddReducer appends a reducer to the pipeline. Reducers run in
// registration order.
func (s *Store) AddReducer(r state.Reducer) {
	s.reducers = append(s.reducers, r)
}

// SetEffects installs the side-effect handler. At most one handler is
// active; a later call replaces the earlier one.
func (s *Store) SetEffects(h EffectsHandler) {
	s.effects = h
}

// AddListener registers a listener and immediately delivers the current
// state. Returns the registration id.
func (s *Store) AddListener(l listener.Listener) string {
	return s.registry.Add(l, state.NewStateHolder(s.State()))
}

// Listeners returns the number of current registrations.
func (s *Store) Listeners() int {
	return s.registry.Len()
}

// Dispatch submits an event for processing. The dispatch filter, if
// any, may reject it; rejected events are dropped. Admitted events are
// stamped and enqueued. Never blocks on processing.
//
// Returns true if the event was admitted.
func (s *Store) Dispatch(ev state.Event) bool {
	if ev == nil {
		return false
	}
	if s.filter != nil && !s.filter(ev) {
		s.logger.Debug("event rejected by dispatch filter", "kind", eventKind(ev))
		return false
	}
	return s.admit(ev)
}

// DispatchBypassingFilter submits an event without consulting the
// dispatch filter. Used for lifecycle events and replayed streams.
func (s *Store) DispatchBypassingFilter(ev state.Event) bool {
	if ev == nil {
		return false
	}
	return s.admit(ev)
}

// admit stamps and enqueues an event, counting it as dispatched.
func (s *Store) admit(ev state.Event) bool {
	stamped := s.clock.Stamp(ev)
	if !s.queue.Enqueue(stamped) {
		s.logger.Debug("event dropped: store closed", "kind", eventKind(ev))
		return false
	}
	s.dispatched.Add(1)
	return true
}

// Run starts the single-writer event loop. Blocks until the context is
// cancelled or the store is closed and the queue drained.
//
// Must be called from exactly ONE goroutine. Every stage of every event
// completes strictly before the next event is popped.
//
// ERROR HANDLING: a failing or panicking stage is logged with full
// event context and processing continues with the next stage or event.
// Retries would make replay non-deterministic, so there are none.
func (s *Store) Run(ctx context.Context) error {
	s.logger.Info("store starting")

	for {
		ev, ok := s.queue.TryDequeue()
		if ok {
			s.processEvent(ctx, ev)
			continue
		}

		select {
		case <-ctx.Done():
			s.logger.Info("store stopping: context cancelled")
			s.queue.Close()
			return ctx.Err()

		case <-s.queue.Wait():
			// The signal channel closes when the queue closes, so this
			// case fires repeatedly while draining after Close.
			if s.queue.Closed() && s.queue.Len() == 0 {
				s.logger.Info("store stopping: queue closed and drained")
				return nil
			}
		}
	}
}

// processEvent runs one event through reduce, publish, persist,
// effects, and notify. Called only from the Run goroutine.
func (s *Store) processEvent(ctx context.Context, ev state.EnqueuedEvent) {
	defer s.processed.Add(1)

	s.logger.Debug("processing event", "kind", eventKind(ev.Event), "seq", ev.Seq)

	next, err := s.runReduce(ev)
	if err != nil {
		// State unchanged; skip the remaining stages for this event.
		s.logStageError(err)
		return
	}
	s.publish(next)

	if s.coordinator != nil {
		if err := s.runStage(StagePersist, ev, func() error {
			if perr := s.coordinator.SaveIfNeeded(ctx, next, ev.Event); perr != nil {
				return NewPersistError(ev, perr)
			}
			return nil
		}); err != nil {
			s.logStageError(err)
		}
	}

	if s.effects != nil {
		if err := s.runStage(StageEffects, ev, func() error {
			s.effects(ev.Event, next)
			return nil
		}); err != nil {
			s.logStageError(err)
		}
	}

	if err := s.runStage(StageNotify, ev, func() error {
		s.registry.Notify(state.NewStateHolder(next))
		return nil
	}); err != nil {
		s.logStageError(err)
	}
}

// runReduce folds the event through the pipeline, converting a reducer
// panic into a StageError.
func (s *Store) runReduce(ev state.EnqueuedEvent) (next state.AppState, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = NewPanicError(StageReduce, ev, rec)
		}
	}()
	return s.reduce(s.State(), ev), nil
}

// runStage executes one post-reduce stage with panic recovery.
func (s *Store) runStage(stage Stage, ev state.EnqueuedEvent, fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = NewPanicError(stage, ev, rec)
		}
	}()
	return fn()
}

// logStageError logs a stage failure with full event context.
func (s *Store) logStageError(err error) {
	var se *StageError
	if errors.As(err, &se) {
		s.logger.Error("event stage failed",
			"code", string(se.Code),
			"stage", string(se.Stage),
			"event", se.EventKind,
			"seq", se.Seq,
			"error", err,
		)
		return
	}
	s.logger.Error("event stage failed", "error", err)
}

// publish swaps in the new state snapshot.
func (s *Store) publish(st state.AppState) {
	s.current.Store(&st)
}

// State returns the current state snapshot. Lock-free, safe from any
// goroutine.
func (s *Store) State() state.AppState {
	return *s.current.Load()
}

// Clock returns the store's stamping clock.
func (s *Store) Clock() *Clock {
	return s.clock
}

// Recorder returns the attached recorder, or nil.
func (s *Store) Recorder() *Recorder {
	return s.recorder
}

// QueueLen returns the number of events awaiting processing.
func (s *Store) QueueLen() int {
	return s.queue.Len()
}

// Dispatched returns the number of events admitted so far.
func (s *Store) Dispatched() int64 {
	return s.dispatched.Load()
}

// Processed returns the number of events fully processed so far.
func (s *Store) Processed() int64 {
	return s.processed.Load()
}

// Replay re-dispatches the recorder's captured stream through the
// store, bypassing the dispatch filter so the replayed events are
// admitted while external dispatches are rejected.
func (s *Store) Replay(ctx context.Context) error {
	if s.recorder == nil {
		return fmt.Errorf("replay: no recorder configured")
	}
	return s.recorder.Replay(ctx, func(ev state.Event) {
		s.DispatchBypassingFilter(ev)
	})
}

// WaitForEventsProcessed blocks until every dispatched event has been
// processed, the context is cancelled, or the timeout elapses. Test
// and shutdown aid.
func (s *Store) WaitForEventsProcessed(ctx context.Context, timeout time.Duration) error {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	tick := time.NewTicker(time.Millisecond)
	defer tick.Stop()

	for {
		if s.dispatched.Load() == s.processed.Load() {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for events: %w", ctx.Err())
		case <-deadline.C:
			return fmt.Errorf("wait for events: %d dispatched, %d processed after %s",
				s.dispatched.Load(), s.processed.Load(), timeout)
		case <-tick.C:
		}
	}
}

// Close shuts the store down: no further events are admitted, the Run
// loop drains what is queued and returns, and pending debounced saves
// are flushed. Idempotent.
func (s *Store) Close(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		s.queue.Close()
		if s.dispatched.Load() != s.processed.Load() {
			if werr := s.WaitForEventsProcessed(ctx, closeDrainTimeout); werr != nil {
				err = fmt.Errorf("close: %w", werr)
			}
		}
		if s.coordinator != nil {
			if ferr := s.coordinator.FlushPendingSaves(ctx); ferr != nil {
				err = errors.Join(err, fmt.Errorf("close: %w", ferr))
			}
		}
		s.logger.Info("store closed", "processed", s.processed.Load())
	})
	return err
}
