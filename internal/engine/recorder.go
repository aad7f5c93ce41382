package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roach88/uniflux/internal/state"
)

// RecordedEvent is one captured dispatch: the event and the wall time
// it was admitted.
type RecordedEvent struct {
	Event state.Event
	At    time.Time
}

// Recorder captures dispatched events for later timed replay.
//
// Wire it to a store through its DispatchFilter: the filter records
// every admitted event and rejects all external dispatches while a
// replay is in progress, so the replayed stream is the only input.
//
// Thread-safety: all methods are safe from any goroutine.
type Recorder struct {
	mu      sync.Mutex
	entries []RecordedEvent

	replaying atomic.Bool

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithRecorderNow overrides the wall-time source. Primarily for tests.
func WithRecorderNow(now func() time.Time) RecorderOption {
	return func(r *Recorder) { r.now = now }
}

// WithRecorderSleep overrides the inter-event sleep used during replay.
// Tests substitute an instant sleep to keep replays deterministic.
func WithRecorderSleep(sleep func(context.Context, time.Duration) error) RecorderOption {
	return func(r *Recorder) { r.sleep = sleep }
}

// NewRecorder creates an empty recorder.
func NewRecorder(opts ...RecorderOption) *Recorder {
	r := &Recorder{
		now:   time.Now,
		sleep: sleepFor,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record appends an event with the current wall time.
func (r *Recorder) Record(ev state.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, RecordedEvent{Event: ev, At: r.now()})
}

// GetAndClear atomically drains the recorded sequence. The recorder is
// empty afterwards.
func (r *Recorder) GetAndClear() []RecordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries := r.entries
	r.entries = nil
	return entries
}

// Len returns the number of recorded events.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Replaying reports whether a replay is in progress.
func (r *Recorder) Replaying() bool {
	return r.replaying.Load()
}

// DispatchFilter is the admission predicate to install on the store.
// While a replay is in progress every event is rejected, keeping the
// replayed stream the sole input. Otherwise the event is recorded and
// admitted.
func (r *Recorder) DispatchFilter(ev state.Event) bool {
	if r.replaying.Load() {
		return false
	}
	r.Record(ev)
	return true
}

// Replay drains the recorded sequence and re-dispatches it in order,
// sleeping the original inter-arrival gap before each event after the
// first. A ReplayEvent in the stream terminates the replay early.
//
// The replaying flag is set for the duration and cleared on every exit
// path, including context cancellation.
func (r *Recorder) Replay(ctx context.Context, dispatch func(state.Event)) error {
	if !r.replaying.CompareAndSwap(false, true) {
		return fmt.Errorf("replay already in progress")
	}
	defer r.replaying.Store(false)

	entries := r.GetAndClear()
	for i, entry := range entries {
		if _, ok := entry.Event.(state.ReplayEvent); ok {
			return nil
		}
		if i > 0 {
			if err := r.sleep(ctx, entry.At.Sub(entries[i-1].At)); err != nil {
				return fmt.Errorf("replay interrupted at event %d: %w", i, err)
			}
		}
		dispatch(entry.Event)
	}
	return nil
}

// sleepFor blocks for d or until ctx is cancelled.
func sleepFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
