package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/uniflux/internal/state"
)

// stepNow returns a time source advancing by step on every read.
func stepNow(start time.Time, step time.Duration) func() time.Time {
	current := start
	return func() time.Time {
		now := current
		current = current.Add(step)
		return now
	}
}

func instantSleep(captured *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*captured = append(*captured, d)
		return nil
	}
}

func TestRecorder_RecordAndDrain(t *testing.T) {
	r := NewRecorder()

	r.Record(queueEvent{n: 1})
	r.Record(queueEvent{n: 2})
	assert.Equal(t, 2, r.Len())

	entries := r.GetAndClear()
	require.Len(t, entries, 2)
	assert.Equal(t, queueEvent{n: 1}, entries[0].Event)
	assert.Equal(t, queueEvent{n: 2}, entries[1].Event)

	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.GetAndClear())
}

func TestRecorder_DispatchFilterRecordsAndAdmits(t *testing.T) {
	r := NewRecorder()

	assert.True(t, r.DispatchFilter(queueEvent{n: 1}))
	assert.True(t, r.DispatchFilter(queueEvent{n: 2}))
	assert.Equal(t, 2, r.Len())
}

func TestRecorder_DispatchFilterRejectsDuringReplay(t *testing.T) {
	var sleeps []time.Duration
	r := NewRecorder(WithRecorderSleep(instantSleep(&sleeps)))
	r.Record(queueEvent{n: 1})

	var rejected bool
	err := r.Replay(context.Background(), func(state.Event) {
		rejected = !r.DispatchFilter(queueEvent{n: 99})
	})
	require.NoError(t, err)
	assert.True(t, rejected, "external dispatch must be rejected mid-replay")
	assert.False(t, r.Replaying(), "flag cleared after replay")
	assert.Equal(t, 0, r.Len(), "rejected events are not recorded")
}

func TestRecorder_ReplayOrderAndGaps(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r := NewRecorder(WithRecorderNow(stepNow(start, 100*time.Millisecond)))

	r.Record(queueEvent{n: 1}) // at t=0
	r.Record(queueEvent{n: 2}) // at t=100ms
	r.Record(queueEvent{n: 3}) // at t=200ms

	var sleeps []time.Duration
	r.sleep = instantSleep(&sleeps)

	var replayed []int
	err := r.Replay(context.Background(), func(ev state.Event) {
		replayed = append(replayed, ev.(queueEvent).n)
	})
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3}, replayed)
	// No sleep before the first event, original gaps before the rest.
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 100 * time.Millisecond}, sleeps)
}

func TestRecorder_ReplayStopsAtSentinel(t *testing.T) {
	var sleeps []time.Duration
	r := NewRecorder(WithRecorderSleep(instantSleep(&sleeps)))

	r.Record(queueEvent{n: 1})
	r.Record(state.ReplayEvent{})
	r.Record(queueEvent{n: 2})

	var replayed []state.Event
	err := r.Replay(context.Background(), func(ev state.Event) {
		replayed = append(replayed, ev)
	})
	require.NoError(t, err)

	require.Len(t, replayed, 1)
	assert.Equal(t, queueEvent{n: 1}, replayed[0])
	assert.False(t, r.Replaying())
}

func TestRecorder_ReplayCancelled(t *testing.T) {
	r := NewRecorder() // real sleep, cancelled before it matters
	r.Record(queueEvent{n: 1})
	r.Record(queueEvent{n: 2})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var replayed int
	err := r.Replay(ctx, func(state.Event) { replayed++ })
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, replayed, "first event has no preceding gap")
	assert.False(t, r.Replaying(), "flag cleared on the error path")
}

func TestRecorder_ConcurrentReplayRejected(t *testing.T) {
	r := NewRecorder()
	r.Record(queueEvent{n: 1})

	var nested error
	err := r.Replay(context.Background(), func(state.Event) {
		nested = r.Replay(context.Background(), func(state.Event) {})
	})
	require.NoError(t, err)
	assert.ErrorContains(t, nested, "already in progress")
}

func TestRecorder_ReplayEmpty(t *testing.T) {
	r := NewRecorder()
	err := r.Replay(context.Background(), func(state.Event) {
		t.Fatal("nothing to replay")
	})
	assert.NoError(t, err)
}
