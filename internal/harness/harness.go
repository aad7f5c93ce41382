// Package harness runs conformance scenarios against a fresh store and
// compares per-event state transitions against golden traces.
package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/uniflux/internal/demo"
	"github.com/roach88/uniflux/internal/engine"
	"github.com/roach88/uniflux/internal/state"
	"github.com/roach88/uniflux/internal/store"
	"github.com/roach88/uniflux/internal/testutil"
)

// persistKey is the snapshot key scenarios persist under.
const persistKey = "app"

// TraceEvent is one entry of the execution trace: the event kind and
// the persistent state after the transition.
type TraceEvent struct {
	Kind    string
	Counter int
	Name    string
}

// Result holds everything a scenario execution produced.
type Result struct {
	// Final is the persistent state after all events processed.
	Final demo.State

	// Trace records the post-transition state per event, in order.
	Trace []TraceEvent

	// Persisted is the snapshot the close-time flush wrote, or nil if
	// nothing was written.
	Persisted *demo.State
}

// Run executes a scenario against a fresh memory-backed store with a
// deterministic clock and discarded logs.
//
// The save delay is set far beyond the scenario's runtime, so the only
// durable write is the close-time flush; the persisted snapshot is
// therefore deterministic.
func Run(scenario *Scenario) (*Result, error) {
	initial := demo.State{}
	if scenario.Initial != nil {
		initial = demo.State{Counter: scenario.Initial.Counter, Name: scenario.Initial.Name}
	}
	defaults := func() state.AppState {
		st := initial
		return state.AppState{Persistent: &st}
	}

	backend := store.NewMemory()
	clock := testutil.NewStepClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), time.Millisecond)

	s, err := engine.New(defaults,
		engine.WithPersistence(backend, persistKey),
		engine.WithSaveDelay(time.Hour),
		engine.WithClock(engine.NewClockWithNow(clock.Now)),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	if err != nil {
		return nil, fmt.Errorf("build store: %w", err)
	}
	s.AddReducer(demo.Reducer)

	var mu sync.Mutex
	var trace []TraceEvent
	s.SetEffects(func(ev state.Event, st state.AppState) {
		kind, _, err := demo.EncodeEvent(ev)
		if err != nil {
			kind = fmt.Sprintf("%T", ev)
		}
		p := st.Persistent.(*demo.State)
		mu.Lock()
		defer mu.Unlock()
		trace = append(trace, TraceEvent{Kind: kind, Counter: p.Counter, Name: p.Name})
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		_ = s.Run(ctx)
	}()

	for i, step := range scenario.Events {
		ev, err := step.Event()
		if err != nil {
			return nil, fmt.Errorf("events[%d]: %w", i, err)
		}
		if !s.Dispatch(ev) {
			return nil, fmt.Errorf("events[%d]: dispatch rejected", i)
		}
	}

	if err := s.WaitForEventsProcessed(ctx, 5*time.Second); err != nil {
		return nil, fmt.Errorf("run scenario %q: %w", scenario.Name, err)
	}

	final := *(s.State().Persistent.(*demo.State))

	if err := s.Close(ctx); err != nil {
		return nil, fmt.Errorf("close store: %w", err)
	}
	<-runDone

	result := &Result{Final: final}
	mu.Lock()
	result.Trace = append(result.Trace, trace...)
	mu.Unlock()

	if payload, ok, err := backend.Get(ctx, persistKey); err == nil && ok {
		var persisted demo.State
		if err := state.Decode(payload, &persisted); err == nil {
			result.Persisted = &persisted
		}
	}

	return result, nil
}

// Verify checks the scenario's expectation against the result.
func Verify(scenario *Scenario, result *Result) error {
	if scenario.Expect == nil {
		return nil
	}
	want := demo.State{Counter: scenario.Expect.Counter, Name: scenario.Expect.Name}
	if result.Final != want {
		return fmt.Errorf("scenario %q: final state %+v, want %+v",
			scenario.Name, result.Final, want)
	}
	return nil
}

// Event converts a scenario step into a dispatchable event.
func (s EventStep) Event() (state.Event, error) {
	switch s.Kind {
	case StepSetCounter:
		return demo.SetCounterEvent{Value: s.Value}, nil
	case StepIncrement:
		return demo.IncrementEvent{Delta: s.Delta}, nil
	case StepSetName:
		return demo.SetNameEvent{Name: s.Name}, nil
	case StepReset:
		return state.ResetEvent{}, nil
	default:
		return nil, fmt.Errorf("unknown kind %q", s.Kind)
	}
}
