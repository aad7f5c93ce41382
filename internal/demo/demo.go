// Package demo provides the small reference domain used by the CLI and
// the conformance harness: a persistent counter-and-name state with its
// reducer and a wire codec for recorded events.
package demo

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/uniflux/internal/state"
)

// State is the demo persistent slice.
type State struct {
	Counter int    `json:"counter"`
	Name    string `json:"name"`
}

// StateVersion implements state.PersistentState.
func (*State) StateVersion() int { return 1 }

// DefaultState is the default-state factory for demo stores.
func DefaultState() state.AppState {
	return state.AppState{Persistent: &State{}}
}

// SetCounterEvent sets the counter to an absolute value.
type SetCounterEvent struct {
	Value int `json:"value"`
}

func (SetCounterEvent) Persist() bool   { return true }
func (SetCounterEvent) IsUIEvent() bool { return true }

// IncrementEvent adds a delta to the counter.
type IncrementEvent struct {
	Delta int `json:"delta"`
}

func (IncrementEvent) Persist() bool   { return true }
func (IncrementEvent) IsUIEvent() bool { return true }

// SetNameEvent sets the name.
type SetNameEvent struct {
	Name string `json:"name"`
}

func (SetNameEvent) Persist() bool   { return true }
func (SetNameEvent) IsUIEvent() bool { return true }

// Reducer is the demo state transition.
func Reducer(st state.AppState, ev state.EnqueuedEvent) state.AppState {
	p := *(st.Persistent.(*State))
	switch e := ev.Event.(type) {
	case SetCounterEvent:
		p.Counter = e.Value
	case IncrementEvent:
		p.Counter += e.Delta
	case SetNameEvent:
		p.Name = e.Name
	default:
		return st
	}
	st.Persistent = &p
	return st
}

// Event kind tags for the recordings journal.
const (
	KindSetCounter = "set-counter"
	KindIncrement  = "increment"
	KindSetName    = "set-name"
	KindReset      = "reset"
	KindReplayEnd  = "replay-end"
)

// EncodeEvent serializes a demo event for the recordings journal.
// Returns the kind tag and the JSON payload.
func EncodeEvent(ev state.Event) (string, []byte, error) {
	switch e := ev.(type) {
	case SetCounterEvent:
		payload, err := json.Marshal(e)
		return KindSetCounter, payload, err
	case IncrementEvent:
		payload, err := json.Marshal(e)
		return KindIncrement, payload, err
	case SetNameEvent:
		payload, err := json.Marshal(e)
		return KindSetName, payload, err
	case state.ResetEvent:
		return KindReset, []byte("{}"), nil
	case state.ReplayEvent:
		return KindReplayEnd, []byte("{}"), nil
	default:
		return "", nil, fmt.Errorf("encode event: unsupported type %T", ev)
	}
}

// DecodeEvent deserializes a recorded event by its kind tag.
func DecodeEvent(kind string, payload []byte) (state.Event, error) {
	switch kind {
	case KindSetCounter:
		var e SetCounterEvent
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("decode %s: %w", kind, err)
		}
		return e, nil
	case KindIncrement:
		var e IncrementEvent
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("decode %s: %w", kind, err)
		}
		return e, nil
	case KindSetName:
		var e SetNameEvent
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("decode %s: %w", kind, err)
		}
		return e, nil
	case KindReset:
		return state.ResetEvent{}, nil
	case KindReplayEnd:
		return state.ReplayEvent{}, nil
	default:
		return nil, fmt.Errorf("decode event: unknown kind %q", kind)
	}
}
