package demo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/uniflux/internal/state"
)

func apply(st state.AppState, ev state.Event) state.AppState {
	return Reducer(st, state.EnqueuedEvent{Event: ev})
}

func TestReducer_Transitions(t *testing.T) {
	st := DefaultState()

	st = apply(st, SetCounterEvent{Value: 5})
	assert.Equal(t, &State{Counter: 5}, st.Persistent)

	st = apply(st, IncrementEvent{Delta: 3})
	assert.Equal(t, &State{Counter: 8}, st.Persistent)

	st = apply(st, SetNameEvent{Name: "ada"})
	assert.Equal(t, &State{Counter: 8, Name: "ada"}, st.Persistent)
}

func TestReducer_DoesNotMutateInput(t *testing.T) {
	st := DefaultState()
	before := st.Persistent.(*State)

	next := apply(st, SetCounterEvent{Value: 9})

	assert.Equal(t, &State{}, before, "input state untouched")
	assert.Equal(t, &State{Counter: 9}, next.Persistent)
}

func TestReducer_IgnoresUnknownEvents(t *testing.T) {
	st := apply(DefaultState(), state.ReplayEvent{})
	assert.Equal(t, &State{}, st.Persistent)
}

func TestEventCodec_RoundTrip(t *testing.T) {
	events := []state.Event{
		SetCounterEvent{Value: 7},
		IncrementEvent{Delta: -2},
		SetNameEvent{Name: "grace"},
		state.ResetEvent{},
		state.ReplayEvent{},
	}

	for _, ev := range events {
		kind, payload, err := EncodeEvent(ev)
		require.NoError(t, err)
		require.NotEmpty(t, kind)

		decoded, err := DecodeEvent(kind, payload)
		require.NoError(t, err)
		assert.Equal(t, ev, decoded)
	}
}

func TestEncodeEvent_UnsupportedType(t *testing.T) {
	_, _, err := EncodeEvent(state.StateRestoreEvent{})
	assert.ErrorContains(t, err, "unsupported type")
}

func TestDecodeEvent_UnknownKind(t *testing.T) {
	_, err := DecodeEvent("bogus", []byte("{}"))
	assert.ErrorContains(t, err, "unknown kind")
}

func TestDecodeEvent_CorruptPayload(t *testing.T) {
	_, err := DecodeEvent(KindSetCounter, []byte("not json"))
	assert.Error(t, err)
}
