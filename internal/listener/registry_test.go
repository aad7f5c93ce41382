package listener

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/uniflux/internal/state"
)

type testPersistent struct {
	Counter int `json:"counter"`
}

func (testPersistent) StateVersion() int { return 1 }

func holder(counter int) state.StateHolder {
	return state.NewStateHolder(state.AppState{Persistent: testPersistent{Counter: counter}})
}

func newTestRegistry() *Registry {
	return NewRegistry(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// recordingListener captures delivered snapshots and can be killed.
type recordingListener struct {
	states []state.StateHolder
	dead   bool
}

func (l *recordingListener) Zombie() bool { return l.dead }
func (l *recordingListener) UpdateState(h state.StateHolder) {
	l.states = append(l.states, h)
}

func TestAdd_DeliversCurrentStateImmediately(t *testing.T) {
	r := newTestRegistry()
	l := &recordingListener{}

	id := r.Add(l, holder(7))
	assert.NotEmpty(t, id)
	require.Len(t, l.states, 1)
	assert.Equal(t, testPersistent{Counter: 7}, l.states[0].State().Persistent)
}

func TestAdd_UniqueIDs(t *testing.T) {
	r := newTestRegistry()
	a := r.Add(&recordingListener{}, holder(0))
	b := r.Add(&recordingListener{}, holder(0))
	assert.NotEqual(t, a, b)
}

func TestNotify_RegistrationOrder(t *testing.T) {
	r := newTestRegistry()

	var order []string
	first := NewFunc(func(state.StateHolder) { order = append(order, "first") })
	second := NewFunc(func(state.StateHolder) { order = append(order, "second") })
	r.Add(first, holder(0))
	r.Add(second, holder(0))

	order = nil // discard the immediate deliveries
	r.Notify(holder(1))
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestNotify_PrunesZombies(t *testing.T) {
	r := newTestRegistry()

	before := &recordingListener{}
	dying := &recordingListener{}
	after := &recordingListener{}
	r.Add(before, holder(0))
	r.Add(dying, holder(0))
	r.Add(after, holder(0))
	require.Equal(t, 3, r.Len())

	dying.dead = true
	r.Notify(holder(1))

	// Zombie skipped and removed; live listeners unaffected.
	assert.Equal(t, 2, r.Len())
	assert.Len(t, dying.states, 1, "only the immediate delivery")
	assert.Len(t, before.states, 2)
	assert.Len(t, after.states, 2)

	// Further notifications reach only the live ones.
	r.Notify(holder(2))
	assert.Len(t, dying.states, 1)
	assert.Len(t, before.states, 3)
	assert.Len(t, after.states, 3)
}

func TestNotify_ListenerPanicDoesNotStopOthers(t *testing.T) {
	r := newTestRegistry()

	panicking := NewFunc(func(state.StateHolder) { panic("listener bug") })
	healthy := &recordingListener{}
	r.Add(healthy, holder(0))
	r.Add(panicking, holder(0))

	assert.NotPanics(t, func() { r.Notify(holder(1)) })
	assert.Len(t, healthy.states, 2)
}

func TestFunc_CloseMarksZombie(t *testing.T) {
	f := NewFunc(func(state.StateHolder) {})
	assert.False(t, f.Zombie())
	f.Close()
	assert.True(t, f.Zombie())
}
