package testutil

import (
	"sync"

	"github.com/roach88/uniflux/internal/state"
)

// CaptureListener records every delivered snapshot. Safe for concurrent
// use; never a zombie.
type CaptureListener struct {
	mu     sync.Mutex
	states []state.AppState
}

// NewCaptureListener creates an empty capture listener.
func NewCaptureListener() *CaptureListener {
	return &CaptureListener{}
}

// Zombie always reports false.
func (l *CaptureListener) Zombie() bool { return false }

// UpdateState appends the delivered snapshot.
func (l *CaptureListener) UpdateState(h state.StateHolder) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.states = append(l.states, h.State())
}

// States returns a copy of the captured snapshots in delivery order.
func (l *CaptureListener) States() []state.AppState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]state.AppState(nil), l.states...)
}

// Len returns the number of captured snapshots.
func (l *CaptureListener) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.states)
}
