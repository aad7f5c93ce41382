package store

import (
	"context"
	"fmt"
	"sync"
)

// Memory is an in-memory Backend with operation counters, used by tests
// to verify write-skipping (exact write counts) and to simulate backend
// failures.
type Memory struct {
	mu      sync.Mutex
	data    map[string][]byte
	puts    int
	gets    int
	deletes int
	failPut error
}

var _ Backend = (*Memory)(nil)

// NewMemory creates an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

// Put stores a copy of payload under key. Counts as one write even when
// the configured failure fires.
func (m *Memory) Put(_ context.Context, key string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.puts++
	if m.failPut != nil {
		return fmt.Errorf("memory put %q: %w", key, m.failPut)
	}

	cp := make([]byte, len(payload))
	copy(cp, payload)
	m.data[key] = cp
	return nil
}

// Get returns a copy of the stored payload for key.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.gets++
	payload, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	cp := make([]byte, len(payload))
	copy(cp, payload)
	return cp, true, nil
}

// Delete removes key.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.deletes++
	delete(m.data, key)
	return nil
}

// Close is a no-op for the memory backend.
func (m *Memory) Close() error { return nil }

// FailPuts makes every subsequent Put return err (nil restores normal
// operation).
func (m *Memory) FailPuts(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failPut = err
}

// PutCount returns the number of Put calls, including failed ones.
func (m *Memory) PutCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.puts
}

// GetCount returns the number of Get calls.
func (m *Memory) GetCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gets
}

// Seed stores payload under key without counting a write. Test setup
// helper.
func (m *Memory) Seed(key string, payload []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(payload))
	copy(cp, payload)
	m.data[key] = cp
}
