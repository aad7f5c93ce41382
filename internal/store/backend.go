package store

import "context"

// Backend is the key-value surface the persistence coordinator writes
// through. Implementations must treat the payload as an opaque blob.
type Backend interface {
	// Put stores payload under key, replacing any previous value.
	Put(ctx context.Context, key string, payload []byte) error

	// Get returns the payload for key. The bool reports presence; a
	// missing key is not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Delete removes key. Deleting a missing key is a no-op.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}
