// Package store provides the durable key-value backing store for
// persisted state snapshots and recorded event sessions.
//
// The production implementation is SQLite with WAL mode; one binary
// blob (a versioned envelope, see the state package) is stored per
// persistence key. A memory implementation with operation counters
// backs tests.
//
// The backing store is a single-writer resource per key: concurrent
// store instances sharing a key are unsupported.
package store
