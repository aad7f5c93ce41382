// Package state defines the uniflux data model: the application state
// tree, the event capability interface, lifecycle events, and the
// serialization machinery for the persistent slice.
//
// # Value Semantics
//
// AppState is an immutable value. Every reducer application produces a
// new AppState; no in-place mutation is ever observed by callers. The
// store publishes exactly one "current" AppState at a time.
//
// # Persistent vs Transient
//
// The Persistent slice survives restarts. It must round-trip through the
// versioned codec (Encode/Decode) and declare a schema version via
// StateVersion(). The Transient slice is in-memory only and is never
// persisted.
//
// # Canonical Equality
//
// Equality of state values - used to skip redundant persistence writes -
// is defined as byte equality of RFC 8785 canonical JSON. See
// MarshalCanonical and Equal.
package state
