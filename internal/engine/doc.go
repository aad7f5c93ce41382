// Package engine implements the single-writer state store.
//
// The store is the heart of uniflux - it admits events, folds them
// through the reducer pipeline, publishes immutable snapshots, and
// coordinates persistence, effects, and listener notification.
//
// ARCHITECTURE:
//
// Single-Writer Event Loop:
// All state mutations happen in one goroutine (Run). This ensures:
// - Strict FIFO processing in admission order
// - No torn reads: every published snapshot is a complete transition
// - Reproducible transitions on recorder replay
//
// Event Processing Flow:
// 1. Dispatch consults the admission filter, stamps (seq, uptime),
//    and enqueues; it never blocks on processing
// 2. Run dequeues one event at a time
// 3. reduce folds it through the registered reducers (lifecycle
//    events bypass the pipeline)
// 4. The new snapshot is published via atomic pointer swap
// 5. Persistence is requested (debounced), effects run, listeners
//    are notified - all strictly before the next dequeue
//
// Logical Clock:
// Events are stamped with a monotonic seq counter plus an uptime
// offset. Ordering never depends on wall-clock timestamps.
//
// Error Policy:
// A failing or panicking stage is logged with event context and the
// loop continues. Retries are deliberately absent: they would make a
// replayed stream diverge from the original run.
package engine
