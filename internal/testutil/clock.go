// Package testutil provides deterministic helpers shared by tests and
// the conformance harness.
package testutil

import (
	"sync"
	"time"
)

// StepClock is a thread-safe time source that advances by a fixed step
// on every read. Feed its Now method to engine.NewClockWithNow or
// engine.WithRecorderNow for fully deterministic stamps.
type StepClock struct {
	mu      sync.Mutex
	current time.Time
	step    time.Duration
}

// NewStepClock creates a clock starting at start, advancing by step per
// read.
func NewStepClock(start time.Time, step time.Duration) *StepClock {
	return &StepClock{current: start, step: step}
}

// Now returns the current instant and advances the clock by one step.
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.current
	c.current = c.current.Add(c.step)
	return now
}

// Peek returns the instant the next Now call will report, without
// advancing.
func (c *StepClock) Peek() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Advance moves the clock forward by d without producing a reading.
func (c *StepClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}
