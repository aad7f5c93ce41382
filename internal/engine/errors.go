package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/uniflux/internal/state"
)

// Stage identifies the processing stage an event was in when a failure
// occurred.
type Stage string

const (
	// StageReduce is the reducer pipeline fold.
	StageReduce Stage = "reduce"

	// StagePersist is the debounced persistence request.
	StagePersist Stage = "persist"

	// StageEffects is the side-effect handler.
	StageEffects Stage = "effects"

	// StageNotify is listener notification.
	StageNotify Stage = "notify"
)

// StageErrorCode categorizes stage failures.
type StageErrorCode string

const (
	// ErrCodeStagePanic indicates a stage panicked and was recovered.
	ErrCodeStagePanic StageErrorCode = "STAGE_PANIC"

	// ErrCodePersistFailed indicates the persistence coordinator
	// rejected a save request.
	ErrCodePersistFailed StageErrorCode = "PERSIST_FAILED"
)

// StageError describes a failure while processing one event. The store
// logs these and continues; they are never returned to dispatchers.
type StageError struct {
	// Code identifies the error category.
	Code StageErrorCode

	// Stage is where in the event's lifecycle the failure happened.
	Stage Stage

	// Message is a human-readable description.
	Message string

	// EventKind is the dynamic type of the failing event.
	EventKind string

	// Seq is the failing event's admission stamp.
	Seq int64

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s stage: %s (event=%s, seq=%d): %v", e.Code, e.Stage, e.Message, e.EventKind, e.Seq, e.Err)
	}
	return fmt.Sprintf("%s: %s stage: %s (event=%s, seq=%d)", e.Code, e.Stage, e.Message, e.EventKind, e.Seq)
}

// Unwrap returns the underlying cause.
func (e *StageError) Unwrap() error {
	return e.Err
}

// IsStagePanic reports whether err is a recovered stage panic.
// Uses errors.As to handle wrapped errors.
func IsStagePanic(err error) bool {
	var se *StageError
	if errors.As(err, &se) {
		return se.Code == ErrCodeStagePanic
	}
	return false
}

// NewPanicError wraps a recovered panic value as a StageError.
func NewPanicError(stage Stage, ev state.EnqueuedEvent, recovered any) *StageError {
	return &StageError{
		Code:      ErrCodeStagePanic,
		Stage:     stage,
		Message:   fmt.Sprintf("recovered panic: %v", recovered),
		EventKind: eventKind(ev.Event),
		Seq:       ev.Seq,
	}
}

// NewPersistError wraps a persistence failure as a StageError.
func NewPersistError(ev state.EnqueuedEvent, err error) *StageError {
	return &StageError{
		Code:      ErrCodePersistFailed,
		Stage:     StagePersist,
		Message:   "save request failed",
		EventKind: eventKind(ev.Event),
		Seq:       ev.Seq,
		Err:       err,
	}
}

// eventKind returns the dynamic type name of an event for diagnostics.
func eventKind(ev state.Event) string {
	if ev == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%T", ev)
}
