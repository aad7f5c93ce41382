package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/uniflux/internal/state"
)

func TestStageError_Error(t *testing.T) {
	se := &StageError{
		Code:      ErrCodeStagePanic,
		Stage:     StageReduce,
		Message:   "recovered panic: boom",
		EventKind: "engine.queueEvent",
		Seq:       7,
	}
	msg := se.Error()
	assert.Contains(t, msg, "STAGE_PANIC")
	assert.Contains(t, msg, "reduce")
	assert.Contains(t, msg, "seq=7")
}

func TestStageError_Unwrap(t *testing.T) {
	cause := errors.New("disk full")
	ev := state.EnqueuedEvent{Event: queueEvent{}, Seq: 3}
	se := NewPersistError(ev, cause)

	assert.ErrorIs(t, se, cause)
	assert.Contains(t, se.Error(), "disk full")
	assert.Equal(t, ErrCodePersistFailed, se.Code)
}

func TestIsStagePanic(t *testing.T) {
	ev := state.EnqueuedEvent{Event: queueEvent{}, Seq: 1}
	panicErr := NewPanicError(StageEffects, ev, "boom")

	assert.True(t, IsStagePanic(panicErr))
	assert.True(t, IsStagePanic(fmt.Errorf("wrapped: %w", panicErr)))
	assert.False(t, IsStagePanic(errors.New("plain")))
	assert.False(t, IsStagePanic(NewPersistError(ev, errors.New("x"))))
}

func TestNewPanicError_EventContext(t *testing.T) {
	ev := state.EnqueuedEvent{Event: queueEvent{n: 1}, Seq: 42}
	se := NewPanicError(StageNotify, ev, "listener bug")

	assert.Equal(t, StageNotify, se.Stage)
	assert.Equal(t, int64(42), se.Seq)
	assert.Contains(t, se.EventKind, "queueEvent")
	assert.Contains(t, se.Message, "listener bug")
}

func TestEventKind_Nil(t *testing.T) {
	assert.Equal(t, "<nil>", eventKind(nil))
}
