package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_PutGetDelete(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Put(ctx, "k", []byte("v1")))

	got, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v1"), got)

	require.NoError(t, m.Delete(ctx, "k"))
	_, ok, err = m.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemory_CountsWrites(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	assert.Equal(t, 0, m.PutCount())
	require.NoError(t, m.Put(ctx, "k", []byte("a")))
	require.NoError(t, m.Put(ctx, "k", []byte("b")))
	assert.Equal(t, 2, m.PutCount())
}

func TestMemory_FailPuts(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	boom := errors.New("disk full")
	m.FailPuts(boom)

	err := m.Put(ctx, "k", []byte("v"))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, m.PutCount(), "failed puts still count")

	// Value must not have been stored.
	_, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	m.FailPuts(nil)
	assert.NoError(t, m.Put(ctx, "k", []byte("v")))
}

func TestMemory_ReturnsCopies(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	payload := []byte("original")
	require.NoError(t, m.Put(ctx, "k", payload))
	payload[0] = 'X'

	got, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("original"), got)

	got[0] = 'Y'
	again, _, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), again)
}
