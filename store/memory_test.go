package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryContract(t *testing.T) {
	runContract(t, func(t *testing.T) Store { return NewMemory() })
}

func TestMemoryFailWith(t *testing.T) {
	m := NewMemory()
	boom := errors.New("connection refused")
	m.FailWith(boom)

	sess := m.Session(context.Background())
	defer sess.Close()
	_, err := sess.List()
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, m.Ping(context.Background()), boom)

	m.FailWith(nil)
	rows, err := sess.List()
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestMemoryCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sess := NewMemory().Session(ctx)
	_, err := sess.Clear()
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryResetSequence(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	sess := m.Session(ctx)
	defer sess.Close()

	e := earning("1", "a", 2024, 1, 1)
	require.NoError(t, sess.Create(&e))
	assert.Error(t, m.ResetSequence(ctx), "rows still present")

	_, err := sess.Clear()
	require.NoError(t, err)
	require.NoError(t, m.ResetSequence(ctx))
	e = earning("2", "b", 2024, 1, 2)
	require.NoError(t, sess.Create(&e))
	assert.EqualValues(t, 1, e.ID)
}
