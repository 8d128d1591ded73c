package rng

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qaebench/domain/core"
)

func TestStreamDeterministic(t *testing.T) {
	ctx := context.Background()
	a := NewAdapter()

	r1, err := a.Stream(ctx, "BAE", "trial", 3, 42)
	require.NoError(t, err)
	r2, err := a.Stream(ctx, "BAE", "trial", 3, 42)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		assert.Equal(t, r1.Float64(), r2.Float64())
	}
}

func TestStreamsIndependentPerTrial(t *testing.T) {
	ctx := context.Background()
	a := NewAdapter()

	r0, err := a.Stream(ctx, "BAE", "trial", 0, 42)
	require.NoError(t, err)
	r1, err := a.Stream(ctx, "BAE", "trial", 1, 42)
	require.NoError(t, err)
	assert.NotEqual(t, r0.Uint64(), r1.Uint64())

	_, err = a.Stream(ctx, "BAE", "trial", -1, 42)
	assert.Error(t, err)
}

func TestValidateSeed(t *testing.T) {
	ctx := context.Background()
	a := NewAdapter()

	draws, err := a.Draws(ctx, "determinism", 7, 5)
	require.NoError(t, err)
	assert.NoError(t, a.ValidateSeed(ctx, "determinism", 7, draws))

	err = a.ValidateSeed(ctx, "determinism", 8, draws)
	assert.ErrorIs(t, err, core.ErrSeedMismatch)
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewAdapter().SeededStream(ctx, "x", 1)
	assert.ErrorIs(t, err, context.Canceled)
}
