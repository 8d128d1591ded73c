package rng

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"

	"qaebench/domain/core"
	"qaebench/ports"
)

// validateTolerance bounds float drift when replaying recorded draws.
const validateTolerance = 1e-12

// Adapter derives independent PCG streams from sha256 of the stream's name
// parts and base seed, so no generator state is ever shared between trials.
type Adapter struct{}

// NewAdapter creates an RNG adapter.
func NewAdapter() *Adapter {
	return &Adapter{}
}

var _ ports.RNGPort = (*Adapter)(nil)

// SeededStream creates a deterministic random number generator for a named operation
func (a *Adapter) SeededStream(ctx context.Context, name string, seed int64) (*rand.Rand, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return newPCG(core.DeriveSeed(seed, name)), nil
}

// Stream creates the generator for one trial of a run.
func (a *Adapter) Stream(ctx context.Context, runKey, stage string, trial int, baseSeed int64) (*rand.Rand, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if trial < 0 {
		return nil, fmt.Errorf("trial index cannot be negative: %d", trial)
	}
	return newPCG(core.DeriveSeed(baseSeed, runKey, stage, strconv.Itoa(trial))), nil
}

// ValidateSeed regenerates the named stream and compares its first draws.
func (a *Adapter) ValidateSeed(ctx context.Context, name string, seed int64, expected []float64) error {
	r, err := a.SeededStream(ctx, name, seed)
	if err != nil {
		return err
	}
	for i, want := range expected {
		got := r.Float64()
		if math.Abs(got-want) > validateTolerance {
			return fmt.Errorf("%w: stream %q draw %d = %v, want %v", core.ErrSeedMismatch, name, i, got, want)
		}
	}
	return nil
}

// Draws returns the first n Float64 values of the named stream.
func (a *Adapter) Draws(ctx context.Context, name string, seed int64, n int) ([]float64, error) {
	r, err := a.SeededStream(ctx, name, seed)
	if err != nil {
		return nil, err
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = r.Float64()
	}
	return out, nil
}

func newPCG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0xda3e39cb94b95bdb))
}
