package ports

import (
	"math/rand/v2"

	"qaebench/domain/run"
)

// Estimator runs one stochastic trial of an amplitude estimation algorithm.
// Trial receives its own random stream and returns the per-iteration trace.
type Estimator interface {
	Label() string
	Trial(index int, rng *rand.Rand) (run.Trace, error)
}

// ParameterizedEstimator exposes the parameters that make its trials reproducible.
type ParameterizedEstimator interface {
	Estimator
	Params() map[string]string
}

// TrialFunc adapts a plain function to Estimator.
type TrialFunc struct {
	Name string
	Fn   func(index int, rng *rand.Rand) (run.Trace, error)
}

func (f TrialFunc) Label() string { return f.Name }

func (f TrialFunc) Trial(index int, rng *rand.Rand) (run.Trace, error) {
	return f.Fn(index, rng)
}
