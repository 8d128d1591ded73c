package testkit

import (
	"fmt"
	"math/rand/v2"

	"qaebench/domain/estimation"
	"qaebench/domain/run"
)

// ScriptedEstimator replays fixed traces, one per trial index.
type ScriptedEstimator struct {
	label  string
	traces []run.Trace
	Calls  int
}

// NewScriptedEstimator creates an estimator that returns traces[i] for trial i.
func NewScriptedEstimator(label string, traces ...run.Trace) *ScriptedEstimator {
	return &ScriptedEstimator{label: label, traces: traces}
}

func (s *ScriptedEstimator) Label() string { return s.label }

// Trial returns the scripted trace or an error when the script is exhausted.
func (s *ScriptedEstimator) Trial(index int, _ *rand.Rand) (run.Trace, error) {
	s.Calls++
	if index >= len(s.traces) {
		return run.Trace{}, fmt.Errorf("no scripted trace for trial %d", index)
	}
	return s.traces[index], nil
}

// LinearTrace builds n iterations with query counts start, start+1, ...
// squared errors 1/q and stds 0.1/q.
func LinearTrace(start float64, n int) run.Trace {
	tr := run.Trace{
		Queries:       make([]float64, n),
		SquaredErrors: make([]float64, n),
		Stds:          make([]float64, n),
	}
	for i := 0; i < n; i++ {
		q := start + float64(i)
		tr.Queries[i] = q
		tr.SquaredErrors[i] = 1 / q
		tr.Stds[i] = 0.1 / q
	}
	return tr
}

// SampleRegistry returns a registry with the given labels, each holding a
// short decreasing curve with stds.
func SampleRegistry(labels ...string) (estimation.Registry, error) {
	reg := estimation.NewRegistry()
	for i, label := range labels {
		scale := float64(i + 1)
		var err error
		reg, err = reg.Add(label,
			[]float64{10, 100, 1000},
			[]float64{0.1 * scale, 0.03 * scale, 0.01 * scale},
			[]float64{0.2 * scale, 0.05 * scale, 0.02 * scale},
		)
		if err != nil {
			return estimation.Registry{}, err
		}
	}
	return reg, nil
}
