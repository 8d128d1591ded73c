package app

import (
	"context"
	"fmt"

	"qaebench/domain/core"
	"qaebench/domain/run"
	"qaebench/ports"
)

// CodeVersion is recorded in every run fingerprint.
const CodeVersion = "1.0.0"

// Logger is the leveled logging collaborator used by app services.
type Logger interface {
	Warn(format string, args ...interface{})
	Info(format string, args ...interface{})
	Debug(format string, args ...interface{})
}

// ExperimentRunner executes independent estimator trials one after another
// and flattens their traces.
type ExperimentRunner struct {
	rngPort ports.RNGPort
	logger  Logger
	seed    int64
}

// NewExperimentRunner creates a runner whose trial streams derive from seed.
func NewExperimentRunner(rngPort ports.RNGPort, logger Logger, seed int64) *ExperimentRunner {
	return &ExperimentRunner{
		rngPort: rngPort,
		logger:  logger,
		seed:    seed,
	}
}

// Run executes est nTrials times. Cancellation of ctx is honoured between
// trials only: a trial in progress always finishes, and the results of all
// completed trials are returned without error. When no trial completed the
// results are returned together with core.ErrNoData. A failing trial stops
// the batch and its error is returned alongside the partial results.
func (r *ExperimentRunner) Run(ctx context.Context, est ports.Estimator, nTrials int) (*run.Results, error) {
	if nTrials < 0 {
		return nil, core.NewConfigurationError("n_trials", fmt.Sprintf("cannot be negative, got %d", nTrials))
	}

	results := run.NewResults(core.NewRunID(), est.Label(), nTrials)
	var params map[string]string
	if pe, ok := est.(ports.ParameterizedEstimator); ok {
		params = pe.Params()
	}
	results.Fingerprint = run.NewRunFingerprint(est.Label(), params, nTrials, r.seed, CodeVersion)

	for i := 0; i < nTrials; i++ {
		if ctx.Err() != nil {
			r.logger.Warn("Run %s interrupted before trial %d", results.RunID, i+1)
			break
		}

		// streams depend only on the fingerprint, so replays draw identically
		stream, err := r.rngPort.Stream(context.WithoutCancel(ctx), results.Fingerprint.Fingerprint.String(), "trial", i, r.seed)
		if err != nil {
			return results, fmt.Errorf("trial %d: seeding: %w", i, err)
		}

		trace, err := est.Trial(i, stream)
		if err != nil {
			r.logger.Warn("Trial %d of %s failed: %v", i+1, est.Label(), err)
			return results, fmt.Errorf("trial %d: %w", i, err)
		}
		if err := trace.Validate(); err != nil {
			return results, core.NewInvalidTraceError(i, err)
		}

		results.Append(trace)
		r.logger.Debug("Trial %d of %s: %d iterations", i+1, est.Label(), trace.Len())
	}

	r.logger.Info("%s: %s", est.Label(), results.Summary())
	if !results.HasData() {
		return results, fmt.Errorf("%w: %s", core.ErrNoData, results.Summary())
	}
	return results, nil
}
