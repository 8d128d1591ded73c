package run

import (
	"fmt"
	"math"

	"qaebench/domain/core"
	"qaebench/domain/curve"
)

// Trace is one trial's per-iteration record, ordered by iteration.
type Trace struct {
	Queries       []float64 `json:"queries"`
	SquaredErrors []float64 `json:"squared_errors"`
	Stds          []float64 `json:"stds"`
}

// Len returns the number of iterations.
func (t Trace) Len() int { return len(t.Queries) }

// Validate checks equal lengths and value domains.
func (t Trace) Validate() error {
	n := len(t.Queries)
	if n == 0 {
		return fmt.Errorf("trace has no iterations")
	}
	if len(t.SquaredErrors) != n {
		return core.NewLengthMismatchError("squared_errors", len(t.SquaredErrors), n)
	}
	if len(t.Stds) != n {
		return core.NewLengthMismatchError("stds", len(t.Stds), n)
	}
	for i := 0; i < n; i++ {
		if q := t.Queries[i]; !(q > 0) || math.IsInf(q, 0) {
			return core.NewInvalidSampleError(i, "query count must be finite and > 0")
		}
		if e := t.SquaredErrors[i]; !(e >= 0) || math.IsInf(e, 0) {
			return core.NewInvalidSampleError(i, "squared error must be finite and >= 0")
		}
		if s := t.Stds[i]; !(s >= 0) {
			return core.NewInvalidSampleError(i, "std must be >= 0")
		}
	}
	return nil
}

// Results holds the flattened traces of a batch of trials: trial 1's full
// trace, then trial 2's, and so on.
type Results struct {
	RunID         core.RunID     `json:"run_id"`
	Label         string         `json:"label"`
	Requested     int            `json:"requested"`
	Completed     int            `json:"completed"`
	Queries       []float64      `json:"queries"`
	SquaredErrors []float64      `json:"squared_errors"`
	Stds          []float64      `json:"stds"`
	TrialLengths  []int          `json:"trial_lengths"`
	Fingerprint   RunFingerprint `json:"fingerprint"`
	CreatedAt     core.Timestamp `json:"created_at"`
}

// NewResults creates an empty result set for requested trials.
func NewResults(id core.RunID, label string, requested int) *Results {
	return &Results{
		RunID:     id,
		Label:     label,
		Requested: requested,
		CreatedAt: core.Now(),
	}
}

// Append adds a completed trial's trace.
func (r *Results) Append(t Trace) {
	r.Queries = append(r.Queries, t.Queries...)
	r.SquaredErrors = append(r.SquaredErrors, t.SquaredErrors...)
	r.Stds = append(r.Stds, t.Stds...)
	r.TrialLengths = append(r.TrialLengths, t.Len())
	r.Completed++
}

// HasData reports whether at least one trial completed.
func (r *Results) HasData() bool { return r != nil && r.Completed > 0 }

// Interrupted reports whether fewer trials completed than were requested.
func (r *Results) Interrupted() bool { return r.Completed < r.Requested }

// Summary renders the "N of M trials completed" line.
func (r *Results) Summary() string {
	return fmt.Sprintf("%d of %d trials completed", r.Completed, r.Requested)
}

// Validate checks that the flattened sequences agree with the trial
// lengths and that every trial is a valid trace.
func (r *Results) Validate() error {
	if r.Completed != len(r.TrialLengths) {
		return core.NewLengthMismatchError("trial_lengths", len(r.TrialLengths), r.Completed)
	}
	if r.Completed > r.Requested {
		return core.NewConfigurationError("completed", fmt.Sprintf("%d exceeds requested %d", r.Completed, r.Requested))
	}
	total := 0
	for _, n := range r.TrialLengths {
		total += n
	}
	for _, seq := range []struct {
		name string
		n    int
	}{
		{"queries", len(r.Queries)},
		{"squared_errors", len(r.SquaredErrors)},
		{"stds", len(r.Stds)},
	} {
		if seq.n != total {
			return core.NewLengthMismatchError(seq.name, seq.n, total)
		}
	}
	for i := 0; i < r.Completed; i++ {
		t, err := r.Trial(i)
		if err != nil {
			return err
		}
		if err := t.Validate(); err != nil {
			return core.NewInvalidTraceError(i, err)
		}
	}
	return nil
}

// Trial returns the i-th completed trial's trace.
func (r *Results) Trial(i int) (Trace, error) {
	if i < 0 || i >= len(r.TrialLengths) {
		return Trace{}, fmt.Errorf("trial %d out of range [0, %d)", i, len(r.TrialLengths))
	}
	start := 0
	for _, n := range r.TrialLengths[:i] {
		start += n
	}
	end := start + r.TrialLengths[i]
	return Trace{
		Queries:       append([]float64(nil), r.Queries[start:end]...),
		SquaredErrors: append([]float64(nil), r.SquaredErrors[start:end]...),
		Stds:          append([]float64(nil), r.Stds[start:end]...),
	}, nil
}

// finals picks the last value of every trial.
func (r *Results) finals(values []float64) []float64 {
	out := make([]float64, 0, len(r.TrialLengths))
	end := 0
	for _, n := range r.TrialLengths {
		end += n
		if n > 0 {
			out = append(out, values[end-1])
		}
	}
	return out
}

// FinalErrors returns each trial's last squared error.
func (r *Results) FinalErrors() []float64 { return r.finals(r.SquaredErrors) }

// FinalStds returns each trial's last std.
func (r *Results) FinalStds() []float64 { return r.finals(r.Stds) }

// FinalQueries returns each trial's last query count.
func (r *Results) FinalQueries() []float64 { return r.finals(r.Queries) }

// PointSet returns the flattened scatter with stds as auxiliary values.
func (r *Results) PointSet() (curve.PointSet, error) {
	if !r.HasData() {
		return curve.PointSet{}, fmt.Errorf("%w: %s", core.ErrNoData, r.Summary())
	}
	return curve.NewPointSet(r.Queries, r.SquaredErrors, r.Stds)
}
