package run

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qaebench/domain/core"
)

func TestRunFingerprint_Deterministic(t *testing.T) {
	params := map[string]string{"amplitude": "0.1-0.9", "growth": "1.5"}

	fp1 := NewRunFingerprint("BAE", params, 100, 42, "1.0.0")
	fp2 := NewRunFingerprint("BAE", params, 100, 42, "1.0.0")

	if fp1.Fingerprint != fp2.Fingerprint {
		t.Errorf("Fingerprints not identical: %s vs %s", fp1.Fingerprint, fp2.Fingerprint)
	}
	if !fp1.Matches(fp2) {
		t.Error("Expected fingerprints to match")
	}
	if err := fp1.Validate(); err != nil {
		t.Errorf("Expected valid fingerprint, got %v", err)
	}
}

func TestRunFingerprint_Unique(t *testing.T) {
	params := map[string]string{"growth": "1.5"}
	base := NewRunFingerprint("BAE", params, 100, 42, "1.0.0")

	testCases := []struct {
		name string
		fp   RunFingerprint
	}{
		{"label", NewRunFingerprint("QAE", params, 100, 42, "1.0.0")},
		{"params", NewRunFingerprint("BAE", map[string]string{"growth": "2"}, 100, 42, "1.0.0")},
		{"trials", NewRunFingerprint("BAE", params, 99, 42, "1.0.0")},
		{"seed", NewRunFingerprint("BAE", params, 100, 43, "1.0.0")},
		{"code", NewRunFingerprint("BAE", params, 100, 42, "1.0.1")},
	}
	for _, tc := range testCases {
		if base.Matches(tc.fp) {
			t.Errorf("Changing %s should change the fingerprint", tc.name)
		}
	}
}

func TestTraceValidate(t *testing.T) {
	ok := Trace{Queries: []float64{1, 2}, SquaredErrors: []float64{0.1, 0.05}, Stds: []float64{0.3, 0.2}}
	assert.NoError(t, ok.Validate())

	assert.Error(t, Trace{}.Validate())
	assert.ErrorIs(t, Trace{Queries: []float64{1}, SquaredErrors: []float64{}, Stds: []float64{1}}.Validate(), core.ErrLengthMismatch)
	assert.ErrorIs(t, Trace{Queries: []float64{0}, SquaredErrors: []float64{1}, Stds: []float64{1}}.Validate(), core.ErrInvalidSample)
	assert.ErrorIs(t, Trace{Queries: []float64{1}, SquaredErrors: []float64{-1}, Stds: []float64{1}}.Validate(), core.ErrInvalidSample)
}

func TestResultsFlattenAndFinals(t *testing.T) {
	r := NewResults(core.NewRunID(), "BAE", 3)
	r.Append(Trace{Queries: []float64{1, 3}, SquaredErrors: []float64{0.4, 0.1}, Stds: []float64{0.5, 0.2}})
	r.Append(Trace{Queries: []float64{2, 5, 9}, SquaredErrors: []float64{0.3, 0.2, 0.05}, Stds: []float64{0.4, 0.3, 0.1}})

	assert.Equal(t, 2, r.Completed)
	assert.True(t, r.Interrupted())
	assert.True(t, r.HasData())
	assert.Equal(t, "2 of 3 trials completed", r.Summary())
	assert.Equal(t, []float64{1, 3, 2, 5, 9}, r.Queries)
	assert.Equal(t, []int{2, 3}, r.TrialLengths)
	assert.Equal(t, []float64{0.1, 0.05}, r.FinalErrors())
	assert.Equal(t, []float64{0.2, 0.1}, r.FinalStds())
	assert.Equal(t, []float64{3, 9}, r.FinalQueries())

	tr, err := r.Trial(1)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 5, 9}, tr.Queries)
	_, err = r.Trial(2)
	assert.Error(t, err)

	ps, err := r.PointSet()
	require.NoError(t, err)
	assert.Equal(t, 5, ps.Len())
	assert.True(t, ps.HasAux())
}

func TestResultsNoData(t *testing.T) {
	r := NewResults(core.NewRunID(), "BAE", 0)
	assert.False(t, r.HasData())
	_, err := r.PointSet()
	assert.ErrorIs(t, err, core.ErrNoData)
}

func TestResultsValidateAndJSON(t *testing.T) {
	r := NewResults(core.NewRunID(), "BAE", 2)
	r.Append(Trace{Queries: []float64{1, 3}, SquaredErrors: []float64{0.4, 0.1}, Stds: []float64{0.5, 0.2}})
	r.Fingerprint = NewRunFingerprint("BAE", nil, 2, 5, "1.0.0")
	require.NoError(t, r.Validate())

	data, err := json.Marshal(r)
	require.NoError(t, err)
	var decoded Results
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.NoError(t, decoded.Validate())
	assert.Equal(t, r.Queries, decoded.Queries)
	assert.True(t, r.CreatedAt.Time().Equal(decoded.CreatedAt.Time()))
	assert.True(t, r.Fingerprint.Matches(decoded.Fingerprint))

	decoded.Stds = decoded.Stds[:1]
	assert.ErrorIs(t, decoded.Validate(), core.ErrLengthMismatch)

	decoded.Stds = []float64{0.5, 0.2}
	decoded.Queries = []float64{1, -3}
	assert.ErrorIs(t, decoded.Validate(), core.ErrInvalidTrace)

	decoded.Queries = []float64{1, 3}
	decoded.Completed = 3
	assert.ErrorIs(t, decoded.Validate(), core.ErrLengthMismatch)
}
