package curve

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qaebench/domain/core"
)

func TestNewPointSetValidation(t *testing.T) {
	_, err := NewPointSet([]float64{1, 2}, []float64{1}, nil)
	assert.ErrorIs(t, err, core.ErrLengthMismatch)

	_, err = NewPointSet([]float64{1, 0}, []float64{1, 1}, nil)
	assert.ErrorIs(t, err, core.ErrInvalidSample)

	_, err = NewPointSet([]float64{1, 2}, []float64{1, -0.5}, nil)
	assert.ErrorIs(t, err, core.ErrInvalidSample)

	_, err = NewPointSet([]float64{1, 2}, []float64{1, math.NaN()}, nil)
	assert.ErrorIs(t, err, core.ErrInvalidSample)

	_, err = NewPointSet([]float64{1, 2}, []float64{1, 1}, []float64{0.1})
	assert.ErrorIs(t, err, core.ErrLengthMismatch)
}

func TestPointSetAccessorsCopy(t *testing.T) {
	xs := []float64{10, 1, 5}
	ps, err := NewPointSet(xs, []float64{0.1, 0.2, 0.3}, []float64{1, 2, 3})
	require.NoError(t, err)

	xs[0] = 999
	assert.Equal(t, 10.0, ps.At(0).X, "point set must not alias input")

	got := ps.Xs()
	got[1] = 999
	assert.Equal(t, 1.0, ps.At(1).X, "accessor must return a copy")

	lo, hi := ps.Range()
	assert.Equal(t, 1.0, lo)
	assert.Equal(t, 10.0, hi)
	assert.True(t, ps.HasAux())

	stds, err := ps.WithAuxAsY()
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, stds.Ys())
}

func TestFixedPointSlope(t *testing.T) {
	fp := FixedPoint{X: 100, Y: 0.1}
	x0, y0 := fp.Squared()
	assert.Equal(t, 100.0, x0)
	assert.InDelta(t, 0.01, y0, 1e-15)

	// coincides with the fixed point in squared units
	s := fp.Slope(100, 0.01)
	assert.True(t, math.IsNaN(s) || math.IsInf(s, 0))

	// y = y0 * (x/x0)^-1 gives slope -1
	assert.InDelta(t, -1.0, fp.Slope(1000, 0.001), 1e-12)

	assert.Error(t, FixedPoint{X: 0, Y: 1}.Validate())
	assert.Error(t, FixedPoint{X: 1, Y: -1}.Validate())
	assert.NoError(t, fp.Validate())
}

func TestParseStrategy(t *testing.T) {
	for _, s := range Strategies() {
		got, err := ParseStrategy(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	_, err := ParseStrategy("y_mode")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrConfiguration)
	assert.Contains(t, err.Error(), "strategy")

	assert.True(t, SlopeMedian.NeedsFixedPoint())
	assert.True(t, Fit.NeedsFixedPoint())
	assert.False(t, Spline.NeedsFixedPoint())
	assert.False(t, Fit.PerBucket())
	assert.True(t, YMean.PerBucket())
}

func TestParseScale(t *testing.T) {
	s, err := ParseScale("")
	require.NoError(t, err)
	assert.Equal(t, ScaleLog, s)

	s, err = ParseScale("Linear")
	require.NoError(t, err)
	assert.Equal(t, ScaleLinear, s)

	_, err = ParseScale("sqrt")
	assert.ErrorIs(t, err, core.ErrConfiguration)
}

func TestAggregatedCurveSort(t *testing.T) {
	c := AggregatedCurve{Points: []Point{{X: 3, Y: 1}, {X: 1, Y: 2}, {X: 2, Y: 3}}}
	c.SortByX()
	assert.Equal(t, []float64{1, 2, 3}, c.Xs())
	assert.Equal(t, []float64{2, 3, 1}, c.Ys())
}
