package binning

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qaebench/domain/core"
	"qaebench/domain/curve"
)

func mustPointSet(t *testing.T, xs, ys []float64) curve.PointSet {
	t.Helper()
	ps, err := curve.NewPointSet(xs, ys, nil)
	require.NoError(t, err)
	return ps
}

// TestEdgesLogScale tests geometric spacing and exact endpoints
func TestEdgesLogScale(t *testing.T) {
	edges, err := Edges(Range{Lo: 1, Hi: 1000}, 3, curve.ScaleLog)
	require.NoError(t, err)
	require.Len(t, edges, 4)
	assert.Equal(t, 1.0, edges[0])
	assert.InDelta(t, 10, edges[1], 1e-9)
	assert.InDelta(t, 100, edges[2], 1e-9)
	assert.Equal(t, 1000.0, edges[3])
}

func TestEdgesLinearScale(t *testing.T) {
	edges, err := Edges(Range{Lo: 0, Hi: 10}, 4, curve.ScaleLinear)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 2.5, 5, 7.5, 10}, edges)
}

// TestBinBoundaries tests the inclusive lowest edge and right-closed buckets
func TestBinBoundaries(t *testing.T) {
	ps := mustPointSet(t, []float64{1, 100}, []float64{1, 1})
	b, err := Bin(ps, Options{Range: &Range{Lo: 1, Hi: 100}, NBins: 3, Scale: curve.ScaleLog})
	require.NoError(t, err)

	require.Len(t, b.Members, 2)
	assert.Equal(t, 0, b.Members[0].Index, "x at the lower edge belongs to the first bucket")
	assert.Equal(t, []int{0}, b.Members[0].Members)
	assert.Equal(t, 2, b.Members[1].Index, "x at the upper edge belongs to the last bucket")
	assert.Equal(t, []int{1}, b.Members[1].Members)
	assert.Zero(t, b.Outside)
}

// TestBinInternalEdgeGoesLow tests that a sample on an internal edge joins the lower bucket
func TestBinInternalEdgeGoesLow(t *testing.T) {
	edges := []float64{0, 1, 2, 3}
	assert.Equal(t, 0, Locate(edges, 0))
	assert.Equal(t, 0, Locate(edges, 1))
	assert.Equal(t, 1, Locate(edges, 1.5))
	assert.Equal(t, 1, Locate(edges, 2))
	assert.Equal(t, 2, Locate(edges, 3))
	assert.Equal(t, -1, Locate(edges, 3.01))
	assert.Equal(t, -1, Locate(edges, -0.01))
}

// TestBinEveryInRangeSampleAssignedOnce tests membership is a partition
func TestBinEveryInRangeSampleAssignedOnce(t *testing.T) {
	xs := []float64{1, 2, 3, 5, 8, 13, 21, 34, 55, 89}
	ys := make([]float64, len(xs))
	ps := mustPointSet(t, xs, ys)

	b, err := Bin(ps, Options{NBins: 4})
	require.NoError(t, err)

	seen := map[int]int{}
	prev := -1
	for _, bucket := range b.Members {
		assert.Greater(t, bucket.Index, prev, "buckets ascend")
		prev = bucket.Index
		assert.NotEmpty(t, bucket.Members, "empty buckets are never emitted")
		for _, idx := range bucket.Members {
			seen[idx]++
			x := xs[idx]
			assert.True(t, x <= bucket.Hi)
			assert.True(t, x > bucket.Lo || bucket.Index == 0)
		}
	}
	assert.Len(t, seen, len(xs))
	for idx, n := range seen {
		assert.Equal(t, 1, n, "sample %d assigned %d times", idx, n)
	}
}

// TestBinRangeOverrideCountsOutside tests samples outside a forced range are dropped and counted
func TestBinRangeOverrideCountsOutside(t *testing.T) {
	ps := mustPointSet(t, []float64{0.5, 2, 4, 200}, []float64{1, 1, 1, 1})
	b, err := Bin(ps, Options{Range: &Range{Lo: 1, Hi: 100}, NBins: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, b.Outside)

	total := 0
	for _, bucket := range b.Members {
		total += len(bucket.Members)
	}
	assert.Equal(t, 2, total)
}

func TestBinConfigurationErrors(t *testing.T) {
	ps := mustPointSet(t, []float64{1, 2}, []float64{1, 1})

	_, err := Bin(ps, Options{NBins: 0})
	assert.ErrorIs(t, err, core.ErrConfiguration)
	assert.Contains(t, err.Error(), "nbins")

	_, err = Bin(ps, Options{Range: &Range{Lo: 0, Hi: 10}, NBins: 2, Scale: curve.ScaleLog})
	assert.ErrorIs(t, err, core.ErrConfiguration)
	assert.Contains(t, err.Error(), "xrange")

	_, err = Bin(ps, Options{Range: &Range{Lo: 0, Hi: 10}, NBins: 2, Scale: curve.ScaleLinear})
	assert.NoError(t, err, "zero lower bound is fine on a linear scale")

	_, err = Bin(ps, Options{Range: &Range{Lo: 5, Hi: 1}, NBins: 2})
	assert.ErrorIs(t, err, core.ErrConfiguration)

	_, err = Bin(curve.PointSet{}, Options{NBins: 2})
	assert.ErrorIs(t, err, core.ErrNoData)
}

func TestBinSingleValueRange(t *testing.T) {
	ps := mustPointSet(t, []float64{7, 7, 7}, []float64{1, 2, 3})
	b, err := Bin(ps, Options{NBins: 5})
	require.NoError(t, err)
	require.Len(t, b.Members, 1)
	assert.Equal(t, []int{0, 1, 2}, b.Members[0].Members)
}

func TestCenters(t *testing.T) {
	c, err := Centers(Range{Lo: 1, Hi: 10000}, 4, curve.ScaleLog)
	require.NoError(t, err)
	require.Len(t, c, 4)
	want := []float64{math.Sqrt(10), math.Sqrt(10) * 10, math.Sqrt(10) * 100, math.Sqrt(10) * 1000}
	assert.InDeltaSlice(t, want, c, 1e-9)

	c, err = Centers(Range{Lo: 1, Hi: 100}, 1, curve.ScaleLog)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{10}, c, 1e-9)

	c, err = Centers(Range{Lo: 0, Hi: 4}, 2, curve.ScaleLinear)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, 3}, c, 1e-12)
}

func TestCentersSingleValueRange(t *testing.T) {
	for _, scale := range []curve.Scale{curve.ScaleLog, curve.ScaleLinear} {
		c, err := Centers(Range{Lo: 500, Hi: 500}, 20, scale)
		require.NoError(t, err)
		assert.Equal(t, []float64{500}, c, "%s", scale)
	}
}
