package binning

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"qaebench/domain/core"
	"qaebench/domain/curve"
)

// ============================================================================
// BUCKET LAYER
// ============================================================================
// Partitions a PointSet along x into nbins buckets spaced evenly on a log or
// linear scale. The lowest edge is inclusive, every other bucket is (lo, hi].
// Samples outside the range belong to no bucket and are only counted.
// ============================================================================

// Range is a closed interval on the x axis.
type Range struct {
	Lo float64 `json:"lo"`
	Hi float64 `json:"hi"`
}

func (r Range) String() string {
	return fmt.Sprintf("[%g, %g]", r.Lo, r.Hi)
}

// Options controls bucketing.
type Options struct {
	Range *Range      // nil means [min(x), max(x)] of the point set
	NBins int         // number of buckets, >= 1
	Scale curve.Scale // empty means log
}

// Bucket is one non-empty x interval and the indices of its samples.
type Bucket struct {
	Index   int     // position among all nbins buckets
	Lo      float64 // exclusive, except for the first bucket
	Hi      float64 // inclusive
	Members []int
}

// Buckets is the result of binning a point set.
type Buckets struct {
	Range   Range
	Scale   curve.Scale
	Edges   []float64 // nbins+1 ascending edges
	Members []Bucket  // non-empty buckets only, ascending
	Outside int       // samples outside Range
}

// NBins returns the number of buckets the edges describe.
func (b *Buckets) NBins() int { return len(b.Edges) - 1 }

// Validate checks bucketing parameters before any data is touched.
func Validate(r Range, nbins int, scale curve.Scale) error {
	if nbins < 1 {
		return core.NewConfigurationError("nbins", fmt.Sprintf("must be >= 1, got %d", nbins))
	}
	if scale != curve.ScaleLog && scale != curve.ScaleLinear {
		return core.NewConfigurationError("scale", fmt.Sprintf("unknown scale %q", scale))
	}
	if math.IsNaN(r.Lo) || math.IsNaN(r.Hi) || math.IsInf(r.Lo, 0) || math.IsInf(r.Hi, 0) {
		return core.NewConfigurationError("xrange", "bounds must be finite")
	}
	if r.Lo > r.Hi {
		return core.NewConfigurationError("xrange", fmt.Sprintf("lower bound %g exceeds upper bound %g", r.Lo, r.Hi))
	}
	if scale == curve.ScaleLog && r.Lo <= 0 {
		return core.NewConfigurationError("xrange", fmt.Sprintf("lower bound %g must be > 0 on a log scale", r.Lo))
	}
	return nil
}

// Edges returns nbins+1 edges spanning r. The outer edges equal r exactly.
func Edges(r Range, nbins int, scale curve.Scale) ([]float64, error) {
	if scale == "" {
		scale = curve.ScaleLog
	}
	if err := Validate(r, nbins, scale); err != nil {
		return nil, err
	}

	edges := make([]float64, nbins+1)
	switch scale {
	case curve.ScaleLog:
		floats.LogSpan(edges, r.Lo, r.Hi)
	case curve.ScaleLinear:
		floats.Span(edges, r.Lo, r.Hi)
	}
	// exp(log(x)) drifts by an ulp; the ends must match the range
	edges[0], edges[nbins] = r.Lo, r.Hi
	return edges, nil
}

// Centers returns nbins points evenly spaced on the given scale over r
// shrunk inward by half a bucket on each side, i.e. the bucket centers.
// A single-value range has exactly one center, r.Lo.
func Centers(r Range, nbins int, scale curve.Scale) ([]float64, error) {
	if scale == "" {
		scale = curve.ScaleLog
	}
	if err := Validate(r, nbins, scale); err != nil {
		return nil, err
	}
	if r.Lo == r.Hi {
		return []float64{r.Lo}, nil
	}

	lo, hi := r.Lo, r.Hi
	if scale == curve.ScaleLog {
		lo, hi = math.Log(lo), math.Log(hi)
	}
	half := (hi - lo) / float64(nbins) / 2
	lo, hi = lo+half, hi-half

	out := make([]float64, nbins)
	if nbins == 1 {
		out[0] = lo
	} else {
		floats.Span(out, lo, hi)
	}
	if scale == curve.ScaleLog {
		for i := range out {
			out[i] = math.Exp(out[i])
		}
	}
	return out, nil
}

// Locate returns the bucket index of x, or -1 when x is outside the edges.
func Locate(edges []float64, x float64) int {
	n := len(edges) - 1
	if n < 1 || x < edges[0] || x > edges[n] {
		return -1
	}
	// smallest j with edges[j] >= x; x then lies in (edges[j-1], edges[j]]
	j := sort.SearchFloat64s(edges, x)
	if j == 0 {
		return 0
	}
	return j - 1
}

// Bin partitions ps into buckets.
func Bin(ps curve.PointSet, opts Options) (*Buckets, error) {
	scale := opts.Scale
	if scale == "" {
		scale = curve.ScaleLog
	}
	if opts.NBins < 1 {
		return nil, core.NewConfigurationError("nbins", fmt.Sprintf("must be >= 1, got %d", opts.NBins))
	}

	var r Range
	if opts.Range != nil {
		r = *opts.Range
	} else {
		if ps.Len() == 0 {
			return nil, fmt.Errorf("%w: cannot derive x range from an empty point set", core.ErrNoData)
		}
		r.Lo, r.Hi = ps.Range()
	}

	edges, err := Edges(r, opts.NBins, scale)
	if err != nil {
		return nil, err
	}

	members := make([][]int, opts.NBins)
	outside := 0
	for i := 0; i < ps.Len(); i++ {
		idx := Locate(edges, ps.At(i).X)
		if idx < 0 {
			outside++
			continue
		}
		members[idx] = append(members[idx], i)
	}

	result := &Buckets{Range: r, Scale: scale, Edges: edges, Outside: outside}
	for i, m := range members {
		if len(m) == 0 {
			continue
		}
		result.Members = append(result.Members, Bucket{
			Index:   i,
			Lo:      edges[i],
			Hi:      edges[i+1],
			Members: m,
		})
	}
	return result, nil
}
