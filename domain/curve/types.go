package curve

import (
	"math"
	"sort"

	"qaebench/domain/core"
)

// Sample is one recorded (x, y) observation with an optional auxiliary value.
// X is a query count, Y a squared error and Aux usually a standard deviation.
type Sample struct {
	X      float64
	Y      float64
	Aux    float64
	HasAux bool
}

// PointSet is an immutable, validated collection of samples. Order is the
// order of construction and carries no meaning for aggregation.
type PointSet struct {
	samples []Sample
	hasAux  bool
}

// NewPointSet validates and copies the given sequences. aux may be nil.
func NewPointSet(xs, ys, aux []float64) (PointSet, error) {
	if len(ys) != len(xs) {
		return PointSet{}, core.NewLengthMismatchError("y", len(ys), len(xs))
	}
	if aux != nil && len(aux) != len(xs) {
		return PointSet{}, core.NewLengthMismatchError("aux", len(aux), len(xs))
	}

	samples := make([]Sample, len(xs))
	for i := range xs {
		x, y := xs[i], ys[i]
		if math.IsNaN(x) || math.IsInf(x, 0) || x <= 0 {
			return PointSet{}, core.NewInvalidSampleError(i, "x must be finite and > 0")
		}
		if math.IsNaN(y) || math.IsInf(y, 0) || y < 0 {
			return PointSet{}, core.NewInvalidSampleError(i, "y must be finite and >= 0")
		}
		s := Sample{X: x, Y: y}
		if aux != nil {
			if math.IsNaN(aux[i]) {
				return PointSet{}, core.NewInvalidSampleError(i, "aux must not be NaN")
			}
			s.Aux, s.HasAux = aux[i], true
		}
		samples[i] = s
	}
	return PointSet{samples: samples, hasAux: aux != nil}, nil
}

// Len returns the number of samples.
func (p PointSet) Len() int { return len(p.samples) }

// At returns the i-th sample.
func (p PointSet) At(i int) Sample { return p.samples[i] }

// HasAux reports whether every sample carries an auxiliary value.
func (p PointSet) HasAux() bool { return p.hasAux }

// Samples returns a copy of the samples.
func (p PointSet) Samples() []Sample {
	out := make([]Sample, len(p.samples))
	copy(out, p.samples)
	return out
}

// Select returns copies of the samples at the given indices.
func (p PointSet) Select(indices []int) []Sample {
	out := make([]Sample, len(indices))
	for i, idx := range indices {
		out[i] = p.samples[idx]
	}
	return out
}

func (p PointSet) Xs() []float64 {
	out := make([]float64, len(p.samples))
	for i, s := range p.samples {
		out[i] = s.X
	}
	return out
}

func (p PointSet) Ys() []float64 {
	out := make([]float64, len(p.samples))
	for i, s := range p.samples {
		out[i] = s.Y
	}
	return out
}

// Range returns the smallest and largest x. Both are zero for an empty set.
func (p PointSet) Range() (lo, hi float64) {
	if len(p.samples) == 0 {
		return 0, 0
	}
	lo, hi = p.samples[0].X, p.samples[0].X
	for _, s := range p.samples[1:] {
		lo = math.Min(lo, s.X)
		hi = math.Max(hi, s.X)
	}
	return lo, hi
}

// WithAuxAsY returns a copy of the set whose y values are replaced by the aux
// values. It is used to bin standard deviations on the same grid as errors.
func (p PointSet) WithAuxAsY() (PointSet, error) {
	if !p.hasAux {
		return PointSet{}, core.NewConfigurationError("aux", "point set has no auxiliary values")
	}
	xs := p.Xs()
	ys := make([]float64, len(p.samples))
	for i, s := range p.samples {
		ys[i] = s.Aux
	}
	return NewPointSet(xs, ys, nil)
}

// FixedPoint anchors slope and power-law strategies. Y is in reported
// (square-rooted) units and is squared before it meets squared-error data.
type FixedPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Validate checks that both coordinates can be logged.
func (f FixedPoint) Validate() error {
	if !(f.X > 0) || math.IsInf(f.X, 0) {
		return core.NewConfigurationError("fixed_point.x", "must be finite and > 0")
	}
	if !(f.Y > 0) || math.IsInf(f.Y, 0) {
		return core.NewConfigurationError("fixed_point.y", "must be finite and > 0")
	}
	return nil
}

// Squared returns the fixed point in squared-error units.
func (f FixedPoint) Squared() (x0, y0 float64) {
	return f.X, f.Y * f.Y
}

// Slope returns the log-log slope from (x, y) to the squared fixed point.
// The result is NaN or infinite when x equals the fixed point's x.
func (f FixedPoint) Slope(x, y float64) float64 {
	x0, y0 := f.Squared()
	return (math.Log(y0) - math.Log(y)) / (math.Log(x0) - math.Log(x))
}

// Point is one (x, y) pair of an aggregated curve.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// AggregatedCurve is the reduced curve handed to plotting.
type AggregatedCurve struct {
	Points []Point `json:"points"`
}

func (c AggregatedCurve) Len() int { return len(c.Points) }

func (c AggregatedCurve) Xs() []float64 {
	out := make([]float64, len(c.Points))
	for i, p := range c.Points {
		out[i] = p.X
	}
	return out
}

func (c AggregatedCurve) Ys() []float64 {
	out := make([]float64, len(c.Points))
	for i, p := range c.Points {
		out[i] = p.Y
	}
	return out
}

// SortByX orders points by ascending x in place.
func (c AggregatedCurve) SortByX() {
	sort.SliceStable(c.Points, func(i, j int) bool { return c.Points[i].X < c.Points[j].X })
}

// PowerLaw evaluates coef * x^exponent.
func PowerLaw(coef, x, exponent float64) float64 {
	return coef * math.Pow(x, exponent)
}
