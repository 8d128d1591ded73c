package aggregate

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"

	"qaebench/domain/core"
	"qaebench/domain/curve"
)

// Params carries the per-call settings every reducer sees.
type Params struct {
	FixedPoint *curve.FixedPoint
	LogDomain  bool
	YPower     float64
}

// Reducer collapses the samples of one bucket into a single point.
// dropped counts samples discarded as non-finite; ok is false when nothing
// usable remains and the bucket must be skipped.
type Reducer interface {
	Reduce(bucket []curve.Sample, p Params) (pt curve.Point, dropped int, ok bool)
}

// Statistic is a central tendency over a sample.
type Statistic func(stats.Float64Data) (float64, error)

// NewReducer returns the bucket reducer for a per-bucket strategy.
func NewReducer(strategy curve.Strategy) (Reducer, error) {
	switch strategy {
	case curve.YMean:
		return yReducer{stat: stats.Mean}, nil
	case curve.YMedian:
		return yReducer{stat: stats.Median}, nil
	case curve.SlopeMean:
		return slopeReducer{stat: stats.Mean}, nil
	case curve.SlopeMedian:
		return slopeReducer{stat: stats.Median}, nil
	}
	return nil, core.NewConfigurationError("strategy", fmt.Sprintf("%s has no bucket reducer", strategy))
}

// yReducer takes the mean or median of x and y independently, then raises y
// to the reporting power.
type yReducer struct {
	stat Statistic
}

func (r yReducer) Reduce(bucket []curve.Sample, p Params) (curve.Point, int, bool) {
	xs := make([]float64, len(bucket))
	ys := make([]float64, len(bucket))
	for i, s := range bucket {
		xs[i], ys[i] = s.X, s.Y
	}

	x, err := central(r.stat, xs, p.LogDomain)
	if err != nil {
		return curve.Point{}, 0, false
	}
	y, err := central(r.stat, ys, p.LogDomain)
	if err != nil {
		return curve.Point{}, 0, false
	}
	return curve.Point{X: x, Y: math.Pow(y, p.YPower)}, 0, true
}

// slopeReducer reduces the log-log slope of every sample to the fixed point
// and maps it back through the power law anchored there. Output is always
// square-rooted.
type slopeReducer struct {
	stat Statistic
}

func (r slopeReducer) Reduce(bucket []curve.Sample, p Params) (curve.Point, int, bool) {
	if p.FixedPoint == nil {
		return curve.Point{}, 0, false
	}

	xs := make([]float64, 0, len(bucket))
	slopes := make([]float64, 0, len(bucket))
	dropped := 0
	for _, s := range bucket {
		slope := p.FixedPoint.Slope(s.X, s.Y)
		if math.IsNaN(slope) || math.IsInf(slope, 0) {
			dropped++
			continue
		}
		xs = append(xs, s.X)
		slopes = append(slopes, slope)
	}
	if len(slopes) == 0 {
		return curve.Point{}, dropped, false
	}

	x, err := central(r.stat, xs, p.LogDomain)
	if err != nil {
		return curve.Point{}, dropped, false
	}
	slope, err := r.stat(slopes)
	if err != nil {
		return curve.Point{}, dropped, false
	}

	x0, y0 := p.FixedPoint.Squared()
	y := curve.PowerLaw(x0*y0, x, slope)
	return curve.Point{X: x, Y: math.Sqrt(y)}, dropped, true
}

// central applies stat directly or, in the log domain, to the logs of the
// values before exponentiating back.
func central(stat Statistic, values []float64, logDomain bool) (float64, error) {
	if !logDomain {
		return stat(values)
	}
	logs := make([]float64, len(values))
	for i, v := range values {
		logs[i] = math.Log(v)
	}
	v, err := stat(logs)
	if err != nil {
		return 0, err
	}
	return math.Exp(v), nil
}
