package aggregate

import (
	"fmt"
	"math"

	"qaebench/adapters/stats/binning"
	"qaebench/domain/core"
	"qaebench/domain/curve"
)

// ============================================================================
// ERROR CURVE AGGREGATION
// ============================================================================
// Reduces a scatter of (query count, squared error) samples from many
// unaligned runs into one curve. Bucket strategies reduce each non-empty
// bucket independently; global strategies (fit, spline) model the whole
// scatter and are evaluated at bucket centers.
// ============================================================================

const (
	DefaultNBins  = 20
	DefaultYPower = 0.5
)

// Logger receives aggregation diagnostics.
type Logger interface {
	Info(format string, args ...interface{})
	Debug(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Debug(string, ...interface{}) {}

// Options configures one aggregation call.
type Options struct {
	Strategy   curve.Strategy
	FixedPoint *curve.FixedPoint // required by slope_mean, slope_median and fit
	NBins      int
	YPower     float64 // exponent applied by y_mean/y_median; 0 means DefaultYPower
	LogDomain  bool    // geometric instead of arithmetic mean/median
	Scale      curve.Scale
	Range      *binning.Range // nil means the point set's own x range
	AddAfter   []curve.Point  // anchors prepended to the output
	Verbose    bool           // log the binning plan
}

// DefaultOptions returns options for the given strategy with default bins and power.
func DefaultOptions(strategy curve.Strategy) Options {
	return Options{
		Strategy: strategy,
		NBins:    DefaultNBins,
		YPower:   DefaultYPower,
		Scale:    curve.ScaleLog,
	}
}

// Drops counts samples and buckets discarded during aggregation.
type Drops struct {
	Samples int `json:"samples"` // non-finite per-sample slopes
	Buckets int `json:"buckets"` // buckets or evaluation points that reduced to a non-finite value
	Outside int `json:"outside"` // samples outside the x range
}

// Total returns the number of discarded samples and points.
func (d Drops) Total() int { return d.Samples + d.Buckets + d.Outside }

// Result is an aggregated curve plus the grouping that produced it.
type Result struct {
	Strategy curve.Strategy
	Curve    curve.AggregatedCurve
	Range    binning.Range
	Edges    []float64
	Groups   [][]curve.Sample // samples of each non-empty bucket, ascending
	Dropped  Drops
}

// Aggregator turns point sets into aggregated curves.
type Aggregator struct {
	logger Logger
}

// NewAggregator creates an aggregator. A nil logger discards diagnostics.
func NewAggregator(logger Logger) *Aggregator {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Aggregator{logger: logger}
}

// Validate checks options eagerly, before any data is processed.
func Validate(opts Options) error {
	if !opts.Strategy.Valid() {
		return core.NewConfigurationError("strategy", fmt.Sprintf("unknown strategy %q", opts.Strategy))
	}
	if opts.NBins < 1 {
		return core.NewConfigurationError("nbins", fmt.Sprintf("must be >= 1, got %d", opts.NBins))
	}
	if math.IsNaN(opts.YPower) || math.IsInf(opts.YPower, 0) {
		return core.NewConfigurationError("ypower", "must be finite")
	}
	if opts.Strategy.NeedsFixedPoint() {
		if opts.FixedPoint == nil {
			return core.NewConfigurationError("fixed_point", fmt.Sprintf("required by strategy %s", opts.Strategy))
		}
		if err := opts.FixedPoint.Validate(); err != nil {
			return err
		}
	} else if opts.FixedPoint != nil {
		if err := opts.FixedPoint.Validate(); err != nil {
			return err
		}
	}

	scale := opts.Scale
	if scale == "" {
		scale = curve.ScaleLog
	}
	if scale != curve.ScaleLog && scale != curve.ScaleLinear {
		return core.NewConfigurationError("scale", fmt.Sprintf("unknown scale %q", opts.Scale))
	}
	if opts.Range != nil {
		if err := binning.Validate(*opts.Range, opts.NBins, scale); err != nil {
			return err
		}
		// global strategies are evaluated on a log grid
		if !opts.Strategy.PerBucket() {
			if err := binning.Validate(*opts.Range, opts.NBins, curve.ScaleLog); err != nil {
				return err
			}
		}
	}
	return nil
}

// Aggregate reduces ps to a curve using opts.
func (a *Aggregator) Aggregate(ps curve.PointSet, opts Options) (*Result, error) {
	if err := Validate(opts); err != nil {
		return nil, err
	}
	if ps.Len() == 0 {
		return nil, fmt.Errorf("%w: nothing to aggregate", core.ErrNoData)
	}
	if opts.Scale == "" {
		opts.Scale = curve.ScaleLog
	}
	if opts.YPower == 0 {
		opts.YPower = DefaultYPower
	}

	buckets, err := binning.Bin(ps, binning.Options{Range: opts.Range, NBins: opts.NBins, Scale: opts.Scale})
	if err != nil {
		return nil, err
	}

	if opts.Verbose {
		a.logger.Info("Binning (%s) on %s. Number of bins: %d (evenly spaced on a %s scale)",
			opts.Strategy, buckets.Range, opts.NBins, opts.Scale)
		if opts.FixedPoint != nil {
			a.logger.Info("Using fixed point (%g, %g)", opts.FixedPoint.X, opts.FixedPoint.Y)
		}
	}

	result := &Result{
		Strategy: opts.Strategy,
		Range:    buckets.Range,
		Edges:    buckets.Edges,
		Dropped:  Drops{Outside: buckets.Outside},
	}
	for _, b := range buckets.Members {
		result.Groups = append(result.Groups, ps.Select(b.Members))
	}

	var points []curve.Point
	if opts.Strategy.PerBucket() {
		points, err = a.reduceBuckets(result, opts)
	} else {
		points, err = a.fitGlobal(result, opts)
	}
	if err != nil {
		return nil, err
	}

	c := curve.AggregatedCurve{Points: points}
	c.SortByX()
	for _, p := range opts.AddAfter {
		c.Points = append([]curve.Point{p}, c.Points...)
	}
	result.Curve = c

	if result.Dropped.Total() > 0 {
		a.logger.Debug("Aggregation (%s) dropped %d samples, %d buckets, %d outside range",
			opts.Strategy, result.Dropped.Samples, result.Dropped.Buckets, result.Dropped.Outside)
	}
	return result, nil
}

func (a *Aggregator) reduceBuckets(result *Result, opts Options) ([]curve.Point, error) {
	reducer, err := NewReducer(opts.Strategy)
	if err != nil {
		return nil, err
	}
	params := Params{FixedPoint: opts.FixedPoint, LogDomain: opts.LogDomain, YPower: opts.YPower}

	points := make([]curve.Point, 0, len(result.Groups))
	for _, group := range result.Groups {
		pt, dropped, ok := reducer.Reduce(group, params)
		result.Dropped.Samples += dropped
		if !ok || !finitePoint(pt) {
			result.Dropped.Buckets++
			continue
		}
		points = append(points, pt)
	}
	return points, nil
}

func (a *Aggregator) fitGlobal(result *Result, opts Options) ([]curve.Point, error) {
	var samples []curve.Sample
	for _, g := range result.Groups {
		samples = append(samples, g...)
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: no samples inside %s", core.ErrNoData, result.Range)
	}

	xs, err := binning.Centers(result.Range, opts.NBins, curve.ScaleLog)
	if err != nil {
		return nil, err
	}

	var model func(x float64) float64
	switch opts.Strategy {
	case curve.Fit:
		slope, err := FitPowerLaw(samples, *opts.FixedPoint)
		if err != nil {
			return nil, err
		}
		coef := opts.FixedPoint.X * opts.FixedPoint.Y
		a.logger.Debug("Fitted power-law exponent %.6g", slope)
		model = func(x float64) float64 { return curve.PowerLaw(coef, x, slope) }
	case curve.Spline:
		logEdges, err := binning.Edges(result.Range, opts.NBins, curve.ScaleLog)
		if err != nil {
			return nil, err
		}
		sp, err := FitSpline(samples, logEdges)
		if err != nil {
			return nil, err
		}
		model = func(x float64) float64 { return sp.Eval(math.Log(x)) }
	default:
		return nil, core.NewConfigurationError("strategy", fmt.Sprintf("%s is not a global strategy", opts.Strategy))
	}

	points := make([]curve.Point, 0, len(xs))
	for _, x := range xs {
		pt := curve.Point{X: x, Y: model(x)}
		if !finitePoint(pt) {
			result.Dropped.Buckets++
			continue
		}
		points = append(points, pt)
	}
	return points, nil
}

func finitePoint(p curve.Point) bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) && !math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}
