package curve

import (
	"strings"

	"qaebench/domain/core"
)

// Strategy selects how buckets are reduced to curve points.
type Strategy string

const (
	YMean       Strategy = "y_mean"       // mean of x and y per bucket
	YMedian     Strategy = "y_median"     // median of x and y per bucket
	SlopeMean   Strategy = "slope_mean"   // mean slope to the fixed point per bucket
	SlopeMedian Strategy = "slope_median" // median slope to the fixed point per bucket
	Fit         Strategy = "fit"          // one global power-law exponent
	Spline      Strategy = "spline"       // least-squares cubic spline in log(x)
)

// Strategies lists every supported strategy.
func Strategies() []Strategy {
	return []Strategy{YMean, YMedian, SlopeMean, SlopeMedian, Fit, Spline}
}

// ParseStrategy maps a strategy name to its value.
func ParseStrategy(name string) (Strategy, error) {
	s := Strategy(strings.TrimSpace(strings.ToLower(name)))
	if !s.Valid() {
		return "", core.NewConfigurationError("strategy", "unknown strategy "+name)
	}
	return s, nil
}

func (s Strategy) Valid() bool {
	switch s {
	case YMean, YMedian, SlopeMean, SlopeMedian, Fit, Spline:
		return true
	}
	return false
}

// NeedsFixedPoint reports whether the strategy is anchored at a fixed point.
func (s Strategy) NeedsFixedPoint() bool {
	return s == SlopeMean || s == SlopeMedian || s == Fit
}

// PerBucket reports whether the strategy reduces each bucket on its own.
func (s Strategy) PerBucket() bool {
	return s != Fit && s != Spline
}

func (s Strategy) String() string { return string(s) }

// Scale is the spacing of bucket edges along x.
type Scale string

const (
	ScaleLog    Scale = "log"
	ScaleLinear Scale = "linear"
)

// ParseScale maps a scale name to its value. Empty means log.
func ParseScale(name string) (Scale, error) {
	switch Scale(strings.TrimSpace(strings.ToLower(name))) {
	case "", ScaleLog:
		return ScaleLog, nil
	case ScaleLinear:
		return ScaleLinear, nil
	}
	return "", core.NewConfigurationError("scale", "unknown scale "+name)
}
