package aggregate

import (
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"qaebench/domain/core"
	"qaebench/domain/curve"
)

// AverageByX groups samples that share the exact same x and reduces each
// group's y with stat, raising it to ypower. Non-adaptive estimators use the
// same query schedule in every run, so no binning is needed.
func AverageByX(ps curve.PointSet, stat Statistic, ypower float64) (curve.AggregatedCurve, error) {
	if ps.Len() == 0 {
		return curve.AggregatedCurve{}, fmt.Errorf("%w: nothing to average", core.ErrNoData)
	}
	if ypower == 0 {
		ypower = DefaultYPower
	}

	groups := make(map[float64][]float64)
	for i := 0; i < ps.Len(); i++ {
		s := ps.At(i)
		groups[s.X] = append(groups[s.X], s.Y)
	}

	xs := make([]float64, 0, len(groups))
	for x := range groups {
		xs = append(xs, x)
	}
	sort.Float64s(xs)

	points := make([]curve.Point, 0, len(xs))
	for _, x := range xs {
		y, err := stat(groups[x])
		if err != nil {
			return curve.AggregatedCurve{}, err
		}
		y = math.Pow(y, ypower)
		if math.IsNaN(y) || math.IsInf(y, 0) {
			continue
		}
		points = append(points, curve.Point{X: x, Y: y})
	}
	return curve.AggregatedCurve{Points: points}, nil
}

// StatisticFor maps a statistic name ("mean" or "median") to its function.
func StatisticFor(name string) (Statistic, error) {
	switch name {
	case "mean":
		return stats.Mean, nil
	case "median":
		return stats.Median, nil
	}
	return nil, core.NewConfigurationError("stat", fmt.Sprintf("unknown statistic %q", name))
}

// YStrategyFor maps a statistic name to the matching y_<stat> strategy.
func YStrategyFor(name string) (curve.Strategy, error) {
	if _, err := StatisticFor(name); err != nil {
		return "", err
	}
	return curve.ParseStrategy("y_" + name)
}
