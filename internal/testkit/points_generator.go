package testkit

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"

	"qaebench/domain/curve"
)

// PointsConfig configures synthetic squared-error scatter generation
type PointsConfig struct {
	NPoints  int     `json:"npoints"`
	XMin     float64 `json:"xmin"`
	XMax     float64 `json:"xmax"`
	Mean     float64 `json:"mean"` // true value being estimated
	Coef     float64 `json:"coef"` // std(x) = Coef * x^Power
	Power    float64 `json:"power"`
	LogSpace bool    `json:"log_space"` // x uniform in log(x)
	Noise    bool    `json:"noise"`     // false gives exact std(x)^2 errors
	Seed     uint64  `json:"seed"`
}

// DefaultPointsConfig returns sensible defaults for scatter generation
func DefaultPointsConfig() PointsConfig {
	return PointsConfig{
		NPoints:  500,
		XMin:     100,
		XMax:     1e5,
		Mean:     0.7,
		Coef:     1,
		Power:    -0.5,
		LogSpace: true,
		Noise:    true,
		Seed:     42,
	}
}

// GeneratePoints draws x values in [XMin, XMax] and, for each, the squared
// deviation of a normal sample with std Coef*x^Power from Mean. The result
// is sorted by x.
func GeneratePoints(cfg PointsConfig) (curve.PointSet, error) {
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed+1))

	xs := make([]float64, cfg.NPoints)
	for i := range xs {
		u := rng.Float64()
		if cfg.LogSpace {
			lo, hi := math.Log(cfg.XMin), math.Log(cfg.XMax)
			xs[i] = math.Exp(lo + u*(hi-lo))
		} else {
			xs[i] = cfg.XMin + u*(cfg.XMax-cfg.XMin)
		}
	}
	sort.Float64s(xs)

	ys := make([]float64, len(xs))
	for i, x := range xs {
		std := cfg.Coef * math.Pow(x, cfg.Power)
		if !cfg.Noise {
			ys[i] = std * std
			continue
		}
		sample := distuv.Normal{Mu: cfg.Mean, Sigma: std, Src: rng}.Rand()
		d := sample - cfg.Mean
		ys[i] = d * d
	}
	return curve.NewPointSet(xs, ys, nil)
}
