package synthetic

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"

	"gonum.org/v1/gonum/stat/distuv"

	"qaebench/domain/core"
	"qaebench/domain/run"
	"qaebench/ports"
)

// Config describes a synthetic estimator whose RMSE follows
// Coef * queries^Power, sampled around a random true amplitude.
type Config struct {
	Label         string
	AmplitudeMin  float64 // true amplitude drawn uniformly per trial
	AmplitudeMax  float64
	Coef          float64
	Power         float64
	WarmupQueries float64 // query count of the first iteration
	MaxQueries    float64 // trial stops once this is exceeded
	Growth        float64 // mean multiplicative query growth per iteration
	Jitter        float64 // relative spread of the growth factor, adaptive only
	Adaptive      bool    // data-dependent step counts when true
}

// DefaultConfig mimics an adaptive estimator close to the Heisenberg limit.
func DefaultConfig(label string) Config {
	return Config{
		Label:         label,
		AmplitudeMin:  0.1,
		AmplitudeMax:  0.9,
		Coef:          1,
		Power:         -0.9,
		WarmupQueries: 10,
		MaxQueries:    1e5,
		Growth:        1.6,
		Jitter:        0.3,
		Adaptive:      true,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch {
	case c.Label == "":
		return core.NewConfigurationError("label", "cannot be empty")
	case !(c.AmplitudeMin >= 0) || !(c.AmplitudeMax <= 1) || c.AmplitudeMin > c.AmplitudeMax:
		return core.NewConfigurationError("amplitude", fmt.Sprintf("range [%g, %g] must lie in [0, 1]", c.AmplitudeMin, c.AmplitudeMax))
	case !(c.Coef > 0):
		return core.NewConfigurationError("coef", "must be > 0")
	case !(c.WarmupQueries >= 1):
		return core.NewConfigurationError("warmup_queries", "must be >= 1")
	case !(c.MaxQueries >= c.WarmupQueries):
		return core.NewConfigurationError("max_queries", "must be >= warmup_queries")
	case !(c.Growth > 1):
		return core.NewConfigurationError("growth", "must be > 1")
	case c.Jitter < 0 || c.Jitter >= 1:
		return core.NewConfigurationError("jitter", "must be in [0, 1)")
	}
	return nil
}

// PowerLaw is a synthetic estimator.
type PowerLaw struct {
	cfg Config
}

var _ ports.ParameterizedEstimator = (*PowerLaw)(nil)

// NewPowerLaw creates a synthetic estimator.
func NewPowerLaw(cfg Config) (*PowerLaw, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &PowerLaw{cfg: cfg}, nil
}

func (p *PowerLaw) Label() string { return p.cfg.Label }

// Params lists the settings that determine trial output.
func (p *PowerLaw) Params() map[string]string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	return map[string]string{
		"amplitude_min":  f(p.cfg.AmplitudeMin),
		"amplitude_max":  f(p.cfg.AmplitudeMax),
		"coef":           f(p.cfg.Coef),
		"power":          f(p.cfg.Power),
		"warmup_queries": f(p.cfg.WarmupQueries),
		"max_queries":    f(p.cfg.MaxQueries),
		"growth":         f(p.cfg.Growth),
		"jitter":         f(p.cfg.Jitter),
		"adaptive":       strconv.FormatBool(p.cfg.Adaptive),
	}
}

// Trial simulates one run: it draws a true amplitude, then produces noisy
// estimates at increasing query counts until MaxQueries is exceeded.
func (p *PowerLaw) Trial(index int, rng *rand.Rand) (run.Trace, error) {
	if rng == nil {
		return run.Trace{}, fmt.Errorf("trial %d: nil random source", index)
	}
	cfg := p.cfg

	amplitude := cfg.AmplitudeMin
	if cfg.AmplitudeMax > cfg.AmplitudeMin {
		amplitude = distuv.Uniform{Min: cfg.AmplitudeMin, Max: cfg.AmplitudeMax, Src: rng}.Rand()
	}
	growth := distuv.Uniform{Min: 1 - cfg.Jitter, Max: 1 + cfg.Jitter, Src: rng}
	spread := distuv.Uniform{Min: 0.8, Max: 1.2, Src: rng}

	var tr run.Trace
	for q, k := cfg.WarmupQueries, 0; q <= cfg.MaxQueries; k++ {
		queries := math.Round(q)
		sigma := cfg.Coef * math.Pow(queries, cfg.Power)

		noise := distuv.Normal{Mu: 0, Sigma: sigma, Src: rng}
		estimate := math.Min(1, math.Max(0, amplitude+noise.Rand()))
		diff := estimate - amplitude

		tr.Queries = append(tr.Queries, queries)
		tr.SquaredErrors = append(tr.SquaredErrors, diff*diff)
		tr.Stds = append(tr.Stds, sigma*spread.Rand())

		if cfg.Adaptive && cfg.Jitter > 0 {
			q = math.Max(q+1, q*cfg.Growth*growth.Rand())
		} else {
			q = cfg.WarmupQueries * math.Pow(cfg.Growth, float64(k+1))
		}
	}
	return tr, nil
}
