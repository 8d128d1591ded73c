package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"qaebench/adapters/stats/aggregate"
	"qaebench/domain/core"
	"qaebench/domain/curve"
	"qaebench/domain/estimation"
	"qaebench/domain/run"
)

// ProcessingMode selects how a raw curve is turned into a plottable one.
type ProcessingMode string

const (
	ModeNone      ProcessingMode = "none"      // already one value per x
	ModeAveraging ProcessingMode = "averaging" // aligned query schedule across runs
	ModeBinning   ProcessingMode = "binning"   // adaptive, unaligned query counts
)

// ParseProcessingMode maps a mode name to its value.
func ParseProcessingMode(s string) (ProcessingMode, error) {
	switch m := ProcessingMode(s); m {
	case ModeNone, ModeAveraging, ModeBinning:
		return m, nil
	}
	return "", core.NewConfigurationError("processing", fmt.Sprintf("unknown mode %q", s))
}

// ProcessRequest configures label processing.
type ProcessRequest struct {
	Stat        string                    // "mean" or "median"
	Modes       map[string]ProcessingMode // per label; missing labels use DefaultMode
	DefaultMode ProcessingMode
	Binning     aggregate.Options // NBins, Range, Scale and LogDomain used by binning
}

// ProcessingService reduces raw per-label scatter into aggregated curves.
type ProcessingService struct {
	aggregator  *aggregate.Aggregator
	logger      Logger
	concurrency int
}

// NewProcessingService creates a service processing up to concurrency labels at once.
func NewProcessingService(aggregator *aggregate.Aggregator, logger Logger, concurrency int) *ProcessingService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &ProcessingService{
		aggregator:  aggregator,
		logger:      logger,
		concurrency: concurrency,
	}
}

// Process processes every curve of every raw registry and joins the results
// in input order. Labels repeated across inputs fail with core.ErrDuplicateLabel.
func (s *ProcessingService) Process(ctx context.Context, req ProcessRequest, raws ...estimation.Registry) (estimation.Registry, error) {
	if _, err := aggregate.StatisticFor(req.Stat); err != nil {
		return estimation.Registry{}, err
	}
	if req.DefaultMode == "" {
		req.DefaultMode = ModeBinning
	}

	var curves []estimation.Curve
	for _, raw := range raws {
		curves = append(curves, raw.Curves()...)
	}

	processed := make([]estimation.Curve, len(curves))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, c := range curves {
		mode := req.DefaultMode
		if m, ok := req.Modes[c.Label]; ok {
			mode = m
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := s.ProcessCurve(c, mode, req.Stat, req.Binning)
			if err != nil {
				return fmt.Errorf("processing %q: %w", c.Label, err)
			}
			processed[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return estimation.Registry{}, err
	}

	out := estimation.NewRegistry()
	for _, c := range processed {
		var err error
		if out, err = out.AddCurve(c); err != nil {
			return estimation.Registry{}, err
		}
	}
	s.logger.Info("Processed %d curves (%s)", out.Len(), req.Stat)
	return out, nil
}

// ProcessCurve reduces one raw curve. Errors are reported square-rooted;
// stds are reduced on the same grid without a power.
func (s *ProcessingService) ProcessCurve(c estimation.Curve, mode ProcessingMode, stat string, binning aggregate.Options) (estimation.Curve, error) {
	switch mode {
	case ModeNone:
		return c.Clone(), nil
	case ModeAveraging:
		return s.average(c, stat)
	case ModeBinning:
		return s.bin(c, stat, binning)
	}
	return estimation.Curve{}, core.NewConfigurationError("processing", fmt.Sprintf("unknown mode %q", mode))
}

func (s *ProcessingService) average(c estimation.Curve, stat string) (estimation.Curve, error) {
	fn, err := aggregate.StatisticFor(stat)
	if err != nil {
		return estimation.Curve{}, err
	}
	errs, stds, err := pointSets(c)
	if err != nil {
		return estimation.Curve{}, err
	}

	errCurve, err := aggregate.AverageByX(errs, fn, aggregate.DefaultYPower)
	if err != nil {
		return estimation.Curve{}, err
	}
	out := estimation.Curve{Label: c.Label, X: errCurve.Xs(), Errors: errCurve.Ys()}
	if stds != nil {
		stdCurve, err := aggregate.AverageByX(*stds, fn, 1)
		if err != nil {
			return estimation.Curve{}, err
		}
		if stdCurve.Len() == errCurve.Len() {
			out.Stds = stdCurve.Ys()
		}
	}
	return out, nil
}

func (s *ProcessingService) bin(c estimation.Curve, stat string, opts aggregate.Options) (estimation.Curve, error) {
	strategy, err := aggregate.YStrategyFor(stat)
	if err != nil {
		return estimation.Curve{}, err
	}
	opts.Strategy = strategy
	opts.FixedPoint = nil
	opts.AddAfter = nil
	opts.YPower = aggregate.DefaultYPower
	if opts.NBins == 0 {
		opts.NBins = aggregate.DefaultNBins
	}

	errs, stds, err := pointSets(c)
	if err != nil {
		return estimation.Curve{}, err
	}
	errRes, err := s.aggregator.Aggregate(errs, opts)
	if err != nil {
		return estimation.Curve{}, err
	}
	out := estimation.Curve{Label: c.Label, X: errRes.Curve.Xs(), Errors: errRes.Curve.Ys()}

	if stds != nil {
		opts.YPower = 1
		stdRes, err := s.aggregator.Aggregate(*stds, opts)
		if err != nil {
			return estimation.Curve{}, err
		}
		// both reductions see the same x, so the grids only differ if a bucket was dropped
		if stdRes.Curve.Len() == errRes.Curve.Len() {
			out.Stds = stdRes.Curve.Ys()
		} else {
			s.logger.Warn("Dropping stds of %q: %d std points vs %d error points",
				c.Label, stdRes.Curve.Len(), errRes.Curve.Len())
		}
	}
	return out, nil
}

// AggregateRun reduces a run's flattened scatter with opts. Stds are
// attached only for y_* strategies, whose x grid they share.
func (s *ProcessingService) AggregateRun(results *run.Results, opts aggregate.Options) (estimation.Curve, *aggregate.Result, error) {
	if err := aggregate.Validate(opts); err != nil {
		return estimation.Curve{}, nil, err
	}
	ps, err := results.PointSet()
	if err != nil {
		return estimation.Curve{}, nil, err
	}
	res, err := s.aggregator.Aggregate(ps, opts)
	if err != nil {
		return estimation.Curve{}, nil, err
	}
	out := estimation.Curve{Label: results.Label, X: res.Curve.Xs(), Errors: res.Curve.Ys()}

	if opts.Strategy == curve.YMean || opts.Strategy == curve.YMedian {
		stdSet, err := ps.WithAuxAsY()
		if err != nil {
			return estimation.Curve{}, nil, err
		}
		stdOpts := opts
		stdOpts.YPower = 1
		stdOpts.AddAfter = nil
		stdRes, err := s.aggregator.Aggregate(stdSet, stdOpts)
		if err != nil {
			return estimation.Curve{}, nil, err
		}
		if stdRes.Curve.Len() == res.Curve.Len() && len(opts.AddAfter) == 0 {
			out.Stds = stdRes.Curve.Ys()
		}
	}
	return out, res, nil
}

// pointSets splits a curve into an error point set and, when present, a std point set.
func pointSets(c estimation.Curve) (curve.PointSet, *curve.PointSet, error) {
	errs, err := curve.NewPointSet(c.X, c.Errors, nil)
	if err != nil {
		return curve.PointSet{}, nil, err
	}
	if !c.HasStds() {
		return errs, nil, nil
	}
	stds, err := curve.NewPointSet(c.X, c.Stds, nil)
	if err != nil {
		return curve.PointSet{}, nil, err
	}
	return errs, &stds, nil
}
