package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"qaebench/adapters/excel"
	"qaebench/adapters/stats/aggregate"
	"qaebench/app"
	"qaebench/domain/core"
	"qaebench/domain/curve"
	"qaebench/domain/estimation"
	"qaebench/internal/config"
	"qaebench/internal/container"
	"qaebench/internal/errors"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:          "qaebench",
		Short:        "Simulate QAE estimators and aggregate their error curves",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newSimulateCmd(),
		newAggregateCmd(),
		newJoinCmd(),
		newShowCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// aggregationFlags are the aggregation settings shared by several commands.
// Unset flags keep the configured values.
type aggregationFlags struct {
	strategy   string
	nbins      int
	ypower     float64
	logDomain  bool
	scale      string
	fixedPoint string
}

func (f *aggregationFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.strategy, "strategy", "", "Aggregation strategy (y_mean, y_median, slope_mean, slope_median, fit, spline)")
	cmd.Flags().IntVar(&f.nbins, "nbins", 0, "Number of bins")
	cmd.Flags().Float64Var(&f.ypower, "ypower", 0, "Power applied to per-bin y aggregates")
	cmd.Flags().BoolVar(&f.logDomain, "logdomain", false, "Aggregate x in the log domain")
	cmd.Flags().StringVar(&f.scale, "scale", "", "Bin scale (log or linear)")
	cmd.Flags().StringVar(&f.fixedPoint, "fixed-point", "", "Fixed point \"x,y\" for slope strategies")
}

func (f *aggregationFlags) apply(cmd *cobra.Command, opts aggregate.Options) (aggregate.Options, error) {
	if cmd.Flags().Changed("strategy") {
		s, err := curve.ParseStrategy(f.strategy)
		if err != nil {
			return opts, err
		}
		opts.Strategy = s
	}
	if cmd.Flags().Changed("nbins") {
		opts.NBins = f.nbins
	}
	if cmd.Flags().Changed("ypower") {
		opts.YPower = f.ypower
	}
	if cmd.Flags().Changed("logdomain") {
		opts.LogDomain = f.logDomain
	}
	if cmd.Flags().Changed("scale") {
		s, err := curve.ParseScale(f.scale)
		if err != nil {
			return opts, err
		}
		opts.Scale = s
	}
	if cmd.Flags().Changed("fixed-point") {
		fp, err := config.ParseFixedPoint(f.fixedPoint)
		if err != nil {
			return opts, err
		}
		opts.FixedPoint = fp
	}
	return opts, aggregate.Validate(opts)
}

func loadContainer() (*container.Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return container.New(cfg)
}

func newSimulateCmd() *cobra.Command {
	var (
		agg     aggregationFlags
		trials  int
		seed    int64
		label   string
		save    bool
		curves  string
		replace bool
		dump    string
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run estimator trials and record the aggregated error curve",
		Long: `Run trials of the synthetic estimator, aggregate the scatter of squared
errors into a curve and add it to the curves file.

Interrupting with Ctrl-C stops after the current trial and keeps the trials
completed so far.

Example: qaebench simulate --trials 200 --label BAE --strategy y_median --save`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadContainer()
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background())

			if cmd.Flags().Changed("trials") {
				c.Config.Experiment.Trials = trials
			}
			if cmd.Flags().Changed("seed") {
				c.Config.Experiment.Seed = seed
				c.Runner = app.NewExperimentRunner(c.RNG, c.Logger, seed)
			}
			if cmd.Flags().Changed("label") {
				c.Config.Experiment.Label = label
			}
			if curves == "" {
				curves = c.Config.Paths.CurvesFile
			}
			opts, err := agg.apply(cmd, c.Config.Aggregation.Options())
			if err != nil {
				return err
			}
			return runSimulate(cmd.Context(), c, opts, simulateOutputs{save: save, curves: curves, replace: replace, resultsJSON: dump})
		},
	}

	agg.register(cmd)
	cmd.Flags().IntVar(&trials, "trials", 100, "Number of trials")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Base random seed")
	cmd.Flags().StringVar(&label, "label", "synthetic", "Curve label")
	cmd.Flags().BoolVar(&save, "save", false, "Store the run in the database")
	cmd.Flags().StringVar(&curves, "curves", "", "Curves file to update (.json or .xlsx)")
	cmd.Flags().BoolVar(&replace, "replace", false, "Replace an existing curve with the same label")
	cmd.Flags().StringVar(&dump, "results-json", "", "Also write the raw run results to this JSON file")

	return cmd
}

// simulateOutputs selects where a simulation is recorded.
type simulateOutputs struct {
	save        bool
	curves      string
	replace     bool
	resultsJSON string
}

func runSimulate(ctx context.Context, c *container.Container, opts aggregate.Options, out simulateOutputs) error {
	est, err := c.Estimator()
	if err != nil {
		return err
	}

	fmt.Printf("Running %d trials of %s (seed %d)...\n", c.Config.Experiment.Trials, est.Label(), c.Config.Experiment.Seed)
	results, err := c.Runner.Run(ctx, est, c.Config.Experiment.Trials)
	if results != nil && results.Interrupted() {
		fmt.Printf("Interrupted: %s\n", results.Summary())
	}
	if err != nil {
		return fmt.Errorf("simulation failed: %w", err)
	}

	report, err := app.BuildReport(results)
	if err != nil {
		return err
	}
	fmt.Println()
	fmt.Print(report.Markdown())

	// work past an interrupt is short and keeps the partial results
	ctx = context.WithoutCancel(ctx)

	if out.resultsJSON != "" {
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(out.resultsJSON, data, 0o644); err != nil {
			return fmt.Errorf("failed to write results: %w", err)
		}
		fmt.Printf("\nWrote raw results to %s\n", out.resultsJSON)
	}

	if out.save {
		if err := c.Connect(ctx); err != nil {
			return err
		}
		if err := c.ResultsRepo.SaveRun(ctx, results); err != nil {
			return errors.DatabaseError(err, "failed to save run")
		}
		fmt.Printf("\nSaved run %s\n", results.RunID)
	}

	curveOut, res, err := c.Processing.AggregateRun(results, opts)
	if err != nil {
		return fmt.Errorf("aggregation failed: %w", err)
	}
	if d := res.Dropped; d.Total() > 0 {
		fmt.Printf("Dropped %d samples, %d buckets, %d outside range\n", d.Samples, d.Buckets, d.Outside)
	}

	curvesPath := out.curves
	reg, err := loadOrEmpty(ctx, c, curvesPath)
	if err != nil {
		return err
	}
	if out.replace {
		reg = without(reg, curveOut.Label)
	}
	if reg, err = reg.AddCurve(curveOut); err != nil {
		return fmt.Errorf("%w (use --replace to overwrite)", err)
	}
	if err := container.StoreFor(curvesPath).Save(ctx, curvesPath, reg); err != nil {
		return err
	}
	fmt.Printf("Stored %d-point %s curve %q in %s\n", len(curveOut.X), res.Strategy, curveOut.Label, curvesPath)
	return nil
}

func newAggregateCmd() *cobra.Command {
	var (
		agg         aggregationFlags
		stat        string
		defaultMode string
		modes       map[string]string
		out         string
	)

	cmd := &cobra.Command{
		Use:   "aggregate [raw-file]",
		Short: "Process raw per-run samples into plottable curves",
		Long: `Read raw samples (csv or xlsx with label,x,y[,std] columns) and reduce
every label to a curve. Labels are processed with the default mode unless
overridden with --mode-for.

Modes: none (values used as is), averaging (identical x values averaged),
binning (y_<stat> over bins).

Example: qaebench aggregate raw.csv --stat median --mode-for canonical=averaging --out curves.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("strategy") {
				return core.NewConfigurationError("strategy", "aggregate always bins with y_<stat>; use --stat")
			}
			c, err := loadContainer()
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background())

			if !cmd.Flags().Changed("stat") {
				stat = c.Config.Aggregation.Stat
			}
			if !cmd.Flags().Changed("mode") {
				defaultMode = c.Config.Processing.DefaultMode
			}
			if out == "" {
				out = c.Config.Paths.CurvesFile
			}

			req := app.ProcessRequest{Stat: stat, Modes: map[string]app.ProcessingMode{}}
			if req.DefaultMode, err = app.ParseProcessingMode(defaultMode); err != nil {
				return err
			}
			for label, raw := range modes {
				m, err := app.ParseProcessingMode(raw)
				if err != nil {
					return err
				}
				req.Modes[label] = m
			}
			opts := c.Config.Aggregation.Options()
			opts.Strategy = curve.YMean
			if req.Binning, err = agg.apply(cmd, opts); err != nil {
				return err
			}
			return runAggregate(cmd.Context(), c, args[0], req, out)
		},
	}

	agg.register(cmd)
	_ = cmd.Flags().MarkHidden("strategy")
	cmd.Flags().StringVar(&stat, "stat", "mean", "Statistic: mean or median")
	cmd.Flags().StringVar(&defaultMode, "mode", "binning", "Default processing mode")
	cmd.Flags().StringToStringVar(&modes, "mode-for", nil, "Per-label processing mode, e.g. canonical=averaging")
	cmd.Flags().StringVar(&out, "out", "", "Output curves file (.json or .xlsx)")

	return cmd
}

func runAggregate(ctx context.Context, c *container.Container, rawPath string, req app.ProcessRequest, out string) error {
	raw, err := excel.ReadRawSamples(rawPath)
	if err != nil {
		return err
	}
	fmt.Printf("Read %d labels from %s\n", raw.Len(), rawPath)

	processed, err := c.Processing.Process(ctx, req, raw)
	if err != nil {
		return err
	}
	for _, cv := range processed.Curves() {
		fmt.Printf("  %-20s %4d points\n", cv.Label, len(cv.X))
	}

	if err := container.StoreFor(out).Save(ctx, out, processed); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", out)
	return nil
}

func newJoinCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "join [curves-file...]",
		Short: "Join curve files into one, keeping label order",
		Long: `Join two or more curves files. Labels keep their order, file by file.
A label present in more than one file is an error.

Example: qaebench join canonical.json adaptive.xlsx --out all.json`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				return fmt.Errorf("--out is required")
			}
			return runJoin(cmd.Context(), args, out)
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "Output curves file (.json or .xlsx)")

	return cmd
}

func runJoin(ctx context.Context, paths []string, out string) error {
	regs := make([]estimation.Registry, 0, len(paths))
	for _, path := range paths {
		reg, err := container.StoreFor(path).Load(ctx, path)
		if err != nil {
			return err
		}
		regs = append(regs, reg)
	}

	joined, err := estimation.Join(regs...)
	if err != nil {
		return err
	}
	if err := container.StoreFor(out).Save(ctx, out, joined); err != nil {
		return err
	}
	fmt.Printf("Joined %d curves into %s: %s\n", joined.Len(), out, strings.Join(joined.Labels(), ", "))
	return nil
}

func newShowCmd() *cobra.Command {
	var runID string

	cmd := &cobra.Command{
		Use:   "show [curves-file]",
		Short: "Print the curves of a file or the report of a stored run",
		Long: `Print every curve of a curves file, or with --run the report of a stored run.

Example: qaebench show curves.json
         qaebench show --run 01890a5d-ac96-774b-bcce-b302099a8057`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if runID != "" {
				id, err := core.ParseRunID(runID)
				if err != nil {
					return err
				}
				return runShowRun(cmd.Context(), id)
			}
			path := ""
			if len(args) == 1 {
				path = args[0]
			} else {
				c, err := loadContainer()
				if err != nil {
					return err
				}
				path = c.Config.Paths.CurvesFile
			}
			return runShowCurves(cmd.Context(), path)
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "Stored run ID")

	return cmd
}

func runShowCurves(ctx context.Context, path string) error {
	reg, err := container.StoreFor(path).Load(ctx, path)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d curves\n", path, reg.Len())
	for _, c := range reg.Curves() {
		fmt.Printf("\n%s (%d points)\n", c.Label, len(c.X))
		for i := range c.X {
			if c.HasStds() {
				fmt.Printf("  x=%-12.6g error=%-12.6g std=%.6g\n", c.X[i], c.Errors[i], c.Stds[i])
			} else {
				fmt.Printf("  x=%-12.6g error=%.6g\n", c.X[i], c.Errors[i])
			}
		}
	}
	return nil
}

func runShowRun(ctx context.Context, id core.RunID) error {
	c, err := loadContainer()
	if err != nil {
		return err
	}
	defer c.Shutdown(context.Background())
	if err := c.Connect(ctx); err != nil {
		return err
	}

	results, err := c.ResultsRepo.GetRun(ctx, id)
	if err != nil {
		return err
	}
	report, err := app.BuildReport(results)
	if err != nil {
		return err
	}
	fmt.Print(report.Markdown())
	return nil
}

func loadOrEmpty(ctx context.Context, c *container.Container, path string) (estimation.Registry, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return estimation.NewRegistry(), nil
	}
	reg, err := container.StoreFor(path).Load(ctx, path)
	if err != nil {
		c.Logger.Error("Failed to load %s: %v", path, err)
		return estimation.Registry{}, err
	}
	return reg, nil
}

// without returns reg minus the curve stored under label.
func without(reg estimation.Registry, label string) estimation.Registry {
	out := estimation.NewRegistry()
	for _, c := range reg.Curves() {
		if c.Label == label {
			continue
		}
		out, _ = out.AddCurve(c)
	}
	return out
}
