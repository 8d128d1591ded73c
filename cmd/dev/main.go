package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"qaebench/adapters/estimator/synthetic"
	"qaebench/adapters/jsonstore"
	"qaebench/adapters/rng"
	"qaebench/adapters/sqlstore"
	"qaebench/adapters/stats/aggregate"
	"qaebench/app"
	"qaebench/domain/core"
	"qaebench/domain/curve"
	"qaebench/domain/estimation"
	"qaebench/domain/run"
	"qaebench/internal"
	"qaebench/internal/errors"
	"qaebench/internal/migration"
	"qaebench/internal/testkit"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"
)

var dbPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "qaebench-dev",
		Short: "qaebench development tools",
	}
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "./dev.db", "SQLite database file")

	rootCmd.AddCommand(
		newSeedCmd(),
		newSmokeTestCmd(),
		newDeterminismTestCmd(),
		newMigrateCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openDevDB(ctx context.Context) (*sqlx.DB, error) {
	db, err := sqlstore.Connect(ctx, sqlstore.DriverSQLite, dbPath)
	if err != nil {
		return nil, err
	}
	if err := migration.NewRunner().Run(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func newSeedCmd() *cobra.Command {
	var trials int
	var curvesPath string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Store synthetic runs and their curves for development",
		RunE: func(cmd *cobra.Command, args []string) error {
			return generateSeedData(cmd.Context(), trials, curvesPath)
		},
	}
	cmd.Flags().IntVar(&trials, "trials", 50, "Trials per estimator")
	cmd.Flags().StringVar(&curvesPath, "curves", "./dev_curves.json", "Curves file to write")
	return cmd
}

// seedEstimators are an adaptive and a fixed-schedule estimator.
func seedEstimators() []synthetic.Config {
	adaptive := synthetic.DefaultConfig("BAE")

	canonical := synthetic.DefaultConfig("canonical")
	canonical.Adaptive = false
	canonical.Power = -1
	canonical.Coef = 1.5

	return []synthetic.Config{adaptive, canonical}
}

func generateSeedData(ctx context.Context, trials int, curvesPath string) error {
	fmt.Println("Generating seed data...")

	db, err := openDevDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	repo := sqlstore.NewResultsRepository(db)

	logger := internal.NewDefaultLogger()
	runner := app.NewExperimentRunner(rng.NewAdapter(), logger, 42)
	processing := app.NewProcessingService(aggregate.NewAggregator(logger), logger, 2)

	reg := estimation.NewRegistry()
	for _, cfg := range seedEstimators() {
		est, err := synthetic.NewPowerLaw(cfg)
		if err != nil {
			return err
		}
		results, err := runner.Run(ctx, est, trials)
		if err != nil {
			return errors.Wrapf(err, "failed to run %s", cfg.Label)
		}
		if err := repo.SaveRun(ctx, results); err != nil {
			return errors.DatabaseError(err, "failed to save "+cfg.Label)
		}
		fmt.Printf("Stored run %s (%s)\n", results.RunID, cfg.Label)

		c, _, err := processing.AggregateRun(results, aggregate.DefaultOptions(curve.YMedian))
		if err != nil {
			return err
		}
		if reg, err = reg.AddCurve(c); err != nil {
			return err
		}
	}

	if err := jsonstore.NewStore().Save(ctx, curvesPath, reg); err != nil {
		return err
	}
	fmt.Printf("Wrote %d curves to %s\n", reg.Len(), curvesPath)
	fmt.Println("Seed data generation completed successfully")
	return nil
}

func newSmokeTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "smoke",
		Short: "Run smoke tests",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSmokeTests(cmd.Context())
		},
	}
	return cmd
}

func runSmokeTests(ctx context.Context) error {
	fmt.Println("Running smoke tests...")

	logger := internal.NewLoggerTo(io.Discard, internal.LogLevelError)
	aggregator := aggregate.NewAggregator(logger)
	points, err := testkit.GeneratePoints(testkit.DefaultPointsConfig())
	if err != nil {
		return err
	}
	fixed := &curve.FixedPoint{X: 1e3, Y: 0.03}

	tests := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"strategies", func(ctx context.Context) error {
			for _, s := range curve.Strategies() {
				opts := aggregate.DefaultOptions(s)
				opts.NBins = 10
				if s.NeedsFixedPoint() {
					opts.FixedPoint = fixed
				}
				res, err := aggregator.Aggregate(points, opts)
				if err != nil {
					return fmt.Errorf("%s: %w", s, err)
				}
				if res.Curve.Len() == 0 {
					return fmt.Errorf("%s: empty curve", s)
				}
			}
			return nil
		}},
		{"registry_round_trip", func(ctx context.Context) error {
			reg, err := testkit.SampleRegistry("A", "B")
			if err != nil {
				return err
			}
			path := filepath.Join(os.TempDir(), fmt.Sprintf("qaebench-smoke-%d.json", os.Getpid()))
			defer os.Remove(path)
			store := jsonstore.NewStore()
			if err := store.Save(ctx, path, reg); err != nil {
				return err
			}
			loaded, err := store.Load(ctx, path)
			if err != nil {
				return err
			}
			if !slices.Equal(loaded.Labels(), reg.Labels()) {
				return fmt.Errorf("labels differ: %v vs %v", loaded.Labels(), reg.Labels())
			}
			return nil
		}},
		{"run_store", func(ctx context.Context) error {
			db, err := sqlstore.Connect(ctx, sqlstore.DriverSQLite, ":memory:")
			if err != nil {
				return err
			}
			defer db.Close()
			if err := migration.NewRunner().Run(ctx, db); err != nil {
				return err
			}
			est, err := synthetic.NewPowerLaw(synthetic.DefaultConfig("smoke"))
			if err != nil {
				return err
			}
			results, err := app.NewExperimentRunner(rng.NewAdapter(), logger, 1).Run(ctx, est, 5)
			if err != nil {
				return err
			}
			repo := sqlstore.NewResultsRepository(db)
			if err := repo.SaveRun(ctx, results); err != nil {
				return err
			}
			loaded, err := repo.GetRun(ctx, results.RunID)
			if err != nil {
				return err
			}
			return compareRuns(results, loaded)
		}},
	}

	passed := 0
	for _, test := range tests {
		fmt.Printf("  Running %s...", test.name)
		if err := test.fn(ctx); err != nil {
			fmt.Printf(" FAILED: %v\n", err)
		} else {
			fmt.Println(" PASSED")
			passed++
		}
	}

	fmt.Printf("\nSmoke tests: %d/%d passed\n", passed, len(tests))
	if passed < len(tests) {
		return fmt.Errorf("some smoke tests failed")
	}
	return nil
}

func newDeterminismTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "determinism [run-id]",
		Short: "Replay a stored seed run and compare the traces",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID, err := core.ParseRunID(args[0])
			if err != nil {
				return err
			}
			return testDeterminism(cmd.Context(), runID)
		},
	}
	return cmd
}

func testDeterminism(ctx context.Context, runID core.RunID) error {
	fmt.Printf("Testing determinism for run %s...\n", runID)

	rngAdapter := rng.NewAdapter()
	probe, err := rngAdapter.Draws(ctx, "determinism", 42, 8)
	if err != nil {
		return err
	}
	if err := rngAdapter.ValidateSeed(ctx, "determinism", 42, probe); err != nil {
		return fmt.Errorf("random streams are not reproducible: %w", err)
	}

	db, err := openDevDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	original, err := sqlstore.NewResultsRepository(db).GetRun(ctx, runID)
	if err != nil {
		return errors.DatabaseError(err, "failed to get original run")
	}

	idx := slices.IndexFunc(seedEstimators(), func(c synthetic.Config) bool { return c.Label == original.Label })
	if idx < 0 {
		return fmt.Errorf("run %s was not produced by a seed estimator (label %q)", runID, original.Label)
	}
	est, err := synthetic.NewPowerLaw(seedEstimators()[idx])
	if err != nil {
		return err
	}

	fmt.Println("Re-running with same fingerprint...")
	logger := internal.NewLoggerTo(io.Discard, internal.LogLevelError)
	replay, err := app.NewExperimentRunner(rngAdapter, logger, original.Fingerprint.Seed).Run(ctx, est, original.Requested)
	if err != nil {
		return fmt.Errorf("failed to replay run: %w", err)
	}
	if !original.Fingerprint.Matches(replay.Fingerprint) {
		return fmt.Errorf("%w: estimator configuration changed since the run was stored", core.ErrSeedMismatch)
	}

	if err := compareRuns(original, replay); err != nil {
		return fmt.Errorf("determinism test failed: %w", err)
	}

	fmt.Println("✓ Determinism test passed - results identical")
	return nil
}

// compareRuns checks that replay reproduces every trial of original.
// replay may hold more trials when original was interrupted.
func compareRuns(original, replay *run.Results) error {
	if replay.Completed < original.Completed {
		return fmt.Errorf("replay completed %d trials, original %d", replay.Completed, original.Completed)
	}
	for i := 0; i < original.Completed; i++ {
		want, err := original.Trial(i)
		if err != nil {
			return err
		}
		got, err := replay.Trial(i)
		if err != nil {
			return err
		}
		if !slices.Equal(want.Queries, got.Queries) ||
			!slices.Equal(want.SquaredErrors, got.SquaredErrors) ||
			!slices.Equal(want.Stds, got.Stds) {
			return fmt.Errorf("trial %d differs", i+1)
		}
	}
	return nil
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate [up|status]",
		Short: "Run database migrations",
		Long: `Run database schema migrations on the development database.

Commands:
  up      Apply the schema
  status  Show applied schema versions`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrations(cmd.Context(), args[0])
		},
	}
	return cmd
}

func runMigrations(ctx context.Context, action string) error {
	fmt.Printf("Running migrations: %s\n", action)

	db, err := sqlstore.Connect(ctx, sqlstore.DriverSQLite, dbPath)
	if err != nil {
		return errors.DatabaseError(err, "failed to open database")
	}
	defer db.Close()

	migrator := migration.NewRunner()
	switch action {
	case "up":
		if err := migrator.Run(ctx, db); err != nil {
			return err
		}
		fmt.Printf("Schema at version %s\n", migrator.Version())
		return nil
	case "status":
		versions, err := migration.AppliedVersions(ctx, db)
		if err != nil {
			return err
		}
		if len(versions) == 0 {
			fmt.Println("No migrations applied")
		}
		for _, v := range versions {
			fmt.Printf("  applied %s\n", v)
		}
		return nil
	default:
		return fmt.Errorf("unknown migration action: %s", action)
	}
}
