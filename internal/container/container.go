package container

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"qaebench/adapters/estimator/synthetic"
	"qaebench/adapters/excel"
	"qaebench/adapters/jsonstore"
	"qaebench/adapters/rng"
	"qaebench/adapters/sqlstore"
	"qaebench/adapters/stats/aggregate"
	"qaebench/app"
	"qaebench/internal"
	"qaebench/internal/config"
	"qaebench/internal/errors"
	"qaebench/internal/migration"
	"qaebench/ports"

	"github.com/jmoiron/sqlx"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config
	Logger *internal.Logger

	// Infrastructure
	DB *sqlx.DB

	// Repositories (data access layer)
	ResultsRepo   ports.ResultsRepository
	RegistryStore ports.RegistryStore

	// Pipeline
	RNG        ports.RNGPort
	Aggregator *aggregate.Aggregator
	Runner     *app.ExperimentRunner
	Processing *app.ProcessingService
}

// New creates the database-independent part of the container
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	logger := internal.NewLogger(internal.ParseLogLevel(cfg.LogLevel))
	rngAdapter := rng.NewAdapter()
	aggregator := aggregate.NewAggregator(logger)

	c := &Container{
		Config:        cfg,
		Logger:        logger,
		RegistryStore: StoreFor(cfg.Paths.CurvesFile),
		RNG:           rngAdapter,
		Aggregator:    aggregator,
		Runner:        app.NewExperimentRunner(rngAdapter, logger, cfg.Experiment.Seed),
		Processing:    app.NewProcessingService(aggregator, logger, cfg.Processing.Concurrency),
	}
	return c, nil
}

// Connect opens the configured database, runs migrations and initializes
// the repositories.
func (c *Container) Connect(ctx context.Context) error {
	db, err := sqlstore.Connect(ctx, c.Config.Database.Driver, c.Config.Database.URL)
	if err != nil {
		return errors.DatabaseError(err, "failed to connect to database")
	}
	if err := migration.NewRunner().Run(ctx, db); err != nil {
		db.Close()
		return errors.Wrap(err, "database migration failed")
	}
	return c.InitWithDatabase(db)
}

// InitWithDatabase initializes components that require database access
func (c *Container) InitWithDatabase(db *sqlx.DB) error {
	if db == nil {
		return fmt.Errorf("database connection cannot be nil")
	}

	c.DB = db
	if err := db.Ping(); err != nil {
		return errors.DatabaseError(err, "database connection test failed")
	}

	c.ResultsRepo = sqlstore.NewResultsRepository(db)
	c.Logger.Debug("Container initialized with %s database", db.DriverName())
	return nil
}

// Estimator builds the configured synthetic estimator.
func (c *Container) Estimator() (*synthetic.PowerLaw, error) {
	return synthetic.NewPowerLaw(c.Config.Experiment.Estimator())
}

// StoreFor picks the registry store matching a file extension: xlsx
// workbooks use the Excel store, everything else the JSON store.
func StoreFor(path string) ports.RegistryStore {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return excel.NewRegistryStore()
	}
	return jsonstore.NewStore()
}

// Shutdown closes the database connection
func (c *Container) Shutdown(ctx context.Context) error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
