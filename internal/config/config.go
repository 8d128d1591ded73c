package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"qaebench/adapters/estimator/synthetic"
	"qaebench/adapters/stats/aggregate"
	"qaebench/domain/curve"
	"qaebench/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database    DatabaseConfig
	Server      ServerConfig
	Aggregation AggregationConfig
	Experiment  ExperimentConfig
	Processing  ProcessingConfig
	Paths       PathConfig
	LogLevel    string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver string // "postgres" or "sqlite3"
	URL    string
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port            string
	ShutdownTimeout time.Duration
}

// AggregationConfig holds the default curve aggregation settings
type AggregationConfig struct {
	Strategy   curve.Strategy
	Stat       string // "mean" or "median", used by label processing
	NBins      int
	YPower     float64
	LogDomain  bool
	Scale      curve.Scale
	FixedPoint *curve.FixedPoint
}

// Options converts the settings into aggregator options.
func (a AggregationConfig) Options() aggregate.Options {
	return aggregate.Options{
		Strategy:   a.Strategy,
		FixedPoint: a.FixedPoint,
		NBins:      a.NBins,
		YPower:     a.YPower,
		LogDomain:  a.LogDomain,
		Scale:      a.Scale,
	}
}

// ExperimentConfig holds synthetic experiment settings
type ExperimentConfig struct {
	Label         string
	Trials        int
	Seed          int64
	WarmupQueries float64
	MaxQueries    float64
	Growth        float64
	Jitter        float64
	Coef          float64
	Power         float64
	AmplitudeMin  float64
	AmplitudeMax  float64
	Adaptive      bool
}

// Estimator converts the settings into a synthetic estimator configuration.
func (e ExperimentConfig) Estimator() synthetic.Config {
	return synthetic.Config{
		Label:         e.Label,
		AmplitudeMin:  e.AmplitudeMin,
		AmplitudeMax:  e.AmplitudeMax,
		Coef:          e.Coef,
		Power:         e.Power,
		WarmupQueries: e.WarmupQueries,
		MaxQueries:    e.MaxQueries,
		Growth:        e.Growth,
		Jitter:        e.Jitter,
		Adaptive:      e.Adaptive,
	}
}

// ProcessingConfig holds raw-curve processing settings
type ProcessingConfig struct {
	Concurrency int    // labels processed at once
	DefaultMode string // "none", "averaging" or "binning"
}

// PathConfig holds file system paths
type PathConfig struct {
	CurvesFile string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		LogLevel: getEnvOrDefault("LOG_LEVEL", "INFO"),
		Server:   *loadServerConfig(),
		Paths:    *loadPathConfig(),
	}

	dbConfig, err := loadDatabaseConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load database configuration")
	}
	config.Database = *dbConfig

	aggConfig, err := loadAggregationConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load aggregation configuration")
	}
	config.Aggregation = *aggConfig

	expConfig, err := loadExperimentConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load experiment configuration")
	}
	config.Experiment = *expConfig

	concurrency, err := getEnvIntStrict("QAE_CONCURRENCY", 4)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load processing configuration")
	}
	config.Processing = ProcessingConfig{
		Concurrency: concurrency,
		DefaultMode: getEnvOrDefault("QAE_PROCESSING", "binning"),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadDatabaseConfig() (*DatabaseConfig, error) {
	driver := getEnvOrDefault("DATABASE_DRIVER", "sqlite3")
	url := os.Getenv("DATABASE_URL")

	switch driver {
	case "postgres":
		if url == "" {
			return nil, errors.ConfigInvalid("DATABASE_URL is required for postgres")
		}
	case "sqlite3":
		if url == "" {
			url = "qaebench.db"
		}
	default:
		return nil, errors.ConfigInvalid(fmt.Sprintf("unsupported DATABASE_DRIVER %q", driver))
	}

	return &DatabaseConfig{Driver: driver, URL: url}, nil
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:            getEnvOrDefault("PORT", "8080"),
		ShutdownTimeout: getEnvDurationOrDefault("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func loadPathConfig() *PathConfig {
	return &PathConfig{
		CurvesFile: getEnvOrDefault("CURVES_FILE", "curves.json"),
	}
}

func loadAggregationConfig() (*AggregationConfig, error) {
	strategy, err := curve.ParseStrategy(getEnvOrDefault("QAE_STRATEGY", string(curve.YMean)))
	if err != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid, err)
	}
	scale, err := curve.ParseScale(os.Getenv("QAE_SCALE"))
	if err != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid, err)
	}
	nbins, err := getEnvIntStrict("QAE_NBINS", aggregate.DefaultNBins)
	if err != nil {
		return nil, err
	}
	ypower, err := getEnvFloatStrict("QAE_YPOWER", aggregate.DefaultYPower)
	if err != nil {
		return nil, err
	}

	cfg := &AggregationConfig{
		Strategy:  strategy,
		Stat:      getEnvOrDefault("QAE_STAT", "mean"),
		NBins:     nbins,
		YPower:    ypower,
		LogDomain: getEnvBoolOrDefault("QAE_LOGDOMAIN", false),
		Scale:     scale,
	}
	if raw := os.Getenv("QAE_FIXED_POINT"); raw != "" {
		fp, err := ParseFixedPoint(raw)
		if err != nil {
			return nil, err
		}
		cfg.FixedPoint = fp
	}
	return cfg, nil
}

func loadExperimentConfig() (*ExperimentConfig, error) {
	trials, err := getEnvIntStrict("QAE_TRIALS", 100)
	if err != nil {
		return nil, err
	}
	seed, err := strconv.ParseInt(getEnvOrDefault("QAE_SEED", "42"), 10, 64)
	if err != nil {
		return nil, errors.ConfigInvalid(fmt.Sprintf("QAE_SEED: %v", err))
	}

	defaults := synthetic.DefaultConfig(getEnvOrDefault("QAE_LABEL", "synthetic"))
	cfg := &ExperimentConfig{
		Label:    defaults.Label,
		Trials:   trials,
		Seed:     seed,
		Adaptive: getEnvBoolOrDefault("QAE_ADAPTIVE", defaults.Adaptive),
	}

	floatsByKey := []struct {
		key string
		dst *float64
		def float64
	}{
		{"QAE_WARMUP_QUERIES", &cfg.WarmupQueries, defaults.WarmupQueries},
		{"QAE_MAX_QUERIES", &cfg.MaxQueries, defaults.MaxQueries},
		{"QAE_GROWTH", &cfg.Growth, defaults.Growth},
		{"QAE_JITTER", &cfg.Jitter, defaults.Jitter},
		{"QAE_COEF", &cfg.Coef, defaults.Coef},
		{"QAE_POWER", &cfg.Power, defaults.Power},
		{"QAE_AMPLITUDE_MIN", &cfg.AmplitudeMin, defaults.AmplitudeMin},
		{"QAE_AMPLITUDE_MAX", &cfg.AmplitudeMax, defaults.AmplitudeMax},
	}
	for _, f := range floatsByKey {
		v, err := getEnvFloatStrict(f.key, f.def)
		if err != nil {
			return nil, err
		}
		*f.dst = v
	}
	return cfg, nil
}

// ParseFixedPoint parses "x,y" into a fixed point.
func ParseFixedPoint(raw string) (*curve.FixedPoint, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return nil, errors.ConfigInvalid(fmt.Sprintf("fixed point %q must be \"x,y\"", raw))
	}
	x, errX := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	y, errY := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if errX != nil || errY != nil {
		return nil, errors.ConfigInvalid(fmt.Sprintf("fixed point %q is not numeric", raw))
	}
	fp := &curve.FixedPoint{X: x, Y: y}
	if err := fp.Validate(); err != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid, err)
	}
	return fp, nil
}

func validateConfig(config *Config) error {
	if err := aggregate.Validate(config.Aggregation.Options()); err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, err)
	}
	if _, err := aggregate.StatisticFor(config.Aggregation.Stat); err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, err)
	}
	if config.Experiment.Trials < 0 {
		return errors.ConfigInvalid("QAE_TRIALS cannot be negative")
	}
	if err := config.Experiment.Estimator().Validate(); err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, err)
	}
	if config.Processing.Concurrency < 1 {
		return errors.ConfigInvalid("QAE_CONCURRENCY must be >= 1")
	}
	switch config.Processing.DefaultMode {
	case "none", "averaging", "binning":
	default:
		return errors.ConfigInvalid(fmt.Sprintf("QAE_PROCESSING: unknown mode %q", config.Processing.DefaultMode))
	}
	if config.Server.Port == "" {
		return errors.ConfigInvalid("PORT is required")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntStrict(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.ConfigInvalid(fmt.Sprintf("%s: %q is not an integer", key, value))
	}
	return intValue, nil
}

func getEnvFloatStrict(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, errors.ConfigInvalid(fmt.Sprintf("%s: %q is not a number", key, value))
	}
	return floatValue, nil
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
