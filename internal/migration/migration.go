package migration

import (
	"context"

	"qaebench/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles database schema migrations. The statements stick
// to SQL understood by both PostgreSQL and SQLite.
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createSchemaVersionTable(ctx, db); err != nil {
		return errors.DatabaseError(err, "failed to create schema_version table")
	}

	if err := r.createRunsTable(ctx, db); err != nil {
		return errors.DatabaseError(err, "failed to create runs table")
	}

	if err := r.createRunTrialsTable(ctx, db); err != nil {
		return errors.DatabaseError(err, "failed to create run_trials table")
	}

	if err := r.createRunSamplesTable(ctx, db); err != nil {
		return errors.DatabaseError(err, "failed to create run_samples table")
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.DatabaseError(err, "failed to create indexes")
	}

	if err := r.recordVersion(ctx, db); err != nil {
		return errors.DatabaseError(err, "failed to record schema version")
	}

	return nil
}

func (r *MigrationRunner) createSchemaVersionTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_version (
			version VARCHAR(32) PRIMARY KEY,
			applied_at TIMESTAMP NOT NULL
		)
	`)
	return err
}

func (r *MigrationRunner) createRunsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			id VARCHAR(36) PRIMARY KEY,
			label VARCHAR(255) NOT NULL,
			requested INTEGER NOT NULL,
			completed INTEGER NOT NULL,
			seed BIGINT NOT NULL,
			params_hash VARCHAR(64) NOT NULL,
			code_version VARCHAR(32) NOT NULL,
			fingerprint VARCHAR(64) NOT NULL,
			created_at TIMESTAMP NOT NULL
		)
	`)
	return err
}

func (r *MigrationRunner) createRunTrialsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS run_trials (
			run_id VARCHAR(36) NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			trial INTEGER NOT NULL,
			length INTEGER NOT NULL,
			PRIMARY KEY (run_id, trial)
		)
	`)
	return err
}

func (r *MigrationRunner) createRunSamplesTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS run_samples (
			run_id VARCHAR(36) NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			queries DOUBLE PRECISION NOT NULL,
			squared_error DOUBLE PRECISION NOT NULL,
			std DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (run_id, position)
		)
	`)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_runs_label ON runs(label)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_fingerprint ON runs(fingerprint)`,
	}
	for _, stmt := range indexes {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (r *MigrationRunner) recordVersion(ctx context.Context, db *sqlx.DB) error {
	var count int
	if err := db.GetContext(ctx, &count, db.Rebind(`SELECT COUNT(*) FROM schema_version WHERE version = ?`), r.version); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	_, err := db.ExecContext(ctx, db.Rebind(`INSERT INTO schema_version (version, applied_at) VALUES (?, CURRENT_TIMESTAMP)`), r.version)
	return err
}

// AppliedVersions lists the recorded schema versions.
func AppliedVersions(ctx context.Context, db *sqlx.DB) ([]string, error) {
	var versions []string
	if err := db.SelectContext(ctx, &versions, `SELECT version FROM schema_version ORDER BY applied_at`); err != nil {
		return nil, errors.DatabaseError(err, "failed to list schema versions")
	}
	return versions, nil
}
