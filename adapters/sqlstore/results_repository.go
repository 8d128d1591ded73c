package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"qaebench/domain/core"
	"qaebench/domain/run"
	"qaebench/ports"
)

// sampleBatchSize bounds the rows per multi-row insert so the statement
// stays under SQLite's bound-variable limit.
const sampleBatchSize = 500

type runRow struct {
	ID          string    `db:"id"`
	Label       string    `db:"label"`
	Requested   int       `db:"requested"`
	Completed   int       `db:"completed"`
	Seed        int64     `db:"seed"`
	ParamsHash  string    `db:"params_hash"`
	CodeVersion string    `db:"code_version"`
	Fingerprint string    `db:"fingerprint"`
	CreatedAt   time.Time `db:"created_at"`
}

type trialRow struct {
	RunID  string `db:"run_id"`
	Trial  int    `db:"trial"`
	Length int    `db:"length"`
}

type sampleRow struct {
	RunID        string  `db:"run_id"`
	Position     int     `db:"position"`
	Queries      float64 `db:"queries"`
	SquaredError float64 `db:"squared_error"`
	Std          float64 `db:"std"`
}

// ResultsRepositoryImpl implements ResultsRepository on any sqlx database
// whose schema was created by the migration runner.
type ResultsRepositoryImpl struct {
	db *sqlx.DB
}

// NewResultsRepository creates a new results repository
func NewResultsRepository(db *sqlx.DB) ports.ResultsRepository {
	return &ResultsRepositoryImpl{db: db}
}

// SaveRun stores a run, replacing any earlier run with the same ID.
func (r *ResultsRepositoryImpl) SaveRun(ctx context.Context, results *run.Results) error {
	if results == nil || results.RunID == "" {
		return core.NewConfigurationError("run", "missing run ID")
	}
	if err := results.Validate(); err != nil {
		return fmt.Errorf("run %s: %w", results.RunID, err)
	}
	createdAt := results.CreatedAt.Time()
	if createdAt.IsZero() {
		createdAt = core.Now().Time()
	}
	id := results.RunID.String()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := deleteRun(ctx, tx, id); err != nil {
		return err
	}

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO runs (id, label, requested, completed, seed, params_hash, code_version, fingerprint, created_at)
		VALUES (:id, :label, :requested, :completed, :seed, :params_hash, :code_version, :fingerprint, :created_at)
	`, runRow{
		ID:          id,
		Label:       results.Label,
		Requested:   results.Requested,
		Completed:   results.Completed,
		Seed:        results.Fingerprint.Seed,
		ParamsHash:  results.Fingerprint.ParamsHash.String(),
		CodeVersion: results.Fingerprint.CodeVersion,
		Fingerprint: results.Fingerprint.Fingerprint.String(),
		CreatedAt:   createdAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", id, err)
	}

	if len(results.TrialLengths) > 0 {
		trials := make([]trialRow, len(results.TrialLengths))
		for i, n := range results.TrialLengths {
			trials[i] = trialRow{RunID: id, Trial: i, Length: n}
		}
		for start := 0; start < len(trials); start += sampleBatchSize {
			end := min(start+sampleBatchSize, len(trials))
			if _, err := tx.NamedExecContext(ctx, `
				INSERT INTO run_trials (run_id, trial, length) VALUES (:run_id, :trial, :length)
			`, trials[start:end]); err != nil {
				return fmt.Errorf("inserting trials of run %s: %w", id, err)
			}
		}
	}

	samples := make([]sampleRow, len(results.Queries))
	for i := range results.Queries {
		samples[i] = sampleRow{
			RunID:        id,
			Position:     i,
			Queries:      results.Queries[i],
			SquaredError: results.SquaredErrors[i],
			Std:          results.Stds[i],
		}
	}
	for start := 0; start < len(samples); start += sampleBatchSize {
		end := min(start+sampleBatchSize, len(samples))
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO run_samples (run_id, position, queries, squared_error, std)
			VALUES (:run_id, :position, :queries, :squared_error, :std)
		`, samples[start:end]); err != nil {
			return fmt.Errorf("inserting samples of run %s: %w", id, err)
		}
	}

	return tx.Commit()
}

// GetRun loads a run with all of its samples.
func (r *ResultsRepositoryImpl) GetRun(ctx context.Context, id core.RunID) (*run.Results, error) {
	var row runRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`
		SELECT id, label, requested, completed, seed, params_hash, code_version, fingerprint, created_at
		FROM runs
		WHERE id = ?
	`), id.String())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.NewRunNotFoundError(id.String())
	}
	if err != nil {
		return nil, err
	}

	var trials []trialRow
	if err := r.db.SelectContext(ctx, &trials, r.db.Rebind(`
		SELECT run_id, trial, length FROM run_trials WHERE run_id = ? ORDER BY trial
	`), row.ID); err != nil {
		return nil, err
	}

	var samples []sampleRow
	if err := r.db.SelectContext(ctx, &samples, r.db.Rebind(`
		SELECT run_id, position, queries, squared_error, std FROM run_samples WHERE run_id = ? ORDER BY position
	`), row.ID); err != nil {
		return nil, err
	}

	results := &run.Results{
		RunID:         core.RunID(row.ID),
		Label:         row.Label,
		Requested:     row.Requested,
		Completed:     row.Completed,
		Queries:       make([]float64, len(samples)),
		SquaredErrors: make([]float64, len(samples)),
		Stds:          make([]float64, len(samples)),
		TrialLengths:  make([]int, len(trials)),
		Fingerprint: run.RunFingerprint{
			Label:       row.Label,
			ParamsHash:  core.Hash(row.ParamsHash),
			Trials:      row.Requested,
			Seed:        row.Seed,
			CodeVersion: row.CodeVersion,
			Fingerprint: core.Hash(row.Fingerprint),
		},
		CreatedAt: core.NewTimestamp(row.CreatedAt.UTC()),
	}
	for i, t := range trials {
		results.TrialLengths[i] = t.Length
	}
	for i, s := range samples {
		results.Queries[i] = s.Queries
		results.SquaredErrors[i] = s.SquaredError
		results.Stds[i] = s.Std
	}
	return results, nil
}

// ListRuns returns run summaries, newest first. An empty label lists all
// runs; limit <= 0 means no limit.
func (r *ResultsRepositoryImpl) ListRuns(ctx context.Context, label string, limit int) ([]ports.RunSummary, error) {
	query := `SELECT id, label, requested, completed, seed, params_hash, code_version, fingerprint, created_at FROM runs`
	var args []interface{}
	if label != "" {
		query += ` WHERE label = ?`
		args = append(args, label)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	var rows []runRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}

	summaries := make([]ports.RunSummary, len(rows))
	for i, row := range rows {
		summaries[i] = ports.RunSummary{
			RunID:     core.RunID(row.ID),
			Label:     row.Label,
			Requested: row.Requested,
			Completed: row.Completed,
			Seed:      row.Seed,
			CreatedAt: core.NewTimestamp(row.CreatedAt.UTC()),
		}
	}
	return summaries, nil
}

// DeleteRun removes a run and its samples.
func (r *ResultsRepositoryImpl) DeleteRun(ctx context.Context, id core.RunID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var count int
	if err := tx.GetContext(ctx, &count, tx.Rebind(`SELECT COUNT(*) FROM runs WHERE id = ?`), id.String()); err != nil {
		return err
	}
	if count == 0 {
		return core.NewRunNotFoundError(id.String())
	}
	if err := deleteRun(ctx, tx, id.String()); err != nil {
		return err
	}
	return tx.Commit()
}

// deleteRun removes child rows explicitly since SQLite may run without
// foreign key enforcement.
func deleteRun(ctx context.Context, tx *sqlx.Tx, id string) error {
	for _, stmt := range []string{
		`DELETE FROM run_samples WHERE run_id = ?`,
		`DELETE FROM run_trials WHERE run_id = ?`,
		`DELETE FROM runs WHERE id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, tx.Rebind(stmt), id); err != nil {
			return err
		}
	}
	return nil
}
