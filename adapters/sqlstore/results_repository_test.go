package sqlstore

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qaebench/domain/core"
	"qaebench/domain/run"
	"qaebench/internal/migration"
	"qaebench/internal/testkit"
	"qaebench/ports"
)

func newTestRepo(t *testing.T) (ports.ResultsRepository, *sqlx.DB) {
	t.Helper()
	ctx := context.Background()
	db, err := Connect(ctx, DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migration.NewRunner().Run(ctx, db))
	return NewResultsRepository(db), db
}

func sampleResults(label string, trials int, createdAt time.Time) *run.Results {
	results := run.NewResults(core.NewRunID(), label, trials+1)
	for i := 0; i < trials; i++ {
		results.Append(testkit.LinearTrace(float64(10*i+1), 3+i))
	}
	results.Fingerprint = run.NewRunFingerprint(label, map[string]string{"power": "-0.9"}, trials+1, 7, "1.0.0")
	results.CreatedAt = core.NewTimestamp(createdAt)
	return results
}

func TestSaveAndGetRun(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	saved := sampleResults("BAE", 3, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	require.NoError(t, repo.SaveRun(ctx, saved))

	got, err := repo.GetRun(ctx, saved.RunID)
	require.NoError(t, err)
	assert.Equal(t, saved.RunID, got.RunID)
	assert.Equal(t, "BAE", got.Label)
	assert.Equal(t, 4, got.Requested)
	assert.Equal(t, 3, got.Completed)
	assert.True(t, got.Interrupted())
	assert.Equal(t, saved.TrialLengths, got.TrialLengths)
	assert.Equal(t, saved.Queries, got.Queries)
	assert.Equal(t, saved.SquaredErrors, got.SquaredErrors)
	assert.Equal(t, saved.Stds, got.Stds)
	assert.True(t, saved.Fingerprint.Matches(got.Fingerprint))
	assert.Equal(t, saved.Fingerprint.ParamsHash, got.Fingerprint.ParamsHash)
	assert.WithinDuration(t, saved.CreatedAt.Time(), got.CreatedAt.Time(), time.Second)

	// saving again replaces rather than duplicates
	require.NoError(t, repo.SaveRun(ctx, saved))
	got, err = repo.GetRun(ctx, saved.RunID)
	require.NoError(t, err)
	assert.Len(t, got.Queries, len(saved.Queries))
}

func TestSaveRunBatchesLargeRuns(t *testing.T) {
	repo, db := newTestRepo(t)
	ctx := context.Background()

	saved := run.NewResults(core.NewRunID(), "canonical", 1)
	saved.Append(testkit.LinearTrace(1, 3*sampleBatchSize+7))
	require.NoError(t, repo.SaveRun(ctx, saved))

	var count int
	require.NoError(t, db.Get(&count, `SELECT COUNT(*) FROM run_samples`))
	assert.Equal(t, 3*sampleBatchSize+7, count)

	got, err := repo.GetRun(ctx, saved.RunID)
	require.NoError(t, err)
	assert.Equal(t, saved.Queries, got.Queries)
}

func TestSaveRunRejectsInconsistentResults(t *testing.T) {
	repo, db := newTestRepo(t)
	ctx := context.Background()

	truncated := sampleResults("BAE", 2, time.Now())
	truncated.SquaredErrors = truncated.SquaredErrors[:1]
	err := repo.SaveRun(ctx, truncated)
	assert.ErrorIs(t, err, core.ErrLengthMismatch)

	badTrial := sampleResults("BAE", 2, time.Now())
	badTrial.Queries[0] = -1
	err = repo.SaveRun(ctx, badTrial)
	assert.ErrorIs(t, err, core.ErrInvalidTrace)

	var count int
	require.NoError(t, db.Get(&count, `SELECT COUNT(*) FROM runs`))
	assert.Zero(t, count)
}

func TestListRuns(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	first := sampleResults("BAE", 1, base)
	second := sampleResults("canonical", 2, base.Add(time.Hour))
	third := sampleResults("BAE", 2, base.Add(2*time.Hour))
	for _, r := range []*run.Results{first, second, third} {
		require.NoError(t, repo.SaveRun(ctx, r))
	}

	all, err := repo.ListRuns(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, third.RunID, all[0].RunID)
	assert.Equal(t, first.RunID, all[2].RunID)
	assert.Equal(t, int64(7), all[0].Seed)

	bae, err := repo.ListRuns(ctx, "BAE", 1)
	require.NoError(t, err)
	require.Len(t, bae, 1)
	assert.Equal(t, third.RunID, bae[0].RunID)
	assert.Equal(t, 2, bae[0].Completed)
}

func TestGetAndDeleteMissingRun(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	missing := core.NewRunID()
	_, err := repo.GetRun(ctx, missing)
	assert.ErrorIs(t, err, core.ErrRunNotFound)
	assert.True(t, core.IsNotFoundError(err))
	assert.Contains(t, err.Error(), missing.String())

	assert.ErrorIs(t, repo.DeleteRun(ctx, core.NewRunID()), core.ErrNotFound)

	saved := sampleResults("BAE", 2, time.Now())
	require.NoError(t, repo.SaveRun(ctx, saved))
	require.NoError(t, repo.DeleteRun(ctx, saved.RunID))
	_, err = repo.GetRun(ctx, saved.RunID)
	assert.ErrorIs(t, err, core.ErrRunNotFound)
}

func TestConnectRejectsUnknownDriver(t *testing.T) {
	_, err := Connect(context.Background(), "mysql", "x")
	assert.Error(t, err)
}
