package ports

import (
	"context"

	"qaebench/domain/core"
	"qaebench/domain/run"
)

// RunSummary is the listing view of a stored run.
type RunSummary struct {
	RunID     core.RunID     `json:"run_id" db:"id"`
	Label     string         `json:"label" db:"label"`
	Requested int            `json:"requested" db:"requested"`
	Completed int            `json:"completed" db:"completed"`
	Seed      int64          `json:"seed" db:"seed"`
	CreatedAt core.Timestamp `json:"created_at"`
}

// ResultsRepository persists experiment results.
type ResultsRepository interface {
	SaveRun(ctx context.Context, results *run.Results) error
	GetRun(ctx context.Context, id core.RunID) (*run.Results, error)
	ListRuns(ctx context.Context, label string, limit int) ([]RunSummary, error)
	DeleteRun(ctx context.Context, id core.RunID) error
}
