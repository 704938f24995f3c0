package storage

import (
	"context"

	"starknet-probe/internal/domain"
)

// ProbeRunStore provides access to probe run history.
type ProbeRunStore interface {
	// InsertRun adds a run together with its check results.
	// Returns ErrDuplicateKey if run_id exists.
	InsertRun(ctx context.Context, run *domain.ProbeRun) error

	// GetByID retrieves a run with its results. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.ProbeRun, error)

	// ListRecent retrieves up to limit runs ordered by started_at DESC,
	// results included.
	ListRecent(ctx context.Context, limit int) ([]*domain.ProbeRun, error)

	// GetByTimeRange retrieves runs started within [start, end] (inclusive),
	// ordered by started_at ASC.
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.ProbeRun, error)
}

// QueryMetrics records query timing for a backing database. Stores accept
// it as an optional hook; observability.Metrics satisfies it.
type QueryMetrics interface {
	RecordDBQuery(database, operation string, seconds float64, err error)
}

// LatencySampleStore provides access to latency_samples storage.
type LatencySampleStore interface {
	// InsertBulk adds multiple samples.
	InsertBulk(ctx context.Context, samples []*domain.LatencySample) error

	// GetByCheck retrieves samples for a check within [start, end]
	// (inclusive), ordered by timestamp ASC.
	GetByCheck(ctx context.Context, check string, start, end int64) ([]*domain.LatencySample, error)
}
