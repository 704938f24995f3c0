package postgres

import (
	"context"
	"fmt"
	"time"

	"starknet-probe/internal/domain"
	"starknet-probe/internal/storage"
)

// ProbeRunStore implements storage.ProbeRunStore using PostgreSQL.
type ProbeRunStore struct {
	pool    *Pool
	metrics storage.QueryMetrics // optional
}

// NewProbeRunStore creates a new ProbeRunStore.
func NewProbeRunStore(pool *Pool) *ProbeRunStore {
	return &ProbeRunStore{pool: pool}
}

// WithMetrics attaches query instrumentation.
func (s *ProbeRunStore) WithMetrics(m storage.QueryMetrics) *ProbeRunStore {
	s.metrics = m
	return s
}

// observe reports one query outcome; no-op without metrics.
func (s *ProbeRunStore) observe(op string, start time.Time, err *error) {
	if s.metrics != nil {
		s.metrics.RecordDBQuery("postgres", op, time.Since(start).Seconds(), *err)
	}
}

// Compile-time interface check.
var _ storage.ProbeRunStore = (*ProbeRunStore)(nil)

// InsertRun adds a run with its check results atomically.
// Returns ErrDuplicateKey if run_id exists.
func (s *ProbeRunStore) InsertRun(ctx context.Context, run *domain.ProbeRun) (err error) {
	defer s.observe("insert_run", time.Now(), &err)

	if run == nil || run.RunID == "" {
		return storage.ErrInvalidInput
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	runQuery := `
		INSERT INTO probe_runs (
			run_id, network, started_at, finished_at, passed, executed, skipped
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	if _, err := tx.Exec(ctx, runQuery,
		run.RunID,
		run.Network,
		run.StartedAt,
		run.FinishedAt,
		run.Passed,
		run.Executed,
		run.Skipped,
	); err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert run: %w", err)
	}

	resultQuery := `
		INSERT INTO check_results (
			run_id, name, status, latency_ms, detail, error
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	for _, result := range run.Results {
		if _, err := tx.Exec(ctx, resultQuery,
			run.RunID,
			result.Name,
			string(result.Status),
			result.LatencyMS,
			result.Detail,
			result.Error,
		); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert check result %s: %w", result.Name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByID retrieves a run with its results. Returns ErrNotFound if not exists.
func (s *ProbeRunStore) GetByID(ctx context.Context, runID string) (_ *domain.ProbeRun, err error) {
	defer s.observe("get_by_id", time.Now(), &err)

	query := `
		SELECT run_id, network, started_at, finished_at, passed, executed, skipped,
		       EXTRACT(EPOCH FROM created_at)::BIGINT * 1000
		FROM probe_runs
		WHERE run_id = $1
	`

	var run domain.ProbeRun
	err = s.pool.QueryRow(ctx, query, runID).Scan(
		&run.RunID,
		&run.Network,
		&run.StartedAt,
		&run.FinishedAt,
		&run.Passed,
		&run.Executed,
		&run.Skipped,
		&run.CreatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("select run: %w", err)
	}

	results, err := s.resultsForRuns(ctx, []string{runID})
	if err != nil {
		return nil, err
	}
	run.Results = results[runID]

	return &run, nil
}

// ListRecent retrieves up to limit runs ordered by started_at DESC.
func (s *ProbeRunStore) ListRecent(ctx context.Context, limit int) (_ []*domain.ProbeRun, err error) {
	defer s.observe("list_recent", time.Now(), &err)

	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT run_id, network, started_at, finished_at, passed, executed, skipped
		FROM probe_runs
		ORDER BY started_at DESC
		LIMIT $1
	`
	return s.queryRuns(ctx, query, limit)
}

// GetByTimeRange retrieves runs started within [start, end] (inclusive),
// ordered by started_at ASC.
func (s *ProbeRunStore) GetByTimeRange(ctx context.Context, start, end int64) (_ []*domain.ProbeRun, err error) {
	defer s.observe("get_by_time_range", time.Now(), &err)

	query := `
		SELECT run_id, network, started_at, finished_at, passed, executed, skipped
		FROM probe_runs
		WHERE started_at >= $1 AND started_at <= $2
		ORDER BY started_at ASC
	`
	return s.queryRuns(ctx, query, start, end)
}

// queryRuns runs a probe_runs query and attaches check results.
func (s *ProbeRunStore) queryRuns(ctx context.Context, query string, args ...interface{}) ([]*domain.ProbeRun, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select runs: %w", err)
	}
	defer rows.Close()

	var runs []*domain.ProbeRun
	var ids []string
	for rows.Next() {
		var run domain.ProbeRun
		if err := rows.Scan(
			&run.RunID,
			&run.Network,
			&run.StartedAt,
			&run.FinishedAt,
			&run.Passed,
			&run.Executed,
			&run.Skipped,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, &run)
		ids = append(ids, run.RunID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	if len(runs) == 0 {
		return runs, nil
	}

	results, err := s.resultsForRuns(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, run := range runs {
		run.Results = results[run.RunID]
	}
	return runs, nil
}

// resultsForRuns loads check results for a set of run IDs.
func (s *ProbeRunStore) resultsForRuns(ctx context.Context, runIDs []string) (map[string][]domain.CheckResult, error) {
	query := `
		SELECT id, run_id, name, status, latency_ms, detail, error
		FROM check_results
		WHERE run_id = ANY($1)
		ORDER BY id ASC
	`

	rows, err := s.pool.Query(ctx, query, runIDs)
	if err != nil {
		return nil, fmt.Errorf("select check results: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]domain.CheckResult)
	for rows.Next() {
		var r domain.CheckResult
		var status string
		if err := rows.Scan(&r.ID, &r.RunID, &r.Name, &status, &r.LatencyMS, &r.Detail, &r.Error); err != nil {
			return nil, fmt.Errorf("scan check result: %w", err)
		}
		r.Status = domain.CheckStatus(status)
		out[r.RunID] = append(out[r.RunID], r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate check results: %w", err)
	}
	return out, nil
}
