package postgres_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"starknet-probe/internal/domain"
	"starknet-probe/internal/storage"
	pgstore "starknet-probe/internal/storage/postgres"
)

func sampleRun(runID string, startedAt int64) *domain.ProbeRun {
	return &domain.ProbeRun{
		RunID:      runID,
		Network:    "mainnet",
		StartedAt:  startedAt,
		FinishedAt: startedAt + 5000,
		Passed:     true,
		Executed:   3,
		Skipped:    1,
		Results: []domain.CheckResult{
			{RunID: runID, Name: "rpc", Status: domain.StatusPass, LatencyMS: 80, Detail: "block 1200345"},
			{RunID: runID, Name: "wallet", Status: domain.StatusPass, LatencyMS: 150, Detail: "balance 2.5 USDC"},
			{RunID: runID, Name: "quote", Status: domain.StatusPass, LatencyMS: 420},
			{RunID: runID, Name: "swap", Status: domain.StatusSkip, Detail: "disabled"},
		},
	}
}

func TestProbeRunStore_InsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := pgstore.NewProbeRunStore(pool)
	ctx := context.Background()

	run := sampleRun("run-1", 1000)
	require.NoError(t, store.InsertRun(ctx, run))

	got, err := store.GetByID(ctx, "run-1")
	require.NoError(t, err)
	require.Equal(t, "run-1", got.RunID)
	require.Equal(t, "mainnet", got.Network)
	require.True(t, got.Passed)
	require.Equal(t, 3, got.Executed)
	require.Equal(t, 1, got.Skipped)
	require.Len(t, got.Results, 4)
	require.Equal(t, "rpc", got.Results[0].Name)
	require.Equal(t, domain.StatusSkip, got.Results[3].Status)
	require.NotZero(t, got.CreatedAt)
}

func TestProbeRunStore_DuplicateKey(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := pgstore.NewProbeRunStore(pool)
	ctx := context.Background()

	require.NoError(t, store.InsertRun(ctx, sampleRun("run-1", 1000)))

	err := store.InsertRun(ctx, sampleRun("run-1", 2000))
	require.True(t, errors.Is(err, storage.ErrDuplicateKey))

	// Duplicate insert must not leave orphan results behind.
	got, err := store.GetByID(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got.Results, 4)
}

func TestProbeRunStore_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := pgstore.NewProbeRunStore(pool)

	_, err := store.GetByID(context.Background(), "missing")
	require.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestProbeRunStore_ListRecent(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := pgstore.NewProbeRunStore(pool)
	ctx := context.Background()

	require.NoError(t, store.InsertRun(ctx, sampleRun("run-1", 1000)))
	require.NoError(t, store.InsertRun(ctx, sampleRun("run-2", 3000)))
	require.NoError(t, store.InsertRun(ctx, sampleRun("run-3", 2000)))

	runs, err := store.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.Equal(t, "run-2", runs[0].RunID)
	require.Equal(t, "run-3", runs[1].RunID)
	require.Len(t, runs[0].Results, 4)
}

func TestProbeRunStore_GetByTimeRange(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := pgstore.NewProbeRunStore(pool)
	ctx := context.Background()

	require.NoError(t, store.InsertRun(ctx, sampleRun("run-1", 1000)))
	require.NoError(t, store.InsertRun(ctx, sampleRun("run-2", 2000)))
	require.NoError(t, store.InsertRun(ctx, sampleRun("run-3", 3000)))

	runs, err := store.GetByTimeRange(ctx, 1000, 2000)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.Equal(t, "run-1", runs[0].RunID)
	require.Equal(t, "run-2", runs[1].RunID)
}

func TestProbeRunStore_InvalidInput(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := pgstore.NewProbeRunStore(pool)
	ctx := context.Background()

	require.True(t, errors.Is(store.InsertRun(ctx, nil), storage.ErrInvalidInput))
	require.True(t, errors.Is(store.InsertRun(ctx, &domain.ProbeRun{}), storage.ErrInvalidInput))

	_, err := store.ListRecent(ctx, 0)
	require.True(t, errors.Is(err, storage.ErrInvalidInput))
}

// queryRecorder captures RecordDBQuery calls.
type queryRecorder struct {
	ops  []string
	errs []error
}

func (r *queryRecorder) RecordDBQuery(database, operation string, seconds float64, err error) {
	r.ops = append(r.ops, database+"."+operation)
	r.errs = append(r.errs, err)
}

func TestProbeRunStore_RecordsQueryMetrics(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	recorder := &queryRecorder{}
	store := pgstore.NewProbeRunStore(pool).WithMetrics(recorder)
	ctx := context.Background()

	require.NoError(t, store.InsertRun(ctx, sampleRun("run-1", 1000)))
	_, err := store.GetByID(ctx, "run-1")
	require.NoError(t, err)
	_, err = store.GetByID(ctx, "missing")
	require.Error(t, err)

	require.Equal(t, []string{
		"postgres.insert_run",
		"postgres.get_by_id",
		"postgres.get_by_id",
	}, recorder.ops)
	require.NoError(t, recorder.errs[0])
	require.NoError(t, recorder.errs[1])
	require.ErrorIs(t, recorder.errs[2], storage.ErrNotFound)
}
