package clickhouse_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"starknet-probe/internal/domain"
	"starknet-probe/internal/storage"
	chstore "starknet-probe/internal/storage/clickhouse"
)

func sampleLatency(runID, check string, ts int64) *domain.LatencySample {
	return &domain.LatencySample{
		RunID:     runID,
		Check:     check,
		Network:   "mainnet",
		Timestamp: ts,
		LatencyMS: 120,
		Success:   true,
	}
}

func TestLatencySampleStore_InsertAndGet(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := chstore.NewLatencySampleStore(conn)
	ctx := context.Background()

	base := time.Now().Truncate(time.Second).UnixMilli()
	samples := []*domain.LatencySample{
		sampleLatency("run-1", "rpc", base),
		sampleLatency("run-1", "wallet", base+10),
		sampleLatency("run-2", "rpc", base+1000),
	}
	samples[2].Success = false
	samples[2].LatencyMS = 4500

	require.NoError(t, store.InsertBulk(ctx, samples))

	got, err := store.GetByCheck(ctx, "rpc", base-1, base+2000)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "run-1", got[0].RunID)
	require.Equal(t, "run-2", got[1].RunID)
	require.True(t, got[0].Success)
	require.False(t, got[1].Success)
	require.Equal(t, int64(4500), got[1].LatencyMS)
}

func TestLatencySampleStore_GetByCheck_WindowExcludes(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := chstore.NewLatencySampleStore(conn)
	ctx := context.Background()

	base := time.Now().Truncate(time.Second).UnixMilli()
	require.NoError(t, store.InsertBulk(ctx, []*domain.LatencySample{
		sampleLatency("run-1", "quote", base),
		sampleLatency("run-2", "quote", base+60_000),
	}))

	got, err := store.GetByCheck(ctx, "quote", base, base+30_000)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "run-1", got[0].RunID)
}

func TestLatencySampleStore_InsertBulk_Empty(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := chstore.NewLatencySampleStore(conn)
	require.NoError(t, store.InsertBulk(context.Background(), nil))
}

func TestLatencySampleStore_InvalidInput(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := chstore.NewLatencySampleStore(conn)
	ctx := context.Background()

	err := store.InsertBulk(ctx, []*domain.LatencySample{sampleLatency("", "rpc", 1)})
	require.True(t, errors.Is(err, storage.ErrInvalidInput))

	_, err = store.GetByCheck(ctx, "", 0, 10)
	require.True(t, errors.Is(err, storage.ErrInvalidInput))
}

// queryRecorder captures RecordDBQuery calls.
type queryRecorder struct {
	ops []string
}

func (r *queryRecorder) RecordDBQuery(database, operation string, seconds float64, err error) {
	r.ops = append(r.ops, database+"."+operation)
}

func TestLatencySampleStore_RecordsQueryMetrics(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	recorder := &queryRecorder{}
	store := chstore.NewLatencySampleStore(conn).WithMetrics(recorder)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, []*domain.LatencySample{
		sampleLatency("run-1", "rpc", 1000),
	}))
	_, err := store.GetByCheck(ctx, "rpc", 0, 2000)
	require.NoError(t, err)

	require.Equal(t, []string{
		"clickhouse.insert_bulk",
		"clickhouse.get_by_check",
	}, recorder.ops)
}
