package memory

import (
	"context"
	"errors"
	"testing"

	"starknet-probe/internal/domain"
	"starknet-probe/internal/storage"
)

func TestLatencySampleStore_InsertAndGet(t *testing.T) {
	store := NewLatencySampleStore()
	ctx := context.Background()

	samples := []*domain.LatencySample{
		{RunID: "run1", Check: "rpc", Network: "mainnet", Timestamp: 3000, LatencyMS: 110, Success: true},
		{RunID: "run1", Check: "rpc", Network: "mainnet", Timestamp: 1000, LatencyMS: 120, Success: true},
		{RunID: "run1", Check: "wallet", Network: "mainnet", Timestamp: 2000, LatencyMS: 400, Success: false},
	}

	if err := store.InsertBulk(ctx, samples); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetByCheck(ctx, "rpc", 0, 10000)
	if err != nil {
		t.Fatalf("GetByCheck failed: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(got))
	}

	if got[0].Timestamp != 1000 || got[1].Timestamp != 3000 {
		t.Errorf("expected ascending timestamps, got %d, %d", got[0].Timestamp, got[1].Timestamp)
	}
}

func TestLatencySampleStore_TimeRange(t *testing.T) {
	store := NewLatencySampleStore()
	ctx := context.Background()

	store.InsertBulk(ctx, []*domain.LatencySample{
		{Check: "rpc", Timestamp: 1000, LatencyMS: 100},
		{Check: "rpc", Timestamp: 2000, LatencyMS: 110},
		{Check: "rpc", Timestamp: 3000, LatencyMS: 120},
	})

	got, err := store.GetByCheck(ctx, "rpc", 2000, 3000)
	if err != nil {
		t.Fatalf("GetByCheck failed: %v", err)
	}

	if len(got) != 2 {
		t.Errorf("expected 2 samples, got %d", len(got))
	}
}

func TestLatencySampleStore_InvalidInput(t *testing.T) {
	store := NewLatencySampleStore()
	ctx := context.Background()

	err := store.InsertBulk(ctx, []*domain.LatencySample{{Timestamp: 1}})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for empty check name, got %v", err)
	}

	if err := store.InsertBulk(ctx, nil); err != nil {
		t.Errorf("empty batch should be a no-op, got %v", err)
	}
}
