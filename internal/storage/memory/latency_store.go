package memory

import (
	"context"
	"sort"
	"sync"

	"starknet-probe/internal/domain"
	"starknet-probe/internal/storage"
)

// LatencySampleStore is an in-memory implementation of storage.LatencySampleStore.
type LatencySampleStore struct {
	mu   sync.RWMutex
	data []*domain.LatencySample
}

// NewLatencySampleStore creates a new in-memory latency store.
func NewLatencySampleStore() *LatencySampleStore {
	return &LatencySampleStore{}
}

// Compile-time interface check.
var _ storage.LatencySampleStore = (*LatencySampleStore)(nil)

// InsertBulk adds multiple samples.
func (s *LatencySampleStore) InsertBulk(_ context.Context, samples []*domain.LatencySample) error {
	if len(samples) == 0 {
		return nil
	}
	for _, sample := range samples {
		if sample == nil || sample.Check == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sample := range samples {
		cp := *sample
		s.data = append(s.data, &cp)
	}
	return nil
}

// GetByCheck retrieves samples for a check within [start, end] (inclusive),
// ordered by timestamp ASC.
func (s *LatencySampleStore) GetByCheck(_ context.Context, check string, start, end int64) ([]*domain.LatencySample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.LatencySample
	for _, sample := range s.data {
		if sample.Check == check && sample.Timestamp >= start && sample.Timestamp <= end {
			cp := *sample
			out = append(out, &cp)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp < out[j].Timestamp
	})
	return out, nil
}
