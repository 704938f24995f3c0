package memory

import (
	"context"
	"sort"
	"sync"

	"starknet-probe/internal/domain"
	"starknet-probe/internal/storage"
)

// ProbeRunStore is an in-memory implementation of storage.ProbeRunStore.
type ProbeRunStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ProbeRun // keyed by run_id
}

// NewProbeRunStore creates a new in-memory run store.
func NewProbeRunStore() *ProbeRunStore {
	return &ProbeRunStore{
		data: make(map[string]*domain.ProbeRun),
	}
}

// Compile-time interface check.
var _ storage.ProbeRunStore = (*ProbeRunStore)(nil)

// InsertRun adds a run with its results. Returns ErrDuplicateKey if exists.
func (s *ProbeRunStore) InsertRun(_ context.Context, run *domain.ProbeRun) error {
	if run == nil || run.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[run.RunID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[run.RunID] = copyRun(run)
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *ProbeRunStore) GetByID(_ context.Context, runID string) (*domain.ProbeRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.data[runID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyRun(run), nil
}

// ListRecent retrieves up to limit runs ordered by started_at DESC.
func (s *ProbeRunStore) ListRecent(_ context.Context, limit int) ([]*domain.ProbeRun, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]*domain.ProbeRun, 0, len(s.data))
	for _, run := range s.data {
		runs = append(runs, copyRun(run))
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt > runs[j].StartedAt
	})

	if len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// GetByTimeRange retrieves runs started within [start, end] (inclusive),
// ordered by started_at ASC.
func (s *ProbeRunStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.ProbeRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var runs []*domain.ProbeRun
	for _, run := range s.data {
		if run.StartedAt >= start && run.StartedAt <= end {
			runs = append(runs, copyRun(run))
		}
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt < runs[j].StartedAt
	})
	return runs, nil
}

// copyRun deep-copies a run so callers cannot mutate stored state.
func copyRun(run *domain.ProbeRun) *domain.ProbeRun {
	cp := *run
	cp.Results = make([]domain.CheckResult, len(run.Results))
	copy(cp.Results, run.Results)
	return &cp
}
