package clickhouse

import (
	"context"
	"fmt"
	"time"

	"starknet-probe/internal/domain"
	"starknet-probe/internal/storage"
)

// LatencySampleStore implements storage.LatencySampleStore using ClickHouse.
type LatencySampleStore struct {
	conn    *Conn
	metrics storage.QueryMetrics // optional
}

// NewLatencySampleStore creates a new LatencySampleStore.
func NewLatencySampleStore(conn *Conn) *LatencySampleStore {
	return &LatencySampleStore{conn: conn}
}

// WithMetrics attaches query instrumentation.
func (s *LatencySampleStore) WithMetrics(m storage.QueryMetrics) *LatencySampleStore {
	s.metrics = m
	return s
}

// observe reports one query outcome; no-op without metrics.
func (s *LatencySampleStore) observe(op string, start time.Time, err *error) {
	if s.metrics != nil {
		s.metrics.RecordDBQuery("clickhouse", op, time.Since(start).Seconds(), *err)
	}
}

// Compile-time interface check.
var _ storage.LatencySampleStore = (*LatencySampleStore)(nil)

// InsertBulk adds multiple samples in a single batch.
func (s *LatencySampleStore) InsertBulk(ctx context.Context, samples []*domain.LatencySample) (err error) {
	defer s.observe("insert_bulk", time.Now(), &err)

	if len(samples) == 0 {
		return nil
	}
	for _, sample := range samples {
		if sample.RunID == "" || sample.Check == "" {
			return storage.ErrInvalidInput
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO latency_samples (
			run_id, check_name, network, timestamp, latency_ms, success
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, sample := range samples {
		success := uint8(0)
		if sample.Success {
			success = 1
		}
		err = batch.Append(
			sample.RunID,
			sample.Check,
			sample.Network,
			time.UnixMilli(sample.Timestamp),
			sample.LatencyMS,
			success,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByCheck retrieves samples for one check within [start, end] (inclusive,
// Unix millis), ordered by timestamp ASC.
func (s *LatencySampleStore) GetByCheck(ctx context.Context, check string, start, end int64) (_ []*domain.LatencySample, err error) {
	defer s.observe("get_by_check", time.Now(), &err)

	if check == "" {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT run_id, check_name, network, timestamp, latency_ms, success
		FROM latency_samples
		WHERE check_name = ? AND timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp ASC
	`

	rows, err := s.conn.Query(ctx, query, check, time.UnixMilli(start), time.UnixMilli(end))
	if err != nil {
		return nil, fmt.Errorf("select latency samples: %w", err)
	}
	defer rows.Close()

	var samples []*domain.LatencySample
	for rows.Next() {
		var sample domain.LatencySample
		var ts time.Time
		var success uint8
		if err := rows.Scan(
			&sample.RunID,
			&sample.Check,
			&sample.Network,
			&ts,
			&sample.LatencyMS,
			&success,
		); err != nil {
			return nil, fmt.Errorf("scan latency sample: %w", err)
		}
		sample.Timestamp = ts.UnixMilli()
		sample.Success = success != 0
		samples = append(samples, &sample)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate latency samples: %w", err)
	}

	return samples, nil
}
