package probe

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"starknet-probe/internal/domain"
	"starknet-probe/internal/idhash"
	"starknet-probe/internal/observability"
	"starknet-probe/internal/storage"
)

// DefaultCheckTimeout bounds a single check. Opt-in checks that wait for
// receipts need most of it.
const DefaultCheckTimeout = 2 * time.Minute

// Runner executes the check suite sequentially and persists the outcome.
type Runner struct {
	network      string
	checks       []Check
	checkTimeout time.Duration

	runStore     storage.ProbeRunStore
	latencyStore storage.LatencySampleStore
	metrics      *observability.Metrics
	logger       zerolog.Logger

	now func() time.Time
	seq atomic.Uint64
}

// Options for creating a Runner.
type Options struct {
	// Network names the target chain, e.g. "mainnet" or "sepolia".
	Network string

	// Checks run in order. SKIP results never fail a run.
	Checks []Check

	// CheckTimeout bounds each check. Zero means DefaultCheckTimeout.
	CheckTimeout time.Duration

	// RunStore persists completed runs. Optional.
	RunStore storage.ProbeRunStore

	// LatencyStore persists per-check latency samples. Optional.
	LatencyStore storage.LatencySampleStore

	// Metrics records Prometheus series. Optional.
	Metrics *observability.Metrics

	Logger zerolog.Logger

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// NewRunner creates a Runner.
func NewRunner(opts Options) *Runner {
	r := &Runner{
		network:      opts.Network,
		checks:       opts.Checks,
		checkTimeout: opts.CheckTimeout,
		runStore:     opts.RunStore,
		latencyStore: opts.LatencyStore,
		metrics:      opts.Metrics,
		logger:       opts.Logger,
		now:          opts.Now,
	}
	if r.checkTimeout <= 0 {
		r.checkTimeout = DefaultCheckTimeout
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// Run executes every check in order and returns the completed run.
// The run passes iff at least one check executed and none failed.
// Once the parent context is cancelled, remaining checks are marked SKIP.
// Persistence errors are returned alongside the run itself.
func (r *Runner) Run(ctx context.Context) (*domain.ProbeRun, error) {
	startedAt := r.now().UnixMilli()
	run := &domain.ProbeRun{
		RunID:     idhash.ComputeRunID(r.network, startedAt, r.seq.Add(1)),
		Network:   r.network,
		StartedAt: startedAt,
	}

	r.logger.Info().
		Str("run_id", run.RunID).
		Str("network", r.network).
		Int("checks", len(r.checks)).
		Msg("probe run started")

	failed := 0
	for _, check := range r.checks {
		result, latency := r.runCheck(ctx, check)

		cr := domain.CheckResult{
			RunID:     run.RunID,
			Name:      check.Name(),
			Status:    domain.CheckStatus(result.Status),
			LatencyMS: latency.Milliseconds(),
			Detail:    result.Detail,
		}
		if result.Err != nil {
			cr.Error = result.Err.Error()
		}
		run.Results = append(run.Results, cr)

		switch result.Status {
		case StatusSkip:
			run.Skipped++
		case StatusFail:
			run.Executed++
			failed++
		default:
			run.Executed++
		}

		evt := r.logger.Info()
		if result.Status == StatusFail {
			evt = r.logger.Error().Err(result.Err)
		}
		evt.
			Str("run_id", run.RunID).
			Str("check", check.Name()).
			Str("status", string(result.Status)).
			Dur("latency", latency).
			Str("detail", result.Detail).
			Msg("check finished")

		if r.metrics != nil {
			r.metrics.RecordCheck(check.Name(), string(result.Status), latency.Seconds())
		}
	}

	run.FinishedAt = r.now().UnixMilli()
	run.Passed = run.Executed > 0 && failed == 0

	r.logger.Info().
		Str("run_id", run.RunID).
		Bool("passed", run.Passed).
		Int("executed", run.Executed).
		Int("skipped", run.Skipped).
		Int("failed", failed).
		Msg("probe run finished")

	if r.metrics != nil {
		r.metrics.RecordRun(run.Passed, float64(run.FinishedAt)/1000)
	}

	return run, r.persist(ctx, run)
}

// runCheck executes one check with a timeout and panic recovery. A panicking
// check fails the run instead of crashing the process. A check is skipped
// outright when the parent context is already done.
func (r *Runner) runCheck(ctx context.Context, check Check) (result Result, latency time.Duration) {
	if err := ctx.Err(); err != nil {
		return skip("run cancelled"), 0
	}

	checkCtx, cancel := context.WithTimeout(ctx, r.checkTimeout)
	defer cancel()

	start := r.now()
	defer func() {
		latency = r.now().Sub(start)
		if rec := recover(); rec != nil {
			result = fail(fmt.Errorf("check panicked: %v", rec))
		}
	}()

	result = check.Run(checkCtx)
	return result, 0 // latency set by the deferred func
}

// persist writes the run and its latency samples to the configured stores.
// Skipped checks produce no latency samples.
func (r *Runner) persist(ctx context.Context, run *domain.ProbeRun) error {
	if r.runStore != nil {
		if err := r.runStore.InsertRun(ctx, run); err != nil {
			return fmt.Errorf("persist run %s: %w", run.RunID, err)
		}
	}

	if r.latencyStore != nil {
		var samples []*domain.LatencySample
		for _, cr := range run.Results {
			if cr.Status == domain.StatusSkip {
				continue
			}
			samples = append(samples, &domain.LatencySample{
				RunID:     run.RunID,
				Check:     cr.Name,
				Network:   run.Network,
				Timestamp: run.StartedAt,
				LatencyMS: cr.LatencyMS,
				Success:   cr.Status == domain.StatusPass,
			})
		}
		if err := r.latencyStore.InsertBulk(ctx, samples); err != nil {
			return fmt.Errorf("persist latency samples for %s: %w", run.RunID, err)
		}
	}

	return nil
}
