package domain

// ProbeRun represents one complete execution of the smoke-check suite.
// Corresponds to probe_runs table in PostgreSQL.
type ProbeRun struct {
	RunID      string // PRIMARY KEY, deterministic hash
	Network    string // "mainnet" | "sepolia"
	StartedAt  int64  // Unix timestamp in milliseconds
	FinishedAt int64  // Unix timestamp in milliseconds
	Passed     bool   // true iff every executed check passed
	Executed   int    // checks that actually ran
	Skipped    int    // opt-in checks that were not enabled
	Results    []CheckResult
	CreatedAt  int64 // record creation timestamp (ms)
}

// CheckResult is the outcome of a single check within a run.
// Corresponds to check_results table in PostgreSQL.
type CheckResult struct {
	ID        int64  // BIGSERIAL primary key
	RunID     string // FK to probe_runs
	Name      string // check name, unique within a run
	Status    CheckStatus
	LatencyMS int64  // wall-clock duration of the check
	Detail    string // human-readable result, e.g. "block 1203456"
	Error     string // failure message, empty on pass/skip
}

// CheckStatus classifies a check outcome.
type CheckStatus string

// Check status constants.
const (
	StatusPass CheckStatus = "PASS"
	StatusFail CheckStatus = "FAIL"
	StatusSkip CheckStatus = "SKIP"
)

// LatencySample is a single latency observation for a check operation.
// Corresponds to latency_samples table in ClickHouse.
type LatencySample struct {
	RunID     string
	Check     string
	Network   string
	Timestamp int64 // Unix timestamp in milliseconds
	LatencyMS int64
	Success   bool
}
