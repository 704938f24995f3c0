// Package probe runs smoke checks against a Starknet DeFi environment.
// A run executes a fixed sequence of checks (RPC, wallet, transfer, quote,
// swap), records per-check outcomes and latency, and persists the result.
package probe

import "context"

// Check is a single verifiable operation against the environment.
type Check interface {
	// Name identifies the check in results and metrics.
	Name() string

	// Run executes the check. A SKIP result means the check was not
	// enabled for this run; it never fails the run on its own.
	Run(ctx context.Context) Result
}

// Result is the outcome of one check execution.
type Result struct {
	Status Status
	Detail string // human-readable summary, e.g. "block 1203456"
	Err    error  // set when Status is StatusFail
}

// Status classifies a check outcome.
type Status string

const (
	StatusPass Status = "PASS"
	StatusFail Status = "FAIL"
	StatusSkip Status = "SKIP"
)

// pass builds a passing result with a detail message.
func pass(detail string) Result {
	return Result{Status: StatusPass, Detail: detail}
}

// fail builds a failing result.
func fail(err error) Result {
	return Result{Status: StatusFail, Err: err}
}

// skip builds a skipped result with the reason the check did not run.
func skip(reason string) Result {
	return Result{Status: StatusSkip, Detail: reason}
}
