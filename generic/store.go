/*
store.go - Persistence interfaces for operational metadata

PURPOSE:
  Report inputs and outputs are transient: they are loaded, computed and
  rendered within one run and never written back. Two small pieces of
  operational state do outlive a run, and this file defines their interfaces:

  RunStore:   Append-mostly log of report runs (who ran what, did it fail, why)
  TokenStore: The accounting API's rotating refresh token

RUN LOG:
  Each run is recorded as "running" when it starts and moved exactly once to
  "completed" or "failed". Failed runs keep the error category so operators
  can tell an empty feed from a broken one after the fact.

TOKEN ROTATION:
  The accounting API invalidates a refresh token as soon as it is used. Two
  concurrent runs that both read the old token and both refresh would leave
  one of them holding a dead token. Rotate() therefore runs the whole
  read-refresh-write sequence as one single-writer critical section.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite (production)
  - generic/store/memory.go: In-memory for testing

SEE ALSO:
  - report/runner.go: Writes the run log
  - auth/rotator.go: Drives token rotation
*/
package generic

import (
	"context"
	"time"
)

// =============================================================================
// RUN LOG
// =============================================================================

type RunKind string

const (
	RunCommission RunKind = "commission"
	RunBonus      RunKind = "bonus"
	RunBenefits   RunKind = "benefits"
)

type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// Run is one report invocation.
type Run struct {
	ID            string
	Kind          RunKind
	Year          int
	Status        RunStatus
	Entries       int    // rows produced (ledger entries, bonus lines, employees)
	ErrorCategory string // see Category()
	Error         string
	StartedAt     time.Time
	CompletedAt   *time.Time
}

// RunStore records report runs.
type RunStore interface {
	// StartRun records a run in RunRunning state.
	StartRun(ctx context.Context, run Run) error

	// FinishRun moves a running run to completed or failed.
	FinishRun(ctx context.Context, id string, result RunResult) error

	// GetRun returns a single run or ErrRunNotFound.
	GetRun(ctx context.Context, id string) (*Run, error)

	// ListRuns returns the most recent runs first.
	ListRuns(ctx context.Context, limit int) ([]Run, error)
}

// RunResult is the outcome written by FinishRun.
type RunResult struct {
	Status        RunStatus
	Entries       int
	ErrorCategory string
	Error         string
	CompletedAt   time.Time
}

// =============================================================================
// TOKEN STORE
// =============================================================================

// Token is an OAuth token pair for one provider.
type Token struct {
	Provider     string
	AccessToken  string // SENSITIVE: Never log
	RefreshToken string // SENSITIVE: Never log
	ExpiresAt    time.Time
	UpdatedAt    time.Time
}

// Valid reports whether the access token can still be used at now.
// A one-minute margin keeps a token from expiring mid-request.
func (t Token) Valid(now time.Time) bool {
	return t.AccessToken != "" && now.Add(time.Minute).Before(t.ExpiresAt)
}

// TokenStore persists the current token per provider.
type TokenStore interface {
	// LoadToken returns the stored token; ok is false if none exists.
	LoadToken(ctx context.Context, provider string) (token Token, ok bool, err error)

	// Rotate runs fn with the current token (zero Token if none) inside a
	// single-writer critical section and stores what fn returns.
	// If fn returns an error nothing is written.
	Rotate(ctx context.Context, provider string, fn func(current Token) (Token, error)) (Token, error)
}
