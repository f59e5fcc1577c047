/*
errors.go - Centralized error types for the report engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  An operator must be able to tell "nothing to process" from "something is
  broken", so every run-aborting failure carries a category.

ERROR CATEGORIES:
  1. Configuration - required table/column missing (abort run)
  2. Credential    - secret or refresh token missing (abort run)
  3. Empty         - a feed returned zero rows for the period (abort run)
  4. Upstream      - network/auth failure talking to a feed (abort run)
  5. Row-level     - unresolved reference, unknown benefit code, parse failure
                     (recovered locally: row dropped or note attached)

USAGE:
  if errors.Is(err, generic.ErrUpstreamEmpty) {
      // tell the operator there was nothing to process
  }
  log.Printf("[Report] %s failure: %v", generic.Category(err), err)

SEE ALSO:
  - normalize/normalizer.go: MissingColumnError, parse diagnostics
  - report/runner.go: Categorizes and records run failures
  - api/handlers.go: Maps categories to HTTP status codes
*/
package generic

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrConfigurationMissing is returned when a required configuration table
	// or column is absent. The run is aborted with no partial output.
	ErrConfigurationMissing = errors.New("configuration missing")

	// ErrUpstreamEmpty is returned when a data feed returned zero rows for the
	// requested period. Distinct from a failed call.
	ErrUpstreamEmpty = errors.New("upstream returned no rows")

	// ErrUpstreamFailed is returned when a feed call failed (network, auth, 5xx).
	ErrUpstreamFailed = errors.New("upstream call failed")

	// ErrMissingCredential is returned when a secret, API key or refresh token
	// needed to reach a feed is not configured.
	ErrMissingCredential = errors.New("missing credential")

	// ErrUnresolvedReference marks a row naming a client or staff member with
	// no matching rule. Never fatal; rows are counted and dropped.
	ErrUnresolvedReference = errors.New("unresolved reference")

	// ErrUnknownBenefitCode marks an election code missing from the catalog.
	// Recorded as a note on the employee, never fatal.
	ErrUnknownBenefitCode = errors.New("unknown benefit code")

	// ErrParseFailure marks a cell that could not be coerced. The value
	// becomes null/zero and the row may be excluded downstream.
	ErrParseFailure = errors.New("parse failure")

	// ErrInvalidPeriod is returned when a period is malformed (end before start).
	ErrInvalidPeriod = errors.New("invalid period: end before start")

	// ErrRunNotFound is returned when a run id is not in the run log.
	ErrRunNotFound = errors.New("run not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// MissingTableError reports a configuration table that could not be found.
type MissingTableError struct {
	Table string
}

func (e *MissingTableError) Error() string {
	return fmt.Sprintf("configuration table %q not found", e.Table)
}

func (e *MissingTableError) Unwrap() error { return ErrConfigurationMissing }

// MissingColumnError names the canonical field that could not be resolved and
// every alias that was tried.
type MissingColumnError struct {
	Table   string
	Field   string
	Aliases []string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("%s: no column for %q (tried: %s)",
		e.Table, e.Field, strings.Join(e.Aliases, ", "))
}

func (e *MissingColumnError) Unwrap() error { return ErrConfigurationMissing }

// UpstreamEmptyError is returned when a feed has no rows for the period.
type UpstreamEmptyError struct {
	Feed string
	Year int
}

func (e *UpstreamEmptyError) Error() string {
	return fmt.Sprintf("%s returned no rows for %d; check the source system has data for that year", e.Feed, e.Year)
}

func (e *UpstreamEmptyError) Unwrap() error { return ErrUpstreamEmpty }

// UpstreamError wraps a failed feed call.
type UpstreamError struct {
	Feed string
	Err  error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Feed, e.Err)
}

func (e *UpstreamError) Unwrap() []error { return []error{ErrUpstreamFailed, e.Err} }

// MissingCredentialError names the secret that is not configured.
type MissingCredentialError struct {
	Name string
}

func (e *MissingCredentialError) Error() string {
	return fmt.Sprintf("credential %s is not configured", e.Name)
}

func (e *MissingCredentialError) Unwrap() error { return ErrMissingCredential }

// RowError describes a configuration row that failed validation. Row errors
// are collected, not returned, so one bad row never aborts a run.
type RowError struct {
	Table string
	Row   int // 1-based data row, header excluded
	Err   error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("%s row %d: %v", e.Table, e.Row, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsConfigurationError returns true if the run failed on missing configuration.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfigurationMissing)
}

// IsUpstreamEmpty returns true if a feed had nothing to process.
func IsUpstreamEmpty(err error) bool {
	return errors.Is(err, ErrUpstreamEmpty)
}

// Category buckets a run-aborting error for operator-facing messages.
func Category(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfigurationMissing):
		return "configuration"
	case errors.Is(err, ErrMissingCredential):
		return "credential"
	case errors.Is(err, ErrUpstreamEmpty):
		return "empty"
	case errors.Is(err, ErrUpstreamFailed):
		return "upstream"
	default:
		return "internal"
	}
}
