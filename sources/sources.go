/*
Package sources defines the data contracts the report engine consumes and
the adapters that satisfy them.

PURPOSE:
  The engine never talks to a vendor API or a file format directly. It asks
  for a year of time entries, a year of invoices, or a named configuration
  sheet, and receives a generic.Table. Column meaning is resolved later by
  the normalizer and the factory.

CONTRACTS:
  TimeBillingFeed: year-scoped time-and-billing rows
  AccountingFeed:  year-scoped invoice rows
  ConfigStore:     named configuration sheets (Staff, Benefits, Rules, ...)

ADAPTERS:
  WorkbookConfig: configuration sheets from one .xlsx file
  WorkbookFeed:   exported feed files <dir>/<prefix>_<year>.xlsx
  HTTPFeed:       JSON rows from an HTTP endpoint with a bearer token
  Static*:        in-memory tables for tests and demos

ERRORS:
  A failed read is wrapped in *generic.UpstreamError (category "upstream").
  A sheet that does not exist is *generic.MissingTableError
  (category "configuration"). An empty result is NOT an error here: the
  report runner decides whether empty is fatal.

SEE ALSO:
  - report/runner.go: Calls the feeds and the config store
  - auth/rotator.go: Supplies bearer tokens to HTTPFeed
*/
package sources

import (
	"context"
	"strings"

	"github.com/warp/bizops-engine/generic"
)

// =============================================================================
// CONTRACTS
// =============================================================================

// TimeBillingFeed returns time-tracking rows for a calendar year.
type TimeBillingFeed interface {
	Name() string
	TimeEntries(ctx context.Context, year int) (generic.Table, error)
}

// AccountingFeed returns invoice rows for a calendar year.
type AccountingFeed interface {
	Name() string
	Invoices(ctx context.Context, year int) (generic.Table, error)
}

// ConfigStore returns named configuration sheets.
type ConfigStore interface {
	Table(ctx context.Context, name string) (generic.Table, error)
}

// =============================================================================
// STATIC ADAPTERS
// =============================================================================

// StaticFeed serves fixed tables keyed by year. It satisfies both feed
// contracts.
type StaticFeed struct {
	FeedName string
	ByYear   map[int]generic.Table
	Err      error // returned from every call when set
}

func (f *StaticFeed) Name() string { return f.FeedName }

func (f *StaticFeed) TimeEntries(_ context.Context, year int) (generic.Table, error) {
	return f.table(year)
}

func (f *StaticFeed) Invoices(_ context.Context, year int) (generic.Table, error) {
	return f.table(year)
}

func (f *StaticFeed) table(year int) (generic.Table, error) {
	if f.Err != nil {
		return generic.Table{}, &generic.UpstreamError{Feed: f.FeedName, Err: f.Err}
	}
	return f.ByYear[year], nil
}

// StaticConfig serves fixed configuration sheets. Lookup ignores case.
type StaticConfig map[string]generic.Table

func (c StaticConfig) Table(_ context.Context, name string) (generic.Table, error) {
	for k, t := range c {
		if strings.EqualFold(k, name) {
			if t.Name == "" {
				t.Name = k
			}
			return t, nil
		}
	}
	return generic.Table{}, &generic.MissingTableError{Table: name}
}
