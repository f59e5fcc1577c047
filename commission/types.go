/*
Package commission builds the yearly commission ledger.

PURPOSE:
  Salespeople earn commission two ways. Client commission is a rate on every
  invoice billed to a client they brought in. Resource commission is a rate on
  the billable time of a staff member they placed, either as a referral or as
  an ongoing delivery engagement. Manual offsets (draws, corrections) are
  added on top. Everything lands in one flat, immutable ledger per report
  year.

KEY CONCEPTS:
  Entry:   One ledger line. Never mutated after creation.
  Ledger:  All entries for a report year, in a deterministic order
  Offset:  A signed manual adjustment
  Stats:   What was excluded and why; counted, never fatal

PIPELINES:
  Client:    Transaction -> normalized client -> rules.Match(client) -> entry
             One entry per matched rule per transaction.
  Resource:  TimeEntry -> rules.Match(resource) -> intermediate ->
             monthly group -> entry dated the last day of the month
  Offsets:   Offset in report year -> entry labelled "Offset"

AGGREGATION KEYS (resource pipeline):
  Referral Commission: (salesperson, resource, category, month)
  Delivery Commission: (salesperson, resource, client, category, month)
  Other categories:    dropped and counted, unless
                       Options.AggregateOtherCategories groups them with the
                       delivery key

OVERLAPPING RULES:
  Every matched rule produces commission. Two overlapping rules for the same
  subject produce two entries. This is deliberate and reported by
  rules.Table.Validate, not corrected here.

SEE ALSO:
  - engine.go: The pipelines
  - summary.go: Per-salesperson, per-category and per-client rollups
  - rules/rules.go: Rule matching
*/
package commission

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/bizops-engine/generic"
)

// =============================================================================
// LEDGER
// =============================================================================

// Entry is one line of the commission ledger.
type Entry struct {
	Salesperson   string
	Label         string // client, "resource @ client", resource, or "Offset"
	Category      string
	InvoiceDate   generic.TimePoint
	InvoiceAmount decimal.Decimal
	Rate          decimal.Decimal
	Commission    decimal.Decimal
	Source        string
}

func (e Entry) String() string {
	return fmt.Sprintf("%s %s %q %s: %s x %s = %s (%s)",
		e.InvoiceDate, e.Salesperson, e.Label, e.Category, e.InvoiceAmount, e.Rate, e.Commission, e.Source)
}

// Ledger is the full set of entries for a report year.
type Ledger []Entry

// Total sums every entry's commission.
func (l Ledger) Total() decimal.Decimal {
	total := decimal.Zero
	for _, e := range l {
		total = total.Add(e.Commission)
	}
	return total
}

// Sort orders the ledger by (salesperson, date, label, category, source).
// The sort is stable so entries equal on every key keep pipeline order.
func (l Ledger) Sort() {
	sort.SliceStable(l, func(i, j int) bool {
		a, b := l[i], l[j]
		if a.Salesperson != b.Salesperson {
			return a.Salesperson < b.Salesperson
		}
		if !a.InvoiceDate.Equal(b.InvoiceDate) {
			return a.InvoiceDate.Before(b.InvoiceDate)
		}
		if a.Label != b.Label {
			return a.Label < b.Label
		}
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		return a.Source < b.Source
	})
}

// =============================================================================
// CONFIGURATION INPUTS
// =============================================================================

// Offset is a manual ledger adjustment. Amount keeps its sign.
type Offset struct {
	EffectiveDate generic.TimePoint
	Salesperson   string
	Category      string
	Amount        decimal.Decimal
	Note          string
}

// NameMapping rewrites an invoice customer name to the name rules use.
// A blank SourceSystem applies to every source.
type NameMapping struct {
	Before       string
	After        string
	SourceSystem string
}

func (m NameMapping) appliesTo(name, source string) bool {
	if m.Before != name {
		return false
	}
	return m.SourceSystem == "" || strings.EqualFold(m.SourceSystem, source)
}

// =============================================================================
// OPTIONS & STATS
// =============================================================================

// Options control one ledger build.
type Options struct {
	ReportYear int

	// AggregateOtherCategories keeps resource rules whose category is neither
	// referral nor delivery, grouped with the delivery key. Off by default:
	// such intermediates are dropped and counted in Stats.
	AggregateOtherCategories bool
}

// Stats counts rows that did not produce commission.
type Stats struct {
	Transactions          int // in the report year with a client
	TransactionsMatched   int
	TransactionsUnmatched int
	TransactionsExcluded  int // no date, outside the year, or blank client

	TimeEntries          int // in the report year with staff and revenue
	TimeEntriesMatched   int
	TimeEntriesUnmatched int
	TimeEntriesExcluded  int // no staff, no date, zero revenue, or outside the year

	DroppedIntermediates int // resource matches in a category with no aggregation key
	Offsets              int
	OffsetsExcluded      int

	UnmatchedClients   []string // distinct, first-seen order
	UnmatchedResources []string
}

// Lines renders Stats for operator logs.
func (s Stats) Lines() []string {
	lines := []string{
		fmt.Sprintf("transactions: %d in year, %d matched, %d without a rule, %d excluded",
			s.Transactions, s.TransactionsMatched, s.TransactionsUnmatched, s.TransactionsExcluded),
		fmt.Sprintf("time entries: %d in year, %d matched, %d without a rule, %d excluded",
			s.TimeEntries, s.TimeEntriesMatched, s.TimeEntriesUnmatched, s.TimeEntriesExcluded),
		fmt.Sprintf("offsets: %d applied, %d outside the year", s.Offsets, s.OffsetsExcluded),
	}
	if s.DroppedIntermediates > 0 {
		lines = append(lines, fmt.Sprintf("resource matches dropped (category not aggregated): %d", s.DroppedIntermediates))
	}
	for _, err := range s.Unresolved() {
		lines = append(lines, err.Error())
	}
	return lines
}

// Unresolved returns one error wrapping generic.ErrUnresolvedReference per
// distinct client or staff member that no rule covered.
func (s Stats) Unresolved() []error {
	errs := make([]error, 0, len(s.UnmatchedClients)+len(s.UnmatchedResources))
	for _, c := range s.UnmatchedClients {
		errs = append(errs, fmt.Errorf("%w: client %q has no client rule", generic.ErrUnresolvedReference, c))
	}
	for _, r := range s.UnmatchedResources {
		errs = append(errs, fmt.Errorf("%w: staff member %q has no resource rule", generic.ErrUnresolvedReference, r))
	}
	return errs
}

func appendDistinct(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}
