/*
Package rules holds the date-ranged commission rule table and its matcher.

PURPOSE:
  A commission rule says "while this rule is in effect, salesperson S earns
  rate R on revenue from subject X". Subjects are either a client (revenue
  from invoices) or a resource (revenue from a staff member's billable time).
  The matcher answers one question: which rules apply to this subject on this
  date?

KEY CONCEPTS:
  Scope:  ScopeClient or ScopeResource
  Rule:   One row of the Rules configuration table
  Table:  The day's rule snapshot, in configuration order

MATCHING:
  A rule matches when scope and subject are equal and
      StartDate <= asOf AND (EndDate is zero OR EndDate >= asOf)
  Both bounds are inclusive. ALL matching rules are returned in table order.
  There is no precedence: if two rules for the same subject overlap, both
  apply and both produce commission. Validate() reports such overlaps so an
  operator can decide whether they are intentional.

EXAMPLE:
  table := rules.Table{
      {Scope: rules.ScopeClient, Subject: "Acme", Salesperson: "Jane",
       Category: "Client Commission", Rate: decimal.RequireFromString("0.1"),
       StartDate: generic.NewTimePoint(2024, 1, 1)},
  }
  matches := table.Match(rules.ScopeClient, "Acme", invoiceDate)

SEE ALSO:
  - commission/engine.go: Calls Match once per transaction and time entry
  - factory/config.go: Builds a Table from the Rules sheet
*/
package rules

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/bizops-engine/generic"
)

// =============================================================================
// RULE
// =============================================================================

// Scope says what kind of subject a rule applies to.
type Scope string

const (
	ScopeClient   Scope = "client"
	ScopeResource Scope = "resource"
)

// Categories with special aggregation in the resource pipeline.
const (
	CategoryClient   = "Client Commission"
	CategoryReferral = "Referral Commission"
	CategoryDelivery = "Delivery Commission"
)

// Rule is one commission rule.
type Rule struct {
	Scope       Scope
	Subject     string // client name or staff name
	Salesperson string
	Category    string
	Rate        decimal.Decimal // fraction, 0.1 = 10%

	StartDate generic.TimePoint
	EndDate   generic.TimePoint // zero = open-ended
}

// OpenEnded is true when the rule has no end date.
func (r Rule) OpenEnded() bool { return r.EndDate.IsZero() }

// IsActive returns true if the rule is in effect on asOf. A zero asOf never
// matches: rows with unparseable dates do not earn commission.
func (r Rule) IsActive(asOf generic.TimePoint) bool {
	if asOf.IsZero() || asOf.Before(r.StartDate) {
		return false
	}
	if !r.OpenEnded() && asOf.After(r.EndDate) {
		return false
	}
	return true
}

func (r Rule) String() string {
	end := "open"
	if !r.OpenEnded() {
		end = r.EndDate.String()
	}
	return fmt.Sprintf("%s %q -> %s (%s @ %s) [%s, %s]",
		r.Scope, r.Subject, r.Salesperson, r.Category, r.Rate, r.StartDate, end)
}

// =============================================================================
// TABLE & MATCHER
// =============================================================================

// Table is an ordered rule snapshot.
type Table []Rule

// Match returns every rule for (scope, subject) active on asOf, in table order.
func (t Table) Match(scope Scope, subject string, asOf generic.TimePoint) []Rule {
	var out []Rule
	for _, r := range t {
		if r.Scope == scope && r.Subject == subject && r.IsActive(asOf) {
			out = append(out, r)
		}
	}
	return out
}

// Match is the free-function form of Table.Match.
func Match(scope Scope, subject string, asOf generic.TimePoint, table Table) []Rule {
	return table.Match(scope, subject, asOf)
}

// =============================================================================
// VALIDATION - Overlaps are reported, never resolved
// =============================================================================

// Overlap names two rules for the same (scope, subject, category) whose date
// ranges intersect. Both still apply when matching.
type Overlap struct {
	First  int // index into the table
	Second int
	Rule   Rule
	Other  Rule
}

func (o Overlap) String() string {
	return fmt.Sprintf("rules %d and %d overlap for %s %q (%s): commission will be counted twice in the shared range",
		o.First+1, o.Second+1, o.Rule.Scope, o.Rule.Subject, o.Rule.Category)
}

// Validate returns every overlapping pair and any rule whose end date is
// before its start date.
func (t Table) Validate() ([]Overlap, []error) {
	var overlaps []Overlap
	var errs []error

	for i, r := range t {
		if !r.OpenEnded() {
			if err := (generic.Period{Start: r.StartDate, End: r.EndDate}).Validate(); err != nil {
				errs = append(errs, fmt.Errorf("rule %d (%s %q): %w", i+1, r.Scope, r.Subject, err))
			}
		}
		for j := i + 1; j < len(t); j++ {
			o := t[j]
			if r.Scope != o.Scope || r.Subject != o.Subject || r.Category != o.Category {
				continue
			}
			if rangesIntersect(r, o) {
				overlaps = append(overlaps, Overlap{First: i, Second: j, Rule: r, Other: o})
			}
		}
	}
	return overlaps, errs
}

func rangesIntersect(a, b Rule) bool {
	// a starts after b ends, or b starts after a ends
	if !b.OpenEnded() && a.StartDate.After(b.EndDate) {
		return false
	}
	if !a.OpenEnded() && b.StartDate.After(a.EndDate) {
		return false
	}
	return true
}
