package commission

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/bizops-engine/generic"
	"github.com/warp/bizops-engine/normalize"
	"github.com/warp/bizops-engine/rules"
)

// OffsetLabel is the ledger label for manual adjustments.
const OffsetLabel = "Offset"

// Input is the configuration and feed snapshot for one ledger build.
type Input struct {
	Transactions []normalize.Transaction
	TimeEntries  []normalize.TimeEntry
	Rules        rules.Table
	Offsets      []Offset
	Mappings     []NameMapping
}

// Result is a built ledger plus what was left out of it.
type Result struct {
	Ledger Ledger
	Stats  Stats
}

// Build runs the client, resource and offset pipelines and returns the sorted
// ledger. Build has no side effects: the same input always yields the same
// ledger.
func Build(in Input, opts Options) Result {
	var stats Stats

	ledger := ClientCommissions(in.Transactions, in.Mappings, in.Rules, opts.ReportYear, &stats)
	ledger = append(ledger, ResourceCommissions(in.TimeEntries, in.Rules, opts, &stats)...)
	ledger = append(ledger, OffsetEntries(in.Offsets, opts.ReportYear, &stats)...)
	ledger.Sort()

	return Result{Ledger: ledger, Stats: stats}
}

// =============================================================================
// CLIENT PIPELINE
// =============================================================================

// NormalizeClient splits off the sub-account suffix ("Acme:Project X" ->
// "Acme"), trims, and applies the first mapping for source.
func NormalizeClient(raw, source string, mappings []NameMapping) string {
	name := raw
	if i := strings.Index(name, ":"); i >= 0 {
		name = name[:i]
	}
	name = strings.TrimSpace(name)
	for _, m := range mappings {
		if m.appliesTo(name, source) {
			return strings.TrimSpace(m.After)
		}
	}
	return name
}

// ClientCommissions emits one entry per (transaction, matched client rule).
// stats may be nil.
func ClientCommissions(txs []normalize.Transaction, mappings []NameMapping, table rules.Table, year int, stats *Stats) Ledger {
	if stats == nil {
		stats = &Stats{}
	}
	var out Ledger

	for _, tx := range txs {
		if tx.Date.IsZero() || tx.Date.Year() != year {
			stats.TransactionsExcluded++
			continue
		}
		client := NormalizeClient(tx.ClientName, tx.SourceSystem, mappings)
		if client == "" {
			stats.TransactionsExcluded++
			continue
		}
		stats.Transactions++

		matches := table.Match(rules.ScopeClient, client, tx.Date)
		if len(matches) == 0 {
			stats.TransactionsUnmatched++
			stats.UnmatchedClients = appendDistinct(stats.UnmatchedClients, client)
			continue
		}
		stats.TransactionsMatched++

		for _, r := range matches {
			out = append(out, Entry{
				Salesperson:   r.Salesperson,
				Label:         client,
				Category:      r.Category,
				InvoiceDate:   tx.Date,
				InvoiceAmount: tx.Amount,
				Rate:          r.Rate,
				Commission:    tx.Amount.Mul(r.Rate),
				Source:        sourceLabel(tx.SourceSystem, rules.CategoryClient),
			})
		}
	}
	return out
}

// =============================================================================
// RESOURCE PIPELINE
// =============================================================================

// intermediate is one (time entry, matched resource rule) pair before
// monthly aggregation.
type intermediate struct {
	salesperson string
	resource    string
	client      string
	category    string
	month       generic.YearMonth
	revenue     decimal.Decimal
	rate        decimal.Decimal
	commission  decimal.Decimal
	source      string
	layer       int
}

// groupKey is (salesperson, resource, [client,] category, month) plus the
// layer. A time entry matched by two rules for the same salesperson and
// category at once puts the second match on layer 1, so overlapping rules
// stay as separate entries. Rules that follow one another within a month
// both sit on layer 0 and merge.
type groupKey struct {
	salesperson string
	resource    string
	client      string // blank for referral
	category    string
	month       generic.YearMonth
	source      string
	layer       int
}

type group struct {
	revenue    decimal.Decimal
	commission decimal.Decimal
	rate       decimal.Decimal // first value seen
}

// ResourceCommissions matches billable time against resource rules and
// aggregates the matches to one entry per group per month. stats may be nil.
func ResourceCommissions(entries []normalize.TimeEntry, table rules.Table, opts Options, stats *Stats) Ledger {
	if stats == nil {
		stats = &Stats{}
	}

	var items []intermediate
	for _, e := range entries {
		staff := strings.TrimSpace(e.StaffName)
		if staff == "" || e.Date.IsZero() || e.BillableAmount.IsZero() || e.Date.Year() != opts.ReportYear {
			stats.TimeEntriesExcluded++
			continue
		}
		stats.TimeEntries++

		matches := table.Match(rules.ScopeResource, staff, e.Date)
		if len(matches) == 0 {
			stats.TimeEntriesUnmatched++
			stats.UnmatchedResources = appendDistinct(stats.UnmatchedResources, staff)
			continue
		}
		stats.TimeEntriesMatched++

		layers := make(map[[2]string]int, len(matches))
		for _, r := range matches {
			lk := [2]string{r.Salesperson, r.Category}
			layer := layers[lk]
			layers[lk]++
			items = append(items, intermediate{
				salesperson: r.Salesperson,
				resource:    staff,
				client:      strings.TrimSpace(e.ClientName),
				category:    r.Category,
				month:       e.Date.YearMonth(),
				revenue:     e.BillableAmount,
				rate:        r.Rate,
				commission:  e.BillableAmount.Mul(r.Rate),
				source:      e.SourceSystem,
				layer:       layer,
			})
		}
	}

	groups, order := aggregate(items, opts, stats)

	out := make(Ledger, 0, len(order))
	for _, k := range order {
		g := groups[k]
		out = append(out, Entry{
			Salesperson:   k.salesperson,
			Label:         resourceLabel(k),
			Category:      k.category,
			InvoiceDate:   k.month.LastDay(),
			InvoiceAmount: g.revenue,
			Rate:          g.rate,
			Commission:    g.commission,
			Source:        sourceLabel(k.source, k.category),
		})
	}
	return out
}

func aggregate(items []intermediate, opts Options, stats *Stats) (map[groupKey]*group, []groupKey) {
	groups := make(map[groupKey]*group)
	var order []groupKey

	for _, it := range items {
		key := groupKey{
			salesperson: it.salesperson,
			resource:    it.resource,
			category:    it.category,
			month:       it.month,
			source:      it.source,
			layer:       it.layer,
		}
		switch {
		case it.category == rules.CategoryReferral:
			// referral commission is per resource, not per engagement
		case it.category == rules.CategoryDelivery, opts.AggregateOtherCategories:
			key.client = it.client
		default:
			stats.DroppedIntermediates++
			continue
		}

		g, ok := groups[key]
		if !ok {
			g = &group{revenue: decimal.Zero, commission: decimal.Zero, rate: it.rate}
			groups[key] = g
			order = append(order, key)
		}
		g.revenue = g.revenue.Add(it.revenue)
		g.commission = g.commission.Add(it.commission)
	}
	return groups, order
}

func resourceLabel(k groupKey) string {
	if k.category == rules.CategoryReferral || k.client == "" {
		return k.resource
	}
	return k.resource + " @ " + k.client
}

// =============================================================================
// OFFSETS
// =============================================================================

// OffsetEntries turns offsets effective in year into ledger entries.
// stats may be nil.
func OffsetEntries(offsets []Offset, year int, stats *Stats) Ledger {
	if stats == nil {
		stats = &Stats{}
	}
	var out Ledger
	for _, o := range offsets {
		if o.EffectiveDate.IsZero() || o.EffectiveDate.Year() != year {
			stats.OffsetsExcluded++
			continue
		}
		stats.Offsets++
		out = append(out, Entry{
			Salesperson:   o.Salesperson,
			Label:         OffsetLabel,
			Category:      o.Category,
			InvoiceDate:   o.EffectiveDate,
			InvoiceAmount: decimal.Zero,
			Rate:          decimal.Zero,
			Commission:    o.Amount,
			Source:        "Offset - " + o.Note,
		})
	}
	return out
}

func sourceLabel(system, category string) string {
	if system == "" {
		return category
	}
	return system + " - " + category
}
