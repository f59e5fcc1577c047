package commission

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/warp/bizops-engine/generic"
)

// =============================================================================
// SUMMARIES - Rollups for the report pages and the export workbook
// =============================================================================

// SalespersonSummary is one salesperson's year.
// Total is unclamped; Due floors it at zero.
type SalespersonSummary struct {
	Salesperson string
	Total       decimal.Decimal
	Due         decimal.Decimal
	Entries     int
}

// CategoryTotal is a (salesperson, category) subtotal.
type CategoryTotal struct {
	Salesperson string
	Category    string
	Total       decimal.Decimal
	Entries     int
}

// ClientTotal is a (salesperson, label) subtotal.
type ClientTotal struct {
	Salesperson string
	Label       string
	Revenue     decimal.Decimal
	Total       decimal.Decimal
}

// PersonLedger is the part of the ledger belonging to one salesperson.
type PersonLedger struct {
	Salesperson string
	Entries     Ledger
}

// Summarize totals the ledger per salesperson, sorted by name.
// Offsets count toward Total, so Total may be negative.
func Summarize(l Ledger) []SalespersonSummary {
	idx := make(map[string]int)
	var out []SalespersonSummary
	for _, e := range l {
		i, ok := idx[e.Salesperson]
		if !ok {
			i = len(out)
			idx[e.Salesperson] = i
			out = append(out, SalespersonSummary{Salesperson: e.Salesperson, Total: decimal.Zero})
		}
		out[i].Total = out[i].Total.Add(e.Commission)
		out[i].Entries++
	}
	for i := range out {
		out[i].Due = generic.MaxZero(out[i].Total)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Salesperson < out[j].Salesperson })
	return out
}

// TotalDue sums the floored amount due across salespeople. A salesperson in
// deficit never reduces what is owed to another.
func TotalDue(summaries []SalespersonSummary) decimal.Decimal {
	total := decimal.Zero
	for _, s := range summaries {
		total = total.Add(s.Due)
	}
	return total
}

// ByCategory subtotals per (salesperson, category).
func ByCategory(l Ledger) []CategoryTotal {
	type key struct{ person, category string }
	idx := make(map[key]int)
	var out []CategoryTotal
	for _, e := range l {
		k := key{e.Salesperson, e.Category}
		i, ok := idx[k]
		if !ok {
			i = len(out)
			idx[k] = i
			out = append(out, CategoryTotal{Salesperson: e.Salesperson, Category: e.Category, Total: decimal.Zero})
		}
		out[i].Total = out[i].Total.Add(e.Commission)
		out[i].Entries++
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Salesperson != out[j].Salesperson {
			return out[i].Salesperson < out[j].Salesperson
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// ByClient subtotals per (salesperson, label). Revenue is the summed invoice
// amount; offsets contribute zero revenue.
func ByClient(l Ledger) []ClientTotal {
	type key struct{ person, label string }
	idx := make(map[key]int)
	var out []ClientTotal
	for _, e := range l {
		k := key{e.Salesperson, e.Label}
		i, ok := idx[k]
		if !ok {
			i = len(out)
			idx[k] = i
			out = append(out, ClientTotal{Salesperson: e.Salesperson, Label: e.Label, Revenue: decimal.Zero, Total: decimal.Zero})
		}
		out[i].Revenue = out[i].Revenue.Add(e.InvoiceAmount)
		out[i].Total = out[i].Total.Add(e.Commission)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Salesperson != out[j].Salesperson {
			return out[i].Salesperson < out[j].Salesperson
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// BySalesperson splits the ledger per salesperson, sorted by name.
// Entry order within each part follows the ledger.
func BySalesperson(l Ledger) []PersonLedger {
	idx := make(map[string]int)
	var out []PersonLedger
	for _, e := range l {
		i, ok := idx[e.Salesperson]
		if !ok {
			i = len(out)
			idx[e.Salesperson] = i
			out = append(out, PersonLedger{Salesperson: e.Salesperson})
		}
		out[i].Entries = append(out[i].Entries, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Salesperson < out[j].Salesperson })
	return out
}
