package export

import (
	"fmt"
	"strings"

	"github.com/warp/bizops-engine/benefits"
	"github.com/warp/bizops-engine/bonus"
	"github.com/warp/bizops-engine/commission"
)

// =============================================================================
// COMMISSION
// =============================================================================

var ledgerHeaders = []string{"Salesperson", "Label", "Category", "Invoice Date", "Invoice Amount", "Rate", "Commission", "Source"}

// CommissionWorkbook renders a ledger with its rollups.
func CommissionWorkbook(ledger commission.Ledger) ([]byte, error) {
	b, err := newBook()
	if err != nil {
		return nil, err
	}
	taken := map[string]bool{"ledger": true, "summary": true, "categories": true, "clients": true}

	all := b.addSheet("Ledger")
	writeLedger(all, ledger)

	summary := b.addSheet("Summary")
	summary.headers("Salesperson", "Entries", "Total", "Due")
	summaries := commission.Summarize(ledger)
	for _, s := range summaries {
		summary.add(s.Salesperson, s.Entries, s.Total, s.Due)
	}
	summary.add("Total", len(ledger), ledger.Total(), commission.TotalDue(summaries))

	cats := b.addSheet("Categories")
	cats.headers("Salesperson", "Category", "Entries", "Total")
	for _, c := range commission.ByCategory(ledger) {
		cats.add(c.Salesperson, c.Category, c.Entries, c.Total)
	}

	clients := b.addSheet("Clients")
	clients.headers("Salesperson", "Label", "Revenue", "Commission")
	for _, c := range commission.ByClient(ledger) {
		clients.add(c.Salesperson, c.Label, c.Revenue, c.Total)
	}

	sheets := []*sheet{all, summary, cats, clients}
	for _, p := range commission.BySalesperson(ledger) {
		s := b.addSheet(SheetName(p.Salesperson, taken))
		writeLedger(s, p.Entries)
		s.add("Total", "", "", "", "", "", p.Entries.Total(), "")
		sheets = append(sheets, s)
	}
	return b.bytes(sheets...)
}

func writeLedger(s *sheet, l commission.Ledger) {
	s.headers(ledgerHeaders...)
	for _, e := range l {
		s.add(e.Salesperson, e.Label, e.Category, e.InvoiceDate.String(), e.InvoiceAmount, e.Rate.InexactFloat64(), e.Commission, e.Source)
	}
}

// =============================================================================
// BONUS
// =============================================================================

// BonusWorkbook renders the bonus worksheet.
func BonusWorkbook(lines []bonus.Line) ([]byte, error) {
	b, err := newBook()
	if err != nil {
		return nil, err
	}

	s := b.addSheet("Bonus")
	s.headers(
		"Name", "Start Date", "Proration", "Override",
		"Utilization Target", "Other Target",
		"Billable Hours", "Pro Bono Hours", "Eligible Hours",
		"Tier YTD", "Utilization Bonus YTD", "Other Bonus YTD", "Total YTD", "Employer Cost YTD",
		"Projected Eligible Hours", "Tier Projected", "Utilization Bonus Projected",
		"Other Bonus Projected", "Total Projected", "Employer Cost Projected",
	)
	for _, l := range lines {
		override := ""
		if l.Overridden {
			override = "Yes"
		}
		s.add(
			l.Name, l.StartDate.String(), l.Proration.Round(4).InexactFloat64(), override,
			l.UtilizationTarget, l.OtherTarget,
			l.Hours.Billable.InexactFloat64(), l.Hours.ProBono.InexactFloat64(), l.YTD.EligibleHours.InexactFloat64(),
			int(l.YTD.Tier), l.YTD.Bonus, l.OtherYTD, l.TotalYTD, l.BurdenYTD.EmployerCost,
			l.Projected.EligibleHours.Round(2).InexactFloat64(), int(l.Projected.Tier), l.Projected.Bonus,
			l.OtherProjected, l.TotalProjected, l.BurdenProjected.EmployerCost,
		)
	}

	totals := b.addSheet("Totals")
	t := bonus.Sum(lines)
	totals.headers("Measure", "Year to Date", "Projected")
	totals.add("Total Bonus", t.TotalYTD, t.TotalProjected)
	totals.add("Employer Cost", t.EmployerCostYTD, t.EmployerCostProjected)

	return b.bytes(s, totals)
}

// =============================================================================
// BENEFITS
// =============================================================================

// BenefitsWorkbook renders per-employee allocations and the firm summary.
func BenefitsWorkbook(rep benefits.Report) ([]byte, error) {
	b, err := newBook()
	if err != nil {
		return nil, err
	}

	emps := b.addSheet("Employees")
	cols := []string{"Name", "Salary"}
	for _, slot := range benefits.Slots {
		cols = append(cols, slot.Label()+" Code", slot.Label()+" Monthly")
	}
	cols = append(cols, "Monthly Total", "Monthly Employee", "Monthly Firm", "Annual Total", "Notes")
	emps.headers(cols...)

	for _, e := range rep.Employees {
		row := []any{e.Name, e.Salary}
		for _, slot := range benefits.Slots {
			el := e.Election(slot)
			row = append(row, el.Code, el.Monthly.Total)
		}
		row = append(row, e.Monthly.Total, e.Monthly.Employee, e.Monthly.Firm, e.Annual.Total, strings.Join(e.Notes, "; "))
		emps.add(row...)
	}

	summary := b.addSheet("Summary")
	summary.headers("Benefit", "Enrolled", "Monthly Total", "Monthly Employee", "Monthly Firm", "Annual Total", "Annual Employee", "Annual Firm")
	rows := make([]benefits.SummaryRow, 0, len(rep.Summary.Rows)+1)
	rows = append(rows, rep.Summary.Rows...)
	for _, r := range append(rows, rep.Summary.Total) {
		summary.add(r.Label, r.Enrolled, r.Monthly.Total, r.Monthly.Employee, r.Monthly.Firm, r.Annual.Total, r.Annual.Employee, r.Annual.Firm)
	}

	return b.bytes(emps, summary)
}

// FileName is the attachment/download name for a report.
func FileName(kind string, year int) string {
	return fmt.Sprintf("%s_%d.xlsx", kind, year)
}
