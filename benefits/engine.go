package benefits

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/bizops-engine/generic"
)

// =============================================================================
// PER-EMPLOYEE RESOLUTION
// =============================================================================

// Election is one resolved slot for one employee.
type Election struct {
	Slot        Slot
	Code        string // normalized; the declined code when blank
	Description string
	Declined    bool
	Unknown     bool
	Monthly     Cost
}

// EmployeeBenefits is one employee's benefit allocation.
type EmployeeBenefits struct {
	Name      string
	Salary    decimal.Decimal
	Elections []Election // one per slot, in Slots order
	Monthly   Cost
	Annual    Cost
	Notes     []string
}

// Election returns the resolved election for slot.
func (e EmployeeBenefits) Election(slot Slot) Election {
	for _, el := range e.Elections {
		if el.Slot == slot {
			return el
		}
	}
	return Election{Slot: slot, Monthly: ZeroCost()}
}

func electedCode(emp generic.Employee, slot Slot) string {
	switch slot {
	case SlotMedical:
		return emp.Elections.Medical
	case SlotDental:
		return emp.Elections.Dental
	case SlotVision:
		return emp.Elections.Vision
	case SlotSTD:
		return emp.Elections.STD
	case SlotLTD:
		return emp.Elections.LTD
	case SlotLife:
		return emp.Elections.Life
	}
	return ""
}

// ResolveSlot prices one election.
func ResolveSlot(slot Slot, rawCode string, salary decimal.Decimal, catalog Catalog) (Election, error) {
	code := NormalizeCode(rawCode)
	if code == "" {
		code = slot.DeclinedCode()
	}
	el := Election{Slot: slot, Code: code, Monthly: ZeroCost()}

	if code == slot.DeclinedCode() || IsDeclined(code) {
		el.Declined = true
		if entry, ok := catalog.Lookup(code); ok {
			el.Description = entry.Description
		}
		return el, nil
	}

	entry, ok := catalog.Lookup(code)
	if !ok {
		el.Unknown = true
		return el, fmt.Errorf("%w: %s", generic.ErrUnknownBenefitCode, unknownNote(slot, code))
	}
	el.Description = entry.Description

	if entry.FormulaBased {
		el.Monthly = formulaCost(slot, code, salary)
		return el, nil
	}
	el.Monthly = Cost{
		Total:    entry.TotalMonthly,
		Employee: entry.EmployeeMonthly,
		Firm:     entry.FirmMonthly,
	}
	return el, nil
}

func unknownNote(slot Slot, code string) string {
	return fmt.Sprintf("Unknown %s code: %s - assumed declined", slot.Label(), code)
}

// Resolve prices all six slots for emp. Unknown codes become notes.
func Resolve(emp generic.Employee, catalog Catalog) EmployeeBenefits {
	out := EmployeeBenefits{
		Name:    emp.Name,
		Salary:  emp.Salary,
		Monthly: ZeroCost(),
	}
	for _, slot := range Slots {
		el, err := ResolveSlot(slot, electedCode(emp, slot), emp.Salary, catalog)
		if err != nil {
			out.Notes = append(out.Notes, unknownNote(slot, el.Code))
		}
		out.Elections = append(out.Elections, el)
		out.Monthly = out.Monthly.Add(el.Monthly)
	}
	out.Annual = out.Monthly.Times(12)
	return out
}

// =============================================================================
// FIRM SUMMARY
// =============================================================================

// SummaryRow is the firm-wide cost of one slot.
type SummaryRow struct {
	Label    string
	Enrolled int // employees with a non-declined, known code
	Monthly  Cost
	Annual   Cost
}

// FirmSummary has one row per slot plus a totals row.
type FirmSummary struct {
	Rows  []SummaryRow
	Total SummaryRow
}

// Report is the full benefits computation for one run.
type Report struct {
	Employees []EmployeeBenefits
	Summary   FirmSummary
}

// Compute resolves every employee and builds the firm summary.
func Compute(emps []generic.Employee, catalog Catalog) Report {
	rep := Report{Employees: make([]EmployeeBenefits, 0, len(emps))}
	for _, e := range emps {
		rep.Employees = append(rep.Employees, Resolve(e, catalog))
	}
	rep.Summary = Summarize(rep.Employees)
	return rep
}

// Summarize sums employees per slot.
func Summarize(emps []EmployeeBenefits) FirmSummary {
	var s FirmSummary
	total := SummaryRow{Label: "Total", Monthly: ZeroCost()}

	for _, slot := range Slots {
		row := SummaryRow{Label: slot.Label(), Monthly: ZeroCost()}
		for _, e := range emps {
			el := e.Election(slot)
			if !el.Declined && !el.Unknown {
				row.Enrolled++
			}
			row.Monthly = row.Monthly.Add(el.Monthly)
		}
		row.Annual = row.Monthly.Times(12)
		total.Enrolled += row.Enrolled
		total.Monthly = total.Monthly.Add(row.Monthly)
		s.Rows = append(s.Rows, row)
	}
	total.Annual = total.Monthly.Times(12)
	s.Total = total
	return s
}
