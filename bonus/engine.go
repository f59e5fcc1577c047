package bonus

import (
	"github.com/shopspring/decimal"
	"github.com/warp/bizops-engine/generic"
)

// =============================================================================
// OVERRIDES
// =============================================================================

// Override replaces an employee's targets for one report run. A nil field
// leaves the configured target alone. Name must match exactly.
type Override struct {
	Name              string
	UtilizationTarget *decimal.Decimal
	OtherTarget       *decimal.Decimal
}

// ApplyOverrides returns a copy of emps with overrides applied, plus the
// names that were overridden. When a name is overridden twice the last
// override wins.
func ApplyOverrides(emps []generic.Employee, overrides []Override) ([]generic.Employee, map[string]bool) {
	byName := make(map[string]Override, len(overrides))
	for _, o := range overrides {
		byName[o.Name] = o
	}

	applied := make(map[string]bool)
	out := make([]generic.Employee, len(emps))
	for i, e := range emps {
		if o, ok := byName[e.Name]; ok {
			if o.UtilizationTarget != nil {
				e.UtilizationTarget = *o.UtilizationTarget
			}
			if o.OtherTarget != nil {
				e.OtherTarget = *o.OtherTarget
			}
			applied[e.Name] = true
		}
		out[i] = e
	}
	return out, applied
}

// =============================================================================
// BONUS LINE - One employee's worksheet row
// =============================================================================

// Line is the full bonus computation for one employee.
type Line struct {
	Name       string
	StartDate  generic.TimePoint
	Proration  decimal.Decimal
	Overridden bool

	UtilizationTarget decimal.Decimal
	OtherTarget       decimal.Decimal

	Hours          Hours
	ProjectedHours Hours

	YTD       TierResult
	Projected TierResult

	OtherYTD       decimal.Decimal
	OtherProjected decimal.Decimal

	TotalYTD       decimal.Decimal
	TotalProjected decimal.Decimal

	BurdenYTD       Burden
	BurdenProjected Burden
}

// Input is everything the bonus engine needs for one run.
type Input struct {
	Employees []generic.Employee
	Hours     map[string]Hours // by employee name; missing means no hours
	Overrides []Override
}

// Compute produces one Line per employee, in input order.
func Compute(in Input, ytd generic.YearToDate) []Line {
	emps, overridden := ApplyOverrides(in.Employees, in.Overrides)

	elapsed := ytd.ElapsedDays()
	total := ytd.TotalDays()
	elapsedFraction := decimal.NewFromInt(int64(elapsed)).Div(decimal.NewFromInt(int64(total)))

	lines := make([]Line, 0, len(emps))
	for _, e := range emps {
		hours, ok := in.Hours[e.Name]
		if !ok {
			hours = Hours{Billable: decimal.Zero, ProBono: decimal.Zero}
		}
		p := Proration(e.StartDate, ytd)
		projected := hours.Project(elapsed, total)

		l := Line{
			Name:              e.Name,
			StartDate:         e.StartDate,
			Proration:         p,
			Overridden:        overridden[e.Name],
			UtilizationTarget: e.UtilizationTarget,
			OtherTarget:       e.OtherTarget,
			Hours:             hours,
			ProjectedHours:    projected,
			YTD:               ResolveTier(hours.Eligible(), e.UtilizationTarget, p),
			Projected:         ResolveTier(projected.Eligible(), e.UtilizationTarget, p),
			OtherYTD:          generic.Cents(e.OtherTarget.Mul(elapsedFraction)),
			OtherProjected:    generic.Cents(e.OtherTarget),
		}
		l.TotalYTD = l.YTD.Bonus.Add(l.OtherYTD)
		l.TotalProjected = l.Projected.Bonus.Add(l.OtherProjected)
		l.BurdenYTD = BurdenOf(l.TotalYTD)
		l.BurdenProjected = BurdenOf(l.TotalProjected)

		lines = append(lines, l)
	}
	return lines
}

// Totals is the firm-wide bonus cost.
type Totals struct {
	TotalYTD              decimal.Decimal
	TotalProjected        decimal.Decimal
	EmployerCostYTD       decimal.Decimal
	EmployerCostProjected decimal.Decimal
}

// Sum totals the money columns of lines.
func Sum(lines []Line) Totals {
	t := Totals{
		TotalYTD:              decimal.Zero,
		TotalProjected:        decimal.Zero,
		EmployerCostYTD:       decimal.Zero,
		EmployerCostProjected: decimal.Zero,
	}
	for _, l := range lines {
		t.TotalYTD = t.TotalYTD.Add(l.TotalYTD)
		t.TotalProjected = t.TotalProjected.Add(l.TotalProjected)
		t.EmployerCostYTD = t.EmployerCostYTD.Add(l.BurdenYTD.EmployerCost)
		t.EmployerCostProjected = t.EmployerCostProjected.Add(l.BurdenProjected.EmployerCost)
	}
	return t
}
