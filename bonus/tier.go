/*
Package bonus computes utilization and discretionary bonuses.

PURPOSE:
  Each employee has an annual utilization bonus target and an optional
  "other" (discretionary) target. The utilization bonus pays out according
  to how many eligible hours the employee has worked relative to a prorated
  hour threshold. The report shows both the year-to-date figure and a
  projection to year end.

KEY CONCEPTS:
  Proration:      Fraction of the period the employee was on staff
  Eligible hours: Billable hours + pro-bono hours capped at 40
  Tier:           1 (full rate), 2 (75% rate), 3 (nothing)
  Burden:         Employer payroll tax + retirement match on the bonus

TIERS (p = proration):
  eligible >= 1840p              Tier 1: target*p * eligible / 1840p
  1350p <= eligible < 1840p      Tier 2: target*p * 0.75 * eligible / 1840p
  eligible < 1350p               Tier 3: 0
  p == 0                         no bonus

PRORATION:
  start <= Jan 1         -> 1
  start >  as-of         -> 0
  otherwise              -> days(start..asOf) / days(Jan 1..asOf), inclusive

  The denominator is elapsed days in the period, not the calendar year.
  Projection keeps the same proration factor.

SEE ALSO:
  - engine.go: Per-employee computation and overrides
  - hours.go: Hour tallies from classified time entries
*/
package bonus

import (
	"github.com/shopspring/decimal"
	"github.com/warp/bizops-engine/generic"
)

// =============================================================================
// CONSTANTS - Fixed by firm policy, not configuration
// =============================================================================

var (
	Tier1Hours          = decimal.NewFromInt(1840)
	Tier2Hours          = decimal.NewFromInt(1350)
	Tier2Factor         = decimal.RequireFromString("0.75")
	ProBonoCap          = decimal.NewFromInt(40)
	PayrollTaxRate      = decimal.RequireFromString("0.0765")
	RetirementMatchRate = decimal.RequireFromString("0.04")
)

// =============================================================================
// PRORATION
// =============================================================================

// Proration returns the fraction of ytd's period the employee was on staff.
// A zero start date counts as on staff all year.
func Proration(start generic.TimePoint, ytd generic.YearToDate) decimal.Decimal {
	period := ytd.Period()
	switch {
	case start.IsZero() || start.BeforeOrEqual(period.Start):
		return decimal.NewFromInt(1)
	case start.After(ytd.AsOf):
		return decimal.Zero
	}
	onStaff := generic.Period{Start: start, End: ytd.AsOf}.Days()
	return decimal.NewFromInt(int64(onStaff)).Div(decimal.NewFromInt(int64(ytd.ElapsedDays())))
}

// =============================================================================
// TIERS
// =============================================================================

type Tier int

const (
	Tier1 Tier = 1
	Tier2 Tier = 2
	Tier3 Tier = 3
)

// TierResult is the tier lookup for one set of eligible hours.
type TierResult struct {
	Tier           Tier
	EligibleHours  decimal.Decimal
	Tier1Threshold decimal.Decimal
	Tier2Threshold decimal.Decimal
	ProratedTarget decimal.Decimal
	Bonus          decimal.Decimal
}

// ResolveTier applies the tier table to eligible hours. Thresholds and target
// are both scaled by proration. Bonus is rounded to cents.
func ResolveTier(eligible, annualTarget, proration decimal.Decimal) TierResult {
	res := TierResult{
		Tier:           Tier3,
		EligibleHours:  eligible,
		Tier1Threshold: Tier1Hours.Mul(proration),
		Tier2Threshold: Tier2Hours.Mul(proration),
		ProratedTarget: annualTarget.Mul(proration),
		Bonus:          decimal.Zero,
	}
	if res.Tier1Threshold.IsZero() {
		return res
	}

	ratio := eligible.Div(res.Tier1Threshold)
	switch {
	case eligible.GreaterThanOrEqual(res.Tier1Threshold):
		res.Tier = Tier1
		res.Bonus = generic.Cents(res.ProratedTarget.Mul(ratio))
	case eligible.GreaterThanOrEqual(res.Tier2Threshold):
		res.Tier = Tier2
		res.Bonus = generic.Cents(res.ProratedTarget.Mul(Tier2Factor).Mul(ratio))
	}
	return res
}

// =============================================================================
// EMPLOYER BURDEN
// =============================================================================

// Burden is the employer's cost on top of a bonus.
type Burden struct {
	PayrollTax   decimal.Decimal
	Retirement   decimal.Decimal
	Total        decimal.Decimal // PayrollTax + Retirement
	EmployerCost decimal.Decimal // bonus + Total
}

// BurdenOf computes payroll tax and retirement match on bonus.
func BurdenOf(bonus decimal.Decimal) Burden {
	tax := generic.Cents(bonus.Mul(PayrollTaxRate))
	ret := generic.Cents(bonus.Mul(RetirementMatchRate))
	total := tax.Add(ret)
	return Burden{
		PayrollTax:   tax,
		Retirement:   ret,
		Total:        total,
		EmployerCost: bonus.Add(total),
	}
}
