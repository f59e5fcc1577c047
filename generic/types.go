/*
Package generic provides the shared building blocks of the report engine.

PURPOSE:
  This package contains the types every report needs regardless of what it
  computes. Commission ledgers, bonus worksheets and benefit allocations all
  work on the same dates, the same decimal money, the same raw tables and the
  same error taxonomy, so those live here.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money and hours: decimal.Decimal everywhere, never float64
  - Employee: the staff record shared by the bonus and benefits engines
  - BenefitElections: the six benefit codes an employee has elected

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point errors
  2. Explicit state: No package-level mutable state; everything a run needs
     is passed in and everything it produces is returned
  3. Transience: Inputs and outputs live for one report run only

USAGE:
  emp := generic.Employee{
      Name:              "Jane Doe",
      StartDate:         generic.NewTimePoint(2024, time.March, 4),
      Salary:            decimal.NewFromInt(104000),
      UtilizationTarget: decimal.NewFromInt(10000),
  }

SEE ALSO:
  - time.go: TimePoint and calendar helpers
  - period.go: Report periods and elapsed-day arithmetic
  - table.go: Raw tabular input from feeds and the configuration store
  - errors.go: Error taxonomy shared by every report
*/
package generic

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// DECIMAL HELPERS
// =============================================================================

// Cents rounds to two decimal places (half away from zero).
func Cents(d decimal.Decimal) decimal.Decimal { return d.Round(2) }

// MaxZero floors d at zero.
func MaxZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// MinDecimal returns the smaller of a and b.
func MinDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// =============================================================================
// EMPLOYEE - Staff configuration snapshot
// =============================================================================

// Employee is one row of the Staff configuration table.
// Read-only input to the bonus and benefits engines.
type Employee struct {
	Name      string
	StartDate TimePoint
	Salary    decimal.Decimal

	// Annual bonus targets before proration
	UtilizationTarget decimal.Decimal
	OtherTarget       decimal.Decimal

	Elections BenefitElections
}

// BenefitElections holds the raw benefit codes for each slot.
// A blank code means the employee declined that benefit.
type BenefitElections struct {
	Medical string
	Dental  string
	Vision  string
	STD     string
	LTD     string
	Life    string
}
