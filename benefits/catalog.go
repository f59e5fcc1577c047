/*
Package benefits allocates benefit costs between employees and the firm.

PURPOSE:
  Every employee elects a code for each of six benefit slots. The benefit
  catalog prices each code as a fixed monthly cost split between employee
  and firm, or marks it formula-based (disability cover priced from salary).
  The engine resolves every election to a cost split and rolls the result up
  per employee and firm-wide.

SLOTS AND DECLINED CODES:
  Medical  MX      STD   SEX
  Dental   DX      LTD   LEX
  Vision   VX      Life  TEX

  A blank election is the declined code. Declined costs nothing.

FORMULAS (monthly, rounded to cents):
  STD = min(salary/52 * 0.6667, 2100) / 10 * 0.18
  LTD = (salary/12) / 100 * 0.21

  The code suffix says who pays: "1" firm-paid, "2" employee-paid.
  Any other formula code costs nothing.

UNKNOWN CODES:
  A code that is neither in the catalog nor a declined code costs nothing
  and leaves a note on the employee. Never fatal.

SEE ALSO:
  - engine.go: Per-employee resolution and the firm summary
  - factory/config.go: Builds the Catalog from the Benefits sheet
*/
package benefits

import (
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SLOTS
// =============================================================================

type Slot string

const (
	SlotMedical Slot = "medical"
	SlotDental  Slot = "dental"
	SlotVision  Slot = "vision"
	SlotSTD     Slot = "std"
	SlotLTD     Slot = "ltd"
	SlotLife    Slot = "life"
)

// Slots lists every slot in report column order.
var Slots = []Slot{SlotMedical, SlotDental, SlotVision, SlotSTD, SlotLTD, SlotLife}

var slotInfo = map[Slot]struct {
	label    string
	declined string
}{
	SlotMedical: {"Medical", "MX"},
	SlotDental:  {"Dental", "DX"},
	SlotVision:  {"Vision", "VX"},
	SlotSTD:     {"STD", "SEX"},
	SlotLTD:     {"LTD", "LEX"},
	SlotLife:    {"Life", "TEX"},
}

// Label is the display name used in notes and sheet headers.
func (s Slot) Label() string { return slotInfo[s].label }

// DeclinedCode is the code that means "no coverage" for the slot.
func (s Slot) DeclinedCode() string { return slotInfo[s].declined }

// IsDeclined reports whether code is any slot's declined code.
func IsDeclined(code string) bool {
	code = NormalizeCode(code)
	for _, info := range slotInfo {
		if info.declined == code {
			return true
		}
	}
	return false
}

// NormalizeCode trims and upper-cases a benefit code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// =============================================================================
// CATALOG
// =============================================================================

// CatalogEntry prices one benefit code.
type CatalogEntry struct {
	Code            string
	Description     string
	FormulaBased    bool
	TotalMonthly    decimal.Decimal
	EmployeeMonthly decimal.Decimal
	FirmMonthly     decimal.Decimal
}

// Catalog is keyed by normalized code.
type Catalog map[string]CatalogEntry

// NewCatalog indexes entries by code. Later duplicates replace earlier ones.
func NewCatalog(entries []CatalogEntry) Catalog {
	c := make(Catalog, len(entries))
	for _, e := range entries {
		c[NormalizeCode(e.Code)] = e
	}
	return c
}

// Lookup finds code in the catalog.
func (c Catalog) Lookup(code string) (CatalogEntry, bool) {
	e, ok := c[NormalizeCode(code)]
	return e, ok
}

// =============================================================================
// COST
// =============================================================================

// Cost is a monthly or annual total split into employee and firm shares.
type Cost struct {
	Total    decimal.Decimal
	Employee decimal.Decimal
	Firm     decimal.Decimal
}

// ZeroCost is 0/0/0.
func ZeroCost() Cost {
	return Cost{Total: decimal.Zero, Employee: decimal.Zero, Firm: decimal.Zero}
}

// Add sums two costs.
func (c Cost) Add(o Cost) Cost {
	return Cost{Total: c.Total.Add(o.Total), Employee: c.Employee.Add(o.Employee), Firm: c.Firm.Add(o.Firm)}
}

// Times multiplies every share by n.
func (c Cost) Times(n int64) Cost {
	m := decimal.NewFromInt(n)
	return Cost{Total: c.Total.Mul(m), Employee: c.Employee.Mul(m), Firm: c.Firm.Mul(m)}
}

// =============================================================================
// FORMULAS
// =============================================================================

var (
	stdBenefitRate = decimal.RequireFromString("0.6667")
	stdWeeklyCap   = decimal.NewFromInt(2100)
	stdUnitRate    = decimal.RequireFromString("0.18")
	ltdUnitRate    = decimal.RequireFromString("0.21")
	weeksPerYear   = decimal.NewFromInt(52)
	monthsPerYear  = decimal.NewFromInt(12)
	ten            = decimal.NewFromInt(10)
	hundred        = decimal.NewFromInt(100)
)

// STDMonthly is the short-term disability premium for an annual salary.
func STDMonthly(salary decimal.Decimal) decimal.Decimal {
	weekly := salary.Div(weeksPerYear).Mul(stdBenefitRate)
	if weekly.GreaterThan(stdWeeklyCap) {
		weekly = stdWeeklyCap
	}
	return weekly.Div(ten).Mul(stdUnitRate).Round(2)
}

// LTDMonthly is the long-term disability premium for an annual salary.
func LTDMonthly(salary decimal.Decimal) decimal.Decimal {
	return salary.Div(monthsPerYear).Div(hundred).Mul(ltdUnitRate).Round(2)
}

// formulaCost prices a formula-based code. The suffix decides who pays.
func formulaCost(slot Slot, code string, salary decimal.Decimal) Cost {
	var premium decimal.Decimal
	switch slot {
	case SlotSTD:
		premium = STDMonthly(salary)
	case SlotLTD:
		premium = LTDMonthly(salary)
	default:
		return ZeroCost()
	}

	switch {
	case strings.HasSuffix(code, "1"):
		return Cost{Total: premium, Employee: decimal.Zero, Firm: premium}
	case strings.HasSuffix(code, "2"):
		return Cost{Total: premium, Employee: premium, Firm: decimal.Zero}
	default:
		return ZeroCost()
	}
}
