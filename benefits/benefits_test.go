package benefits_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/bizops-engine/benefits"
	"github.com/warp/bizops-engine/generic"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testCatalog() benefits.Catalog {
	return benefits.NewCatalog([]benefits.CatalogEntry{
		{Code: "M1", Description: "Medical - Employee", TotalMonthly: dec("600"), EmployeeMonthly: dec("100"), FirmMonthly: dec("500")},
		{Code: "D1", Description: "Dental - Employee", TotalMonthly: dec("40"), EmployeeMonthly: dec("0"), FirmMonthly: dec("40")},
		{Code: "V1", Description: "Vision - Employee", TotalMonthly: dec("10"), EmployeeMonthly: dec("10"), FirmMonthly: dec("0")},
		{Code: "SE1", Description: "STD - Firm paid", FormulaBased: true},
		{Code: "SE2", Description: "STD - Employee paid", FormulaBased: true},
		{Code: "LE1", Description: "LTD - Firm paid", FormulaBased: true},
		{Code: "LE2", Description: "LTD - Employee paid", FormulaBased: true},
		{Code: "SEX", Description: "STD - Declined", FormulaBased: true},
		{Code: "T1", Description: "Life", TotalMonthly: dec("12.5"), EmployeeMonthly: dec("0"), FirmMonthly: dec("12.5")},
	})
}

// =============================================================================
// FORMULAS
// =============================================================================

func TestSTDMonthly_Salary104000(t *testing.T) {
	// weekly 2000, benefit min(1333.4, 2100) = 1333.4, cost 1333.4/10*0.18 = 24.0012
	assert.True(t, benefits.STDMonthly(dec("104000")).Equal(dec("24.00")))
}

func TestSTDMonthly_CappedWeeklyBenefit(t *testing.T) {
	// 500000/52*0.6667 > 2100, so 2100/10*0.18 = 37.80
	assert.True(t, benefits.STDMonthly(dec("500000")).Equal(dec("37.8")))
}

func TestLTDMonthly(t *testing.T) {
	assert.True(t, benefits.LTDMonthly(dec("120000")).Equal(dec("21")))
	// 95000/12/100*0.21 = 16.625 -> 16.63
	assert.True(t, benefits.LTDMonthly(dec("95000")).Equal(dec("16.63")), "got %s", benefits.LTDMonthly(dec("95000")))
}

// =============================================================================
// SLOT RESOLUTION
// =============================================================================

func TestResolveSlot_SuffixDecidesWhoPays(t *testing.T) {
	cat := testCatalog()
	salary := dec("104000")

	firm, err := benefits.ResolveSlot(benefits.SlotSTD, "se1", salary, cat)
	require.NoError(t, err)
	assert.True(t, firm.Monthly.Firm.Equal(dec("24")))
	assert.True(t, firm.Monthly.Employee.IsZero())

	ee, err := benefits.ResolveSlot(benefits.SlotSTD, "SE2", salary, cat)
	require.NoError(t, err)
	assert.True(t, ee.Monthly.Employee.Equal(dec("24")))
	assert.True(t, ee.Monthly.Firm.IsZero())
	assert.True(t, ee.Monthly.Total.Equal(dec("24")))
}

func TestResolveSlot_BlankIsDeclined(t *testing.T) {
	el, err := benefits.ResolveSlot(benefits.SlotDental, "  ", dec("90000"), testCatalog())
	require.NoError(t, err)
	assert.True(t, el.Declined)
	assert.Equal(t, "DX", el.Code)
	assert.True(t, el.Monthly.Total.IsZero())
}

func TestResolveSlot_DeclinedFormulaCodeCostsNothing(t *testing.T) {
	el, err := benefits.ResolveSlot(benefits.SlotSTD, "SEX", dec("104000"), testCatalog())
	require.NoError(t, err)
	assert.True(t, el.Declined)
	assert.Equal(t, "STD - Declined", el.Description)
	assert.True(t, el.Monthly.Total.IsZero())
}

func TestResolveSlot_UnknownCode(t *testing.T) {
	el, err := benefits.ResolveSlot(benefits.SlotMedical, "M9", dec("90000"), testCatalog())
	assert.ErrorIs(t, err, generic.ErrUnknownBenefitCode)
	assert.True(t, el.Unknown)
	assert.True(t, el.Monthly.Total.IsZero())
}

// =============================================================================
// EMPLOYEE & FIRM
// =============================================================================

func TestResolve_EmployeeTotals(t *testing.T) {
	// GIVEN: An employee on M1, D1, firm-paid STD, unknown LTD code, blank vision/life
	// WHEN: Resolving
	// THEN: Monthly = 600 + 40 + 24, a note is attached for the LTD code

	emp := generic.Employee{
		Name:   "Ann",
		Salary: dec("104000"),
		Elections: generic.BenefitElections{
			Medical: "M1",
			Dental:  "D1",
			STD:     "SE1",
			LTD:     "LE7",
		},
	}

	got := benefits.Resolve(emp, testCatalog())

	require.Len(t, got.Elections, 6)
	assert.True(t, got.Monthly.Total.Equal(dec("664")), "got %s", got.Monthly.Total)
	assert.True(t, got.Monthly.Employee.Equal(dec("100")))
	assert.True(t, got.Monthly.Firm.Equal(dec("564")))
	assert.True(t, got.Annual.Total.Equal(dec("7968")))
	assert.Equal(t, []string{"Unknown LTD code: LE7 - assumed declined"}, got.Notes)
	assert.True(t, got.Election(benefits.SlotVision).Declined)
	assert.Equal(t, "TEX", got.Election(benefits.SlotLife).Code)
}

func TestCompute_FirmSummary(t *testing.T) {
	emps := []generic.Employee{
		{Name: "Ann", Salary: dec("120000"), Elections: generic.BenefitElections{Medical: "M1", LTD: "LE1"}},
		{Name: "Bo", Salary: dec("60000"), Elections: generic.BenefitElections{Medical: "M1", Life: "T1"}},
	}

	rep := benefits.Compute(emps, testCatalog())
	require.Len(t, rep.Employees, 2)
	require.Len(t, rep.Summary.Rows, 6)

	medical := rep.Summary.Rows[0]
	assert.Equal(t, "Medical", medical.Label)
	assert.Equal(t, 2, medical.Enrolled)
	assert.True(t, medical.Monthly.Total.Equal(dec("1200")))

	ltd := rep.Summary.Rows[4]
	assert.Equal(t, "LTD", ltd.Label)
	assert.True(t, ltd.Monthly.Firm.Equal(dec("21")))

	// 1200 + 21 + 12.5
	assert.True(t, rep.Summary.Total.Monthly.Total.Equal(dec("1233.5")))
	assert.True(t, rep.Summary.Total.Annual.Total.Equal(dec("14802")))
	assert.Equal(t, 4, rep.Summary.Total.Enrolled)
}
