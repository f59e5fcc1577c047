package factory_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/bizops-engine/benefits"
	"github.com/warp/bizops-engine/factory"
	"github.com/warp/bizops-engine/generic"
	"github.com/warp/bizops-engine/rules"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestRules_ParsesSheet(t *testing.T) {
	// GIVEN: A Rules sheet with one good row, one bad scope and one bad rate
	// WHEN: Building the rule table
	// THEN: The good row loads, the others are reported as row errors

	sheet := generic.Table{
		Name:    "Rules",
		Columns: []string{"Scope", "Subject", "Salesperson", "Category", "Rate", "Start Date", "End Date"},
		Rows: [][]string{
			{"Client", "Acme", "Jane", "Client Commission", "10%", "2024-01-01", ""},
			{"partner", "Globex", "Jane", "Client Commission", "0.1", "2024-01-01", ""},
			{"resource", "Ann Lee", "Raj", "Delivery Commission", "lots", "2024-01-01", "2024-12-31"},
			{},
		},
	}

	table, rowErrs, err := factory.NewConfigFactory().Rules(sheet)
	require.NoError(t, err)
	require.Len(t, table, 1)
	assert.Equal(t, rules.ScopeClient, table[0].Scope)
	assert.True(t, table[0].Rate.Equal(dec("0.1")))
	assert.True(t, table[0].OpenEnded())
	assert.True(t, table[0].StartDate.Equal(generic.NewTimePoint(2024, time.January, 1)))

	require.Len(t, rowErrs, 2)
	var rowErr *generic.RowError
	require.ErrorAs(t, rowErrs[0], &rowErr)
	assert.Equal(t, 2, rowErr.Row)
	assert.Contains(t, rowErr.Error(), "oneof")
	assert.ErrorIs(t, rowErrs[1], generic.ErrParseFailure)
}

func TestRules_MissingColumnIsConfigurationError(t *testing.T) {
	sheet := generic.Table{Columns: []string{"Scope", "Subject", "Salesperson", "Category", "Start Date"}}
	_, _, err := factory.NewConfigFactory().Rules(sheet)

	var missing *generic.MissingColumnError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "Rules", missing.Table)
	assert.Equal(t, "rate", missing.Field)
	assert.True(t, generic.IsConfigurationError(err))
}

func TestOffsets_KeepSign(t *testing.T) {
	sheet := generic.Table{
		Columns: []string{"Date", "Salesperson", "Category", "Amount", "Note"},
		Rows: [][]string{
			{"07/01/2024", "Jane", "Draw", "(5,000.00)", "Q2 draw"},
			{"", "Jane", "Draw", "100", "undated"},
		},
	}
	offsets, rowErrs, err := factory.NewConfigFactory().Offsets(sheet)
	require.NoError(t, err)
	require.Len(t, offsets, 1)
	assert.True(t, offsets[0].Amount.Equal(dec("-5000")))
	assert.Equal(t, "Q2 draw", offsets[0].Note)
	assert.Len(t, rowErrs, 1)
}

func TestMappings(t *testing.T) {
	sheet := generic.Table{
		Columns: []string{"Before", "After", "Source System"},
		Rows: [][]string{
			{"ACME Corp", "Acme", "QuickBooks"},
			{"Initech", "", ""},
		},
	}
	mappings, rowErrs, err := factory.NewConfigFactory().Mappings(sheet)
	require.NoError(t, err)
	require.Len(t, mappings, 1)
	assert.Equal(t, "QuickBooks", mappings[0].SourceSystem)
	assert.Len(t, rowErrs, 1)
}

func TestStaff_WithElections(t *testing.T) {
	sheet := generic.Table{
		Columns: []string{"Name", "Start Date", "Salary", "Utilization Target", "Medical", "STD"},
		Rows: [][]string{
			{"Ann Lee", "2024-03-04", "$104,000", "10000", "M1", "SE1"},
		},
	}
	staff, rowErrs, err := factory.NewConfigFactory().Staff(sheet)
	require.NoError(t, err)
	assert.Empty(t, rowErrs)
	require.Len(t, staff, 1)
	assert.True(t, staff[0].Salary.Equal(dec("104000")))
	assert.True(t, staff[0].OtherTarget.IsZero())
	assert.Equal(t, "M1", staff[0].Elections.Medical)
	assert.Equal(t, "", staff[0].Elections.Dental)
	assert.Equal(t, "SE1", staff[0].Elections.STD)
}

func TestStaff_BlankStartAndTargetsAreOptional(t *testing.T) {
	// GIVEN: A Staff sheet with no target columns and one blank start date
	// WHEN: Building employees
	// THEN: Both rows load; the blank start is zero and targets are zero

	sheet := generic.Table{
		Columns: []string{"Name", "Start Date", "Salary", "Medical"},
		Rows: [][]string{
			{"Ann Lee", "", "104000", "M1"},
			{"Bo Chen", "45458", "90000", "M1"},
		},
	}
	staff, rowErrs, err := factory.NewConfigFactory().Staff(sheet)
	require.NoError(t, err)
	assert.Empty(t, rowErrs)
	require.Len(t, staff, 2)

	assert.True(t, staff[0].StartDate.IsZero())
	assert.True(t, staff[0].UtilizationTarget.IsZero())
	assert.True(t, staff[0].OtherTarget.IsZero())
	assert.Equal(t, "2024-06-15", staff[1].StartDate.String())
}

func TestStaff_UnparseableStartIsRowError(t *testing.T) {
	sheet := generic.Table{
		Columns: []string{"Name", "Start Date", "Salary"},
		Rows:    [][]string{{"Ann Lee", "someday", "104000"}},
	}
	staff, rowErrs, err := factory.NewConfigFactory().Staff(sheet)
	require.NoError(t, err)
	assert.Empty(t, staff)
	require.Len(t, rowErrs, 1)
	assert.ErrorIs(t, rowErrs[0], generic.ErrParseFailure)
}

func TestCatalog(t *testing.T) {
	sheet := generic.Table{
		Columns: []string{"Code", "Description", "Formula Based", "Total Monthly Cost", "EE Monthly Cost", "Firm Monthly Cost"},
		Rows: [][]string{
			{"M1", "Medical", "No", "600", "100", "500"},
			{"SE1", "STD firm paid", "Yes", "", "", ""},
		},
	}
	cat, rowErrs, err := factory.NewConfigFactory().Catalog(sheet)
	require.NoError(t, err)
	assert.Empty(t, rowErrs)

	m1, ok := cat.Lookup("m1")
	require.True(t, ok)
	assert.True(t, m1.FirmMonthly.Equal(dec("500")))

	se1, ok := cat.Lookup("SE1")
	require.True(t, ok)
	assert.True(t, se1.FormulaBased)

	el, err := benefits.ResolveSlot(benefits.SlotSTD, "SE1", dec("104000"), cat)
	require.NoError(t, err)
	assert.True(t, el.Monthly.Firm.Equal(dec("24")))
}

func TestOverrides_BlankCellLeavesTarget(t *testing.T) {
	sheet := generic.Table{
		Columns: []string{"Name", "Utilization Target", "Other Target"},
		Rows:    [][]string{{"Ann Lee", "12000", ""}},
	}
	overrides, _, err := factory.NewConfigFactory().Overrides(sheet)
	require.NoError(t, err)
	require.Len(t, overrides, 1)
	require.NotNil(t, overrides[0].UtilizationTarget)
	assert.True(t, overrides[0].UtilizationTarget.Equal(dec("12000")))
	assert.Nil(t, overrides[0].OtherTarget)
}
