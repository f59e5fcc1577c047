/*
Package factory converts configuration sheets into typed domain values.

PURPOSE:
  Operators maintain the firm's configuration in a spreadsheet: who earns
  commission on what, manual offsets, customer name fixes, staff records,
  the benefit catalog and per-run bonus overrides. The factory turns each
  sheet into the Go values the engines consume, so that no engine ever reads
  a raw cell.

SHEETS:
  Rules      -> rules.Table
  Offsets    -> []commission.Offset
  Mapping    -> []commission.NameMapping
  Staff      -> []generic.Employee
  Benefits   -> benefits.Catalog
  Overrides  -> []bonus.Override (optional sheet)

COLUMNS:
  Each sheet's columns are resolved with normalize.Resolve, so the same
  alias rules apply as for the data feeds: first alias wins, a missing
  required column fails the sheet with *generic.MissingColumnError.

ROW VALIDATION:
  Each row is copied into a row struct and checked with
  go-playground/validator. A row that fails validation or parsing is
  skipped and reported as *generic.RowError; the rest of the sheet still
  loads. One bad row never aborts a run.

USAGE:
  f := factory.NewConfigFactory()
  table, rowErrs, err := f.Rules(sheet)
  if err != nil {
      return err // sheet unusable
  }
  for _, e := range rowErrs {
      log.Printf("[Config] %v", e)
  }

SEE ALSO:
  - sources/workbook.go: Reads the sheets from an .xlsx file
  - normalize/normalizer.go: Column resolution
*/
package factory

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/warp/bizops-engine/benefits"
	"github.com/warp/bizops-engine/bonus"
	"github.com/warp/bizops-engine/commission"
	"github.com/warp/bizops-engine/generic"
	"github.com/warp/bizops-engine/normalize"
	"github.com/warp/bizops-engine/rules"
)

// Configuration sheet names.
const (
	SheetStaff     = "Staff"
	SheetBenefits  = "Benefits"
	SheetRules     = "Rules"
	SheetOffsets   = "Offsets"
	SheetMapping   = "Mapping"
	SheetOverrides = "Overrides"
)

// =============================================================================
// CONFIG FACTORY
// =============================================================================

// ConfigFactory builds typed configuration from sheets.
type ConfigFactory struct {
	validate *validator.Validate
}

// NewConfigFactory creates a factory with its validator.
func NewConfigFactory() *ConfigFactory {
	return &ConfigFactory{validate: validator.New()}
}

// checkRow validates a row struct and wraps failures as a RowError.
func (f *ConfigFactory) checkRow(table string, row int, v any) error {
	err := f.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
		}
		err = errors.New(strings.Join(msgs, "; "))
	}
	return &generic.RowError{Table: table, Row: row, Err: err}
}

func rowErr(table string, row int, err error) error {
	return &generic.RowError{Table: table, Row: row, Err: err}
}

// resolve names the sheet in errors even when the table itself is unnamed.
func resolve(t generic.Table, name string, specs []normalize.FieldSpec) (generic.Table, normalize.Columns, error) {
	if t.Name == "" {
		t.Name = name
	}
	cols, _, err := normalize.Resolve(t, specs)
	return t, cols, err
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// parseRequiredDate is ParseDate for cells the validator already checked are
// non-blank, so a zero result is always a failure.
func parseRequiredDate(s string) (generic.TimePoint, error) {
	d, err := normalize.ParseDate(s)
	if err != nil {
		return d, err
	}
	if d.IsZero() {
		return d, fmt.Errorf("%w: date is blank", generic.ErrParseFailure)
	}
	return d, nil
}

// optionalAmount parses a cell that may be blank, returning nil when it is.
func optionalAmount(s string) (*decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	d, err := normalize.ParseAmount(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// =============================================================================
// RULES
// =============================================================================

var ruleFields = []normalize.FieldSpec{
	{Field: "scope", Aliases: []string{"Scope", "Type", "Rule Type"}, Required: true},
	{Field: "subject", Aliases: []string{"Subject", "Client or Resource", "Name", "Client"}, Required: true},
	{Field: "salesperson", Aliases: []string{"Salesperson", "Sales Person", "Owner"}, Required: true},
	{Field: "category", Aliases: []string{"Category", "Commission Type"}, Required: true},
	{Field: "rate", Aliases: []string{"Rate", "Commission Rate", "Percent"}, Required: true},
	{Field: "start", Aliases: []string{"Start Date", "Start", "Effective Date"}, Required: true},
	{Field: "end", Aliases: []string{"End Date", "End"}},
}

type ruleRow struct {
	Scope       string `validate:"required,oneof=client resource"`
	Subject     string `validate:"required"`
	Salesperson string `validate:"required"`
	Category    string `validate:"required"`
	Rate        string `validate:"required"`
	StartDate   string `validate:"required"`
	EndDate     string
}

// Rules builds the commission rule table, keeping sheet order.
func (f *ConfigFactory) Rules(t generic.Table) (rules.Table, []error, error) {
	t, cols, err := resolve(t, SheetRules, ruleFields)
	if err != nil {
		return nil, nil, err
	}

	var out rules.Table
	var rowErrs []error
	for i, row := range t.Rows {
		if isBlank(row) {
			continue
		}
		n := i + 1
		r := ruleRow{
			Scope:       strings.ToLower(cols.Get(t, row, "scope")),
			Subject:     cols.Get(t, row, "subject"),
			Salesperson: cols.Get(t, row, "salesperson"),
			Category:    cols.Get(t, row, "category"),
			Rate:        cols.Get(t, row, "rate"),
			StartDate:   cols.Get(t, row, "start"),
			EndDate:     cols.Get(t, row, "end"),
		}
		if err := f.checkRow(t.Name, n, r); err != nil {
			rowErrs = append(rowErrs, err)
			continue
		}

		rate, err := normalize.ParseRate(r.Rate)
		if err != nil {
			rowErrs = append(rowErrs, rowErr(t.Name, n, err))
			continue
		}
		start, err := parseRequiredDate(r.StartDate)
		if err != nil {
			rowErrs = append(rowErrs, rowErr(t.Name, n, err))
			continue
		}
		end, err := normalize.ParseDate(r.EndDate)
		if err != nil {
			rowErrs = append(rowErrs, rowErr(t.Name, n, err))
			continue
		}

		out = append(out, rules.Rule{
			Scope:       rules.Scope(r.Scope),
			Subject:     r.Subject,
			Salesperson: r.Salesperson,
			Category:    r.Category,
			Rate:        rate,
			StartDate:   start,
			EndDate:     end,
		})
	}
	return out, rowErrs, nil
}

// =============================================================================
// OFFSETS
// =============================================================================

var offsetFields = []normalize.FieldSpec{
	{Field: "date", Aliases: []string{"Effective Date", "Date"}, Required: true},
	{Field: "salesperson", Aliases: []string{"Salesperson", "Sales Person"}, Required: true},
	{Field: "category", Aliases: []string{"Category", "Type"}},
	{Field: "amount", Aliases: []string{"Amount", "Offset"}, Required: true},
	{Field: "note", Aliases: []string{"Note", "Notes", "Description", "Memo"}},
}

type offsetRow struct {
	Date        string `validate:"required"`
	Salesperson string `validate:"required"`
	Category    string
	Amount      string `validate:"required"`
	Note        string
}

// Offsets builds manual ledger adjustments. Amounts keep their sign.
func (f *ConfigFactory) Offsets(t generic.Table) ([]commission.Offset, []error, error) {
	t, cols, err := resolve(t, SheetOffsets, offsetFields)
	if err != nil {
		return nil, nil, err
	}

	var out []commission.Offset
	var rowErrs []error
	for i, row := range t.Rows {
		if isBlank(row) {
			continue
		}
		n := i + 1
		r := offsetRow{
			Date:        cols.Get(t, row, "date"),
			Salesperson: cols.Get(t, row, "salesperson"),
			Category:    cols.Get(t, row, "category"),
			Amount:      cols.Get(t, row, "amount"),
			Note:        cols.Get(t, row, "note"),
		}
		if err := f.checkRow(t.Name, n, r); err != nil {
			rowErrs = append(rowErrs, err)
			continue
		}
		date, err := parseRequiredDate(r.Date)
		if err != nil {
			rowErrs = append(rowErrs, rowErr(t.Name, n, err))
			continue
		}
		amount, err := normalize.ParseAmount(r.Amount)
		if err != nil {
			rowErrs = append(rowErrs, rowErr(t.Name, n, err))
			continue
		}
		out = append(out, commission.Offset{
			EffectiveDate: date,
			Salesperson:   r.Salesperson,
			Category:      r.Category,
			Amount:        amount,
			Note:          r.Note,
		})
	}
	return out, rowErrs, nil
}

// =============================================================================
// CLIENT NAME MAPPING
// =============================================================================

var mappingFields = []normalize.FieldSpec{
	{Field: "before", Aliases: []string{"Before", "Before Name", "From", "Source Name"}, Required: true},
	{Field: "after", Aliases: []string{"After", "After Name", "To", "Client"}, Required: true},
	{Field: "source", Aliases: []string{"Source System", "Source", "System"}},
}

type mappingRow struct {
	Before string `validate:"required"`
	After  string `validate:"required"`
	Source string
}

// Mappings builds the customer name fixes.
func (f *ConfigFactory) Mappings(t generic.Table) ([]commission.NameMapping, []error, error) {
	t, cols, err := resolve(t, SheetMapping, mappingFields)
	if err != nil {
		return nil, nil, err
	}

	var out []commission.NameMapping
	var rowErrs []error
	for i, row := range t.Rows {
		if isBlank(row) {
			continue
		}
		r := mappingRow{
			Before: cols.Get(t, row, "before"),
			After:  cols.Get(t, row, "after"),
			Source: cols.Get(t, row, "source"),
		}
		if err := f.checkRow(t.Name, i+1, r); err != nil {
			rowErrs = append(rowErrs, err)
			continue
		}
		out = append(out, commission.NameMapping{Before: r.Before, After: r.After, SourceSystem: r.Source})
	}
	return out, rowErrs, nil
}

// =============================================================================
// STAFF
// =============================================================================

var staffFields = []normalize.FieldSpec{
	{Field: "name", Aliases: []string{"Name", "Staff Member", "Employee"}, Required: true},
	{Field: "start", Aliases: []string{"Start Date", "Hire Date", "Start"}},
	{Field: "salary", Aliases: []string{"Salary", "Annual Salary"}, Required: true},
	{Field: "util", Aliases: []string{"Utilization Bonus Target", "Utilization Target", "Bonus Target"}},
	{Field: "other", Aliases: []string{"Other Bonus Target", "Other Target", "Discretionary Target"}},
	{Field: "medical", Aliases: []string{"Medical", "Medical Code"}},
	{Field: "dental", Aliases: []string{"Dental", "Dental Code"}},
	{Field: "vision", Aliases: []string{"Vision", "Vision Code"}},
	{Field: "std", Aliases: []string{"STD", "STD Code", "Short Term Disability"}},
	{Field: "ltd", Aliases: []string{"LTD", "LTD Code", "Long Term Disability"}},
	{Field: "life", Aliases: []string{"Life", "Life Code", "Life Insurance"}},
}

type staffRow struct {
	Name      string `validate:"required"`
	StartDate string
	Salary    string
	Util      string
	Other     string
}

// Staff builds employee records. Blank money cells are zero. A blank start
// date is the zero TimePoint, which bonus proration treats as on staff all
// year.
func (f *ConfigFactory) Staff(t generic.Table) ([]generic.Employee, []error, error) {
	t, cols, err := resolve(t, SheetStaff, staffFields)
	if err != nil {
		return nil, nil, err
	}

	var out []generic.Employee
	var rowErrs []error
	for i, row := range t.Rows {
		if isBlank(row) {
			continue
		}
		n := i + 1
		r := staffRow{
			Name:      cols.Get(t, row, "name"),
			StartDate: cols.Get(t, row, "start"),
			Salary:    cols.Get(t, row, "salary"),
			Util:      cols.Get(t, row, "util"),
			Other:     cols.Get(t, row, "other"),
		}
		if err := f.checkRow(t.Name, n, r); err != nil {
			rowErrs = append(rowErrs, err)
			continue
		}

		start, err := normalize.ParseDate(r.StartDate)
		if err != nil {
			rowErrs = append(rowErrs, rowErr(t.Name, n, err))
			continue
		}
		var amounts [3]decimal.Decimal
		var bad error
		for j, cell := range []string{r.Salary, r.Util, r.Other} {
			amounts[j], err = normalize.ParseAmount(cell)
			if err != nil {
				bad = err
				break
			}
		}
		if bad != nil {
			rowErrs = append(rowErrs, rowErr(t.Name, n, bad))
			continue
		}

		out = append(out, generic.Employee{
			Name:              r.Name,
			StartDate:         start,
			Salary:            amounts[0],
			UtilizationTarget: amounts[1],
			OtherTarget:       amounts[2],
			Elections: generic.BenefitElections{
				Medical: cols.Get(t, row, "medical"),
				Dental:  cols.Get(t, row, "dental"),
				Vision:  cols.Get(t, row, "vision"),
				STD:     cols.Get(t, row, "std"),
				LTD:     cols.Get(t, row, "ltd"),
				Life:    cols.Get(t, row, "life"),
			},
		})
	}
	return out, rowErrs, nil
}

// =============================================================================
// BENEFIT CATALOG
// =============================================================================

var catalogFields = []normalize.FieldSpec{
	{Field: "code", Aliases: []string{"Code", "Benefit Code"}, Required: true},
	{Field: "description", Aliases: []string{"Description", "Benefit", "Plan"}},
	{Field: "formula", Aliases: []string{"Formula Based", "Is Formula Based", "Formula"}},
	{Field: "total", Aliases: []string{"Total Monthly Cost", "Total Monthly", "Total Cost", "Total"}},
	{Field: "employee", Aliases: []string{"EE Monthly Cost", "Employee Monthly Cost", "EE Cost", "Employee Cost"}},
	{Field: "firm", Aliases: []string{"Firm Monthly Cost", "Firm Cost", "Employer Cost", "ER Cost"}},
}

type catalogRow struct {
	Code string `validate:"required,max=16"`
}

// Catalog builds the benefit catalog.
func (f *ConfigFactory) Catalog(t generic.Table) (benefits.Catalog, []error, error) {
	t, cols, err := resolve(t, SheetBenefits, catalogFields)
	if err != nil {
		return nil, nil, err
	}

	var entries []benefits.CatalogEntry
	var rowErrs []error
	for i, row := range t.Rows {
		if isBlank(row) {
			continue
		}
		n := i + 1
		r := catalogRow{Code: cols.Get(t, row, "code")}
		if err := f.checkRow(t.Name, n, r); err != nil {
			rowErrs = append(rowErrs, err)
			continue
		}

		e := benefits.CatalogEntry{
			Code:         r.Code,
			Description:  cols.Get(t, row, "description"),
			FormulaBased: normalize.ParseBool(cols.Get(t, row, "formula")),
		}
		var bad error
		for _, c := range []struct {
			field string
			dst   *decimal.Decimal
		}{{"total", &e.TotalMonthly}, {"employee", &e.EmployeeMonthly}, {"firm", &e.FirmMonthly}} {
			v, err := normalize.ParseAmount(cols.Get(t, row, c.field))
			if err != nil {
				bad = err
				break
			}
			*c.dst = v
		}
		if bad != nil {
			rowErrs = append(rowErrs, rowErr(t.Name, n, bad))
			continue
		}
		entries = append(entries, e)
	}
	return benefits.NewCatalog(entries), rowErrs, nil
}

// =============================================================================
// BONUS OVERRIDES
// =============================================================================

var overrideFields = []normalize.FieldSpec{
	{Field: "name", Aliases: []string{"Name", "Employee", "Staff Member"}, Required: true},
	{Field: "util", Aliases: []string{"Utilization Bonus Target", "Utilization Target", "Bonus Target"}},
	{Field: "other", Aliases: []string{"Other Bonus Target", "Other Target", "Discretionary Target"}},
}

type overrideRow struct {
	Name string `validate:"required"`
}

// Overrides builds per-run bonus target overrides. A blank target cell
// leaves the configured target unchanged.
func (f *ConfigFactory) Overrides(t generic.Table) ([]bonus.Override, []error, error) {
	t, cols, err := resolve(t, SheetOverrides, overrideFields)
	if err != nil {
		return nil, nil, err
	}

	var out []bonus.Override
	var rowErrs []error
	for i, row := range t.Rows {
		if isBlank(row) {
			continue
		}
		n := i + 1
		r := overrideRow{Name: cols.Get(t, row, "name")}
		if err := f.checkRow(t.Name, n, r); err != nil {
			rowErrs = append(rowErrs, err)
			continue
		}
		util, err := optionalAmount(cols.Get(t, row, "util"))
		if err != nil {
			rowErrs = append(rowErrs, rowErr(t.Name, n, err))
			continue
		}
		other, err := optionalAmount(cols.Get(t, row, "other"))
		if err != nil {
			rowErrs = append(rowErrs, rowErr(t.Name, n, err))
			continue
		}
		out = append(out, bonus.Override{Name: r.Name, UtilizationTarget: util, OtherTarget: other})
	}
	return out, rowErrs, nil
}
