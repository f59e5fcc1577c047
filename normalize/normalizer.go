/*
Package normalize maps raw feed tables onto the canonical record schema.

PURPOSE:
  The time-tracking and accounting exports do not agree on column names, and
  they change them between versions ("Staff Member" vs "Staff", "Amount" vs
  "Billable Amount"). The normalizer resolves each canonical field against an
  ordered alias list, coerces cell types, and classifies projects once so that
  no downstream engine ever looks at a raw column name or project string.

KEY CONCEPTS:
  - FieldSpec:   Canonical field + ordered aliases; first match wins
  - Diagnostics: Operator-facing messages returned with every result
  - Classifier:  Resolves each time entry to billable/pro-bono/leave/other

COERCION RULES:
  Dates:   Tolerant parse. Unparseable -> zero TimePoint; the row is kept but
           every date-filtered computation skips it.
  Amounts: Accounting notation "(1,234.56)" -> -1234.56, "$2,000" -> 2000.
           Unparseable -> 0 with a diagnostic.

FAILURE:
  A required field with no matching column fails the whole table with
  *generic.MissingColumnError. Everything below that is recovered per cell.

EXAMPLE:
  n := normalize.New()
  entries, diags, err := n.TimeEntries(table, "Harvest")
  for _, line := range diags.Lines {
      log.Printf("[Normalize] %s", line)
  }

SEE ALSO:
  - parse.go: Date and amount coercion
  - classify.go: Project classification
  - records.go: Canonical Transaction and TimeEntry
*/
package normalize

import (
	"fmt"
	"strings"

	"github.com/warp/bizops-engine/generic"
)

// =============================================================================
// FIELD SPECS - Alias tables are data, not code branches
// =============================================================================

// Canonical field names.
const (
	FieldStaff          = "staff_name"
	FieldDate           = "date"
	FieldClient         = "client_name"
	FieldProjectID      = "project_id"
	FieldProjectName    = "project_name"
	FieldHours          = "hours"
	FieldBillableAmount = "billable_amount"
	FieldCustomer       = "customer"
	FieldAmount         = "amount"
)

// FieldSpec lists the source column names accepted for one canonical field.
type FieldSpec struct {
	Field    string
	Aliases  []string
	Required bool
}

// TimeEntryFields is the alias table for the time-and-billing export.
var TimeEntryFields = []FieldSpec{
	{Field: FieldStaff, Aliases: []string{"Staff Member", "Staff", "Staff Name", "Employee", "User"}, Required: true},
	{Field: FieldDate, Aliases: []string{"Date", "Work Date", "Entry Date", "Spent Date"}, Required: true},
	{Field: FieldClient, Aliases: []string{"Client", "Client Name", "Customer"}, Required: true},
	{Field: FieldProjectID, Aliases: []string{"Project ID", "Project Id", "Project Code", "Job ID"}},
	{Field: FieldProjectName, Aliases: []string{"Project", "Project Name", "Job"}},
	{Field: FieldHours, Aliases: []string{"Hours", "Billable Hours", "Time", "Duration"}, Required: true},
	{Field: FieldBillableAmount, Aliases: []string{"Billable Amount", "Billable Total", "Amount", "Revenue"}, Required: true},
}

// InvoiceFields is the alias table for the accounting export.
var InvoiceFields = []FieldSpec{
	{Field: FieldCustomer, Aliases: []string{"Customer", "Customer Name", "Customer:Job", "Name"}, Required: true},
	{Field: FieldDate, Aliases: []string{"Date", "Transaction Date", "Txn Date", "Invoice Date"}, Required: true},
	{Field: FieldAmount, Aliases: []string{"Amount", "Total", "Total Amount", "Line Amount"}, Required: true},
}

// =============================================================================
// DIAGNOSTICS
// =============================================================================

// Diagnostics collects human-readable messages produced while normalizing.
// It is returned to the caller, never stored globally.
type Diagnostics struct {
	Lines []string
}

func (d *Diagnostics) Addf(format string, args ...any) {
	d.Lines = append(d.Lines, fmt.Sprintf(format, args...))
}

// Merge appends other's lines.
func (d *Diagnostics) Merge(other Diagnostics) {
	d.Lines = append(d.Lines, other.Lines...)
}

// =============================================================================
// COLUMN RESOLUTION
// =============================================================================

// Columns maps canonical field -> column index (-1 for absent optional fields).
type Columns map[string]int

// Get returns the cell for field in row, "" when the field is absent.
func (c Columns) Get(t generic.Table, row []string, field string) string {
	idx, ok := c[field]
	if !ok {
		return ""
	}
	return t.Cell(row, idx)
}

// Resolve finds a column for every spec. The first alias present in the
// header wins. A required field with no match fails with MissingColumnError.
func Resolve(t generic.Table, specs []FieldSpec) (Columns, Diagnostics, error) {
	var diags Diagnostics
	cols := make(Columns, len(specs))

	for _, spec := range specs {
		idx := -1
		var matched string
		for _, alias := range spec.Aliases {
			if i := t.Index(alias); i >= 0 {
				idx, matched = i, alias
				break
			}
		}

		switch {
		case idx >= 0:
			diags.Addf("%s: %s <- column %q", t.Name, spec.Field, matched)
		case spec.Required:
			diags.Addf("%s: %s missing (tried %s)", t.Name, spec.Field, strings.Join(spec.Aliases, ", "))
			return nil, diags, &generic.MissingColumnError{Table: t.Name, Field: spec.Field, Aliases: spec.Aliases}
		default:
			diags.Addf("%s: optional %s not present", t.Name, spec.Field)
		}
		cols[spec.Field] = idx
	}
	return cols, diags, nil
}
