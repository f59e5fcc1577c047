package normalize

import (
	"github.com/shopspring/decimal"
	"github.com/warp/bizops-engine/generic"
)

// =============================================================================
// CANONICAL RECORDS
// =============================================================================

// Transaction is one accounting invoice line. ClientName is the raw customer
// string; the commission engine splits and maps it.
type Transaction struct {
	ClientName   string
	Date         generic.TimePoint // zero when unparseable
	Amount       decimal.Decimal
	SourceSystem string
}

// TimeEntry is one time-tracking row. BillableAmount is the revenue basis
// for resource commissions.
type TimeEntry struct {
	StaffName      string
	Date           generic.TimePoint // zero when unparseable
	ClientName     string
	ProjectID      string
	ProjectName    string
	Hours          decimal.Decimal
	BillableAmount decimal.Decimal
	Class          ProjectClass
	SourceSystem   string
}

// =============================================================================
// NORMALIZER
// =============================================================================

// Normalizer turns raw feed tables into canonical records.
type Normalizer struct {
	TimeFields    []FieldSpec
	InvoiceFields []FieldSpec
	Classifier    Classifier
}

// New returns a normalizer with the default alias tables and classifier.
func New() *Normalizer {
	return &Normalizer{
		TimeFields:    TimeEntryFields,
		InvoiceFields: InvoiceFields,
		Classifier:    DefaultClassifier(),
	}
}

// TimeEntries normalizes a time-and-billing table. Rows that are entirely
// blank are skipped; every other row is returned, even with a zero date.
func (n *Normalizer) TimeEntries(t generic.Table, source string) ([]TimeEntry, Diagnostics, error) {
	cols, diags, err := Resolve(t, n.TimeFields)
	if err != nil {
		return nil, diags, err
	}

	entries := make([]TimeEntry, 0, len(t.Rows))
	for i, row := range t.Rows {
		if blankRow(row) {
			continue
		}
		rowNum := i + 1

		date, err := ParseDate(cols.Get(t, row, FieldDate))
		if err != nil {
			diags.Addf("%s row %d: %v (row excluded from dated totals)", t.Name, rowNum, err)
		}
		hours, err := ParseAmount(cols.Get(t, row, FieldHours))
		if err != nil {
			diags.Addf("%s row %d: %v (treated as 0)", t.Name, rowNum, err)
		}
		amount, err := ParseAmount(cols.Get(t, row, FieldBillableAmount))
		if err != nil {
			diags.Addf("%s row %d: %v (treated as 0)", t.Name, rowNum, err)
		}

		e := TimeEntry{
			StaffName:      cols.Get(t, row, FieldStaff),
			Date:           date,
			ClientName:     cols.Get(t, row, FieldClient),
			ProjectID:      cols.Get(t, row, FieldProjectID),
			ProjectName:    cols.Get(t, row, FieldProjectName),
			Hours:          hours,
			BillableAmount: amount,
			SourceSystem:   source,
		}
		e.Class = n.Classifier.Classify(e.ProjectID, e.ProjectName, e.BillableAmount)
		entries = append(entries, e)
	}
	return entries, diags, nil
}

// Transactions normalizes an accounting invoice table.
func (n *Normalizer) Transactions(t generic.Table, source string) ([]Transaction, Diagnostics, error) {
	cols, diags, err := Resolve(t, n.InvoiceFields)
	if err != nil {
		return nil, diags, err
	}

	txs := make([]Transaction, 0, len(t.Rows))
	for i, row := range t.Rows {
		if blankRow(row) {
			continue
		}
		rowNum := i + 1

		date, err := ParseDate(cols.Get(t, row, FieldDate))
		if err != nil {
			diags.Addf("%s row %d: %v (row excluded from dated totals)", t.Name, rowNum, err)
		}
		amount, err := ParseAmount(cols.Get(t, row, FieldAmount))
		if err != nil {
			diags.Addf("%s row %d: %v (treated as 0)", t.Name, rowNum, err)
		}

		txs = append(txs, Transaction{
			ClientName:   cols.Get(t, row, FieldCustomer),
			Date:         date,
			Amount:       amount,
			SourceSystem: source,
		})
	}
	return txs, diags, nil
}

func blankRow(row []string) bool {
	for _, c := range row {
		for _, r := range c {
			if r != ' ' && r != '\t' {
				return false
			}
		}
	}
	return true
}
