package generic

import "strings"

// =============================================================================
// TABLE - Raw row-set as delivered by a feed or the configuration store
// =============================================================================

// Table is an untyped row-set: a header row plus string cells. Feeds and the
// configuration store hand these to the normalizer and the factory, which are
// the only places that know what the columns mean.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string
}

// Len returns the number of data rows.
func (t Table) Len() int { return len(t.Rows) }

// IsEmpty is true when there are no data rows.
func (t Table) IsEmpty() bool { return len(t.Rows) == 0 }

// Index finds a column by name, ignoring case and surrounding whitespace.
// Returns -1 if the column is absent.
func (t Table) Index(column string) int {
	want := foldHeader(column)
	for i, c := range t.Columns {
		if foldHeader(c) == want {
			return i
		}
	}
	return -1
}

// Cell returns row[col] trimmed, or "" when the row is short or col < 0.
// Spreadsheet readers drop trailing empty cells, so short rows are normal.
func (t Table) Cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

func foldHeader(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
