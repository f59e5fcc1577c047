/*
Package export renders report results as .xlsx workbooks and mails them.

PURPOSE:
  Finance works in spreadsheets. Every report can be downloaded as a
  workbook or sent to an addressee as an attachment. The workbooks hold the
  same numbers the API returns; nothing is recomputed here.

WORKBOOKS:
  Commission: Ledger, Summary, Categories, Clients, one sheet per salesperson
  Bonus:      Bonus (one row per employee), Totals
  Benefits:   Employees (one row per employee), Summary (per slot + total)

  Money cells are numeric with a two-decimal format. Dates are written as
  ISO text so they survive any locale.

SEE ALSO:
  - mail.go: Mailer
  - api/handlers.go: /export and /email endpoints
*/
package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// ContentType is the MIME type of every workbook this package writes.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// maxSheetName is Excel's limit on sheet name length.
const maxSheetName = 31

// =============================================================================
// SHEET WRITER
// =============================================================================

// book wraps an excelize file with the two styles every sheet uses.
type book struct {
	f      *excelize.File
	header int
	money  int
	first  bool
}

func newBook() (*book, error) {
	f := excelize.NewFile()
	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, err
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		f.Close()
		return nil, err
	}
	return &book{f: f, header: header, money: money, first: true}, nil
}

// sheet is one worksheet being filled top to bottom.
type sheet struct {
	b    *book
	name string
	row  int
	err  error
}

// addSheet creates a sheet; the first call renames the default sheet.
func (b *book) addSheet(name string) *sheet {
	s := &sheet{b: b, name: name}
	if b.first {
		b.first = false
		s.err = b.f.SetSheetName(b.f.GetSheetName(0), name)
		return s
	}
	_, s.err = b.f.NewSheet(name)
	return s
}

// headers writes a bold header row.
func (s *sheet) headers(cols ...string) {
	values := make([]any, len(cols))
	for i, c := range cols {
		values[i] = c
	}
	s.write(values)
	if s.err != nil {
		return
	}
	end, _ := excelize.CoordinatesToCellName(len(cols), s.row)
	s.err = s.b.f.SetCellStyle(s.name, fmt.Sprintf("A%d", s.row), end, s.b.header)
}

// add writes one data row. decimal.Decimal values become money cells.
func (s *sheet) add(values ...any) {
	cells := make([]any, len(values))
	var money []int
	for i, v := range values {
		if d, ok := v.(decimal.Decimal); ok {
			cells[i] = d.InexactFloat64()
			money = append(money, i+1)
			continue
		}
		cells[i] = v
	}
	s.write(cells)
	for _, col := range money {
		if s.err != nil {
			return
		}
		cell, _ := excelize.CoordinatesToCellName(col, s.row)
		s.err = s.b.f.SetCellStyle(s.name, cell, cell, s.b.money)
	}
}

func (s *sheet) write(values []any) {
	if s.err != nil {
		return
	}
	s.row++
	cell, _ := excelize.CoordinatesToCellName(1, s.row)
	s.err = s.b.f.SetSheetRow(s.name, cell, &values)
}

// bytes serializes the workbook, returning the first error any sheet hit.
func (b *book) bytes(sheets ...*sheet) ([]byte, error) {
	defer b.f.Close()
	for _, s := range sheets {
		if s.err != nil {
			return nil, fmt.Errorf("write sheet %q: %w", s.name, s.err)
		}
	}
	var buf bytes.Buffer
	if err := b.f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// SheetName makes s a legal, unique sheet name.
func SheetName(s string, taken map[string]bool) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, strings.TrimSpace(s))
	name = strings.Trim(name, "'")
	if name == "" {
		name = "Sheet"
	}
	if r := []rune(name); len(r) > maxSheetName {
		name = string(r[:maxSheetName])
	}

	base := name
	for n := 2; taken[strings.ToLower(name)]; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		r := []rune(base)
		if len(r)+len(suffix) > maxSheetName {
			r = r[:maxSheetName-len(suffix)]
		}
		name = string(r) + suffix
	}
	taken[strings.ToLower(name)] = true
	return name
}
