package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/warp/bizops-engine/generic"
	"github.com/xuri/excelize/v2"
)

// =============================================================================
// WORKBOOK READING
// =============================================================================

// ReadSheet reads one sheet of f into a Table. The first non-empty row is
// the header; rows above it are skipped. Cells are read raw, so dates come
// through as Excel serials and amounts without their display format.
func ReadSheet(f *excelize.File, sheet string) (generic.Table, error) {
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return generic.Table{}, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	t := generic.Table{Name: sheet}
	for i, row := range rows {
		if len(t.Columns) == 0 {
			if isEmptyRow(row) {
				continue
			}
			t.Columns = trimAll(row)
			t.Rows = make([][]string, 0, len(rows)-i-1)
			continue
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// ReadWorkbook reads every sheet of an .xlsx stream, keyed by sheet name.
func ReadWorkbook(r io.Reader) (map[string]generic.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	out := make(map[string]generic.Table)
	for _, sheet := range f.GetSheetList() {
		t, err := ReadSheet(f, sheet)
		if err != nil {
			return nil, err
		}
		out[sheet] = t
	}
	return out, nil
}

func findSheet(f *excelize.File, name string) (string, bool) {
	for _, s := range f.GetSheetList() {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return s, true
		}
	}
	return "", false
}

func isEmptyRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func trimAll(row []string) []string {
	out := make([]string, len(row))
	for i, c := range row {
		out[i] = strings.TrimSpace(c)
	}
	return out
}

// =============================================================================
// WORKBOOK CONFIG - One sheet per configuration table
// =============================================================================

// WorkbookConfig reads configuration sheets from an .xlsx file. The file is
// reopened on every call so each run sees the current snapshot.
type WorkbookConfig struct {
	Path string
}

func NewWorkbookConfig(path string) *WorkbookConfig {
	return &WorkbookConfig{Path: path}
}

// Table returns the sheet called name (case-insensitive).
func (c *WorkbookConfig) Table(ctx context.Context, name string) (generic.Table, error) {
	if err := ctx.Err(); err != nil {
		return generic.Table{}, err
	}
	f, err := excelize.OpenFile(c.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return generic.Table{}, &generic.MissingTableError{Table: name}
		}
		return generic.Table{}, &generic.UpstreamError{Feed: "configuration workbook", Err: err}
	}
	defer f.Close()

	sheet, ok := findSheet(f, name)
	if !ok {
		return generic.Table{}, &generic.MissingTableError{Table: name}
	}
	t, err := ReadSheet(f, sheet)
	if err != nil {
		return generic.Table{}, &generic.UpstreamError{Feed: "configuration workbook", Err: err}
	}
	t.Name = name
	return t, nil
}

// =============================================================================
// WORKBOOK FEED - Exported feed files on disk
// =============================================================================

// WorkbookFeed reads a year of feed data from <Dir>/<Prefix>_<year>.xlsx,
// first sheet. It satisfies both feed contracts.
type WorkbookFeed struct {
	FeedName string
	Dir      string
	Prefix   string
}

func (f *WorkbookFeed) Name() string { return f.FeedName }

// Path returns the file read for year.
func (f *WorkbookFeed) Path(year int) string {
	return filepath.Join(f.Dir, fmt.Sprintf("%s_%d.xlsx", f.Prefix, year))
}

func (f *WorkbookFeed) TimeEntries(ctx context.Context, year int) (generic.Table, error) {
	return f.read(ctx, year)
}

func (f *WorkbookFeed) Invoices(ctx context.Context, year int) (generic.Table, error) {
	return f.read(ctx, year)
}

func (f *WorkbookFeed) read(ctx context.Context, year int) (generic.Table, error) {
	if err := ctx.Err(); err != nil {
		return generic.Table{}, err
	}
	xf, err := excelize.OpenFile(f.Path(year))
	if err != nil {
		return generic.Table{}, &generic.UpstreamError{Feed: f.FeedName, Err: err}
	}
	defer xf.Close()

	sheets := xf.GetSheetList()
	if len(sheets) == 0 {
		return generic.Table{Name: f.FeedName}, nil
	}
	t, err := ReadSheet(xf, sheets[0])
	if err != nil {
		return generic.Table{}, &generic.UpstreamError{Feed: f.FeedName, Err: err}
	}
	t.Name = fmt.Sprintf("%s_%d", f.Prefix, year)
	return t, nil
}
