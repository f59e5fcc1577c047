package sources_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/bizops-engine/generic"
	"github.com/warp/bizops-engine/normalize"
	"github.com/warp/bizops-engine/sources"
	"github.com/xuri/excelize/v2"
)

// writeWorkbook creates an .xlsx with one sheet per entry of sheets.
func writeWorkbook(t *testing.T, sheets map[string][][]any, order ...string) *excelize.File {
	t.Helper()
	f := excelize.NewFile()
	for i, name := range order {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", name))
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for r, row := range sheets[name] {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(name, cell, &row))
		}
	}
	return f
}

// =============================================================================
// WORKBOOK CONFIG
// =============================================================================

func TestWorkbookConfig_ReadsSheetCaseInsensitive(t *testing.T) {
	// GIVEN: A config workbook with a Rules sheet and a blank leading row
	// WHEN: Asking for "rules"
	// THEN: The header is the first non-empty row and data rows follow

	f := writeWorkbook(t, map[string][][]any{
		"Staff": {{"Name"}, {"Ann Lee"}},
		"Rules": {
			{""},
			{" Scope ", "Subject", "Rate"},
			{"client", "Acme", "10%"},
		},
	}, "Staff", "Rules")
	path := filepath.Join(t.TempDir(), "config.xlsx")
	require.NoError(t, f.SaveAs(path))

	cfg := sources.NewWorkbookConfig(path)
	table, err := cfg.Table(context.Background(), "rules")
	require.NoError(t, err)

	assert.Equal(t, "rules", table.Name)
	assert.Equal(t, []string{"Scope", "Subject", "Rate"}, table.Columns)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "Acme", table.Rows[0][1])
}

func TestWorkbookConfig_MissingSheet(t *testing.T) {
	f := writeWorkbook(t, map[string][][]any{"Staff": {{"Name"}}}, "Staff")
	path := filepath.Join(t.TempDir(), "config.xlsx")
	require.NoError(t, f.SaveAs(path))

	_, err := sources.NewWorkbookConfig(path).Table(context.Background(), "Offsets")

	var missing *generic.MissingTableError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "Offsets", missing.Table)
	assert.Equal(t, "configuration", generic.Category(err))
}

func TestWorkbookConfig_MissingFile(t *testing.T) {
	_, err := sources.NewWorkbookConfig(filepath.Join(t.TempDir(), "nope.xlsx")).
		Table(context.Background(), "Staff")
	assert.True(t, generic.IsConfigurationError(err))
}

func TestReadWorkbook_AllSheets(t *testing.T) {
	f := writeWorkbook(t, map[string][][]any{
		"Staff":    {{"Name", "Salary"}, {"Ann", "100000"}},
		"Benefits": {{"Code"}, {"M1"}, {"D1"}},
	}, "Staff", "Benefits")
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	tables, err := sources.ReadWorkbook(&buf)
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Len(t, tables["Benefits"].Rows, 2)
	assert.Equal(t, []string{"Name", "Salary"}, tables["Staff"].Columns)
}

// =============================================================================
// WORKBOOK FEED
// =============================================================================

func TestWorkbookFeed_ReadsYearFile(t *testing.T) {
	dir := t.TempDir()
	f := writeWorkbook(t, map[string][][]any{
		"Export": {{"Date", "Hours"}, {"2024-01-02", "8"}},
	}, "Export")
	require.NoError(t, f.SaveAs(filepath.Join(dir, "time_2024.xlsx")))

	feed := &sources.WorkbookFeed{FeedName: "Time tracking", Dir: dir, Prefix: "time"}
	table, err := feed.TimeEntries(context.Background(), 2024)
	require.NoError(t, err)
	assert.Equal(t, "time_2024", table.Name)
	assert.Len(t, table.Rows, 1)

	_, err = feed.TimeEntries(context.Background(), 2023)
	assert.ErrorIs(t, err, generic.ErrUpstreamFailed)
}

func TestWorkbookFeed_DateCellsReadAsDates(t *testing.T) {
	// GIVEN: A time export whose dates are real Excel dates, one written as a
	//        time.Time and one as a serial with the short-date format, plus a
	//        currency-formatted amount
	// WHEN: The feed is read and normalized
	// THEN: Both rows carry 2024-06-15 and the amount keeps its value

	dir := t.TempDir()
	f := writeWorkbook(t, map[string][][]any{
		"Export": {
			{"Staff Member", "Date", "Client", "Project", "Hours", "Billable Amount"},
			{"Ann Lee", time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC), "Acme", "Build", 8, 1600},
			{"Ann Lee", 45458, "Acme", "Build", 4, 800.5},
		},
	}, "Export")
	short, err := f.NewStyle(&excelize.Style{NumFmt: 14})
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle("Export", "B3", "B3", short))
	money, err := f.NewStyle(&excelize.Style{NumFmt: 7})
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle("Export", "F2", "F3", money))
	require.NoError(t, f.SaveAs(filepath.Join(dir, "time_2024.xlsx")))

	feed := &sources.WorkbookFeed{FeedName: "Time tracking", Dir: dir, Prefix: "time"}
	table, err := feed.TimeEntries(context.Background(), 2024)
	require.NoError(t, err)

	entries, diags, err := normalize.New().TimeEntries(table, "Harvest")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, "2024-06-15", e.Date.String(), "diagnostics: %v", diags.Lines)
	}
	assert.True(t, entries[0].BillableAmount.Equal(decimal.NewFromInt(1600)), "got %s", entries[0].BillableAmount)
	assert.True(t, entries[1].BillableAmount.Equal(decimal.RequireFromString("800.5")), "got %s", entries[1].BillableAmount)
}

// =============================================================================
// HTTP FEED
// =============================================================================

type fixedToken string

func (f fixedToken) AccessToken(context.Context) (string, error) { return string(f), nil }

type noToken struct{}

func (noToken) AccessToken(context.Context) (string, error) {
	return "", &generic.MissingCredentialError{Name: "ACCOUNTING_REFRESH_TOKEN"}
}

func TestHTTPFeed_DecodesRows(t *testing.T) {
	// GIVEN: An endpoint returning two JSON objects with differing keys
	// WHEN: Fetching invoices
	// THEN: Columns are the sorted key union and numbers keep their text

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2024", r.URL.Query().Get("year"))
		assert.Equal(t, "Bearer abc", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"client":"Acme","amount":1000.10},{"client":"Globex","memo":null,"paid":true}]`))
	}))
	defer srv.Close()

	feed := sources.NewHTTPFeed("Accounting", srv.URL+"/invoices", fixedToken("abc"))
	table, err := feed.Invoices(context.Background(), 2024)
	require.NoError(t, err)

	assert.Equal(t, []string{"amount", "client", "memo", "paid"}, table.Columns)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, []string{"1000.10", "Acme", "", ""}, table.Rows[0])
	assert.Equal(t, []string{"", "Globex", "", "true"}, table.Rows[1])
}

func TestHTTPFeed_Envelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"rows":[{"hours":"8"}]}`))
	}))
	defer srv.Close()

	table, err := sources.NewHTTPFeed("Time", srv.URL, nil).TimeEntries(context.Background(), 2024)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"8"}}, table.Rows)
}

func TestHTTPFeed_Non2xxIsUpstream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := sources.NewHTTPFeed("Accounting", srv.URL, nil).Invoices(context.Background(), 2024)
	assert.ErrorIs(t, err, generic.ErrUpstreamFailed)
	assert.Equal(t, "upstream", generic.Category(err))
	assert.Contains(t, err.Error(), "502")
}

func TestHTTPFeed_MissingCredential(t *testing.T) {
	feed := sources.NewHTTPFeed("Accounting", "http://127.0.0.1:1", noToken{})
	_, err := feed.Invoices(context.Background(), 2024)
	assert.Equal(t, "credential", generic.Category(err))
}

// =============================================================================
// STATIC
// =============================================================================

func TestStatic(t *testing.T) {
	cfg := sources.StaticConfig{"Rules": {Columns: []string{"Scope"}}}
	table, err := cfg.Table(context.Background(), "RULES")
	require.NoError(t, err)
	assert.Equal(t, "Rules", table.Name)

	_, err = cfg.Table(context.Background(), "Staff")
	assert.True(t, generic.IsConfigurationError(err))

	feed := &sources.StaticFeed{FeedName: "Time", Err: errors.New("down")}
	_, err = feed.TimeEntries(context.Background(), 2024)
	assert.ErrorIs(t, err, generic.ErrUpstreamFailed)
}

func TestStaticToken(t *testing.T) {
	tok, err := sources.StaticToken{Credential: "TIME_FEED_TOKEN", Value: "abc"}.AccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	_, err = sources.StaticToken{Credential: "TIME_FEED_TOKEN"}.AccessToken(context.Background())
	assert.Equal(t, "credential", generic.Category(err))
	assert.Contains(t, err.Error(), "TIME_FEED_TOKEN")
}
