/*
handlers_test.go - Tests for the HTTP API

Tests for:
- Report endpoints (JSON bodies, error category -> status mapping)
- Workbook export and mailing
- Run log endpoints
- Scheduled mailings
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/bizops-engine/export"
	"github.com/warp/bizops-engine/generic"
	"github.com/warp/bizops-engine/generic/store"
	"github.com/warp/bizops-engine/report"
	"github.com/warp/bizops-engine/sources"
	"github.com/xuri/excelize/v2"
	"gopkg.in/gomail.v2"
)

// =============================================================================
// FIXTURES
// =============================================================================

func fixtureConfig() sources.StaticConfig {
	return sources.StaticConfig{
		"Rules": {
			Columns: []string{"Scope", "Subject", "Salesperson", "Category", "Rate", "Start Date"},
			Rows:    [][]string{{"client", "Acme", "Jane", "Client Commission", "10%", "2024-01-01"}},
		},
		"Offsets": {Columns: []string{"Date", "Salesperson", "Category", "Amount"}},
		"Mapping": {Columns: []string{"Before", "After"}},
		"Staff": {
			Columns: []string{"Name", "Start Date", "Salary", "Utilization Target", "Medical"},
			Rows:    [][]string{{"Ann Lee", "2020-01-06", "104000", "10000", "M1"}},
		},
		"Benefits": {
			Columns: []string{"Code", "Description", "Formula Based", "Total Monthly Cost", "EE Monthly Cost", "Firm Monthly Cost"},
			Rows:    [][]string{{"M1", "Medical", "No", "600", "100", "500"}},
		},
	}
}

type sentMail struct {
	to  []string
	raw string
}

type testServer struct {
	router  http.Handler
	handler *Handler
	runs    *store.Memory
	sent    []sentMail
}

func newTestServer(t *testing.T, cfg sources.StaticConfig) *testServer {
	t.Helper()

	timeFeed := &sources.StaticFeed{FeedName: "Harvest", ByYear: map[int]generic.Table{
		2024: {
			Columns: []string{"Staff Member", "Date", "Client", "Project", "Hours", "Billable Amount"},
			Rows:    [][]string{{"Ann Lee", "2024-03-04", "Acme", "Build", "8", "2000"}},
		},
	}}
	accounting := &sources.StaticFeed{FeedName: "QuickBooks", ByYear: map[int]generic.Table{
		2024: {
			Columns: []string{"Customer", "Date", "Amount"},
			Rows:    [][]string{{"Acme", "2024-03-15", "10000"}},
		},
	}}

	ts := &testServer{runs: store.NewMemory()}
	runner := report.NewRunner(timeFeed, accounting, cfg, ts.runs)
	runner.Now = func() time.Time { return time.Date(2024, 12, 31, 9, 0, 0, 0, time.UTC) }

	mailer := export.NewMailer(export.SMTPConfig{From: "reports@example.com"})
	mailer.Sender = gomail.SendFunc(func(from string, rcpt []string, msg io.WriterTo) error {
		var buf bytes.Buffer
		_, err := msg.WriteTo(&buf)
		ts.sent = append(ts.sent, sentMail{to: rcpt, raw: buf.String()})
		return err
	})

	ts.handler = NewHandler(runner, ts.runs, mailer)
	ts.handler.now = runner.Now
	ts.router = NewRouter(ts.handler, nil)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// =============================================================================
// REPORTS
// =============================================================================

func TestRunCommission(t *testing.T) {
	// GIVEN: A 10% client rule for Acme and a 10,000 Acme invoice
	// WHEN: POST /api/reports/commission for 2024
	// THEN: One ledger entry of 1,000 and a completed run
	ts := newTestServer(t, fixtureConfig())

	rec := ts.do(t, http.MethodPost, "/api/reports/commission", `{"year": 2024}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeBody[CommissionResponse](t, rec)
	require.Len(t, resp.Ledger, 1)
	assert.Equal(t, "Jane", resp.Ledger[0].Salesperson)
	assert.Equal(t, 1000.0, resp.Ledger[0].Commission)
	assert.Equal(t, "2024-03-15", resp.Ledger[0].InvoiceDate)
	assert.Equal(t, 1000.0, resp.TotalDue)
	assert.NotEmpty(t, resp.RunID)
}

func TestRunCommission_EmptyBodyUsesCurrentYear(t *testing.T) {
	ts := newTestServer(t, fixtureConfig())

	rec := ts.do(t, http.MethodPost, "/api/reports/commission", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 2024, decodeBody[CommissionResponse](t, rec).Year)
}

func TestRunCommission_EmptyFeedIs404(t *testing.T) {
	ts := newTestServer(t, fixtureConfig())

	rec := ts.do(t, http.MethodPost, "/api/reports/commission", `{"year": 2023}`)
	require.Equal(t, http.StatusNotFound, rec.Code)

	resp := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, "empty", resp.Category)
	assert.Contains(t, resp.Error, "no rows for 2023")
}

func TestRunCommission_MissingSheetIs422(t *testing.T) {
	cfg := fixtureConfig()
	delete(cfg, "Rules")
	ts := newTestServer(t, cfg)

	rec := ts.do(t, http.MethodPost, "/api/reports/commission", `{"year": 2024}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "configuration", decodeBody[ErrorResponse](t, rec).Category)
}

func TestRunCommission_MissingColumnDetails(t *testing.T) {
	cfg := fixtureConfig()
	cfg["Rules"] = generic.Table{Columns: []string{"Scope", "Subject"}, Rows: [][]string{{"client", "Acme"}}}
	ts := newTestServer(t, cfg)

	rec := ts.do(t, http.MethodPost, "/api/reports/commission", `{"year": 2024}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	resp := decodeBody[ErrorResponse](t, rec)
	details, ok := resp.Details.(map[string]any)
	require.True(t, ok, "details: %#v", resp.Details)
	assert.Equal(t, "Rules", details["table"])
}

func TestRunCommission_UpstreamIs502(t *testing.T) {
	ts := newTestServer(t, fixtureConfig())
	ts.handler.Runner.Accounting = &sources.StaticFeed{FeedName: "QuickBooks", Err: io.ErrUnexpectedEOF}

	rec := ts.do(t, http.MethodPost, "/api/reports/commission", `{"year": 2024}`)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "upstream", decodeBody[ErrorResponse](t, rec).Category)
}

func TestRunReport_ValidationErrors(t *testing.T) {
	ts := newTestServer(t, fixtureConfig())

	tests := []struct {
		name string
		path string
		body string
	}{
		{"year out of range", "/api/reports/commission", `{"year": 1999}`},
		{"malformed json", "/api/reports/benefits", `{"year": `},
		{"override without name", "/api/reports/bonus", `{"overrides": [{"other_target": 100}]}`},
		{"bad as_of", "/api/reports/bonus", `{"year": 2024, "as_of": "someday"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestRunBonus(t *testing.T) {
	ts := newTestServer(t, fixtureConfig())

	rec := ts.do(t, http.MethodPost, "/api/reports/bonus",
		`{"year": 2024, "as_of": "2024-06-30", "overrides": [{"name": "Ann Lee", "other_target": 600}]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeBody[BonusResponse](t, rec)
	assert.Equal(t, "2024-06-30", resp.AsOf)
	require.Len(t, resp.Lines, 1)
	assert.True(t, resp.Lines[0].Overridden)
	assert.Equal(t, 8.0, resp.Lines[0].BillableHours)
	assert.Equal(t, 600.0, resp.Lines[0].OtherTarget)
}

func TestRunBenefits(t *testing.T) {
	ts := newTestServer(t, fixtureConfig())

	rec := ts.do(t, http.MethodPost, "/api/reports/benefits", `{"year": 2024}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeBody[BenefitsResponse](t, rec)
	require.Len(t, resp.Employees, 1)
	assert.Equal(t, 600.0, resp.Employees[0].Monthly.Total)
	assert.Equal(t, 6000.0, resp.Total.Annual.Firm)
}

// =============================================================================
// EXPORT AND EMAIL
// =============================================================================

func TestExportReport(t *testing.T) {
	ts := newTestServer(t, fixtureConfig())

	rec := ts.do(t, http.MethodPost, "/api/reports/commission/export", `{"year": 2024}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, export.ContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "commission_2024.xlsx")
	assert.NotEmpty(t, rec.Header().Get("X-Run-ID"))

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, "Ledger", f.GetSheetList()[0])
}

func TestExportReport_UnknownKind(t *testing.T) {
	ts := newTestServer(t, fixtureConfig())

	rec := ts.do(t, http.MethodPost, "/api/reports/payroll/export", `{"year": 2024}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	runs, err := ts.runs.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, runs, "no run is recorded for an unknown kind")
}

func TestEmailReport(t *testing.T) {
	// GIVEN: A mailer capturing messages
	// WHEN: POST /api/reports/benefits/email
	// THEN: One message with the workbook attached goes to the recipients
	ts := newTestServer(t, fixtureConfig())

	rec := ts.do(t, http.MethodPost, "/api/reports/benefits/email",
		`{"year": 2024, "to": ["finance@example.com"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeBody[EmailResponse](t, rec)
	assert.Equal(t, "benefits_2024.xlsx", resp.File)
	require.Len(t, ts.sent, 1)
	assert.Equal(t, []string{"finance@example.com"}, ts.sent[0].to)
	assert.Contains(t, ts.sent[0].raw, "Subject: Benefits report 2024")
	assert.Contains(t, ts.sent[0].raw, "benefits_2024.xlsx")
}

func TestEmailReport_InvalidRecipient(t *testing.T) {
	ts := newTestServer(t, fixtureConfig())

	rec := ts.do(t, http.MethodPost, "/api/reports/commission/email", `{"to": ["not-an-address"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, ts.sent)
}

func TestEmailReport_NoMailer(t *testing.T) {
	runs := store.NewMemory()
	runner := report.NewRunner(&sources.StaticFeed{}, &sources.StaticFeed{}, fixtureConfig(), runs)
	router := NewRouter(NewHandler(runner, runs, nil), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/reports/commission/email", strings.NewReader(`{"to": ["a@example.com"]}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "credential", decodeBody[ErrorResponse](t, rec).Category)
}

// =============================================================================
// RUN LOG
// =============================================================================

func TestRuns(t *testing.T) {
	ts := newTestServer(t, fixtureConfig())

	ts.do(t, http.MethodPost, "/api/reports/commission", `{"year": 2024}`)
	ts.do(t, http.MethodPost, "/api/reports/commission", `{"year": 2023}`)

	rec := ts.do(t, http.MethodGet, "/api/runs?limit=10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	runs := decodeBody[[]RunDTO](t, rec)
	require.Len(t, runs, 2)

	statuses := map[string]string{}
	for _, r := range runs {
		statuses[r.Status] = r.ErrorCategory
	}
	assert.Equal(t, "", statuses["completed"])
	assert.Equal(t, "empty", statuses["failed"])

	rec = ts.do(t, http.MethodGet, "/api/runs/"+runs[0].ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, runs[0].ID, decodeBody[RunDTO](t, rec).ID)

	rec = ts.do(t, http.MethodGet, "/api/runs/does-not-exist", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/runs?limit=zero", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, fixtureConfig())

	rec := ts.do(t, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody[map[string]string](t, rec)["status"])
}

// =============================================================================
// SCHEDULER
// =============================================================================

func TestReportScheduler_SendAll(t *testing.T) {
	// GIVEN: A scheduler for commission and an unknown report kind
	// WHEN: One mailing round runs
	// THEN: The commission workbook is sent and the unknown kind is skipped
	ts := newTestServer(t, fixtureConfig())

	s := NewReportScheduler(ts.handler, []string{"ops@example.com"})
	s.Reports = []string{"commission", "payroll"}

	assert.Equal(t, 1, s.SendAll(context.Background()))
	require.Len(t, ts.sent, 1)
	assert.Equal(t, []string{"ops@example.com"}, ts.sent[0].to)
	assert.Contains(t, ts.sent[0].raw, "Scheduled commission report 2024")
}
