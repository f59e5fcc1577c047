/*
handlers.go - HTTP API handlers for the report engine

PURPOSE:
  Exposes report runs over REST. Handlers parse and validate the request,
  call the report runner, and serialize the result. No report logic lives
  here.

ENDPOINTS:
  Reports:
    POST   /api/reports/commission         Commission ledger + rollups
    POST   /api/reports/bonus              Bonus worksheet
    POST   /api/reports/benefits           Benefit allocations + firm summary
    POST   /api/reports/{kind}/export      Same report as an .xlsx download
    POST   /api/reports/{kind}/email       Same report mailed as an attachment

  Run log:
    GET    /api/runs                       Most recent runs (?limit=50)
    GET    /api/runs/{id}                  One run

  Health:
    GET    /api/health

ERROR HANDLING:
  Run failures are mapped by category:
  - 422: configuration (missing sheet or column)
  - 404: empty (a feed had no rows for the year)
  - 502: upstream (feed or token endpoint failed)
  - 500: credential, internal
  - 400: malformed or invalid request

SECURITY NOTE:
  No authentication. Deploy behind the firm's SSO proxy.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - report/runner.go: Report orchestration
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/warp/bizops-engine/export"
	"github.com/warp/bizops-engine/generic"
	"github.com/warp/bizops-engine/normalize"
	"github.com/warp/bizops-engine/report"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Runner *report.Runner
	Runs   generic.RunStore
	Mailer *export.Mailer

	validate *validator.Validate
	now      func() time.Time
}

// NewHandler creates a new handler. mailer may be nil; /email then fails
// with a credential error.
func NewHandler(runner *report.Runner, runs generic.RunStore, mailer *export.Mailer) *Handler {
	return &Handler{
		Runner:   runner,
		Runs:     runs,
		Mailer:   mailer,
		validate: validator.New(),
		now:      time.Now,
	}
}

// =============================================================================
// REPORT ENDPOINTS
// =============================================================================

// RunCommission handles POST /api/reports/commission
func (h *Handler) RunCommission(w http.ResponseWriter, r *http.Request) {
	var req ReportRequest
	if !h.decode(w, r, &req) {
		return
	}
	rep, err := h.Runner.Commission(r.Context(), h.year(req))
	if err != nil {
		writeRunError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCommissionResponse(rep))
}

// RunBonus handles POST /api/reports/bonus
func (h *Handler) RunBonus(w http.ResponseWriter, r *http.Request) {
	var req ReportRequest
	if !h.decode(w, r, &req) {
		return
	}
	rep, err := h.bonus(r.Context(), req)
	if err != nil {
		writeRunError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBonusResponse(rep))
}

// RunBenefits handles POST /api/reports/benefits
func (h *Handler) RunBenefits(w http.ResponseWriter, r *http.Request) {
	var req ReportRequest
	if !h.decode(w, r, &req) {
		return
	}
	rep, err := h.Runner.Benefits(r.Context(), h.year(req))
	if err != nil {
		writeRunError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBenefitsResponse(rep))
}

// ExportReport handles POST /api/reports/{kind}/export
func (h *Handler) ExportReport(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	var req ReportRequest
	if !h.decode(w, r, &req) {
		return
	}

	wb, err := h.workbook(r.Context(), kind, req)
	if err != nil {
		writeRunError(w, err)
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, wb.file))
	w.Header().Set("X-Run-ID", wb.runID)
	w.WriteHeader(http.StatusOK)
	w.Write(wb.data)
}

// EmailReport handles POST /api/reports/{kind}/email
func (h *Handler) EmailReport(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	var req EmailRequest
	if !h.decode(w, r, &req) {
		return
	}
	if h.Mailer == nil {
		writeRunError(w, &generic.MissingCredentialError{Name: "SMTP_HOST"})
		return
	}

	wb, err := h.workbook(r.Context(), kind, req.ReportRequest)
	if err != nil {
		writeRunError(w, err)
		return
	}

	subject := req.Subject
	if subject == "" {
		subject = fmt.Sprintf("%s%s report %d", strings.ToUpper(kind[:1]), kind[1:], wb.year)
	}
	body := req.Body
	if body == "" {
		body = fmt.Sprintf("The %s report for %d is attached (run %s).", kind, wb.year, wb.runID)
	}

	err = h.Mailer.Send(export.Message{
		To:             req.To,
		Subject:        subject,
		Body:           body,
		AttachmentName: wb.file,
		Attachment:     wb.data,
	})
	if err != nil {
		writeRunError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, EmailResponse{RunID: wb.runID, SentTo: req.To, File: wb.file})
}

// =============================================================================
// RUN LOG ENDPOINTS
// =============================================================================

// ListRuns handles GET /api/runs
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer", err)
			return
		}
		limit = n
	}

	runs, err := h.Runs.ListRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list runs", err)
		return
	}

	result := make([]RunDTO, 0, len(runs))
	for _, run := range runs {
		result = append(result, toRunDTO(run))
	}
	writeJSON(w, http.StatusOK, result)
}

// GetRun handles GET /api/runs/{id}
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	run, err := h.Runs.GetRun(r.Context(), id)
	if errors.Is(err, generic.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, "Run not found", nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get run", err)
		return
	}
	writeJSON(w, http.StatusOK, toRunDTO(*run))
}

// Health handles GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if _, err := h.Runs.ListRuns(r.Context(), 1); err != nil {
		writeError(w, http.StatusServiceUnavailable, "Run log unavailable", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

type workbook struct {
	runID string
	year  int
	file  string
	data  []byte
}

// errUnknownKind is reported as 404.
var errUnknownKind = errors.New("unknown report kind")

func (h *Handler) workbook(ctx context.Context, kind string, req ReportRequest) (*workbook, error) {
	year := h.year(req)
	wb := &workbook{year: year, file: export.FileName(kind, year)}

	var err error
	switch generic.RunKind(kind) {
	case generic.RunCommission:
		var rep *report.CommissionReport
		if rep, err = h.Runner.Commission(ctx, year); err == nil {
			wb.runID = rep.RunID
			wb.data, err = export.CommissionWorkbook(rep.Ledger)
		}
	case generic.RunBonus:
		var rep *report.BonusReport
		if rep, err = h.bonus(ctx, req); err == nil {
			wb.runID = rep.RunID
			wb.data, err = export.BonusWorkbook(rep.Lines)
		}
	case generic.RunBenefits:
		var rep *report.BenefitsReport
		if rep, err = h.Runner.Benefits(ctx, year); err == nil {
			wb.runID = rep.RunID
			wb.data, err = export.BenefitsWorkbook(rep.Report)
		}
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownKind, kind)
	}
	if err != nil {
		return nil, err
	}
	return wb, nil
}

func (h *Handler) bonus(ctx context.Context, req ReportRequest) (*report.BonusReport, error) {
	var asOf generic.TimePoint
	if req.AsOf != "" {
		d, err := normalize.ParseDate(req.AsOf)
		if err != nil {
			return nil, &badRequestError{msg: "as_of is not a date", err: err}
		}
		asOf = d
	}
	return h.Runner.Bonus(ctx, h.year(req), asOf, toOverrides(req.Overrides))
}

func (h *Handler) year(req ReportRequest) int {
	if req.Year != 0 {
		return req.Year
	}
	return h.now().Year()
}

// decode reads an optional JSON body into v and validates it. It writes
// the 400 response itself and reports whether the handler should go on.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid JSON", err)
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", validationDetails(err))
		return false
	}
	return true
}

func validationDetails(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return errors.New(strings.Join(msgs, "; "))
}

type badRequestError struct {
	msg string
	err error
}

func (e *badRequestError) Error() string { return e.msg + ": " + e.err.Error() }
func (e *badRequestError) Unwrap() error { return e.err }

// statusFor maps a run error to an HTTP status.
func statusFor(err error) int {
	var bad *badRequestError
	if errors.As(err, &bad) {
		return http.StatusBadRequest
	}
	if errors.Is(err, errUnknownKind) {
		return http.StatusNotFound
	}
	switch generic.Category(err) {
	case "configuration":
		return http.StatusUnprocessableEntity
	case "empty":
		return http.StatusNotFound
	case "upstream":
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeRunError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	resp := ErrorResponse{Error: err.Error()}
	if status != http.StatusBadRequest && !errors.Is(err, errUnknownKind) {
		resp.Category = generic.Category(err)
	}
	var missing *generic.MissingColumnError
	if errors.As(err, &missing) {
		resp.Details = map[string]any{"table": missing.Table, "field": missing.Field, "aliases": missing.Aliases}
	}
	if status >= 500 {
		log.Printf("[API] %s error: %v", resp.Category, err)
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
