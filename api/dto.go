/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the engine's result types from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

MONEY:
  Amounts are JSON numbers rounded to cents. The engines keep exact
  decimals; rounding happens only here and in the export workbooks.

VALIDATION:
  Request types carry go-playground/validator tags, checked in handlers
  before any report runs.

SEE ALSO:
  - handlers.go: Uses these types
  - report/runner.go: Result types converted here
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/bizops-engine/benefits"
	"github.com/warp/bizops-engine/bonus"
	"github.com/warp/bizops-engine/commission"
	"github.com/warp/bizops-engine/generic"
	"github.com/warp/bizops-engine/report"
)

// =============================================================================
// REQUESTS
// =============================================================================

// ReportRequest selects the report year. A zero year means the current one.
type ReportRequest struct {
	Year int `json:"year" validate:"omitempty,min=2000,max=2100"`

	// Bonus only
	AsOf      string        `json:"as_of,omitempty"`
	Overrides []OverrideDTO `json:"overrides,omitempty" validate:"dive"`
}

// OverrideDTO replaces one employee's bonus targets for a single run.
type OverrideDTO struct {
	Name              string   `json:"name" validate:"required"`
	UtilizationTarget *float64 `json:"utilization_target,omitempty" validate:"omitempty,min=0"`
	OtherTarget       *float64 `json:"other_target,omitempty" validate:"omitempty,min=0"`
}

// EmailRequest runs a report and mails the workbook.
type EmailRequest struct {
	ReportRequest
	To      []string `json:"to" validate:"required,min=1,dive,email"`
	Subject string   `json:"subject,omitempty"`
	Body    string   `json:"body,omitempty"`
}

// =============================================================================
// COMMISSION
// =============================================================================

type LedgerEntryDTO struct {
	Salesperson   string  `json:"salesperson"`
	Label         string  `json:"label"`
	Category      string  `json:"category"`
	InvoiceDate   string  `json:"invoice_date"`
	InvoiceAmount float64 `json:"invoice_amount"`
	Rate          float64 `json:"rate"`
	Commission    float64 `json:"commission"`
	Source        string  `json:"source"`
}

type SalespersonDTO struct {
	Salesperson string  `json:"salesperson"`
	Entries     int     `json:"entries"`
	Total       float64 `json:"total"`
	Due         float64 `json:"due"`
}

type CategoryDTO struct {
	Salesperson string  `json:"salesperson"`
	Category    string  `json:"category"`
	Entries     int     `json:"entries"`
	Total       float64 `json:"total"`
}

type ClientDTO struct {
	Salesperson string  `json:"salesperson"`
	Label       string  `json:"label"`
	Revenue     float64 `json:"revenue"`
	Commission  float64 `json:"commission"`
}

type CommissionResponse struct {
	RunID       string           `json:"run_id"`
	Year        int              `json:"year"`
	Ledger      []LedgerEntryDTO `json:"ledger"`
	Salespeople []SalespersonDTO `json:"salespeople"`
	Categories  []CategoryDTO    `json:"categories"`
	Clients     []ClientDTO      `json:"clients"`
	TotalDue    float64          `json:"total_due"`
	Stats       commission.Stats `json:"stats"`
	Diagnostics []string         `json:"diagnostics"`
}

// =============================================================================
// BONUS
// =============================================================================

type TierDTO struct {
	Tier           int     `json:"tier"`
	EligibleHours  float64 `json:"eligible_hours"`
	Tier1Threshold float64 `json:"tier1_threshold"`
	Tier2Threshold float64 `json:"tier2_threshold"`
	ProratedTarget float64 `json:"prorated_target"`
	Bonus          float64 `json:"bonus"`
}

type BonusLineDTO struct {
	Name              string  `json:"name"`
	StartDate         string  `json:"start_date"`
	Proration         float64 `json:"proration"`
	Overridden        bool    `json:"overridden"`
	UtilizationTarget float64 `json:"utilization_target"`
	OtherTarget       float64 `json:"other_target"`
	BillableHours     float64 `json:"billable_hours"`
	ProBonoHours      float64 `json:"pro_bono_hours"`
	YTD               TierDTO `json:"ytd"`
	Projected         TierDTO `json:"projected"`
	OtherYTD          float64 `json:"other_ytd"`
	OtherProjected    float64 `json:"other_projected"`
	TotalYTD          float64 `json:"total_ytd"`
	TotalProjected    float64 `json:"total_projected"`
	EmployerCostYTD   float64 `json:"employer_cost_ytd"`
	EmployerCostProj  float64 `json:"employer_cost_projected"`
}

type BonusResponse struct {
	RunID                 string         `json:"run_id"`
	Year                  int            `json:"year"`
	AsOf                  string         `json:"as_of"`
	Lines                 []BonusLineDTO `json:"lines"`
	TotalYTD              float64        `json:"total_ytd"`
	TotalProjected        float64        `json:"total_projected"`
	EmployerCostYTD       float64        `json:"employer_cost_ytd"`
	EmployerCostProjected float64        `json:"employer_cost_projected"`
	Diagnostics           []string       `json:"diagnostics"`
}

// =============================================================================
// BENEFITS
// =============================================================================

type CostDTO struct {
	Total    float64 `json:"total"`
	Employee float64 `json:"employee"`
	Firm     float64 `json:"firm"`
}

type ElectionDTO struct {
	Slot        string  `json:"slot"`
	Code        string  `json:"code"`
	Description string  `json:"description,omitempty"`
	Declined    bool    `json:"declined"`
	Unknown     bool    `json:"unknown"`
	Monthly     CostDTO `json:"monthly"`
}

type EmployeeBenefitsDTO struct {
	Name      string        `json:"name"`
	Salary    float64       `json:"salary"`
	Elections []ElectionDTO `json:"elections"`
	Monthly   CostDTO       `json:"monthly"`
	Annual    CostDTO       `json:"annual"`
	Notes     []string      `json:"notes,omitempty"`
}

type SlotSummaryDTO struct {
	Label    string  `json:"label"`
	Enrolled int     `json:"enrolled"`
	Monthly  CostDTO `json:"monthly"`
	Annual   CostDTO `json:"annual"`
}

type BenefitsResponse struct {
	RunID       string                `json:"run_id"`
	Year        int                   `json:"year"`
	Employees   []EmployeeBenefitsDTO `json:"employees"`
	Summary     []SlotSummaryDTO      `json:"summary"`
	Total       SlotSummaryDTO        `json:"total"`
	Diagnostics []string              `json:"diagnostics"`
}

// =============================================================================
// RUN LOG
// =============================================================================

type RunDTO struct {
	ID            string     `json:"id"`
	Kind          string     `json:"kind"`
	Year          int        `json:"year"`
	Status        string     `json:"status"`
	Entries       int        `json:"entries"`
	ErrorCategory string     `json:"error_category,omitempty"`
	Error         string     `json:"error,omitempty"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

type EmailResponse struct {
	RunID  string   `json:"run_id"`
	SentTo []string `json:"sent_to"`
	File   string   `json:"file"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error    string `json:"error"`
	Category string `json:"category,omitempty"`
	Details  any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func money(d decimal.Decimal) float64 { return d.Round(2).InexactFloat64() }

func toCommissionResponse(rep *report.CommissionReport) CommissionResponse {
	resp := CommissionResponse{
		RunID:       rep.RunID,
		Year:        rep.Year,
		Ledger:      make([]LedgerEntryDTO, 0, len(rep.Ledger)),
		Salespeople: make([]SalespersonDTO, 0, len(rep.Summaries)),
		Categories:  make([]CategoryDTO, 0, len(rep.Categories)),
		Clients:     make([]ClientDTO, 0, len(rep.Clients)),
		Stats:       rep.Stats,
		Diagnostics: nonNil(rep.Diagnostics),
	}
	for _, e := range rep.Ledger {
		resp.Ledger = append(resp.Ledger, LedgerEntryDTO{
			Salesperson:   e.Salesperson,
			Label:         e.Label,
			Category:      e.Category,
			InvoiceDate:   e.InvoiceDate.String(),
			InvoiceAmount: money(e.InvoiceAmount),
			Rate:          e.Rate.InexactFloat64(),
			Commission:    money(e.Commission),
			Source:        e.Source,
		})
	}
	due := decimal.Zero
	for _, s := range rep.Summaries {
		resp.Salespeople = append(resp.Salespeople, SalespersonDTO{
			Salesperson: s.Salesperson, Entries: s.Entries, Total: money(s.Total), Due: money(s.Due),
		})
		due = due.Add(s.Due)
	}
	resp.TotalDue = money(due)
	for _, c := range rep.Categories {
		resp.Categories = append(resp.Categories, CategoryDTO{
			Salesperson: c.Salesperson, Category: c.Category, Entries: c.Entries, Total: money(c.Total),
		})
	}
	for _, c := range rep.Clients {
		resp.Clients = append(resp.Clients, ClientDTO{
			Salesperson: c.Salesperson, Label: c.Label, Revenue: money(c.Revenue), Commission: money(c.Total),
		})
	}
	return resp
}

func toTierDTO(t bonus.TierResult) TierDTO {
	return TierDTO{
		Tier:           int(t.Tier),
		EligibleHours:  t.EligibleHours.Round(2).InexactFloat64(),
		Tier1Threshold: t.Tier1Threshold.Round(2).InexactFloat64(),
		Tier2Threshold: t.Tier2Threshold.Round(2).InexactFloat64(),
		ProratedTarget: money(t.ProratedTarget),
		Bonus:          money(t.Bonus),
	}
}

func toBonusResponse(rep *report.BonusReport) BonusResponse {
	resp := BonusResponse{
		RunID:                 rep.RunID,
		Year:                  rep.Year,
		AsOf:                  rep.AsOf.String(),
		Lines:                 make([]BonusLineDTO, 0, len(rep.Lines)),
		TotalYTD:              money(rep.Totals.TotalYTD),
		TotalProjected:        money(rep.Totals.TotalProjected),
		EmployerCostYTD:       money(rep.Totals.EmployerCostYTD),
		EmployerCostProjected: money(rep.Totals.EmployerCostProjected),
		Diagnostics:           nonNil(rep.Diagnostics),
	}
	for _, l := range rep.Lines {
		resp.Lines = append(resp.Lines, BonusLineDTO{
			Name:              l.Name,
			StartDate:         l.StartDate.String(),
			Proration:         l.Proration.Round(4).InexactFloat64(),
			Overridden:        l.Overridden,
			UtilizationTarget: money(l.UtilizationTarget),
			OtherTarget:       money(l.OtherTarget),
			BillableHours:     l.Hours.Billable.InexactFloat64(),
			ProBonoHours:      l.Hours.ProBono.InexactFloat64(),
			YTD:               toTierDTO(l.YTD),
			Projected:         toTierDTO(l.Projected),
			OtherYTD:          money(l.OtherYTD),
			OtherProjected:    money(l.OtherProjected),
			TotalYTD:          money(l.TotalYTD),
			TotalProjected:    money(l.TotalProjected),
			EmployerCostYTD:   money(l.BurdenYTD.EmployerCost),
			EmployerCostProj:  money(l.BurdenProjected.EmployerCost),
		})
	}
	return resp
}

func toCostDTO(c benefits.Cost) CostDTO {
	return CostDTO{Total: money(c.Total), Employee: money(c.Employee), Firm: money(c.Firm)}
}

func toSlotSummaryDTO(r benefits.SummaryRow) SlotSummaryDTO {
	return SlotSummaryDTO{Label: r.Label, Enrolled: r.Enrolled, Monthly: toCostDTO(r.Monthly), Annual: toCostDTO(r.Annual)}
}

func toBenefitsResponse(rep *report.BenefitsReport) BenefitsResponse {
	resp := BenefitsResponse{
		RunID:       rep.RunID,
		Year:        rep.Year,
		Employees:   make([]EmployeeBenefitsDTO, 0, len(rep.Report.Employees)),
		Summary:     make([]SlotSummaryDTO, 0, len(rep.Report.Summary.Rows)),
		Total:       toSlotSummaryDTO(rep.Report.Summary.Total),
		Diagnostics: nonNil(rep.Diagnostics),
	}
	for _, e := range rep.Report.Employees {
		dto := EmployeeBenefitsDTO{
			Name:    e.Name,
			Salary:  money(e.Salary),
			Monthly: toCostDTO(e.Monthly),
			Annual:  toCostDTO(e.Annual),
			Notes:   e.Notes,
		}
		for _, el := range e.Elections {
			dto.Elections = append(dto.Elections, ElectionDTO{
				Slot:        el.Slot.Label(),
				Code:        el.Code,
				Description: el.Description,
				Declined:    el.Declined,
				Unknown:     el.Unknown,
				Monthly:     toCostDTO(el.Monthly),
			})
		}
		resp.Employees = append(resp.Employees, dto)
	}
	for _, r := range rep.Report.Summary.Rows {
		resp.Summary = append(resp.Summary, toSlotSummaryDTO(r))
	}
	return resp
}

func toRunDTO(r generic.Run) RunDTO {
	return RunDTO{
		ID:            r.ID,
		Kind:          string(r.Kind),
		Year:          r.Year,
		Status:        string(r.Status),
		Entries:       r.Entries,
		ErrorCategory: r.ErrorCategory,
		Error:         r.Error,
		StartedAt:     r.StartedAt,
		CompletedAt:   r.CompletedAt,
	}
}

func toOverrides(dtos []OverrideDTO) []bonus.Override {
	out := make([]bonus.Override, 0, len(dtos))
	for _, d := range dtos {
		o := bonus.Override{Name: d.Name}
		if d.UtilizationTarget != nil {
			v := decimal.NewFromFloat(*d.UtilizationTarget)
			o.UtilizationTarget = &v
		}
		if d.OtherTarget != nil {
			v := decimal.NewFromFloat(*d.OtherTarget)
			o.OtherTarget = &v
		}
		out = append(out, o)
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
