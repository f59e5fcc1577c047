/*
Package report runs one report end to end.

PURPOSE:
  A report run is: record the run, load configuration sheets, fetch the
  feeds, normalize, compute, record the outcome. The engines are pure; this
  package is where I/O, logging and the run log live.

RUN LIFECYCLE:
  1. StartRun  (status "running", fresh uuid)
  2. Load      (ConfigStore sheets -> factory; feeds -> normalizer)
  3. Compute   (commission.Build / bonus.Compute / benefits.Compute)
  4. FinishRun ("completed" with entry count, or "failed" with category)

  A run aborts on the first configuration, credential, empty-feed or
  upstream error. Row-level problems become diagnostics on the result.

DIAGNOSTICS:
  Every report result carries Diagnostics: column resolutions, coerced
  cells, skipped config rows, overlapping rules, unmatched clients. They
  are also logged with a [Normalize] or [Config] prefix.

SEE ALSO:
  - sources/sources.go: Feed and config contracts
  - factory/config.go: Sheet -> typed values
  - api/handlers.go: HTTP entry points
*/
package report

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/warp/bizops-engine/benefits"
	"github.com/warp/bizops-engine/bonus"
	"github.com/warp/bizops-engine/commission"
	"github.com/warp/bizops-engine/factory"
	"github.com/warp/bizops-engine/generic"
	"github.com/warp/bizops-engine/normalize"
	"github.com/warp/bizops-engine/rules"
	"github.com/warp/bizops-engine/sources"
)

// Runner wires feeds, configuration and the run log together.
type Runner struct {
	TimeFeed   sources.TimeBillingFeed
	Accounting sources.AccountingFeed
	Config     sources.ConfigStore
	Runs       generic.RunStore

	Factory    *factory.ConfigFactory
	Normalizer *normalize.Normalizer

	// AggregateOtherCategories is passed to commission.Options.
	AggregateOtherCategories bool

	Now func() time.Time
}

func NewRunner(timeFeed sources.TimeBillingFeed, accounting sources.AccountingFeed, cfg sources.ConfigStore, runs generic.RunStore) *Runner {
	return &Runner{
		TimeFeed:   timeFeed,
		Accounting: accounting,
		Config:     cfg,
		Runs:       runs,
		Factory:    factory.NewConfigFactory(),
		Normalizer: normalize.New(),
		Now:        time.Now,
	}
}

// =============================================================================
// RESULTS
// =============================================================================

// CommissionReport is the result of a commission run.
type CommissionReport struct {
	RunID       string
	Year        int
	Ledger      commission.Ledger
	Summaries   []commission.SalespersonSummary
	Categories  []commission.CategoryTotal
	Clients     []commission.ClientTotal
	TotalDue    string
	Stats       commission.Stats
	Diagnostics []string
}

// BonusReport is the result of a bonus run.
type BonusReport struct {
	RunID       string
	Year        int
	AsOf        generic.TimePoint
	Lines       []bonus.Line
	Totals      bonus.Totals
	Diagnostics []string
}

// BenefitsReport is the result of a benefits run.
type BenefitsReport struct {
	RunID       string
	Year        int
	Report      benefits.Report
	Diagnostics []string
}

// =============================================================================
// COMMISSION
// =============================================================================

// Commission builds the ledger for year.
func (r *Runner) Commission(ctx context.Context, year int) (*CommissionReport, error) {
	rep := &CommissionReport{Year: year}
	diags := &diagnostics{}

	err := r.run(ctx, generic.RunCommission, year, func(runID string) (int, error) {
		rep.RunID = runID

		table, err := r.rules(ctx, diags)
		if err != nil {
			return 0, err
		}
		offsets, err := loadSheet(ctx, r, factory.SheetOffsets, r.Factory.Offsets, diags)
		if err != nil {
			return 0, err
		}
		mappings, err := loadSheet(ctx, r, factory.SheetMapping, r.Factory.Mappings, diags)
		if err != nil {
			return 0, err
		}

		txs, err := r.transactions(ctx, year, diags)
		if err != nil {
			return 0, err
		}
		entries, err := r.timeEntries(ctx, year, diags)
		if err != nil {
			return 0, err
		}

		res := commission.Build(commission.Input{
			Transactions: txs,
			TimeEntries:  entries,
			Rules:        table,
			Offsets:      offsets,
			Mappings:     mappings,
		}, commission.Options{
			ReportYear:               year,
			AggregateOtherCategories: r.AggregateOtherCategories,
		})

		rep.Ledger = res.Ledger
		rep.Stats = res.Stats
		rep.Summaries = commission.Summarize(res.Ledger)
		rep.Categories = commission.ByCategory(res.Ledger)
		rep.Clients = commission.ByClient(res.Ledger)
		rep.TotalDue = commission.TotalDue(rep.Summaries).StringFixed(2)
		for _, line := range res.Stats.Lines() {
			diags.add("Report", line)
		}
		return len(res.Ledger), nil
	})
	rep.Diagnostics = diags.lines
	return rep, err
}

func (r *Runner) rules(ctx context.Context, diags *diagnostics) (rules.Table, error) {
	table, err := loadSheet(ctx, r, factory.SheetRules, r.Factory.Rules, diags)
	if err != nil {
		return nil, err
	}
	overlaps, errs := table.Validate()
	for _, o := range overlaps {
		diags.add("Config", "overlapping rules (both apply): "+o.String())
	}
	for _, e := range errs {
		diags.add("Config", e.Error())
	}
	return table, nil
}

// =============================================================================
// BONUS
// =============================================================================

// Bonus computes the bonus worksheet for year as of asOf. A zero asOf means
// today. Overrides from the request are applied after the Overrides sheet,
// so they win on a name collision.
func (r *Runner) Bonus(ctx context.Context, year int, asOf generic.TimePoint, overrides []bonus.Override) (*BonusReport, error) {
	if asOf.IsZero() {
		asOf = generic.DateOf(r.now())
	}
	ytd := generic.NewYearToDate(year, asOf)
	rep := &BonusReport{Year: year, AsOf: ytd.AsOf}
	diags := &diagnostics{}

	err := r.run(ctx, generic.RunBonus, year, func(runID string) (int, error) {
		rep.RunID = runID

		staff, err := loadSheet(ctx, r, factory.SheetStaff, r.Factory.Staff, diags)
		if err != nil {
			return 0, err
		}
		sheetOverrides, err := loadSheet(ctx, r, factory.SheetOverrides, r.Factory.Overrides, diags)
		if err != nil {
			var missing *generic.MissingTableError
			if !errors.As(err, &missing) {
				return 0, err
			}
			// optional sheet
			sheetOverrides = nil
		}

		entries, err := r.timeEntries(ctx, year, diags)
		if err != nil {
			return 0, err
		}

		in := bonus.Input{
			Employees: staff,
			Hours:     bonus.TallyHours(entries, ytd.Period()),
			Overrides: append(sheetOverrides, overrides...),
		}
		rep.Lines = bonus.Compute(in, ytd)
		rep.Totals = bonus.Sum(rep.Lines)
		if !ytd.Started() {
			diags.add("Report", fmt.Sprintf("%d has not started as of %s; hours and projections are zero", year, asOf))
		}

		for _, l := range rep.Lines {
			if l.Overridden {
				diags.add("Report", fmt.Sprintf("targets overridden for %s", l.Name))
			}
			if _, ok := in.Hours[l.Name]; !ok {
				diags.add("Report", fmt.Sprintf("no billable or pro bono hours for %s", l.Name))
			}
		}
		return len(rep.Lines), nil
	})
	rep.Diagnostics = diags.lines
	return rep, err
}

// =============================================================================
// BENEFITS
// =============================================================================

// Benefits computes benefit allocations from the Staff and Benefits sheets.
// The year only labels the run.
func (r *Runner) Benefits(ctx context.Context, year int) (*BenefitsReport, error) {
	rep := &BenefitsReport{Year: year}
	diags := &diagnostics{}

	err := r.run(ctx, generic.RunBenefits, year, func(runID string) (int, error) {
		rep.RunID = runID

		staff, err := loadSheet(ctx, r, factory.SheetStaff, r.Factory.Staff, diags)
		if err != nil {
			return 0, err
		}
		catalog, err := loadSheet(ctx, r, factory.SheetBenefits, r.Factory.Catalog, diags)
		if err != nil {
			return 0, err
		}

		rep.Report = benefits.Compute(staff, catalog)
		for _, e := range rep.Report.Employees {
			for _, note := range e.Notes {
				diags.add("Report", e.Name+": "+note)
			}
		}
		return len(rep.Report.Employees), nil
	})
	rep.Diagnostics = diags.lines
	return rep, err
}

// =============================================================================
// LOADING
// =============================================================================

// loadSheet fetches a configuration sheet and builds it with build. Row
// errors become diagnostics.
func loadSheet[T any](ctx context.Context, r *Runner, name string, build func(generic.Table) (T, []error, error), diags *diagnostics) (T, error) {
	var zero T
	table, err := r.Config.Table(ctx, name)
	if err != nil {
		return zero, err
	}
	v, rowErrs, err := build(table)
	if err != nil {
		return zero, err
	}
	for _, e := range rowErrs {
		diags.add("Config", e.Error()+" (row skipped)")
	}
	return v, nil
}

func (r *Runner) transactions(ctx context.Context, year int, diags *diagnostics) ([]normalize.Transaction, error) {
	table, err := r.Accounting.Invoices(ctx, year)
	if err != nil {
		return nil, err
	}
	if table.IsEmpty() {
		return nil, &generic.UpstreamEmptyError{Feed: r.Accounting.Name(), Year: year}
	}
	txs, d, err := r.Normalizer.Transactions(table, r.Accounting.Name())
	diags.add("Normalize", d.Lines...)
	return txs, err
}

func (r *Runner) timeEntries(ctx context.Context, year int, diags *diagnostics) ([]normalize.TimeEntry, error) {
	table, err := r.TimeFeed.TimeEntries(ctx, year)
	if err != nil {
		return nil, err
	}
	if table.IsEmpty() {
		return nil, &generic.UpstreamEmptyError{Feed: r.TimeFeed.Name(), Year: year}
	}
	entries, d, err := r.Normalizer.TimeEntries(table, r.TimeFeed.Name())
	diags.add("Normalize", d.Lines...)
	return entries, err
}

// =============================================================================
// RUN LOG
// =============================================================================

func (r *Runner) run(ctx context.Context, kind generic.RunKind, year int, fn func(runID string) (int, error)) error {
	run := generic.Run{
		ID:        uuid.NewString(),
		Kind:      kind,
		Year:      year,
		Status:    generic.RunRunning,
		StartedAt: r.now(),
	}
	if err := r.Runs.StartRun(ctx, run); err != nil {
		return fmt.Errorf("record run start: %w", err)
	}
	log.Printf("[Report] Starting %s run %s for %d", kind, run.ID, year)

	n, runErr := fn(run.ID)

	result := generic.RunResult{
		Status:      generic.RunCompleted,
		Entries:     n,
		CompletedAt: r.now(),
	}
	if runErr != nil {
		result.Status = generic.RunFailed
		result.ErrorCategory = generic.Category(runErr)
		result.Error = runErr.Error()
		log.Printf("[Report] %s run %s failed (%s): %v", kind, run.ID, result.ErrorCategory, runErr)
	} else {
		log.Printf("[Report] %s run %s completed: %d entries", kind, run.ID, n)
	}

	if err := r.Runs.FinishRun(ctx, run.ID, result); err != nil {
		log.Printf("[Report] Failed to record outcome of run %s: %v", run.ID, err)
		if runErr == nil {
			return fmt.Errorf("record run outcome: %w", err)
		}
	}
	return runErr
}

func (r *Runner) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

// diagnostics collects operator messages for one run and logs them.
type diagnostics struct {
	lines []string
}

func (d *diagnostics) add(component string, lines ...string) {
	for _, line := range lines {
		log.Printf("[%s] %s", component, line)
		d.lines = append(d.lines, line)
	}
}
