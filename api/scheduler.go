/*
scheduler.go - Periodic report mailer

PURPOSE:
  Runs the configured reports for the current year on a fixed interval and
  mails each workbook to the report recipients. Every mailing is a normal
  report run, so it shows up in the run log like a manual one.

DESIGN:
  - Runs a background goroutine with a configurable interval
  - Runs once immediately on start
  - A failed report is logged and skipped; the other reports still go out

CONFIGURATION:
  - Interval:   How often to mail (default: 24 hours)
  - Reports:    Kinds to run (default: commission)
  - Recipients: Addresses for every mailing
  - Enabled:    Whether the scheduler is active (default: false)

USAGE:
  scheduler := NewReportScheduler(handler, recipients)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: EmailReport endpoint (manual mailing)
  - export/mail.go: SMTP delivery
*/
package api

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/warp/bizops-engine/export"
	"github.com/warp/bizops-engine/generic"
)

// ReportScheduler mails reports on a timer.
type ReportScheduler struct {
	Handler    *Handler
	Interval   time.Duration
	Reports    []string
	Recipients []string
	Enabled    bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewReportScheduler creates a scheduler mailing the commission report daily.
func NewReportScheduler(handler *Handler, recipients []string) *ReportScheduler {
	return &ReportScheduler{
		Handler:    handler,
		Interval:   24 * time.Hour,
		Reports:    []string{string(generic.RunCommission)},
		Recipients: recipients,
		Enabled:    true,
	}
}

// Start begins the scheduler.
func (rs *ReportScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}
	if rs.ticker != nil {
		return
	}

	rs.ticker = time.NewTicker(rs.Interval)
	rs.stop = make(chan struct{})
	rs.wg.Add(1)
	go rs.run()

	log.Printf("[Scheduler] Started: %v every %v to %d recipients", rs.Reports, rs.Interval, len(rs.Recipients))
}

// Stop stops the scheduler and waits for an in-flight mailing.
func (rs *ReportScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		rs.ticker = nil
		log.Println("[Scheduler] Stopped")
	}
}

func (rs *ReportScheduler) run() {
	defer rs.wg.Done()

	rs.SendAll(context.Background())

	for {
		select {
		case <-rs.ticker.C:
			rs.SendAll(context.Background())
		case <-rs.stop:
			return
		}
	}
}

// SendAll runs and mails every scheduled report once. It returns the
// number of reports sent.
func (rs *ReportScheduler) SendAll(ctx context.Context) int {
	sent := 0
	for _, kind := range rs.Reports {
		if err := rs.send(ctx, kind); err != nil {
			log.Printf("[Scheduler] %s report not sent (%s): %v", kind, generic.Category(err), err)
			continue
		}
		sent++
	}
	log.Printf("[Scheduler] Mailed %d of %d reports", sent, len(rs.Reports))
	return sent
}

func (rs *ReportScheduler) send(ctx context.Context, kind string) error {
	if rs.Handler.Mailer == nil {
		return &generic.MissingCredentialError{Name: "SMTP_HOST"}
	}

	wb, err := rs.Handler.workbook(ctx, kind, ReportRequest{})
	if err != nil {
		return err
	}

	return rs.Handler.Mailer.Send(export.Message{
		To:             rs.Recipients,
		Subject:        fmt.Sprintf("Scheduled %s report %d", kind, wb.year),
		Body:           fmt.Sprintf("The %s report for %d is attached (run %s).", kind, wb.year, wb.runID),
		AttachmentName: wb.file,
		Attachment:     wb.data,
	})
}
