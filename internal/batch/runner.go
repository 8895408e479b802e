package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/samvad-hq/fatoora-client/internal/app"
	"github.com/samvad-hq/fatoora-client/internal/domain"
	"github.com/samvad-hq/fatoora-client/internal/logger"
	"github.com/samvad-hq/fatoora-client/pkg/zatca"
)

// Submitter is the part of app.Service the runner drives.
type Submitter interface {
	Report(ctx context.Context, inv app.Invoice, clearanceStatus bool) (*zatca.ReportingResponse, error)
	Clear(ctx context.Context, inv app.Invoice, clearanceStatus bool) (*zatca.ClearanceResponse, error)
	CheckCompliance(ctx context.Context, inv app.Invoice) (*zatca.ComplianceResponse, error)
	Submission(op domain.Operation, uuid string) (domain.Submission, bool, error)
}

// Summary counts the outcome of one run.
type Summary struct {
	Submitted int `json:"submitted"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// Runner submits manifest entries one at a time.
type Runner struct {
	submitter Submitter
	log       logger.Logger
	sleep     func(context.Context, time.Duration) error
}

// NewRunner wires a runner around the submitter.
func NewRunner(sub Submitter, log logger.Logger) *Runner {
	if log == nil {
		log = &logger.NopLogger{}
	}
	return &Runner{submitter: sub, log: log, sleep: sleepCtx}
}

// Run submits every entry of m. Entries the ledger already holds as accepted
// for the same operation are skipped, so a failed run can be repeated.
func (r *Runner) Run(ctx context.Context, m Manifest) (Summary, error) {
	if r == nil || r.submitter == nil {
		return Summary{}, fmt.Errorf("batch runner is not initialized")
	}
	if len(m.Invoices) == 0 {
		return Summary{}, fmt.Errorf("no invoices to submit")
	}

	var (
		summary Summary
		errs    []error
	)
	for i, e := range m.Invoices {
		if i > 0 {
			if err := r.sleep(ctx, m.Delay()); err != nil {
				errs = append(errs, err)
				break
			}
		}

		skipped, err := r.runEntry(ctx, e)
		switch {
		case err != nil:
			summary.Failed++
			errs = append(errs, err)
			r.log.ErrorObj("invoice submission failed", "batch_error", map[string]any{
				"uuid":      e.UUID,
				"operation": e.Operation,
				"error":     err.Error(),
			})
		case skipped:
			summary.Skipped++
		default:
			summary.Submitted++
		}
	}

	r.log.InfoObj("batch completed", "batch_summary", summary)
	return summary, errors.Join(errs...)
}

func (r *Runner) runEntry(ctx context.Context, e Entry) (bool, error) {
	prev, ok, err := r.submitter.Submission(e.Operation, e.UUID)
	if err != nil {
		return false, fmt.Errorf("check ledger for %s: %w", e.UUID, err)
	}
	if ok && !prev.Rejected {
		r.log.DebugObj("invoice already accepted", "batch_skip", map[string]any{
			"uuid":      e.UUID,
			"operation": e.Operation,
			"status":    prev.Status,
		})
		return true, nil
	}

	raw, err := os.ReadFile(e.Path)
	if err != nil {
		return false, fmt.Errorf("read invoice %s: %w", e.UUID, err)
	}
	inv := app.Invoice{SignedXML: raw, Hash: e.Hash, UUID: e.UUID}

	switch e.Operation {
	case domain.OperationClearance:
		_, err = r.submitter.Clear(ctx, inv, *e.ClearanceStatus)
	case domain.OperationCompliance:
		_, err = r.submitter.CheckCompliance(ctx, inv)
	default:
		_, err = r.submitter.Report(ctx, inv, *e.ClearanceStatus)
	}
	if err != nil {
		return false, fmt.Errorf("%s %s: %w", e.Operation, e.UUID, err)
	}
	return false, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
