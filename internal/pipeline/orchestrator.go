// Package pipeline runs one download-and-reconcile pass end to end.
package pipeline

import (
	"context"
	"errors"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/toolstock/gls-rpa/internal/browser"
	domainpl "github.com/toolstock/gls-rpa/internal/domain/pipeline"
	"github.com/toolstock/gls-rpa/internal/report"
)

// SessionAcquirer provides the browser handle for a run
type SessionAcquirer interface {
	Acquire(ctx context.Context) (browser.Handle, error)
}

// Portal performs the steps before the export
type Portal interface {
	Login(ctx context.Context) bool
	NavigateToShipments(ctx context.Context) bool
	SearchShipments(ctx context.Context, date report.Date) bool
}

// Exporter downloads the search results. ("", nil) means no results.
type Exporter interface {
	ExportAndCapture(ctx context.Context, date report.Date) (string, error)
}

// Normalizer writes the canonical spreadsheet from a download
type Normalizer interface {
	Normalize(ctx context.Context, path string, date report.Date) bool
}

// Reconciler enriches the canonical spreadsheet in place
type Reconciler interface {
	Reconcile(ctx context.Context, date report.Date) bool
}

// Components wires the steps of a run. Portal and Exporter are built per
// run because they drive the handle acquired for it.
type Components struct {
	Acquirer    SessionAcquirer
	NewPortal   func(browser.Handle) Portal
	NewExporter func(browser.Handle) Exporter
	Normalizer  Normalizer
	Reconciler  Reconciler
	// Remove deletes the intermediate download, os.Remove when nil
	Remove func(path string) error
}

// Result is the outcome of one run
type Result struct {
	Success   bool
	NoResults bool
	// FailedAt is the last state reached before a failure
	FailedAt domainpl.State
	// Download is the staging file the export produced, if any
	Download string
	History  []domainpl.Transition
	Duration time.Duration
}

// Orchestrator sequences the pipeline steps and always releases the browser
type Orchestrator struct {
	c      Components
	logger *zap.Logger
}

// NewOrchestrator creates an orchestrator over the given components
func NewOrchestrator(c Components, logger *zap.Logger) *Orchestrator {
	if c.Remove == nil {
		c.Remove = os.Remove
	}
	return &Orchestrator{c: c, logger: logger.Named("pipeline")}
}

// run carries the state of a single pass
type run struct {
	machine domainpl.StateMachine
	result  Result
	logger  *zap.Logger
}

// advance fires trigger when ok, or fails the run otherwise
func (r *run) advance(ok bool, trigger domainpl.Trigger) bool {
	if !ok {
		r.fail()
		return false
	}
	if err := r.machine.Fire(trigger); err != nil {
		r.logger.Error("Invalid pipeline transition", zap.Error(err))
		r.fail()
		return false
	}
	return true
}

func (r *run) fail() {
	r.result.FailedAt = r.machine.State()
	if r.machine.CanFire(domainpl.TriggerFail) {
		_ = r.machine.Fire(domainpl.TriggerFail)
	}
}

// Run performs one pass for date. It never panics or returns an error:
// every failure is logged and folded into the result.
func (o *Orchestrator) Run(ctx context.Context, date report.Date) (res Result) {
	started := time.Now()
	r := &run{machine: domainpl.NewRunMachine(), logger: o.logger}

	defer func() {
		if p := recover(); p != nil {
			o.logger.Error("Pipeline panicked", zap.Any("panic", p))
			r.result.Success = false
			if !r.machine.State().IsTerminal() {
				r.fail()
			}
		}
		r.result.History = r.machine.History()
		r.result.Duration = time.Since(started)
		res = r.result
		o.logResult(date, res)
	}()

	o.logger.Info("Pipeline started", zap.Stringer("date", date))

	handle, err := o.c.Acquirer.Acquire(ctx)
	if err != nil {
		o.logger.Error("Failed to acquire browser session", zap.Error(err))
	}
	if !r.advance(err == nil, domainpl.TriggerDriverAcquired) {
		return
	}
	defer o.release(handle)

	portal := o.c.NewPortal(handle)
	if !r.advance(portal.Login(ctx), domainpl.TriggerLoggedIn) ||
		!r.advance(portal.NavigateToShipments(ctx), domainpl.TriggerNavigated) ||
		!r.advance(portal.SearchShipments(ctx, date), domainpl.TriggerSearched) {
		return
	}

	download, err := o.c.NewExporter(handle).ExportAndCapture(ctx, date)
	if err != nil {
		o.logger.Error("Export failed", zap.Error(err))
		r.fail()
		return
	}
	if download == "" {
		o.logger.Info("No shipments to export for date", zap.Stringer("date", date))
		r.result.Success = r.advance(true, domainpl.TriggerNoResults)
		r.result.NoResults = r.result.Success
		return
	}
	r.result.Download = download
	if !r.advance(true, domainpl.TriggerExported) {
		return
	}

	if !r.advance(o.c.Normalizer.Normalize(ctx, download, date), domainpl.TriggerNormalized) ||
		!r.advance(o.c.Reconciler.Reconcile(ctx, date), domainpl.TriggerReconciled) {
		return
	}

	o.cleanup(download)
	if !r.advance(true, domainpl.TriggerCleanedUp) || !r.advance(true, domainpl.TriggerFinish) {
		return
	}
	r.result.Success = true
	return
}

// cleanup deletes the intermediate download. Failure is only logged.
func (o *Orchestrator) cleanup(path string) {
	if err := o.c.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		o.logger.Warn("Failed to delete intermediate download",
			zap.String("path", path),
			zap.Error(err))
		return
	}
	o.logger.Info("Intermediate download deleted", zap.String("path", path))
}

func (o *Orchestrator) release(handle browser.Handle) {
	if err := handle.Close(); err != nil {
		o.logger.Warn("Failed to close browser session", zap.Error(err))
		return
	}
	o.logger.Debug("Browser session closed")
}

func (o *Orchestrator) logResult(date report.Date, res Result) {
	fields := []zap.Field{
		zap.Stringer("date", date),
		zap.Bool("no_results", res.NoResults),
		zap.Duration("duration", res.Duration),
		zap.Int("transitions", len(res.History)),
	}
	if res.Success {
		o.logger.Info("Pipeline finished", fields...)
		return
	}
	o.logger.Error("Pipeline failed", append(fields, zap.Stringer("failed_at", res.FailedAt))...)
}
