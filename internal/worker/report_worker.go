// Package worker keeps the exported yearly summaries in step with the ledger.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"hesabdar/internal/amqp"
	"hesabdar/internal/jalali"
	"hesabdar/internal/ledger"
	"hesabdar/internal/report"
)

// SeriesSource computes yearly series; *report.Service implements it.
type SeriesSource interface {
	MonthlySeries(ctx context.Context, tenantID int64, year int) (report.Series, error)
	Today() jalali.Date
}

// Exporter writes one tenant's yearly series somewhere outside the service.
type Exporter interface {
	ExportYear(ctx context.Context, tenantID int64, s report.Series) error
}

// ReportSyncWorker re-exports a tenant's Jalali-year summary whenever one of
// its records changes, and periodically exports the current year for every
// tenant as a backstop for lost messages.
type ReportSyncWorker struct {
	reports     SeriesSource
	tenants     ledger.TenantLister
	exporter    Exporter
	concurrency int

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewReportSyncWorker(reports SeriesSource, tenants ledger.TenantLister, exporter Exporter, concurrency int) *ReportSyncWorker {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &ReportSyncWorker{
		reports:     reports,
		tenants:     tenants,
		exporter:    exporter,
		concurrency: concurrency,
	}
}

// HandleRecordChanged exports the summary of every Jalali year the change
// touches: one for creates and deletes, up to two when an update moved the
// record across Nowruz. Undated records do not affect any summary.
func (w *ReportSyncWorker) HandleRecordChanged(ctx context.Context, msg *amqp.RecordChangedMessage) error {
	years, err := msg.JalaliYears()
	if err != nil {
		return fmt.Errorf("record %s/%d: %w", msg.Kind, msg.RecordID, err)
	}
	if len(years) == 0 {
		slog.DebugContext(ctx, "Undated record changed, nothing to export",
			"tenant_id", msg.TenantID, "kind", msg.Kind, "record_id", msg.RecordID)
		return nil
	}

	for _, year := range years {
		slog.InfoContext(ctx, "Processing record change",
			"message_id", msg.MessageID,
			"action", msg.Action,
			"tenant_id", msg.TenantID,
			"year", year)
		if err := w.exportYear(ctx, msg.TenantID, year); err != nil {
			return err
		}
	}
	return nil
}

func (w *ReportSyncWorker) exportYear(ctx context.Context, tenantID int64, year int) error {
	series, err := w.reports.MonthlySeries(ctx, tenantID, year)
	if err != nil {
		return fmt.Errorf("monthly series for tenant %d: %w", tenantID, err)
	}
	if err := w.exporter.ExportYear(ctx, tenantID, series); err != nil {
		return fmt.Errorf("export tenant %d year %d: %w", tenantID, series.Period.Year, err)
	}
	return nil
}

// ExportAll exports the current Jalali year for every tenant, at most
// concurrency tenants at a time. One tenant failing does not stop the
// others; the returned error counts the failures.
func (w *ReportSyncWorker) ExportAll(ctx context.Context) error {
	tenants, err := w.tenants.ListTenants(ctx)
	if err != nil {
		return fmt.Errorf("list tenants: %w", err)
	}
	if len(tenants) == 0 {
		slog.InfoContext(ctx, "No tenants to export")
		return nil
	}

	year := w.reports.Today().Year
	var failed atomic.Int32
	var g errgroup.Group
	g.SetLimit(w.concurrency)
	for _, id := range tenants {
		g.Go(func() error {
			if err := w.exportYear(ctx, id, year); err != nil {
				failed.Add(1)
				slog.ErrorContext(ctx, "Tenant export failed", "tenant_id", id, "year", year, "error", err)
				return err
			}
			return nil
		})
	}
	firstErr := g.Wait()

	slog.InfoContext(ctx, "Periodic export completed",
		"year", year,
		"tenants", len(tenants),
		"failed", failed.Load())
	if firstErr != nil {
		return fmt.Errorf("export failed for %d of %d tenants: %w", failed.Load(), len(tenants), firstErr)
	}
	return nil
}

// Start runs ExportAll now and then every interval until Stop or ctx is done.
func (w *ReportSyncWorker) Start(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return errors.New("export interval must be positive")
	}
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return errors.New("report sync worker is already running")
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	stopCh, doneCh := w.stopCh, w.doneCh
	w.mu.Unlock()

	go w.runLoop(ctx, interval, stopCh, doneCh)
	slog.InfoContext(ctx, "Report sync worker started", "interval", interval, "concurrency", w.concurrency)
	return nil
}

// Stop ends the periodic loop and waits for the export in flight.
func (w *ReportSyncWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	stopCh, doneCh := w.stopCh, w.doneCh
	w.mu.Unlock()

	close(stopCh)
	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Report sync worker stopped gracefully")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Report sync worker stop timed out")
		return ctx.Err()
	}
}

func (w *ReportSyncWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *ReportSyncWorker) runLoop(ctx context.Context, interval time.Duration, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.runOnce(ctx)
	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *ReportSyncWorker) runOnce(ctx context.Context) {
	if err := w.ExportAll(ctx); err != nil {
		slog.ErrorContext(ctx, "Periodic export failed", "error", err)
	}
}
