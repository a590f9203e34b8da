// Package worker keeps the spreadsheet report tabs in step with the store.
// It consumes domain events and never writes to the store.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"sicof/internal/core"
	"sicof/internal/events"
	"sicof/internal/log"
	"sicof/internal/metrics"
	"sicof/internal/reports"
	"sicof/internal/sheets"
	"sicof/internal/storage"

	"golang.org/x/sync/errgroup"
)

type ReportWorker struct {
	store  storage.DocumentStore
	writer sheets.ReportWriter
	logger *log.Logger
	now    func() time.Time

	mu       sync.Mutex
	lastSync time.Time
}

func NewReportWorker(store storage.DocumentStore, writer sheets.ReportWriter, logger *log.Logger) *ReportWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &ReportWorker{
		store:  store,
		writer: writer,
		logger: logger.WithComponent(log.ComponentWorker),
		now:    time.Now,
	}
}

// HandleEvent rewrites every report tab unless the event cannot change a
// report or a sync that started after it already covered it. A returned
// error makes the consumer redeliver the event.
func (w *ReportWorker) HandleEvent(ctx context.Context, e events.Event) error {
	if !e.AffectsReports() {
		w.logger.DebugContext(ctx, "Event does not affect reports", log.FieldEventType, e.Type)
		return nil
	}
	w.mu.Lock()
	covered := w.lastSync.After(e.OccurredAt)
	w.mu.Unlock()
	if covered {
		w.logger.DebugContext(ctx, "Event already reflected by a later sync",
			log.FieldEventType, e.Type, "entity_id", e.EntityID)
		return nil
	}

	w.logger.InfoContext(ctx, "Processing event",
		log.FieldEventType, e.Type, "entity_id", e.EntityID, "event_id", e.ID)
	return w.SyncAll(ctx)
}

// SyncAll reads the store once and rewrites every report tab. Tabs that fail
// do not stop the others; their errors are joined.
func (w *ReportWorker) SyncAll(ctx context.Context) error {
	started := w.now()

	var (
		credits  []core.Credit
		expenses []core.Expense
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		credits, err = storage.ListDocs[core.Credit](gctx, w.store, storage.Credits)
		return err
	})
	g.Go(func() (err error) {
		expenses, err = storage.ListDocs[core.Expense](gctx, w.store, storage.Expenses)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}

	var errs []error
	for _, name := range reports.Names {
		err := w.syncReport(ctx, name, credits, expenses)
		metrics.ReportSyncs.WithLabelValues(name, metrics.Result(err)).Inc()
		if err != nil {
			w.logger.ErrorContext(ctx, "Failed to sync report",
				log.NewFields().With(log.FieldReport, name).WithError(err, log.ErrorTypeNetwork).ToSlice()...)
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	w.mu.Lock()
	if started.After(w.lastSync) {
		w.lastSync = started
	}
	w.mu.Unlock()
	w.logger.InfoContext(ctx, "Reports synced",
		"reports", len(reports.Names), "credits", len(credits), "expenses", len(expenses))
	return nil
}

func (w *ReportWorker) syncReport(ctx context.Context, name string, credits []core.Credit, expenses []core.Expense) error {
	tbl, err := reports.Build(name, credits, expenses, 0)
	if err != nil {
		return err
	}
	return w.writer.WriteReport(ctx, name, tbl.Records)
}

// StartupSync brings the tabs up to date before consuming, so events lost
// while the worker was down are covered.
func (w *ReportWorker) StartupSync(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Running startup report sync")
	if err := w.SyncAll(ctx); err != nil {
		return fmt.Errorf("startup sync: %w", err)
	}
	return nil
}
