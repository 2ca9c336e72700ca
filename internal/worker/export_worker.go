// Package worker runs the background summary-export pipeline: it consumes
// export requests from the broker, coalesces them per user and year, and
// periodically pushes rebuilt summaries to the configured exporter.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"fliptrack/internal/amqp"
	"fliptrack/internal/export"
	"fliptrack/internal/log"
)

// SummarySource computes a full-year summary for one user.
type SummarySource interface {
	YearSummary(ctx context.Context, userID int64, year int) (export.YearSummary, error)
}

type exportKey struct {
	UserID int64
	Year   int
}

// ExportWorker coalesces export requests and flushes them on an interval.
// A burst of ledger writes for the same user and year produces a single
// export instead of one per write.
type ExportWorker struct {
	source   SummarySource
	exporter export.SummaryExporter
	interval time.Duration

	mu      sync.Mutex
	pending map[exportKey]struct{}

	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewExportWorker(source SummarySource, exporter export.SummaryExporter, interval time.Duration) *ExportWorker {
	return &ExportWorker{
		source:   source,
		exporter: exporter,
		interval: interval,
		pending:  make(map[exportKey]struct{}),
	}
}

// Start begins the flush loop. Returns an error if already running.
func (w *ExportWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("export worker is already running")
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	go w.runLoop(ctx)

	slog.InfoContext(ctx, "Export worker started", "flush_interval", w.interval)
	return nil
}

// Stop flushes outstanding work and stops the loop.
func (w *ExportWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	close(w.stopCh)

	select {
	case <-w.doneCh:
		slog.InfoContext(ctx, "Export worker stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Export worker stop timed out")
		return ctx.Err()
	}

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()
	return nil
}

func (w *ExportWorker) runLoop(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.flush(ctx)
		case <-w.stopCh:
			// Final flush so acked requests are not lost on shutdown.
			w.flush(ctx)
			return
		case <-ctx.Done():
			return
		}
	}
}

// HandleExportRequest marks a user-year pair dirty. It is the broker
// consume callback. Marking cannot fail, so the delivery is always acked;
// durability past the ack comes from the final flush on shutdown.
func (w *ExportWorker) HandleExportRequest(ctx context.Context, msg *amqp.SummaryExportMessage) error {
	w.mu.Lock()
	w.pending[exportKey{UserID: msg.UserID, Year: msg.Year}] = struct{}{}
	n := len(w.pending)
	w.mu.Unlock()

	slog.DebugContext(ctx, "Export request queued",
		log.FieldUserID, msg.UserID,
		log.FieldYear, msg.Year,
		"pending", n)
	return nil
}

// flush exports every pending pair. Failed pairs are re-marked so the next
// tick retries them.
func (w *ExportWorker) flush(ctx context.Context) {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	batch := w.pending
	w.pending = make(map[exportKey]struct{})
	w.mu.Unlock()

	for key := range batch {
		if err := w.exportOne(ctx, key); err != nil {
			slog.ErrorContext(ctx, "Summary export failed",
				log.FieldUserID, key.UserID,
				log.FieldYear, key.Year,
				log.FieldError, err)
			w.mu.Lock()
			w.pending[key] = struct{}{}
			w.mu.Unlock()
			continue
		}
		slog.InfoContext(ctx, "Summary exported",
			log.FieldUserID, key.UserID,
			log.FieldYear, key.Year)
	}
}

func (w *ExportWorker) exportOne(ctx context.Context, key exportKey) error {
	summary, err := w.source.YearSummary(ctx, key.UserID, key.Year)
	if err != nil {
		return fmt.Errorf("build summary: %w", err)
	}
	if err := w.exporter.ExportYearSummary(ctx, summary); err != nil {
		return fmt.Errorf("export summary: %w", err)
	}
	return nil
}
