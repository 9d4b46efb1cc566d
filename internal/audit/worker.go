package audit

import (
	"context"
	"log/slog"
	"sync"

	"backoffice/internal/model"
)

// Worker persists audit rows from a buffered channel on its own goroutine.
type Worker struct {
	rows   chan *model.AuditLog
	store  Store
	logger *slog.Logger
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func NewWorker(store Store, bufferSize int, logger *slog.Logger) *Worker {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		rows:   make(chan *model.AuditLog, bufferSize),
		store:  store,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (w *Worker) Start() {
	w.wg.Go(func() {
		for {
			select {
			case <-w.ctx.Done():
				w.logger.Info("draining audit entries before shutdown", "remaining", len(w.rows))
				for len(w.rows) > 0 {
					w.save(context.Background(), <-w.rows)
				}
				return
			case row := <-w.rows:
				w.save(w.ctx, row)
			}
		}
	})
}

// Log enqueues the entry, dropping it when the buffer is full.
func (w *Worker) Log(_ context.Context, e Entry) {
	row := toRow(e)
	select {
	case w.rows <- row:
	default:
		w.logger.Warn("audit buffer full, dropping entry", "action", e.Action, "entity_kind", e.EntityKind, "entity_id", e.EntityID)
	}
}

// Shutdown stops the worker after flushing what is already queued.
func (w *Worker) Shutdown() {
	w.cancel()
	w.wg.Wait()
}

func (w *Worker) save(ctx context.Context, row *model.AuditLog) {
	if err := w.store.Log(ctx, row); err != nil {
		w.logger.Error("failed to save audit entry", "error", err, "action", row.Action, "entity_id", row.EntityID)
	}
}
