package audit

import (
	"context"
	"log/slog"
	"time"
)

// flushTimeout bounds the drain after shutdown.
const flushTimeout = 5 * time.Second

// Worker consumes audit events from a channel and persists them.
type Worker struct {
	store  Store
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(store Store, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{store: store, inbox: inbox, logger: logger}
}

// Run appends events until ctx is done, then drains what is already queued.
// Append failures are logged and do not stop the worker.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return nil
		case event, ok := <-w.inbox:
			if !ok {
				return nil
			}
			w.append(ctx, event)
		}
	}
}

func (w *Worker) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	for {
		select {
		case event, ok := <-w.inbox:
			if !ok {
				return
			}
			w.append(ctx, event)
		default:
			return
		}
	}
}

func (w *Worker) append(ctx context.Context, event Event) {
	if err := w.store.Append(ctx, event); err != nil && w.logger != nil {
		w.logger.ErrorContext(ctx, "failed to persist audit event",
			"action", event.Action,
			"error", err,
		)
	}
}
