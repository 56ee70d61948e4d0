package audit

import (
	"context"
	"log/slog"
)

// Worker consumes audit events from a channel and persists them. A failed
// append is logged and skipped; audit never fails the operation it records.
type Worker struct {
	store  Store
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(store Store, inbox <-chan Event, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{store: store, inbox: inbox, logger: logger}
}

// Run blocks until ctx is cancelled, then drains whatever is already queued.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.drain(context.WithoutCancel(ctx))
			return nil
		case event := <-w.inbox:
			w.append(ctx, event)
		}
	}
}

func (w *Worker) drain(ctx context.Context) {
	for {
		select {
		case event := <-w.inbox:
			w.append(ctx, event)
		default:
			return
		}
	}
}

func (w *Worker) append(ctx context.Context, event Event) {
	if err := w.store.Append(ctx, event); err != nil {
		w.logger.WarnContext(ctx, "failed to append audit event",
			"action", event.Action,
			"visitor_id", event.VisitorID,
			"error", err,
		)
	}
}
