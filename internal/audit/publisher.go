package audit

import (
	"context"
	"log/slog"
	"time"
)

// Store is an append-only audit sink.
type Store interface {
	Append(ctx context.Context, event Event) error
}

const defaultBuffer = 256

// Publisher hands events to a background Worker. Emit never blocks the
// request path: when the buffer is full the event is dropped and logged.
type Publisher struct {
	inbox  chan Event
	logger *slog.Logger
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithBuffer sets the number of events queued before Emit starts dropping.
func WithBuffer(n int) PublisherOption {
	return func(p *Publisher) {
		if n > 0 {
			p.inbox = make(chan Event, n)
		}
	}
}

// WithLogger sets the logger used for dropped events.
func WithLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func NewPublisher(opts ...PublisherOption) *Publisher {
	p := &Publisher{
		inbox:  make(chan Event, defaultBuffer),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Publisher) Emit(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case p.inbox <- event:
	default:
		p.logger.WarnContext(ctx, "audit buffer full, dropping event",
			"action", event.Action,
			"visitor_id", event.VisitorID,
		)
	}
}

// Inbox is the channel a Worker drains.
func (p *Publisher) Inbox() <-chan Event {
	return p.inbox
}
