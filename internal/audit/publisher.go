package audit

import (
	"context"
	"log/slog"

	"parish/pkg/requestcontext"
)

// Publisher captures structured audit events. With a channel attached it
// hands events to a Worker; otherwise it appends synchronously.
type Publisher struct {
	store  Store
	queue  chan<- Event
	logger *slog.Logger
}

type PublisherOption func(*Publisher)

// WithQueue sends events to queue instead of the store. A full queue falls
// back to a synchronous append so events are never dropped.
func WithQueue(queue chan<- Event) PublisherOption {
	return func(p *Publisher) {
		p.queue = queue
	}
}

func WithPublisherLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func NewPublisher(store Store, opts ...PublisherOption) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit fills request metadata and timestamp, then records the event.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.ClientIP == "" {
		event.ClientIP = requestcontext.ClientIP(ctx)
	}
	if event.Device == "" {
		event.Device = requestcontext.Device(ctx)
	}
	if event.ActorID == "" {
		if actor := requestcontext.UserID(ctx); !actor.IsNil() {
			event.ActorID = actor.String()
		}
	}

	if p.queue != nil {
		select {
		case p.queue <- event:
			return nil
		default:
			if p.logger != nil {
				p.logger.WarnContext(ctx, "audit queue full, appending synchronously", "action", event.Action)
			}
		}
	}
	return p.store.Append(ctx, event)
}

// List returns events about or by userID.
func (p *Publisher) List(ctx context.Context, userID string) ([]Event, error) {
	return p.store.ListByUser(ctx, userID)
}
