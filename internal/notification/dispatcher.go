package notification

import (
	"context"
	"log/slog"

	"parish/internal/notification/metrics"
	"parish/pkg/requestcontext"
)

// Channel delivers a notification over one medium.
type Channel interface {
	Name() string
	Deliver(ctx context.Context, n Notification) error
}

// Dispatcher fans a notification out to every configured channel. Channel
// failures are logged and counted, never returned.
type Dispatcher struct {
	channels []Channel
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Dispatcher)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// WithChannel adds a delivery channel. Nil channels are ignored.
func WithChannel(ch Channel) Option {
	return func(d *Dispatcher) {
		if ch != nil {
			d.channels = append(d.channels, ch)
		}
	}
}

func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Notify delivers n on every channel in order.
func (d *Dispatcher) Notify(ctx context.Context, n Notification) {
	for _, ch := range d.channels {
		if err := ch.Deliver(ctx, n); err != nil {
			if d.metrics != nil {
				d.metrics.IncrementFailure(ch.Name())
			}
			if d.logger != nil {
				d.logger.WarnContext(ctx, "notification delivery failed",
					"channel", ch.Name(),
					"kind", string(n.Kind),
					"recipient_id", n.RecipientID.String(),
					"request_id", requestcontext.RequestID(ctx),
					"error", err,
				)
			}
			continue
		}
		if d.metrics != nil {
			d.metrics.IncrementDelivered(ch.Name(), string(n.Kind))
		}
	}
}
