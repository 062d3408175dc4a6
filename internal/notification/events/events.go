// Package events publishes notifications as JSON domain events to kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"parish/internal/notification"
	"parish/internal/platform/config"
	"parish/pkg/requestcontext"
)

// Event is the record value written to the topic.
type Event struct {
	Type        notification.Kind `json:"type"`
	RecipientID string            `json:"recipient_id"`
	Subject     string            `json:"subject"`
	Data        map[string]string `json:"data,omitempty"`
	RequestID   string            `json:"request_id,omitempty"`
	OccurredAt  time.Time         `json:"occurred_at"`
}

// producer is the part of *kgo.Client the publisher needs.
type producer interface {
	Produce(ctx context.Context, r *kgo.Record, promise func(*kgo.Record, error))
	Flush(ctx context.Context) error
	Close()
}

// Publisher produces one record per notification, keyed by recipient so a
// user's events stay ordered within a partition.
type Publisher struct {
	client producer
	topic  string
	logger *slog.Logger
}

// NewPublisher connects to the configured brokers. It returns nil when no
// brokers are configured.
func NewPublisher(cfg config.Kafka, logger *slog.Logger) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, nil
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.ProducerLinger(50*time.Millisecond),
		kgo.RecordRetries(5),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &Publisher{client: client, topic: cfg.Topic, logger: logger}, nil
}

func (p *Publisher) Name() string { return "events" }

// Deliver enqueues the record. Broker failures surface through the produce
// callback and are only logged.
func (p *Publisher) Deliver(ctx context.Context, n notification.Notification) error {
	value, err := json.Marshal(Event{
		Type:        n.Kind,
		RecipientID: n.RecipientID.String(),
		Subject:     n.Subject,
		Data:        n.Data,
		RequestID:   requestcontext.RequestID(ctx),
		OccurredAt:  requestcontext.Now(ctx),
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(n.RecipientID.String()),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "type", Value: []byte(n.Kind)},
		},
	}
	// The request context is cancelled once the response is written.
	p.client.Produce(context.WithoutCancel(ctx), record, func(r *kgo.Record, err error) {
		if err != nil && p.logger != nil {
			p.logger.Warn("failed to publish event",
				"topic", r.Topic,
				"type", string(n.Kind),
				"error", err,
			)
		}
	})
	return nil
}

// Close flushes buffered records and disconnects.
func (p *Publisher) Close(ctx context.Context) error {
	defer p.client.Close()
	if err := p.client.Flush(ctx); err != nil {
		return fmt.Errorf("flush kafka producer: %w", err)
	}
	return nil
}
