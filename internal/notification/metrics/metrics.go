package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts notification deliveries per channel.
type Metrics struct {
	Delivered *prometheus.CounterVec
	Failures  *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Delivered: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "parish_notifications_delivered_total",
			Help: "Notifications handed to a channel without error, by channel and kind",
		}, []string{"channel", "kind"}),
		Failures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "parish_notification_failures_total",
			Help: "Notification delivery failures, by channel",
		}, []string{"channel"}),
	}
}

func (m *Metrics) IncrementDelivered(channel, kind string) {
	m.Delivered.WithLabelValues(channel, kind).Inc()
}

func (m *Metrics) IncrementFailure(channel string) {
	m.Failures.WithLabelValues(channel).Inc()
}
