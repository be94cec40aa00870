package metrics

import (
	"github.com/Dhoini/Donation-platform/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// WebhookMetrics интерфейс для метрик обработки вебхуков и пожертвований
type WebhookMetrics interface {
	IncEventProcessed(eventType, outcome string)
	ObserveDonationAmount(amount float64, currency, kind string)
}

type webhookMetrics struct {
	log             *logger.Logger
	eventsProcessed *prometheus.CounterVec
	donationAmount  *prometheus.HistogramVec
}

// NewWebhookMetrics создает новые метрики вебхуков
func NewWebhookMetrics(registry *prometheus.Registry, log *logger.Logger) WebhookMetrics {
	eventsProcessed := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "stripe_webhook_events_total",
			Help: "The total number of processed Stripe webhook events",
		},
		[]string{"event_type", "outcome"},
	)

	donationAmount := promauto.With(registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "donation_amount",
			Help:    "Distribution of successful donation amounts in major currency units",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
		},
		[]string{"currency", "kind"},
	)

	return &webhookMetrics{
		log:             log,
		eventsProcessed: eventsProcessed,
		donationAmount:  donationAmount,
	}
}

// IncEventProcessed увеличивает счетчик обработанных событий
func (m *webhookMetrics) IncEventProcessed(eventType, outcome string) {
	m.eventsProcessed.WithLabelValues(eventType, outcome).Inc()
}

// ObserveDonationAmount записывает сумму успешного пожертвования
func (m *webhookMetrics) ObserveDonationAmount(amount float64, currency, kind string) {
	m.donationAmount.WithLabelValues(currency, kind).Observe(amount)
}
