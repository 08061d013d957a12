package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes application-level instruments for the credit pipeline.
type Metrics struct {
	CreditsConsumed  *prometheus.CounterVec
	CreditsGranted   *prometheus.CounterVec
	ConsumeRejected  *prometheus.CounterVec
	Conversions      *prometheus.CounterVec
	SweepClients     *prometheus.CounterVec
	SweepDuration    prometheus.Histogram
	WebhookDelivered *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CreditsConsumed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "creditcore_credits_consumed_total",
			Help: "Credits debited, labeled by module and credit type.",
		}, []string{"module", "credit_type"}),
		CreditsGranted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "creditcore_credits_granted_total",
			Help: "Credits granted, labeled by module, credit type and reason.",
		}, []string{"module", "credit_type", "reason"}),
		ConsumeRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "creditcore_consume_rejected_total",
			Help: "Consumption attempts rejected, labeled by cause.",
		}, []string{"cause"}),
		Conversions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "creditcore_conversions_total",
			Help: "Lead conversions, labeled by outcome.",
		}, []string{"outcome"}),
		SweepClients: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "creditcore_sweep_clients_total",
			Help: "Clients handled by the daily sweep, labeled by result.",
		}, []string{"result"}),
		SweepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "creditcore_sweep_duration_seconds",
			Help:    "Wall time of a full daily sweep.",
			Buckets: prometheus.DefBuckets,
		}),
		WebhookDelivered: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "creditcore_webhook_deliveries_total",
			Help: "Conversion webhook deliveries, labeled by event and status.",
		}, []string{"event", "status"}),
	}
}
