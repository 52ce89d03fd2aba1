// Package metrics holds the Prometheus instruments for the contract pipeline
// and the webhook reconciler.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups all instruments so components take one dependency instead of
// registering collectors ad hoc.
type Metrics struct {
	ContractsGenerated  prometheus.Counter
	PipelineFailures    *prometheus.CounterVec
	WebhookEvents       *prometheus.CounterVec
	WebhookUnrecognized prometheus.Counter
}

// New registers all instruments on the default registerer.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers all instruments on the given registerer. Tests pass a
// fresh registry to avoid duplicate-registration panics.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ContractsGenerated: factory.NewCounter(prometheus.CounterOpts{
			Name: "rentalsign_contracts_generated_total",
			Help: "Contracts successfully submitted for signing.",
		}),
		PipelineFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rentalsign_pipeline_failures_total",
			Help: "Generation pipeline failures by stage.",
		}, []string{"stage"}),
		WebhookEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rentalsign_webhook_events_total",
			Help: "Envelope webhook events processed by status token.",
		}, []string{"status"}),
		WebhookUnrecognized: factory.NewCounter(prometheus.CounterOpts{
			Name: "rentalsign_webhook_unrecognized_status_total",
			Help: "Webhook events carrying a status token this service does not model.",
		}),
	}
}
