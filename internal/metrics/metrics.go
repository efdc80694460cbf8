package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Inbound webhook metrics
	WebhooksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "giftcard_gateway_webhooks_total",
			Help: "Total number of webhooks received, by endpoint and result",
		},
		[]string{"endpoint", "result"},
	)

	SignatureFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "giftcard_gateway_signature_failures_total",
			Help: "Total number of webhooks rejected for a missing or invalid signature",
		},
	)

	// Idempotency metrics
	DuplicatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "giftcard_gateway_duplicates_total",
			Help: "Total number of deliveries short-circuited by the idempotency guard",
		},
		[]string{"kind"},
	)

	RecordsPurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "giftcard_gateway_idempotency_records_purged_total",
			Help: "Total number of idempotency records removed after retention",
		},
	)

	// Fulfillment dispatch metrics
	DispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "giftcard_gateway_dispatch_duration_seconds",
			Help:    "Duration of fulfillment dispatch calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"action"},
	)

	DispatchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "giftcard_gateway_dispatch_errors_total",
			Help: "Total number of failed fulfillment dispatch calls",
		},
		[]string{"action"},
	)

	// Event notification metrics
	PublishErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "giftcard_gateway_publish_errors_total",
			Help: "Total number of processed-event notifications that failed to publish",
		},
	)
)
