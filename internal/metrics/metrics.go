package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Webhook outcome labels.
const (
	OutcomeRecorded      = "recorded"
	OutcomeAlready       = "already_processed"
	OutcomeUnauthorized  = "unauthorized"
	OutcomeNotConfigured = "secret_not_configured"
	OutcomeNotFound      = "not_found"
	OutcomeError         = "error"
)

var (
	WebhookRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "topup",
		Name:      "webhook_requests_total",
		Help:      "Payment webhook deliveries by outcome.",
	}, []string{"outcome"})

	WebhookDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "topup",
		Name:      "webhook_duration_seconds",
		Help:      "Time spent handling a payment webhook delivery.",
		Buckets:   prometheus.DefBuckets,
	})

	FulfillmentDispatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "topup",
		Name:      "fulfillment_dispatch_total",
		Help:      "Fulfillment dispatcher invocations by result.",
	}, []string{"result"})

	OrderTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "topup",
		Name:      "order_transitions_total",
		Help:      "Applied order status transitions.",
	}, []string{"from", "to"})
)
