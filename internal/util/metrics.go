package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "events_published_total",
		Help: "Total number of events accepted by the bus",
	}, []string{"subject"})

	EventsPublishFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "events_publish_failed_total",
		Help: "Total number of events the bus rejected",
	}, []string{"subject"})

	EventsReceivedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "events_received_total",
		Help: "Total number of event deliveries, redeliveries included",
	}, []string{"subject", "queue_group"})

	EventsAckedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "events_acked_total",
		Help: "Total number of acknowledged events",
	}, []string{"subject", "queue_group"})

	EventsRedeliveredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "events_redelivered_total",
		Help: "Total number of redeliveries after a failed or unacknowledged delivery",
	}, []string{"subject", "queue_group"})

	EventHandlerFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "event_handler_failures_total",
		Help: "Total number of failed deliveries",
	}, []string{"subject", "reason"})

	EventHandlerLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "event_handler_latency_seconds",
		Help:    "Latency of a single delivery attempt",
		Buckets: prometheus.DefBuckets,
	}, []string{"subject"})

	VersionConflictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "version_conflicts_total",
		Help: "Total number of rejected writes due to a stale version",
	}, []string{"entity"})

	TicketsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tickets_created_total",
		Help: "Total number of tickets created",
	})

	TicketsUpdatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tickets_updated_total",
		Help: "Total number of ticket updates",
	})

	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Total number of orders created",
	})

	OrdersRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_rejected_total",
		Help: "Total number of rejected order attempts",
	}, []string{"reason"})

	OrdersCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_cancelled_total",
		Help: "Total number of cancelled orders",
	})

	OrdersExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_expired_total",
		Help: "Total number of orders cancelled by expiration",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
