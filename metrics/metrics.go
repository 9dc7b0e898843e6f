// Package metrics defines the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teetime_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "teetime_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "route"},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teetime_api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"limiter"},
	)

	// Realtime chat relay
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "teetime_ws_connections",
			Help: "Current number of open chat relay connections",
		},
	)

	WSMessagesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "teetime_ws_messages_dropped_total",
			Help: "Messages dropped because a client's send buffer was full",
		},
	)

	// Domain events
	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teetime_notifications_created_total",
			Help: "Inbox notifications created, by type",
		},
		[]string{"type"},
	)

	EmailsQueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teetime_emails_queued_total",
			Help: "Emails handed to the mail queue, by category and result",
		},
		[]string{"category", "result"},
	)
)
