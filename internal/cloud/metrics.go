package cloud

import "github.com/prometheus/client_golang/prometheus"

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cloudbridge_cloud_requests_total",
			Help: "Signed device cloud requests by HTTP method and outcome",
		},
		[]string{"method", "outcome"},
	)
	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cloudbridge_cloud_request_duration_seconds",
			Help:    "Device cloud request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
	tokenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cloudbridge_cloud_token_total",
			Help: "Token acquisitions by kind (authenticate, refresh) and outcome",
		},
		[]string{"kind", "outcome"},
	)
	tokenExpiry = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cloudbridge_cloud_token_expiry_timestamp_seconds",
			Help: "Unix time at which the current access token expires",
		},
	)
	webhookEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cloudbridge_cloud_webhook_events_total",
			Help: "Events emitted from webhook deliveries by kind",
		},
		[]string{"kind"},
	)
)

// Outcome label values.
const (
	outcomeOK    = "ok"
	outcomeError = "error"
)

// MetricsCollectors returns collectors for the device cloud client.
func MetricsCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		requestsTotal,
		requestDuration,
		tokenTotal,
		tokenExpiry,
		webhookEvents,
	}
}
