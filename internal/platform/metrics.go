package platform

import "github.com/prometheus/client_golang/prometheus"

var publishTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "cloudbridge_platform_publish_total",
		Help: "Adapter documents published by ecosystem, kind (register, state) and outcome",
	},
	[]string{"platform", "kind", "outcome"},
)

func observePublish(platform, kind string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	publishTotal.WithLabelValues(platform, kind, outcome).Inc()
}

// MetricsCollectors returns collectors for the platform adapters.
func MetricsCollectors() []prometheus.Collector {
	return []prometheus.Collector{publishTotal}
}
