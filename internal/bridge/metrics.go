package bridge

import "github.com/prometheus/client_golang/prometheus"

var (
	commandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cloudbridge_commands_total",
			Help: "Ecosystem commands handled, by platform, action and outcome",
		},
		[]string{"platform", "action", "outcome"},
	)

	syncsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cloudbridge_syncs_total",
			Help: "Device status syncs, by trigger and outcome",
		},
		[]string{"trigger", "outcome"},
	)

	devicesRegistered = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cloudbridge_devices_registered",
		Help: "Cloud devices currently held in the registry",
	})

	eventsDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cloudbridge_events_dropped_total",
		Help: "Cloud events dropped because a bus subscriber was full",
	})
)

// ObserveDroppedEvent counts one dropped cloud event. Assign it to the
// event bus OnDrop hook before publishing starts.
func ObserveDroppedEvent() {
	eventsDropped.Inc()
}

// MetricsCollectors returns collectors for the orchestrator.
func MetricsCollectors() []prometheus.Collector {
	return []prometheus.Collector{commandsTotal, syncsTotal, devicesRegistered, eventsDropped}
}
