package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains all runtime-level metrics (not driver-specific)
type Metrics struct {
	// Task metrics
	TaskPhase      *prometheus.GaugeVec
	TaskRestarts   *prometheus.CounterVec
	WatchdogTrips  *prometheus.CounterVec
	EntityState    *prometheus.GaugeVec
	EntityActState *prometheus.GaugeVec

	// Bus metrics
	MessagesPublished *prometheus.CounterVec
	MessagesDelivered *prometheus.CounterVec
	MessagesDropped   *prometheus.CounterVec

	// Protocol metrics
	FramesDecoded    *prometheus.CounterVec
	ChecksumFailures *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all runtime metrics
func NewMetrics() *Metrics {
	return &Metrics{
		TaskPhase: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "dune",
				Subsystem: "task",
				Name:      "phase",
				Help: "Task lifecycle phase (0=boot, 1=reservation, 2=resolution, " +
					"3=acquisition, 4=initialization, 5=main, 6=release)",
			},
			[]string{"task"},
		),

		TaskRestarts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "dune",
				Subsystem: "task",
				Name:      "restarts_total",
				Help:      "Total number of task restarts by scope",
			},
			[]string{"task", "scope"},
		),

		WatchdogTrips: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "dune",
				Subsystem: "task",
				Name:      "watchdog_trips_total",
				Help:      "Total number of watchdog expiries",
			},
			[]string{"task"},
		),

		EntityState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "dune",
				Subsystem: "entity",
				Name:      "state",
				Help:      "Entity operational state (0=boot, 1=normal, 2=error, 3=fault)",
			},
			[]string{"entity"},
		),

		EntityActState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "dune",
				Subsystem: "entity",
				Name:      "activation_state",
				Help:      "Entity activation state (0=inactive, 1=activating, 2=active, 3=deactivating)",
			},
			[]string{"entity"},
		),

		MessagesPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "dune",
				Subsystem: "bus",
				Name:      "published_total",
				Help:      "Total number of messages published to the bus",
			},
			[]string{"task", "type"},
		),

		MessagesDelivered: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "dune",
				Subsystem: "bus",
				Name:      "delivered_total",
				Help:      "Total number of messages delivered to recipient queues",
			},
			[]string{"task", "type"},
		),

		MessagesDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "dune",
				Subsystem: "bus",
				Name:      "dropped_total",
				Help:      "Total number of messages dropped on recipient queue overflow",
			},
			[]string{"task", "type"},
		),

		FramesDecoded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "dune",
				Subsystem: "protocol",
				Name:      "frames_decoded_total",
				Help:      "Total number of checksum-validated frames decoded",
			},
			[]string{"task"},
		),

		ChecksumFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "dune",
				Subsystem: "protocol",
				Name:      "checksum_failures_total",
				Help:      "Total number of frames discarded on checksum mismatch",
			},
			[]string{"task"},
		),
	}
}

// collectors returns all core metrics for registration
func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.TaskPhase,
		m.TaskRestarts,
		m.WatchdogTrips,
		m.EntityState,
		m.EntityActState,
		m.MessagesPublished,
		m.MessagesDelivered,
		m.MessagesDropped,
		m.FramesDecoded,
		m.ChecksumFailures,
	}
}
