package metric

import (
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/AndreGCGuerra/dune/errors"
)

// MetricsRegistrar defines the interface for registering task-specific metrics
type MetricsRegistrar interface {
	RegisterCounter(taskName, metricName string, counter prometheus.Counter) error
	RegisterGauge(taskName, metricName string, gauge prometheus.Gauge) error
	RegisterCounterVec(taskName, metricName string, counterVec *prometheus.CounterVec) error
	RegisterGaugeVec(taskName, metricName string, gaugeVec *prometheus.GaugeVec) error
	Unregister(taskName, metricName string) bool
}

// MetricsRegistry manages the registration and lifecycle of metrics
type MetricsRegistry struct {
	prometheusRegistry *prometheus.Registry
	Metrics            *Metrics
	registeredMetrics  map[string]prometheus.Collector
	mu                 sync.RWMutex
}

// NewMetricsRegistry creates a new metrics registry with core runtime metrics
func NewMetricsRegistry() *MetricsRegistry {
	prometheusRegistry := prometheus.NewRegistry()

	registry := &MetricsRegistry{
		prometheusRegistry: prometheusRegistry,
		registeredMetrics:  make(map[string]prometheus.Collector),
	}

	registry.Metrics = NewMetrics()
	for _, c := range registry.Metrics.collectors() {
		prometheusRegistry.MustRegister(c)
	}

	// Go runtime metrics
	prometheusRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return registry
}

// PrometheusRegistry returns the underlying Prometheus registry
func (r *MetricsRegistry) PrometheusRegistry() *prometheus.Registry {
	return r.prometheusRegistry
}

// CoreMetrics returns the core runtime metrics
func (r *MetricsRegistry) CoreMetrics() *Metrics {
	return r.Metrics
}

// RegisterCounter registers a counter metric for a task
func (r *MetricsRegistry) RegisterCounter(taskName, metricName string, counter prometheus.Counter) error {
	return r.register(taskName, metricName, counter, "RegisterCounter")
}

// RegisterGauge registers a gauge metric for a task
func (r *MetricsRegistry) RegisterGauge(taskName, metricName string, gauge prometheus.Gauge) error {
	return r.register(taskName, metricName, gauge, "RegisterGauge")
}

// RegisterCounterVec registers a counter vector metric for a task
func (r *MetricsRegistry) RegisterCounterVec(taskName, metricName string, counterVec *prometheus.CounterVec) error {
	return r.register(taskName, metricName, counterVec, "RegisterCounterVec")
}

// RegisterGaugeVec registers a gauge vector metric for a task
func (r *MetricsRegistry) RegisterGaugeVec(taskName, metricName string, gaugeVec *prometheus.GaugeVec) error {
	return r.register(taskName, metricName, gaugeVec, "RegisterGaugeVec")
}

func (r *MetricsRegistry) register(taskName, metricName string, c prometheus.Collector, op string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := fmt.Sprintf("%s.%s", taskName, metricName)

	if _, exists := r.registeredMetrics[key]; exists {
		return errors.WrapInvalid(
			fmt.Errorf("metric %s already registered for task %s", metricName, taskName),
			"MetricsRegistry", op, "duplicate metric registration")
	}

	if err := r.prometheusRegistry.Register(c); err != nil {
		var alreadyRegErr prometheus.AlreadyRegisteredError
		if stderrors.As(err, &alreadyRegErr) {
			return errors.WrapInvalid(err, "MetricsRegistry", op,
				fmt.Sprintf("prometheus conflict for metric %s", metricName))
		}
		return errors.WrapFatal(err, "MetricsRegistry", op,
			"failed to register collector with prometheus")
	}

	r.registeredMetrics[key] = c
	return nil
}

// Unregister removes a previously registered metric. Returns true if the
// metric existed. Tasks call this from their release phase so a restarted
// task can register again cleanly.
func (r *MetricsRegistry) Unregister(taskName, metricName string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := fmt.Sprintf("%s.%s", taskName, metricName)
	c, exists := r.registeredMetrics[key]
	if !exists {
		return false
	}

	r.prometheusRegistry.Unregister(c)
	delete(r.registeredMetrics, key)
	return true
}
