package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Failure reasons used as the "reason" label of RunnerFailures.
const (
	ReasonInterruptedDelay = "interrupted_delay"
	ReasonMalformedRecord  = "malformed_record"
)

type Metrics struct {
	registry *prometheus.Registry

	// Runner metrics
	StatusesGenerated prometheus.Counter
	ListenerErrors    prometheus.Counter
	RunnerFailures    *prometheus.CounterVec
	RunnerRestarts    prometheus.Counter
	RunnerUp          prometheus.Gauge

	// Event metrics
	EventsPublished *prometheus.CounterVec
	PublishDuration *prometheus.HistogramVec
}

// New registers the service metrics on a fresh registry, together with the
// Go runtime and process collectors.
func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		StatusesGenerated: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "mock_statuses_generated_total",
				Help:      "Total mock statuses handed to the listener",
			},
		),
		ListenerErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "mock_listener_errors_total",
				Help:      "Total listener callbacks that returned an error",
			},
		),
		RunnerFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "mock_runner_failures_total",
				Help:      "Total terminal failures of the mock stream loop",
			},
			[]string{"reason"},
		),
		RunnerRestarts: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "mock_runner_restarts_total",
				Help:      "Total restarts of the mock stream loop after a failure",
			},
		),
		RunnerUp: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "mock_runner_up",
				Help:      "1 while the mock stream loop is emitting statuses",
			},
		),
		EventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_published_total",
				Help:      "Total events published",
			},
			[]string{"topic", "status"},
		),
		PublishDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "event_publish_duration_seconds",
				Help:      "Kafka publish duration",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"topic"},
		),
	}
}

// ObservePublish records the outcome of one Kafka publish.
func (m *Metrics) ObservePublish(topic string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.EventsPublished.WithLabelValues(topic, status).Inc()
	m.PublishDuration.WithLabelValues(topic).Observe(duration.Seconds())
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
