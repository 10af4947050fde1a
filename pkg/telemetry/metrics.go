package telemetry

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics provides Prometheus metrics for sky-install.
type Metrics struct {
	config MetricsConfig

	commandsTotal   *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec

	stepsTotal   *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec

	retriesTotal  *prometheus.CounterVec
	errorsByKind  *prometheus.CounterVec
	artifactBytes *prometheus.GaugeVec

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		// Return a no-op metrics instance
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		commandsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "commands_total",
				Help:      "Total number of commands executed",
			},
			[]string{"command", "status"},
		),
		commandDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "command_duration_seconds",
				Help:      "Duration of command execution in seconds",
				Buckets:   buckets,
			},
			[]string{"command"},
		),
		stepsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "steps_total",
				Help:      "Total number of pipeline steps executed",
			},
			[]string{"step", "status"},
		),
		stepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "step_duration_seconds",
				Help:      "Duration of pipeline steps in seconds",
				Buckets:   buckets,
			},
			[]string{"step"},
		),
		retriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "retries_total",
				Help:      "Total number of retried cleanup attempts",
			},
			[]string{"step"},
		),
		errorsByKind: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total number of failures by kind",
			},
			[]string{"kind"},
		),
		artifactBytes: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "artifact_size_bytes",
				Help:      "Size of the last staged artifact per component",
			},
			[]string{"component"},
		),
	}

	registry.MustRegister(
		m.commandsTotal,
		m.commandDuration,
		m.stepsTotal,
		m.stepDuration,
		m.retriesTotal,
		m.errorsByKind,
		m.artifactBytes,
	)

	return m, nil
}

// RecordCommand records a finished command with its status and duration.
func (m *Metrics) RecordCommand(command, status string, duration time.Duration) {
	if m.commandsTotal == nil {
		return
	}
	m.commandsTotal.WithLabelValues(command, status).Inc()
	m.commandDuration.WithLabelValues(command).Observe(duration.Seconds())
}

// RecordStep records a finished pipeline step.
func (m *Metrics) RecordStep(step, status string, duration time.Duration) {
	if m.stepsTotal == nil {
		return
	}
	m.stepsTotal.WithLabelValues(step, status).Inc()
	m.stepDuration.WithLabelValues(step).Observe(duration.Seconds())
}

// RecordRetry counts one failed attempt that will be retried.
func (m *Metrics) RecordRetry(step string) {
	if m.retriesTotal == nil {
		return
	}
	m.retriesTotal.WithLabelValues(step).Inc()
}

// RecordError counts a failure by kind.
func (m *Metrics) RecordError(kind string) {
	if m.errorsByKind == nil {
		return
	}
	m.errorsByKind.WithLabelValues(kind).Inc()
}

// SetArtifactSize records the size of a staged artifact.
func (m *Metrics) SetArtifactSize(component string, size int64) {
	if m.artifactBytes == nil {
		return
	}
	m.artifactBytes.WithLabelValues(component).Set(float64(size))
}

// Gatherer exposes the underlying registry, nil when metrics are disabled.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m.registry == nil {
		return nil
	}
	return m.registry
}

// WriteTextfile writes the current metric values to path in the text
// exposition format. It is a no-op when metrics are disabled or no path is set.
func (m *Metrics) WriteTextfile(path string) error {
	g := m.Gatherer()
	if g == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
