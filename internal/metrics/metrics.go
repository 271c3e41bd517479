// Package metrics records incident counts and resolution timings. The Sink
// interface keeps the dispatcher and scheduler independent of the metrics
// backend; recording is best effort.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metric names recorded by the dispatcher and scheduler.
const (
	MetricIncidentCount         = "IncidentCount"
	MetricIncidentResolved      = "IncidentResolved"
	MetricResolutionTimeSeconds = "ResolutionTimeSeconds"
)

// Sink records a named metric value with dimensional labels.
type Sink interface {
	Record(name string, value float64, unit string, dims map[string]string) error
}

var (
	incidentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_incidents_total",
			Help: "Total number of incidents created",
		},
		[]string{"scenario", "severity", "environment"},
	)

	incidentsResolvedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_incidents_resolved_total",
			Help: "Total number of incidents resolved by assisted remediation",
		},
		[]string{"scenario", "environment"},
	)

	resolutionSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sentinel_resolution_time_seconds",
			Help:    "Time from incident creation to assisted resolution in seconds",
			Buckets: []float64{60, 300, 600, 1800, 3600, 14400, 86400},
		},
		[]string{"scenario", "environment"},
	)
)

// PrometheusSink maps the named metrics onto the package's Prometheus
// collectors. Unknown metric names are ignored.
type PrometheusSink struct{}

// NewPrometheusSink creates a Prometheus-backed metrics sink.
func NewPrometheusSink() *PrometheusSink {
	return &PrometheusSink{}
}

func (s *PrometheusSink) Record(name string, value float64, unit string, dims map[string]string) error {
	switch name {
	case MetricIncidentCount:
		incidentsTotal.WithLabelValues(dims["scenario"], dims["severity"], dims["environment"]).Add(value)
	case MetricIncidentResolved:
		incidentsResolvedTotal.WithLabelValues(dims["scenario"], dims["environment"]).Add(value)
	case MetricResolutionTimeSeconds:
		resolutionSeconds.WithLabelValues(dims["scenario"], dims["environment"]).Observe(value)
	}
	return nil
}

// NoopSink discards all metrics. Used in tests.
type NoopSink struct{}

func (NoopSink) Record(name string, value float64, unit string, dims map[string]string) error {
	return nil
}
