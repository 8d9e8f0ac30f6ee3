// Package metrics holds the Prometheus collectors for ingest runs.
//
// A batch CLI has no scrape endpoint, so the registry is written to a
// node_exporter textfile at the end of a run.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tspingest"

// Outcome labels for FilesTotal.
const (
	OutcomeParsed = "parsed"
	OutcomeFailed = "failed"
	OutcomeStored = "stored"
)

// Collector holds every metric emitted by the ingest pipeline.
type Collector struct {
	registry *prometheus.Registry

	FilesTotal    *prometheus.CounterVec
	ParseDuration *prometheus.HistogramVec
	QuirksTotal   *prometheus.CounterVec
	Dimension     prometheus.Histogram
	RunDuration   prometheus.Gauge
	LastRun       prometheus.Gauge
}

// NewCollector registers all metrics on a fresh registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		FilesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "files_total",
				Help:      "Files processed, by outcome.",
			},
			[]string{"outcome"},
		),
		ParseDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "parse_duration_seconds",
				Help:      "Time spent parsing one file, by problem kind.",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
			},
			[]string{"kind"},
		),
		QuirksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "quirks_total",
				Help:      "Accepted format deviations, by quirk kind.",
			},
			[]string{"quirk"},
		),
		Dimension: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "problem_dimension",
				Help:      "Declared DIMENSION of parsed problems.",
				Buckets:   prometheus.ExponentialBuckets(8, 4, 8),
			},
		),
		RunDuration: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Wall time of the last ingest run.",
			},
		),
		LastRun: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_run_timestamp_seconds",
				Help:      "Unix time the last ingest run finished.",
			},
		),
	}

	c.registry.MustRegister(
		c.FilesTotal,
		c.ParseDuration,
		c.QuirksTotal,
		c.Dimension,
		c.RunDuration,
		c.LastRun,
	)
	return c
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveParse records one successful parse.
func (c *Collector) ObserveParse(kind string, dimension int, took time.Duration) {
	c.FilesTotal.WithLabelValues(OutcomeParsed).Inc()
	c.ParseDuration.WithLabelValues(kind).Observe(took.Seconds())
	c.Dimension.Observe(float64(dimension))
}

// ObserveFailure records a file that could not be read or parsed.
func (c *Collector) ObserveFailure() {
	c.FilesTotal.WithLabelValues(OutcomeFailed).Inc()
}

// ObserveStored records a record written to the store.
func (c *Collector) ObserveStored() {
	c.FilesTotal.WithLabelValues(OutcomeStored).Inc()
}

// ObserveQuirk records one accepted deviation.
func (c *Collector) ObserveQuirk(kind string) {
	c.QuirksTotal.WithLabelValues(kind).Inc()
}

// ObserveRun records the end of a run.
func (c *Collector) ObserveRun(started, finished time.Time) {
	c.RunDuration.Set(finished.Sub(started).Seconds())
	c.LastRun.Set(float64(finished.Unix()))
}

// WriteTextfile writes all metrics to path in the text exposition format.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
