package observability

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "wildfire_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for one ETL run.
type Metrics struct {
	IncidentsLoaded   prometheus.Counter
	ProtectedAreas    prometheus.Gauge
	Pieces            *prometheus.CounterVec // labels: location={interior,entorno}
	Unclassified      prometheus.Counter
	DuplicateNames    prometheus.Gauge
	FeaturesPublished prometheus.Counter
	PublishErrors     prometheus.Counter

	StageDuration       *prometheus.HistogramVec // labels: stage
	RunDuration         prometheus.Gauge
	LastSuccessUnixtime prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates all job metrics and registers them with a dedicated
// registry that the Pusher gathers from.
func NewMetrics() *Metrics {
	m := &Metrics{
		IncidentsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "incidents_loaded_total",
			Help:      "Incident polygons read from the source.",
		}),
		ProtectedAreas: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "protected_areas",
			Help:      "Protected-area boundaries read for the run.",
		}),
		Pieces: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pieces_total",
			Help:      "Partitioned pieces by location.",
		}, []string{"location"}),
		Unclassified: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unclassified_incidents_total",
			Help:      "Incidents whose class matched no category.",
		}),
		DuplicateNames: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "duplicate_protected_area_names",
			Help:      "Protected-area names that occur more than once in the boundary set.",
		}),
		FeaturesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "features_published_total",
			Help:      "Features added to the hosted layer.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Failed publish attempts.",
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage.",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"stage"}),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run.",
		}),
		LastSuccessUnixtime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.IncidentsLoaded,
		m.ProtectedAreas,
		m.Pieces,
		m.Unclassified,
		m.DuplicateNames,
		m.FeaturesPublished,
		m.PublishErrors,
		m.StageDuration,
		m.RunDuration,
		m.LastSuccessUnixtime,
	)

	return m
}

// Registry exposes the registry backing these metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Pusher sends the run's metrics to a Prometheus Pushgateway.
type Pusher struct {
	pusher *push.Pusher
}

// NewPusher creates a pusher for the given gateway URL and job name.
func NewPusher(url, job string, m *Metrics) *Pusher {
	return &Pusher{pusher: push.New(url, job).Gatherer(m.registry)}
}

// Push replaces the job's metric group on the gateway.
func (p *Pusher) Push(ctx context.Context) error {
	if err := p.pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
