// Package pipeline runs the wildfire ETL stages in order: load, derive,
// partition, reconcile, join, publish.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/wildfire-etl/internal/domain"
	"github.com/couchcryptid/wildfire-etl/internal/observability"
)

// IncidentSource loads the incident polygons for one run.
type IncidentSource interface {
	LoadIncidents(ctx context.Context) ([]domain.Incident, error)
}

// BoundarySource loads the protected-area boundaries.
type BoundarySource interface {
	LoadProtectedAreas(ctx context.Context) ([]domain.ProtectedArea, error)
}

// Partitioner splits incidents into interior and surrounding pieces.
type Partitioner interface {
	Partition(incidents []domain.Incident, areas []domain.ProtectedArea) ([]domain.Piece, error)
}

// Publisher replaces the contents of the hosted layer.
type Publisher interface {
	Publish(ctx context.Context, features []domain.OutputFeature) error
}

// Exporter writes the final feature set somewhere besides the hosted layer.
type Exporter interface {
	Export(ctx context.Context, features []domain.OutputFeature) error
}

// ReportSink receives the run report once the run finishes.
type ReportSink interface {
	Report(ctx context.Context, report *domain.RunReport) error
}

// Pipeline orchestrates one ETL run.
type Pipeline struct {
	incidents   IncidentSource
	boundaries  BoundarySource
	partitioner Partitioner
	publisher   Publisher
	exporters   []Exporter
	sinks       []ReportSink
	sinkTimeout time.Duration
	logger      *slog.Logger
	metrics     *observability.Metrics
	runID       string
	sourceName  string
}

// Option configures optional collaborators.
type Option func(*Pipeline)

// WithPublisher sets the publisher. Without one the run is a dry run.
func WithPublisher(p Publisher) Option {
	return func(pl *Pipeline) { pl.publisher = p }
}

// WithExporter adds an exporter that runs before publishing.
func WithExporter(e Exporter) Option {
	return func(pl *Pipeline) { pl.exporters = append(pl.exporters, e) }
}

// WithReportSink adds a sink for the run report. Reports are sent even when
// ctx was cancelled, bounded by timeout.
func WithReportSink(s ReportSink, timeout time.Duration) Option {
	return func(pl *Pipeline) {
		pl.sinks = append(pl.sinks, s)
		pl.sinkTimeout = timeout
	}
}

// WithRunID tags the run report.
func WithRunID(id string) Option {
	return func(pl *Pipeline) { pl.runID = id }
}

// WithSourceName records where incidents came from in the run report.
func WithSourceName(name string) Option {
	return func(pl *Pipeline) { pl.sourceName = name }
}

// New creates a Pipeline with the given stages and observability.
func New(src IncidentSource, bnd BoundarySource, part Partitioner, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Pipeline {
	p := &Pipeline{
		incidents:   src,
		boundaries:  bnd,
		partitioner: part,
		logger:      logger,
		metrics:     metrics,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes every stage once. The returned report is never nil; on
// failure it carries the error and the counts reached so far.
func (p *Pipeline) Run(ctx context.Context) (*domain.RunReport, error) {
	report := domain.NewRunReport(p.runID, p.sourceName)
	report.DryRun = p.publisher == nil

	err := p.run(ctx, report)
	report.Finish(err)
	p.metrics.RunDuration.Set(report.Duration().Seconds())
	if err == nil {
		p.metrics.LastSuccessUnixtime.Set(float64(report.FinishedAt.Unix()))
	}
	p.sendReport(ctx, report)

	if err != nil {
		p.logger.Error("run failed", "run_id", report.RunID, "error", err)
		return report, err
	}
	p.logger.Info("run complete",
		"run_id", report.RunID,
		"published", report.Published,
		"interior_pieces", report.InteriorPieces,
		"surrounding_pieces", report.SurroundingPieces,
		"area_interior_ha", report.AreaInteriorHa,
		"area_surrounding_ha", report.AreaSurroundingHa,
		"dry_run", report.DryRun,
		"duration", report.Duration(),
	)
	return report, nil
}

func (p *Pipeline) run(ctx context.Context, report *domain.RunReport) error {
	p.logger.Info("run started", "run_id", report.RunID, "source", report.SourceTable)

	var incidents []domain.Incident
	if err := p.stage("load_incidents", func() (err error) {
		incidents, err = p.incidents.LoadIncidents(ctx)
		return err
	}); err != nil {
		return fmt.Errorf("load incidents: %w", err)
	}
	report.Incidents = len(incidents)
	p.metrics.IncidentsLoaded.Add(float64(len(incidents)))

	var areas []domain.ProtectedArea
	if err := p.stage("load_boundaries", func() (err error) {
		areas, err = p.boundaries.LoadProtectedAreas(ctx)
		return err
	}); err != nil {
		return fmt.Errorf("load protected areas: %w", err)
	}
	report.ProtectedAreas = len(areas)
	p.metrics.ProtectedAreas.Set(float64(len(areas)))

	if dups := domain.DuplicateNames(areas); len(dups) > 0 {
		p.logger.Warn("duplicate protected-area names, last one wins", "names", dups)
		report.DuplicateNames = dups
	}
	p.metrics.DuplicateNames.Set(float64(len(report.DuplicateNames)))

	_ = p.stage("derive", func() error {
		incidents = domain.DeriveAttributes(incidents)
		return nil
	})
	for _, inc := range incidents {
		if inc.Category == "" {
			report.Unclassified++
		}
		if inc.Date == nil {
			report.UndatedCount++
		}
	}
	p.metrics.Unclassified.Add(float64(report.Unclassified))
	if report.Unclassified > 0 {
		p.logger.Warn("incidents without category", "count", report.Unclassified)
	}

	var pieces []domain.Piece
	if err := p.stage("partition", func() (err error) {
		pieces, err = p.partitioner.Partition(incidents, areas)
		return err
	}); err != nil {
		return fmt.Errorf("partition: %w", err)
	}

	var features []domain.OutputFeature
	_ = p.stage("reconcile", func() error {
		features = domain.Reconcile(pieces)
		return nil
	})
	_ = p.stage("join", func() error {
		features = domain.Join(features, areas)
		return nil
	})
	report.AddFeatures(features)
	p.metrics.Pieces.WithLabelValues(string(domain.LocationInterior)).Add(float64(report.InteriorPieces))
	p.metrics.Pieces.WithLabelValues(string(domain.LocationSurrounding)).Add(float64(report.SurroundingPieces))

	for _, e := range p.exporters {
		if err := p.stage("export", func() error {
			return e.Export(ctx, features)
		}); err != nil {
			return fmt.Errorf("export: %w", err)
		}
	}

	if p.publisher == nil {
		p.logger.Info("dry run, layer not updated", "features", len(features))
		return nil
	}
	if err := p.stage("publish", func() error {
		return p.publisher.Publish(ctx, features)
	}); err != nil {
		p.metrics.PublishErrors.Inc()
		return fmt.Errorf("publish: %w", err)
	}
	report.Published = len(features)
	p.metrics.FeaturesPublished.Add(float64(len(features)))
	return nil
}

// sendReport delivers the report to every sink. Sink failures are logged and
// do not change the run outcome.
func (p *Pipeline) sendReport(ctx context.Context, report *domain.RunReport) {
	if len(p.sinks) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	if p.sinkTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.sinkTimeout)
		defer cancel()
	}
	for _, s := range p.sinks {
		if err := s.Report(ctx, report); err != nil {
			p.logger.Warn("run report not delivered", "run_id", report.RunID, "error", err)
		}
	}
}

// stage times fn and logs its outcome.
func (p *Pipeline) stage(name string, fn func() error) error {
	start := domain.Now()
	err := fn()
	elapsed := domain.Now().Sub(start)
	p.metrics.StageDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	if err != nil {
		return err
	}
	p.logger.Debug("stage complete", "stage", name, "duration", elapsed.Round(time.Millisecond))
	return nil
}
