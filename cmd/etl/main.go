// Command etl runs one refresh of the wildfire incident layer: it loads
// incidents and protected-area boundaries, splits incidents at boundary
// edges, enriches the attributes and republishes the hosted layer.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/couchcryptid/wildfire-etl/internal/adapter/arcgis"
	"github.com/couchcryptid/wildfire-etl/internal/adapter/geojsonfile"
	kafkaadapter "github.com/couchcryptid/wildfire-etl/internal/adapter/kafka"
	"github.com/couchcryptid/wildfire-etl/internal/adapter/postgis"
	"github.com/couchcryptid/wildfire-etl/internal/adapter/shapefile"
	"github.com/couchcryptid/wildfire-etl/internal/config"
	"github.com/couchcryptid/wildfire-etl/internal/observability"
	"github.com/couchcryptid/wildfire-etl/internal/overlay"
	"github.com/couchcryptid/wildfire-etl/internal/pipeline"
)

const jobName = "wildfire-etl"

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg, logger, metrics)
	stop()

	pushMetrics(cfg, logger, metrics)

	if err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) error {
	runID := uuid.NewString()

	var incidents pipeline.IncidentSource
	sourceName := cfg.SourceTable
	if cfg.SourceShapefile != "" {
		sourceName = cfg.SourceShapefile
		incidents = shapefile.NewFile(cfg.SourceShapefile)
		logger.Info("reading incidents from shapefile", "path", cfg.SourceShapefile)
	} else {
		pool, err := postgis.NewPool(ctx, cfg.DatabaseDSN())
		if err != nil {
			logger.Error("failed to connect to database", "host", cfg.DBHost, "database", cfg.DBName, "error", err)
			return err
		}
		defer pool.Close()

		loader, err := postgis.NewLoader(pool, cfg.SourceTable, cfg.SourceGeomColumn, logger)
		if err != nil {
			logger.Error("invalid source table", "table", cfg.SourceTable, "error", err)
			return err
		}
		incidents = shapefile.NewBridge(loader, cfg.ScratchDir, bridgeName(cfg.SourceTable), logger)
	}

	opts := []pipeline.Option{
		pipeline.WithRunID(runID),
		pipeline.WithSourceName(sourceName),
	}
	if cfg.DryRun {
		logger.Info("dry run, hosted layer will not be updated")
	} else {
		opts = append(opts, pipeline.WithPublisher(arcgis.NewClient(cfg, logger)))
	}
	if cfg.OutputGeoJSON != "" {
		opts = append(opts, pipeline.WithExporter(geojsonfile.NewWriter(cfg.OutputGeoJSON, logger)))
	}
	if cfg.ReportEnabled() {
		writer := kafkaadapter.NewWriter(cfg, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		opts = append(opts, pipeline.WithReportSink(writer, cfg.ShutdownTimeout))
	}

	p := pipeline.New(
		incidents,
		shapefile.NewBoundaryFile(cfg.BoundaryPath, shapefile.DefaultBoundaryFields),
		overlay.NewPartitioner(logger),
		logger,
		metrics,
		opts...,
	)

	_, err := p.Run(ctx)
	return err
}

// pushMetrics runs after the pipeline, so it gets its own deadline instead of
// the signal context.
func pushMetrics(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) {
	if cfg.PushgatewayURL == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := observability.NewPusher(cfg.PushgatewayURL, jobName, metrics).Push(ctx); err != nil {
		logger.Warn("metrics push failed", "url", cfg.PushgatewayURL, "error", err)
	}
}

// bridgeName derives the scratch shapefile name from the table name.
func bridgeName(table string) string {
	if i := strings.LastIndex(table, "."); i >= 0 {
		table = table[i+1:]
	}
	return table
}
