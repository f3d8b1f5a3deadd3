package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/jonboulle/clockwork"
)

// Config holds all job settings, populated from environment variables.
type Config struct {
	// PostGIS source.
	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	SourceTable      string
	SourceGeomColumn string
	// SourceShapefile, when set, replaces the database read.
	SourceShapefile string

	BoundaryPath string
	ScratchDir   string

	// Hosted layer.
	ArcGISLayerURL string
	ArcGISToken    string
	ArcGISTimeout  time.Duration
	ArcGISWKID     int
	BatchSize      int
	DryRun         bool

	OutputGeoJSON string

	PushgatewayURL   string
	KafkaBrokers     []string
	KafkaReportTopic string

	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// clock picks the default source table year.
var clock = clockwork.NewRealClock()

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	arcgisTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("ARCGIS_TIMEOUT", "60s"))
	if err != nil || arcgisTimeout <= 0 {
		return nil, errors.New("invalid ARCGIS_TIMEOUT")
	}

	dbPort, err := parsePositiveInt("DB_PORT", "5432")
	if err != nil {
		return nil, err
	}
	wkid, err := parsePositiveInt("ARCGIS_WKID", "4674")
	if err != nil {
		return nil, err
	}

	dryRun, err := strconv.ParseBool(sharedcfg.EnvOrDefault("DRY_RUN", "false"))
	if err != nil {
		return nil, errors.New("invalid DRY_RUN")
	}

	cfg := &Config{
		DBHost:     sharedcfg.EnvOrDefault("DB_HOST", "localhost"),
		DBPort:     dbPort,
		DBName:     os.Getenv("DB_NAME"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBSSLMode:  sharedcfg.EnvOrDefault("DB_SSLMODE", "prefer"),

		SourceTable:      sharedcfg.EnvOrDefault("SOURCE_TABLE", fmt.Sprintf("dmif_fogo.aaf_%d", clock.Now().Year())),
		SourceGeomColumn: sharedcfg.EnvOrDefault("SOURCE_GEOM_COLUMN", "geom"),
		SourceShapefile:  os.Getenv("SOURCE_SHAPEFILE"),

		BoundaryPath: sharedcfg.EnvOrDefault("BOUNDARY_PATH", "Limites_UCs_2024.shp"),
		ScratchDir:   sharedcfg.EnvOrDefault("SCRATCH_DIR", filepath.Join(os.TempDir(), "wildfire-etl")),

		ArcGISLayerURL: os.Getenv("ARCGIS_LAYER_URL"),
		ArcGISToken:    os.Getenv("ARCGIS_TOKEN"),
		ArcGISTimeout:  arcgisTimeout,
		ArcGISWKID:     wkid,
		BatchSize:      batchSize,
		DryRun:         dryRun,

		OutputGeoJSON: os.Getenv("OUTPUT_GEOJSON"),

		PushgatewayURL:   os.Getenv("PUSHGATEWAY_URL"),
		KafkaBrokers:     sharedcfg.ParseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaReportTopic: sharedcfg.EnvOrDefault("KAFKA_REPORT_TOPIC", "wildfire-etl-runs"),

		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}

	if cfg.SourceShapefile == "" {
		if cfg.DBName == "" {
			return nil, errors.New("DB_NAME is required")
		}
		if cfg.DBUser == "" {
			return nil, errors.New("DB_USER is required")
		}
	}
	if cfg.BoundaryPath == "" {
		return nil, errors.New("BOUNDARY_PATH is required")
	}
	if !cfg.DryRun && cfg.ArcGISLayerURL == "" {
		return nil, errors.New("ARCGIS_LAYER_URL is required unless DRY_RUN is true")
	}

	return cfg, nil
}

// DatabaseDSN returns the PostGIS connection string as a postgres:// URL.
// Every component is escaped, so names and credentials may hold spaces or
// quotes.
func (c *Config) DatabaseDSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     net.JoinHostPort(c.DBHost, strconv.Itoa(c.DBPort)),
		Path:     "/" + c.DBName,
		RawQuery: url.Values{"sslmode": {c.DBSSLMode}}.Encode(),
	}
	return u.String()
}

// ReportEnabled reports whether run reports go to Kafka.
func (c *Config) ReportEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func parsePositiveInt(key, fallback string) (int, error) {
	n, err := strconv.Atoi(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}
