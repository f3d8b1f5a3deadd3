package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testLayerURL = "https://services.arcgis.com/org/arcgis/rest/services/aaf/FeatureServer/0"

// setRequired sets the minimum environment for a publishing run.
func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DB_NAME", "dmif")
	t.Setenv("DB_USER", "etl")
	t.Setenv("ARCGIS_LAYER_URL", testLayerURL)
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)
	clock = clockwork.NewFakeClockAt(time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC))
	t.Cleanup(func() { clock = clockwork.NewRealClock() })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.DBHost)
	assert.Equal(t, 5432, cfg.DBPort)
	assert.Equal(t, "prefer", cfg.DBSSLMode)
	assert.Equal(t, "dmif_fogo.aaf_2024", cfg.SourceTable)
	assert.Equal(t, "geom", cfg.SourceGeomColumn)
	assert.Empty(t, cfg.SourceShapefile)
	assert.Equal(t, "Limites_UCs_2024.shp", cfg.BoundaryPath)
	assert.Equal(t, filepath.Join(os.TempDir(), "wildfire-etl"), cfg.ScratchDir)
	assert.Equal(t, testLayerURL, cfg.ArcGISLayerURL)
	assert.Equal(t, 60*time.Second, cfg.ArcGISTimeout)
	assert.Equal(t, 4674, cfg.ArcGISWKID)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.False(t, cfg.DryRun)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.False(t, cfg.ReportEnabled())
	assert.Equal(t, "wildfire-etl-runs", cfg.KafkaReportTopic)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_CustomEnv(t *testing.T) {
	setRequired(t)
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6432")
	t.Setenv("DB_SSLMODE", "require")
	t.Setenv("SOURCE_TABLE", "dmif_fogo.aaf_2023")
	t.Setenv("BOUNDARY_PATH", "/data/ucs.shp")
	t.Setenv("SCRATCH_DIR", "/scratch")
	t.Setenv("ARCGIS_TIMEOUT", "2m")
	t.Setenv("ARCGIS_WKID", "4326")
	t.Setenv("BATCH_SIZE", "200")
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092")
	t.Setenv("KAFKA_REPORT_TOPIC", "etl-runs")
	t.Setenv("PUSHGATEWAY_URL", "http://pushgateway:9091")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.DBHost)
	assert.Equal(t, 6432, cfg.DBPort)
	assert.Equal(t, "require", cfg.DBSSLMode)
	assert.Equal(t, "dmif_fogo.aaf_2023", cfg.SourceTable)
	assert.Equal(t, "/data/ucs.shp", cfg.BoundaryPath)
	assert.Equal(t, "/scratch", cfg.ScratchDir)
	assert.Equal(t, 2*time.Minute, cfg.ArcGISTimeout)
	assert.Equal(t, 4326, cfg.ArcGISWKID)
	assert.Equal(t, 200, cfg.BatchSize)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.ReportEnabled())
	assert.Equal(t, "etl-runs", cfg.KafkaReportTopic)
	assert.Equal(t, "http://pushgateway:9091", cfg.PushgatewayURL)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoad_ShapefileSourceSkipsDatabase(t *testing.T) {
	t.Setenv("SOURCE_SHAPEFILE", "/data/aaf_2024.shp")
	t.Setenv("DRY_RUN", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/data/aaf_2024.shp", cfg.SourceShapefile)
	assert.True(t, cfg.DryRun)
}

func TestLoad_MissingRequired(t *testing.T) {
	tests := []struct {
		name  string
		unset string
	}{
		{"db name", "DB_NAME"},
		{"db user", "DB_USER"},
		{"layer url", "ARCGIS_LAYER_URL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tt.unset, "")

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.unset)
		})
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"ARCGIS_TIMEOUT", "soon"},
		{"ARCGIS_TIMEOUT", "-1s"},
		{"DB_PORT", "postgres"},
		{"ARCGIS_WKID", "0"},
		{"DRY_RUN", "maybe"},
		{"BATCH_SIZE", "5000"},
		{"SHUTDOWN_TIMEOUT", "not-a-duration"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestDatabaseDSN(t *testing.T) {
	cfg := &Config{DBHost: "db", DBPort: 5432, DBName: "dmif", DBUser: "etl", DBPassword: "s3cret", DBSSLMode: "disable"}
	assert.Equal(t, "postgres://etl:s3cret@db:5432/dmif?sslmode=disable", cfg.DatabaseDSN())
}

func TestDatabaseDSN_EscapesEveryComponent(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"spaces in names", Config{DBHost: "db", DBPort: 6432, DBName: "fogo dgeo", DBUser: "ana maria", DBPassword: "p w", DBSSLMode: "disable"}},
		{"quotes and separators", Config{DBHost: "db", DBPort: 5432, DBName: "aaf/2024", DBUser: "etl@dmif", DBPassword: `it's:a\secret@`, DBSSLMode: "disable"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := pgconn.ParseConfig(tt.cfg.DatabaseDSN())
			require.NoError(t, err)

			assert.Equal(t, tt.cfg.DBHost, parsed.Host)
			assert.Equal(t, uint16(tt.cfg.DBPort), parsed.Port)
			assert.Equal(t, tt.cfg.DBName, parsed.Database)
			assert.Equal(t, tt.cfg.DBUser, parsed.User)
			assert.Equal(t, tt.cfg.DBPassword, parsed.Password)
		})
	}
}
