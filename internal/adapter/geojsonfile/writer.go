// Package geojsonfile writes the final feature set to a GeoJSON file and
// reads it back.
package geojsonfile

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/paulmach/orb/geojson"

	"github.com/couchcryptid/wildfire-etl/internal/domain"
)

// Writer exports features to one file, replacing it on every run.
type Writer struct {
	path   string
	logger *slog.Logger
}

// NewWriter creates a GeoJSON exporter for path.
func NewWriter(path string, logger *slog.Logger) *Writer {
	return &Writer{path: path, logger: logger}
}

// Export writes features as a FeatureCollection. The file is written to a
// temporary name first and renamed into place.
func (w *Writer) Export(_ context.Context, features []domain.OutputFeature) error {
	data, err := FeatureCollection(features).MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode geojson: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp := w.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write geojson: %w", err)
	}
	if err := os.Rename(tmp, w.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write geojson: %w", err)
	}

	w.logger.Info("geojson exported", "path", w.path, "features", len(features))
	return nil
}

// FeatureCollection converts output features using their published
// property names.
func FeatureCollection(features []domain.OutputFeature) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, f := range features {
		gf := geojson.NewFeature(f.Geometry)
		gf.Properties = geojson.Properties(f.Properties())
		fc.Append(gf)
	}
	return fc
}

// Read loads a FeatureCollection from path.
func Read(path string) (*geojson.FeatureCollection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read geojson: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decode geojson %s: %w", path, err)
	}
	return fc, nil
}
