package shapefile

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/couchcryptid/wildfire-etl/internal/domain"
)

// WriteIncidents writes incidents to a polygon shapefile. Class and capture
// date lead the columns as text; passthrough attributes follow in name order.
// Attributes differing only in case keep separate, suffixed columns.
func WriteIncidents(path string, incidents []domain.Incident) error {
	keys := []string{domain.FieldClass, domain.FieldDateImg}
	seen := map[string]bool{}
	var extra []string
	for _, inc := range incidents {
		for k := range inc.Attributes {
			if seen[k] || strings.EqualFold(k, domain.FieldClass) || strings.EqualFold(k, domain.FieldDateImg) {
				continue
			}
			seen[k] = true
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	keys = append(keys, extra...)

	records := make([]record, len(incidents))
	for i, inc := range incidents {
		fields := make(map[string]any, len(keys))
		for k, v := range inc.Attributes {
			fields[k] = v
		}
		fields[domain.FieldClass] = inc.Class
		fields[domain.FieldDateImg] = inc.DateImg
		records[i] = record{geometry: inc.Geometry, fields: fields}
	}
	return writeRecords(path, keys, records)
}

// ReadIncidents loads incidents from a polygon shapefile. The classe and
// data_img columns are matched ignoring case.
func ReadIncidents(path string) ([]domain.Incident, error) {
	records, err := readRecords(path)
	if err != nil {
		return nil, err
	}

	incidents := make([]domain.Incident, len(records))
	for i, rec := range records {
		inc := domain.Incident{Geometry: rec.geometry, Attributes: make(domain.Attributes, len(rec.fields))}
		for _, name := range rec.order {
			v := rec.fields[name]
			switch strings.ToLower(name) {
			case domain.FieldClass:
				inc.Class = text(v)
			case domain.FieldDateImg:
				inc.DateImg = text(v)
			default:
				inc.Attributes[name] = v
			}
		}
		incidents[i] = inc
	}
	return incidents, nil
}

func text(v any) string {
	if v == nil {
		return ""
	}
	return formatCell(v)
}

// IncidentLoader is any source of incidents.
type IncidentLoader interface {
	LoadIncidents(ctx context.Context) ([]domain.Incident, error)
}

// File loads incidents straight from a shapefile.
type File struct {
	path string
}

// NewFile creates a shapefile incident source.
func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) LoadIncidents(_ context.Context) ([]domain.Incident, error) {
	return ReadIncidents(f.path)
}

// Bridge stages incidents from another source through a shapefile in a
// scratch directory, so downstream stages see the same column types and
// text-encoded dates as the desktop workflow.
type Bridge struct {
	source IncidentLoader
	path   string
	logger *slog.Logger
}

// NewBridge creates a Bridge writing <dir>/<name>.shp.
func NewBridge(source IncidentLoader, dir, name string, logger *slog.Logger) *Bridge {
	return &Bridge{source: source, path: filepath.Join(dir, name+".shp"), logger: logger}
}

// Path is the bridge shapefile location.
func (b *Bridge) Path() string {
	return b.path
}

func (b *Bridge) LoadIncidents(ctx context.Context) ([]domain.Incident, error) {
	incidents, err := b.source.LoadIncidents(ctx)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(b.path), 0o755); err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	if err := WriteIncidents(b.path, incidents); err != nil {
		return nil, fmt.Errorf("write bridge shapefile: %w", err)
	}
	b.logger.Debug("bridge shapefile written", "path", b.path, "incidents", len(incidents))

	return ReadIncidents(b.path)
}
