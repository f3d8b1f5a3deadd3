// Package shapefile reads and writes polygon shapefiles: the incident bridge
// file and the protected-area boundary file.
package shapefile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
)

// record is one shape with its decoded DBF row.
type record struct {
	geometry orb.Geometry
	fields   map[string]any
	// order preserves the DBF column order of fields.
	order []string
}

// readRecords loads every polygon and its attributes from path.
func readRecords(path string) ([]record, error) {
	r, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open shapefile %s: %w", path, err)
	}
	defer func() { _ = r.Close() }()

	enc, err := readEncoding(path)
	if err != nil {
		return nil, err
	}
	var dec *encoding.Decoder
	if enc != nil {
		dec = enc.NewDecoder()
	}

	fields := r.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = fieldName(f)
	}

	var records []record
	for r.Next() {
		row, shape := r.Shape()
		geom, err := toOrb(shape)
		if err != nil {
			return nil, fmt.Errorf("shape %d in %s: %w", row, path, err)
		}

		rec := record{geometry: geom, fields: make(map[string]any, len(fields)), order: names}
		for i, f := range fields {
			raw := strings.Trim(r.ReadAttribute(row, i), " \x00")
			if dec != nil && raw != "" {
				if s, err := dec.String(raw); err == nil {
					raw = s
				}
			}
			rec.fields[names[i]] = parseValue(f, raw)
		}
		records = append(records, rec)
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("read shapefile %s: %w", path, err)
	}
	return records, nil
}

// readEncoding returns the charset named by the .cpg sidecar. Files without
// one are Latin-1, the legacy DBF default. A nil encoding means UTF-8.
func readEncoding(path string) (encoding.Encoding, error) {
	cpg := strings.TrimSuffix(path, extOf(path)) + ".cpg"
	b, err := os.ReadFile(cpg)
	if errors.Is(err, os.ErrNotExist) {
		return charmap.ISO8859_1, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", cpg, err)
	}

	name := strings.ToLower(strings.TrimSpace(string(b)))
	switch name {
	case "", "utf-8", "utf8", "65001":
		return nil, nil
	case "1252", "ansi 1252":
		return charmap.Windows1252, nil
	case "88591", "8859_1", "iso88591":
		return charmap.ISO8859_1, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unsupported code page %q in %s", name, cpg)
	}
	return enc, nil
}

func extOf(path string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 && !strings.ContainsAny(path[i:], `/\`) {
		return path[i:]
	}
	return ""
}

func fieldName(f shp.Field) string {
	name := f.Name[:]
	if i := strings.IndexByte(string(name), 0); i >= 0 {
		name = name[:i]
	}
	return strings.TrimSpace(string(name))
}

// parseValue converts a DBF cell to a Go value by field type. Blank cells
// are nil.
func parseValue(f shp.Field, raw string) any {
	if raw == "" {
		return nil
	}
	switch f.Fieldtype {
	case 'N':
		if f.Precision == 0 {
			if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
				return n
			}
		}
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			return v
		}
	case 'F':
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			return v
		}
	case 'L':
		switch strings.ToUpper(raw) {
		case "T", "Y":
			return true
		case "F", "N":
			return false
		}
		return nil
	}
	return raw
}

// toOrb converts a polygon shape. Clockwise rings start a new polygon and
// counter-clockwise rings are holes of the polygon before them.
func toOrb(shape shp.Shape) (orb.Geometry, error) {
	var parts []int32
	var points []shp.Point
	switch s := shape.(type) {
	case *shp.Polygon:
		parts, points = s.Parts, s.Points
	case *shp.PolygonZ:
		parts, points = s.Parts, s.Points
	case *shp.PolygonM:
		parts, points = s.Parts, s.Points
	case *shp.Null:
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported shape type %T", shape)
	}

	var mp orb.MultiPolygon
	for i, start := range parts {
		end := int32(len(points))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		if start < 0 || end > int32(len(points)) || start >= end {
			return nil, io.ErrUnexpectedEOF
		}
		ring := make(orb.Ring, 0, end-start)
		for _, p := range points[start:end] {
			ring = append(ring, orb.Point{p.X, p.Y})
		}
		if ring.Orientation() == orb.CCW && len(mp) > 0 {
			last := len(mp) - 1
			mp[last] = append(mp[last], ring)
			continue
		}
		mp = append(mp, orb.Polygon{ring})
	}

	switch len(mp) {
	case 0:
		return nil, nil
	case 1:
		return mp[0], nil
	default:
		return mp, nil
	}
}
