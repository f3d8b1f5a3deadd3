package shapefile

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
)

const (
	maxFieldNameLen = 10
	maxStringLen    = 254
	numberLen       = 18
	floatLen        = 24
	floatPrecision  = 8
)

// column is one DBF field and the source key it is filled from.
type column struct {
	key   string
	field shp.Field
}

// writeRecords writes polygons and attributes to path, creating the .shp,
// .shx, .dbf and a UTF-8 .cpg. keys fixes the column order.
func writeRecords(path string, keys []string, records []record) error {
	cols := buildColumns(keys, records)

	w, err := shp.Create(path, shp.POLYGON)
	if err != nil {
		return fmt.Errorf("create shapefile %s: %w", path, err)
	}
	defer w.Close()

	fields := make([]shp.Field, len(cols))
	for i, c := range cols {
		fields[i] = c.field
	}
	if err := w.SetFields(fields); err != nil {
		return fmt.Errorf("set fields: %w", err)
	}

	for _, rec := range records {
		row := int(w.Write(toShape(rec.geometry)))
		for i, c := range cols {
			v, ok := cellValue(c.field, rec.fields[c.key])
			if !ok {
				continue
			}
			if err := w.WriteAttribute(row, i, v); err != nil {
				return fmt.Errorf("write %s of row %d: %w", c.key, row, err)
			}
		}
	}

	cpg := strings.TrimSuffix(path, extOf(path)) + ".cpg"
	if err := os.WriteFile(cpg, []byte("UTF-8"), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", cpg, err)
	}
	return nil
}

// buildColumns infers a DBF field per key from the values present.
// Integers become N, other numbers F, everything else C sized to the
// longest value.
func buildColumns(keys []string, records []record) []column {
	names := dbfFieldNames(keys)
	cols := make([]column, len(keys))
	for i, key := range keys {
		allInt, allNum, maxLen := true, true, 1
		for _, rec := range records {
			v := rec.fields[key]
			if v == nil {
				continue
			}
			switch n := v.(type) {
			case int, int32, int64:
			case float64:
				allInt = allInt && n == math.Trunc(n) && math.Abs(n) < 1e15
			case float32:
				allInt = false
			default:
				allInt, allNum = false, false
			}
			if l := len(formatCell(v)); l > maxLen {
				maxLen = l
			}
		}

		var f shp.Field
		switch {
		case allNum && allInt:
			f = shp.NumberField(names[i], numberLen)
		case allNum:
			f = shp.FloatField(names[i], floatLen, floatPrecision)
		default:
			f = shp.StringField(names[i], uint8(min(maxLen, maxStringLen)))
		}
		cols[i] = column{key: key, field: f}
	}
	return cols
}

// dbfFieldNames truncates keys to the DBF limit, suffixing a counter where
// truncation makes two names collide.
func dbfFieldNames(keys []string) []string {
	used := make(map[string]bool, len(keys))
	out := make([]string, len(keys))
	for i, key := range keys {
		name := truncateBytes(key, maxFieldNameLen)
		for n := 1; used[strings.ToLower(name)]; n++ {
			suffix := "_" + strconv.Itoa(n)
			name = truncateBytes(key, maxFieldNameLen-len(suffix)) + suffix
		}
		used[strings.ToLower(name)] = true
		out[i] = name
	}
	return out
}

func cellValue(f shp.Field, v any) (any, bool) {
	if v == nil {
		return nil, false
	}
	switch f.Fieldtype {
	case 'N':
		switch n := v.(type) {
		case int:
			return n, true
		case int32:
			return int(n), true
		case int64:
			return int(n), true
		case float64:
			return int(n), true
		}
	case 'F':
		switch n := v.(type) {
		case int:
			return float64(n), true
		case int32:
			return float64(n), true
		case int64:
			return float64(n), true
		case float32:
			return float64(n), true
		case float64:
			return n, true
		}
	}
	return truncateBytes(formatCell(v), int(f.Size)), true
}

func formatCell(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if t {
			return "T"
		}
		return "F"
	default:
		return fmt.Sprint(v)
	}
}

// truncateBytes cuts s to at most n bytes without splitting a rune.
func truncateBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// toShape converts a polygonal geometry with outer rings clockwise and holes
// counter-clockwise, as shapefiles require.
func toShape(g orb.Geometry) shp.Shape {
	var polys []orb.Polygon
	switch g := g.(type) {
	case orb.Polygon:
		polys = []orb.Polygon{g}
	case orb.MultiPolygon:
		polys = g
	}

	var parts [][]shp.Point
	for _, poly := range polys {
		for i, ring := range poly {
			if len(ring) == 0 {
				continue
			}
			want := orb.CW
			if i > 0 {
				want = orb.CCW
			}
			if ring.Orientation() != want {
				ring = ring.Clone()
				ring.Reverse()
			}
			if !ring.Closed() {
				ring = append(ring.Clone(), ring[0])
			}
			pts := make([]shp.Point, len(ring))
			for j, p := range ring {
				pts[j] = shp.Point{X: p.X(), Y: p.Y()}
			}
			parts = append(parts, pts)
		}
	}
	if len(parts) == 0 {
		return &shp.Polygon{}
	}
	return (*shp.Polygon)(shp.NewPolyLine(parts))
}
