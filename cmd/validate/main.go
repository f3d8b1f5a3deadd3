// Command validate checks a GeoJSON export of the wildfire layer for the
// invariants the published data must hold: schema, location consistency,
// geodesic areas, derived attributes and, when the inputs are given, area
// conservation and the boundary join.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -geojson data/mock/aaf_2024.geojson \
//	  -incidents data/mock/aaf_2024.shp \
//	  -boundaries data/mock/Limites_UCs_mock.shp
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/orb/geojson"

	"github.com/couchcryptid/wildfire-etl/internal/adapter/geojsonfile"
	"github.com/couchcryptid/wildfire-etl/internal/adapter/shapefile"
	"github.com/couchcryptid/wildfire-etl/internal/domain"
)

const areaTolerance = 1e-6

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	geojsonPath := flag.String("geojson", "", "path to the GeoJSON export (OUTPUT_GEOJSON)")
	incidentsPath := flag.String("incidents", "", "optional incident shapefile the export was built from; boundaries must not overlap")
	boundariesPath := flag.String("boundaries", "", "optional protected-area shapefile used for the join")
	flag.Parse()

	if *geojsonPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*geojsonPath, *incidentsPath, *boundariesPath); code != 0 {
		os.Exit(code)
	}
}

func run(geojsonPath, incidentsPath, boundariesPath string) int {
	fmt.Println("=== Wildfire Layer Validation ===")
	fmt.Println()

	fc, err := geojsonfile.Read(geojsonPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load GeoJSON: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateSchema(fc),
		validateLocations(fc),
		validateAreas(fc),
		validateDerived(fc),
	}

	if incidentsPath != "" {
		incidents, err := shapefile.ReadIncidents(incidentsPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load incidents: %v\n", err)
			return 1
		}
		phases = append(phases, validateConservation(fc, incidents))
	}
	if boundariesPath != "" {
		areas, err := shapefile.ReadProtectedAreas(boundariesPath, shapefile.DefaultBoundaryFields)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load boundaries: %v\n", err)
			return 1
		}
		phases = append(phases, validateJoin(fc, areas))
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	interior, surrounding := 0, 0
	for _, f := range fc.Features {
		if f.Properties.MustString(domain.FieldLocation, "") == string(domain.LocationInterior) {
			interior++
		} else {
			surrounding++
		}
	}
	fmt.Println()
	fmt.Printf("Features: %d (%d interior, %d surrounding)\n", len(fc.Features), interior, surrounding)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phases ──

var requiredFields = []string{
	domain.FieldLocation,
	domain.FieldAreaHa,
	domain.FieldAreaInteriorHa,
	domain.FieldAreaSurroundingHa,
}

func validateSchema(fc *geojson.FeatureCollection) *phase {
	p := &phase{name: "Schema"}
	for i, f := range fc.Features {
		for _, k := range requiredFields {
			if f.Properties[k] == nil {
				p.errorf("feature %d: missing %s", i, k)
			}
		}
		for k := range f.Properties {
			if domain.IsDroppedField(k) {
				p.errorf("feature %d: source-only column %s was published", i, k)
			}
		}
		switch f.Geometry.GeoJSONType() {
		case "Polygon", "MultiPolygon":
		default:
			p.errorf("feature %d: geometry is %s", i, f.Geometry.GeoJSONType())
		}

		loc := f.Properties.MustString(domain.FieldLocation, "")
		if loc != string(domain.LocationInterior) && loc != string(domain.LocationSurrounding) {
			p.errorf("feature %d: %s=%q", i, domain.FieldLocation, loc)
		}
		if cat := f.Properties[domain.FieldCategory]; cat != nil {
			s, _ := cat.(string)
			if s != string(domain.CategoryPrevention) && s != string(domain.CategoryCombat) {
				p.errorf("feature %d: %s=%v", i, domain.FieldCategory, cat)
			}
		}
	}
	return p
}

func validateLocations(fc *geojson.FeatureCollection) *phase {
	p := &phase{name: "Location consistency"}
	for i, f := range fc.Features {
		props := f.Properties
		areaHa := props.MustFloat64(domain.FieldAreaHa, math.NaN())
		interiorHa := props.MustFloat64(domain.FieldAreaInteriorHa, math.NaN())
		surroundingHa := props.MustFloat64(domain.FieldAreaSurroundingHa, math.NaN())

		switch props.MustString(domain.FieldLocation, "") {
		case string(domain.LocationInterior):
			if props[domain.FieldProtectedAreaName] == nil {
				p.errorf("feature %d: interior piece without %s", i, domain.FieldProtectedAreaName)
			}
			if surroundingHa != 0 {
				p.errorf("feature %d: interior piece with %s=%g", i, domain.FieldAreaSurroundingHa, surroundingHa)
			}
			if !relEq(interiorHa, areaHa) {
				p.errorf("feature %d: %s=%g but %s=%g", i, domain.FieldAreaInteriorHa, interiorHa, domain.FieldAreaHa, areaHa)
			}
		case string(domain.LocationSurrounding):
			if props[domain.FieldProtectedAreaName] != nil {
				p.errorf("feature %d: surrounding piece with %s=%v", i, domain.FieldProtectedAreaName, props[domain.FieldProtectedAreaName])
			}
			if interiorHa != 0 {
				p.errorf("feature %d: surrounding piece with %s=%g", i, domain.FieldAreaInteriorHa, interiorHa)
			}
			if !relEq(surroundingHa, areaHa) {
				p.errorf("feature %d: %s=%g but %s=%g", i, domain.FieldAreaSurroundingHa, surroundingHa, domain.FieldAreaHa, areaHa)
			}
		}
	}
	return p
}

func validateAreas(fc *geojson.FeatureCollection) *phase {
	p := &phase{name: "Geodesic area"}
	for i, f := range fc.Features {
		got := f.Properties.MustFloat64(domain.FieldAreaHa, math.NaN())
		want := domain.GeodesicAreaHa(f.Geometry)
		if !relEq(got, want) {
			p.errorf("feature %d: %s=%g, geometry measures %g", i, domain.FieldAreaHa, got, want)
		}
		if got <= 0 {
			p.errorf("feature %d: non-positive %s=%g", i, domain.FieldAreaHa, got)
		}
	}
	return p
}

func validateDerived(fc *geojson.FeatureCollection) *phase {
	p := &phase{name: "Derived attributes"}
	for i, f := range fc.Features {
		props := f.Properties

		class := props.MustString(domain.FieldClass, "")
		want := domain.Classify(class)
		got := props.MustString(domain.FieldCategory, "")
		if string(want) != got {
			p.errorf("feature %d: %s=%q classifies as %q, published %q", i, domain.FieldClass, class, want, got)
		}

		date := props.MustString(domain.FieldDate, "")
		if date == "" {
			for _, k := range []string{domain.FieldYear, domain.FieldMonthName, domain.FieldMonthNumber} {
				if props[k] != nil {
					p.errorf("feature %d: undated piece with %s=%v", i, k, props[k])
				}
			}
			continue
		}
		t, ok := domain.ParseCaptureDate(date)
		if !ok {
			p.errorf("feature %d: unparseable %s=%q", i, domain.FieldDate, date)
			continue
		}
		if y := int(props.MustFloat64(domain.FieldYear, 0)); y != t.Year() {
			p.errorf("feature %d: %s=%d but %s=%s", i, domain.FieldYear, y, domain.FieldDate, date)
		}
		if m := props.MustString(domain.FieldMonthNumber, ""); m != fmt.Sprintf("%02d", int(t.Month())) {
			p.errorf("feature %d: %s=%q but %s=%s", i, domain.FieldMonthNumber, m, domain.FieldDate, date)
		}
		if m := props.MustString(domain.FieldMonthName, ""); m != t.Format("Jan") {
			p.errorf("feature %d: %s=%q but %s=%s", i, domain.FieldMonthName, m, domain.FieldDate, date)
		}
	}
	return p
}

// validateConservation compares the published area with the incident area.
// Pieces carry no incident key, so the check is over totals.
func validateConservation(fc *geojson.FeatureCollection, incidents []domain.Incident) *phase {
	p := &phase{name: "Area conservation"}
	var published, source float64
	for _, f := range fc.Features {
		published += f.Properties.MustFloat64(domain.FieldAreaHa, 0)
	}
	for _, inc := range incidents {
		source += domain.GeodesicAreaHa(inc.Geometry)
	}
	if math.Abs(published-source) > 1e-4*math.Max(source, 1) {
		p.errorf("published %s total %.4f, incidents total %.4f", domain.FieldAreaHa, published, source)
	}
	return p
}

func validateJoin(fc *geojson.FeatureCollection, areas []domain.ProtectedArea) *phase {
	p := &phase{name: "Boundary join"}
	lookups := make([]domain.Lookup, len(domain.JoinAttributes))
	for i, attr := range domain.JoinAttributes {
		lookups[i] = domain.BuildLookup(attr, areas)
	}

	for i, f := range fc.Features {
		name := f.Properties.MustString(domain.FieldProtectedAreaName, "")
		if name == "" {
			continue
		}
		for _, l := range lookups {
			want, ok := l.Get(name)
			if !ok {
				p.errorf("feature %d: %s=%q not in boundary file", i, domain.FieldProtectedAreaName, name)
				break
			}
			field := l.Attribute.String()
			if got := text(f.Properties[field]); got != want {
				p.errorf("feature %d: %s=%q, boundary file has %q", i, field, got, want)
			}
		}
	}
	return p
}

// ── Helpers ──

func relEq(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return false
	}
	return math.Abs(a-b) <= areaTolerance*math.Max(math.Abs(b), 1)
}

func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
