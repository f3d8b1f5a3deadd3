// Command genmock writes a synthetic protected-area boundary shapefile and a
// matching incident shapefile for local runs and manual testing. Output is
// deterministic for a given seed.
//
// Usage:
//
//	go run ./cmd/genmock -out data/mock -incidents 60 -year 2024
//
// Then run the job offline against the generated files:
//
//	SOURCE_SHAPEFILE=data/mock/aaf_2024.shp \
//	BOUNDARY_PATH=data/mock/Limites_UCs_mock.shp \
//	DRY_RUN=true OUTPUT_GEOJSON=data/mock/aaf_2024.geojson go run ./cmd/etl
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/paulmach/orb"

	"github.com/couchcryptid/wildfire-etl/internal/adapter/shapefile"
	"github.com/couchcryptid/wildfire-etl/internal/domain"
)

type parkDef struct {
	name     string
	cnuc     string
	biome    string
	ngi      string
	cr       string
	grName   string
	lon, lat float64
	radius   float64 // degrees
}

var parks = []parkDef{
	{"Parque Nacional da Chapada dos Veadeiros", "0000.00.0161", "Cerrado", "NGI Chapada dos Veadeiros", "CR11", "Planalto Central", -47.6, -14.1, 0.35},
	{"Parque Nacional de Brasilia", "0000.00.0158", "Cerrado", "NGI Brasilia", "CR11", "Planalto Central", -48.0, -15.7, 0.15},
	{"Estacao Ecologica Serra Geral do Tocantins", "0000.00.0124", "Cerrado", "NGI Jalapao", "CR10", "Tocantins", -46.7, -10.9, 0.45},
	{"Parque Nacional do Pantanal Matogrossense", "0000.00.0170", "Pantanal", "NGI Pantanal", "CR6", "Pantanal", -57.5, -17.8, 0.3},
	{"Reserva Biologica do Gurupi", "0000.00.0088", "Amazonia", "NGI Gurupi", "CR3", "Maranhao", -46.8, -3.7, 0.3},
	{"Parque Nacional da Serra da Capivara", "0000.00.0176", "Caatinga", "NGI Serra da Capivara", "CR5", "Piaui", -42.6, -8.8, 0.25},
}

var classes = []string{
	"Incendio", "INCENDIO", "Fogo Natural", "Queima Prescrita", "queima controlada",
	"Aceiro", "Indigena", "outro",
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	outDir := flag.String("out", "data/mock", "output directory")
	count := flag.Int("incidents", 60, "number of incident polygons")
	year := flag.Int("year", time.Now().Year(), "capture year of the incidents")
	seed := flag.Uint64("seed", 1, "random seed")
	flag.Parse()

	if *count <= 0 {
		flag.Usage()
		return fmt.Errorf("-incidents must be positive")
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return err
	}

	rng := rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15))

	areas := make([]domain.ProtectedArea, len(parks))
	for i, p := range parks {
		areas[i] = domain.ProtectedArea{
			Geometry:             blob(rng, p.lon, p.lat, p.radius, 9),
			Name:                 p.name,
			RegistryCode:         p.cnuc,
			Biome:                p.biome,
			ManagementRegionName: p.ngi,
			AdminRegionCode:      p.cr,
			AdminRegionName:      p.grName,
		}
	}
	boundaryPath := filepath.Join(*outDir, "Limites_UCs_mock.shp")
	if err := shapefile.WriteProtectedAreas(boundaryPath, shapefile.DefaultBoundaryFields, areas); err != nil {
		return fmt.Errorf("writing boundaries: %w", err)
	}
	log.Printf("wrote %d protected areas: %s", len(areas), boundaryPath)

	incidents := make([]domain.Incident, *count)
	for i := range incidents {
		incidents[i] = makeIncident(rng, i, *year)
	}
	incidentPath := filepath.Join(*outDir, fmt.Sprintf("aaf_%d.shp", *year))
	if err := shapefile.WriteIncidents(incidentPath, incidents); err != nil {
		return fmt.Errorf("writing incidents: %w", err)
	}
	log.Printf("wrote %d incidents: %s", len(incidents), incidentPath)

	printStats(incidents)
	return nil
}

// makeIncident places a small polygon inside, across the edge of, or away
// from a park, in rotation.
func makeIncident(rng *rand.Rand, i, year int) domain.Incident {
	p := parks[rng.IntN(len(parks))]
	angle := rng.Float64() * 2 * math.Pi

	var dist float64
	switch i % 3 {
	case 0: // inside
		dist = p.radius * 0.3 * rng.Float64()
	case 1: // across the edge
		dist = p.radius
	default: // outside
		dist = p.radius * (2 + rng.Float64())
	}
	lon := p.lon + dist*math.Cos(angle)
	lat := p.lat + dist*math.Sin(angle)
	size := 0.01 + 0.04*rng.Float64()
	geom := blob(rng, lon, lat, size, 7)

	capture := time.Date(year, time.Month(1+rng.IntN(12)), 1+rng.IntN(28), rng.IntN(24), rng.IntN(60), 0, 0, time.UTC)

	return domain.Incident{
		Geometry: geom,
		Class:    classes[rng.IntN(len(classes))],
		DateImg:  formatDate(capture, i),
		Attributes: domain.Attributes{
			"pk_aaf":    i + 1,
			"brigada":   fmt.Sprintf("Brigada %02d", 1+rng.IntN(20)),
			"uf":        "GO",
			"hectares":  math.Round(domain.GeodesicAreaHa(geom)*100) / 100,
			"municipio": fmt.Sprintf("Municipio %d", 1+rng.IntN(50)),
		},
	}
}

// formatDate cycles through the capture date spellings seen in source tables.
func formatDate(t time.Time, i int) string {
	switch i % 6 {
	case 0:
		return t.Format(time.DateOnly)
	case 1:
		return t.Format(time.DateTime)
	case 2:
		return t.Format("2006/01/02")
	case 3:
		return t.Format("02/01/2006")
	case 4:
		return t.Format(time.RFC3339)
	default:
		return ""
	}
}

// blob returns an irregular convex-ish polygon around (lon, lat), wound
// clockwise as shapefiles expect.
func blob(rng *rand.Rand, lon, lat, radius float64, vertices int) orb.Polygon {
	ring := make(orb.Ring, 0, vertices+1)
	for k := range vertices {
		a := -2 * math.Pi * float64(k) / float64(vertices)
		r := radius * (0.75 + 0.25*rng.Float64())
		ring = append(ring, orb.Point{lon + r*math.Cos(a), lat + r*math.Sin(a)})
	}
	ring = append(ring, ring[0])
	return orb.Polygon{ring}
}

func printStats(incidents []domain.Incident) {
	derived := domain.DeriveAttributes(incidents)

	byCategory := map[string]int{}
	byClass := map[string]int{}
	undated := 0
	var total float64
	for _, inc := range derived {
		cat := string(inc.Category)
		if cat == "" {
			cat = "unclassified"
		}
		byCategory[cat]++
		byClass[inc.Class]++
		if inc.Date == nil {
			undated++
		}
		total += domain.GeodesicAreaHa(inc.Geometry)
	}

	fmt.Println("\n=== Stats for checking a run against this data ===")
	fmt.Printf("Total: %d\n", len(derived))
	fmt.Printf("By category: prevencao=%d, combate=%d, unclassified=%d\n",
		byCategory["prevencao"], byCategory["combate"], byCategory["unclassified"])
	fmt.Printf("Undated: %d\n", undated)
	fmt.Printf("Total area: %.2f ha\n", total)

	names := make([]string, 0, len(byClass))
	for n := range byClass {
		names = append(names, n)
	}
	sort.Strings(names)
	fmt.Print("By class:")
	for _, n := range names {
		fmt.Printf(" %q=%d", n, byClass[n])
	}
	fmt.Println()
}
