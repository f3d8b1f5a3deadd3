package shapefile

import (
	"context"
	"fmt"
	"strings"

	"github.com/couchcryptid/wildfire-etl/internal/domain"
)

// BoundaryFields names the DBF columns holding protected-area identity and
// metadata.
type BoundaryFields struct {
	Name                 string
	RegistryCode         string
	Biome                string
	ManagementRegionName string
	AdminRegionCode      string
	AdminRegionName      string
}

// DefaultBoundaryFields matches the national registry extract.
var DefaultBoundaryFields = BoundaryFields{
	Name:                 "nome_uc",
	RegistryCode:         "cnuc",
	Biome:                "bioma",
	ManagementRegionName: "ngi",
	AdminRegionCode:      "cr",
	AdminRegionName:      "gr_nome",
}

// ReadProtectedAreas loads boundaries from a polygon shapefile. Column
// names are matched ignoring case; unmapped columns become passthrough
// attributes.
func ReadProtectedAreas(path string, bf BoundaryFields) ([]domain.ProtectedArea, error) {
	records, err := readRecords(path)
	if err != nil {
		return nil, err
	}
	if len(records) > 0 && !hasColumn(records[0].order, bf.Name) {
		return nil, fmt.Errorf("boundary file %s has no %s column", path, bf.Name)
	}

	areas := make([]domain.ProtectedArea, len(records))
	for i, rec := range records {
		pa := domain.ProtectedArea{Geometry: rec.geometry, Attributes: make(domain.Attributes)}
		for _, name := range rec.order {
			v := rec.fields[name]
			switch {
			case strings.EqualFold(name, bf.Name):
				pa.Name = text(v)
			case strings.EqualFold(name, bf.RegistryCode):
				pa.RegistryCode = text(v)
			case strings.EqualFold(name, bf.Biome):
				pa.Biome = text(v)
			case strings.EqualFold(name, bf.ManagementRegionName):
				pa.ManagementRegionName = text(v)
			case strings.EqualFold(name, bf.AdminRegionCode):
				pa.AdminRegionCode = text(v)
			case strings.EqualFold(name, bf.AdminRegionName):
				pa.AdminRegionName = text(v)
			default:
				pa.Attributes[name] = v
			}
		}
		areas[i] = pa
	}
	return areas, nil
}

// WriteProtectedAreas writes boundaries with the given column names.
func WriteProtectedAreas(path string, bf BoundaryFields, areas []domain.ProtectedArea) error {
	keys := []string{bf.Name, bf.RegistryCode, bf.Biome, bf.ManagementRegionName, bf.AdminRegionCode, bf.AdminRegionName}
	records := make([]record, len(areas))
	for i, pa := range areas {
		records[i] = record{geometry: pa.Geometry, fields: map[string]any{
			bf.Name:                 pa.Name,
			bf.RegistryCode:         pa.RegistryCode,
			bf.Biome:                pa.Biome,
			bf.ManagementRegionName: pa.ManagementRegionName,
			bf.AdminRegionCode:      pa.AdminRegionCode,
			bf.AdminRegionName:      pa.AdminRegionName,
		}}
	}
	return writeRecords(path, keys, records)
}

func hasColumn(order []string, name string) bool {
	for _, n := range order {
		if strings.EqualFold(n, name) {
			return true
		}
	}
	return false
}

// BoundaryFile loads protected areas from a shapefile.
type BoundaryFile struct {
	path   string
	fields BoundaryFields
}

// NewBoundaryFile creates a boundary source.
func NewBoundaryFile(path string, fields BoundaryFields) *BoundaryFile {
	return &BoundaryFile{path: path, fields: fields}
}

func (b *BoundaryFile) LoadProtectedAreas(_ context.Context) ([]domain.ProtectedArea, error) {
	return ReadProtectedAreas(b.path, b.fields)
}
