package domain

import (
	"strings"
	"time"

	"github.com/paulmach/orb"
)

// Source and published field names.
const (
	FieldClass       = "classe"
	FieldDateImg     = "data_img"
	FieldDate        = "data"
	FieldYear        = "ano"
	FieldMonthName   = "mes_nome"
	FieldMonthNumber = "mes_num"
	FieldCategory    = "categoria"
	FieldLocation    = "local"

	FieldAreaHa            = "area_ha"
	FieldAreaInteriorHa    = "area_uc"
	FieldAreaSurroundingHa = "area_ent"

	FieldProtectedAreaName    = "nome_uc"
	FieldRegistryCode         = "cnuc"
	FieldBiome                = "bioma"
	FieldManagementRegionName = "ngi"
	FieldAdminRegionName      = "gr_nome"
	FieldAdminRegionCode      = "cr"
)

// publishedFields are the canonical layer fields written by Properties.
var publishedFields = []string{
	FieldClass, FieldDate, FieldYear, FieldMonthName, FieldMonthNumber, FieldCategory, FieldLocation,
	FieldAreaHa, FieldAreaInteriorHa, FieldAreaSurroundingHa,
	FieldProtectedAreaName, FieldRegistryCode, FieldBiome,
	FieldManagementRegionName, FieldAdminRegionName, FieldAdminRegionCode,
}

// IsPublishedField reports whether name matches a canonical layer field,
// ignoring case.
func IsPublishedField(name string) bool {
	for _, f := range publishedFields {
		if strings.EqualFold(name, f) {
			return true
		}
	}
	return false
}

// Attributes holds passthrough columns keyed by their source name.
type Attributes map[string]any

// Clone returns a shallow copy. A nil receiver yields an empty map.
func (a Attributes) Clone() Attributes {
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Category groups incidents by the purpose of the burn.
type Category string

const (
	CategoryPrevention Category = "prevencao"
	CategoryCombat     Category = "combate"
)

// Location tells whether a piece lies inside a protected area or around it.
type Location string

const (
	LocationInterior    Location = "interior"
	LocationSurrounding Location = "entorno"
)

// Incident is one burned-area polygon record from the source table.
type Incident struct {
	// Geometry is an orb.Polygon or orb.MultiPolygon in lon/lat degrees.
	Geometry orb.Geometry

	Class   string
	DateImg string

	// Derived by DeriveAttributes. Nil or empty means unset.
	Date        *time.Time
	Year        *int
	MonthName   string
	MonthNumber string
	Category    Category

	// Attributes carries the remaining source columns unchanged.
	Attributes Attributes
}

// ProtectedArea is one conservation-unit boundary. Name is the join key.
type ProtectedArea struct {
	Geometry orb.Geometry

	Name                 string
	RegistryCode         string
	Biome                string
	ManagementRegionName string
	AdminRegionCode      string
	AdminRegionName      string

	Attributes Attributes
}

// Piece is a fragment of an incident produced by the overlay. Interior
// pieces carry the raw identity of the protected area they fall in;
// surrounding pieces leave those fields empty.
type Piece struct {
	Incident Incident
	Geometry orb.MultiPolygon
	Location Location

	// Exactly one of these is set, matching Location.
	AreaInteriorHa    *float64
	AreaSurroundingHa *float64

	JoinedName       string
	JoinedCode       string
	JoinedAttributes Attributes
}

// OutputFeature is one record of the published layer.
type OutputFeature struct {
	Geometry orb.MultiPolygon
	Location Location

	Class       string
	Date        *time.Time
	Year        *int
	MonthName   string
	MonthNumber string
	Category    Category

	AreaHa            float64
	AreaInteriorHa    float64
	AreaSurroundingHa float64

	ProtectedAreaName    string
	ProtectedAreaCode    string
	Biome                string
	ManagementRegionName string
	AdminRegionCode      string
	AdminRegionName      string

	Attributes Attributes
}

// Properties flattens the feature into the published field layout. Unset
// values are nil so they reach the layer as nulls. Passthrough columns that
// shadow a canonical field in any letter case are left out.
func (f OutputFeature) Properties() map[string]any {
	props := make(map[string]any, len(f.Attributes)+len(publishedFields))
	for k, v := range f.Attributes {
		if !IsPublishedField(k) {
			props[k] = v
		}
	}

	props[FieldClass] = nullString(f.Class)
	props[FieldLocation] = string(f.Location)
	props[FieldCategory] = nullString(string(f.Category))
	props[FieldMonthName] = nullString(f.MonthName)
	props[FieldMonthNumber] = nullString(f.MonthNumber)
	props[FieldDate] = nil
	if f.Date != nil {
		props[FieldDate] = f.Date.Format(time.DateOnly)
	}
	props[FieldYear] = nil
	if f.Year != nil {
		props[FieldYear] = *f.Year
	}

	props[FieldAreaHa] = f.AreaHa
	props[FieldAreaInteriorHa] = f.AreaInteriorHa
	props[FieldAreaSurroundingHa] = f.AreaSurroundingHa

	props[FieldProtectedAreaName] = nullString(f.ProtectedAreaName)
	props[FieldRegistryCode] = nullString(f.ProtectedAreaCode)
	props[FieldBiome] = nullString(f.Biome)
	props[FieldManagementRegionName] = nullString(f.ManagementRegionName)
	props[FieldAdminRegionCode] = nullString(f.AdminRegionCode)
	props[FieldAdminRegionName] = nullString(f.AdminRegionName)
	return props
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
