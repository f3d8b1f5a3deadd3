package domain

import "sort"

// JoinAttribute is one protected-area attribute copied onto output features
// by name.
type JoinAttribute int

const (
	JoinRegistryCode JoinAttribute = iota
	JoinBiome
	JoinManagementRegionName
	JoinAdminRegionCode
	JoinAdminRegionName
)

// JoinAttributes lists every joined attribute in application order.
var JoinAttributes = []JoinAttribute{
	JoinRegistryCode,
	JoinBiome,
	JoinManagementRegionName,
	JoinAdminRegionCode,
	JoinAdminRegionName,
}

// String returns the published field name.
func (a JoinAttribute) String() string {
	switch a {
	case JoinRegistryCode:
		return FieldRegistryCode
	case JoinBiome:
		return FieldBiome
	case JoinManagementRegionName:
		return FieldManagementRegionName
	case JoinAdminRegionCode:
		return FieldAdminRegionCode
	case JoinAdminRegionName:
		return FieldAdminRegionName
	default:
		return "unknown"
	}
}

func (a JoinAttribute) from(pa ProtectedArea) string {
	switch a {
	case JoinRegistryCode:
		return pa.RegistryCode
	case JoinBiome:
		return pa.Biome
	case JoinManagementRegionName:
		return pa.ManagementRegionName
	case JoinAdminRegionCode:
		return pa.AdminRegionCode
	case JoinAdminRegionName:
		return pa.AdminRegionName
	default:
		return ""
	}
}

func (a JoinAttribute) set(f *OutputFeature, v string) {
	switch a {
	case JoinRegistryCode:
		f.ProtectedAreaCode = v
	case JoinBiome:
		f.Biome = v
	case JoinManagementRegionName:
		f.ManagementRegionName = v
	case JoinAdminRegionCode:
		f.AdminRegionCode = v
	case JoinAdminRegionName:
		f.AdminRegionName = v
	}
}

// Lookup maps protected-area names to the value of one attribute.
type Lookup struct {
	Attribute JoinAttribute
	values    map[string]string
}

// BuildLookup indexes areas by name for one attribute. When names repeat the
// last area wins. Areas without a name are skipped.
func BuildLookup(attr JoinAttribute, areas []ProtectedArea) Lookup {
	values := make(map[string]string, len(areas))
	for _, pa := range areas {
		if pa.Name == "" {
			continue
		}
		values[pa.Name] = attr.from(pa)
	}
	return Lookup{Attribute: attr, values: values}
}

// Get returns the attribute value for the named protected area.
func (l Lookup) Get(name string) (string, bool) {
	v, ok := l.values[name]
	return v, ok
}

// Len returns the number of distinct names indexed.
func (l Lookup) Len() int {
	return len(l.values)
}

// DuplicateNames returns the sorted protected-area names that appear more
// than once.
func DuplicateNames(areas []ProtectedArea) []string {
	seen := make(map[string]int, len(areas))
	for _, pa := range areas {
		if pa.Name != "" {
			seen[pa.Name]++
		}
	}
	var dups []string
	for name, n := range seen {
		if n > 1 {
			dups = append(dups, name)
		}
	}
	sort.Strings(dups)
	return dups
}

// Join overwrites the joined attributes of every feature whose protected
// area name matches a boundary record. Features without a match keep their
// values. The input slice is left untouched.
func Join(features []OutputFeature, areas []ProtectedArea) []OutputFeature {
	lookups := make([]Lookup, len(JoinAttributes))
	for i, attr := range JoinAttributes {
		lookups[i] = BuildLookup(attr, areas)
	}
	return JoinWith(features, lookups)
}

// JoinWith applies prebuilt lookups in order.
func JoinWith(features []OutputFeature, lookups []Lookup) []OutputFeature {
	out := make([]OutputFeature, len(features))
	for i, f := range features {
		f.Attributes = f.Attributes.Clone()
		if f.ProtectedAreaName != "" {
			for _, l := range lookups {
				if v, ok := l.Get(f.ProtectedAreaName); ok {
					l.Attribute.set(&f, v)
				}
			}
		}
		out[i] = f
	}
	return out
}
