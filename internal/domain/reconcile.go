package domain

import "strings"

// droppedFields are source bookkeeping columns that never reach the layer.
// Keys are lower case; matching ignores case.
var droppedFields = map[string]struct{}{
	"pk_aaf":   {},
	"data_img": {},
	"brigada":  {},
	"pk_ordem": {},
	"uf":       {},
	"num_brig": {},
	"hectares": {},
	"grupo":    {},
	"cr_nome":  {},
	"gr":       {},
	"criacao":  {},
}

// IsDroppedField reports whether a passthrough column is pruned before
// publishing. Any FID_* column left over from an overlay is pruned too.
func IsDroppedField(name string) bool {
	key := strings.ToLower(name)
	if _, ok := droppedFields[key]; ok {
		return true
	}
	return strings.HasPrefix(key, "fid_")
}

// PruneAttributes returns a copy of attrs without the dropped fields.
func PruneAttributes(attrs Attributes) Attributes {
	out := make(Attributes, len(attrs))
	for k, v := range attrs {
		if !IsDroppedField(k) {
			out[k] = v
		}
	}
	return out
}

// CoalesceAreas replaces unset area subfields with zero. Applying it twice
// gives the same result as applying it once.
func CoalesceAreas(p Piece) Piece {
	if p.AreaInteriorHa == nil {
		p.AreaInteriorHa = new(float64)
	}
	if p.AreaSurroundingHa == nil {
		p.AreaSurroundingHa = new(float64)
	}
	return p
}

// Reconcile turns overlay pieces into output features: area_ha is computed
// from the piece geometry, area subfields are zero-filled, bookkeeping
// columns are pruned, and interior pieces take the protected area's name
// and code as their canonical identity.
func Reconcile(pieces []Piece) []OutputFeature {
	out := make([]OutputFeature, len(pieces))
	for i, p := range pieces {
		out[i] = reconcilePiece(CoalesceAreas(p))
	}
	return out
}

func reconcilePiece(p Piece) OutputFeature {
	attrs := p.Incident.Attributes.Clone()
	for k, v := range p.JoinedAttributes {
		if _, ok := attrs[k]; !ok {
			attrs[k] = v
		}
	}

	inc := p.Incident
	f := OutputFeature{
		Geometry:          p.Geometry,
		Location:          p.Location,
		Class:             inc.Class,
		Date:              inc.Date,
		Year:              inc.Year,
		MonthName:         inc.MonthName,
		MonthNumber:       inc.MonthNumber,
		Category:          inc.Category,
		AreaHa:            GeodesicAreaHa(p.Geometry),
		AreaInteriorHa:    *p.AreaInteriorHa,
		AreaSurroundingHa: *p.AreaSurroundingHa,
		Attributes:        PruneAttributes(attrs),
	}
	if p.Location == LocationInterior {
		f.ProtectedAreaName = p.JoinedName
		f.ProtectedAreaCode = p.JoinedCode
	}
	return f
}
