// Package overlay splits incidents into pieces inside and around protected
// areas using GEOS.
package overlay

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/twpayne/go-geos"

	"github.com/couchcryptid/wildfire-etl/internal/domain"
)

var (
	// ErrUnrepairableGeometry is returned when an input geometry is empty or
	// still invalid after repair.
	ErrUnrepairableGeometry = errors.New("unrepairable geometry")

	// ErrOverlay wraps a GEOS failure during intersection or difference.
	ErrOverlay = errors.New("overlay failed")
)

// Partitioner computes interior and surrounding pieces.
type Partitioner struct {
	logger *slog.Logger
}

// NewPartitioner creates a Partitioner.
func NewPartitioner(logger *slog.Logger) *Partitioner {
	return &Partitioner{logger: logger}
}

type preparedArea struct {
	area  domain.ProtectedArea
	geom  *geos.Geom
	bound orb.Bound
}

// Partition repairs every incident, intersects it with each protected area
// and erases the union of all protected areas from it. Interior pieces come
// first in incident order, followed by surrounding pieces. Pieces are not
// deduplicated.
//
// All GEOS handles live in a context scoped to this call.
func (p *Partitioner) Partition(incidents []domain.Incident, areas []domain.ProtectedArea) (pieces []domain.Piece, err error) {
	defer recoverInto(&err, ErrOverlay)

	gctx := geos.NewContext()

	prepared := make([]preparedArea, 0, len(areas))
	geoms := make([]*geos.Geom, 0, len(areas))
	for i, a := range areas {
		g, err := repair(gctx, a.Geometry)
		if err != nil {
			return nil, fmt.Errorf("protected area %d (%q): %w", i, a.Name, err)
		}
		prepared = append(prepared, preparedArea{area: a, geom: g, bound: a.Geometry.Bound()})
		geoms = append(geoms, g)
	}

	var union *geos.Geom
	if len(geoms) > 0 {
		union = gctx.NewCollection(geos.TypeIDGeometryCollection, geoms).UnaryUnion()
	}

	var interior, surrounding []domain.Piece
	for i, inc := range incidents {
		g, err := repair(gctx, inc.Geometry)
		if err != nil {
			return nil, fmt.Errorf("incident %d: %w", i, err)
		}
		bound := inc.Geometry.Bound()

		for _, pa := range prepared {
			if !bound.Intersects(pa.bound) || !g.Intersects(pa.geom) {
				continue
			}
			mp, err := polygonal(g.Intersection(pa.geom))
			if err != nil {
				return nil, fmt.Errorf("incident %d, protected area %q: %w", i, pa.area.Name, err)
			}
			if len(mp) == 0 {
				continue
			}
			area := domain.GeodesicAreaHa(mp)
			interior = append(interior, domain.Piece{
				Incident:         inc,
				Geometry:         mp,
				Location:         domain.LocationInterior,
				AreaInteriorHa:   &area,
				JoinedName:       pa.area.Name,
				JoinedCode:       pa.area.RegistryCode,
				JoinedAttributes: pa.area.Attributes.Clone(),
			})
		}

		remainder := g
		if union != nil {
			remainder = g.Difference(union)
		}
		mp, err := polygonal(remainder)
		if err != nil {
			return nil, fmt.Errorf("incident %d: %w", i, err)
		}
		if len(mp) == 0 {
			continue
		}
		area := domain.GeodesicAreaHa(mp)
		surrounding = append(surrounding, domain.Piece{
			Incident:          inc,
			Geometry:          mp,
			Location:          domain.LocationSurrounding,
			AreaSurroundingHa: &area,
		})
	}

	p.logger.Info("overlay complete",
		"incidents", len(incidents),
		"protected_areas", len(areas),
		"interior_pieces", len(interior),
		"surrounding_pieces", len(surrounding),
	)

	return append(interior, surrounding...), nil
}

// repair converts g to GEOS, fixes it with MakeValid when needed and keeps
// only its polygonal part.
func repair(gctx *geos.Context, g orb.Geometry) (repaired *geos.Geom, err error) {
	defer recoverInto(&err, ErrUnrepairableGeometry)

	if g == nil {
		return nil, fmt.Errorf("%w: missing geometry", ErrUnrepairableGeometry)
	}
	gg, err := toGEOS(gctx, g)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnrepairableGeometry, err)
	}
	if gg.IsValid() {
		if gg.IsEmpty() {
			return nil, fmt.Errorf("%w: empty geometry", ErrUnrepairableGeometry)
		}
		return gg, nil
	}

	mp, err := polygonal(gg.MakeValid())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnrepairableGeometry, err)
	}
	if len(mp) == 0 {
		return nil, fmt.Errorf("%w: empty after repair", ErrUnrepairableGeometry)
	}
	fixed, err := toGEOS(gctx, mp)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnrepairableGeometry, err)
	}
	if !fixed.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrUnrepairableGeometry, fixed.IsValidReason())
	}
	return fixed, nil
}

func toGEOS(gctx *geos.Context, g orb.Geometry) (*geos.Geom, error) {
	b, err := wkb.Marshal(g)
	if err != nil {
		return nil, fmt.Errorf("encode wkb: %w", err)
	}
	gg, err := gctx.NewGeomFromWKB(b)
	if err != nil {
		return nil, fmt.Errorf("decode wkb: %w", err)
	}
	return gg, nil
}

// polygonal returns the polygons contained in g, dropping points, lines and
// empty parts that overlay operations leave behind on shared edges.
func polygonal(g *geos.Geom) (orb.MultiPolygon, error) {
	if g == nil || g.IsEmpty() {
		return nil, nil
	}
	og, err := wkb.Unmarshal(g.ToWKB())
	if err != nil {
		return nil, fmt.Errorf("decode wkb: %w", err)
	}
	return collectPolygons(nil, og), nil
}

func collectPolygons(dst orb.MultiPolygon, g orb.Geometry) orb.MultiPolygon {
	switch g := g.(type) {
	case orb.Polygon:
		if len(g) > 0 && len(g[0]) > 0 {
			dst = append(dst, g)
		}
	case orb.MultiPolygon:
		for _, p := range g {
			dst = collectPolygons(dst, p)
		}
	case orb.Collection:
		for _, c := range g {
			dst = collectPolygons(dst, c)
		}
	}
	return dst
}

// recoverInto turns a GEOS panic into an error wrapping sentinel.
func recoverInto(err *error, sentinel error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%w: %v", sentinel, r)
	}
}
