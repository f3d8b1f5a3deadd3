package domain

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/tidwall/geodesic"
)

// GRS80 is the reference ellipsoid of SIRGAS 2000.
var GRS80 = geodesic.NewEllipsoid(6378137, 1/298.257222101)

const squareMetersPerHectare = 10_000

// GeodesicAreaHa returns the ellipsoidal area of a polygonal geometry in
// hectares. Holes are subtracted; non-polygonal geometries have zero area.
func GeodesicAreaHa(g orb.Geometry) float64 {
	return geodesicArea(g) / squareMetersPerHectare
}

func geodesicArea(g orb.Geometry) float64 {
	switch g := g.(type) {
	case orb.Polygon:
		return polygonArea(g)
	case orb.MultiPolygon:
		var sum float64
		for _, p := range g {
			sum += polygonArea(p)
		}
		return sum
	case orb.Collection:
		var sum float64
		for _, c := range g {
			sum += geodesicArea(c)
		}
		return sum
	}
	return 0
}

func polygonArea(p orb.Polygon) float64 {
	if len(p) == 0 {
		return 0
	}
	area := ringArea(p[0])
	for _, hole := range p[1:] {
		area -= ringArea(hole)
	}
	return math.Max(area, 0)
}

func ringArea(r orb.Ring) float64 {
	pts := r
	if len(pts) > 1 && r.Closed() {
		pts = pts[:len(pts)-1]
	}
	if len(pts) < 3 {
		return 0
	}

	poly := GRS80.PolygonInit(false)
	for _, pt := range pts {
		poly.AddPoint(pt.Lat(), pt.Lon())
	}
	var area float64
	poly.Compute(false, true, &area, nil)
	return math.Abs(area)
}
