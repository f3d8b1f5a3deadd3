// Package domain models burned-area incidents and the protected-area network
// they are overlaid against.
//
// # Data Source
//
// Incidents are polygon records of burned area mapped by fire brigades and
// stored in a PostGIS table, one table per campaign year (dmif_fogo.aaf_2024).
// Protected-area boundaries come from the national registry extract
// Limites_UCs_2024.shp. Both are in SIRGAS 2000 geographic coordinates
// (EPSG:4674), longitude first.
//
// # Source Conventions
//
// Capture date:
//
//	"data_img" is free text after the shapefile bridge. Accepted layouts are
//	"2024-07-15", "2024-07-15 00:00:00", RFC 3339, "2024/07/15" and
//	"15/07/2024". Blank values and the literals "None", "NaT" and "NULL"
//	mean the capture date is unknown.
//
// Incident class:
//
//	"classe" holds the brigade's classification of the burn. Two closed
//	vocabularies map it to a category; anything else leaves the category
//	unset:
//
//	  prevencao: queima controlada, queima prescrita, aceiro, indigena
//	  combate:   fogo natural, incendio
//
//	Matching ignores case but not accents ("incêndio" does not match).
//	English renderings of the same terms are accepted as well.
//
// Month fields:
//
//	"mes_nome" is the abbreviated English month name (Jan..Dec) and
//	"mes_num" the zero-padded month number ("01".."12"). Both are unset when
//	the capture date is unknown.
//
// # Overlay
//
// Each incident is split into interior pieces, one per protected area it
// intersects, and at most one surrounding piece holding whatever lies
// outside every protected area. Areas are geodesic hectares on the GRS80
// ellipsoid. See [GeodesicAreaHa].
//
// # Published Schema
//
// The hosted layer keeps the field names of the historical dataset. The
// mapping from [OutputFeature] to layer fields lives in [OutputFeature.Properties].
package domain
