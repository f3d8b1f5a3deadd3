package domain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func interiorPiece() Piece {
	return Piece{
		Incident: Incident{
			Class:    "aceiro",
			Category: CategoryPrevention,
			Attributes: Attributes{
				"pk_aaf":    1,
				"BRIGADA":   "Brigada Norte",
				"Hectares":  12.5,
				"municipio": "Formosa",
			},
		},
		Geometry:         orb.MultiPolygon{{square(0, 0, 0.01, 0.01)}},
		Location:         LocationInterior,
		AreaInteriorHa:   ptr(123.0),
		JoinedName:       "Parque Nacional da Chapada",
		JoinedCode:       "0000.00.0001",
		JoinedAttributes: Attributes{"FID_Limites_UCs_2024": 3, "Criacao": "1961", "esfera": "federal"},
	}
}

func surroundingPiece() Piece {
	return Piece{
		Incident:          Incident{Class: "incendio", Category: CategoryCombat},
		Geometry:          orb.MultiPolygon{{square(1, 1, 1.01, 1.01)}},
		Location:          LocationSurrounding,
		AreaSurroundingHa: ptr(45.0),
	}
}

func TestIsDroppedField(t *testing.T) {
	for _, name := range []string{"pk_aaf", "DATA_IMG", "BRIGADA", "UF", "NUM_BRIG", "Hectares", "Grupo", "CR_Nome", "GR", "Criacao", "FID_Limites_UCs_2024", "FID_copy_features_aaf"} {
		assert.True(t, IsDroppedField(name), name)
	}
	for _, name := range []string{"municipio", "classe", "fidelity", "grupos"} {
		assert.False(t, IsDroppedField(name), name)
	}
}

func TestCoalesceAreas(t *testing.T) {
	once := CoalesceAreas(surroundingPiece())
	require.NotNil(t, once.AreaInteriorHa)
	assert.Zero(t, *once.AreaInteriorHa)
	assert.Equal(t, 45.0, *once.AreaSurroundingHa)

	twice := CoalesceAreas(once)
	assert.Empty(t, cmp.Diff(once, twice))
}

func TestReconcile(t *testing.T) {
	out := Reconcile([]Piece{interiorPiece(), surroundingPiece()})
	require.Len(t, out, 2)

	t.Run("interior takes canonical identity", func(t *testing.T) {
		f := out[0]
		assert.Equal(t, LocationInterior, f.Location)
		assert.Equal(t, "Parque Nacional da Chapada", f.ProtectedAreaName)
		assert.Equal(t, "0000.00.0001", f.ProtectedAreaCode)
		assert.Equal(t, 123.0, f.AreaInteriorHa)
		assert.Zero(t, f.AreaSurroundingHa)
		assert.Equal(t, CategoryPrevention, f.Category)
	})

	t.Run("surrounding has no identity", func(t *testing.T) {
		f := out[1]
		assert.Empty(t, f.ProtectedAreaName)
		assert.Empty(t, f.ProtectedAreaCode)
		assert.Zero(t, f.AreaInteriorHa)
		assert.Equal(t, 45.0, f.AreaSurroundingHa)
	})

	t.Run("bookkeeping columns are pruned", func(t *testing.T) {
		want := Attributes{"municipio": "Formosa", "esfera": "federal"}
		assert.Empty(t, cmp.Diff(want, out[0].Attributes))
		assert.Empty(t, out[1].Attributes)
	})

	t.Run("area_ha is computed from geometry", func(t *testing.T) {
		for _, f := range out {
			assert.InDelta(t, GeodesicAreaHa(f.Geometry), f.AreaHa, 1e-9)
			assert.Greater(t, f.AreaHa, 0.0)
		}
	})
}

func TestOutputFeature_Properties(t *testing.T) {
	f := Reconcile([]Piece{surroundingPiece()})[0]
	props := f.Properties()

	assert.Equal(t, "entorno", props[FieldLocation])
	assert.Equal(t, "combate", props[FieldCategory])
	assert.Nil(t, props[FieldProtectedAreaName])
	assert.Nil(t, props[FieldDate])
	assert.Nil(t, props[FieldYear])
	assert.Equal(t, 0.0, props[FieldAreaInteriorHa])
	assert.NotContains(t, props, "nome_uc_1")
	assert.NotContains(t, props, "cnuc_1")
}

func TestOutputFeature_PropertiesDropsShadowedColumns(t *testing.T) {
	p := surroundingPiece()
	p.Incident.Attributes = Attributes{
		"NOME_UC":   "Parque Velho",
		"CNUC":      "0000.99",
		"Local":     "interior",
		"municipio": "Formosa",
	}
	props := Reconcile([]Piece{p})[0].Properties()

	assert.Nil(t, props[FieldProtectedAreaName])
	assert.Nil(t, props[FieldRegistryCode])
	assert.Equal(t, "entorno", props[FieldLocation])
	assert.NotContains(t, props, "NOME_UC")
	assert.NotContains(t, props, "CNUC")
	assert.NotContains(t, props, "Local")
	assert.Equal(t, "Formosa", props["municipio"])
}

func TestIsPublishedField(t *testing.T) {
	assert.True(t, IsPublishedField("nome_uc"))
	assert.True(t, IsPublishedField("AREA_HA"))
	assert.True(t, IsPublishedField("Gr_Nome"))
	assert.False(t, IsPublishedField("municipio"))
	assert.False(t, IsPublishedField("data_img"))
}
