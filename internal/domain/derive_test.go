package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUnknownClass = "unknown type"

func TestClassify(t *testing.T) {
	tests := []struct {
		class string
		want  Category
	}{
		{"Queima Controlada", CategoryPrevention},
		{"queima prescrita", CategoryPrevention},
		{"ACEIRO", CategoryPrevention},
		{"Indigena", CategoryPrevention},
		{"  aceiro  ", CategoryPrevention},
		{"controlled burn", CategoryPrevention},
		{"INCENDIO", CategoryCombat},
		{"Fogo Natural", CategoryCombat},
		{"Wildfire", CategoryCombat},
		{testUnknownClass, ""},
		{"incêndio", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.class, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.class))
		})
	}
}

func TestParseCaptureDate(t *testing.T) {
	want := time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC)

	for _, s := range []string{"2024-07-15", "2024-07-15 00:00:00", "2024-07-15T10:30:00Z", "2024/07/15", "15/07/2024"} {
		t.Run(s, func(t *testing.T) {
			got, ok := ParseCaptureDate(s)
			require.True(t, ok)
			assert.Equal(t, want, got)
		})
	}

	for _, s := range []string{"", "None", "NaT", "null", "not a date"} {
		t.Run("unset "+s, func(t *testing.T) {
			_, ok := ParseCaptureDate(s)
			assert.False(t, ok)
		})
	}
}

func TestDeriveAttributes(t *testing.T) {
	t.Run("dated incident", func(t *testing.T) {
		in := []Incident{{Class: "Incendio", DateImg: "2024-07-15", Attributes: Attributes{"pk_aaf": 7}}}
		out := DeriveAttributes(in)

		require.Len(t, out, 1)
		got := out[0]
		require.NotNil(t, got.Date)
		require.NotNil(t, got.Year)
		assert.Equal(t, 2024, *got.Year)
		assert.Equal(t, "Jul", got.MonthName)
		assert.Equal(t, "07", got.MonthNumber)
		assert.Equal(t, CategoryCombat, got.Category)
		assert.Equal(t, 7, got.Attributes["pk_aaf"])
	})

	t.Run("undated incident leaves date fields unset", func(t *testing.T) {
		out := DeriveAttributes([]Incident{{Class: testUnknownClass, DateImg: "None"}})

		got := out[0]
		assert.Nil(t, got.Date)
		assert.Nil(t, got.Year)
		assert.Empty(t, got.MonthName)
		assert.Empty(t, got.MonthNumber)
		assert.Empty(t, got.Category)
	})

	t.Run("input is not modified", func(t *testing.T) {
		in := []Incident{{Class: "aceiro", DateImg: "2024-01-02", Attributes: Attributes{"a": 1}}}
		out := DeriveAttributes(in)
		out[0].Attributes["a"] = 2

		assert.Empty(t, in[0].Category)
		assert.Nil(t, in[0].Date)
		assert.Equal(t, 1, in[0].Attributes["a"])
	})
}
