package domain

import (
	"strings"
	"time"
)

var (
	preventionClasses = map[string]struct{}{
		"queima controlada": {},
		"queima prescrita":  {},
		"aceiro":            {},
		"indigena":          {},
		"controlled burn":   {},
		"prescribed burn":   {},
		"firebreak":         {},
		"indigenous":        {},
	}
	combatClasses = map[string]struct{}{
		"fogo natural": {},
		"incendio":     {},
		"natural fire": {},
		"wildfire":     {},
	}

	dateLayouts = []string{
		time.DateOnly,
		time.DateTime,
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006/01/02",
		"02/01/2006",
	}

	unsetDates = map[string]struct{}{"": {}, "none": {}, "nat": {}, "null": {}}
)

// Classify maps an incident class to its category. Unknown classes return
// the empty category.
func Classify(class string) Category {
	key := strings.ToLower(strings.TrimSpace(class))
	if _, ok := preventionClasses[key]; ok {
		return CategoryPrevention
	}
	if _, ok := combatClasses[key]; ok {
		return CategoryCombat
	}
	return ""
}

// ParseCaptureDate parses the textual capture date. The second return is
// false when the value is blank, a null sentinel, or in no known layout.
func ParseCaptureDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if _, ok := unsetDates[strings.ToLower(s)]; ok {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// DeriveAttributes fills the date, year, month and category fields of each
// incident. It returns a new slice; the input is not modified.
func DeriveAttributes(incidents []Incident) []Incident {
	out := make([]Incident, len(incidents))
	for i, inc := range incidents {
		out[i] = deriveIncident(inc)
	}
	return out
}

func deriveIncident(inc Incident) Incident {
	inc.Attributes = inc.Attributes.Clone()
	inc.Date, inc.Year = nil, nil
	inc.MonthName, inc.MonthNumber = "", ""

	if d, ok := ParseCaptureDate(inc.DateImg); ok {
		year := d.Year()
		inc.Date = &d
		inc.Year = &year
		inc.MonthName = d.Format("Jan")
		inc.MonthNumber = d.Format("01")
	}
	inc.Category = Classify(inc.Class)
	return inc
}
