package domain

import "time"

// RunReport summarises one ETL run.
type RunReport struct {
	RunID       string    `json:"run_id"`
	SourceTable string    `json:"source_table"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`

	Incidents      int `json:"incidents"`
	ProtectedAreas int `json:"protected_areas"`
	Unclassified   int `json:"unclassified"`
	UndatedCount   int `json:"undated"`

	InteriorPieces    int `json:"interior_pieces"`
	SurroundingPieces int `json:"surrounding_pieces"`
	Published         int `json:"published"`

	AreaInteriorHa    float64            `json:"area_interior_ha"`
	AreaSurroundingHa float64            `json:"area_surrounding_ha"`
	AreaByCategoryHa  map[string]float64 `json:"area_by_category_ha"`

	DuplicateNames []string `json:"duplicate_names,omitempty"`
	DryRun         bool     `json:"dry_run"`
	Error          string   `json:"error,omitempty"`
}

// NewRunReport starts a report stamped with the package clock.
func NewRunReport(runID, sourceTable string) *RunReport {
	return &RunReport{
		RunID:            runID,
		SourceTable:      sourceTable,
		StartedAt:        clock.Now().UTC(),
		AreaByCategoryHa: make(map[string]float64),
	}
}

// Finish stamps the end time and records the run error, if any.
func (r *RunReport) Finish(err error) {
	r.FinishedAt = clock.Now().UTC()
	if err != nil {
		r.Error = err.Error()
	}
}

// Duration is the wall time between start and finish.
func (r *RunReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// AddFeatures tallies piece counts and area totals of the final feature set.
func (r *RunReport) AddFeatures(features []OutputFeature) {
	for _, f := range features {
		switch f.Location {
		case LocationInterior:
			r.InteriorPieces++
		case LocationSurrounding:
			r.SurroundingPieces++
		}
		r.AreaInteriorHa += f.AreaInteriorHa
		r.AreaSurroundingHa += f.AreaSurroundingHa

		key := string(f.Category)
		if key == "" {
			key = "unclassified"
		}
		r.AreaByCategoryHa[key] += f.AreaHa
	}
}
