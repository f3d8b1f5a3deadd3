package kafka

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/wildfire-etl/internal/domain"
)

func testReport() *domain.RunReport {
	return &domain.RunReport{
		RunID:            "run-1",
		SourceTable:      "dmif_fogo.aaf_2024",
		StartedAt:        time.Date(2024, 9, 1, 3, 0, 0, 0, time.UTC),
		FinishedAt:       time.Date(2024, 9, 1, 3, 4, 30, 0, time.UTC),
		Incidents:        10,
		InteriorPieces:   4,
		Published:        12,
		AreaByCategoryHa: map[string]float64{"combate": 120.5},
	}
}

func TestSerializeToMessage(t *testing.T) {
	report := testReport()

	msg, err := serializeToMessage(report)
	require.NoError(t, err)

	assert.Equal(t, []byte("run-1"), msg.Key)

	var decoded domain.RunReport
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "dmif_fogo.aaf_2024", decoded.SourceTable)
	assert.Equal(t, 12, decoded.Published)
	assert.InDelta(t, 120.5, decoded.AreaByCategoryHa["combate"], 1e-9)

	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "status", msg.Headers[0].Key)
	assert.Equal(t, []byte("success"), msg.Headers[0].Value)
	assert.Equal(t, "dry_run", msg.Headers[1].Key)
	assert.Equal(t, []byte("false"), msg.Headers[1].Value)
	assert.Equal(t, "finished_at", msg.Headers[2].Key)
	assert.Equal(t, []byte("2024-09-01T03:04:30Z"), msg.Headers[2].Value)
}

func TestSerializeToMessage_FailedRun(t *testing.T) {
	report := testReport()
	report.DryRun = true
	report.Finish(errors.New("load boundaries: no such file"))

	msg, err := serializeToMessage(report)
	require.NoError(t, err)

	assert.Equal(t, []byte("failed"), msg.Headers[0].Value)
	assert.Equal(t, []byte("true"), msg.Headers[1].Value)
	assert.Contains(t, string(msg.Value), `"error":"load boundaries: no such file"`)
}
