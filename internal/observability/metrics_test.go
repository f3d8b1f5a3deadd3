package observability

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_FreshRegistryPerCall(t *testing.T) {
	a := NewMetrics()
	b := NewMetrics()

	a.IncidentsLoaded.Add(3)

	families, err := b.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == "wildfire_etl_incidents_loaded_total" {
			assert.Zero(t, mf.GetMetric()[0].GetCounter().GetValue())
		}
	}
}

func TestPusher_Push(t *testing.T) {
	var method, path, body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		path = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := NewMetrics()
	m.IncidentsLoaded.Add(12)
	m.Pieces.WithLabelValues("interior").Add(4)

	require.NoError(t, NewPusher(srv.URL, "wildfire-etl", m).Push(context.Background()))

	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/metrics/job/wildfire-etl", path)
	assert.Contains(t, body, "wildfire_etl_incidents_loaded_total")
	assert.Contains(t, body, "wildfire_etl_pieces_total")
}

func TestPusher_GatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := NewPusher(srv.URL, "wildfire-etl", NewMetrics()).Push(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "push metrics")
}
