package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seili-tech/picostation/internal/telemetry"
)

func newTestAPIServer() *apiServer {
	s := &apiServer{}
	s.setReading(telemetry.NewReading("pico-1", time.Now(), 21.5, 100000, 43.2, 101325))
	return s
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSensorEndpoint(t *testing.T) {
	rec := get(t, newTestAPIServer().routes(), "/sensor")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var r telemetry.Reading
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &r))
	assert.Equal(t, "pico-1", r.Station)
	assert.InDelta(t, 100000.0, r.PressurePa, 1e-9)
	assert.InDelta(t, 110.9, r.AltitudeM, 0.2)
}

func TestFieldEndpoints(t *testing.T) {
	routes := newTestAPIServer().routes()

	cases := []struct {
		path string
		key  string
	}{
		{"/temperature", "temperature_f"},
		{"/pressure", "pressure_pa"},
		{"/humidity", "humidity_percent"},
		{"/altitude", "altitude_ft"},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			rec := get(t, routes, tc.path)
			require.Equal(t, http.StatusOK, rec.Code)

			var body map[string]float64
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			require.Len(t, body, 1)
			assert.Contains(t, body, tc.key)
		})
	}
}

func TestEndpointsBeforeFirstReading(t *testing.T) {
	routes := (&apiServer{}).routes()
	assert.Equal(t, http.StatusServiceUnavailable, get(t, routes, "/sensor").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, routes, "/altitude").Code)
}

func TestLightEndpointsWithoutLED(t *testing.T) {
	routes := newTestAPIServer().routes()
	assert.Equal(t, http.StatusNotImplemented, get(t, routes, "/lighton").Code)
	assert.Equal(t, http.StatusNotImplemented, get(t, routes, "/lightoff").Code)
}

func TestIndexPage(t *testing.T) {
	rec := get(t, newTestAPIServer().routes(), "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "Barometric Pressure")
}
