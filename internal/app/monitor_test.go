package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seili-tech/picostation/internal/config"
	"github.com/seili-tech/picostation/internal/store"
	"github.com/seili-tech/picostation/internal/telemetry"
)

func monitorConfig(stationURL string) *config.Config {
	return &config.Config{
		StationID:                "pico-1",
		MonitorStationURL:        stationURL,
		MonitorPollInterval:      5,
		MonitorTimeWindowMinutes: 60,
	}
}

func newTestMonitor(t *testing.T, stationURL string) *Monitor {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "monitor.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	m, err := NewMonitor(monitorConfig(stationURL), db)
	require.NoError(t, err)
	return m
}

func TestNormalizeStationURL(t *testing.T) {
	assert.Equal(t, "http://192.168.0.201", normalizeStationURL("192.168.0.201"))
	assert.Equal(t, "http://pico.local:8080", normalizeStationURL("http://pico.local:8080"))
	assert.Equal(t, "https://pico.local", normalizeStationURL("https://pico.local"))
}

func TestMonitorRequiresStationURL(t *testing.T) {
	db, err := store.Open(filepath.Join(t.TempDir(), "monitor.db"))
	require.NoError(t, err)
	defer db.Close()

	_, err = NewMonitor(monitorConfig(""), db)
	assert.Error(t, err)
}

func TestFetchReading(t *testing.T) {
	want := telemetry.NewReading("pico-1", time.Now().UTC(), 21.5, 100000, 43.2, 101325)
	station := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/sensor", r.URL.Path)
		_ = json.NewEncoder(w).Encode(want)
	}))
	defer station.Close()

	m := newTestMonitor(t, station.URL)
	got, err := m.fetchReading()
	require.NoError(t, err)
	assert.InDelta(t, want.PressurePa, got.PressurePa, 1e-9)
	assert.InDelta(t, want.AltitudeFt, got.AltitudeFt, 1e-6)
}

func TestFetchReadingErrors(t *testing.T) {
	station := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
	}))
	defer station.Close()

	m := newTestMonitor(t, station.URL)
	_, err := m.fetchReading()
	assert.Error(t, err)

	station.Close()
	_, err = m.fetchReading()
	assert.Error(t, err)
}

func TestDashboardEndpoints(t *testing.T) {
	m := newTestMonitor(t, "http://station.invalid")
	router := m.NewRouter()

	// Empty ring: latest and summary report no data.
	assert.Equal(t, http.StatusServiceUnavailable, get(t, router, "/api/latest").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, router, "/api/summary").Code)

	now := time.Now()
	for i := 0; i < 3; i++ {
		m.ring.Add(telemetry.NewReading("pico-1", now.Add(time.Duration(i-3)*time.Minute), 20, 100000+float64(i*100), 40, 101325))
	}

	rec := get(t, router, "/api/latest")
	require.Equal(t, http.StatusOK, rec.Code)
	var latest telemetry.Reading
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &latest))
	assert.Equal(t, 100200.0, latest.PressurePa)

	rec = get(t, router, "/api/history?minutes=60")
	require.Equal(t, http.StatusOK, rec.Code)
	var hist []telemetry.Reading
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hist))
	assert.Len(t, hist, 3)

	assert.Equal(t, http.StatusBadRequest, get(t, router, "/api/history?minutes=zero").Code)

	rec = get(t, router, "/api/summary")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = get(t, router, "/status")
	require.Equal(t, http.StatusOK, rec.Code)
	var status monitorStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "pico-1", status.Station)
	assert.True(t, status.Stale, "no polls yet, must report stale")
	assert.Equal(t, 3, status.BufferedHere)

	assert.Equal(t, http.StatusOK, get(t, router, "/ping").Code)
	assert.Equal(t, "pong", get(t, router, "/ping").Body.String())
}

func TestMonitorBackfillsFromStore(t *testing.T) {
	dir := t.TempDir()
	db, err := store.Open(filepath.Join(dir, "monitor.db"))
	require.NoError(t, err)

	now := time.Now()
	for i := 0; i < 4; i++ {
		r := telemetry.NewReading("pico-1", now.Add(time.Duration(i-4)*time.Minute), 20, 100000, 40, 101325)
		require.NoError(t, db.Put(r))
	}
	// One reading outside the 60 minute window stays on disk only.
	require.NoError(t, db.Put(telemetry.NewReading("pico-1", now.Add(-2*time.Hour), 20, 99000, 40, 101325)))

	m, err := NewMonitor(monitorConfig("http://station.invalid"), db)
	require.NoError(t, err)
	assert.Equal(t, 4, m.ring.Len())
	_ = db.Close()
}
