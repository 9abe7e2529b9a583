package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seili-tech/picostation/internal/telemetry"
)

func TestPostUpdate(t *testing.T) {
	var gotKey string
	var gotBody thingSpeakUpdate

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/update", r.URL.Path)
		gotKey = r.URL.Query().Get("api_key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
	}))
	defer srv.Close()

	reading := telemetry.NewReading("pico-1", time.Now(), 21.5, 100000, 43.2, 101325)
	err := postUpdate(srv.Client(), srv.URL, "SECRETKEY", reading)
	require.NoError(t, err)

	assert.Equal(t, "SECRETKEY", gotKey)
	assert.InDelta(t, reading.TemperatureF, gotBody.Field1, 1e-9)
	assert.InDelta(t, reading.PressurePa, gotBody.Field2, 1e-9)
	assert.InDelta(t, reading.Humidity, gotBody.Field3, 1e-9)
	assert.InDelta(t, reading.AltitudeFt, gotBody.Field4, 1e-9)
}

func TestPostUpdateNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()

	reading := telemetry.NewReading("pico-1", time.Now(), 20, 100000, 40, 101325)
	err := postUpdate(srv.Client(), srv.URL, "BADKEY", reading)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestWaitOrInterrupt(t *testing.T) {
	sigCh := make(chan os.Signal, 1)

	assert.True(t, waitOrInterrupt(0, sigCh))
	assert.True(t, waitOrInterrupt(-time.Second, sigCh))
	assert.True(t, waitOrInterrupt(time.Millisecond, sigCh))

	// A pending signal must cut a long wait short.
	sigCh <- os.Interrupt
	start := time.Now()
	assert.False(t, waitOrInterrupt(time.Minute, sigCh))
	assert.Less(t, time.Since(start), time.Second)
}

func TestPostUpdateUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	reading := telemetry.NewReading("pico-1", time.Now(), 20, 100000, 40, 101325)
	assert.Error(t, postUpdate(&http.Client{Timeout: time.Second}, srv.URL, "KEY", reading))
}
