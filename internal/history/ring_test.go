package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seili-tech/picostation/internal/telemetry"
)

func reading(at time.Time, pressurePa float64) telemetry.Reading {
	return telemetry.NewReading("pico-1", at, 20, pressurePa, 40, 101325)
}

func TestMaxPointsSizing(t *testing.T) {
	// 24h window at 5s polls: 17280 readings + 10% slack.
	assert.Equal(t, 19008, MaxPoints(24*time.Hour, 5*time.Second))
	// Degenerate interval still yields a usable ring.
	assert.Equal(t, 1, MaxPoints(time.Minute, 0))
}

func TestRingEvictsOldest(t *testing.T) {
	r := NewRing(10*time.Second, 5*time.Second) // capacity 3
	require.Equal(t, 3, r.Cap())

	base := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		r.Add(reading(base.Add(time.Duration(i)*time.Second), 100000+float64(i)))
	}

	assert.Equal(t, 3, r.Len())
	snap := r.Snapshot()
	require.Len(t, snap, 3)
	// Oldest two evicted; remaining in chronological order.
	assert.Equal(t, 100002.0, snap[0].PressurePa)
	assert.Equal(t, 100004.0, snap[2].PressurePa)

	latest, ok := r.Latest()
	require.True(t, ok)
	assert.Equal(t, 100004.0, latest.PressurePa)
}

func TestRingSince(t *testing.T) {
	r := NewRing(time.Hour, time.Minute)
	base := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		r.Add(reading(base.Add(time.Duration(i)*time.Minute), 100000))
	}

	recent := r.Since(base.Add(6 * time.Minute))
	require.Len(t, recent, 3)
	assert.Equal(t, base.Add(7*time.Minute), recent[0].Time)
}

func TestRingSummary(t *testing.T) {
	r := NewRing(time.Hour, time.Minute)
	_, ok := r.Summary()
	assert.False(t, ok, "empty ring has no summary")

	base := time.Now()
	for i, p := range []float64{100000, 100100, 100200} {
		r.Add(reading(base.Add(time.Duration(i)*time.Minute), p))
	}

	sum, ok := r.Summary()
	require.True(t, ok)
	press := sum["pressure_pa"]
	assert.Equal(t, 100000.0, press.Min)
	assert.Equal(t, 100200.0, press.Max)
	assert.InDelta(t, 100100.0, press.Mean, 1e-9)
	assert.InDelta(t, 100100.0, press.Median, 1e-9)
	assert.Contains(t, sum, "altitude_ft")
	assert.Contains(t, sum, "temperature_f")
	assert.Contains(t, sum, "humidity_percent")
}
