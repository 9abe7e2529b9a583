package telemetry

import (
	"encoding/binary"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	at := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	r := NewReading("pico-1", at, 21.5, 100000, 43.2, 101325)

	b, err := FrameFromReading(r).MarshalBinary()
	require.NoError(t, err)
	require.Len(t, b, FrameSize)

	var f Frame
	require.NoError(t, f.UnmarshalBinary(b))

	got := f.Reading("pico-1", at)
	assert.InDelta(t, r.TemperatureF, got.TemperatureF, 0.01)
	assert.InDelta(t, r.TemperatureC, got.TemperatureC, 0.01)
	assert.InDelta(t, r.PressurePa, got.PressurePa, 1.0)
	assert.InDelta(t, r.Humidity, got.Humidity, 0.01)
	assert.InDelta(t, r.AltitudeFt, got.AltitudeFt, 0.1)
}

func TestFrameLayoutIsLittleEndianFloat32(t *testing.T) {
	f := Frame{TemperatureF: 70.7, PressurePa: 100000, HumidityPct: 43.2, AltitudeFt: 363.8}
	b, err := f.MarshalBinary()
	require.NoError(t, err)

	// First field occupies bytes 0..3, little-endian.
	assert.Equal(t, math.Float32bits(70.7), binary.LittleEndian.Uint32(b[0:4]))
	assert.Equal(t, math.Float32bits(363.8), binary.LittleEndian.Uint32(b[12:16]))
}

func TestFrameRejectsBadLength(t *testing.T) {
	var f Frame
	assert.Error(t, f.UnmarshalBinary(make([]byte, 15)))
	assert.Error(t, f.UnmarshalBinary(nil))
}

func TestNewReadingDerivesUnits(t *testing.T) {
	r := NewReading("pico-1", time.Now(), 0, 101325, 50, 101325)
	assert.InDelta(t, 32.0, r.TemperatureF, 1e-9)
	assert.InDelta(t, 1013.25, r.PressureHPa, 1e-9)
	assert.InDelta(t, 0.0, r.AltitudeM, 1e-9)
	assert.InDelta(t, 0.0, r.AltitudeFt, 1e-9)
}
