package telemetry

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/seili-tech/picostation/internal/baro"
)

// FrameSize is the fixed length of a packed sensor frame.
const FrameSize = 16

// Frame is the compact binary form of a reading used on constrained links:
// four little-endian float32s, in order temperature (°F), pressure (Pa),
// relative humidity (%), altitude (ft).
type Frame struct {
	TemperatureF float32
	PressurePa   float32
	HumidityPct  float32
	AltitudeFt   float32
}

// FrameFromReading packs the wire fields of a Reading.
func FrameFromReading(r Reading) Frame {
	return Frame{
		TemperatureF: float32(r.TemperatureF),
		PressurePa:   float32(r.PressurePa),
		HumidityPct:  float32(r.Humidity),
		AltitudeFt:   float32(r.AltitudeFt),
	}
}

// MarshalBinary encodes the frame as FrameSize bytes.
func (f Frame) MarshalBinary() ([]byte, error) {
	b := make([]byte, FrameSize)
	binary.LittleEndian.PutUint32(b[0:], math.Float32bits(f.TemperatureF))
	binary.LittleEndian.PutUint32(b[4:], math.Float32bits(f.PressurePa))
	binary.LittleEndian.PutUint32(b[8:], math.Float32bits(f.HumidityPct))
	binary.LittleEndian.PutUint32(b[12:], math.Float32bits(f.AltitudeFt))
	return b, nil
}

// UnmarshalBinary decodes a FrameSize-byte packed frame.
func (f *Frame) UnmarshalBinary(b []byte) error {
	if len(b) != FrameSize {
		return fmt.Errorf("telemetry frame must be %d bytes, got %d", FrameSize, len(b))
	}
	f.TemperatureF = math.Float32frombits(binary.LittleEndian.Uint32(b[0:]))
	f.PressurePa = math.Float32frombits(binary.LittleEndian.Uint32(b[4:]))
	f.HumidityPct = math.Float32frombits(binary.LittleEndian.Uint32(b[8:]))
	f.AltitudeFt = math.Float32frombits(binary.LittleEndian.Uint32(b[12:]))
	return nil
}

// Reading expands a decoded frame back into a full Reading, recomputing the
// metric fields from the imperial wire values.
func (f Frame) Reading(station string, at time.Time) Reading {
	tempF := float64(f.TemperatureF)
	pressurePa := float64(f.PressurePa)
	altFt := float64(f.AltitudeFt)
	return Reading{
		Station:      station,
		Time:         at,
		TemperatureC: (tempF - 32.0) * 5.0 / 9.0,
		TemperatureF: tempF,
		PressurePa:   pressurePa,
		PressureHPa:  baro.PaToHPa(pressurePa),
		Humidity:     float64(f.HumidityPct),
		AltitudeM:    baro.FeetToMeters(altFt),
		AltitudeFt:   altFt,
	}
}
