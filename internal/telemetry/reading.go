package telemetry

import (
	"time"

	"github.com/seili-tech/picostation/internal/baro"
)

// Reading is a single environmental measurement from a station, suitable for
// JSON over MQTT and HTTP. The imperial fields (temperature_f, altitude_ft)
// and pressure_pa are the wire contract the monitor consumes; the metric
// twins ride along for convenience.
type Reading struct {
	Station string    `json:"station"`
	Time    time.Time `json:"time"`

	TemperatureC float64 `json:"temperature_c"` // °C
	TemperatureF float64 `json:"temperature_f"` // °F

	PressurePa  float64 `json:"pressure_pa"`  // Pa
	PressureHPa float64 `json:"pressure_hpa"` // hPa (= mbar)

	Humidity float64 `json:"humidity_percent"` // %RH

	AltitudeM  float64 `json:"altitude_m"`  // m above MSL
	AltitudeFt float64 `json:"altitude_ft"` // ft above MSL
}

// NewReading derives a full Reading from raw metric sensor values.
// Altitude is computed from the pressure against the given sea-level
// reference (QNH) in Pascals.
func NewReading(station string, at time.Time, tempC, pressurePa, humidity, seaLevelPa float64) Reading {
	altM := baro.AltitudeMeters(pressurePa, seaLevelPa)
	return Reading{
		Station:      station,
		Time:         at,
		TemperatureC: tempC,
		TemperatureF: baro.CToF(tempC),
		PressurePa:   pressurePa,
		PressureHPa:  baro.PaToHPa(pressurePa),
		Humidity:     humidity,
		AltitudeM:    altM,
		AltitudeFt:   baro.MetersToFeet(altM),
	}
}
