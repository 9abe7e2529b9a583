package baro

import "math"

// StandardSeaLevelPa is the ICAO standard-atmosphere reference pressure.
const StandardSeaLevelPa = 101325.0

// Constants of the hypsometric (barometric) formula:
//
//	altitude = 44330 * (1 - (P/P0)^(1/5.255))
const (
	hypsometricScale = 44330.0
	pressureExponent = 5.255
)

// AltitudeMeters converts a barometric pressure reading in Pascals into an
// altitude estimate in meters above mean sea level, relative to the given
// sea-level reference pressure. Pass StandardSeaLevelPa unless a locally
// calibrated QNH is known.
//
// The formula is undefined for non-positive pressures; NaN is returned so
// the caller can decide how to treat a bad sample.
func AltitudeMeters(pressurePa, seaLevelPa float64) float64 {
	if pressurePa <= 0 || seaLevelPa <= 0 {
		return math.NaN()
	}
	return hypsometricScale * (1.0 - math.Pow(pressurePa/seaLevelPa, 1.0/pressureExponent))
}

// PressureForAltitude is the exact inverse of AltitudeMeters: the pressure
// in Pascals expected at the given altitude under the given sea-level
// reference.
func PressureForAltitude(altitudeM, seaLevelPa float64) float64 {
	if seaLevelPa <= 0 || altitudeM >= hypsometricScale {
		return math.NaN()
	}
	return seaLevelPa * math.Pow(1.0-altitudeM/hypsometricScale, pressureExponent)
}

// SeaLevelPressure solves the barometric formula for the sea-level reference
// pressure (QNH), given a measured station pressure and a known station
// altitude. Used by GPS-assisted calibration.
func SeaLevelPressure(pressurePa, altitudeM float64) float64 {
	if pressurePa <= 0 || altitudeM >= hypsometricScale {
		return math.NaN()
	}
	return pressurePa / math.Pow(1.0-altitudeM/hypsometricScale, pressureExponent)
}

// PaToHPa converts Pascals to hectopascals (= millibar).
func PaToHPa(pa float64) float64 { return pa / 100.0 }

// HPaToPa converts hectopascals to Pascals.
func HPaToPa(hpa float64) float64 { return hpa * 100.0 }

// CToF converts degrees Celsius to degrees Fahrenheit.
func CToF(c float64) float64 { return c*9.0/5.0 + 32.0 }

// MetersToFeet converts meters to feet.
func MetersToFeet(m float64) float64 { return m / 0.3048 }

// FeetToMeters converts feet to meters.
func FeetToMeters(ft float64) float64 { return ft * 0.3048 }
