package sensors

import (
	"fmt"
	"sync"

	"github.com/seili-tech/picostation/internal/config"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/bmxx80"
	"periph.io/x/host/v3"
)

// Sample is one raw environmental measurement straight off the sensor,
// metric units, before any altitude derivation.
type Sample struct {
	TemperatureC float64 // °C
	PressurePa   float64 // Pa
	Humidity     float64 // %RH; 0 on pressure-only parts (BMP280)
}

// Source is anything that can provide environmental samples over time.
type Source interface {
	Next() (Sample, error)
}

var (
	bmeDev     *bmxx80.Dev
	bmeOnce    sync.Once
	bmeInitErr error
)

// initBME initializes the BME280 once.
func initBME() {
	bmeOnce.Do(func() {
		cfg := config.Get()

		// Initialize periph host
		if _, err := host.Init(); err != nil {
			bmeInitErr = fmt.Errorf("periph host init: %w", err)
			return
		}

		bus, err := i2creg.Open(cfg.SensorI2CBus)
		if err != nil {
			bmeInitErr = fmt.Errorf("BME280 I2C open: %w", err)
			return
		}

		bmeDev, err = bmxx80.NewI2C(bus, cfg.SensorI2CAddr, &bmxx80.DefaultOpts)
		if err != nil {
			bmeInitErr = fmt.Errorf("BME280 init at 0x%02X: %w", cfg.SensorI2CAddr, err)
			return
		}
	})
}

type bmeSource struct{}

// NewBME280Source returns a Source backed by the BME280 on the configured
// I2C bus. Initialization happens lazily on the first read.
func NewBME280Source() Source {
	return bmeSource{}
}

func (bmeSource) Next() (Sample, error) {
	initBME()
	if bmeInitErr != nil {
		return Sample{}, bmeInitErr
	}

	var e physic.Env
	if err := bmeDev.Sense(&e); err != nil {
		return Sample{}, fmt.Errorf("BME280 sense: %w", err)
	}

	return Sample{
		TemperatureC: e.Temperature.Celsius(),
		PressurePa:   float64(e.Pressure) / float64(physic.Pascal),
		Humidity:     float64(e.Humidity) / float64(physic.PercentRH),
	}, nil
}
