package sensors

import (
	"math"
	"time"
)

type mockSource struct {
	start time.Time
}

// NewMockSource creates a mock environmental source that generates smooth
// changing values around indoor conditions, so the whole pipeline can run
// without a BME280 attached.
func NewMockSource() Source {
	return &mockSource{start: time.Now()}
}

func (m *mockSource) Next() (Sample, error) {
	elapsed := time.Since(m.start).Seconds()

	return Sample{
		TemperatureC: 21.0 + 1.5*math.Sin(elapsed/60),
		PressurePa:   100800 + 120*math.Sin(elapsed/300) + 15*math.Sin(elapsed/7),
		Humidity:     45.0 + 5*math.Cos(elapsed/90),
	}, nil
}
