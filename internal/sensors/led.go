package sensors

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// StatusLED drives the station's indicator LED.
type StatusLED struct {
	mu  sync.Mutex
	pin gpio.PinOut
	on  bool
}

// NewStatusLED resolves the named GPIO pin. host.Init is safe to call again
// after sensor init; periph caches the result.
func NewStatusLED(pinName string) (*StatusLED, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}

	pin := gpioreg.ByName(pinName)
	if pin == nil {
		return nil, fmt.Errorf("LED pin %q not found", pinName)
	}

	return NewStatusLEDForPin(pin), nil
}

// NewStatusLEDForPin wraps an already-resolved pin, e.g. a gpiotest.Pin.
func NewStatusLEDForPin(pin gpio.PinOut) *StatusLED {
	return &StatusLED{pin: pin}
}

// Set switches the LED on or off.
func (l *StatusLED) Set(on bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	level := gpio.Low
	if on {
		level = gpio.High
	}
	if err := l.pin.Out(level); err != nil {
		return fmt.Errorf("LED pin write: %w", err)
	}
	l.on = on
	return nil
}

// IsOn reports the last commanded state.
func (l *StatusLED) IsOn() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.on
}
