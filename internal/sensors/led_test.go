package sensors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

func TestStatusLEDSet(t *testing.T) {
	pin := &gpiotest.Pin{N: "LED0"}
	led := NewStatusLEDForPin(pin)

	assert.False(t, led.IsOn())

	require.NoError(t, led.Set(true))
	assert.Equal(t, gpio.High, pin.L)
	assert.True(t, led.IsOn())

	require.NoError(t, led.Set(false))
	assert.Equal(t, gpio.Low, pin.L)
	assert.False(t, led.IsOn())
}
