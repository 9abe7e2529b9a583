package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "picostation.conf")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const minimalConfig = `
# picostation test config
MQTT_BROKER = tcp://localhost:1883
STATION_ID = pico-1
SAMPLE_INTERVAL = 5000
`

func TestLoadMinimal(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "tcp://localhost:1883", cfg.MQTTBroker)
	assert.Equal(t, "pico-1", cfg.StationID)
	assert.Equal(t, 5000, cfg.SampleInterval)

	// Defaults fill in everything not present in the file.
	assert.Equal(t, "station/reading", cfg.TopicReading)
	assert.Equal(t, 101325.0, cfg.SeaLevelPa)
	assert.Equal(t, uint16(0x76), cfg.SensorI2CAddr)
	assert.Equal(t, 5, cfg.MonitorPollInterval)
	assert.Equal(t, 1440, cfg.MonitorTimeWindowMinutes)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig+`
SENSOR_I2C_ADDR = 0x77
SEA_LEVEL_PRESSURE_PA = 101800
MONITOR_POLL_INTERVAL = 60
MONITOR_TIME_WINDOW_MINUTES = 2880
THINGSPEAK_API_KEY = ABC123
`))
	require.NoError(t, err)

	assert.Equal(t, uint16(0x77), cfg.SensorI2CAddr)
	assert.Equal(t, 101800.0, cfg.SeaLevelPa)
	assert.Equal(t, 60, cfg.MonitorPollInterval)
	assert.Equal(t, 2880, cfg.MonitorTimeWindowMinutes)
	assert.Equal(t, "ABC123", cfg.ThingSpeakAPIKey)
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		line string
	}{
		{"unknown key", "NO_SUCH_KEY = 1"},
		{"bad sensor addr", "SENSOR_I2C_ADDR = 0x42"},
		{"poll interval too small", "MONITOR_POLL_INTERVAL = 0"},
		{"poll interval too large", "MONITOR_POLL_INTERVAL = 3601"},
		{"window too large", "MONITOR_TIME_WINDOW_MINUTES = 2881"},
		{"negative sea level", "SEA_LEVEL_PRESSURE_PA = -5"},
		{"zero display interval", "DISPLAY_UPDATE_INTERVAL = 0"},
		{"negative display interval", "DISPLAY_UPDATE_INTERVAL = -100"},
		{"malformed line", "JUST_A_KEY"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, minimalConfig+tc.line+"\n"))
			assert.Error(t, err)
		})
	}
}

func TestLoadRequiresCoreKeys(t *testing.T) {
	_, err := Load(writeConfig(t, "MQTT_BROKER = tcp://localhost:1883\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STATION_ID")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.conf"))
	assert.Error(t, err)
}
