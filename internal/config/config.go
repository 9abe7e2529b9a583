package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker              string
	MQTTClientIDProducer    string
	MQTTClientIDConsole     string
	MQTTClientIDDisplay     string
	MQTTClientIDThingSpeak  string
	MQTTClientIDCalibration string
	MQTTClientIDMonitor     string

	// Topics
	TopicReading     string
	TopicTemperature string
	TopicPressure    string
	TopicHumidity    string
	TopicAltitude    string
	TopicQNH         string

	// Station
	StationID      string
	SensorI2CBus   string
	SensorI2CAddr  uint16
	LEDPin         string
	SampleInterval int     // milliseconds
	SeaLevelPa     float64 // reference pressure for altitude, Pa
	APIServerPort  int

	// Monitor
	MonitorStationURL        string
	MonitorPort              int
	MonitorPollInterval      int // seconds, 1-3600
	MonitorTimeWindowMinutes int // 1-2880 (two days)
	MonitorDBPath            string

	// ThingSpeak
	ThingSpeakBaseURL     string
	ThingSpeakAPIKey      string
	ThingSpeakMinInterval int // seconds between uploads
	ThingSpeakMaxFailures int

	// GPS (QNH calibration)
	GPSSerialPort string
	GPSBaudRate   int
	GPSFixSamples int

	// Display
	DisplayUpdateInterval int // milliseconds
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: unexported (lowercase) so other packages cannot access it directly.
//     External code must use InitGlobal() to set and Get() to read, ensuring thread safety.
//   - configOnce: ensures InitGlobal() only runs once, even if called multiple times.
//   - configMu: RWMutex protects concurrent access. Write lock (Lock) for initialization,
//     read lock (RLock) for Get() allows multiple concurrent readers without blocking each other.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := defaults()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Validate required fields
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// defaults returns a Config preloaded with values that have a sensible
// universal default. Everything else must come from the file.
func defaults() *Config {
	return &Config{
		TopicReading:             "station/reading",
		TopicTemperature:         "station/temperature",
		TopicPressure:            "station/pressure",
		TopicHumidity:            "station/humidity",
		TopicAltitude:            "station/altitude",
		TopicQNH:                 "station/qnh",
		SeaLevelPa:               101325.0,
		SensorI2CAddr:            0x76,
		APIServerPort:            8080,
		MonitorPort:              8081,
		MonitorPollInterval:      5,
		MonitorTimeWindowMinutes: 1440,
		MonitorDBPath:            "picostation.db",
		ThingSpeakBaseURL:        "https://api.thingspeak.com",
		ThingSpeakMinInterval:    15,
		ThingSpeakMaxFailures:    60,
		GPSBaudRate:              9600,
		GPSFixSamples:            10,
		DisplayUpdateInterval:    1000,
	}
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_PRODUCER":
		c.MQTTClientIDProducer = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value
	case "MQTT_CLIENT_ID_THINGSPEAK":
		c.MQTTClientIDThingSpeak = value
	case "MQTT_CLIENT_ID_CALIBRATION":
		c.MQTTClientIDCalibration = value
	case "MQTT_CLIENT_ID_MONITOR":
		c.MQTTClientIDMonitor = value

	// Topics
	case "TOPIC_READING":
		c.TopicReading = value
	case "TOPIC_TEMPERATURE":
		c.TopicTemperature = value
	case "TOPIC_PRESSURE":
		c.TopicPressure = value
	case "TOPIC_HUMIDITY":
		c.TopicHumidity = value
	case "TOPIC_ALTITUDE":
		c.TopicAltitude = value
	case "TOPIC_QNH":
		c.TopicQNH = value

	// Station
	case "STATION_ID":
		c.StationID = value
	case "SENSOR_I2C_BUS":
		c.SensorI2CBus = value
	case "SENSOR_I2C_ADDR":
		addr, err := strconv.ParseUint(value, 0, 16)
		if err != nil {
			return fmt.Errorf("invalid SENSOR_I2C_ADDR %q: %w", value, err)
		}
		if addr != 0x76 && addr != 0x77 {
			return fmt.Errorf("SENSOR_I2C_ADDR must be 0x76 or 0x77, got 0x%02X", addr)
		}
		c.SensorI2CAddr = uint16(addr)
	case "LED_PIN":
		c.LEDPin = value
	case "SAMPLE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SAMPLE_INTERVAL %q: %w", value, err)
		}
		if interval <= 0 {
			return fmt.Errorf("SAMPLE_INTERVAL must be positive milliseconds, got %d", interval)
		}
		c.SampleInterval = interval
	case "SEA_LEVEL_PRESSURE_PA":
		p, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid SEA_LEVEL_PRESSURE_PA %q: %w", value, err)
		}
		if p <= 0 {
			return fmt.Errorf("SEA_LEVEL_PRESSURE_PA must be positive, got %g", p)
		}
		c.SeaLevelPa = p
	case "API_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid API_SERVER_PORT %q: %w", value, err)
		}
		c.APIServerPort = port

	// Monitor
	case "MONITOR_STATION_URL":
		c.MonitorStationURL = value
	case "MONITOR_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid MONITOR_PORT %q: %w", value, err)
		}
		c.MonitorPort = port
	case "MONITOR_POLL_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid MONITOR_POLL_INTERVAL %q: %w", value, err)
		}
		if interval < 1 || interval > 3600 {
			return fmt.Errorf("MONITOR_POLL_INTERVAL must be 1-3600 seconds, got %d", interval)
		}
		c.MonitorPollInterval = interval
	case "MONITOR_TIME_WINDOW_MINUTES":
		minutes, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid MONITOR_TIME_WINDOW_MINUTES %q: %w", value, err)
		}
		if minutes < 1 || minutes > 2880 {
			return fmt.Errorf("MONITOR_TIME_WINDOW_MINUTES must be 1-2880 (two days), got %d", minutes)
		}
		c.MonitorTimeWindowMinutes = minutes
	case "MONITOR_DB_PATH":
		c.MonitorDBPath = value

	// ThingSpeak
	case "THINGSPEAK_BASE_URL":
		c.ThingSpeakBaseURL = value
	case "THINGSPEAK_API_KEY":
		c.ThingSpeakAPIKey = value
	case "THINGSPEAK_MIN_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid THINGSPEAK_MIN_INTERVAL %q: %w", value, err)
		}
		if interval < 1 {
			return fmt.Errorf("THINGSPEAK_MIN_INTERVAL must be at least 1 second, got %d", interval)
		}
		c.ThingSpeakMinInterval = interval
	case "THINGSPEAK_MAX_FAILURES":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid THINGSPEAK_MAX_FAILURES %q: %w", value, err)
		}
		c.ThingSpeakMaxFailures = n

	// GPS
	case "GPS_SERIAL_PORT":
		c.GPSSerialPort = value
	case "GPS_BAUD_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid GPS_BAUD_RATE %q: %w", value, err)
		}
		c.GPSBaudRate = rate
	case "GPS_FIX_SAMPLES":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid GPS_FIX_SAMPLES %q: %w", value, err)
		}
		if n < 1 {
			return fmt.Errorf("GPS_FIX_SAMPLES must be at least 1, got %d", n)
		}
		c.GPSFixSamples = n

	// Display
	case "DISPLAY_UPDATE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_UPDATE_INTERVAL %q: %w", value, err)
		}
		if interval <= 0 {
			return fmt.Errorf("DISPLAY_UPDATE_INTERVAL must be positive milliseconds, got %d", interval)
		}
		c.DisplayUpdateInterval = interval

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.StationID == "" {
		return fmt.Errorf("STATION_ID is required")
	}
	if c.SampleInterval == 0 {
		return fmt.Errorf("SAMPLE_INTERVAL is required")
	}
	return nil
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
