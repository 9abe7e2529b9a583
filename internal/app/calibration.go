package app

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	nmea "github.com/adrianmo/go-nmea"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	serial "github.com/jacobsa/go-serial/serial"

	"github.com/seili-tech/picostation/internal/baro"
	"github.com/seili-tech/picostation/internal/config"
	"github.com/seili-tech/picostation/internal/telemetry"
)

// RunCalibration solves the local sea-level reference pressure (QNH) from a
// GPS altitude: it waits for one station reading on MQTT, averages GGA
// altitudes from the serial GPS, inverts the barometric formula, and
// publishes the result retained on the QNH topic.
func RunCalibration() error {
	cfg := config.Get()
	if cfg.GPSSerialPort == "" {
		return fmt.Errorf("GPS_SERIAL_PORT is required for calibration")
	}

	// ---- 1) Connect to MQTT broker ----
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDCalibration)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)
	log.Printf("calibration: connected to MQTT broker at %s", cfg.MQTTBroker)

	// ---- 2) Wait for the station's current pressure ----
	readingCh := make(chan telemetry.Reading, 1)
	token := client.Subscribe(cfg.TopicReading, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var r telemetry.Reading
		if err := json.Unmarshal(msg.Payload(), &r); err != nil {
			log.Printf("calibration: reading unmarshal error: %v", err)
			return
		}
		select {
		case readingCh <- r:
		default:
		}
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}

	var pressurePa float64
	select {
	case r := <-readingCh:
		pressurePa = r.PressurePa
		log.Printf("calibration: station pressure %.1f Pa", pressurePa)
	case <-time.After(30 * time.Second):
		return fmt.Errorf("no station reading on %s within 30s; is the producer running?", cfg.TopicReading)
	}

	// ---- 3) Average GPS altitude from GGA sentences ----
	altitudeM, err := averageGPSAltitude(cfg.GPSSerialPort, cfg.GPSBaudRate, cfg.GPSFixSamples)
	if err != nil {
		return err
	}
	log.Printf("calibration: GPS altitude %.1f m over %d fixes", altitudeM, cfg.GPSFixSamples)

	// ---- 4) Solve and publish the QNH ----
	seaLevelPa := baro.SeaLevelPressure(pressurePa, altitudeM)
	if math.IsNaN(seaLevelPa) {
		return fmt.Errorf("cannot solve QNH from pressure %.1f Pa at altitude %.1f m", pressurePa, altitudeM)
	}

	update := QNHUpdate{SeaLevelPa: seaLevelPa, AltitudeM: altitudeM, Source: "gps"}
	payload, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("marshal QNH update: %w", err)
	}
	pubToken := client.Publish(cfg.TopicQNH, 0, true, payload)
	pubToken.Wait()
	if pubToken.Error() != nil {
		return pubToken.Error()
	}

	log.Printf("calibration: published QNH %.1f Pa (%.2f hPa); set SEA_LEVEL_PRESSURE_PA=%.0f to persist it",
		seaLevelPa, baro.PaToHPa(seaLevelPa), seaLevelPa)
	return nil
}

// averageGPSAltitude reads GGA sentences from the serial GPS until it has
// collected the requested number of valid fixes, and returns their mean
// altitude in meters.
func averageGPSAltitude(portName string, baudRate, samples int) (float64, error) {
	serialOpts := serial.OpenOptions{
		PortName:              portName,
		BaudRate:              uint(baudRate),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}

	port, err := serial.Open(serialOpts)
	if err != nil {
		return 0, fmt.Errorf("open GPS serial port: %w", err)
	}
	defer port.Close()
	log.Printf("calibration: GPS serial port opened on %s at %d baud", portName, baudRate)

	reader := bufio.NewReader(port)

	sum := 0.0
	got := 0
	for got < samples {
		line, err := reader.ReadString('\n')
		if err != nil {
			return 0, fmt.Errorf("GPS read error: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" || !strings.HasPrefix(line, "$") {
			continue
		}

		sentence, err := nmea.Parse(line)
		if err != nil {
			// noisy GPS or partial sentences
			continue
		}

		if sentence.DataType() != nmea.TypeGGA {
			continue
		}
		gga := sentence.(nmea.GGA)
		if gga.FixQuality == nmea.Invalid {
			continue
		}

		sum += gga.Altitude
		got++
		log.Printf("calibration: fix %d/%d altitude %.1f m (quality %s, %d sats)",
			got, samples, gga.Altitude, gga.FixQuality, gga.NumSatellites)
	}

	return sum / float64(got), nil
}
