package app

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/seili-tech/picostation/internal/config"
	"github.com/seili-tech/picostation/internal/telemetry"
)

// RunConsole subscribes to the station topics and prints each message in
// fixed-width columns until interrupted.
func RunConsole() error {
	cfg := config.Get()

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDConsole)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	readingToken := client.Subscribe(cfg.TopicReading, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var r telemetry.Reading
		if err := json.Unmarshal(msg.Payload(), &r); err != nil {
			log.Printf("console: reading unmarshal error: %v", err)
			return
		}

		fmt.Printf(
			"[ENV ]  %s  TEMP=%6.1fF  PRESS=%7.0fPa  HUM=%5.1f%%  ALT=%7.1fft\n",
			r.Time.Format("15:04:05"), r.TemperatureF, r.PressurePa, r.Humidity, r.AltitudeFt,
		)
	})
	readingToken.Wait()
	if readingToken.Error() != nil {
		return readingToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicReading)

	qnhToken := client.Subscribe(cfg.TopicQNH, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var u QNHUpdate
		if err := json.Unmarshal(msg.Payload(), &u); err != nil {
			log.Printf("console: qnh unmarshal error: %v", err)
			return
		}

		fmt.Printf(
			"[QNH ]  sea-level=%8.1fPa  gps-alt=%7.1fm  source=%s\n",
			u.SeaLevelPa, u.AltitudeM, u.Source,
		)
	})
	qnhToken.Wait()
	if qnhToken.Error() != nil {
		return qnhToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicQNH)

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}
