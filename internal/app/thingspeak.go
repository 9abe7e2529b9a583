package app

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/seili-tech/picostation/internal/config"
	"github.com/seili-tech/picostation/internal/telemetry"
)

// thingSpeakUpdate is the channel-update body: field1..field4 carry
// temperature (°F), pressure (Pa), humidity (%), altitude (ft).
type thingSpeakUpdate struct {
	Field1 float64 `json:"field1"`
	Field2 float64 `json:"field2"`
	Field3 float64 `json:"field3"`
	Field4 float64 `json:"field4"`
}

// postUpdate sends one reading to the ThingSpeak update endpoint.
func postUpdate(client *http.Client, baseURL, apiKey string, r telemetry.Reading) error {
	u := strings.TrimSuffix(baseURL, "/") + "/update?api_key=" + url.QueryEscape(apiKey)

	payload, err := json.Marshal(thingSpeakUpdate{
		Field1: r.TemperatureF,
		Field2: r.PressurePa,
		Field3: r.Humidity,
		Field4: r.AltitudeFt,
	})
	if err != nil {
		return fmt.Errorf("marshal update: %w", err)
	}

	resp, err := client.Post(u, "application/json", strings.NewReader(string(payload)))
	if err != nil {
		return fmt.Errorf("post update: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("thingspeak returned status %d", resp.StatusCode)
	}
	return nil
}

// waitOrInterrupt sleeps for d unless a signal arrives first. Returns false
// when interrupted so the caller can shut down.
func waitOrInterrupt(d time.Duration, sigCh <-chan os.Signal) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-sigCh:
		return false
	case <-timer.C:
		return true
	}
}

// RunThingSpeak forwards readings from MQTT to a ThingSpeak channel,
// throttled to the configured minimum interval, retrying failed uploads
// with linear backoff up to the failure budget.
func RunThingSpeak() error {
	cfg := config.Get()
	if cfg.ThingSpeakAPIKey == "" {
		return fmt.Errorf("THINGSPEAK_API_KEY is required for the uploader")
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDThingSpeak)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("thingspeak: connected to MQTT broker at %s", cfg.MQTTBroker)

	// Only the newest reading matters; a 1-buffered channel that drops
	// stale entries keeps the subscription callback from ever blocking.
	readings := make(chan telemetry.Reading, 1)
	token := client.Subscribe(cfg.TopicReading, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var r telemetry.Reading
		if err := json.Unmarshal(msg.Payload(), &r); err != nil {
			log.Printf("thingspeak: reading unmarshal error: %v", err)
			return
		}
		select {
		case readings <- r:
		default:
			select {
			case <-readings:
			default:
			}
			readings <- r
		}
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("thingspeak: subscribed to %s", cfg.TopicReading)

	httpClient := &http.Client{Timeout: 15 * time.Second}
	minInterval := time.Duration(cfg.ThingSpeakMinInterval) * time.Second

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	var lastUpload time.Time
	failures := 0

	for {
		select {
		case <-sigCh:
			log.Println("thingspeak: shutting down")
			client.Disconnect(250)
			return nil

		case r := <-readings:
			if !waitOrInterrupt(minInterval-time.Since(lastUpload), sigCh) {
				log.Println("thingspeak: shutting down")
				client.Disconnect(250)
				return nil
			}

			if err := postUpdate(httpClient, cfg.ThingSpeakBaseURL, cfg.ThingSpeakAPIKey, r); err != nil {
				failures++
				log.Printf("thingspeak: upload failed (%d/%d): %v", failures, cfg.ThingSpeakMaxFailures, err)
				if failures >= cfg.ThingSpeakMaxFailures {
					// Reset the budget rather than exiting; the feed
					// should survive long broker or network outages.
					log.Printf("thingspeak: failure budget exhausted, continuing with reset counter")
					failures = 0
				}
				if !waitOrInterrupt(time.Duration(failures)*time.Second, sigCh) {
					log.Println("thingspeak: shutting down")
					client.Disconnect(250)
					return nil
				}
				continue
			}
			failures = 0
			lastUpload = time.Now()
			log.Printf("thingspeak: uploaded reading from %s", r.Time.Format(time.RFC3339))
		}
	}
}
