package app

import (
	"encoding/json"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/seili-tech/picostation/internal/config"
	"github.com/seili-tech/picostation/internal/sensors"
	"github.com/seili-tech/picostation/internal/telemetry"
)

// singleField is the shape of the per-field topics: one JSON key, matching
// the per-field HTTP endpoints.
type singleField map[string]float64

// RunProducer reads the environmental sensor on a fixed interval, derives
// altitude from the configured sea-level reference, and publishes each
// reading as retained JSON: the full reading on the reading topic plus one
// value per field topic. led may be nil; when present it is lit for the
// duration of each publish.
func RunProducer(src sensors.Source, led *sensors.StatusLED) error {
	log.Println("starting picostation producer")

	cfg := config.Get()

	// --- connect to MQTT ---
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDProducer)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)

	log.Printf("connected to MQTT broker at %s, starting publish loop", cfg.MQTTBroker)

	// Calibration updates arrive retained on the QNH topic; keep the latest.
	seaLevel := newSeaLevelTracker(cfg.SeaLevelPa)
	qnhToken := client.Subscribe(cfg.TopicQNH, 0, func(_ mqtt.Client, msg mqtt.Message) {
		seaLevel.update(msg.Payload())
	})
	qnhToken.Wait()
	if qnhToken.Error() != nil {
		return qnhToken.Error()
	}

	ticker := time.NewTicker(time.Duration(cfg.SampleInterval) * time.Millisecond)
	defer ticker.Stop()

	for t := range ticker.C {
		publishTick(client, cfg, src, led, seaLevel, t)
	}
	return nil
}

// publishTick runs one sample-and-publish cycle. The LED stays on while
// the publishes are in flight.
func publishTick(client mqtt.Client, cfg *config.Config, src sensors.Source, led *sensors.StatusLED, seaLevel *seaLevelTracker, t time.Time) {
	sample, err := src.Next()
	if err != nil {
		log.Printf("sensor read error: %v", err)
		return
	}

	setLED(led, true)
	defer setLED(led, false)

	reading := telemetry.NewReading(cfg.StationID, t, sample.TemperatureC, sample.PressurePa, sample.Humidity, seaLevel.get())

	payload, err := json.Marshal(reading)
	if err != nil {
		log.Printf("json marshal error (reading): %v", err)
		return
	}
	if token := client.Publish(cfg.TopicReading, 0, true, payload); token.Wait() && token.Error() != nil {
		log.Printf("MQTT publish error (reading): %v", token.Error())
		return
	}

	publishField(client, cfg.TopicTemperature, singleField{"temperature_f": reading.TemperatureF})
	publishField(client, cfg.TopicPressure, singleField{"pressure_pa": reading.PressurePa})
	publishField(client, cfg.TopicHumidity, singleField{"humidity_percent": reading.Humidity})
	publishField(client, cfg.TopicAltitude, singleField{"altitude_ft": reading.AltitudeFt})

	log.Printf("%s tick: temp=%.1fC press=%.0fPa hum=%.1f%% alt=%.1fm (QNH %.0fPa)",
		t.Format(time.RFC3339),
		reading.TemperatureC, reading.PressurePa, reading.Humidity, reading.AltitudeM,
		seaLevel.get(),
	)
}

func setLED(led *sensors.StatusLED, on bool) {
	if led == nil {
		return
	}
	if err := led.Set(on); err != nil {
		log.Printf("LED error: %v", err)
	}
}

func publishField(client mqtt.Client, topic string, body singleField) {
	payload, err := json.Marshal(body)
	if err != nil {
		log.Printf("json marshal error (%s): %v", topic, err)
		return
	}
	if token := client.Publish(topic, 0, true, payload); token.Wait() && token.Error() != nil {
		log.Printf("MQTT publish error (%s): %v", topic, token.Error())
	}
}
