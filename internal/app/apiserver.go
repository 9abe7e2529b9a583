package app

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/seili-tech/picostation/internal/config"
	"github.com/seili-tech/picostation/internal/sensors"
	"github.com/seili-tech/picostation/internal/telemetry"
)

// apiServer is the station-side HTTP API: the latest reading as JSON, one
// endpoint per field, and LED control with a small HTML index page.
type apiServer struct {
	mu   sync.RWMutex
	last telemetry.Reading
	have bool

	led *sensors.StatusLED
}

// RunAPIServer samples the sensor in the background and serves the station
// HTTP API on the configured port. led may be nil when no LED is wired.
func RunAPIServer(src sensors.Source, led *sensors.StatusLED) error {
	cfg := config.Get()

	s := &apiServer{led: led}

	// Sampling happens off the request path so a slow I2C read never
	// stalls a client.
	go s.sampleLoop(src, time.Duration(cfg.SampleInterval)*time.Millisecond, cfg.StationID, cfg.SeaLevelPa)

	addr := fmt.Sprintf(":%d", cfg.APIServerPort)
	log.Printf("station API listening on %s", addr)
	return http.ListenAndServe(addr, s.routes())
}

func (s *apiServer) sampleLoop(src sensors.Source, interval time.Duration, station string, seaLevelPa float64) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for t := range ticker.C {
		sample, err := src.Next()
		if err != nil {
			log.Printf("sensor read error: %v", err)
			continue
		}
		reading := telemetry.NewReading(station, t, sample.TemperatureC, sample.PressurePa, sample.Humidity, seaLevelPa)
		s.setReading(reading)
	}
}

func (s *apiServer) setReading(r telemetry.Reading) {
	s.mu.Lock()
	s.last = r
	s.have = true
	s.mu.Unlock()
}

func (s *apiServer) reading() (telemetry.Reading, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, s.have
}

func (s *apiServer) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /sensor", s.handleSensor)
	mux.HandleFunc("GET /temperature", s.handleField("temperature_f", func(r telemetry.Reading) float64 { return r.TemperatureF }))
	mux.HandleFunc("GET /pressure", s.handleField("pressure_pa", func(r telemetry.Reading) float64 { return r.PressurePa }))
	mux.HandleFunc("GET /humidity", s.handleField("humidity_percent", func(r telemetry.Reading) float64 { return r.Humidity }))
	mux.HandleFunc("GET /altitude", s.handleField("altitude_ft", func(r telemetry.Reading) float64 { return r.AltitudeFt }))
	mux.HandleFunc("GET /lighton", s.handleLight(true))
	mux.HandleFunc("GET /lightoff", s.handleLight(false))
	mux.HandleFunc("GET /{$}", s.handleIndex)
	return mux
}

func (s *apiServer) handleSensor(w http.ResponseWriter, r *http.Request) {
	reading, ok := s.reading()
	if !ok {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(reading); err != nil {
		log.Printf("json encode error: %v", err)
	}
}

func (s *apiServer) handleField(key string, extract func(telemetry.Reading) float64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reading, ok := s.reading()
		if !ok {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(singleField{key: extract(reading)}); err != nil {
			log.Printf("json encode error: %v", err)
		}
	}
}

func (s *apiServer) handleLight(on bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.led == nil {
			http.Error(w, "no LED configured", http.StatusNotImplemented)
			return
		}
		if err := s.led.Set(on); err != nil {
			log.Printf("LED error: %v", err)
			http.Error(w, "LED error", http.StatusInternalServerError)
			return
		}
		s.handleIndex(w, r)
	}
}

func (s *apiServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	reading, ok := s.reading()

	ledState := "n/a"
	if s.led != nil {
		if s.led.IsOn() {
			ledState = "ON"
		} else {
			ledState = "OFF"
		}
	}

	values := "<p>Waiting for first reading...</p>"
	if ok {
		values = fmt.Sprintf(
			"<p>Temperature: %.1f &deg;F</p>\n<p>Barometric Pressure: %.0f Pa</p>\n<p>Humidity: %.1f %%</p>\n<p>Altitude: %.0f ft</p>",
			reading.TemperatureF, reading.PressurePa, reading.Humidity, reading.AltitudeFt,
		)
	}

	w.Header().Set("Content-Type", "text/html")
	fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head>
<title>Picostation</title>
<meta name="viewport" content="width=device-width, initial-scale=1">
</head>
<body>
<h1>Picostation Sensor Server</h1>
<h2>LED Control</h2>
<form action="/lighton"><input type="submit" value="Light on" /></form>
<form action="/lightoff"><input type="submit" value="Light off" /></form>
<p>LED state: %s</p>
<h2>Current Readings</h2>
%s
</body>
</html>
`, ledState, values)
}
