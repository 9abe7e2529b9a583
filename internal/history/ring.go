package history

import (
	"math"
	"sync"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/seili-tech/picostation/internal/telemetry"
)

// Ring is a fixed-capacity chronological buffer of readings. Capacity is
// sized so a full display window fits at the configured poll interval, with
// 10% slack for jittered polls.
type Ring struct {
	mu     sync.RWMutex
	buf    []telemetry.Reading
	next   int
	count  int
	window time.Duration
}

// MaxPoints returns the buffer capacity needed to hold window's worth of
// readings at the given interval: ceil(window/interval * 1.1).
func MaxPoints(window, interval time.Duration) int {
	if interval <= 0 {
		return 1
	}
	n := int(math.Ceil(window.Seconds() / interval.Seconds() * 1.1))
	if n < 1 {
		n = 1
	}
	return n
}

// NewRing creates a ring sized for the given time window and poll interval.
func NewRing(window, interval time.Duration) *Ring {
	return &Ring{
		buf:    make([]telemetry.Reading, MaxPoints(window, interval)),
		window: window,
	}
}

// Add appends a reading, evicting the oldest when full.
func (r *Ring) Add(reading telemetry.Reading) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buf[r.next] = reading
	r.next = (r.next + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
}

// Len returns the number of stored readings.
func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count
}

// Cap returns the ring capacity.
func (r *Ring) Cap() int {
	return len(r.buf)
}

// Snapshot returns the stored readings oldest-first.
func (r *Ring) Snapshot() []telemetry.Reading {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked()
}

func (r *Ring) snapshotLocked() []telemetry.Reading {
	out := make([]telemetry.Reading, 0, r.count)
	start := r.next - r.count
	if start < 0 {
		start += len(r.buf)
	}
	for i := 0; i < r.count; i++ {
		out = append(out, r.buf[(start+i)%len(r.buf)])
	}
	return out
}

// Since returns the readings newer than the cutoff, oldest-first.
func (r *Ring) Since(cutoff time.Time) []telemetry.Reading {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := r.snapshotLocked()
	for i, reading := range all {
		if reading.Time.After(cutoff) {
			return all[i:]
		}
	}
	return nil
}

// Latest returns the most recent reading, if any.
func (r *Ring) Latest() (telemetry.Reading, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.count == 0 {
		return telemetry.Reading{}, false
	}
	last := r.next - 1
	if last < 0 {
		last += len(r.buf)
	}
	return r.buf[last], true
}

// SeriesSummary describes one sensor series over the buffered window.
type SeriesSummary struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"stddev"`
}

// Summary computes per-series statistics over everything in the buffer.
// Returns ok=false when the buffer is empty.
func (r *Ring) Summary() (map[string]SeriesSummary, bool) {
	all := r.Snapshot()
	if len(all) == 0 {
		return nil, false
	}

	series := map[string][]float64{
		"temperature_f":    make([]float64, 0, len(all)),
		"pressure_pa":      make([]float64, 0, len(all)),
		"humidity_percent": make([]float64, 0, len(all)),
		"altitude_ft":      make([]float64, 0, len(all)),
	}
	for _, reading := range all {
		series["temperature_f"] = append(series["temperature_f"], reading.TemperatureF)
		series["pressure_pa"] = append(series["pressure_pa"], reading.PressurePa)
		series["humidity_percent"] = append(series["humidity_percent"], reading.Humidity)
		series["altitude_ft"] = append(series["altitude_ft"], reading.AltitudeFt)
	}

	out := make(map[string]SeriesSummary, len(series))
	for name, values := range series {
		out[name] = summarize(values)
	}
	return out, true
}

func summarize(values []float64) SeriesSummary {
	// stats only errors on empty input, which Summary rules out.
	min, _ := stats.Min(values)
	max, _ := stats.Max(values)
	mean, _ := stats.Mean(values)
	median, _ := stats.Median(values)
	sd, _ := stats.StandardDeviation(values)
	return SeriesSummary{Min: min, Max: max, Mean: mean, Median: median, StdDev: sd}
}
