package app

import (
	"encoding/json"
	"log"
	"sync"
)

// QNHUpdate is the payload published on the QNH topic by the calibration
// utility.
type QNHUpdate struct {
	SeaLevelPa float64 `json:"sea_level_pa"`
	AltitudeM  float64 `json:"altitude_m"` // GPS altitude the value was solved against
	Source     string  `json:"source"`     // e.g. "gps"
}

// seaLevelTracker holds the current sea-level reference pressure, updated
// live from the QNH topic.
type seaLevelTracker struct {
	mu sync.RWMutex
	pa float64
}

func newSeaLevelTracker(initial float64) *seaLevelTracker {
	return &seaLevelTracker{pa: initial}
}

func (s *seaLevelTracker) get() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pa
}

func (s *seaLevelTracker) update(payload []byte) {
	var u QNHUpdate
	if err := json.Unmarshal(payload, &u); err != nil {
		log.Printf("QNH unmarshal error: %v", err)
		return
	}
	if u.SeaLevelPa <= 0 {
		log.Printf("ignoring non-positive QNH %.1f Pa", u.SeaLevelPa)
		return
	}
	s.mu.Lock()
	s.pa = u.SeaLevelPa
	s.mu.Unlock()
	log.Printf("sea-level reference updated to %.1f Pa (%s)", u.SeaLevelPa, u.Source)
}
