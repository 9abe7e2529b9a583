package app

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/seili-tech/picostation/internal/config"
	"github.com/seili-tech/picostation/internal/history"
	"github.com/seili-tech/picostation/internal/store"
	"github.com/seili-tech/picostation/internal/telemetry"
)

// Monitor polls the station's /sensor endpoint, keeps a windowed in-memory
// history, persists readings to bbolt, and serves a dashboard API with a
// websocket live feed.
type Monitor struct {
	cfg        *config.Config
	stationURL string
	httpClient *http.Client

	ring *history.Ring
	db   *store.Store

	started time.Time

	mu       sync.RWMutex
	lastPoll time.Time
	lastErr  string
	polls    int
	failures int

	upgrader websocket.Upgrader
	connsMu  sync.Mutex
	conns    map[*websocket.Conn]struct{}
}

// NewMonitor builds a Monitor from the global config. The caller owns the
// store's lifetime via Close.
func NewMonitor(cfg *config.Config, db *store.Store) (*Monitor, error) {
	if cfg.MonitorStationURL == "" {
		return nil, fmt.Errorf("MONITOR_STATION_URL is required for the monitor")
	}

	window := time.Duration(cfg.MonitorTimeWindowMinutes) * time.Minute
	interval := time.Duration(cfg.MonitorPollInterval) * time.Second

	m := &Monitor{
		cfg:        cfg,
		stationURL: normalizeStationURL(cfg.MonitorStationURL),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		ring:       history.NewRing(window, interval),
		db:         db,
		started:    time.Now(),
		upgrader:   websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		conns:      make(map[*websocket.Conn]struct{}),
	}

	// Backfill the window from disk so a restart doesn't blank the charts.
	past, err := db.Since(cfg.StationID, time.Now().Add(-window))
	if err != nil {
		return nil, fmt.Errorf("backfill history: %w", err)
	}
	for _, r := range past {
		m.ring.Add(r)
	}
	if len(past) > 0 {
		log.Printf("monitor: backfilled %s stored readings", humanize.Comma(int64(len(past))))
	}

	return m, nil
}

// normalizeStationURL prepends http:// when the scheme is missing, so a bare
// IP address works as a station target.
func normalizeStationURL(raw string) string {
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return "http://" + raw
	}
	return raw
}

// RunMonitor wires up the monitor daemon and blocks serving HTTP.
func RunMonitor() error {
	cfg := config.Get()

	db, err := store.Open(cfg.MonitorDBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	m, err := NewMonitor(cfg, db)
	if err != nil {
		return err
	}

	go m.pollLoop()

	addr := fmt.Sprintf(":%d", cfg.MonitorPort)
	log.Printf("monitor polling %s every %ds, dashboard on %s", m.stationURL, cfg.MonitorPollInterval, addr)
	return http.ListenAndServe(addr, m.NewRouter())
}

func (m *Monitor) pollLoop() {
	interval := time.Duration(m.cfg.MonitorPollInterval) * time.Second
	window := time.Duration(m.cfg.MonitorTimeWindowMinutes) * time.Minute

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	pruneEvery := 0
	for range ticker.C {
		reading, err := m.fetchReading()

		m.mu.Lock()
		m.polls++
		if err != nil {
			m.failures++
			m.lastErr = err.Error()
			m.mu.Unlock()
			log.Printf("monitor: poll error: %v", err)
			continue
		}
		m.lastPoll = time.Now()
		m.lastErr = ""
		m.mu.Unlock()

		m.ring.Add(reading)
		if err := m.db.Put(reading); err != nil {
			log.Printf("monitor: store error: %v", err)
		}
		m.broadcast(reading)

		// Trim stored history once in a while, not on every poll.
		pruneEvery++
		if pruneEvery >= 100 {
			pruneEvery = 0
			if n, err := m.db.Prune(m.cfg.StationID, time.Now().Add(-window)); err != nil {
				log.Printf("monitor: prune error: %v", err)
			} else if n > 0 {
				log.Printf("monitor: pruned %d readings outside the %s window", n, window)
			}
		}
	}
}

// fetchReading polls the station's /sensor endpoint once.
func (m *Monitor) fetchReading() (telemetry.Reading, error) {
	resp, err := m.httpClient.Get(m.stationURL + "/sensor")
	if err != nil {
		return telemetry.Reading{}, fmt.Errorf("station unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return telemetry.Reading{}, fmt.Errorf("station returned status %d", resp.StatusCode)
	}

	var r telemetry.Reading
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return telemetry.Reading{}, fmt.Errorf("decode reading: %w", err)
	}
	if r.Time.IsZero() {
		r.Time = time.Now()
	}
	if r.Station == "" {
		r.Station = m.cfg.StationID
	}
	return r, nil
}

// NewRouter builds the dashboard HTTP routes.
func (m *Monitor) NewRouter() *mux.Router {
	router := mux.NewRouter().StrictSlash(false)

	// /ping is a simple server healthcheck endpoint
	router.Path("/ping").HandlerFunc(pingPong)

	api := router.PathPrefix("/api").Subrouter()
	api.Path("/latest").HandlerFunc(m.handleLatest).Methods(http.MethodGet)
	api.Path("/history").HandlerFunc(m.handleHistory).Methods(http.MethodGet)
	api.Path("/summary").HandlerFunc(m.handleSummary).Methods(http.MethodGet)

	router.Path("/status").HandlerFunc(m.handleStatus).Methods(http.MethodGet)
	router.Path("/ws").HandlerFunc(m.handleWS)
	router.Path("/").HandlerFunc(m.handleIndex).Methods(http.MethodGet)

	return router
}

func pingPong(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("pong"))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("monitor: json encode error: %v", err)
	}
}

func (m *Monitor) handleLatest(w http.ResponseWriter, r *http.Request) {
	latest, ok := m.ring.Latest()
	if !ok {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, latest)
}

func (m *Monitor) handleHistory(w http.ResponseWriter, r *http.Request) {
	minutes := m.cfg.MonitorTimeWindowMinutes
	if q := r.URL.Query().Get("minutes"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 1 {
			http.Error(w, "minutes must be a positive integer", http.StatusBadRequest)
			return
		}
		minutes = n
	}
	readings := m.ring.Since(time.Now().Add(-time.Duration(minutes) * time.Minute))
	if readings == nil {
		readings = []telemetry.Reading{}
	}
	writeJSON(w, readings)
}

func (m *Monitor) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, ok := m.ring.Summary()
	if !ok {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, sum)
}

type monitorStatus struct {
	Station      string `json:"station"`
	StationURL   string `json:"station_url"`
	StartedAt    string `json:"started_at"`
	Uptime       string `json:"uptime"`
	Polls        int    `json:"polls"`
	Failures     int    `json:"failures"`
	LastPoll     string `json:"last_poll"`
	LastError    string `json:"last_error,omitempty"`
	Stale        bool   `json:"stale"`
	BufferedHere int    `json:"buffered_readings"`
	StoredOnDisk int    `json:"stored_readings"`
	WSConns      int    `json:"ws_conns"`
}

func (m *Monitor) handleStatus(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	lastPoll := m.lastPoll
	lastErr := m.lastErr
	polls := m.polls
	failures := m.failures
	m.mu.RUnlock()

	stored, err := m.db.Count(m.cfg.StationID)
	if err != nil {
		log.Printf("monitor: store count error: %v", err)
	}

	m.connsMu.Lock()
	wsConns := len(m.conns)
	m.connsMu.Unlock()

	// Stale when more than two poll intervals have passed without data.
	staleAfter := 2 * time.Duration(m.cfg.MonitorPollInterval) * time.Second
	stale := lastPoll.IsZero() || time.Since(lastPoll) > staleAfter

	lastPollStr := "never"
	if !lastPoll.IsZero() {
		lastPollStr = humanize.Time(lastPoll)
	}

	writeJSON(w, monitorStatus{
		Station:      m.cfg.StationID,
		StationURL:   m.stationURL,
		StartedAt:    m.started.Format(time.RFC3339),
		Uptime:       time.Since(m.started).Round(time.Second).String(),
		Polls:        polls,
		Failures:     failures,
		LastPoll:     lastPollStr,
		LastError:    lastErr,
		Stale:        stale,
		BufferedHere: m.ring.Len(),
		StoredOnDisk: stored,
		WSConns:      wsConns,
	})
}

func (m *Monitor) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("monitor: websocket upgrade error: %v", err)
		return
	}

	m.connsMu.Lock()
	m.conns[conn] = struct{}{}
	m.connsMu.Unlock()
	log.Printf("monitor: websocket client connected (%s)", conn.RemoteAddr())

	// Drain control frames; drop the conn when the client goes away.
	go func() {
		defer m.dropConn(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (m *Monitor) dropConn(conn *websocket.Conn) {
	m.connsMu.Lock()
	delete(m.conns, conn)
	m.connsMu.Unlock()
	_ = conn.Close()
}

// broadcast pushes a reading to every connected websocket client.
func (m *Monitor) broadcast(r telemetry.Reading) {
	payload, err := json.Marshal(r)
	if err != nil {
		log.Printf("monitor: broadcast marshal error: %v", err)
		return
	}

	m.connsMu.Lock()
	conns := make([]*websocket.Conn, 0, len(m.conns))
	for conn := range m.conns {
		conns = append(conns, conn)
	}
	m.connsMu.Unlock()

	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			m.dropConn(conn)
		}
	}
}

func (m *Monitor) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head><title>Picostation Monitor</title></head>
<body>
<h1>Picostation Monitor</h1>
<p>Watching %s</p>
<ul>
<li><a href="/api/latest">/api/latest</a> - most recent reading</li>
<li><a href="/api/history">/api/history?minutes=N</a> - windowed history</li>
<li><a href="/api/summary">/api/summary</a> - per-series statistics</li>
<li><a href="/status">/status</a> - daemon status</li>
<li>/ws - websocket live feed (one JSON reading per message)</li>
</ul>
</body>
</html>
`, m.stationURL)
}
