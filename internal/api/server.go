// Package api provides the HTTP surface for observing a running
// simulation. All endpoints are read-only; the observer stream pushes
// state snapshots over a websocket.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/talgya/society-sim/internal/metrics"
	"github.com/talgya/society-sim/internal/persistence"
	"github.com/talgya/society-sim/internal/sim"
)

// AgentView is the per-agent slice of a snapshot sent to observers.
type AgentView struct {
	ID      string  `json:"id"`
	Role    string  `json:"role"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Heading float64 `json:"heading"`
	Intent  string  `json:"intent,omitempty"`
	Thought string  `json:"thought,omitempty"`
	Chat    string  `json:"chat,omitempty"`
	PathLen int     `json:"path_len"`
}

// Snapshot is the full observable state at one tick. The engine
// goroutine builds it; the HTTP surface only ever reads copies.
type Snapshot struct {
	RunID      string      `json:"run_id"`
	ScenarioID string      `json:"scenario_id"`
	Clock      float64     `json:"clock"`
	Tick       uint64      `json:"tick"`
	Agents     []AgentView `json:"agents"`
	Events     []sim.Event `json:"events"`
}

// BuildSnapshot copies observable agent state out of the simulation.
// Must be called on the simulation goroutine.
func BuildSnapshot(s *sim.Simulation, tick uint64) Snapshot {
	snap := Snapshot{
		RunID:      s.RunID,
		ScenarioID: s.Assets.ScenarioID,
		Clock:      s.Clock,
		Tick:       tick,
		Agents:     make([]AgentView, 0, len(s.Agents)),
		Events:     s.RecentEvents(50),
	}
	for _, a := range s.Agents {
		snap.Agents = append(snap.Agents, AgentView{
			ID:      string(a.ID),
			Role:    string(a.Role),
			X:       a.X,
			Y:       a.Y,
			Heading: a.Heading,
			Intent:  string(a.Intent),
			Thought: a.Thought,
			Chat:    a.ChatLine,
			PathLen: len(a.Path),
		})
	}
	return snap
}

// Server serves simulation state over HTTP and websocket.
type Server struct {
	DB      *persistence.DB
	Metrics *metrics.Aggregator
	Port    int

	mu      sync.RWMutex
	snap    Snapshot
	started time.Time

	hubMu   sync.Mutex
	clients map[*observerClient]struct{}
}

type observerClient struct {
	conn *websocket.Conn
	send chan []byte
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 32 * 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// routes builds the endpoint mux. Split from Start so tests can mount
// it on a test server.
func (s *Server) routes() *http.ServeMux {
	runsLimiter := NewRateLimiter(60, time.Minute)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/agents", s.handleAgents)
	mux.HandleFunc("/api/v1/events", s.handleEvents)
	mux.HandleFunc("/api/v1/metrics", s.handleMetrics)
	mux.HandleFunc("/api/v1/runs", RateLimitMiddleware(runsLimiter, s.handleRuns))
	mux.HandleFunc("/api/v1/observe", s.handleObserve)
	return mux
}

// Start begins serving in a goroutine.
func (s *Server) Start() {
	s.started = time.Now()
	s.clients = make(map[*observerClient]struct{})

	mux := s.routes()
	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr)

	go func() {
		handler := corsMiddleware(mux)
		if err := http.ListenAndServe(addr, handler); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// Publish stores the latest snapshot and fans it out to observers.
// Called from the engine goroutine.
func (s *Server) Publish(snap Snapshot) {
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()

	payload, err := json.Marshal(snap)
	if err != nil {
		return
	}

	s.hubMu.Lock()
	for c := range s.clients {
		select {
		case c.send <- payload:
		default:
			// Slow observer: drop the frame rather than stall the engine.
		}
	}
	s.hubMu.Unlock()
}

func (s *Server) snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshot()
	writeJSON(w, map[string]any{
		"run_id":      snap.RunID,
		"scenario_id": snap.ScenarioID,
		"clock":       snap.Clock,
		"tick":        snap.Tick,
		"agents":      len(snap.Agents),
		"uptime_secs": int(time.Since(s.started).Seconds()),
	})
}

func (s *Server) handleAgents(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshot()
	writeJSON(w, map[string]any{
		"clock":  snap.Clock,
		"agents": snap.Agents,
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	snap := s.snapshot()
	events := snap.Events
	if cat := r.URL.Query().Get("category"); cat != "" {
		var filtered []sim.Event
		for _, e := range events {
			if e.Category == cat {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}
	if len(events) > limit {
		events = events[len(events)-limit:]
	}
	writeJSON(w, map[string]any{"events": events})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if s.Metrics == nil {
		writeJSON(w, map[string]any{"bins": []metrics.Bin{}})
		return
	}
	writeJSON(w, map[string]any{"bins": s.Metrics.Snapshot()})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		writeJSON(w, map[string]any{"runs": []persistence.RunRow{}})
		return
	}
	rows, err := s.DB.RecentRuns(20)
	if err != nil {
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"runs": rows})
}

// handleObserve upgrades to a websocket and streams snapshots until
// the client goes away.
func (s *Server) handleObserve(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("observer upgrade failed", "error", err)
		return
	}

	c := &observerClient{conn: conn, send: make(chan []byte, 8)}

	s.hubMu.Lock()
	s.clients[c] = struct{}{}
	n := len(s.clients)
	s.hubMu.Unlock()
	slog.Info("observer connected", "remote", r.RemoteAddr, "observers", n)

	// Seed the new observer with the latest state.
	if payload, err := json.Marshal(s.snapshot()); err == nil {
		select {
		case c.send <- payload:
		default:
		}
	}

	go s.writeLoop(c)
	s.readLoop(c)
}

func (s *Server) writeLoop(c *observerClient) {
	for payload := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			c.conn.Close()
			return
		}
	}
	c.conn.Close()
}

// readLoop discards inbound frames and tears the client down on error.
func (s *Server) readLoop(c *observerClient) {
	defer func() {
		s.hubMu.Lock()
		delete(s.clients, c)
		s.hubMu.Unlock()
		close(c.send)
	}()
	c.conn.SetReadLimit(1024)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS to a comma-separated list of extra allowed origins;
// localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
