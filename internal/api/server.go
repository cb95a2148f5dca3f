package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/bryanchriswhite/glazesync/internal/glazewm"
	"github.com/bryanchriswhite/glazesync/internal/logger"
	"github.com/bryanchriswhite/glazesync/internal/state"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// Backend is the synchronized state and command surface the API exposes
type Backend interface {
	Read() (state.Snapshot, state.ConnectionHealth)
	Threshold() int
	Send(ctx context.Context, command string) error
	FocusWorkspace(ctx context.Context, name string) error
}

// AutoToggle reads and flips the runtime auto-toggle flag
type AutoToggle interface {
	AutoToggleTiling() bool
	SetAutoToggleTiling(enabled bool)
}

// StateView is the JSON document served for the current state
type StateView struct {
	Snapshot state.Snapshot         `json:"snapshot"`
	Health   state.ConnectionHealth `json:"health"`
	Degraded bool                   `json:"degraded"`
}

// Server represents the HTTP API server
type Server struct {
	router     *mux.Router
	backend    Backend
	autoToggle AutoToggle
	upgrader   websocket.Upgrader
	httpServer *http.Server

	mu        sync.RWMutex
	listeners []chan StateView
}

// NewServer creates a new API server
func NewServer(backend Backend, autoToggle AutoToggle) *Server {
	s := &Server{
		router:     mux.NewRouter(),
		backend:    backend,
		autoToggle: autoToggle,
		upgrader: websocket.Upgrader{
			// Only served on localhost for local status surfaces
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		listeners: make([]chan StateView, 0),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// Synchronized state
	api.HandleFunc("/state", s.handleGetState).Methods("GET")
	api.HandleFunc("/state/stream", s.handleStateStream)
	api.HandleFunc("/health", s.handleHealth).Methods("GET")
	api.HandleFunc("/workspaces/{name}", s.handleGetWorkspace).Methods("GET")

	// Commands
	api.HandleFunc("/command", s.handleCommand).Methods("POST")
	api.HandleFunc("/workspaces/{name}/focus", s.handleFocusWorkspace).Methods("POST")

	// Runtime configuration
	api.HandleFunc("/config/auto-toggle", s.handleGetAutoToggle).Methods("GET")
	api.HandleFunc("/config/auto-toggle", s.handleSetAutoToggle).Methods("PUT")
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on localhost:port and blocks until the server stops
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.WithComponent("api").Info().Str("addr", addr).Msg("Starting API server")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server and closes all stream subscribers
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	for _, ch := range s.listeners {
		close(ch)
	}
	s.listeners = nil
	s.mu.Unlock()

	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Publish pushes the current state to stream subscribers. Register it as the
// engine's change callback.
func (s *Server) Publish() {
	view := s.currentView()

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, listener := range s.listeners {
		select {
		case listener <- view:
		default:
			// Skip if channel is full
		}
	}
}

// subscribe adds a listener for state changes
func (s *Server) subscribe() chan StateView {
	ch := make(chan StateView, 10)
	s.mu.Lock()
	s.listeners = append(s.listeners, ch)
	s.mu.Unlock()
	return ch
}

// unsubscribe removes a listener
func (s *Server) unsubscribe(ch chan StateView) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, listener := range s.listeners {
		if listener == ch {
			s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
			close(ch)
			break
		}
	}
}

func (s *Server) currentView() StateView {
	snap, health := s.backend.Read()
	return StateView{
		Snapshot: snap,
		Health:   health,
		Degraded: health.Degraded(s.backend.Threshold()),
	}
}

// HTTP Handlers

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.currentView())
}

func (s *Server) handleStateStream(w http.ResponseWriter, r *http.Request) {
	log := logger.WithComponent("api")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	updates := s.subscribe()
	defer s.unsubscribe(updates)

	// Detect client disconnects; the stream is write-only otherwise.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := conn.WriteJSON(s.currentView()); err != nil {
		log.Debug().Err(err).Msg("WebSocket write failed")
		return
	}

	for {
		select {
		case view, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(view); err != nil {
				log.Debug().Err(err).Msg("WebSocket write failed")
				return
			}
		case <-closed:
			return
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	_, health := s.backend.Read()
	threshold := s.backend.Threshold()
	status := "healthy"
	if health.Degraded(threshold) {
		status = "degraded"
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":             status,
		"consecutive_errors": health.ConsecutiveErrorCount,
		"degraded_threshold": threshold,
		"last_error":         health.LastError,
	})
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Command string `json:"command"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Command == "" {
		http.Error(w, "command is required", http.StatusBadRequest)
		return
	}

	if err := s.backend.Send(r.Context(), req.Command); err != nil {
		http.Error(w, err.Error(), commandStatus(err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (s *Server) handleGetWorkspace(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	snap, _ := s.backend.Read()
	ws, ok := snap.Workspace(name)
	if !ok {
		http.Error(w, "workspace not found: "+name, http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, ws)
}

func (s *Server) handleFocusWorkspace(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	if err := s.backend.FocusWorkspace(r.Context(), name); err != nil {
		http.Error(w, err.Error(), commandStatus(err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (s *Server) handleGetAutoToggle(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": s.autoToggle.AutoToggleTiling()})
}

func (s *Server) handleSetAutoToggle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled *bool `json:"enabled"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Enabled == nil {
		http.Error(w, "enabled is required", http.StatusBadRequest)
		return
	}

	s.autoToggle.SetAutoToggleTiling(*req.Enabled)
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": *req.Enabled})
}

// commandStatus maps a command failure onto an HTTP status
func commandStatus(err error) int {
	switch {
	case glazewm.IsKind(err, glazewm.KindRejected):
		return http.StatusUnprocessableEntity
	case glazewm.IsKind(err, glazewm.KindTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
