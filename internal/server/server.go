// Package server provides the HTTP server for the pinchdraw drawing session.
package server

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/ayusman/pinchdraw/internal/app"
	"github.com/ayusman/pinchdraw/internal/render"
	"github.com/ayusman/pinchdraw/internal/server/api"
	"github.com/ayusman/pinchdraw/internal/store"
)

// maxSnapshotSide bounds the width and height query parameters of
// /api/snapshot.png.
const maxSnapshotSide = 4096

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	App       *app.App
	Snapshot  render.Options
}

// Server represents the HTTP server for the pinchdraw application.
type Server struct {
	config Config
	mux    *http.ServeMux
	hub    *EventHub
	start  time.Time
}

// New creates a new Server with the given configuration. When an App is
// configured its stroke, mode, drawing and frame events are forwarded to
// /api/events.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		hub:    NewEventHub(),
		start:  time.Now(),
	}
	if config.App != nil {
		config.App.OnStroke(s.hub.StrokeListener())
		config.App.OnModeChange(s.hub.ModeListener())
		config.App.OnDrawingChange(s.hub.DrawingListener())
		config.App.OnFrame(s.hub.FrameListener())
	}
	s.setupRoutes()
	return s
}

// Hub returns the websocket event hub.
func (s *Server) Hub() *EventHub {
	return s.hub
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.App != nil {
		var settings *store.SettingsRepository
		if s.config.Store != nil {
			settings = s.config.Store.Settings()
		}
		s.mux.Handle("/api/mode", api.NewModeHandler(s.config.App, settings))
		s.mux.Handle("/api/strokes", api.NewStrokesHandler(s.config.App))
		s.mux.Handle("/api/drawing", api.NewDrawingHandler(s.config.App))
		s.mux.HandleFunc("/api/snapshot.png", s.handleSnapshot)
		s.mux.Handle("/api/events", s.hub)
	}

	if s.config.Store != nil {
		recordings := api.NewRecordingsHandler(s.config.Store)
		s.mux.Handle("/api/recordings", recordings)
		s.mux.Handle("/api/recordings/", recordings)
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]any{
		"status":  "ok",
		"uptime":  time.Since(s.start).String(),
		"clients": s.hub.Clients(),
	}
	if a := s.config.App; a != nil {
		state, confidence := a.Pinch()
		response["mode"] = a.Mode()
		response["enabled"] = a.Enabled()
		response["drawing"] = a.DrawingEnabled()
		response["pinch"] = map[string]any{
			"state":      state.String(),
			"confidence": confidence,
		}
		response["stats"] = a.Stats()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// handleSnapshot renders the current strokes from the current camera pose.
// Optional width and height query parameters set the image size.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	camera := s.config.App.Camera()
	if camera == nil {
		http.Error(w, "No camera configured", http.StatusServiceUnavailable)
		return
	}
	pose, ok := camera.Pose()
	if !ok {
		http.Error(w, "Camera pose unavailable", http.StatusServiceUnavailable)
		return
	}

	opts := s.config.Snapshot
	for name, dst := range map[string]*int{"width": &opts.Width, "height": &opts.Height} {
		raw := r.URL.Query().Get(name)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 || v > maxSnapshotSide {
			http.Error(w, "Invalid "+name, http.StatusBadRequest)
			return
		}
		*dst = v
	}

	var buf bytes.Buffer
	if err := render.WritePNG(&buf, s.config.App.Strokes(), pose, opts); err != nil {
		log.Printf("Error rendering snapshot: %v", err)
		http.Error(w, "Failed to render snapshot", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(buf.Bytes())
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}
