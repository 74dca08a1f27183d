package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/ayusman/pinchdraw/internal/mode"
	"github.com/ayusman/pinchdraw/internal/store"
	"github.com/ayusman/pinchdraw/internal/stroke"
)

// Drawing is the part of the running session the HTTP API controls.
type Drawing interface {
	Mode() mode.Mode
	SetMode(m mode.Mode) bool
	Strokes() []stroke.Stroke
	ClearAll() int
}

// ModeHandler serves GET and PUT /api/mode. When settings is non-nil a
// successful PUT is persisted so the next run starts in the same mode.
type ModeHandler struct {
	drawing  Drawing
	settings *store.SettingsRepository
}

// NewModeHandler creates a ModeHandler. settings may be nil.
func NewModeHandler(d Drawing, settings *store.SettingsRepository) *ModeHandler {
	return &ModeHandler{drawing: d, settings: settings}
}

type modeRequest struct {
	Mode string `json:"mode"`
}

type modeResponse struct {
	Mode    mode.Mode `json:"mode"`
	Changed bool      `json:"changed"`
}

// ServeHTTP implements the http.Handler interface.
func (h *ModeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, modeResponse{Mode: h.drawing.Mode()})
	case http.MethodPut:
		h.update(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (h *ModeHandler) update(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	m, err := mode.Parse(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	changed := h.drawing.SetMode(m)
	if h.settings != nil {
		if err := h.settings.Set(store.SettingMode, m.String()); err != nil {
			log.Printf("Error saving mode setting: %v", err)
		}
	}

	writeJSON(w, http.StatusOK, modeResponse{Mode: h.drawing.Mode(), Changed: changed})
}

// StrokesHandler serves GET and DELETE /api/strokes.
type StrokesHandler struct {
	drawing Drawing
}

// NewStrokesHandler creates a StrokesHandler.
func NewStrokesHandler(d Drawing) *StrokesHandler {
	return &StrokesHandler{drawing: d}
}

type listStrokesResponse struct {
	Mode    mode.Mode       `json:"mode"`
	Strokes []stroke.Stroke `json:"strokes"`
}

type clearStrokesResponse struct {
	Cleared int `json:"cleared"`
}

// ServeHTTP implements the http.Handler interface.
func (h *StrokesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		strokes := h.drawing.Strokes()
		if strokes == nil {
			strokes = []stroke.Stroke{}
		}
		writeJSON(w, http.StatusOK, listStrokesResponse{Mode: h.drawing.Mode(), Strokes: strokes})
	case http.MethodDelete:
		writeJSON(w, http.StatusOK, clearStrokesResponse{Cleared: h.drawing.ClearAll()})
	default:
		methodNotAllowed(w)
	}
}

// Pausable turns stroke creation on and off without stopping tracking.
type Pausable interface {
	DrawingEnabled() bool
	SetDrawingEnabled(on bool) bool
}

// DrawingHandler serves GET and PUT /api/drawing.
type DrawingHandler struct {
	drawing Pausable
}

// NewDrawingHandler creates a DrawingHandler.
func NewDrawingHandler(d Pausable) *DrawingHandler {
	return &DrawingHandler{drawing: d}
}

type drawingRequest struct {
	Enabled *bool `json:"enabled"`
}

type drawingResponse struct {
	Enabled bool `json:"enabled"`
	Changed bool `json:"changed"`
}

// ServeHTTP implements the http.Handler interface.
func (h *DrawingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, drawingResponse{Enabled: h.drawing.DrawingEnabled()})
	case http.MethodPut:
		var req drawingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		if req.Enabled == nil {
			writeError(w, http.StatusBadRequest, "enabled is required")
			return
		}
		changed := h.drawing.SetDrawingEnabled(*req.Enabled)
		writeJSON(w, http.StatusOK, drawingResponse{Enabled: h.drawing.DrawingEnabled(), Changed: changed})
	default:
		methodNotAllowed(w)
	}
}
