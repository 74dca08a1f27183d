package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/pinchdraw/internal/store"
)

// RecordingsHandler handles HTTP requests for stored landmark recordings.
type RecordingsHandler struct {
	repo *store.RecordingRepository
}

// NewRecordingsHandler creates a new RecordingsHandler with the given store.
func NewRecordingsHandler(s *store.Store) *RecordingsHandler {
	return &RecordingsHandler{repo: s.Recordings()}
}

// ServeHTTP implements the http.Handler interface.
// Expected paths: /api/recordings or /api/recordings/{id}
func (h *RecordingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/recordings")
	path = strings.Trim(path, "/")

	if path == "" {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		h.list(w, r)
		return
	}

	if strings.Contains(path, "/") {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, r, path)
	case http.MethodDelete:
		h.delete(w, r, path)
	default:
		methodNotAllowed(w)
	}
}

type recordingResponse struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Frames     int           `json:"frames"`
	DurationMs int64         `json:"duration_ms"`
	CreatedAt  string        `json:"created_at"`
	Data       []store.Frame `json:"data,omitempty"`
}

type listRecordingsResponse struct {
	Recordings []recordingResponse `json:"recordings"`
}

func toRecordingResponse(rec *store.Recording) recordingResponse {
	return recordingResponse{
		ID:         rec.ID,
		Name:       rec.Name,
		Frames:     rec.Frames,
		DurationMs: rec.DurationMs,
		CreatedAt:  formatTime(rec.CreatedAt),
	}
}

// list handles GET /api/recordings.
func (h *RecordingsHandler) list(w http.ResponseWriter, r *http.Request) {
	recordings, err := h.repo.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list recordings")
		return
	}

	response := listRecordingsResponse{
		Recordings: make([]recordingResponse, 0, len(recordings)),
	}
	for _, rec := range recordings {
		response.Recordings = append(response.Recordings, toRecordingResponse(rec))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/recordings/{id}. Frames are included with ?frames=true.
func (h *RecordingsHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	rec, err := h.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Recording not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get recording")
		return
	}

	response := toRecordingResponse(rec)
	if r.URL.Query().Get("frames") == "true" {
		frames, err := h.repo.Frames(id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to load frames")
			return
		}
		response.Data = frames
	}

	writeJSON(w, http.StatusOK, response)
}

// delete handles DELETE /api/recordings/{id}.
func (h *RecordingsHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.repo.Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Recording not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete recording")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
