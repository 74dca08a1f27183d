package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ayusman/pinchdraw/internal/mode"
	"github.com/ayusman/pinchdraw/internal/store"
	"github.com/ayusman/pinchdraw/internal/stroke"
)

type fakeDrawing struct {
	mu      sync.Mutex
	mode    mode.Mode
	strokes []stroke.Stroke
}

func (f *fakeDrawing) Mode() mode.Mode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mode
}

func (f *fakeDrawing) SetMode(m mode.Mode) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mode == m {
		return false
	}
	f.mode = m
	return true
}

func (f *fakeDrawing) Strokes() []stroke.Stroke {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.strokes
}

func (f *fakeDrawing) ClearAll() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.strokes)
	f.strokes = nil
	return n
}

func TestModeHandler(t *testing.T) {
	s := newTestStore(t)
	drawing := &fakeDrawing{mode: mode.WorldAnchored}
	handler := NewModeHandler(drawing, s.Settings())

	t.Run("GET returns current mode", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/mode", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		var body map[string]any
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if body["mode"] != "world" {
			t.Errorf("expected mode world, got %v", body["mode"])
		}
	})

	t.Run("PUT switches and persists", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, "/api/mode", strings.NewReader(`{"mode":"screen"}`))
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
		}
		var response modeResponse
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if response.Mode != mode.ScreenSpace || !response.Changed {
			t.Errorf("unexpected response %+v", response)
		}
		if drawing.Mode() != mode.ScreenSpace {
			t.Error("drawing mode was not switched")
		}
		if got, err := s.Settings().Get(store.SettingMode); err != nil || got != "screen" {
			t.Errorf("persisted mode = %q, %v", got, err)
		}
	})

	t.Run("PUT same mode reports unchanged", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, "/api/mode", strings.NewReader(`{"mode":"2d"}`))
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		var response modeResponse
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if response.Changed {
			t.Error("expected changed=false")
		}
	})

	t.Run("bad input", func(t *testing.T) {
		tests := []struct {
			name string
			body string
		}{
			{"invalid json", `{`},
			{"unknown mode", `{"mode":"sideways"}`},
			{"missing mode", `{}`},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				req := httptest.NewRequest(http.MethodPut, "/api/mode", strings.NewReader(tt.body))
				rec := httptest.NewRecorder()

				handler.ServeHTTP(rec, req)

				if rec.Code != http.StatusBadRequest {
					t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
				}
			})
		}
	})

	t.Run("rejects POST", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/mode", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
		}
	})
}

func TestModeHandler_WithoutSettings(t *testing.T) {
	drawing := &fakeDrawing{mode: mode.ScreenSpace}
	handler := NewModeHandler(drawing, nil)

	req := httptest.NewRequest(http.MethodPut, "/api/mode", strings.NewReader(`{"mode":"world"}`))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if drawing.Mode() != mode.WorldAnchored {
		t.Error("drawing mode was not switched")
	}
}

func TestStrokesHandler(t *testing.T) {
	drawing := &fakeDrawing{
		mode: mode.ScreenSpace,
		strokes: []stroke.Stroke{
			{Space: mode.ScreenSpace, Sealed: true, Vertices: []stroke.Vertex{{}, {}}},
			{Space: mode.WorldAnchored},
		},
	}
	handler := NewStrokesHandler(drawing)

	t.Run("GET lists strokes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/strokes", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}
		var body struct {
			Mode    string           `json:"mode"`
			Strokes []map[string]any `json:"strokes"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if body.Mode != "screen" || len(body.Strokes) != 2 {
			t.Fatalf("unexpected body %+v", body)
		}
		if body.Strokes[0]["space"] != "screen" || body.Strokes[0]["sealed"] != true {
			t.Errorf("unexpected first stroke %v", body.Strokes[0])
		}
	})

	t.Run("DELETE clears", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/api/strokes", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		var response clearStrokesResponse
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if response.Cleared != 2 {
			t.Errorf("expected 2 cleared, got %d", response.Cleared)
		}
	})

	t.Run("GET after clear returns empty array", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/strokes", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if !strings.Contains(rec.Body.String(), `"strokes":[]`) {
			t.Errorf("expected empty strokes array, got %s", rec.Body.String())
		}
	})
}

type fakePausable struct {
	enabled bool
}

func (f *fakePausable) DrawingEnabled() bool { return f.enabled }

func (f *fakePausable) SetDrawingEnabled(on bool) bool {
	changed := f.enabled != on
	f.enabled = on
	return changed
}

func TestDrawingHandler(t *testing.T) {
	drawing := &fakePausable{enabled: true}
	handler := NewDrawingHandler(drawing)

	tests := []struct {
		name        string
		method      string
		body        string
		wantStatus  int
		wantEnabled bool
		wantChanged bool
	}{
		{"GET reports state", http.MethodGet, "", http.StatusOK, true, false},
		{"PUT pauses", http.MethodPut, `{"enabled":false}`, http.StatusOK, false, true},
		{"PUT same value is unchanged", http.MethodPut, `{"enabled":false}`, http.StatusOK, false, false},
		{"PUT resumes", http.MethodPut, `{"enabled":true}`, http.StatusOK, true, true},
		{"PUT without enabled", http.MethodPut, `{}`, http.StatusBadRequest, true, false},
		{"PUT invalid JSON", http.MethodPut, `{`, http.StatusBadRequest, true, false},
		{"POST not allowed", http.MethodPost, "", http.StatusMethodNotAllowed, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/drawing", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if drawing.enabled != tt.wantEnabled {
				t.Errorf("enabled = %v, want %v", drawing.enabled, tt.wantEnabled)
			}
			if rec.Code != http.StatusOK {
				return
			}
			var response drawingResponse
			if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if response.Enabled != tt.wantEnabled || response.Changed != tt.wantChanged {
				t.Errorf("response = %+v, want enabled=%v changed=%v", response, tt.wantEnabled, tt.wantChanged)
			}
		})
	}
}
