package app

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/ayusman/pinchdraw/internal/gesture"
	"github.com/ayusman/pinchdraw/internal/mode"
	"github.com/ayusman/pinchdraw/internal/stroke"
)

// SessionConfig configures the per-session drawing state.
type SessionConfig struct {
	InitialMode    mode.Mode
	SmoothingAlpha float64
	Pinch          gesture.PinchConfig
	Strokes        stroke.Config
	Logger         *slog.Logger
}

// Session is the drawing context threaded through every pipeline step. It
// owns the mode, the smoothing and pinch state, the strokes, and the handle
// of the stroke being drawn. A Session is not safe for concurrent use; App
// serializes access to it.
type Session struct {
	Mode     *mode.Switcher
	Smoother *gesture.Smoother
	Pinch    *gesture.PinchDetector
	Strokes  *stroke.Builder

	active  uuid.UUID
	drawing bool
	log     *slog.Logger
}

// NewSession creates a Session with no strokes.
func NewSession(config SessionConfig) *Session {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if config.Strokes.Logger == nil {
		config.Strokes.Logger = logger
	}
	return &Session{
		Mode:     mode.NewSwitcher(config.InitialMode),
		Smoother: gesture.NewSmoother(config.SmoothingAlpha),
		Pinch:    gesture.NewPinchDetector(config.Pinch),
		Strokes:  stroke.NewBuilder(config.Strokes),
		drawing:  true,
		log:      logger,
	}
}

// ActiveStroke returns the stroke currently being drawn.
func (s *Session) ActiveStroke() (uuid.UUID, bool) {
	return s.active, s.active != uuid.Nil
}

// SwitchMode changes the drawing mode. The active stroke is sealed and the
// pinch reset before the new mode becomes visible, so a held pinch starts a
// fresh stroke in the new mode after it ramps up again.
func (s *Session) SwitchMode(m mode.Mode) bool {
	return s.Mode.Switch(m, func(from mode.Mode) {
		if id, ok := s.ActiveStroke(); ok {
			s.log.Info("sealing stroke for mode switch", "stroke", id, "from", from, "to", m)
		}
		s.endActive()
		s.Pinch.Reset()
	})
}

// DrawingEnabled reports whether a pinch starts strokes.
func (s *Session) DrawingEnabled() bool {
	return s.drawing
}

// SetDrawingEnabled turns stroke creation on or off. Tracking and pinch
// detection keep running while drawing is off. Turning it off seals the
// active stroke. It reports whether the setting changed.
func (s *Session) SetDrawingEnabled(on bool) bool {
	if s.drawing == on {
		return false
	}
	if !on {
		s.endActive()
	}
	s.drawing = on
	return true
}

// ToggleMode flips between world and screen mode.
func (s *Session) ToggleMode() mode.Mode {
	next := mode.WorldAnchored
	if s.Mode.Current() == mode.WorldAnchored {
		next = mode.ScreenSpace
	}
	s.SwitchMode(next)
	return s.Mode.Current()
}

// ClearAll discards every stroke and drops the active handle.
func (s *Session) ClearAll() int {
	s.active = uuid.Nil
	return s.Strokes.ClearAll()
}

func (s *Session) endActive() {
	if s.active == uuid.Nil {
		return
	}
	id := s.active
	s.active = uuid.Nil
	if err := s.Strokes.End(id); err != nil {
		s.log.Warn("ending stroke", "stroke", id, "err", err)
	}
}
