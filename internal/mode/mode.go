// Package mode holds the process-wide drawing mode and the switcher that
// changes it.
package mode

import (
	"fmt"
	"strings"
	"sync"
)

// Mode selects how pinch positions are turned into stroke geometry.
type Mode int

const (
	// WorldAnchored strokes are fixed in 3D scene space.
	WorldAnchored Mode = iota
	// ScreenSpace strokes are drawn in 2D pixel space on a camera-facing plane.
	ScreenSpace
)

// String returns the text form used by the HTTP API and CLI flags.
func (m Mode) String() string {
	switch m {
	case WorldAnchored:
		return "world"
	case ScreenSpace:
		return "screen"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == WorldAnchored || m == ScreenSpace
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("invalid mode %d", int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Parse converts "world"/"3d" or "screen"/"2d" into a Mode.
func Parse(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "world", "3d", "world-anchored":
		return WorldAnchored, nil
	case "screen", "2d", "screen-space":
		return ScreenSpace, nil
	default:
		return 0, fmt.Errorf("unknown drawing mode %q", s)
	}
}

// Switcher owns the current Mode. It has a single writer (Switch) and any
// number of readers. Because the mode is one value, exactly one mode is active
// at any instant.
type Switcher struct {
	mu          sync.RWMutex
	current     Mode
	subscribers []func(from, to Mode)
}

// NewSwitcher creates a Switcher starting in initial. Invalid modes fall back
// to WorldAnchored.
func NewSwitcher(initial Mode) *Switcher {
	if !initial.Valid() {
		initial = WorldAnchored
	}
	return &Switcher{current: initial}
}

// Current returns the active mode.
func (s *Switcher) Current() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Subscribe registers fn to be called after every mode change.
func (s *Switcher) Subscribe(fn func(from, to Mode)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// Switch changes the mode to `to`. beforeChange, if non-nil, runs while the
// old mode is still current and before any reader can observe the new one;
// it is where an active stroke gets sealed. Switch returns false and does
// nothing when `to` is invalid or already current.
func (s *Switcher) Switch(to Mode, beforeChange func(from Mode)) bool {
	if !to.Valid() {
		return false
	}

	s.mu.Lock()
	from := s.current
	if from == to {
		s.mu.Unlock()
		return false
	}
	if beforeChange != nil {
		beforeChange(from)
	}
	s.current = to
	subscribers := make([]func(from, to Mode), len(s.subscribers))
	copy(subscribers, s.subscribers)
	s.mu.Unlock()

	// Notify outside the lock so subscribers may call Current.
	for _, fn := range subscribers {
		fn(from, to)
	}
	return true
}
