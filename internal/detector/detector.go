package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// Detector defines the interface for hand detection implementations.
type Detector interface {
	// Detect analyzes a video frame and returns detected hand landmarks.
	// Returns an empty slice if no hands are detected.
	Detect(frame *gocv.Mat) ([]HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for hand detection.
type Config struct {
	// MaxHands is the maximum number of hands to detect. Drawing uses the
	// first hand only.
	MaxHands int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxHands:        1,
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
	}
}

// Source is the accessor the drawing pipeline polls once per tick.
//
// Latest returns the newest frame not yet consumed. ok is false when no new
// frame has been produced since the previous call; the caller must then keep
// its current state rather than re-run detection. A ready frame with a nil
// hand means inference ran and found no hand.
type Source interface {
	Latest() (hand *HandLandmarks, ok bool)
}

// Mailbox is a single-slot, latest-wins Source. Producers running their own
// inference loop call Publish; the frame loop calls Latest.
type Mailbox struct {
	mu      sync.Mutex
	hand    *HandLandmarks
	ready   bool
	dropped int
}

// NewMailbox creates an empty Mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{}
}

// Publish stores hand as the newest frame, replacing any unconsumed one.
// A nil hand publishes an explicit "no hand" frame.
func (m *Mailbox) Publish(hand *HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ready {
		m.dropped++
	}
	m.hand = hand
	m.ready = true
}

// Latest implements Source.
func (m *Mailbox) Latest() (*HandLandmarks, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.ready {
		return nil, false
	}
	hand := m.hand
	m.hand = nil
	m.ready = false
	return hand, true
}

// Dropped returns how many frames were overwritten before being consumed.
func (m *Mailbox) Dropped() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dropped
}

// FirstHand returns the first detected hand, or nil when hands is empty.
func FirstHand(hands []HandLandmarks) *HandLandmarks {
	if len(hands) == 0 {
		return nil
	}
	h := hands[0]
	return &h
}
