package gesture

import (
	"math"

	"github.com/ayusman/pinchdraw/internal/detector"
)

// PinchState describes where the detector is on its confidence ramp.
type PinchState int

const (
	// Idle means confidence is zero.
	Idle PinchState = iota
	// Engaging means confidence is building but has not crossed 0.5.
	Engaging
	// Active means the hand is pinching (confidence > 0.5).
	Active
	// Releasing means confidence fell below 0.5 and is still decaying.
	Releasing
)

func (s PinchState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Engaging:
		return "engaging"
	case Active:
		return "active"
	case Releasing:
		return "releasing"
	default:
		return "unknown"
	}
}

// Transition is the edge emitted by one detector update.
type Transition int

const (
	// None means the hand was not pinching before or after the update.
	None Transition = iota
	// Started means the pinch just engaged.
	Started
	// Continued means the pinch was held through the update.
	Continued
	// Stopped means the pinch just released.
	Stopped
)

func (t Transition) String() string {
	switch t {
	case None:
		return "none"
	case Started:
		return "started"
	case Continued:
		return "continued"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// PinchConfig tunes the pinch state machine.
type PinchConfig struct {
	// Threshold is the fingertip distance below which confidence ramps up.
	Threshold float64
	// Hysteresis widens the release distance to Threshold+Hysteresis.
	// Between the two confidence holds still.
	Hysteresis float64
	// RampRate is the confidence change per second.
	RampRate float64
}

// DefaultPinchConfig returns the tuning used for normalized landmarks.
func DefaultPinchConfig() PinchConfig {
	return PinchConfig{
		Threshold:  0.05,
		Hysteresis: 0.015,
		RampRate:   5,
	}
}

// pinchOn is the confidence above which the hand counts as pinching.
const pinchOn = 0.5

// PinchDetector is a confidence-ramped hysteresis state machine over the
// thumb-tip/index-tip distance. It is not safe for concurrent use.
type PinchDetector struct {
	config     PinchConfig
	confidence float64
	pinching   bool
	state      PinchState
	distance   float64
}

// NewPinchDetector creates a detector. Zero fields in config take the defaults.
func NewPinchDetector(config PinchConfig) *PinchDetector {
	def := DefaultPinchConfig()
	if config.Threshold <= 0 {
		config.Threshold = def.Threshold
	}
	switch {
	case config.Hysteresis == 0:
		config.Hysteresis = def.Hysteresis
	case config.Hysteresis < 0:
		// Negative disables the band.
		config.Hysteresis = 0
	}
	if config.RampRate <= 0 {
		config.RampRate = def.RampRate
	}
	return &PinchDetector{config: config, state: Idle, distance: math.Inf(1)}
}

// Config returns the active tuning.
func (d *PinchDetector) Config() PinchConfig {
	return d.config
}

// Confidence returns the current pinch confidence in [0,1].
func (d *PinchDetector) Confidence() float64 {
	return d.confidence
}

// Pinching reports whether confidence is above 0.5.
func (d *PinchDetector) Pinching() bool {
	return d.pinching
}

// State returns the current PinchState.
func (d *PinchDetector) State() PinchState {
	return d.state
}

// Distance returns the fingertip distance seen by the last Update.
func (d *PinchDetector) Distance() float64 {
	return d.distance
}

// Update feeds one frame's fingertips, dt seconds after the previous frame.
func (d *PinchDetector) Update(thumbTip, indexTip detector.Point3D, dt float64) Transition {
	if !(dt > 0) || math.IsInf(dt, 1) {
		dt = 0
	}

	d.distance = thumbTip.Distance(indexTip)
	prev := d.confidence
	step := dt * d.config.RampRate

	switch {
	case d.distance < d.config.Threshold:
		d.confidence = math.Min(1, d.confidence+step)
	case d.distance > d.config.Threshold+d.config.Hysteresis:
		d.confidence = math.Max(0, d.confidence-step)
	}

	return d.settle(prev)
}

// Release handles a frame with no usable hand: an active pinch stops
// immediately and the detector drops to Idle.
func (d *PinchDetector) Release() Transition {
	wasPinching := d.pinching
	d.Reset()
	if wasPinching {
		return Stopped
	}
	return None
}

// Reset returns to Idle without emitting a transition.
func (d *PinchDetector) Reset() {
	d.confidence = 0
	d.pinching = false
	d.state = Idle
	d.distance = math.Inf(1)
}

func (d *PinchDetector) settle(prev float64) Transition {
	was := d.pinching
	d.pinching = d.confidence > pinchOn

	switch {
	case d.pinching:
		d.state = Active
	case d.confidence == 0:
		d.state = Idle
	case d.confidence < prev:
		d.state = Releasing
	case d.state != Releasing || d.confidence > prev:
		d.state = Engaging
	}

	switch {
	case !was && d.pinching:
		return Started
	case was && d.pinching:
		return Continued
	case was && !d.pinching:
		return Stopped
	default:
		return None
	}
}

// PinchPoint returns the drawing location for a pinch: the fingertip midpoint.
func PinchPoint(thumbTip, indexTip detector.Point3D) detector.Point3D {
	return thumbTip.Midpoint(indexTip)
}
