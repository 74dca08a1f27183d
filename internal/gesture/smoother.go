// Package gesture turns a per-frame landmark stream into stable pinch events.
package gesture

import "github.com/ayusman/pinchdraw/internal/detector"

// DefaultSmoothingAlpha weights the newest sample. Small values smooth heavily.
const DefaultSmoothingAlpha = 0.15

// Smooth blends current toward previous with weight alpha on the new sample:
// result = lerp(previous, current, alpha) per landmark. With no previous frame
// the result is a copy of current. Points missing from previous are passed
// through unchanged. alpha is clamped to [0,1].
func Smooth(current, previous *detector.HandLandmarks, alpha float64) *detector.HandLandmarks {
	if current == nil {
		return nil
	}

	out := current.Clone()
	if previous == nil {
		return out
	}

	alpha = clamp01(alpha)
	for i := range out.Points {
		if i >= len(previous.Points) {
			break
		}
		out.Points[i] = previous.Points[i].Lerp(current.Points[i], alpha)
	}
	return out
}

// Smoother applies Smooth across frames, keeping exactly one prior smoothed frame.
type Smoother struct {
	alpha    float64
	previous *detector.HandLandmarks
}

// NewSmoother creates a Smoother. Non-positive alpha selects DefaultSmoothingAlpha.
func NewSmoother(alpha float64) *Smoother {
	if alpha <= 0 {
		alpha = DefaultSmoothingAlpha
	}
	return &Smoother{alpha: clamp01(alpha)}
}

// Alpha returns the weight applied to new samples.
func (s *Smoother) Alpha() float64 {
	return s.alpha
}

// Apply smooths frame against the previous output and remembers the result.
func (s *Smoother) Apply(frame *detector.HandLandmarks) *detector.HandLandmarks {
	out := Smooth(frame, s.previous, s.alpha)
	s.previous = out
	return out
}

// Reset forgets the previous frame so the next one passes through unchanged.
func (s *Smoother) Reset() {
	s.previous = nil
}

func clamp01(v float64) float64 {
	switch {
	case v < 0 || v != v:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
