// Package projection maps normalized hand landmarks onto camera-relative
// screen pixels and world-space positions.
package projection

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
)

// ErrDegenerateCamera is returned when a pose cannot produce a valid
// view/projection pair.
var ErrDegenerateCamera = errors.New("degenerate camera pose")

// Viewport is the render target size in pixels.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Aspect returns width/height.
func (v Viewport) Aspect() float64 {
	return float64(v.Width) / float64(v.Height)
}

// CameraPose is one frame's camera state plus its derived matrices.
type CameraPose struct {
	Position    mgl64.Vec3
	Forward     mgl64.Vec3
	Up          mgl64.Vec3
	FovY        float64 // degrees
	Near        float64
	Far         float64
	Viewport    Viewport
	Orientation Orientation

	View       mgl64.Mat4
	Projection mgl64.Mat4
}

// NewCameraPose validates the inputs and builds the view and projection
// matrices. forward and up need not be normalized.
func NewCameraPose(position, forward, up mgl64.Vec3, fovYDeg, near, far float64, viewport Viewport) (CameraPose, error) {
	if viewport.Width <= 0 || viewport.Height <= 0 {
		return CameraPose{}, fmt.Errorf("%w: viewport %dx%d", ErrDegenerateCamera, viewport.Width, viewport.Height)
	}
	if !(near > 0) || !(far > near) {
		return CameraPose{}, fmt.Errorf("%w: clip planes near=%g far=%g", ErrDegenerateCamera, near, far)
	}
	if !(fovYDeg > 0 && fovYDeg < 180) {
		return CameraPose{}, fmt.Errorf("%w: fov %g", ErrDegenerateCamera, fovYDeg)
	}
	if forward.Len() == 0 || up.Len() == 0 {
		return CameraPose{}, fmt.Errorf("%w: zero direction", ErrDegenerateCamera)
	}

	fwd := forward.Normalize()
	upN := up.Normalize()
	if fwd.Cross(upN).Len() < 1e-9 {
		return CameraPose{}, fmt.Errorf("%w: up is parallel to forward", ErrDegenerateCamera)
	}

	return CameraPose{
		Position:   position,
		Forward:    fwd,
		Up:         upN,
		FovY:       fovYDeg,
		Near:       near,
		Far:        far,
		Viewport:   viewport,
		View:       mgl64.LookAtV(position, position.Add(fwd), upN),
		Projection: mgl64.Perspective(mgl64.DegToRad(fovYDeg), viewport.Aspect(), near, far),
	}, nil
}

// DefaultCameraPose is a camera at the origin looking down -Z with a 60°
// vertical field of view.
func DefaultCameraPose(viewport Viewport) (CameraPose, error) {
	return NewCameraPose(
		mgl64.Vec3{0, 0, 0},
		mgl64.Vec3{0, 0, -1},
		mgl64.Vec3{0, 1, 0},
		60, 0.05, 100,
		viewport,
	)
}

// WithOrientation returns a copy of p with the given display orientation.
func (p CameraPose) WithOrientation(o Orientation) CameraPose {
	p.Orientation = o
	return p
}

// Right returns the unit vector to the camera's right.
func (p CameraPose) Right() mgl64.Vec3 {
	return p.Forward.Cross(p.Up).Normalize()
}

// Valid reports whether the pose carries usable matrices.
func (p CameraPose) Valid() bool {
	if p.Viewport.Width <= 0 || p.Viewport.Height <= 0 || !(p.Near > 0) {
		return false
	}
	for _, v := range p.Projection {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return p.Projection != mgl64.Mat4{}
}

// CameraProvider supplies the camera pose for the current frame. ok is false
// when no pose is available.
type CameraProvider interface {
	Pose() (pose CameraPose, ok bool)
}

// StaticCamera is a CameraProvider with a fixed pose that can be replaced at
// runtime.
type StaticCamera struct {
	mu   sync.RWMutex
	pose CameraPose
	ok   bool
}

// NewStaticCamera creates a provider that always returns pose.
func NewStaticCamera(pose CameraPose) *StaticCamera {
	return &StaticCamera{pose: pose, ok: true}
}

// Pose implements CameraProvider.
func (c *StaticCamera) Pose() (CameraPose, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.pose, c.ok
}

// Set replaces the pose.
func (c *StaticCamera) Set(pose CameraPose) {
	c.mu.Lock()
	c.pose = pose
	c.ok = true
	c.mu.Unlock()
}

// SetOrientation changes only the display orientation.
func (c *StaticCamera) SetOrientation(o Orientation) {
	c.mu.Lock()
	c.pose.Orientation = o
	c.mu.Unlock()
}

// Invalidate makes Pose report no pose until the next Set.
func (c *StaticCamera) Invalidate() {
	c.mu.Lock()
	c.ok = false
	c.mu.Unlock()
}
