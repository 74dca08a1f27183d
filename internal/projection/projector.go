package projection

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/ayusman/pinchdraw/internal/detector"
	"github.com/ayusman/pinchdraw/internal/mode"
)

// ProjectorConfig tunes how landmarks become positions.
type ProjectorConfig struct {
	// TargetDepth is the forward distance, in metres, used when the pinch
	// confidence is zero.
	TargetDepth float64
	// DepthAdjust scales landmark Z into an extra forward offset.
	DepthAdjust float64
	// ScreenDepthOffset is the distance beyond the near plane at which
	// screen-space strokes are rendered.
	ScreenDepthOffset float64
}

// DefaultProjectorConfig returns the standard tuning.
func DefaultProjectorConfig() ProjectorConfig {
	return ProjectorConfig{
		TargetDepth:       0.3,
		DepthAdjust:       0.2,
		ScreenDepthOffset: 0.2,
	}
}

// Point is a projected pinch location. Screen is in pixels with the origin
// at the bottom-left of the viewport. World is always filled in: for
// screen-space points it is the render position on the camera-facing plane.
type Point struct {
	Mode   mode.Mode
	Screen mgl64.Vec2
	World  mgl64.Vec3
}

// Local returns the coordinates a stroke in p.Mode is built from: the world
// position for WorldAnchored, or the pixel position (Z=0) for ScreenSpace.
func (p Point) Local() mgl64.Vec3 {
	if p.Mode == mode.ScreenSpace {
		return mgl64.Vec3{p.Screen.X(), p.Screen.Y(), 0}
	}
	return p.World
}

// Projector converts landmarks into Points. It holds no per-frame state.
type Projector struct {
	config ProjectorConfig
}

// NewProjector creates a Projector. Zero fields in config take the defaults.
func NewProjector(config ProjectorConfig) *Projector {
	def := DefaultProjectorConfig()
	if config.TargetDepth <= 0 {
		config.TargetDepth = def.TargetDepth
	}
	if config.DepthAdjust == 0 {
		config.DepthAdjust = def.DepthAdjust
	}
	if config.ScreenDepthOffset <= 0 {
		config.ScreenDepthOffset = def.ScreenDepthOffset
	}
	return &Projector{config: config}
}

// Config returns the active tuning.
func (p *Projector) Config() ProjectorConfig {
	return p.config
}

// Project maps a normalized landmark into m's coordinate space using pose.
// confidence is the current pinch confidence and blends the depth estimate.
func (p *Projector) Project(pt detector.Point3D, m mode.Mode, pose CameraPose, confidence float64) (Point, error) {
	if !pose.Valid() {
		return Point{}, ErrDegenerateCamera
	}
	if !finite(pt.X) || !finite(pt.Y) || !finite(pt.Z) {
		return Point{}, fmt.Errorf("non-finite landmark %v", pt)
	}

	pt = Reorient(pt, pose.Orientation)

	switch m {
	case mode.WorldAnchored:
		depth := lerp(p.config.TargetDepth, pt.Z, clamp01(confidence*0.5))
		depth = math.Max(depth, pose.Near)

		world, err := ViewportToWorld(mgl64.Vec2{pt.X, 1 - pt.Y}, depth, pose)
		if err != nil {
			return Point{}, err
		}
		world = world.Add(pose.Forward.Mul(pt.Z * p.config.DepthAdjust))

		return Point{
			Mode:   m,
			Screen: WorldToScreen(world, pose),
			World:  world,
		}, nil

	case mode.ScreenSpace:
		screen := ToScreen(pt, pose.Viewport)
		world, err := ScreenToWorld(screen, pose.Near+p.config.ScreenDepthOffset, pose)
		if err != nil {
			return Point{}, err
		}
		return Point{Mode: m, Screen: screen, World: world}, nil

	default:
		return Point{}, fmt.Errorf("cannot project into %v", m)
	}
}

// ToScreen converts a normalized landmark (Y down) into pixels with a
// bottom-left origin.
func ToScreen(pt detector.Point3D, vp Viewport) mgl64.Vec2 {
	return mgl64.Vec2{
		pt.X * float64(vp.Width),
		(1 - pt.Y) * float64(vp.Height),
	}
}

// ScreenToWorld returns the point on the ray through pixel that lies depth
// units in front of the camera.
func ScreenToWorld(pixel mgl64.Vec2, depth float64, pose CameraPose) (mgl64.Vec3, error) {
	w, h := pose.Viewport.Width, pose.Viewport.Height
	near, err := mgl64.UnProject(mgl64.Vec3{pixel.X(), pixel.Y(), 0}, pose.View, pose.Projection, 0, 0, w, h)
	if err != nil {
		return mgl64.Vec3{}, fmt.Errorf("%w: %v", ErrDegenerateCamera, err)
	}
	far, err := mgl64.UnProject(mgl64.Vec3{pixel.X(), pixel.Y(), 1}, pose.View, pose.Projection, 0, 0, w, h)
	if err != nil {
		return mgl64.Vec3{}, fmt.Errorf("%w: %v", ErrDegenerateCamera, err)
	}

	dir := far.Sub(near)
	along := dir.Dot(pose.Forward)
	if math.Abs(along) < 1e-12 {
		return mgl64.Vec3{}, fmt.Errorf("%w: ray parallel to image plane", ErrDegenerateCamera)
	}

	t := (depth - near.Sub(pose.Position).Dot(pose.Forward)) / along
	return near.Add(dir.Mul(t)), nil
}

// ViewportToWorld is ScreenToWorld for a viewport point in [0,1]² with a
// bottom-left origin.
func ViewportToWorld(vp mgl64.Vec2, depth float64, pose CameraPose) (mgl64.Vec3, error) {
	pixel := mgl64.Vec2{vp.X() * float64(pose.Viewport.Width), vp.Y() * float64(pose.Viewport.Height)}
	return ScreenToWorld(pixel, depth, pose)
}

// WorldToScreen projects a world position to pixels with a bottom-left
// origin.
func WorldToScreen(world mgl64.Vec3, pose CameraPose) mgl64.Vec2 {
	win := mgl64.Project(world, pose.View, pose.Projection, 0, 0, pose.Viewport.Width, pose.Viewport.Height)
	return win.Vec2()
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func clamp01(v float64) float64 {
	switch {
	case v < 0 || math.IsNaN(v):
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
