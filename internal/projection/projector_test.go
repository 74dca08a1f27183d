package projection

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/ayusman/pinchdraw/internal/detector"
	"github.com/ayusman/pinchdraw/internal/mode"
)

const eps = 1e-6

func testPose(t *testing.T) CameraPose {
	t.Helper()
	pose, err := NewCameraPose(
		mgl64.Vec3{0, 0, 0},
		mgl64.Vec3{0, 0, -1},
		mgl64.Vec3{0, 1, 0},
		90, 0.1, 100,
		Viewport{Width: 100, Height: 100},
	)
	if err != nil {
		t.Fatalf("NewCameraPose() error = %v", err)
	}
	return pose
}

func assertVec3(t *testing.T, got, want mgl64.Vec3) {
	t.Helper()
	if !got.ApproxEqualThreshold(want, eps) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func assertVec2(t *testing.T, got, want mgl64.Vec2) {
	t.Helper()
	if !got.ApproxEqualThreshold(want, eps) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestViewportToWorld(t *testing.T) {
	pose := testPose(t)

	t.Run("centre ray lies on forward axis", func(t *testing.T) {
		got, err := ViewportToWorld(mgl64.Vec2{0.5, 0.5}, 2, pose)
		if err != nil {
			t.Fatal(err)
		}
		assertVec3(t, got, mgl64.Vec3{0, 0, -2})
	})

	t.Run("right edge at unit depth with 90 degree fov", func(t *testing.T) {
		got, err := ViewportToWorld(mgl64.Vec2{1, 0.5}, 1, pose)
		if err != nil {
			t.Fatal(err)
		}
		assertVec3(t, got, mgl64.Vec3{1, 0, -1})
	})

	t.Run("top edge is positive Y", func(t *testing.T) {
		got, err := ViewportToWorld(mgl64.Vec2{0.5, 1}, 1, pose)
		if err != nil {
			t.Fatal(err)
		}
		assertVec3(t, got, mgl64.Vec3{0, 1, -1})
	})
}

func TestWorldToScreen(t *testing.T) {
	pose := testPose(t)
	assertVec2(t, WorldToScreen(mgl64.Vec3{1, 0, -1}, pose), mgl64.Vec2{100, 50})
	assertVec2(t, WorldToScreen(mgl64.Vec3{0, 0, -5}, pose), mgl64.Vec2{50, 50})
}

func TestToScreen_FlipsY(t *testing.T) {
	got := ToScreen(detector.Point3D{X: 0.25, Y: 0.1}, Viewport{Width: 200, Height: 100})
	assertVec2(t, got, mgl64.Vec2{50, 90})
}

func TestProjector_WorldAnchored(t *testing.T) {
	pose := testPose(t)
	p := NewProjector(DefaultProjectorConfig())

	t.Run("zero confidence uses target depth", func(t *testing.T) {
		got, err := p.Project(detector.Point3D{X: 0.5, Y: 0.5}, mode.WorldAnchored, pose, 0)
		if err != nil {
			t.Fatal(err)
		}
		if got.Mode != mode.WorldAnchored {
			t.Errorf("Mode = %v", got.Mode)
		}
		assertVec3(t, got.World, mgl64.Vec3{0, 0, -0.3})
		assertVec3(t, got.Local(), got.World)
		assertVec2(t, got.Screen, mgl64.Vec2{50, 50})
	})

	t.Run("confidence blends landmark depth", func(t *testing.T) {
		// depth = lerp(0.3, 0.5, 0.5) = 0.4, plus 0.5*0.2 forward.
		got, err := p.Project(detector.Point3D{X: 0.5, Y: 0.5, Z: 0.5}, mode.WorldAnchored, pose, 1)
		if err != nil {
			t.Fatal(err)
		}
		assertVec3(t, got.World, mgl64.Vec3{0, 0, -0.5})
	})

	t.Run("upper landmark lands above the axis", func(t *testing.T) {
		got, err := p.Project(detector.Point3D{X: 0.5, Y: 0.25}, mode.WorldAnchored, pose, 0)
		if err != nil {
			t.Fatal(err)
		}
		if got.World.Y() <= 0 {
			t.Errorf("World.Y = %f, want > 0 for a landmark in the top half", got.World.Y())
		}
		if got.Screen.Y() <= 50 {
			t.Errorf("Screen.Y = %f, want > 50", got.Screen.Y())
		}
	})
}

func TestProjector_ScreenSpace(t *testing.T) {
	pose := testPose(t)
	p := NewProjector(DefaultProjectorConfig())

	got, err := p.Project(detector.Point3D{X: 0.5, Y: 0.5, Z: 0.3}, mode.ScreenSpace, pose, 1)
	if err != nil {
		t.Fatal(err)
	}
	assertVec2(t, got.Screen, mgl64.Vec2{50, 50})
	assertVec3(t, got.Local(), mgl64.Vec3{50, 50, 0})
	// Render position sits on the plane near+offset in front of the camera.
	assertVec3(t, got.World, mgl64.Vec3{0, 0, -0.3})
}

func TestProjector_AppliesOrientation(t *testing.T) {
	pose := testPose(t).WithOrientation(LandscapeLeft)
	p := NewProjector(DefaultProjectorConfig())

	got, err := p.Project(detector.Point3D{X: 0.2, Y: 0.1}, mode.ScreenSpace, pose, 0)
	if err != nil {
		t.Fatal(err)
	}
	// (0.2, 0.1) -> (0.1, 0.8) -> pixels (10, 20).
	assertVec2(t, got.Screen, mgl64.Vec2{10, 20})
}

func TestProjector_Errors(t *testing.T) {
	p := NewProjector(ProjectorConfig{})

	if _, err := p.Project(detector.Point3D{X: 0.5, Y: 0.5}, mode.WorldAnchored, CameraPose{}, 0); !errors.Is(err, ErrDegenerateCamera) {
		t.Errorf("zero pose error = %v, want ErrDegenerateCamera", err)
	}

	pose := testPose(t)
	if _, err := p.Project(detector.Point3D{X: math.NaN()}, mode.WorldAnchored, pose, 0); err == nil {
		t.Error("expected error for NaN landmark")
	}
	if _, err := p.Project(detector.Point3D{}, mode.Mode(9), pose, 0); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestNewCameraPose_Rejects(t *testing.T) {
	origin := mgl64.Vec3{}
	fwd := mgl64.Vec3{0, 0, -1}
	up := mgl64.Vec3{0, 1, 0}
	vp := Viewport{Width: 640, Height: 480}

	tests := []struct {
		name string
		make func() (CameraPose, error)
	}{
		{"empty viewport", func() (CameraPose, error) { return NewCameraPose(origin, fwd, up, 60, 0.1, 10, Viewport{}) }},
		{"near not positive", func() (CameraPose, error) { return NewCameraPose(origin, fwd, up, 60, 0, 10, vp) }},
		{"far before near", func() (CameraPose, error) { return NewCameraPose(origin, fwd, up, 60, 1, 0.5, vp) }},
		{"fov too wide", func() (CameraPose, error) { return NewCameraPose(origin, fwd, up, 180, 0.1, 10, vp) }},
		{"zero forward", func() (CameraPose, error) { return NewCameraPose(origin, mgl64.Vec3{}, up, 60, 0.1, 10, vp) }},
		{"up parallel to forward", func() (CameraPose, error) {
			return NewCameraPose(origin, fwd, mgl64.Vec3{0, 0, 2}, 60, 0.1, 10, vp)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.make(); !errors.Is(err, ErrDegenerateCamera) {
				t.Errorf("error = %v, want ErrDegenerateCamera", err)
			}
		})
	}
}

func TestStaticCamera(t *testing.T) {
	pose := testPose(t)
	c := NewStaticCamera(pose)

	if _, ok := c.Pose(); !ok {
		t.Fatal("expected pose")
	}

	c.SetOrientation(PortraitUpsideDown)
	got, _ := c.Pose()
	if got.Orientation != PortraitUpsideDown {
		t.Errorf("Orientation = %v", got.Orientation)
	}

	c.Invalidate()
	if _, ok := c.Pose(); ok {
		t.Error("expected no pose after Invalidate")
	}

	c.Set(pose)
	if _, ok := c.Pose(); !ok {
		t.Error("expected pose after Set")
	}
}

func TestCameraPose_Right(t *testing.T) {
	assertVec3(t, testPose(t).Right(), mgl64.Vec3{1, 0, 0})

	pose, err := NewCameraPose(
		mgl64.Vec3{1, 2, 3},
		mgl64.Vec3{1, 0, 0},
		mgl64.Vec3{0, 2, 0},
		60, 0.1, 10,
		Viewport{Width: 10, Height: 10},
	)
	if err != nil {
		t.Fatal(err)
	}
	assertVec3(t, pose.Right(), mgl64.Vec3{0, 0, 1})
}
