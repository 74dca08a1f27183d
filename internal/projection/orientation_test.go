package projection

import (
	"math"
	"testing"

	"github.com/ayusman/pinchdraw/internal/detector"
)

func TestReorient(t *testing.T) {
	in := detector.Point3D{X: 0.2, Y: 0.1, Z: -0.3}

	tests := []struct {
		o    Orientation
		want detector.Point3D
	}{
		{Portrait, detector.Point3D{X: 0.2, Y: 0.1, Z: -0.3}},
		{LandscapeLeft, detector.Point3D{X: 0.1, Y: 0.8, Z: -0.3}},
		{LandscapeRight, detector.Point3D{X: 0.9, Y: 0.2, Z: -0.3}},
		{PortraitUpsideDown, detector.Point3D{X: 0.8, Y: 0.9, Z: -0.3}},
	}

	for _, tt := range tests {
		t.Run(tt.o.String(), func(t *testing.T) {
			got := Reorient(in, tt.o)
			if got.Distance(tt.want) > 1e-12 || got.Z != tt.want.Z {
				t.Errorf("Reorient(%v, %v) = %v, want %v", in, tt.o, got, tt.want)
			}
		})
	}
}

// Landmarks arrive Y down; screen pixels have a bottom-left origin. A landmark
// near the top left of a landscape-left frame lands near the bottom left of
// the display.
func TestReorient_LandscapePixels(t *testing.T) {
	vp := Viewport{Width: 640, Height: 480}
	raw := detector.Point3D{X: 0.2, Y: 0.1}

	tests := []struct {
		o            Orientation
		wantX, wantY float64
	}{
		{LandscapeLeft, 64, 96},
		{LandscapeRight, 576, 384},
	}
	for _, tt := range tests {
		t.Run(tt.o.String(), func(t *testing.T) {
			px := ToScreen(Reorient(raw, tt.o), vp)
			if math.Abs(px.X()-tt.wantX) > 1e-9 || math.Abs(px.Y()-tt.wantY) > 1e-9 {
				t.Errorf("pixel = %v, want [%v %v]", px, tt.wantX, tt.wantY)
			}
		})
	}
}

func TestReorient_LandscapeInverses(t *testing.T) {
	p := detector.Point3D{X: 0.37, Y: 0.81, Z: 0.05}
	got := Reorient(Reorient(p, LandscapeLeft), LandscapeRight)
	if math.Abs(got.X-p.X) > 1e-12 || math.Abs(got.Y-p.Y) > 1e-12 {
		t.Errorf("left then right = %v, want %v", got, p)
	}
}

func TestReorient_UpsideDownIsInvolution(t *testing.T) {
	p := detector.Point3D{X: 0.37, Y: 0.81, Z: 0.05}
	got := Reorient(Reorient(p, PortraitUpsideDown), PortraitUpsideDown)
	if math.Abs(got.X-p.X) > 1e-12 || math.Abs(got.Y-p.Y) > 1e-12 {
		t.Errorf("double flip = %v, want %v", got, p)
	}
}

func TestParseOrientation(t *testing.T) {
	for _, o := range []Orientation{Portrait, LandscapeLeft, LandscapeRight, PortraitUpsideDown} {
		got, err := ParseOrientation(o.String())
		if err != nil || got != o {
			t.Errorf("ParseOrientation(%q) = %v, %v", o.String(), got, err)
		}
	}
	if _, err := ParseOrientation("sideways"); err == nil {
		t.Error("expected error for unknown orientation")
	}
}
