package projection

import (
	"fmt"
	"strings"

	"github.com/ayusman/pinchdraw/internal/detector"
)

// Orientation is the physical rotation of the device relative to the camera
// image.
type Orientation int

const (
	Portrait Orientation = iota
	LandscapeLeft
	LandscapeRight
	PortraitUpsideDown
)

func (o Orientation) String() string {
	switch o {
	case Portrait:
		return "portrait"
	case LandscapeLeft:
		return "landscape-left"
	case LandscapeRight:
		return "landscape-right"
	case PortraitUpsideDown:
		return "portrait-upside-down"
	default:
		return fmt.Sprintf("orientation(%d)", int(o))
	}
}

// ParseOrientation accepts the names produced by Orientation.String.
func ParseOrientation(s string) (Orientation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "portrait":
		return Portrait, nil
	case "landscape-left", "left":
		return LandscapeLeft, nil
	case "landscape-right", "right":
		return LandscapeRight, nil
	case "portrait-upside-down", "upside-down":
		return PortraitUpsideDown, nil
	default:
		return Portrait, fmt.Errorf("unknown orientation %q", s)
	}
}

// Reorient maps a normalized landmark (Y down) into the display's frame of
// reference, still Y down. Z is unchanged. In Y-up terms LandscapeLeft is
// (x, y) -> (1-y, x) and LandscapeRight is (x, y) -> (y, 1-x).
func Reorient(p detector.Point3D, o Orientation) detector.Point3D {
	switch o {
	case LandscapeLeft:
		return detector.Point3D{X: p.Y, Y: 1 - p.X, Z: p.Z}
	case LandscapeRight:
		return detector.Point3D{X: 1 - p.Y, Y: p.X, Z: p.Z}
	case PortraitUpsideDown:
		return detector.Point3D{X: 1 - p.X, Y: 1 - p.Y, Z: p.Z}
	default:
		return p
	}
}
