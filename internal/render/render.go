// Package render rasterizes strokes into PNG snapshots.
package render

import (
	"errors"
	"fmt"
	"image"
	"io"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gogpu/gg"

	"github.com/ayusman/pinchdraw/internal/mode"
	"github.com/ayusman/pinchdraw/internal/projection"
	"github.com/ayusman/pinchdraw/internal/stroke"
)

// Options controls snapshot appearance. Zero values take the defaults.
type Options struct {
	Width       int
	Height      int
	Background  string // hex
	WorldColor  string // hex
	ScreenColor string // hex
	LineWidth   float64
}

// DefaultOptions returns a dark 640x480 canvas.
func DefaultOptions() Options {
	return Options{
		Width:       640,
		Height:      480,
		Background:  "#101418",
		WorldColor:  "#4FC3F7",
		ScreenColor: "#FFB74D",
		LineWidth:   4,
	}
}

func (o Options) withDefaults(vp projection.Viewport) Options {
	def := DefaultOptions()
	switch {
	case o.Width <= 0 && o.Height <= 0:
		o.Width, o.Height = vp.Width, vp.Height
	case o.Height <= 0 && vp.Width > 0 && vp.Height > 0:
		o.Height = int(math.Round(float64(o.Width) / vp.Aspect()))
	case o.Width <= 0 && vp.Width > 0 && vp.Height > 0:
		o.Width = int(math.Round(float64(o.Height) * vp.Aspect()))
	}
	if o.Width <= 0 || o.Height <= 0 {
		o.Width, o.Height = def.Width, def.Height
	}
	if o.Background == "" {
		o.Background = def.Background
	}
	if o.WorldColor == "" {
		o.WorldColor = def.WorldColor
	}
	if o.ScreenColor == "" {
		o.ScreenColor = def.ScreenColor
	}
	if o.LineWidth <= 0 {
		o.LineWidth = def.LineWidth
	}
	return o
}

// Snapshot draws strokes as seen from pose. Screen strokes are drawn at
// their pixel positions and world strokes are projected through the camera.
// The canvas defaults to the pose's viewport size; when only one side is
// given the other keeps the viewport aspect ratio.
func Snapshot(strokes []stroke.Stroke, pose projection.CameraPose, opts Options) (image.Image, error) {
	dc, err := draw(strokes, pose, opts)
	if dc == nil {
		return nil, err
	}
	defer dc.Close()
	return dc.Image(), err
}

// WritePNG renders a snapshot and encodes it as PNG.
func WritePNG(w io.Writer, strokes []stroke.Stroke, pose projection.CameraPose, opts Options) error {
	dc, err := draw(strokes, pose, opts)
	if dc == nil {
		return err
	}
	defer dc.Close()
	if err != nil {
		return err
	}
	return dc.EncodePNG(w)
}

func draw(strokes []stroke.Stroke, pose projection.CameraPose, opts Options) (*gg.Context, error) {
	if !pose.Valid() {
		return nil, projection.ErrDegenerateCamera
	}
	opts = opts.withDefaults(pose.Viewport)

	dc := gg.NewContext(opts.Width, opts.Height)

	dc.ClearWithColor(gg.Hex(opts.Background))
	dc.SetLineWidth(opts.LineWidth)
	dc.SetLineCap(gg.LineCapRound)
	dc.SetLineJoin(gg.LineJoinRound)

	sx := float64(opts.Width) / float64(pose.Viewport.Width)
	sy := float64(opts.Height) / float64(pose.Viewport.Height)

	var errs []error
	for i := range strokes {
		s := &strokes[i]
		if s.Space == mode.ScreenSpace {
			dc.SetHexColor(opts.ScreenColor)
		} else {
			dc.SetHexColor(opts.WorldColor)
		}

		drawn := 0
		for _, v := range s.Vertices {
			px, ok := toPixels(s.Space, v, pose)
			if !ok {
				// Behind the camera: break the polyline here.
				drawn = 0
				continue
			}
			// Image rows grow downward; stroke pixels grow upward.
			x, y := px.X()*sx, float64(opts.Height)-px.Y()*sy
			if drawn == 0 {
				dc.MoveTo(x, y)
			} else {
				dc.LineTo(x, y)
			}
			drawn++
		}
		if err := dc.Stroke(); err != nil {
			errs = append(errs, fmt.Errorf("stroke %s: %w", s.ID, err))
		}
	}

	if err := dc.FlushGPU(); err != nil {
		errs = append(errs, err)
	}
	return dc, errors.Join(errs...)
}

func toPixels(space mode.Mode, v stroke.Vertex, pose projection.CameraPose) (mgl64.Vec2, bool) {
	if space == mode.ScreenSpace {
		return v.Pos.Vec2(), true
	}
	win := mgl64.Project(v.World, pose.View, pose.Projection, 0, 0, pose.Viewport.Width, pose.Viewport.Height)
	if win.Z() < 0 || win.Z() > 1 {
		return mgl64.Vec2{}, false
	}
	return win.Vec2(), true
}
