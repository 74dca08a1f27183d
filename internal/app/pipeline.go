package app

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/ayusman/pinchdraw/internal/detector"
	"github.com/ayusman/pinchdraw/internal/gesture"
	"github.com/ayusman/pinchdraw/internal/projection"
	"github.com/ayusman/pinchdraw/internal/stroke"
)

// ErrNoCamera is returned when a pipeline is built without a camera provider.
var ErrNoCamera = errors.New("no camera provider configured")

// PipelineConfig wires the collaborators of a Pipeline.
type PipelineConfig struct {
	Camera    projection.CameraProvider
	Projector projection.ProjectorConfig
	Logger    *slog.Logger
}

// StepResult describes what one frame did.
type StepResult struct {
	Transition gesture.Transition
	// Missing is true when the frame had no usable hand or pose.
	Missing bool
	// Recovered is true when the frame panicked and was treated as missing.
	Recovered bool
	StrokeID  uuid.UUID
	Point     *projection.Point
	Appended  bool
	// Hand is the smoothed frame, nil when the frame was missing.
	Hand *detector.HandLandmarks
}

// Pipeline runs smooth, detect, project and build for one frame at a time.
// It keeps no drawing state of its own; everything lives in the Session.
type Pipeline struct {
	camera    projection.CameraProvider
	projector *projection.Projector
	log       *slog.Logger
}

// NewPipeline creates a Pipeline. It returns ErrNoCamera when config.Camera
// is nil.
func NewPipeline(config PipelineConfig) (*Pipeline, error) {
	if config.Camera == nil {
		return nil, ErrNoCamera
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{
		camera:    config.Camera,
		projector: projection.NewProjector(config.Projector),
		log:       logger,
	}, nil
}

// Step processes one landmark frame dt seconds after the previous one. A nil,
// incomplete or non-finite hand releases any pinch. Panics inside the step
// are recovered and handled as a missing frame.
func (p *Pipeline) Step(s *Session, hand *detector.HandLandmarks, dt float64) (res StepResult) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("frame failed", "panic", fmt.Sprint(r))
			res = p.release(s)
			res.Recovered = true
		}
	}()

	if !hand.Complete() {
		if hand != nil {
			p.log.Debug("incomplete landmarks", "points", len(hand.Points))
		}
		return p.release(s)
	}
	if !hand.Finite() {
		p.log.Debug("non-finite landmarks")
		return p.release(s)
	}

	pose, ok := p.camera.Pose()
	if !ok {
		p.log.Debug("camera pose unavailable")
		return p.release(s)
	}

	smoothed := s.Smoother.Apply(hand)
	thumb := smoothed.Points[detector.ThumbTip]
	index := smoothed.Points[detector.IndexTip]

	res.Hand = smoothed
	res.Transition = s.Pinch.Update(thumb, index, dt)

	switch res.Transition {
	case gesture.Started:
		if !s.drawing {
			return res
		}
		pt, err := p.project(s, gesture.PinchPoint(thumb, index), pose)
		if err != nil {
			// Continued frames never begin a stroke, so the pinch has to
			// ramp up again.
			p.log.Warn("projecting stroke start", "err", err)
			s.Pinch.Release()
			res.Transition = gesture.None
			return res
		}
		s.endActive()
		s.active = s.Strokes.Begin(pt.Mode, vertexOf(pt))
		res.StrokeID = s.active
		res.Point = &pt

	case gesture.Continued:
		id, ok := s.ActiveStroke()
		if !ok {
			return res
		}
		pt, err := p.project(s, gesture.PinchPoint(thumb, index), pose)
		if err != nil {
			p.log.Warn("projecting stroke point", "stroke", id, "err", err)
			return res
		}
		res.StrokeID = id
		res.Point = &pt
		res.Appended, err = s.Strokes.Extend(id, vertexOf(pt))
		if err != nil {
			p.log.Warn("extending stroke", "stroke", id, "err", err)
			s.active = uuid.Nil
		}

	case gesture.Stopped:
		res.StrokeID = s.active
		s.endActive()
	}

	return res
}

func (p *Pipeline) project(s *Session, pt detector.Point3D, pose projection.CameraPose) (projection.Point, error) {
	return p.projector.Project(pt, s.Mode.Current(), pose, s.Pinch.Confidence())
}

// release handles a frame without usable input: an active pinch stops at
// once and smoothing restarts from the next hand.
func (p *Pipeline) release(s *Session) StepResult {
	s.Smoother.Reset()
	res := StepResult{Missing: true, Transition: s.Pinch.Release(), StrokeID: s.active}
	s.endActive()
	return res
}

func vertexOf(pt projection.Point) stroke.Vertex {
	return stroke.Vertex{Pos: pt.Local(), World: pt.World}
}
