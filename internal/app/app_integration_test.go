package app

import (
	"testing"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/pinchdraw/internal/capture"
	"github.com/ayusman/pinchdraw/internal/detector"
	"github.com/ayusman/pinchdraw/internal/gesture"
	"github.com/ayusman/pinchdraw/internal/mode"
	"github.com/ayusman/pinchdraw/internal/projection"
	"github.com/ayusman/pinchdraw/internal/stroke"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestApp_CameraSourcePipeline(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	det := detector.NewMockDetector()
	det.SetHands([]detector.HandLandmarks{detector.PinchLandmarks(0.3, 0.5)})

	src := capture.NewCameraSource(capture.SourceConfig{
		Camera:   capture.NewMockCamera([]*gocv.Mat{&frame}, true),
		Detector: det,
	})
	if err := src.Start(); err != nil {
		t.Fatalf("source Start() error = %v", err)
	}
	defer src.Stop()

	a := New(Config{
		Source:         src.Mailbox(),
		Camera:         projection.NewStaticCamera(testPose(t)),
		InitialMode:    mode.ScreenSpace,
		SmoothingAlpha: 1,
		TickRate:       60,
	})
	var events []stroke.EventKind
	eventCh := make(chan stroke.EventKind, 1024)
	a.OnStroke(func(e stroke.Event) {
		eventCh <- e.Kind
	})

	if err := a.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer a.Stop()

	waitFor(t, "pinch to engage", func() bool {
		state, _ := a.Pinch()
		return state == gesture.Active
	})

	det.SetHands([]detector.HandLandmarks{detector.PinchLandmarks(0.6, 0.5)})
	waitFor(t, "stroke to grow", func() bool {
		strokes := a.Strokes()
		return len(strokes) == 1 && strokes[0].Len() >= 3
	})

	// No hand: the source publishes explicit empty frames.
	det.SetHands(nil)
	waitFor(t, "stroke to seal", func() bool {
		strokes := a.Strokes()
		return len(strokes) == 1 && strokes[0].Sealed
	})

	a.Stop()
	close(eventCh)
	for k := range eventCh {
		events = append(events, k)
	}
	if len(events) < 3 || events[0] != stroke.Created || events[len(events)-1] != stroke.Sealed {
		t.Errorf("events = %v, want created ... sealed", events)
	}

	s := a.Strokes()[0]
	if s.Space != mode.ScreenSpace {
		t.Errorf("stroke space = %v, want screen", s.Space)
	}
	if first, last := s.Vertices[0].Pos, s.Last().Pos; last.X() <= first.X() {
		t.Errorf("stroke should run left to right: %v -> %v", first, last)
	}
	if stats := a.Stats(); stats.Steps == 0 || stats.Missing == 0 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if frames, _ := src.Stats(); frames == 0 {
		t.Error("source processed no frames")
	}
}
