package capture

import (
	"testing"
	"time"

	"gocv.io/x/gocv"
)

// frames returns a black and a white 640x480 frame.
func frames(t *testing.T) (black, white gocv.Mat) {
	t.Helper()
	black = gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	white = gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	white.SetTo(gocv.NewScalar(255, 255, 255, 0))
	t.Cleanup(func() {
		black.Close()
		white.Close()
	})
	return black, white
}

func TestMotionDetector_Threshold(t *testing.T) {
	md := NewMotionDetector(2.5)
	defer md.Close()

	if md.threshold != 2.5 || md.initialized {
		t.Fatalf("new detector: threshold = %f, initialized = %v", md.threshold, md.initialized)
	}
	md.SetThreshold(-1)
	if md.threshold != 2.5 {
		t.Errorf("negative threshold applied: %f", md.threshold)
	}
	md.SetThreshold(0.5)
	if md.threshold != 0.5 {
		t.Errorf("threshold = %f, want 0.5", md.threshold)
	}

	md.Close()
	md.Close()
}

func TestMotionDetector_Detect(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}
	black, white := frames(t)

	md := NewMotionDetector(DefaultMotionThreshold)
	defer md.Close()

	if moved, pct := md.Detect(&black); moved || pct != 0 {
		t.Errorf("first frame = %v, %f; want no motion", moved, pct)
	}
	if moved, _ := md.Detect(&black); moved {
		t.Error("identical frames reported motion")
	}
	if moved, pct := md.Detect(&white); !moved || pct < 50 {
		t.Errorf("black to white = %v, %f; want motion over 50%%", moved, pct)
	}

	md.Reset()
	if md.initialized || !md.prevGray.Empty() {
		t.Error("Reset kept the previous frame")
	}
	if moved, _ := md.Detect(&black); moved {
		t.Error("first frame after Reset reported motion")
	}
}

func TestMotionGate_Observe(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}
	black, white := frames(t)

	md := NewMotionDetector(DefaultMotionThreshold)
	defer md.Close()
	gate := NewMotionGate(md, time.Second)
	start := time.Now()

	if active, _ := gate.Observe(&black, start); active {
		t.Fatal("gate active before any motion")
	}
	if active, changed := gate.Observe(&white, start.Add(100*time.Millisecond)); !active || !changed {
		t.Fatalf("hand entering frame: active = %v, changed = %v", active, changed)
	}
	if active, changed := gate.Observe(&white, start.Add(2*time.Second)); active || !changed {
		t.Errorf("still scene past timeout: active = %v, changed = %v", active, changed)
	}
}

func TestMotionGate_IdleTimeout(t *testing.T) {
	md := NewMotionDetector(DefaultMotionThreshold)
	defer md.Close()
	gate := NewMotionGate(md, time.Second)
	start := time.Now()

	tests := []struct {
		name        string
		moving      bool
		at          time.Duration
		wantActive  bool
		wantChanged bool
	}{
		{"still scene stays idle", false, 0, false, false},
		{"motion wakes the gate", true, 100 * time.Millisecond, true, true},
		{"brief pause stays active", false, 900 * time.Millisecond, true, false},
		{"motion extends the window", true, time.Second, true, false},
		{"still within timeout", false, 1900 * time.Millisecond, true, false},
		{"timeout goes idle", false, 2100 * time.Millisecond, false, true},
	}

	for _, tt := range tests {
		active, changed := gate.update(tt.moving, start.Add(tt.at))
		if active != tt.wantActive || changed != tt.wantChanged {
			t.Errorf("%s: update() = %v, %v; want %v, %v", tt.name, active, changed, tt.wantActive, tt.wantChanged)
		}
	}
}

func TestMotionGate_Reset(t *testing.T) {
	md := NewMotionDetector(DefaultMotionThreshold)
	defer md.Close()
	gate := NewMotionGate(md, 0)

	gate.update(true, time.Now())
	if !gate.Active() {
		t.Fatal("gate should be active after motion")
	}
	gate.Reset()
	if gate.Active() {
		t.Error("gate should be idle after Reset")
	}
	if gate.idleTimeout != DefaultIdleTimeout {
		t.Errorf("idleTimeout = %v, want default", gate.idleTimeout)
	}
}
