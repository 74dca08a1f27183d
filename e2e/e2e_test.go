package e2e

import (
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/pinchdraw/internal/app"
	"github.com/ayusman/pinchdraw/internal/capture"
	"github.com/ayusman/pinchdraw/internal/detector"
	"github.com/ayusman/pinchdraw/internal/mode"
	"github.com/ayusman/pinchdraw/internal/projection"
	"github.com/ayusman/pinchdraw/internal/server"
	"github.com/ayusman/pinchdraw/internal/store"
)

const frameInterval = 33 * time.Millisecond

// recordGesture stores a synthetic session: a pinch held at the left of row
// y, dragged right, then the hand leaves the frame.
func recordGesture(t *testing.T, s *store.Store, name string, y float64) string {
	t.Helper()

	rec, err := capture.NewRecorder(s.Recordings(), name)
	if err != nil {
		t.Fatalf("NewRecorder() error = %v", err)
	}

	at := time.Now()
	emit := func(hand *detector.HandLandmarks) {
		rec.Record(hand, at)
		at = at.Add(frameInterval)
	}

	for i := 0; i < 20; i++ {
		h := detector.PinchLandmarks(0.2, y)
		emit(&h)
	}
	for i := 0; i < 12; i++ {
		h := detector.PinchLandmarks(0.25+0.05*float64(i), y)
		emit(&h)
	}
	for i := 0; i < 5; i++ {
		emit(nil)
	}

	if err := rec.Close(); err != nil {
		t.Fatalf("recorder Close() error = %v", err)
	}
	return rec.ID()
}

// replayInto drives the app one replayed frame per tick, advancing clock by
// one frame interval each time.
func replayInto(t *testing.T, s *store.Store, id string, mailbox *detector.Mailbox, a *app.App, clock *time.Time) {
	t.Helper()

	replay, err := capture.LoadReplay(s.Recordings(), id, mailbox, 0)
	if err != nil {
		t.Fatalf("LoadReplay() error = %v", err)
	}
	for replay.Next() {
		*clock = clock.Add(frameInterval)
		if _, ok := a.Tick(*clock); !ok {
			t.Fatal("replayed frame was not consumed")
		}
	}
}

func TestE2E_RecordReplayRender(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	s, err := store.New(filepath.Join(t.TempDir(), "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	screenID := recordGesture(t, s, "screen line", 0.3)
	worldID := recordGesture(t, s, "world line", 0.7)

	pose, err := projection.DefaultCameraPose(projection.Viewport{Width: 640, Height: 480})
	if err != nil {
		t.Fatal(err)
	}
	mailbox := detector.NewMailbox()
	application := app.New(app.Config{
		Source:         mailbox,
		Camera:         projection.NewStaticCamera(pose),
		InitialMode:    mode.ScreenSpace,
		SmoothingAlpha: 1,
	})

	clock := time.Now()

	srv := server.New(server.Config{Store: s, App: application})
	ts := httptest.NewServer(srv)
	defer ts.Close()
	client := ts.Client()

	t.Run("ListRecordings", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/recordings")
		if err != nil {
			t.Fatalf("list recordings error = %v", err)
		}
		defer resp.Body.Close()

		var body struct {
			Recordings []struct {
				ID     string `json:"id"`
				Frames int    `json:"frames"`
			} `json:"recordings"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatal(err)
		}
		if len(body.Recordings) != 2 {
			t.Fatalf("recordings = %d, want 2", len(body.Recordings))
		}
		for _, r := range body.Recordings {
			if r.Frames != 37 {
				t.Errorf("recording %s has %d frames, want 37", r.ID, r.Frames)
			}
		}
	})

	t.Run("ReplayScreenStroke", func(t *testing.T) {
		replayInto(t, s, screenID, mailbox, application, &clock)

		strokes := application.Strokes()
		if len(strokes) != 1 {
			t.Fatalf("strokes = %d, want 1", len(strokes))
		}
		if !strokes[0].Sealed || strokes[0].Space != mode.ScreenSpace {
			t.Errorf("unexpected stroke sealed=%v space=%v", strokes[0].Sealed, strokes[0].Space)
		}
		// Row 0.3 from the top is 336 px from the bottom of a 480 px viewport.
		if y := strokes[0].Vertices[0].Pos.Y(); y < 330 || y > 342 {
			t.Errorf("stroke y = %.1f, want about 336", y)
		}
	})

	t.Run("SwitchModeOverHTTP", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/mode", strings.NewReader(`{"mode":"world"}`))
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("set mode error = %v", err)
		}
		resp.Body.Close()

		if application.Mode() != mode.WorldAnchored {
			t.Fatalf("mode = %v, want world", application.Mode())
		}
		if got, _ := s.Settings().Get(store.SettingMode); got != "world" {
			t.Errorf("persisted mode = %q, want world", got)
		}
	})

	t.Run("ReplayWorldStroke", func(t *testing.T) {
		replayInto(t, s, worldID, mailbox, application, &clock)

		strokes := application.Strokes()
		if len(strokes) != 2 {
			t.Fatalf("strokes = %d, want 2", len(strokes))
		}
		world := strokes[1]
		if !world.Sealed || world.Space != mode.WorldAnchored {
			t.Errorf("unexpected stroke sealed=%v space=%v", world.Sealed, world.Space)
		}
		for i, v := range world.Vertices {
			if v.World.Z() >= 0 {
				t.Fatalf("vertex %d at %v is not in front of the camera", i, v.World)
			}
		}
	})

	t.Run("Snapshot", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/snapshot.png")
		if err != nil {
			t.Fatalf("snapshot error = %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
		}
		img, err := png.Decode(resp.Body)
		if err != nil {
			t.Fatalf("png.Decode() error = %v", err)
		}
		if b := img.Bounds(); b.Dx() != 640 || b.Dy() != 480 {
			t.Errorf("bounds = %v, want 640x480", b)
		}
		// The screen stroke runs along image row 144 (0.3 of the height).
		r, g, b, _ := img.At(320, 144).RGBA()
		if r>>8 == 0x10 && g>>8 == 0x14 && b>>8 == 0x18 {
			t.Error("expected the screen stroke at (320, 144)")
		}
	})

	t.Run("ClearAll", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/strokes", nil)
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("clear error = %v", err)
		}
		resp.Body.Close()

		if n := len(application.Strokes()); n != 0 {
			t.Errorf("strokes after clear = %d, want 0", n)
		}
	})
}
