package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/ayusman/pinchdraw/internal/app"
	"github.com/ayusman/pinchdraw/internal/capture"
	"github.com/ayusman/pinchdraw/internal/detector"
	"github.com/ayusman/pinchdraw/internal/mode"
	"github.com/ayusman/pinchdraw/internal/projection"
	"github.com/ayusman/pinchdraw/internal/render"
	"github.com/ayusman/pinchdraw/internal/server"
	"github.com/ayusman/pinchdraw/internal/store"
	"github.com/ayusman/pinchdraw/internal/stroke"
	"github.com/ayusman/pinchdraw/internal/tray"
)

type options struct {
	addr        string
	dbPath      string
	cameraID    int
	width       int
	height      int
	fov         float64
	mirror      bool
	mode        string
	orientation string
	motion      float64
	record      string
	replay      string
	replaySpeed float64
	snapshot    string
	tray        bool
	view        bool
	verbose     bool
}

func parseFlags() options {
	var o options
	flag.StringVar(&o.addr, "addr", ":8080", "HTTP listen address")
	flag.StringVar(&o.dbPath, "db", "", "SQLite database path (default ~/.pinchdraw/pinchdraw.db)")
	flag.IntVar(&o.cameraID, "camera", 0, "camera device ID")
	flag.IntVar(&o.width, "width", 640, "capture and viewport width in pixels")
	flag.IntVar(&o.height, "height", 480, "capture and viewport height in pixels")
	flag.Float64Var(&o.fov, "fov", 60, "vertical field of view in degrees")
	flag.BoolVar(&o.mirror, "mirror", true, "mirror camera frames horizontally")
	flag.StringVar(&o.mode, "mode", "", "initial drawing mode: world or screen (default: last used)")
	flag.StringVar(&o.orientation, "orientation", "", "device orientation: portrait, landscape-left, landscape-right, upside-down")
	flag.Float64Var(&o.motion, "motion", capture.DefaultMotionThreshold, "motion gate threshold in percent of changed pixels, 0 disables")
	flag.StringVar(&o.record, "record", "", "record landmark frames under this name")
	flag.StringVar(&o.replay, "replay", "", "replay the recording with this ID instead of using the camera")
	flag.Float64Var(&o.replaySpeed, "replay-speed", 1, "replay speed multiplier")
	flag.StringVar(&o.snapshot, "snapshot", "", "write a PNG of all strokes here on exit; with -replay, exit when the replay ends")
	flag.BoolVar(&o.tray, "tray", false, "show the system tray menu")
	flag.BoolVar(&o.view, "view", false, "start with drawing paused; hands are tracked but pinches do not draw")
	flag.BoolVar(&o.verbose, "v", false, "debug logging")
	flag.Parse()
	return o
}

func main() {
	opts := parseFlags()
	fmt.Println("Pinchdraw - Hand Drawing")

	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	// Initialize the store
	dbPath := opts.dbPath
	if dbPath == "" {
		dbPath = defaultDBPath()
	}
	st, err := store.New(dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()
	settings := st.Settings()

	initial := resolveMode(opts.mode, settings)
	orientation := resolveOrientation(opts.orientation, settings)

	pose, err := projection.NewCameraPose(
		mgl64.Vec3{0, 0, 0},
		mgl64.Vec3{0, 0, -1},
		mgl64.Vec3{0, 1, 0},
		opts.fov, 0.05, 100,
		projection.Viewport{Width: opts.width, Height: opts.height},
	)
	if err != nil {
		log.Fatalf("Invalid camera settings: %v", err)
	}
	camera := projection.NewStaticCamera(pose.WithOrientation(orientation))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Landmark source: a stored recording or the live camera
	var source detector.Source
	var shutdownSource func()
	if opts.replay != "" {
		replay, err := capture.LoadReplay(st.Recordings(), opts.replay, nil, opts.replaySpeed)
		if err != nil {
			log.Fatalf("Failed to load recording %s: %v", opts.replay, err)
		}
		fmt.Printf("Replaying %d frames from %s\n", replay.Len(), opts.replay)
		source = replay.Mailbox()
		go func() {
			if err := replay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("Replay stopped: %v", err)
				return
			}
			fmt.Println("Replay finished")
			if opts.snapshot != "" {
				// Let the frame loop consume the last frame.
				time.Sleep(3 * time.Second / app.DefaultTickRate)
				stop()
			}
		}()
		shutdownSource = func() {}
	} else {
		src, cleanup := startCamera(opts, st)
		source = src.Mailbox()
		shutdownSource = cleanup
	}

	a := app.New(app.Config{
		Source:      source,
		Camera:      camera,
		InitialMode: initial,
		Logger:      logger,
	})
	if opts.view {
		a.SetDrawingEnabled(false)
	}
	if err := a.Start(); err != nil {
		log.Fatalf("Failed to start drawing pipeline: %v", err)
	}

	srv := server.New(server.Config{
		StaticDir: findWebDir(),
		Store:     st,
		App:       a,
	})
	go func() {
		fmt.Printf("Starting server on %s\n", opts.addr)
		if err := srv.ListenAndServe(opts.addr); err != nil {
			log.Printf("Server failed: %v", err)
			stop()
		}
	}()

	if opts.tray {
		runTray(ctx, stop, a)
	} else {
		<-ctx.Done()
	}

	fmt.Println("Shutting down...")
	a.Stop()
	shutdownSource()

	if err := settings.Set(store.SettingMode, a.Mode().String()); err != nil {
		log.Printf("Error saving mode setting: %v", err)
	}
	if opts.orientation != "" {
		if err := settings.Set(store.SettingOrientation, orientation.String()); err != nil {
			log.Printf("Error saving orientation setting: %v", err)
		}
	}

	if opts.snapshot != "" {
		if err := writeSnapshot(opts.snapshot, a, camera); err != nil {
			log.Printf("Error writing snapshot: %v", err)
		} else {
			fmt.Printf("Wrote %s\n", opts.snapshot)
		}
	}
}

// startCamera opens the camera source, with a recorder attached when -record
// is set. The returned cleanup stops capture and flushes the recording.
func startCamera(opts options, st *store.Store) (*capture.CameraSource, func()) {
	det, err := detector.NewMediaPipeDetector(detector.DefaultConfig())
	var hands detector.Detector = det
	if err != nil {
		log.Printf("Hand detector unavailable (%v); no landmarks will be produced", err)
		hands = detector.NewMockDetector()
	}

	var sink capture.FrameSink
	var recorder *capture.Recorder
	if opts.record != "" {
		recorder, err = capture.NewRecorder(st.Recordings(), opts.record)
		if err != nil {
			log.Fatalf("Failed to create recording: %v", err)
		}
		fmt.Printf("Recording to %s\n", recorder.ID())
		sink = recorder
	}

	cfg := capture.DefaultCameraConfig()
	cfg.DeviceID = opts.cameraID
	cfg.Width = opts.width
	cfg.Height = opts.height
	cfg.Mirror = opts.mirror

	src := capture.NewCameraSource(capture.SourceConfig{
		Camera:          capture.NewCameraWithConfig(cfg),
		Detector:        hands,
		MotionThreshold: opts.motion,
		Sink:            sink,
	})
	if err := src.Start(); err != nil {
		log.Fatalf("Failed to start camera: %v", err)
	}

	return src, func() {
		src.Stop()
		if recorder != nil {
			if err := recorder.Close(); err != nil {
				log.Printf("Error saving recording: %v", err)
			}
		}
	}
}

// runTray blocks on the tray event loop until Quit is clicked or ctx ends.
func runTray(ctx context.Context, stop context.CancelFunc, a *app.App) {
	tr := tray.New(a)
	tr.OnQuit(stop)

	a.OnModeChange(func(_, to mode.Mode) {
		tr.SetMode(to)
	})
	a.OnDrawingChange(tr.SetDrawing)
	var strokes atomic.Int64
	a.OnStroke(func(e stroke.Event) {
		switch e.Kind {
		case stroke.Created:
			tr.SetStrokeCount(int(strokes.Add(1)))
		case stroke.Cleared:
			strokes.Store(0)
			tr.SetStrokeCount(0)
		}
	})

	go func() {
		<-ctx.Done()
		tr.Quit()
	}()
	tr.Run()
}

func writeSnapshot(path string, a *app.App, camera projection.CameraProvider) error {
	pose, ok := camera.Pose()
	if !ok {
		return projection.ErrDegenerateCamera
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := render.WritePNG(f, a.Strokes(), pose, render.Options{}); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func resolveMode(flagValue string, settings *store.SettingsRepository) mode.Mode {
	if flagValue != "" {
		m, err := mode.Parse(flagValue)
		if err != nil {
			log.Fatalf("Invalid -mode: %v", err)
		}
		return m
	}
	saved, err := settings.Get(store.SettingMode)
	if err != nil {
		return mode.WorldAnchored
	}
	m, err := mode.Parse(saved)
	if err != nil {
		log.Printf("Ignoring saved mode %q: %v", saved, err)
		return mode.WorldAnchored
	}
	return m
}

func resolveOrientation(flagValue string, settings *store.SettingsRepository) projection.Orientation {
	if flagValue != "" {
		o, err := projection.ParseOrientation(flagValue)
		if err != nil {
			log.Fatalf("Invalid -orientation: %v", err)
		}
		return o
	}
	saved, err := settings.Get(store.SettingOrientation)
	if err != nil {
		return projection.Portrait
	}
	o, err := projection.ParseOrientation(saved)
	if err != nil {
		log.Printf("Ignoring saved orientation %q: %v", saved, err)
		return projection.Portrait
	}
	return o
}

func defaultDBPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Fatalf("Failed to get home directory: %v", err)
	}

	dbDir := filepath.Join(homeDir, ".pinchdraw")
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	return filepath.Join(dbDir, "pinchdraw.db")
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.pinchdraw/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".pinchdraw", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
