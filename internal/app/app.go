// Package app runs the pinch drawing pipeline on a fixed frame tick.
package app

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ayusman/pinchdraw/internal/detector"
	"github.com/ayusman/pinchdraw/internal/gesture"
	"github.com/ayusman/pinchdraw/internal/mode"
	"github.com/ayusman/pinchdraw/internal/projection"
	"github.com/ayusman/pinchdraw/internal/stroke"
)

// Loop timing defaults.
const (
	// DefaultTickRate is the frame loop rate in Hz.
	DefaultTickRate = 30
	// DefaultMaxFrameDelta caps dt after a stall so confidence cannot jump.
	DefaultMaxFrameDelta = 250 * time.Millisecond
)

// Config holds configuration options for the application.
type Config struct {
	Source detector.Source
	Camera projection.CameraProvider

	InitialMode    mode.Mode
	SmoothingAlpha float64
	Pinch          gesture.PinchConfig
	Projector      projection.ProjectorConfig
	Strokes        stroke.Config

	TickRate      int
	MaxFrameDelta time.Duration

	Logger *slog.Logger
}

// Stats counts frame loop activity.
type Stats struct {
	Ticks   int `json:"ticks"`
	Steps   int `json:"steps"`
	Missing int `json:"missing"`
	Panics  int `json:"panics"`
}

// Frame is the live view of one processed step: the smoothed landmarks and
// where the pinch stands.
type Frame struct {
	Points     []detector.Point3D `json:"points,omitempty"`
	Missing    bool               `json:"missing"`
	State      string             `json:"state"`
	Transition string             `json:"transition"`
	Confidence float64            `json:"confidence"`
	Distance   float64            `json:"distance,omitempty"`
	Drawing    bool               `json:"drawing"`
}

// App owns the session and drives the pipeline from the landmark source.
// All session access goes through the App mutex, so HTTP and tray calls run
// between frames.
type App struct {
	config   Config
	log      *slog.Logger
	pipeline *Pipeline

	mu        sync.Mutex
	session   *Session
	lastFrame time.Time
	stats     Stats
	onFrame   []func(Frame)
	onDrawing []func(enabled bool)
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// New creates a new App. When the pipeline cannot be built (no camera) the
// App is created disabled: Tick does nothing and Start returns the error.
func New(config Config) *App {
	if config.TickRate <= 0 {
		config.TickRate = DefaultTickRate
	}
	if config.MaxFrameDelta <= 0 {
		config.MaxFrameDelta = DefaultMaxFrameDelta
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	a := &App{
		config: config,
		log:    logger,
		session: NewSession(SessionConfig{
			InitialMode:    config.InitialMode,
			SmoothingAlpha: config.SmoothingAlpha,
			Pinch:          config.Pinch,
			Strokes:        config.Strokes,
			Logger:         logger,
		}),
	}

	p, err := NewPipeline(PipelineConfig{
		Camera:    config.Camera,
		Projector: config.Projector,
		Logger:    logger,
	})
	if err != nil {
		logger.Error("drawing pipeline disabled", "err", err)
	} else {
		a.pipeline = p
	}
	if config.Source == nil {
		logger.Warn("no landmark source configured")
	}

	return a
}

// Enabled reports whether the pipeline is running frames.
func (a *App) Enabled() bool {
	return a.pipeline != nil && a.config.Source != nil
}

// Start begins the frame loop.
func (a *App) Start() error {
	if a.pipeline == nil {
		return ErrNoCamera
	}
	if a.config.Source == nil {
		return errors.New("no landmark source configured")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	// Don't start if already running
	if a.stopCh != nil {
		return nil
	}

	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	go a.run(a.stopCh, a.doneCh)

	a.log.Info("frame loop started", "tick_hz", a.config.TickRate)
	return nil
}

// Stop halts the frame loop and seals any open stroke.
func (a *App) Stop() {
	a.mu.Lock()
	stopCh, doneCh := a.stopCh, a.doneCh
	a.stopCh, a.doneCh = nil, nil
	a.mu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	<-doneCh

	a.mu.Lock()
	if a.pipeline != nil {
		a.pipeline.release(a.session)
	}
	a.mu.Unlock()

	a.log.Info("frame loop stopped")
}

func (a *App) run(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(time.Second / time.Duration(a.config.TickRate))
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case now := <-ticker.C:
			a.Tick(now)
		}
	}
}

// Tick consumes at most one landmark frame and runs one pipeline step. It
// reports false when no new frame was ready, in which case the session is
// left exactly as it was.
func (a *App) Tick(now time.Time) (StepResult, bool) {
	if !a.Enabled() {
		return StepResult{}, false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.stats.Ticks++
	hand, ok := a.config.Source.Latest()
	if !ok {
		return StepResult{}, false
	}

	dt := 1 / float64(a.config.TickRate)
	if !a.lastFrame.IsZero() {
		elapsed := min(max(now.Sub(a.lastFrame), 0), a.config.MaxFrameDelta)
		dt = elapsed.Seconds()
	}
	a.lastFrame = now

	res := a.pipeline.Step(a.session, hand, dt)
	a.stats.Steps++
	if res.Missing {
		a.stats.Missing++
	}
	if res.Recovered {
		a.stats.Panics++
	}
	if len(a.onFrame) > 0 {
		f := a.frame(res)
		for _, fn := range a.onFrame {
			fn(f)
		}
	}
	return res, true
}

func (a *App) frame(res StepResult) Frame {
	f := Frame{
		Missing:    res.Missing,
		State:      a.session.Pinch.State().String(),
		Transition: res.Transition.String(),
		Confidence: a.session.Pinch.Confidence(),
		Drawing:    a.session.DrawingEnabled(),
	}
	if res.Hand != nil {
		f.Points = res.Hand.Points
		f.Distance = res.Hand.PinchDistance()
	}
	return f
}

// Mode returns the current drawing mode.
func (a *App) Mode() mode.Mode {
	return a.session.Mode.Current()
}

// SetMode switches the drawing mode, sealing the active stroke first.
func (a *App) SetMode(m mode.Mode) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session.SwitchMode(m)
}

// ToggleMode flips the drawing mode and returns the new one.
func (a *App) ToggleMode() mode.Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session.ToggleMode()
}

// DrawingEnabled reports whether pinches draw.
func (a *App) DrawingEnabled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session.DrawingEnabled()
}

// SetDrawingEnabled pauses or resumes drawing. Pausing seals the active
// stroke; hand tracking continues either way.
func (a *App) SetDrawingEnabled(on bool) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.session.SetDrawingEnabled(on) {
		return false
	}
	a.log.Info("drawing toggled", "enabled", on)
	for _, fn := range a.onDrawing {
		fn(on)
	}
	return true
}

// ClearAll discards every stroke.
func (a *App) ClearAll() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session.ClearAll()
}

// Strokes returns a snapshot of all strokes.
func (a *App) Strokes() []stroke.Stroke {
	return a.session.Strokes.Strokes()
}

// Pinch reports the current pinch state and confidence.
func (a *App) Pinch() (gesture.PinchState, float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session.Pinch.State(), a.session.Pinch.Confidence()
}

// Stats returns frame loop counters.
func (a *App) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}

// Camera returns the camera provider, or nil when none was configured.
func (a *App) Camera() projection.CameraProvider {
	return a.config.Camera
}

// OnStroke registers a stroke event listener. Listeners run on the frame
// loop goroutine while the App lock is held and must not call back into App.
func (a *App) OnStroke(fn stroke.Listener) {
	a.session.Strokes.Subscribe(fn)
}

// OnModeChange registers a mode change listener.
func (a *App) OnModeChange(fn func(from, to mode.Mode)) {
	a.session.Mode.Subscribe(fn)
}

// OnFrame registers a listener called after every processed step. Like
// OnStroke listeners it runs with the App lock held.
func (a *App) OnFrame(fn func(Frame)) {
	if fn == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onFrame = append(a.onFrame, fn)
}

// OnDrawingChange registers a listener for SetDrawingEnabled changes.
func (a *App) OnDrawingChange(fn func(enabled bool)) {
	if fn == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onDrawing = append(a.onDrawing, fn)
}
