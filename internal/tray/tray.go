// Package tray provides a system tray menu for switching drawing modes,
// pausing drawing and clearing strokes.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/pinchdraw/internal/mode"
)

// Controller is the part of the drawing session the tray drives.
type Controller interface {
	Mode() mode.Mode
	ToggleMode() mode.Mode
	DrawingEnabled() bool
	SetDrawingEnabled(on bool) bool
	ClearAll() int
}

// Tray represents the system tray application.
type Tray struct {
	controller Controller
	onQuit     func()
	mu         sync.RWMutex

	// Menu items stored for later updates
	menuMode    *systray.MenuItem
	menuDrawing *systray.MenuItem
	menuStrokes *systray.MenuItem
}

// New creates a new Tray driving controller.
func New(controller Controller) *Tray {
	return &Tray{controller: controller}
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit stops the tray event loop.
func (t *Tray) Quit() {
	systray.Quit()
}

func modeTitle(m mode.Mode) string {
	if m == mode.WorldAnchored {
		return "3D: world-anchored"
	}
	return "2D: screen-space"
}

func drawingTitle(on bool) string {
	if on {
		return "Drawing"
	}
	return "Drawing paused (view only)"
}

func strokesTitle(n int) string {
	if n == 1 {
		return "1 stroke"
	}
	return fmt.Sprintf("%d strokes", n)
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("Pinchdraw")
	systray.SetTooltip("Pinchdraw hand drawing")

	current := t.controller.Mode()
	drawing := t.controller.DrawingEnabled()
	t.mu.Lock()
	t.menuMode = systray.AddMenuItemCheckbox(modeTitle(current), "Toggle world-anchored drawing", current == mode.WorldAnchored)
	t.menuDrawing = systray.AddMenuItemCheckbox(drawingTitle(drawing), "Pause drawing while tracking continues", drawing)
	systray.AddSeparator()
	t.menuStrokes = systray.AddMenuItem(strokesTitle(0), "Strokes drawn this session")
	t.menuStrokes.Disable()
	t.mu.Unlock()

	menuClear := systray.AddMenuItem("Clear all", "Discard every stroke")
	systray.AddSeparator()
	menuQuit := systray.AddMenuItem("Quit", "Quit Pinchdraw")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuMode.ClickedCh:
				t.handleToggle()
			case <-t.menuDrawing.ClickedCh:
				t.handleDrawing()
			case <-menuClear.ClickedCh:
				t.handleClear()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

// handleToggle flips the drawing mode. The menu is refreshed by SetMode once
// the change is published.
func (t *Tray) handleToggle() {
	t.SetMode(t.controller.ToggleMode())
}

func (t *Tray) handleDrawing() {
	t.controller.SetDrawingEnabled(!t.controller.DrawingEnabled())
	t.SetDrawing(t.controller.DrawingEnabled())
}

func (t *Tray) handleClear() {
	t.controller.ClearAll()
	t.SetStrokeCount(0)
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetMode updates the mode item. It is safe to call before the tray is
// ready and from any goroutine.
func (t *Tray) SetMode(m mode.Mode) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuMode == nil {
		return
	}
	t.menuMode.SetTitle(modeTitle(m))
	if m == mode.WorldAnchored {
		t.menuMode.Check()
	} else {
		t.menuMode.Uncheck()
	}
}

// SetDrawing updates the drawing item.
func (t *Tray) SetDrawing(on bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuDrawing == nil {
		return
	}
	t.menuDrawing.SetTitle(drawingTitle(on))
	if on {
		t.menuDrawing.Check()
	} else {
		t.menuDrawing.Uncheck()
	}
}

// SetStrokeCount updates the stroke counter item.
func (t *Tray) SetStrokeCount(n int) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuStrokes != nil {
		t.menuStrokes.SetTitle(strokesTitle(n))
	}
}
