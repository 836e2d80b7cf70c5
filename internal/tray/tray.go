// Package tray provides a system tray menu for switching modes, calibrating
// and quitting servotrack.
package tray

import (
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/servotrack/internal/config"
)

// Tray represents the system tray application.
type Tray struct {
	onMode      func(mode config.Mode)
	onCalibrate func()
	onDashboard func()
	onQuit      func()
	mode        config.Mode
	mu          sync.RWMutex

	// Menu items stored for later updates
	menuModes  map[config.Mode]*systray.MenuItem
	menuStatus *systray.MenuItem
}

// New creates a new Tray showing mode as selected.
func New(mode config.Mode) *Tray {
	return &Tray{mode: mode}
}

// OnMode sets the callback invoked when a mode item is clicked.
func (t *Tray) OnMode(fn func(mode config.Mode)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onMode = fn
}

// OnCalibrate sets the callback invoked when the calibrate item is clicked.
func (t *Tray) OnCalibrate(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onCalibrate = fn
}

// OnDashboard sets the callback invoked when the dashboard item is clicked.
func (t *Tray) OnDashboard(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onDashboard = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until Quit is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit removes the tray icon and makes Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("servotrack")
	systray.SetTooltip("servotrack pan-tilt tracker")

	t.mu.Lock()
	t.menuStatus = systray.AddMenuItem("Mode: "+string(t.mode), "Current tracking state")
	t.menuStatus.Disable()
	systray.AddSeparator()

	t.menuModes = make(map[config.Mode]*systray.MenuItem)
	for _, m := range config.Modes() {
		item := systray.AddMenuItemCheckbox(modeTitle(m), "Track by "+string(m), m == t.mode)
		t.menuModes[m] = item
		go t.watchMode(m, item)
	}
	t.mu.Unlock()
	systray.AddSeparator()

	menuCalibrate := systray.AddMenuItem("Calibrate Distance", "Calibrate focal length on the current target")
	menuDashboard := systray.AddMenuItem("Open Dashboard...", "Open the dashboard in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit servotrack")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-menuCalibrate.ClickedCh:
				t.handleCalibrate()
			case <-menuDashboard.ClickedCh:
				t.handleDashboard()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) watchMode(m config.Mode, item *systray.MenuItem) {
	for range item.ClickedCh {
		t.handleMode(m)
	}
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {}

// handleMode forwards a mode click. The check marks follow SetMode, which
// the caller invokes once the loop has applied the switch.
func (t *Tray) handleMode(m config.Mode) {
	t.mu.RLock()
	callback := t.onMode
	t.mu.RUnlock()

	if callback != nil {
		callback(m)
	}
}

func (t *Tray) handleCalibrate() {
	t.mu.RLock()
	callback := t.onCalibrate
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleDashboard() {
	t.mu.RLock()
	callback := t.onDashboard
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
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

// SetMode moves the check mark to mode.
func (t *Tray) SetMode(mode config.Mode) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.mode = mode
	for m, item := range t.menuModes {
		if m == mode {
			item.Check()
		} else {
			item.Uncheck()
		}
	}
	if t.menuStatus != nil {
		t.menuStatus.SetTitle("Mode: " + string(mode))
	}
}

// SetStatus replaces the status line.
func (t *Tray) SetStatus(text string) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuStatus != nil {
		t.menuStatus.SetTitle(text)
	}
}

// Mode returns the mode currently checked.
func (t *Tray) Mode() config.Mode {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.mode
}

func modeTitle(m config.Mode) string {
	switch m {
	case config.ModeColour:
		return "Colour (1)"
	case config.ModePerson:
		return "Person (2)"
	case config.ModeFace:
		return "Face (3)"
	case config.ModeIdle:
		return "Idle (0)"
	}
	return string(m)
}
