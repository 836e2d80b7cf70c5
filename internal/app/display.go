package app

import (
	"gocv.io/x/gocv"

	"github.com/ayusman/servotrack/internal/config"
)

// NoKey is returned by PollKey when nothing was pressed.
const NoKey = -1

// Display shows the annotated frame and reports key presses.
type Display interface {
	// Show renders frame, and mask when non-nil and enabled.
	Show(frame *gocv.Mat, mask *gocv.Mat)
	// PollKey returns the pressed key code or NoKey. It may block for up to
	// one millisecond.
	PollKey() int
	Close() error
}

// Headless is a Display that shows nothing and never reports a key.
type Headless struct{}

func (Headless) Show(*gocv.Mat, *gocv.Mat) {}
func (Headless) PollKey() int              { return NoKey }
func (Headless) Close() error              { return nil }

// Window displays frames in a HighGUI window and, optionally, the detector
// mask in a second one.
type Window struct {
	name     string
	showMask bool
	video    *gocv.Window
	mask     *gocv.Window
}

// NewWindow opens the video window.
func NewWindow(cfg config.DisplayConfig) *Window {
	name := cfg.WindowName
	if name == "" {
		name = "servotrack"
	}
	return &Window{
		name:     name,
		showMask: cfg.ShowMask,
		video:    gocv.NewWindow(name),
	}
}

func (w *Window) Show(frame *gocv.Mat, mask *gocv.Mat) {
	if frame != nil && !frame.Empty() {
		w.video.IMShow(*frame)
	}

	if !w.showMask || mask == nil || mask.Empty() {
		return
	}
	if w.mask == nil {
		w.mask = gocv.NewWindow(w.name + " mask")
	}
	w.mask.IMShow(*mask)
}

func (w *Window) PollKey() int {
	key := w.video.WaitKey(1)
	if key < 0 {
		return NoKey
	}
	return key & 0xFF
}

func (w *Window) Close() error {
	if w.mask != nil {
		w.mask.Close()
		w.mask = nil
	}
	return w.video.Close()
}
