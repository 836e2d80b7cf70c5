// Package detector finds a single tracking target in a BGR frame.
//
// Three strategies share the Detector interface: an HSV colour threshold,
// a HOG people detector and a Haar cascade face detector. Each returns at
// most one Candidate per frame, the largest it found.
package detector

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/ayusman/servotrack/internal/config"
)

var (
	// ErrUnknownMode is returned by New for a tag with no detector.
	ErrUnknownMode = config.ErrUnknownMode
	// ErrEmptyFrame is returned when Detect is handed a nil or empty Mat.
	ErrEmptyFrame = errors.New("empty frame")
)

// Candidate is the region a detector selected in a frame.
type Candidate struct {
	Rect       image.Rectangle
	Area       int
	Label      string
	Confidence float64
}

// Width returns the bounding box width in pixels.
func (c *Candidate) Width() int {
	return c.Rect.Dx()
}

// Detector defines the interface for target detection strategies.
type Detector interface {
	// Detect analyzes a BGR frame. A nil Candidate means nothing qualified.
	Detect(frame *gocv.Mat) (*Candidate, error)

	// Name returns the mode tag the detector serves.
	Name() string

	// Close releases any resources held by the detector.
	Close() error
}

// Masker is implemented by detectors that can show their binary mask.
type Masker interface {
	// Mask returns the mask built by the last Detect call. It is owned by
	// the detector and valid until the next Detect or Close.
	Mask() *gocv.Mat
}

// New builds the detector for mode. ModeIdle yields a nil Detector and no
// error; the caller treats that as "never found".
func New(mode config.Mode, cfg config.Config) (Detector, error) {
	switch mode {
	case config.ModeColour:
		return NewColourDetector(cfg.Colour, cfg.Tracking.MinArea)
	case config.ModePerson:
		return NewPersonDetector(cfg.Person, cfg.Tracking.MinArea), nil
	case config.ModeFace:
		return NewFaceDetector(cfg.Face)
	case config.ModeIdle:
		return nil, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
}

// largest returns the rectangle with the greatest area that is at least
// minArea. Ties keep the first one seen.
func largest(rects []image.Rectangle, minArea int) (image.Rectangle, int, bool) {
	var (
		best     image.Rectangle
		bestArea = -1
	)
	for _, r := range rects {
		area := r.Dx() * r.Dy()
		if area < minArea || area <= bestArea {
			continue
		}
		best, bestArea = r, area
	}
	return best, bestArea, bestArea >= 0
}

func checkFrame(frame *gocv.Mat) error {
	if frame == nil || frame.Empty() {
		return ErrEmptyFrame
	}
	return nil
}
