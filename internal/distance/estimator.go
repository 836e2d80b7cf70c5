// Package distance estimates target range from its apparent width using a
// pinhole camera model.
//
//	focal_px    = width_px * calib_distance_cm / known_width_cm
//	distance_cm = known_width_cm * focal_px / width_px
package distance

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ayusman/servotrack/internal/config"
)

var (
	// ErrInvalidWidth is returned by Calibrate for a non-positive width.
	ErrInvalidWidth = errors.New("invalid bounding box width")
	// ErrNotCalibrated is returned when no focal length is known yet.
	ErrNotCalibrated = errors.New("distance estimator not calibrated")
)

// Estimator holds the focal length and a smoothed distance reading.
// Calibrate may be called from an HTTP handler while the loop estimates, so
// state is guarded.
type Estimator struct {
	mu           sync.Mutex
	knownWidthCM float64
	calibDistCM  float64
	focalPx      float64
	alpha        float64
	smoothed     float64
	haveSmoothed bool
}

// New creates an Estimator. A FocalLengthPx of 0 leaves it uncalibrated.
func New(cfg config.DistanceConfig) *Estimator {
	alpha := cfg.SmoothAlpha
	if alpha <= 0 || alpha > 1 {
		alpha = 1
	}
	return &Estimator{
		knownWidthCM: cfg.KnownWidthCM,
		calibDistCM:  cfg.CalibDistanceCM,
		focalPx:      cfg.FocalLengthPx,
		alpha:        alpha,
	}
}

// Calibrate derives the focal length from a target of known width held at
// the calibration distance. It resets the smoothed reading. On error the
// estimator is unchanged.
func (e *Estimator) Calibrate(widthPx int) (float64, error) {
	if widthPx <= 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidWidth, widthPx)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.focalPx = float64(widthPx) * e.calibDistCM / e.knownWidthCM
	e.haveSmoothed = false
	return e.focalPx, nil
}

// SetFocalLength installs a previously computed focal length.
func (e *Estimator) SetFocalLength(px float64) error {
	if px <= 0 {
		return fmt.Errorf("focal length must be positive, got %v", px)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.focalPx = px
	e.haveSmoothed = false
	return nil
}

// FocalLength returns the focal length in pixels, 0 when uncalibrated.
func (e *Estimator) FocalLength() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.focalPx
}

// Calibrated reports whether a focal length is known.
func (e *Estimator) Calibrated() bool {
	return e.FocalLength() > 0
}

// Estimate returns the smoothed distance in cm for a target widthPx wide.
// ok is false when uncalibrated or the width is not positive; the smoothed
// state is left alone in that case.
func (e *Estimator) Estimate(widthPx int) (cm float64, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.focalPx <= 0 || widthPx <= 0 {
		return 0, false
	}

	d := e.knownWidthCM * e.focalPx / float64(widthPx)
	if !e.haveSmoothed {
		e.smoothed = d
		e.haveSmoothed = true
	} else {
		e.smoothed = (1-e.alpha)*e.smoothed + e.alpha*d
	}
	return e.smoothed, true
}

// Reset drops the smoothed reading, keeping the focal length.
func (e *Estimator) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.haveSmoothed = false
}
