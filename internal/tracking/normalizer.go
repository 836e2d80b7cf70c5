package tracking

import (
	"math"

	"github.com/ayusman/servotrack/internal/config"
	"github.com/ayusman/servotrack/internal/detector"
)

// Normalizer converts candidates into Results, holding EMA state across
// frames. It is not safe for concurrent use; the control loop owns it.
type Normalizer struct {
	minArea     int
	deadband    float64
	centerAlpha float64
	errorAlpha  float64

	smoothedCenter *Point
	smoothedError  *Point
}

// NewNormalizer creates a Normalizer from the tracking config.
func NewNormalizer(cfg config.TrackingConfig) *Normalizer {
	return &Normalizer{
		minArea:     cfg.MinArea,
		deadband:    cfg.DeadbandPx,
		centerAlpha: clampAlpha(cfg.CenterSmoothAlpha),
		errorAlpha:  clampAlpha(cfg.ErrorSmoothAlpha),
	}
}

// Process builds the Result for one frame.
//
// The center is smoothed first, the error is taken against the integer frame
// center and smoothed again with its own alpha, and only then is the
// deadband applied. A missing or undersized candidate resets both filters so
// the next sighting starts fresh.
func (n *Normalizer) Process(c *detector.Candidate, frameW, frameH int) Result {
	if c == nil || c.Area < n.minArea || c.Rect.Empty() {
		n.Reset()
		return Result{}
	}

	raw := Point{
		X: float64(c.Rect.Min.X) + float64(c.Rect.Dx())/2,
		Y: float64(c.Rect.Min.Y) + float64(c.Rect.Dy())/2,
	}

	center := ema(n.smoothedCenter, raw, n.centerAlpha)
	n.smoothedCenter = &center

	fc := FrameCenter(frameW, frameH)
	rawErr := Point{X: center.X - float64(fc.X), Y: center.Y - float64(fc.Y)}

	errSmoothed := ema(n.smoothedError, rawErr, n.errorAlpha)
	n.smoothedError = &errSmoothed

	banded := Point{
		X: applyDeadband(errSmoothed.X, n.deadband),
		Y: applyDeadband(errSmoothed.Y, n.deadband),
	}

	return Result{
		Found:      true,
		BBox:       c.Rect,
		Center:     center,
		RawCenter:  raw,
		Error:      banded.Round(),
		Area:       c.Area,
		Label:      c.Label,
		Confidence: c.Confidence,
	}
}

// Reset clears the smoothing state.
func (n *Normalizer) Reset() {
	n.smoothedCenter = nil
	n.smoothedError = nil
}

// Smoothing reports the current filter state, nil when reset.
func (n *Normalizer) Smoothing() (center, err *Point) {
	return n.smoothedCenter, n.smoothedError
}

// ema applies s' = (1-a)s + a*x. The first sample passes through.
func ema(prev *Point, x Point, alpha float64) Point {
	if prev == nil {
		return x
	}
	return Point{
		X: (1-alpha)*prev.X + alpha*x.X,
		Y: (1-alpha)*prev.Y + alpha*x.Y,
	}
}

func applyDeadband(v, band float64) float64 {
	if math.Abs(v) < band {
		return 0
	}
	return v
}

func clampAlpha(a float64) float64 {
	if a <= 0 || a > 1 || math.IsNaN(a) {
		return 1
	}
	return a
}
