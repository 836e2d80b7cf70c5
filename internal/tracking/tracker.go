package tracking

import (
	"log/slog"

	"gocv.io/x/gocv"

	"github.com/ayusman/servotrack/internal/config"
	"github.com/ayusman/servotrack/internal/detector"
)

// Tracker runs the active detector and feeds its candidate through the
// Normalizer. A nil detector (idle mode) never finds anything.
type Tracker struct {
	det  detector.Detector
	norm *Normalizer
	log  *slog.Logger
}

// NewTracker creates a Tracker. det may be nil.
func NewTracker(det detector.Detector, cfg config.TrackingConfig, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		det:  det,
		norm: NewNormalizer(cfg),
		log:  logger.With("component", "tracker"),
	}
}

// Process detects and normalizes one frame. Detector errors are logged and
// reported as not found.
func (t *Tracker) Process(frame *gocv.Mat) Result {
	if t.det == nil || frame == nil || frame.Empty() {
		t.norm.Reset()
		return Result{}
	}

	c, err := t.det.Detect(frame)
	if err != nil {
		t.log.Warn("detection failed", "detector", t.det.Name(), "error", err)
		c = nil
	}

	return t.norm.Process(c, frame.Cols(), frame.Rows())
}

// SetDetector swaps the detection strategy and resets smoothing. It returns
// the previous detector so the caller can close it.
func (t *Tracker) SetDetector(det detector.Detector) detector.Detector {
	prev := t.det
	t.det = det
	t.norm.Reset()
	return prev
}

// Detector returns the active detector, nil when idle.
func (t *Tracker) Detector() detector.Detector {
	return t.det
}

// Normalizer exposes the smoothing stage.
func (t *Tracker) Normalizer() *Normalizer {
	return t.norm
}

// Close closes the active detector.
func (t *Tracker) Close() error {
	if t.det == nil {
		return nil
	}
	err := t.det.Close()
	t.det = nil
	return err
}
