package app

import (
	"github.com/ayusman/servotrack/internal/config"
	"github.com/ayusman/servotrack/internal/servo"
	"github.com/ayusman/servotrack/internal/tracking"
)

// Status is the loop state after the most recent frame. It is also the
// telemetry message published per frame.
type Status struct {
	Mode          config.Mode     `json:"mode"`
	Servo         servo.Status    `json:"servo"`
	FocalLengthPx float64         `json:"focal_length_px"`
	Calibrated    bool            `json:"calibrated"`
	PanUS         int             `json:"pan_us,omitempty"`
	TiltUS        int             `json:"tilt_us,omitempty"`
	Result        tracking.Result `json:"result"`
	DistanceCM    *float64        `json:"distance_cm,omitempty"`
	FPS           float64         `json:"fps"`
	SessionID     string          `json:"session_id,omitempty"`
	Frames        int64           `json:"frames"`
	FramesFound   int64           `json:"frames_found"`
	Timestamp     int64           `json:"timestamp"`
}

// Status returns a copy of the latest loop state. Safe for concurrent use.
func (a *App) Status() Status {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.status
}

// snapshot records the loop state. Called only from the loop goroutine.
func (a *App) snapshot(dist float64, hasDist bool) Status {
	s := Status{
		Mode:          a.mode,
		Servo:         a.servoStatus,
		FocalLengthPx: a.estimator.FocalLength(),
		Calibrated:    a.estimator.Calibrated(),
		Result:        a.last,
		FPS:           a.fps,
		SessionID:     a.session.ID,
		Frames:        a.session.Frames,
		FramesFound:   a.session.FramesFound,
		Timestamp:     a.now().UnixMilli(),
	}
	if hasDist {
		d := dist
		s.DistanceCM = &d
	}
	if a.controller != nil {
		drv := a.controller.Driver()
		s.PanUS = drv.Position(servo.Pan)
		s.TiltUS = drv.Position(servo.Tilt)
	}

	a.mu.Lock()
	a.status = s
	a.mu.Unlock()
	return s
}
