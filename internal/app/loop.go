package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/servotrack/internal/capture"
	"github.com/ayusman/servotrack/internal/detector"
	"github.com/ayusman/servotrack/internal/overlay"
	"github.com/ayusman/servotrack/internal/servo"
)

// fpsAlpha is the smoothing factor for the displayed frame rate.
const fpsAlpha = 0.1

// Run opens the camera and processes frames until ctx is cancelled, a quit
// command arrives, a finite source runs out, or the camera fails
// MaxReadFailures times in a row. Every component is released on return.
func (a *App) Run(ctx context.Context) error {
	defer a.doneOnce.Do(func() { close(a.done) })

	if err := a.camera.Open(); err != nil {
		a.release()
		return fmt.Errorf("open camera: %w", err)
	}
	a.startSession()
	defer a.finishSession()
	defer a.release()

	a.log.Info("tracking started", "mode", a.mode, "servo", a.servoStatus)

	maxFailures := a.cfg.Camera.MaxReadFailures
	failures := 0
	for {
		if ctx.Err() != nil {
			a.log.Info("tracking stopped", "reason", ctx.Err())
			return nil
		}
		if a.drainCommands() {
			return nil
		}

		frame, err := a.camera.ReadFrame()
		if err != nil {
			if errors.Is(err, capture.ErrNoMoreFrames) {
				a.log.Info("frame source exhausted")
				return nil
			}
			failures++
			if maxFailures > 0 && failures >= maxFailures {
				return fmt.Errorf("camera failed %d consecutive reads: %w", failures, err)
			}
			a.log.Debug("frame read failed", "error", err, "consecutive", failures)
			time.Sleep(readRetryDelay)
			continue
		}
		failures = 0

		quit := a.step(frame)
		frame.Close()
		if quit {
			return nil
		}
	}
}

// step runs one iteration on frame and reports whether a quit key was hit.
func (a *App) step(frame *gocv.Mat) bool {
	a.tick()

	res := a.tracker.Process(frame)
	a.last = res
	a.session.Frames++

	var dist float64
	var hasDist bool
	if res.Found {
		a.session.FramesFound++
		dist, hasDist = a.estimator.Estimate(res.BBox.Dx())
		if a.controller != nil && a.servoStatus == servo.StatusReady {
			a.controller.Update(res.Error.X, res.Error.Y)
		}
	}

	overlay.Draw(frame, res, overlay.Info{
		Mode:        string(a.mode),
		Servo:       a.servoStatus.String(),
		DistanceCM:  dist,
		HasDistance: hasDist,
		FPS:         a.fps,
	})

	status := a.snapshot(dist, hasDist)
	a.publish(frame, status)

	a.display.Show(frame, a.mask())
	if cmd, ok := commandForKey(a.display.PollKey()); ok {
		return a.apply(cmd)
	}
	return false
}

// tick updates the smoothed frame rate.
func (a *App) tick() {
	now := a.now()
	if !a.lastFrame.IsZero() {
		if dt := now.Sub(a.lastFrame).Seconds(); dt > 0 {
			inst := 1 / dt
			if a.fps == 0 {
				a.fps = inst
			} else {
				a.fps += fpsAlpha * (inst - a.fps)
			}
		}
	}
	a.lastFrame = now
}

func (a *App) mask() *gocv.Mat {
	if m, ok := a.tracker.Detector().(detector.Masker); ok {
		return m.Mask()
	}
	return nil
}

func (a *App) publish(frame *gocv.Mat, status Status) {
	if a.hub == nil {
		return
	}

	if err := a.hub.PublishTelemetry(status); err != nil {
		a.log.Warn("failed to encode telemetry", "error", err)
	}

	if !a.hub.Watching() {
		return
	}
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		a.log.Warn("failed to encode frame", "error", err)
		return
	}
	jpeg := make([]byte, buf.Len())
	copy(jpeg, buf.GetBytes())
	buf.Close()
	a.hub.PublishFrame(jpeg)
}

// release closes the detector, stops the actuators, closes the camera and
// the display, in that order.
func (a *App) release() {
	if err := a.tracker.Close(); err != nil {
		a.log.Warn("failed to close detector", "error", err)
	}
	if a.controller != nil {
		if err := a.controller.Close(); err != nil {
			a.log.Warn("failed to stop servos", "error", err)
		}
	}
	if err := a.camera.Close(); err != nil {
		a.log.Warn("failed to close camera", "error", err)
	}
	if err := a.display.Close(); err != nil {
		a.log.Warn("failed to close display", "error", err)
	}
	if a.hub != nil {
		a.hub.Close()
	}
}

func (a *App) startSession() {
	if a.store == nil {
		return
	}
	sess, err := a.store.Sessions().Start(string(a.mode))
	if err != nil {
		a.log.Warn("failed to start session", "error", err)
		return
	}
	a.session = *sess
}

func (a *App) finishSession() {
	a.log.Info("session summary",
		"frames", a.session.Frames,
		"frames_found", a.session.FramesFound,
		"mode_switches", a.session.ModeSwitches,
		"calibrations", a.session.Calibrations,
	)
	if a.store == nil || a.session.ID == "" {
		return
	}
	if err := a.store.Sessions().Finish(&a.session); err != nil {
		a.log.Warn("failed to save session", "error", err)
	}
}
