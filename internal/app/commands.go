package app

import (
	"context"
	"fmt"

	"github.com/ayusman/servotrack/internal/config"
	"github.com/ayusman/servotrack/internal/store"
	"github.com/ayusman/servotrack/internal/tracking"
)

type commandKind int

const (
	cmdSetMode commandKind = iota
	cmdCalibrate
	cmdQuit
)

// command is an operator request applied between frames.
type command struct {
	kind  commandKind
	mode  config.Mode
	reply chan reply
}

type reply struct {
	focal float64
	err   error
}

// commandForKey maps a key code from the display to a command.
func commandForKey(key int) (command, bool) {
	switch key {
	case '1':
		return command{kind: cmdSetMode, mode: config.ModeColour}, true
	case '2':
		return command{kind: cmdSetMode, mode: config.ModePerson}, true
	case '3':
		return command{kind: cmdSetMode, mode: config.ModeFace}, true
	case '0':
		return command{kind: cmdSetMode, mode: config.ModeIdle}, true
	case 'c', 'C':
		return command{kind: cmdCalibrate}, true
	case 'q', 'Q', 27:
		return command{kind: cmdQuit}, true
	}
	return command{}, false
}

// RequestMode queues a mode switch and waits for the loop to apply it.
func (a *App) RequestMode(ctx context.Context, mode config.Mode) error {
	mode, err := config.ParseMode(string(mode))
	if err != nil {
		return err
	}
	r, err := a.submit(ctx, command{kind: cmdSetMode, mode: mode})
	if err != nil {
		return err
	}
	return r.err
}

// RequestCalibration queues a calibration against the latest target and
// returns the new focal length. It fails with ErrNoTarget when nothing is
// being tracked.
func (a *App) RequestCalibration(ctx context.Context) (float64, error) {
	r, err := a.submit(ctx, command{kind: cmdCalibrate})
	if err != nil {
		return 0, err
	}
	return r.focal, r.err
}

// Quit asks the loop to stop after the current frame. It does not block.
func (a *App) Quit() {
	select {
	case a.commands <- command{kind: cmdQuit}:
	case <-a.done:
	default:
		a.log.Warn("command queue full, dropping quit")
	}
}

func (a *App) submit(ctx context.Context, cmd command) (reply, error) {
	cmd.reply = make(chan reply, 1)

	select {
	case a.commands <- cmd:
	case <-a.done:
		return reply{}, ErrNotRunning
	case <-ctx.Done():
		return reply{}, ctx.Err()
	}

	select {
	case r := <-cmd.reply:
		return r, nil
	case <-a.done:
		return reply{}, ErrNotRunning
	case <-ctx.Done():
		return reply{}, ctx.Err()
	}
}

// drainCommands applies every queued command. It reports whether a quit was
// requested.
func (a *App) drainCommands() bool {
	for {
		select {
		case cmd := <-a.commands:
			if a.apply(cmd) {
				return true
			}
		default:
			return false
		}
	}
}

// apply runs one command on the loop goroutine.
func (a *App) apply(cmd command) (quit bool) {
	var r reply
	switch cmd.kind {
	case cmdQuit:
		a.log.Info("quit requested")
		quit = true
	case cmdSetMode:
		r.err = a.setMode(cmd.mode)
	case cmdCalibrate:
		r.focal, r.err = a.calibrate()
	}

	if cmd.reply != nil {
		cmd.reply <- r
	}
	return quit
}

func (a *App) setMode(mode config.Mode) error {
	if mode == a.mode {
		return nil
	}

	det, err := a.newDetector(mode, a.cfg)
	if err != nil {
		a.log.Warn("mode switch failed", "mode", mode, "error", err)
		return fmt.Errorf("create %s detector: %w", mode, err)
	}

	if prev := a.tracker.SetDetector(det); prev != nil {
		if err := prev.Close(); err != nil {
			a.log.Warn("failed to close detector", "detector", prev.Name(), "error", err)
		}
	}
	if a.controller != nil {
		a.controller.Reset()
	}

	a.log.Info("mode switched", "from", a.mode, "to", mode)
	a.mode = mode
	a.last = tracking.Result{}
	a.session.Mode = string(mode)
	a.session.ModeSwitches++

	if a.store != nil {
		if err := a.store.Settings().Set(store.KeyMode, string(mode)); err != nil {
			a.log.Warn("failed to persist mode", "error", err)
		}
	}
	return nil
}

func (a *App) calibrate() (float64, error) {
	if !a.last.Found {
		a.log.Warn("no target detected; can't calibrate")
		return 0, ErrNoTarget
	}

	width := a.last.BBox.Dx()
	focal, err := a.estimator.Calibrate(width)
	if err != nil {
		a.log.Warn("calibration rejected", "width_px", width, "error", err)
		return 0, err
	}
	a.session.Calibrations++
	a.log.Info("calibrated", "focal_length_px", fmt.Sprintf("%.2f", focal), "width_px", width)

	if a.store != nil {
		c := &store.Calibration{
			FocalLengthPx:   focal,
			WidthPx:         width,
			KnownWidthCM:    a.cfg.Distance.KnownWidthCM,
			CalibDistanceCM: a.cfg.Distance.CalibDistanceCM,
			Mode:            string(a.mode),
		}
		if err := a.store.Calibrations().Create(c); err != nil {
			a.log.Warn("failed to persist calibration", "error", err)
		}
	}
	return focal, nil
}
