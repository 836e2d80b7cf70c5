package servo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ayusman/servotrack/internal/config"
)

// Status is the actuation capability decided once at startup.
type Status int

const (
	// StatusDisabled means actuation was turned off in config.
	StatusDisabled Status = iota
	// StatusUnavailable means actuation was wanted but the hardware could
	// not be opened. Tracking keeps running without it.
	StatusUnavailable
	// StatusReady means commands reach the servos.
	StatusReady
)

func (s Status) String() string {
	switch s {
	case StatusDisabled:
		return "disabled"
	case StatusUnavailable:
		return "unavailable"
	case StatusReady:
		return "ready"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// MarshalText renders the status name in JSON.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a status name.
func (s *Status) UnmarshalText(b []byte) error {
	switch string(b) {
	case "disabled":
		*s = StatusDisabled
	case "unavailable":
		*s = StatusUnavailable
	case "ready":
		*s = StatusReady
	default:
		return fmt.Errorf("unknown servo status %q", b)
	}
	return nil
}

// Setup opens the configured transport and builds a Controller. When
// actuation is disabled it returns StatusDisabled and a nil Controller. When
// the hardware cannot be opened it returns StatusUnavailable and an error
// wrapping ErrUnavailable; the caller decides whether that is fatal.
func Setup(cfg config.ServoConfig, logger *slog.Logger) (*Controller, Status, error) {
	if !cfg.Enabled {
		return nil, StatusDisabled, nil
	}

	t, err := Open(cfg)
	if err != nil {
		if !errors.Is(err, ErrUnavailable) {
			err = fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return nil, StatusUnavailable, err
	}

	driver := NewDriver(t, cfg.Pan, cfg.Tilt, logger)
	return NewController(driver, cfg, logger), StatusReady, nil
}

// Sweep drives the mount to each corner of its travel and back to center,
// pausing dwell at each stop. Use it to check for mechanical collisions
// before tracking.
func Sweep(ctx context.Context, d *Driver, dwell time.Duration) error {
	panMin, panMax := d.Limits(Pan)
	tiltMin, tiltMax := d.Limits(Tilt)

	stops := [][2]int{
		{panMin, tiltMin},
		{panMin, tiltMax},
		{panMax, tiltMax},
		{panMax, tiltMin},
		{panMin, tiltMin},
	}

	for _, s := range stops {
		if err := d.SetPosition(Pan, float64(s[0])); err != nil {
			return err
		}
		if err := d.SetPosition(Tilt, float64(s[1])); err != nil {
			return err
		}
		if err := sleepCtx(ctx, dwell); err != nil {
			return err
		}
	}

	if err := d.Center(); err != nil {
		return err
	}
	return sleepCtx(ctx, dwell)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
