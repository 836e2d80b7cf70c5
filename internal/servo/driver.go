package servo

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/ayusman/servotrack/internal/config"
)

// Axis identifies one joint of the mount.
type Axis int

const (
	Pan Axis = iota
	Tilt
)

func (a Axis) String() string {
	switch a {
	case Pan:
		return "pan"
	case Tilt:
		return "tilt"
	}
	return fmt.Sprintf("axis(%d)", int(a))
}

type axisState struct {
	channel int
	min     int
	max     int
	center  int
	pos     int
}

// Driver holds the commanded pulse width of each axis and keeps it inside
// the axis limits no matter what it is asked for.
type Driver struct {
	mu        sync.Mutex
	transport Transport
	axes      [2]axisState
	stopped   bool
	stopErr   error
	log       *slog.Logger
}

// NewDriver creates a Driver and moves both axes to their center.
func NewDriver(t Transport, pan, tilt config.AxisConfig, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Driver{
		transport: t,
		axes: [2]axisState{
			{channel: pan.Channel, min: pan.MinUS, max: pan.MaxUS, center: pan.CenterUS, pos: pan.CenterUS},
			{channel: tilt.Channel, min: tilt.MinUS, max: tilt.MaxUS, center: tilt.CenterUS, pos: tilt.CenterUS},
		},
		log: logger.With("component", "servo"),
	}
	if err := d.Center(); err != nil {
		d.log.Warn("centering failed", "error", err)
	}
	return d
}

// SetPosition clamps us into the axis range and sends it. NaN is ignored;
// infinities land on the nearest limit.
func (d *Driver) SetPosition(axis Axis, us float64) error {
	if axis != Pan && axis != Tilt {
		return fmt.Errorf("unknown axis %d", int(axis))
	}
	if math.IsNaN(us) {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return nil
	}

	a := &d.axes[axis]
	a.pos = clampUS(us, a.min, a.max)

	if err := d.transport.SetPulseWidth(a.channel, a.pos); err != nil {
		return fmt.Errorf("set %s to %dus: %w", axis, a.pos, err)
	}
	return nil
}

// Position returns the last commanded pulse width of axis.
func (d *Driver) Position(axis Axis) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.axes[axis].pos
}

// Limits returns the allowed pulse width range of axis.
func (d *Driver) Limits(axis Axis) (min, max int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.axes[axis].min, d.axes[axis].max
}

// Center moves both axes to their configured center.
func (d *Driver) Center() error {
	var errs []error
	for _, axis := range []Axis{Pan, Tilt} {
		d.mu.Lock()
		c := d.axes[axis].center
		d.mu.Unlock()
		if err := d.SetPosition(axis, float64(c)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Stop turns off pulses on both channels and closes the transport.
// Later calls return the first call's result and do nothing else.
func (d *Driver) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return d.stopErr
	}
	d.stopped = true

	var first error
	for _, a := range d.axes {
		if err := d.transport.SetPulseWidth(a.channel, 0); err != nil && first == nil {
			first = fmt.Errorf("release channel %d: %w", a.channel, err)
		}
	}
	if err := d.transport.Close(); err != nil && first == nil {
		first = fmt.Errorf("close transport: %w", err)
	}
	d.stopErr = first
	d.log.Info("servos stopped")
	return first
}

// Stopped reports whether Stop has been called.
func (d *Driver) Stopped() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stopped
}

func clampUS(us float64, min, max int) int {
	if us <= float64(min) {
		return min
	}
	if us >= float64(max) {
		return max
	}
	return int(math.Round(us))
}
