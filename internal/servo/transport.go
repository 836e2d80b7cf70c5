// Package servo drives a two-axis pan-tilt mount: a pulse-width Driver over a
// pluggable Transport, and a proportional Controller that turns pixel error
// into bounded position steps.
package servo

import (
	"errors"
	"fmt"
	"os"

	"go.bug.st/serial"

	"github.com/ayusman/servotrack/internal/config"
)

// ErrUnavailable wraps any failure to reach the actuator hardware.
var ErrUnavailable = errors.New("actuation unavailable")

// Transport writes servo pulse widths to hardware. A width of 0 turns the
// channel's pulses off.
type Transport interface {
	SetPulseWidth(channel, us int) error
	Close() error
}

// Open connects to the transport named in cfg. Hardware failures are
// returned wrapped in ErrUnavailable.
func Open(cfg config.ServoConfig) (Transport, error) {
	switch cfg.Transport {
	case config.TransportMaestro:
		return OpenMaestro(cfg.Port, cfg.BaudRate)
	case config.TransportPiBlaster:
		return OpenPiBlaster(cfg.Device)
	case config.TransportMock:
		return NewMockTransport(), nil
	}
	return nil, fmt.Errorf("unknown servo transport %q", cfg.Transport)
}

// OpenMaestro opens a Pololu Maestro's command port.
func OpenMaestro(port string, baud int) (*Maestro, error) {
	if baud <= 0 {
		baud = 9600
	}
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	p, err := serial.Open(port, mode)
	if err != nil {
		return nil, fmt.Errorf("%w: open maestro %s: %w", ErrUnavailable, port, err)
	}
	return NewMaestro(p), nil
}

// OpenPiBlaster opens the pi-blaster FIFO for writing.
func OpenPiBlaster(device string) (*PiBlaster, error) {
	if device == "" {
		device = DefaultPiBlasterDevice
	}
	f, err := os.OpenFile(device, os.O_WRONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: open pi-blaster %s: %w", ErrUnavailable, device, err)
	}
	return NewPiBlaster(f), nil
}
