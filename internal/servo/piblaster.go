package servo

import (
	"fmt"
	"io"
	"sync"
)

// DefaultPiBlasterDevice is where the pi-blaster daemon reads commands.
const DefaultPiBlasterDevice = "/dev/pi-blaster"

// pwmFreq is the servo frame rate in Hz (20ms period).
const pwmFreq = 50

// PiBlaster drives GPIO pins through the pi-blaster daemon, which takes
// "pin=duty" lines with duty as a 0..1 fraction of the PWM period.
type PiBlaster struct {
	mu sync.Mutex
	w  io.WriteCloser
}

// NewPiBlaster wraps an open pi-blaster FIFO.
func NewPiBlaster(w io.WriteCloser) *PiBlaster {
	return &PiBlaster{w: w}
}

// SetPulseWidth writes the duty cycle for us on GPIO pin channel.
func (p *PiBlaster) SetPulseWidth(channel, us int) error {
	if us < 0 {
		us = 0
	}
	duty := float64(us) * pwmFreq / 1e6

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := fmt.Fprintf(p.w, "%d=%.6f\n", channel, duty); err != nil {
		return fmt.Errorf("pi-blaster write pin %d: %w", channel, err)
	}
	return nil
}

// Close closes the FIFO.
func (p *PiBlaster) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.w.Close()
}
