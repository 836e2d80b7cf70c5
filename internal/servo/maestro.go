package servo

import (
	"fmt"
	"io"
	"sync"
)

// maestroSetTarget is the compact-protocol "Set Target" command byte.
const maestroSetTarget = 0x84

// Maestro drives a Pololu Maestro servo controller over its USB serial port.
type Maestro struct {
	mu  sync.Mutex
	rw  io.WriteCloser
	buf [4]byte
}

// NewMaestro wraps an already open command port.
func NewMaestro(rw io.WriteCloser) *Maestro {
	return &Maestro{rw: rw}
}

// SetPulseWidth sends a Set Target command. The Maestro counts in quarter
// microseconds; a target of 0 stops the channel's pulses.
func (m *Maestro) SetPulseWidth(channel, us int) error {
	if channel < 0 || channel > 0x7F {
		return fmt.Errorf("maestro channel %d out of range", channel)
	}
	if us < 0 {
		us = 0
	}
	target := us * 4

	m.mu.Lock()
	defer m.mu.Unlock()

	m.buf = [4]byte{
		maestroSetTarget,
		byte(channel),
		byte(target & 0x7F),
		byte((target >> 7) & 0x7F),
	}
	if _, err := m.rw.Write(m.buf[:]); err != nil {
		return fmt.Errorf("maestro write channel %d: %w", channel, err)
	}
	return nil
}

// Close closes the command port.
func (m *Maestro) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rw.Close()
}
