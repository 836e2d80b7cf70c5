package servo

import "sync"

// Write is one pulse width command seen by MockTransport.
type Write struct {
	Channel int
	US      int
}

// MockTransport records commands instead of moving hardware.
type MockTransport struct {
	mu     sync.Mutex
	writes []Write
	err    error
	closes int
}

// NewMockTransport creates an empty MockTransport.
func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

// SetPulseWidth records the command, or returns the configured error.
func (m *MockTransport) SetPulseWidth(channel, us int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.writes = append(m.writes, Write{Channel: channel, US: us})
	return nil
}

// SetError makes every following SetPulseWidth fail with err.
func (m *MockTransport) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Writes returns a copy of the recorded commands.
func (m *MockTransport) Writes() []Write {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Write(nil), m.writes...)
}

// Last returns the most recent width sent to channel.
func (m *MockTransport) Last(channel int) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.writes) - 1; i >= 0; i-- {
		if m.writes[i].Channel == channel {
			return m.writes[i].US, true
		}
	}
	return 0, false
}

// Reset forgets recorded commands.
func (m *MockTransport) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes = nil
}

// Close counts the call.
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closes++
	return nil
}

// Closes reports how many times Close was called.
func (m *MockTransport) Closes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closes
}
