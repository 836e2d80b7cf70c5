package detector

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu        sync.Mutex
	name      string
	candidate *Candidate
	queue     []*Candidate
	err       error
	calls     int
	closed    bool
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{name: "mock"}
}

// SetName sets the value Name reports.
func (m *MockDetector) SetName(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.name = name
}

// SetCandidate sets the candidate returned by every Detect call.
func (m *MockDetector) SetCandidate(c *Candidate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.candidate = c
}

// Queue sets candidates returned one per call ahead of the fixed candidate.
func (m *MockDetector) Queue(cs ...*Candidate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, cs...)
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Detect returns the next queued candidate, the fixed candidate, or the error.
func (m *MockDetector) Detect(frame *gocv.Mat) (*Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if len(m.queue) > 0 {
		c := m.queue[0]
		m.queue = m.queue[1:]
		return c, nil
	}
	return m.candidate, nil
}

// Name returns the configured name.
func (m *MockDetector) Name() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.name
}

// Calls returns how many times Detect ran.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Closed reports whether Close was called.
func (m *MockDetector) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Close marks the detector closed.
func (m *MockDetector) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// BoxCandidate builds a candidate for the rectangle (x, y, w, h).
func BoxCandidate(x, y, w, h int) *Candidate {
	return &Candidate{
		Rect:       image.Rect(x, y, x+w, y+h),
		Area:       w * h,
		Label:      "mock",
		Confidence: 1,
	}
}
