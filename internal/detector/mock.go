package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It returns fixed hands, or a queued script of results consumed one per call.
type MockDetector struct {
	mu     sync.Mutex
	hands  []HandLandmarks
	err    error
	script []MockResult
	calls  int
}

// MockResult is one scripted Detect outcome.
type MockResult struct {
	Hands []HandLandmarks
	Err   error
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Queue appends scripted results. Queued results take precedence over
// SetHands/SetError until exhausted.
func (m *MockDetector) Queue(results ...MockResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, results...)
}

// Calls returns how many times Detect has been called.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the next scripted result or the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++

	if len(m.script) > 0 {
		next := m.script[0]
		m.script = m.script[1:]
		return next.Hands, next.Err
	}

	if m.err != nil {
		return nil, m.err
	}
	return m.hands, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}
