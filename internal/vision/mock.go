package vision

import (
	"image"
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/conesteer/internal/marker"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu      sync.Mutex
	results []Detection
	next    int
	err     error
	calls   int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetDetections sets the sequence returned by Detect. Once exhausted the
// last entry repeats.
func (m *MockDetector) SetDetections(results ...Detection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = results
	m.next = 0
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect has been called.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured detection or error. Width is filled
// from frame when the preset leaves it zero.
func (m *MockDetector) Detect(frame *gocv.Mat) (Detection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return Detection{}, m.err
	}

	var det Detection
	if len(m.results) > 0 {
		det = m.results[m.next]
		if m.next < len(m.results)-1 {
			m.next++
		}
	}
	if det.Width == 0 && frame != nil && !frame.Empty() {
		det.Width = frame.Cols()
	}
	return det, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// ConeAt returns an observation for a single cone whose first boundary
// point is (x, y).
func ConeAt(x, y int) marker.Observation {
	box := image.Rect(x, y, x+40, y+60)
	return marker.Observation{
		Present: true,
		Box:     box,
		Point:   image.Pt(x, y),
		Boxes:   []image.Rectangle{box},
	}
}
