package capture

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// FreezeDetector reports when a source keeps delivering the same picture,
// which happens when a camera driver or shared buffer stalls. It uses frame
// differencing with Gaussian blur for noise reduction.
type FreezeDetector struct {
	threshold   float64
	limit       int
	still       int
	prevGray    gocv.Mat
	initialized bool
	closed      bool
	mu          sync.Mutex
}

// Frame differencing constants
const (
	// GaussianBlurSize is the kernel size for Gaussian blur (21x21)
	GaussianBlurSize = 21
	// DiffThreshold is the binary threshold for difference detection
	DiffThreshold = 25
	// DefaultFreezeFrames is the number of still frames before a source
	// counts as frozen.
	DefaultFreezeFrames = 30
)

// NewFreezeDetector creates a FreezeDetector. threshold is the percentage
// of pixels that must change for a frame to count as live; limit is the
// number of consecutive still frames that make the source frozen.
func NewFreezeDetector(threshold float64, limit int) *FreezeDetector {
	if limit <= 0 {
		limit = DefaultFreezeFrames
	}
	return &FreezeDetector{
		threshold: threshold,
		limit:     limit,
		prevGray:  gocv.NewMat(),
	}
}

// Detect compares frame with the previous one and returns whether the
// source is frozen together with the percentage of pixels that changed.
//
// Algorithm:
// 1. Convert frame to grayscale
// 2. Apply Gaussian blur (21x21) to reduce noise
// 3. If first frame, store as baseline and return false
// 4. Calculate absolute difference with previous frame
// 5. Threshold the difference (threshold=25)
// 6. Count non-zero pixels / total pixels = changePercent
// 7. changePercent <= threshold extends the still run, anything else ends it
// 8. Frozen once the still run reaches the limit
func (m *FreezeDetector) Detect(frame *gocv.Mat) (bool, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed || frame == nil || frame.Empty() {
		return false, 0
	}

	gray := gocv.NewMat()
	defer gray.Close()

	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: GaussianBlurSize, Y: GaussianBlurSize}, 0, 0, gocv.BorderDefault)

	if !m.initialized || m.prevGray.Rows() != blurred.Rows() || m.prevGray.Cols() != blurred.Cols() {
		blurred.CopyTo(&m.prevGray)
		m.initialized = true
		m.still = 0
		return false, 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(blurred, m.prevGray, &diff)

	thresh := gocv.NewMat()
	defer thresh.Close()
	gocv.Threshold(diff, &thresh, DiffThreshold, 255, gocv.ThresholdBinary)

	nonZero := gocv.CountNonZero(thresh)
	totalPixels := thresh.Rows() * thresh.Cols()
	changePercent := float64(nonZero) / float64(totalPixels) * 100.0

	blurred.CopyTo(&m.prevGray)

	if changePercent <= m.threshold {
		m.still++
	} else {
		m.still = 0
	}

	return m.still >= m.limit, changePercent
}

// Still returns the length of the current run of unchanged frames.
func (m *FreezeDetector) Still() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.still
}

// Reset clears the detector state, allowing it to be reused with a new
// baseline frame.
func (m *FreezeDetector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	if !m.prevGray.Empty() {
		m.prevGray.Close()
		m.prevGray = gocv.NewMat()
	}
	m.initialized = false
	m.still = 0
}

// Close releases the baseline frame. The detector must not be used
// afterwards.
func (m *FreezeDetector) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	m.prevGray.Close()
	m.closed = true
	m.initialized = false
	m.still = 0
}
