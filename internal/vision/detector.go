// Package vision finds blue and yellow track cones in a BGR camera frame.
package vision

import (
	"errors"
	"image"

	"gocv.io/x/gocv"

	"github.com/ayusman/conesteer/internal/marker"
)

// ErrEmptyFrame is returned when Detect is given a nil or empty Mat.
var ErrEmptyFrame = errors.New("frame is empty")

// Detection is the result of looking for both cone colours in one frame.
type Detection struct {
	Blue   marker.Observation
	Yellow marker.Observation
	// Region is the band of the frame that was searched.
	Region image.Rectangle
	// Width is the full frame width.
	Width int
}

// Detector defines the interface for cone detection implementations.
type Detector interface {
	// Detect analyzes a BGR frame and returns the located cones. Bounding
	// boxes of every accepted cone are drawn onto frame.
	Detect(frame *gocv.Mat) (Detection, error)

	// Close releases any resources held by the detector.
	Close() error
}

// ConeDetector is the OpenCV implementation of Detector.
type ConeDetector struct {
	cfg     Config
	blue    *Segmenter
	yellow  *Segmenter
	locator marker.Locator
}

// NewConeDetector creates a ConeDetector. cfg is assumed to be valid.
func NewConeDetector(cfg Config) *ConeDetector {
	return &ConeDetector{
		cfg:     cfg,
		blue:    NewSegmenter(cfg.Blue, cfg),
		yellow:  NewSegmenter(cfg.Yellow, cfg),
		locator: marker.NewLocator(cfg.MinArea, cfg.TieBreak),
	}
}

// Config returns the detector configuration.
func (d *ConeDetector) Config() Config {
	return d.cfg
}

// Detect crops the frame to the configured region, segments both colours
// and locates one cone per colour. Coordinates in the result are in full
// frame space.
func (d *ConeDetector) Detect(frame *gocv.Mat) (Detection, error) {
	if frame == nil || frame.Empty() {
		return Detection{}, ErrEmptyFrame
	}

	width := frame.Cols()
	region := d.cfg.SelectRegion(frame.Rows(), width)
	det := Detection{Region: region, Width: width}
	if region.Empty() {
		return det, nil
	}

	roi := frame.Region(region)
	hsv := ToHSV(roi)
	roi.Close()
	defer hsv.Close()

	det.Blue = d.locate(d.blue, hsv, region.Min.Y, width)
	det.Yellow = d.locate(d.yellow, hsv, region.Min.Y, width)

	DrawBoxes(frame, det.Blue.Boxes, d.cfg.BlueColor, d.cfg.BoxThickness)
	DrawBoxes(frame, det.Yellow.Boxes, d.cfg.YellowColor, d.cfg.BoxThickness)

	return det, nil
}

func (d *ConeDetector) locate(s *Segmenter, hsv gocv.Mat, yOffset, width int) marker.Observation {
	mask := s.Mask(hsv)
	defer mask.Close()
	return d.locator.Locate(Contours(mask), yOffset, width)
}

// Close releases the structuring elements.
func (d *ConeDetector) Close() error {
	return errors.Join(d.blue.Close(), d.yellow.Close())
}
