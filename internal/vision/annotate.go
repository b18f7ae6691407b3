package vision

import (
	"fmt"
	"image"
	"image/color"
	"time"

	"gocv.io/x/gocv"
)

var (
	steeringTextColor = color.RGBA{G: 255, A: 255}
	labelTextColor    = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// LabelTimeLayout renders local time as YYYY-MM-DD HH:MM:SS.
const LabelTimeLayout = "2006-01-02 15:04:05"

// DrawBoxes outlines each rectangle on frame.
func DrawBoxes(frame *gocv.Mat, boxes []image.Rectangle, c color.RGBA, thickness int) {
	for _, b := range boxes {
		gocv.Rectangle(frame, b, c, thickness)
	}
}

// SteeringText is the overlay drawn when both cones are visible.
func SteeringText(blueX, yellowX int, angle float64) string {
	return fmt.Sprintf("BlueX: %d YellowX: %d GS%f", blueX, yellowX, angle)
}

// AnnotateSteering writes SteeringText near the top of the frame.
func AnnotateSteering(frame *gocv.Mat, blueX, yellowX int, angle float64) {
	gocv.PutTextWithParams(frame, SteeringText(blueX, yellowX, angle), image.Pt(150, 80),
		gocv.FontHersheySimplex, 0.5, steeringTextColor, 1, gocv.LineAA, false)
}

// LabelText is the bottom status line.
func LabelText(now time.Time, timestampMicros int64, label string) string {
	return fmt.Sprintf("Now %s; ts: %d; %s", now.Format(LabelTimeLayout), timestampMicros, label)
}

// AnnotateLabel writes LabelText in the bottom-left corner.
func AnnotateLabel(frame *gocv.Mat, now time.Time, timestampMicros int64, label string) {
	gocv.PutTextWithParams(frame, LabelText(now, timestampMicros, label), image.Pt(10, frame.Rows()-10),
		gocv.FontHersheySimplex, 0.5, labelTextColor, 1, gocv.LineAA, false)
}
