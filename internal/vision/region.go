package vision

import "image"

// SelectRegion returns the horizontal band of a frame where cones appear.
// The band starts at ROITop*height and spans ROIHeight*height rows, both
// truncated toward zero, and is clipped to the frame.
func (c Config) SelectRegion(height, width int) image.Rectangle {
	top := int(c.ROITop * float64(height))
	rows := int(c.ROIHeight * float64(height))
	return image.Rect(0, top, width, top+rows).Intersect(image.Rect(0, 0, width, height))
}
