// Package marker turns traced cone contours into marker observations.
//
// Everything here is plain geometry on image.Point slices so it can be
// exercised without OpenCV.
package marker

import (
	"fmt"
	"image"
	"math"
	"strings"
)

// Contour is the ordered outer boundary of one connected mask region.
type Contour []image.Point

// TieBreak selects which surviving contour represents a colour when more
// than one passes the area filter.
type TieBreak int

const (
	// TieBreakFirst keeps the first surviving contour in extraction order.
	TieBreakFirst TieBreak = iota
	// TieBreakLast keeps the last surviving contour in extraction order.
	TieBreakLast
	// TieBreakLargest keeps the contour with the largest bounding box.
	TieBreakLargest
	// TieBreakClosest keeps the contour whose box centre is nearest the
	// frame's horizontal centre.
	TieBreakClosest
)

func (t TieBreak) String() string {
	switch t {
	case TieBreakFirst:
		return "first"
	case TieBreakLast:
		return "last"
	case TieBreakLargest:
		return "largest"
	case TieBreakClosest:
		return "closest"
	default:
		return fmt.Sprintf("TieBreak(%d)", int(t))
	}
}

// ParseTieBreak converts a policy name into a TieBreak.
func ParseTieBreak(value string) (TieBreak, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "first":
		return TieBreakFirst, nil
	case "last":
		return TieBreakLast, nil
	case "largest", "largest-area", "largest_area":
		return TieBreakLargest, nil
	case "closest", "closest-to-center", "closest_to_center":
		return TieBreakClosest, nil
	default:
		return TieBreakFirst, fmt.Errorf("unknown tie-break policy %q", value)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t TieBreak) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *TieBreak) UnmarshalText(b []byte) error {
	parsed, err := ParseTieBreak(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Observation is what one colour contributes to a frame.
// Coordinates are in full-frame pixels.
type Observation struct {
	Present bool
	// Box is the bounding box of the representative contour.
	Box image.Rectangle
	// Point is the first boundary point of the representative contour.
	Point image.Point
	// Orientation is atan2(midY, midX) of Box's centre. Overlay only.
	Orientation float64
	// Boxes holds every box that passed the area filter, in extraction order.
	Boxes []image.Rectangle
}

// X returns the representative horizontal position.
func (o Observation) X() int {
	return o.Point.X
}

// Bounds returns the inclusive bounding box of c, matching OpenCV's
// boundingRect: a single point yields a 1x1 box.
func Bounds(c Contour) image.Rectangle {
	if len(c) == 0 {
		return image.Rectangle{}
	}
	minX, minY := c[0].X, c[0].Y
	maxX, maxY := minX, minY
	for _, p := range c[1:] {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	return image.Rect(minX, minY, maxX+1, maxY+1)
}

// Area returns width*height of r.
func Area(r image.Rectangle) int {
	return r.Dx() * r.Dy()
}

// Midpoint returns the integer centre of r.
func Midpoint(r image.Rectangle) image.Point {
	return image.Pt(r.Min.X+r.Dx()/2, r.Min.Y+r.Dy()/2)
}

// orientation mirrors the diagnostic angle drawn next to each box.
func orientation(r image.Rectangle) float64 {
	mid := Midpoint(r)
	return math.Atan2(float64(mid.Y), float64(mid.X))
}
