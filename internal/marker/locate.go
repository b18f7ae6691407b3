package marker

import "image"

// DefaultMinArea is the box area a contour must exceed to count as a cone.
const DefaultMinArea = 100

// Locator filters contours and picks the representative one.
type Locator struct {
	MinArea  int
	TieBreak TieBreak
}

// NewLocator creates a Locator with the given area threshold and policy.
func NewLocator(minArea int, tieBreak TieBreak) Locator {
	return Locator{MinArea: minArea, TieBreak: tieBreak}
}

type candidate struct {
	contour Contour
	box     image.Rectangle
}

// Locate turns the contours of one colour into an Observation.
//
// Contours are in region coordinates; yOffset is the region's top row in
// the full frame. frameWidth is only consulted by TieBreakClosest.
// Boxes with area <= MinArea are discarded. No contours, or none that
// survive, yields an absent observation.
func (l Locator) Locate(contours []Contour, yOffset, frameWidth int) Observation {
	shift := image.Pt(0, yOffset)

	var survivors []candidate
	for _, c := range contours {
		if len(c) == 0 {
			continue
		}
		box := Bounds(c)
		if Area(box) <= l.MinArea {
			continue
		}
		survivors = append(survivors, candidate{contour: c, box: box.Add(shift)})
	}

	if len(survivors) == 0 {
		return Observation{}
	}

	boxes := make([]image.Rectangle, len(survivors))
	for i, s := range survivors {
		boxes[i] = s.box
	}

	pick := survivors[l.pick(survivors, frameWidth)]
	return Observation{
		Present:     true,
		Box:         pick.box,
		Point:       pick.contour[0].Add(shift),
		Orientation: orientation(pick.box),
		Boxes:       boxes,
	}
}

// pick returns the index of the representative candidate. Ties resolve to
// the earliest index.
func (l Locator) pick(survivors []candidate, frameWidth int) int {
	switch l.TieBreak {
	case TieBreakLast:
		return len(survivors) - 1

	case TieBreakLargest:
		best := 0
		for i := 1; i < len(survivors); i++ {
			if Area(survivors[i].box) > Area(survivors[best].box) {
				best = i
			}
		}
		return best

	case TieBreakClosest:
		midX := frameWidth / 2
		best := 0
		bestDist := absInt(Midpoint(survivors[0].box).X - midX)
		for i := 1; i < len(survivors); i++ {
			d := absInt(Midpoint(survivors[i].box).X - midX)
			if d < bestDist {
				best, bestDist = i, d
			}
		}
		return best

	default:
		return 0
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
