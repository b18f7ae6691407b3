package vision

import (
	"gocv.io/x/gocv"

	"github.com/ayusman/conesteer/internal/marker"
)

// Contours returns the external boundaries of the non-zero regions of mask,
// compressed to their corner points, in the order OpenCV reports them.
func Contours(mask gocv.Mat) []marker.Contour {
	found := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer found.Close()

	out := make([]marker.Contour, 0, found.Size())
	for i := 0; i < found.Size(); i++ {
		out = append(out, marker.Contour(found.At(i).ToPoints()))
	}
	return out
}
