// Package testutil draws synthetic track frames for tests.
package testutil

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Cone colours as drawn by gocv (RGBA fields map onto BGR channels).
// Blue is hue 120, yellow is hue 24 on OpenCV's 0-179 scale.
var (
	Blue   = color.RGBA{B: 255, A: 255}
	Yellow = color.RGBA{R: 255, G: 200, A: 255}
	Gray   = color.RGBA{R: 128, G: 128, B: 128, A: 255}
)

// Cone is a filled rectangle of one colour.
type Cone struct {
	Rect  image.Rectangle
	Color color.RGBA
}

// Default frame geometry used across tests.
const (
	Width      = 640
	Height     = 480
	ConeWidth  = 40
	ConeHeight = 80
	// ConeTop places cones inside the default search band (rows 192-431).
	ConeTop = 260
)

// ConeFrame returns a black BGR frame with every cone drawn filled.
// The caller owns the returned Mat.
func ConeFrame(width, height int, cones ...Cone) gocv.Mat {
	mat := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), height, width, gocv.MatTypeCV8UC3)
	for _, c := range cones {
		gocv.Rectangle(&mat, c.Rect, c.Color, -1)
	}
	return mat
}

// BlueCone returns a default-sized blue cone with its top-left corner at x.
func BlueCone(x int) Cone {
	return Cone{Rect: image.Rect(x, ConeTop, x+ConeWidth, ConeTop+ConeHeight), Color: Blue}
}

// YellowCone returns a default-sized yellow cone with its top-left corner at x.
func YellowCone(x int) Cone {
	return Cone{Rect: image.Rect(x, ConeTop, x+ConeWidth, ConeTop+ConeHeight), Color: Yellow}
}

// MirrorPair places a yellow cone with its left edge at yellowX and a blue
// cone whose left edge is mirrored about the vertical centre line, so both
// leading edges are equally far from the centre.
func MirrorPair(width, yellowX int) []Cone {
	return []Cone{YellowCone(yellowX), BlueCone(width - yellowX)}
}

// Sequence returns n copies of a frame containing cones. The caller closes
// every Mat.
func Sequence(n int, cones ...Cone) []*gocv.Mat {
	frames := make([]*gocv.Mat, 0, n)
	for i := 0; i < n; i++ {
		m := ConeFrame(Width, Height, cones...)
		frames = append(frames, &m)
	}
	return frames
}

// CloseAll closes every frame.
func CloseAll(frames []*gocv.Mat) {
	for _, f := range frames {
		f.Close()
	}
}

// EncodeJPEG renders a frame with cones as JPEG bytes.
func EncodeJPEG(width, height int, cones ...Cone) ([]byte, error) {
	mat := ConeFrame(width, height, cones...)
	defer mat.Close()

	buf, err := gocv.IMEncode(".jpg", mat)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	out := make([]byte, len(buf.GetBytes()))
	copy(out, buf.GetBytes())
	return out, nil
}
