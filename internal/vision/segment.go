package vision

import (
	"image"

	"gocv.io/x/gocv"
)

// Segmenter produces cleaned binary masks for one HSV band. It owns its
// structuring element; call Close when done.
type Segmenter struct {
	rng       HSVRange
	kernel    gocv.Mat
	blurSize  image.Point
	blurSigma float64
	lower     gocv.Scalar
	upper     gocv.Scalar
}

// NewSegmenter creates a Segmenter for rng using the cleanup parameters of cfg.
func NewSegmenter(rng HSVRange, cfg Config) *Segmenter {
	return &Segmenter{
		rng:       rng,
		kernel:    gocv.GetStructuringElement(gocv.MorphEllipse, image.Pt(cfg.OpenKernel, cfg.OpenKernel)),
		blurSize:  image.Pt(cfg.BlurKernel, cfg.BlurKernel),
		blurSigma: cfg.BlurSigma,
		lower:     gocv.NewScalar(rng.Lower.H, rng.Lower.S, rng.Lower.V, 0),
		upper:     gocv.NewScalar(rng.Upper.H, rng.Upper.S, rng.Upper.V, 0),
	}
}

// Mask thresholds an HSV image, applies morphological opening and then
// Gaussian blur. The caller owns the returned Mat.
func (s *Segmenter) Mask(hsv gocv.Mat) gocv.Mat {
	mask := gocv.NewMat()
	gocv.InRangeWithScalar(hsv, s.lower, s.upper, &mask)
	gocv.MorphologyEx(mask, &mask, gocv.MorphOpen, s.kernel)

	blurred := gocv.NewMat()
	gocv.GaussianBlur(mask, &blurred, s.blurSize, s.blurSigma, s.blurSigma, gocv.BorderDefault)
	mask.Close()
	return blurred
}

// Close releases the structuring element.
func (s *Segmenter) Close() error {
	return s.kernel.Close()
}

// ToHSV converts a BGR image to OpenCV HSV. The caller owns the result.
func ToHSV(bgr gocv.Mat) gocv.Mat {
	hsv := gocv.NewMat()
	gocv.CvtColor(bgr, &hsv, gocv.ColorBGRToHSV)
	return hsv
}
