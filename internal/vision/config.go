package vision

import (
	"errors"
	"fmt"
	"image/color"

	"github.com/ayusman/conesteer/internal/marker"
)

// HSV is a colour in OpenCV's 8-bit HSV scale: hue 0-179, saturation and
// value 0-255.
type HSV struct {
	H float64 `json:"h"`
	S float64 `json:"s"`
	V float64 `json:"v"`
}

// HSVRange is an inclusive band in HSV space.
type HSVRange struct {
	Lower HSV `json:"lower"`
	Upper HSV `json:"upper"`
}

func (r HSVRange) validate(name string) error {
	var errs []error
	check := func(channel string, lo, hi, max float64) {
		if lo < 0 || hi > max {
			errs = append(errs, fmt.Errorf("vision.%s.%s: range [%g,%g] outside 0..%g", name, channel, lo, hi, max))
		}
		if lo > hi {
			errs = append(errs, fmt.Errorf("vision.%s.%s: lower %g above upper %g", name, channel, lo, hi))
		}
	}
	check("h", r.Lower.H, r.Upper.H, 179)
	check("s", r.Lower.S, r.Upper.S, 255)
	check("v", r.Lower.V, r.Upper.V, 255)
	return errors.Join(errs...)
}

// Config holds every constant of the per-frame detection.
type Config struct {
	// ROITop is the first row of the region as a fraction of frame height.
	ROITop float64 `json:"roi_top"`
	// ROIHeight is the region height as a fraction of frame height.
	ROIHeight float64 `json:"roi_height"`

	Blue   HSVRange `json:"blue"`
	Yellow HSVRange `json:"yellow"`

	// OpenKernel is the size of the elliptical opening element.
	OpenKernel int     `json:"open_kernel"`
	BlurKernel int     `json:"blur_kernel"`
	BlurSigma  float64 `json:"blur_sigma"`

	MinArea  int             `json:"min_area"`
	TieBreak marker.TieBreak `json:"tie_break"`

	BoxThickness int        `json:"box_thickness"`
	BlueColor    color.RGBA `json:"-"`
	YellowColor  color.RGBA `json:"-"`
}

// DefaultConfig returns the thresholds tuned for the indoor track.
func DefaultConfig() Config {
	return Config{
		ROITop:    0.4,
		ROIHeight: 0.5,
		Blue: HSVRange{
			Lower: HSV{H: 99, S: 118, V: 41},
			Upper: HSV{H: 139, S: 255, V: 255},
		},
		Yellow: HSVRange{
			Lower: HSV{H: 19, S: 101, V: 99},
			Upper: HSV{H: 29, S: 255, V: 255},
		},
		OpenKernel:   5,
		BlurKernel:   3,
		BlurSigma:    1.0,
		MinArea:      marker.DefaultMinArea,
		TieBreak:     marker.TieBreakFirst,
		BoxThickness: 3,
		BlueColor:    color.RGBA{B: 255, A: 255},
		YellowColor:  color.RGBA{R: 255, G: 255, A: 255},
	}
}

// Validate reports every invalid field.
func (c Config) Validate() error {
	var errs []error
	if c.ROITop < 0 || c.ROITop > 1 {
		errs = append(errs, fmt.Errorf("vision.roi_top must be in [0,1], got %g", c.ROITop))
	}
	if c.ROIHeight < 0 || c.ROIHeight > 1 {
		errs = append(errs, fmt.Errorf("vision.roi_height must be in [0,1], got %g", c.ROIHeight))
	}
	if c.ROITop+c.ROIHeight > 1 {
		errs = append(errs, fmt.Errorf("vision.roi_top + roi_height must not exceed 1, got %g", c.ROITop+c.ROIHeight))
	}
	errs = append(errs, c.Blue.validate("blue"), c.Yellow.validate("yellow"))
	if c.OpenKernel <= 0 || c.OpenKernel%2 == 0 {
		errs = append(errs, fmt.Errorf("vision.open_kernel must be positive and odd, got %d", c.OpenKernel))
	}
	if c.BlurKernel <= 0 || c.BlurKernel%2 == 0 {
		errs = append(errs, fmt.Errorf("vision.blur_kernel must be positive and odd, got %d", c.BlurKernel))
	}
	if c.BlurSigma < 0 {
		errs = append(errs, fmt.Errorf("vision.blur_sigma must be >= 0, got %g", c.BlurSigma))
	}
	if c.MinArea < 0 {
		errs = append(errs, fmt.Errorf("vision.min_area must be >= 0, got %d", c.MinArea))
	}
	if c.BoxThickness <= 0 {
		errs = append(errs, fmt.Errorf("vision.box_thickness must be > 0, got %d", c.BoxThickness))
	}
	return errors.Join(errs...)
}
