package steering

import "math"

// Estimator applies Config to one frame at a time. It keeps no state of its
// own; callers thread State through successive calls.
type Estimator struct {
	cfg Config
}

// NewEstimator creates an Estimator with the given configuration.
func NewEstimator(cfg Config) *Estimator {
	return &Estimator{cfg: cfg}
}

// Config returns the estimator's configuration.
func (e *Estimator) Config() Config {
	return e.cfg
}

// Step computes the angle for one frame from the previous state and
// returns the next state together with a description of the decision.
// The returned state's Angle equals the decision's Angle.
func (e *Estimator) Step(prev State, in Input) (State, Decision) {
	switch {
	case in.Blue.Present && in.Yellow.Present:
		return e.both(prev, in)
	case in.Blue.Present:
		return e.blueOnly(prev)
	case in.Yellow.Present:
		return e.yellowOnly(prev)
	default:
		return prev, Decision{Case: NeitherPresent, Branch: BranchHold, Angle: prev.Angle, Held: true}
	}
}

func (e *Estimator) both(prev State, in Input) (State, Decision) {
	next := prev
	next.Dropout = 0

	midX := in.Width / 2
	bx, yx := in.Blue.X, in.Yellow.X
	d := Decision{Case: BothPresent}

	switch {
	case bx > midX && yx < midX:
		next.Direction = CounterClockwise
		left := absInt(midX - yx)
		right := absInt(bx - midX)
		next.Angle = e.imbalance(left, right, midX)
		d.Branch = BranchCounterClockwise

	case bx < midX && yx > midX:
		next.Direction = Clockwise
		left := absInt(midX - bx)
		right := absInt(yx - midX)
		next.Angle = e.imbalance(right, left, midX)
		d.Branch = BranchClockwise

	default:
		d.Branch = BranchSameSide
		if e.cfg.SameSidePolicy == SameSideReset {
			next.Angle = 0
		} else {
			d.Held = true
		}
	}

	d.Angle = next.Angle
	return next, d
}

// imbalance is Gain*|a-b|/midX, positive when a is the larger gap and
// negative otherwise. Equal gaps give exactly zero.
func (e *Estimator) imbalance(a, b, midX int) float64 {
	if midX == 0 || a == b {
		return 0
	}
	mag := e.cfg.Gain * math.Abs(float64(a-b)) / float64(midX)
	if a > b {
		return mag
	}
	return -mag
}

func (e *Estimator) blueOnly(prev State) (State, Decision) {
	next := prev
	next.Dropout++
	d := Decision{Case: OnlyBluePresent, Branch: BranchSingleCone}

	if next.Direction == Clockwise {
		if next.Dropout > e.cfg.DropoutThreshold {
			next.Angle = -e.cfg.SustainedDropoutAngle
			d.Branch = BranchSustainedDrop
		} else {
			next.Angle = -e.cfg.SingleConeAngle
		}
	} else {
		next.Angle = e.cfg.SingleConeAngle
	}

	d.Angle = next.Angle
	return next, d
}

func (e *Estimator) yellowOnly(prev State) (State, Decision) {
	next := prev
	d := Decision{Case: OnlyYellowPresent, Branch: BranchSingleCone}

	if e.cfg.DropoutPolicy == DropoutSymmetric {
		next.Dropout++
	}

	if next.Direction == Clockwise {
		next.Angle = -e.cfg.SingleConeAngle
	} else if e.cfg.DropoutPolicy == DropoutSymmetric && next.Dropout > e.cfg.DropoutThreshold {
		next.Angle = e.cfg.SustainedDropoutAngle
		d.Branch = BranchSustainedDrop
	} else {
		next.Angle = e.cfg.SingleConeAngle
	}

	d.Angle = next.Angle
	return next, d
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
