// Package steering converts left/right cone positions into a steering angle.
//
// The estimator is a small state machine: it remembers the last turn
// direction and how many consecutive frames the blue cone has been seen
// alone, so a single visible cone still yields a sensible command.
package steering

import (
	"errors"
	"fmt"
	"strings"
)

// Direction is the remembered turn direction of the track.
type Direction int

const (
	// CounterClockwise is the initial direction: blue cones on the right,
	// yellow on the left.
	CounterClockwise Direction = iota
	// Clockwise has blue cones on the left, yellow on the right.
	Clockwise
)

func (d Direction) String() string {
	switch d {
	case CounterClockwise:
		return "ccw"
	case Clockwise:
		return "cw"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Case identifies which cones were visible in a frame.
type Case int

const (
	NeitherPresent Case = iota
	BothPresent
	OnlyBluePresent
	OnlyYellowPresent
)

func (c Case) String() string {
	switch c {
	case NeitherPresent:
		return "neither"
	case BothPresent:
		return "both"
	case OnlyBluePresent:
		return "blue_only"
	case OnlyYellowPresent:
		return "yellow_only"
	default:
		return fmt.Sprintf("Case(%d)", int(c))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c Case) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// DropoutPolicy controls which single-cone case accumulates the dropout
// counter.
type DropoutPolicy int

const (
	// DropoutBlueOnly counts only blue-alone frames; yellow-alone frames
	// leave the counter untouched.
	DropoutBlueOnly DropoutPolicy = iota
	// DropoutSymmetric also counts yellow-alone frames and escalates the
	// counter-clockwise correction past the threshold.
	DropoutSymmetric
)

func (p DropoutPolicy) String() string {
	switch p {
	case DropoutBlueOnly:
		return "blue_only"
	case DropoutSymmetric:
		return "symmetric"
	default:
		return fmt.Sprintf("DropoutPolicy(%d)", int(p))
	}
}

// ParseDropoutPolicy converts a policy name into a DropoutPolicy.
func ParseDropoutPolicy(value string) (DropoutPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "blue_only", "blue-only":
		return DropoutBlueOnly, nil
	case "symmetric":
		return DropoutSymmetric, nil
	default:
		return DropoutBlueOnly, fmt.Errorf("unknown dropout policy %q", value)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p DropoutPolicy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *DropoutPolicy) UnmarshalText(b []byte) error {
	parsed, err := ParseDropoutPolicy(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// SameSidePolicy decides the angle when both cones are visible but not on
// opposite sides of the centre line.
type SameSidePolicy int

const (
	// SameSideHold keeps the previous angle.
	SameSideHold SameSidePolicy = iota
	// SameSideReset steers straight.
	SameSideReset
)

func (p SameSidePolicy) String() string {
	switch p {
	case SameSideHold:
		return "hold"
	case SameSideReset:
		return "reset"
	default:
		return fmt.Sprintf("SameSidePolicy(%d)", int(p))
	}
}

// ParseSameSidePolicy converts a policy name into a SameSidePolicy.
func ParseSameSidePolicy(value string) (SameSidePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "hold":
		return SameSideHold, nil
	case "reset":
		return SameSideReset, nil
	default:
		return SameSideHold, fmt.Errorf("unknown same-side policy %q", value)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p SameSidePolicy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *SameSidePolicy) UnmarshalText(b []byte) error {
	parsed, err := ParseSameSidePolicy(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Config holds the tunable constants of the estimator.
type Config struct {
	// Gain scales the normalised left/right imbalance when both cones are
	// visible.
	Gain float64 `json:"gain"`

	// DropoutThreshold is the number of consecutive single-cone frames
	// after which the sustained angle is used.
	DropoutThreshold int `json:"dropout_threshold"`

	// SingleConeAngle is the magnitude used while only one cone is visible.
	SingleConeAngle float64 `json:"single_cone_angle"`

	// SustainedDropoutAngle replaces SingleConeAngle once the dropout
	// counter exceeds DropoutThreshold.
	SustainedDropoutAngle float64 `json:"sustained_dropout_angle"`

	DropoutPolicy  DropoutPolicy  `json:"dropout_policy"`
	SameSidePolicy SameSidePolicy `json:"same_side_policy"`
}

// DefaultConfig returns the calibration used on the test track.
func DefaultConfig() Config {
	return Config{
		Gain:                  0.12,
		DropoutThreshold:      30,
		SingleConeAngle:       0.1,
		SustainedDropoutAngle: 0.15,
		DropoutPolicy:         DropoutBlueOnly,
		SameSidePolicy:        SameSideHold,
	}
}

// Validate reports every invalid field.
func (c Config) Validate() error {
	var errs []error
	if c.Gain <= 0 {
		errs = append(errs, fmt.Errorf("steering.gain must be > 0, got %g", c.Gain))
	}
	if c.DropoutThreshold < 0 {
		errs = append(errs, fmt.Errorf("steering.dropout_threshold must be >= 0, got %d", c.DropoutThreshold))
	}
	if c.SingleConeAngle < 0 {
		errs = append(errs, fmt.Errorf("steering.single_cone_angle must be >= 0, got %g", c.SingleConeAngle))
	}
	if c.SustainedDropoutAngle < 0 {
		errs = append(errs, fmt.Errorf("steering.sustained_dropout_angle must be >= 0, got %g", c.SustainedDropoutAngle))
	}
	if c.DropoutPolicy != DropoutBlueOnly && c.DropoutPolicy != DropoutSymmetric {
		errs = append(errs, fmt.Errorf("steering.dropout_policy: %v is not supported", c.DropoutPolicy))
	}
	if c.SameSidePolicy != SameSideHold && c.SameSidePolicy != SameSideReset {
		errs = append(errs, fmt.Errorf("steering.same_side_policy: %v is not supported", c.SameSidePolicy))
	}
	return errors.Join(errs...)
}

// State survives across frames. The zero value is the start-up state:
// counter-clockwise, no dropout, straight ahead.
type State struct {
	Direction Direction `json:"direction"`
	Dropout   int       `json:"dropout"`
	Angle     float64   `json:"angle"`
}

// InitialState returns the state used when the process starts.
func InitialState() State {
	return State{Direction: CounterClockwise}
}

// Cone is one colour's contribution to a frame.
type Cone struct {
	Present bool
	X       int
}

// Input is everything the estimator needs from one frame.
type Input struct {
	Width  int
	Blue   Cone
	Yellow Cone
}

// Branch names the rule that produced a decision.
type Branch string

const (
	BranchHold             Branch = "hold"
	BranchCounterClockwise Branch = "both_ccw"
	BranchClockwise        Branch = "both_cw"
	BranchSameSide         Branch = "both_same_side"
	BranchSingleCone       Branch = "single"
	BranchSustainedDrop    Branch = "single_sustained"
)

// Decision describes how the angle for a frame was reached.
type Decision struct {
	Case   Case    `json:"case"`
	Branch Branch  `json:"branch"`
	Angle  float64 `json:"angle"`
	// Held is true when Angle was carried over from the previous frame.
	Held bool `json:"held"`
}
