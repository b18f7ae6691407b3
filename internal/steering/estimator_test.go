package steering

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

const epsilon = 1e-9

func both(width, blueX, yellowX int) Input {
	return Input{
		Width:  width,
		Blue:   Cone{Present: true, X: blueX},
		Yellow: Cone{Present: true, X: yellowX},
	}
}

func blueOnly(width, x int) Input {
	return Input{Width: width, Blue: Cone{Present: true, X: x}}
}

func yellowOnly(width, x int) Input {
	return Input{Width: width, Yellow: Cone{Present: true, X: x}}
}

var approx = cmpopts.EquateApprox(0, epsilon)

func TestInitialState(t *testing.T) {
	want := State{Direction: CounterClockwise, Dropout: 0, Angle: 0}
	if diff := cmp.Diff(want, InitialState()); diff != "" {
		t.Errorf("InitialState() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(State{}, InitialState()); diff != "" {
		t.Errorf("zero State should equal InitialState (-want +got):\n%s", diff)
	}
}

func TestEstimator_NeitherPresentHoldsEverything(t *testing.T) {
	e := NewEstimator(DefaultConfig())
	prev := State{Direction: Clockwise, Dropout: 12, Angle: -0.042}

	next, d := e.Step(prev, Input{Width: 640})

	if diff := cmp.Diff(prev, next); diff != "" {
		t.Errorf("state changed (-want +got):\n%s", diff)
	}
	if d.Case != NeitherPresent || !d.Held || d.Angle != prev.Angle {
		t.Errorf("decision = %+v, want held neither with angle %v", d, prev.Angle)
	}
}

func TestEstimator_BothCounterClockwise(t *testing.T) {
	tests := []struct {
		name    string
		blueX   int
		yellowX int
		want    float64
	}{
		{
			// left gap 180, right gap 180
			name:    "symmetric cones steer straight",
			blueX:   500,
			yellowX: 140,
			want:    0,
		},
		{
			// left gap 220, right gap 100: yellow further away, steer positive
			name:    "yellow far left",
			blueX:   420,
			yellowX: 100,
			want:    0.12 * 120 / 320,
		},
		{
			// left gap 20, right gap 300: blue further away, steer negative
			name:    "blue far right",
			blueX:   620,
			yellowX: 300,
			want:    -0.12 * 280 / 320,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEstimator(DefaultConfig())
			prev := State{Direction: Clockwise, Dropout: 17, Angle: 0.3}

			next, d := e.Step(prev, both(640, tt.blueX, tt.yellowX))

			want := State{Direction: CounterClockwise, Dropout: 0, Angle: tt.want}
			if diff := cmp.Diff(want, next, approx); diff != "" {
				t.Errorf("state mismatch (-want +got):\n%s", diff)
			}
			if d.Case != BothPresent || d.Branch != BranchCounterClockwise || d.Held {
				t.Errorf("decision = %+v", d)
			}
			if math.Abs(d.Angle-next.Angle) > epsilon {
				t.Errorf("decision angle %v != state angle %v", d.Angle, next.Angle)
			}
		})
	}
}

func TestEstimator_EqualGapsAreExactlyZero(t *testing.T) {
	e := NewEstimator(DefaultConfig())
	next, _ := e.Step(InitialState(), both(640, 500, 140))
	if next.Angle != 0 || math.Signbit(next.Angle) {
		t.Errorf("angle = %v, want +0", next.Angle)
	}

	next, _ = e.Step(InitialState(), both(640, 140, 500))
	if next.Angle != 0 || math.Signbit(next.Angle) {
		t.Errorf("clockwise angle = %v, want +0", next.Angle)
	}
}

func TestEstimator_BothClockwise(t *testing.T) {
	tests := []struct {
		name    string
		blueX   int
		yellowX int
		want    float64
	}{
		{
			// blue gap 220, yellow gap 100: negative
			name:    "blue far left",
			blueX:   100,
			yellowX: 420,
			want:    -0.12 * 120 / 320,
		},
		{
			// blue gap 20, yellow gap 300: positive
			name:    "yellow far right",
			blueX:   300,
			yellowX: 620,
			want:    0.12 * 280 / 320,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEstimator(DefaultConfig())
			prev := State{Direction: CounterClockwise, Dropout: 40, Angle: 0.1}

			next, d := e.Step(prev, both(640, tt.blueX, tt.yellowX))

			want := State{Direction: Clockwise, Dropout: 0, Angle: tt.want}
			if diff := cmp.Diff(want, next, approx); diff != "" {
				t.Errorf("state mismatch (-want +got):\n%s", diff)
			}
			if d.Branch != BranchClockwise {
				t.Errorf("branch = %q, want %q", d.Branch, BranchClockwise)
			}
		})
	}
}

func TestEstimator_BothSameSide(t *testing.T) {
	inputs := []struct {
		name string
		in   Input
	}{
		{"both right", both(640, 500, 400)},
		{"both left", both(640, 100, 200)},
		{"blue on centre line", both(640, 320, 100)},
		{"yellow on centre line", both(640, 500, 320)},
	}

	for _, tc := range inputs {
		t.Run("hold/"+tc.name, func(t *testing.T) {
			e := NewEstimator(DefaultConfig())
			prev := State{Direction: Clockwise, Dropout: 9, Angle: -0.07}

			next, d := e.Step(prev, tc.in)

			want := State{Direction: Clockwise, Dropout: 0, Angle: -0.07}
			if diff := cmp.Diff(want, next); diff != "" {
				t.Errorf("state mismatch (-want +got):\n%s", diff)
			}
			if d.Branch != BranchSameSide || !d.Held {
				t.Errorf("decision = %+v, want held same-side", d)
			}
		})

		t.Run("reset/"+tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.SameSidePolicy = SameSideReset
			e := NewEstimator(cfg)
			prev := State{Direction: Clockwise, Dropout: 9, Angle: -0.07}

			next, d := e.Step(prev, tc.in)

			want := State{Direction: Clockwise, Dropout: 0, Angle: 0}
			if diff := cmp.Diff(want, next); diff != "" {
				t.Errorf("state mismatch (-want +got):\n%s", diff)
			}
			if d.Held {
				t.Error("reset decision should not be marked held")
			}
		})
	}
}

func TestEstimator_BlueOnlyClockwiseEscalates(t *testing.T) {
	e := NewEstimator(DefaultConfig())
	st := State{Direction: Clockwise}

	for frame := 1; frame <= 35; frame++ {
		var d Decision
		st, d = e.Step(st, blueOnly(640, 100))

		if st.Dropout != frame {
			t.Fatalf("frame %d: dropout = %d", frame, st.Dropout)
		}

		want := -0.1
		if frame > 30 {
			want = -0.15
		}
		if st.Angle != want {
			t.Errorf("frame %d: angle = %v, want %v", frame, st.Angle, want)
		}
		if (frame > 30) != (d.Branch == BranchSustainedDrop) {
			t.Errorf("frame %d: branch = %q", frame, d.Branch)
		}
	}
}

func TestEstimator_BlueOnlyThresholdBoundary(t *testing.T) {
	e := NewEstimator(DefaultConfig())

	at, _ := e.Step(State{Direction: Clockwise, Dropout: 29}, blueOnly(640, 10))
	if at.Dropout != 30 || at.Angle != -0.1 {
		t.Errorf("counter 30: got %+v, want dropout 30 angle -0.1", at)
	}

	past, _ := e.Step(State{Direction: Clockwise, Dropout: 30}, blueOnly(640, 10))
	if past.Dropout != 31 || past.Angle != -0.15 {
		t.Errorf("counter 31: got %+v, want dropout 31 angle -0.15", past)
	}
}

func TestEstimator_BlueOnlyCounterClockwise(t *testing.T) {
	e := NewEstimator(DefaultConfig())
	st := State{Direction: CounterClockwise, Dropout: 100}

	st, _ = e.Step(st, blueOnly(640, 600))

	want := State{Direction: CounterClockwise, Dropout: 101, Angle: 0.1}
	if diff := cmp.Diff(want, st); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}
}

func TestEstimator_YellowOnlyNeverTouchesDropout(t *testing.T) {
	for _, dir := range []Direction{CounterClockwise, Clockwise} {
		t.Run(dir.String(), func(t *testing.T) {
			e := NewEstimator(DefaultConfig())
			st := State{Direction: dir, Dropout: 7}

			for i := 0; i < 100; i++ {
				st, _ = e.Step(st, yellowOnly(640, 50))
				if st.Dropout != 7 {
					t.Fatalf("iteration %d: dropout = %d, want 7", i, st.Dropout)
				}
			}

			want := 0.1
			if dir == Clockwise {
				want = -0.1
			}
			if st.Angle != want {
				t.Errorf("angle = %v, want %v", st.Angle, want)
			}
			if st.Direction != dir {
				t.Errorf("direction changed to %v", st.Direction)
			}
		})
	}
}

func TestEstimator_YellowOnlySymmetricPolicy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DropoutPolicy = DropoutSymmetric
	e := NewEstimator(cfg)

	st := State{Direction: CounterClockwise, Dropout: 29}
	st, d := e.Step(st, yellowOnly(640, 50))
	if st.Dropout != 30 || st.Angle != 0.1 || d.Branch != BranchSingleCone {
		t.Errorf("at threshold: state %+v decision %+v", st, d)
	}

	st, d = e.Step(st, yellowOnly(640, 50))
	if st.Dropout != 31 || st.Angle != 0.15 || d.Branch != BranchSustainedDrop {
		t.Errorf("past threshold: state %+v decision %+v", st, d)
	}

	cw, _ := e.Step(State{Direction: Clockwise, Dropout: 50}, yellowOnly(640, 50))
	if cw.Dropout != 51 || cw.Angle != -0.1 {
		t.Errorf("clockwise: got %+v", cw)
	}
}

func TestEstimator_BothResetsDropout(t *testing.T) {
	e := NewEstimator(DefaultConfig())
	st := State{Direction: Clockwise}
	for i := 0; i < 40; i++ {
		st, _ = e.Step(st, blueOnly(640, 10))
	}
	if st.Angle != -0.15 {
		t.Fatalf("expected sustained angle, got %v", st.Angle)
	}

	st, _ = e.Step(st, both(640, 100, 500))
	if st.Dropout != 0 {
		t.Errorf("dropout = %d after both cones, want 0", st.Dropout)
	}

	st, _ = e.Step(st, blueOnly(640, 10))
	if st.Angle != -0.1 {
		t.Errorf("angle = %v after recovery, want -0.1", st.Angle)
	}
}

func TestEstimator_Deterministic(t *testing.T) {
	e := NewEstimator(DefaultConfig())
	prev := State{Direction: Clockwise, Dropout: 3, Angle: 0.02}
	inputs := []Input{
		{Width: 640},
		both(640, 455, 101),
		both(640, 90, 610),
		blueOnly(640, 33),
		yellowOnly(640, 600),
	}

	for _, in := range inputs {
		s1, d1 := e.Step(prev, in)
		s2, d2 := e.Step(prev, in)
		if diff := cmp.Diff(s1, s2); diff != "" {
			t.Errorf("state differs for %+v:\n%s", in, diff)
		}
		if diff := cmp.Diff(d1, d2); diff != "" {
			t.Errorf("decision differs for %+v:\n%s", in, diff)
		}
	}
}

func TestEstimator_ZeroWidth(t *testing.T) {
	e := NewEstimator(DefaultConfig())
	st, _ := e.Step(InitialState(), both(0, 10, -10))
	if math.IsNaN(st.Angle) || math.IsInf(st.Angle, 0) {
		t.Errorf("angle = %v for zero width", st.Angle)
	}
}

func TestConfig_Validate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() = %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero gain", func(c *Config) { c.Gain = 0 }},
		{"negative threshold", func(c *Config) { c.DropoutThreshold = -1 }},
		{"negative single angle", func(c *Config) { c.SingleConeAngle = -0.1 }},
		{"negative sustained angle", func(c *Config) { c.SustainedDropoutAngle = -0.2 }},
		{"unknown dropout policy", func(c *Config) { c.DropoutPolicy = DropoutPolicy(9) }},
		{"unknown same-side policy", func(c *Config) { c.SameSidePolicy = SameSidePolicy(9) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestParsePolicies(t *testing.T) {
	if p, err := ParseDropoutPolicy("symmetric"); err != nil || p != DropoutSymmetric {
		t.Errorf("ParseDropoutPolicy(symmetric) = %v, %v", p, err)
	}
	if _, err := ParseDropoutPolicy("yellow"); err == nil {
		t.Error("expected error for unknown dropout policy")
	}
	if p, err := ParseSameSidePolicy("RESET"); err != nil || p != SameSideReset {
		t.Errorf("ParseSameSidePolicy(RESET) = %v, %v", p, err)
	}
	if _, err := ParseSameSidePolicy("zero"); err == nil {
		t.Error("expected error for unknown same-side policy")
	}
}
