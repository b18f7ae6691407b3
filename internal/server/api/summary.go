package api

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/ayusman/conesteer/internal/store"
)

// Summary describes the steering angles of a run.
type Summary struct {
	Frames int            `json:"frames"`
	Mean   float64        `json:"mean"`
	StdDev float64        `json:"stddev"`
	Min    float64        `json:"min"`
	Max    float64        `json:"max"`
	Cases  map[string]int `json:"cases"`
	Held   int            `json:"held"`
}

// Summarize computes angle statistics and per-case frame counts.
func Summarize(samples []store.Sample) Summary {
	sum := Summary{
		Frames: len(samples),
		Cases: map[string]int{
			"neither":     0,
			"both":        0,
			"blue_only":   0,
			"yellow_only": 0,
		},
	}
	if len(samples) == 0 {
		return sum
	}

	angles := make([]float64, len(samples))
	for i, s := range samples {
		angles[i] = s.Angle
		sum.Cases[s.Case]++
		if s.Held {
			sum.Held++
		}
	}

	// Sample stddev is undefined for a single value.
	if len(angles) > 1 {
		sum.Mean, sum.StdDev = stat.MeanStdDev(angles, nil)
	} else {
		sum.Mean = angles[0]
	}
	sum.Min = floats.Min(angles)
	sum.Max = floats.Max(angles)
	return sum
}
