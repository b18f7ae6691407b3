// Package telemetry records the per-frame steering result and fans it out
// to log files, network peers, serial actuators and the run database.
package telemetry

import (
	"errors"
	"strconv"

	"github.com/ayusman/conesteer/internal/steering"
)

// DefaultGroup is the team tag written in front of every result line.
const DefaultGroup = "group_06"

// Sample is everything known about one processed frame.
type Sample struct {
	RunID         string             `json:"run_id"`
	Frame         int64              `json:"frame"`
	TimestampUS   int64              `json:"timestamp_us"`
	Angle         float64            `json:"angle"`
	Case          steering.Case      `json:"case"`
	Branch        steering.Branch    `json:"branch"`
	Held          bool               `json:"held"`
	Direction     steering.Direction `json:"direction"`
	Dropout       int                `json:"dropout"`
	BluePresent   bool               `json:"blue_present"`
	BlueX         int                `json:"blue_x"`
	YellowPresent bool               `json:"yellow_present"`
	YellowX       int                `json:"yellow_x"`
}

// NewSample assembles a Sample from one estimator step.
func NewSample(runID string, frame, timestampUS int64, in steering.Input, st steering.State, d steering.Decision) Sample {
	return Sample{
		RunID:         runID,
		Frame:         frame,
		TimestampUS:   timestampUS,
		Angle:         st.Angle,
		Case:          d.Case,
		Branch:        d.Branch,
		Held:          d.Held,
		Direction:     st.Direction,
		Dropout:       st.Dropout,
		BluePresent:   in.Blue.Present,
		BlueX:         in.Blue.X,
		YellowPresent: in.Yellow.Present,
		YellowX:       in.Yellow.X,
	}
}

// FormatAngle prints an angle with six significant digits in the shortest
// of fixed or exponent notation.
func FormatAngle(angle float64) string {
	if angle == 0 {
		return "0"
	}
	return strconv.FormatFloat(angle, 'g', 6, 64)
}

// Header is the first line of a result log.
func Header(group string) string {
	return group + ";sampleTimeStamp;steeringWheelAngle"
}

// Line formats one result as group;timestamp;angle.
func Line(group string, timestampUS int64, angle float64) string {
	return group + ";" + strconv.FormatInt(timestampUS, 10) + ";" + FormatAngle(angle)
}

// Sink consumes samples.
type Sink interface {
	Write(s Sample) error
	Close() error
}

// MultiSink writes every sample to all of its sinks. A failing sink does not
// stop the others.
type MultiSink []Sink

// Write forwards s to every sink and returns the joined errors.
func (m MultiSink) Write(s Sample) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Write(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink and returns the joined errors.
func (m MultiSink) Close() error {
	var errs []error
	for _, sink := range m {
		if err := sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
