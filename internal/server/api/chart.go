package api

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/ayusman/conesteer/internal/store"
)

// renderChart writes an HTML line chart of the steering angle and the
// dropout counter over the frames of a run.
func renderChart(w io.Writer, run *store.Run, samples []store.Sample) error {
	frames := make([]int64, len(samples))
	angles := make([]opts.LineData, len(samples))
	dropouts := make([]opts.LineData, len(samples))
	for i, s := range samples {
		frames[i] = s.Frame
		angles[i] = opts.LineData{Value: s.Angle}
		dropouts[i] = opts.LineData{Value: s.Dropout}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Steering run " + run.ID, Theme: "dark", Width: "1200px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "Steering angle", Subtitle: fmt.Sprintf("run=%s source=%s frames=%d", run.ID, run.Source, len(samples))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}),
		charts.WithXAxisOpts(opts.XAxis{Name: "frame", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "angle", NameLocation: "middle", NameGap: 40}),
	)

	line.SetXAxis(frames).
		AddSeries("angle", angles).
		AddSeries("dropout", dropouts)

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}
