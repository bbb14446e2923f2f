// Package render produces chart output from a chart spec: a self-contained
// HTML page for embedding, and a PNG fallback for when the processing
// backend cannot render plots itself.
package render

import (
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/terravue/terravue/internal/analysis"
)

// ChartHTML renders the time series chart as an HTML page. Points without a
// value stay in the series as gaps so the x axis keeps every observation.
func ChartHTML(spec analysis.ChartSpec, w io.Writer) error {
	labels := make([]string, 0, len(spec.Points))
	data := make([]opts.LineData, 0, len(spec.Points))
	for _, p := range spec.Points {
		labels = append(labels, p.Label)
		// The acquisition date rides along as the point name so tooltips
		// show the exact date behind each label.
		if p.Value != nil {
			data = append(data, opts.LineData{Name: p.Date, Value: *p.Value})
		} else {
			data = append(data, opts.LineData{Name: p.Date, Value: nil})
		}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: spec.Title, Width: "1000px", Height: "520px"}),
		charts.WithTitleOpts(opts.Title{Title: spec.Title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Year"}),
		charts.WithYAxisOpts(opts.YAxis{Min: spec.YMin, Max: spec.YMax, Name: spec.YLabel}),
	)

	line.SetXAxis(labels).
		AddSeries(spec.YLabel, data,
			charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true), ShowSymbol: opts.Bool(true)}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: spec.Color}),
		)

	return line.Render(w)
}
