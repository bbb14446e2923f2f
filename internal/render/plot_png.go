package render

import (
	"bytes"
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/terravue/terravue/internal/analysis"
)

const (
	plotWidth  = 10 * vg.Inch
	plotHeight = 5 * vg.Inch
)

// PlotPNG renders the time series as a PNG image. It is the local fallback
// used when the processing backend does not offer server-side plots.
func PlotPNG(spec analysis.ChartSpec) ([]byte, error) {
	p := plot.New()
	p.Title.Text = spec.Title
	p.X.Label.Text = "Acquisition"
	p.Y.Label.Text = spec.YLabel
	p.Y.Min = spec.YMin
	p.Y.Max = spec.YMax

	ticks := make([]plot.Tick, 0, len(spec.Ticks))
	for _, v := range spec.Ticks {
		ticks = append(ticks, plot.Tick{Value: v, Label: fmt.Sprintf("%.1f", v)})
	}
	p.Y.Tick.Marker = plot.ConstantTicks(ticks)

	labels := make([]string, 0, len(spec.Points))
	pts := make(plotter.XYs, 0, len(spec.Points))
	for i, cp := range spec.Points {
		labels = append(labels, cp.Label)
		if cp.Value != nil {
			pts = append(pts, plotter.XY{X: float64(i), Y: *cp.Value})
		}
	}
	p.NominalX(labels...)

	stroke := parseHexColor(spec.Color)

	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, fmt.Errorf("failed to build line: %w", err)
	}
	line.Color = stroke
	line.Width = vg.Points(1.5)

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, fmt.Errorf("failed to build markers: %w", err)
	}
	scatter.GlyphStyle.Color = stroke
	scatter.GlyphStyle.Radius = vg.Points(2.5)

	p.Add(line, scatter)
	p.Legend.Add(spec.YLabel, line)
	p.Legend.Top = true

	writer, err := p.WriterTo(plotWidth, plotHeight, "png")
	if err != nil {
		return nil, fmt.Errorf("failed to render plot: %w", err)
	}
	var buf bytes.Buffer
	if _, err := writer.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode plot: %w", err)
	}
	return buf.Bytes(), nil
}

// parseHexColor turns a "#rrggbb" string into a color, falling back to a
// neutral slate when the string does not parse.
func parseHexColor(hex string) color.Color {
	var r, g, b uint8
	if _, err := fmt.Sscanf(hex, "#%02x%02x%02x", &r, &g, &b); err != nil {
		return color.RGBA{R: 0x60, G: 0x7d, B: 0x8b, A: 0xff}
	}
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}
