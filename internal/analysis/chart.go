package analysis

import "math"

// Stroke colors per analysis family, matching the platform palette.
const (
	colorVegetation  = "#4caf50"
	colorTemperature = "#ff7043"
	colorRadar       = "#5c6bc0"
)

// tickStep is the y-axis tick spacing. Domain bounds and ticks are computed
// in integer multiples of it so repeated addition never drifts.
const tickStep = 0.2

// ChartPoint is one plotted observation. Label carries the x-axis text: the
// observation year, or the raw date string when it never parsed.
type ChartPoint struct {
	Label string   `json:"label"`
	Date  string   `json:"date"`
	Value *float64 `json:"value"`
}

// ChartSpec describes the time series chart for one result: which series
// field is plotted, how the axes are scaled and the points themselves.
type ChartSpec struct {
	Title    string       `json:"title"`
	ValueKey string       `json:"valueKey"`
	Color    string       `json:"color"`
	YLabel   string       `json:"yLabel"`
	YMin     float64      `json:"yMin"`
	YMax     float64      `json:"yMax"`
	Ticks    []float64    `json:"ticks"`
	Points   []ChartPoint `json:"points"`
}

// DisplayName returns the human name of an analysis type.
func DisplayName(t Type) string {
	switch t {
	case TypeLST:
		return "LST"
	case TypeSAR:
		return "SAR Backscatter"
	case TypeComprehensive:
		return "Comprehensive"
	default:
		return "NDVI"
	}
}

// ChartColor returns the stroke color for an analysis type.
func ChartColor(t Type) string {
	switch t {
	case TypeLST:
		return colorTemperature
	case TypeSAR:
		return colorRadar
	default:
		return colorVegetation
	}
}

// YAxisLabel returns the y-axis caption for an analysis type.
func YAxisLabel(t Type) string {
	switch t {
	case TypeLST:
		return "LST (°C)"
	case TypeSAR:
		return "Backscatter (dB)"
	default:
		return "NDVI"
	}
}

// BuildChartSpec derives the chart for a result. Series field, color and
// axis labels follow the analysis type alone; the y domain spans the present
// values rounded outward to the tick grid, or [-1, 1] when no point carries
// a numeric value.
func BuildChartSpec(res *Result) ChartSpec {
	key := res.Type.SeriesKey(res.Polarization)

	points := make([]ChartPoint, 0, len(res.TimeSeries))
	var values []float64
	for _, p := range res.TimeSeries {
		v := p.PrimaryValue(key)
		points = append(points, ChartPoint{Label: p.YearLabel(), Date: p.Date, Value: v})
		if v != nil {
			values = append(values, *v)
		}
	}

	lo, hi := domainSteps(values)
	ticks := make([]float64, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		ticks = append(ticks, float64(i)*tickStep)
	}

	return ChartSpec{
		Title:    DisplayName(res.Type) + " Time Series",
		ValueKey: key,
		Color:    ChartColor(res.Type),
		YLabel:   YAxisLabel(res.Type),
		YMin:     float64(lo) * tickStep,
		YMax:     float64(hi) * tickStep,
		Ticks:    ticks,
		Points:   points,
	}
}

// domainSteps returns the y domain as integer tick multiples. The epsilon
// keeps values sitting exactly on a tick from widening the domain by a full
// extra step through float noise.
func domainSteps(values []float64) (lo, hi int) {
	if len(values) == 0 {
		return int(math.Round(-1 / tickStep)), int(math.Round(1 / tickStep))
	}

	min, max := values[0], values[0]
	for _, v := range values[1:] {
		min = math.Min(min, v)
		max = math.Max(max, v)
	}

	const eps = 1e-9
	lo = int(math.Floor(min/tickStep + eps))
	hi = int(math.Ceil(max/tickStep - eps))
	if lo == hi {
		lo--
		hi++
	}
	return lo, hi
}
