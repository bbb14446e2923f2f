package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildChartSpec_NDVI(t *testing.T) {
	res := &Result{
		Type: TypeNDVI,
		TimeSeries: []TimeSeriesPoint{
			NewTimeSeriesPoint("2022-06-15"),
			NewTimeSeriesPoint("2023-06-15"),
		},
	}
	res.TimeSeries[0].NDVI = Float(0.45)
	res.TimeSeries[1].NDVI = Float(0.52)

	spec := BuildChartSpec(res)

	assert.Equal(t, "NDVI Time Series", spec.Title)
	assert.Equal(t, "ndvi", spec.ValueKey)
	assert.Equal(t, "#4caf50", spec.Color)
	assert.Equal(t, "NDVI", spec.YLabel)
	assert.InDelta(t, 0.4, spec.YMin, 1e-9, "0.45 rounds down to the 0.4 tick")
	assert.InDelta(t, 0.6, spec.YMax, 1e-9, "0.52 rounds up to the 0.6 tick")
	require.Len(t, spec.Points, 2)
	assert.Equal(t, "2022", spec.Points[0].Label)
}

func TestBuildChartSpec_EmptySeriesDefaultsDomain(t *testing.T) {
	spec := BuildChartSpec(&Result{Type: TypeNDVI})

	assert.InDelta(t, -1, spec.YMin, 1e-9)
	assert.InDelta(t, 1, spec.YMax, 1e-9)
	assert.Len(t, spec.Ticks, 11, "ticks every 0.2 from -1 to 1")
}

func TestBuildChartSpec_NilValuesIgnoredForDomain(t *testing.T) {
	res := &Result{
		Type:       TypeNDVI,
		TimeSeries: []TimeSeriesPoint{NewTimeSeriesPoint("2023-06-15")},
	}

	spec := BuildChartSpec(res)
	assert.InDelta(t, -1, spec.YMin, 1e-9, "series with only gaps uses the default domain")
	require.Len(t, spec.Points, 1)
	assert.Nil(t, spec.Points[0].Value)
}

func TestBuildChartSpec_TickSpacing(t *testing.T) {
	res := &Result{Type: TypeLST, TimeSeries: []TimeSeriesPoint{
		NewTimeSeriesPoint("2022-07-01"),
		NewTimeSeriesPoint("2023-07-01"),
	}}
	res.TimeSeries[0].LST = Float(28.4)
	res.TimeSeries[1].LST = Float(35.1)

	spec := BuildChartSpec(res)

	assert.Equal(t, "#ff7043", spec.Color)
	assert.Equal(t, "LST (°C)", spec.YLabel)
	assert.InDelta(t, 28.4, spec.YMin, 1e-9)
	assert.InDelta(t, 35.2, spec.YMax, 1e-9)
	require.NotEmpty(t, spec.Ticks)
	assert.InDelta(t, spec.YMin, spec.Ticks[0], 1e-9)
	assert.InDelta(t, spec.YMax, spec.Ticks[len(spec.Ticks)-1], 1e-9)
	for i := 1; i < len(spec.Ticks); i++ {
		assert.InDelta(t, 0.2, spec.Ticks[i]-spec.Ticks[i-1], 1e-9, "ticks advance in 0.2 steps")
	}
}

func TestBuildChartSpec_SingleTickValueWidens(t *testing.T) {
	res := &Result{Type: TypeNDVI, TimeSeries: []TimeSeriesPoint{NewTimeSeriesPoint("2023-06-15")}}
	res.TimeSeries[0].NDVI = Float(0.4)

	spec := BuildChartSpec(res)
	assert.InDelta(t, 0.2, spec.YMin, 1e-9, "degenerate domain widens one step down")
	assert.InDelta(t, 0.6, spec.YMax, 1e-9, "and one step up")
}

func TestBuildChartSpec_SARPolarization(t *testing.T) {
	res := &Result{
		Type:         TypeSAR,
		Polarization: PolarizationVH,
		TimeSeries:   []TimeSeriesPoint{NewTimeSeriesPoint("2023-06-15")},
	}
	res.TimeSeries[0].BackscatterVH = Float(-17.8)

	spec := BuildChartSpec(res)

	assert.Equal(t, "backscatter_vh", spec.ValueKey)
	assert.Equal(t, "#5c6bc0", spec.Color)
	assert.Equal(t, "Backscatter (dB)", spec.YLabel)
	require.Len(t, spec.Points, 1)
	assert.Equal(t, -17.8, *spec.Points[0].Value)
}

func TestBuildChartSpec_GenericValueFallback(t *testing.T) {
	res := &Result{Type: TypeNDVI, TimeSeries: []TimeSeriesPoint{NewTimeSeriesPoint("2023-06-15")}}
	res.TimeSeries[0].Value = Float(0.33)

	spec := BuildChartSpec(res)
	require.Len(t, spec.Points, 1)
	assert.Equal(t, 0.33, *spec.Points[0].Value, "points carrying only the generic field still plot")
}

func TestBuildChartSpec_UnparsableDateLabel(t *testing.T) {
	res := &Result{Type: TypeNDVI, TimeSeries: []TimeSeriesPoint{NewTimeSeriesPoint("garbage-date")}}

	spec := BuildChartSpec(res)
	require.Len(t, spec.Points, 1)
	assert.Equal(t, "garbage-date", spec.Points[0].Label, "raw string survives as the axis label")
}
