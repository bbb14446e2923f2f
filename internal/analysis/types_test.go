package analysis

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseType(t *testing.T) {
	tests := []struct {
		in      string
		want    Type
		wantErr bool
	}{
		{in: "ndvi", want: TypeNDVI},
		{in: "NDVI", want: TypeNDVI},
		{in: " lst ", want: TypeLST},
		{in: "sar", want: TypeSAR},
		{in: "backscatter", want: TypeSAR},
		{in: "Backscatter", want: TypeSAR},
		{in: "comprehensive", want: TypeComprehensive},
		{in: "", wantErr: true},
		{in: "thermal", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseType(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTypeFamilies(t *testing.T) {
	assert.True(t, TypeSAR.IsRadar())
	assert.False(t, TypeSAR.IsOptical())
	for _, typ := range []Type{TypeNDVI, TypeLST, TypeComprehensive} {
		assert.True(t, typ.IsOptical(), "%s should be optical", typ)
		assert.False(t, typ.IsRadar(), "%s should not be radar", typ)
	}
}

func TestValueKey(t *testing.T) {
	assert.Equal(t, "ndviValue", TypeNDVI.ValueKey())
	assert.Equal(t, "lstValue", TypeLST.ValueKey())
	assert.Equal(t, "backscatterValue", TypeSAR.ValueKey())
	assert.Equal(t, "ndviValue", TypeComprehensive.ValueKey())
}

func TestSeriesKey(t *testing.T) {
	assert.Equal(t, "ndvi", TypeNDVI.SeriesKey(""))
	assert.Equal(t, "lst", TypeLST.SeriesKey(""))
	assert.Equal(t, "ndvi", TypeComprehensive.SeriesKey(""))
	assert.Equal(t, "backscatter_vv", TypeSAR.SeriesKey(PolarizationVV))
	assert.Equal(t, "backscatter_vh", TypeSAR.SeriesKey(PolarizationVH))
	assert.Equal(t, "backscatter_vv", TypeSAR.SeriesKey(PolarizationHH))
}

func TestParsePolarization(t *testing.T) {
	got, err := ParsePolarization("")
	require.NoError(t, err)
	assert.Equal(t, PolarizationVV, got, "empty polarization defaults to VV")

	got, err = ParsePolarization("vh")
	require.NoError(t, err)
	assert.Equal(t, PolarizationVH, got)

	_, err = ParsePolarization("XX")
	assert.Error(t, err)
}

func TestPrimaryValue(t *testing.T) {
	p := TimeSeriesPoint{
		NDVI:          Float(0.5),
		BackscatterVV: Float(-11.2),
		Value:         Float(99),
	}
	assert.Equal(t, 0.5, *p.PrimaryValue("ndvi"))
	assert.Equal(t, -11.2, *p.PrimaryValue("backscatter_vv"))
	assert.Equal(t, 99.0, *p.PrimaryValue("lst"), "missing field falls back to generic value")

	empty := TimeSeriesPoint{}
	assert.Nil(t, empty.PrimaryValue("ndvi"))
}

func TestTableRowMarshal_Optical(t *testing.T) {
	row := TableRow{
		Type:                TypeNDVI,
		Date:                "2023-06-15",
		ImageID:             "S2A_20230615",
		Value:               Float(0.45),
		OriginalCloudCover:  Float(12.3),
		AdjustedCloudCover:  Float(8.1),
		CloudMaskingApplied: true,
	}

	data, err := json.Marshal(row)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))

	assert.Equal(t, 0.45, m["ndviValue"])
	assert.Equal(t, true, m["cloudMaskingApplied"])
	assert.Contains(t, m, "originalCloudCover")
	assert.NotContains(t, m, "backscatterValue")
	assert.NotContains(t, m, "orbitDirection", "optical rows must not carry the radar block")
}

func TestTableRowMarshal_Radar(t *testing.T) {
	row := TableRow{
		Type:           TypeSAR,
		Date:           "2023-06-15",
		ImageID:        "S1A_20230615",
		Value:          Float(-11.2),
		BackscatterVH:  Float(-17.8),
		VVVHRatio:      Float(0.68),
		OrbitDirection: "ASCENDING",
	}

	data, err := json.Marshal(row)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))

	assert.Equal(t, -11.2, m["backscatterValue"])
	assert.Equal(t, "ASCENDING", m["orbitDirection"])
	assert.Contains(t, m, "vvVhRatio")
	assert.NotContains(t, m, "ndviValue")
	assert.NotContains(t, m, "cloudMaskingApplied", "radar rows must not carry the optical block")
}

func TestTableRowMarshal_LSTValueKey(t *testing.T) {
	row := TableRow{Type: TypeLST, Date: "2023-06-15", Value: Float(31.7)}

	data, err := json.Marshal(row)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, 31.7, m["lstValue"])
}
