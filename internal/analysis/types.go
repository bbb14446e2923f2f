// Package analysis defines the canonical analysis model: request parameters,
// normalized time series and table rows, and the derived table/chart/CSV
// views. Upstream payload quirks are resolved before data enters this
// package; everything here works on one uniform shape.
package analysis

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/terravue/terravue/pkg/geo"
)

// Type identifies the kind of analysis to run.
type Type string

const (
	TypeNDVI          Type = "ndvi"
	TypeLST           Type = "lst"
	TypeSAR           Type = "sar"
	TypeComprehensive Type = "comprehensive"
)

// ParseType parses a client-supplied analysis type. The alias "backscatter"
// is accepted for SAR since older clients send it.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ndvi":
		return TypeNDVI, nil
	case "lst":
		return TypeLST, nil
	case "sar", "backscatter":
		return TypeSAR, nil
	case "comprehensive":
		return TypeComprehensive, nil
	}
	return "", fmt.Errorf("unknown analysis type: %q", s)
}

// IsRadar reports whether the type works on SAR backscatter data.
func (t Type) IsRadar() bool {
	return t == TypeSAR
}

// IsOptical reports whether the type works on optical imagery.
func (t Type) IsOptical() bool {
	return !t.IsRadar()
}

// ValueKey returns the JSON key under which table rows expose the
// per-type measurement value.
func (t Type) ValueKey() string {
	switch t {
	case TypeLST:
		return "lstValue"
	case TypeSAR:
		return "backscatterValue"
	default:
		return "ndviValue"
	}
}

// SeriesKey returns the time series field holding the primary measurement
// for this type. SAR picks the field matching the requested polarization.
func (t Type) SeriesKey(pol Polarization) string {
	switch t {
	case TypeLST:
		return "lst"
	case TypeSAR:
		if pol == PolarizationVH {
			return "backscatter_vh"
		}
		return "backscatter_vv"
	default:
		return "ndvi"
	}
}

// Polarization is a SAR polarization channel.
type Polarization string

const (
	PolarizationVV Polarization = "VV"
	PolarizationVH Polarization = "VH"
	PolarizationHH Polarization = "HH"
	PolarizationHV Polarization = "HV"
)

// ParsePolarization parses a polarization string, defaulting to VV when
// empty.
func ParsePolarization(s string) (Polarization, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "":
		return PolarizationVV, nil
	case "VV":
		return PolarizationVV, nil
	case "VH":
		return PolarizationVH, nil
	case "HH":
		return PolarizationHH, nil
	case "HV":
		return PolarizationHV, nil
	}
	return "", fmt.Errorf("unknown polarization: %q", s)
}

// CloudMasking configures optical cloud removal.
type CloudMasking struct {
	Enabled    bool   `json:"enabled"`
	Strictness string `json:"strictness,omitempty"`
}

// Strictness levels accepted by the processing backend.
const (
	StrictnessStandard = "standard"
	StrictnessStrict   = "strict"
)

// DateRange is the requested observation window. Clients supply either a
// year pair or a date pair (YYYY-MM-DD); Normalize resolves years into
// full-year dates.
type DateRange struct {
	StartYear int    `json:"startYear,omitempty"`
	EndYear   int    `json:"endYear,omitempty"`
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
}

// Shapefile is an uploaded archive forwarded opaque to the backend; the
// gateway never parses it.
type Shapefile struct {
	Filename string
	Data     []byte
}

// Request holds validated parameters for one analysis submission.
type Request struct {
	Type         Type
	Satellite    string
	AOI          geo.AOI
	Shapefile    *Shapefile
	Dates        DateRange
	CloudCover   *float64
	CloudMasking CloudMasking
	Polarization Polarization
}

// Statistics summarizes a result's observation values. Pointer fields stay
// nil when the backend omitted them and nothing could be computed; views
// render nil as "N/A".
type Statistics struct {
	Mean   *float64 `json:"mean"`
	Min    *float64 `json:"min"`
	Max    *float64 `json:"max"`
	StdDev *float64 `json:"stdDev"`
	Count  int      `json:"count"`
}

// TimeSeriesPoint is one dated observation. Date keeps the upstream string
// verbatim; Time is its parsed form and stays zero when no known format
// matched. Points keep the order the backend returned them in.
type TimeSeriesPoint struct {
	Date          string    `json:"date"`
	Time          time.Time `json:"-"`
	NDVI          *float64  `json:"ndvi,omitempty"`
	LST           *float64  `json:"lst,omitempty"`
	BackscatterVV *float64  `json:"backscatter_vv,omitempty"`
	BackscatterVH *float64  `json:"backscatter_vh,omitempty"`
	Value         *float64  `json:"value,omitempty"`
	Count         int       `json:"count,omitempty"`
}

// PrimaryValue returns the measurement the series key selects for this
// point, falling back to the generic value field.
func (p TimeSeriesPoint) PrimaryValue(key string) *float64 {
	var v *float64
	switch key {
	case "lst":
		v = p.LST
	case "backscatter_vv":
		v = p.BackscatterVV
	case "backscatter_vh":
		v = p.BackscatterVH
	default:
		v = p.NDVI
	}
	if v == nil {
		v = p.Value
	}
	return v
}

// TableRow is one row of the per-image table. Value carries the per-type
// measurement; the optical and radar blocks are mutually exclusive, selected
// by Type.
type TableRow struct {
	Type    Type
	Date    string
	ImageID string
	Value   *float64

	// Optical block.
	OriginalCloudCover  *float64
	AdjustedCloudCover  *float64
	CloudMaskingApplied bool

	// Radar block.
	BackscatterVH  *float64
	VVVHRatio      *float64
	OrbitDirection string
}

// MarshalJSON emits the measurement under the per-type value key
// (ndviValue, lstValue or backscatterValue) and only the block matching the
// analysis family.
func (r TableRow) MarshalJSON() ([]byte, error) {
	m := map[string]any{
		"date":    r.Date,
		"imageId": r.ImageID,
	}
	m[r.Type.ValueKey()] = r.Value
	if r.Type.IsRadar() {
		m["backscatterVh"] = r.BackscatterVH
		m["vvVhRatio"] = r.VVVHRatio
		m["orbitDirection"] = r.OrbitDirection
	} else {
		m["originalCloudCover"] = r.OriginalCloudCover
		m["adjustedCloudCover"] = r.AdjustedCloudCover
		m["cloudMaskingApplied"] = r.CloudMaskingApplied
	}
	return json.Marshal(m)
}

// Result is one completed analysis. A new submission replaces the owner's
// previous Result wholesale; table and chart views are derived from it on
// demand and never stored.
type Result struct {
	ID           string            `json:"id"`
	Type         Type              `json:"analysisType"`
	Satellite    string            `json:"satellite"`
	Polarization Polarization      `json:"polarization,omitempty"`
	TimeSeries   []TimeSeriesPoint `json:"timeSeries"`
	Statistics   Statistics        `json:"statistics"`
	Rows         []TableRow        `json:"rows"`
	Geometry     *geo.Geometry     `json:"geometry,omitempty"`
	MapURL       string            `json:"mapUrl,omitempty"`
	PlotURL      string            `json:"plotUrl,omitempty"`
	CSVURL       string            `json:"csvUrl,omitempty"`
	DemoMode     bool              `json:"demoMode,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
}

// Float returns a pointer to v, for building optional fields.
func Float(v float64) *float64 {
	return &v
}

// Bool returns a pointer to v.
func Bool(v bool) *bool {
	return &v
}
