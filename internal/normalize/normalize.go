// Package normalize converts raw processing backend payloads into the
// canonical analysis model. The two backend generations disagree on field
// names (date vs acquisition_date, mean vs mean_ndvi, data vs time_series),
// so every alias chain is resolved here and nothing downstream ever sees a
// wire shape.
package normalize

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/montanaflynn/stats"

	"github.com/terravue/terravue/internal/analysis"
	"github.com/terravue/terravue/internal/processor"
	"github.com/terravue/terravue/pkg/geo"
)

// NormalizeRawResult builds a canonical analysis result from a raw backend
// payload. The request supplies the context the payload may omit: analysis
// type, satellite and polarization.
func NormalizeRawResult(req *analysis.Request, raw *processor.RawResult) (*analysis.Result, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	if raw == nil {
		return nil, fmt.Errorf("nil raw result")
	}

	pol := req.Polarization
	if req.Type.IsRadar() && pol == "" {
		pol = analysis.PolarizationVV
	}

	obs := raw.Observations()
	points := make([]analysis.TimeSeriesPoint, 0, len(obs))
	rows := make([]analysis.TableRow, 0, len(obs))
	for _, o := range obs {
		p := normalizePoint(req.Type, o)
		points = append(points, p)
		rows = append(rows, normalizeRow(req.Type, pol, o, p))
	}

	satellite := raw.Satellite
	if satellite == "" {
		satellite = req.Satellite
	}

	result := &analysis.Result{
		ID:         uuid.NewString(),
		Type:       req.Type,
		Satellite:  satellite,
		TimeSeries: points,
		Statistics: normalizeStatistics(req.Type, pol, raw.Statistics, points),
		Rows:       rows,
		Geometry:   resolveGeometry(raw.Geometry, req.AOI),
		MapURL:     raw.MapURL,
		PlotURL:    raw.PlotURL,
		CSVURL:     raw.CSVURL,
		DemoMode:   raw.DemoMode,
		CreatedAt:  time.Now().UTC(),
	}
	if req.Type.IsRadar() {
		result.Polarization = pol
	}
	return result, nil
}

// normalizePoint maps one raw observation onto the canonical series point.
// Typed fields take their own aliases; the generic value field passes
// through untouched so readers can fall back to it.
func normalizePoint(t analysis.Type, o processor.RawObservation) analysis.TimeSeriesPoint {
	p := analysis.NewTimeSeriesPoint(o.When())
	p.Value = o.Value
	if o.Count != nil {
		p.Count = *o.Count
	}

	switch {
	case t.IsRadar():
		// The legacy API calls the VV channel plain "backscatter".
		p.BackscatterVV = firstFloat(o.BackscatterVV, o.Backscatter)
		p.BackscatterVH = o.BackscatterVH
	case t == analysis.TypeComprehensive:
		p.NDVI = o.NDVI
		p.LST = o.LST
		p.BackscatterVV = firstFloat(o.BackscatterVV, o.Backscatter)
		p.BackscatterVH = o.BackscatterVH
	case t == analysis.TypeLST:
		p.LST = o.LST
	default:
		p.NDVI = o.NDVI
	}
	return p
}

// normalizeRow derives the table row for an observation. The row value is
// resolved through the full chain (typed field, then generic value) so the
// table never shows a hole the payload could have filled.
func normalizeRow(t analysis.Type, pol analysis.Polarization, o processor.RawObservation, p analysis.TimeSeriesPoint) analysis.TableRow {
	row := analysis.TableRow{
		Type:    t,
		Date:    p.DisplayDate(),
		ImageID: o.Image(),
		Value:   p.PrimaryValue(t.SeriesKey(pol)),
	}

	if t.IsRadar() {
		row.BackscatterVH = p.BackscatterVH
		row.VVVHRatio = resolveRatio(o, p)
		row.OrbitDirection = o.OrbitDirection
		return row
	}

	row.OriginalCloudCover = firstFloat(o.OriginalCloudCover, o.CloudCover)
	row.AdjustedCloudCover = o.AdjustedCloudCover
	row.CloudMaskingApplied = o.CloudMaskingApplied != nil && *o.CloudMaskingApplied
	return row
}

// resolveRatio prefers the backend's ratio and computes VV/VH itself when
// both channels are present but the ratio is not.
func resolveRatio(o processor.RawObservation, p analysis.TimeSeriesPoint) *float64 {
	if o.VVVHRatio != nil {
		return o.VVVHRatio
	}
	if p.BackscatterVV != nil && p.BackscatterVH != nil && *p.BackscatterVH != 0 {
		return analysis.Float(*p.BackscatterVV / *p.BackscatterVH)
	}
	return nil
}

// normalizeStatistics resolves the per-type statistic key chains and
// computes whatever the backend left out from the series itself.
func normalizeStatistics(t analysis.Type, pol analysis.Polarization, raw map[string]any, points []analysis.TimeSeriesPoint) analysis.Statistics {
	suffix := statSuffix(t)

	out := analysis.Statistics{
		Mean:   statValue(raw, "mean_"+suffix, "mean"),
		Min:    statValue(raw, "min_"+suffix, "min"),
		Max:    statValue(raw, "max_"+suffix, "max"),
		StdDev: statValue(raw, "std_dev_"+suffix, "std_"+suffix, "std_dev", "std"),
	}

	out.Count = statCount(raw, len(points))

	key := t.SeriesKey(pol)
	values := make(stats.Float64Data, 0, len(points))
	for _, p := range points {
		if v := p.PrimaryValue(key); v != nil {
			values = append(values, *v)
		}
	}
	fillFromSeries(&out, values)
	return out
}

// statSuffix names the per-type statistic keys: mean_ndvi, mean_lst,
// mean_vv. SAR statistics always describe the VV channel; comprehensive
// runs report their NDVI component.
func statSuffix(t analysis.Type) string {
	switch t {
	case analysis.TypeLST:
		return "lst"
	case analysis.TypeSAR:
		return "vv"
	default:
		return "ndvi"
	}
}

// statValue walks a key chain and returns the first numeric hit.
func statValue(raw map[string]any, keys ...string) *float64 {
	for _, key := range keys {
		if v, ok := raw[key]; ok {
			if f := numeric(v); f != nil {
				return f
			}
		}
	}
	return nil
}

// statCount resolves the observation count chain, falling back to the
// series length.
func statCount(raw map[string]any, seriesLen int) int {
	for _, key := range []string{"count", "total_images", "image_count"} {
		if v, ok := raw[key]; ok {
			if f := numeric(v); f != nil {
				return int(*f)
			}
		}
	}
	return seriesLen
}

// fillFromSeries computes any statistic still missing from the primary
// series values.
func fillFromSeries(s *analysis.Statistics, values stats.Float64Data) {
	if len(values) == 0 {
		return
	}
	if s.Mean == nil {
		if v, err := stats.Mean(values); err == nil {
			s.Mean = analysis.Float(v)
		}
	}
	if s.Min == nil {
		if v, err := stats.Min(values); err == nil {
			s.Min = analysis.Float(v)
		}
	}
	if s.Max == nil {
		if v, err := stats.Max(values); err == nil {
			s.Max = analysis.Float(v)
		}
	}
	if s.StdDev == nil {
		if v, err := stats.StandardDeviation(values); err == nil {
			s.StdDev = analysis.Float(v)
		}
	}
}

// numeric coerces a loosely typed statistic value. The legacy API has been
// seen sending numbers as strings and "N/A" for missing values; both cases
// land here.
func numeric(v any) *float64 {
	switch n := v.(type) {
	case float64:
		return analysis.Float(n)
	case float32:
		return analysis.Float(float64(n))
	case int:
		return analysis.Float(float64(n))
	case int64:
		return analysis.Float(float64(n))
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return analysis.Float(f)
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return analysis.Float(f)
		}
	}
	return nil
}

// resolveGeometry prefers the geometry echoed by the backend and falls back
// to the requested area.
func resolveGeometry(raw json.RawMessage, aoi geo.AOI) *geo.Geometry {
	if len(raw) > 0 {
		var g geo.Geometry
		if err := json.Unmarshal(raw, &g); err == nil && g.Type != "" {
			return &g
		}
	}
	if g, err := aoi.ToGeometry(); err == nil {
		return g
	}
	return nil
}

// firstFloat returns the first non-nil value.
func firstFloat(values ...*float64) *float64 {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
