package processor

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/terravue/terravue/internal/analysis"
)

// wireType maps an analysis type to the name the processing backend uses.
// The backend predates the "sar" rename and still expects "backscatter".
func wireType(t analysis.Type) string {
	if t == analysis.TypeSAR {
		return "backscatter"
	}
	return string(t)
}

// restAnalysisBody builds the JSON body of a modern analysis call.
func restAnalysisBody(req *analysis.Request) (map[string]any, error) {
	payload, err := req.AOI.Payload()
	if err != nil {
		return nil, err
	}

	start, end := req.Dates.Bounds()
	body := map[string]any{
		"start_date": start,
		"end_date":   end,
		"satellite":  req.Satellite,
	}

	// A WKT string and a coordinate ring travel under different keys.
	if wkt, ok := payload.(string); ok {
		body["wkt"] = wkt
	} else {
		body["coordinates"] = payload
	}

	if req.CloudCover != nil {
		body["cloud_cover"] = *req.CloudCover
	}
	if req.CloudMasking.Enabled {
		body["cloud_masking"] = true
		strictness := req.CloudMasking.Strictness
		if strictness == "" {
			strictness = analysis.StrictnessStandard
		}
		body["masking_strictness"] = strictness
	}
	if req.Type.IsRadar() {
		body["polarization"] = string(req.Polarization)
	}

	return body, nil
}

// legacyFormValues builds the form body of a legacy analysis call. The
// legacy API takes the geometry as a single "geometry" field: WKT text
// as-is, a ring JSON-encoded.
func legacyFormValues(req *analysis.Request) (url.Values, error) {
	payload, err := req.AOI.Payload()
	if err != nil {
		return nil, err
	}

	values := url.Values{}
	switch g := payload.(type) {
	case string:
		values.Set("geometry", g)
	default:
		encoded, err := json.Marshal(g)
		if err != nil {
			return nil, fmt.Errorf("failed to encode geometry: %w", err)
		}
		values.Set("geometry", string(encoded))
	}

	if req.Dates.StartYear != 0 {
		values.Set("start_year", strconv.Itoa(req.Dates.StartYear))
		values.Set("end_year", strconv.Itoa(req.Dates.EndYear))
	} else {
		values.Set("start_date", req.Dates.StartDate)
		values.Set("end_date", req.Dates.EndDate)
	}

	values.Set("dataset", req.Satellite)

	if req.CloudCover != nil {
		values.Set("cloud_cover", strconv.FormatFloat(*req.CloudCover, 'f', -1, 64))
	}
	if req.CloudMasking.Enabled {
		values.Set("apply_cloud_mask", "true")
		if req.CloudMasking.Strictness != "" {
			values.Set("strictness", req.CloudMasking.Strictness)
		}
	}
	if req.Type.IsRadar() {
		values.Set("polarization", string(req.Polarization))
	}

	return values, nil
}

// mapBody builds the JSON body of a map creation call.
func mapBody(params MapParams) map[string]any {
	body := map[string]any{
		"analysis_type": wireType(params.AnalysisType),
		"satellite":     params.Satellite,
		"start_date":    params.StartDate,
		"end_date":      params.EndDate,
	}

	if wkt, ok := params.Geometry.(string); ok {
		body["wkt"] = wkt
	} else {
		body["coordinates"] = params.Geometry
	}

	if params.CloudCover != nil {
		body["cloud_cover"] = *params.CloudCover
	}
	if params.CloudMasking.Enabled {
		body["cloud_masking"] = true
	}
	if params.AnalysisType.IsRadar() {
		body["polarization"] = string(params.Polarization)
	}

	return body
}

// plotBody builds the JSON body of a plot rendering call. Points carrying
// only the generic value are backfilled under the field name the renderer
// expects for the type.
func plotBody(req PlotRequest) map[string]any {
	key := req.AnalysisType.SeriesKey(req.Polarization)

	series := make([]map[string]any, 0, len(req.Points))
	for _, p := range req.Points {
		entry := map[string]any{"date": p.Date}
		if v := p.PrimaryValue(key); v != nil {
			entry[key] = *v
		}
		if req.AnalysisType.IsRadar() {
			if p.BackscatterVV != nil {
				entry["backscatter_vv"] = *p.BackscatterVV
			}
			if p.BackscatterVH != nil {
				entry["backscatter_vh"] = *p.BackscatterVH
			}
		}
		series = append(series, entry)
	}

	return map[string]any{
		"analysis_type": wireType(req.AnalysisType),
		"satellite":     req.Satellite,
		"time_series":   series,
	}
}
