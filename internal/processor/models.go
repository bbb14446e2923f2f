package processor

import "encoding/json"

// RawResult is an analysis reply exactly as a backend produced it. Field
// names vary between backend generations and analysis types, so observation
// values are pointer-optional aliases and statistics stay a loose map; the
// normalizer resolves the alias chains into the canonical model.
type RawResult struct {
	Success  *bool  `json:"success,omitempty"`
	Error    string `json:"error,omitempty"`
	DemoMode bool   `json:"demo_mode,omitempty"`

	AnalysisType string `json:"analysis_type,omitempty"`
	Satellite    string `json:"satellite,omitempty"`

	// TimeSeries is the modern key, Data the legacy one. At most one is
	// populated.
	TimeSeries []RawObservation `json:"time_series,omitempty"`
	Data       []RawObservation `json:"data,omitempty"`

	// Statistics keys differ per type and generation: mean_ndvi vs mean,
	// mean_vv vs mean, std vs std_dev. Values are usually numbers but the
	// legacy API has been seen sending "N/A" strings.
	Statistics map[string]any `json:"statistics,omitempty"`

	MapURL  string `json:"map_url,omitempty"`
	PlotURL string `json:"plot_url,omitempty"`
	CSVURL  string `json:"csv_url,omitempty"`

	Geometry json.RawMessage `json:"geometry,omitempty"`

	// Re-authentication markers carried on error payloads.
	AuthRequired   bool   `json:"auth_required,omitempty"`
	RedirectToAuth bool   `json:"redirect_to_auth,omitempty"`
	AuthURL        string `json:"auth_url,omitempty"`
}

// Observations returns whichever series key the backend populated.
func (r *RawResult) Observations() []RawObservation {
	if len(r.TimeSeries) > 0 {
		return r.TimeSeries
	}
	return r.Data
}

// Failed reports whether the payload describes a failed run. The modern API
// sets success explicitly; the legacy one only ships an error string.
func (r *RawResult) Failed() bool {
	if r.Success != nil {
		return !*r.Success
	}
	return r.Error != ""
}

// RawObservation is one dated measurement as a backend reports it, with
// every alias either generation uses.
type RawObservation struct {
	Date            string `json:"date,omitempty"`
	AcquisitionDate string `json:"acquisition_date,omitempty"`

	ImageID string `json:"image_id,omitempty"`
	SceneID string `json:"scene_id,omitempty"`

	NDVI          *float64 `json:"ndvi,omitempty"`
	LST           *float64 `json:"lst,omitempty"`
	Backscatter   *float64 `json:"backscatter,omitempty"`
	BackscatterVV *float64 `json:"backscatter_vv,omitempty"`
	BackscatterVH *float64 `json:"backscatter_vh,omitempty"`
	VVVHRatio     *float64 `json:"vv_vh_ratio,omitempty"`
	Value         *float64 `json:"value,omitempty"`

	CloudCover          *float64 `json:"cloud_cover,omitempty"`
	OriginalCloudCover  *float64 `json:"original_cloud_cover,omitempty"`
	AdjustedCloudCover  *float64 `json:"adjusted_cloud_cover,omitempty"`
	CloudMaskingApplied *bool    `json:"cloud_masking_applied,omitempty"`

	OrbitDirection string `json:"orbit_direction,omitempty"`
	Count          *int   `json:"count,omitempty"`
}

// When returns the observation date, preferring the modern key.
func (o *RawObservation) When() string {
	if o.Date != "" {
		return o.Date
	}
	return o.AcquisitionDate
}

// Image returns the scene identifier, preferring the modern key.
func (o *RawObservation) Image() string {
	if o.ImageID != "" {
		return o.ImageID
	}
	return o.SceneID
}
