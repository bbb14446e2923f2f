package catalog

import (
	"fmt"
	"strings"

	"github.com/terravue/terravue/internal/analysis"
	"github.com/terravue/terravue/internal/config"
)

// ParameterSchema describes the request parameters valid for one satellite
// as a JSON-schema document, the way an OGC queryables response would.
// Optical satellites get the cloud parameters, radar satellites the
// polarization enum.
func ParameterSchema(s *config.SatelliteConfig, baseURL string) map[string]any {
	baseURL = strings.TrimRight(baseURL, "/")

	properties := map[string]any{
		"analysisType": map[string]any{
			"description": "Analysis to run over the area of interest",
			"type":        "string",
			"enum":        s.Analyses,
		},
		"satellite": map[string]any{
			"description": "Satellite dataset identifier",
			"type":        "string",
			"enum":        []string{s.ID},
		},
		"aoi": map[string]any{
			"description": "Area of interest as a WKT POLYGON or POINT",
			"type":        "string",
		},
		"geojson": map[string]any{
			"description": "Area of interest as a GeoJSON geometry",
			"type":        "object",
		},
		"coordinates": map[string]any{
			"description": "Area of interest as a ring of [longitude, latitude] pairs",
			"type":        "array",
			"items": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "number"},
			},
		},
		"startYear": map[string]any{
			"description": "First year of the observation window",
			"type":        "integer",
		},
		"endYear": map[string]any{
			"description": "Last year of the observation window",
			"type":        "integer",
		},
		"startDate": map[string]any{
			"description": "Window start date (takes precedence over startYear)",
			"type":        "string",
			"format":      "date",
		},
		"endDate": map[string]any{
			"description": "Window end date (takes precedence over endYear)",
			"type":        "string",
			"format":      "date",
		},
	}

	if s.IsRadar() {
		properties["polarization"] = map[string]any{
			"description": "SAR polarization channel to analyze",
			"type":        "string",
			"enum":        s.Polarizations,
		}
	} else {
		properties["cloudCover"] = map[string]any{
			"description": "Maximum acceptable scene cloud cover percentage",
			"type":        "number",
			"minimum":     0,
			"maximum":     100,
		}
		properties["cloudMasking"] = map[string]any{
			"description": "Per-pixel cloud removal before index computation",
			"type":        "object",
			"properties": map[string]any{
				"enabled": map[string]any{"type": "boolean"},
				"strictness": map[string]any{
					"type": "string",
					"enum": []string{analysis.StrictnessStandard, analysis.StrictnessStrict},
				},
			},
		}
	}

	return map[string]any{
		"$schema":              "https://json-schema.org/draft/2019-09/schema",
		"$id":                  fmt.Sprintf("%s/api/v1/satellites/%s/parameters", baseURL, s.ID),
		"type":                 "object",
		"title":                fmt.Sprintf("Analysis parameters for %s", s.Title),
		"description":          "Request parameters accepted by POST /api/v1/analyses for this satellite",
		"properties":           properties,
		"additionalProperties": true,
	}
}
