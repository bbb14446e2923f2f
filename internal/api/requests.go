package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/terravue/terravue/internal/analysis"
	"github.com/terravue/terravue/internal/config"
	"github.com/terravue/terravue/internal/processor"
	"github.com/terravue/terravue/pkg/geo"
)

// maxShapefileBytes caps an uploaded shapefile archive.
const maxShapefileBytes = 16 << 20

// analysisRequestBody is the JSON submission shape. Exactly one of aoi,
// geojson and coordinates may be set; shapefile submissions arrive as
// multipart instead.
type analysisRequestBody struct {
	AnalysisType string                 `json:"analysisType"`
	Satellite    string                 `json:"satellite"`
	AOI          string                 `json:"aoi"`
	GeoJSON      *geo.Geometry          `json:"geojson"`
	Coordinates  [][]float64            `json:"coordinates"`
	StartYear    int                    `json:"startYear"`
	EndYear      int                    `json:"endYear"`
	StartDate    string                 `json:"startDate"`
	EndDate      string                 `json:"endDate"`
	CloudCover   *float64               `json:"cloudCover"`
	CloudMasking *analysis.CloudMasking `json:"cloudMasking"`
	Polarization string                 `json:"polarization"`
}

// decodeAnalysisRequest reads a submission from either a JSON body or a
// multipart form with a shapefile part, and resolves it into a validated
// analysis request.
func decodeAnalysisRequest(r *http.Request, satellites *config.SatelliteRegistry) (*analysis.Request, error) {
	var body analysisRequestBody
	var shapefile *analysis.Shapefile

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		var err error
		body, shapefile, err = parseMultipartSubmission(r)
		if err != nil {
			return nil, err
		}
	} else {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return nil, fmt.Errorf("invalid request body: %w", err)
		}
	}

	return buildAnalysisRequest(body, shapefile, satellites)
}

// parseMultipartSubmission pulls the form fields and the shapefile part out
// of a multipart submission. The archive is forwarded opaque; the gateway
// never parses it.
func parseMultipartSubmission(r *http.Request) (analysisRequestBody, *analysis.Shapefile, error) {
	var body analysisRequestBody

	if err := r.ParseMultipartForm(maxShapefileBytes); err != nil {
		return body, nil, fmt.Errorf("invalid multipart form: %w", err)
	}

	body.AnalysisType = r.FormValue("analysisType")
	body.Satellite = r.FormValue("satellite")
	body.AOI = r.FormValue("aoi")
	body.StartDate = r.FormValue("startDate")
	body.EndDate = r.FormValue("endDate")
	body.Polarization = r.FormValue("polarization")

	var err error
	if body.StartYear, err = formInt(r, "startYear"); err != nil {
		return body, nil, err
	}
	if body.EndYear, err = formInt(r, "endYear"); err != nil {
		return body, nil, err
	}

	if v := r.FormValue("cloudCover"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return body, nil, fmt.Errorf("invalid cloudCover %q", v)
		}
		body.CloudCover = &f
	}

	if v := r.FormValue("cloudMasking"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return body, nil, fmt.Errorf("invalid cloudMasking %q", v)
		}
		body.CloudMasking = &analysis.CloudMasking{
			Enabled:    enabled,
			Strictness: r.FormValue("maskingStrictness"),
		}
	}

	file, header, err := r.FormFile("shapefile")
	if err == http.ErrMissingFile {
		return body, nil, nil
	}
	if err != nil {
		return body, nil, fmt.Errorf("invalid shapefile upload: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxShapefileBytes+1))
	if err != nil {
		return body, nil, fmt.Errorf("failed to read shapefile upload: %w", err)
	}
	if len(data) > maxShapefileBytes {
		return body, nil, fmt.Errorf("shapefile upload exceeds %d bytes", maxShapefileBytes)
	}

	return body, &analysis.Shapefile{Filename: header.Filename, Data: data}, nil
}

func formInt(r *http.Request, field string) (int, error) {
	v := r.FormValue(field)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", field, v)
	}
	return n, nil
}

// buildAnalysisRequest turns the wire body into a validated analysis
// request, filling the default satellite for the analysis type when the
// client named none.
func buildAnalysisRequest(body analysisRequestBody, shapefile *analysis.Shapefile, satellites *config.SatelliteRegistry) (*analysis.Request, error) {
	analysisType, err := analysis.ParseType(body.AnalysisType)
	if err != nil {
		return nil, err
	}

	req := &analysis.Request{
		Type:      analysisType,
		Satellite: body.Satellite,
		AOI: geo.AOI{
			WKT:      body.AOI,
			Geometry: body.GeoJSON,
			Ring:     body.Coordinates,
		},
		Shapefile: shapefile,
		Dates: analysis.DateRange{
			StartYear: body.StartYear,
			EndYear:   body.EndYear,
			StartDate: body.StartDate,
			EndDate:   body.EndDate,
		},
		CloudCover: body.CloudCover,
	}

	if body.CloudMasking != nil {
		req.CloudMasking = *body.CloudMasking
	}

	if body.Polarization != "" {
		pol, err := analysis.ParsePolarization(body.Polarization)
		if err != nil {
			return nil, err
		}
		req.Polarization = pol
	}

	if req.Satellite == "" {
		req.Satellite = satellites.DefaultFor(req.Type)
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}

	return req, nil
}

// checkSatellite verifies the request's satellite against the registry.
func checkSatellite(req *analysis.Request, satellites *config.SatelliteRegistry) error {
	if !satellites.Has(req.Satellite) {
		return fmt.Errorf("unknown satellite %q", req.Satellite)
	}
	if !satellites.Supports(req.Satellite, req.Type) {
		return fmt.Errorf("satellite %q does not support %s analysis", req.Satellite, req.Type)
	}
	return nil
}

// decodeMapRequest reads a map creation body. Map requests share the
// submission shape minus the shapefile; the validated request is folded
// into the upstream map parameters.
func decodeMapRequest(r *http.Request, satellites *config.SatelliteRegistry) (processor.MapParams, error) {
	var body analysisRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return processor.MapParams{}, fmt.Errorf("invalid request body: %w", err)
	}

	req, err := buildAnalysisRequest(body, nil, satellites)
	if err != nil {
		return processor.MapParams{}, err
	}
	return mapParamsFrom(req)
}

// mapParamsFrom converts a validated request into map creation parameters:
// geometry in payload form, years resolved to full-year dates.
func mapParamsFrom(req *analysis.Request) (processor.MapParams, error) {
	payload, err := req.AOI.Payload()
	if err != nil {
		return processor.MapParams{}, err
	}

	start, end := req.Dates.Bounds()
	return processor.MapParams{
		Geometry:     payload,
		StartDate:    start,
		EndDate:      end,
		Satellite:    req.Satellite,
		AnalysisType: req.Type,
		CloudCover:   req.CloudCover,
		CloudMasking: req.CloudMasking,
		Polarization: req.Polarization,
	}, nil
}
