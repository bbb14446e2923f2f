// Package processor provides clients for the satellite processing backend.
// Two remote generations speak different protocols (the current REST API and
// the legacy form-encoded one) and a local demo backend synthesizes results
// without any network; all three implement Backend.
package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/terravue/terravue/internal/analysis"
)

// ErrNotSupported is returned by backends that cannot serve an operation,
// e.g. plot rendering on the legacy API. Callers fall back to local
// rendering.
var ErrNotSupported = errors.New("operation not supported by this backend")

// Backend is the processing backend seen by the rest of the gateway.
type Backend interface {
	// RunAnalysis submits an analysis request and returns the raw,
	// un-normalized payload.
	RunAnalysis(ctx context.Context, req *analysis.Request) (*RawResult, error)

	// CreateMap asks the backend to build an interactive map for the given
	// parameters and returns its URL or path.
	CreateMap(ctx context.Context, params MapParams) (string, error)

	// RenderPlot asks the backend to render a time series plot and returns
	// the PNG bytes.
	RenderPlot(ctx context.Context, req PlotRequest) ([]byte, error)

	// QueryAssistant forwards a free-form question to the analysis
	// assistant and returns its raw reply.
	QueryAssistant(ctx context.Context, query json.RawMessage) (json.RawMessage, error)

	// Status probes the backend's processing engine.
	Status(ctx context.Context) (*EngineStatus, error)

	// Name returns the backend variant name (e.g. "rest", "legacy", "demo").
	Name() string
}

// MapParams are the inputs of a map creation call. They mirror the analysis
// parameters: a map is only rebuilt when one of these changed.
type MapParams struct {
	// Geometry is the upstream payload form of the area: a WKT string or a
	// [lon, lat] ring.
	Geometry     any                   `json:"geometry"`
	StartDate    string                `json:"startDate"`
	EndDate      string                `json:"endDate"`
	Satellite    string                `json:"satellite"`
	AnalysisType analysis.Type         `json:"analysisType"`
	CloudCover   *float64              `json:"cloudCover,omitempty"`
	CloudMasking analysis.CloudMasking `json:"cloudMasking"`
	Polarization analysis.Polarization `json:"polarization,omitempty"`
}

// PlotRequest carries a normalized time series to the backend's plot
// renderer.
type PlotRequest struct {
	AnalysisType analysis.Type
	Polarization analysis.Polarization
	Satellite    string
	Points       []analysis.TimeSeriesPoint
}

// EngineStatus reports whether the processing engine behind a backend is
// ready to take work.
type EngineStatus struct {
	Available bool   `json:"available"`
	Backend   string `json:"backend"`
	Detail    string `json:"detail,omitempty"`
}

// UpstreamError is a non-2xx reply from the processing backend.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("processing backend returned status %d: %s", e.Status, e.Body)
}

// AuthRequiredError means the backend rejected the call for lack of a valid
// session; the client has to re-authenticate before retrying.
type AuthRequiredError struct {
	Status  int
	AuthURL string
}

func (e *AuthRequiredError) Error() string {
	if e.AuthURL != "" {
		return fmt.Sprintf("authentication required (status %d), re-authenticate at %s", e.Status, e.AuthURL)
	}
	return fmt.Sprintf("authentication required (status %d)", e.Status)
}
