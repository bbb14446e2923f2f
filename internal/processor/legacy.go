package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/terravue/terravue/internal/analysis"
	"github.com/terravue/terravue/pkg/geo"
)

// Form endpoints of the first-generation processing backend.
var legacyAnalysisPaths = map[analysis.Type]string{
	analysis.TypeNDVI:          "/process",
	analysis.TypeLST:           "/process_lst",
	analysis.TypeSAR:           "/process_sentinel1",
	analysis.TypeComprehensive: "/process_comprehensive",
}

// LegacyClient talks to the form-encoded first generation of the processing
// backend. It predates the dedicated plot and assistant endpoints, so those
// operations report ErrNotSupported and callers render locally instead.
type LegacyClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewLegacyClient creates a client for the first-generation backend.
func NewLegacyClient(baseURL string, timeout time.Duration) *LegacyClient {
	return &LegacyClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: slog.Default(),
	}
}

// WithLogger sets a custom logger for the client.
func (c *LegacyClient) WithLogger(logger *slog.Logger) *LegacyClient {
	c.logger = logger
	return c
}

// Name returns the backend variant name.
func (c *LegacyClient) Name() string {
	return "legacy"
}

// RunAnalysis submits an analysis as a form post.
func (c *LegacyClient) RunAnalysis(ctx context.Context, req *analysis.Request) (*RawResult, error) {
	path, ok := legacyAnalysisPaths[req.Type]
	if !ok {
		return nil, fmt.Errorf("no endpoint for analysis type %q", req.Type)
	}
	if req.Shapefile != nil {
		return nil, fmt.Errorf("shapefile upload: %w", ErrNotSupported)
	}
	return c.runForm(ctx, path, req)
}

// runForm posts the request's form values to one of the analysis paths.
func (c *LegacyClient) runForm(ctx context.Context, path string, req *analysis.Request) (*RawResult, error) {
	form, err := legacyFormValues(req)
	if err != nil {
		return nil, err
	}

	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	hreq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	hreq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(hreq)
	if err != nil {
		c.logger.Error("processing backend request failed",
			slog.String("url", hreq.URL.String()),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("processing backend request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := decodeResult(resp)
	if err != nil {
		return nil, err
	}

	c.logger.DebugContext(ctx, "analysis completed",
		slog.String("type", string(req.Type)),
		slog.String("path", path),
		slog.Int("observations", len(raw.Observations())),
	)
	return raw, nil
}

// Demo returns the backend posting this generation's /demo fallback path,
// which serves canned data when real processing is down. It is wired as the
// submission fallback when the legacy variant is active.
func (c *LegacyClient) Demo() Backend {
	return legacyDemo{c}
}

type legacyDemo struct {
	*LegacyClient
}

func (d legacyDemo) Name() string {
	return "legacy-demo"
}

// RunAnalysis fetches canned data from /demo using the same form encoding as
// the real endpoints. The reply is always marked as demo data.
func (d legacyDemo) RunAnalysis(ctx context.Context, req *analysis.Request) (*RawResult, error) {
	if req.Shapefile != nil {
		return nil, fmt.Errorf("shapefile upload: %w", ErrNotSupported)
	}
	raw, err := d.runForm(ctx, "/demo", req)
	if err != nil {
		return nil, err
	}
	raw.DemoMode = true
	return raw, nil
}

// CreateMap has no dedicated endpoint on this generation. The analysis
// endpoints embed a map URL in their reply, so the map is produced by
// re-running the analysis and lifting the URL out.
func (c *LegacyClient) CreateMap(ctx context.Context, params MapParams) (string, error) {
	req, err := mapParamsToRequest(params)
	if err != nil {
		return "", err
	}
	raw, err := c.RunAnalysis(ctx, req)
	if err != nil {
		return "", err
	}
	if raw.MapURL == "" {
		return "", fmt.Errorf("analysis reply carried no map URL")
	}
	return raw.MapURL, nil
}

// RenderPlot is not available on this generation.
func (c *LegacyClient) RenderPlot(ctx context.Context, req PlotRequest) ([]byte, error) {
	return nil, fmt.Errorf("time series plot: %w", ErrNotSupported)
}

// QueryAssistant is not available on this generation.
func (c *LegacyClient) QueryAssistant(ctx context.Context, query json.RawMessage) (json.RawMessage, error) {
	return nil, fmt.Errorf("analysis assistant: %w", ErrNotSupported)
}

// Status probes /check_ee, the engine check the first generation exposes.
// Replies vary between deployments, so the decode is forgiving: an empty
// or unrecognized body falls back to the HTTP status code.
func (c *LegacyClient) Status(ctx context.Context) (*EngineStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/check_ee", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &EngineStatus{Available: false, Backend: c.Name(), Detail: err.Error()}, nil
	}
	defer resp.Body.Close()

	status := &EngineStatus{Available: resp.StatusCode < 500, Backend: c.Name()}
	var reply struct {
		Initialized *bool  `json:"initialized"`
		Status      string `json:"status"`
		Message     string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&reply); err == nil {
		if reply.Initialized != nil {
			status.Available = *reply.Initialized
		} else if reply.Status != "" {
			status.Available = reply.Status == "ok"
		}
		status.Detail = reply.Message
	}
	return status, nil
}

// mapParamsToRequest rebuilds an analysis request from map parameters so the
// legacy map path can reuse RunAnalysis.
func mapParamsToRequest(params MapParams) (*analysis.Request, error) {
	req := &analysis.Request{
		Type:      params.AnalysisType,
		Satellite: params.Satellite,
		Dates: analysis.DateRange{
			StartDate: params.StartDate,
			EndDate:   params.EndDate,
		},
		CloudCover:   params.CloudCover,
		CloudMasking: params.CloudMasking,
		Polarization: params.Polarization,
	}

	switch g := params.Geometry.(type) {
	case string:
		req.AOI = geo.AOI{WKT: g}
	case [][]float64:
		req.AOI.Ring = g
	case json.RawMessage:
		var ring [][]float64
		if err := json.Unmarshal(g, &ring); err != nil {
			return nil, fmt.Errorf("unsupported map geometry: %w", err)
		}
		req.AOI.Ring = ring
	default:
		encoded, err := json.Marshal(params.Geometry)
		if err != nil {
			return nil, fmt.Errorf("unsupported map geometry: %w", err)
		}
		var ring [][]float64
		if err := json.Unmarshal(encoded, &ring); err != nil {
			return nil, fmt.Errorf("unsupported map geometry: %w", err)
		}
		req.AOI.Ring = ring
	}
	return req, nil
}
