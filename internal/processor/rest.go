package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/terravue/terravue/internal/analysis"
)

// Analysis endpoints of the modern processing API, one per analysis type.
var restAnalysisPaths = map[analysis.Type]string{
	analysis.TypeNDVI:          "/process_ndvi/",
	analysis.TypeLST:           "/process_lst/",
	analysis.TypeSAR:           "/process_sentinel/",
	analysis.TypeComprehensive: "/process_comprehensive/",
}

const (
	restMapPath       = "/visualization/create_custom_map/"
	restPlotPath      = "/visualization/generate_time_series_plot/"
	restAssistantPath = "/ai/query/"
	restStatusPath    = "/check_ee"
)

// Client talks to the modern REST generation of the processing backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a processing backend client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
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
func (c *Client) WithLogger(logger *slog.Logger) *Client {
	c.logger = logger
	return c
}

// Name returns the backend variant name.
func (c *Client) Name() string {
	return "rest"
}

// RunAnalysis submits an analysis request. Inline geometries go as JSON; an
// uploaded shapefile switches the call to multipart with the file forwarded
// opaque.
func (c *Client) RunAnalysis(ctx context.Context, req *analysis.Request) (*RawResult, error) {
	path, ok := restAnalysisPaths[req.Type]
	if !ok {
		return nil, fmt.Errorf("no endpoint for analysis type %q", req.Type)
	}

	var (
		resp *http.Response
		err  error
	)
	if req.Shapefile != nil {
		resp, err = c.postShapefile(ctx, path, req)
	} else {
		body, berr := restAnalysisBody(req)
		if berr != nil {
			return nil, berr
		}
		resp, err = c.postJSON(ctx, path, body)
	}
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := decodeResult(resp)
	if err != nil {
		return nil, err
	}

	c.logger.DebugContext(ctx, "analysis completed",
		slog.String("type", string(req.Type)),
		slog.Int("observations", len(raw.Observations())),
	)
	return raw, nil
}

// CreateMap asks the backend to build an interactive map and returns its
// URL, which may be a relative static path.
func (c *Client) CreateMap(ctx context.Context, params MapParams) (string, error) {
	resp, err := c.postJSON(ctx, restMapPath, mapBody(params))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return "", err
	}

	var reply struct {
		MapURL string `json:"map_url"`
		URL    string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return "", fmt.Errorf("failed to decode map response: %w", err)
	}

	mapURL := reply.MapURL
	if mapURL == "" {
		mapURL = reply.URL
	}
	if mapURL == "" {
		return "", fmt.Errorf("map response carried no URL")
	}
	return mapURL, nil
}

// RenderPlot posts a time series to the backend renderer and returns the
// PNG bytes.
func (c *Client) RenderPlot(ctx context.Context, req PlotRequest) ([]byte, error) {
	resp, err := c.postJSON(ctx, restPlotPath, plotBody(req))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "image/") {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &UpstreamError{Status: resp.StatusCode, Body: fmt.Sprintf("expected an image, got %s: %s", ct, body)}
	}

	png, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read plot image: %w", err)
	}
	return png, nil
}

// QueryAssistant forwards a question to the analysis assistant verbatim.
func (c *Client) QueryAssistant(ctx context.Context, query json.RawMessage) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+restAssistantPath, bytes.NewReader(query))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	reply, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read assistant reply: %w", err)
	}
	return reply, nil
}

// Status probes the processing engine.
func (c *Client) Status(ctx context.Context) (*EngineStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+restStatusPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var reply struct {
		Initialized *bool  `json:"initialized"`
		Status      string `json:"status"`
		Message     string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, fmt.Errorf("failed to decode status response: %w", err)
	}

	available := reply.Status == "ok"
	if reply.Initialized != nil {
		available = *reply.Initialized
	}
	return &EngineStatus{Available: available, Backend: c.Name(), Detail: reply.Message}, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body any) (*http.Response, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return c.do(req)
}

// postShapefile sends the analysis parameters as multipart form fields with
// the uploaded archive attached. The file is never opened here.
func (c *Client) postShapefile(ctx context.Context, path string, areq *analysis.Request) (*http.Response, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	start, end := areq.Dates.Bounds()
	fields := map[string]string{
		"start_date": start,
		"end_date":   end,
		"satellite":  areq.Satellite,
	}
	if areq.CloudCover != nil {
		fields["cloud_cover"] = fmt.Sprintf("%g", *areq.CloudCover)
	}
	if areq.CloudMasking.Enabled {
		fields["cloud_masking"] = "true"
	}
	if areq.Type.IsRadar() {
		fields["polarization"] = string(areq.Polarization)
	}
	for name, value := range fields {
		if err := mw.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("failed to write form field: %w", err)
		}
	}

	fw, err := mw.CreateFormFile("shapefile", areq.Shapefile.Filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := fw.Write(areq.Shapefile.Data); err != nil {
		return nil, fmt.Errorf("failed to write shapefile: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	return c.do(req)
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("processing backend request failed",
			slog.String("url", req.URL.String()),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("processing backend request failed: %w", err)
	}
	return resp, nil
}

// decodeResult parses an analysis reply, turning auth rejections and other
// failures into typed errors.
func decodeResult(resp *http.Response) (*RawResult, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var raw RawResult
	decodeErr := json.Unmarshal(body, &raw)

	if err := classifyAuth(resp.StatusCode, &raw, decodeErr == nil); err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamError{Status: resp.StatusCode, Body: truncate(string(body), 512)}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("failed to decode analysis response: %w", decodeErr)
	}
	if raw.Failed() {
		msg := raw.Error
		if msg == "" {
			msg = "analysis failed"
		}
		return nil, &UpstreamError{Status: resp.StatusCode, Body: msg}
	}
	return &raw, nil
}

// checkStatus maps a non-2xx reply to a typed error, reading a bounded body
// snippet for context.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	var raw RawResult
	parsed := json.Unmarshal(body, &raw) == nil

	if err := classifyAuth(resp.StatusCode, &raw, parsed); err != nil {
		return err
	}
	return &UpstreamError{Status: resp.StatusCode, Body: truncate(string(body), 512)}
}

// classifyAuth detects the backend's two re-authentication shapes: a plain
// 401, or a 500 whose body carries an auth_required / redirect_to_auth
// marker.
func classifyAuth(status int, raw *RawResult, parsed bool) error {
	if status == http.StatusUnauthorized {
		authURL := ""
		if parsed {
			authURL = raw.AuthURL
		}
		return &AuthRequiredError{Status: status, AuthURL: authURL}
	}
	if status == http.StatusInternalServerError && parsed && (raw.AuthRequired || raw.RedirectToAuth) {
		return &AuthRequiredError{Status: status, AuthURL: raw.AuthURL}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
