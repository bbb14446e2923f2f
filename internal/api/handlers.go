package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/terravue/terravue/internal/analysis"
	"github.com/terravue/terravue/internal/catalog"
	"github.com/terravue/terravue/internal/config"
	"github.com/terravue/terravue/internal/maps"
	"github.com/terravue/terravue/internal/normalize"
	"github.com/terravue/terravue/internal/processor"
	"github.com/terravue/terravue/internal/render"
	"github.com/terravue/terravue/internal/results"
)

// maxAssistantQueryBytes caps an assistant request body.
const maxAssistantQueryBytes = 1 << 20

// Handlers contains all HTTP handlers of the gateway API.
type Handlers struct {
	cfg        *config.Config
	backend    processor.Backend
	demo       processor.Backend
	satellites *config.SatelliteRegistry
	store      *results.Store
	maps       *maps.Requester
	logger     *slog.Logger
}

// NewHandlers creates a Handlers instance with the given dependencies.
func NewHandlers(
	cfg *config.Config,
	backend processor.Backend,
	satellites *config.SatelliteRegistry,
	store *results.Store,
	mapRequester *maps.Requester,
	logger *slog.Logger,
) *Handlers {
	return &Handlers{
		cfg:        cfg,
		backend:    backend,
		satellites: satellites,
		store:      store,
		maps:       mapRequester,
		logger:     logger,
	}
}

// WithDemoFallback sets the backend a failed submission is rerun against
// when demo fallback is enabled.
func (h *Handlers) WithDemoFallback(demo processor.Backend) *Handlers {
	h.demo = demo
	return h
}

// resultResponse pairs a result with its rendered table page.
type resultResponse struct {
	Result *analysis.Result  `json:"result"`
	Table  analysis.PageView `json:"table"`
}

func resultView(res *analysis.Result, view analysis.ViewState) resultResponse {
	return resultResponse{
		Result: res,
		Table:  analysis.BuildPage(res.Type, res.Rows, view),
	}
}

// Health returns the liveness status and the active backend variant.
// GET /health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"backend": h.backend.Name(),
	})
}

// Status probes the processing engine behind the backend.
// GET /status
func (h *Handlers) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.backend.Status(r.Context())
	if err != nil {
		h.logger.Error("status probe failed",
			slog.String("backend", h.backend.Name()),
			slog.String("error", err.Error()),
		)
		WriteUpstreamError(w, "processing engine unreachable")
		return
	}

	WriteJSON(w, http.StatusOK, status)
}

// SubmitAnalysis runs an analysis against the processing backend and stores
// the normalized result as the owner's current one, replacing any previous
// result wholesale.
// POST /api/v1/analyses
func (h *Handlers) SubmitAnalysis(w http.ResponseWriter, r *http.Request) {
	owner := OwnerFromContext(r.Context())

	req, err := decodeAnalysisRequest(r, h.satellites)
	if err != nil {
		WriteValidationError(w, err.Error())
		return
	}
	if err := checkSatellite(req, h.satellites); err != nil {
		WriteInvalidParameter(w, err.Error())
		return
	}

	ctx := r.Context()
	raw, err := h.backend.RunAnalysis(ctx, req)
	if err != nil {
		var authErr *processor.AuthRequiredError
		if errors.As(err, &authErr) {
			WriteAuthRequired(w, "processing backend requires re-authentication", authErr.AuthURL)
			return
		}
		if !h.canFallBack() {
			h.logger.Error("analysis failed",
				slog.String("type", string(req.Type)),
				slog.String("backend", h.backend.Name()),
				slog.String("error", err.Error()),
			)
			WriteUpstreamError(w, "processing backend error")
			return
		}

		h.logger.Warn("analysis failed, falling back to demo data",
			slog.String("type", string(req.Type)),
			slog.String("backend", h.backend.Name()),
			slog.String("error", err.Error()),
		)
		raw, err = h.demo.RunAnalysis(ctx, req)
		if err != nil {
			h.logger.Error("demo fallback failed", slog.String("error", err.Error()))
			WriteInternalError(w, "analysis failed")
			return
		}
	}

	result, err := normalize.NormalizeRawResult(req, raw)
	if err != nil {
		h.logger.Error("failed to normalize analysis result",
			slog.String("type", string(req.Type)),
			slog.String("error", err.Error()),
		)
		WriteInternalError(w, "failed to process analysis result")
		return
	}

	h.store.Put(owner, result)
	h.logger.Info("analysis stored",
		slog.String("id", result.ID),
		slog.String("type", string(result.Type)),
		slog.String("satellite", result.Satellite),
		slog.Int("observations", len(result.TimeSeries)),
		slog.Bool("demo", result.DemoMode),
	)

	WriteJSON(w, http.StatusCreated, resultView(result, analysis.ViewState{Page: 1}))
}

// canFallBack reports whether a failed submission may rerun on the demo
// backend.
func (h *Handlers) canFallBack() bool {
	return h.cfg.Features.DemoFallback && h.demo != nil && h.backend.Name() != h.demo.Name()
}

// CurrentAnalysis returns the owner's current result.
// GET /api/v1/analyses/current
func (h *Handlers) CurrentAnalysis(w http.ResponseWriter, r *http.Request) {
	owner := OwnerFromContext(r.Context())

	res, view, err := h.store.Current(owner)
	if err != nil {
		WriteNotFound(w, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, resultView(res, view))
}

// GetAnalysis returns a result by ID. IDs from before the owner's latest
// submission read as not found.
// GET /api/v1/analyses/{analysisId}
func (h *Handlers) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	res, view, ok := h.lookupResult(w, r)
	if !ok {
		return
	}

	WriteJSON(w, http.StatusOK, resultView(res, view))
}

// Table returns the table page the result's view state selects.
// GET /api/v1/analyses/{analysisId}/table
func (h *Handlers) Table(w http.ResponseWriter, r *http.Request) {
	res, view, ok := h.lookupResult(w, r)
	if !ok {
		return
	}

	WriteJSON(w, http.StatusOK, analysis.BuildPage(res.Type, res.Rows, view))
}

// sortRequest is the body of a table sort call.
type sortRequest struct {
	Key string `json:"key"`
}

// SortTable applies a header click to the result's table: a new key sorts
// ascending, the active key flips direction. The page is kept.
// POST /api/v1/analyses/{analysisId}/table/sort
func (h *Handlers) SortTable(w http.ResponseWriter, r *http.Request) {
	res, _, ok := h.lookupResult(w, r)
	if !ok {
		return
	}

	var body sortRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteBadRequest(w, "invalid request body")
		return
	}
	if !validSortKey(res.Type, body.Key) {
		WriteInvalidParameter(w, fmt.Sprintf("unknown sort key %q", body.Key))
		return
	}

	owner := OwnerFromContext(r.Context())
	res, view, err := h.store.ToggleSort(owner, body.Key)
	if err != nil {
		WriteNotFound(w, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, analysis.BuildPage(res.Type, res.Rows, view))
}

// validSortKey reports whether key names a column of the type's table.
func validSortKey(t analysis.Type, key string) bool {
	for _, col := range analysis.Columns(t) {
		if col.Key == key {
			return true
		}
	}
	return false
}

// pageRequest is the body of a table page call: an absolute page number or
// a relative direction.
type pageRequest struct {
	Page      int    `json:"page"`
	Direction string `json:"direction"`
}

// PageTable moves the result's table to another page, clamped to the valid
// range.
// POST /api/v1/analyses/{analysisId}/table/page
func (h *Handlers) PageTable(w http.ResponseWriter, r *http.Request) {
	res, view, ok := h.lookupResult(w, r)
	if !ok {
		return
	}

	var body pageRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteBadRequest(w, "invalid request body")
		return
	}

	target := body.Page
	switch body.Direction {
	case "":
		if body.Page < 1 {
			WriteInvalidParameter(w, "page or direction is required")
			return
		}
	case "next":
		target = view.Page + 1
	case "prev":
		target = view.Page - 1
	default:
		WriteInvalidParameter(w, fmt.Sprintf("unknown direction %q", body.Direction))
		return
	}

	owner := OwnerFromContext(r.Context())
	res, view, err := h.store.SetPage(owner, target)
	if err != nil {
		WriteNotFound(w, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, analysis.BuildPage(res.Type, res.Rows, view))
}

// Chart returns the chart specification and series of a result.
// GET /api/v1/analyses/{analysisId}/chart
func (h *Handlers) Chart(w http.ResponseWriter, r *http.Request) {
	res, _, ok := h.lookupResult(w, r)
	if !ok {
		return
	}

	WriteJSON(w, http.StatusOK, analysis.BuildChartSpec(res))
}

// ChartHTML renders the result's chart as a self-contained interactive
// page, suitable for embedding in an iframe.
// GET /api/v1/analyses/{analysisId}/chart.html
func (h *Handlers) ChartHTML(w http.ResponseWriter, r *http.Request) {
	res, _, ok := h.lookupResult(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := render.ChartHTML(analysis.BuildChartSpec(res), w); err != nil {
		h.logger.Error("failed to render chart page",
			slog.String("id", res.ID),
			slog.String("error", err.Error()),
		)
	}
}

// PlotPNG downloads the result's plot image, rendered by the backend or
// locally when the backend cannot.
// GET /api/v1/analyses/{analysisId}/plot.png
func (h *Handlers) PlotPNG(w http.ResponseWriter, r *http.Request) {
	res, _, ok := h.lookupResult(w, r)
	if !ok {
		return
	}

	png, err := h.renderPlot(r.Context(), res)
	if err != nil {
		var authErr *processor.AuthRequiredError
		if errors.As(err, &authErr) {
			WriteAuthRequired(w, "processing backend requires re-authentication", authErr.AuthURL)
			return
		}
		h.logger.Error("plot rendering failed",
			slog.String("id", res.ID),
			slog.String("error", err.Error()),
		)
		WriteUpstreamError(w, "plot rendering failed")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", analysis.PlotFilename(res.Type, time.Now())))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(png); err != nil {
		h.logger.Error("failed to write plot image", slog.String("error", err.Error()))
	}
}

// renderPlot tries the backend renderer first. Backends without a plot
// endpoint always fall back to the local renderer; other failures do so
// only when demo fallback is enabled. Auth rejections surface to the
// caller.
func (h *Handlers) renderPlot(ctx context.Context, res *analysis.Result) ([]byte, error) {
	req := processor.PlotRequest{
		AnalysisType: res.Type,
		Polarization: res.Polarization,
		Satellite:    res.Satellite,
		Points:       res.TimeSeries,
	}

	png, err := h.backend.RenderPlot(ctx, req)
	if err == nil {
		return png, nil
	}

	var authErr *processor.AuthRequiredError
	if errors.As(err, &authErr) {
		return nil, err
	}
	if errors.Is(err, processor.ErrNotSupported) || h.cfg.Features.DemoFallback {
		h.logger.Warn("backend plot renderer unavailable, rendering locally",
			slog.String("id", res.ID),
			slog.String("error", err.Error()),
		)
		return render.PlotPNG(analysis.BuildChartSpec(res))
	}
	return nil, err
}

// TableCSV downloads the result's full table as CSV.
// GET /api/v1/analyses/{analysisId}/table.csv
func (h *Handlers) TableCSV(w http.ResponseWriter, r *http.Request) {
	res, _, ok := h.lookupResult(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", analysis.CSVFilename(res.Type, time.Now())))
	w.WriteHeader(http.StatusOK)
	if err := analysis.WriteCSV(w, res); err != nil {
		h.logger.Error("failed to write CSV export",
			slog.String("id", res.ID),
			slog.String("error", err.Error()),
		)
	}
}

// Scenes returns the result's observations as a STAC item collection.
// GET /api/v1/analyses/{analysisId}/scenes
func (h *Handlers) Scenes(w http.ResponseWriter, r *http.Request) {
	res, _, ok := h.lookupResult(w, r)
	if !ok {
		return
	}

	items, err := catalog.SceneItems(res, h.cfg.Catalog.BaseURL)
	if err != nil {
		h.logger.Error("failed to build scene items",
			slog.String("id", res.ID),
			slog.String("error", err.Error()),
		)
		WriteInternalError(w, "failed to build scene list")
		return
	}

	WriteGeoJSON(w, http.StatusOK, items)
}

// CreateMap builds an interactive map for the request parameters. Repeating
// the call with identical parameters returns the existing map without a
// backend call; a second call while a build runs is rejected with 409.
// POST /api/v1/maps
func (h *Handlers) CreateMap(w http.ResponseWriter, r *http.Request) {
	h.requestMap(w, r, h.maps.Request)
}

// RetryMap re-issues the map request even when the parameters match the
// current map, for maps that came back broken.
// POST /api/v1/maps/retry
func (h *Handlers) RetryMap(w http.ResponseWriter, r *http.Request) {
	h.requestMap(w, r, h.maps.Retry)
}

func (h *Handlers) requestMap(w http.ResponseWriter, r *http.Request, request func(context.Context, string, processor.MapParams) (*maps.View, error)) {
	params, err := decodeMapRequest(r, h.satellites)
	if err != nil {
		WriteValidationError(w, err.Error())
		return
	}

	owner := OwnerFromContext(r.Context())
	view, err := request(r.Context(), owner, params)
	if err != nil {
		if errors.Is(err, maps.ErrRequestInFlight) {
			WriteRequestInFlight(w, err.Error())
			return
		}
		var authErr *processor.AuthRequiredError
		if errors.As(err, &authErr) {
			WriteAuthRequired(w, "processing backend requires re-authentication", authErr.AuthURL)
			return
		}
		h.logger.Error("map request failed",
			slog.String("owner", owner),
			slog.String("error", err.Error()),
		)
		WriteUpstreamError(w, "map creation failed")
		return
	}

	WriteJSON(w, http.StatusOK, view)
}

// Assistant forwards a free-form question to the backend's analysis
// assistant.
// POST /api/v1/assistant
func (h *Handlers) Assistant(w http.ResponseWriter, r *http.Request) {
	if !h.cfg.Features.EnableAssistant {
		WriteNotSupported(w, "assistant endpoint is disabled")
		return
	}

	query, err := io.ReadAll(io.LimitReader(r.Body, maxAssistantQueryBytes))
	if err != nil {
		WriteBadRequest(w, "failed to read request body")
		return
	}
	if len(query) == 0 || !json.Valid(query) {
		WriteBadRequest(w, "request body must be JSON")
		return
	}

	reply, err := h.backend.QueryAssistant(r.Context(), query)
	if err != nil {
		if errors.Is(err, processor.ErrNotSupported) {
			WriteNotSupported(w, "assistant is not available on this backend")
			return
		}
		var authErr *processor.AuthRequiredError
		if errors.As(err, &authErr) {
			WriteAuthRequired(w, "processing backend requires re-authentication", authErr.AuthURL)
			return
		}
		h.logger.Error("assistant query failed", slog.String("error", err.Error()))
		WriteUpstreamError(w, "assistant query failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(reply); err != nil {
		h.logger.Error("failed to write assistant reply", slog.String("error", err.Error()))
	}
}

// Satellites lists the supported satellites as STAC collections.
// GET /api/v1/satellites
func (h *Handlers) Satellites(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, catalog.SatelliteList(h.satellites, h.cfg.Catalog.BaseURL))
}

// Satellite returns one satellite as a STAC collection.
// GET /api/v1/satellites/{satelliteId}
func (h *Handlers) Satellite(w http.ResponseWriter, r *http.Request) {
	sat, ok := h.lookupSatellite(w, r)
	if !ok {
		return
	}

	WriteJSON(w, http.StatusOK, catalog.SatelliteCollection(sat, h.cfg.Catalog.BaseURL))
}

// SatelliteParameters describes the request parameters the satellite
// accepts, as a JSON schema document.
// GET /api/v1/satellites/{satelliteId}/parameters
func (h *Handlers) SatelliteParameters(w http.ResponseWriter, r *http.Request) {
	sat, ok := h.lookupSatellite(w, r)
	if !ok {
		return
	}

	WriteJSON(w, http.StatusOK, catalog.ParameterSchema(sat, h.cfg.Catalog.BaseURL))
}

// lookupResult resolves the {analysisId} path parameter against the owner's
// store, writing the error response when it cannot.
func (h *Handlers) lookupResult(w http.ResponseWriter, r *http.Request) (*analysis.Result, analysis.ViewState, bool) {
	id := chi.URLParam(r, "analysisId")
	if id == "" {
		WriteBadRequest(w, "analysis ID is required")
		return nil, analysis.ViewState{}, false
	}

	owner := OwnerFromContext(r.Context())
	res, view, err := h.store.ByID(owner, id)
	if err != nil {
		WriteNotFound(w, fmt.Sprintf("analysis %q not found", id))
		return nil, analysis.ViewState{}, false
	}
	return res, view, true
}

// lookupSatellite resolves the {satelliteId} path parameter against the
// registry, writing the error response when it cannot.
func (h *Handlers) lookupSatellite(w http.ResponseWriter, r *http.Request) (*config.SatelliteConfig, bool) {
	id := chi.URLParam(r, "satelliteId")
	if id == "" {
		WriteBadRequest(w, "satellite ID is required")
		return nil, false
	}

	sat := h.satellites.Get(id)
	if sat == nil {
		WriteNotFound(w, fmt.Sprintf("satellite %q not found", id))
		return nil, false
	}
	return sat, true
}
