package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/terravue/terravue/internal/analysis"
)

const maxDemoObservations = 120

// DemoBackend fabricates plausible analysis results without any network
// access. The same request always produces the same series, so downstream
// sorting, paging and chart behavior stay reproducible.
type DemoBackend struct{}

// NewDemoBackend creates the offline synthetic backend.
func NewDemoBackend() *DemoBackend {
	return &DemoBackend{}
}

// Name returns the backend variant name.
func (d *DemoBackend) Name() string {
	return "demo"
}

// RunAnalysis generates a monthly synthetic series over the requested
// window. Results are flagged DemoMode so callers can surface the fallback.
func (d *DemoBackend) RunAnalysis(ctx context.Context, req *analysis.Request) (*RawResult, error) {
	start, end, err := demoWindow(req.Dates)
	if err != nil {
		return nil, err
	}

	rng := demoRand(req)
	series := make([]RawObservation, 0, 32)
	for t := start; !t.After(end) && len(series) < maxDemoObservations; t = t.AddDate(0, 1, 0) {
		series = append(series, demoObservation(req, t, len(series), rng))
	}

	raw := &RawResult{
		Success:      analysis.Bool(true),
		DemoMode:     true,
		AnalysisType: string(req.Type),
		Satellite:    req.Satellite,
		TimeSeries:   series,
		Statistics:   demoStatistics(req, series),
	}
	return raw, nil
}

// CreateMap returns a stable placeholder. The demo backend has no tile
// server to point at.
func (d *DemoBackend) CreateMap(ctx context.Context, params MapParams) (string, error) {
	return "about:blank", nil
}

// RenderPlot defers to the local renderer.
func (d *DemoBackend) RenderPlot(ctx context.Context, req PlotRequest) ([]byte, error) {
	return nil, fmt.Errorf("time series plot: %w", ErrNotSupported)
}

// QueryAssistant answers with a canned reply.
func (d *DemoBackend) QueryAssistant(ctx context.Context, query json.RawMessage) (json.RawMessage, error) {
	reply := map[string]string{
		"response": "Demo mode is active, so this assistant can only describe the synthetic data on screen. Connect a processing backend for real answers.",
	}
	encoded, err := json.Marshal(reply)
	if err != nil {
		return nil, err
	}
	return encoded, nil
}

// Status always reports ready.
func (d *DemoBackend) Status(ctx context.Context) (*EngineStatus, error) {
	return &EngineStatus{Available: true, Backend: d.Name(), Detail: "synthetic data only"}, nil
}

// demoWindow resolves the request dates, defaulting to the last year when
// the range is open.
func demoWindow(dates analysis.DateRange) (time.Time, time.Time, error) {
	startStr, endStr := dates.Bounds()
	if startStr == "" || endStr == "" {
		end := time.Date(2025, time.December, 1, 0, 0, 0, 0, time.UTC)
		return end.AddDate(-1, 0, 0), end, nil
	}

	start, err := time.Parse("2006-01-02", startStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start date: %w", err)
	}
	end, err := time.Parse("2006-01-02", endStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end date: %w", err)
	}
	// Snap to month starts so the cadence is uniform.
	start = time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	end = time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, end, nil
}

// demoRand seeds a generator from the request so identical requests yield
// identical series.
func demoRand(req *analysis.Request) *rand.Rand {
	payload, _ := req.AOI.Payload()
	start, end := req.Dates.Bounds()

	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s|%v|%s|%s|%s", req.Type, req.Satellite, payload, start, end, req.Polarization)
	seed := h.Sum64()
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func demoObservation(req *analysis.Request, t time.Time, index int, rng *rand.Rand) RawObservation {
	obs := RawObservation{
		Date:    t.Format("2006-01-02"),
		ImageID: demoImageID(req.Satellite, t, index),
	}

	// Seasonal phase peaks mid-year in the northern hemisphere.
	phase := 2 * math.Pi * (float64(t.Month()) - 3) / 12

	switch {
	case req.Type.IsRadar():
		vv := -11 + 2.5*math.Sin(phase) + rng.Float64()*1.2 - 0.6
		vh := vv - 6.5 + rng.Float64()*0.8 - 0.4
		obs.BackscatterVV = analysis.Float(round2(vv))
		obs.BackscatterVH = analysis.Float(round2(vh))
		obs.VVVHRatio = analysis.Float(round3(vv / vh))
		if index%2 == 0 {
			obs.OrbitDirection = "ASCENDING"
		} else {
			obs.OrbitDirection = "DESCENDING"
		}
	default:
		cloud := 10 + rng.Float64()*50
		obs.OriginalCloudCover = analysis.Float(round1(cloud))
		masked := req.CloudMasking.Enabled
		if masked {
			obs.AdjustedCloudCover = analysis.Float(round1(cloud * 0.35))
		}
		obs.CloudMaskingApplied = analysis.Bool(masked)

		if req.Type == analysis.TypeNDVI || req.Type == analysis.TypeComprehensive {
			ndvi := 0.35 + 0.25*math.Sin(phase) + rng.Float64()*0.06 - 0.03
			obs.NDVI = analysis.Float(round4(clamp(ndvi, -1, 1)))
		}
		if req.Type == analysis.TypeLST || req.Type == analysis.TypeComprehensive {
			lst := 22 + 9*math.Sin(phase) + rng.Float64()*2 - 1
			obs.LST = analysis.Float(round2(lst))
		}
	}
	return obs
}

func demoImageID(satellite string, t time.Time, index int) string {
	prefix := "SCENE"
	switch strings.ToLower(satellite) {
	case "sentinel2", "sentinel-2", "s2":
		prefix = "S2A_MSIL2A"
	case "landsat8", "landsat-8", "l8":
		prefix = "LC08_L2SP"
	case "sentinel1", "sentinel-1", "s1":
		prefix = "S1A_IW_GRDH"
	case "modis":
		prefix = "MOD09GA"
	}
	return fmt.Sprintf("%s_%s_%03d", prefix, t.Format("20060102"), index+1)
}

// demoStatistics summarizes the series in the same wire shape the real
// backends use, keyed per analysis family.
func demoStatistics(req *analysis.Request, series []RawObservation) map[string]any {
	out := map[string]any{"total_images": len(series)}

	collect := func(pick func(RawObservation) *float64) stats.Float64Data {
		values := make(stats.Float64Data, 0, len(series))
		for _, obs := range series {
			if v := pick(obs); v != nil {
				values = append(values, *v)
			}
		}
		return values
	}
	put := func(prefix string, values stats.Float64Data) {
		if len(values) == 0 {
			return
		}
		if mean, err := stats.Mean(values); err == nil {
			out["mean_"+prefix] = round4(mean)
		}
		if min, err := stats.Min(values); err == nil {
			out["min_"+prefix] = round4(min)
		}
		if max, err := stats.Max(values); err == nil {
			out["max_"+prefix] = round4(max)
		}
		if sd, err := stats.StandardDeviation(values); err == nil {
			out["std_dev_"+prefix] = round4(sd)
		}
	}

	switch {
	case req.Type.IsRadar():
		put("vv", collect(func(o RawObservation) *float64 { return o.BackscatterVV }))
		put("vh", collect(func(o RawObservation) *float64 { return o.BackscatterVH }))
	case req.Type == analysis.TypeLST:
		put("lst", collect(func(o RawObservation) *float64 { return o.LST }))
	default:
		put("ndvi", collect(func(o RawObservation) *float64 { return o.NDVI }))
		if req.Type == analysis.TypeComprehensive {
			put("lst", collect(func(o RawObservation) *float64 { return o.LST }))
		}
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
