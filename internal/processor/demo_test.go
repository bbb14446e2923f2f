package processor

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/terravue/terravue/internal/analysis"
)

func TestDemoBackend_Deterministic(t *testing.T) {
	demo := NewDemoBackend()
	req := testRequest(analysis.TypeNDVI)

	first, err := demo.RunAnalysis(context.Background(), req)
	if err != nil {
		t.Fatalf("RunAnalysis failed: %v", err)
	}
	second, err := demo.RunAnalysis(context.Background(), req)
	if err != nil {
		t.Fatalf("RunAnalysis failed: %v", err)
	}

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("Identical requests produced different results (-first +second):\n%s", diff)
	}
}

func TestDemoBackend_NDVISeries(t *testing.T) {
	demo := NewDemoBackend()

	req := testRequest(analysis.TypeNDVI)
	req.CloudMasking = analysis.CloudMasking{Enabled: true}

	result, err := demo.RunAnalysis(context.Background(), req)
	if err != nil {
		t.Fatalf("RunAnalysis failed: %v", err)
	}

	if !result.DemoMode {
		t.Error("Expected demo_mode flag set")
	}
	obs := result.Observations()
	// One observation per month of 2023.
	if len(obs) != 12 {
		t.Fatalf("Expected 12 monthly observations, got %d", len(obs))
	}

	for i, o := range obs {
		if o.NDVI == nil {
			t.Fatalf("Observation %d missing ndvi", i)
		}
		if *o.NDVI < -1 || *o.NDVI > 1 {
			t.Errorf("Observation %d ndvi out of range: %f", i, *o.NDVI)
		}
		if o.OriginalCloudCover == nil || o.AdjustedCloudCover == nil {
			t.Fatalf("Observation %d missing cloud cover fields", i)
		}
		if *o.AdjustedCloudCover >= *o.OriginalCloudCover {
			t.Errorf("Observation %d masking did not reduce cloud cover: %f >= %f",
				i, *o.AdjustedCloudCover, *o.OriginalCloudCover)
		}
		if o.CloudMaskingApplied == nil || !*o.CloudMaskingApplied {
			t.Errorf("Observation %d should report masking applied", i)
		}
		if !strings.HasPrefix(o.Image(), "S2A_MSIL2A_") {
			t.Errorf("Observation %d image ID has wrong prefix: %s", i, o.Image())
		}
	}

	if _, ok := result.Statistics["mean_ndvi"]; !ok {
		t.Error("Expected mean_ndvi in statistics")
	}
	if total, ok := result.Statistics["total_images"].(int); !ok || total != 12 {
		t.Errorf("Expected total_images 12, got %v", result.Statistics["total_images"])
	}
}

func TestDemoBackend_RadarSeries(t *testing.T) {
	demo := NewDemoBackend()

	req := testRequest(analysis.TypeSAR)
	req.Satellite = "sentinel1"
	req.Polarization = analysis.PolarizationVV

	result, err := demo.RunAnalysis(context.Background(), req)
	if err != nil {
		t.Fatalf("RunAnalysis failed: %v", err)
	}

	obs := result.Observations()
	if len(obs) == 0 {
		t.Fatal("Expected observations")
	}

	for i, o := range obs {
		if o.BackscatterVV == nil || o.BackscatterVH == nil || o.VVVHRatio == nil {
			t.Fatalf("Observation %d missing backscatter fields", i)
		}
		if *o.BackscatterVH >= *o.BackscatterVV {
			t.Errorf("Observation %d VH should sit below VV: %f >= %f", i, *o.BackscatterVH, *o.BackscatterVV)
		}
		want := "ASCENDING"
		if i%2 == 1 {
			want = "DESCENDING"
		}
		if o.OrbitDirection != want {
			t.Errorf("Observation %d expected orbit %s, got %s", i, want, o.OrbitDirection)
		}
	}

	if _, ok := result.Statistics["mean_vv"]; !ok {
		t.Error("Expected mean_vv in statistics")
	}
	if _, ok := result.Statistics["mean_vh"]; !ok {
		t.Error("Expected mean_vh in statistics")
	}
}

func TestDemoBackend_ComprehensiveCarriesBothValues(t *testing.T) {
	demo := NewDemoBackend()

	result, err := demo.RunAnalysis(context.Background(), testRequest(analysis.TypeComprehensive))
	if err != nil {
		t.Fatalf("RunAnalysis failed: %v", err)
	}

	obs := result.Observations()
	if len(obs) == 0 {
		t.Fatal("Expected observations")
	}
	for i, o := range obs {
		if o.NDVI == nil {
			t.Fatalf("Observation %d missing ndvi", i)
		}
		if o.LST == nil {
			t.Fatalf("Observation %d missing lst", i)
		}
	}

	if _, ok := result.Statistics["mean_ndvi"]; !ok {
		t.Error("Expected mean_ndvi in statistics")
	}
	if _, ok := result.Statistics["mean_lst"]; !ok {
		t.Error("Expected mean_lst in statistics")
	}
}

func TestDemoBackend_DateWindow(t *testing.T) {
	demo := NewDemoBackend()

	req := testRequest(analysis.TypeNDVI)
	req.Dates = analysis.DateRange{StartDate: "2023-03-10", EndDate: "2023-06-20"}

	result, err := demo.RunAnalysis(context.Background(), req)
	if err != nil {
		t.Fatalf("RunAnalysis failed: %v", err)
	}

	obs := result.Observations()
	// March through June, snapped to month starts.
	if len(obs) != 4 {
		t.Fatalf("Expected 4 observations, got %d", len(obs))
	}
	if obs[0].When() != "2023-03-01" {
		t.Errorf("Expected first observation 2023-03-01, got %s", obs[0].When())
	}
	if obs[3].When() != "2023-06-01" {
		t.Errorf("Expected last observation 2023-06-01, got %s", obs[3].When())
	}
}

func TestDemoBackend_AncillaryOperations(t *testing.T) {
	demo := NewDemoBackend()
	ctx := context.Background()

	mapURL, err := demo.CreateMap(ctx, MapParams{AnalysisType: analysis.TypeNDVI})
	if err != nil {
		t.Fatalf("CreateMap failed: %v", err)
	}
	if mapURL != "about:blank" {
		t.Errorf("Expected placeholder map URL, got %s", mapURL)
	}

	if _, err := demo.RenderPlot(ctx, PlotRequest{AnalysisType: analysis.TypeNDVI}); !errors.Is(err, ErrNotSupported) {
		t.Errorf("Expected ErrNotSupported from RenderPlot, got %v", err)
	}

	reply, err := demo.QueryAssistant(ctx, json.RawMessage(`{"query":"hi"}`))
	if err != nil {
		t.Fatalf("QueryAssistant failed: %v", err)
	}
	var parsed map[string]string
	if err := json.Unmarshal(reply, &parsed); err != nil {
		t.Fatalf("Assistant reply is not JSON: %v", err)
	}
	if parsed["response"] == "" {
		t.Error("Expected a canned response")
	}

	status, err := demo.Status(ctx)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if !status.Available || status.Backend != "demo" {
		t.Errorf("Expected available demo backend, got %+v", status)
	}
}
