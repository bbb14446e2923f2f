//go:build integration

// Package integration provides live integration tests against a running
// processing engine.
// Run with: go test -v ./internal/integration -tags=integration
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/terravue/terravue/internal/analysis"
	"github.com/terravue/terravue/internal/api"
	"github.com/terravue/terravue/internal/config"
	"github.com/terravue/terravue/internal/maps"
	"github.com/terravue/terravue/internal/processor"
	"github.com/terravue/terravue/internal/results"
	"github.com/terravue/terravue/pkg/geo"
)

// TestConfig holds configuration for integration tests
type TestConfig struct {
	ProcessorURL string
	Timeout      time.Duration
}

func getTestConfig() *TestConfig {
	processorURL := os.Getenv("TERRAVUE_PROCESSOR_URL")
	if processorURL == "" {
		processorURL = "http://localhost:5000"
	}
	return &TestConfig{
		ProcessorURL: processorURL,
		Timeout:      120 * time.Second,
	}
}

// testAOI is a small agricultural area in the Nile delta with year-round
// optical and radar coverage.
const testAOI = "POLYGON((31.2 30.6,31.4 30.6,31.4 30.8,31.2 30.8,31.2 30.6))"

func analysisBody(analysisType string) string {
	return fmt.Sprintf(`{"analysisType":%q,"aoi":%q,"startYear":2023,"endYear":2024}`, analysisType, testAOI)
}

// setupTestServer creates a test server with the full gateway stack wired to
// the live processing engine.
func setupTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	tc := getTestConfig()

	// Set required env vars; fallback off so engine errors surface
	os.Setenv("CATALOG_BASE_URL", "http://test.local")
	os.Setenv("PROCESSOR_BASE_URL", tc.ProcessorURL)
	os.Setenv("FEATURE_DEMO_FALLBACK", "false")
	defer os.Unsetenv("CATALOG_BASE_URL")
	defer os.Unsetenv("PROCESSOR_BASE_URL")
	defer os.Unsetenv("FEATURE_DEMO_FALLBACK")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	satellites, err := config.DefaultSatellites()
	if err != nil {
		t.Fatalf("failed to load satellites: %v", err)
	}

	store := results.NewStore(cfg.Results.TTL, cfg.Results.SweepInterval)
	t.Cleanup(store.Stop)

	client := processor.NewClient(cfg.Processor.BaseURL, cfg.Processor.Timeout).WithLogger(logger)
	requester := maps.NewRequester(client, cfg.Processor.MapStaticBase()).WithLogger(logger)
	handlers := api.NewHandlers(cfg, client, satellites, store, requester, logger)
	router := api.NewRouter(handlers, logger)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

// postJSON posts a JSON body with a fixed session so every request in a test
// shares one owner.
func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()

	req, err := http.NewRequest("POST", url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(api.SessionHeader, "integration-suite")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func getJSON(t *testing.T, url string) *http.Response {
	t.Helper()

	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set(api.SessionHeader, "integration-suite")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func decodeMap(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()

	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return result
}

// =============================================================================
// Processor Client Direct Tests
// =============================================================================

func TestProcessorClientAnalysis(t *testing.T) {
	tc := getTestConfig()
	client := processor.NewClient(tc.ProcessorURL, tc.Timeout)
	ctx := context.Background()

	t.Run("ndvi analysis returns observations", func(t *testing.T) {
		req := &analysis.Request{
			Type:      analysis.TypeNDVI,
			Satellite: "sentinel2",
			AOI:       geo.AOI{WKT: testAOI},
			Dates:     analysis.DateRange{StartYear: 2023, EndYear: 2024},
		}
		if err := req.Validate(); err != nil {
			t.Fatalf("invalid request: %v", err)
		}

		raw, err := client.RunAnalysis(ctx, req)
		if err != nil {
			t.Fatalf("analysis failed: %v", err)
		}

		obs := raw.TimeSeries
		if len(obs) == 0 {
			obs = raw.Data
		}
		t.Logf("Received %d observations", len(obs))

		if len(obs) == 0 {
			t.Error("expected at least one observation for the test field")
		}
	})

	t.Run("engine status is reachable", func(t *testing.T) {
		status, err := client.Status(ctx)
		if err != nil {
			t.Fatalf("status probe failed: %v", err)
		}
		t.Logf("Engine: available=%t backend=%s", status.Available, status.Backend)
	})
}

// =============================================================================
// Gateway Analysis Flow Tests
// =============================================================================

func TestGatewayAnalysisFlow(t *testing.T) {
	server := setupTestServer(t)

	resp := postJSON(t, server.URL+"/api/v1/analyses", analysisBody("ndvi"))
	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Fatalf("submit failed: status=%d body=%s", resp.StatusCode, body)
	}
	submitted := decodeMap(t, resp)

	result, ok := submitted["result"].(map[string]interface{})
	if !ok {
		t.Fatal("missing result in the submission response")
	}
	analysisID, _ := result["id"].(string)
	if analysisID == "" {
		t.Fatal("missing result ID")
	}

	series, _ := result["timeSeries"].([]interface{})
	t.Logf("Analysis %s: %d observations", analysisID, len(series))
	if len(series) == 0 {
		t.Skip("no observations for the test field, skipping table checks")
	}

	t.Run("table pagination is consistent", func(t *testing.T) {
		page := decodeMap(t, getJSON(t, server.URL+"/api/v1/analyses/"+analysisID+"/table"))

		totalRows := int(page["totalRows"].(float64))
		totalPages := int(page["totalPages"].(float64))
		pageSize := int(page["pageSize"].(float64))

		if pageSize != 10 {
			t.Errorf("expected page size 10, got %d", pageSize)
		}
		wantPages := (totalRows + pageSize - 1) / pageSize
		if totalPages != wantPages {
			t.Errorf("expected %d pages for %d rows, got %d", wantPages, totalRows, totalPages)
		}

		rows := page["rows"].([]interface{})
		if totalRows < pageSize && len(rows) != totalRows {
			t.Errorf("expected all %d rows on one page, got %d", totalRows, len(rows))
		}
	})

	t.Run("sorting by date orders rows", func(t *testing.T) {
		resp := postJSON(t, server.URL+"/api/v1/analyses/"+analysisID+"/table/sort", `{"key":"date"}`)
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			t.Fatalf("sort failed: status=%d body=%s", resp.StatusCode, body)
		}
		page := decodeMap(t, resp)

		rows := page["rows"].([]interface{})
		var last string
		for i, r := range rows {
			row := r.(map[string]interface{})
			date, _ := row["date"].(string)
			if i > 0 && date < last {
				t.Errorf("rows not ascending by date: %q after %q", date, last)
			}
			last = date
		}
	})

	t.Run("chart spec matches the series", func(t *testing.T) {
		chart := decodeMap(t, getJSON(t, server.URL+"/api/v1/analyses/"+analysisID+"/chart"))

		points, _ := chart["points"].([]interface{})
		if len(points) != len(series) {
			t.Errorf("expected %d chart points, got %d", len(series), len(points))
		}
		if chart["valueKey"] != "ndvi" {
			t.Errorf("expected value key 'ndvi', got %v", chart["valueKey"])
		}
	})

	t.Run("csv export has header plus all rows", func(t *testing.T) {
		resp := getJSON(t, server.URL+"/api/v1/analyses/"+analysisID+"/table.csv")
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("csv export failed: status=%d", resp.StatusCode)
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			t.Fatalf("failed to read export: %v", err)
		}

		lines := strings.Split(strings.TrimSpace(string(body)), "\n")
		if len(lines) != len(series)+1 {
			t.Errorf("expected %d CSV lines, got %d", len(series)+1, len(lines))
		}
		if !strings.HasPrefix(lines[0], "Date,Image ID") {
			t.Errorf("unexpected CSV header: %s", lines[0])
		}
	})

	t.Run("scenes render as a feature collection", func(t *testing.T) {
		scenes := decodeMap(t, getJSON(t, server.URL+"/api/v1/analyses/"+analysisID+"/scenes"))

		if scenes["type"] != "FeatureCollection" {
			t.Errorf("expected a FeatureCollection, got %v", scenes["type"])
		}
		features, _ := scenes["features"].([]interface{})
		t.Logf("Scenes: %d features", len(features))
	})
}

// =============================================================================
// Map Flow Tests
// =============================================================================

func TestGatewayMapFlow(t *testing.T) {
	server := setupTestServer(t)

	resp := postJSON(t, server.URL+"/api/v1/maps", analysisBody("ndvi"))
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Skipf("map creation unavailable: status=%d body=%s", resp.StatusCode, body)
	}
	first := decodeMap(t, resp)

	mapURL, _ := first["mapUrl"].(string)
	if mapURL == "" {
		t.Fatal("expected a map URL")
	}
	t.Logf("Map built: %s (generation %v)", mapURL, first["generation"])

	t.Run("identical repost reuses the map", func(t *testing.T) {
		second := decodeMap(t, postJSON(t, server.URL+"/api/v1/maps", analysisBody("ndvi")))

		if second["cached"] != true {
			t.Error("expected the repost to hit the cached map")
		}
		if second["generation"] != first["generation"] {
			t.Errorf("expected generation %v, got %v", first["generation"], second["generation"])
		}
	})

	t.Run("retry forces a rebuild", func(t *testing.T) {
		retried := decodeMap(t, postJSON(t, server.URL+"/api/v1/maps/retry", analysisBody("ndvi")))

		if retried["cached"] == true {
			t.Error("expected retry to rebuild, not reuse the cache")
		}
	})
}

// =============================================================================
// Engine Status Tests
// =============================================================================

func TestGatewayStatus(t *testing.T) {
	server := setupTestServer(t)

	resp := getJSON(t, server.URL+"/status")
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Fatalf("status failed: status=%d body=%s", resp.StatusCode, body)
	}
	status := decodeMap(t, resp)

	t.Logf("Gateway status: %v", status)
	if status["available"] != true {
		t.Error("expected the engine to report available")
	}
}
