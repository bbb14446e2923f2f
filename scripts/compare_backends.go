// Script to compare rest and legacy processing backends for one NDVI run
package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/terravue/terravue/internal/analysis"
	"github.com/terravue/terravue/internal/normalize"
	"github.com/terravue/terravue/internal/processor"
	"github.com/terravue/terravue/pkg/geo"
)

const (
	restBaseURL   = "http://localhost:5000"
	legacyBaseURL = "http://localhost:5001"
)

// Test field in the Nile delta
const testAOI = "POLYGON((31.2 30.6,31.4 30.6,31.4 30.8,31.2 30.8,31.2 30.6))"

func main() {
	req := &analysis.Request{
		Type:      analysis.TypeNDVI,
		Satellite: "sentinel2",
		AOI:       geo.AOI{WKT: testAOI},
		Dates:     analysis.DateRange{StartYear: 2023, EndYear: 2024},
	}
	if err := req.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid request: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("=== Backend Comparison: NDVI over test field ===")
	fmt.Printf("AOI: %s\n", testAOI)
	fmt.Printf("Years: %d to %d\n\n", req.Dates.StartYear, req.Dates.EndYear)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	fmt.Println("Querying rest backend...")
	restRes, err := runAnalysis(ctx, processor.NewClient(restBaseURL, 2*time.Minute), req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rest query failed: %v\n", err)
	} else {
		printSummary("rest", restRes)
	}

	fmt.Println("Querying legacy backend...")
	legacyRes, err := runAnalysis(ctx, processor.NewLegacyClient(legacyBaseURL, 2*time.Minute), req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "legacy query failed: %v\n", err)
	} else {
		printSummary("legacy", legacyRes)
	}

	if restRes == nil || legacyRes == nil {
		os.Exit(1)
	}

	fmt.Println("=== Comparison ===")
	restCount := len(restRes.TimeSeries)
	legacyCount := len(legacyRes.TimeSeries)
	fmt.Printf("rest:   %d observations\n", restCount)
	fmt.Printf("legacy: %d observations\n", legacyCount)

	if restCount == legacyCount && meansClose(restRes, legacyRes) {
		fmt.Println("✓ Backends agree!")
		return
	}

	if restCount != legacyCount {
		fmt.Printf("✗ Observation count difference: %d\n", restCount-legacyCount)
	}
	if !meansClose(restRes, legacyRes) {
		fmt.Println("✗ Mean NDVI differs beyond tolerance")
	}
	fmt.Println("\nNote: Differences may occur due to:")
	fmt.Println("  - Different scene catalogs behind the two deployments")
	fmt.Println("  - Cloud masking defaults differing between API generations")
	fmt.Println("  - Rounding applied by the legacy snake_case API")
}

func runAnalysis(ctx context.Context, backend processor.Backend, req *analysis.Request) (*analysis.Result, error) {
	raw, err := backend.RunAnalysis(ctx, req)
	if err != nil {
		return nil, err
	}
	return normalize.NormalizeRawResult(req, raw)
}

func printSummary(name string, res *analysis.Result) {
	mean := "N/A"
	if res.Statistics.Mean != nil {
		mean = fmt.Sprintf("%.4f", *res.Statistics.Mean)
	}
	fmt.Printf("%s: %d observations, mean NDVI %s\n\n", name, len(res.TimeSeries), mean)
}

func meansClose(a, b *analysis.Result) bool {
	if a.Statistics.Mean == nil || b.Statistics.Mean == nil {
		return a.Statistics.Mean == b.Statistics.Mean
	}
	return math.Abs(*a.Statistics.Mean-*b.Statistics.Mean) < 0.005
}
