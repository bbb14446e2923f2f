package geo

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
)

func polygonGeometry(t *testing.T, rings [][][]float64) *Geometry {
	t.Helper()
	coordsJSON, err := json.Marshal(rings)
	if err != nil {
		t.Fatalf("marshal rings: %v", err)
	}
	return &Geometry{Type: "Polygon", Coordinates: coordsJSON}
}

var testRing = [][]float64{
	{74.3, 31.5}, {74.4, 31.5}, {74.4, 31.6}, {74.3, 31.6}, {74.3, 31.5},
}

func TestPoint(t *testing.T) {
	coordsJSON, _ := json.Marshal([]float64{74.35, 31.55})
	g := &Geometry{Type: "Point", Coordinates: coordsJSON}

	result, err := g.Point()
	if err != nil {
		t.Fatalf("Point() error: %v", err)
	}
	if len(result) != 2 || result[0] != 74.35 || result[1] != 31.55 {
		t.Errorf("Point() = %v, want [74.35, 31.55]", result)
	}
}

func TestPoint_WrongType(t *testing.T) {
	g := polygonGeometry(t, [][][]float64{testRing})
	if _, err := g.Point(); err == nil {
		t.Error("Point() should return error for non-Point geometry")
	}
}

func TestPolygon(t *testing.T) {
	g := polygonGeometry(t, [][][]float64{testRing})

	result, err := g.Polygon()
	if err != nil {
		t.Fatalf("Polygon() error: %v", err)
	}
	if len(result) != 1 || len(result[0]) != 5 {
		t.Errorf("Polygon() structure incorrect: %v", result)
	}
}

func TestOuterRing(t *testing.T) {
	hole := [][]float64{
		{74.32, 31.52}, {74.38, 31.52}, {74.38, 31.58}, {74.32, 31.58}, {74.32, 31.52},
	}
	g := polygonGeometry(t, [][][]float64{testRing, hole})

	ring, err := g.OuterRing()
	if err != nil {
		t.Fatalf("OuterRing() error: %v", err)
	}
	if len(ring) != 5 || ring[0][0] != 74.3 {
		t.Errorf("OuterRing() = %v, want exterior ring only", ring)
	}
}

func TestOuterRing_Empty(t *testing.T) {
	g := polygonGeometry(t, [][][]float64{})
	if _, err := g.OuterRing(); err == nil {
		t.Error("OuterRing() should return error for empty polygon")
	}
}

func TestComputeBBox_Point(t *testing.T) {
	coordsJSON, _ := json.Marshal([]float64{74.35, 31.55})
	g := &Geometry{Type: "Point", Coordinates: coordsJSON}

	bbox, err := ComputeBBox(g)
	if err != nil {
		t.Fatalf("ComputeBBox() error: %v", err)
	}
	if !floatSlicesEqual(bbox, []float64{74.35, 31.55, 74.35, 31.55}) {
		t.Errorf("ComputeBBox() = %v", bbox)
	}
}

func TestComputeBBox_Polygon(t *testing.T) {
	g := polygonGeometry(t, [][][]float64{testRing})

	bbox, err := ComputeBBox(g)
	if err != nil {
		t.Fatalf("ComputeBBox() error: %v", err)
	}
	if !floatSlicesEqual(bbox, []float64{74.3, 31.5, 74.4, 31.6}) {
		t.Errorf("ComputeBBox() = %v, want [74.3 31.5 74.4 31.6]", bbox)
	}
}

func TestComputeBBox_NilGeometry(t *testing.T) {
	if _, err := ComputeBBox(nil); err == nil {
		t.Error("ComputeBBox(nil) should return error")
	}
}

func TestComputeBBox_UnsupportedType(t *testing.T) {
	g := &Geometry{Type: "GeometryCollection", Coordinates: json.RawMessage(`[]`)}
	if _, err := ComputeBBox(g); err == nil {
		t.Error("ComputeBBox() should return error for unsupported type")
	}
}

func TestCenter(t *testing.T) {
	g := polygonGeometry(t, [][][]float64{testRing})

	center, err := Center(g)
	if err != nil {
		t.Fatalf("Center() error: %v", err)
	}
	if !floatSlicesEqual(center, []float64{74.35, 31.55}) {
		t.Errorf("Center() = %v, want [74.35, 31.55]", center)
	}
}

func TestNewPolygonFromRing(t *testing.T) {
	g, err := NewPolygonFromRing(testRing)
	if err != nil {
		t.Fatalf("NewPolygonFromRing() error: %v", err)
	}
	if g.Type != "Polygon" {
		t.Errorf("Type = %s, want Polygon", g.Type)
	}

	rings, err := g.Polygon()
	if err != nil {
		t.Fatalf("Polygon() error: %v", err)
	}
	if len(rings) != 1 || len(rings[0]) != 5 {
		t.Errorf("polygon structure incorrect: %v", rings)
	}
}

func TestNewPolygonFromRing_ClosesOpenRing(t *testing.T) {
	open := [][]float64{
		{74.3, 31.5}, {74.4, 31.5}, {74.4, 31.6}, {74.3, 31.6},
	}
	g, err := NewPolygonFromRing(open)
	if err != nil {
		t.Fatalf("NewPolygonFromRing() error: %v", err)
	}

	ring, err := g.OuterRing()
	if err != nil {
		t.Fatalf("OuterRing() error: %v", err)
	}
	if len(ring) != 5 {
		t.Fatalf("ring length = %d, want 5 (closed)", len(ring))
	}
	first, last := ring[0], ring[len(ring)-1]
	if first[0] != last[0] || first[1] != last[1] {
		t.Errorf("ring not closed: first %v, last %v", first, last)
	}
	if len(open) != 4 {
		t.Errorf("input ring mutated, length now %d", len(open))
	}
}

func TestNewPolygonFromRing_TooShort(t *testing.T) {
	if _, err := NewPolygonFromRing([][]float64{{74.3, 31.5}, {74.4, 31.5}}); err == nil {
		t.Error("NewPolygonFromRing() should return error for fewer than 3 points")
	}
}

func TestNewPolygonFromBBox(t *testing.T) {
	bbox := []float64{74.3, 31.5, 74.4, 31.6}

	g, err := NewPolygonFromBBox(bbox)
	if err != nil {
		t.Fatalf("NewPolygonFromBBox() error: %v", err)
	}

	computed, err := ComputeBBox(g)
	if err != nil {
		t.Fatalf("ComputeBBox() error: %v", err)
	}
	if !floatSlicesEqual(computed, bbox) {
		t.Errorf("computed bbox %v does not match original %v", computed, bbox)
	}
}

func TestNewPolygonFromBBox_InvalidInput(t *testing.T) {
	if _, err := NewPolygonFromBBox([]float64{74.3, 31.5, 74.4}); err == nil {
		t.Error("NewPolygonFromBBox() should return error for 3-value bbox")
	}
}

func TestToWKT_Polygon(t *testing.T) {
	g := polygonGeometry(t, [][][]float64{testRing})

	wkt, err := ToWKT(g)
	if err != nil {
		t.Fatalf("ToWKT() error: %v", err)
	}

	expected := "POLYGON((74.3 31.5,74.4 31.5,74.4 31.6,74.3 31.6,74.3 31.5))"
	if wkt != expected {
		t.Errorf("ToWKT() = %s, want %s", wkt, expected)
	}
}

func TestToWKT_Point(t *testing.T) {
	coordsJSON, _ := json.Marshal([]float64{74.35, 31.55})
	g := &Geometry{Type: "Point", Coordinates: coordsJSON}

	wkt, err := ToWKT(g)
	if err != nil {
		t.Fatalf("ToWKT() error: %v", err)
	}
	if wkt != "POINT(74.35 31.55)" {
		t.Errorf("ToWKT() = %s, want POINT(74.35 31.55)", wkt)
	}
}

func TestToWKT_UnsupportedType(t *testing.T) {
	g := &Geometry{Type: "LineString", Coordinates: json.RawMessage(`[]`)}
	if _, err := ToWKT(g); err == nil {
		t.Error("ToWKT() should return error for unsupported type")
	}
}

func TestToWKT_NilGeometry(t *testing.T) {
	if _, err := ToWKT(nil); err == nil {
		t.Error("ToWKT(nil) should return error")
	}
}

func TestFromWKT_Polygon(t *testing.T) {
	g, err := FromWKT("POLYGON((74.3 31.5,74.4 31.5,74.4 31.6,74.3 31.6,74.3 31.5))")
	if err != nil {
		t.Fatalf("FromWKT() error: %v", err)
	}
	if g.Type != "Polygon" {
		t.Errorf("Type = %s, want Polygon", g.Type)
	}

	rings, err := g.Polygon()
	if err != nil {
		t.Fatalf("Polygon() error: %v", err)
	}
	if len(rings) != 1 || len(rings[0]) != 5 {
		t.Errorf("polygon structure incorrect: %v", rings)
	}
}

func TestFromWKT_PolygonWithHole(t *testing.T) {
	wkt := "POLYGON((74.3 31.5,74.4 31.5,74.4 31.6,74.3 31.6,74.3 31.5),(74.32 31.52,74.38 31.52,74.38 31.58,74.32 31.58,74.32 31.52))"

	g, err := FromWKT(wkt)
	if err != nil {
		t.Fatalf("FromWKT() error: %v", err)
	}

	rings, err := g.Polygon()
	if err != nil {
		t.Fatalf("Polygon() error: %v", err)
	}
	if len(rings) != 2 {
		t.Errorf("ring count = %d, want 2 (exterior + hole)", len(rings))
	}
}

func TestFromWKT_CaseInsensitive(t *testing.T) {
	for _, wkt := range []string{
		"POINT(74.35 31.55)",
		"point(74.35 31.55)",
		"Point(74.35 31.55)",
	} {
		g, err := FromWKT(wkt)
		if err != nil {
			t.Errorf("FromWKT(%s) error: %v", wkt, err)
			continue
		}
		if g.Type != "Point" {
			t.Errorf("FromWKT(%s) Type = %s, want Point", wkt, g.Type)
		}
	}
}

func TestFromWKT_WithWhitespace(t *testing.T) {
	g, err := FromWKT("  POINT  (  74.35   31.55  )  ")
	if err != nil {
		t.Fatalf("FromWKT() error: %v", err)
	}

	coords, err := g.Point()
	if err != nil {
		t.Fatalf("Point() error: %v", err)
	}
	if !floatSlicesEqual(coords, []float64{74.35, 31.55}) {
		t.Errorf("coords = %v, want [74.35, 31.55]", coords)
	}
}

func TestFromWKT_InvalidFormat(t *testing.T) {
	for _, wkt := range []string{
		"",
		"INVALID",
		"POINT",
		"POINT(",
		"POINT()",
		"POINT(74.3)",
		"POLYGON",
		"LINESTRING(74.3 31.5,74.4 31.6)",
	} {
		if _, err := FromWKT(wkt); err == nil {
			t.Errorf("FromWKT(%q) should return error", wkt)
		}
	}
}

func TestWKTRoundTrip_Polygon(t *testing.T) {
	original := polygonGeometry(t, [][][]float64{testRing})

	wkt, err := ToWKT(original)
	if err != nil {
		t.Fatalf("ToWKT() error: %v", err)
	}
	result, err := FromWKT(wkt)
	if err != nil {
		t.Fatalf("FromWKT() error: %v", err)
	}

	originalBBox, _ := ComputeBBox(original)
	resultBBox, _ := ComputeBBox(result)
	if !floatSlicesEqual(originalBBox, resultBBox) {
		t.Errorf("round trip bbox mismatch: %v != %v", originalBBox, resultBBox)
	}
}

func TestAOI_SourceCount(t *testing.T) {
	tests := []struct {
		name string
		aoi  AOI
		want int
	}{
		{"empty", AOI{}, 0},
		{"wkt only", AOI{WKT: "POLYGON((0 0,1 0,1 1,0 0))"}, 1},
		{"whitespace wkt is empty", AOI{WKT: "   "}, 0},
		{"ring only", AOI{Ring: testRing}, 1},
		{"wkt and ring", AOI{WKT: "POINT(0 0)", Ring: testRing}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.aoi.SourceCount(); got != tt.want {
				t.Errorf("SourceCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAOI_Validate(t *testing.T) {
	if err := (AOI{}).Validate(); err == nil {
		t.Error("Validate() should reject empty AOI")
	}
	if err := (AOI{WKT: "POINT(0 0)", Ring: testRing}).Validate(); err == nil {
		t.Error("Validate() should reject multiple sources")
	}
	if err := (AOI{Ring: testRing}).Validate(); err != nil {
		t.Errorf("Validate() error on valid ring: %v", err)
	}
}

func TestAOI_Payload_WKTPassthrough(t *testing.T) {
	wkt := "POLYGON((74.3 31.5,74.4 31.5,74.4 31.6,74.3 31.5))"
	payload, err := AOI{WKT: "  " + wkt + " "}.Payload()
	if err != nil {
		t.Fatalf("Payload() error: %v", err)
	}
	if payload != wkt {
		t.Errorf("Payload() = %v, want trimmed WKT string", payload)
	}
}

func TestAOI_Payload_GeoJSONOuterRing(t *testing.T) {
	hole := [][]float64{
		{74.32, 31.52}, {74.38, 31.52}, {74.38, 31.58}, {74.32, 31.52},
	}
	coordsJSON, _ := json.Marshal([][][]float64{testRing, hole})
	aoi := AOI{Geometry: &Geometry{Type: "Polygon", Coordinates: coordsJSON}}

	payload, err := aoi.Payload()
	if err != nil {
		t.Fatalf("Payload() error: %v", err)
	}
	ring, ok := payload.([][]float64)
	if !ok {
		t.Fatalf("Payload() type = %T, want [][]float64", payload)
	}
	if len(ring) != 5 {
		t.Errorf("Payload() ring length = %d, want outer ring only (5)", len(ring))
	}
}

func TestAOI_Payload_RingPassthrough(t *testing.T) {
	payload, err := AOI{Ring: testRing}.Payload()
	if err != nil {
		t.Fatalf("Payload() error: %v", err)
	}
	ring, ok := payload.([][]float64)
	if !ok || len(ring) != len(testRing) {
		t.Errorf("Payload() = %v, want ring passthrough", payload)
	}
}

func TestAOI_Payload_InvalidFormat(t *testing.T) {
	coordsJSON, _ := json.Marshal([]float64{74.35, 31.55})
	cases := map[string]AOI{
		"empty":           {},
		"non-polygon":     {Geometry: &Geometry{Type: "Point", Coordinates: coordsJSON}},
		"ragged ring":     {Ring: [][]float64{{74.3, 31.5}, {74.4}}},
		"empty polygon":   {Geometry: &Geometry{Type: "Polygon", Coordinates: json.RawMessage(`[]`)}},
		"bad coordinates": {Geometry: &Geometry{Type: "Polygon", Coordinates: json.RawMessage(`"oops"`)}},
	}
	for name, aoi := range cases {
		if _, err := aoi.Payload(); !errors.Is(err, ErrInvalidFormat) {
			t.Errorf("%s: Payload() error = %v, want ErrInvalidFormat", name, err)
		}
	}
}

func TestAOI_ToGeometry(t *testing.T) {
	fromRing, err := AOI{Ring: testRing}.ToGeometry()
	if err != nil {
		t.Fatalf("ToGeometry(ring) error: %v", err)
	}
	fromWKT, err := AOI{WKT: "POLYGON((74.3 31.5,74.4 31.5,74.4 31.6,74.3 31.6,74.3 31.5))"}.ToGeometry()
	if err != nil {
		t.Fatalf("ToGeometry(wkt) error: %v", err)
	}

	ringBBox, _ := ComputeBBox(fromRing)
	wktBBox, _ := ComputeBBox(fromWKT)
	if !floatSlicesEqual(ringBBox, wktBBox) {
		t.Errorf("bbox mismatch between sources: %v != %v", ringBBox, wktBBox)
	}
}

func TestJSONMarshaling(t *testing.T) {
	original := polygonGeometry(t, [][][]float64{testRing})

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("json.Marshal() error: %v", err)
	}
	if !strings.Contains(string(data), `"type":"Polygon"`) {
		t.Errorf("marshaled geometry missing type: %s", data)
	}

	var result Geometry
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("json.Unmarshal() error: %v", err)
	}

	originalBBox, _ := ComputeBBox(original)
	resultBBox, _ := ComputeBBox(&result)
	if !floatSlicesEqual(originalBBox, resultBBox) {
		t.Errorf("bbox mismatch after JSON round trip: %v != %v", originalBBox, resultBBox)
	}
}

// floatSlicesEqual compares float slices with tolerance.
func floatSlicesEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	const epsilon = 1e-9
	for i := range a {
		if math.Abs(a[i]-b[i]) > epsilon {
			return false
		}
	}
	return true
}
