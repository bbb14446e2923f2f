// Package geo provides area-of-interest geometry handling: GeoJSON types,
// WKT conversion, and normalization of the accepted AOI input formats.
package geo

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidFormat is returned when an AOI arrives in none of the accepted
// representations (WKT string, GeoJSON polygon, raw coordinate ring).
var ErrInvalidFormat = errors.New("invalid geometry format")

// Geometry represents a GeoJSON geometry object. Coordinates stay raw until
// a typed accessor is called, since nesting depth depends on Type.
type Geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// Point returns the coordinates as [lon, lat].
// Returns error if geometry is not a Point.
func (g *Geometry) Point() ([]float64, error) {
	if g.Type != "Point" {
		return nil, fmt.Errorf("geometry is not a Point, got %s", g.Type)
	}
	var coords []float64
	if err := json.Unmarshal(g.Coordinates, &coords); err != nil {
		return nil, fmt.Errorf("failed to unmarshal Point coordinates: %w", err)
	}
	if len(coords) < 2 {
		return nil, fmt.Errorf("invalid Point coordinates: expected at least 2 values, got %d", len(coords))
	}
	return coords, nil
}

// Polygon returns the coordinates as rings of [lon, lat] pairs.
// Returns error if geometry is not a Polygon.
func (g *Geometry) Polygon() ([][][]float64, error) {
	if g.Type != "Polygon" {
		return nil, fmt.Errorf("geometry is not a Polygon, got %s", g.Type)
	}
	var coords [][][]float64
	if err := json.Unmarshal(g.Coordinates, &coords); err != nil {
		return nil, fmt.Errorf("failed to unmarshal Polygon coordinates: %w", err)
	}
	return coords, nil
}

// OuterRing returns the exterior ring of a Polygon geometry. Interior rings
// (holes) are dropped; the processing backend only accepts a single ring.
func (g *Geometry) OuterRing() ([][]float64, error) {
	rings, err := g.Polygon()
	if err != nil {
		return nil, err
	}
	if len(rings) == 0 || len(rings[0]) == 0 {
		return nil, fmt.Errorf("polygon has no exterior ring")
	}
	return rings[0], nil
}

// BBox computes the bounding box of the geometry.
// Returns [west, south, east, north].
func (g *Geometry) BBox() ([]float64, error) {
	return ComputeBBox(g)
}

// ComputeBBox computes the bounding box of a geometry.
// Returns [west, south, east, north].
func ComputeBBox(g *Geometry) ([]float64, error) {
	if g == nil {
		return nil, fmt.Errorf("geometry is nil")
	}

	minLon, minLat := math.Inf(1), math.Inf(1)
	maxLon, maxLat := math.Inf(-1), math.Inf(-1)
	extend := func(point []float64) {
		if len(point) < 2 {
			return
		}
		minLon = math.Min(minLon, point[0])
		maxLon = math.Max(maxLon, point[0])
		minLat = math.Min(minLat, point[1])
		maxLat = math.Max(maxLat, point[1])
	}

	switch g.Type {
	case "Point":
		coords, err := g.Point()
		if err != nil {
			return nil, err
		}
		return []float64{coords[0], coords[1], coords[0], coords[1]}, nil

	case "Polygon":
		rings, err := g.Polygon()
		if err != nil {
			return nil, err
		}
		for _, ring := range rings {
			for _, point := range ring {
				extend(point)
			}
		}

	default:
		return nil, fmt.Errorf("unsupported geometry type: %s", g.Type)
	}

	if math.IsInf(minLon, 0) || math.IsInf(minLat, 0) {
		return nil, fmt.Errorf("failed to compute bounding box: no valid coordinates found")
	}

	return []float64{minLon, minLat, maxLon, maxLat}, nil
}

// Center returns the [lon, lat] midpoint of the geometry's bounding box.
func Center(g *Geometry) ([]float64, error) {
	bbox, err := ComputeBBox(g)
	if err != nil {
		return nil, err
	}
	return []float64{(bbox[0] + bbox[2]) / 2, (bbox[1] + bbox[3]) / 2}, nil
}

// NewPolygonFromRing creates a Polygon geometry from a single exterior ring.
// The ring is closed if its last point does not repeat the first.
func NewPolygonFromRing(ring [][]float64) (*Geometry, error) {
	if len(ring) < 3 {
		return nil, fmt.Errorf("ring must have at least 3 points, got %d", len(ring))
	}
	for i, point := range ring {
		if len(point) < 2 {
			return nil, fmt.Errorf("invalid point at index %d: expected [lon, lat]", i)
		}
	}

	closed := ring
	first, last := ring[0], ring[len(ring)-1]
	if first[0] != last[0] || first[1] != last[1] {
		closed = append(append([][]float64{}, ring...), []float64{first[0], first[1]})
	}

	coordsJSON, err := json.Marshal([][][]float64{closed})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal polygon coordinates: %w", err)
	}

	return &Geometry{
		Type:        "Polygon",
		Coordinates: coordsJSON,
	}, nil
}

// NewPolygonFromBBox creates a rectangular polygon geometry from a bounding
// box [west, south, east, north].
func NewPolygonFromBBox(bbox []float64) (*Geometry, error) {
	if len(bbox) != 4 {
		return nil, fmt.Errorf("bbox must have 4 values [west, south, east, north], got %d", len(bbox))
	}

	west, south, east, north := bbox[0], bbox[1], bbox[2], bbox[3]

	return NewPolygonFromRing([][]float64{
		{west, south},
		{east, south},
		{east, north},
		{west, north},
		{west, south},
	})
}

// AOI is an area of interest as submitted by a client. Exactly one source
// field may be set; Validate enforces that before anything touches Payload.
type AOI struct {
	// WKT holds the area as WKT text, e.g. from a drawn rectangle.
	WKT string
	// Geometry holds the area as a GeoJSON Polygon.
	Geometry *Geometry
	// Ring holds the area as a bare [lon, lat] coordinate list.
	Ring [][]float64
}

// SourceCount reports how many of the input representations are populated.
func (a AOI) SourceCount() int {
	n := 0
	if strings.TrimSpace(a.WKT) != "" {
		n++
	}
	if a.Geometry != nil {
		n++
	}
	if len(a.Ring) > 0 {
		n++
	}
	return n
}

// IsZero reports whether no area was provided at all.
func (a AOI) IsZero() bool {
	return a.SourceCount() == 0
}

// Validate checks that exactly one source representation is set and that the
// set one is well formed.
func (a AOI) Validate() error {
	switch a.SourceCount() {
	case 0:
		return fmt.Errorf("no area of interest provided")
	case 1:
	default:
		return fmt.Errorf("multiple area sources provided, expected exactly one")
	}
	if _, err := a.Payload(); err != nil {
		return err
	}
	return nil
}

// Payload returns the value sent to the processing backend: a WKT string
// passes through unchanged, a GeoJSON Polygon reduces to its outer ring, and
// a bare ring passes through. Anything else is ErrInvalidFormat.
func (a AOI) Payload() (any, error) {
	switch {
	case strings.TrimSpace(a.WKT) != "":
		return strings.TrimSpace(a.WKT), nil
	case a.Geometry != nil:
		ring, err := a.Geometry.OuterRing()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
		}
		return ring, nil
	case len(a.Ring) > 0:
		for i, point := range a.Ring {
			if len(point) < 2 {
				return nil, fmt.Errorf("%w: point %d is not a [lon, lat] pair", ErrInvalidFormat, i)
			}
		}
		return a.Ring, nil
	}
	return nil, ErrInvalidFormat
}

// ToGeometry converts whichever source is set into a Polygon geometry, used
// for bounding boxes and scene footprints.
func (a AOI) ToGeometry() (*Geometry, error) {
	switch {
	case strings.TrimSpace(a.WKT) != "":
		return FromWKT(a.WKT)
	case a.Geometry != nil:
		return a.Geometry, nil
	case len(a.Ring) > 0:
		return NewPolygonFromRing(a.Ring)
	}
	return nil, ErrInvalidFormat
}

// ToWKT converts a GeoJSON geometry to WKT format.
// Supports Point and Polygon.
func ToWKT(g *Geometry) (string, error) {
	if g == nil {
		return "", fmt.Errorf("geometry is nil")
	}

	switch g.Type {
	case "Point":
		coords, err := g.Point()
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("POINT(%s %s)", formatFloat(coords[0]), formatFloat(coords[1])), nil
	case "Polygon":
		rings, err := g.Polygon()
		if err != nil {
			return "", err
		}
		parts := make([]string, 0, len(rings))
		for _, ring := range rings {
			points := make([]string, len(ring))
			for i, point := range ring {
				if len(point) < 2 {
					return "", fmt.Errorf("invalid point in polygon ring: expected at least 2 coordinates")
				}
				points[i] = fmt.Sprintf("%s %s", formatFloat(point[0]), formatFloat(point[1]))
			}
			parts = append(parts, "("+strings.Join(points, ",")+")")
		}
		return "POLYGON(" + strings.Join(parts, ",") + ")", nil
	default:
		return "", fmt.Errorf("unsupported geometry type for WKT conversion: %s", g.Type)
	}
}

// FromWKT parses a WKT string into a GeoJSON geometry.
// Supports Point and Polygon.
func FromWKT(wkt string) (*Geometry, error) {
	wkt = strings.TrimSpace(wkt)
	if wkt == "" {
		return nil, fmt.Errorf("empty WKT string")
	}

	upper := strings.ToUpper(wkt)
	switch {
	case strings.HasPrefix(upper, "POINT"):
		return parsePointWKT(wkt)
	case strings.HasPrefix(upper, "POLYGON"):
		return parsePolygonWKT(wkt)
	default:
		return nil, fmt.Errorf("unsupported WKT geometry type")
	}
}

func parsePointWKT(wkt string) (*Geometry, error) {
	start := strings.Index(wkt, "(")
	end := strings.LastIndex(wkt, ")")
	if start == -1 || end == -1 || start >= end {
		return nil, fmt.Errorf("invalid POINT WKT format")
	}

	coords, err := parseCoordPair(wkt[start+1 : end])
	if err != nil {
		return nil, fmt.Errorf("failed to parse POINT coordinates: %w", err)
	}

	coordsJSON, err := json.Marshal(coords)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal point coordinates: %w", err)
	}

	return &Geometry{
		Type:        "Point",
		Coordinates: coordsJSON,
	}, nil
}

func parsePolygonWKT(wkt string) (*Geometry, error) {
	start := strings.Index(wkt, "(")
	end := strings.LastIndex(wkt, ")")
	if start == -1 || end == -1 || start >= end {
		return nil, fmt.Errorf("invalid POLYGON WKT format")
	}

	ringStrings, err := splitGroups(wkt[start+1 : end])
	if err != nil {
		return nil, fmt.Errorf("failed to parse POLYGON rings: %w", err)
	}
	if len(ringStrings) == 0 {
		return nil, fmt.Errorf("POLYGON has no rings")
	}

	rings := make([][][]float64, 0, len(ringStrings))
	for _, ringStr := range ringStrings {
		ring, err := parseRing(ringStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse POLYGON rings: %w", err)
		}
		rings = append(rings, ring)
	}

	coordsJSON, err := json.Marshal(rings)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal polygon coordinates: %w", err)
	}

	return &Geometry{
		Type:        "Polygon",
		Coordinates: coordsJSON,
	}, nil
}

// parseCoordPair parses "lon lat" into [lon, lat].
func parseCoordPair(s string) ([]float64, error) {
	parts := strings.Fields(strings.TrimSpace(s))
	if len(parts) < 2 {
		return nil, fmt.Errorf("invalid coordinate pair: %s", s)
	}

	lon, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return nil, fmt.Errorf("invalid longitude: %s", parts[0])
	}

	lat, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return nil, fmt.Errorf("invalid latitude: %s", parts[1])
	}

	return []float64{lon, lat}, nil
}

// parseRing parses "(lon lat,lon lat,...)" into a coordinate ring.
func parseRing(s string) ([][]float64, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "(") || !strings.HasSuffix(s, ")") {
		return nil, fmt.Errorf("ring must be enclosed in parentheses")
	}

	coordPairs := strings.Split(s[1:len(s)-1], ",")
	ring := make([][]float64, 0, len(coordPairs))
	for _, pair := range coordPairs {
		coords, err := parseCoordPair(pair)
		if err != nil {
			return nil, err
		}
		ring = append(ring, coords)
	}

	return ring, nil
}

// splitGroups splits "(...),(...)" content into its parenthesized groups,
// tolerating whitespace and commas between groups.
func splitGroups(s string) ([]string, error) {
	var result []string
	var current strings.Builder
	depth := 0

	for i, ch := range s {
		switch ch {
		case '(':
			if depth == 0 {
				current.Reset()
			}
			current.WriteRune(ch)
			depth++
		case ')':
			current.WriteRune(ch)
			depth--
			if depth == 0 {
				result = append(result, current.String())
				current.Reset()
			} else if depth < 0 {
				return nil, fmt.Errorf("unmatched closing parenthesis at position %d", i)
			}
		default:
			if depth > 0 {
				current.WriteRune(ch)
			}
		}
	}

	if depth != 0 {
		return nil, fmt.Errorf("unmatched parentheses")
	}

	return result, nil
}

// formatFloat formats a float64 for WKT output without trailing zeros.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
