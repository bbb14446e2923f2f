package config

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/terravue/terravue/internal/analysis"
)

//go:embed satellites/*.json
var embeddedSatellites embed.FS

// SatelliteConfig describes one satellite dataset the gateway accepts
// analysis requests for. The embedded defaults cover the stock platforms;
// a deployment can replace them with JSON files via SATELLITES_DIR.
type SatelliteConfig struct {
	ID            string                   `json:"id"`
	Title         string                   `json:"title"`
	Description   string                   `json:"description"`
	Kind          string                   `json:"kind"` // "optical" or "radar"
	Platforms     []string                 `json:"platforms"`
	Instruments   []string                 `json:"instruments,omitempty"`
	Analyses      []analysis.Type          `json:"analyses"`
	Polarizations []analysis.Polarization  `json:"polarizations,omitempty"`
	GSDMeters     float64                  `json:"gsd_meters,omitempty"`
	RevisitDays   float64                  `json:"revisit_days,omitempty"`
	License       string                   `json:"license"`
	Extent        Extent                   `json:"extent"`
}

// IsRadar reports whether the satellite carries a SAR instrument.
func (s *SatelliteConfig) IsRadar() bool {
	return s.Kind == "radar"
}

// SupportsAnalysis reports whether the satellite can serve the analysis type.
func (s *SatelliteConfig) SupportsAnalysis(t analysis.Type) bool {
	for _, a := range s.Analyses {
		if a == t {
			return true
		}
	}
	return false
}

// Extent defines the spatial and temporal extent of a satellite dataset.
type Extent struct {
	Spatial  SpatialExtent  `json:"spatial"`
	Temporal TemporalExtent `json:"temporal"`
}

// SpatialExtent defines the bounding boxes for a dataset.
type SpatialExtent struct {
	BBox [][]float64 `json:"bbox"`
}

// TemporalExtent defines the time intervals for a dataset.
type TemporalExtent struct {
	Interval [][]any `json:"interval"`
}

// analysisDefaults is the satellite used for each analysis type when the
// request does not name one.
var analysisDefaults = map[analysis.Type]string{
	analysis.TypeNDVI:          "sentinel2",
	analysis.TypeLST:           "landsat8",
	analysis.TypeSAR:           "sentinel1",
	analysis.TypeComprehensive: "sentinel2",
}

// SatelliteRegistry holds all loaded satellite configurations indexed by ID.
type SatelliteRegistry struct {
	satellites map[string]*SatelliteConfig
	order      []string
}

// NewSatelliteRegistry creates a new empty satellite registry.
func NewSatelliteRegistry() *SatelliteRegistry {
	return &SatelliteRegistry{
		satellites: make(map[string]*SatelliteConfig),
	}
}

// DefaultSatellites loads the embedded satellite definitions.
func DefaultSatellites() (*SatelliteRegistry, error) {
	registry := NewSatelliteRegistry()

	entries, err := embeddedSatellites.ReadDir("satellites")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded satellite definitions: %w", err)
	}

	for _, entry := range entries {
		data, err := embeddedSatellites.ReadFile("satellites/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("failed to read embedded satellite %q: %w", entry.Name(), err)
		}

		satellite, err := parseSatellite(data)
		if err != nil {
			return nil, fmt.Errorf("invalid embedded satellite %q: %w", entry.Name(), err)
		}

		if err := registry.Add(satellite); err != nil {
			return nil, fmt.Errorf("failed to register embedded satellite %q: %w", entry.Name(), err)
		}
	}

	return registry, nil
}

// LoadSatellites loads satellite definitions from JSON files in the specified
// directory. Only files with a .json extension are processed.
func LoadSatellites(satellitesDir string) (*SatelliteRegistry, error) {
	registry := NewSatelliteRegistry()

	info, err := os.Stat(satellitesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to access satellites directory %q: %w", satellitesDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("satellites path %q is not a directory", satellitesDir)
	}

	entries, err := os.ReadDir(satellitesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read satellites directory %q: %w", satellitesDir, err)
	}

	loadedCount := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		filename := entry.Name()
		if !strings.HasSuffix(strings.ToLower(filename), ".json") {
			continue
		}

		filePath := filepath.Join(satellitesDir, filename)
		data, err := os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("failed to read satellite file %q: %w", filePath, err)
		}

		satellite, err := parseSatellite(data)
		if err != nil {
			return nil, fmt.Errorf("failed to load satellite from %q: %w", filePath, err)
		}

		if err := registry.Add(satellite); err != nil {
			return nil, fmt.Errorf("failed to add satellite from %q: %w", filePath, err)
		}

		loadedCount++
	}

	if loadedCount == 0 {
		return nil, fmt.Errorf("no satellite files found in %q", satellitesDir)
	}

	return registry, nil
}

// parseSatellite decodes and validates a single satellite configuration.
// Analysis types and polarizations are normalized to their canonical names.
func parseSatellite(data []byte) (*SatelliteConfig, error) {
	var satellite SatelliteConfig
	if err := json.Unmarshal(data, &satellite); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	for i, a := range satellite.Analyses {
		parsed, err := analysis.ParseType(string(a))
		if err != nil {
			return nil, fmt.Errorf("invalid analysis type %q: %w", a, err)
		}
		satellite.Analyses[i] = parsed
	}

	for i, p := range satellite.Polarizations {
		parsed, err := analysis.ParsePolarization(string(p))
		if err != nil {
			return nil, fmt.Errorf("invalid polarization %q: %w", p, err)
		}
		satellite.Polarizations[i] = parsed
	}

	if err := validateSatellite(&satellite); err != nil {
		return nil, fmt.Errorf("invalid satellite configuration: %w", err)
	}

	return &satellite, nil
}

// validateSatellite checks that a satellite configuration is valid.
func validateSatellite(s *SatelliteConfig) error {
	if s.ID == "" {
		return fmt.Errorf("satellite ID is required")
	}

	if s.Title == "" {
		return fmt.Errorf("satellite title is required")
	}

	if s.Description == "" {
		return fmt.Errorf("satellite description is required")
	}

	if s.Kind != "optical" && s.Kind != "radar" {
		return fmt.Errorf("satellite kind must be 'optical' or 'radar', got %q", s.Kind)
	}

	if len(s.Platforms) == 0 {
		return fmt.Errorf("satellite must list at least one platform")
	}

	if len(s.Analyses) == 0 {
		return fmt.Errorf("satellite must support at least one analysis type")
	}

	if s.Kind == "radar" && len(s.Polarizations) == 0 {
		return fmt.Errorf("radar satellite must list at least one polarization")
	}

	if s.License == "" {
		return fmt.Errorf("satellite license is required")
	}

	if len(s.Extent.Spatial.BBox) == 0 {
		return fmt.Errorf("satellite must have at least one spatial bbox")
	}

	for i, bbox := range s.Extent.Spatial.BBox {
		if len(bbox) != 4 && len(bbox) != 6 {
			return fmt.Errorf("bbox[%d] must have 4 or 6 values, got %d", i, len(bbox))
		}
	}

	if len(s.Extent.Temporal.Interval) == 0 {
		return fmt.Errorf("satellite must have at least one temporal interval")
	}

	for i, interval := range s.Extent.Temporal.Interval {
		if len(interval) != 2 {
			return fmt.Errorf("temporal interval[%d] must have exactly 2 values, got %d", i, len(interval))
		}
	}

	return nil
}

// Add registers a satellite in the registry.
// Returns an error if a satellite with the same ID already exists.
func (r *SatelliteRegistry) Add(satellite *SatelliteConfig) error {
	if satellite == nil {
		return fmt.Errorf("cannot add nil satellite")
	}

	if _, exists := r.satellites[satellite.ID]; exists {
		return fmt.Errorf("satellite with ID %q already exists", satellite.ID)
	}

	r.satellites[satellite.ID] = satellite
	r.order = append(r.order, satellite.ID)
	return nil
}

// Get retrieves a satellite by ID.
// Returns nil if the satellite does not exist.
func (r *SatelliteRegistry) Get(id string) *SatelliteConfig {
	return r.satellites[id]
}

// Has checks if a satellite with the given ID exists in the registry.
func (r *SatelliteRegistry) Has(id string) bool {
	_, exists := r.satellites[id]
	return exists
}

// All returns all satellites in registration order.
func (r *SatelliteRegistry) All() []*SatelliteConfig {
	satellites := make([]*SatelliteConfig, 0, len(r.order))
	for _, id := range r.order {
		satellites = append(satellites, r.satellites[id])
	}
	return satellites
}

// IDs returns all satellite IDs in registration order.
func (r *SatelliteRegistry) IDs() []string {
	ids := make([]string, len(r.order))
	copy(ids, r.order)
	return ids
}

// Count returns the number of satellites in the registry.
func (r *SatelliteRegistry) Count() int {
	return len(r.satellites)
}

// Supports reports whether the named satellite exists and can serve the
// analysis type.
func (r *SatelliteRegistry) Supports(id string, t analysis.Type) bool {
	satellite := r.Get(id)
	if satellite == nil {
		return false
	}
	return satellite.SupportsAnalysis(t)
}

// DefaultFor returns the satellite used for an analysis type when the
// request does not name one. When the preferred satellite is not registered
// it falls back to the first registered satellite supporting the type, and
// returns "" when none does.
func (r *SatelliteRegistry) DefaultFor(t analysis.Type) string {
	if id, ok := analysisDefaults[t]; ok && r.Supports(id, t) {
		return id
	}
	for _, id := range r.order {
		if r.Supports(id, t) {
			return id
		}
	}
	return ""
}

// ForAnalysis returns all satellites that support the analysis type.
func (r *SatelliteRegistry) ForAnalysis(t analysis.Type) []*SatelliteConfig {
	var matches []*SatelliteConfig
	for _, id := range r.order {
		if satellite := r.satellites[id]; satellite.SupportsAnalysis(t) {
			matches = append(matches, satellite)
		}
	}
	return matches
}
