package catalog

import (
	"fmt"
	"strings"

	gostac "github.com/planetlabs/go-stac"

	"github.com/terravue/terravue/internal/config"
)

// SatelliteCollection converts a satellite registry entry to a STAC Collection.
func SatelliteCollection(s *config.SatelliteConfig, baseURL string) *gostac.Collection {
	baseURL = strings.TrimRight(baseURL, "/")

	collection := &gostac.Collection{
		Version:     StacVersion,
		Id:          s.ID,
		Title:       s.Title,
		Description: s.Description,
		License:     s.License,
		Links:       make([]*gostac.Link, 0),
		Assets:      make(map[string]*gostac.Asset),
		Summaries:   make(map[string]any),
	}

	collection.Extent = &gostac.Extent{
		Spatial: &gostac.SpatialExtent{
			Bbox: s.Extent.Spatial.BBox,
		},
		Temporal: &gostac.TemporalExtent{
			Interval: s.Extent.Temporal.Interval,
		},
	}

	collection.Summaries["platform"] = s.Platforms
	if len(s.Instruments) > 0 {
		collection.Summaries["instruments"] = s.Instruments
	}
	if s.GSDMeters > 0 {
		collection.Summaries["gsd"] = []float64{s.GSDMeters}
	}
	collection.Summaries["terravue:analyses"] = s.Analyses
	if s.RevisitDays > 0 {
		collection.Summaries["terravue:revisit_days"] = []float64{s.RevisitDays}
	}
	if s.IsRadar() {
		collection.Summaries["sar:polarizations"] = s.Polarizations
	}

	collection.Links = append(collection.Links,
		&gostac.Link{
			Rel:  "self",
			Href: fmt.Sprintf("%s/api/v1/satellites/%s", baseURL, s.ID),
			Type: "application/json",
		},
		&gostac.Link{
			Rel:  "root",
			Href: baseURL + "/api/v1/satellites",
			Type: "application/json",
		},
		&gostac.Link{
			Rel:  "queryables",
			Href: fmt.Sprintf("%s/api/v1/satellites/%s/parameters", baseURL, s.ID),
			Type: "application/schema+json",
		},
	)

	return collection
}

// SatelliteList converts the whole registry to a collections response.
func SatelliteList(registry *config.SatelliteRegistry, baseURL string) *CollectionsList {
	baseURL = strings.TrimRight(baseURL, "/")

	collections := make([]*gostac.Collection, 0, registry.Count())
	for _, s := range registry.All() {
		collections = append(collections, SatelliteCollection(s, baseURL))
	}

	list := NewCollectionsList(collections)
	list.Links = append(list.Links, &gostac.Link{
		Rel:  "self",
		Href: baseURL + "/api/v1/satellites",
		Type: "application/json",
	})
	return list
}
