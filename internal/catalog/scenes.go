package catalog

import (
	"fmt"
	"strings"
	"time"

	gostac "github.com/planetlabs/go-stac"

	"github.com/terravue/terravue/internal/analysis"
	"github.com/terravue/terravue/pkg/geo"
)

// SceneItems converts a result's observations to a STAC ItemCollection: one
// item per scene, carrying the per-type measurement properties. Every item
// shares the request AOI as its footprint; the upstream never returns
// per-scene geometry.
func SceneItems(res *analysis.Result, baseURL string) (*ItemCollection, error) {
	if res == nil {
		return nil, fmt.Errorf("result is nil")
	}
	baseURL = strings.TrimRight(baseURL, "/")

	var bbox []float64
	if res.Geometry != nil {
		if b, err := geo.ComputeBBox(res.Geometry); err == nil {
			bbox = b
		}
	}

	items := make([]*gostac.Item, 0, len(res.Rows))
	for i, row := range res.Rows {
		item := sceneItem(res, i, row)

		if res.Geometry != nil {
			item.Geometry = res.Geometry
			item.Bbox = bbox
		}

		item.Links = append(item.Links,
			&gostac.Link{
				Rel:  "parent",
				Href: fmt.Sprintf("%s/api/v1/analyses/%s", baseURL, res.ID),
				Type: "application/json",
			},
			&gostac.Link{
				Rel:  "collection",
				Href: fmt.Sprintf("%s/api/v1/satellites/%s", baseURL, res.Satellite),
				Type: "application/json",
			},
		)

		items = append(items, item)
	}

	collection := NewItemCollection(items)
	collection.AddLink("self", fmt.Sprintf("%s/api/v1/analyses/%s/scenes", baseURL, res.ID), "application/geo+json")
	return collection, nil
}

// sceneItem builds the item for one table row, pairing it with the time
// series point at the same index for the measurement channels.
func sceneItem(res *analysis.Result, i int, row analysis.TableRow) *gostac.Item {
	itemID := row.ImageID
	if itemID == "" {
		itemID = fmt.Sprintf("%s-scene-%03d", res.Satellite, i+1)
	}

	item := &gostac.Item{
		Version:    StacVersion,
		Id:         itemID,
		Collection: res.Satellite,
		Properties: make(map[string]any),
		Assets:     make(map[string]*gostac.Asset),
		Links:      make([]*gostac.Link, 0),
	}

	var point analysis.TimeSeriesPoint
	if i < len(res.TimeSeries) {
		point = res.TimeSeries[i]
	}

	if !point.Time.IsZero() {
		item.Properties["datetime"] = point.Time.UTC().Format(time.RFC3339)
	} else {
		// STAC requires the key even when the acquisition date did not parse.
		item.Properties["datetime"] = nil
		if row.Date != "" {
			item.Properties["terravue:date"] = row.Date
		}
	}

	item.Properties["constellation"] = res.Satellite

	if res.Type.IsRadar() {
		radarProperties(item, res, row, point)
	} else {
		opticalProperties(item, row, point)
	}

	return item
}

func radarProperties(item *gostac.Item, res *analysis.Result, row analysis.TableRow, point analysis.TimeSeriesPoint) {
	channels := make([]string, 0, 2)
	if point.BackscatterVV != nil {
		item.Properties["terravue:backscatter_vv"] = *point.BackscatterVV
		channels = append(channels, "VV")
	}
	if point.BackscatterVH != nil {
		item.Properties["terravue:backscatter_vh"] = *point.BackscatterVH
		channels = append(channels, "VH")
	}
	if len(channels) == 0 && res.Polarization != "" {
		channels = append(channels, string(res.Polarization))
	}
	item.Properties["sar:polarizations"] = channels

	if row.VVVHRatio != nil {
		item.Properties["terravue:vv_vh_ratio"] = *row.VVVHRatio
	}
	if row.OrbitDirection != "" {
		item.Properties["sat:orbit_state"] = strings.ToLower(row.OrbitDirection)
	}
}

func opticalProperties(item *gostac.Item, row analysis.TableRow, point analysis.TimeSeriesPoint) {
	// eo:cloud_cover carries the effective cover: masked value when masking
	// ran, raw scene cover otherwise.
	switch {
	case row.AdjustedCloudCover != nil:
		item.Properties["eo:cloud_cover"] = *row.AdjustedCloudCover
		if row.OriginalCloudCover != nil {
			item.Properties["terravue:original_cloud_cover"] = *row.OriginalCloudCover
		}
	case row.OriginalCloudCover != nil:
		item.Properties["eo:cloud_cover"] = *row.OriginalCloudCover
	}
	item.Properties["terravue:cloud_masking"] = row.CloudMaskingApplied

	if point.NDVI != nil {
		item.Properties["terravue:ndvi"] = *point.NDVI
	}
	if point.LST != nil {
		item.Properties["terravue:lst"] = *point.LST
	}
	if point.NDVI == nil && point.LST == nil && row.Value != nil {
		item.Properties["terravue:value"] = *row.Value
	}
}
