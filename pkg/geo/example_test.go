package geo_test

import (
	"fmt"
	"log"

	"github.com/terravue/terravue/pkg/geo"
)

func ExampleAOI_Payload() {
	// An area drawn on the map arrives as a GeoJSON polygon; only its
	// outer ring is sent to the processing backend.
	g, err := geo.NewPolygonFromRing([][]float64{
		{74.3, 31.5}, {74.4, 31.5}, {74.4, 31.6}, {74.3, 31.6},
	})
	if err != nil {
		log.Fatal(err)
	}

	payload, err := geo.AOI{Geometry: g}.Payload()
	if err != nil {
		log.Fatal(err)
	}

	ring := payload.([][]float64)
	fmt.Printf("points: %d, first: [%v %v]\n", len(ring), ring[0][0], ring[0][1])
	// Output: points: 5, first: [74.3 31.5]
}

func ExampleFromWKT() {
	g, err := geo.FromWKT("POLYGON((74.3 31.5,74.4 31.5,74.4 31.6,74.3 31.6,74.3 31.5))")
	if err != nil {
		log.Fatal(err)
	}

	bbox, err := g.BBox()
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Type: %s\n", g.Type)
	fmt.Printf("BBox: [%v %v %v %v]\n", bbox[0], bbox[1], bbox[2], bbox[3])
	// Output: Type: Polygon
	// BBox: [74.3 31.5 74.4 31.6]
}

func ExampleToWKT() {
	g, err := geo.NewPolygonFromBBox([]float64{74.3, 31.5, 74.4, 31.6})
	if err != nil {
		log.Fatal(err)
	}

	wkt, err := geo.ToWKT(g)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(wkt)
	// Output: POLYGON((74.3 31.5,74.4 31.5,74.4 31.6,74.3 31.6,74.3 31.5))
}

func ExampleCenter() {
	g, err := geo.NewPolygonFromBBox([]float64{74.3, 31.5, 74.4, 31.6})
	if err != nil {
		log.Fatal(err)
	}

	center, err := geo.Center(g)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("[%.2f %.2f]\n", center[0], center[1])
	// Output: [74.35 31.55]
}
