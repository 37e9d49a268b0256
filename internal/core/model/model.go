// Package model defines the request and response types of the lookup API.
package model

import (
	"fmt"
	"time"

	"github.com/mohammed-shakir/digipin-grid/internal/digipin"
)

// BBox is x1,y1,x2,y2 in lon/lat order, as in WFS bbox parameters.
type BBox struct {
	X1, Y1 float64
	X2, Y2 float64
	SRID   string
}

func (b BBox) String() string {
	return fmt.Sprintf("%.6f,%.6f,%.6f,%.6f,%s", b.X1, b.Y1, b.X2, b.Y2, b.SRID)
}

// Box converts to the grid's lat/lon rectangle.
func (b BBox) Box() digipin.Box {
	return digipin.Box{MinLat: b.Y1, MaxLat: b.Y2, MinLon: b.X1, MaxLon: b.X2}
}

// Polygon carries a raw GeoJSON Polygon or MultiPolygon.
type Polygon struct {
	GeoJSON string
}

type Cells []string

type Location struct {
	Code   string       `json:"code"`
	Lat    float64      `json:"lat"`
	Lon    float64      `json:"lon"`
	Bounds *digipin.Box `json:"bounds,omitempty"`
}

type CellsResponse struct {
	Level int   `json:"level"`
	Count int   `json:"count"`
	Cells Cells `json:"cells"`
}

type ShareRequest struct {
	Code string `json:"code"`
}

type ShareResponse struct {
	ID      string `json:"id"`
	Code    string `json:"code"`
	Text    string `json:"text"`
	MapsURL string `json:"maps_url"`
	Link    string `json:"link"`
	Tier    string `json:"tier"`
	TTLSec  int64  `json:"ttl_seconds"`
}

type ShareInfo struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	Tier      string    `json:"tier,omitempty"`
	MapsURL   string    `json:"maps_url"`
	CreatedAt time.Time `json:"created_at"`
	// TTLSec is 0 for links that do not expire.
	TTLSec int64 `json:"ttl_seconds"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
