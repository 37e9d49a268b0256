// Package h3mapper cross-indexes grid cells with H3 cells.
package h3mapper

import (
	"errors"
	"fmt"
	"math"
	"sort"

	h3 "github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/digipin-grid/internal/core/model"
	"github.com/mohammed-shakir/digipin-grid/internal/digipin"
	"github.com/mohammed-shakir/digipin-grid/internal/mapper"
)

const kmPerDegree = 111.32

type Mapper struct {
	// MaxCells bounds one cover; <=0 means unlimited.
	MaxCells int
}

func New(maxCells int) *Mapper { return &Mapper{MaxCells: maxCells} }

// CellAt returns the H3 cell holding (lat, lon).
func (m *Mapper) CellAt(lat, lon float64, res int) (string, error) {
	if err := validateRes(res); err != nil {
		return "", err
	}
	c, err := h3.LatLngToCell(h3.LatLng{Lat: lat, Lng: lon}, res)
	if err != nil {
		return "", fmt.Errorf("h3 cell: %w", err)
	}
	return c.String(), nil
}

// CellsForBox returns the H3 cells whose centres fall in b, sorted.
func (m *Mapper) CellsForBox(b digipin.Box, res int) (model.Cells, error) {
	if err := validateRes(res); err != nil {
		return nil, err
	}
	if m.MaxCells > 0 {
		est, err := EstimateCells(b, res)
		if err != nil {
			return nil, err
		}
		// the estimate is rough; only reject what is clearly over, the exact
		// count is checked after the polyfill
		if est > 2*float64(m.MaxCells) {
			return nil, fmt.Errorf("about %.0f h3 cells at res %d > %d: %w", est, res, m.MaxCells, mapper.ErrTooManyCells)
		}
	}
	outer := h3.GeoLoop{
		{Lat: b.MinLat, Lng: b.MinLon},
		{Lat: b.MinLat, Lng: b.MaxLon},
		{Lat: b.MaxLat, Lng: b.MaxLon},
		{Lat: b.MaxLat, Lng: b.MinLon},
	}
	cells, err := polyfillOne(outer, res)
	if err != nil {
		return nil, err
	}
	if m.MaxCells > 0 && len(cells) > m.MaxCells {
		return nil, fmt.Errorf("%d h3 cells > %d: %w", len(cells), m.MaxCells, mapper.ErrTooManyCells)
	}
	return cells, nil
}

// EstimateCells approximates how many res cells have their centre in b, from
// the box area and the average hexagon area.
func EstimateCells(b digipin.Box, res int) (float64, error) {
	hex, err := h3.HexagonAreaAvgKm2(res)
	if err != nil {
		return 0, fmt.Errorf("h3 hexagon area: %w", err)
	}
	midLat := (b.MinLat + b.MaxLat) / 2 * math.Pi / 180
	h := (b.MaxLat - b.MinLat) * kmPerDegree
	w := (b.MaxLon - b.MinLon) * kmPerDegree * math.Cos(midLat)
	return h * w / hex, nil
}

// CellsForCode covers a grid cell with H3 cells. A grid cell smaller than one
// hexagon gets the hexagon under its centre.
func (m *Mapper) CellsForCode(code string, res int) (model.Cells, error) {
	b, err := digipin.Bounds(code)
	if err != nil {
		return nil, err
	}
	cells, err := m.CellsForBox(b, res)
	if err != nil {
		return nil, err
	}
	if len(cells) > 0 {
		return cells, nil
	}
	c := b.Center()
	one, err := m.CellAt(c.Lat, c.Lon, res)
	if err != nil {
		return nil, err
	}
	return model.Cells{one}, nil
}

func validateRes(res int) error {
	if res < 0 || res > 15 {
		return fmt.Errorf("invalid H3 resolution %d (must be 0..15)", res)
	}
	return nil
}

// polyfillOne computes unique cells and returns them sorted for determinism.
func polyfillOne(outer h3.GeoLoop, res int) (model.Cells, error) {
	if len(outer) < 3 {
		return nil, errors.New("outer ring has < 3 vertices")
	}
	indexes, err := h3.PolygonToCells(h3.GeoPolygon{GeoLoop: outer}, res)
	if err != nil {
		return nil, fmt.Errorf("h3 polyfill: %w", err)
	}

	out := make(model.Cells, 0, len(indexes))
	seen := make(map[string]struct{}, len(indexes))
	for _, idx := range indexes {
		s := idx.String()
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out, nil
}
