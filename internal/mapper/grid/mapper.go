// Package gridmapper covers bounding boxes and polygons with grid cells at a
// chosen level.
package gridmapper

import (
	"fmt"
	"math"
	"sort"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/xy"

	"github.com/mohammed-shakir/digipin-grid/internal/core/model"
	"github.com/mohammed-shakir/digipin-grid/internal/digipin"
	"github.com/mohammed-shakir/digipin-grid/internal/mapper"
)

var ErrTooManyCells = mapper.ErrTooManyCells

type Mapper struct {
	// MaxCells bounds one request; <=0 means unlimited.
	MaxCells int
}

var _ mapper.Interface = (*Mapper)(nil)

func New(maxCells int) *Mapper { return &Mapper{MaxCells: maxCells} }

// CellsForBBox returns every cell at level that touches bb, clipped to the
// region. A box outside the region yields no cells.
func (m *Mapper) CellsForBBox(bb model.BBox, level int) (model.Cells, error) {
	if err := validateLevel(level); err != nil {
		return nil, err
	}
	sp, ok := spanOf(bb.Box(), level)
	if !ok {
		return model.Cells{}, nil
	}
	if err := m.checkLimit(sp.count()); err != nil {
		return nil, err
	}
	out := make(model.Cells, 0, sp.count())
	for r := sp.r0; r <= sp.r1; r++ {
		for c := sp.c0; c <= sp.c1; c++ {
			out = append(out, cellAt(r, c, level))
		}
	}
	sortCells(out)
	return out, nil
}

// CellsForPolygon keeps the cells whose centre lies inside the polygon, plus
// the cells holding its vertices so small shapes are never empty.
func (m *Mapper) CellsForPolygon(poly model.Polygon, level int) (model.Cells, error) {
	if err := validateLevel(level); err != nil {
		return nil, err
	}
	var g geom.T
	if err := geojson.Unmarshal([]byte(poly.GeoJSON), &g); err != nil {
		return nil, fmt.Errorf("parse geojson: %w", err)
	}

	var polys []*geom.Polygon
	switch t := g.(type) {
	case *geom.Polygon:
		polys = append(polys, t)
	case *geom.MultiPolygon:
		for i := range t.NumPolygons() {
			polys = append(polys, t.Polygon(i))
		}
	default:
		return nil, fmt.Errorf("unsupported GeoJSON type %T", g)
	}

	seen := make(map[string]struct{})
	for pi, p := range polys {
		if p.NumLinearRings() == 0 || p.LinearRing(0).NumCoords() < 4 {
			return nil, fmt.Errorf("polygon %d outer ring has < 4 vertices", pi)
		}
		b := p.Bounds()
		box := digipin.Box{MinLat: b.Min(1), MaxLat: b.Max(1), MinLon: b.Min(0), MaxLon: b.Max(0)}
		sp, ok := spanOf(box, level)
		if !ok {
			continue
		}
		if err := m.checkLimit(sp.count()); err != nil {
			return nil, err
		}
		for r := sp.r0; r <= sp.r1; r++ {
			for c := sp.c0; c <= sp.c1; c++ {
				code := cellAt(r, c, level)
				cb, err := digipin.Bounds(code)
				if err != nil {
					return nil, err
				}
				ctr := cb.Center()
				if inside(p, geom.Coord{ctr.Lon, ctr.Lat}) {
					seen[code] = struct{}{}
				}
			}
		}
		outer := p.LinearRing(0)
		for i := range outer.NumCoords() {
			v := outer.Coord(i)
			if code, err := digipin.Encode(v.Y(), v.X()); err == nil {
				parent, _ := digipin.Parent(string(code), level)
				seen[parent] = struct{}{}
			}
		}
		if err := m.checkLimit(len(seen)); err != nil {
			return nil, err
		}
	}

	out := make(model.Cells, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sortCells(out)
	return out, nil
}

func sortCells(c model.Cells) { sort.Strings(c) }

func inside(p *geom.Polygon, pt geom.Coord) bool {
	if !xy.IsPointInRing(p.Layout(), pt, p.LinearRing(0).FlatCoords()) {
		return false
	}
	for i := 1; i < p.NumLinearRings(); i++ {
		if xy.IsPointInRing(p.Layout(), pt, p.LinearRing(i).FlatCoords()) {
			return false
		}
	}
	return true
}

func (m *Mapper) checkLimit(n int) error {
	if m.MaxCells > 0 && n > m.MaxCells {
		return fmt.Errorf("%d cells > %d: %w", n, m.MaxCells, ErrTooManyCells)
	}
	return nil
}

func validateLevel(level int) error {
	if level < 1 || level > digipin.Levels {
		return fmt.Errorf("invalid level %d (must be 1..%d)", level, digipin.Levels)
	}
	return nil
}

// span is an inclusive range of global row/column indices at one level,
// rows counted from the north edge and columns from the west edge.
type span struct {
	r0, r1, c0, c1 int
}

func (s span) count() int { return (s.r1 - s.r0 + 1) * (s.c1 - s.c0 + 1) }

func spanOf(b digipin.Box, level int) (span, bool) {
	reg := digipin.Region
	if b.MinLat > b.MaxLat || b.MinLon > b.MaxLon || !b.Intersects(reg) {
		return span{}, false
	}
	latStep, lonStep := digipin.CellSize(level)
	last := 1<<(2*level) - 1

	sp := span{
		r0: clamp(int(math.Floor((reg.MaxLat-b.MaxLat)/latStep)), 0, last),
		r1: clamp(int(math.Ceil((reg.MaxLat-b.MinLat)/latStep))-1, 0, last),
		c0: clamp(int(math.Floor((b.MinLon-reg.MinLon)/lonStep)), 0, last),
		c1: clamp(int(math.Ceil((b.MaxLon-reg.MinLon)/lonStep))-1, 0, last),
	}
	// zero-height or zero-width boxes still touch one band
	sp.r1 = max(sp.r1, sp.r0)
	sp.c1 = max(sp.c1, sp.c0)
	return sp, true
}

// cellAt spells the code of global cell (row, col) one base-4 digit per level.
func cellAt(row, col, level int) string {
	sym := make([]byte, level)
	for k := range level {
		shift := 2 * (level - 1 - k)
		sym[k] = digipin.Symbol((row>>shift)&3, (col>>shift)&3)
	}
	return digipin.Format(string(sym))
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
