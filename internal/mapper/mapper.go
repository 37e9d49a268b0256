// Package mapper converts geometries into the grid cells that cover them.
package mapper

import (
	"errors"

	"github.com/mohammed-shakir/digipin-grid/internal/core/model"
)

// ErrTooManyCells is returned when a cover would exceed the request limit.
var ErrTooManyCells = errors.New("cell count exceeds limit")

type Interface interface {
	CellsForBBox(bb model.BBox, level int) (model.Cells, error)
	CellsForPolygon(poly model.Polygon, level int) (model.Cells, error)
}
