package gridmapper

import (
	"fmt"

	"github.com/mohammed-shakir/digipin-grid/internal/core/model"
	"github.com/mohammed-shakir/digipin-grid/internal/digipin"
)

func (m *Mapper) ToParent(code string, parentLevel int) (string, error) {
	if err := validateLevel(parentLevel); err != nil {
		return "", err
	}
	return digipin.Parent(code, parentLevel)
}

// ToChildren expands code down to childLevel, sorted.
func (m *Mapper) ToChildren(code string, childLevel int) (model.Cells, error) {
	if err := validateLevel(childLevel); err != nil {
		return nil, err
	}
	sym, err := digipin.NormalizePrefix(code)
	if err != nil {
		return nil, err
	}
	cur := len(sym)
	if childLevel < cur {
		return nil, fmt.Errorf("child level %d must be >= code level %d", childLevel, cur)
	}
	if err := m.checkLimit(1 << (4 * (childLevel - cur))); err != nil {
		return nil, err
	}

	out := model.Cells{digipin.Format(sym)}
	for range childLevel - cur {
		next := make(model.Cells, 0, len(out)*16)
		for _, c := range out {
			kids, err := digipin.Children(c)
			if err != nil {
				return nil, err
			}
			next = append(next, kids...)
		}
		out = next
	}
	sortCells(out)
	return out, nil
}
