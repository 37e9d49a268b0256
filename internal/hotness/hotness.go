// Package hotness tracks how often DIGIPIN areas are looked up.
package hotness

import (
	"github.com/mohammed-shakir/digipin-grid/internal/digipin"
)

type Interface interface {
	Inc(area string)
	Score(area string) float64
	Reset(areas ...string)
}

type Entry struct {
	Area  string  `json:"area"`
	Score float64 `json:"score"`
}

// Area maps a code (or longer prefix) to its area at level, without separators.
// Codes shorter than level are returned whole.
func Area(code string, level int) string {
	sym := digipin.Strip(code)
	if level <= 0 || len(sym) <= level {
		return sym
	}
	return sym[:level]
}
