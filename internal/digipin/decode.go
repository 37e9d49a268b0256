package digipin

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Decode returns the centre of the level-10 cell named by code. Separators are
// optional. Input that does not reduce to ten grid symbols yields
// InvalidCoordinate with ErrMalformedCode or ErrUnrecognizedSymbol.
func Decode(code string) (Coordinate, error) {
	sym := Strip(code)
	if n := utf8.RuneCountInString(sym); n != Levels {
		return InvalidCoordinate, fmt.Errorf("decode %q: %d symbols, want %d: %w", code, n, Levels, ErrMalformedCode)
	}
	box, err := narrow(sym)
	if err != nil {
		return InvalidCoordinate, fmt.Errorf("decode %q: %w", code, err)
	}
	return box.Center(), nil
}

// DecodePair is Decode with (-1, -1) as the only failure signal.
func DecodePair(code string) (lat, lon float64) {
	c, _ := Decode(code)
	return c.Lat, c.Lon
}

// Bounds returns the cell named by a prefix of 1 to 10 symbols.
func Bounds(prefix string) (Box, error) {
	sym := Strip(prefix)
	if n := utf8.RuneCountInString(sym); n < 1 || n > Levels {
		return Box{}, fmt.Errorf("bounds %q: %d symbols, want 1..%d: %w", prefix, n, Levels, ErrMalformedCode)
	}
	box, err := narrow(sym)
	if err != nil {
		return Box{}, fmt.Errorf("bounds %q: %w", prefix, err)
	}
	return box, nil
}

func narrow(sym string) (Box, error) {
	box := Region
	n := 0
	for _, r := range sym {
		n++
		var p position
		if r < utf8.RuneSelf {
			p = positions[byte(r)]
		}
		if !p.ok {
			return Box{}, fmt.Errorf("%q at symbol %d: %w", r, n, ErrUnrecognizedSymbol)
		}
		box = child(box, p.row, p.col)
	}
	return box, nil
}

// child returns the (row, col) sub-cell of b. Products are rounded before the
// add so the result does not depend on FMA availability.
func child(b Box, row, col int) Box {
	latDiv := (b.MaxLat - b.MinLat) / gridSize
	lonDiv := (b.MaxLon - b.MinLon) / gridSize
	return Box{
		MinLat: b.MaxLat - float64(latDiv*float64(row+1)),
		MaxLat: b.MaxLat - float64(latDiv*float64(row)),
		MinLon: b.MinLon + float64(lonDiv*float64(col)),
		MaxLon: b.MinLon + float64(lonDiv*float64(col+1)),
	}
}

// Strip removes every separator from code.
func Strip(code string) string {
	if strings.IndexByte(code, separator) < 0 {
		return code
	}
	return strings.ReplaceAll(code, string(separator), "")
}
