package digipin

import "fmt"

// Code is a formatted grid code such as "39J-438-TJC7".
type Code string

// Invalid is the empty code returned when a coordinate cannot be encoded.
const Invalid Code = ""

func (c Code) String() string { return string(c) }

// Valid reports whether c is a full, well-formed code.
func (c Code) Valid() bool {
	n, err := Normalize(string(c))
	return err == nil && n == c
}

// Symbols returns c without separators.
func (c Code) Symbols() string { return Strip(string(c)) }

// Encode returns the code of the level-10 cell holding (lat, lon).
// Out-of-region input yields Invalid and ErrOutOfRegion.
func Encode(lat, lon float64) (Code, error) {
	if !Region.Contains(lat, lon) {
		return Invalid, fmt.Errorf("encode (%g, %g): %w", lat, lon, ErrOutOfRegion)
	}

	box := Region
	out := make([]byte, 0, formattedLen)

	for level := range Levels {
		row, col, next := subdivide(box, lat, lon)
		sym := symbols[row][col]
		if level == 0 && sym == reservedSymbol {
			return Invalid, fmt.Errorf("encode (%g, %g): %w", lat, lon, ErrReservedSymbol)
		}

		out = append(out, sym)
		if level == 2 || level == 5 {
			out = append(out, separator)
		}
		box = next
	}
	return Code(out), nil
}

// EncodeString is Encode with the empty string as the only failure signal.
func EncodeString(lat, lon float64) string {
	c, _ := Encode(lat, lon)
	return string(c)
}

// subdivide picks the row and column band for one round and returns the
// narrowed box. Bands are inclusive at both ends so a point on an edge goes to
// the band scanned first: top-down for rows, left-to-right for columns.
func subdivide(b Box, lat, lon float64) (row, col int, next Box) {
	latStep := (b.MaxLat - b.MinLat) / gridSize
	lonStep := (b.MaxLon - b.MinLon) / gridSize

	top := b.MaxLat
	bottom := b.MaxLat - latStep
	for i := range gridSize {
		if lat >= bottom && lat <= top {
			row = i
			break
		}
		top = bottom
		bottom = top - latStep
	}

	left := b.MinLon
	right := b.MinLon + lonStep
	for i := range gridSize {
		if lon >= left && lon <= right {
			col = i
			break
		}
		// stop advancing once the next band would start past the edge;
		// the last scanned column is kept
		if left+lonStep < b.MaxLon {
			left = right
			right = left + lonStep
		} else {
			col = i
		}
	}

	return row, col, Box{MinLat: bottom, MaxLat: top, MinLon: left, MaxLon: right}
}
