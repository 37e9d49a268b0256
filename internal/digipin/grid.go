// Package digipin converts between coordinates and 10-symbol grid codes.
//
// The supported region is split into a 4x4 grid ten times over. Each round
// emits one symbol from a fixed table, so a code names a cell of
// (36/4^10) degrees on each side. Encode and Decode are pure and safe for
// concurrent use.
package digipin

const (
	// Levels is the number of subdivision rounds in a full code.
	Levels = 10

	gridSize  = 4
	separator = '-'

	// not present in the table; the level-0 check against it never fires
	reservedSymbol = '0'
)

// Region is the encodable area.
var Region = Box{MinLat: 2.5, MaxLat: 38.5, MinLon: 63.5, MaxLon: 99.5}

// symbols[row][col]; rows run north to south, columns west to east.
var symbols = [gridSize][gridSize]byte{
	{'F', 'C', '9', '8'},
	{'J', '3', '2', '7'},
	{'K', '4', '5', '6'},
	{'L', 'M', 'P', 'T'},
}

type position struct {
	row, col int
	ok       bool
}

// reverse index of symbols, built once
var positions = func() [256]position {
	var idx [256]position
	for r := range gridSize {
		for c := range gridSize {
			idx[symbols[r][c]] = position{row: r, col: c, ok: true}
		}
	}
	return idx
}()

// Alphabet returns the 16 symbols in row-major grid order.
func Alphabet() string {
	b := make([]byte, 0, gridSize*gridSize)
	for r := range gridSize {
		b = append(b, symbols[r][:]...)
	}
	return string(b)
}

// Symbol returns the table entry at (row, col).
func Symbol(row, col int) byte {
	return symbols[row][col]
}

// Lookup returns the grid position of s.
func Lookup(s byte) (row, col int, ok bool) {
	p := positions[s]
	return p.row, p.col, p.ok
}

// Coordinate is a WGS84 point in degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// InvalidCoordinate is returned by Decode for input it cannot resolve.
var InvalidCoordinate = Coordinate{Lat: -1, Lon: -1}

// Box is a latitude/longitude rectangle with inclusive edges.
type Box struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon"`
}

func (b Box) Center() Coordinate {
	return Coordinate{Lat: (b.MinLat + b.MaxLat) / 2, Lon: (b.MinLon + b.MaxLon) / 2}
}

func (b Box) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// Intersects reports whether the boxes share at least one point.
func (b Box) Intersects(o Box) bool {
	return b.MinLat <= o.MaxLat && o.MinLat <= b.MaxLat &&
		b.MinLon <= o.MaxLon && o.MinLon <= b.MaxLon
}

// CellSize returns the nominal cell height and width in degrees at level.
func CellSize(level int) (latDeg, lonDeg float64) {
	latDeg = Region.MaxLat - Region.MinLat
	lonDeg = Region.MaxLon - Region.MinLon
	for range level {
		latDeg /= gridSize
		lonDeg /= gridSize
	}
	return latDeg, lonDeg
}
