package digipin

import "errors"

var (
	// ErrOutOfRegion is returned when a coordinate lies outside Region.
	ErrOutOfRegion = errors.New("digipin: coordinate outside supported region")

	// ErrReservedSymbol is returned when the first round lands on the reserved symbol.
	ErrReservedSymbol = errors.New("digipin: reserved symbol at first level")

	// ErrMalformedCode is returned when a code does not reduce to the expected number of symbols.
	ErrMalformedCode = errors.New("digipin: malformed code")

	// ErrUnrecognizedSymbol is returned when a code holds a character outside the grid.
	ErrUnrecognizedSymbol = errors.New("digipin: unrecognized symbol")
)
