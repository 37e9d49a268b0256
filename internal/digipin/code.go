package digipin

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// length of a full code with both separators
const formattedLen = Levels + 2

// Format inserts separators after the 3rd and 6th symbol. Shorter prefixes
// get only the separators they reach.
func Format(sym string) string {
	sym = Strip(sym)
	if len(sym) <= 3 {
		return sym
	}
	var b strings.Builder
	b.Grow(len(sym) + 2)
	for i := 0; i < len(sym); i++ {
		if i == 3 || i == 6 {
			b.WriteByte(separator)
		}
		b.WriteByte(sym[i])
	}
	return b.String()
}

// Normalize canonicalises user input into a full code: surrounding space is
// trimmed, letters are upper-cased and separators are re-placed.
func Normalize(input string) (Code, error) {
	sym, err := normalize(input, Levels, Levels)
	if err != nil {
		return Invalid, err
	}
	return Code(Format(sym)), nil
}

// NormalizePrefix is Normalize for a prefix of 1 to 10 symbols. The result
// is unformatted.
func NormalizePrefix(input string) (string, error) {
	return normalize(input, 1, Levels)
}

func normalize(input string, minLen, maxLen int) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(input))
	if strings.Count(s, string(separator)) > 2 {
		return "", fmt.Errorf("normalize %q: too many separators: %w", input, ErrMalformedCode)
	}
	sym := Strip(s)
	if n := utf8.RuneCountInString(sym); n < minLen || n > maxLen {
		return "", fmt.Errorf("normalize %q: %d symbols: %w", input, n, ErrMalformedCode)
	}
	n := 0
	for _, r := range sym {
		n++
		if r >= utf8.RuneSelf || !positions[byte(r)].ok {
			return "", fmt.Errorf("normalize %q: %q at symbol %d: %w", input, r, n, ErrUnrecognizedSymbol)
		}
	}
	return sym, nil
}

// Sanitize filters free-form input down to grid symbols (either case) and
// separators, upper-cased. ok reports whether the result is still an
// acceptable partial entry: at most two separators, at most 12 characters,
// and at most 10 when no separator is present.
func Sanitize(input string) (out string, ok bool) {
	var b strings.Builder
	b.Grow(len(input))
	dashes := 0
	for _, r := range strings.ToUpper(input) {
		switch {
		case r == separator:
			dashes++
			b.WriteRune(r)
		case r < 0x80 && positions[byte(r)].ok:
			b.WriteRune(r)
		}
	}
	out = b.String()
	switch {
	case len(out) > formattedLen, dashes > 2:
		return out, false
	case dashes == 0 && len(out) > Levels:
		return out, false
	}
	return out, true
}

// Level returns the number of symbols in code.
func Level(code string) int {
	return len(Strip(code))
}

// Parent returns the formatted level-n prefix of code.
func Parent(code string, level int) (string, error) {
	sym, err := NormalizePrefix(code)
	if err != nil {
		return "", err
	}
	if level < 1 || level > len(sym) {
		return "", fmt.Errorf("parent level %d must be in 1..%d", level, len(sym))
	}
	return Format(sym[:level]), nil
}

// Children returns the 16 sub-cells of prefix in grid order. An empty prefix
// yields the level-1 cells.
func Children(prefix string) ([]string, error) {
	var sym string
	if strings.TrimSpace(prefix) != "" {
		var err error
		sym, err = NormalizePrefix(prefix)
		if err != nil {
			return nil, err
		}
	}
	if len(sym) >= Levels {
		return nil, fmt.Errorf("children of %q: already at level %d", prefix, Levels)
	}
	out := make([]string, 0, gridSize*gridSize)
	for r := range gridSize {
		for c := range gridSize {
			out = append(out, Format(sym+string(symbols[r][c])))
		}
	}
	return out, nil
}
