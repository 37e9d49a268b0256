package keys

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

const (
	sharePrefix  = "share"
	devicePrefix = "device"

	maxIDLen = 64
)

// ShareID derives a stable short id for a code; salt separates deployments.
func ShareID(code, salt string) string {
	h := xxhash.New()
	_, _ = h.WriteString(salt)
	_, _ = h.WriteString("|")
	_, _ = h.WriteString(strings.ToUpper(strings.TrimSpace(code)))
	return fmt.Sprintf("%016x", h.Sum64())
}

func ShareKey(id string) string {
	return sharePrefix + ":" + sanitize(id)
}

// DeviceKey keeps short readable ids verbatim and hashes anything long.
func DeviceKey(deviceID string) string {
	id := sanitize(strings.TrimSpace(deviceID))
	if len(id) > maxIDLen {
		id = fmt.Sprintf("%s:h=%016x", id[:maxIDLen], xxhash.Sum64String(deviceID))
	}
	return devicePrefix + ":" + id
}

// Shard picks a stable bucket for s in [0,n).
func Shard(s string, n int) int {
	if n <= 1 {
		return 0
	}
	return int(xxhash.Sum64String(s) % uint64(n))
}

func sanitize(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))

	var prev rune
	for _, r := range s {
		out := rune(0)
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f':
			out = '_'
		case isAlphaNum(r) || r == '_' || r == '-' || r == '.':
			out = r
		default:
			// ':' included, it separates key segments
			out = '-'
		}
		if (out == '_' || out == '-') && out == prev {
			continue
		}
		b.WriteRune(out)
		prev = out
	}
	return b.String()
}

func isAlphaNum(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r < unicode.MaxASCII && unicode.IsDigit(r))
}
