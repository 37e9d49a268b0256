package digipin

import (
	"errors"
	"math"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
)

// full level-10 cell width; the decoded centre is within half of it
var tolerance = (Region.MaxLat - Region.MinLat) / math.Pow(4, Levels)

func TestEncode_Golden(t *testing.T) {
	cases := []struct {
		name     string
		lat, lon float64
		want     Code
		wantLat  float64
		wantLon  float64
	}{
		{"new delhi", 28.6139, 77.2090, "39J-438-TJC7", 28.613901138305664, 77.20899772644043},
		{"bengaluru", 12.9716, 77.5946, "4P3-JK8-52C9", 12.971601486206055, 77.59458351135254},
		{"mumbai", 19.0760, 72.8777, "4FK-595-8823", 19.07598304748535, 72.87770652770996},
		{"south-west corner", 2.5, 63.5, "LLL-LLL-LLLL", 2.5000171661376953, 63.500017166137695},
		{"north-east corner", 38.5, 99.5, "888-888-8888", 38.499982833862305, 99.4999828338623},
		{"north-west corner", 38.5, 63.5, "FFF-FFF-FFFF", 38.499982833862305, 63.500017166137695},
		{"south-east corner", 2.5, 99.5, "TTT-TTT-TTTT", 2.5000171661376953, 99.4999828338623},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Encode(tc.lat, tc.lon)
			if err != nil {
				t.Fatalf("Encode err: %v", err)
			}
			if got != tc.want {
				t.Fatalf("Encode(%v,%v)=%q want %q", tc.lat, tc.lon, got, tc.want)
			}
			c, err := Decode(string(got))
			if err != nil {
				t.Fatalf("Decode err: %v", err)
			}
			if c.Lat != tc.wantLat || c.Lon != tc.wantLon {
				t.Fatalf("Decode(%q)=%v want (%v,%v)", got, c, tc.wantLat, tc.wantLon)
			}
		})
	}
}

func TestEncode_Shape(t *testing.T) {
	c, err := Encode(28.6139, 77.2090)
	if err != nil {
		t.Fatalf("Encode err: %v", err)
	}
	s := string(c)
	if len(s) != 12 || s[3] != '-' || s[7] != '-' {
		t.Fatalf("unexpected shape %q", s)
	}
	if n := len(c.Symbols()); n != Levels {
		t.Fatalf("symbols=%d want %d", n, Levels)
	}
	for i := 0; i < len(c.Symbols()); i++ {
		if _, _, ok := Lookup(c.Symbols()[i]); !ok {
			t.Fatalf("symbol %q not in grid", c.Symbols()[i])
		}
	}
	if !c.Valid() {
		t.Fatalf("expected %q to be valid", c)
	}
}

func TestEncode_OutOfRegion(t *testing.T) {
	pts := [][2]float64{
		{0, 0},
		{2.4999999, 70},
		{38.5000001, 70},
		{20, 63.4999999},
		{20, 99.5000001},
		{math.NaN(), 70},
		{20, math.Inf(1)},
	}
	for _, p := range pts {
		got, err := Encode(p[0], p[1])
		if got != Invalid {
			t.Fatalf("Encode(%v,%v)=%q want Invalid", p[0], p[1], got)
		}
		if !errors.Is(err, ErrOutOfRegion) {
			t.Fatalf("Encode(%v,%v) err=%v want ErrOutOfRegion", p[0], p[1], err)
		}
		if s := EncodeString(p[0], p[1]); s != "" {
			t.Fatalf("EncodeString=%q want empty", s)
		}
	}
}

func TestEncode_LevelOneBandEdgesPreferFirstScanned(t *testing.T) {
	// band edges at level 1: lat 29.5/20.5/11.5, lon 72.5/81.5/90.5
	cases := []struct {
		lat, lon float64
		want     byte
	}{
		{29.5, 72.5, 'F'},
		{29.5, 81.5, 'C'},
		{29.5, 90.5, '9'},
		{20.5, 72.5, 'J'},
		{20.5, 81.5, '3'},
		{20.5, 90.5, '2'},
		{11.5, 72.5, 'K'},
		{11.5, 81.5, '4'},
		{11.5, 90.5, '5'},
		{29.4999, 70.0, 'J'},
	}
	for _, tc := range cases {
		c, err := Encode(tc.lat, tc.lon)
		if err != nil {
			t.Fatalf("Encode(%v,%v): %v", tc.lat, tc.lon, err)
		}
		if c[0] != tc.want {
			t.Fatalf("Encode(%v,%v)=%q first symbol %q want %q", tc.lat, tc.lon, c, c[0], tc.want)
		}
	}

	// a point on the south-east edge of its level-1 cell stays on that edge
	c, _ := Encode(20.5, 81.5)
	if c != "3TT-TTT-TTTT" {
		t.Fatalf("edge code=%q want 3TT-TTT-TTTT", c)
	}
	c, _ = Encode(29.5, 77.2090)
	if c != "CPL-MMT-TLMT" {
		t.Fatalf("edge code=%q want CPL-MMT-TLMT", c)
	}
}

func TestDecode_Malformed(t *testing.T) {
	for _, in := range []string{"", "ABC", "39J-438-TJC", "39J-438-TJC77", "----------", "39J438TJC7F"} {
		c, err := Decode(in)
		if c != InvalidCoordinate {
			t.Fatalf("Decode(%q)=%v want InvalidCoordinate", in, c)
		}
		if !errors.Is(err, ErrMalformedCode) {
			t.Fatalf("Decode(%q) err=%v want ErrMalformedCode", in, err)
		}
		lat, lon := DecodePair(in)
		if lat != -1 || lon != -1 {
			t.Fatalf("DecodePair(%q)=(%v,%v) want (-1,-1)", in, lat, lon)
		}
	}
}

func TestDecode_UnrecognizedSymbol(t *testing.T) {
	for _, in := range []string{"39J-438-TJCA", "09J-438-TJC7", "39j-438-tjc7", "39J 438TJC", "39J-438-TJCé"} {
		c, err := Decode(in)
		if c != InvalidCoordinate {
			t.Fatalf("Decode(%q)=%v want InvalidCoordinate", in, c)
		}
		if !errors.Is(err, ErrUnrecognizedSymbol) {
			t.Fatalf("Decode(%q) err=%v want ErrUnrecognizedSymbol", in, err)
		}
	}
}

func TestDecode_ErrorNamesSymbolIndex(t *testing.T) {
	cases := map[string]string{
		"39J-438-TJCA":      "symbol 10",
		"39J-438-TJC\uff17": "symbol 10", // full-width 7
		"\u00e99J-438-TJC7": "symbol 1",
	}
	for in, want := range cases {
		_, err := Decode(in)
		if !errors.Is(err, ErrUnrecognizedSymbol) || !strings.Contains(err.Error(), want) {
			t.Fatalf("Decode(%q) err=%v want %q", in, err, want)
		}
	}
}

func TestDecode_SeparatorsCarryNoInformation(t *testing.T) {
	code, _ := Encode(12.9716, 77.5946)
	a, err := Decode(string(code))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	b, err := Decode(Strip(string(code)))
	if err != nil {
		t.Fatalf("Decode stripped: %v", err)
	}
	c, err := Decode("4-P3JK852-C9")
	if err != nil {
		t.Fatalf("Decode odd separators: %v", err)
	}
	if a != b || a != c {
		t.Fatalf("decodes differ: %v %v %v", a, b, c)
	}
}

func TestRoundTrip_RandomInRegion(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for i := range 20000 {
		lat := Region.MinLat + rng.Float64()*(Region.MaxLat-Region.MinLat)
		lon := Region.MinLon + rng.Float64()*(Region.MaxLon-Region.MinLon)
		if i%3 == 0 {
			lat = math.Round(lat*100) / 100
		}
		if i%5 == 0 {
			lon = math.Round(lon*10) / 10
		}

		code, err := Encode(lat, lon)
		if err != nil {
			t.Fatalf("Encode(%v,%v): %v", lat, lon, err)
		}
		c, err := Decode(string(code))
		if err != nil {
			t.Fatalf("Decode(%q): %v", code, err)
		}
		if math.Abs(c.Lat-lat) > tolerance || math.Abs(c.Lon-lon) > tolerance {
			t.Fatalf("round trip (%v,%v) -> %q -> %v exceeds %g", lat, lon, code, c, tolerance)
		}
		if code2, _ := Encode(c.Lat, c.Lon); code2 != code {
			t.Fatalf("centre of %q re-encodes to %q", code, code2)
		}
	}
}

func TestBounds_ContainsEncodedPoint(t *testing.T) {
	lat, lon := 28.6139, 77.2090
	code, _ := Encode(lat, lon)
	sym := code.Symbols()
	for level := 1; level <= Levels; level++ {
		b, err := Bounds(sym[:level])
		if err != nil {
			t.Fatalf("Bounds(%q): %v", sym[:level], err)
		}
		if !b.Contains(lat, lon) {
			t.Fatalf("level %d box %+v does not contain point", level, b)
		}
		h, w := CellSize(level)
		if math.Abs((b.MaxLat-b.MinLat)-h) > 1e-9 || math.Abs((b.MaxLon-b.MinLon)-w) > 1e-9 {
			t.Fatalf("level %d box size mismatch: %+v vs (%g,%g)", level, b, h, w)
		}
	}
	full, _ := Bounds(string(code))
	c, _ := Decode(string(code))
	if full.Center() != c {
		t.Fatalf("Bounds centre %v != Decode %v", full.Center(), c)
	}
}

func TestBounds_Errors(t *testing.T) {
	if _, err := Bounds(""); !errors.Is(err, ErrMalformedCode) {
		t.Fatalf("empty prefix err=%v", err)
	}
	if _, err := Bounds("39J-438-TJC7F"); !errors.Is(err, ErrMalformedCode) {
		t.Fatalf("long prefix err=%v", err)
	}
	if _, err := Bounds("3Z"); !errors.Is(err, ErrUnrecognizedSymbol) {
		t.Fatalf("bad symbol err=%v", err)
	}
}

func TestGrid_DistinctAndInvertible(t *testing.T) {
	a := Alphabet()
	if len(a) != 16 {
		t.Fatalf("alphabet len=%d", len(a))
	}
	seen := map[byte]bool{}
	for i := 0; i < len(a); i++ {
		if seen[a[i]] {
			t.Fatalf("duplicate symbol %q", a[i])
		}
		seen[a[i]] = true
		r, c, ok := Lookup(a[i])
		if !ok || Symbol(r, c) != a[i] {
			t.Fatalf("Lookup(%q)=(%d,%d,%v)", a[i], r, c, ok)
		}
	}
	if strings.IndexByte(a, reservedSymbol) >= 0 {
		t.Fatalf("reserved symbol must not be in the grid")
	}
}

func TestConcurrentUse(t *testing.T) {
	var wg sync.WaitGroup
	for g := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 500 {
				lat := 3 + float64((g*500+i)%3500)/100
				lon := 64 + float64(i%3500)/100
				code, err := Encode(lat, lon)
				if err != nil {
					t.Errorf("Encode: %v", err)
					return
				}
				if _, err := Decode(string(code)); err != nil {
					t.Errorf("Decode: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func BenchmarkEncode(b *testing.B) {
	for b.Loop() {
		_, _ = Encode(28.6139, 77.2090)
	}
}

func BenchmarkDecode(b *testing.B) {
	for b.Loop() {
		_, _ = Decode("39J-438-TJC7")
	}
}
