package main

import (
	"context"
	"math"
	"math/rand"
	"strings"
	"testing"

	"golang.org/x/time/rate"

	"github.com/mohammed-shakir/digipin-grid/internal/digipin"
)

func TestMakePoints_InsideGrid(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	pts := makePoints(64, r)
	if len(pts) != 64 {
		t.Fatalf("len=%d", len(pts))
	}
	for _, p := range pts {
		if _, err := digipin.Encode(p.Lat, p.Lon); err != nil {
			t.Fatalf("point %s not encodable: %v", p.ID, err)
		}
	}
}

func TestReadPointsCSV_SkipsOutOfRegion(t *testing.T) {
	in := "id,lat,lon\ndelhi,28.6139,77.2090\nstockholm,59.3293,18.0686\n"
	pts, err := readPointsCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("readPointsCSV: %v", err)
	}
	if len(pts) != 1 || pts[0].ID != "delhi" {
		t.Fatalf("pts=%+v", pts)
	}
	if _, err := readPointsCSV(strings.NewReader("name,x,y\n")); err == nil {
		t.Fatalf("expected header error")
	}
}

func TestPercentile(t *testing.T) {
	v := []float64{1, 2, 3, 4, 5}
	if got := percentile(v, 50); got != 3 {
		t.Fatalf("p50=%v", got)
	}
	if got := percentile(v, 100); got != 5 {
		t.Fatalf("p100=%v", got)
	}
	if !math.IsNaN(percentile(nil, 50)) {
		t.Fatalf("empty input must be NaN")
	}
}

func TestLocationEvent_Valid(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	ev := locationEvent("device-001", Point{Lat: 12.97, Lon: 77.59}, 3, r)
	if err := ev.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if ev.Version != 3 || ev.Source != "loadgen" {
		t.Fatalf("ev=%+v", ev)
	}
}

func TestNewLimiter(t *testing.T) {
	if l := newLimiter(0, 8); l.Limit() != rate.Inf {
		t.Fatalf("rps=0 limit=%v want Inf", l.Limit())
	}
	l := newLimiter(50, 0)
	if l.Limit() != 50 || l.Burst() != 1 {
		t.Fatalf("limit=%v burst=%d", l.Limit(), l.Burst())
	}
	if err := newLimiter(0, 0).Wait(context.Background()); err != nil {
		t.Fatalf("unlimited wait: %v", err)
	}
}
