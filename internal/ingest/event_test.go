package ingest

import (
	"math"
	"strings"
	"testing"
	"time"
)

func okEvent() LocationEvent {
	return LocationEvent{
		DeviceID: "truck-17", Lat: 28.6139, Lon: 77.209, Version: 3,
		TS: time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC), Source: "gps",
	}
}

func TestLocationEvent_Validate(t *testing.T) {
	if err := okEvent().Validate(); err != nil {
		t.Fatalf("unexpected: %v", err)
	}

	// outside the grid but a real place: still valid
	ev := okEvent()
	ev.Lat, ev.Lon = 59.33, 18.07
	if err := ev.Validate(); err != nil {
		t.Fatalf("out-of-region event must validate: %v", err)
	}

	cases := map[string]func(*LocationEvent){
		"device_id": func(e *LocationEvent) { e.DeviceID = "  " },
		"version":   func(e *LocationEvent) { e.Version = 0 },
		"ts":        func(e *LocationEvent) { e.TS = time.Time{} },
		"lat":       func(e *LocationEvent) { e.Lat = math.NaN() },
		"lon":       func(e *LocationEvent) { e.Lon = 181 },
	}
	for field, mut := range cases {
		e := okEvent()
		mut(&e)
		err := e.Validate()
		if err == nil || !strings.Contains(err.Error(), field) {
			t.Fatalf("%s: expected error naming the field, got %v", field, err)
		}
	}
}
