package simple

import (
	"sync"
	"testing"
	"time"

	"github.com/mohammed-shakir/digipin-grid/internal/decision"
	"github.com/mohammed-shakir/digipin-grid/internal/digipin"
	"github.com/mohammed-shakir/digipin-grid/internal/hotness"
	"github.com/mohammed-shakir/digipin-grid/internal/hotness/expdecay"
)

type fakeHot struct {
	mu sync.Mutex
	m  map[string]float64
}

func newFakeHot() *fakeHot { return &fakeHot{m: make(map[string]float64)} }

func (f *fakeHot) Inc(area string) {
	f.mu.Lock()
	f.m[area]++
	f.mu.Unlock()
}

func (f *fakeHot) Score(area string) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.m[area]
}

func (f *fakeHot) Reset(areas ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range areas {
		delete(f.m, a)
	}
}

var _ hotness.Interface = (*fakeHot)(nil)

func testCfg() Config {
	return Config{Threshold: 2, Level: 4, TTLCold: time.Hour, TTLWarm: 7 * time.Hour, TTLHot: 30 * time.Hour}
}

func TestDecide_TiersByAreaScore(t *testing.T) {
	h := newFakeHot()
	p := New(h, testCfg())
	code := "39J-438-TJC7"

	cases := []struct {
		score  float64
		tier   decision.Tier
		ttl    time.Duration
		reason decision.Reason
	}{
		{0, decision.TierCold, time.Hour, decision.ReasonCold},
		{1.9, decision.TierCold, time.Hour, decision.ReasonCold},
		{2, decision.TierWarm, 7 * time.Hour, decision.ReasonWarm},
		{7.9, decision.TierWarm, 7 * time.Hour, decision.ReasonWarm},
		{8, decision.TierHot, 30 * time.Hour, decision.ReasonHot},
	}
	for _, c := range cases {
		h.m["39J4"] = c.score
		d := p.Decide(code)
		if d.Tier != c.tier || d.TTL != c.ttl || d.Reason != c.reason || d.Area != "39J4" {
			t.Fatalf("score=%g got %+v", c.score, d)
		}
	}
}

func TestDecide_ParentHotPromotesColdArea(t *testing.T) {
	h := newFakeHot()
	p := New(h, testCfg())

	// the areas under 39J hold 3.75 between them
	h.m["39JF"], h.m["39JT"], h.m["39J4"] = 2, 1.5, 0.25
	if d := p.Decide("39J-438-TJC7"); d.Tier != decision.TierCold {
		t.Fatalf("parent below 2x threshold must not promote: %+v", d)
	}
	h.m["39J4"] = 0.5
	d := p.Decide("39J-438-TJC7")
	if d.Tier != decision.TierWarm || d.Reason != decision.ReasonParentHot {
		t.Fatalf("expected parent promotion, got %+v", d)
	}
	h.m["39J"] = 100
	h.m["39JF"], h.m["39JT"], h.m["39J4"] = 0, 0, 0
	if d := p.Decide("39J-438-TJC7"); d.Tier != decision.TierCold {
		t.Fatalf("only level-4 areas count toward the parent: %+v", d)
	}
}

func TestDecide_ParentPromotionWithTracker(t *testing.T) {
	tr := expdecay.New(time.Hour)
	p := New(tr, Config{Threshold: 5, Level: 4, TTLCold: time.Hour, TTLWarm: 7 * time.Hour})

	// 64 lookups spread over the 16 areas under 39J: each area stays cold
	for i := range 64 {
		tr.Inc("39J" + digipin.Alphabet()[i%16:i%16+1])
	}
	d := p.Decide("39J-4F8-TJC7")
	if d.Score >= 5 {
		t.Fatalf("area itself should be cold, score=%g", d.Score)
	}
	if d.Tier != decision.TierWarm || d.Reason != decision.ReasonParentHot || d.TTL != 7*time.Hour {
		t.Fatalf("expected parent promotion, got %+v", d)
	}
	if d := p.Decide("4P3-JK8-52C9"); d.Tier != decision.TierCold {
		t.Fatalf("unrelated area promoted: %+v", d)
	}
}

func TestDecide_DefaultsAndDegenerateInputs(t *testing.T) {
	p := New(nil, Config{TTLCold: time.Minute})
	if d := p.Decide("39J-438-TJC7"); d.Tier != decision.TierCold || d.TTL != time.Minute {
		t.Fatalf("nil tracker must be cold: %+v", d)
	}
	if p.cfg.Level != 4 || p.cfg.TTLWarm != time.Minute || p.cfg.TTLHot != time.Minute {
		t.Fatalf("defaults not applied: %+v", p.cfg)
	}

	h := newFakeHot()
	h.m["39"] = 100
	short := New(h, testCfg())
	// a prefix shorter than the level is scored as-is
	if d := short.Decide("39"); d.Tier != decision.TierHot || d.Area != "39" {
		t.Fatalf("short prefix: %+v", d)
	}
}
