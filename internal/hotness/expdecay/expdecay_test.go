package expdecay

import (
	"math"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Set(t time.Time) {
	f.mu.Lock()
	f.now = t
	f.mu.Unlock()
}

func (f *fakeClock) Add(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func newTrackerForTest(hl time.Duration, fc *fakeClock) *Tracker {
	if fc == nil {
		fc = &fakeClock{}
		fc.Set(time.Unix(0, 0).UTC())
	}
	tr := New(hl)
	tr.now = fc.Now
	return tr
}

func almostEq(t *testing.T, got, want, eps float64) {
	t.Helper()
	if math.Abs(got-want) > eps {
		t.Fatalf("got=%g want=%g (eps=%g)", got, want, eps)
	}
}

func TestIncAndScore_AccumulatesImmediately(t *testing.T) {
	fc := &fakeClock{}
	fc.Set(time.Unix(0, 0).UTC())
	tr := newTrackerForTest(time.Minute, fc)

	area := "39J4"

	tr.Inc(area)
	almostEq(t, tr.Score(area), 1.0, 1e-9)

	tr.Inc(area)
	almostEq(t, tr.Score(area), 2.0, 1e-9)

	tr.Inc(area)
	almostEq(t, tr.Score(area), 3.0, 1e-9)
}

func TestHalfLife_DecaysByHalf(t *testing.T) {
	hl := 2 * time.Second
	fc := &fakeClock{}
	fc.Set(time.Unix(0, 0).UTC())
	tr := newTrackerForTest(hl, fc)

	area := "39J4"

	tr.Inc(area)
	almostEq(t, tr.Score(area), 1.0, 1e-9)

	fc.Add(hl)
	got := tr.Score(area)
	// after one half-life, score should be halved
	almostEq(t, got, 0.5, 1e-6)

	fc.Add(hl)
	got = tr.Score(area)
	almostEq(t, got, 0.25, 1e-6)
}

func TestConcurrency_ManyIncSameArea(t *testing.T) {
	fc := &fakeClock{}
	fc.Set(time.Unix(0, 0).UTC())
	tr := newTrackerForTest(1*time.Minute, fc)

	area := "4P3J"
	const N = 256

	var wg sync.WaitGroup
	wg.Add(N)
	for range N {
		go func() {
			tr.Inc(area)
			wg.Done()
		}()
	}
	wg.Wait()

	got := tr.Score(area)
	almostEq(t, got, N, 1e-9)
}

func TestReset_OnlySelectedAreas(t *testing.T) {
	fc := &fakeClock{}
	fc.Set(time.Unix(0, 0).UTC())
	tr := newTrackerForTest(30*time.Second, fc)

	a := "39J4"
	b := "4FK5"

	tr.Inc(a)
	tr.Inc(b)
	if tr.Score(a) <= 0 || tr.Score(b) <= 0 {
		t.Fatalf("precondition failed: scores must be > 0")
	}

	tr.Reset(a)

	if got := tr.Score(a); got != 0 {
		t.Fatalf("reset failed for %s: got %g want 0", a, got)
	}
	if got := tr.Score(b); got <= 0 {
		t.Fatalf("unexpected reset of %s: got %g want >0", b, got)
	}
}

func TestDecayHelper_Edges(t *testing.T) {
	if got := decay(0, 10, 60); got != 0 {
		t.Fatalf("expected 0, got %g", got)
	}
	if got := decay(5, 0, 60); got != 5 {
		t.Fatalf("expected 5, got %g", got)
	}
	if got := decay(5, 10, 0); got != 5 {
		t.Fatalf("expected 5, got %g", got)
	}
}

func TestTop_OrdersByDecayedScore(t *testing.T) {
	fc := &fakeClock{}
	fc.Set(time.Unix(0, 0).UTC())
	tr := newTrackerForTest(time.Minute, fc)

	for range 3 {
		tr.Inc("39J4")
	}
	// older hits decay below the fresh ones
	fc.Add(2 * time.Minute)
	tr.Inc("4P3J")
	tr.Inc("4P3J")
	tr.Inc("4FK5")
	tr.Inc("4FK6")

	top := tr.Top(3)
	if len(top) != 3 {
		t.Fatalf("len=%d want 3", len(top))
	}
	if top[0].Area != "4P3J" {
		t.Fatalf("top[0]=%+v want 4P3J", top[0])
	}
	if top[1].Area != "4FK5" || top[2].Area != "4FK6" {
		t.Fatalf("ties must break by area: %+v", top)
	}
	almostEq(t, tr.Score("39J4"), 0.75, 1e-9)

	if tr.Top(0) != nil {
		t.Fatalf("Top(0) must be nil")
	}
	if got := tr.Top(100); len(got) != 4 {
		t.Fatalf("Top(100) len=%d want 4", len(got))
	}
}

func TestPrune_DropsColdAreas(t *testing.T) {
	fc := &fakeClock{}
	fc.Set(time.Unix(0, 0).UTC())
	tr := newTrackerForTest(time.Second, fc)

	tr.Inc("LLLL")
	fc.Add(10 * time.Second)
	tr.Inc("8888")

	if n := tr.Prune(0.01); n != 1 {
		t.Fatalf("pruned=%d want 1", n)
	}
	if tr.Size() != 1 || tr.Score("8888") != 1 {
		t.Fatalf("unexpected survivors: size=%d", tr.Size())
	}
}
