// Package expdecay scores areas with an exponentially decaying hit counter.
package expdecay

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/mohammed-shakir/digipin-grid/internal/cache/keys"
	"github.com/mohammed-shakir/digipin-grid/internal/hotness"
)

const numShards = 64

type Tracker struct {
	HalfLife time.Duration

	now func() time.Time

	shards [numShards]shard
}

type shard struct {
	mu sync.RWMutex
	m  map[string]*counter
}

type counter struct {
	score float64
	last  time.Time
}

var _ hotness.Interface = (*Tracker)(nil)

func New(halfLife time.Duration) *Tracker {
	if halfLife <= 0 {
		halfLife = time.Minute
	}
	t := &Tracker{HalfLife: halfLife, now: time.Now}
	for i := range t.shards {
		t.shards[i].m = make(map[string]*counter)
	}
	return t
}

func (t *Tracker) Inc(area string) {
	if area == "" {
		return
	}
	s := t.pick(area)
	n := t.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.m[area]
	if c == nil {
		s.m[area] = &counter{score: 1, last: n}
		return
	}
	// decay up to now, then count this hit
	c.score = decay(c.score, n.Sub(c.last).Seconds(), t.HalfLife.Seconds()) + 1.0
	c.last = n
}

func (t *Tracker) Score(area string) float64 {
	if area == "" {
		return 0
	}
	s := t.pick(area)
	n := t.now()

	s.mu.RLock()
	c := s.m[area]
	if c == nil {
		s.mu.RUnlock()
		return 0
	}
	score, last := c.score, c.last
	s.mu.RUnlock()

	return decay(score, n.Sub(last).Seconds(), t.HalfLife.Seconds())
}

func (t *Tracker) Reset(areas ...string) {
	for _, a := range areas {
		if a == "" {
			continue
		}
		s := t.pick(a)
		s.mu.Lock()
		delete(s.m, a)
		s.mu.Unlock()
	}
}

// Top returns up to n areas by current score, highest first. Ties break by area.
func (t *Tracker) Top(n int) []hotness.Entry {
	if n <= 0 {
		return nil
	}
	now := t.now()
	hl := t.HalfLife.Seconds()
	var all []hotness.Entry
	for i := range t.shards {
		s := &t.shards[i]
		s.mu.RLock()
		for a, c := range s.m {
			all = append(all, hotness.Entry{Area: a, Score: decay(c.score, now.Sub(c.last).Seconds(), hl)})
		}
		s.mu.RUnlock()
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Score != all[j].Score {
			return all[i].Score > all[j].Score
		}
		return all[i].Area < all[j].Area
	})
	if len(all) > n {
		all = all[:n]
	}
	return all
}

// Prune drops areas whose decayed score fell below min and reports how many went.
func (t *Tracker) Prune(min float64) int {
	now := t.now()
	hl := t.HalfLife.Seconds()
	removed := 0
	for i := range t.shards {
		s := &t.shards[i]
		s.mu.Lock()
		for a, c := range s.m {
			if decay(c.score, now.Sub(c.last).Seconds(), hl) < min {
				delete(s.m, a)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}

func decay(score, dt, halfLife float64) float64 {
	if score == 0 || dt <= 0 || halfLife <= 0 {
		return score
	}
	lambda := math.Ln2 / halfLife
	return score * math.Exp(-lambda*dt)
}

func (t *Tracker) pick(area string) *shard {
	return &t.shards[keys.Shard(area, numShards)]
}

func (t *Tracker) Size() int {
	total := 0
	for i := range t.shards {
		t.shards[i].mu.RLock()
		total += len(t.shards[i].m)
		t.shards[i].mu.RUnlock()
	}
	return total
}
