package simple

import (
	"time"

	"github.com/mohammed-shakir/digipin-grid/internal/decision"
	"github.com/mohammed-shakir/digipin-grid/internal/digipin"
	"github.com/mohammed-shakir/digipin-grid/internal/hotness"
)

var alphabet = digipin.Alphabet()

type Config struct {
	Threshold float64
	Level     int
	TTLCold   time.Duration
	TTLWarm   time.Duration
	TTLHot    time.Duration
}

type Policy struct {
	cfg Config
	hot hotness.Interface
}

var _ decision.Interface = (*Policy)(nil)

func New(hot hotness.Interface, cfg Config) *Policy {
	if cfg.Level <= 0 {
		cfg.Level = 4
	}
	if cfg.TTLWarm <= 0 {
		cfg.TTLWarm = cfg.TTLCold
	}
	if cfg.TTLHot <= 0 {
		cfg.TTLHot = cfg.TTLWarm
	}
	return &Policy{cfg: cfg, hot: hot}
}

// Decide scores the code's area at the configured level. A cold area whose
// parent holds at least 2x threshold, summed over its 16 areas, is promoted
// to warm.
func (p *Policy) Decide(code string) decision.Decision {
	area := hotness.Area(code, p.cfg.Level)
	d := decision.Decision{Tier: decision.TierCold, TTL: p.cfg.TTLCold, Area: area, Reason: decision.ReasonCold}
	if p.hot == nil || area == "" || p.cfg.Threshold <= 0 {
		return d
	}

	d.Score = p.hot.Score(area)
	switch {
	case d.Score >= 4*p.cfg.Threshold:
		d.Tier, d.TTL, d.Reason = decision.TierHot, p.cfg.TTLHot, decision.ReasonHot
	case d.Score >= p.cfg.Threshold:
		d.Tier, d.TTL, d.Reason = decision.TierWarm, p.cfg.TTLWarm, decision.ReasonWarm
	case p.cfg.Level > 1 && len(area) == p.cfg.Level:
		if p.parentScore(area) >= 2*p.cfg.Threshold {
			d.Tier, d.TTL, d.Reason = decision.TierWarm, p.cfg.TTLWarm, decision.ReasonParentHot
		}
	}
	return d
}

// parentScore sums area and its siblings. Only areas at the configured level
// are ever incremented, so the parent has no score of its own.
func (p *Policy) parentScore(area string) float64 {
	parent := area[:len(area)-1]
	var sum float64
	for i := range len(alphabet) {
		sum += p.hot.Score(parent + alphabet[i:i+1])
	}
	return sum
}
