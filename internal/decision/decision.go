// Package decision picks how long shared codes are kept, from area hotness.
package decision

import "time"

type Tier string

const (
	TierCold Tier = "cold"
	TierWarm Tier = "warm"
	TierHot  Tier = "hot"
)

type Reason string

const (
	ReasonCold      Reason = "area_cold"
	ReasonWarm      Reason = "area_warm"
	ReasonHot       Reason = "area_hot"
	ReasonParentHot Reason = "parent_area_hot"
)

type Decision struct {
	Tier   Tier
	TTL    time.Duration
	Area   string
	Score  float64
	Reason Reason
}

type Interface interface {
	Decide(code string) Decision
}
