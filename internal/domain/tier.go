package domain

import (
	"fmt"
	"strings"
)

// Tier is a ladder skill group. A > B > C > unranked/beginner.
type Tier string

const (
	TierA        Tier = "A"
	TierB        Tier = "B"
	TierC        Tier = "C"
	TierUnranked Tier = "unranked"
	TierBeginner Tier = "beginner"
)

// RankedTiers lists the tiers that carry promotion dates, highest first.
var RankedTiers = []Tier{TierA, TierB, TierC}

// Weight orders tiers for comparison. Beginner weighs the same as unranked.
func (t Tier) Weight() int {
	switch t {
	case TierA:
		return 3
	case TierB:
		return 2
	case TierC:
		return 1
	default:
		return 0
	}
}

// Ranked reports whether t is one of A, B or C.
func (t Tier) Ranked() bool {
	return t.Weight() > 0
}

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	switch t {
	case TierA, TierB, TierC, TierUnranked, TierBeginner:
		return true
	}
	return false
}

// CompareTiers returns -1, 0 or 1 as a is below, level with or above b.
func CompareTiers(a, b Tier) int {
	wa, wb := a.Weight(), b.Weight()
	switch {
	case wa < wb:
		return -1
	case wa > wb:
		return 1
	}
	return 0
}

// HigherTier returns whichever of a and b ranks higher.
func HigherTier(a, b Tier) Tier {
	if CompareTiers(a, b) >= 0 {
		return a
	}
	return b
}

// TiersBelow returns the ranked tiers strictly below t, highest first.
func TiersBelow(t Tier) []Tier {
	var out []Tier
	for _, r := range RankedTiers {
		if r.Weight() < t.Weight() {
			out = append(out, r)
		}
	}
	return out
}

// TiersBetween returns the ranked tiers above from up to and including to, lowest first.
func TiersBetween(from, to Tier) []Tier {
	var out []Tier
	for i := len(RankedTiers) - 1; i >= 0; i-- {
		r := RankedTiers[i]
		if r.Weight() > from.Weight() && r.Weight() <= to.Weight() {
			out = append(out, r)
		}
	}
	return out
}

// ParseTier accepts tier names case-insensitively.
func ParseTier(s string) (Tier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "a":
		return TierA, nil
	case "b":
		return TierB, nil
	case "c":
		return TierC, nil
	case "unranked":
		return TierUnranked, nil
	case "beginner":
		return TierBeginner, nil
	}
	return "", fmt.Errorf("unknown tier: %q", s)
}
