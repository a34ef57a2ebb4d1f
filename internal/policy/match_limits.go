package policy

import (
	"fmt"

	"github.com/atttc/ladder/internal/domain"
)

// MatchLimitPolicy defines the challenge-frequency rule for one season.
type MatchLimitPolicy struct {
	PairCap      int `json:"pair_cap"`      // matches against one opponent before Threshold is reached
	Threshold    int `json:"threshold"`     // season total after which the share rule applies
	ShareDivisor int `json:"share_divisor"` // one opponent may account for at most 1/ShareDivisor of the total
}

// DefaultMatchLimits returns the league's 3-of-9 / one-third rule.
func DefaultMatchLimits() MatchLimitPolicy {
	return MatchLimitPolicy{
		PairCap:      3,
		Threshold:    9,
		ShareDivisor: 3,
	}
}

// LimitEvaluation holds the result of a rematch-limit check.
type LimitEvaluation struct {
	Allowed       bool   `json:"allowed"`
	BreachedLimit string `json:"breached_limit,omitempty"`
	PlayerTotal   int    `json:"player_total,omitempty"`
	PairCount     int    `json:"pair_count,omitempty"`
}

// EvaluateMatchLimits checks the counts, which must include the match being credited.
// For each player: under Threshold total matches the pair may meet at most PairCap
// times; from Threshold on, pair × ShareDivisor may not exceed that player's total.
func EvaluateMatchLimits(policy MatchLimitPolicy, counts domain.MatchCounts) LimitEvaluation {
	for _, total := range []int{counts.Challenger, counts.Opponent} {
		if total < policy.Threshold {
			if counts.Pair > policy.PairCap {
				return LimitEvaluation{
					Allowed:       false,
					BreachedLimit: "pair_cap",
					PlayerTotal:   total,
					PairCount:     counts.Pair,
				}
			}
			continue
		}
		if counts.Pair*policy.ShareDivisor > total {
			return LimitEvaluation{
				Allowed:       false,
				BreachedLimit: "pair_share",
				PlayerTotal:   total,
				PairCount:     counts.Pair,
			}
		}
	}
	return LimitEvaluation{Allowed: true}
}

// Message renders a rejected evaluation for callers.
func (e LimitEvaluation) Message(policy MatchLimitPolicy) string {
	switch e.BreachedLimit {
	case "pair_cap":
		return fmt.Sprintf("match limit reached for this pair of players: %d matches against the same opponent with only %d of %d season matches played",
			e.PairCount, e.PlayerTotal, policy.Threshold)
	case "pair_share":
		return fmt.Sprintf("match limit reached for this pair of players: %d matches against the same opponent exceeds one %s of %d season matches",
			e.PairCount, ordinal(policy.ShareDivisor), e.PlayerTotal)
	}
	return ""
}

func ordinal(n int) string {
	switch n {
	case 2:
		return "half"
	case 3:
		return "third"
	case 4:
		return "quarter"
	}
	return fmt.Sprintf("1/%d", n)
}
