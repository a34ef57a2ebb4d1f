package policy

import (
	"testing"

	"github.com/atttc/ladder/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestEvaluateMatchLimits(t *testing.T) {
	policy := DefaultMatchLimits()

	tests := []struct {
		name       string
		counts     domain.MatchCounts
		wantAllow  bool
		wantBreach string
	}{
		{"first meeting", domain.MatchCounts{Pair: 1, Challenger: 1, Opponent: 1}, true, ""},
		{"third meeting under nine", domain.MatchCounts{Pair: 3, Challenger: 8, Opponent: 5}, true, ""},
		{"fourth meeting under nine", domain.MatchCounts{Pair: 4, Challenger: 8, Opponent: 12}, false, "pair_cap"},
		{"fourth meeting when only one player reached nine", domain.MatchCounts{Pair: 4, Challenger: 12, Opponent: 8}, false, "pair_cap"},
		{"one third exactly", domain.MatchCounts{Pair: 4, Challenger: 12, Opponent: 12}, true, ""},
		{"more than one third", domain.MatchCounts{Pair: 4, Challenger: 11, Opponent: 12}, false, "pair_share"},
		{"three at nine", domain.MatchCounts{Pair: 3, Challenger: 9, Opponent: 9}, true, ""},
		{"four at nine", domain.MatchCounts{Pair: 4, Challenger: 9, Opponent: 9}, false, "pair_share"},
		{"five of fifteen", domain.MatchCounts{Pair: 5, Challenger: 15, Opponent: 20}, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := EvaluateMatchLimits(policy, tt.counts)
			assert.Equal(t, tt.wantAllow, result.Allowed)
			assert.Equal(t, tt.wantBreach, result.BreachedLimit)
			if !tt.wantAllow {
				assert.Contains(t, result.Message(policy), "match limit reached for this pair of players")
			}
		})
	}
}

// Sweeps every pair count up to each total and checks the rule agrees with its plain statement.
func TestEvaluateMatchLimits_Boundaries(t *testing.T) {
	policy := DefaultMatchLimits()
	for total := 1; total <= 30; total++ {
		for pair := 1; pair <= total; pair++ {
			var want bool
			if total < 9 {
				want = pair <= 3
			} else {
				want = pair*3 <= total
			}
			got := EvaluateMatchLimits(policy, domain.MatchCounts{Pair: pair, Challenger: total, Opponent: total})
			assert.Equal(t, want, got.Allowed, "pair=%d total=%d", pair, total)
		}
	}
}

// --- Seeding Tests ---

func TestSeedPoints(t *testing.T) {
	tests := []struct {
		name       string
		candidates []SeedCandidate
		want       map[int64]int
	}{
		{"empty", nil, map[int64]int{}},
		{"single", []SeedCandidate{{PlayerID: 9, Points: 0}}, map[int64]int{9: 10}},
		{
			"distinct points",
			[]SeedCandidate{{1, 40}, {2, 120}, {3, 75}},
			map[int64]int{2: 30, 3: 20, 1: 10},
		},
		{
			"ties share the better position",
			[]SeedCandidate{{1, 50}, {2, 40}, {3, 40}, {4, 10}},
			map[int64]int{1: 40, 2: 30, 3: 30, 4: 10},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SeedPoints(tt.candidates)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("SeedPoints mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSeedPoints_DoesNotReorderInput(t *testing.T) {
	in := []SeedCandidate{{1, 10}, {2, 90}}
	SeedPoints(in)
	assert.Equal(t, int64(1), in[0].PlayerID)
}

// --- Qualification Tests ---

func TestTournamentQualified(t *testing.T) {
	params := domain.TournamentParams{MinMatches: 9, MinOpponents: 5}

	tests := []struct {
		name      string
		override  int
		matches   int
		opponents int
		want      bool
	}{
		{"forced in despite no matches", domain.OverrideQualify, 0, 0, true},
		{"forced out despite enough matches", domain.OverrideDisqualify, 20, 10, false},
		{"auto meets both minimums", domain.OverrideAuto, 9, 5, true},
		{"auto short on matches", domain.OverrideAuto, 8, 6, false},
		{"auto short on opponents", domain.OverrideAuto, 12, 4, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TournamentQualified(tt.override, tt.matches, tt.opponents, params))
		})
	}
}
