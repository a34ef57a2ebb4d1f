package policy

import (
	"sort"

	"github.com/atttc/ladder/internal/domain"
)

// SeedStep is the points gap between consecutive seed positions.
const SeedStep = 10

// SeedCandidate is a returning player's final standing in the prior season.
type SeedCandidate struct {
	PlayerID int64
	Points   int
}

// SeedPoints ranks candidates by prior-season points, highest first, and awards
// SeedStep × (n − position). Tied players share the better position.
func SeedPoints(candidates []SeedCandidate) map[int64]int {
	ranked := make([]SeedCandidate, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Points != ranked[j].Points {
			return ranked[i].Points > ranked[j].Points
		}
		return ranked[i].PlayerID < ranked[j].PlayerID
	})

	n := len(ranked)
	seeds := make(map[int64]int, n)
	position := 0
	for i, c := range ranked {
		if i > 0 && c.Points != ranked[i-1].Points {
			position = i
		}
		seeds[c.PlayerID] = SeedStep * (n - position)
	}
	return seeds
}

// TournamentQualified applies the override tri-state, falling back to the
// match and distinct-opponent minimums when the override is automatic.
func TournamentQualified(override, matches, opponents int, params domain.TournamentParams) bool {
	switch {
	case override > 0:
		return true
	case override < 0:
		return false
	}
	return matches >= params.MinMatches && opponents >= params.MinOpponents
}
