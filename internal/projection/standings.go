package projection

import (
	"context"
	"time"

	"github.com/atttc/ladder/internal/domain"
)

// StandingsTTL bounds how stale a cached tier can get when another process,
// such as ladderctl, changes the ledger without invalidating this cache.
const StandingsTTL = 15 * time.Second

var cachedTiers = []domain.Tier{domain.TierA, domain.TierB, domain.TierC, domain.TierUnranked, domain.TierBeginner}

func standingsKey(tier domain.Tier) string {
	return "projection:standings:" + string(tier)
}

// PutStandings caches one tier's standings.
func PutStandings(ctx context.Context, store Store, tier domain.Tier, players []domain.Player) error {
	return SetJSON(ctx, store, standingsKey(tier), players, StandingsTTL)
}

// GetStandings returns a tier's cached standings or an error wrapping ErrMiss.
func GetStandings(ctx context.Context, store Store, tier domain.Tier) ([]domain.Player, error) {
	var players []domain.Player
	if err := GetJSON(ctx, store, standingsKey(tier), &players); err != nil {
		return nil, err
	}
	return players, nil
}

// InvalidateStandings drops every cached tier.
func InvalidateStandings(ctx context.Context, store Store) error {
	for _, t := range cachedTiers {
		if err := store.Delete(ctx, standingsKey(t)); err != nil {
			return err
		}
	}
	return nil
}
