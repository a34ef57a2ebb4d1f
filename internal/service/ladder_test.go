package service

import (
	"context"
	"testing"

	"github.com/atttc/ladder/internal/domain"
	"github.com/atttc/ladder/internal/infra"
	"github.com/atttc/ladder/internal/projection"
	"github.com/atttc/ladder/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

type rosterPlayers struct {
	repository.PlayerRepository
	players    []domain.Player
	listCalls  int
	deletedIDs []int64
}

func (r *rosterPlayers) ListActive(_ context.Context, _ repository.DBTX, tier domain.Tier) ([]domain.Player, error) {
	r.listCalls++
	var out []domain.Player
	for _, p := range r.players {
		if p.Tier == tier {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *rosterPlayers) LockForUpdate(_ context.Context, _ pgx.Tx, id int64) (*domain.Player, error) {
	for i := range r.players {
		if r.players[i].ID == id {
			p := r.players[i]
			return &p, nil
		}
	}
	return nil, nil
}

func (r *rosterPlayers) Delete(_ context.Context, _ repository.DBTX, id int64) error {
	r.deletedIDs = append(r.deletedIDs, id)
	return nil
}

type noSeason struct {
	repository.SeasonRepository
}

func (noSeason) GetActive(context.Context, repository.DBTX) (*domain.Season, error) { return nil, nil }

type noHistory struct {
	repository.MatchRepository
}

func (noHistory) HasHistory(context.Context, repository.DBTX, int64) (bool, error) { return false, nil }

func newCachedLadder(players *rosterPlayers) *LadderService {
	repos := &repository.Set{Players: players, Seasons: noSeason{}, Matches: noHistory{}}
	return NewLadderService(&fakeDB{}, nil, repos, noop.NewTracerProvider().Tracer("test"),
		infra.NewLadderMetrics(prometheus.NewRegistry()), quietLogger(), 3).
		WithStandingsCache(projection.NewInMemoryStore())
}

// --- Standings Cache Tests ---

func TestStandings_ServedFromCache(t *testing.T) {
	players := &rosterPlayers{players: []domain.Player{
		{ID: 1, LastName: "Navratilova", Tier: domain.TierA, Points: 70, Active: true},
		{ID: 2, LastName: "Shriver", Tier: domain.TierB, Points: 40, Active: true},
	}}
	svc := newCachedLadder(players)
	ctx := context.Background()

	first, err := svc.Standings(ctx, domain.TierA)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := svc.Standings(ctx, domain.TierA)
	require.NoError(t, err)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Equal(t, 1, players.listCalls, "second read hits the cache")

	_, err = svc.Standings(ctx, domain.TierB)
	require.NoError(t, err)
	assert.Equal(t, 2, players.listCalls, "tiers are cached separately")
}

func TestStandings_DroppedAfterRosterChange(t *testing.T) {
	players := &rosterPlayers{players: []domain.Player{
		{ID: 1, LastName: "Navratilova", Tier: domain.TierA, Points: 70, Active: true},
	}}
	svc := newCachedLadder(players)
	ctx := context.Background()

	_, err := svc.Standings(ctx, domain.TierA)
	require.NoError(t, err)

	require.NoError(t, svc.DeletePlayer(ctx, 1))
	assert.Equal(t, []int64{1}, players.deletedIDs)

	_, err = svc.Standings(ctx, domain.TierA)
	require.NoError(t, err)
	assert.Equal(t, 2, players.listCalls)
}

func TestStandings_RejectsUnknownTier(t *testing.T) {
	svc := newCachedLadder(&rosterPlayers{})
	_, err := svc.Standings(context.Background(), domain.Tier("Z"))
	assert.True(t, domain.HasCode(err, domain.CodeValidation))
}
