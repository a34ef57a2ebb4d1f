package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/atttc/ladder/internal/domain"
	"github.com/atttc/ladder/internal/policy"
	"github.com/atttc/ladder/internal/repository"
	"github.com/jackc/pgx/v5"
)

// Engine applies ladder operations inside a caller-owned transaction.
// Every Execute method validates first and writes last, so a returned error
// leaves nothing for the caller to commit.
type Engine struct {
	players repository.PlayerRepository
	matches repository.MatchRepository
	seasons repository.SeasonRepository
	archive repository.ArchiveRepository
	outbox  repository.OutboxRepository
	limits  policy.MatchLimitPolicy
	logger  *slog.Logger
	now     func() time.Time
}

// NewEngine creates a ledger engine with the given repositories.
func NewEngine(
	players repository.PlayerRepository,
	matches repository.MatchRepository,
	seasons repository.SeasonRepository,
	archive repository.ArchiveRepository,
	outbox repository.OutboxRepository,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		players: players,
		matches: matches,
		seasons: seasons,
		archive: archive,
		outbox:  outbox,
		limits:  policy.DefaultMatchLimits(),
		logger:  logger,
		now:     time.Now,
	}
}

// WithClock replaces the engine's notion of today.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// LockPlayerForUpdate acquires a row-level lock and returns the player.
// Must be called within a transaction.
func (e *Engine) LockPlayerForUpdate(ctx context.Context, tx pgx.Tx, playerID int64) (*domain.Player, error) {
	player, err := e.players.LockForUpdate(ctx, tx, playerID)
	if err != nil {
		return nil, fmt.Errorf("lock player: %w", err)
	}
	if player == nil {
		return nil, domain.ErrNotFound("player", fmt.Sprint(playerID))
	}
	return player, nil
}

// lockPair locks both players in ascending id order so concurrent credits
// touching the same two rows cannot deadlock.
func (e *Engine) lockPair(ctx context.Context, tx pgx.Tx, a, b int64) (*domain.Player, *domain.Player, error) {
	first, second := a, b
	if second < first {
		first, second = second, first
	}
	p1, err := e.LockPlayerForUpdate(ctx, tx, first)
	if err != nil {
		return nil, nil, err
	}
	p2, err := e.LockPlayerForUpdate(ctx, tx, second)
	if err != nil {
		return nil, nil, err
	}
	if p1.ID == a {
		return p1, p2, nil
	}
	return p2, p1, nil
}

// activeSeason reads the active season FOR SHARE.
func (e *Engine) activeSeason(ctx context.Context, tx pgx.Tx) (*domain.Season, error) {
	season, err := e.seasons.ShareActive(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("load active season: %w", err)
	}
	if season == nil {
		return nil, domain.ErrNotFound("season", "active")
	}
	return season, nil
}

// emit writes outbox drafts in the caller's transaction.
func (e *Engine) emit(ctx context.Context, tx pgx.Tx, events ...domain.OutboxDraft) error {
	for _, evt := range events {
		if err := e.outbox.Insert(ctx, tx, evt); err != nil {
			return fmt.Errorf("insert outbox event: %w", err)
		}
	}
	return nil
}
