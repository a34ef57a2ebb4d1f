package repository

import (
	"context"
	"time"

	"github.com/atttc/ladder/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX abstracts pgx.Tx and pgxpool.Pool so repositories work with both.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// PlayerTally is a player's qualifying activity in one season.
type PlayerTally struct {
	Matches   int
	Opponents int
}

// PlayerRepository provides access to players.
type PlayerRepository interface {
	// FindByID returns a player by ID, or nil.
	FindByID(ctx context.Context, db DBTX, id int64) (*domain.Player, error)

	// FindByUsername matches the username case-insensitively.
	FindByUsername(ctx context.Context, db DBTX, username string) (*domain.Player, error)

	// LockForUpdate acquires a row-level lock (SELECT FOR UPDATE) and returns the player.
	LockForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*domain.Player, error)

	// List returns players matching the filter, combined with op, ordered by last and first name.
	List(ctx context.Context, db DBTX, filter domain.PlayerFilter, op domain.FilterOp) ([]domain.Player, error)

	// ListActive returns active players in tier (all tiers when empty), highest points first.
	ListActive(ctx context.Context, db DBTX, tier domain.Tier) ([]domain.Player, error)

	// Create inserts a player and fills in ID and timestamps.
	Create(ctx context.Context, db DBTX, p *domain.Player) error

	// Save writes every mutable column of p.
	Save(ctx context.Context, db DBTX, p *domain.Player) error

	// Delete removes a player row.
	Delete(ctx context.Context, db DBTX, id int64) error

	// ApplySeed sets initial_points and shifts points by delta.
	ApplySeed(ctx context.Context, db DBTX, id int64, initial, delta int) error

	// ResetSeason zeroes every player's season counters, points and promotion dates
	// and resets overrides. Players are deactivated unless keepActive is set.
	ResetSeason(ctx context.Context, tx pgx.Tx, keepActive bool) (int64, error)

	// UsernameInUse checks players and admins case-insensitively, ignoring the given
	// player and admin ids (0 ignores nothing).
	UsernameInUse(ctx context.Context, db DBTX, username string, exceptPlayer, exceptAdmin int64) (bool, error)
}

// MatchRepository provides access to matches.
type MatchRepository interface {
	// Insert writes a match and fills in ID and CreatedAt.
	Insert(ctx context.Context, db DBTX, m *domain.Match) error

	// FindByID returns a match joined with participant last names, or nil.
	FindByID(ctx context.Context, db DBTX, id int64) (*domain.Match, error)

	// LockForUpdate locks a match row for a status transition.
	LockForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*domain.Match, error)

	// List returns matches matching every set filter field, newest first.
	List(ctx context.Context, db DBTX, filter domain.MatchFilter) ([]domain.Match, error)

	// SetStatus updates the pending and disputed flags.
	SetStatus(ctx context.Context, db DBTX, id int64, pending, disputed bool) error

	// Approve credits a pending match with the tier and points computed at approval.
	Approve(ctx context.Context, db DBTX, m *domain.Match) error

	// CountForLimits tallies non-disputed season matches for the pair and for each
	// player. Pending matches count. excludeID leaves one match out (0 for none).
	CountForLimits(ctx context.Context, db DBTX, seasonID, challengerID, opponentID, excludeID int64) (domain.MatchCounts, error)

	// Tallies returns matches played and distinct opponents per player for the
	// season, ignoring pending and disputed matches.
	Tallies(ctx context.Context, db DBTX, seasonID int64) (map[int64]PlayerTally, error)

	// NonWinningSince returns non-disputed matches dated on or after since, recorded
	// in one of tiers, that playerID took part in and did not win.
	NonWinningSince(ctx context.Context, db DBTX, playerID int64, since time.Time, tiers []domain.Tier, excludeID int64) ([]domain.ConflictingMatch, error)

	// HasHistory reports whether the player appears in any match.
	HasHistory(ctx context.Context, db DBTX, playerID int64) (bool, error)

	// ListCredited returns the season's credited matches (not pending, not disputed) in id order.
	ListCredited(ctx context.Context, db DBTX, seasonID int64) ([]domain.Match, error)
}

// SeasonRepository provides access to seasons.
type SeasonRepository interface {
	// GetActive returns the active season without locking.
	GetActive(ctx context.Context, db DBTX) (*domain.Season, error)

	// ShareActive reads the active season FOR SHARE, blocking lifecycle changes until commit.
	ShareActive(ctx context.Context, tx pgx.Tx) (*domain.Season, error)

	// LockActive reads the active season FOR UPDATE.
	LockActive(ctx context.Context, tx pgx.Tx) (*domain.Season, error)

	// FindByID returns a season, or nil.
	FindByID(ctx context.Context, db DBTX, id int64) (*domain.Season, error)

	// List returns every season, newest first.
	List(ctx context.Context, db DBTX) ([]domain.Season, error)

	// TitleExists reports whether a season already uses title.
	TitleExists(ctx context.Context, db DBTX, title string) (bool, error)

	// Insert writes a season and fills in ID and CreatedAt.
	Insert(ctx context.Context, db DBTX, s *domain.Season) error

	// Deactivate clears the active flag.
	Deactivate(ctx context.Context, db DBTX, id int64) error

	// SetKicked records whether seed points are applied.
	SetKicked(ctx context.Context, db DBTX, id int64, kicked bool) error

	// SetTournament updates the tournament date and minimums.
	SetTournament(ctx context.Context, db DBTX, id int64, params domain.TournamentParams) error
}

// ArchiveRepository provides access to player_archive.
type ArchiveRepository interface {
	// ArchiveActive copies every active player's standing under seasonID.
	ArchiveActive(ctx context.Context, tx pgx.Tx, seasonID int64) (int64, error)

	// ListBySeason returns archived standings in tier, highest points first.
	ListBySeason(ctx context.Context, db DBTX, seasonID int64, tier domain.Tier) ([]domain.ArchivedStanding, error)
}

// AccountRepository provides access to admins.
type AccountRepository interface {
	FindByUsername(ctx context.Context, db DBTX, username string) (*domain.Account, error)
	List(ctx context.Context, db DBTX) ([]domain.Account, error)
	Create(ctx context.Context, db DBTX, a *domain.Account) error
	Update(ctx context.Context, db DBTX, oldUsername string, a *domain.Account) error
	Delete(ctx context.Context, db DBTX, username string) error
	Count(ctx context.Context, db DBTX) (int, error)
}

// TokenRepository provides access to tokens.
type TokenRepository interface {
	Insert(ctx context.Context, db DBTX, t *domain.Token) error
	Find(ctx context.Context, db DBTX, token, tokenType string) (*domain.Token, error)
}

// OutboxRepository provides access to the event_outbox table.
type OutboxRepository interface {
	// Insert writes an outbox event (within the same transaction as the ledger change).
	Insert(ctx context.Context, db DBTX, draft domain.OutboxDraft) error

	// FetchUnpublished returns unpublished events for the outbox poller, oldest first.
	FetchUnpublished(ctx context.Context, db DBTX, limit int) ([]domain.OutboxDraft, error)

	// MarkPublished stamps events as published.
	MarkPublished(ctx context.Context, db DBTX, ids []int64) error
}
