// Package admin holds the admin-realm HTTP handlers.
package admin

import (
	"context"
	"time"

	"github.com/atttc/ladder/internal/domain"
	"github.com/atttc/ladder/internal/ledger"
	"github.com/atttc/ladder/internal/service"
)

// Ladder is the part of the ladder service the admin routes use.
type Ladder interface {
	ValidateAndScore(ctx context.Context, in domain.MatchInput) (*domain.ScoreResult, error)
	CreditMatch(ctx context.Context, in domain.MatchInput) (*domain.CreditResult, error)
	ApproveMatch(ctx context.Context, matchID int64) (*domain.CreditResult, error)
	DisputeMatch(ctx context.Context, matchID int64) (*domain.Match, error)
	LookupMatches(ctx context.Context, filter domain.MatchFilter) ([]domain.Match, error)

	LookupPlayers(ctx context.Context, filter domain.PlayerFilter, op domain.FilterOp) ([]domain.Player, error)
	GetPlayer(ctx context.Context, id int64) (*domain.Player, error)
	AddPlayer(ctx context.Context, in domain.PlayerInput) (*domain.Player, error)
	UpdatePlayer(ctx context.Context, id int64, upd domain.PlayerUpdate) (*domain.Player, error)
	DeletePlayer(ctx context.Context, id int64) error
	TierOnDate(ctx context.Context, playerID int64, date time.Time) (domain.Tier, error)

	Standings(ctx context.Context, tier domain.Tier) ([]domain.Player, error)
	RecentMatches(ctx context.Context, tier domain.Tier, since *time.Time) ([]domain.Match, error)

	StartSeason(ctx context.Context, params domain.StartSeasonParams) (*domain.Season, error)
	KickSeason(ctx context.Context, params domain.KickParams) (*domain.KickResult, error)
	Seasons(ctx context.Context) ([]domain.Season, error)
	TournamentParameters(ctx context.Context) (*domain.TournamentParams, error)
	SetTournamentParameters(ctx context.Context, params domain.TournamentParams) (*domain.Season, error)
	Audit(ctx context.Context) (*ledger.AuditResult, error)
}

// Accounts is the part of the account service the admin routes use.
type Accounts interface {
	ListAccounts(ctx context.Context) ([]domain.Account, error)
	CreateAccount(ctx context.Context, username, password string) (*domain.Account, error)
	UpdateAccount(ctx context.Context, username string, upd service.AccountUpdate) (*domain.Account, error)
	DeleteAccount(ctx context.Context, username string) error
	NewToken(ctx context.Context, tokenType string, since *time.Time, expires time.Time) (*domain.Token, error)
}

// parseOptionalDate parses a YYYY-MM-DD string, returning nil for "".
func parseOptionalDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := domain.ParseDate(s)
	if err != nil {
		return nil, domain.ErrValidation(err.Error())
	}
	return &d, nil
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
