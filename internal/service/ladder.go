package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/atttc/ladder/internal/domain"
	"github.com/atttc/ladder/internal/infra"
	"github.com/atttc/ladder/internal/ledger"
	"github.com/atttc/ladder/internal/policy"
	"github.com/atttc/ladder/internal/projection"
	"github.com/atttc/ladder/internal/repository"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// LadderService runs ledger operations in serializable transactions and
// serves the read models built on top of the ledger.
type LadderService struct {
	db     DB
	engine *ledger.Engine
	repos  *repository.Set
	tx     *txRunner
	tel    *telemetry
	logger *slog.Logger
	now    func() time.Time
	cache  projection.Store
}

// NewLadderService creates a LadderService. retryAttempts bounds how often a
// transaction is rerun after a serialization failure.
func NewLadderService(
	db DB,
	engine *ledger.Engine,
	repos *repository.Set,
	tracer trace.Tracer,
	metrics *infra.LadderMetrics,
	logger *slog.Logger,
	retryAttempts int,
) *LadderService {
	if retryAttempts < 1 {
		retryAttempts = 1
	}
	return &LadderService{
		db:     db,
		engine: engine,
		repos:  repos,
		tx:     &txRunner{db: db, attempts: retryAttempts, metrics: metrics, logger: logger},
		tel:    &telemetry{tracer: tracer, metrics: metrics, logger: logger},
		logger: logger,
		now:    time.Now,
	}
}

// WithClock replaces the clock used for defaulting dates. The engine keeps its own.
func (s *LadderService) WithClock(now func() time.Time) *LadderService {
	s.now = now
	return s
}

// WithStandingsCache serves Standings from store and drops it whenever this
// service changes points, tiers or the roster.
func (s *LadderService) WithStandingsCache(store projection.Store) *LadderService {
	s.cache = store
	return s
}

// standingsChanged drops cached standings after a committed change.
func (s *LadderService) standingsChanged(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := projection.InvalidateStandings(ctx, s.cache); err != nil {
		s.logger.WarnContext(ctx, "standings cache invalidation failed", "error", err)
	}
}

// ValidateAndScore checks a report and computes its points without touching the ledger.
func (s *LadderService) ValidateAndScore(ctx context.Context, in domain.MatchInput) (*domain.ScoreResult, error) {
	return observe(ctx, s.tel, "validate_score", func(ctx context.Context) (*domain.ScoreResult, error) {
		return policy.ValidateAndScore(in, s.now())
	})
}

// TierOnDate resolves the tier a player held on date. A zero date means today.
func (s *LadderService) TierOnDate(ctx context.Context, playerID int64, date time.Time) (domain.Tier, error) {
	if date.IsZero() {
		date = s.now()
	}
	return observe(ctx, s.tel, "tier_on_date", func(ctx context.Context) (domain.Tier, error) {
		return s.engine.TierOnDate(ctx, s.db, playerID, domain.Day(date))
	}, attribute.Int64("player_id", playerID))
}

// CreditMatch validates, scores and credits a match as one atomic step.
func (s *LadderService) CreditMatch(ctx context.Context, in domain.MatchInput) (*domain.CreditResult, error) {
	const op = "credit_match"
	res, err := observe(ctx, s.tel, op, func(ctx context.Context) (*domain.CreditResult, error) {
		return inTx(ctx, s.tx, op, func(ctx context.Context, tx pgx.Tx) (*domain.CreditResult, error) {
			return s.engine.ExecuteCreditMatch(ctx, tx, in)
		})
	}, attribute.Int64("challenger_id", in.ChallengerID), attribute.Int64("opponent_id", in.OpponentID))
	if err != nil {
		return nil, err
	}
	s.standingsChanged(ctx)
	s.recordPromotion(ctx, res)
	return res, nil
}

// SubmitMatch records a player's own report as pending admin approval.
func (s *LadderService) SubmitMatch(ctx context.Context, submitterID int64, in domain.MatchInput) (*domain.CreditResult, error) {
	const op = "submit_match"
	return observe(ctx, s.tel, op, func(ctx context.Context) (*domain.CreditResult, error) {
		return inTx(ctx, s.tx, op, func(ctx context.Context, tx pgx.Tx) (*domain.CreditResult, error) {
			return s.engine.ExecuteSubmitMatch(ctx, tx, submitterID, in)
		})
	}, attribute.Int64("submitter_id", submitterID))
}

// ApproveMatch credits a pending match.
func (s *LadderService) ApproveMatch(ctx context.Context, matchID int64) (*domain.CreditResult, error) {
	const op = "approve_match"
	res, err := observe(ctx, s.tel, op, func(ctx context.Context) (*domain.CreditResult, error) {
		return inTx(ctx, s.tx, op, func(ctx context.Context, tx pgx.Tx) (*domain.CreditResult, error) {
			return s.engine.ExecuteApproveMatch(ctx, tx, matchID)
		})
	}, attribute.Int64("match_id", matchID))
	if err != nil {
		return nil, err
	}
	s.standingsChanged(ctx)
	s.recordPromotion(ctx, res)
	return res, nil
}

// DisputeMatch marks a pending match disputed so it never counts.
func (s *LadderService) DisputeMatch(ctx context.Context, matchID int64) (*domain.Match, error) {
	const op = "dispute_match"
	return observe(ctx, s.tel, op, func(ctx context.Context) (*domain.Match, error) {
		return inTx(ctx, s.tx, op, func(ctx context.Context, tx pgx.Tx) (*domain.Match, error) {
			return s.engine.ExecuteDisputeMatch(ctx, tx, matchID)
		})
	}, attribute.Int64("match_id", matchID))
}

func (s *LadderService) recordPromotion(ctx context.Context, res *domain.CreditResult) {
	if res == nil || res.Promotion == nil {
		return
	}
	p := res.Promotion
	s.tel.metrics.Promotions.WithLabelValues(string(p.To)).Inc()
	s.logger.InfoContext(ctx, "player promoted",
		"player_id", p.PlayerID, "from", p.From, "to", p.To, "date", p.Date.Format(domain.DateLayout))
}

// --- Read models ---

// LookupPlayers returns players matching filter, with qualification flags.
func (s *LadderService) LookupPlayers(ctx context.Context, filter domain.PlayerFilter, op domain.FilterOp) ([]domain.Player, error) {
	return observe(ctx, s.tel, "lookup_players", func(ctx context.Context) ([]domain.Player, error) {
		if op == "" {
			op = domain.FilterAnd
		}
		if op != domain.FilterAnd && op != domain.FilterOr {
			return nil, domain.ErrValidation(fmt.Sprintf("unknown filter operator %q", op))
		}
		players, err := s.repos.Players.List(ctx, s.db, filter, op)
		if err != nil {
			return nil, err
		}
		return players, s.qualify(ctx, players)
	})
}

// LookupMatches returns matches matching filter, newest first.
func (s *LadderService) LookupMatches(ctx context.Context, filter domain.MatchFilter) ([]domain.Match, error) {
	return observe(ctx, s.tel, "lookup_matches", func(ctx context.Context) ([]domain.Match, error) {
		return s.repos.Matches.List(ctx, s.db, filter)
	})
}

// GetMatch returns one match.
func (s *LadderService) GetMatch(ctx context.Context, id int64) (*domain.Match, error) {
	return observe(ctx, s.tel, "get_match", func(ctx context.Context) (*domain.Match, error) {
		m, err := s.repos.Matches.FindByID(ctx, s.db, id)
		if err != nil {
			return nil, err
		}
		if m == nil {
			return nil, domain.ErrNotFound("match", fmt.Sprint(id))
		}
		return m, nil
	}, attribute.Int64("match_id", id))
}

// Standings returns the active players of one tier, highest points first.
func (s *LadderService) Standings(ctx context.Context, tier domain.Tier) ([]domain.Player, error) {
	return observe(ctx, s.tel, "standings", func(ctx context.Context) ([]domain.Player, error) {
		if !tier.Valid() {
			return nil, domain.ErrValidation(fmt.Sprintf("unknown tier %q", tier))
		}
		if s.cache != nil {
			if players, err := projection.GetStandings(ctx, s.cache, tier); err == nil {
				return players, nil
			}
		}
		players, err := s.repos.Players.ListActive(ctx, s.db, tier)
		if err != nil {
			return nil, err
		}
		if err := s.qualify(ctx, players); err != nil {
			return nil, err
		}
		if s.cache != nil {
			if err := projection.PutStandings(ctx, s.cache, tier, players); err != nil {
				s.logger.WarnContext(ctx, "standings cache write failed", "tier", tier, "error", err)
			}
		}
		return players, nil
	}, attribute.String("tier", string(tier)))
}

// Roster returns every active player ordered by name.
func (s *LadderService) Roster(ctx context.Context) ([]domain.Player, error) {
	return observe(ctx, s.tel, "roster", func(ctx context.Context) ([]domain.Player, error) {
		active := true
		players, err := s.repos.Players.List(ctx, s.db, domain.PlayerFilter{Active: &active}, domain.FilterAnd)
		if err != nil {
			return nil, err
		}
		return players, s.qualify(ctx, players)
	})
}

// RecentMatches returns the active season's credited matches in tier dated on
// or after since. A nil since returns the whole season.
func (s *LadderService) RecentMatches(ctx context.Context, tier domain.Tier, since *time.Time) ([]domain.Match, error) {
	return observe(ctx, s.tel, "recent_matches", func(ctx context.Context) ([]domain.Match, error) {
		season, err := s.activeSeason(ctx)
		if err != nil {
			return nil, err
		}
		pending, disputed := false, false
		filter := domain.MatchFilter{SeasonID: &season.ID, Pending: &pending, Disputed: &disputed}
		if tier != "" {
			if !tier.Valid() {
				return nil, domain.ErrValidation(fmt.Sprintf("unknown tier %q", tier))
			}
			filter.Tier = &tier
		}
		if since != nil {
			d := domain.Day(*since)
			filter.Since = &d
		}
		return s.repos.Matches.List(ctx, s.db, filter)
	})
}

// MatchAndOpponentCount returns a player's credited matches and distinct
// opponents in the active season.
func (s *LadderService) MatchAndOpponentCount(ctx context.Context, playerID int64) (repository.PlayerTally, error) {
	return observe(ctx, s.tel, "match_count", func(ctx context.Context) (repository.PlayerTally, error) {
		season, err := s.activeSeason(ctx)
		if err != nil {
			return repository.PlayerTally{}, err
		}
		tallies, err := s.repos.Matches.Tallies(ctx, s.db, season.ID)
		if err != nil {
			return repository.PlayerTally{}, err
		}
		return tallies[playerID], nil
	}, attribute.Int64("player_id", playerID))
}

// qualify fills in TournamentQualified from the active season's tallies.
// Without an active season only overrides apply.
func (s *LadderService) qualify(ctx context.Context, players []domain.Player) error {
	if len(players) == 0 {
		return nil
	}
	season, err := s.repos.Seasons.GetActive(ctx, s.db)
	if err != nil {
		return err
	}
	params := domain.TournamentParams{
		MinMatches:   domain.DefaultTournamentMinMatches,
		MinOpponents: domain.DefaultTournamentMinOpponents,
	}
	tallies := map[int64]repository.PlayerTally{}
	if season != nil {
		params.MinMatches = season.TournamentMinMatches
		params.MinOpponents = season.TournamentMinOpponents
		if tallies, err = s.repos.Matches.Tallies(ctx, s.db, season.ID); err != nil {
			return err
		}
	}
	for i := range players {
		t := tallies[players[i].ID]
		players[i].TournamentQualified = policy.TournamentQualified(players[i].TournamentOverride, t.Matches, t.Opponents, params)
	}
	return nil
}

func (s *LadderService) activeSeason(ctx context.Context) (*domain.Season, error) {
	season, err := s.repos.Seasons.GetActive(ctx, s.db)
	if err != nil {
		return nil, err
	}
	if season == nil {
		return nil, domain.ErrNotFound("season", "active")
	}
	return season, nil
}

// --- Season lifecycle ---

// StartSeason archives the current standings and opens a new season.
func (s *LadderService) StartSeason(ctx context.Context, params domain.StartSeasonParams) (*domain.Season, error) {
	const op = "start_season"
	season, err := observe(ctx, s.tel, op, func(ctx context.Context) (*domain.Season, error) {
		return inTx(ctx, s.tx, op, func(ctx context.Context, tx pgx.Tx) (*domain.Season, error) {
			return s.engine.ExecuteStartSeason(ctx, tx, params)
		})
	}, attribute.String("title", params.Title))
	if err != nil {
		return nil, err
	}
	s.standingsChanged(ctx)
	s.logger.InfoContext(ctx, "season started", "season_id", season.ID, "title", season.Title)
	return season, nil
}

// KickSeason applies or clears seed points from the prior season.
func (s *LadderService) KickSeason(ctx context.Context, params domain.KickParams) (*domain.KickResult, error) {
	const op = "kick_season"
	res, err := observe(ctx, s.tel, op, func(ctx context.Context) (*domain.KickResult, error) {
		return inTx(ctx, s.tx, op, func(ctx context.Context, tx pgx.Tx) (*domain.KickResult, error) {
			return s.engine.ExecuteKickSeason(ctx, tx, params)
		})
	}, attribute.String("mode", string(params.Mode)), attribute.Int64("prior_season_id", params.PriorSeasonID))
	if err != nil {
		return nil, err
	}
	if res.Applied {
		s.standingsChanged(ctx)
	}
	return res, nil
}

// AutoKick seeds the active season once its start date arrives. A nil result
// means nothing was due.
func (s *LadderService) AutoKick(ctx context.Context) (*domain.KickResult, error) {
	const op = "auto_kick"
	res, err := observe(ctx, s.tel, op, func(ctx context.Context) (*domain.KickResult, error) {
		return inTx(ctx, s.tx, op, func(ctx context.Context, tx pgx.Tx) (*domain.KickResult, error) {
			return s.engine.ExecuteAutoKick(ctx, tx)
		})
	})
	if err != nil {
		return nil, err
	}
	if res != nil && res.Applied {
		s.standingsChanged(ctx)
	}
	return res, nil
}

// RunAutoKick calls AutoKick every interval until ctx is cancelled.
func (s *LadderService) RunAutoKick(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	s.logger.Info("auto kick started", "interval", interval.String())
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("auto kick stopped")
			return nil
		case <-ticker.C:
			res, err := s.AutoKick(ctx)
			if err != nil {
				if !domain.HasCode(err, domain.CodeNotFound) {
					s.logger.Error("auto kick failed", "error", err)
				}
				continue
			}
			if res != nil && res.Applied {
				s.logger.Info("season kicked", "season_id", res.SeasonID, "tiers", len(res.Tiers))
			}
		}
	}
}

// TournamentParameters returns the active season's tournament settings.
func (s *LadderService) TournamentParameters(ctx context.Context) (*domain.TournamentParams, error) {
	return observe(ctx, s.tel, "tournament_parameters", func(ctx context.Context) (*domain.TournamentParams, error) {
		season, err := s.activeSeason(ctx)
		if err != nil {
			return nil, err
		}
		return &domain.TournamentParams{
			StartDate:    season.TournamentDate,
			MinMatches:   season.TournamentMinMatches,
			MinOpponents: season.TournamentMinOpponents,
		}, nil
	})
}

// SetTournamentParameters updates the active season's tournament settings.
func (s *LadderService) SetTournamentParameters(ctx context.Context, params domain.TournamentParams) (*domain.Season, error) {
	const op = "set_tournament"
	season, err := observe(ctx, s.tel, op, func(ctx context.Context) (*domain.Season, error) {
		return inTx(ctx, s.tx, op, func(ctx context.Context, tx pgx.Tx) (*domain.Season, error) {
			return s.engine.ExecuteSetTournament(ctx, tx, params)
		})
	})
	if err != nil {
		return nil, err
	}
	s.standingsChanged(ctx)
	return season, nil
}

// Seasons lists every season, newest first.
func (s *LadderService) Seasons(ctx context.Context) ([]domain.Season, error) {
	return observe(ctx, s.tel, "seasons", func(ctx context.Context) ([]domain.Season, error) {
		return s.repos.Seasons.List(ctx, s.db)
	})
}

// ArchivedStandings returns a past season's final standings in tier.
func (s *LadderService) ArchivedStandings(ctx context.Context, seasonID int64, tier domain.Tier) ([]domain.ArchivedStanding, error) {
	return observe(ctx, s.tel, "archived_standings", func(ctx context.Context) ([]domain.ArchivedStanding, error) {
		season, err := s.repos.Seasons.FindByID(ctx, s.db, seasonID)
		if err != nil {
			return nil, err
		}
		if season == nil {
			return nil, domain.ErrNotFound("season", fmt.Sprint(seasonID))
		}
		return s.repos.Archive.ListBySeason(ctx, s.db, seasonID, tier)
	}, attribute.Int64("season_id", seasonID))
}

// Audit replays the active season's matches against the stored standings.
func (s *LadderService) Audit(ctx context.Context) (*ledger.AuditResult, error) {
	res, err := observe(ctx, s.tel, "audit", func(ctx context.Context) (*ledger.AuditResult, error) {
		return s.engine.Audit(ctx, s.db)
	})
	if err != nil {
		return nil, err
	}
	if !res.AllPassed {
		s.logger.WarnContext(ctx, "ledger audit found drift", "season_id", res.SeasonID)
	}
	return res, nil
}
