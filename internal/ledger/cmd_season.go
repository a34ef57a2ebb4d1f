package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/atttc/ladder/internal/domain"
	"github.com/atttc/ladder/internal/policy"
	"github.com/jackc/pgx/v5"
)

// ErrTitleInUse is returned when a new season reuses an existing title.
var ErrTitleInUse = domain.ErrConflict("season title already in use")

// ExecuteStartSeason archives the outgoing season's active roster, resets
// season standings and activates a new season linked to the old one.
func (e *Engine) ExecuteStartSeason(ctx context.Context, tx pgx.Tx, params domain.StartSeasonParams) (*domain.Season, error) {
	if err := domain.ValidateTitle(params.Title); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}
	if err := domain.ValidateDateRange(params.StartDate, params.EndDate); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}
	tournamentDate := params.TournamentDate
	if tournamentDate == nil {
		tournamentDate = domain.DatePtr(params.EndDate)
	} else {
		tournamentDate = domain.DatePtr(*tournamentDate)
	}

	prev, err := e.seasons.LockActive(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("start season: %w", err)
	}
	taken, err := e.seasons.TitleExists(ctx, tx, params.Title)
	if err != nil {
		return nil, fmt.Errorf("start season: %w", err)
	}
	if taken {
		return nil, ErrTitleInUse
	}

	next := &domain.Season{
		Title:                  params.Title,
		StartDate:              domain.DatePtr(params.StartDate),
		EndDate:                domain.DatePtr(params.EndDate),
		TournamentDate:         tournamentDate,
		TournamentMinMatches:   domain.DefaultTournamentMinMatches,
		TournamentMinOpponents: domain.DefaultTournamentMinOpponents,
		Active:                 true,
	}

	var archived int64
	if prev != nil {
		archived, err = e.archive.ArchiveActive(ctx, tx, prev.ID)
		if err != nil {
			return nil, fmt.Errorf("start season: %w", err)
		}
		if err := e.seasons.Deactivate(ctx, tx, prev.ID); err != nil {
			return nil, fmt.Errorf("start season: %w", err)
		}
		next.PrevID = &prev.ID
	}
	if _, err := e.players.ResetSeason(ctx, tx, params.KeepRosterActive); err != nil {
		return nil, fmt.Errorf("start season: %w", err)
	}
	if err := e.seasons.Insert(ctx, tx, next); err != nil {
		return nil, fmt.Errorf("start season: %w", err)
	}

	if err := e.emit(ctx, tx, domain.NewSeasonStartedEvent(next, int(archived))); err != nil {
		return nil, err
	}
	e.logger.Info("season started", "season_id", next.ID, "title", next.Title, "archived", archived)
	return next, nil
}

// ExecuteKickSeason seeds (mode set) or unseeds (mode clear) the active
// season's roster from the prior season's archived standings. A repeated set
// on an already kicked season reports the seeding without applying it.
func (e *Engine) ExecuteKickSeason(ctx context.Context, tx pgx.Tx, params domain.KickParams) (*domain.KickResult, error) {
	if params.Mode != domain.KickSet && params.Mode != domain.KickClear {
		return nil, domain.ErrValidation(fmt.Sprintf("unknown kick mode %q", params.Mode))
	}
	tiers := params.Tiers
	if len(tiers) == 0 {
		tiers = domain.RankedTiers
	}
	// Seed each tier once.
	seen := make(map[domain.Tier]bool, len(tiers))
	unique := make([]domain.Tier, 0, len(tiers))
	for _, t := range tiers {
		if !t.Valid() {
			return nil, domain.ErrValidation(fmt.Sprintf("unknown tier %q", t))
		}
		if !seen[t] {
			seen[t] = true
			unique = append(unique, t)
		}
	}
	tiers = unique

	season, err := e.seasons.LockActive(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("kick season: %w", err)
	}
	if season == nil {
		return nil, domain.ErrNotFound("season", "active")
	}
	prior, err := e.seasons.FindByID(ctx, tx, params.PriorSeasonID)
	if err != nil {
		return nil, fmt.Errorf("kick season: %w", err)
	}
	if prior == nil {
		return nil, domain.ErrNotFound("season", fmt.Sprint(params.PriorSeasonID))
	}

	result := &domain.KickResult{SeasonID: season.ID, Mode: params.Mode}
	for _, tier := range tiers {
		tr, err := e.seedTier(ctx, tx, prior.ID, tier)
		if err != nil {
			return nil, err
		}
		result.Tiers = append(result.Tiers, *tr)
	}

	if params.Mode == domain.KickSet && season.Kicked {
		e.logger.Info("season already kicked, skipping", "season_id", season.ID)
		return result, nil
	}

	seeded := 0
	for _, tr := range result.Tiers {
		for _, p := range tr.Current {
			initial := 0
			if params.Mode == domain.KickSet {
				initial = tr.SeedPoints[p.ID]
			}
			if err := e.players.ApplySeed(ctx, tx, p.ID, initial, initial-p.InitialPoints); err != nil {
				return nil, fmt.Errorf("kick season: %w", err)
			}
			if initial > 0 {
				seeded++
			}
		}
	}
	if err := e.seasons.SetKicked(ctx, tx, season.ID, params.Mode == domain.KickSet); err != nil {
		return nil, fmt.Errorf("kick season: %w", err)
	}
	if err := e.emit(ctx, tx, domain.NewSeasonKickedEvent(season.ID, params.Mode, seeded)); err != nil {
		return nil, err
	}
	result.Applied = true
	e.logger.Info("season kicked", "season_id", season.ID, "mode", params.Mode, "seeded", seeded)
	return result, nil
}

// seedTier ranks the prior season's archive for tier among players who are
// active and in that tier now. Current players without an archived standing get 0.
func (e *Engine) seedTier(ctx context.Context, tx pgx.Tx, priorID int64, tier domain.Tier) (*domain.KickTierResult, error) {
	archived, err := e.archive.ListBySeason(ctx, tx, priorID, tier)
	if err != nil {
		return nil, fmt.Errorf("kick season: %w", err)
	}
	current, err := e.players.ListActive(ctx, tx, tier)
	if err != nil {
		return nil, fmt.Errorf("kick season: %w", err)
	}

	inTier := make(map[int64]bool, len(current))
	for _, p := range current {
		inTier[p.ID] = true
	}
	var candidates []policy.SeedCandidate
	for _, a := range archived {
		if inTier[a.PlayerID] {
			candidates = append(candidates, policy.SeedCandidate{PlayerID: a.PlayerID, Points: a.Points})
		}
	}

	seeds := policy.SeedPoints(candidates)
	for _, p := range current {
		if _, ok := seeds[p.ID]; !ok {
			seeds[p.ID] = 0
		}
	}
	return &domain.KickTierResult{Tier: tier, Archived: archived, Current: current, SeedPoints: seeds}, nil
}

// ExecuteAutoKick seeds the active season from its predecessor once now falls
// inside the season window. It returns nil when nothing is due.
func (e *Engine) ExecuteAutoKick(ctx context.Context, tx pgx.Tx) (*domain.KickResult, error) {
	season, err := e.seasons.LockActive(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("auto kick: %w", err)
	}
	if !kickDue(season, e.now()) {
		return nil, nil
	}
	return e.ExecuteKickSeason(ctx, tx, domain.KickParams{
		PriorSeasonID: *season.PrevID,
		Tiers:         domain.RankedTiers,
		Mode:          domain.KickSet,
	})
}

func kickDue(s *domain.Season, now time.Time) bool {
	return s != nil && s.PrevID != nil && !s.Kicked && s.StartDate != nil && s.Contains(now)
}

// ExecuteSetTournament updates the active season's tournament date and minimums.
func (e *Engine) ExecuteSetTournament(ctx context.Context, tx pgx.Tx, params domain.TournamentParams) (*domain.Season, error) {
	if params.MinMatches < 0 || params.MinOpponents < 0 {
		return nil, domain.ErrValidation("tournament minimums must not be negative")
	}
	season, err := e.seasons.LockActive(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("set tournament: %w", err)
	}
	if season == nil {
		return nil, domain.ErrNotFound("season", "active")
	}
	if params.StartDate != nil {
		params.StartDate = domain.DatePtr(*params.StartDate)
	}
	if err := e.seasons.SetTournament(ctx, tx, season.ID, params); err != nil {
		return nil, err
	}
	season.TournamentDate = params.StartDate
	season.TournamentMinMatches = params.MinMatches
	season.TournamentMinOpponents = params.MinOpponents
	return season, nil
}
