package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/atttc/ladder/internal/domain"
	"github.com/atttc/ladder/internal/policy"
	"github.com/jackc/pgx/v5"
)

// Rule violations raised while crediting.
var (
	ErrOutOfSeason         = domain.ErrRuleViolation("match date out of season date-range")
	ErrInterTierTournament = domain.ErrRuleViolation("inter-ladder matches not allowed during the tournament")
	ErrChallengeDirection  = domain.ErrRuleViolation("challenger must be from lower or equal tier")
	ErrUnrankedPair        = domain.ErrRuleViolation("unranked or beginner players cannot play each other")
)

// creditPlan is a fully validated match, ready to be applied.
type creditPlan struct {
	season         *domain.Season
	challenger     *domain.Player
	opponent       *domain.Player
	challengerTier domain.Tier
	opponentTier   domain.Tier
	match          *domain.Match
}

func (p *creditPlan) winner() *domain.Player {
	if p.match.WinnerID == p.challenger.ID {
		return p.challenger
	}
	return p.opponent
}

func (p *creditPlan) loser() *domain.Player {
	if p.match.WinnerID == p.challenger.ID {
		return p.opponent
	}
	return p.challenger
}

func (p *creditPlan) tierOf(id int64) domain.Tier {
	if id == p.challenger.ID {
		return p.challengerTier
	}
	return p.opponentTier
}

// planCredit runs every precondition of crediting and returns the match that
// would be recorded. It locks both players and shares the active season but
// writes nothing. excludeID leaves an already stored match out of the counts.
func (e *Engine) planCredit(ctx context.Context, tx pgx.Tx, in domain.MatchInput, excludeID int64) (*creditPlan, error) {
	today := e.now()
	score, err := policy.ValidateAndScore(in, today)
	if err != nil {
		return nil, err
	}
	date := domain.Day(in.Date)
	if in.Date.IsZero() {
		date = domain.Day(today)
	}

	season, err := e.activeSeason(ctx, tx)
	if err != nil {
		return nil, err
	}
	if season.StartDate != nil && season.EndDate != nil && !season.Contains(date) {
		return nil, ErrOutOfSeason
	}

	challenger, opponent, err := e.lockPair(ctx, tx, in.ChallengerID, in.OpponentID)
	if err != nil {
		return nil, err
	}
	for _, p := range []*domain.Player{challenger, opponent} {
		if !p.Active {
			return nil, domain.ErrRuleViolation(fmt.Sprintf("player %d is not active", p.ID))
		}
	}

	plan := &creditPlan{
		season:         season,
		challenger:     challenger,
		opponent:       opponent,
		challengerTier: ResolveTier(e.logger, challenger, date),
		opponentTier:   ResolveTier(e.logger, opponent, date),
	}

	if season.InTournament(date) && plan.challengerTier != plan.opponentTier {
		return nil, ErrInterTierTournament
	}
	if domain.CompareTiers(plan.opponentTier, plan.challengerTier) < 0 {
		return nil, ErrChallengeDirection
	}
	if !plan.challengerTier.Ranked() && !plan.opponentTier.Ranked() {
		return nil, ErrUnrankedPair
	}

	counts, err := e.matches.CountForLimits(ctx, tx, season.ID, challenger.ID, opponent.ID, excludeID)
	if err != nil {
		return nil, fmt.Errorf("credit match: %w", err)
	}
	counts.Pair++
	counts.Challenger++
	counts.Opponent++
	if eval := policy.EvaluateMatchLimits(e.limits, counts); !eval.Allowed {
		return nil, domain.ErrRuleViolation(eval.Message(e.limits))
	}

	plan.match = &domain.Match{
		SeasonID:         season.ID,
		ChallengerID:     challenger.ID,
		OpponentID:       opponent.ID,
		WinnerID:         score.WinnerID,
		ChallengerGames:  in.ChallengerGames,
		OpponentGames:    in.OpponentGames,
		ChallengerPoints: score.ChallengerPoints,
		OpponentPoints:   score.OpponentPoints,
		Date:             date,
		Tier:             plan.opponentTier,
		Retired:          in.Retired,
		Forfeited:        in.Forfeited,
		Tournament:       in.Tournament,
		ChallengerName:   challenger.LastName,
		OpponentName:     opponent.LastName,
	}

	// A loser who held no ranked tier on the match date earns nothing.
	loserID := plan.match.LoserID()
	if !plan.tierOf(loserID).Ranked() {
		if loserID == challenger.ID {
			plan.match.ChallengerPoints = 0
		} else {
			plan.match.OpponentPoints = 0
		}
	}
	return plan, nil
}

// applyCredit moves points, counters and tiers for a planned match and saves
// both players. It returns the winner's promotion, if any.
func (e *Engine) applyCredit(ctx context.Context, tx pgx.Tx, plan *creditPlan) (*domain.Promotion, error) {
	m := plan.match
	winner, loser := plan.winner(), plan.loser()
	winnerTier, loserTier := plan.tierOf(winner.ID), plan.tierOf(loser.ID)

	var promotion *domain.Promotion
	if domain.CompareTiers(winnerTier, loserTier) < 0 && !m.Forfeited {
		if err := e.checkPromotionConflicts(ctx, tx, winner.ID, loserTier, m.Date, m.ID); err != nil {
			return nil, err
		}
		m.PointsReset = domain.CompareTiers(winner.Tier, loserTier) < 0
		promotion = promote(winner, winnerTier, loserTier, m.Date)
		m.WinnerPromoted = true
	}

	plan.challenger.Points += m.ChallengerPoints
	plan.opponent.Points += m.OpponentPoints

	winner.Wins++
	loser.Losses++
	if rec := winner.Record(m.Tier); rec != nil {
		rec.Wins++
	}
	if rec := loser.Record(m.Tier); rec != nil {
		rec.Losses++
	}

	for _, p := range []*domain.Player{plan.challenger, plan.opponent} {
		if err := e.players.Save(ctx, tx, p); err != nil {
			return nil, fmt.Errorf("credit match: %w", err)
		}
	}
	return promotion, nil
}

// promote moves p from tier from to tier to as of date. Season points restart
// from zero only when the current tier rises; a backdated win that merely moves
// an entry date earlier keeps them. Every newly entered tier is stamped with
// date unless an earlier entry is already on record, and the current tier
// never drops.
func promote(p *domain.Player, from, to domain.Tier, date time.Time) *domain.Promotion {
	if domain.CompareTiers(p.Tier, to) < 0 {
		p.Points = 0
	}
	for _, t := range domain.TiersBetween(from, to) {
		if d := p.PromotionDate(t); d == nil || d.After(date) {
			p.SetPromotionDate(t, domain.DatePtr(date))
		}
	}
	p.Tier = domain.HigherTier(p.Tier, to)
	return &domain.Promotion{PlayerID: p.ID, From: from, To: to, Date: date}
}

// ExecuteCreditMatch validates a reported match and credits it to both players.
func (e *Engine) ExecuteCreditMatch(ctx context.Context, tx pgx.Tx, in domain.MatchInput) (*domain.CreditResult, error) {
	plan, err := e.planCredit(ctx, tx, in, 0)
	if err != nil {
		return nil, err
	}
	promotion, err := e.applyCredit(ctx, tx, plan)
	if err != nil {
		return nil, err
	}
	if err := e.matches.Insert(ctx, tx, plan.match); err != nil {
		return nil, fmt.Errorf("credit match: %w", err)
	}
	return e.finishCredit(ctx, tx, plan, promotion, domain.EventMatchCredited)
}

func (e *Engine) finishCredit(ctx context.Context, tx pgx.Tx, plan *creditPlan, promotion *domain.Promotion, evt domain.EventType) (*domain.CreditResult, error) {
	m := plan.match
	events := []domain.OutboxDraft{domain.NewMatchEvent(evt, m)}
	if promotion != nil {
		events = append(events, domain.NewPlayerPromotedEvent(*promotion, m.ID))
		e.logger.Info("player promoted",
			"player_id", promotion.PlayerID, "from", promotion.From, "tier", promotion.To,
			"date", domain.FormatDate(promotion.Date), "match_id", m.ID)
	}
	if err := e.emit(ctx, tx, events...); err != nil {
		return nil, err
	}
	return &domain.CreditResult{
		Match:      m,
		WinnerName: plan.winner().LastName,
		LoserName:  plan.loser().LastName,
		Promotion:  promotion,
		Events:     events,
	}, nil
}
