package ledger

import (
	"context"
	"fmt"

	"github.com/atttc/ladder/internal/domain"
	"github.com/jackc/pgx/v5"
)

// ErrNotPending is returned when approving or disputing a match that is no longer pending.
var ErrNotPending = domain.ErrRuleViolation("match is not pending")

// ExecuteSubmitMatch records a player-reported match as pending. The match must
// pass every crediting precondition but nobody's standing changes until an
// administrator approves it.
func (e *Engine) ExecuteSubmitMatch(ctx context.Context, tx pgx.Tx, submitterID int64, in domain.MatchInput) (*domain.CreditResult, error) {
	if submitterID != in.ChallengerID && submitterID != in.OpponentID {
		return nil, domain.ErrForbidden("players may only report their own matches")
	}
	plan, err := e.planCredit(ctx, tx, in, 0)
	if err != nil {
		return nil, err
	}
	plan.match.Pending = true
	if err := e.matches.Insert(ctx, tx, plan.match); err != nil {
		return nil, fmt.Errorf("submit match: %w", err)
	}
	if err := e.emit(ctx, tx, domain.NewMatchEvent(domain.EventMatchSubmitted, plan.match)); err != nil {
		return nil, err
	}
	return &domain.CreditResult{
		Match:      plan.match,
		WinnerName: plan.winner().LastName,
		LoserName:  plan.loser().LastName,
	}, nil
}

// ExecuteApproveMatch credits a pending match as of its recorded date and
// clears the pending flag. Tier and points are recomputed against the
// standings at approval time.
func (e *Engine) ExecuteApproveMatch(ctx context.Context, tx pgx.Tx, matchID int64) (*domain.CreditResult, error) {
	pending, err := e.lockPending(ctx, tx, matchID)
	if err != nil {
		return nil, err
	}

	plan, err := e.planCredit(ctx, tx, pending.Input(), pending.ID)
	if err != nil {
		return nil, err
	}
	if plan.season.ID != pending.SeasonID {
		return nil, domain.ErrRuleViolation(fmt.Sprintf("match %d belongs to a closed season", pending.ID))
	}
	plan.match.ID = pending.ID
	plan.match.CreatedAt = pending.CreatedAt

	promotion, err := e.applyCredit(ctx, tx, plan)
	if err != nil {
		return nil, err
	}
	if err := e.matches.Approve(ctx, tx, plan.match); err != nil {
		return nil, err
	}
	return e.finishCredit(ctx, tx, plan, promotion, domain.EventMatchApproved)
}

// ExecuteDisputeMatch marks a pending match disputed. A disputed match is never
// credited and never counts toward rematch limits.
func (e *Engine) ExecuteDisputeMatch(ctx context.Context, tx pgx.Tx, matchID int64) (*domain.Match, error) {
	m, err := e.lockPending(ctx, tx, matchID)
	if err != nil {
		return nil, err
	}
	if err := e.matches.SetStatus(ctx, tx, m.ID, false, true); err != nil {
		return nil, err
	}
	m.Pending, m.Disputed = false, true
	if err := e.emit(ctx, tx, domain.NewMatchEvent(domain.EventMatchDisputed, m)); err != nil {
		return nil, err
	}
	return m, nil
}

func (e *Engine) lockPending(ctx context.Context, tx pgx.Tx, matchID int64) (*domain.Match, error) {
	m, err := e.matches.LockForUpdate(ctx, tx, matchID)
	if err != nil {
		return nil, fmt.Errorf("lock match: %w", err)
	}
	if m == nil {
		return nil, domain.ErrNotFound("match", fmt.Sprint(matchID))
	}
	if !m.Pending || m.Disputed {
		return nil, ErrNotPending
	}
	return m, nil
}
