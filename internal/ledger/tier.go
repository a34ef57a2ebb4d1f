package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/atttc/ladder/internal/domain"
	"github.com/atttc/ladder/internal/repository"
)

var (
	sinceForever = time.Time{}
	notYet       = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
)

// ResolveTier reports which tier p occupied on date, judged from the current
// tier and the recorded promotion dates. A missing date for the current tier
// means the player has always been there; a missing date for a lower tier
// means the player came through it before recorded history. Dates that do not
// fit the current tier are logged and ignored, except that an A player with
// only a B date is read as having entered A on that date.
func ResolveTier(logger *slog.Logger, p *domain.Player, date time.Time) domain.Tier {
	if logger == nil {
		logger = slog.Default()
	}
	warn := func(msg string, args ...any) {
		logger.Warn(msg, append([]any{"player_id", p.ID, "tier", p.Tier}, args...)...)
	}

	a, b, c := p.APromotion, p.BPromotion, p.CPromotion
	var aFrom, bFrom, cFrom time.Time

	switch p.Tier {
	case domain.TierA:
		switch {
		case a == nil && b != nil:
			// The only recorded step up is taken as the move into A.
			warn("A player has no A promotion date, using B promotion date as A entry", "b_promotion", b, "c_promotion", c)
			aFrom, b, c = *b, nil, nil
		case a == nil:
			if c != nil {
				warn("ignoring C promotion date of a player always in A", "c_promotion", c)
			}
			aFrom, c = sinceForever, nil
		default:
			aFrom = *a
		}
		if b == nil {
			if c != nil {
				warn("ignoring C promotion date of a player always at or above B", "c_promotion", c)
			}
			c = nil
			bFrom = sinceForever
		} else {
			bFrom = *b
		}
		cFrom = dateOr(c, sinceForever)
	case domain.TierB:
		if a != nil {
			warn("ignoring A promotion date of a B player", "a_promotion", a)
		}
		aFrom = notYet
		if b == nil {
			if c != nil {
				warn("ignoring C promotion date of a player always in B", "c_promotion", c)
			}
			c = nil
			bFrom = sinceForever
		} else {
			bFrom = *b
		}
		cFrom = dateOr(c, sinceForever)
	case domain.TierC:
		if a != nil || b != nil {
			warn("ignoring higher promotion dates of a C player", "a_promotion", a, "b_promotion", b)
		}
		aFrom, bFrom = notYet, notYet
		cFrom = dateOr(c, sinceForever)
	default:
		return domain.TierUnranked
	}

	d := domain.Day(date)
	switch {
	case !d.Before(aFrom):
		return domain.TierA
	case !d.Before(bFrom):
		return domain.TierB
	case !d.Before(cFrom):
		return domain.TierC
	}
	return domain.TierUnranked
}

func dateOr(d *time.Time, fallback time.Time) time.Time {
	if d == nil {
		return fallback
	}
	return *d
}

// TierOnDate loads a player and resolves the tier held on date. It needs no
// transaction and may observe in-flight changes.
func (e *Engine) TierOnDate(ctx context.Context, db repository.DBTX, playerID int64, date time.Time) (domain.Tier, error) {
	p, err := e.players.FindByID(ctx, db, playerID)
	if err != nil {
		return "", fmt.Errorf("tier on date: %w", err)
	}
	if p == nil {
		return "", domain.ErrNotFound("player", fmt.Sprint(playerID))
	}
	return ResolveTier(e.logger, p, date), nil
}
