package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/atttc/ladder/internal/domain"
	"github.com/jackc/pgx/v5"
)

// checkPromotionConflicts rejects promoting playerID to tier as of date when a
// later non-disputed match already shows the player losing in a tier below it.
// Only tiers below the target are searched; a promotion never re-examines
// matches recorded in the target tier itself.
func (e *Engine) checkPromotionConflicts(ctx context.Context, tx pgx.Tx, playerID int64, tier domain.Tier, date time.Time, excludeID int64) error {
	conflicts, err := e.matches.NonWinningSince(ctx, tx, playerID, date, domain.TiersBelow(tier), excludeID)
	if err != nil {
		return fmt.Errorf("check promotion conflicts: %w", err)
	}
	if len(conflicts) == 0 {
		return nil
	}
	e.logger.Warn("promotion conflicts with recorded history",
		"player_id", playerID, "tier", tier, "date", domain.FormatDate(date), "conflicts", len(conflicts))
	return domain.ErrHistoryConflict(playerID, tier, date, conflicts)
}
