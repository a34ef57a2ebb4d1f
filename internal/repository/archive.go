package repository

import (
	"context"
	"fmt"

	"github.com/atttc/ladder/internal/domain"
	"github.com/jackc/pgx/v5"
)

type archiveRepo struct{}

// NewArchiveRepository returns a pgx-backed ArchiveRepository.
func NewArchiveRepository() ArchiveRepository {
	return &archiveRepo{}
}

func (r *archiveRepo) ArchiveActive(ctx context.Context, tx pgx.Tx, seasonID int64) (int64, error) {
	tag, err := tx.Exec(ctx, `
		INSERT INTO player_archive (season_id, player_id, tier, active, points, initial_points,
			wins, losses, a_wins, a_losses, b_wins, b_losses, c_wins, c_losses,
			tournament_qualified_override)
		SELECT $1, id, tier, active, points, initial_points,
			wins, losses, a_wins, a_losses, b_wins, b_losses, c_wins, c_losses,
			tournament_qualified_override
		FROM players WHERE active
		ON CONFLICT (season_id, player_id) DO NOTHING`, seasonID)
	if err != nil {
		return 0, fmt.Errorf("archive season %d: %w", seasonID, err)
	}
	return tag.RowsAffected(), nil
}

func (r *archiveRepo) ListBySeason(ctx context.Context, db DBTX, seasonID int64, tier domain.Tier) ([]domain.ArchivedStanding, error) {
	rows, err := db.Query(ctx, `
		SELECT a.season_id, a.player_id, p.first_name, p.last_name, a.tier, a.active,
			a.points, a.initial_points, a.wins, a.losses,
			a.a_wins, a.a_losses, a.b_wins, a.b_losses, a.c_wins, a.c_losses,
			a.tournament_qualified_override
		FROM player_archive a
		JOIN players p ON p.id = a.player_id
		WHERE a.season_id = $1 AND ($2 = '' OR a.tier = $2)
		ORDER BY a.points DESC, a.player_id`, seasonID, string(tier))
	if err != nil {
		return nil, fmt.Errorf("list archive: %w", err)
	}
	defer rows.Close()

	var out []domain.ArchivedStanding
	for rows.Next() {
		var s domain.ArchivedStanding
		var t string
		err := rows.Scan(&s.SeasonID, &s.PlayerID, &s.FirstName, &s.LastName, &t, &s.Active,
			&s.Points, &s.InitialPoints, &s.Wins, &s.Losses,
			&s.A.Wins, &s.A.Losses, &s.B.Wins, &s.B.Losses, &s.C.Wins, &s.C.Losses,
			&s.TournamentOverride)
		if err != nil {
			return nil, fmt.Errorf("scan archive row: %w", err)
		}
		s.Tier = domain.Tier(t)
		out = append(out, s)
	}
	return out, rows.Err()
}
