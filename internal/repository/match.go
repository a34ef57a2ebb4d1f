package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atttc/ladder/internal/domain"
	"github.com/jackc/pgx/v5"
)

const matchColumns = `m.id, m.season_id, m.challenger_id, m.opponent_id, m.winner_id,
	m.challenger_games, m.opponent_games, m.challenger_points, m.opponent_points,
	m.date, m.tier, m.retired, m.forfeited, m.tournament, m.pending, m.disputed, m.winner_promoted, m.points_reset, m.created_at,
	c.last_name, o.last_name`

const matchFrom = ` FROM matches m
	JOIN players c ON c.id = m.challenger_id
	JOIN players o ON o.id = m.opponent_id`

type matchRepo struct{}

// NewMatchRepository returns a pgx-backed MatchRepository.
func NewMatchRepository() MatchRepository {
	return &matchRepo{}
}

func (r *matchRepo) Insert(ctx context.Context, db DBTX, m *domain.Match) error {
	err := db.QueryRow(ctx, `
		INSERT INTO matches (season_id, challenger_id, opponent_id, winner_id,
			challenger_games, opponent_games, challenger_points, opponent_points,
			date, tier, retired, forfeited, tournament, pending, disputed, winner_promoted, points_reset)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id, created_at`,
		m.SeasonID, m.ChallengerID, m.OpponentID, m.WinnerID,
		m.ChallengerGames, m.OpponentGames, m.ChallengerPoints, m.OpponentPoints,
		m.Date, string(m.Tier), m.Retired, m.Forfeited, m.Tournament, m.Pending, m.Disputed, m.WinnerPromoted, m.PointsReset,
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert match: %w", err)
	}
	return nil
}

func (r *matchRepo) FindByID(ctx context.Context, db DBTX, id int64) (*domain.Match, error) {
	row := db.QueryRow(ctx, `SELECT `+matchColumns+matchFrom+` WHERE m.id = $1`, id)
	return scanMatch(row)
}

func (r *matchRepo) LockForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*domain.Match, error) {
	row := tx.QueryRow(ctx, `SELECT `+matchColumns+matchFrom+` WHERE m.id = $1 FOR UPDATE OF m`, id)
	return scanMatch(row)
}

func (r *matchRepo) List(ctx context.Context, db DBTX, f domain.MatchFilter) ([]domain.Match, error) {
	var clauses []string
	var args []interface{}
	add := func(clause string, v interface{}) {
		args = append(args, v)
		clauses = append(clauses, strings.ReplaceAll(clause, "?", fmt.Sprintf("$%d", len(args))))
	}

	if f.ID != nil {
		add("m.id = ?", *f.ID)
	}
	if f.SeasonID != nil {
		add("m.season_id = ?", *f.SeasonID)
	}
	if f.Tier != nil {
		add("m.tier = ?", string(*f.Tier))
	}
	if f.PlayerID != nil {
		add("(m.challenger_id = ? OR m.opponent_id = ?)", *f.PlayerID)
	}
	if f.ChallengerID != nil {
		add("m.challenger_id = ?", *f.ChallengerID)
	}
	if f.OpponentID != nil {
		add("m.opponent_id = ?", *f.OpponentID)
	}
	if f.WinnerID != nil {
		add("m.winner_id = ?", *f.WinnerID)
	}
	if f.Date != nil {
		add("m.date = ?", domain.Day(*f.Date))
	}
	if f.Since != nil {
		add("m.date >= ?", domain.Day(*f.Since))
	}
	if f.Pending != nil {
		add("m.pending = ?", *f.Pending)
	}
	if f.Disputed != nil {
		add("m.disputed = ?", *f.Disputed)
	}

	query := `SELECT ` + matchColumns + matchFrom
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY m.date DESC, m.id DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	return collectMatches(rows)
}

func (r *matchRepo) SetStatus(ctx context.Context, db DBTX, id int64, pending, disputed bool) error {
	tag, err := db.Exec(ctx, `UPDATE matches SET pending = $2, disputed = $3 WHERE id = $1`, id, pending, disputed)
	if err != nil {
		return fmt.Errorf("set match %d status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound("match", fmt.Sprint(id))
	}
	return nil
}

func (r *matchRepo) Approve(ctx context.Context, db DBTX, m *domain.Match) error {
	tag, err := db.Exec(ctx, `
		UPDATE matches SET pending = false, tier = $2, challenger_points = $3, opponent_points = $4,
			winner_promoted = $5, points_reset = $6
		WHERE id = $1 AND pending AND NOT disputed`,
		m.ID, string(m.Tier), m.ChallengerPoints, m.OpponentPoints, m.WinnerPromoted, m.PointsReset)
	if err != nil {
		return fmt.Errorf("approve match %d: %w", m.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound("pending match", fmt.Sprint(m.ID))
	}
	m.Pending = false
	return nil
}

func (r *matchRepo) CountForLimits(ctx context.Context, db DBTX, seasonID, challengerID, opponentID, excludeID int64) (domain.MatchCounts, error) {
	var c domain.MatchCounts
	err := db.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE (challenger_id = $2 AND opponent_id = $3)
			                    OR (challenger_id = $3 AND opponent_id = $2)),
			COUNT(*) FILTER (WHERE challenger_id = $2 OR opponent_id = $2),
			COUNT(*) FILTER (WHERE challenger_id = $3 OR opponent_id = $3)
		FROM matches
		WHERE season_id = $1 AND NOT disputed AND id <> $4`,
		seasonID, challengerID, opponentID, excludeID,
	).Scan(&c.Pair, &c.Challenger, &c.Opponent)
	if err != nil {
		return c, fmt.Errorf("count matches for limits: %w", err)
	}
	return c, nil
}

func (r *matchRepo) Tallies(ctx context.Context, db DBTX, seasonID int64) (map[int64]PlayerTally, error) {
	rows, err := db.Query(ctx, `
		WITH sides AS (
			SELECT challenger_id AS player_id, opponent_id AS other_id FROM matches
			WHERE season_id = $1 AND NOT pending AND NOT disputed
			UNION ALL
			SELECT opponent_id, challenger_id FROM matches
			WHERE season_id = $1 AND NOT pending AND NOT disputed
		)
		SELECT player_id, COUNT(*), COUNT(DISTINCT other_id)
		FROM sides GROUP BY player_id`, seasonID)
	if err != nil {
		return nil, fmt.Errorf("tally matches: %w", err)
	}
	defer rows.Close()

	tallies := make(map[int64]PlayerTally)
	for rows.Next() {
		var id int64
		var t PlayerTally
		if err := rows.Scan(&id, &t.Matches, &t.Opponents); err != nil {
			return nil, fmt.Errorf("scan tally: %w", err)
		}
		tallies[id] = t
	}
	return tallies, rows.Err()
}

func (r *matchRepo) NonWinningSince(ctx context.Context, db DBTX, playerID int64, since time.Time, tiers []domain.Tier, excludeID int64) ([]domain.ConflictingMatch, error) {
	if len(tiers) == 0 {
		return nil, nil
	}
	names := make([]string, len(tiers))
	for i, t := range tiers {
		names[i] = string(t)
	}
	rows, err := db.Query(ctx, `
		SELECT id, date, tier FROM matches
		WHERE (challenger_id = $1 OR opponent_id = $1)
		  AND winner_id <> $1
		  AND date >= $2
		  AND tier = ANY($3)
		  AND NOT disputed
		  AND id <> $4
		ORDER BY date, id`,
		playerID, domain.Day(since), names, excludeID)
	if err != nil {
		return nil, fmt.Errorf("find conflicting matches: %w", err)
	}
	defer rows.Close()

	var out []domain.ConflictingMatch
	for rows.Next() {
		var cm domain.ConflictingMatch
		var tier string
		if err := rows.Scan(&cm.MatchID, &cm.Date, &tier); err != nil {
			return nil, fmt.Errorf("scan conflicting match: %w", err)
		}
		cm.Tier = domain.Tier(tier)
		out = append(out, cm)
	}
	return out, rows.Err()
}

func (r *matchRepo) HasHistory(ctx context.Context, db DBTX, playerID int64) (bool, error) {
	var exists bool
	err := db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM matches WHERE challenger_id = $1 OR opponent_id = $1)`,
		playerID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check match history: %w", err)
	}
	return exists, nil
}

func (r *matchRepo) ListCredited(ctx context.Context, db DBTX, seasonID int64) ([]domain.Match, error) {
	rows, err := db.Query(ctx, `SELECT `+matchColumns+matchFrom+`
		WHERE m.season_id = $1 AND NOT m.pending AND NOT m.disputed
		ORDER BY m.id`, seasonID)
	if err != nil {
		return nil, fmt.Errorf("list credited matches: %w", err)
	}
	return collectMatches(rows)
}

func collectMatches(rows pgx.Rows) ([]domain.Match, error) {
	defer rows.Close()
	var matches []domain.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, *m)
	}
	return matches, rows.Err()
}

func scanMatch(row pgx.Row) (*domain.Match, error) {
	var m domain.Match
	var tier string
	err := row.Scan(&m.ID, &m.SeasonID, &m.ChallengerID, &m.OpponentID, &m.WinnerID,
		&m.ChallengerGames, &m.OpponentGames, &m.ChallengerPoints, &m.OpponentPoints,
		&m.Date, &tier, &m.Retired, &m.Forfeited, &m.Tournament, &m.Pending, &m.Disputed, &m.WinnerPromoted, &m.PointsReset, &m.CreatedAt,
		&m.ChallengerName, &m.OpponentName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan match: %w", err)
	}
	m.Tier = domain.Tier(tier)
	return &m, nil
}
