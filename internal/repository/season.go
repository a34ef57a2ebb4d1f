package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/atttc/ladder/internal/domain"
	"github.com/jackc/pgx/v5"
)

const seasonColumns = `id, title, start_date, end_date, tournament_date,
	tournament_min_matches, tournament_min_opponents, active, prev_id, kicked, created_at`

type seasonRepo struct{}

// NewSeasonRepository returns a pgx-backed SeasonRepository.
func NewSeasonRepository() SeasonRepository {
	return &seasonRepo{}
}

func (r *seasonRepo) GetActive(ctx context.Context, db DBTX) (*domain.Season, error) {
	return scanSeason(db.QueryRow(ctx, `SELECT `+seasonColumns+` FROM seasons WHERE active`))
}

func (r *seasonRepo) ShareActive(ctx context.Context, tx pgx.Tx) (*domain.Season, error) {
	return scanSeason(tx.QueryRow(ctx, `SELECT `+seasonColumns+` FROM seasons WHERE active FOR SHARE`))
}

func (r *seasonRepo) LockActive(ctx context.Context, tx pgx.Tx) (*domain.Season, error) {
	return scanSeason(tx.QueryRow(ctx, `SELECT `+seasonColumns+` FROM seasons WHERE active FOR UPDATE`))
}

func (r *seasonRepo) FindByID(ctx context.Context, db DBTX, id int64) (*domain.Season, error) {
	return scanSeason(db.QueryRow(ctx, `SELECT `+seasonColumns+` FROM seasons WHERE id = $1`, id))
}

func (r *seasonRepo) List(ctx context.Context, db DBTX) ([]domain.Season, error) {
	rows, err := db.Query(ctx, `SELECT `+seasonColumns+` FROM seasons ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list seasons: %w", err)
	}
	defer rows.Close()

	var seasons []domain.Season
	for rows.Next() {
		s, err := scanSeason(rows)
		if err != nil {
			return nil, err
		}
		seasons = append(seasons, *s)
	}
	return seasons, rows.Err()
}

func (r *seasonRepo) TitleExists(ctx context.Context, db DBTX, title string) (bool, error) {
	var exists bool
	err := db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM seasons WHERE title = $1)`, title).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check season title: %w", err)
	}
	return exists, nil
}

func (r *seasonRepo) Insert(ctx context.Context, db DBTX, s *domain.Season) error {
	err := db.QueryRow(ctx, `
		INSERT INTO seasons (title, start_date, end_date, tournament_date,
			tournament_min_matches, tournament_min_opponents, active, prev_id, kicked)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`,
		s.Title, s.StartDate, s.EndDate, s.TournamentDate,
		s.TournamentMinMatches, s.TournamentMinOpponents, s.Active, s.PrevID, s.Kicked,
	).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert season: %w", err)
	}
	return nil
}

func (r *seasonRepo) Deactivate(ctx context.Context, db DBTX, id int64) error {
	if _, err := db.Exec(ctx, `UPDATE seasons SET active = false WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deactivate season %d: %w", id, err)
	}
	return nil
}

func (r *seasonRepo) SetKicked(ctx context.Context, db DBTX, id int64, kicked bool) error {
	if _, err := db.Exec(ctx, `UPDATE seasons SET kicked = $2 WHERE id = $1`, id, kicked); err != nil {
		return fmt.Errorf("set season %d kicked: %w", id, err)
	}
	return nil
}

func (r *seasonRepo) SetTournament(ctx context.Context, db DBTX, id int64, params domain.TournamentParams) error {
	_, err := db.Exec(ctx, `
		UPDATE seasons SET tournament_date = $2, tournament_min_matches = $3, tournament_min_opponents = $4
		WHERE id = $1`, id, params.StartDate, params.MinMatches, params.MinOpponents)
	if err != nil {
		return fmt.Errorf("set tournament parameters: %w", err)
	}
	return nil
}

func scanSeason(row pgx.Row) (*domain.Season, error) {
	var s domain.Season
	err := row.Scan(&s.ID, &s.Title, &s.StartDate, &s.EndDate, &s.TournamentDate,
		&s.TournamentMinMatches, &s.TournamentMinOpponents, &s.Active, &s.PrevID, &s.Kicked, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan season: %w", err)
	}
	return &s, nil
}
