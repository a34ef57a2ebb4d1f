package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/atttc/ladder/internal/domain"
	"github.com/jackc/pgx/v5"
)

const playerColumns = `id, COALESCE(username, ''), COALESCE(password_hash, ''),
	first_name, last_name, email, cell_phone, home_phone, work_phone,
	company, location, work_location, note,
	tier, active, points, initial_points, wins, losses,
	a_wins, a_losses, b_wins, b_losses, c_wins, c_losses,
	a_promotion, b_promotion, c_promotion,
	tournament_qualified_override, created_at, updated_at`

type playerRepo struct{}

// NewPlayerRepository returns a pgx-backed PlayerRepository.
func NewPlayerRepository() PlayerRepository {
	return &playerRepo{}
}

func (r *playerRepo) FindByID(ctx context.Context, db DBTX, id int64) (*domain.Player, error) {
	row := db.QueryRow(ctx, `SELECT `+playerColumns+` FROM players WHERE id = $1`, id)
	return scanPlayer(row)
}

func (r *playerRepo) FindByUsername(ctx context.Context, db DBTX, username string) (*domain.Player, error) {
	row := db.QueryRow(ctx, `SELECT `+playerColumns+` FROM players WHERE lower(username) = lower($1)`, username)
	return scanPlayer(row)
}

func (r *playerRepo) LockForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*domain.Player, error) {
	row := tx.QueryRow(ctx, `SELECT `+playerColumns+` FROM players WHERE id = $1 FOR UPDATE`, id)
	return scanPlayer(row)
}

// List builds its WHERE clause from a fixed set of columns; only values are parameters.
func (r *playerRepo) List(ctx context.Context, db DBTX, f domain.PlayerFilter, op domain.FilterOp) ([]domain.Player, error) {
	var clauses []string
	var args []interface{}
	add := func(clause string, v interface{}) {
		args = append(args, v)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if f.ID != nil {
		add("id = $%d", *f.ID)
	}
	if f.Username != nil {
		add("lower(username) = lower($%d)", *f.Username)
	}
	if f.FirstName != nil {
		add("lower(first_name) = lower($%d)", *f.FirstName)
	}
	if f.LastName != nil {
		add("lower(last_name) = lower($%d)", *f.LastName)
	}
	if f.Email != nil {
		add("lower(email) = lower($%d)", *f.Email)
	}
	if f.Company != nil {
		add("lower(company) = lower($%d)", *f.Company)
	}
	if f.Tier != nil {
		add("tier = $%d", string(*f.Tier))
	}
	if f.Active != nil {
		add("active = $%d", *f.Active)
	}

	query := `SELECT ` + playerColumns + ` FROM players`
	if len(clauses) > 0 {
		joiner := " AND "
		if op == domain.FilterOr {
			joiner = " OR "
		}
		query += " WHERE " + strings.Join(clauses, joiner)
	}
	query += " ORDER BY last_name, first_name, id"

	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	return collectPlayers(rows)
}

func (r *playerRepo) ListActive(ctx context.Context, db DBTX, tier domain.Tier) ([]domain.Player, error) {
	rows, err := db.Query(ctx, `
		SELECT `+playerColumns+` FROM players
		WHERE active AND ($1 = '' OR tier = $1)
		ORDER BY points DESC, last_name, id`, string(tier))
	if err != nil {
		return nil, fmt.Errorf("list active players: %w", err)
	}
	return collectPlayers(rows)
}

func (r *playerRepo) Create(ctx context.Context, db DBTX, p *domain.Player) error {
	err := db.QueryRow(ctx, `
		INSERT INTO players (username, password_hash, first_name, last_name, email,
			cell_phone, home_phone, work_phone, company, location, work_location, note,
			tier, active, points, initial_points,
			a_promotion, b_promotion, c_promotion, tournament_qualified_override)
		VALUES (NULLIF($1, ''), NULLIF($2, ''), $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING id, created_at, updated_at`,
		p.Username, p.PasswordHash, p.FirstName, p.LastName, p.Email,
		p.CellPhone, p.HomePhone, p.WorkPhone, p.Company, p.Location, p.WorkLocation, p.Note,
		string(p.Tier), p.Active, p.Points, p.InitialPoints,
		p.APromotion, p.BPromotion, p.CPromotion, p.TournamentOverride,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert player: %w", err)
	}
	return nil
}

func (r *playerRepo) Save(ctx context.Context, db DBTX, p *domain.Player) error {
	err := db.QueryRow(ctx, `
		UPDATE players SET
			username = NULLIF($2, ''), password_hash = NULLIF($3, ''),
			first_name = $4, last_name = $5, email = $6,
			cell_phone = $7, home_phone = $8, work_phone = $9,
			company = $10, location = $11, work_location = $12, note = $13,
			tier = $14, active = $15, points = $16, initial_points = $17,
			wins = $18, losses = $19,
			a_wins = $20, a_losses = $21, b_wins = $22, b_losses = $23, c_wins = $24, c_losses = $25,
			a_promotion = $26, b_promotion = $27, c_promotion = $28,
			tournament_qualified_override = $29, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		p.ID, p.Username, p.PasswordHash,
		p.FirstName, p.LastName, p.Email,
		p.CellPhone, p.HomePhone, p.WorkPhone,
		p.Company, p.Location, p.WorkLocation, p.Note,
		string(p.Tier), p.Active, p.Points, p.InitialPoints,
		p.Wins, p.Losses,
		p.A.Wins, p.A.Losses, p.B.Wins, p.B.Losses, p.C.Wins, p.C.Losses,
		p.APromotion, p.BPromotion, p.CPromotion,
		p.TournamentOverride,
	).Scan(&p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound("player", fmt.Sprint(p.ID))
	}
	if err != nil {
		return fmt.Errorf("save player %d: %w", p.ID, err)
	}
	return nil
}

func (r *playerRepo) Delete(ctx context.Context, db DBTX, id int64) error {
	tag, err := db.Exec(ctx, `DELETE FROM players WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete player: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound("player", fmt.Sprint(id))
	}
	return nil
}

func (r *playerRepo) ApplySeed(ctx context.Context, db DBTX, id int64, initial, delta int) error {
	_, err := db.Exec(ctx, `
		UPDATE players SET initial_points = $2, points = points + $3, updated_at = now()
		WHERE id = $1`, id, initial, delta)
	if err != nil {
		return fmt.Errorf("apply seed to player %d: %w", id, err)
	}
	return nil
}

func (r *playerRepo) ResetSeason(ctx context.Context, tx pgx.Tx, keepActive bool) (int64, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE players SET
			points = 0, initial_points = 0, wins = 0, losses = 0,
			a_wins = 0, a_losses = 0, b_wins = 0, b_losses = 0, c_wins = 0, c_losses = 0,
			a_promotion = NULL, b_promotion = NULL, c_promotion = NULL,
			tournament_qualified_override = 0,
			active = CASE WHEN $1 THEN active ELSE false END,
			updated_at = now()`, keepActive)
	if err != nil {
		return 0, fmt.Errorf("reset season standings: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *playerRepo) UsernameInUse(ctx context.Context, db DBTX, username string, exceptPlayer, exceptAdmin int64) (bool, error) {
	var inUse bool
	err := db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM players WHERE lower(username) = lower($1) AND id <> $2)
		    OR EXISTS (SELECT 1 FROM admins WHERE lower(username) = lower($1) AND id <> $3)`,
		username, exceptPlayer, exceptAdmin).Scan(&inUse)
	if err != nil {
		return false, fmt.Errorf("check username: %w", err)
	}
	return inUse, nil
}

func collectPlayers(rows pgx.Rows) ([]domain.Player, error) {
	defer rows.Close()
	var players []domain.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		players = append(players, *p)
	}
	return players, rows.Err()
}

func scanPlayer(row pgx.Row) (*domain.Player, error) {
	var p domain.Player
	var tier string
	err := row.Scan(&p.ID, &p.Username, &p.PasswordHash,
		&p.FirstName, &p.LastName, &p.Email, &p.CellPhone, &p.HomePhone, &p.WorkPhone,
		&p.Company, &p.Location, &p.WorkLocation, &p.Note,
		&tier, &p.Active, &p.Points, &p.InitialPoints, &p.Wins, &p.Losses,
		&p.A.Wins, &p.A.Losses, &p.B.Wins, &p.B.Losses, &p.C.Wins, &p.C.Losses,
		&p.APromotion, &p.BPromotion, &p.CPromotion,
		&p.TournamentOverride, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan player: %w", err)
	}
	p.Tier = domain.Tier(tier)
	return &p, nil
}
