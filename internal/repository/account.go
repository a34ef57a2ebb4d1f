package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/atttc/ladder/internal/domain"
	"github.com/jackc/pgx/v5"
)

type accountRepo struct{}

// NewAccountRepository returns a pgx-backed AccountRepository.
func NewAccountRepository() AccountRepository {
	return &accountRepo{}
}

// FindByUsername returns an admin account, matched case-insensitively, or nil if not found.
func (r *accountRepo) FindByUsername(ctx context.Context, db DBTX, username string) (*domain.Account, error) {
	row := db.QueryRow(ctx,
		`SELECT id, username, password_hash, created_at
		 FROM admins WHERE lower(username) = lower($1)`, username)

	a := &domain.Account{}
	err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *accountRepo) List(ctx context.Context, db DBTX) ([]domain.Account, error) {
	rows, err := db.Query(ctx, `SELECT id, username, password_hash, created_at FROM admins ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []domain.Account
	for rows.Next() {
		var a domain.Account
		if err := rows.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Create inserts a new admin account.
func (r *accountRepo) Create(ctx context.Context, db DBTX, a *domain.Account) error {
	return db.QueryRow(ctx,
		`INSERT INTO admins (username, password_hash) VALUES ($1, $2) RETURNING id, created_at`,
		a.Username, a.PasswordHash).Scan(&a.ID, &a.CreatedAt)
}

// Update rewrites the account currently named oldUsername.
func (r *accountRepo) Update(ctx context.Context, db DBTX, oldUsername string, a *domain.Account) error {
	tag, err := db.Exec(ctx,
		`UPDATE admins SET username = $1, password_hash = $2 WHERE lower(username) = lower($3)`,
		a.Username, a.PasswordHash, oldUsername)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound("account", oldUsername)
	}
	return nil
}

func (r *accountRepo) Delete(ctx context.Context, db DBTX, username string) error {
	tag, err := db.Exec(ctx, `DELETE FROM admins WHERE lower(username) = lower($1)`, username)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound("account", username)
	}
	return nil
}

func (r *accountRepo) Count(ctx context.Context, db DBTX) (int, error) {
	var n int
	if err := db.QueryRow(ctx, `SELECT COUNT(*) FROM admins`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	return n, nil
}
