package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/atttc/ladder/internal/domain"
	"github.com/jackc/pgx/v5"
)

type tokenRepo struct{}

// NewTokenRepository returns a pgx-backed TokenRepository.
func NewTokenRepository() TokenRepository {
	return &tokenRepo{}
}

func (r *tokenRepo) Insert(ctx context.Context, db DBTX, t *domain.Token) error {
	err := db.QueryRow(ctx,
		`INSERT INTO tokens (token, type, since, expires) VALUES ($1, $2, $3, $4) RETURNING id`,
		t.Token, t.Type, t.Since, t.Expires).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("insert token: %w", err)
	}
	return nil
}

func (r *tokenRepo) Find(ctx context.Context, db DBTX, token, tokenType string) (*domain.Token, error) {
	var t domain.Token
	err := db.QueryRow(ctx,
		`SELECT id, token, type, since, expires FROM tokens WHERE token = $1 AND type = $2`,
		token, tokenType).Scan(&t.ID, &t.Token, &t.Type, &t.Since, &t.Expires)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find token: %w", err)
	}
	return &t, nil
}
