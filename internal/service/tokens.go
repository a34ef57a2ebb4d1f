package service

import (
	"context"
	"fmt"
	"time"

	"github.com/atttc/ladder/internal/domain"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.opentelemetry.io/otel/attribute"
)

const (
	tokenAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	tokenLength   = 32
)

var (
	errInvalidToken = domain.ErrForbidden("invalid access token")
	errExpiredToken = domain.ErrForbidden("access token expired")
)

// NewToken issues a read-access token of tokenType valid through expires.
// since, when set, bounds the match history the token may see.
func (s *AccountService) NewToken(ctx context.Context, tokenType string, since *time.Time, expires time.Time) (*domain.Token, error) {
	return observe(ctx, s.tel, "new_token", func(ctx context.Context) (*domain.Token, error) {
		if tokenType != domain.TokenReport {
			return nil, domain.ErrValidation(fmt.Sprintf("unknown token type %q", tokenType))
		}
		if expires.IsZero() {
			return nil, domain.ErrValidation("expiry date is required")
		}
		expires = domain.Day(expires)
		if expires.Before(domain.Day(s.now())) {
			return nil, domain.ErrValidation("expiry date is in the past")
		}
		if since != nil {
			d := domain.Day(*since)
			since = &d
		}
		value, err := gonanoid.Generate(tokenAlphabet, tokenLength)
		if err != nil {
			return nil, domain.ErrInternal("generate token", err)
		}
		t := &domain.Token{Token: value, Type: tokenType, Since: since, Expires: expires}
		if err := s.repos.Tokens.Insert(ctx, s.db, t); err != nil {
			return nil, err
		}
		return t, nil
	}, attribute.String("type", tokenType))
}

// CheckToken returns the stored token when it exists for tokenType and has not expired.
func (s *AccountService) CheckToken(ctx context.Context, token, tokenType string) (*domain.Token, error) {
	return observe(ctx, s.tel, "check_token", func(ctx context.Context) (*domain.Token, error) {
		t, err := s.repos.Tokens.Find(ctx, s.db, token, tokenType)
		if err != nil {
			return nil, err
		}
		if t == nil {
			return nil, errInvalidToken
		}
		if t.Expired(s.now()) {
			return nil, errExpiredToken
		}
		return t, nil
	}, attribute.String("type", tokenType))
}
