package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/atttc/ladder/internal/domain"
	"github.com/go-chi/chi/v5"
)

type contextKey string

const (
	claimsKey      contextKey = "auth_claims"
	subjectKey     contextKey = "auth_subject"
	reportTokenKey contextKey = "report_token"
)

// ClaimsFromContext extracts JWT claims from request context.
func ClaimsFromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(claimsKey).(*Claims)
	return claims
}

// SubjectFromContext returns the authenticated player or admin id, or 0.
func SubjectFromContext(ctx context.Context) int64 {
	sub, _ := ctx.Value(subjectKey).(int64)
	return sub
}

// ReportTokenFromContext returns the report token validated for this request.
func ReportTokenFromContext(ctx context.Context) *domain.Token {
	tok, _ := ctx.Value(reportTokenKey).(*domain.Token)
	return tok
}

// AuthenticatePlayer returns middleware that validates player JWT tokens.
func AuthenticatePlayer(jwtMgr *JWTManager) func(http.Handler) http.Handler {
	return authenticateRealm(jwtMgr, RealmPlayer)
}

// AuthenticateAdmin returns middleware that validates admin JWT tokens.
func AuthenticateAdmin(jwtMgr *JWTManager) func(http.Handler) http.Handler {
	return authenticateRealm(jwtMgr, RealmAdmin)
}

func authenticateRealm(jwtMgr *JWTManager, realm Realm) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := extractAndValidate(r, jwtMgr, realm)
			if err != nil {
				http.Error(w, `{"code":"UNAUTHORIZED","message":"`+err.Error()+`"}`, http.StatusUnauthorized)
				return
			}
			subject, _ := claims.SubjectID()

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			ctx = context.WithValue(ctx, subjectKey, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractAndValidate(r *http.Request, jwtMgr *JWTManager, realm Realm) (*Claims, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, fmt.Errorf("missing Authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return nil, fmt.Errorf("invalid Authorization format")
	}

	return jwtMgr.ValidateTokenForRealm(parts[1], realm)
}

// TokenChecker looks up a read-access token of the given type.
type TokenChecker interface {
	CheckToken(ctx context.Context, token, tokenType string) (*domain.Token, error)
}

// RequireReportToken validates the {token} URL parameter as an unexpired report token.
func RequireReportToken(tokens TokenChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok, err := tokens.CheckToken(r.Context(), chi.URLParam(r, "token"), domain.TokenReport)
			if err != nil || tok == nil {
				http.Error(w, `{"code":"FORBIDDEN","message":"invalid or expired report token"}`, http.StatusForbidden)
				return
			}
			ctx := context.WithValue(r.Context(), reportTokenKey, tok)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
