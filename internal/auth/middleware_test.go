package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/atttc/ladder/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoSubject(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(strconv.FormatInt(SubjectFromContext(r.Context()), 10)))
}

// --- Bearer Middleware Tests ---

func TestAuthenticatePlayer(t *testing.T) {
	mgr := newTestJWTManager()
	playerToken, err := mgr.GenerateToken(RealmPlayer, 9, "becker")
	require.NoError(t, err)
	adminToken, err := mgr.GenerateToken(RealmAdmin, 1, "root")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid player token", "Bearer " + playerToken, http.StatusOK},
		{"admin token on player route", "Bearer " + adminToken, http.StatusUnauthorized},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + playerToken, http.StatusUnauthorized},
		{"garbage", "Bearer nope", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := AuthenticatePlayer(mgr)(http.HandlerFunc(echoSubject))
			req := httptest.NewRequest(http.MethodGet, "/players/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestAuthenticateAdmin_SetsSubject(t *testing.T) {
	mgr := newTestJWTManager()
	token, err := mgr.GenerateToken(RealmAdmin, 3, "root")
	require.NoError(t, err)

	var got int64
	h := AuthenticateAdmin(mgr)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = SubjectFromContext(r.Context())
		assert.Equal(t, "root", ClaimsFromContext(r.Context()).Username)
	}))
	req := httptest.NewRequest(http.MethodGet, "/admin/audit", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, int64(3), got)
}

// --- Report Token Tests ---

type tokenStub map[string]*domain.Token

func (s tokenStub) CheckToken(_ context.Context, token, tokenType string) (*domain.Token, error) {
	if tok, ok := s[token]; ok && tok.Type == tokenType {
		return tok, nil
	}
	return nil, nil
}

func TestRequireReportToken(t *testing.T) {
	tokens := tokenStub{"abc": {Token: "abc", Type: domain.TokenReport}}

	r := chi.NewRouter()
	r.With(RequireReportToken(tokens)).Get("/reports/{token}/ladder", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "abc", ReportTokenFromContext(r.Context()).Token)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/abc/ladder", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/zzz/ladder", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
