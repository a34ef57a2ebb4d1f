//go:build integration

package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/atttc/ladder/internal/domain"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/require"
)

const (
	AdminUsername  = "commissioner"
	AdminPassword  = "baseline-admin-1"
	PlayerPassword = "baseline-player-1"
)

// Request makes an HTTP request to the test server. token may be empty.
func (env *TestEnv) Request(method, path, token string, body interface{}) *http.Response {
	env.t.Helper()
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(env.t, err)
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, env.Server.URL+path, bodyReader)
	require.NoError(env.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(env.t, err)
	return resp
}

func (env *TestEnv) GET(path, token string) *http.Response {
	return env.Request(http.MethodGet, path, token, nil)
}

func (env *TestEnv) POST(path, token string, body interface{}) *http.Response {
	return env.Request(http.MethodPost, path, token, body)
}

func (env *TestEnv) PATCH(path, token string, body interface{}) *http.Response {
	return env.Request(http.MethodPatch, path, token, body)
}

func (env *TestEnv) DELETE(path, token string) *http.Response {
	return env.Request(http.MethodDelete, path, token, nil)
}

// DecodeJSON reads the response body into dst and closes it.
func DecodeJSON(t *testing.T, resp *http.Response, dst interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
}

// ReadBody returns the response body as a string and closes it.
func ReadBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}

// AssertStatus fails the test with the body when the status differs.
func AssertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Fatalf("expected status %d, got %d: %s", expected, resp.StatusCode, ReadBody(t, resp))
	}
}

// AssertErrorCode checks both the status and the error code of a failed call.
func AssertErrorCode(t *testing.T, resp *http.Response, status int, code string) {
	t.Helper()
	AssertStatus(t, resp, status)
	var body map[string]string
	DecodeJSON(t, resp, &body)
	require.Equal(t, code, body["code"], body["message"])
}

// AdminToken bootstraps the first admin account and returns its token.
func (env *TestEnv) AdminToken() string {
	env.t.Helper()
	resp := env.POST("/auth/bootstrap", "", map[string]string{
		"username": AdminUsername,
		"password": AdminPassword,
	})
	AssertStatus(env.t, resp, http.StatusCreated)
	var result struct {
		Token string `json:"token"`
	}
	DecodeJSON(env.t, resp, &result)
	require.NotEmpty(env.t, result.Token)
	return result.Token
}

// PlayerToken logs a player in and returns the token.
func (env *TestEnv) PlayerToken(username string) string {
	env.t.Helper()
	resp := env.POST("/auth/login", "", map[string]string{
		"username": username,
		"password": PlayerPassword,
		"role":     string(domain.RolePlayer),
	})
	AssertStatus(env.t, resp, http.StatusOK)
	var result struct {
		Token string `json:"token"`
	}
	DecodeJSON(env.t, resp, &result)
	return result.Token
}

// CreatePlayer registers an active player in tier with a generated identity.
func (env *TestEnv) CreatePlayer(adminToken string, tier domain.Tier) *domain.Player {
	env.t.Helper()
	first, last := gofakeit.FirstName(), gofakeit.LastName()
	username := strings.ToLower(fmt.Sprintf("%s.%s%d", first, last, gofakeit.Number(100, 999)))
	username = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, username)
	if len(username) > 32 {
		username = username[len(username)-32:]
	}

	resp := env.POST("/admin/players", adminToken, domain.PlayerInput{
		Username:  username,
		Password:  PlayerPassword,
		FirstName: first,
		LastName:  last,
		Email:     username + "@example.com",
		Tier:      tier,
		Active:    true,
	})
	AssertStatus(env.t, resp, http.StatusCreated)
	var p domain.Player
	DecodeJSON(env.t, resp, &p)
	return &p
}

// SeedRoster creates n active players in each of the given tiers.
func (env *TestEnv) SeedRoster(adminToken string, n int, tiers ...domain.Tier) map[domain.Tier][]*domain.Player {
	env.t.Helper()
	roster := make(map[domain.Tier][]*domain.Player, len(tiers))
	for _, tier := range tiers {
		for i := 0; i < n; i++ {
			roster[tier] = append(roster[tier], env.CreatePlayer(adminToken, tier))
		}
	}
	return roster
}

// StartSeason opens a season whose window spans today.
func (env *TestEnv) StartSeason(adminToken, title string, keepRoster bool) *domain.Season {
	env.t.Helper()
	today := domain.Day(time.Now())
	resp := env.POST("/admin/seasons", adminToken, map[string]interface{}{
		"title":              title,
		"start_date":         domain.FormatDate(today.AddDate(0, 0, -30)),
		"end_date":           domain.FormatDate(today.AddDate(0, 0, 60)),
		"keep_roster_active": keepRoster,
	})
	AssertStatus(env.t, resp, http.StatusCreated)
	var s domain.Season
	DecodeJSON(env.t, resp, &s)
	return &s
}

// DaysAgo formats the date n days before today.
func DaysAgo(n int) string {
	return domain.FormatDate(domain.Day(time.Now()).AddDate(0, 0, -n))
}

// Match builds an admin credit request body.
func Match(challenger, opponent int64, cGames, oGames []int, date string) map[string]interface{} {
	return map[string]interface{}{
		"challenger_id":    challenger,
		"opponent_id":      opponent,
		"challenger_games": cGames,
		"opponent_games":   oGames,
		"date":             date,
	}
}

// CreditMatch credits a match through the admin API and decodes the result.
func (env *TestEnv) CreditMatch(adminToken string, body map[string]interface{}) *domain.CreditResult {
	env.t.Helper()
	resp := env.POST("/admin/matches", adminToken, body)
	AssertStatus(env.t, resp, http.StatusCreated)
	var res domain.CreditResult
	DecodeJSON(env.t, resp, &res)
	return &res
}

// GetPlayer fetches a player through the admin API.
func (env *TestEnv) GetPlayer(adminToken string, id int64) *domain.Player {
	env.t.Helper()
	resp := env.GET(fmt.Sprintf("/admin/players/%d", id), adminToken)
	AssertStatus(env.t, resp, http.StatusOK)
	var p domain.Player
	DecodeJSON(env.t, resp, &p)
	return &p
}
