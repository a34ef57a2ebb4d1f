//go:build integration

package integration

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/atttc/ladder/internal/domain"
	"github.com/atttc/ladder/test/integration/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ─── Bootstrap & Login Tests ───

func TestBootstrap_OnlyOnce(t *testing.T) {
	env := testutil.NewTestEnv(t)
	env.AdminToken()

	resp := env.POST("/auth/bootstrap", "", map[string]string{
		"username": "usurper",
		"password": "long-enough-1",
	})
	testutil.AssertErrorCode(t, resp, http.StatusForbidden, domain.CodeForbidden)
}

func TestLogin_Realms(t *testing.T) {
	env := testutil.NewTestEnv(t)
	admin := env.AdminToken()
	env.StartSeason(admin, "Spring", true)
	p := env.CreatePlayer(admin, domain.TierB)

	tests := []struct {
		name     string
		username string
		password string
		role     domain.Role
		status   int
	}{
		{"player", p.Username, testutil.PlayerPassword, domain.RolePlayer, http.StatusOK},
		{"admin", testutil.AdminUsername, testutil.AdminPassword, domain.RoleAdmin, http.StatusOK},
		{"wrong password", p.Username, "not-the-password", domain.RolePlayer, http.StatusUnauthorized},
		{"player in admin realm", p.Username, testutil.PlayerPassword, domain.RoleAdmin, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.POST("/auth/login", "", map[string]string{
				"username": tt.username,
				"password": tt.password,
				"role":     string(tt.role),
			})
			testutil.AssertStatus(t, resp, tt.status)
			resp.Body.Close()
		})
	}
}

func TestRealms_AreSeparate(t *testing.T) {
	env := testutil.NewTestEnv(t)
	admin := env.AdminToken()
	env.StartSeason(admin, "Spring", true)
	p := env.CreatePlayer(admin, domain.TierB)
	player := env.PlayerToken(p.Username)

	testutil.AssertErrorCode(t, env.GET("/admin/players", player), http.StatusUnauthorized, domain.CodeUnauthorized)
	testutil.AssertErrorCode(t, env.GET("/players/me", admin), http.StatusUnauthorized, domain.CodeUnauthorized)
	testutil.AssertErrorCode(t, env.GET("/players/me", ""), http.StatusUnauthorized, domain.CodeUnauthorized)

	resp := env.GET("/players/me", player)
	testutil.AssertStatus(t, resp, http.StatusOK)
	var me domain.Player
	testutil.DecodeJSON(t, resp, &me)
	assert.Equal(t, p.ID, me.ID)
}

// ─── Account Tests ───

func TestAccounts_UsernamesSharedWithPlayers(t *testing.T) {
	env := testutil.NewTestEnv(t)
	admin := env.AdminToken()
	env.StartSeason(admin, "Spring", true)
	p := env.CreatePlayer(admin, domain.TierC)

	resp := env.POST("/admin/accounts", admin, map[string]string{
		"username": p.Username,
		"password": "long-enough-1",
	})
	testutil.AssertErrorCode(t, resp, http.StatusConflict, domain.CodeConflict)

	resp = env.POST("/admin/players", admin, domain.PlayerInput{
		Username: testutil.AdminUsername,
		Password: testutil.PlayerPassword,
		LastName: "Evert",
		Active:   true,
	})
	testutil.AssertErrorCode(t, resp, http.StatusConflict, domain.CodeConflict)
}

func TestAccounts_LastAdminCannotBeDeleted(t *testing.T) {
	env := testutil.NewTestEnv(t)
	admin := env.AdminToken()

	resp := env.DELETE("/admin/accounts/"+testutil.AdminUsername, admin)
	testutil.AssertErrorCode(t, resp, http.StatusConflict, domain.CodeConflict)

	resp = env.POST("/admin/accounts", admin, map[string]string{
		"username": "deputy",
		"password": "long-enough-1",
	})
	testutil.AssertStatus(t, resp, http.StatusCreated)
	resp.Body.Close()

	resp = env.DELETE("/admin/accounts/deputy", admin)
	testutil.AssertStatus(t, resp, http.StatusNoContent)
	resp.Body.Close()
}

// ─── Report Token Tests ───

func TestReportToken_PublicPages(t *testing.T) {
	env := testutil.NewTestEnv(t)
	admin := env.AdminToken()
	env.StartSeason(admin, "Spring", true)
	roster := env.SeedRoster(admin, 2, domain.TierB)
	b := roster[domain.TierB]
	env.CreditMatch(admin, testutil.Match(b[0].ID, b[1].ID, []int{6, 6}, []int{2, 2}, testutil.DaysAgo(8)))
	env.CreditMatch(admin, testutil.Match(b[1].ID, b[0].ID, []int{6, 6}, []int{3, 3}, testutil.DaysAgo(2)))

	resp := env.POST("/admin/tokens", admin, map[string]string{
		"since":   testutil.DaysAgo(5),
		"expires": testutil.DaysAgo(-30),
	})
	testutil.AssertStatus(t, resp, http.StatusCreated)
	var tok domain.Token
	testutil.DecodeJSON(t, resp, &tok)
	require.NotEmpty(t, tok.Token)
	assert.Equal(t, domain.TokenReport, tok.Type)

	resp = env.GET(fmt.Sprintf("/reports/%s/ladder/B", tok.Token), "")
	testutil.AssertStatus(t, resp, http.StatusOK)
	var ladder []map[string]interface{}
	testutil.DecodeJSON(t, resp, &ladder)
	assert.Len(t, ladder, 2)

	// The token's since date hides the older match even when asked for.
	resp = env.GET(fmt.Sprintf("/reports/%s/matches?since=%s", tok.Token, testutil.DaysAgo(30)), "")
	testutil.AssertStatus(t, resp, http.StatusOK)
	var matches []domain.Match
	testutil.DecodeJSON(t, resp, &matches)
	require.Len(t, matches, 1)
	assert.Equal(t, b[1].ID, matches[0].WinnerID)

	testutil.AssertErrorCode(t, env.GET("/reports/not-a-token/ladder/B", ""), http.StatusForbidden, domain.CodeForbidden)
}
