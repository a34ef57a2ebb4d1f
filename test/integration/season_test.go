//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/atttc/ladder/internal/domain"
	"github.com/atttc/ladder/internal/ledger"
	"github.com/atttc/ladder/test/integration/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ─── Season Lifecycle Tests ───

func TestStartSeason_ArchivesAndResets(t *testing.T) {
	env := testutil.NewTestEnv(t)
	admin := env.AdminToken()
	spring := env.StartSeason(admin, "Spring", true)
	roster := env.SeedRoster(admin, 2, domain.TierB)
	x, y := roster[domain.TierB][0], roster[domain.TierB][1]
	env.CreditMatch(admin, testutil.Match(x.ID, y.ID, []int{6, 6}, []int{1, 1}, testutil.DaysAgo(1)))

	fall := env.StartSeason(admin, "Fall", true)
	require.NotNil(t, fall.PrevID)
	assert.Equal(t, spring.ID, *fall.PrevID)
	assert.True(t, fall.Active)

	p := env.GetPlayer(admin, x.ID)
	assert.Equal(t, 0, p.Points)
	assert.Equal(t, 0, p.Wins)
	assert.True(t, p.Active, "roster kept active")

	resp := env.GET("/admin/seasons", admin)
	testutil.AssertStatus(t, resp, http.StatusOK)
	var seasons []domain.Season
	testutil.DecodeJSON(t, resp, &seasons)
	require.Len(t, seasons, 2)
	active := 0
	for _, s := range seasons {
		if s.Active {
			active++
			assert.Equal(t, fall.ID, s.ID)
		}
	}
	assert.Equal(t, 1, active)
}

func TestStartSeason_DeactivatesRoster(t *testing.T) {
	env := testutil.NewTestEnv(t)
	admin := env.AdminToken()
	env.StartSeason(admin, "Spring", true)
	x := env.CreatePlayer(admin, domain.TierC)

	env.StartSeason(admin, "Fall", false)
	assert.False(t, env.GetPlayer(admin, x.ID).Active)
}

func TestStartSeason_DuplicateTitle(t *testing.T) {
	env := testutil.NewTestEnv(t)
	admin := env.AdminToken()
	env.StartSeason(admin, "Spring", true)

	resp := env.POST("/admin/seasons", admin, map[string]interface{}{
		"title":      "Spring",
		"start_date": testutil.DaysAgo(1),
		"end_date":   testutil.DaysAgo(-90),
	})
	testutil.AssertErrorCode(t, resp, http.StatusConflict, domain.CodeConflict)
}

// ─── Kick Tests ───

func TestKickSeason_SeedsFromArchive(t *testing.T) {
	env := testutil.NewTestEnv(t)
	admin := env.AdminToken()
	spring := env.StartSeason(admin, "Spring", true)
	roster := env.SeedRoster(admin, 3, domain.TierB)
	p := roster[domain.TierB]
	env.CreditMatch(admin, testutil.Match(p[2].ID, p[1].ID, []int{6, 6}, []int{0, 0}, testutil.DaysAgo(1)))

	env.StartSeason(admin, "Fall", true)

	kick := func(mode domain.KickMode) *domain.KickResult {
		resp := env.POST("/admin/seasons/kick", admin, domain.KickParams{
			PriorSeasonID: spring.ID,
			Tiers:         []domain.Tier{domain.TierB},
			Mode:          mode,
		})
		testutil.AssertStatus(t, resp, http.StatusOK)
		var res domain.KickResult
		testutil.DecodeJSON(t, resp, &res)
		return &res
	}

	res := kick(domain.KickSet)
	assert.True(t, res.Applied)
	require.Len(t, res.Tiers, 1)
	seeds := res.Tiers[0].SeedPoints
	assert.Equal(t, 30, seeds[p[2].ID])
	assert.Equal(t, 20, seeds[p[1].ID])
	assert.Equal(t, 10, seeds[p[0].ID])

	top := env.GetPlayer(admin, p[2].ID)
	assert.Equal(t, 30, top.InitialPoints)
	assert.Equal(t, 30, top.Points)

	again := kick(domain.KickSet)
	assert.False(t, again.Applied, "second set is a no-op")
	assert.Equal(t, 30, env.GetPlayer(admin, p[2].ID).Points)

	cleared := kick(domain.KickClear)
	assert.True(t, cleared.Applied)
	top = env.GetPlayer(admin, p[2].ID)
	assert.Equal(t, 0, top.InitialPoints)
	assert.Equal(t, 0, top.Points)
}

func TestKickSeason_UnknownPrior(t *testing.T) {
	env := testutil.NewTestEnv(t)
	admin := env.AdminToken()
	env.StartSeason(admin, "Spring", true)

	resp := env.POST("/admin/seasons/kick", admin, domain.KickParams{PriorSeasonID: 404, Mode: domain.KickSet})
	testutil.AssertErrorCode(t, resp, http.StatusNotFound, domain.CodeNotFound)
}

func TestAutoKick_SeedsDueSeason(t *testing.T) {
	env := testutil.NewTestEnv(t)
	admin := env.AdminToken()
	env.StartSeason(admin, "Spring", true)
	roster := env.SeedRoster(admin, 2, domain.TierA)
	a := roster[domain.TierA]
	env.CreditMatch(admin, testutil.Match(a[0].ID, a[1].ID, []int{6, 6}, []int{2, 2}, testutil.DaysAgo(1)))
	env.StartSeason(admin, "Fall", true)

	res, err := env.App.Ladder.AutoKick(t.Context())
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.True(t, res.Applied)
	assert.Equal(t, 20, env.GetPlayer(admin, a[0].ID).Points)

	res, err = env.App.Ladder.AutoKick(t.Context())
	require.NoError(t, err)
	assert.Nil(t, res, "a kicked season is no longer due")
}

// ─── Tournament Tests ───

func TestTournament_Parameters(t *testing.T) {
	env := testutil.NewTestEnv(t)
	admin := env.AdminToken()
	env.StartSeason(admin, "Spring", true)

	resp := env.Request(http.MethodPut, "/admin/tournament", admin, map[string]interface{}{
		"start_date":    testutil.DaysAgo(2),
		"min_matches":   1,
		"min_opponents": 1,
	})
	testutil.AssertStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = env.GET("/admin/tournament", admin)
	testutil.AssertStatus(t, resp, http.StatusOK)
	var params domain.TournamentParams
	testutil.DecodeJSON(t, resp, &params)
	assert.Equal(t, 1, params.MinMatches)
	require.NotNil(t, params.StartDate)
	assert.Equal(t, testutil.DaysAgo(2), domain.FormatDate(*params.StartDate))

	resp = env.Request(http.MethodPut, "/admin/tournament", admin, map[string]interface{}{"min_opponents": 2})
	testutil.AssertStatus(t, resp, http.StatusOK)
	resp.Body.Close()
	resp = env.GET("/admin/tournament", admin)
	testutil.AssertStatus(t, resp, http.StatusOK)
	params = domain.TournamentParams{}
	testutil.DecodeJSON(t, resp, &params)
	assert.Equal(t, 1, params.MinMatches, "omitted fields keep their value")
	assert.Equal(t, 2, params.MinOpponents)
	require.NotNil(t, params.StartDate)

	b := env.CreatePlayer(admin, domain.TierB)
	a := env.CreatePlayer(admin, domain.TierA)
	resp = env.POST("/admin/matches", admin, testutil.Match(b.ID, a.ID, []int{6, 6}, []int{1, 1}, testutil.DaysAgo(1)))
	testutil.AssertErrorCode(t, resp, http.StatusUnprocessableEntity, domain.CodeRuleViolation)
}

// ─── Audit Tests ───

func TestAudit_CleanLedger(t *testing.T) {
	env := testutil.NewTestEnv(t)
	admin := env.AdminToken()
	env.StartSeason(admin, "Spring", true)
	roster := env.SeedRoster(admin, 2, domain.TierC, domain.TierB)
	c, b := roster[domain.TierC], roster[domain.TierB]
	env.CreditMatch(admin, testutil.Match(c[0].ID, c[1].ID, []int{6, 3, 6}, []int{4, 6, 2}, testutil.DaysAgo(3)))
	env.CreditMatch(admin, testutil.Match(c[0].ID, b[0].ID, []int{7, 6}, []int{6, 4}, testutil.DaysAgo(2)))
	env.CreditMatch(admin, testutil.Match(b[1].ID, c[0].ID, []int{6, 6}, []int{4, 4}, testutil.DaysAgo(1)))

	resp := env.GET("/admin/audit", admin)
	testutil.AssertStatus(t, resp, http.StatusOK)
	var audit ledger.AuditResult
	testutil.DecodeJSON(t, resp, &audit)
	assert.True(t, audit.AllPassed)
	assert.Equal(t, 3, audit.Matches)
	for _, check := range audit.Invariants {
		assert.True(t, check.Passed, "%s: %s", check.Name, check.Detail)
	}
}

func TestAudit_DetectsDrift(t *testing.T) {
	env := testutil.NewTestEnv(t)
	admin := env.AdminToken()
	env.StartSeason(admin, "Spring", true)
	roster := env.SeedRoster(admin, 2, domain.TierC)
	c := roster[domain.TierC]
	env.CreditMatch(admin, testutil.Match(c[0].ID, c[1].ID, []int{6, 6}, []int{4, 4}, testutil.DaysAgo(1)))

	_, err := env.Pool.Exec(t.Context(), `UPDATE players SET points = points + 7 WHERE id = $1`, c[0].ID)
	require.NoError(t, err)

	resp := env.GET("/admin/audit", admin)
	testutil.AssertStatus(t, resp, http.StatusConflict)
	var audit ledger.AuditResult
	testutil.DecodeJSON(t, resp, &audit)
	assert.False(t, audit.AllPassed)
}
