package ledger

import (
	"testing"

	"github.com/atttc/ladder/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Audit Tests ---

func TestAudit_PassesAfterCredits(t *testing.T) {
	e, s := seasonEngine(t)
	agassi := s.addPlayer("Agassi", domain.TierC)
	becker := s.addPlayer("Becker", domain.TierB)
	chang := s.addPlayer("Chang", domain.TierC)

	for _, in := range []domain.MatchInput{
		win(agassi, chang, "2024-03-01"),
		loss(chang, becker, "2024-03-02"),
		win(agassi, becker, "2024-03-05"),
		win(chang, agassi, "2024-03-09"),
	} {
		_, err := e.ExecuteCreditMatch(ctx, nil, in)
		require.NoError(t, err)
	}

	res, err := e.Audit(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Players)
	assert.Equal(t, 4, res.Matches)
	assert.True(t, res.AllPassed, "%+v", res.Invariants)
	assert.Len(t, res.Invariants, 3)
}

func TestAudit_BackdatedPromotionKeepsPoints(t *testing.T) {
	e, s := seasonEngine(t)
	chang := s.addPlayer("Chang", domain.TierC)
	becker := s.addPlayer("Becker", domain.TierB)
	courier := s.addPlayer("Courier", domain.TierB)

	for _, in := range []domain.MatchInput{
		win(chang, becker, "2024-05-01"),
		win(chang, courier, "2024-05-03"),
		win(chang, courier, "2024-04-01"),
	} {
		_, err := e.ExecuteCreditMatch(ctx, nil, in)
		require.NoError(t, err)
	}

	c := s.player(chang.ID)
	assert.Equal(t, 90, c.Points)
	assert.Equal(t, date("2024-04-01"), *c.BPromotion)

	res, err := e.Audit(ctx, nil)
	require.NoError(t, err)
	assert.True(t, res.AllPassed, "%+v", res.Invariants)
}

func TestAudit_DetectsDrift(t *testing.T) {
	e, s := seasonEngine(t)
	agassi := s.addPlayer("Agassi", domain.TierC)
	becker := s.addPlayer("Becker", domain.TierC)
	_, err := e.ExecuteCreditMatch(ctx, nil, win(agassi, becker, "2024-03-01"))
	require.NoError(t, err)

	s.player(agassi.ID).Points = 99
	s.player(becker.ID).Losses = 0
	s.player(becker.ID).APromotion = domain.DatePtr(date("2020-01-01"))
	s.player(becker.ID).CPromotion = domain.DatePtr(date("2021-01-01"))

	res, err := e.Audit(ctx, nil)
	require.NoError(t, err)
	assert.False(t, res.AllPassed)
	for _, inv := range res.Invariants {
		assert.False(t, inv.Passed, inv.Name)
	}
	assert.Contains(t, res.Invariants[1].Detail, "points 99, replayed 30")
}

func TestAudit_PendingAndDisputedIgnored(t *testing.T) {
	e, s := seasonEngine(t)
	agassi := s.addPlayer("Agassi", domain.TierC)
	becker := s.addPlayer("Becker", domain.TierC)
	_, err := e.ExecuteSubmitMatch(ctx, nil, agassi.ID, win(agassi, becker, "2024-03-01"))
	require.NoError(t, err)

	res, err := e.Audit(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, res.Matches)
	assert.True(t, res.AllPassed)
}

func TestNewCheck_CapsDetail(t *testing.T) {
	issues := make([]string, maxAuditDetails+3)
	for i := range issues {
		issues[i] = "x"
	}
	check := newCheck("points_parity", issues)
	assert.False(t, check.Passed)
	assert.Contains(t, check.Detail, "and 3 more")
}
