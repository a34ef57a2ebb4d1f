package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/atttc/ladder/internal/domain"
	"github.com/atttc/ladder/internal/repository"
)

// AuditResult holds the outcome of replaying the active season's matches
// against the stored standings.
type AuditResult struct {
	SeasonID   int64            `json:"season_id"`
	Players    int              `json:"players"`
	Matches    int              `json:"matches"`
	Invariants []InvariantCheck `json:"invariants"`
	AllPassed  bool             `json:"all_passed"`
}

// InvariantCheck records a single invariant validation.
type InvariantCheck struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// maxAuditDetails caps the mismatches listed per invariant.
const maxAuditDetails = 10

type expectedStanding struct {
	wins, losses int
	records      map[domain.Tier]*domain.TierRecord
	points       int
}

// Audit recomputes every active player's counters and points from the
// season's credited matches, in the order they were credited, and validates
// 3 invariants:
//  1. Counter parity: wins, losses and per-tier records match the match table
//  2. Points parity: points equal initial points plus credited points since the last tier rise
//  3. Promotion order: higher-tier promotion dates do not precede lower ones
func (e *Engine) Audit(ctx context.Context, db repository.DBTX) (*AuditResult, error) {
	season, err := e.seasons.GetActive(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("audit: %w", err)
	}
	if season == nil {
		return nil, domain.ErrNotFound("season", "active")
	}
	players, err := e.players.ListActive(ctx, db, "")
	if err != nil {
		return nil, fmt.Errorf("audit: %w", err)
	}
	matches, err := e.matches.ListCredited(ctx, db, season.ID)
	if err != nil {
		return nil, fmt.Errorf("audit: %w", err)
	}

	expected := make(map[int64]*expectedStanding, len(players))
	for _, p := range players {
		expected[p.ID] = &expectedStanding{
			records: map[domain.Tier]*domain.TierRecord{
				domain.TierA: {}, domain.TierB: {}, domain.TierC: {},
			},
			points: p.InitialPoints,
		}
	}
	replayMatches(expected, matches)

	result := &AuditResult{
		SeasonID:   season.ID,
		Players:    len(players),
		Matches:    len(matches),
		Invariants: checkStandings(players, expected),
	}
	result.AllPassed = true
	for _, inv := range result.Invariants {
		if !inv.Passed {
			result.AllPassed = false
		}
	}
	return result, nil
}

func replayMatches(expected map[int64]*expectedStanding, matches []domain.Match) {
	for _, m := range matches {
		c, o := expected[m.ChallengerID], expected[m.OpponentID]
		if m.PointsReset {
			if w := expected[m.WinnerID]; w != nil {
				w.points = 0
			}
		}
		if c != nil {
			c.points += m.ChallengerPoints
		}
		if o != nil {
			o.points += m.OpponentPoints
		}
		if w := expected[m.WinnerID]; w != nil {
			w.wins++
			if rec := w.records[m.Tier]; rec != nil {
				rec.Wins++
			}
		}
		if l := expected[m.LoserID()]; l != nil {
			l.losses++
			if rec := l.records[m.Tier]; rec != nil {
				rec.Losses++
			}
		}
	}
}

func checkStandings(players []domain.Player, expected map[int64]*expectedStanding) []InvariantCheck {
	var counterIssues, pointIssues, orderIssues []string
	for i := range players {
		p := &players[i]
		want := expected[p.ID]

		counters := p.Wins == want.wins && p.Losses == want.losses
		for _, t := range domain.RankedTiers {
			if *p.Record(t) != *want.records[t] {
				counters = false
			}
		}
		if !counters {
			counterIssues = append(counterIssues, fmt.Sprintf("player %d: wins/losses %d/%d, replayed %d/%d",
				p.ID, p.Wins, p.Losses, want.wins, want.losses))
		}
		if p.Points != want.points {
			pointIssues = append(pointIssues, fmt.Sprintf("player %d: points %d, replayed %d", p.ID, p.Points, want.points))
		}
		for _, problem := range domain.CheckPromotionOrder(p) {
			orderIssues = append(orderIssues, fmt.Sprintf("player %d: %s", p.ID, problem))
		}
	}
	return []InvariantCheck{
		newCheck("counter_parity", counterIssues),
		newCheck("points_parity", pointIssues),
		newCheck("promotion_order", orderIssues),
	}
}

func newCheck(name string, issues []string) InvariantCheck {
	if len(issues) == 0 {
		return InvariantCheck{Name: name, Passed: true, Detail: "ok"}
	}
	detail := issues
	if len(detail) > maxAuditDetails {
		detail = append(detail[:maxAuditDetails:maxAuditDetails], fmt.Sprintf("and %d more", len(issues)-maxAuditDetails))
	}
	return InvariantCheck{Name: name, Passed: false, Detail: strings.Join(detail, "; ")}
}
