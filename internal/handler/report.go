package handler

import (
	"net/http"
	"time"

	"github.com/atttc/ladder/internal/auth"
	"github.com/atttc/ladder/internal/domain"
)

// ReportHandler serves the public report pages opened with a report token.
type ReportHandler struct {
	ladder Ladder
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(ladder Ladder) *ReportHandler {
	return &ReportHandler{ladder: ladder}
}

// Ladder handles GET /reports/{token}/ladder/{tier}.
func (h *ReportHandler) Ladder(w http.ResponseWriter, r *http.Request) {
	tier, err := PathTier(r, "tier")
	if err != nil {
		RespondError(w, err)
		return
	}
	players, err := h.ladder.Standings(r.Context(), tier)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, Standings(players))
}

// Matches handles GET /reports/{token}/matches?tier=&since=. The token's own
// since date is a floor the query cannot go below.
func (h *ReportHandler) Matches(w http.ResponseWriter, r *http.Request) {
	q := NewQuery(r)
	tier := q.Tier("tier")
	since := q.Date("since")
	if err := q.Err(); err != nil {
		RespondError(w, err)
		return
	}
	if tok := auth.ReportTokenFromContext(r.Context()); tok != nil && tok.Since != nil {
		since = laterOf(since, tok.Since)
	}

	var t domain.Tier
	if tier != nil {
		t = *tier
	}
	matches, err := h.ladder.RecentMatches(r.Context(), t, since)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, matches)
}

func laterOf(a, b *time.Time) *time.Time {
	if a == nil || b.After(*a) {
		return b
	}
	return a
}
