package admin

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/atttc/ladder/internal/domain"
	"github.com/atttc/ladder/internal/handler"
	"github.com/atttc/ladder/internal/report"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportsHandler exports standings.
type ReportsHandler struct {
	ladder Ladder
	now    func() time.Time
}

// NewReportsHandler creates a new ReportsHandler.
func NewReportsHandler(ladder Ladder) *ReportsHandler {
	return &ReportsHandler{ladder: ladder, now: time.Now}
}

// StandingsXLSX handles GET /admin/standings.xlsx?tier=&matches=true. Without
// a tier every ranked tier gets a sheet.
func (h *ReportsHandler) StandingsXLSX(w http.ResponseWriter, r *http.Request) {
	q := handler.NewQuery(r)
	tier := q.Tier("tier")
	withMatches := q.Bool("matches")
	if err := q.Err(); err != nil {
		handler.RespondError(w, err)
		return
	}

	tiers := domain.RankedTiers
	if tier != nil {
		tiers = []domain.Tier{*tier}
	}
	sheets := make([]report.TierStandings, 0, len(tiers))
	for _, t := range tiers {
		players, err := h.ladder.Standings(r.Context(), t)
		if err != nil {
			handler.RespondError(w, err)
			return
		}
		sheets = append(sheets, report.TierStandings{Tier: t, Players: players})
	}

	var matches []domain.Match
	if withMatches != nil && *withMatches {
		var t domain.Tier
		if tier != nil {
			t = *tier
		}
		var err error
		if matches, err = h.ladder.RecentMatches(r.Context(), t, nil); err != nil {
			handler.RespondError(w, err)
			return
		}
	}

	var buf bytes.Buffer
	if err := report.WriteStandings(&buf, sheets, matches); err != nil {
		handler.RespondError(w, domain.ErrInternal("export standings", err))
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="standings-%s.xlsx"`, h.now().Format(domain.DateLayout)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
