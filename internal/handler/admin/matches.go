package admin

import (
	"net/http"

	"github.com/atttc/ladder/internal/domain"
	"github.com/atttc/ladder/internal/handler"
)

// MatchAdminHandler handles scoring, crediting and moderating matches.
type MatchAdminHandler struct {
	ladder Ladder
}

// NewMatchAdminHandler creates a new MatchAdminHandler.
func NewMatchAdminHandler(ladder Ladder) *MatchAdminHandler {
	return &MatchAdminHandler{ladder: ladder}
}

// Score handles POST /admin/score. It validates and scores without crediting.
func (h *MatchAdminHandler) Score(w http.ResponseWriter, r *http.Request) {
	in, err := handler.DecodeMatch(r)
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	res, err := h.ladder.ValidateAndScore(r.Context(), in)
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, res)
}

// Credit handles POST /admin/matches.
func (h *MatchAdminHandler) Credit(w http.ResponseWriter, r *http.Request) {
	in, err := handler.DecodeMatch(r)
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	res, err := h.ladder.CreditMatch(r.Context(), in)
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	handler.RespondJSON(w, http.StatusCreated, res)
}

// Approve handles POST /admin/matches/{id}/approve.
func (h *MatchAdminHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathID(r, "id")
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	res, err := h.ladder.ApproveMatch(r.Context(), id)
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, res)
}

// Dispute handles POST /admin/matches/{id}/dispute.
func (h *MatchAdminHandler) Dispute(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathID(r, "id")
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	m, err := h.ladder.DisputeMatch(r.Context(), id)
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, m)
}

// List handles GET /admin/matches with optional filters:
// id, season_id, tier, player_id, challenger_id, opponent_id, winner_id,
// date, since, pending, disputed, limit.
func (h *MatchAdminHandler) List(w http.ResponseWriter, r *http.Request) {
	q := handler.NewQuery(r)
	filter := domain.MatchFilter{
		ID:           q.Int64("id"),
		SeasonID:     q.Int64("season_id"),
		Tier:         q.Tier("tier"),
		PlayerID:     q.Int64("player_id"),
		ChallengerID: q.Int64("challenger_id"),
		OpponentID:   q.Int64("opponent_id"),
		WinnerID:     q.Int64("winner_id"),
		Date:         q.Date("date"),
		Since:        q.Date("since"),
		Pending:      q.Bool("pending"),
		Disputed:     q.Bool("disputed"),
		Limit:        q.Int("limit"),
	}
	if err := q.Err(); err != nil {
		handler.RespondError(w, err)
		return
	}
	matches, err := h.ladder.LookupMatches(r.Context(), filter)
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, matches)
}
