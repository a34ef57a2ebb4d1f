package admin

import (
	"net/http"

	"github.com/atttc/ladder/internal/domain"
	"github.com/atttc/ladder/internal/handler"
)

// SeasonAdminHandler handles the season lifecycle, tournament settings and audit.
type SeasonAdminHandler struct {
	ladder Ladder
}

// NewSeasonAdminHandler creates a new SeasonAdminHandler.
func NewSeasonAdminHandler(ladder Ladder) *SeasonAdminHandler {
	return &SeasonAdminHandler{ladder: ladder}
}

type startSeasonRequest struct {
	Title            string `json:"title"`
	StartDate        string `json:"start_date"`
	EndDate          string `json:"end_date"`
	TournamentDate   string `json:"tournament_date"`
	KeepRosterActive bool   `json:"keep_roster_active"`
}

func (req startSeasonRequest) params() (domain.StartSeasonParams, error) {
	p := domain.StartSeasonParams{Title: req.Title, KeepRosterActive: req.KeepRosterActive}
	start, err := parseOptionalDate(req.StartDate)
	if err != nil {
		return p, err
	}
	end, err := parseOptionalDate(req.EndDate)
	if err != nil {
		return p, err
	}
	if start != nil {
		p.StartDate = *start
	}
	if end != nil {
		p.EndDate = *end
	}
	p.TournamentDate, err = parseOptionalDate(req.TournamentDate)
	return p, err
}

// List handles GET /admin/seasons.
func (h *SeasonAdminHandler) List(w http.ResponseWriter, r *http.Request) {
	seasons, err := h.ladder.Seasons(r.Context())
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, seasons)
}

// Start handles POST /admin/seasons.
func (h *SeasonAdminHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req startSeasonRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.RespondBadBody(w)
		return
	}
	params, err := req.params()
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	season, err := h.ladder.StartSeason(r.Context(), params)
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	handler.RespondJSON(w, http.StatusCreated, season)
}

// Kick handles POST /admin/seasons/kick.
func (h *SeasonAdminHandler) Kick(w http.ResponseWriter, r *http.Request) {
	var params domain.KickParams
	if err := handler.DecodeJSON(r, &params); err != nil {
		handler.RespondBadBody(w)
		return
	}
	res, err := h.ladder.KickSeason(r.Context(), params)
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, res)
}

// tournamentRequest is a partial update: absent fields keep their current
// value and an empty start_date clears it.
type tournamentRequest struct {
	StartDate    *string `json:"start_date"`
	MinMatches   *int    `json:"min_matches"`
	MinOpponents *int    `json:"min_opponents"`
}

func (req tournamentRequest) merge(cur domain.TournamentParams) (domain.TournamentParams, error) {
	if req.StartDate != nil {
		start, err := parseOptionalDate(*req.StartDate)
		if err != nil {
			return cur, err
		}
		cur.StartDate = start
	}
	if req.MinMatches != nil {
		cur.MinMatches = *req.MinMatches
	}
	if req.MinOpponents != nil {
		cur.MinOpponents = *req.MinOpponents
	}
	return cur, nil
}

// GetTournament handles GET /admin/tournament.
func (h *SeasonAdminHandler) GetTournament(w http.ResponseWriter, r *http.Request) {
	params, err := h.ladder.TournamentParameters(r.Context())
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, params)
}

// SetTournament handles PUT /admin/tournament.
func (h *SeasonAdminHandler) SetTournament(w http.ResponseWriter, r *http.Request) {
	var req tournamentRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.RespondBadBody(w)
		return
	}
	cur, err := h.ladder.TournamentParameters(r.Context())
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	params, err := req.merge(*cur)
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	season, err := h.ladder.SetTournamentParameters(r.Context(), params)
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, season)
}

// Audit handles GET /admin/audit.
func (h *SeasonAdminHandler) Audit(w http.ResponseWriter, r *http.Request) {
	res, err := h.ladder.Audit(r.Context())
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	status := http.StatusOK
	if !res.AllPassed {
		status = http.StatusConflict
	}
	handler.RespondJSON(w, status, res)
}
