package admin

import (
	"net/http"
	"time"

	"github.com/atttc/ladder/internal/domain"
	"github.com/atttc/ladder/internal/handler"
)

// PlayerAdminHandler handles admin player management.
type PlayerAdminHandler struct {
	ladder Ladder
}

// NewPlayerAdminHandler creates a new PlayerAdminHandler.
func NewPlayerAdminHandler(ladder Ladder) *PlayerAdminHandler {
	return &PlayerAdminHandler{ladder: ladder}
}

// List handles GET /admin/players with optional filters:
// id, username, first_name, last_name, email, company, tier, active, op (and|or).
func (h *PlayerAdminHandler) List(w http.ResponseWriter, r *http.Request) {
	q := handler.NewQuery(r)
	filter := domain.PlayerFilter{
		ID:        q.Int64("id"),
		Username:  q.String("username"),
		FirstName: q.String("first_name"),
		LastName:  q.String("last_name"),
		Email:     q.String("email"),
		Company:   q.String("company"),
		Tier:      q.Tier("tier"),
		Active:    q.Bool("active"),
	}
	if err := q.Err(); err != nil {
		handler.RespondError(w, err)
		return
	}
	op := domain.FilterAnd
	if s := q.String("op"); s != nil {
		op = domain.FilterOp(*s)
	}
	players, err := h.ladder.LookupPlayers(r.Context(), filter, op)
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, players)
}

// Get handles GET /admin/players/{id}.
func (h *PlayerAdminHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathID(r, "id")
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	p, err := h.ladder.GetPlayer(r.Context(), id)
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, p)
}

// Create handles POST /admin/players.
func (h *PlayerAdminHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in domain.PlayerInput
	if err := handler.DecodeJSON(r, &in); err != nil {
		handler.RespondBadBody(w)
		return
	}
	p, err := h.ladder.AddPlayer(r.Context(), in)
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	handler.RespondJSON(w, http.StatusCreated, p)
}

// playerUpdateRequest takes promotion dates as YYYY-MM-DD strings.
type playerUpdateRequest struct {
	domain.PlayerUpdate
	APromotion *string `json:"a_promotion,omitempty"`
	BPromotion *string `json:"b_promotion,omitempty"`
	CPromotion *string `json:"c_promotion,omitempty"`
}

func (req *playerUpdateRequest) update() (domain.PlayerUpdate, error) {
	upd := req.PlayerUpdate
	for _, f := range []struct {
		src *string
		dst **time.Time
	}{
		{req.APromotion, &upd.APromotion},
		{req.BPromotion, &upd.BPromotion},
		{req.CPromotion, &upd.CPromotion},
	} {
		if f.src == nil {
			continue
		}
		d, err := parseOptionalDate(*f.src)
		if err != nil {
			return upd, err
		}
		*f.dst = d
	}
	return upd, nil
}

// Update handles PATCH /admin/players/{id}.
func (h *PlayerAdminHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathID(r, "id")
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	var req playerUpdateRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.RespondBadBody(w)
		return
	}
	upd, err := req.update()
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	p, err := h.ladder.UpdatePlayer(r.Context(), id, upd)
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, p)
}

// Delete handles DELETE /admin/players/{id}.
func (h *PlayerAdminHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathID(r, "id")
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	if err := h.ladder.DeletePlayer(r.Context(), id); err != nil {
		handler.RespondError(w, err)
		return
	}
	handler.RespondJSON(w, http.StatusNoContent, nil)
}

// Tier handles GET /admin/players/{id}/tier?date=YYYY-MM-DD. The date defaults to today.
func (h *PlayerAdminHandler) Tier(w http.ResponseWriter, r *http.Request) {
	id, err := handler.PathID(r, "id")
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	q := handler.NewQuery(r)
	date := q.Date("date")
	if err := q.Err(); err != nil {
		handler.RespondError(w, err)
		return
	}
	var on time.Time
	if date != nil {
		on = *date
	}
	tier, err := h.ladder.TierOnDate(r.Context(), id, on)
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	resp := map[string]interface{}{"player_id": id, "tier": tier}
	if date != nil {
		resp["date"] = domain.FormatDate(*date)
	}
	handler.RespondJSON(w, http.StatusOK, resp)
}
