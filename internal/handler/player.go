package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/atttc/ladder/internal/auth"
	"github.com/atttc/ladder/internal/domain"
)

// Ladder is the part of the ladder service the player and report routes use.
type Ladder interface {
	GetPlayer(ctx context.Context, id int64) (*domain.Player, error)
	SubmitMatch(ctx context.Context, submitterID int64, in domain.MatchInput) (*domain.CreditResult, error)
	LookupMatches(ctx context.Context, filter domain.MatchFilter) ([]domain.Match, error)
	Standings(ctx context.Context, tier domain.Tier) ([]domain.Player, error)
	RecentMatches(ctx context.Context, tier domain.Tier, since *time.Time) ([]domain.Match, error)
}

// MatchRequest is the JSON body of a match report. Date is YYYY-MM-DD and
// defaults to today.
type MatchRequest struct {
	ChallengerID    int64  `json:"challenger_id"`
	OpponentID      int64  `json:"opponent_id"`
	ChallengerGames []int  `json:"challenger_games"`
	OpponentGames   []int  `json:"opponent_games"`
	Date            string `json:"date"`
	Retired         bool   `json:"retired"`
	Forfeited       bool   `json:"forfeited"`
	Tournament      bool   `json:"tournament"`
}

// Input converts the request into a domain.MatchInput.
func (m MatchRequest) Input() (domain.MatchInput, error) {
	in := domain.MatchInput{
		ChallengerID:    m.ChallengerID,
		OpponentID:      m.OpponentID,
		ChallengerGames: m.ChallengerGames,
		OpponentGames:   m.OpponentGames,
		Retired:         m.Retired,
		Forfeited:       m.Forfeited,
		Tournament:      m.Tournament,
	}
	if m.Date != "" {
		d, err := domain.ParseDate(m.Date)
		if err != nil {
			return in, domain.ErrValidation(err.Error())
		}
		in.Date = d
	}
	return in, nil
}

// DecodeMatch decodes a MatchRequest body.
func DecodeMatch(r *http.Request) (domain.MatchInput, error) {
	var req MatchRequest
	if err := DecodeJSON(r, &req); err != nil {
		return domain.MatchInput{}, domain.ErrValidation("invalid request body")
	}
	return req.Input()
}

// Standing is the public view of a player on a ladder page. Contact details are left out.
type Standing struct {
	PlayerID            int64       `json:"player_id"`
	FirstName           string      `json:"first_name"`
	LastName            string      `json:"last_name"`
	Tier                domain.Tier `json:"tier"`
	Points              int         `json:"points"`
	Wins                int         `json:"wins"`
	Losses              int         `json:"losses"`
	TournamentQualified bool        `json:"tournament_qualified"`
}

// Standings converts players into their public view.
func Standings(players []domain.Player) []Standing {
	out := make([]Standing, 0, len(players))
	for _, p := range players {
		out = append(out, Standing{
			PlayerID:            p.ID,
			FirstName:           p.FirstName,
			LastName:            p.LastName,
			Tier:                p.Tier,
			Points:              p.Points,
			Wins:                p.Wins,
			Losses:              p.Losses,
			TournamentQualified: p.TournamentQualified,
		})
	}
	return out
}

// PlayerHandler handles the player-realm routes.
type PlayerHandler struct {
	ladder Ladder
}

// NewPlayerHandler creates a new PlayerHandler.
func NewPlayerHandler(ladder Ladder) *PlayerHandler {
	return &PlayerHandler{ladder: ladder}
}

// GetMe handles GET /players/me.
func (h *PlayerHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	sub := auth.SubjectFromContext(r.Context())
	if sub == 0 {
		RespondError(w, domain.ErrUnauthorized("no subject in context"))
		return
	}
	player, err := h.ladder.GetPlayer(r.Context(), sub)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, player)
}

// SubmitMatch handles POST /matches. The match is stored pending admin approval.
func (h *PlayerHandler) SubmitMatch(w http.ResponseWriter, r *http.Request) {
	in, err := DecodeMatch(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	res, err := h.ladder.SubmitMatch(r.Context(), auth.SubjectFromContext(r.Context()), in)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusCreated, res)
}

// MyMatches handles GET /matches?season_id=&pending=.
func (h *PlayerHandler) MyMatches(w http.ResponseWriter, r *http.Request) {
	sub := auth.SubjectFromContext(r.Context())
	q := NewQuery(r)
	filter := domain.MatchFilter{
		PlayerID: &sub,
		SeasonID: q.Int64("season_id"),
		Pending:  q.Bool("pending"),
		Limit:    q.Int("limit"),
	}
	if err := q.Err(); err != nil {
		RespondError(w, err)
		return
	}
	matches, err := h.ladder.LookupMatches(r.Context(), filter)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, matches)
}

// Ladder handles GET /ladder/{tier}.
func (h *PlayerHandler) Ladder(w http.ResponseWriter, r *http.Request) {
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
