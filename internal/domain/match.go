package domain

import "time"

// Match represents a matches row. Points are the amounts actually credited.
// Only the status flags change once a match is credited.
type Match struct {
	ID               int64     `json:"id"`
	SeasonID         int64     `json:"season_id"`
	ChallengerID     int64     `json:"challenger_id"`
	OpponentID       int64     `json:"opponent_id"`
	WinnerID         int64     `json:"winner_id"`
	ChallengerGames  []int     `json:"challenger_games"`
	OpponentGames    []int     `json:"opponent_games"`
	ChallengerPoints int       `json:"challenger_points"`
	OpponentPoints   int       `json:"opponent_points"`
	Date             time.Time `json:"date"`
	Tier             Tier      `json:"tier"`
	Retired          bool      `json:"retired"`
	Forfeited        bool      `json:"forfeited"`
	Tournament       bool      `json:"tournament"`
	Pending          bool      `json:"pending"`
	Disputed         bool      `json:"disputed"`
	WinnerPromoted   bool      `json:"winner_promoted"`
	PointsReset      bool      `json:"points_reset"`
	CreatedAt        time.Time `json:"created_at"`

	// Populated by lookups joined with players.
	ChallengerName string `json:"challenger_name,omitempty"`
	OpponentName   string `json:"opponent_name,omitempty"`
}

// LoserID returns the participant that did not win.
func (m *Match) LoserID() int64 {
	if m.WinnerID == m.ChallengerID {
		return m.OpponentID
	}
	return m.ChallengerID
}

// Input rebuilds the report that produced m.
func (m *Match) Input() MatchInput {
	return MatchInput{
		ChallengerID:    m.ChallengerID,
		OpponentID:      m.OpponentID,
		ChallengerGames: m.ChallengerGames,
		OpponentGames:   m.OpponentGames,
		Date:            m.Date,
		Retired:         m.Retired,
		Forfeited:       m.Forfeited,
		Tournament:      m.Tournament,
	}
}

// MatchInput is a reported match result. A zero Date means today.
type MatchInput struct {
	ChallengerID    int64     `json:"challenger_id"`
	OpponentID      int64     `json:"opponent_id"`
	ChallengerGames []int     `json:"challenger_games"`
	OpponentGames   []int     `json:"opponent_games"`
	Date            time.Time `json:"date"`
	Retired         bool      `json:"retired"`
	Forfeited       bool      `json:"forfeited"`
	Tournament      bool      `json:"tournament"`
}

// ScoreResult is the outcome of validating a score.
type ScoreResult struct {
	WinnerID         int64 `json:"winner_id"`
	ChallengerPoints int   `json:"challenger_points"`
	OpponentPoints   int   `json:"opponent_points"`
}

// Promotion records a tier change applied while crediting a match.
type Promotion struct {
	PlayerID int64     `json:"player_id"`
	From     Tier      `json:"from"`
	To       Tier      `json:"to"`
	Date     time.Time `json:"date"`
}

// CreditResult is returned from crediting, submitting or approving a match.
type CreditResult struct {
	Match      *Match        `json:"match"`
	WinnerName string        `json:"winner_name"`
	LoserName  string        `json:"loser_name"`
	Promotion  *Promotion    `json:"promotion,omitempty"`
	Events     []OutboxDraft `json:"-"`
}

// MatchFilter selects matches. All set fields must match.
type MatchFilter struct {
	ID           *int64     `json:"id,omitempty"`
	SeasonID     *int64     `json:"season_id,omitempty"`
	Tier         *Tier      `json:"tier,omitempty"`
	PlayerID     *int64     `json:"player_id,omitempty"`
	ChallengerID *int64     `json:"challenger_id,omitempty"`
	OpponentID   *int64     `json:"opponent_id,omitempty"`
	WinnerID     *int64     `json:"winner_id,omitempty"`
	Date         *time.Time `json:"date,omitempty"`
	Since        *time.Time `json:"since,omitempty"`
	Pending      *bool      `json:"pending,omitempty"`
	Disputed     *bool      `json:"disputed,omitempty"`
	Limit        int        `json:"limit,omitempty"`
}

// MatchCounts are the per-season tallies that drive rematch throttling.
// Disputed matches are never counted.
type MatchCounts struct {
	Pair       int
	Challenger int
	Opponent   int
}
