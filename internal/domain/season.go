package domain

import "time"

// Tournament qualification defaults.
const (
	DefaultTournamentMinMatches   = 9
	DefaultTournamentMinOpponents = 5
)

// Season represents a seasons row. Exactly one season is active.
type Season struct {
	ID                     int64      `json:"id"`
	Title                  string     `json:"title"`
	StartDate              *time.Time `json:"start_date,omitempty"`
	EndDate                *time.Time `json:"end_date,omitempty"`
	TournamentDate         *time.Time `json:"tournament_date,omitempty"`
	TournamentMinMatches   int        `json:"tournament_min_matches"`
	TournamentMinOpponents int        `json:"tournament_min_opponents"`
	Active                 bool       `json:"active"`
	PrevID                 *int64     `json:"prev_id,omitempty"`
	Kicked                 bool       `json:"kicked"`
	CreatedAt              time.Time  `json:"created_at"`
}

// Contains reports whether d lies in the season's date window. Open bounds always match.
func (s *Season) Contains(d time.Time) bool {
	d = Day(d)
	if s.StartDate != nil && d.Before(*s.StartDate) {
		return false
	}
	if s.EndDate != nil && d.After(*s.EndDate) {
		return false
	}
	return true
}

// InTournament reports whether d falls on or after the tournament date.
func (s *Season) InTournament(d time.Time) bool {
	return s.TournamentDate != nil && !Day(d).Before(*s.TournamentDate)
}

// ArchivedStanding is a player's final standing in a past season.
type ArchivedStanding struct {
	SeasonID           int64      `json:"season_id"`
	PlayerID           int64      `json:"player_id"`
	FirstName          string     `json:"first_name,omitempty"`
	LastName           string     `json:"last_name,omitempty"`
	Tier               Tier       `json:"tier"`
	Active             bool       `json:"active"`
	Points             int        `json:"points"`
	InitialPoints      int        `json:"initial_points"`
	Wins               int        `json:"wins"`
	Losses             int        `json:"losses"`
	A                  TierRecord `json:"a"`
	B                  TierRecord `json:"b"`
	C                  TierRecord `json:"c"`
	TournamentOverride int        `json:"tournament_qualified_override"`
}

// StartSeasonParams holds the inputs for starting a season.
// A nil TournamentDate defaults to EndDate.
type StartSeasonParams struct {
	Title            string     `json:"title"`
	StartDate        time.Time  `json:"start_date"`
	EndDate          time.Time  `json:"end_date"`
	TournamentDate   *time.Time `json:"tournament_date,omitempty"`
	KeepRosterActive bool       `json:"keep_roster_active"`
}

// KickMode selects whether seed points are written or cleared.
type KickMode string

const (
	KickSet   KickMode = "set"
	KickClear KickMode = "clear"
)

// KickParams holds the inputs for seeding a season from its predecessor.
type KickParams struct {
	PriorSeasonID int64    `json:"prior_season_id"`
	Tiers         []Tier   `json:"tiers"`
	Mode          KickMode `json:"mode"`
}

// KickTierResult reports the seeding computed for one tier.
type KickTierResult struct {
	Tier       Tier               `json:"tier"`
	Archived   []ArchivedStanding `json:"archived"`
	Current    []Player           `json:"current"`
	SeedPoints map[int64]int      `json:"seed_points"`
}

// KickResult is returned from a season kick. Applied is false when the kicked
// guard turned a repeated set into a no-op.
type KickResult struct {
	SeasonID int64            `json:"season_id"`
	Mode     KickMode         `json:"mode"`
	Applied  bool             `json:"applied"`
	Tiers    []KickTierResult `json:"tiers"`
}

// TournamentParams are the active season's tournament settings.
type TournamentParams struct {
	StartDate    *time.Time `json:"start_date,omitempty"`
	MinMatches   int        `json:"min_matches"`
	MinOpponents int        `json:"min_opponents"`
}
