package domain

import (
	"time"
)

// Tournament qualification overrides.
const (
	OverrideAuto       = 0
	OverrideQualify    = 1
	OverrideDisqualify = -1
)

// TierRecord holds the win/loss counters for one ranked tier.
type TierRecord struct {
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
}

// Player represents a players row. Contact fields are opaque to the ledger.
type Player struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Email        string `json:"email,omitempty"`
	CellPhone    string `json:"cell_phone,omitempty"`
	HomePhone    string `json:"home_phone,omitempty"`
	WorkPhone    string `json:"work_phone,omitempty"`
	Company      string `json:"company,omitempty"`
	Location     string `json:"location,omitempty"`
	WorkLocation string `json:"work_location,omitempty"`
	Note         string `json:"note,omitempty"`

	Tier          Tier       `json:"tier"`
	Active        bool       `json:"active"`
	Points        int        `json:"points"`
	InitialPoints int        `json:"initial_points"`
	Wins          int        `json:"wins"`
	Losses        int        `json:"losses"`
	A             TierRecord `json:"a"`
	B             TierRecord `json:"b"`
	C             TierRecord `json:"c"`

	APromotion *time.Time `json:"a_promotion,omitempty"`
	BPromotion *time.Time `json:"b_promotion,omitempty"`
	CPromotion *time.Time `json:"c_promotion,omitempty"`

	TournamentOverride  int  `json:"tournament_qualified_override"`
	TournamentQualified bool `json:"tournament_qualified"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PromotionDate returns the recorded entry date for a ranked tier.
func (p *Player) PromotionDate(t Tier) *time.Time {
	switch t {
	case TierA:
		return p.APromotion
	case TierB:
		return p.BPromotion
	case TierC:
		return p.CPromotion
	}
	return nil
}

// SetPromotionDate records the entry date for a ranked tier.
func (p *Player) SetPromotionDate(t Tier, d *time.Time) {
	switch t {
	case TierA:
		p.APromotion = d
	case TierB:
		p.BPromotion = d
	case TierC:
		p.CPromotion = d
	}
}

// Record returns the counters for a ranked tier, or nil.
func (p *Player) Record(t Tier) *TierRecord {
	switch t {
	case TierA:
		return &p.A
	case TierB:
		return &p.B
	case TierC:
		return &p.C
	}
	return nil
}

// FullName joins first and last name.
func (p *Player) FullName() string {
	if p.FirstName == "" {
		return p.LastName
	}
	return p.FirstName + " " + p.LastName
}

// PlayerInput holds the fields for creating a player.
type PlayerInput struct {
	Username           string `json:"username"`
	Password           string `json:"password"`
	FirstName          string `json:"first_name"`
	LastName           string `json:"last_name"`
	Email              string `json:"email"`
	CellPhone          string `json:"cell_phone"`
	HomePhone          string `json:"home_phone"`
	WorkPhone          string `json:"work_phone"`
	Company            string `json:"company"`
	Location           string `json:"location"`
	WorkLocation       string `json:"work_location"`
	Note               string `json:"note"`
	Tier               Tier   `json:"tier"`
	Active             bool   `json:"active"`
	InitialPoints      int    `json:"initial_points"`
	TournamentOverride int    `json:"tournament_qualified_override"`
}

// PlayerUpdate carries optional changes to an existing player. Nil fields are left untouched.
type PlayerUpdate struct {
	Username           *string    `json:"username,omitempty"`
	Password           *string    `json:"password,omitempty"`
	FirstName          *string    `json:"first_name,omitempty"`
	LastName           *string    `json:"last_name,omitempty"`
	Email              *string    `json:"email,omitempty"`
	CellPhone          *string    `json:"cell_phone,omitempty"`
	HomePhone          *string    `json:"home_phone,omitempty"`
	WorkPhone          *string    `json:"work_phone,omitempty"`
	Company            *string    `json:"company,omitempty"`
	Location           *string    `json:"location,omitempty"`
	WorkLocation       *string    `json:"work_location,omitempty"`
	Note               *string    `json:"note,omitempty"`
	Tier               *Tier      `json:"tier,omitempty"`
	Active             *bool      `json:"active,omitempty"`
	InitialPoints      *int       `json:"initial_points,omitempty"`
	TournamentOverride *int       `json:"tournament_qualified_override,omitempty"`
	APromotion         *time.Time `json:"a_promotion,omitempty"`
	BPromotion         *time.Time `json:"b_promotion,omitempty"`
	CPromotion         *time.Time `json:"c_promotion,omitempty"`
}

// FilterOp combines filter terms.
type FilterOp string

const (
	FilterAnd FilterOp = "and"
	FilterOr  FilterOp = "or"
)

// PlayerFilter selects players. Nil fields do not participate; string fields match case-insensitively.
type PlayerFilter struct {
	ID        *int64  `json:"id,omitempty"`
	Username  *string `json:"username,omitempty"`
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Email     *string `json:"email,omitempty"`
	Company   *string `json:"company,omitempty"`
	Tier      *Tier   `json:"tier,omitempty"`
	Active    *bool   `json:"active,omitempty"`
}
