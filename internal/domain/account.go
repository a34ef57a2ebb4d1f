package domain

import "time"

// Role distinguishes the two credential stores.
type Role string

const (
	RolePlayer Role = "player"
	RoleAdmin  Role = "admin"
)

// Account is an administrator credential.
type Account struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Token types.
const (
	TokenReport = "report"
)

// Token is a time-bounded read-access credential for public report pages.
type Token struct {
	ID      int64      `json:"id"`
	Token   string     `json:"token"`
	Type    string     `json:"type"`
	Since   *time.Time `json:"since,omitempty"`
	Expires time.Time  `json:"expires"`
}

// Expired reports whether the token is no longer valid on now.
func (t *Token) Expired(now time.Time) bool {
	return Day(now).After(t.Expires)
}
