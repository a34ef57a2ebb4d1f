package guard

import (
	"context"
	"time"

	"github.com/atttc/ladder/internal/domain"
	"github.com/atttc/ladder/internal/repository"
)

const (
	MaxAttempts   = 5
	LockoutWindow = 15 * time.Minute
)

// RecordAttempt inserts a login attempt row.
func RecordAttempt(ctx context.Context, db repository.DBTX, username string, role domain.Role, ip string, success bool) {
	_, _ = db.Exec(ctx, `
		INSERT INTO login_attempts (username, realm, ip_address, success)
		VALUES (lower($1), $2, $3, $4)`,
		username, string(role), ip, success)
}

// CheckLocked returns ErrAccountLocked if the account has >= MaxAttempts failed
// logins within the lockout window.
func CheckLocked(ctx context.Context, db repository.DBTX, username string, role domain.Role) error {
	var count int
	err := db.QueryRow(ctx, `
		SELECT COUNT(*) FROM login_attempts
		WHERE username = lower($1) AND realm = $2 AND success = false
		  AND created_at > $3`,
		username, string(role), time.Now().Add(-LockoutWindow)).Scan(&count)
	if err != nil {
		return nil // fail open on DB error
	}
	if count >= MaxAttempts {
		return domain.ErrAccountLocked("too many failed login attempts, try again later")
	}
	return nil
}
