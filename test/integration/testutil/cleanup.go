//go:build integration

package testutil

import (
	"context"
	"time"
)

// CleanAll truncates every ladder table and resets identities.
func (env *TestEnv) CleanAll() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := env.Pool.Exec(ctx, `
		TRUNCATE TABLE matches, player_archive, players, seasons, admins, tokens,
			event_outbox, login_attempts
		RESTART IDENTITY CASCADE`)
	if err != nil {
		env.t.Fatalf("CleanAll: %v", err)
	}
}
