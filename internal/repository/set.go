package repository

// Set bundles every pgx-backed repository.
type Set struct {
	Players  PlayerRepository
	Matches  MatchRepository
	Seasons  SeasonRepository
	Archive  ArchiveRepository
	Accounts AccountRepository
	Tokens   TokenRepository
	Outbox   OutboxRepository
}

// NewSet returns the Postgres implementations of every repository.
func NewSet() *Set {
	return &Set{
		Players:  NewPlayerRepository(),
		Matches:  NewMatchRepository(),
		Seasons:  NewSeasonRepository(),
		Archive:  NewArchiveRepository(),
		Accounts: NewAccountRepository(),
		Tokens:   NewTokenRepository(),
		Outbox:   NewOutboxRepository(),
	}
}
