package ledger

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/atttc/ladder/internal/domain"
	"github.com/atttc/ladder/internal/repository"
	"github.com/jackc/pgx/v5"
)

// store is an in-memory stand-in for the ladder tables. Repositories ignore
// the DBTX they are handed, so tests pass a nil transaction.
type store struct {
	players map[int64]*domain.Player
	matches []*domain.Match
	seasons []*domain.Season
	archive []domain.ArchivedStanding
	outbox  []domain.OutboxDraft
	nextID  int64
}

func newStore() *store {
	return &store{players: map[int64]*domain.Player{}, nextID: 100}
}

func (s *store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *store) player(id int64) *domain.Player {
	return s.players[id]
}

func (s *store) activeSeason() *domain.Season {
	for _, season := range s.seasons {
		if season.Active {
			return season
		}
	}
	return nil
}

func (s *store) events(t domain.EventType) int {
	n := 0
	for _, evt := range s.outbox {
		if evt.EventType == t {
			n++
		}
	}
	return n
}

var (
	ctx   = context.Background()
	today = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
)

func date(s string) time.Time {
	d, err := domain.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// storeSnapshot captures everything a rejected operation must leave untouched.
type storeSnapshot struct {
	players map[int64]domain.Player
	matches int
	events  int
}

func snapshot(s *store) storeSnapshot {
	snap := storeSnapshot{players: map[int64]domain.Player{}, matches: len(s.matches), events: len(s.outbox)}
	for id, p := range s.players {
		snap.players[id] = *p
	}
	return snap
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func newTestEngine(t *testing.T) (*Engine, *store) {
	t.Helper()
	s := newStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	e := NewEngine(playerFake{s}, matchFake{s}, seasonFake{s}, archiveFake{s}, outboxFake{s}, logger).
		WithClock(func() time.Time { return today })
	return e, s
}

func (s *store) addSeason(title, start, end string) *domain.Season {
	season := &domain.Season{
		ID:                     s.id(),
		Title:                  title,
		TournamentMinMatches:   domain.DefaultTournamentMinMatches,
		TournamentMinOpponents: domain.DefaultTournamentMinOpponents,
		Active:                 true,
	}
	if start != "" {
		season.StartDate = domain.DatePtr(date(start))
		season.EndDate = domain.DatePtr(date(end))
		season.TournamentDate = domain.DatePtr(date(end))
	}
	for _, other := range s.seasons {
		other.Active = false
	}
	s.seasons = append(s.seasons, season)
	return season
}

func (s *store) addPlayer(last string, tier domain.Tier) *domain.Player {
	p := &domain.Player{ID: s.id(), FirstName: "Test", LastName: last, Tier: tier, Active: true}
	s.players[p.ID] = p
	return p
}

// --- players ---

type playerFake struct{ s *store }

func clonePlayer(p *domain.Player) *domain.Player {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

func (f playerFake) FindByID(_ context.Context, _ repository.DBTX, id int64) (*domain.Player, error) {
	return clonePlayer(f.s.players[id]), nil
}

func (f playerFake) FindByUsername(_ context.Context, _ repository.DBTX, username string) (*domain.Player, error) {
	for _, p := range f.s.players {
		if strings.EqualFold(p.Username, username) {
			return clonePlayer(p), nil
		}
	}
	return nil, nil
}

func (f playerFake) LockForUpdate(ctx context.Context, _ pgx.Tx, id int64) (*domain.Player, error) {
	return f.FindByID(ctx, nil, id)
}

func (f playerFake) List(_ context.Context, _ repository.DBTX, _ domain.PlayerFilter, _ domain.FilterOp) ([]domain.Player, error) {
	var out []domain.Player
	for _, p := range f.s.players {
		out = append(out, *p)
	}
	return out, nil
}

func (f playerFake) ListActive(_ context.Context, _ repository.DBTX, tier domain.Tier) ([]domain.Player, error) {
	var out []domain.Player
	for _, p := range f.s.players {
		if p.Active && (tier == "" || p.Tier == tier) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (f playerFake) Create(_ context.Context, _ repository.DBTX, p *domain.Player) error {
	p.ID = f.s.id()
	f.s.players[p.ID] = clonePlayer(p)
	return nil
}

func (f playerFake) Save(_ context.Context, _ repository.DBTX, p *domain.Player) error {
	if _, ok := f.s.players[p.ID]; !ok {
		return domain.ErrNotFound("player", "")
	}
	f.s.players[p.ID] = clonePlayer(p)
	return nil
}

func (f playerFake) Delete(_ context.Context, _ repository.DBTX, id int64) error {
	delete(f.s.players, id)
	return nil
}

func (f playerFake) ApplySeed(_ context.Context, _ repository.DBTX, id int64, initial, delta int) error {
	p := f.s.players[id]
	p.InitialPoints = initial
	p.Points += delta
	return nil
}

func (f playerFake) ResetSeason(_ context.Context, _ pgx.Tx, keepActive bool) (int64, error) {
	for _, p := range f.s.players {
		*p = domain.Player{
			ID: p.ID, Username: p.Username, FirstName: p.FirstName, LastName: p.LastName,
			Tier: p.Tier, Active: p.Active && keepActive,
		}
	}
	return int64(len(f.s.players)), nil
}

func (f playerFake) UsernameInUse(_ context.Context, _ repository.DBTX, username string, exceptPlayer, _ int64) (bool, error) {
	for _, p := range f.s.players {
		if p.ID != exceptPlayer && strings.EqualFold(p.Username, username) {
			return true, nil
		}
	}
	return false, nil
}

// --- matches ---

type matchFake struct{ s *store }

func (f matchFake) Insert(_ context.Context, _ repository.DBTX, m *domain.Match) error {
	m.ID = f.s.id()
	c := *m
	f.s.matches = append(f.s.matches, &c)
	return nil
}

func (f matchFake) find(id int64) *domain.Match {
	for _, m := range f.s.matches {
		if m.ID == id {
			return m
		}
	}
	return nil
}

func (f matchFake) FindByID(_ context.Context, _ repository.DBTX, id int64) (*domain.Match, error) {
	if m := f.find(id); m != nil {
		c := *m
		return &c, nil
	}
	return nil, nil
}

func (f matchFake) LockForUpdate(ctx context.Context, _ pgx.Tx, id int64) (*domain.Match, error) {
	return f.FindByID(ctx, nil, id)
}

func (f matchFake) List(_ context.Context, _ repository.DBTX, _ domain.MatchFilter) ([]domain.Match, error) {
	var out []domain.Match
	for _, m := range f.s.matches {
		out = append(out, *m)
	}
	return out, nil
}

func (f matchFake) SetStatus(_ context.Context, _ repository.DBTX, id int64, pending, disputed bool) error {
	m := f.find(id)
	m.Pending, m.Disputed = pending, disputed
	return nil
}

func (f matchFake) Approve(_ context.Context, _ repository.DBTX, m *domain.Match) error {
	stored := f.find(m.ID)
	stored.Pending = false
	stored.Tier = m.Tier
	stored.ChallengerPoints, stored.OpponentPoints = m.ChallengerPoints, m.OpponentPoints
	stored.WinnerPromoted = m.WinnerPromoted
	stored.PointsReset = m.PointsReset
	m.Pending = false
	return nil
}

func involves(m *domain.Match, id int64) bool {
	return m.ChallengerID == id || m.OpponentID == id
}

func (f matchFake) CountForLimits(_ context.Context, _ repository.DBTX, seasonID, challengerID, opponentID, excludeID int64) (domain.MatchCounts, error) {
	var c domain.MatchCounts
	for _, m := range f.s.matches {
		if m.SeasonID != seasonID || m.Disputed || m.ID == excludeID {
			continue
		}
		if involves(m, challengerID) && involves(m, opponentID) {
			c.Pair++
		}
		if involves(m, challengerID) {
			c.Challenger++
		}
		if involves(m, opponentID) {
			c.Opponent++
		}
	}
	return c, nil
}

func (f matchFake) Tallies(_ context.Context, _ repository.DBTX, seasonID int64) (map[int64]repository.PlayerTally, error) {
	opponents := map[int64]map[int64]bool{}
	out := map[int64]repository.PlayerTally{}
	for _, m := range f.s.matches {
		if m.SeasonID != seasonID || m.Pending || m.Disputed {
			continue
		}
		for _, side := range [][2]int64{{m.ChallengerID, m.OpponentID}, {m.OpponentID, m.ChallengerID}} {
			if opponents[side[0]] == nil {
				opponents[side[0]] = map[int64]bool{}
			}
			opponents[side[0]][side[1]] = true
			t := out[side[0]]
			t.Matches++
			t.Opponents = len(opponents[side[0]])
			out[side[0]] = t
		}
	}
	return out, nil
}

func (f matchFake) NonWinningSince(_ context.Context, _ repository.DBTX, playerID int64, since time.Time, tiers []domain.Tier, excludeID int64) ([]domain.ConflictingMatch, error) {
	var out []domain.ConflictingMatch
	for _, m := range f.s.matches {
		if !involves(m, playerID) || m.WinnerID == playerID || m.Disputed || m.ID == excludeID || m.Date.Before(since) {
			continue
		}
		for _, t := range tiers {
			if m.Tier == t {
				out = append(out, domain.ConflictingMatch{MatchID: m.ID, Date: m.Date, Tier: m.Tier})
			}
		}
	}
	return out, nil
}

func (f matchFake) HasHistory(_ context.Context, _ repository.DBTX, playerID int64) (bool, error) {
	for _, m := range f.s.matches {
		if involves(m, playerID) {
			return true, nil
		}
	}
	return false, nil
}

func (f matchFake) ListCredited(_ context.Context, _ repository.DBTX, seasonID int64) ([]domain.Match, error) {
	var out []domain.Match
	for _, m := range f.s.matches {
		if m.SeasonID == seasonID && !m.Pending && !m.Disputed {
			out = append(out, *m)
		}
	}
	return out, nil
}

// --- seasons ---

type seasonFake struct{ s *store }

func cloneSeason(s *domain.Season) *domain.Season {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

func (f seasonFake) GetActive(_ context.Context, _ repository.DBTX) (*domain.Season, error) {
	return cloneSeason(f.s.activeSeason()), nil
}

func (f seasonFake) ShareActive(ctx context.Context, _ pgx.Tx) (*domain.Season, error) {
	return f.GetActive(ctx, nil)
}

func (f seasonFake) LockActive(ctx context.Context, _ pgx.Tx) (*domain.Season, error) {
	return f.GetActive(ctx, nil)
}

func (f seasonFake) find(id int64) *domain.Season {
	for _, season := range f.s.seasons {
		if season.ID == id {
			return season
		}
	}
	return nil
}

func (f seasonFake) FindByID(_ context.Context, _ repository.DBTX, id int64) (*domain.Season, error) {
	return cloneSeason(f.find(id)), nil
}

func (f seasonFake) List(_ context.Context, _ repository.DBTX) ([]domain.Season, error) {
	var out []domain.Season
	for _, season := range f.s.seasons {
		out = append(out, *season)
	}
	return out, nil
}

func (f seasonFake) TitleExists(_ context.Context, _ repository.DBTX, title string) (bool, error) {
	for _, season := range f.s.seasons {
		if season.Title == title {
			return true, nil
		}
	}
	return false, nil
}

func (f seasonFake) Insert(_ context.Context, _ repository.DBTX, season *domain.Season) error {
	season.ID = f.s.id()
	f.s.seasons = append(f.s.seasons, cloneSeason(season))
	return nil
}

func (f seasonFake) Deactivate(_ context.Context, _ repository.DBTX, id int64) error {
	f.find(id).Active = false
	return nil
}

func (f seasonFake) SetKicked(_ context.Context, _ repository.DBTX, id int64, kicked bool) error {
	f.find(id).Kicked = kicked
	return nil
}

func (f seasonFake) SetTournament(_ context.Context, _ repository.DBTX, id int64, params domain.TournamentParams) error {
	season := f.find(id)
	season.TournamentDate = params.StartDate
	season.TournamentMinMatches = params.MinMatches
	season.TournamentMinOpponents = params.MinOpponents
	return nil
}

// --- archive ---

type archiveFake struct{ s *store }

func (f archiveFake) ArchiveActive(_ context.Context, _ pgx.Tx, seasonID int64) (int64, error) {
	var n int64
	for _, p := range f.s.players {
		if !p.Active {
			continue
		}
		f.s.archive = append(f.s.archive, domain.ArchivedStanding{
			SeasonID: seasonID, PlayerID: p.ID, LastName: p.LastName, Tier: p.Tier, Active: true,
			Points: p.Points, InitialPoints: p.InitialPoints, Wins: p.Wins, Losses: p.Losses,
			A: p.A, B: p.B, C: p.C, TournamentOverride: p.TournamentOverride,
		})
		n++
	}
	return n, nil
}

func (f archiveFake) ListBySeason(_ context.Context, _ repository.DBTX, seasonID int64, tier domain.Tier) ([]domain.ArchivedStanding, error) {
	var out []domain.ArchivedStanding
	for _, a := range f.s.archive {
		if a.SeasonID == seasonID && (tier == "" || a.Tier == tier) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Points > out[j].Points })
	return out, nil
}

// --- outbox ---

type outboxFake struct{ s *store }

func (f outboxFake) Insert(_ context.Context, _ repository.DBTX, draft domain.OutboxDraft) error {
	f.s.outbox = append(f.s.outbox, draft)
	return nil
}

func (f outboxFake) FetchUnpublished(_ context.Context, _ repository.DBTX, limit int) ([]domain.OutboxDraft, error) {
	if len(f.s.outbox) > limit {
		return f.s.outbox[:limit], nil
	}
	return f.s.outbox, nil
}

func (f outboxFake) MarkPublished(_ context.Context, _ repository.DBTX, _ []int64) error {
	return nil
}
