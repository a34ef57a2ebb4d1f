package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/atttc/ladder/internal/auth"
	"github.com/atttc/ladder/internal/domain"
	"github.com/atttc/ladder/internal/guard"
	"github.com/atttc/ladder/internal/infra"
	"github.com/atttc/ladder/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/crypto/bcrypt"
)

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- Fakes ---

type fakeTx struct {
	pgx.Tx
	db *fakeDB
}

func (t *fakeTx) Commit(context.Context) error {
	t.db.commits++
	return nil
}

func (t *fakeTx) Rollback(context.Context) error { return nil }

type noRow struct{}

func (noRow) Scan(...interface{}) error { return pgx.ErrNoRows }

type fakeDB struct {
	begins  int
	commits int
	execs   int
}

func (d *fakeDB) Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error) {
	d.execs++
	return pgconn.CommandTag{}, nil
}

func (d *fakeDB) Query(context.Context, string, ...interface{}) (pgx.Rows, error) {
	return nil, errors.New("query not supported")
}

func (d *fakeDB) QueryRow(context.Context, string, ...interface{}) pgx.Row { return noRow{} }

func (d *fakeDB) BeginTx(context.Context, pgx.TxOptions) (pgx.Tx, error) {
	d.begins++
	return &fakeTx{db: d}, nil
}

type fakePlayers struct {
	repository.PlayerRepository
	byName map[string]*domain.Player
}

func (f *fakePlayers) FindByUsername(_ context.Context, _ repository.DBTX, username string) (*domain.Player, error) {
	return f.byName[strings.ToLower(username)], nil
}

func (f *fakePlayers) UsernameInUse(_ context.Context, _ repository.DBTX, username string, exceptPlayer, _ int64) (bool, error) {
	p, ok := f.byName[strings.ToLower(username)]
	return ok && p.ID != exceptPlayer, nil
}

type fakeAccounts struct {
	repository.AccountRepository
	accounts []*domain.Account
}

func (f *fakeAccounts) FindByUsername(_ context.Context, _ repository.DBTX, username string) (*domain.Account, error) {
	for _, a := range f.accounts {
		if strings.EqualFold(a.Username, username) {
			return a, nil
		}
	}
	return nil, nil
}

func (f *fakeAccounts) Create(_ context.Context, _ repository.DBTX, a *domain.Account) error {
	a.ID = int64(len(f.accounts) + 1)
	f.accounts = append(f.accounts, a)
	return nil
}

func (f *fakeAccounts) Count(context.Context, repository.DBTX) (int, error) {
	return len(f.accounts), nil
}

type fakeTokens struct {
	repository.TokenRepository
	tokens map[string]*domain.Token
}

func (f *fakeTokens) Insert(_ context.Context, _ repository.DBTX, t *domain.Token) error {
	t.ID = int64(len(f.tokens) + 1)
	f.tokens[t.Token] = t
	return nil
}

func (f *fakeTokens) Find(_ context.Context, _ repository.DBTX, token, tokenType string) (*domain.Token, error) {
	t, ok := f.tokens[token]
	if !ok || t.Type != tokenType {
		return nil, nil
	}
	return t, nil
}

type fixture struct {
	db       *fakeDB
	metrics  *infra.LadderMetrics
	players  *fakePlayers
	accounts *fakeAccounts
	tokens   *fakeTokens
	svc      *AccountService
	jwt      *auth.JWTManager
}

func newFixture(t *testing.T, loginsPerMinute int) *fixture {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("baseline1"), bcrypt.MinCost)
	require.NoError(t, err)

	f := &fixture{
		db:      &fakeDB{},
		metrics: infra.NewLadderMetrics(prometheus.NewRegistry()),
		players: &fakePlayers{byName: map[string]*domain.Player{
			"borg": {ID: 7, Username: "borg", PasswordHash: string(hash), LastName: "Borg"},
		}},
		accounts: &fakeAccounts{},
		tokens:   &fakeTokens{tokens: map[string]*domain.Token{}},
		jwt:      auth.NewJWTManager("test-secret-that-is-long-enough!!", time.Hour, time.Hour),
	}
	repos := &repository.Set{Players: f.players, Accounts: f.accounts, Tokens: f.tokens}
	f.svc = NewAccountService(f.db, repos, f.jwt, guard.NewRateLimiter(loginsPerMinute),
		noop.NewTracerProvider().Tracer("test"), f.metrics, quietLogger()).
		WithClock(func() time.Time { return testNow })
	return f
}

func newRunner(db DB, attempts int) (*txRunner, *infra.LadderMetrics) {
	m := infra.NewLadderMetrics(prometheus.NewRegistry())
	return &txRunner{db: db, attempts: attempts, metrics: m, logger: quietLogger()}, m
}

// --- Transaction Tests ---

func TestRetryable(t *testing.T) {
	assert.True(t, retryable(&pgconn.PgError{Code: "40001"}))
	assert.True(t, retryable(&pgconn.PgError{Code: "40P01"}))
	assert.False(t, retryable(&pgconn.PgError{Code: "23505"}))
	assert.False(t, retryable(errors.New("boom")))
	assert.False(t, retryable(domain.ErrConflict("dup")))
}

func TestInTx_RetriesSerializationFailures(t *testing.T) {
	db := &fakeDB{}
	r, m := newRunner(db, 3)

	calls := 0
	out, err := inTx(context.Background(), r, "credit_match", func(ctx context.Context, tx pgx.Tx) (int, error) {
		calls++
		if calls < 3 {
			return 0, &pgconn.PgError{Code: "40001"}
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, out)
	assert.Equal(t, 3, db.begins)
	assert.Equal(t, 1, db.commits)
	assert.Equal(t, float64(2), testutil.ToFloat64(m.TxRetries.WithLabelValues("credit_match")))
}

func TestInTx_GivesUpAfterAttempts(t *testing.T) {
	db := &fakeDB{}
	r, _ := newRunner(db, 3)

	_, err := inTx(context.Background(), r, "kick_season", func(ctx context.Context, tx pgx.Tx) (struct{}, error) {
		return struct{}{}, &pgconn.PgError{Code: "40P01"}
	})
	require.Error(t, err)
	assert.True(t, domain.HasCode(err, domain.CodeInternal))
	assert.Equal(t, 3, db.begins)
	assert.Equal(t, 0, db.commits)
}

func TestInTx_RejectionIsNotRetried(t *testing.T) {
	db := &fakeDB{}
	r, _ := newRunner(db, 3)

	want := domain.ErrRuleViolation("nope")
	_, err := inTx(context.Background(), r, "credit_match", func(ctx context.Context, tx pgx.Tx) (int, error) {
		return 0, want
	})
	assert.ErrorIs(t, err, want)
	assert.Equal(t, 1, db.begins)
	assert.Equal(t, 0, db.commits)
}

// --- Telemetry Tests ---

func TestObserve_HidesStoreErrors(t *testing.T) {
	m := infra.NewLadderMetrics(prometheus.NewRegistry())
	tel := &telemetry{tracer: noop.NewTracerProvider().Tracer("test"), metrics: m, logger: quietLogger()}

	_, err := observe(context.Background(), tel, "standings", func(ctx context.Context) (int, error) {
		return 0, errors.New("connection reset by peer")
	})
	require.Error(t, err)
	assert.True(t, domain.HasCode(err, domain.CodeInternal))
	assert.Equal(t, "standings failed", err.(*domain.AppError).Message)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Operations.WithLabelValues("standings", domain.CodeInternal)))
}

func TestObserve_PassesRejections(t *testing.T) {
	m := infra.NewLadderMetrics(prometheus.NewRegistry())
	tel := &telemetry{tracer: noop.NewTracerProvider().Tracer("test"), metrics: m, logger: quietLogger()}

	_, err := observe(context.Background(), tel, "credit_match", func(ctx context.Context) (int, error) {
		return 0, domain.ErrValidation("must play at least two sets")
	})
	assert.True(t, domain.HasCode(err, domain.CodeValidation))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Operations.WithLabelValues("credit_match", domain.CodeValidation)))

	out, err := observe(context.Background(), tel, "credit_match", func(ctx context.Context) (int, error) {
		return 30, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 30, out)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Operations.WithLabelValues("credit_match", "ok")))
}

// --- Dry Run Tests ---

func TestValidateAndScore_DryRun(t *testing.T) {
	db := &fakeDB{}
	svc := NewLadderService(db, nil, &repository.Set{}, noop.NewTracerProvider().Tracer("test"),
		infra.NewLadderMetrics(prometheus.NewRegistry()), quietLogger(), 3).
		WithClock(func() time.Time { return testNow })

	res, err := svc.ValidateAndScore(context.Background(), domain.MatchInput{
		ChallengerID:    1,
		OpponentID:      2,
		ChallengerGames: []int{6, 6},
		OpponentGames:   []int{3, 4},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.WinnerID)
	assert.Equal(t, 14, res.OpponentPoints)
	assert.Zero(t, db.begins, "a dry run never opens a transaction")

	_, err = svc.ValidateAndScore(context.Background(), domain.MatchInput{
		ChallengerID:    1,
		OpponentID:      2,
		ChallengerGames: []int{6, 6},
		OpponentGames:   []int{3, 4},
		Date:            testNow.AddDate(0, 0, 2),
	})
	assert.True(t, domain.HasCode(err, domain.CodeValidation))
}

// --- Player Update Tests ---

func TestApplyPlayerUpdate_InitialPointsDelta(t *testing.T) {
	p := &domain.Player{Points: 95, InitialPoints: 20}
	seed := 50
	require.NoError(t, applyPlayerUpdate(p, domain.PlayerUpdate{InitialPoints: &seed}))
	assert.Equal(t, 50, p.InitialPoints)
	assert.Equal(t, 125, p.Points, "earned points survive a seed change")

	zero := 0
	require.NoError(t, applyPlayerUpdate(p, domain.PlayerUpdate{InitialPoints: &zero}))
	assert.Equal(t, 75, p.Points)
}

func TestApplyPlayerUpdate_Rejections(t *testing.T) {
	badTier := domain.Tier("D")
	badOverride := 2
	negative := -5
	blank := "  "
	badEmail := "not-an-email"

	tests := []struct {
		name string
		upd  domain.PlayerUpdate
	}{
		{"unknown tier", domain.PlayerUpdate{Tier: &badTier}},
		{"override out of range", domain.PlayerUpdate{TournamentOverride: &badOverride}},
		{"negative initial points", domain.PlayerUpdate{InitialPoints: &negative}},
		{"blank last name", domain.PlayerUpdate{LastName: &blank}},
		{"bad email", domain.PlayerUpdate{Email: &badEmail}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := applyPlayerUpdate(&domain.Player{}, tt.upd)
			assert.True(t, domain.HasCode(err, domain.CodeValidation))
		})
	}
}

func TestApplyPlayerUpdate_PromotionDatesTruncated(t *testing.T) {
	p := &domain.Player{}
	at := time.Date(2025, 2, 3, 17, 45, 0, 0, time.UTC)
	require.NoError(t, applyPlayerUpdate(p, domain.PlayerUpdate{BPromotion: &at}))
	require.NotNil(t, p.BPromotion)
	assert.Equal(t, time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC), *p.BPromotion)
	assert.Nil(t, p.APromotion)
}

func TestValidatePlayerInput_Defaults(t *testing.T) {
	in := domain.PlayerInput{Username: " laver ", LastName: "Laver"}
	require.NoError(t, validatePlayerInput(&in))
	assert.Equal(t, "laver", in.Username)
	assert.Equal(t, domain.TierUnranked, in.Tier)
}

// --- Login Tests ---

func TestVerify(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	id, ok, err := f.svc.Verify(ctx, "BORG", "baseline1", domain.RolePlayer)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(7), id)

	_, ok, err = f.svc.Verify(ctx, "borg", "wrong-password", domain.RolePlayer)
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = f.svc.Verify(ctx, "borg", "baseline1", domain.RoleAdmin)
	require.NoError(t, err)
	assert.False(t, ok, "player credentials do not open the admin store")

	_, _, err = f.svc.Verify(ctx, "borg", "baseline1", domain.Role("coach"))
	assert.True(t, domain.HasCode(err, domain.CodeValidation))
}

func TestLogin_IssuesRealmToken(t *testing.T) {
	f := newFixture(t, 10)

	res, err := f.svc.Login(context.Background(), LoginInput{Username: "borg", Password: "baseline1", Role: domain.RolePlayer}, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, int64(7), res.SubjectID)

	claims, err := f.jwt.ValidateTokenForRealm(res.Token, auth.RealmPlayer)
	require.NoError(t, err)
	sub, err := claims.SubjectID()
	require.NoError(t, err)
	assert.Equal(t, int64(7), sub)
	assert.Equal(t, 1, f.db.execs, "the attempt is recorded")
}

func TestLogin_BadPassword(t *testing.T) {
	f := newFixture(t, 10)
	_, err := f.svc.Login(context.Background(), LoginInput{Username: "borg", Password: "nope", Role: domain.RolePlayer}, "10.0.0.1")
	assert.True(t, domain.HasCode(err, domain.CodeUnauthorized))
}

func TestLogin_RateLimited(t *testing.T) {
	f := newFixture(t, 1)
	in := LoginInput{Username: "borg", Password: "baseline1", Role: domain.RolePlayer}

	_, err := f.svc.Login(context.Background(), in, "10.0.0.2")
	require.NoError(t, err)
	_, err = f.svc.Login(context.Background(), in, "10.0.0.2")
	assert.True(t, domain.HasCode(err, domain.CodeAccountLocked))

	_, err = f.svc.Login(context.Background(), in, "10.0.0.3")
	assert.NoError(t, err, "limits are per client")
}

// --- Account Tests ---

func TestBootstrap_OnlyOnce(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	none, err := f.svc.NoAdmins(ctx)
	require.NoError(t, err)
	assert.True(t, none)

	res, err := f.svc.Bootstrap(ctx, "root", "hunter2hunter2")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, res.Role)
	_, err = f.jwt.ValidateTokenForRealm(res.Token, auth.RealmAdmin)
	require.NoError(t, err)

	_, err = f.svc.Bootstrap(ctx, "second", "hunter2hunter2")
	assert.True(t, domain.HasCode(err, domain.CodeForbidden))
}

func TestCreateAccount_UsernameSharedWithPlayers(t *testing.T) {
	f := newFixture(t, 10)
	_, err := f.svc.CreateAccount(context.Background(), "Borg", "hunter2hunter2")
	assert.ErrorIs(t, err, ErrUsernameConflict)

	_, err = f.svc.CreateAccount(context.Background(), "x", "hunter2hunter2")
	assert.True(t, domain.HasCode(err, domain.CodeValidation))

	_, err = f.svc.CreateAccount(context.Background(), "mcenroe", "short")
	assert.True(t, domain.HasCode(err, domain.CodeValidation))
}

// --- Token Tests ---

func TestNewToken(t *testing.T) {
	f := newFixture(t, 10)
	since := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

	tok, err := f.svc.NewToken(context.Background(), domain.TokenReport, &since, testNow.AddDate(0, 1, 0))
	require.NoError(t, err)
	assert.Len(t, tok.Token, 32)
	for _, r := range tok.Token {
		assert.True(t, strings.ContainsRune(tokenAlphabet, r), "unexpected rune %q", r)
	}
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), *tok.Since)

	got, err := f.svc.CheckToken(context.Background(), tok.Token, domain.TokenReport)
	require.NoError(t, err)
	assert.Equal(t, tok.ID, got.ID)
}

func TestNewToken_Rejections(t *testing.T) {
	f := newFixture(t, 10)
	_, err := f.svc.NewToken(context.Background(), "admin", nil, testNow.AddDate(0, 1, 0))
	assert.True(t, domain.HasCode(err, domain.CodeValidation))
	_, err = f.svc.NewToken(context.Background(), domain.TokenReport, nil, testNow.AddDate(0, 0, -1))
	assert.True(t, domain.HasCode(err, domain.CodeValidation))
}

func TestCheckToken(t *testing.T) {
	f := newFixture(t, 10)
	f.tokens.tokens["expired"] = &domain.Token{ID: 1, Token: "expired", Type: domain.TokenReport, Expires: testNow.AddDate(0, 0, -1)}
	f.tokens.tokens["today"] = &domain.Token{ID: 2, Token: "today", Type: domain.TokenReport, Expires: domain.Day(testNow)}

	tests := []struct {
		name  string
		token string
		typ   string
		ok    bool
	}{
		{"valid through end of expiry day", "today", domain.TokenReport, true},
		{"expired", "expired", domain.TokenReport, false},
		{"unknown", "missing", domain.TokenReport, false},
		{"wrong type", "today", "other", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CheckToken(context.Background(), tt.token, tt.typ)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.True(t, domain.HasCode(err, domain.CodeForbidden))
		})
	}
}
