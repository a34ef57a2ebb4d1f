package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/atttc/ladder/internal/auth"
	"github.com/atttc/ladder/internal/guard"
	"github.com/atttc/ladder/internal/handler"
	adminhandler "github.com/atttc/ladder/internal/handler/admin"
	"github.com/atttc/ladder/internal/infra"
	"github.com/atttc/ladder/internal/ledger"
	"github.com/atttc/ladder/internal/projection"
	"github.com/atttc/ladder/internal/repository"
	"github.com/atttc/ladder/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
)

// idempotencyTTL is how long a match report's Idempotency-Key is remembered.
const idempotencyTTL = 10 * time.Minute

// LadderAPI is everything the HTTP routes need from the ladder service.
type LadderAPI interface {
	handler.Ladder
	adminhandler.Ladder
}

// AccountAPI is everything the HTTP routes need from the account service.
type AccountAPI interface {
	handler.Authenticator
	adminhandler.Accounts
	auth.TokenChecker
}

// RouterDeps holds all dependencies needed by NewRouter.
type RouterDeps struct {
	DB          infra.Pinger
	JWTMgr      *auth.JWTManager
	Logger      *slog.Logger
	CORSOrigins []string
	Ladder      LadderAPI
	Accounts    AccountAPI
	Gatherer    prometheus.Gatherer
}

// App bundles the services built for one process.
type App struct {
	Repos    *repository.Set
	Ladder   *service.LadderService
	Accounts *service.AccountService
	Metrics  *infra.LadderMetrics
	Router   chi.Router
}

// New builds the repositories, ledger engine and services on pool and
// registers metrics with reg.
func New(cfg *infra.Config, pool *pgxpool.Pool, reg *prometheus.Registry, logger *slog.Logger) *App {
	repos := repository.NewSet()
	engine := ledger.NewEngine(repos.Players, repos.Matches, repos.Seasons, repos.Archive, repos.Outbox, logger)
	metrics := infra.NewLadderMetrics(reg)
	tracer := otel.Tracer("github.com/atttc/ladder")
	jwtMgr := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTPlayerExpiry, cfg.JWTAdminExpiry)

	ladder := service.NewLadderService(pool, engine, repos, tracer, metrics, logger, cfg.CreditRetryAttempts).
		WithStandingsCache(projection.NewInMemoryStore())
	accounts := service.NewAccountService(pool, repos, jwtMgr, guard.NewRateLimiter(cfg.LoginRatePerMinute), tracer, metrics, logger)

	return &App{
		Repos:    repos,
		Ladder:   ladder,
		Accounts: accounts,
		Metrics:  metrics,
		Router: NewRouter(RouterDeps{
			DB:          pool,
			JWTMgr:      jwtMgr,
			Logger:      logger,
			CORSOrigins: cfg.CORSOrigins(),
			Ladder:      ladder,
			Accounts:    accounts,
			Gatherer:    reg,
		}),
	}
}

// NewRouter assembles the chi.Router with all routes and middleware.
func NewRouter(deps RouterDeps) chi.Router {
	jwtMgr := deps.JWTMgr
	logger := deps.Logger
	idem := guard.NewIdempotencyGuard(idempotencyTTL)

	// Handlers
	authHandler := handler.NewAuthHandler(deps.Accounts)
	playerHandler := handler.NewPlayerHandler(deps.Ladder)
	reportHandler := handler.NewReportHandler(deps.Ladder)

	// Admin handlers
	matchAdmin := adminhandler.NewMatchAdminHandler(deps.Ladder)
	playerAdmin := adminhandler.NewPlayerAdminHandler(deps.Ladder)
	seasonAdmin := adminhandler.NewSeasonAdminHandler(deps.Ladder)
	accountAdmin := adminhandler.NewAccountAdminHandler(deps.Accounts)
	reportsAdmin := adminhandler.NewReportsHandler(deps.Ladder)

	// Router
	r := chi.NewRouter()

	// Global middleware (order matters)
	r.Use(handler.Recovery(logger))
	r.Use(handler.RequestID)
	r.Use(handler.RequestLogger(logger))
	r.Use(handler.CORSWithOrigins(deps.CORSOrigins))
	r.Use(handler.JSONContentType)

	// Health and metrics (no auth)
	r.Get("/health", handler.HealthHandler(deps.DB))
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))

	// Auth routes (no auth)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", authHandler.Login)
		r.Post("/bootstrap", authHandler.Bootstrap)
	})

	// Public report pages (report token)
	r.Route("/reports/{token}", func(r chi.Router) {
		r.Use(auth.RequireReportToken(deps.Accounts))
		r.Get("/ladder/{tier}", reportHandler.Ladder)
		r.Get("/matches", reportHandler.Matches)
	})

	// Player-authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(auth.AuthenticatePlayer(jwtMgr))

		r.Get("/players/me", playerHandler.GetMe)
		r.Get("/ladder/{tier}", playerHandler.Ladder)

		r.Route("/matches", func(r chi.Router) {
			r.Get("/", playerHandler.MyMatches)
			r.With(handler.Idempotent(idem)).Post("/", playerHandler.SubmitMatch)
		})
	})

	// Admin-authenticated routes
	r.Route("/admin", func(r chi.Router) {
		r.Use(auth.AuthenticateAdmin(jwtMgr))

		r.Post("/score", matchAdmin.Score)

		r.Route("/matches", func(r chi.Router) {
			r.Get("/", matchAdmin.List)
			r.With(handler.Idempotent(idem)).Post("/", matchAdmin.Credit)
			r.Post("/{id}/approve", matchAdmin.Approve)
			r.Post("/{id}/dispute", matchAdmin.Dispute)
		})

		r.Route("/players", func(r chi.Router) {
			r.Get("/", playerAdmin.List)
			r.Post("/", playerAdmin.Create)
			r.Get("/{id}", playerAdmin.Get)
			r.Patch("/{id}", playerAdmin.Update)
			r.Delete("/{id}", playerAdmin.Delete)
			r.Get("/{id}/tier", playerAdmin.Tier)
		})

		r.Route("/seasons", func(r chi.Router) {
			r.Get("/", seasonAdmin.List)
			r.Post("/", seasonAdmin.Start)
			r.Post("/kick", seasonAdmin.Kick)
		})

		r.Get("/tournament", seasonAdmin.GetTournament)
		r.Put("/tournament", seasonAdmin.SetTournament)
		r.Get("/audit", seasonAdmin.Audit)
		r.Get("/standings.xlsx", reportsAdmin.StandingsXLSX)

		r.Post("/tokens", accountAdmin.NewToken)

		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", accountAdmin.List)
			r.Post("/", accountAdmin.Create)
			r.Patch("/{username}", accountAdmin.Update)
			r.Delete("/{username}", accountAdmin.Delete)
		})
	})

	return r
}
