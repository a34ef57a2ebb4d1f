package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/atttc/ladder/internal/auth"
	"github.com/atttc/ladder/internal/domain"
	"github.com/atttc/ladder/internal/guard"
	"github.com/atttc/ladder/internal/infra"
	"github.com/atttc/ladder/internal/repository"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"
)

// AccountService handles admin accounts, credential checks, login and report tokens.
type AccountService struct {
	db      DB
	repos   *repository.Set
	jwtMgr  *auth.JWTManager
	limiter *guard.RateLimiter
	tx      *txRunner
	tel     *telemetry
	logger  *slog.Logger
	now     func() time.Time
}

// NewAccountService creates an AccountService.
func NewAccountService(
	db DB,
	repos *repository.Set,
	jwtMgr *auth.JWTManager,
	limiter *guard.RateLimiter,
	tracer trace.Tracer,
	metrics *infra.LadderMetrics,
	logger *slog.Logger,
) *AccountService {
	return &AccountService{
		db:      db,
		repos:   repos,
		jwtMgr:  jwtMgr,
		limiter: limiter,
		tx:      &txRunner{db: db, attempts: 3, metrics: metrics, logger: logger},
		tel:     &telemetry{tracer: tracer, metrics: metrics, logger: logger},
		logger:  logger,
		now:     time.Now,
	}
}

// WithClock replaces the clock used for token expiry.
func (s *AccountService) WithClock(now func() time.Time) *AccountService {
	s.now = now
	return s
}

// LoginInput holds the login request fields.
type LoginInput struct {
	Username string      `json:"username"`
	Password string      `json:"password"`
	Role     domain.Role `json:"role"`
}

// AuthResult is returned on successful login or bootstrap.
type AuthResult struct {
	Token     string      `json:"token"`
	SubjectID int64       `json:"subject_id"`
	Username  string      `json:"username"`
	Role      domain.Role `json:"role"`
}

var errBadCredentials = domain.ErrUnauthorized("invalid username or password")

// Verify checks a username and password against the store for role and
// returns the player or admin id. ok is false when the credentials do not match.
func (s *AccountService) Verify(ctx context.Context, username, password string, role domain.Role) (id int64, ok bool, err error) {
	var hash string
	switch role {
	case domain.RolePlayer:
		p, err := s.repos.Players.FindByUsername(ctx, s.db, username)
		if err != nil {
			return 0, false, err
		}
		if p == nil {
			return 0, false, nil
		}
		id, hash = p.ID, p.PasswordHash
	case domain.RoleAdmin:
		a, err := s.repos.Accounts.FindByUsername(ctx, s.db, username)
		if err != nil {
			return 0, false, err
		}
		if a == nil {
			return 0, false, nil
		}
		id, hash = a.ID, a.PasswordHash
	default:
		return 0, false, domain.ErrValidation("role must be player or admin")
	}
	if hash == "" || bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return 0, false, nil
	}
	return id, true, nil
}

// Login verifies credentials and issues a JWT for the role's realm. Attempts
// are rate limited per client address and locked out after repeated failures.
func (s *AccountService) Login(ctx context.Context, input LoginInput, clientIP string) (*AuthResult, error) {
	return observe(ctx, s.tel, "login", func(ctx context.Context) (*AuthResult, error) {
		realm, err := auth.RealmFor(input.Role)
		if err != nil {
			return nil, domain.ErrValidation("role must be player or admin")
		}
		if res := s.limiter.Check(ctx, "login:"+clientIP); !res.Allowed {
			return nil, domain.ErrAccountLocked(res.Reason)
		}
		if err := guard.CheckLocked(ctx, s.db, input.Username, input.Role); err != nil {
			return nil, err
		}

		id, ok, err := s.Verify(ctx, input.Username, input.Password, input.Role)
		if err != nil {
			return nil, err
		}
		guard.RecordAttempt(ctx, s.db, input.Username, input.Role, clientIP, ok)
		if !ok {
			return nil, errBadCredentials
		}

		token, err := s.jwtMgr.GenerateToken(realm, id, input.Username)
		if err != nil {
			return nil, domain.ErrInternal("generate token", err)
		}
		return &AuthResult{Token: token, SubjectID: id, Username: input.Username, Role: input.Role}, nil
	}, attribute.String("role", string(input.Role)))
}

// NoAdmins reports whether no admin account exists yet.
func (s *AccountService) NoAdmins(ctx context.Context) (bool, error) {
	return observe(ctx, s.tel, "no_admins", func(ctx context.Context) (bool, error) {
		n, err := s.repos.Accounts.Count(ctx, s.db)
		if err != nil {
			return false, err
		}
		return n == 0, nil
	})
}

// Bootstrap creates the first admin and logs it in. It is refused once any admin exists.
func (s *AccountService) Bootstrap(ctx context.Context, username, password string) (*AuthResult, error) {
	const op = "bootstrap"
	return observe(ctx, s.tel, op, func(ctx context.Context) (*AuthResult, error) {
		username = strings.TrimSpace(username)
		if err := domain.ValidateUsername(username); err != nil {
			return nil, domain.ErrValidation(err.Error())
		}
		hash, err := hashPassword(password)
		if err != nil {
			return nil, err
		}
		a, err := inTx(ctx, s.tx, op, func(ctx context.Context, tx pgx.Tx) (*domain.Account, error) {
			n, err := s.repos.Accounts.Count(ctx, tx)
			if err != nil {
				return nil, err
			}
			if n > 0 {
				return nil, domain.ErrForbidden("an admin account already exists")
			}
			return s.createAccount(ctx, tx, username, hash)
		})
		if err != nil {
			return nil, err
		}
		s.logger.InfoContext(ctx, "first admin created", "username", a.Username)
		token, err := s.jwtMgr.GenerateToken(auth.RealmAdmin, a.ID, a.Username)
		if err != nil {
			return nil, domain.ErrInternal("generate token", err)
		}
		return &AuthResult{Token: token, SubjectID: a.ID, Username: a.Username, Role: domain.RoleAdmin}, nil
	})
}

// CreateAccount adds an admin. Usernames are unique across players and admins.
func (s *AccountService) CreateAccount(ctx context.Context, username, password string) (*domain.Account, error) {
	const op = "create_account"
	return observe(ctx, s.tel, op, func(ctx context.Context) (*domain.Account, error) {
		username = strings.TrimSpace(username)
		if err := domain.ValidateUsername(username); err != nil {
			return nil, domain.ErrValidation(err.Error())
		}
		hash, err := hashPassword(password)
		if err != nil {
			return nil, err
		}
		return inTx(ctx, s.tx, op, func(ctx context.Context, tx pgx.Tx) (*domain.Account, error) {
			return s.createAccount(ctx, tx, username, hash)
		})
	}, attribute.String("username", username))
}

func (s *AccountService) createAccount(ctx context.Context, tx pgx.Tx, username, hash string) (*domain.Account, error) {
	taken, err := s.repos.Players.UsernameInUse(ctx, tx, username, 0, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrUsernameConflict
	}
	a := &domain.Account{Username: username, PasswordHash: hash}
	if err := s.repos.Accounts.Create(ctx, tx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// AccountUpdate carries optional changes to an admin account.
type AccountUpdate struct {
	Username *string `json:"username,omitempty"`
	Password *string `json:"password,omitempty"`
}

// UpdateAccount renames an admin or changes its password.
func (s *AccountService) UpdateAccount(ctx context.Context, username string, upd AccountUpdate) (*domain.Account, error) {
	const op = "update_account"
	return observe(ctx, s.tel, op, func(ctx context.Context) (*domain.Account, error) {
		var hash string
		if upd.Password != nil {
			h, err := hashPassword(*upd.Password)
			if err != nil {
				return nil, err
			}
			hash = h
		}
		return inTx(ctx, s.tx, op, func(ctx context.Context, tx pgx.Tx) (*domain.Account, error) {
			a, err := s.repos.Accounts.FindByUsername(ctx, tx, username)
			if err != nil {
				return nil, err
			}
			if a == nil {
				return nil, domain.ErrNotFound("admin", username)
			}
			oldUsername := a.Username
			if upd.Username != nil {
				name := strings.TrimSpace(*upd.Username)
				if err := domain.ValidateUsername(name); err != nil {
					return nil, domain.ErrValidation(err.Error())
				}
				taken, err := s.repos.Players.UsernameInUse(ctx, tx, name, 0, a.ID)
				if err != nil {
					return nil, err
				}
				if taken {
					return nil, ErrUsernameConflict
				}
				a.Username = name
			}
			if hash != "" {
				a.PasswordHash = hash
			}
			if err := s.repos.Accounts.Update(ctx, tx, oldUsername, a); err != nil {
				return nil, err
			}
			return a, nil
		})
	}, attribute.String("username", username))
}

// DeleteAccount removes an admin. The last admin cannot be removed.
func (s *AccountService) DeleteAccount(ctx context.Context, username string) error {
	const op = "delete_account"
	_, err := observe(ctx, s.tel, op, func(ctx context.Context) (struct{}, error) {
		return inTx(ctx, s.tx, op, func(ctx context.Context, tx pgx.Tx) (struct{}, error) {
			a, err := s.repos.Accounts.FindByUsername(ctx, tx, username)
			if err != nil {
				return struct{}{}, err
			}
			if a == nil {
				return struct{}{}, domain.ErrNotFound("admin", username)
			}
			n, err := s.repos.Accounts.Count(ctx, tx)
			if err != nil {
				return struct{}{}, err
			}
			if n <= 1 {
				return struct{}{}, domain.ErrConflict("cannot delete the last admin account")
			}
			return struct{}{}, s.repos.Accounts.Delete(ctx, tx, a.Username)
		})
	}, attribute.String("username", username))
	return err
}

// GetAccount looks up one admin by username.
func (s *AccountService) GetAccount(ctx context.Context, username string) (*domain.Account, error) {
	return observe(ctx, s.tel, "get_account", func(ctx context.Context) (*domain.Account, error) {
		a, err := s.repos.Accounts.FindByUsername(ctx, s.db, username)
		if err != nil {
			return nil, err
		}
		if a == nil {
			return nil, domain.ErrNotFound("admin", username)
		}
		return a, nil
	})
}

// ListAccounts returns every admin.
func (s *AccountService) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	return observe(ctx, s.tel, "list_accounts", func(ctx context.Context) ([]domain.Account, error) {
		return s.repos.Accounts.List(ctx, s.db)
	})
}
