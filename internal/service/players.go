package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atttc/ladder/internal/domain"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/bcrypt"
)

// ErrUsernameConflict is returned when a username is taken by a player or an admin.
var ErrUsernameConflict = domain.ErrConflict("username conflict")

func playerNotFound(id int64) *domain.AppError {
	return domain.ErrNotFound("player ID", fmt.Sprint(id))
}

func hashPassword(password string) (string, error) {
	if err := domain.ValidatePassword(password); err != nil {
		return "", domain.ErrValidation(err.Error())
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", domain.ErrInternal("hash password", err)
	}
	return string(hash), nil
}

func validatePlayerInput(in *domain.PlayerInput) error {
	in.Username = strings.TrimSpace(in.Username)
	if err := domain.ValidateUsername(in.Username); err != nil {
		return domain.ErrValidation(err.Error())
	}
	if strings.TrimSpace(in.LastName) == "" {
		return domain.ErrValidation("last name is required")
	}
	if in.Email != "" {
		if err := domain.ValidateEmail(in.Email); err != nil {
			return domain.ErrValidation(err.Error())
		}
	}
	if in.Tier == "" {
		in.Tier = domain.TierUnranked
	}
	if !in.Tier.Valid() {
		return domain.ErrValidation(fmt.Sprintf("unknown tier %q", in.Tier))
	}
	if err := domain.ValidateOverride(in.TournamentOverride); err != nil {
		return domain.ErrValidation(err.Error())
	}
	if in.InitialPoints < 0 {
		return domain.ErrValidation("initial points cannot be negative")
	}
	return nil
}

// AddPlayer registers a player. Usernames are unique across players and admins.
func (s *LadderService) AddPlayer(ctx context.Context, in domain.PlayerInput) (*domain.Player, error) {
	const op = "add_player"
	player, err := observe(ctx, s.tel, op, func(ctx context.Context) (*domain.Player, error) {
		if err := validatePlayerInput(&in); err != nil {
			return nil, err
		}
		hash, err := hashPassword(in.Password)
		if err != nil {
			return nil, err
		}
		return inTx(ctx, s.tx, op, func(ctx context.Context, tx pgx.Tx) (*domain.Player, error) {
			taken, err := s.repos.Players.UsernameInUse(ctx, tx, in.Username, 0, 0)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, ErrUsernameConflict
			}
			p := &domain.Player{
				Username:           in.Username,
				PasswordHash:       hash,
				FirstName:          in.FirstName,
				LastName:           in.LastName,
				Email:              in.Email,
				CellPhone:          in.CellPhone,
				HomePhone:          in.HomePhone,
				WorkPhone:          in.WorkPhone,
				Company:            in.Company,
				Location:           in.Location,
				WorkLocation:       in.WorkLocation,
				Note:               in.Note,
				Tier:               in.Tier,
				Active:             in.Active,
				Points:             in.InitialPoints,
				InitialPoints:      in.InitialPoints,
				TournamentOverride: in.TournamentOverride,
			}
			if err := s.repos.Players.Create(ctx, tx, p); err != nil {
				return nil, err
			}
			return p, nil
		})
	}, attribute.String("username", in.Username))
	if err != nil {
		return nil, err
	}
	s.standingsChanged(ctx)
	return player, nil
}

// UpdatePlayer applies the set fields of upd. Changing initial points shifts
// points by the same delta so points earned this season are kept.
func (s *LadderService) UpdatePlayer(ctx context.Context, id int64, upd domain.PlayerUpdate) (*domain.Player, error) {
	const op = "update_player"
	player, err := observe(ctx, s.tel, op, func(ctx context.Context) (*domain.Player, error) {
		var hash string
		if upd.Password != nil {
			h, err := hashPassword(*upd.Password)
			if err != nil {
				return nil, err
			}
			hash = h
		}
		return inTx(ctx, s.tx, op, func(ctx context.Context, tx pgx.Tx) (*domain.Player, error) {
			p, err := s.repos.Players.LockForUpdate(ctx, tx, id)
			if err != nil {
				return nil, err
			}
			if p == nil {
				return nil, playerNotFound(id)
			}
			if upd.Username != nil {
				name := strings.TrimSpace(*upd.Username)
				if err := domain.ValidateUsername(name); err != nil {
					return nil, domain.ErrValidation(err.Error())
				}
				taken, err := s.repos.Players.UsernameInUse(ctx, tx, name, id, 0)
				if err != nil {
					return nil, err
				}
				if taken {
					return nil, ErrUsernameConflict
				}
				p.Username = name
			}
			if hash != "" {
				p.PasswordHash = hash
			}
			if err := applyPlayerUpdate(p, upd); err != nil {
				return nil, err
			}
			domain.WarnPromotionOrder(s.logger, p)
			if err := s.repos.Players.Save(ctx, tx, p); err != nil {
				return nil, err
			}
			return p, nil
		})
	}, attribute.Int64("player_id", id))
	if err != nil {
		return nil, err
	}
	s.standingsChanged(ctx)
	return player, nil
}

func applyPlayerUpdate(p *domain.Player, upd domain.PlayerUpdate) error {
	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	if upd.LastName != nil && strings.TrimSpace(*upd.LastName) == "" {
		return domain.ErrValidation("last name is required")
	}
	if upd.Email != nil && *upd.Email != "" {
		if err := domain.ValidateEmail(*upd.Email); err != nil {
			return domain.ErrValidation(err.Error())
		}
	}
	setString(&p.FirstName, upd.FirstName)
	setString(&p.LastName, upd.LastName)
	setString(&p.Email, upd.Email)
	setString(&p.CellPhone, upd.CellPhone)
	setString(&p.HomePhone, upd.HomePhone)
	setString(&p.WorkPhone, upd.WorkPhone)
	setString(&p.Company, upd.Company)
	setString(&p.Location, upd.Location)
	setString(&p.WorkLocation, upd.WorkLocation)
	setString(&p.Note, upd.Note)

	if upd.Tier != nil {
		if !upd.Tier.Valid() {
			return domain.ErrValidation(fmt.Sprintf("unknown tier %q", *upd.Tier))
		}
		p.Tier = *upd.Tier
	}
	if upd.Active != nil {
		p.Active = *upd.Active
	}
	if upd.InitialPoints != nil {
		if *upd.InitialPoints < 0 {
			return domain.ErrValidation("initial points cannot be negative")
		}
		p.Points += *upd.InitialPoints - p.InitialPoints
		p.InitialPoints = *upd.InitialPoints
	}
	if upd.TournamentOverride != nil {
		if err := domain.ValidateOverride(*upd.TournamentOverride); err != nil {
			return domain.ErrValidation(err.Error())
		}
		p.TournamentOverride = *upd.TournamentOverride
	}
	for tier, d := range map[domain.Tier]*time.Time{
		domain.TierA: upd.APromotion,
		domain.TierB: upd.BPromotion,
		domain.TierC: upd.CPromotion,
	} {
		if d != nil {
			day := domain.Day(*d)
			p.SetPromotionDate(tier, &day)
		}
	}
	return nil
}

// DeletePlayer removes a player that has never appeared in a match.
func (s *LadderService) DeletePlayer(ctx context.Context, id int64) error {
	const op = "delete_player"
	_, err := observe(ctx, s.tel, op, func(ctx context.Context) (struct{}, error) {
		return inTx(ctx, s.tx, op, func(ctx context.Context, tx pgx.Tx) (struct{}, error) {
			p, err := s.repos.Players.LockForUpdate(ctx, tx, id)
			if err != nil {
				return struct{}{}, err
			}
			if p == nil {
				return struct{}{}, playerNotFound(id)
			}
			played, err := s.repos.Matches.HasHistory(ctx, tx, id)
			if err != nil {
				return struct{}{}, err
			}
			if played {
				return struct{}{}, domain.ErrConflict("player has match history and cannot be deleted; deactivate instead")
			}
			return struct{}{}, s.repos.Players.Delete(ctx, tx, id)
		})
	}, attribute.Int64("player_id", id))
	if err != nil {
		return err
	}
	s.standingsChanged(ctx)
	return nil
}

// GetPlayer returns one player with the qualification flag filled in.
func (s *LadderService) GetPlayer(ctx context.Context, id int64) (*domain.Player, error) {
	return observe(ctx, s.tel, "get_player", func(ctx context.Context) (*domain.Player, error) {
		p, err := s.repos.Players.FindByID(ctx, s.db, id)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, playerNotFound(id)
		}
		players := []domain.Player{*p}
		if err := s.qualify(ctx, players); err != nil {
			return nil, err
		}
		return &players[0], nil
	}, attribute.Int64("player_id", id))
}
