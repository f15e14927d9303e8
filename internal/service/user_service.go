package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/chinor-crm/internal/model"
	"github.com/iliyamo/chinor-crm/internal/repository"
	"github.com/iliyamo/chinor-crm/internal/utils"
)

// UserInput creates a staff account.
type UserInput struct {
	Email       string `json:"email" validate:"required,email,max=255"`
	Password    string `json:"password" validate:"required"`
	Role        string `json:"role" validate:"required"`
	DisplayName string `json:"display_name" validate:"required,max=255"`
}

// UserPatch is a partial staff account update.
type UserPatch struct {
	Email       *string `json:"email" validate:"omitempty,email,max=255"`
	Password    *string `json:"password"`
	Role        *string `json:"role"`
	DisplayName *string `json:"display_name" validate:"omitempty,max=255"`
}

// UserService manages staff accounts.
type UserService struct {
	users      UserStore
	bcryptCost int
	log        *zap.Logger
}

// NewUserService wires a UserService.
func NewUserService(users UserStore, bcryptCost int, log *zap.Logger) *UserService {
	return &UserService{users: users, bcryptCost: bcryptCost, log: log}
}

func (s *UserService) hash(pw string) (string, error) {
	h, err := utils.HashPassword(pw, s.bcryptCost)
	if errors.Is(err, utils.ErrPasswordTooShort) {
		return "", invalid("password must be at least %d characters", utils.MinPasswordLength)
	}
	return h, err
}

func emailConflict(err error) error {
	if errors.Is(err, repository.ErrConflict) {
		return &ConflictError{Msg: "User with this email already exists"}
	}
	return err
}

// List returns every staff account.
func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	return s.users.List(ctx)
}

// Create adds a staff account.
func (s *UserService) Create(ctx context.Context, in UserInput) (model.User, error) {
	if !model.ValidRole(in.Role) {
		return model.User{}, invalid("unknown role %q", in.Role)
	}
	name := strings.TrimSpace(in.DisplayName)
	if name == "" {
		return model.User{}, invalid("display name is required")
	}
	hash, err := s.hash(in.Password)
	if err != nil {
		return model.User{}, err
	}
	u := model.User{Email: in.Email, PasswordHash: hash, Role: in.Role, DisplayName: name}
	if err := s.users.Create(ctx, &u); err != nil {
		return model.User{}, emailConflict(err)
	}
	s.log.Info("user created", zap.Uint64("user_id", u.ID), zap.String("role", u.Role))
	return u, nil
}

// Update edits a staff account.  An admin cannot take the admin role away
// from themselves.
func (s *UserService) Update(ctx context.Context, id uint64, p UserPatch) (model.User, error) {
	if p.Role != nil && !model.ValidRole(*p.Role) {
		return model.User{}, invalid("unknown role %q", *p.Role)
	}
	if actor, ok := ActorFrom(ctx); ok && actor.UserID == id && p.Role != nil && *p.Role != model.RoleAdmin {
		return model.User{}, invalid("you cannot remove your own admin role")
	}
	var hash string
	if p.Password != nil {
		h, err := s.hash(*p.Password)
		if err != nil {
			return model.User{}, err
		}
		hash = h
	}
	u, err := s.users.Update(ctx, id, func(u *model.User) error {
		if p.Email != nil {
			u.Email = *p.Email
		}
		if p.Role != nil {
			u.Role = *p.Role
		}
		if p.DisplayName != nil {
			name := strings.TrimSpace(*p.DisplayName)
			if name == "" {
				return invalid("display name must not be empty")
			}
			u.DisplayName = name
		}
		if hash != "" {
			u.PasswordHash = hash
		}
		return nil
	})
	if err != nil {
		return model.User{}, notFound(emailConflict(err), "user", id)
	}
	return u, nil
}

// Delete removes a staff account.  Admins cannot delete themselves.
func (s *UserService) Delete(ctx context.Context, id uint64) error {
	if actor, ok := ActorFrom(ctx); ok && actor.UserID == id {
		return invalid("you cannot delete your own account")
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return notFound(err, "user", id)
	}
	s.log.Info("user deleted", zap.Uint64("user_id", id))
	return nil
}

// EnsureAdmin creates the initial admin account when no users exist.
func (s *UserService) EnsureAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	n, err := s.users.Count(ctx)
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if n > 0 {
		return nil
	}
	_, err = s.Create(ctx, UserInput{Email: email, Password: password, Role: model.RoleAdmin, DisplayName: "Администратор"})
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	s.log.Info("seeded admin account", zap.String("email", strings.ToLower(email)))
	return nil
}
