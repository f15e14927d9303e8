package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/chinor-crm/internal/model"
	"github.com/iliyamo/chinor-crm/internal/repository"
	"github.com/iliyamo/chinor-crm/internal/utils"
)

// LoginInput is the login form.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResult is returned on successful login.
type LoginResult struct {
	AccessToken string     `json:"access_token"`
	User        model.User `json:"user"`
}

// AuthService authenticates staff and issues access tokens.
type AuthService struct {
	users     UserStore
	secret    string
	accessTTL time.Duration
	log       *zap.Logger
}

// NewAuthService wires an AuthService.
func NewAuthService(users UserStore, secret string, accessTTL time.Duration, log *zap.Logger) *AuthService {
	return &AuthService{users: users, secret: secret, accessTTL: accessTTL, log: log}
}

// Login checks the credentials and returns a signed access token.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (LoginResult, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, fmt.Errorf("load user: %w", err)
	}
	if !utils.VerifyPassword(u.PasswordHash, in.Password) {
		s.log.Info("login rejected", zap.Uint64("user_id", u.ID))
		return LoginResult{}, ErrInvalidCredentials
	}
	tok, err := utils.NewAccessToken(s.secret, u.ID, u.Role, s.accessTTL)
	if err != nil {
		return LoginResult{}, fmt.Errorf("sign token: %w", err)
	}
	s.log.Info("login", zap.Uint64("user_id", u.ID), zap.String("role", u.Role))
	return LoginResult{AccessToken: tok.Token, User: u}, nil
}

// Me returns the signed-in user.
func (s *AuthService) Me(ctx context.Context, id uint64) (model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	return u, notFound(err, "user", id)
}
