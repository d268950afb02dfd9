package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/srivastavahk/TaskFlow/internal/domain"
	"github.com/srivastavahk/TaskFlow/internal/metrics"
	"github.com/srivastavahk/TaskFlow/internal/repository"
)

// TokenService signs and verifies bearer tokens. Satisfied by *token.Service.
type TokenService interface {
	Issue(subject string, lifetime time.Duration) (string, error)
	Verify(raw string) (string, error)
}

type AuthConfig struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	BcryptCost int
}

type AuthUsecase struct {
	users  repository.UserRepository
	tokens TokenService
	cfg    AuthConfig

	// compared against when the email is unknown, so both failure paths pay
	// for one bcrypt comparison.
	dummyHash []byte
}

func NewAuthUsecase(users repository.UserRepository, tokens TokenService, cfg AuthConfig) *AuthUsecase {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), cfg.BcryptCost)
	return &AuthUsecase{
		users:     users,
		tokens:    tokens,
		cfg:       cfg,
		dummyHash: dummy,
	}
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

type LoginResult struct {
	AccessToken  string
	RefreshToken string
	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int64
	User      *domain.User
}

func (u *AuthUsecase) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), u.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := u.users.Create(ctx, &domain.User{
		Name:         strings.TrimSpace(input.Name),
		Email:        strings.TrimSpace(input.Email),
		PasswordHash: string(hash),
		Status:       domain.UserStatusActive,
	})
	if err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			return nil, domain.ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (u *AuthUsecase) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := u.users.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			return nil, fmt.Errorf("find user: %w", err)
		}
		_ = bcrypt.CompareHashAndPassword(u.dummyHash, []byte(password))
		metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
		return nil, domain.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
		return nil, domain.ErrInvalidCredentials
	}

	if !user.Status.CanAuthenticate() {
		metrics.LoginsTotal.WithLabelValues("inactive").Inc()
		return nil, domain.ErrAccountInactive
	}

	result, err := u.issuePair(user)
	if err != nil {
		return nil, err
	}
	metrics.LoginsTotal.WithLabelValues("success").Inc()
	return result, nil
}

// Refresh exchanges a still-valid token for a fresh pair. Tokens carry no
// kind, so the account is re-checked on every exchange.
func (u *AuthUsecase) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	subject, err := u.tokens.Verify(refreshToken)
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := u.users.FindByEmail(ctx, subject)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !user.Status.CanAuthenticate() {
		return nil, domain.ErrInvalidCredentials
	}

	return u.issuePair(user)
}

func (u *AuthUsecase) issuePair(user *domain.User) (*LoginResult, error) {
	access, err := u.tokens.Issue(user.Email, u.cfg.AccessTTL)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := u.tokens.Issue(user.Email, u.cfg.RefreshTTL)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}
	return &LoginResult{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    u.cfg.AccessTTL.Milliseconds() / 1000,
		User:         user,
	}, nil
}
