package repository

import (
	"context"

	"github.com/srivastavahk/TaskFlow/internal/domain"
)

type UserRepository interface {
	// Create inserts a user. Returns domain.ErrEmailTaken when another user
	// already holds the email, compared case-insensitively.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
}
