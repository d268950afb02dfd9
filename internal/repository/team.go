package repository

import (
	"context"

	"github.com/srivastavahk/TaskFlow/internal/domain"
)

type TeamRepository interface {
	// CreateWithAdmin inserts the team and the creator's admin membership in
	// one transaction.
	CreateWithAdmin(ctx context.Context, team *domain.Team) (*domain.Team, error)
	GetByID(ctx context.Context, id string) (*domain.Team, error)
	ListByUserID(ctx context.Context, userID string) ([]*domain.Team, error)
}

type MembershipRepository interface {
	// Get returns domain.ErrNotTeamMember when the pair has no membership.
	Get(ctx context.Context, userID, teamID string) (*domain.Membership, error)
	// Add returns domain.ErrAlreadyMember when the pair already exists.
	Add(ctx context.Context, m *domain.Membership) (*domain.Membership, error)
	ListMembers(ctx context.Context, teamID string) ([]*domain.Member, error)
}
