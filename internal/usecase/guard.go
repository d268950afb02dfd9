package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/srivastavahk/TaskFlow/internal/domain"
	"github.com/srivastavahk/TaskFlow/internal/metrics"
	"github.com/srivastavahk/TaskFlow/internal/repository"
)

// Guard answers team-scoped authorization questions. Every call reads the
// store; nothing is cached between requests.
type Guard struct {
	teams   repository.TeamRepository
	members repository.MembershipRepository
}

func NewGuard(teams repository.TeamRepository, members repository.MembershipRepository) *Guard {
	return &Guard{teams: teams, members: members}
}

// RequireMembership resolves the team first, so a missing team is reported
// as not found even to non-members.
func (g *Guard) RequireMembership(ctx context.Context, p domain.Principal, teamID string) (*domain.Membership, error) {
	if _, err := g.teams.GetByID(ctx, teamID); err != nil {
		if errors.Is(err, domain.ErrTeamNotFound) {
			return nil, domain.ErrTeamNotFound
		}
		return nil, fmt.Errorf("get team: %w", err)
	}

	m, err := g.members.Get(ctx, p.UserID, teamID)
	if err != nil {
		if errors.Is(err, domain.ErrNotTeamMember) {
			metrics.AuthzDenialsTotal.WithLabelValues("membership").Inc()
			return nil, domain.ErrNotTeamMember
		}
		return nil, fmt.Errorf("get membership: %w", err)
	}
	return m, nil
}

// RequireRole demands exactly role. Roles are not ordered: an admin does not
// pass a member check.
func (g *Guard) RequireRole(ctx context.Context, p domain.Principal, teamID string, role domain.Role) (*domain.Membership, error) {
	m, err := g.RequireMembership(ctx, p, teamID)
	if err != nil {
		return nil, err
	}
	if m.Role != role {
		metrics.AuthzDenialsTotal.WithLabelValues("role").Inc()
		return nil, domain.ErrInsufficientRole
	}
	return m, nil
}
