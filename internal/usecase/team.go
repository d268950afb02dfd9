package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/srivastavahk/TaskFlow/internal/domain"
	"github.com/srivastavahk/TaskFlow/internal/repository"
)

type TeamUsecase struct {
	guard   *Guard
	teams   repository.TeamRepository
	members repository.MembershipRepository
}

func NewTeamUsecase(guard *Guard, teams repository.TeamRepository, members repository.MembershipRepository) *TeamUsecase {
	return &TeamUsecase{guard: guard, teams: teams, members: members}
}

type CreateTeamInput struct {
	Name        string
	Description *string
}

// TeamDetails is a team together with its current members.
type TeamDetails struct {
	Team    *domain.Team
	Members []*domain.Member
}

// Create makes p the team's first admin.
func (u *TeamUsecase) Create(ctx context.Context, p domain.Principal, input CreateTeamInput) (*domain.Team, error) {
	team, err := u.teams.CreateWithAdmin(ctx, &domain.Team{
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		CreatedBy:   p.UserID,
	})
	if err != nil {
		return nil, fmt.Errorf("create team: %w", err)
	}
	return team, nil
}

func (u *TeamUsecase) ListForUser(ctx context.Context, p domain.Principal) ([]*domain.Team, error) {
	teams, err := u.teams.ListByUserID(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	return teams, nil
}

func (u *TeamUsecase) Get(ctx context.Context, p domain.Principal, teamID string) (*TeamDetails, error) {
	if _, err := u.guard.RequireMembership(ctx, p, teamID); err != nil {
		return nil, err
	}

	team, err := u.teams.GetByID(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("get team: %w", err)
	}
	members, err := u.members.ListMembers(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return &TeamDetails{Team: team, Members: members}, nil
}

func (u *TeamUsecase) Members(ctx context.Context, p domain.Principal, teamID string) ([]*domain.Member, error) {
	if _, err := u.guard.RequireMembership(ctx, p, teamID); err != nil {
		return nil, err
	}

	members, err := u.members.ListMembers(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return members, nil
}
