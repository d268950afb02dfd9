package memory

import (
	"context"
	"sort"

	"github.com/srivastavahk/TaskFlow/internal/domain"
)

type TeamRepository struct {
	s *Store
}

func (r *TeamRepository) CreateWithAdmin(_ context.Context, team *domain.Team) (*domain.Team, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t := *team
	t.ID = newID()
	t.CreatedAt = r.s.now()
	t.UpdatedAt = t.CreatedAt
	r.s.teams[t.ID] = t

	r.s.memberships[membershipKey{userID: t.CreatedBy, teamID: t.ID}] = domain.Membership{
		UserID:   t.CreatedBy,
		TeamID:   t.ID,
		Role:     domain.RoleAdmin,
		JoinedAt: t.CreatedAt,
	}
	return &t, nil
}

func (r *TeamRepository) GetByID(_ context.Context, id string) (*domain.Team, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.teams[id]
	if !ok {
		return nil, domain.ErrTeamNotFound
	}
	return &t, nil
}

func (r *TeamRepository) ListByUserID(_ context.Context, userID string) ([]*domain.Team, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	teams := []*domain.Team{}
	for key := range r.s.memberships {
		if key.userID != userID {
			continue
		}
		if t, ok := r.s.teams[key.teamID]; ok {
			teams = append(teams, &t)
		}
	}
	sort.Slice(teams, func(i, j int) bool {
		if teams[i].CreatedAt.Equal(teams[j].CreatedAt) {
			return teams[i].ID < teams[j].ID
		}
		return teams[i].CreatedAt.Before(teams[j].CreatedAt)
	})
	return teams, nil
}

type MembershipRepository struct {
	s *Store
}

func (r *MembershipRepository) Get(_ context.Context, userID, teamID string) (*domain.Membership, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	m, ok := r.s.memberships[membershipKey{userID: userID, teamID: teamID}]
	if !ok {
		return nil, domain.ErrNotTeamMember
	}
	return &m, nil
}

func (r *MembershipRepository) Add(_ context.Context, m *domain.Membership) (*domain.Membership, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return r.s.addMembershipLocked(m.UserID, m.TeamID, m.Role)
}

func (r *MembershipRepository) ListMembers(_ context.Context, teamID string) ([]*domain.Member, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	members := []*domain.Member{}
	for key, m := range r.s.memberships {
		if key.teamID != teamID {
			continue
		}
		u, ok := r.s.users[key.userID]
		if !ok {
			continue
		}
		members = append(members, &domain.Member{
			UserID:   u.ID,
			Name:     u.Name,
			Email:    u.Email,
			Role:     m.Role,
			JoinedAt: m.JoinedAt,
		})
	}
	sort.Slice(members, func(i, j int) bool {
		if members[i].JoinedAt.Equal(members[j].JoinedAt) {
			return members[i].UserID < members[j].UserID
		}
		return members[i].JoinedAt.Before(members[j].JoinedAt)
	})
	return members, nil
}

// addMembershipLocked must be called with s.mu held.
func (s *Store) addMembershipLocked(userID, teamID string, role domain.Role) (*domain.Membership, error) {
	key := membershipKey{userID: userID, teamID: teamID}
	if _, exists := s.memberships[key]; exists {
		return nil, domain.ErrAlreadyMember
	}
	m := domain.Membership{
		UserID:   userID,
		TeamID:   teamID,
		Role:     role,
		JoinedAt: s.now(),
	}
	s.memberships[key] = m
	return &m, nil
}
