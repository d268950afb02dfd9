package memory

import (
	"context"
	"sort"
	"time"

	"github.com/srivastavahk/TaskFlow/internal/domain"
)

type InvitationRepository struct {
	s *Store
}

func (r *InvitationRepository) Create(_ context.Context, inv *domain.Invitation, now time.Time) (*domain.Invitation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, existing := range r.s.invitations {
		if existing.TeamID != inv.TeamID || !sameEmail(existing.Email, inv.Email) {
			continue
		}
		if !existing.ExpiredAt(now) {
			return nil, domain.ErrInvitationExists
		}
		delete(r.s.invitations, id)
	}

	created := *inv
	created.ID = newID()
	r.s.invitations[created.ID] = created
	return &created, nil
}

func (r *InvitationRepository) FindByTokenHash(_ context.Context, tokenHash string) (*domain.Invitation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, inv := range r.s.invitations {
		if inv.TokenHash == tokenHash {
			return &inv, nil
		}
	}
	return nil, domain.ErrInvitationNotFound
}

func (r *InvitationRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.invitations[id]; !ok {
		return domain.ErrInvitationNotFound
	}
	delete(r.s.invitations, id)
	return nil
}

func (r *InvitationRepository) Redeem(_ context.Context, invitationID, userID string, role domain.Role) (*domain.Membership, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	inv, ok := r.s.invitations[invitationID]
	if !ok {
		return nil, domain.ErrInvitationNotFound
	}
	delete(r.s.invitations, invitationID)

	return r.s.addMembershipLocked(userID, inv.TeamID, role)
}

func (r *InvitationRepository) DeleteExpiredBefore(_ context.Context, cutoff time.Time, limit int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var expired []domain.Invitation
	for _, inv := range r.s.invitations {
		if inv.ExpiresAt.Before(cutoff) {
			expired = append(expired, inv)
		}
	}
	sort.Slice(expired, func(i, j int) bool {
		return expired[i].ExpiresAt.Before(expired[j].ExpiresAt)
	})
	if limit > 0 && len(expired) > limit {
		expired = expired[:limit]
	}
	for _, inv := range expired {
		delete(r.s.invitations, inv.ID)
	}
	return len(expired), nil
}
