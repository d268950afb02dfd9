package repository

import (
	"context"
	"time"

	"github.com/srivastavahk/TaskFlow/internal/domain"
)

type InvitationRepository interface {
	// Create persists inv. An expired invitation for the same (email, team)
	// is replaced; a live one yields domain.ErrInvitationExists.
	Create(ctx context.Context, inv *domain.Invitation, now time.Time) (*domain.Invitation, error)
	FindByTokenHash(ctx context.Context, tokenHash string) (*domain.Invitation, error)
	Delete(ctx context.Context, id string) error

	// Redeem atomically deletes the invitation and adds userID to its team
	// with role. Exactly one caller per invitation can observe the delete:
	// the others get domain.ErrInvitationNotFound. If the user is already a
	// member the delete still commits and domain.ErrAlreadyMember is returned.
	Redeem(ctx context.Context, invitationID, userID string, role domain.Role) (*domain.Membership, error)

	// DeleteExpiredBefore purges invitations whose expiry is older than cutoff.
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time, limit int) (int, error)
}
