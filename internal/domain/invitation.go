package domain

import (
	"errors"
	"time"
)

var (
	ErrInvitationNotFound      = errors.New("invitation not found")
	ErrInvitationExists        = errors.New("an invitation for this email already exists")
	ErrInvitationExpired       = errors.New("invitation has expired")
	ErrInvitationEmailMismatch = errors.New("invitation is for a different email address")
)

// InvitationTTL is how long an issued invitation stays redeemable.
const InvitationTTL = 7 * 24 * time.Hour

// Invitation lets one email address join one team, once. Only the SHA-256 of
// the token is stored; the raw token lives in the emailed link.
type Invitation struct {
	ID        string
	Email     string
	TeamID    string
	InvitedBy string
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// ExpiredAt reports whether the invitation is no longer redeemable at now.
// A token whose expiry equals now is already expired.
func (i *Invitation) ExpiredAt(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}
