package usecase

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/srivastavahk/TaskFlow/internal/domain"
	"github.com/srivastavahk/TaskFlow/internal/email"
	"github.com/srivastavahk/TaskFlow/internal/metrics"
	"github.com/srivastavahk/TaskFlow/internal/repository"
)

type InvitationUsecase struct {
	guard       *Guard
	users       repository.UserRepository
	teams       repository.TeamRepository
	members     repository.MembershipRepository
	invitations repository.InvitationRepository
	email       email.Sender
	linkBase    string
	logger      *slog.Logger
	now         func() time.Time
}

type InvitationOption func(*InvitationUsecase)

// WithInvitationClock overrides the time source used for expiry decisions.
func WithInvitationClock(now func() time.Time) InvitationOption {
	return func(u *InvitationUsecase) { u.now = now }
}

func NewInvitationUsecase(
	guard *Guard,
	users repository.UserRepository,
	teams repository.TeamRepository,
	members repository.MembershipRepository,
	invitations repository.InvitationRepository,
	sender email.Sender,
	linkBase string,
	logger *slog.Logger,
	opts ...InvitationOption,
) *InvitationUsecase {
	u := &InvitationUsecase{
		guard:       guard,
		users:       users,
		teams:       teams,
		members:     members,
		invitations: invitations,
		email:       sender,
		linkBase:    strings.TrimRight(linkBase, "/"),
		logger:      logger.With("component", "invitation_usecase"),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Invite creates a single-use invitation for inviteeEmail to join teamID and
// emails the link. Only team admins may invite.
func (u *InvitationUsecase) Invite(ctx context.Context, admin domain.Principal, teamID, inviteeEmail string) (*domain.Invitation, error) {
	if _, err := u.guard.RequireRole(ctx, admin, teamID, domain.RoleAdmin); err != nil {
		return nil, err
	}
	inviteeEmail = strings.TrimSpace(inviteeEmail)

	if err := u.ensureNotMember(ctx, teamID, inviteeEmail); err != nil {
		return nil, err
	}

	rawToken, tokenHash, err := newInvitationToken()
	if err != nil {
		return nil, err
	}

	now := u.now()
	inv, err := u.invitations.Create(ctx, &domain.Invitation{
		Email:     inviteeEmail,
		TeamID:    teamID,
		InvitedBy: admin.UserID,
		TokenHash: tokenHash,
		ExpiresAt: now.Add(domain.InvitationTTL),
		CreatedAt: now,
	}, now)
	if err != nil {
		if errors.Is(err, domain.ErrInvitationExists) {
			return nil, domain.ErrInvitationExists
		}
		return nil, fmt.Errorf("create invitation: %w", err)
	}
	metrics.InvitationsIssuedTotal.Inc()

	u.notify(ctx, admin, inv, rawToken)
	return inv, nil
}

func (u *InvitationUsecase) ensureNotMember(ctx context.Context, teamID, inviteeEmail string) error {
	user, err := u.users.FindByEmail(ctx, inviteeEmail)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil
		}
		return fmt.Errorf("find invitee: %w", err)
	}

	_, err = u.members.Get(ctx, user.ID, teamID)
	switch {
	case err == nil:
		return domain.ErrAlreadyMember
	case errors.Is(err, domain.ErrNotTeamMember):
		return nil
	default:
		return fmt.Errorf("get membership: %w", err)
	}
}

// notify sends the invitation email. Delivery failures are logged; the
// invitation stands either way.
func (u *InvitationUsecase) notify(ctx context.Context, admin domain.Principal, inv *domain.Invitation, rawToken string) {
	teamName := inv.TeamID
	if team, err := u.teams.GetByID(ctx, inv.TeamID); err == nil {
		teamName = team.Name
	}

	msg := email.InvitationMessage(inv.Email, teamName, admin.Name, email.InvitationLink(u.linkBase, rawToken))
	if err := u.email.Send(ctx, msg); err != nil {
		u.logger.WarnContext(ctx, "invitation email not sent",
			"invitation_id", inv.ID,
			"team_id", inv.TeamID,
			"error", err,
		)
	}
}

// Accept redeems rawToken for p and returns the team joined. Redemption is
// single-use: of several concurrent accepts only one succeeds.
func (u *InvitationUsecase) Accept(ctx context.Context, p domain.Principal, rawToken string) (*domain.Team, error) {
	inv, err := u.invitations.FindByTokenHash(ctx, hashToken(rawToken))
	if err != nil {
		if errors.Is(err, domain.ErrInvitationNotFound) {
			metrics.InvitationRedemptionsTotal.WithLabelValues("not_found").Inc()
			return nil, domain.ErrInvitationNotFound
		}
		return nil, fmt.Errorf("find invitation: %w", err)
	}

	if inv.ExpiredAt(u.now()) {
		if err := u.invitations.Delete(ctx, inv.ID); err != nil && !errors.Is(err, domain.ErrInvitationNotFound) {
			return nil, fmt.Errorf("delete expired invitation: %w", err)
		}
		metrics.InvitationRedemptionsTotal.WithLabelValues("expired").Inc()
		return nil, domain.ErrInvitationExpired
	}

	// A mismatch leaves the invitation in place for its rightful recipient.
	if !strings.EqualFold(inv.Email, p.Email) {
		metrics.InvitationRedemptionsTotal.WithLabelValues("email_mismatch").Inc()
		return nil, domain.ErrInvitationEmailMismatch
	}

	if _, err := u.invitations.Redeem(ctx, inv.ID, p.UserID, domain.RoleMember); err != nil {
		switch {
		case errors.Is(err, domain.ErrInvitationNotFound):
			metrics.InvitationRedemptionsTotal.WithLabelValues("not_found").Inc()
			return nil, domain.ErrInvitationNotFound
		case errors.Is(err, domain.ErrAlreadyMember):
			metrics.InvitationRedemptionsTotal.WithLabelValues("already_member").Inc()
			return nil, domain.ErrAlreadyMember
		default:
			return nil, fmt.Errorf("redeem invitation: %w", err)
		}
	}
	metrics.InvitationRedemptionsTotal.WithLabelValues("accepted").Inc()

	team, err := u.teams.GetByID(ctx, inv.TeamID)
	if err != nil {
		return nil, fmt.Errorf("get team: %w", err)
	}
	return team, nil
}

func newInvitationToken() (raw, hash string, err error) {
	b := make([]byte, 32)
	if _, err = io.ReadFull(rand.Reader, b); err != nil {
		return "", "", fmt.Errorf("generate token: %w", err)
	}
	raw = hex.EncodeToString(b)
	return raw, hashToken(raw), nil
}

func hashToken(raw string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(raw)))
}
