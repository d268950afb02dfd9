package usecase_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srivastavahk/TaskFlow/internal/domain"
	"github.com/srivastavahk/TaskFlow/internal/email"
)

func TestInvite_SendsLinkAndStoresOnlyHash(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.register(t, "Admin", "admin@x.io")
	team := f.createTeam(t, admin, "Core")

	inv, err := f.invitations.Invite(ctx, admin, team.ID, "carol@x.io")
	require.NoError(t, err)
	assert.Equal(t, f.clock.now().Add(domain.InvitationTTL), inv.ExpiresAt)

	require.Len(t, f.sender.sent, 1)
	assert.Equal(t, "carol@x.io", f.sender.sent[0].To)
	assert.Contains(t, f.sender.sent[0].HTML, testLinkBase+"/invite?token=")
	assert.Contains(t, f.sender.sent[0].Subject, "Core")

	raw := f.sender.lastToken(t)
	assert.NotEqual(t, raw, inv.TokenHash)

	_, err = f.store.Invitations().FindByTokenHash(ctx, raw)
	assert.ErrorIs(t, err, domain.ErrInvitationNotFound, "raw token must not be stored")
}

func TestInvite_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.register(t, "Admin", "admin@x.io")
	member := f.register(t, "Member", "member@x.io")
	outsider := f.register(t, "Out", "out@x.io")
	team := f.createTeam(t, admin, "Core")
	f.join(t, admin, member, team.ID)

	_, err := f.invitations.Invite(ctx, admin, team.ID, "pending@x.io")
	require.NoError(t, err)

	tests := []struct {
		name    string
		inviter domain.Principal
		teamID  string
		email   string
		wantErr error
	}{
		{"unknown team", admin, "missing", "c@x.io", domain.ErrTeamNotFound},
		{"non-member inviter", outsider, team.ID, "c@x.io", domain.ErrNotTeamMember},
		{"member inviter", member, team.ID, "c@x.io", domain.ErrInsufficientRole},
		{"already a member", admin, team.ID, "MEMBER@x.io", domain.ErrAlreadyMember},
		{"outstanding invitation", admin, team.ID, "Pending@X.io", domain.ErrInvitationExists},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.invitations.Invite(ctx, tt.inviter, tt.teamID, tt.email)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestInvite_ExpiredInvitationCanBeReissued(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.register(t, "Admin", "admin@x.io")
	team := f.createTeam(t, admin, "Core")

	_, err := f.invitations.Invite(ctx, admin, team.ID, "c@x.io")
	require.NoError(t, err)

	f.clock.advance(domain.InvitationTTL)
	_, err = f.invitations.Invite(ctx, admin, team.ID, "c@x.io")
	assert.NoError(t, err)
}

func TestInvite_EmailFailureDoesNotFailInvite(t *testing.T) {
	f := newFixture(t)
	f.sender.send = func(context.Context, email.Message) error {
		return errors.New("smtp down")
	}
	admin := f.register(t, "Admin", "admin@x.io")
	team := f.createTeam(t, admin, "Core")

	inv, err := f.invitations.Invite(context.Background(), admin, team.ID, "c@x.io")
	require.NoError(t, err)
	assert.NotEmpty(t, inv.ID)
}

func TestAccept_JoinsAsMemberAndIsSingleUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.register(t, "Admin", "admin@x.io")
	carol := f.register(t, "Carol", "Carol@X.io")
	team := f.createTeam(t, admin, "Core")

	_, err := f.invitations.Invite(ctx, admin, team.ID, "carol@x.io")
	require.NoError(t, err)
	raw := f.sender.lastToken(t)

	joined, err := f.invitations.Accept(ctx, carol, raw)
	require.NoError(t, err)
	assert.Equal(t, team.ID, joined.ID)

	m, err := f.guard.RequireRole(ctx, carol, team.ID, domain.RoleMember)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleMember, m.Role)

	_, err = f.invitations.Accept(ctx, carol, raw)
	assert.ErrorIs(t, err, domain.ErrInvitationNotFound)
}

func TestAccept_ExpiredIsForbiddenThenGone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.register(t, "Admin", "admin@x.io")
	carol := f.register(t, "Carol", "carol@x.io")
	team := f.createTeam(t, admin, "Core")

	_, err := f.invitations.Invite(ctx, admin, team.ID, carol.Email)
	require.NoError(t, err)
	raw := f.sender.lastToken(t)

	f.clock.advance(domain.InvitationTTL - time.Second)
	f.clock.advance(time.Second) // exactly at expiry

	_, err = f.invitations.Accept(ctx, carol, raw)
	assert.ErrorIs(t, err, domain.ErrInvitationExpired)

	_, err = f.invitations.Accept(ctx, carol, raw)
	assert.ErrorIs(t, err, domain.ErrInvitationNotFound)

	_, err = f.guard.RequireMembership(ctx, carol, team.ID)
	assert.ErrorIs(t, err, domain.ErrNotTeamMember)
}

func TestAccept_EmailMismatchKeepsInvitation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.register(t, "Admin", "admin@x.io")
	carol := f.register(t, "Carol", "carol@x.io")
	dave := f.register(t, "Dave", "dave@x.io")
	team := f.createTeam(t, admin, "Core")

	_, err := f.invitations.Invite(ctx, admin, team.ID, carol.Email)
	require.NoError(t, err)
	raw := f.sender.lastToken(t)

	_, err = f.invitations.Accept(ctx, dave, raw)
	assert.ErrorIs(t, err, domain.ErrInvitationEmailMismatch)

	_, err = f.invitations.Accept(ctx, carol, raw)
	assert.NoError(t, err, "the intended recipient can still accept")
}

func TestAccept_AlreadyMemberConsumesInvitation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.register(t, "Admin", "admin@x.io")
	carol := f.register(t, "Carol", "carol@x.io")
	team := f.createTeam(t, admin, "Core")

	_, err := f.invitations.Invite(ctx, admin, team.ID, carol.Email)
	require.NoError(t, err)
	raw := f.sender.lastToken(t)

	// carol joins through another path before accepting
	_, err = f.store.Memberships().Add(ctx, &domain.Membership{UserID: carol.UserID, TeamID: team.ID, Role: domain.RoleViewer})
	require.NoError(t, err)

	_, err = f.invitations.Accept(ctx, carol, raw)
	assert.ErrorIs(t, err, domain.ErrAlreadyMember)

	_, err = f.invitations.Accept(ctx, carol, raw)
	assert.ErrorIs(t, err, domain.ErrInvitationNotFound)
}

func TestAccept_UnknownToken(t *testing.T) {
	f := newFixture(t)
	carol := f.register(t, "Carol", "carol@x.io")

	_, err := f.invitations.Accept(context.Background(), carol, strings.Repeat("ab", 32))
	assert.ErrorIs(t, err, domain.ErrInvitationNotFound)
}

func TestAccept_ConcurrentRedemptionHasOneWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.register(t, "Admin", "admin@x.io")
	carol := f.register(t, "Carol", "carol@x.io")
	team := f.createTeam(t, admin, "Core")

	_, err := f.invitations.Invite(ctx, admin, team.ID, carol.Email)
	require.NoError(t, err)
	raw := f.sender.lastToken(t)

	const n = 32
	errs := make([]error, n)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, errs[i] = f.invitations.Accept(ctx, carol, raw)
		}()
	}
	close(start)
	wg.Wait()

	var wins int
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrInvitationNotFound)
	}
	assert.Equal(t, 1, wins)

	members, err := f.teams.Members(ctx, admin, team.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)
}
