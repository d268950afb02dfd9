package usecase_test

import (
	"context"
	"log/slog"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/srivastavahk/TaskFlow/internal/domain"
	"github.com/srivastavahk/TaskFlow/internal/email"
	"github.com/srivastavahk/TaskFlow/internal/infrastructure/memory"
	"github.com/srivastavahk/TaskFlow/internal/token"
	"github.com/srivastavahk/TaskFlow/internal/usecase"
)

// ---- fakes ----

type fakeEmailSender struct {
	mu   sync.Mutex
	sent []email.Message
	send func(ctx context.Context, msg email.Message) error
}

func (s *fakeEmailSender) Send(ctx context.Context, msg email.Message) error {
	s.mu.Lock()
	s.sent = append(s.sent, msg)
	s.mu.Unlock()
	if s.send != nil {
		return s.send(ctx, msg)
	}
	return nil
}

var tokenInLink = regexp.MustCompile(`token=([0-9a-f]{64})`)

// lastToken pulls the raw invitation token out of the most recent email.
func (s *fakeEmailSender) lastToken(t *testing.T) string {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.sent, "no email sent")
	m := tokenInLink.FindStringSubmatch(s.sent[len(s.sent)-1].Text)
	require.Len(t, m, 2, "no token in email body")
	return m[1]
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// ---- fixture ----

const testLinkBase = "http://localhost:3000"

var testKey = []byte("test-jwt-secret-at-least-32-bytes!!")

type fixture struct {
	store       *memory.Store
	clock       *clock
	sender      *fakeEmailSender
	tokens      *token.Service
	guard       *usecase.Guard
	auth        *usecase.AuthUsecase
	teams       *usecase.TeamUsecase
	invitations *usecase.InvitationUsecase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	c := &clock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	store := memory.NewStore(memory.WithClock(c.now))

	tokens, err := token.New(testKey, token.WithClock(c.now))
	require.NoError(t, err)

	sender := &fakeEmailSender{}
	guard := usecase.NewGuard(store.Teams(), store.Memberships())

	return &fixture{
		store:  store,
		clock:  c,
		sender: sender,
		tokens: tokens,
		guard:  guard,
		auth: usecase.NewAuthUsecase(store.Users(), tokens, usecase.AuthConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
			BcryptCost: bcrypt.MinCost,
		}),
		teams: usecase.NewTeamUsecase(guard, store.Teams(), store.Memberships()),
		invitations: usecase.NewInvitationUsecase(
			guard, store.Users(), store.Teams(), store.Memberships(), store.Invitations(),
			sender, testLinkBase, slog.Default(),
			usecase.WithInvitationClock(c.now),
		),
	}
}

func (f *fixture) register(t *testing.T, name, email string) domain.Principal {
	t.Helper()
	u, err := f.auth.Register(context.Background(), usecase.RegisterInput{
		Name:     name,
		Email:    email,
		Password: "password123",
	})
	require.NoError(t, err)
	return domain.NewPrincipal(u)
}

func (f *fixture) createTeam(t *testing.T, owner domain.Principal, name string) *domain.Team {
	t.Helper()
	team, err := f.teams.Create(context.Background(), owner, usecase.CreateTeamInput{Name: name})
	require.NoError(t, err)
	return team
}

// join invites p into team as a member and accepts on their behalf.
func (f *fixture) join(t *testing.T, admin, p domain.Principal, teamID string) {
	t.Helper()
	ctx := context.Background()
	_, err := f.invitations.Invite(ctx, admin, teamID, p.Email)
	require.NoError(t, err)
	_, err = f.invitations.Accept(ctx, p, f.sender.lastToken(t))
	require.NoError(t, err)
}
