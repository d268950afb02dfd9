// Package memory is a mutex-guarded, process-local implementation of the
// repository interfaces. It backs local runs without DATABASE_URL and the
// end-to-end tests.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/srivastavahk/TaskFlow/internal/domain"
)

// Store holds every table behind one mutex, so each repository call is a
// single critical section. Values are copied in and out.
type Store struct {
	mu  sync.Mutex
	now func() time.Time

	users       map[string]domain.User
	teams       map[string]domain.Team
	memberships map[membershipKey]domain.Membership
	invitations map[string]domain.Invitation
}

type membershipKey struct {
	userID string
	teamID string
}

type Option func(*Store)

// WithClock sets the time source used for created/joined timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		now:         time.Now,
		users:       make(map[string]domain.User),
		teams:       make(map[string]domain.Team),
		memberships: make(map[membershipKey]domain.Membership),
		invitations: make(map[string]domain.Invitation),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Users() *UserRepository             { return &UserRepository{s: s} }
func (s *Store) Teams() *TeamRepository             { return &TeamRepository{s: s} }
func (s *Store) Memberships() *MembershipRepository { return &MembershipRepository{s: s} }
func (s *Store) Invitations() *InvitationRepository { return &InvitationRepository{s: s} }

// Ping always succeeds; it lets the store stand in for a database in health checks.
func (s *Store) Ping(_ context.Context) error { return nil }

func newID() string {
	return uuid.NewString()
}

func sameEmail(a, b string) bool {
	return strings.EqualFold(a, b)
}
