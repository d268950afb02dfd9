package domain

import (
	"errors"
	"time"
)

var (
	ErrTeamNotFound     = errors.New("team not found")
	ErrNotTeamMember    = errors.New("user is not a member of this team")
	ErrInsufficientRole = errors.New("user does not have the required team role")
	ErrAlreadyMember    = errors.New("user is already a member of this team")
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
	RoleViewer Role = "viewer"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleMember, RoleViewer:
		return true
	}
	return false
}

type Team struct {
	ID          string
	Name        string
	Description *string
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Membership binds one user to one team. (UserID, TeamID) is unique.
type Membership struct {
	UserID   string
	TeamID   string
	Role     Role
	JoinedAt time.Time
}

// Member is a membership joined with the user it belongs to, for listings.
type Member struct {
	UserID   string
	Name     string
	Email    string
	Role     Role
	JoinedAt time.Time
}
