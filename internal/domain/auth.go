package domain

import (
	"errors"
	"time"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email is already in use")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountInactive    = errors.New("account is not active")
)

type UserStatus string

const (
	UserStatusPending   UserStatus = "pending"
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
)

// CanAuthenticate reports whether an account in this status may log in or
// present a bearer token. Only active accounts can.
func (s UserStatus) CanAuthenticate() bool {
	return s == UserStatusActive
}

// IsLocked reports whether the account was suspended by an operator.
func (s UserStatus) IsLocked() bool {
	return s == UserStatusSuspended
}

// User is the persisted credential record. Email is stored as entered and
// compared case-insensitively.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Status       UserStatus
	AvatarURL    *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Principal is the authenticated caller of a single request.
type Principal struct {
	UserID string
	Email  string
	Name   string
	Status UserStatus
}

func NewPrincipal(u *User) Principal {
	return Principal{
		UserID: u.ID,
		Email:  u.Email,
		Name:   u.Name,
		Status: u.Status,
	}
}
