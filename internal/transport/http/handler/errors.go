package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/srivastavahk/TaskFlow/internal/domain"
	"github.com/srivastavahk/TaskFlow/internal/transport/http/response"
)

const (
	errInternalServer          = "Internal server error"
	errAuthRequired            = "Full authentication is required"
	errInvalidCredentials      = "Invalid email or password"
	errAccountInactive         = "Account is not active"
	errEmailTaken              = "An account with this email already exists"
	errTeamNotFound            = "Team not found"
	errNotTeamMember           = "You are not a member of this team"
	errInsufficientRole        = "You do not have the required role in this team"
	errAlreadyMember           = "User is already a member of this team"
	errInvitationExists        = "An invitation for this email is already pending"
	errInvitationNotFound      = "Invitation not found"
	errInvitationExpired       = "Invitation has expired"
	errInvitationEmailMismatch = "This invitation was sent to a different email address"
	errRouteNotFound           = "Resource not found"
)

// errorStatus maps a domain error to its HTTP status and client message.
// ok is false for errors that are not part of the domain taxonomy.
func errorStatus(err error) (status int, message string, ok bool) {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, errInvalidCredentials, true
	case errors.Is(err, domain.ErrAccountInactive):
		return http.StatusUnauthorized, errAccountInactive, true

	case errors.Is(err, domain.ErrNotTeamMember):
		return http.StatusForbidden, errNotTeamMember, true
	case errors.Is(err, domain.ErrInsufficientRole):
		return http.StatusForbidden, errInsufficientRole, true
	case errors.Is(err, domain.ErrInvitationExpired):
		return http.StatusForbidden, errInvitationExpired, true
	case errors.Is(err, domain.ErrInvitationEmailMismatch):
		return http.StatusForbidden, errInvitationEmailMismatch, true

	case errors.Is(err, domain.ErrTeamNotFound):
		return http.StatusNotFound, errTeamNotFound, true
	case errors.Is(err, domain.ErrInvitationNotFound):
		return http.StatusNotFound, errInvitationNotFound, true

	case errors.Is(err, domain.ErrEmailTaken):
		return http.StatusConflict, errEmailTaken, true
	case errors.Is(err, domain.ErrAlreadyMember):
		return http.StatusConflict, errAlreadyMember, true
	case errors.Is(err, domain.ErrInvitationExists):
		return http.StatusConflict, errInvitationExists, true
	}
	return http.StatusInternalServerError, errInternalServer, false
}

// respondError writes the mapped error. Unmapped errors are logged with op
// and surface as a generic 500.
func respondError(c *gin.Context, logger *slog.Logger, op string, err error) {
	status, message, ok := errorStatus(err)
	if !ok {
		logger.ErrorContext(c.Request.Context(), op, "error", err)
	}
	response.Err(c, status, message)
}

// NoRoute answers unmatched paths with the standard error body.
func NoRoute(c *gin.Context) {
	response.Err(c, http.StatusNotFound, errRouteNotFound)
}
