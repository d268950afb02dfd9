package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/srivastavahk/TaskFlow/internal/domain"
	"github.com/srivastavahk/TaskFlow/internal/principal"
	"github.com/srivastavahk/TaskFlow/internal/transport/http/response"
	"github.com/srivastavahk/TaskFlow/internal/usecase"
)

type teamUsecaser interface {
	Create(ctx context.Context, p domain.Principal, input usecase.CreateTeamInput) (*domain.Team, error)
	ListForUser(ctx context.Context, p domain.Principal) ([]*domain.Team, error)
	Get(ctx context.Context, p domain.Principal, teamID string) (*usecase.TeamDetails, error)
	Members(ctx context.Context, p domain.Principal, teamID string) ([]*domain.Member, error)
}

type invitationUsecaser interface {
	Invite(ctx context.Context, admin domain.Principal, teamID, email string) (*domain.Invitation, error)
	Accept(ctx context.Context, p domain.Principal, rawToken string) (*domain.Team, error)
}

type TeamHandler struct {
	teams       teamUsecaser
	invitations invitationUsecaser
	logger      *slog.Logger
}

func NewTeamHandler(teams teamUsecaser, invitations invitationUsecaser, logger *slog.Logger) *TeamHandler {
	return &TeamHandler{
		teams:       teams,
		invitations: invitations,
		logger:      logger.With("component", "team_handler"),
	}
}

type createTeamRequest struct {
	Name        string  `json:"name"        binding:"required,min=3,max=100"`
	Description *string `json:"description" binding:"omitempty,max=500"`
}

type inviteRequest struct {
	Email string `json:"email" binding:"required,email,max=254"`
}

type acceptInviteRequest struct {
	Token string `json:"token" binding:"required,max=128"`
}

type teamResponse struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description *string          `json:"description"`
	CreatedBy   string           `json:"createdBy"`
	CreatedAt   time.Time        `json:"createdAt"`
	Members     []memberResponse `json:"members,omitempty"`
}

type memberResponse struct {
	UserID   string      `json:"userId"`
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Role     domain.Role `json:"role"`
	JoinedAt time.Time   `json:"joinedAt"`
}

type inviteResponse struct {
	Message   string    `json:"message"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func toTeamResponse(t *domain.Team) teamResponse {
	return teamResponse{
		ID:          t.ID,
		Name:        t.Name,
		Description: t.Description,
		CreatedBy:   t.CreatedBy,
		CreatedAt:   t.CreatedAt,
	}
}

func toMemberResponses(members []*domain.Member) []memberResponse {
	out := make([]memberResponse, len(members))
	for i, m := range members {
		out[i] = memberResponse{
			UserID:   m.UserID,
			Name:     m.Name,
			Email:    m.Email,
			Role:     m.Role,
			JoinedAt: m.JoinedAt,
		}
	}
	return out
}

// mustPrincipal returns the caller or writes 401. Route policy already
// guarantees one on these routes.
func mustPrincipal(c *gin.Context) (domain.Principal, bool) {
	p, ok := principal.FromContext(c.Request.Context())
	if !ok {
		response.Err(c, http.StatusUnauthorized, errAuthRequired)
	}
	return p, ok
}

// POST /teams
func (h *TeamHandler) Create(c *gin.Context) {
	p, ok := mustPrincipal(c)
	if !ok {
		return
	}

	var req createTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationErr(c, err)
		return
	}

	team, err := h.teams.Create(c.Request.Context(), p, usecase.CreateTeamInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		respondError(c, h.logger, "create team", err)
		return
	}

	c.JSON(http.StatusCreated, toTeamResponse(team))
}

// GET /teams
func (h *TeamHandler) List(c *gin.Context) {
	p, ok := mustPrincipal(c)
	if !ok {
		return
	}

	teams, err := h.teams.ListForUser(c.Request.Context(), p)
	if err != nil {
		respondError(c, h.logger, "list teams", err)
		return
	}

	out := make([]teamResponse, len(teams))
	for i, t := range teams {
		out[i] = toTeamResponse(t)
	}
	c.JSON(http.StatusOK, out)
}

// GET /teams/:id
func (h *TeamHandler) Get(c *gin.Context) {
	p, ok := mustPrincipal(c)
	if !ok {
		return
	}

	details, err := h.teams.Get(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, "get team", err)
		return
	}

	resp := toTeamResponse(details.Team)
	resp.Members = toMemberResponses(details.Members)
	c.JSON(http.StatusOK, resp)
}

// GET /teams/:id/members
func (h *TeamHandler) Members(c *gin.Context) {
	p, ok := mustPrincipal(c)
	if !ok {
		return
	}

	members, err := h.teams.Members(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, "list members", err)
		return
	}

	c.JSON(http.StatusOK, toMemberResponses(members))
}

// POST /teams/:id/invite
func (h *TeamHandler) Invite(c *gin.Context) {
	p, ok := mustPrincipal(c)
	if !ok {
		return
	}

	var req inviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationErr(c, err)
		return
	}

	inv, err := h.invitations.Invite(c.Request.Context(), p, c.Param("id"), req.Email)
	if err != nil {
		respondError(c, h.logger, "invite", err)
		return
	}

	c.JSON(http.StatusOK, inviteResponse{
		Message:   "Invitation sent",
		Email:     inv.Email,
		ExpiresAt: inv.ExpiresAt,
	})
}

// POST /teams/invite/accept
func (h *TeamHandler) AcceptInvite(c *gin.Context) {
	p, ok := mustPrincipal(c)
	if !ok {
		return
	}

	var req acceptInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationErr(c, err)
		return
	}

	team, err := h.invitations.Accept(c.Request.Context(), p, req.Token)
	if err != nil {
		respondError(c, h.logger, "accept invitation", err)
		return
	}

	c.JSON(http.StatusOK, toTeamResponse(team))
}
