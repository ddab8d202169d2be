package handlers

import (
	"net/http"

	"commhub/internal/auth"
	"commhub/internal/realtime"
	"commhub/internal/repo"
	"commhub/internal/services"
	"commhub/pkg/models"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// TeamHandler handles organization member endpoints
type TeamHandler struct {
	users         *repo.UserRepository
	organizations *repo.OrganizationRepository
	authService   *auth.Service
	presence      *services.PresenceService
	events        realtime.Publisher
}

// NewTeamHandler creates a new team handler
func NewTeamHandler(users *repo.UserRepository, organizations *repo.OrganizationRepository, authService *auth.Service, presence *services.PresenceService, events realtime.Publisher) *TeamHandler {
	if events == nil {
		events = realtime.NopPublisher{}
	}
	return &TeamHandler{
		users:         users,
		organizations: organizations,
		authService:   authService,
		presence:      presence,
		events:        events,
	}
}

// List godoc
// @Summary List team members
// @Description Organization staff with live presence overlaid from Redis
// @Tags team
// @Produce json
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} models.PaginationResult[models.User]
// @Router /team [get]
func (h *TeamHandler) List(c echo.Context) error {
	orgID, err := orgFromContext(c)
	if err != nil {
		return err
	}

	limit, offset := pagination(c)
	result, err := h.users.ListByOrganization(orgID, limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to list team"})
	}

	if h.presence != nil {
		result.Data = h.presence.Overlay(c.Request().Context(), orgID, result.Data)
	}

	return c.JSON(http.StatusOK, result)
}

// InviteRequest creates a new member inside the caller's organization
type InviteRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"required,oneof=org_admin supervisor agent"`
}

// Invite godoc
// @Summary Invite a team member
// @Description Creates a member account; rejected when the seat limit is reached
// @Tags team
// @Accept json
// @Produce json
// @Param request body InviteRequest true "Member data"
// @Success 201 {object} models.User
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /team [post]
func (h *TeamHandler) Invite(c echo.Context) error {
	orgID, err := orgFromContext(c)
	if err != nil {
		return err
	}

	var req InviteRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	org, err := h.organizations.GetByID(orgID)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Organization not found"})
	}

	count, err := h.users.CountByOrganization(orgID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to check seats"})
	}
	if org.MaxUsers > 0 && count >= int64(org.MaxUsers) {
		return c.JSON(http.StatusConflict, map[string]string{"error": "Seat limit reached for this plan"})
	}

	hashed, err := h.authService.HashPassword(req.Password)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to process password"})
	}

	user := &models.User{
		OrganizationID: &orgID,
		Email:          req.Email,
		Password:       hashed,
		Name:           req.Name,
		Role:           req.Role,
		Avatar:         models.AvatarURL(req.Email),
		Status:         models.PresenceOffline,
		Performance:    models.DefaultPerformance(),
		IsActive:       true,
	}

	if err := h.users.Create(user); err != nil {
		return c.JSON(http.StatusConflict, map[string]string{"error": "Email already in use"})
	}

	return c.JSON(http.StatusCreated, user)
}

// UpdateMemberRequest changes a member's role or active flag
type UpdateMemberRequest struct {
	Role     string `json:"role" validate:"omitempty,oneof=org_admin supervisor agent"`
	IsActive *bool  `json:"is_active"`
}

// UpdateMember godoc
// @Summary Update a team member
// @Tags team
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param request body UpdateMemberRequest true "Changes"
// @Success 200 {object} models.User
// @Failure 404 {object} map[string]string
// @Router /team/{id} [put]
func (h *TeamHandler) UpdateMember(c echo.Context) error {
	orgID, err := orgFromContext(c)
	if err != nil {
		return err
	}

	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req UpdateMemberRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	user, err := h.users.GetByID(id)
	if err != nil || user.OrganizationID == nil || *user.OrganizationID != orgID {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Member not found"})
	}

	if req.Role != "" {
		user.Role = req.Role
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}

	if err := h.users.Update(user); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to update member"})
	}

	h.events.Publish(realtime.Event{
		Table:          realtime.TableUsers,
		Type:           realtime.EventUpdate,
		OrganizationID: orgID,
		RowID:          user.ID,
		New:            user,
	})

	return c.JSON(http.StatusOK, user)
}

// Deactivate godoc
// @Summary Deactivate a team member
// @Tags team
// @Param id path string true "User ID"
// @Success 204
// @Failure 404 {object} map[string]string
// @Router /team/{id} [delete]
func (h *TeamHandler) Deactivate(c echo.Context) error {
	orgID, err := orgFromContext(c)
	if err != nil {
		return err
	}

	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	if err := h.users.Deactivate(orgID, id); err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Member not found"})
	}

	return c.NoContent(http.StatusNoContent)
}

// HeartbeatRequest refreshes the caller's presence
type HeartbeatRequest struct {
	Status string `json:"status" validate:"required,oneof=online away busy offline"`
}

// Heartbeat godoc
// @Summary Report presence
// @Description Clients call this periodically; an expired heartbeat reads as offline
// @Tags team
// @Accept json
// @Param request body HeartbeatRequest true "Presence status"
// @Success 204
// @Router /team/presence [put]
func (h *TeamHandler) Heartbeat(c echo.Context) error {
	orgID, err := orgFromContext(c)
	if err != nil {
		return err
	}

	userID, ok := c.Get("user_id").(uuid.UUID)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid session"})
	}

	var req HeartbeatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	if h.presence != nil {
		if err := h.presence.Heartbeat(c.Request().Context(), orgID, userID, req.Status); err != nil {
			// Redis being down degrades to the persisted column
			_ = h.users.UpdatePresence(userID, req.Status)
		}
	} else {
		_ = h.users.UpdatePresence(userID, req.Status)
	}

	return c.NoContent(http.StatusNoContent)
}
