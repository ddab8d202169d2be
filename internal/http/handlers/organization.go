package handlers

import (
	"net/http"

	"commhub/internal/realtime"
	"commhub/internal/repo"
	"commhub/pkg/models"

	"github.com/labstack/echo/v4"
)

// OrganizationHandler handles organization profile and console endpoints
type OrganizationHandler struct {
	organizations *repo.OrganizationRepository
	events        realtime.Publisher
}

// NewOrganizationHandler creates a new organization handler
func NewOrganizationHandler(organizations *repo.OrganizationRepository, events realtime.Publisher) *OrganizationHandler {
	if events == nil {
		events = realtime.NopPublisher{}
	}
	return &OrganizationHandler{organizations: organizations, events: events}
}

// GetProfile godoc
// @Summary Get the caller's organization
// @Tags organization
// @Produce json
// @Success 200 {object} models.Organization
// @Failure 404 {object} map[string]string
// @Router /organization/profile [get]
func (h *OrganizationHandler) GetProfile(c echo.Context) error {
	orgID, err := orgFromContext(c)
	if err != nil {
		return err
	}

	org, err := h.organizations.GetByID(orgID)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Organization not found"})
	}

	return c.JSON(http.StatusOK, org)
}

// UpdateOrganizationRequest carries the fields an org admin may change
type UpdateOrganizationRequest struct {
	Name         string         `json:"name" validate:"required"`
	Settings     models.JSONMap `json:"settings"`
	Integrations models.JSONMap `json:"integrations"`
}

// UpdateProfile godoc
// @Summary Update the caller's organization
// @Description Org admins change name, settings and integrations; plan and status belong to the platform console
// @Tags organization
// @Accept json
// @Produce json
// @Param request body UpdateOrganizationRequest true "Organization data"
// @Success 200 {object} models.Organization
// @Failure 400 {object} map[string]string
// @Router /organization/profile [put]
func (h *OrganizationHandler) UpdateProfile(c echo.Context) error {
	orgID, err := orgFromContext(c)
	if err != nil {
		return err
	}

	var req UpdateOrganizationRequest
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

	org.Name = req.Name
	if req.Settings != nil {
		org.Settings = req.Settings
	}
	if req.Integrations != nil {
		org.Integrations = req.Integrations
	}

	if err := h.organizations.Update(org); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to update organization"})
	}

	h.events.Publish(realtime.Event{
		Table:          realtime.TableOrganizations,
		Type:           realtime.EventUpdate,
		OrganizationID: orgID,
		RowID:          org.ID,
		New:            org,
	})

	return c.JSON(http.StatusOK, org)
}

// Platform console endpoints (super admin)

// List godoc
// @Summary List organizations
// @Description Platform console listing with member counts and admin contacts
// @Tags admin
// @Produce json
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} models.PaginationResult[repo.OrganizationWithStats]
// @Router /admin/organizations [get]
func (h *OrganizationHandler) List(c echo.Context) error {
	limit, offset := pagination(c)
	result, err := h.organizations.List(limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to list organizations"})
	}

	return c.JSON(http.StatusOK, result)
}

// CreateOrganizationRequest creates a new customer organization
type CreateOrganizationRequest struct {
	Name     string `json:"name" validate:"required"`
	Plan     string `json:"plan"`
	MaxUsers int    `json:"max_users"`
}

// Create godoc
// @Summary Create an organization
// @Tags admin
// @Accept json
// @Produce json
// @Param request body CreateOrganizationRequest true "Organization data"
// @Success 201 {object} models.Organization
// @Failure 400 {object} map[string]string
// @Router /admin/organizations [post]
func (h *OrganizationHandler) Create(c echo.Context) error {
	var req CreateOrganizationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	plan := req.Plan
	if plan == "" {
		plan = models.PlanFree
	}
	maxUsers := req.MaxUsers
	if maxUsers <= 0 {
		maxUsers = 5
	}

	org := &models.Organization{
		Name:     req.Name,
		Plan:     plan,
		Status:   models.OrgStatusActive,
		MaxUsers: maxUsers,
	}

	if err := h.organizations.Create(org); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to create organization"})
	}

	return c.JSON(http.StatusCreated, org)
}

// GetByID godoc
// @Summary Get an organization
// @Tags admin
// @Produce json
// @Param id path string true "Organization ID"
// @Success 200 {object} models.Organization
// @Failure 404 {object} map[string]string
// @Router /admin/organizations/{id} [get]
func (h *OrganizationHandler) GetByID(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	org, err := h.organizations.GetByID(id)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Organization not found"})
	}

	return c.JSON(http.StatusOK, org)
}

// AdminUpdateRequest is the console-side update surface
type AdminUpdateRequest struct {
	Name     string `json:"name" validate:"required"`
	Plan     string `json:"plan" validate:"required,oneof=free starter pro enterprise"`
	MaxUsers int    `json:"max_users" validate:"min=1"`
}

// Update godoc
// @Summary Update an organization
// @Tags admin
// @Accept json
// @Produce json
// @Param id path string true "Organization ID"
// @Param request body AdminUpdateRequest true "Organization data"
// @Success 200 {object} models.Organization
// @Failure 404 {object} map[string]string
// @Router /admin/organizations/{id} [put]
func (h *OrganizationHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req AdminUpdateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	org, err := h.organizations.GetByID(id)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Organization not found"})
	}

	org.Name = req.Name
	org.Plan = req.Plan
	org.MaxUsers = req.MaxUsers

	if err := h.organizations.Update(org); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to update organization"})
	}

	h.publishOrgUpdate(org)
	return c.JSON(http.StatusOK, org)
}

// ToggleStatus godoc
// @Summary Suspend or reactivate an organization
// @Description Active organizations become suspended and vice versa
// @Tags admin
// @Produce json
// @Param id path string true "Organization ID"
// @Success 200 {object} models.Organization
// @Failure 404 {object} map[string]string
// @Router /admin/organizations/{id}/toggle-status [post]
func (h *OrganizationHandler) ToggleStatus(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	org, err := h.organizations.GetByID(id)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Organization not found"})
	}

	next := models.OrgStatusSuspended
	if org.Status == models.OrgStatusSuspended {
		next = models.OrgStatusActive
	}

	if err := h.organizations.SetStatus(id, next); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to update status"})
	}

	org.Status = next
	h.publishOrgUpdate(org)
	return c.JSON(http.StatusOK, org)
}

// Delete godoc
// @Summary Delete an organization
// @Tags admin
// @Param id path string true "Organization ID"
// @Success 204
// @Failure 404 {object} map[string]string
// @Router /admin/organizations/{id} [delete]
func (h *OrganizationHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	if _, err := h.organizations.GetByID(id); err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Organization not found"})
	}

	if err := h.organizations.Delete(id); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to delete organization"})
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *OrganizationHandler) publishOrgUpdate(org *models.Organization) {
	h.events.Publish(realtime.Event{
		Table:          realtime.TableOrganizations,
		Type:           realtime.EventUpdate,
		OrganizationID: org.ID,
		RowID:          org.ID,
		New:            org,
	})
}
