package handlers

import (
	"net/http"

	"commhub/internal/realtime"
	"commhub/internal/repo"
	"commhub/pkg/models"

	"github.com/labstack/echo/v4"
)

// TemplateHandler handles message template endpoints
type TemplateHandler struct {
	templates *repo.TemplateRepository
	events    realtime.Publisher
}

// NewTemplateHandler creates a new template handler
func NewTemplateHandler(templates *repo.TemplateRepository, events realtime.Publisher) *TemplateHandler {
	if events == nil {
		events = realtime.NopPublisher{}
	}
	return &TemplateHandler{templates: templates, events: events}
}

// List godoc
// @Summary List templates
// @Tags templates
// @Produce json
// @Param status query string false "PENDING, APPROVED or REJECTED"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} models.PaginationResult[models.Template]
// @Router /templates [get]
func (h *TemplateHandler) List(c echo.Context) error {
	orgID, err := orgFromContext(c)
	if err != nil {
		return err
	}

	limit, offset := pagination(c)
	result, err := h.templates.List(orgID, c.QueryParam("status"), limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to list templates"})
	}

	return c.JSON(http.StatusOK, result)
}

// GetByID godoc
// @Summary Get a template
// @Tags templates
// @Produce json
// @Param id path string true "Template ID"
// @Success 200 {object} models.Template
// @Failure 404 {object} map[string]string
// @Router /templates/{id} [get]
func (h *TemplateHandler) GetByID(c echo.Context) error {
	orgID, err := orgFromContext(c)
	if err != nil {
		return err
	}

	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	template, err := h.templates.GetByID(orgID, id)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Template not found"})
	}

	return c.JSON(http.StatusOK, template)
}

// Create godoc
// @Summary Create a template
// @Description Submits a template for review. New templates always enter as PENDING; approval comes from the channel provider.
// @Tags templates
// @Accept json
// @Produce json
// @Param request body models.Template true "Template data"
// @Success 201 {object} models.Template
// @Failure 400 {object} map[string]string
// @Router /templates [post]
func (h *TemplateHandler) Create(c echo.Context) error {
	orgID, err := orgFromContext(c)
	if err != nil {
		return err
	}

	var template models.Template
	if err := c.Bind(&template); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	if err := c.Validate(&template); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	template.OrganizationID = orgID
	if template.Language == "" {
		template.Language = "es"
	}
	if template.Category == "" {
		template.Category = models.TemplateUtility
	}

	if err := h.templates.Create(&template); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to create template"})
	}

	h.events.Publish(realtime.Event{
		Table:          realtime.TableTemplates,
		Type:           realtime.EventInsert,
		OrganizationID: orgID,
		RowID:          template.ID,
		New:            template,
	})

	return c.JSON(http.StatusCreated, template)
}

// ReviewRequest applies the provider's review verdict
type ReviewRequest struct {
	Status string `json:"status" validate:"required,oneof=APPROVED REJECTED"`
}

// Review godoc
// @Summary Apply a review verdict
// @Description Sync endpoint for the channel provider's approval workflow; not callable by organization users
// @Tags templates
// @Accept json
// @Produce json
// @Param id path string true "Template ID"
// @Param request body ReviewRequest true "Verdict"
// @Success 200 {object} models.Template
// @Failure 404 {object} map[string]string
// @Router /templates/{id}/review [put]
func (h *TemplateHandler) Review(c echo.Context) error {
	orgID, err := orgFromContext(c)
	if err != nil {
		return err
	}

	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req ReviewRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	if err := h.templates.UpdateStatus(orgID, id, req.Status); err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Template not found"})
	}

	template, err := h.templates.GetByID(orgID, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to reload template"})
	}

	h.events.Publish(realtime.Event{
		Table:          realtime.TableTemplates,
		Type:           realtime.EventUpdate,
		OrganizationID: orgID,
		RowID:          id,
		New:            template,
	})

	return c.JSON(http.StatusOK, template)
}

// Delete godoc
// @Summary Delete a template
// @Tags templates
// @Param id path string true "Template ID"
// @Success 204
// @Failure 404 {object} map[string]string
// @Router /templates/{id} [delete]
func (h *TemplateHandler) Delete(c echo.Context) error {
	orgID, err := orgFromContext(c)
	if err != nil {
		return err
	}

	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	if err := h.templates.Delete(orgID, id); err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Template not found"})
	}

	h.events.Publish(realtime.Event{
		Table:          realtime.TableTemplates,
		Type:           realtime.EventDelete,
		OrganizationID: orgID,
		RowID:          id,
	})

	return c.NoContent(http.StatusNoContent)
}
