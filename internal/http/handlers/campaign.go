package handlers

import (
	"errors"
	"net/http"

	"commhub/internal/realtime"
	"commhub/internal/repo"
	"commhub/internal/services"

	"github.com/labstack/echo/v4"
)

// CampaignHandler handles broadcast campaign endpoints
type CampaignHandler struct {
	campaigns *repo.CampaignRepository
	service   *services.CampaignService
	events    realtime.Publisher
}

// NewCampaignHandler creates a new campaign handler
func NewCampaignHandler(campaigns *repo.CampaignRepository, service *services.CampaignService, events realtime.Publisher) *CampaignHandler {
	if events == nil {
		events = realtime.NopPublisher{}
	}
	return &CampaignHandler{campaigns: campaigns, service: service, events: events}
}

// List godoc
// @Summary List campaigns
// @Description Campaign history, newest send first
// @Tags campaigns
// @Produce json
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} models.PaginationResult[models.Campaign]
// @Router /campaigns [get]
func (h *CampaignHandler) List(c echo.Context) error {
	orgID, err := orgFromContext(c)
	if err != nil {
		return err
	}

	limit, offset := pagination(c)
	result, err := h.campaigns.List(orgID, limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to list campaigns"})
	}

	return c.JSON(http.StatusOK, result)
}

// GetByID godoc
// @Summary Get a campaign
// @Tags campaigns
// @Produce json
// @Param id path string true "Campaign ID"
// @Success 200 {object} models.Campaign
// @Failure 404 {object} map[string]string
// @Router /campaigns/{id} [get]
func (h *CampaignHandler) GetByID(c echo.Context) error {
	orgID, err := orgFromContext(c)
	if err != nil {
		return err
	}

	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	campaign, err := h.campaigns.GetByID(orgID, id)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Campaign not found"})
	}

	return c.JSON(http.StatusOK, campaign)
}

// Create godoc
// @Summary Create a campaign
// @Description Creates a campaign with the audience size snapshotted from the current directory and zeroed counters
// @Tags campaigns
// @Accept json
// @Produce json
// @Param request body services.CreateCampaignRequest true "Campaign data"
// @Success 201 {object} models.Campaign
// @Failure 400 {object} map[string]string
// @Router /campaigns [post]
func (h *CampaignHandler) Create(c echo.Context) error {
	orgID, err := orgFromContext(c)
	if err != nil {
		return err
	}

	var req services.CreateCampaignRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	campaign, err := h.service.Create(orgID, req)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to create campaign"})
	}

	return c.JSON(http.StatusCreated, campaign)
}

// Launch godoc
// @Summary Launch a campaign
// @Description Flips a draft or scheduled campaign to running and enqueues the send
// @Tags campaigns
// @Produce json
// @Param id path string true "Campaign ID"
// @Success 200 {object} models.Campaign
// @Failure 404 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /campaigns/{id}/launch [post]
func (h *CampaignHandler) Launch(c echo.Context) error {
	orgID, err := orgFromContext(c)
	if err != nil {
		return err
	}

	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	campaign, err := h.service.Launch(c.Request().Context(), orgID, id)
	if err != nil {
		if errors.Is(err, services.ErrCampaignNotLaunchable) {
			return c.JSON(http.StatusUnprocessableEntity, map[string]string{"error": "Campaign already launched"})
		}
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Campaign not found"})
	}

	return c.JSON(http.StatusOK, campaign)
}

// Delete godoc
// @Summary Delete a campaign
// @Tags campaigns
// @Param id path string true "Campaign ID"
// @Success 204
// @Failure 404 {object} map[string]string
// @Router /campaigns/{id} [delete]
func (h *CampaignHandler) Delete(c echo.Context) error {
	orgID, err := orgFromContext(c)
	if err != nil {
		return err
	}

	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	if err := h.campaigns.Delete(orgID, id); err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Campaign not found"})
	}

	h.events.Publish(realtime.Event{
		Table:          realtime.TableCampaigns,
		Type:           realtime.EventDelete,
		OrganizationID: orgID,
		RowID:          id,
	})

	return c.NoContent(http.StatusNoContent)
}
