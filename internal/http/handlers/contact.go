package handlers

import (
	"net/http"

	"commhub/internal/realtime"
	"commhub/pkg/models"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// ContactDirectory is the persistence surface the contact handler needs,
// implemented by repo.ContactRepository
type ContactDirectory interface {
	List(orgID uuid.UUID, search string, limit, offset int) (*models.PaginationResult[models.Contact], error)
	GetByID(orgID, id uuid.UUID) (*models.Contact, error)
	Create(contact *models.Contact) error
	Update(contact *models.Contact) error
	Delete(orgID, id uuid.UUID) error
	DistinctTags(orgID uuid.UUID) ([]string, error)
}

// ContactHandler handles contact directory endpoints
type ContactHandler struct {
	contacts ContactDirectory
	events   realtime.Publisher
}

// NewContactHandler creates a new contact handler
func NewContactHandler(contacts ContactDirectory, events realtime.Publisher) *ContactHandler {
	if events == nil {
		events = realtime.NopPublisher{}
	}
	return &ContactHandler{contacts: contacts, events: events}
}

// List godoc
// @Summary List contacts
// @Description List the organization's contacts ordered by name
// @Tags contacts
// @Produce json
// @Param search query string false "Name, phone or email search"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} models.PaginationResult[models.Contact]
// @Router /contacts [get]
func (h *ContactHandler) List(c echo.Context) error {
	orgID, err := orgFromContext(c)
	if err != nil {
		return err
	}

	limit, offset := pagination(c)
	result, err := h.contacts.List(orgID, c.QueryParam("search"), limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to list contacts"})
	}

	return c.JSON(http.StatusOK, result)
}

// GetByID godoc
// @Summary Get a contact
// @Tags contacts
// @Produce json
// @Param id path string true "Contact ID"
// @Success 200 {object} models.Contact
// @Failure 404 {object} map[string]string
// @Router /contacts/{id} [get]
func (h *ContactHandler) GetByID(c echo.Context) error {
	orgID, err := orgFromContext(c)
	if err != nil {
		return err
	}

	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	contact, err := h.contacts.GetByID(orgID, id)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Contact not found"})
	}

	return c.JSON(http.StatusOK, contact)
}

// Create godoc
// @Summary Create a contact
// @Tags contacts
// @Accept json
// @Produce json
// @Param request body models.Contact true "Contact data"
// @Success 201 {object} models.Contact
// @Failure 400 {object} map[string]string
// @Router /contacts [post]
func (h *ContactHandler) Create(c echo.Context) error {
	orgID, err := orgFromContext(c)
	if err != nil {
		return err
	}

	var contact models.Contact
	if err := c.Bind(&contact); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	if err := c.Validate(&contact); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	contact.OrganizationID = orgID
	if contact.Avatar == "" {
		contact.Avatar = models.AvatarURL(contact.Name)
	}
	if contact.Tags == nil {
		contact.Tags = models.StringList{}
	}

	if err := h.contacts.Create(&contact); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to create contact"})
	}

	h.events.Publish(realtime.Event{
		Table:          realtime.TableContacts,
		Type:           realtime.EventInsert,
		OrganizationID: orgID,
		RowID:          contact.ID,
		New:            contact,
	})

	return c.JSON(http.StatusCreated, contact)
}

// Update godoc
// @Summary Update a contact
// @Tags contacts
// @Accept json
// @Produce json
// @Param id path string true "Contact ID"
// @Param request body models.Contact true "Contact data"
// @Success 200 {object} models.Contact
// @Failure 404 {object} map[string]string
// @Router /contacts/{id} [put]
func (h *ContactHandler) Update(c echo.Context) error {
	orgID, err := orgFromContext(c)
	if err != nil {
		return err
	}

	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	existing, err := h.contacts.GetByID(orgID, id)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Contact not found"})
	}

	var req models.Contact
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	// Identity fields stay fixed, the rest follows the request
	req.BaseOrgModel = existing.BaseOrgModel

	if err := h.contacts.Update(&req); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to update contact"})
	}

	h.events.Publish(realtime.Event{
		Table:          realtime.TableContacts,
		Type:           realtime.EventUpdate,
		OrganizationID: orgID,
		RowID:          req.ID,
		New:            req,
		Old:            existing,
	})

	return c.JSON(http.StatusOK, req)
}

// Delete godoc
// @Summary Delete a contact
// @Tags contacts
// @Param id path string true "Contact ID"
// @Success 204
// @Failure 404 {object} map[string]string
// @Router /contacts/{id} [delete]
func (h *ContactHandler) Delete(c echo.Context) error {
	orgID, err := orgFromContext(c)
	if err != nil {
		return err
	}

	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	existing, err := h.contacts.GetByID(orgID, id)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Contact not found"})
	}

	if err := h.contacts.Delete(orgID, id); err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Contact not found"})
	}

	h.events.Publish(realtime.Event{
		Table:          realtime.TableContacts,
		Type:           realtime.EventDelete,
		OrganizationID: orgID,
		RowID:          id,
		Old:            existing,
	})

	return c.NoContent(http.StatusNoContent)
}

// Tags godoc
// @Summary List contact tags
// @Description Distinct tags in use across the directory, for filter menus
// @Tags contacts
// @Produce json
// @Success 200 {array} string
// @Router /contacts/tags [get]
func (h *ContactHandler) Tags(c echo.Context) error {
	orgID, err := orgFromContext(c)
	if err != nil {
		return err
	}

	tags, err := h.contacts.DistinctTags(orgID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to list tags"})
	}

	return c.JSON(http.StatusOK, tags)
}
