package handlers

import (
	"net/http"

	"commhub/internal/realtime"
	"commhub/internal/repo"
	"commhub/pkg/models"

	"github.com/labstack/echo/v4"
)

// AppointmentHandler handles scheduling endpoints
type AppointmentHandler struct {
	appointments *repo.AppointmentRepository
	contacts     *repo.ContactRepository
	events       realtime.Publisher
}

// NewAppointmentHandler creates a new appointment handler
func NewAppointmentHandler(appointments *repo.AppointmentRepository, contacts *repo.ContactRepository, events realtime.Publisher) *AppointmentHandler {
	if events == nil {
		events = realtime.NopPublisher{}
	}
	return &AppointmentHandler{appointments: appointments, contacts: contacts, events: events}
}

// List godoc
// @Summary List appointments
// @Tags appointments
// @Produce json
// @Param date query string false "Filter by date (YYYY-MM-DD)"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} models.PaginationResult[models.Appointment]
// @Router /appointments [get]
func (h *AppointmentHandler) List(c echo.Context) error {
	orgID, err := orgFromContext(c)
	if err != nil {
		return err
	}

	limit, offset := pagination(c)
	result, err := h.appointments.List(orgID, c.QueryParam("date"), limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to list appointments"})
	}

	return c.JSON(http.StatusOK, result)
}

// Create godoc
// @Summary Create an appointment
// @Tags appointments
// @Accept json
// @Produce json
// @Param request body models.Appointment true "Appointment data"
// @Success 201 {object} models.Appointment
// @Failure 400 {object} map[string]string
// @Router /appointments [post]
func (h *AppointmentHandler) Create(c echo.Context) error {
	orgID, err := orgFromContext(c)
	if err != nil {
		return err
	}

	var appointment models.Appointment
	if err := c.Bind(&appointment); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	if err := c.Validate(&appointment); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	if _, err := h.contacts.GetByID(orgID, appointment.ContactID); err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Contact not found"})
	}

	appointment.OrganizationID = orgID
	if appointment.Status == "" {
		appointment.Status = models.AppointmentPending
	}

	if err := h.appointments.Create(&appointment); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to create appointment"})
	}

	h.events.Publish(realtime.Event{
		Table:          realtime.TableAppointments,
		Type:           realtime.EventInsert,
		OrganizationID: orgID,
		RowID:          appointment.ID,
		New:            appointment,
	})

	return c.JSON(http.StatusCreated, appointment)
}

// Update godoc
// @Summary Update an appointment
// @Tags appointments
// @Accept json
// @Produce json
// @Param id path string true "Appointment ID"
// @Param request body models.Appointment true "Appointment data"
// @Success 200 {object} models.Appointment
// @Failure 404 {object} map[string]string
// @Router /appointments/{id} [put]
func (h *AppointmentHandler) Update(c echo.Context) error {
	orgID, err := orgFromContext(c)
	if err != nil {
		return err
	}

	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	existing, err := h.appointments.GetByID(orgID, id)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Appointment not found"})
	}

	var req models.Appointment
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	req.BaseOrgModel = existing.BaseOrgModel
	if req.ContactID != existing.ContactID {
		if _, err := h.contacts.GetByID(orgID, req.ContactID); err != nil {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Contact not found"})
		}
	}

	if err := h.appointments.Update(&req); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to update appointment"})
	}

	h.events.Publish(realtime.Event{
		Table:          realtime.TableAppointments,
		Type:           realtime.EventUpdate,
		OrganizationID: orgID,
		RowID:          id,
		New:            req,
		Old:            existing,
	})

	return c.JSON(http.StatusOK, req)
}

// Delete godoc
// @Summary Delete an appointment
// @Tags appointments
// @Param id path string true "Appointment ID"
// @Success 204
// @Failure 404 {object} map[string]string
// @Router /appointments/{id} [delete]
func (h *AppointmentHandler) Delete(c echo.Context) error {
	orgID, err := orgFromContext(c)
	if err != nil {
		return err
	}

	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	if err := h.appointments.Delete(orgID, id); err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Appointment not found"})
	}

	h.events.Publish(realtime.Event{
		Table:          realtime.TableAppointments,
		Type:           realtime.EventDelete,
		OrganizationID: orgID,
		RowID:          id,
	})

	return c.NoContent(http.StatusNoContent)
}
