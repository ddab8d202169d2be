package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"commhub/internal/realtime"
	"commhub/internal/repo"
	"commhub/pkg/models"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// ConversationHandler handles inbox endpoints
type ConversationHandler struct {
	conversations *repo.ConversationRepository
	messages      *repo.MessageRepository
	contacts      *repo.ContactRepository
	events        realtime.Publisher
}

// NewConversationHandler creates a new conversation handler
func NewConversationHandler(conversations *repo.ConversationRepository, messages *repo.MessageRepository, contacts *repo.ContactRepository, events realtime.Publisher) *ConversationHandler {
	if events == nil {
		events = realtime.NopPublisher{}
	}
	return &ConversationHandler{
		conversations: conversations,
		messages:      messages,
		contacts:      contacts,
		events:        events,
	}
}

// List godoc
// @Summary List conversations
// @Description Inbox listing, most recent message first
// @Tags conversations
// @Produce json
// @Param status query string false "open, resolved or snoozed"
// @Param assigned_to query string false "Filter by assignee"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} models.PaginationResult[models.Conversation]
// @Router /conversations [get]
func (h *ConversationHandler) List(c echo.Context) error {
	orgID, err := orgFromContext(c)
	if err != nil {
		return err
	}

	var assignedTo *uuid.UUID
	if v := c.QueryParam("assigned_to"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid assigned_to"})
		}
		assignedTo = &id
	}

	limit, offset := pagination(c)
	result, err := h.conversations.List(orgID, c.QueryParam("status"), assignedTo, limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to list conversations"})
	}

	return c.JSON(http.StatusOK, result)
}

// GetByID godoc
// @Summary Get a conversation
// @Tags conversations
// @Produce json
// @Param id path string true "Conversation ID"
// @Success 200 {object} models.Conversation
// @Failure 404 {object} map[string]string
// @Router /conversations/{id} [get]
func (h *ConversationHandler) GetByID(c echo.Context) error {
	orgID, err := orgFromContext(c)
	if err != nil {
		return err
	}

	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	conversation, err := h.conversations.GetByID(orgID, id)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Conversation not found"})
	}

	return c.JSON(http.StatusOK, conversation)
}

// OpenRequest starts (or returns) the thread for a contact and channel
type OpenRequest struct {
	ContactID uuid.UUID `json:"contact_id" validate:"required"`
	Channel   string    `json:"channel"`
}

// Open godoc
// @Summary Open a conversation
// @Description Returns the single thread for (contact, channel), creating it when missing
// @Tags conversations
// @Accept json
// @Produce json
// @Param request body OpenRequest true "Contact and channel"
// @Success 200 {object} models.Conversation
// @Failure 400 {object} map[string]string
// @Router /conversations [post]
func (h *ConversationHandler) Open(c echo.Context) error {
	orgID, err := orgFromContext(c)
	if err != nil {
		return err
	}

	var req OpenRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	if req.Channel == "" {
		req.Channel = models.ChannelWhatsApp
	}

	if _, err := h.contacts.GetByID(orgID, req.ContactID); err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Contact not found"})
	}

	conversation, err := h.conversations.FindOrCreate(orgID, req.ContactID, req.Channel)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to open conversation"})
	}

	h.events.Publish(realtime.Event{
		Table:          realtime.TableConversations,
		Type:           realtime.EventInsert,
		OrganizationID: orgID,
		RowID:          conversation.ID,
		New:            conversation,
	})

	return c.JSON(http.StatusOK, conversation)
}

// UpdateStatusRequest changes a conversation's workflow status
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=open resolved snoozed"`
}

// UpdateStatus godoc
// @Summary Update conversation status
// @Tags conversations
// @Accept json
// @Produce json
// @Param id path string true "Conversation ID"
// @Param request body UpdateStatusRequest true "New status"
// @Success 200 {object} models.Conversation
// @Failure 404 {object} map[string]string
// @Router /conversations/{id}/status [put]
func (h *ConversationHandler) UpdateStatus(c echo.Context) error {
	orgID, err := orgFromContext(c)
	if err != nil {
		return err
	}

	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	if err := h.conversations.UpdateStatus(orgID, id, req.Status); err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Conversation not found"})
	}

	conversation, err := h.conversations.GetByID(orgID, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to reload conversation"})
	}

	h.events.Publish(realtime.Event{
		Table:          realtime.TableConversations,
		Type:           realtime.EventUpdate,
		OrganizationID: orgID,
		RowID:          id,
		New:            conversation,
	})

	return c.JSON(http.StatusOK, conversation)
}

// AssignRequest assigns a conversation to an agent. When ExpectedAssignee
// is set the assignment only applies if it still matches, otherwise the
// request fails with 409 and the caller refetches.
type AssignRequest struct {
	AssignedTo       *uuid.UUID `json:"assigned_to"`
	ExpectedAssignee *uuid.UUID `json:"expected_assignee"`
}

// Assign godoc
// @Summary Assign a conversation
// @Tags conversations
// @Accept json
// @Produce json
// @Param id path string true "Conversation ID"
// @Param request body AssignRequest true "Assignee"
// @Success 200 {object} models.Conversation
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /conversations/{id}/assign [put]
func (h *ConversationHandler) Assign(c echo.Context) error {
	orgID, err := orgFromContext(c)
	if err != nil {
		return err
	}

	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req AssignRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	if err := h.conversations.Assign(orgID, id, req.AssignedTo, req.ExpectedAssignee); err != nil {
		if errors.Is(err, repo.ErrAssignmentConflict) {
			return c.JSON(http.StatusConflict, map[string]string{"error": "Conversation was reassigned, refresh and retry"})
		}
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Conversation not found"})
	}

	conversation, err := h.conversations.GetByID(orgID, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to reload conversation"})
	}

	h.events.Publish(realtime.Event{
		Table:          realtime.TableConversations,
		Type:           realtime.EventUpdate,
		OrganizationID: orgID,
		RowID:          id,
		New:            conversation,
	})

	return c.JSON(http.StatusOK, conversation)
}

// MarkRead godoc
// @Summary Mark a conversation as read
// @Tags conversations
// @Param id path string true "Conversation ID"
// @Success 204
// @Failure 404 {object} map[string]string
// @Router /conversations/{id}/read [post]
func (h *ConversationHandler) MarkRead(c echo.Context) error {
	orgID, err := orgFromContext(c)
	if err != nil {
		return err
	}

	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	if err := h.conversations.MarkRead(orgID, id); err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Conversation not found"})
	}

	conversation, err := h.conversations.GetByID(orgID, id)
	if err == nil {
		h.events.Publish(realtime.Event{
			Table:          realtime.TableConversations,
			Type:           realtime.EventUpdate,
			OrganizationID: orgID,
			RowID:          id,
			New:            conversation,
		})
	}

	return c.NoContent(http.StatusNoContent)
}

// ListMessages godoc
// @Summary List messages in a conversation
// @Description Thread history, oldest first
// @Tags conversations
// @Produce json
// @Param id path string true "Conversation ID"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} models.PaginationResult[models.Message]
// @Router /conversations/{id}/messages [get]
func (h *ConversationHandler) ListMessages(c echo.Context) error {
	orgID, err := orgFromContext(c)
	if err != nil {
		return err
	}

	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	if _, err := h.conversations.GetByID(orgID, id); err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Conversation not found"})
	}

	limit, offset := pagination(c)
	result, err := h.messages.ListByConversation(orgID, id, limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to list messages"})
	}

	return c.JSON(http.StatusOK, result)
}

// SendMessageRequest appends a message to a thread
type SendMessageRequest struct {
	Body     string `json:"body" validate:"required"`
	Type     string `json:"type"`
	FileURL  string `json:"file_url"`
	FileName string `json:"file_name"`
	FileSize string `json:"file_size"`
}

// SendMessage godoc
// @Summary Send a message
// @Description Append an agent message to the thread. Messages are never edited or deleted.
// @Tags conversations
// @Accept json
// @Produce json
// @Param id path string true "Conversation ID"
// @Param request body SendMessageRequest true "Message body"
// @Success 201 {object} models.Message
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /conversations/{id}/messages [post]
func (h *ConversationHandler) SendMessage(c echo.Context) error {
	orgID, err := orgFromContext(c)
	if err != nil {
		return err
	}

	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	userID, ok := c.Get("user_id").(uuid.UUID)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid session"})
	}

	var req SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	if _, err := h.conversations.GetByID(orgID, id); err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Conversation not found"})
	}

	msgType := req.Type
	if msgType == "" {
		msgType = models.MessageTypeText
	}

	sender := fmt.Sprintf("user:%s", userID)
	if msgType == models.MessageTypeNote {
		sender = models.SenderSystem
	}

	message := &models.Message{
		BaseOrgModel:   models.BaseOrgModel{OrganizationID: orgID},
		ConversationID: id,
		Sender:         sender,
		UserID:         &userID,
		Body:           req.Body,
		Type:           msgType,
		Status:         models.MessageQueued,
		FileURL:        req.FileURL,
		FileName:       req.FileName,
		FileSize:       req.FileSize,
	}

	if err := h.messages.Append(message, false); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to send message"})
	}

	h.events.Publish(realtime.Event{
		Table:          realtime.TableMessages,
		Type:           realtime.EventInsert,
		OrganizationID: orgID,
		RowID:          message.ID,
		New:            message,
	})

	return c.JSON(http.StatusCreated, message)
}

// UpdateMessageStatusRequest advances a message's delivery status
type UpdateMessageStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=queued sent delivered read failed"`
}

// UpdateMessageStatus godoc
// @Summary Update message delivery status
// @Description Status only moves forward (queued, sent, delivered, read); failed is terminal
// @Tags conversations
// @Accept json
// @Produce json
// @Param id path string true "Message ID"
// @Param request body UpdateMessageStatusRequest true "New status"
// @Success 200 {object} models.Message
// @Failure 404 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /messages/{id}/status [put]
func (h *ConversationHandler) UpdateMessageStatus(c echo.Context) error {
	orgID, err := orgFromContext(c)
	if err != nil {
		return err
	}

	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var req UpdateMessageStatusRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	message, err := h.messages.UpdateStatus(orgID, id, req.Status)
	if err != nil {
		if errors.Is(err, repo.ErrInvalidStatusTransition) {
			return c.JSON(http.StatusUnprocessableEntity, map[string]string{"error": "Status cannot move backwards"})
		}
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Message not found"})
	}

	h.events.Publish(realtime.Event{
		Table:          realtime.TableMessages,
		Type:           realtime.EventUpdate,
		OrganizationID: orgID,
		RowID:          id,
		New:            message,
	})

	return c.JSON(http.StatusOK, message)
}
