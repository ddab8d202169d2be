package handlers

import (
	"net/http"

	"commhub/internal/repo"
	"commhub/internal/services"

	"github.com/labstack/echo/v4"
)

// AssistantHandler drafts reply suggestions for agents
type AssistantHandler struct {
	assistant     *services.AssistantService
	conversations *repo.ConversationRepository
	messages      *repo.MessageRepository
}

// NewAssistantHandler creates a new assistant handler
func NewAssistantHandler(assistant *services.AssistantService, conversations *repo.ConversationRepository, messages *repo.MessageRepository) *AssistantHandler {
	return &AssistantHandler{
		assistant:     assistant,
		conversations: conversations,
		messages:      messages,
	}
}

// SuggestReply godoc
// @Summary Draft a reply
// @Description Generates a reply suggestion from the recent thread; the agent edits before sending
// @Tags assistant
// @Produce json
// @Param id path string true "Conversation ID"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /conversations/{id}/suggest-reply [post]
func (h *AssistantHandler) SuggestReply(c echo.Context) error {
	if h.assistant == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "Assistant not configured"})
	}

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

	history, err := h.messages.ListByConversation(orgID, id, 50, 0)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to load thread"})
	}

	contactName := "Customer"
	if conversation.Contact != nil {
		contactName = conversation.Contact.Name
	}

	draft, err := h.assistant.SuggestReply(c.Request().Context(), contactName, history.Data)
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "Failed to generate suggestion"})
	}

	return c.JSON(http.StatusOK, map[string]string{"suggestion": draft})
}
