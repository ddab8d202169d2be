package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"commhub/internal/realtime"
	"commhub/internal/repo"
	"commhub/internal/services"
	"commhub/pkg/models"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// MediaHandler handles file uploads backed by S3
type MediaHandler struct {
	storage       *services.StorageService
	conversations *repo.ConversationRepository
	messages      *repo.MessageRepository
	users         *repo.UserRepository
	events        realtime.Publisher
}

// NewMediaHandler creates a new media handler
func NewMediaHandler(storage *services.StorageService, conversations *repo.ConversationRepository, messages *repo.MessageRepository, users *repo.UserRepository, events realtime.Publisher) *MediaHandler {
	if events == nil {
		events = realtime.NopPublisher{}
	}
	return &MediaHandler{
		storage:       storage,
		conversations: conversations,
		messages:      messages,
		users:         users,
		events:        events,
	}
}

// SendAttachment godoc
// @Summary Send a file message
// @Description Uploads the file to storage and appends a file message to the thread
// @Tags conversations
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Conversation ID"
// @Param file formData file true "File to send"
// @Param caption formData string false "Optional caption"
// @Success 201 {object} models.Message
// @Failure 404 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /conversations/{id}/attachments [post]
func (h *MediaHandler) SendAttachment(c echo.Context) error {
	if h.storage == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "Storage not configured"})
	}

	orgID, err := orgFromContext(c)
	if err != nil {
		return err
	}

	conversationID, err := pathID(c, "id")
	if err != nil {
		return err
	}

	if _, err := h.conversations.GetByID(orgID, conversationID); err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Conversation not found"})
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "File is required"})
	}

	userID, ok := c.Get("user_id").(uuid.UUID)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid session"})
	}

	message := &models.Message{
		ConversationID: conversationID,
		Sender:         fmt.Sprintf("user:%s", userID),
		UserID:         &userID,
		Body:           c.FormValue("caption"),
		Type:           messageTypeFor(fileHeader.Header.Get("Content-Type")),
		Status:         models.MessageQueued,
		FileName:       fileHeader.Filename,
		FileSize:       fmt.Sprintf("%d", fileHeader.Size),
	}
	message.ID = uuid.New()
	message.OrganizationID = orgID

	url, err := h.storage.UploadAttachment(fileHeader, orgID, message.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to upload file"})
	}
	message.FileURL = url

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

// UploadAvatar godoc
// @Summary Upload a profile picture
// @Tags auth
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Image file"
// @Success 200 {object} models.User
// @Failure 400 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /auth/avatar [post]
func (h *MediaHandler) UploadAvatar(c echo.Context) error {
	if h.storage == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "Storage not configured"})
	}

	orgID, err := orgFromContext(c)
	if err != nil {
		return err
	}

	userID, ok := c.Get("user_id").(uuid.UUID)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid session"})
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "File is required"})
	}

	url, err := h.storage.UploadAvatar(fileHeader, orgID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	user, err := h.users.GetByID(userID)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "User not found"})
	}

	user.Avatar = url
	if err := h.users.Update(user); err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to update profile"})
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

func messageTypeFor(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return models.MessageTypeImage
	case strings.HasPrefix(contentType, "audio/"):
		return models.MessageTypeAudio
	default:
		return models.MessageTypeFile
	}
}
