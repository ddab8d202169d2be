package handlers

import (
	"net/http"

	"commhub/pkg/models"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// DashboardHandler serves aggregate counters for the overview screen
type DashboardHandler struct {
	db *gorm.DB
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(db *gorm.DB) *DashboardHandler {
	return &DashboardHandler{db: db}
}

// DashboardStats is the overview payload
type DashboardStats struct {
	TotalContacts      int64 `json:"total_contacts"`
	OpenConversations  int64 `json:"open_conversations"`
	UnreadMessages     int64 `json:"unread_messages"`
	RunningCampaigns   int64 `json:"running_campaigns"`
	ApprovedTemplates  int64 `json:"approved_templates"`
	PendingTemplates   int64 `json:"pending_templates"`
	TodayAppointments  int64 `json:"today_appointments"`
	MessagesSentToday  int64 `json:"messages_sent_today"`
}

// GetStats godoc
// @Summary Dashboard statistics
// @Description Aggregate counters for the caller's organization
// @Tags dashboard
// @Produce json
// @Success 200 {object} DashboardStats
// @Router /dashboard/stats [get]
func (h *DashboardHandler) GetStats(c echo.Context) error {
	orgID, err := orgFromContext(c)
	if err != nil {
		return err
	}

	var stats DashboardStats

	h.db.Model(&models.Contact{}).
		Where("organization_id = ?", orgID).
		Count(&stats.TotalContacts)

	h.db.Model(&models.Conversation{}).
		Where("organization_id = ? AND status = ?", orgID, models.ConversationOpen).
		Count(&stats.OpenConversations)

	h.db.Model(&models.Conversation{}).
		Where("organization_id = ?", orgID).
		Select("COALESCE(SUM(unread_count), 0)").
		Scan(&stats.UnreadMessages)

	h.db.Model(&models.Campaign{}).
		Where("organization_id = ? AND status = ?", orgID, models.CampaignRunning).
		Count(&stats.RunningCampaigns)

	h.db.Model(&models.Template{}).
		Where("organization_id = ? AND status = ?", orgID, models.TemplateApproved).
		Count(&stats.ApprovedTemplates)

	h.db.Model(&models.Template{}).
		Where("organization_id = ? AND status = ?", orgID, models.TemplatePending).
		Count(&stats.PendingTemplates)

	h.db.Model(&models.Appointment{}).
		Where("organization_id = ? AND date = CURRENT_DATE::text", orgID).
		Count(&stats.TodayAppointments)

	h.db.Model(&models.Message{}).
		Where("organization_id = ? AND created_at >= CURRENT_DATE AND sender LIKE 'user:%'", orgID).
		Count(&stats.MessagesSentToday)

	return c.JSON(http.StatusOK, stats)
}
