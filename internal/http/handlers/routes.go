package handlers

import (
	"commhub/internal/app"
	"commhub/internal/http/middleware"

	"github.com/labstack/echo/v4"
)

// SetupRoutes registers all API routes
func SetupRoutes(api *echo.Group, services *app.Services) {
	authHandler := NewAuthHandler(services.AuthService, services.EmailService)
	wsHandler := NewWebSocketHandler(services.Hub, services.AuthService)
	contactHandler := NewContactHandler(services.ContactRepo, services.Hub)
	conversationHandler := NewConversationHandler(services.ConversationRepo, services.MessageRepo, services.ContactRepo, services.Hub)
	campaignHandler := NewCampaignHandler(services.CampaignRepo, services.CampaignService, services.Hub)
	templateHandler := NewTemplateHandler(services.TemplateRepo, services.Hub)
	organizationHandler := NewOrganizationHandler(services.OrganizationRepo, services.Hub)
	teamHandler := NewTeamHandler(services.UserRepo, services.OrganizationRepo, services.AuthService, services.PresenceService, services.Hub)
	appointmentHandler := NewAppointmentHandler(services.AppointmentRepo, services.ContactRepo, services.Hub)
	dashboardHandler := NewDashboardHandler(services.DB)
	assistantHandler := NewAssistantHandler(services.AssistantService, services.ConversationRepo, services.MessageRepo)
	mediaHandler := NewMediaHandler(services.StorageService, services.ConversationRepo, services.MessageRepo, services.UserRepo, services.Hub)

	// Public routes
	authGroup := api.Group("/auth")
	authGroup.POST("/login", authHandler.Login)
	authGroup.POST("/signup", authHandler.Signup)
	authGroup.POST("/refresh", authHandler.RefreshToken)
	authGroup.POST("/forgot-password", authHandler.ForgotPassword)
	authGroup.POST("/reset-password", authHandler.ResetPassword)

	// Realtime feed authenticates via query token inside the handler
	api.GET("/ws", wsHandler.HandleWebSocket)

	// Authenticated routes
	protected := api.Group("")
	protected.Use(middleware.JWTAuth(services.AuthService))
	protected.Use(middleware.OrgResolver())

	protected.GET("/auth/me", authHandler.Me)
	protected.PUT("/auth/profile", authHandler.UpdateProfile)
	protected.POST("/auth/change-password", authHandler.ChangePassword)
	protected.POST("/auth/avatar", mediaHandler.UploadAvatar, middleware.RequireOrganization())

	// Console routes, super admin only
	admin := protected.Group("/admin", middleware.SuperAdminOnly())
	admin.GET("/organizations", organizationHandler.List)
	admin.POST("/organizations", organizationHandler.Create)
	admin.GET("/organizations/:id", organizationHandler.GetByID)
	admin.PUT("/organizations/:id", organizationHandler.Update)
	admin.POST("/organizations/:id/toggle-status", organizationHandler.ToggleStatus)
	admin.DELETE("/organizations/:id", organizationHandler.Delete)

	// Organization-scoped routes
	org := protected.Group("", middleware.RequireOrgRole(), middleware.RequireOrganization())

	org.GET("/organization", organizationHandler.GetProfile)
	org.PUT("/organization", organizationHandler.UpdateProfile, middleware.OrgAdminOrAbove())

	org.GET("/contacts", contactHandler.List)
	org.POST("/contacts", contactHandler.Create)
	org.GET("/contacts/tags", contactHandler.Tags)
	org.GET("/contacts/:id", contactHandler.GetByID)
	org.PUT("/contacts/:id", contactHandler.Update)
	org.DELETE("/contacts/:id", contactHandler.Delete)

	org.GET("/conversations", conversationHandler.List)
	org.POST("/conversations", conversationHandler.Open)
	org.GET("/conversations/:id", conversationHandler.GetByID)
	org.PUT("/conversations/:id/status", conversationHandler.UpdateStatus)
	org.PUT("/conversations/:id/assign", conversationHandler.Assign)
	org.POST("/conversations/:id/read", conversationHandler.MarkRead)
	org.GET("/conversations/:id/messages", conversationHandler.ListMessages)
	org.POST("/conversations/:id/messages", conversationHandler.SendMessage)
	org.POST("/conversations/:id/attachments", mediaHandler.SendAttachment)
	org.POST("/conversations/:id/suggest-reply", assistantHandler.SuggestReply)
	org.PUT("/messages/:id/status", conversationHandler.UpdateMessageStatus)

	org.GET("/campaigns", campaignHandler.List)
	org.POST("/campaigns", campaignHandler.Create, middleware.SupervisorOrAbove())
	org.GET("/campaigns/:id", campaignHandler.GetByID)
	org.POST("/campaigns/:id/launch", campaignHandler.Launch, middleware.SupervisorOrAbove())
	org.DELETE("/campaigns/:id", campaignHandler.Delete, middleware.SupervisorOrAbove())

	org.GET("/templates", templateHandler.List)
	org.POST("/templates", templateHandler.Create, middleware.SupervisorOrAbove())
	org.GET("/templates/:id", templateHandler.GetByID)
	org.PUT("/templates/:id/review", templateHandler.Review, middleware.OrgAdminOrAbove())
	org.DELETE("/templates/:id", templateHandler.Delete, middleware.SupervisorOrAbove())

	org.GET("/appointments", appointmentHandler.List)
	org.POST("/appointments", appointmentHandler.Create)
	org.PUT("/appointments/:id", appointmentHandler.Update)
	org.DELETE("/appointments/:id", appointmentHandler.Delete)

	org.GET("/team", teamHandler.List)
	org.POST("/team", teamHandler.Invite, middleware.RequireOrgAdminOnly())
	org.PUT("/team/presence", teamHandler.Heartbeat)
	org.PUT("/team/:id", teamHandler.UpdateMember, middleware.RequireOrgAdminOnly())
	org.DELETE("/team/:id", teamHandler.Deactivate, middleware.RequireOrgAdminOnly())

	org.GET("/dashboard/stats", dashboardHandler.GetStats)
}
