package app

import (
	"context"
	"errors"
	"os"

	"commhub/internal/auth"
	"commhub/internal/broker"
	"commhub/internal/realtime"
	"commhub/internal/repo"
	"commhub/internal/services"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// nopDispatcher rejects launches when no broker is configured
type nopDispatcher struct{}

func (nopDispatcher) Publish(ctx context.Context, route string, orgID uuid.UUID, payload interface{}) error {
	return errors.New("campaign broker not configured")
}

// Services holds all application services
type Services struct {
	DB  *gorm.DB
	Hub *realtime.Hub

	AuthService      *auth.Service
	UserRepo         *repo.UserRepository
	OrganizationRepo *repo.OrganizationRepository
	ContactRepo      *repo.ContactRepository
	ConversationRepo *repo.ConversationRepository
	MessageRepo      *repo.MessageRepository
	CampaignRepo     *repo.CampaignRepository
	TemplateRepo     *repo.TemplateRepository
	AppointmentRepo  *repo.AppointmentRepository

	Broker           *broker.Connection
	CampaignService  *services.CampaignService
	PresenceService  *services.PresenceService
	StorageService   *services.StorageService
	EmailService     *services.EmailService
	AssistantService *services.AssistantService
}

// NewServices creates a new services container
func NewServices(db *gorm.DB) *Services {
	hub := realtime.NewHub()

	userRepo := repo.NewUserRepository(db)
	organizationRepo := repo.NewOrganizationRepository(db)
	contactRepo := repo.NewContactRepository(db)
	conversationRepo := repo.NewConversationRepository(db)
	messageRepo := repo.NewMessageRepository(db)
	campaignRepo := repo.NewCampaignRepository(db)
	templateRepo := repo.NewTemplateRepository(db)
	appointmentRepo := repo.NewAppointmentRepository(db)

	authService := auth.NewService(userRepo, organizationRepo)

	// Optional integrations degrade to nil and are skipped by handlers

	emailService, err := services.NewEmailService()
	if err != nil {
		log.Warn().Err(err).Msg("email service disabled")
		emailService = nil
	}

	storageService, err := services.NewStorageService()
	if err != nil {
		log.Warn().Err(err).Msg("storage service disabled")
		storageService = nil
	}

	var presenceService *services.PresenceService
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		presenceService, err = services.NewPresenceService(redisURL)
		if err != nil {
			log.Warn().Err(err).Msg("presence service disabled")
			presenceService = nil
		}
	}

	var assistantService *services.AssistantService
	if os.Getenv("OPENAI_API_KEY") != "" {
		assistantService, err = services.NewAssistantService()
		if err != nil {
			log.Warn().Err(err).Msg("assistant service disabled")
			assistantService = nil
		}
	}

	var brokerConn *broker.Connection
	var dispatcher services.Dispatcher
	if amqpURL := os.Getenv("AMQP_URL"); amqpURL != "" {
		brokerConn, err = broker.Connect(amqpURL)
		if err != nil {
			log.Warn().Err(err).Msg("campaign broker disabled, launches will fail")
		} else {
			dispatcher = brokerConn
		}
	}
	if dispatcher == nil {
		dispatcher = nopDispatcher{}
	}

	campaignService := services.NewCampaignService(campaignRepo, contactRepo, dispatcher, hub)

	return &Services{
		DB:               db,
		Hub:              hub,
		AuthService:      authService,
		UserRepo:         userRepo,
		OrganizationRepo: organizationRepo,
		ContactRepo:      contactRepo,
		ConversationRepo: conversationRepo,
		MessageRepo:      messageRepo,
		CampaignRepo:     campaignRepo,
		TemplateRepo:     templateRepo,
		AppointmentRepo:  appointmentRepo,
		Broker:           brokerConn,
		CampaignService:  campaignService,
		PresenceService:  presenceService,
		StorageService:   storageService,
		EmailService:     emailService,
		AssistantService: assistantService,
	}
}

// Close releases external connections
func (s *Services) Close() {
	if s.Broker != nil {
		s.Broker.Close()
	}
	if s.PresenceService != nil {
		s.PresenceService.Close()
	}
}
