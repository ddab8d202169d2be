package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"commhub/internal/broker"
	"commhub/internal/realtime"
	"commhub/pkg/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrCampaignNotLaunchable is returned when a launch is requested for a
// campaign that already ran or completed.
var ErrCampaignNotLaunchable = errors.New("campaign is not in a launchable state")

// CampaignRepository is the persistence surface the campaign service needs
type CampaignRepository interface {
	GetByID(orgID, id uuid.UUID) (*models.Campaign, error)
	Create(campaign *models.Campaign) error
	MarkRunning(orgID, id uuid.UUID) error
	IncrementCounters(orgID, id uuid.UUID, delivered, read int) (*models.Campaign, error)
	MarkCompleted(orgID, id uuid.UUID) error
}

// AudienceCounter resolves tag filters into audience sizes
type AudienceCounter interface {
	CountByTag(orgID uuid.UUID, tag string) (int64, error)
}

// Dispatcher hands launch jobs to the send pipeline
type Dispatcher interface {
	Publish(ctx context.Context, route string, orgID uuid.UUID, payload interface{}) error
}

// CampaignService owns the campaign lifecycle: audience snapshotting at
// creation, launching through the broker, and folding worker progress
// reports back into the counters.
type CampaignService struct {
	campaigns  CampaignRepository
	audience   AudienceCounter
	dispatcher Dispatcher
	events     realtime.Publisher
}

// NewCampaignService creates a new campaign service
func NewCampaignService(campaigns CampaignRepository, audience AudienceCounter, dispatcher Dispatcher, events realtime.Publisher) *CampaignService {
	if events == nil {
		events = realtime.NopPublisher{}
	}
	return &CampaignService{
		campaigns:  campaigns,
		audience:   audience,
		dispatcher: dispatcher,
		events:     events,
	}
}

// CreateCampaignRequest carries the fields a caller controls on creation
type CreateCampaignRequest struct {
	Name         string `json:"name" validate:"required"`
	TemplateName string `json:"template_name"`
	TagFilter    string `json:"tag_filter"`
	Scheduled    bool   `json:"scheduled"`
}

// Create inserts a campaign with its audience size snapshotted from the
// current directory. Delivery counters always start at zero; the snapshot
// does not move when contacts are added or removed later.
func (s *CampaignService) Create(orgID uuid.UUID, req CreateCampaignRequest) (*models.Campaign, error) {
	tagFilter := req.TagFilter
	if tagFilter == "" {
		tagFilter = models.TagFilterAll
	}

	size, err := s.audience.CountByTag(orgID, tagFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot audience: %w", err)
	}

	status := models.CampaignDraft
	if req.Scheduled {
		status = models.CampaignScheduled
	}

	campaign := &models.Campaign{
		BaseOrgModel:   models.BaseOrgModel{OrganizationID: orgID},
		Name:           req.Name,
		Status:         status,
		TemplateName:   req.TemplateName,
		TagFilter:      tagFilter,
		AudienceSize:   int(size),
		DeliveredCount: 0,
		ReadCount:      0,
	}

	if err := s.campaigns.Create(campaign); err != nil {
		return nil, err
	}

	s.events.Publish(realtime.Event{
		Table:          realtime.TableCampaigns,
		Type:           realtime.EventInsert,
		OrganizationID: orgID,
		RowID:          campaign.ID,
		New:            campaign,
	})

	return campaign, nil
}

// Launch flips a draft or scheduled campaign into running and enqueues the
// dispatch job for the worker fleet
func (s *CampaignService) Launch(ctx context.Context, orgID, id uuid.UUID) (*models.Campaign, error) {
	campaign, err := s.campaigns.GetByID(orgID, id)
	if err != nil {
		return nil, err
	}

	if campaign.Status != models.CampaignDraft && campaign.Status != models.CampaignScheduled {
		return nil, ErrCampaignNotLaunchable
	}

	if err := s.campaigns.MarkRunning(orgID, id); err != nil {
		return nil, err
	}

	job := broker.DispatchJob{
		CampaignID:   id,
		TemplateName: campaign.TemplateName,
		TagFilter:    campaign.TagFilter,
		AudienceSize: campaign.AudienceSize,
	}
	if err := s.dispatcher.Publish(ctx, broker.RouteDispatch, orgID, job); err != nil {
		// The row is already running but nothing was enqueued; the
		// operator resolves this from the broker side.
		return nil, fmt.Errorf("failed to enqueue dispatch: %w", err)
	}

	campaign, err = s.campaigns.GetByID(orgID, id)
	if err != nil {
		return nil, err
	}

	s.events.Publish(realtime.Event{
		Table:          realtime.TableCampaigns,
		Type:           realtime.EventUpdate,
		OrganizationID: orgID,
		RowID:          campaign.ID,
		New:            campaign,
	})

	log.Info().
		Str("campaign_id", id.String()).
		Int("audience_size", campaign.AudienceSize).
		Msg("campaign launched")

	return campaign, nil
}

// ApplyProgress folds a worker progress report into the campaign counters
// and emits the change to subscribed clients
func (s *CampaignService) ApplyProgress(orgID uuid.UUID, report broker.ProgressReport) error {
	campaign, err := s.campaigns.IncrementCounters(orgID, report.CampaignID, report.Delivered, report.Read)
	if err != nil {
		return err
	}

	if report.Done {
		if err := s.campaigns.MarkCompleted(orgID, report.CampaignID); err != nil {
			return err
		}
		campaign.Status = models.CampaignCompleted
	}

	s.events.Publish(realtime.Event{
		Table:          realtime.TableCampaigns,
		Type:           realtime.EventUpdate,
		OrganizationID: orgID,
		RowID:          campaign.ID,
		New:            campaign,
	})

	return nil
}

// SimulateDelivery is the dev-mode worker body: with no channel provider
// attached it walks the audience in batches and reports progress as if
// every send succeeded.
func SimulateDelivery(ctx context.Context, job broker.DispatchJob, report func(broker.ProgressReport) error) error {
	const batch = 50
	remaining := job.AudienceSize

	for remaining > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}

		n := batch
		if remaining < batch {
			n = remaining
		}
		remaining -= n

		if err := report(broker.ProgressReport{
			CampaignID: job.CampaignID,
			Delivered:  n,
			Done:       remaining == 0,
		}); err != nil {
			return err
		}
	}

	if job.AudienceSize == 0 {
		return report(broker.ProgressReport{CampaignID: job.CampaignID, Done: true})
	}
	return nil
}
