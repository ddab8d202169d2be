package services

import (
	"context"
	"testing"

	"commhub/internal/broker"
	"commhub/internal/realtime"
	"commhub/pkg/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type fakeCampaignRepo struct {
	rows map[uuid.UUID]*models.Campaign
}

func newFakeCampaignRepo() *fakeCampaignRepo {
	return &fakeCampaignRepo{rows: make(map[uuid.UUID]*models.Campaign)}
}

func (f *fakeCampaignRepo) GetByID(orgID, id uuid.UUID) (*models.Campaign, error) {
	c, ok := f.rows[id]
	if !ok || c.OrganizationID != orgID {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *c
	return &copied, nil
}

func (f *fakeCampaignRepo) Create(campaign *models.Campaign) error {
	if campaign.ID == uuid.Nil {
		campaign.ID = uuid.New()
	}
	copied := *campaign
	f.rows[campaign.ID] = &copied
	return nil
}

func (f *fakeCampaignRepo) MarkRunning(orgID, id uuid.UUID) error {
	c, ok := f.rows[id]
	if !ok || c.OrganizationID != orgID {
		return gorm.ErrRecordNotFound
	}
	c.Status = models.CampaignRunning
	return nil
}

func (f *fakeCampaignRepo) IncrementCounters(orgID, id uuid.UUID, delivered, read int) (*models.Campaign, error) {
	c, ok := f.rows[id]
	if !ok || c.OrganizationID != orgID {
		return nil, gorm.ErrRecordNotFound
	}
	c.DeliveredCount += delivered
	c.ReadCount += read
	if c.DeliveredCount > c.AudienceSize {
		c.DeliveredCount = c.AudienceSize
	}
	if c.ReadCount > c.AudienceSize {
		c.ReadCount = c.AudienceSize
	}
	copied := *c
	return &copied, nil
}

func (f *fakeCampaignRepo) MarkCompleted(orgID, id uuid.UUID) error {
	c, ok := f.rows[id]
	if !ok || c.OrganizationID != orgID {
		return gorm.ErrRecordNotFound
	}
	c.Status = models.CampaignCompleted
	return nil
}

type fakeAudience struct {
	counts map[string]int64
}

func (f *fakeAudience) CountByTag(orgID uuid.UUID, tag string) (int64, error) {
	return f.counts[tag], nil
}

type fakeDispatcher struct {
	published []string
}

func (f *fakeDispatcher) Publish(ctx context.Context, route string, orgID uuid.UUID, payload interface{}) error {
	f.published = append(f.published, route)
	return nil
}

type captureEvents struct {
	events []realtime.Event
}

func (c *captureEvents) Publish(event realtime.Event) {
	c.events = append(c.events, event)
}

func TestCreateSnapshotsAudience(t *testing.T) {
	repo := newFakeCampaignRepo()
	audience := &fakeAudience{counts: map[string]int64{models.TagFilterAll: 120, "vip": 7}}
	svc := NewCampaignService(repo, audience, &fakeDispatcher{}, nil)
	orgID := uuid.New()

	campaign, err := svc.Create(orgID, CreateCampaignRequest{Name: "Promo", TagFilter: "vip"})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if campaign.AudienceSize != 7 {
		t.Errorf("AudienceSize = %d, want tag-filtered 7", campaign.AudienceSize)
	}
	if campaign.DeliveredCount != 0 || campaign.ReadCount != 0 {
		t.Error("delivery counters must start at zero")
	}
	if campaign.Status != models.CampaignDraft {
		t.Errorf("status = %q, want draft", campaign.Status)
	}

	// Empty filter defaults to the whole directory
	campaign, err = svc.Create(orgID, CreateCampaignRequest{Name: "Todos", Scheduled: true})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if campaign.TagFilter != models.TagFilterAll {
		t.Errorf("TagFilter = %q, want %q", campaign.TagFilter, models.TagFilterAll)
	}
	if campaign.AudienceSize != 120 {
		t.Errorf("AudienceSize = %d, want 120", campaign.AudienceSize)
	}
	if campaign.Status != models.CampaignScheduled {
		t.Errorf("status = %q, want scheduled", campaign.Status)
	}
}

func TestLaunchDispatchesOnce(t *testing.T) {
	repo := newFakeCampaignRepo()
	audience := &fakeAudience{counts: map[string]int64{models.TagFilterAll: 10}}
	dispatcher := &fakeDispatcher{}
	events := &captureEvents{}
	svc := NewCampaignService(repo, audience, dispatcher, events)
	orgID := uuid.New()

	campaign, err := svc.Create(orgID, CreateCampaignRequest{Name: "Promo"})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	launched, err := svc.Launch(context.Background(), orgID, campaign.ID)
	if err != nil {
		t.Fatalf("Launch error: %v", err)
	}
	if launched.Status != models.CampaignRunning {
		t.Errorf("status = %q, want running", launched.Status)
	}
	if len(dispatcher.published) != 1 || dispatcher.published[0] != broker.RouteDispatch {
		t.Errorf("published = %v, want one dispatch", dispatcher.published)
	}

	// Relaunching a running campaign is rejected
	if _, err := svc.Launch(context.Background(), orgID, campaign.ID); err != ErrCampaignNotLaunchable {
		t.Errorf("second launch error = %v, want ErrCampaignNotLaunchable", err)
	}
}

func TestLaunchScopedToOrganization(t *testing.T) {
	repo := newFakeCampaignRepo()
	svc := NewCampaignService(repo, &fakeAudience{counts: map[string]int64{models.TagFilterAll: 5}}, &fakeDispatcher{}, nil)

	owner := uuid.New()
	campaign, err := svc.Create(owner, CreateCampaignRequest{Name: "Promo"})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}

	if _, err := svc.Launch(context.Background(), uuid.New(), campaign.ID); err == nil {
		t.Fatal("expected launch from a foreign organization to fail")
	}
}

func TestApplyProgressCapsAndCompletes(t *testing.T) {
	repo := newFakeCampaignRepo()
	events := &captureEvents{}
	svc := NewCampaignService(repo, &fakeAudience{counts: map[string]int64{models.TagFilterAll: 10}}, &fakeDispatcher{}, events)
	orgID := uuid.New()

	campaign, _ := svc.Create(orgID, CreateCampaignRequest{Name: "Promo"})

	if err := svc.ApplyProgress(orgID, broker.ProgressReport{CampaignID: campaign.ID, Delivered: 8, Read: 3}); err != nil {
		t.Fatalf("ApplyProgress error: %v", err)
	}
	if err := svc.ApplyProgress(orgID, broker.ProgressReport{CampaignID: campaign.ID, Delivered: 8, Read: 2, Done: true}); err != nil {
		t.Fatalf("ApplyProgress error: %v", err)
	}

	final, _ := repo.GetByID(orgID, campaign.ID)
	if final.DeliveredCount != 10 {
		t.Errorf("DeliveredCount = %d, want capped at audience 10", final.DeliveredCount)
	}
	if final.ReadCount != 5 {
		t.Errorf("ReadCount = %d, want 5", final.ReadCount)
	}
	if final.Status != models.CampaignCompleted {
		t.Errorf("status = %q, want completed", final.Status)
	}

	// Every progress application emitted a campaigns update event
	updates := 0
	for _, ev := range events.events {
		if ev.Table == realtime.TableCampaigns && ev.Type == realtime.EventUpdate {
			updates++
		}
	}
	if updates != 2 {
		t.Errorf("update events = %d, want 2", updates)
	}
}
