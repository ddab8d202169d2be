package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"commhub/pkg/models"

	"github.com/google/uuid"
)

func TestCreateCampaignSendsPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/campaigns" || r.Method != http.MethodPost {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}

		var params CreateCampaignParams
		json.NewDecoder(r.Body).Decode(&params)
		if params.Name != "Spring promo" || params.TagFilter != "vip" {
			t.Errorf("payload not forwarded: %+v", params)
		}

		campaign := models.Campaign{
			Name:         params.Name,
			Status:       models.CampaignDraft,
			TagFilter:    params.TagFilter,
			AudienceSize: 42,
		}
		campaign.ID = uuid.New()
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(campaign)
	}))
	defer server.Close()

	c := New(server.URL)
	campaign, err := c.CreateCampaign(context.Background(), CreateCampaignParams{
		Name:      "Spring promo",
		TagFilter: "vip",
	})
	if err != nil {
		t.Fatal(err)
	}
	if campaign.AudienceSize != 42 {
		t.Errorf("audience snapshot not returned: %d", campaign.AudienceSize)
	}
}

func TestLaunchCampaignConflictSurfaces422(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{"error": "Campaign already launched"})
	}))
	defer server.Close()

	_, err := New(server.URL).LaunchCampaign(context.Background(), uuid.New())
	if !IsStatus(err, http.StatusUnprocessableEntity) {
		t.Fatalf("expected 422 APIError, got %v", err)
	}
}

func TestAssignConversationConflictSurfaces409(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			ExpectedAssignee *uuid.UUID `json:"expected_assignee"`
		}
		json.NewDecoder(r.Body).Decode(&payload)
		if payload.ExpectedAssignee == nil {
			t.Error("expected_assignee not sent")
		}

		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"error": "Conversation was reassigned, refresh and retry"})
	}))
	defer server.Close()

	expected := uuid.New()
	assignee := uuid.New()
	_, err := New(server.URL).AssignConversation(context.Background(), uuid.New(), &assignee, &expected)
	if !IsStatus(err, http.StatusConflict) {
		t.Fatalf("expected 409 APIError, got %v", err)
	}
}

func TestSetMessageStatusBackwardsRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{"error": "Status cannot move backwards"})
	}))
	defer server.Close()

	_, err := New(server.URL).SetMessageStatus(context.Background(), uuid.New(), models.MessageQueued)
	if !IsStatus(err, http.StatusUnprocessableEntity) {
		t.Fatalf("expected 422 APIError, got %v", err)
	}
}

func TestCreateTemplateReturnsPendingStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var template models.Template
		json.NewDecoder(r.Body).Decode(&template)
		if template.Status != models.TemplatePending {
			t.Errorf("client sent status %q, must always submit pending", template.Status)
		}

		template.ID = uuid.New()
		template.Status = models.TemplatePending
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(template)
	}))
	defer server.Close()

	template, err := New(server.URL).CreateTemplate(context.Background(), models.Template{
		Name:   "order_update",
		Status: models.TemplateApproved,
	})
	if err != nil {
		t.Fatal(err)
	}
	if template.Status != models.TemplatePending {
		t.Errorf("status = %q, want pending", template.Status)
	}
}

func TestOrganizationHeaderSentWhenPinned(t *testing.T) {
	orgID := uuid.New()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Organization-ID"); got != orgID.String() {
			t.Errorf("X-Organization-ID = %q, want %s", got, orgID)
		}
		org := models.Organization{Name: "Acme"}
		org.ID = orgID
		json.NewEncoder(w).Encode(org)
	}))
	defer server.Close()

	c := New(server.URL)
	c.SetOrganization(&orgID)

	if _, err := c.ToggleOrganizationStatus(context.Background(), orgID); err != nil {
		t.Fatal(err)
	}
}
