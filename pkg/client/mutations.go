package client

import (
	"context"
	"fmt"

	"commhub/pkg/models"

	"github.com/google/uuid"
)

// Typed mutation helpers for operations that do not fit the generic store
// CRUD: campaign launches, conversation lifecycle, console administration.

// CreateCampaignParams mirrors the campaign creation payload. The backend
// snapshots the audience size at creation; an empty tag filter targets
// every contact.
type CreateCampaignParams struct {
	Name         string `json:"name"`
	TemplateName string `json:"template_name"`
	TagFilter    string `json:"tag_filter"`
	Scheduled    bool   `json:"scheduled"`
}

// CreateCampaign creates a campaign draft
func (c *Client) CreateCampaign(ctx context.Context, params CreateCampaignParams) (*models.Campaign, error) {
	var campaign models.Campaign
	if err := c.post(ctx, "/campaigns", params, &campaign); err != nil {
		return nil, err
	}
	return &campaign, nil
}

// LaunchCampaign hands a draft to the send pipeline. Conflicting relaunch
// attempts return a 422 APIError.
func (c *Client) LaunchCampaign(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	var campaign models.Campaign
	if err := c.post(ctx, fmt.Sprintf("/campaigns/%s/launch", id), nil, &campaign); err != nil {
		return nil, err
	}
	return &campaign, nil
}

// CreateTemplate submits a template draft. Approval belongs to the
// provider's review workflow: the status is forced to pending here and the
// backend enforces the same rule.
func (c *Client) CreateTemplate(ctx context.Context, template models.Template) (*models.Template, error) {
	template.Status = models.TemplatePending

	var created models.Template
	if err := c.post(ctx, "/templates", template, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// OpenConversation returns the one thread for (contact, channel),
// creating it if missing. Channel defaults to whatsapp.
func (c *Client) OpenConversation(ctx context.Context, contactID uuid.UUID, channel string) (*models.Conversation, error) {
	payload := map[string]interface{}{"contact_id": contactID}
	if channel != "" {
		payload["channel"] = channel
	}

	var conversation models.Conversation
	if err := c.post(ctx, "/conversations", payload, &conversation); err != nil {
		return nil, err
	}
	return &conversation, nil
}

// SendMessage appends an outbound message or internal note to a thread
func (c *Client) SendMessage(ctx context.Context, conversationID uuid.UUID, body, msgType string) (*models.Message, error) {
	payload := map[string]string{"body": body}
	if msgType != "" {
		payload["type"] = msgType
	}

	var message models.Message
	if err := c.post(ctx, fmt.Sprintf("/conversations/%s/messages", conversationID), payload, &message); err != nil {
		return nil, err
	}
	return &message, nil
}

// AssignConversation hands a thread to another agent. Passing the
// assignee the caller last saw makes the write conditional: a stale
// expectation returns a 409 APIError instead of clobbering.
func (c *Client) AssignConversation(ctx context.Context, conversationID uuid.UUID, assignTo, expected *uuid.UUID) (*models.Conversation, error) {
	payload := map[string]interface{}{"assigned_to": assignTo}
	if expected != nil {
		payload["expected_assignee"] = expected
	}

	var conversation models.Conversation
	if err := c.put(ctx, fmt.Sprintf("/conversations/%s/assign", conversationID), payload, &conversation); err != nil {
		return nil, err
	}
	return &conversation, nil
}

// SetConversationStatus moves a thread between open, resolved and snoozed
func (c *Client) SetConversationStatus(ctx context.Context, conversationID uuid.UUID, status string) (*models.Conversation, error) {
	var conversation models.Conversation
	err := c.put(ctx, fmt.Sprintf("/conversations/%s/status", conversationID), map[string]string{"status": status}, &conversation)
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

// MarkConversationRead zeroes the unread counter
func (c *Client) MarkConversationRead(ctx context.Context, conversationID uuid.UUID) error {
	return c.post(ctx, fmt.Sprintf("/conversations/%s/read", conversationID), nil, nil)
}

// SetMessageStatus advances a message's delivery status. Backwards moves
// return a 422 APIError.
func (c *Client) SetMessageStatus(ctx context.Context, messageID uuid.UUID, status string) (*models.Message, error) {
	var message models.Message
	err := c.put(ctx, fmt.Sprintf("/messages/%s/status", messageID), map[string]string{"status": status}, &message)
	if err != nil {
		return nil, err
	}
	return &message, nil
}

// UpdateOrganization changes the caller's organization profile. Plan and
// status are console-owned and not accepted here.
func (c *Client) UpdateOrganization(ctx context.Context, name string, settings, integrations models.JSONMap) (*models.Organization, error) {
	payload := map[string]interface{}{"name": name}
	if settings != nil {
		payload["settings"] = settings
	}
	if integrations != nil {
		payload["integrations"] = integrations
	}

	var org models.Organization
	if err := c.put(ctx, "/organization", payload, &org); err != nil {
		return nil, err
	}
	return &org, nil
}

// ToggleOrganizationStatus flips an organization between active and
// suspended. Console operation, super admin only.
func (c *Client) ToggleOrganizationStatus(ctx context.Context, orgID uuid.UUID) (*models.Organization, error) {
	var org models.Organization
	if err := c.post(ctx, fmt.Sprintf("/admin/organizations/%s/toggle-status", orgID), nil, &org); err != nil {
		return nil, err
	}
	return &org, nil
}

// SuggestReply asks the assistant for a draft answer to the thread
func (c *Client) SuggestReply(ctx context.Context, conversationID uuid.UUID) (string, error) {
	var resp struct {
		Suggestion string `json:"suggestion"`
	}
	if err := c.post(ctx, fmt.Sprintf("/conversations/%s/suggest-reply", conversationID), nil, &resp); err != nil {
		return "", err
	}
	return resp.Suggestion, nil
}

// Heartbeat reports the caller's presence status
func (c *Client) Heartbeat(ctx context.Context, status string) error {
	return c.put(ctx, "/team/presence", map[string]string{"status": status}, nil)
}
