package realtime

import (
	"time"

	"github.com/google/uuid"
)

// Event types mirror the row operations of the underlying store
const (
	EventInsert = "INSERT"
	EventUpdate = "UPDATE"
	EventDelete = "DELETE"
)

// Watched tables
const (
	TableContacts      = "contacts"
	TableConversations = "conversations"
	TableMessages      = "messages"
	TableCampaigns     = "campaigns"
	TableTemplates     = "templates"
	TableAppointments  = "appointments"
	TableUsers         = "users"
	TableOrganizations = "organizations"
)

// Event is a row-level change notification pushed to subscribed clients.
// New carries the row after the change (INSERT/UPDATE), Old the identifying
// fields before it (UPDATE/DELETE).
type Event struct {
	Table          string      `json:"table"`
	Type           string      `json:"type"`
	OrganizationID uuid.UUID   `json:"organization_id"`
	RowID          uuid.UUID   `json:"row_id"`
	New            interface{} `json:"new,omitempty"`
	Old            interface{} `json:"old,omitempty"`
	Timestamp      time.Time   `json:"timestamp"`
}

// Publisher is the write-side interface: repositories and services emit a
// change event after a row lands.
type Publisher interface {
	Publish(event Event)
}

// NopPublisher discards events; used where no hub is wired (worker CLIs,
// tests that do not observe the feed).
type NopPublisher struct{}

func (NopPublisher) Publish(Event) {}
