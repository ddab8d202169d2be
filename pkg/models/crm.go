package models

import (
	"time"

	"github.com/google/uuid"
)

// Contact represents a customer contact in the directory
type Contact struct {
	BaseOrgModel
	Name         string     `gorm:"not null" json:"name" validate:"required"`
	Phone        string     `gorm:"not null;index" json:"phone" validate:"required"`
	Email        string     `json:"email"`
	Avatar       string     `json:"avatar"`
	IsVIP        bool       `gorm:"column:is_vip;default:false" json:"is_vip"`
	Location     string     `json:"location"`
	Company      string     `json:"company"`
	Tags         StringList `gorm:"type:jsonb;default:'[]'" json:"tags"`
	LastSeen     *time.Time `json:"last_seen"`
	AssignedTo   *uuid.UUID `gorm:"type:uuid;constraint:OnDelete:SET NULL" json:"assigned_to"`
	CustomFields JSONMap    `gorm:"type:jsonb;default:'{}'" json:"custom_fields"`
}

// Conversation channels
const (
	ChannelWhatsApp  = "whatsapp"
	ChannelInstagram = "instagram"
	ChannelMessenger = "messenger"
)

// Conversation statuses
const (
	ConversationOpen     = "open"
	ConversationResolved = "resolved"
	ConversationSnoozed  = "snoozed"
)

// Conversation priorities
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Conversation represents a message thread with a contact on one channel.
// Exactly one conversation exists per (organization, contact, channel).
type Conversation struct {
	BaseOrgModel
	// The one-thread-per-contact-and-channel key is a partial unique index
	// over (organization_id, contact_id, channel) created by the migration;
	// it must stay out of the tags so soft-deleted threads do not block
	// reopening.
	ContactID     uuid.UUID  `gorm:"type:uuid;not null;index;constraint:OnDelete:RESTRICT" json:"contact_id"`
	Channel       string     `gorm:"not null;default:'whatsapp'" json:"channel"`
	Status        string     `gorm:"default:'open'" json:"status"`
	Priority      string     `gorm:"default:'medium'" json:"priority"`
	Tags          StringList `gorm:"type:jsonb;default:'[]'" json:"tags"`
	UnreadCount   int        `gorm:"default:0" json:"unread_count"`
	LastMessage   string     `json:"last_message"`
	LastMessageAt *time.Time `json:"last_message_at"`
	SLADeadline   *time.Time `gorm:"column:sla_deadline" json:"sla_deadline"`
	AssignedTo    *uuid.UUID `gorm:"type:uuid;constraint:OnDelete:SET NULL" json:"assigned_to"`

	// Relations
	Contact *Contact `gorm:"foreignKey:ContactID" json:"contact,omitempty"`
}

// Message types
const (
	MessageTypeText  = "text"
	MessageTypeImage = "image"
	MessageTypeAudio = "audio"
	MessageTypeFile  = "file"
	MessageTypeNote  = "note"
)

// Message delivery statuses (monotonic except failed, which is terminal)
const (
	MessageQueued    = "queued"
	MessageSent      = "sent"
	MessageDelivered = "delivered"
	MessageRead      = "read"
	MessageFailed    = "failed"
)

// SenderSystem is the reserved sender id for internal notes
const SenderSystem = "system"

var messageStatusRank = map[string]int{
	MessageQueued:    0,
	MessageSent:      1,
	MessageDelivered: 2,
	MessageRead:      3,
}

// CanTransitionMessageStatus reports whether a delivery-status change is
// legal: status only moves forward, and failed is terminal.
func CanTransitionMessageStatus(from, to string) bool {
	if from == to {
		return false
	}
	if from == MessageFailed {
		return false
	}
	if to == MessageFailed {
		return true
	}
	fromRank, ok := messageStatusRank[from]
	if !ok {
		return false
	}
	toRank, ok := messageStatusRank[to]
	if !ok {
		return false
	}
	return toRank > fromRank
}

// Message represents one entry in a conversation. Append-only: messages
// are never edited or removed, only their delivery status advances.
type Message struct {
	BaseOrgModel
	ConversationID uuid.UUID  `gorm:"type:uuid;not null;index;constraint:OnDelete:RESTRICT" json:"conversation_id"`
	Sender         string     `gorm:"not null" json:"sender"` // "user:<id>", "contact:<id>" or "system"
	UserID         *uuid.UUID `gorm:"type:uuid;constraint:OnDelete:SET NULL" json:"user_id"`
	Body           string     `gorm:"type:text" json:"body"`
	Type           string     `gorm:"not null;default:'text'" json:"type"`
	Status         string     `gorm:"default:'queued'" json:"status"`
	FileURL        string     `json:"file_url,omitempty"`
	FileName       string     `json:"file_name,omitempty"`
	FileSize       string     `json:"file_size,omitempty"`
	DeliveredAt    *time.Time `json:"delivered_at"`
	ReadAt         *time.Time `json:"read_at"`
}

// Appointment statuses
const (
	AppointmentConfirmed = "confirmed"
	AppointmentPending   = "pending"
	AppointmentCancelled = "cancelled"
)

// Appointment represents a scheduled meeting with a contact
type Appointment struct {
	BaseOrgModel
	ContactID uuid.UUID `gorm:"type:uuid;not null;constraint:OnDelete:RESTRICT" json:"contact_id"`
	Date      string    `gorm:"not null" json:"date"`
	Time      string    `gorm:"not null" json:"time"`
	Type      string    `json:"type"`
	Status    string    `gorm:"default:'pending'" json:"status"`

	// Relations
	Contact *Contact `gorm:"foreignKey:ContactID" json:"contact,omitempty"`
}
