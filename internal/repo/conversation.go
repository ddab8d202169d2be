package repo

import (
	"errors"
	"time"

	"commhub/pkg/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrInvalidStatusTransition is returned when a message delivery status
// update would move backwards or leave the failed state.
var ErrInvalidStatusTransition = errors.New("invalid message status transition")

// ErrAssignmentConflict is returned when a conversation assignment carries
// an expected_assignee precondition that no longer holds.
var ErrAssignmentConflict = errors.New("conversation assignment conflict")

// ConversationRepository handles conversation data access
type ConversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository creates a new conversation repository
func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// GetByID gets a conversation by ID scoped to an organization
func (r *ConversationRepository) GetByID(orgID, id uuid.UUID) (*models.Conversation, error) {
	var conversation models.Conversation
	err := r.db.Preload("Contact").
		Where("id = ? AND organization_id = ?", id, orgID).
		First(&conversation).Error
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

// List lists conversations for an organization ordered by most recent
// message first, which is the inbox display order
func (r *ConversationRepository) List(orgID uuid.UUID, status string, assignedTo *uuid.UUID, limit, offset int) (*models.PaginationResult[models.Conversation], error) {
	var conversations []models.Conversation
	var total int64

	query := r.db.Model(&models.Conversation{}).Where("organization_id = ?", orgID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if assignedTo != nil {
		query = query.Where("assigned_to = ?", *assignedTo)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	err := query.Preload("Contact").
		Order("last_message_at DESC NULLS LAST, created_at DESC").
		Limit(limit).Offset(offset).
		Find(&conversations).Error
	if err != nil {
		return nil, err
	}

	result := models.NewPaginationResult(conversations, total, limit, offset)
	return &result, nil
}

// conversationKeyConflict targets the partial unique index over
// (organization_id, contact_id, channel). The predicate must match the
// index definition or Postgres cannot infer it as the conflict arbiter.
func conversationKeyConflict() clause.OnConflict {
	return clause.OnConflict{
		Columns: []clause.Column{
			{Name: "organization_id"}, {Name: "contact_id"}, {Name: "channel"},
		},
		TargetWhere: clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: "deleted_at IS NULL"},
		}},
		DoNothing: true,
	}
}

// FindOrCreate returns the single conversation for (organization, contact,
// channel), creating it when none exists yet
func (r *ConversationRepository) FindOrCreate(orgID, contactID uuid.UUID, channel string) (*models.Conversation, error) {
	var conversation models.Conversation
	err := r.db.Where("organization_id = ? AND contact_id = ? AND channel = ?", orgID, contactID, channel).
		First(&conversation).Error
	if err == nil {
		return &conversation, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	conversation = models.Conversation{
		BaseOrgModel: models.BaseOrgModel{OrganizationID: orgID},
		ContactID:    contactID,
		Channel:      channel,
		Status:       models.ConversationOpen,
		Priority:     models.PriorityMedium,
	}
	if err := r.db.Clauses(conversationKeyConflict()).Create(&conversation).Error; err != nil {
		return nil, err
	}

	// Re-read in case a concurrent insert won the conflict
	err = r.db.Where("organization_id = ? AND contact_id = ? AND channel = ?", orgID, contactID, channel).
		First(&conversation).Error
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

// Update updates a conversation
func (r *ConversationRepository) Update(conversation *models.Conversation) error {
	conversation.Contact = nil
	return r.db.Save(conversation).Error
}

// UpdateStatus updates a conversation's workflow status
func (r *ConversationRepository) UpdateStatus(orgID, id uuid.UUID, status string) error {
	result := r.db.Model(&models.Conversation{}).
		Where("id = ? AND organization_id = ?", id, orgID).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Assign sets the conversation owner. When expected is non-nil the update
// only applies if the current assignee still matches; a stale precondition
// surfaces as ErrAssignmentConflict so the API can answer 409.
func (r *ConversationRepository) Assign(orgID, id uuid.UUID, assignee *uuid.UUID, expected *uuid.UUID) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var conversation models.Conversation
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND organization_id = ?", id, orgID).
			First(&conversation).Error
		if err != nil {
			return err
		}

		if expected != nil {
			current := conversation.AssignedTo
			if current == nil || *current != *expected {
				return ErrAssignmentConflict
			}
		}

		return tx.Model(&models.Conversation{}).
			Where("id = ?", id).
			Update("assigned_to", assignee).Error
	})
}

// MarkRead zeroes the unread counter
func (r *ConversationRepository) MarkRead(orgID, id uuid.UUID) error {
	result := r.db.Model(&models.Conversation{}).
		Where("id = ? AND organization_id = ?", id, orgID).
		Update("unread_count", 0)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountOpenByUser returns the active conversation count for an agent
func (r *ConversationRepository) CountOpenByUser(orgID, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.Model(&models.Conversation{}).
		Where("organization_id = ? AND assigned_to = ? AND status = ?", orgID, userID, models.ConversationOpen).
		Count(&count).Error
	return count, err
}

// MessageRepository handles message data access
type MessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// GetByID gets a message by ID scoped to an organization
func (r *MessageRepository) GetByID(orgID, id uuid.UUID) (*models.Message, error) {
	var message models.Message
	err := r.db.Where("id = ? AND organization_id = ?", id, orgID).First(&message).Error
	if err != nil {
		return nil, err
	}
	return &message, nil
}

// ListByConversation lists messages in a thread oldest first
func (r *MessageRepository) ListByConversation(orgID, conversationID uuid.UUID, limit, offset int) (*models.PaginationResult[models.Message], error) {
	var messages []models.Message
	var total int64

	query := r.db.Model(&models.Message{}).
		Where("organization_id = ? AND conversation_id = ?", orgID, conversationID)

	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	err := query.Order("created_at ASC, id ASC").Limit(limit).Offset(offset).Find(&messages).Error
	if err != nil {
		return nil, err
	}

	result := models.NewPaginationResult(messages, total, limit, offset)
	return &result, nil
}

// Append inserts a message and rolls the parent conversation's preview,
// timestamp and unread counter forward in the same transaction
func (r *MessageRepository) Append(message *models.Message, fromContact bool) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(message).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{
			"last_message":    message.Body,
			"last_message_at": time.Now(),
		}
		if fromContact {
			updates["unread_count"] = gorm.Expr("unread_count + 1")
		}

		return tx.Model(&models.Conversation{}).
			Where("id = ? AND organization_id = ?", message.ConversationID, message.OrganizationID).
			Updates(updates).Error
	})
}

// UpdateStatus advances a message's delivery status. Transitions only move
// forward and failed is terminal; anything else is rejected.
func (r *MessageRepository) UpdateStatus(orgID, id uuid.UUID, status string) (*models.Message, error) {
	var message models.Message
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND organization_id = ?", id, orgID).
			First(&message).Error; err != nil {
			return err
		}

		if !models.CanTransitionMessageStatus(message.Status, status) {
			return ErrInvalidStatusTransition
		}

		now := time.Now()
		updates := map[string]interface{}{"status": status}
		switch status {
		case models.MessageDelivered:
			updates["delivered_at"] = &now
		case models.MessageRead:
			updates["read_at"] = &now
		}

		if err := tx.Model(&message).Updates(updates).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).First(&message).Error
	})
	if err != nil {
		return nil, err
	}
	return &message, nil
}
