package repo

import (
	"encoding/json"

	"commhub/pkg/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// tagFilterValue builds the one-element JSONB array used for tag
// containment; marshaling keeps tags with quotes or backslashes well-formed
func tagFilterValue(tag string) string {
	value, _ := json.Marshal([]string{tag})
	return string(value)
}

// ContactRepository handles contact data access
type ContactRepository struct {
	db *gorm.DB
}

// NewContactRepository creates a new contact repository
func NewContactRepository(db *gorm.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

// GetByID gets a contact by ID scoped to an organization
func (r *ContactRepository) GetByID(orgID, id uuid.UUID) (*models.Contact, error) {
	var contact models.Contact
	err := r.db.Where("id = ? AND organization_id = ?", id, orgID).First(&contact).Error
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

// GetByPhone gets a contact by phone number within an organization
func (r *ContactRepository) GetByPhone(orgID uuid.UUID, phone string) (*models.Contact, error) {
	var contact models.Contact
	err := r.db.Where("organization_id = ? AND phone = ?", orgID, phone).First(&contact).Error
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

// List lists contacts for an organization with pagination, ordered by name
// so the directory renders stably between refetches
func (r *ContactRepository) List(orgID uuid.UUID, search string, limit, offset int) (*models.PaginationResult[models.Contact], error) {
	var contacts []models.Contact
	var total int64

	query := r.db.Model(&models.Contact{}).Where("organization_id = ?", orgID)
	if search != "" {
		like := "%" + search + "%"
		query = query.Where("name ILIKE ? OR phone ILIKE ? OR email ILIKE ?", like, like, like)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	err := query.Order("name ASC, id ASC").Limit(limit).Offset(offset).Find(&contacts).Error
	if err != nil {
		return nil, err
	}

	result := models.NewPaginationResult(contacts, total, limit, offset)
	return &result, nil
}

// ListByTag returns the contacts matching a campaign tag filter. The
// reserved filter "Todos" selects every contact in the organization.
func (r *ContactRepository) ListByTag(orgID uuid.UUID, tag string) ([]models.Contact, error) {
	var contacts []models.Contact
	query := r.db.Where("organization_id = ?", orgID)
	if tag != "" && tag != models.TagFilterAll {
		query = query.Where("tags @> ?", tagFilterValue(tag))
	}
	err := query.Order("name ASC").Find(&contacts).Error
	return contacts, err
}

// CountByTag returns the audience size for a campaign tag filter
func (r *ContactRepository) CountByTag(orgID uuid.UUID, tag string) (int64, error) {
	var count int64
	query := r.db.Model(&models.Contact{}).Where("organization_id = ?", orgID)
	if tag != "" && tag != models.TagFilterAll {
		query = query.Where("tags @> ?", tagFilterValue(tag))
	}
	err := query.Count(&count).Error
	return count, err
}

// Create creates a new contact
func (r *ContactRepository) Create(contact *models.Contact) error {
	return r.db.Create(contact).Error
}

// Update updates a contact
func (r *ContactRepository) Update(contact *models.Contact) error {
	return r.db.Save(contact).Error
}

// Delete soft deletes a contact scoped to an organization
func (r *ContactRepository) Delete(orgID, id uuid.UUID) error {
	result := r.db.Where("id = ? AND organization_id = ?", id, orgID).Delete(&models.Contact{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DistinctTags returns every tag in use across an organization's contacts
func (r *ContactRepository) DistinctTags(orgID uuid.UUID) ([]string, error) {
	var tags []string
	err := r.db.Raw(`
		SELECT DISTINCT tag FROM contacts, jsonb_array_elements_text(tags) AS tag
		WHERE organization_id = ? AND deleted_at IS NULL
		ORDER BY tag`, orgID).Scan(&tags).Error
	return tags, err
}
