package repo

import (
	"time"

	"commhub/pkg/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CampaignRepository handles campaign data access
type CampaignRepository struct {
	db *gorm.DB
}

// NewCampaignRepository creates a new campaign repository
func NewCampaignRepository(db *gorm.DB) *CampaignRepository {
	return &CampaignRepository{db: db}
}

// GetByID gets a campaign by ID scoped to an organization
func (r *CampaignRepository) GetByID(orgID, id uuid.UUID) (*models.Campaign, error) {
	var campaign models.Campaign
	err := r.db.Where("id = ? AND organization_id = ?", id, orgID).First(&campaign).Error
	if err != nil {
		return nil, err
	}
	return &campaign, nil
}

// List lists campaigns newest send first, drafts on top
func (r *CampaignRepository) List(orgID uuid.UUID, limit, offset int) (*models.PaginationResult[models.Campaign], error) {
	var campaigns []models.Campaign
	var total int64

	query := r.db.Model(&models.Campaign{}).Where("organization_id = ?", orgID)
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	err := query.Order("sent_at DESC NULLS FIRST, created_at DESC").
		Limit(limit).Offset(offset).
		Find(&campaigns).Error
	if err != nil {
		return nil, err
	}

	result := models.NewPaginationResult(campaigns, total, limit, offset)
	return &result, nil
}

// Create creates a new campaign
func (r *CampaignRepository) Create(campaign *models.Campaign) error {
	return r.db.Create(campaign).Error
}

// Update updates a campaign
func (r *CampaignRepository) Update(campaign *models.Campaign) error {
	return r.db.Save(campaign).Error
}

// Delete soft deletes a campaign scoped to an organization
func (r *CampaignRepository) Delete(orgID, id uuid.UUID) error {
	result := r.db.Where("id = ? AND organization_id = ?", id, orgID).Delete(&models.Campaign{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MarkRunning flips a campaign into the running state and stamps sent_at
func (r *CampaignRepository) MarkRunning(orgID, id uuid.UUID) error {
	now := time.Now()
	result := r.db.Model(&models.Campaign{}).
		Where("id = ? AND organization_id = ? AND status IN ?", id, orgID,
			[]string{models.CampaignDraft, models.CampaignScheduled}).
		Updates(map[string]interface{}{
			"status":  models.CampaignRunning,
			"sent_at": &now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// IncrementCounters adds delivery progress reported by the send worker.
// Counters never exceed the audience snapshot.
func (r *CampaignRepository) IncrementCounters(orgID, id uuid.UUID, delivered, read int) (*models.Campaign, error) {
	var campaign models.Campaign
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Campaign{}).
			Where("id = ? AND organization_id = ?", id, orgID).
			Updates(map[string]interface{}{
				"delivered_count": gorm.Expr("LEAST(delivered_count + ?, audience_size)", delivered),
				"read_count":      gorm.Expr("LEAST(read_count + ?, audience_size)", read),
			}).Error; err != nil {
			return err
		}
		return tx.Where("id = ? AND organization_id = ?", id, orgID).First(&campaign).Error
	})
	if err != nil {
		return nil, err
	}
	return &campaign, nil
}

// MarkCompleted finalizes a running campaign
func (r *CampaignRepository) MarkCompleted(orgID, id uuid.UUID) error {
	return r.db.Model(&models.Campaign{}).
		Where("id = ? AND organization_id = ? AND status = ?", id, orgID, models.CampaignRunning).
		Update("status", models.CampaignCompleted).Error
}

// TemplateRepository handles message template data access
type TemplateRepository struct {
	db *gorm.DB
}

// NewTemplateRepository creates a new template repository
func NewTemplateRepository(db *gorm.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// GetByID gets a template by ID scoped to an organization
func (r *TemplateRepository) GetByID(orgID, id uuid.UUID) (*models.Template, error) {
	var template models.Template
	err := r.db.Where("id = ? AND organization_id = ?", id, orgID).First(&template).Error
	if err != nil {
		return nil, err
	}
	return &template, nil
}

// GetByName gets a template by name within an organization
func (r *TemplateRepository) GetByName(orgID uuid.UUID, name string) (*models.Template, error) {
	var template models.Template
	err := r.db.Where("organization_id = ? AND name = ?", orgID, name).First(&template).Error
	if err != nil {
		return nil, err
	}
	return &template, nil
}

// List lists templates for an organization, optionally by approval status
func (r *TemplateRepository) List(orgID uuid.UUID, status string, limit, offset int) (*models.PaginationResult[models.Template], error) {
	var templates []models.Template
	var total int64

	query := r.db.Model(&models.Template{}).Where("organization_id = ?", orgID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&templates).Error
	if err != nil {
		return nil, err
	}

	result := models.NewPaginationResult(templates, total, limit, offset)
	return &result, nil
}

// Create inserts a template. New templates always enter review as PENDING
// regardless of what the caller sent; approval comes from the channel
// provider's review flow.
func (r *TemplateRepository) Create(template *models.Template) error {
	template.Status = models.TemplatePending
	return r.db.Create(template).Error
}

// UpdateStatus applies the provider's review verdict
func (r *TemplateRepository) UpdateStatus(orgID, id uuid.UUID, status string) error {
	result := r.db.Model(&models.Template{}).
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

// Delete soft deletes a template scoped to an organization
func (r *TemplateRepository) Delete(orgID, id uuid.UUID) error {
	result := r.db.Where("id = ? AND organization_id = ?", id, orgID).Delete(&models.Template{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
