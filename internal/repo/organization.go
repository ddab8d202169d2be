package repo

import (
	"commhub/pkg/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrganizationRepository handles organization data access
type OrganizationRepository struct {
	db *gorm.DB
}

// NewOrganizationRepository creates a new organization repository
func NewOrganizationRepository(db *gorm.DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

// GetDB returns the database connection for custom queries
func (r *OrganizationRepository) GetDB() *gorm.DB {
	return r.db
}

// GetByID gets an organization by ID
func (r *OrganizationRepository) GetByID(id uuid.UUID) (*models.Organization, error) {
	var org models.Organization
	err := r.db.Where("id = ?", id).First(&org).Error
	if err != nil {
		return nil, err
	}
	return &org, nil
}

// GetByName gets an organization by exact name
func (r *OrganizationRepository) GetByName(name string) (*models.Organization, error) {
	var org models.Organization
	err := r.db.Where("name = ?", name).First(&org).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &org, nil
}

// Create creates a new organization
func (r *OrganizationRepository) Create(org *models.Organization) error {
	return r.db.Create(org).Error
}

// Update updates an organization
func (r *OrganizationRepository) Update(org *models.Organization) error {
	return r.db.Save(org).Error
}

// OrganizationWithStats is a console row with membership and admin info
type OrganizationWithStats struct {
	models.Organization
	UserCount  int64  `json:"user_count"`
	AdminEmail string `json:"admin_email"`
}

// List lists organizations for the platform console, newest first, with
// member counts and the admin contact
func (r *OrganizationRepository) List(limit, offset int) (*models.PaginationResult[OrganizationWithStats], error) {
	var rows []OrganizationWithStats
	var total int64

	if err := r.db.Model(&models.Organization{}).Count(&total).Error; err != nil {
		return nil, err
	}

	err := r.db.Table("organizations").
		Select(`organizations.*,
			COALESCE(members.cnt, 0) as user_count,
			COALESCE(admins.email, '') as admin_email`).
		Joins(`LEFT JOIN (
			SELECT organization_id, COUNT(*) as cnt FROM users
			WHERE deleted_at IS NULL GROUP BY organization_id
		) members ON members.organization_id = organizations.id`).
		Joins(`LEFT JOIN users admins ON admins.organization_id = organizations.id AND admins.role = 'org_admin'`).
		Where("organizations.deleted_at IS NULL").
		Order("organizations.created_at DESC").
		Limit(limit).
		Offset(offset).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	result := models.NewPaginationResult(rows, total, limit, offset)
	return &result, nil
}

// SetStatus suspends or reactivates an organization
func (r *OrganizationRepository) SetStatus(id uuid.UUID, status string) error {
	result := r.db.Model(&models.Organization{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete soft deletes an organization
func (r *OrganizationRepository) Delete(id uuid.UUID) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return tx.Delete(&models.Organization{}, "id = ?", id).Error
	})
}
