package repo

import (
	"time"

	"commhub/pkg/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRepository handles user data access
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByEmail gets a user by email
func (r *UserRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	err := r.db.Where("LOWER(email) = LOWER(?)", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByID gets a user by ID
func (r *UserRepository) GetByID(id uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.db.Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Create creates a new user
func (r *UserRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// Update updates a user
func (r *UserRepository) Update(user *models.User) error {
	return r.db.Save(user).Error
}

// ListByOrganization lists an organization's team ordered by name
func (r *UserRepository) ListByOrganization(orgID uuid.UUID, limit, offset int) (*models.PaginationResult[models.User], error) {
	var users []models.User
	var total int64

	query := r.db.Model(&models.User{}).Where("organization_id = ?", orgID)
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	err := query.Order("name ASC").Limit(limit).Offset(offset).Find(&users).Error
	if err != nil {
		return nil, err
	}

	result := models.NewPaginationResult(users, total, limit, offset)
	return &result, nil
}

// CountByOrganization returns the active member count for seat limits
func (r *UserRepository) CountByOrganization(orgID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.Model(&models.User{}).
		Where("organization_id = ? AND is_active = true", orgID).
		Count(&count).Error
	return count, err
}

// UpdatePresence sets the user's presence status
func (r *UserRepository) UpdatePresence(id uuid.UUID, status string) error {
	result := r.db.Model(&models.User{}).
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

// Deactivate disables a user without removing the row
func (r *UserRepository) Deactivate(orgID, id uuid.UUID) error {
	result := r.db.Model(&models.User{}).
		Where("id = ? AND organization_id = ?", id, orgID).
		Update("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Password Reset Token Methods

// CreatePasswordResetToken creates a new password reset token
func (r *UserRepository) CreatePasswordResetToken(token *models.PasswordResetToken) error {
	return r.db.Create(token).Error
}

// GetPasswordResetToken gets a valid unused token by its token string
func (r *UserRepository) GetPasswordResetToken(token string) (*models.PasswordResetToken, error) {
	var resetToken models.PasswordResetToken
	err := r.db.Preload("User").
		Where("token = ? AND is_used = false AND expires_at > NOW()", token).
		First(&resetToken).Error
	if err != nil {
		return nil, err
	}
	return &resetToken, nil
}

// MarkPasswordResetTokenAsUsed marks a password reset token as used
func (r *UserRepository) MarkPasswordResetTokenAsUsed(tokenID uuid.UUID) error {
	now := time.Now()
	return r.db.Model(&models.PasswordResetToken{}).
		Where("id = ?", tokenID).
		Updates(map[string]interface{}{
			"is_used": true,
			"used_at": &now,
		}).Error
}

// InvalidateUserPasswordResetTokens invalidates all unused tokens for a user
func (r *UserRepository) InvalidateUserPasswordResetTokens(userID uuid.UUID) error {
	now := time.Now()
	return r.db.Model(&models.PasswordResetToken{}).
		Where("user_id = ? AND is_used = false", userID).
		Updates(map[string]interface{}{
			"is_used": true,
			"used_at": &now,
		}).Error
}
