package repo

import (
	"commhub/pkg/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AppointmentRepository handles appointment data access
type AppointmentRepository struct {
	db *gorm.DB
}

// NewAppointmentRepository creates a new appointment repository
func NewAppointmentRepository(db *gorm.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

// GetByID gets an appointment by ID scoped to an organization
func (r *AppointmentRepository) GetByID(orgID, id uuid.UUID) (*models.Appointment, error) {
	var appointment models.Appointment
	err := r.db.Preload("Contact").
		Where("id = ? AND organization_id = ?", id, orgID).
		First(&appointment).Error
	if err != nil {
		return nil, err
	}
	return &appointment, nil
}

// List lists appointments for an organization ordered by date and time
func (r *AppointmentRepository) List(orgID uuid.UUID, date string, limit, offset int) (*models.PaginationResult[models.Appointment], error) {
	var appointments []models.Appointment
	var total int64

	query := r.db.Model(&models.Appointment{}).Where("organization_id = ?", orgID)
	if date != "" {
		query = query.Where("date = ?", date)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	err := query.Preload("Contact").
		Order("date ASC, time ASC").
		Limit(limit).Offset(offset).
		Find(&appointments).Error
	if err != nil {
		return nil, err
	}

	result := models.NewPaginationResult(appointments, total, limit, offset)
	return &result, nil
}

// Create creates a new appointment
func (r *AppointmentRepository) Create(appointment *models.Appointment) error {
	return r.db.Create(appointment).Error
}

// Update updates an appointment
func (r *AppointmentRepository) Update(appointment *models.Appointment) error {
	appointment.Contact = nil
	return r.db.Save(appointment).Error
}

// Delete soft deletes an appointment scoped to an organization
func (r *AppointmentRepository) Delete(orgID, id uuid.UUID) error {
	result := r.db.Where("id = ? AND organization_id = ?", id, orgID).Delete(&models.Appointment{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
