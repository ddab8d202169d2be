package models

// PaginationResult represents paginated results
type PaginationResult[T any] struct {
	Data       []T   `json:"data"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	TotalPages int   `json:"total_pages"`
}

// NewPaginationResult builds a result page from raw query output
func NewPaginationResult[T any](data []T, total int64, limit, offset int) PaginationResult[T] {
	page := 1
	totalPages := 1
	if limit > 0 {
		page = (offset / limit) + 1
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}

	return PaginationResult[T]{
		Data:       data,
		Total:      total,
		Page:       page,
		PerPage:    limit,
		TotalPages: totalPages,
	}
}

// GetAllModels returns all models for GORM AutoMigrate
func GetAllModels() []interface{} {
	return []interface{}{
		// Core models
		&Organization{},
		&User{},
		&PasswordResetToken{},

		// CRM models
		&Contact{},
		&Conversation{},
		&Message{},
		&Appointment{},

		// Broadcast models
		&Campaign{},
		&Template{},
	}
}
