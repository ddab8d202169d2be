package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Organization plans
const (
	PlanFree       = "free"
	PlanStarter    = "starter"
	PlanPro        = "pro"
	PlanEnterprise = "enterprise"
)

// Organization statuses
const (
	OrgStatusActive    = "active"
	OrgStatusSuspended = "suspended"
)

// Organization represents an isolated customer organization. All business
// data below this level is partitioned by organization_id.
type Organization struct {
	BaseModel
	Name         string  `gorm:"not null" json:"name" validate:"required"`
	Plan         string  `gorm:"default:'free'" json:"plan"`
	Status       string  `gorm:"default:'active'" json:"status"`
	Settings     JSONMap `gorm:"type:jsonb;default:'{}'" json:"settings"`
	Integrations JSONMap `gorm:"type:jsonb;default:'{}'" json:"integrations"`
	MaxUsers     int     `gorm:"default:5" json:"max_users"`
}

// User roles
const (
	RoleSuperAdmin = "super_admin"
	RoleOrgAdmin   = "org_admin"
	RoleSupervisor = "supervisor"
	RoleAgent      = "agent"
)

// Presence statuses
const (
	PresenceOnline  = "online"
	PresenceAway    = "away"
	PresenceBusy    = "busy"
	PresenceOffline = "offline"
)

// Performance holds per-agent aggregate counters. Absent counters default
// to zero and "0m".
type Performance struct {
	ActiveChats int    `json:"activeChats"`
	Resolution  int    `json:"resolution"`
	AvgTime     string `json:"avgTime"`
}

// DefaultPerformance returns the zero-value counters used when a profile
// row carries no performance payload.
func DefaultPerformance() Performance {
	return Performance{ActiveChats: 0, Resolution: 0, AvgTime: "0m"}
}

func (p Performance) Value() (driver.Value, error) {
	return json.Marshal(p)
}

func (p *Performance) Scan(value interface{}) error {
	if value == nil {
		*p = DefaultPerformance()
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into Performance", value)
	}

	if err := json.Unmarshal(bytes, p); err != nil {
		return err
	}
	if p.AvgTime == "" {
		p.AvgTime = "0m"
	}
	return nil
}

// User represents a platform operator or organization staff member.
// Every user except super_admin belongs to exactly one organization.
type User struct {
	BaseModel
	OrganizationID *uuid.UUID  `gorm:"type:uuid;index;constraint:OnDelete:SET NULL" json:"organization_id,omitempty"` // null for super admins
	Email          string      `gorm:"unique;not null" json:"email" validate:"required,email"`
	Password       string      `gorm:"not null" json:"-"`
	Name           string      `gorm:"not null" json:"name" validate:"required"`
	Phone          string      `json:"phone"`
	Role           string      `gorm:"not null" json:"role" validate:"required"`
	Avatar         string      `json:"avatar"`
	Status         string      `gorm:"default:'offline'" json:"status"`
	Preferences    JSONMap     `gorm:"type:jsonb;default:'{}'" json:"preferences"`
	Performance    Performance `gorm:"type:jsonb;default:'{\"activeChats\":0,\"resolution\":0,\"avgTime\":\"0m\"}'" json:"performance"`
	IsActive       bool        `gorm:"default:true" json:"is_active"`
	LastLoginAt    *time.Time  `json:"last_login_at"`
}

// IsOrgScoped reports whether the user operates inside a single
// organization (everyone except platform operators).
func (u *User) IsOrgScoped() bool {
	return u.Role != RoleSuperAdmin
}

// UpdateProfileRequest represents a request to update the caller's profile
type UpdateProfileRequest struct {
	Name        string  `json:"name" validate:"required"`
	Phone       string  `json:"phone"`
	Avatar      string  `json:"avatar"`
	Status      string  `json:"status"`
	Preferences JSONMap `json:"preferences"`
}

// ChangePasswordRequest represents a request to change the caller's password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6"`
}

// PasswordResetToken represents a token for password reset
type PasswordResetToken struct {
	BaseModel
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	Token     string     `gorm:"unique;not null" json:"token"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	IsUsed    bool       `gorm:"default:false" json:"is_used"`
	UsedAt    *time.Time `json:"used_at"`

	// Relationship
	User *User `gorm:"foreignKey:UserID;references:ID" json:"user,omitempty"`
}

// ForgotPasswordRequest represents a request to start a password reset
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest represents a request to reset password with token
type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}
