package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"regexp"
	"time"
)

// Campaign statuses
const (
	CampaignDraft     = "draft"
	CampaignScheduled = "scheduled"
	CampaignRunning   = "running"
	CampaignCompleted = "completed"
)

// TagFilterAll selects every contact regardless of tags
const TagFilterAll = "Todos"

// Campaign represents a broadcast send to a tag-filtered audience. The
// audience size is snapshotted at creation and immutable once launched;
// delivered/read counters are owned by the send pipeline.
type Campaign struct {
	BaseOrgModel
	Name           string     `gorm:"not null" json:"name" validate:"required"`
	Status         string     `gorm:"default:'draft'" json:"status"`
	TemplateName   string     `json:"template_name"`
	TagFilter      string     `gorm:"default:'Todos'" json:"tag_filter"`
	AudienceSize   int        `gorm:"default:0" json:"audience_size"`
	DeliveredCount int        `gorm:"default:0" json:"delivered_count"`
	ReadCount      int        `gorm:"default:0" json:"read_count"`
	SentAt         *time.Time `json:"sent_at"`
}

// Template categories
const (
	TemplateMarketing      = "MARKETING"
	TemplateUtility        = "UTILITY"
	TemplateAuthentication = "AUTHENTICATION"
)

// Template approval statuses. Transitions out of pending are owned by the
// external channel approval workflow, never by this service.
const (
	TemplatePending  = "PENDING"
	TemplateApproved = "APPROVED"
	TemplateRejected = "REJECTED"
)

// TemplateButton is an interactive button inside a BUTTONS component
type TemplateButton struct {
	Type        string `json:"type"` // QUICK_REPLY, URL, PHONE_NUMBER
	Text        string `json:"text"`
	URL         string `json:"url,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

// TemplateComponent is one structural block of an outbound template
type TemplateComponent struct {
	Type    string           `json:"type"`             // HEADER, BODY, FOOTER, BUTTONS
	Format  string           `json:"format,omitempty"` // TEXT, IMAGE, VIDEO, DOCUMENT
	Text    string           `json:"text,omitempty"`
	Buttons []TemplateButton `json:"buttons,omitempty"`
}

// TemplateComponents is the JSONB-backed component list
type TemplateComponents []TemplateComponent

func (t TemplateComponents) Value() (driver.Value, error) {
	if t == nil {
		return json.Marshal([]TemplateComponent{})
	}
	return json.Marshal(t)
}

func (t *TemplateComponents) Scan(value interface{}) error {
	if value == nil {
		*t = TemplateComponents{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into TemplateComponents", value)
	}

	return json.Unmarshal(bytes, t)
}

var placeholderPattern = regexp.MustCompile(`\{\{(\d+)\}\}`)

// Placeholders returns the distinct positional variables ({{1}}, {{2}}, …)
// used across the component texts, in first-appearance order.
func (t TemplateComponents) Placeholders() []string {
	seen := make(map[string]bool)
	var vars []string
	for _, comp := range t {
		for _, match := range placeholderPattern.FindAllString(comp.Text, -1) {
			if !seen[match] {
				seen[match] = true
				vars = append(vars, match)
			}
		}
	}
	return vars
}

// Template represents a pre-approved outbound message structure
type Template struct {
	BaseOrgModel
	Name       string             `gorm:"not null" json:"name" validate:"required"`
	Language   string             `gorm:"not null;default:'es'" json:"language"`
	Category   string             `gorm:"not null;default:'UTILITY'" json:"category"`
	Status     string             `gorm:"default:'PENDING'" json:"status"`
	Components TemplateComponents `gorm:"type:jsonb;default:'[]'" json:"components"`
}
