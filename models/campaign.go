package models

import (
	"time"

	"gorm.io/gorm"
)

// Campaign represents an outreach campaign with optional follow-up automation
type Campaign struct {
	gorm.Model

	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`
	Status      string `gorm:"default:'draft'" json:"status"` // draft, active, sending, paused, completed

	// Primary template used for the initial send and as follow-up fallback
	TemplateID *uint `gorm:"index" json:"template_id"`

	// ========= Follow-up Settings =========
	FollowUpEnabled bool `gorm:"default:false" json:"follow_up_enabled"`
	// Values below 1440 are minutes, 1440 and above are whole days expressed
	// in minutes. Kept as stored rather than normalized.
	FollowUpIntervals       []int    `gorm:"type:jsonb;serializer:json" json:"follow_up_intervals"`
	FollowUpTemplateIDs     []uint   `gorm:"type:jsonb;serializer:json" json:"follow_up_template_ids"`
	FollowUpTimeWindowStart string   `gorm:"default:'09:00'" json:"follow_up_time_window_start"`
	FollowUpTimeWindowEnd   string   `gorm:"default:'17:00'" json:"follow_up_time_window_end"`
	FollowUpDaysOfWeek      []string `gorm:"type:jsonb;serializer:json" json:"follow_up_days_of_week"`
	FollowUpTimezone        string   `gorm:"default:'UTC'" json:"follow_up_timezone"`
	StopOnReply             bool     `gorm:"default:true" json:"stop_on_reply"`

	// Scheduling
	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`

	// Statistics (denormalized for performance)
	TotalProspects int `gorm:"default:0" json:"total_prospects"`
	SentCount      int `gorm:"default:0" json:"sent_count"`
	FollowUpCount  int `gorm:"default:0" json:"follow_up_count"`
	ReplyCount     int `gorm:"default:0" json:"reply_count"`

	// Relations
	Prospects []Prospect `gorm:"foreignKey:CampaignID" json:"prospects,omitempty"`
}

// Template represents email templates for campaigns and auto-responses
type Template struct {
	gorm.Model

	Name        string `gorm:"not null" json:"name"`
	Subject     string `gorm:"not null" json:"subject"`
	HTMLContent string `gorm:"type:text" json:"html_content"`
	TextContent string `gorm:"type:text" json:"text_content"`
	Category    string `json:"category"`
}

// Body returns the preferred renderable content for a template
func (t *Template) Body() string {
	if t.HTMLContent != "" {
		return t.HTMLContent
	}
	return t.TextContent
}
