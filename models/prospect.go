package models

import (
	"time"

	"gorm.io/gorm"
)

// Follow-up lifecycle states for a prospect
const (
	FollowUpActive    = "active"
	FollowUpPaused    = "paused"
	FollowUpCompleted = "completed"
	FollowUpStopped   = "stopped"
)

// Reply classification recorded when a prospect answers
const (
	ResponseTypeHuman     = "human"
	ResponseTypeAutoReply = "auto_reply"
)

// Prospect represents a single contact being emailed by a campaign
type Prospect struct {
	gorm.Model
	CampaignID uint `gorm:"not null;index" json:"campaign_id"`

	Email     string `gorm:"not null;index" json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Company   string `json:"company"`
	Industry  string `json:"industry"`
	JobTitle  string `json:"job_title"`
	Phone     string `json:"phone"`
	Location  string `json:"location"`

	// Status
	Status         string `gorm:"default:'active'" json:"status"` // active, unsubscribed, bounced
	FollowUpStatus string `gorm:"default:'active'" json:"follow_up_status"`
	FollowUpCount  int    `gorm:"default:0" json:"follow_up_count"`

	// Provider used for the first send; follow-ups must stay on the same one
	EmailProviderID *uint `gorm:"index" json:"email_provider_id"`

	// Touch timestamps
	LastContact  *time.Time `json:"last_contact"`
	LastFollowUp *time.Time `json:"last_follow_up"`
	RespondedAt  *time.Time `json:"responded_at"`
	ResponseType string     `json:"response_type"` // human, auto_reply

	// Relations
	Campaign Campaign `json:"-"`
}

// FullName joins first and last name, tolerating either being empty
func (p *Prospect) FullName() string {
	switch {
	case p.FirstName != "" && p.LastName != "":
		return p.FirstName + " " + p.LastName
	case p.FirstName != "":
		return p.FirstName
	default:
		return p.LastName
	}
}
