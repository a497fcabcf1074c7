package models

import (
	"time"

	"gorm.io/gorm"
)

// Send attempt outcomes
const (
	EmailStatusSent   = "sent"
	EmailStatusFailed = "failed"
)

// EmailRecord is an immutable audit row per send attempt. It is the source of
// truth for de-duplication: follow-ups are uniquely identified by
// (campaign_id, prospect_id, follow_up_sequence).
type EmailRecord struct {
	gorm.Model
	ProspectID      uint  `gorm:"not null;index" json:"prospect_id"`
	CampaignID      uint  `gorm:"not null;index" json:"campaign_id"`
	EmailProviderID uint  `gorm:"not null;index" json:"email_provider_id"`
	ThreadID        *uint `json:"thread_id"`

	IsFollowUp       bool   `gorm:"default:false" json:"is_follow_up"`
	FollowUpSequence int    `gorm:"default:0" json:"follow_up_sequence"`
	Status           string `gorm:"not null" json:"status"` // sent, failed

	Subject   string     `json:"subject"`
	MessageID string     `gorm:"index" json:"message_id"`
	SentAt    *time.Time `json:"sent_at"`
	Error     string     `json:"error"`

	// Relations
	Prospect Prospect `json:"-"`
	Campaign Campaign `json:"-"`
}
