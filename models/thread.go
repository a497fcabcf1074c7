package models

import (
	"time"

	"gorm.io/gorm"
)

// Message direction within a conversation thread
const (
	DirectionSent     = "sent"
	DirectionReceived = "received"
)

// Thread is the ordered conversation history for one prospect. There is at
// most one thread per prospect, enforced by the unique index.
type Thread struct {
	gorm.Model
	ProspectID uint `gorm:"not null;uniqueIndex" json:"prospect_id"`

	Status       string    `gorm:"default:'open'" json:"status"`
	LastActivity time.Time `gorm:"not null" json:"last_activity"`

	// Relations
	Messages []ThreadMessage `gorm:"foreignKey:ThreadID" json:"messages,omitempty"`
	Prospect Prospect        `json:"-"`
}

// ThreadMessage is a single message in a thread. Immutable once appended.
type ThreadMessage struct {
	gorm.Model
	ThreadID uint `gorm:"not null;index" json:"thread_id"`

	Direction string    `gorm:"not null" json:"direction"` // sent, received
	Subject   string    `json:"subject"`
	Content   string    `gorm:"type:text" json:"content"`
	Timestamp time.Time `gorm:"not null" json:"timestamp"`

	SentByUs         bool `gorm:"default:false" json:"sent_by_us"`
	AIGenerated      bool `gorm:"default:false" json:"ai_generated"`
	IsFollowUp       bool `gorm:"default:false" json:"is_follow_up"`
	FollowUpSequence int  `gorm:"default:0" json:"follow_up_sequence"`

	EmailProviderID *uint `json:"email_provider_id"`
	TemplateID      *uint `json:"template_id"`

	// Relations
	Thread Thread `json:"-"`
}
