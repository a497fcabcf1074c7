package models

import "gorm.io/gorm"

// IntentConfig describes one classifiable purpose of an inbound email, for
// example "interested" or "not interested", and whether replies matching it
// should trigger an automatic response.
type IntentConfig struct {
	gorm.Model

	Name     string   `gorm:"not null;uniqueIndex" json:"name"`
	Keywords []string `gorm:"type:jsonb;serializer:json" json:"keywords"`

	AutoRespond bool `gorm:"default:false" json:"auto_respond"`
	// Stored for reporting only. The auto-respond decision deliberately does
	// not gate on it; classification confidence stays informational.
	ConfidenceThreshold float64 `gorm:"default:0.5" json:"confidence_threshold"`

	PrimaryTemplateID *uint `json:"primary_template_id"`
	IsActive          bool  `gorm:"default:true" json:"is_active"`
}
