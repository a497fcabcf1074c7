package models

import (
	"time"

	"gorm.io/gorm"
)

// EmailProvider represents a sending/receiving mail account configuration
type EmailProvider struct {
	gorm.Model

	// Basic identification
	Name      string `gorm:"not null" json:"name"`
	FromEmail string `gorm:"not null;index" json:"from_email"`
	FromName  string `gorm:"not null" json:"from_name"`

	// ========= SMTP Configuration =========
	SMTPHost       string `gorm:"not null" json:"smtp_host"`
	SMTPPort       int    `gorm:"not null" json:"smtp_port"`
	SMTPUsername   string `gorm:"not null" json:"smtp_username"`
	SMTPPassword   string `gorm:"not null" json:"-"` // Encrypted in application layer
	SMTPEncryption string `gorm:"default:'TLS'" json:"smtp_encryption"`

	// ========= IMAP Configuration =========
	IMAPHost       string `json:"imap_host"`
	IMAPPort       int    `json:"imap_port" gorm:"default:993"`
	IMAPUsername   string `json:"imap_username"`
	IMAPPassword   string `json:"-"` // Encrypted in application layer
	IMAPEncryption string `json:"imap_encryption" gorm:"default:'SSL'"`
	IMAPMailbox    string `json:"imap_mailbox" gorm:"default:'INBOX'"`

	// ========= Rate Limits & Counters =========
	DailySendLimit  int        `gorm:"default:500" json:"daily_send_limit"`
	HourlySendLimit int        `gorm:"default:50" json:"hourly_send_limit"`
	SentToday       int        `gorm:"default:0" json:"sent_today"`
	SentThisHour    int        `gorm:"default:0" json:"sent_this_hour"`
	CountersResetAt *time.Time `json:"counters_reset_at"`

	// ========= Status =========
	IsDefault bool    `gorm:"default:false" json:"is_default"`
	IsActive  bool    `gorm:"default:true" json:"is_active"`
	LastError *string `json:"last_error"`
}

// Sanitize strips credentials before the provider is serialized in a response
func (p *EmailProvider) Sanitize() *EmailProvider {
	p.SMTPPassword = ""
	p.IMAPPassword = ""
	return p
}
