package utils

import (
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"time"

	"replyloop/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
	"gorm.io/gorm"
)

// ErrRateLimited means the provider is at its daily or hourly cap. It is a
// "not yet" outcome, not a transport failure; callers re-evaluate later.
var ErrRateLimited = errors.New("provider send limit reached")

// OutboundEmail is one message handed to the transport
type OutboundEmail struct {
	To        string
	Subject   string
	Content   string
	MessageID string
}

// MailTransport performs the actual SMTP delivery. Split out so tests can
// substitute a fake without dialing anything.
type MailTransport interface {
	Send(provider *models.EmailProvider, password string, email OutboundEmail) error
}

type gomailTransport struct{}

func (gomailTransport) Send(provider *models.EmailProvider, password string, email OutboundEmail) error {
	m := gomail.NewMessage()
	m.SetHeader("From", fmt.Sprintf("%s <%s>", provider.FromName, provider.FromEmail))
	m.SetHeader("To", email.To)
	m.SetHeader("Subject", email.Subject)
	m.SetHeader("Message-ID", email.MessageID)
	m.SetHeader("X-Mailer", "Replyloop/1.0")

	if looksLikeHTML(email.Content) {
		m.SetBody("text/html", email.Content)
	} else {
		m.SetBody("text/plain", email.Content)
	}

	d := gomail.NewDialer(
		provider.SMTPHost,
		provider.SMTPPort,
		provider.SMTPUsername,
		password,
	)
	d.TLSConfig = &tls.Config{ServerName: provider.SMTPHost}

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("send failed: %v", err)
	}
	return nil
}

func looksLikeHTML(content string) bool {
	return strings.Contains(content, "</") || strings.Contains(content, "/>")
}

// SendGateway wraps provider selection, per-provider rate counters and the
// outbound transport. Shared by the auto-response and follow-up paths.
type SendGateway struct {
	db        *gorm.DB
	logger    *logrus.Logger
	transport MailTransport

	// Overridable in tests
	Now func() time.Time
}

func NewSendGateway(db *gorm.DB, logger *logrus.Logger) *SendGateway {
	return &SendGateway{
		db:        db,
		logger:    logger,
		transport: gomailTransport{},
		Now:       time.Now,
	}
}

// NewSendGatewayWithTransport is used by tests and by deployments that route
// through a relay instead of direct SMTP
func NewSendGatewayWithTransport(db *gorm.DB, logger *logrus.Logger, transport MailTransport) *SendGateway {
	gw := NewSendGateway(db, logger)
	gw.transport = transport
	return gw
}

// Send delivers one message via the given provider. A provider at its limit
// returns ErrRateLimited without contacting the transport. Transport failures
// come back as errors so callers can record status without crashing a loop.
func (sg *SendGateway) Send(providerID uint, to, subject, content string) (string, error) {
	var provider models.EmailProvider
	if err := sg.db.First(&provider, providerID).Error; err != nil {
		return "", fmt.Errorf("provider %d not found: %w", providerID, err)
	}

	if err := sg.rolloverCounters(&provider); err != nil {
		return "", err
	}

	if provider.DailySendLimit > 0 && provider.SentToday >= provider.DailySendLimit {
		return "", fmt.Errorf("%w: daily cap %d", ErrRateLimited, provider.DailySendLimit)
	}
	if provider.HourlySendLimit > 0 && provider.SentThisHour >= provider.HourlySendLimit {
		return "", fmt.Errorf("%w: hourly cap %d", ErrRateLimited, provider.HourlySendLimit)
	}

	password, err := Decrypt(provider.SMTPPassword)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt SMTP password: %v", err)
	}

	email := OutboundEmail{
		To:        to,
		Subject:   subject,
		Content:   content,
		MessageID: generateMessageID(provider.FromEmail),
	}

	if err := sg.transport.Send(&provider, password, email); err != nil {
		sg.db.Model(&provider).Update("last_error", err.Error())
		return "", err
	}

	if err := sg.db.Model(&provider).Updates(map[string]interface{}{
		"sent_today":     gorm.Expr("sent_today + ?", 1),
		"sent_this_hour": gorm.Expr("sent_this_hour + ?", 1),
		"last_error":     nil,
	}).Error; err != nil {
		sg.logger.WithError(err).WithField("provider_id", providerID).
			Warn("sent but failed to update provider counters")
	}

	return email.MessageID, nil
}

// rolloverCounters zeroes the daily counter on day change and the hourly
// counter on hour change, persisting the reset marker
func (sg *SendGateway) rolloverCounters(provider *models.EmailProvider) error {
	now := sg.Now()
	updates := map[string]interface{}{}

	if provider.CountersResetAt == nil {
		updates["counters_reset_at"] = now
	} else {
		last := *provider.CountersResetAt
		sameDay := last.Year() == now.Year() && last.YearDay() == now.YearDay()
		switch {
		case !sameDay:
			provider.SentToday = 0
			provider.SentThisHour = 0
			updates["sent_today"] = 0
			updates["sent_this_hour"] = 0
			updates["counters_reset_at"] = now
		case last.Hour() != now.Hour():
			provider.SentThisHour = 0
			updates["sent_this_hour"] = 0
			updates["counters_reset_at"] = now
		}
	}

	if len(updates) == 0 {
		return nil
	}
	return sg.db.Model(provider).Updates(updates).Error
}

func generateMessageID(fromEmail string) string {
	domain := "localhost"
	if at := strings.LastIndex(fromEmail, "@"); at != -1 && at < len(fromEmail)-1 {
		domain = fromEmail[at+1:]
	}
	return fmt.Sprintf("<%s@%s>", uuid.New().String(), domain)
}
