package worker

import (
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"replyloop/config"
	"replyloop/models"
	"replyloop/utils"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	config.AppConfig.EncryptionKey = "test-encryption-key"
	config.AppConfig.APITokenSecret = "test-token-secret"

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get database handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := models.Migrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// stubTransport records outbound mail instead of dialing SMTP
type stubTransport struct {
	sent []utils.OutboundEmail
	err  error
}

func (s *stubTransport) Send(provider *models.EmailProvider, password string, email utils.OutboundEmail) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, email)
	return nil
}

func createProvider(t *testing.T, db *gorm.DB, now time.Time) *models.EmailProvider {
	t.Helper()

	smtpPassword, err := utils.Encrypt("smtp-secret")
	require.NoError(t, err)
	imapPassword, err := utils.Encrypt("imap-secret")
	require.NoError(t, err)

	provider := &models.EmailProvider{
		Name:            "Primary",
		FromEmail:       "sales@example.com",
		FromName:        "Sales",
		SMTPHost:        "smtp.example.com",
		SMTPPort:        587,
		SMTPUsername:    "sales@example.com",
		SMTPPassword:    smtpPassword,
		IMAPHost:        "imap.example.com",
		IMAPPort:        993,
		IMAPUsername:    "sales@example.com",
		IMAPPassword:    imapPassword,
		DailySendLimit:  500,
		HourlySendLimit: 50,
		CountersResetAt: &now,
		IsDefault:       true,
		IsActive:        true,
	}
	require.NoError(t, db.Create(provider).Error)
	return provider
}

func createCampaign(t *testing.T, db *gorm.DB, template *models.Template, intervals []int) *models.Campaign {
	t.Helper()

	campaign := &models.Campaign{
		Name:                    "Outreach",
		Status:                  "active",
		FollowUpEnabled:         true,
		FollowUpIntervals:       intervals,
		FollowUpTimeWindowStart: "00:00",
		FollowUpTimeWindowEnd:   "23:59",
		FollowUpTimezone:        "UTC",
		StopOnReply:             true,
	}
	if template != nil {
		campaign.TemplateID = &template.ID
	}
	require.NoError(t, db.Create(campaign).Error)
	return campaign
}

func createTemplate(t *testing.T, db *gorm.DB, name, subject, body string) *models.Template {
	t.Helper()

	template := &models.Template{
		Name:        name,
		Subject:     subject,
		TextContent: body,
	}
	require.NoError(t, db.Create(template).Error)
	return template
}

func createProspect(t *testing.T, db *gorm.DB, campaignID uint, email string) *models.Prospect {
	t.Helper()

	prospect := &models.Prospect{
		CampaignID: campaignID,
		Email:      email,
		FirstName:  "Jane",
		LastName:   "Doe",
		Company:    "Acme",
	}
	require.NoError(t, db.Create(prospect).Error)
	require.NoError(t, db.First(prospect, prospect.ID).Error)
	return prospect
}
