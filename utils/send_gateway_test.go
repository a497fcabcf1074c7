package utils

import (
	"errors"
	"testing"
	"time"

	"replyloop/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeTransport struct {
	sent []OutboundEmail
	err  error
}

func (f *fakeTransport) Send(provider *models.EmailProvider, password string, email OutboundEmail) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, email)
	return nil
}

func newTestProvider(t *testing.T, db *gorm.DB, now time.Time) *models.EmailProvider {
	t.Helper()

	encrypted, err := Encrypt("smtp-secret")
	require.NoError(t, err)

	provider := &models.EmailProvider{
		Name:            "Primary",
		FromEmail:       "sales@example.com",
		FromName:        "Sales",
		SMTPHost:        "smtp.example.com",
		SMTPPort:        587,
		SMTPUsername:    "sales@example.com",
		SMTPPassword:    encrypted,
		DailySendLimit:  500,
		HourlySendLimit: 50,
		CountersResetAt: &now,
		IsActive:        true,
	}
	require.NoError(t, db.Create(provider).Error)
	return provider
}

func fixedGateway(db *gorm.DB, transport MailTransport, now time.Time) *SendGateway {
	gw := NewSendGatewayWithTransport(db, testLogger(), transport)
	gw.Now = func() time.Time { return now }
	return gw
}

func TestSendDeliversAndIncrementsCounters(t *testing.T) {
	db := openTestDB(t)
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	provider := newTestProvider(t, db, now)
	transport := &fakeTransport{}
	gw := fixedGateway(db, transport, now)

	messageID, err := gw.Send(provider.ID, "jane@acme.com", "Hello", "body")
	require.NoError(t, err)

	require.Len(t, transport.sent, 1)
	assert.Equal(t, "jane@acme.com", transport.sent[0].To)
	assert.Equal(t, messageID, transport.sent[0].MessageID)
	assert.Contains(t, messageID, "@example.com>")

	var got models.EmailProvider
	require.NoError(t, db.First(&got, provider.ID).Error)
	assert.Equal(t, 1, got.SentToday)
	assert.Equal(t, 1, got.SentThisHour)
	assert.Nil(t, got.LastError)
}

func TestSendHourlyLimitReached(t *testing.T) {
	db := openTestDB(t)
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	provider := newTestProvider(t, db, now)
	require.NoError(t, db.Model(provider).Updates(map[string]interface{}{
		"hourly_send_limit": 2,
		"sent_this_hour":    2,
	}).Error)

	transport := &fakeTransport{}
	gw := fixedGateway(db, transport, now)

	_, err := gw.Send(provider.ID, "jane@acme.com", "Hello", "body")
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Empty(t, transport.sent)
}

func TestSendDailyLimitReached(t *testing.T) {
	db := openTestDB(t)
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	provider := newTestProvider(t, db, now)
	require.NoError(t, db.Model(provider).Updates(map[string]interface{}{
		"daily_send_limit": 10,
		"sent_today":       10,
	}).Error)

	transport := &fakeTransport{}
	gw := fixedGateway(db, transport, now)

	_, err := gw.Send(provider.ID, "jane@acme.com", "Hello", "body")
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Empty(t, transport.sent)
}

func TestHourlyCounterRollsOverOnHourChange(t *testing.T) {
	db := openTestDB(t)
	lastReset := time.Date(2026, 3, 4, 11, 55, 0, 0, time.UTC)
	provider := newTestProvider(t, db, lastReset)
	require.NoError(t, db.Model(provider).Updates(map[string]interface{}{
		"hourly_send_limit": 2,
		"sent_this_hour":    2,
		"sent_today":        30,
	}).Error)

	transport := &fakeTransport{}
	now := time.Date(2026, 3, 4, 12, 1, 0, 0, time.UTC)
	gw := fixedGateway(db, transport, now)

	_, err := gw.Send(provider.ID, "jane@acme.com", "Hello", "body")
	require.NoError(t, err)

	var got models.EmailProvider
	require.NoError(t, db.First(&got, provider.ID).Error)
	assert.Equal(t, 1, got.SentThisHour)
	// Daily counter survives an hourly rollover
	assert.Equal(t, 31, got.SentToday)
}

func TestCountersRollOverOnDayChange(t *testing.T) {
	db := openTestDB(t)
	lastReset := time.Date(2026, 3, 3, 23, 50, 0, 0, time.UTC)
	provider := newTestProvider(t, db, lastReset)
	require.NoError(t, db.Model(provider).Updates(map[string]interface{}{
		"daily_send_limit": 10,
		"sent_today":       10,
		"sent_this_hour":   5,
	}).Error)

	transport := &fakeTransport{}
	now := time.Date(2026, 3, 4, 0, 5, 0, 0, time.UTC)
	gw := fixedGateway(db, transport, now)

	_, err := gw.Send(provider.ID, "jane@acme.com", "Hello", "body")
	require.NoError(t, err)

	var got models.EmailProvider
	require.NoError(t, db.First(&got, provider.ID).Error)
	assert.Equal(t, 1, got.SentToday)
	assert.Equal(t, 1, got.SentThisHour)
}

func TestTransportFailureRecordsLastError(t *testing.T) {
	db := openTestDB(t)
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	provider := newTestProvider(t, db, now)

	transport := &fakeTransport{err: errors.New("connection refused")}
	gw := fixedGateway(db, transport, now)

	_, err := gw.Send(provider.ID, "jane@acme.com", "Hello", "body")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRateLimited)

	var got models.EmailProvider
	require.NoError(t, db.First(&got, provider.ID).Error)
	require.NotNil(t, got.LastError)
	assert.Contains(t, *got.LastError, "connection refused")
	assert.Equal(t, 0, got.SentToday)
}

func TestSendUnknownProvider(t *testing.T) {
	db := openTestDB(t)
	gw := fixedGateway(db, &fakeTransport{}, time.Now())

	_, err := gw.Send(12345, "jane@acme.com", "Hello", "body")
	assert.Error(t, err)
}
