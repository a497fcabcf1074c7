package worker

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"replyloop/models"
	"replyloop/utils"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// MailboxWatcher polls every active provider's inbox, resolves senders to
// prospects, appends inbound mail to the conversation thread and hands the
// message to the auto-responder.
type MailboxWatcher struct {
	db        *gorm.DB
	logger    *logrus.Logger
	threads   *utils.ThreadStore
	responder *AutoResponder
	dialer    InboundDialer
	interval  time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
	done    chan struct{}
}

func NewMailboxWatcher(db *gorm.DB, logger *logrus.Logger, threads *utils.ThreadStore, responder *AutoResponder, interval time.Duration) *MailboxWatcher {
	return &MailboxWatcher{
		db:        db,
		logger:    logger,
		threads:   threads,
		responder: responder,
		dialer:    imapDialer{logger: logger},
		interval:  interval,
	}
}

// Start launches the poll loop. Calling Start on a running watcher is a no-op.
func (mw *MailboxWatcher) Start(ctx context.Context) {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	if mw.running {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	mw.cancel = cancel
	mw.running = true
	mw.done = make(chan struct{})

	go mw.run(runCtx)
	mw.logger.Info("mailbox watcher started")
}

// Stop requests shutdown and waits for the in-flight cycle to finish.
// Cancellation is cooperative: message processing already underway completes.
func (mw *MailboxWatcher) Stop() {
	mw.mu.Lock()
	if !mw.running {
		mw.mu.Unlock()
		return
	}
	cancel, done := mw.cancel, mw.done
	mw.mu.Unlock()

	cancel()
	<-done

	mw.mu.Lock()
	mw.running = false
	mw.mu.Unlock()
	mw.logger.Info("mailbox watcher stopped")
}

func (mw *MailboxWatcher) IsRunning() bool {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	return mw.running
}

func (mw *MailboxWatcher) run(ctx context.Context) {
	defer close(mw.done)

	ticker := time.NewTicker(mw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			mw.pollAll(ctx)
		}
	}
}

func (mw *MailboxWatcher) pollAll(ctx context.Context) {
	var providers []models.EmailProvider
	if err := mw.db.Where("is_active = ? AND imap_host IS NOT NULL AND imap_host != ''", true).
		Find(&providers).Error; err != nil {
		mw.logger.WithError(err).Error("failed to load providers for mailbox poll")
		return
	}

	for i := range providers {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := mw.pollProvider(&providers[i]); err != nil {
			mw.logger.WithError(err).WithField("provider_id", providers[i].ID).
				Error("mailbox poll failed")
			sentry.CaptureException(err)
		}
	}
}

func (mw *MailboxWatcher) pollProvider(provider *models.EmailProvider) error {
	password, err := utils.Decrypt(provider.IMAPPassword)
	if err != nil {
		return err
	}

	session, err := mw.dialer.Dial(provider, password)
	if err != nil {
		return err
	}
	defer session.Close()

	messages, err := session.FetchUnseen()
	if err != nil {
		return err
	}

	for _, msg := range messages {
		// One bad message must not abort the batch. Failed messages stay
		// unseen and are retried on the next poll.
		if err := mw.handleMessage(provider, &msg); err != nil {
			mw.logger.WithError(err).WithFields(logrus.Fields{
				"provider_id": provider.ID,
				"from":        msg.From,
			}).Error("failed to process inbound message")
			sentry.CaptureException(err)
			continue
		}
		if err := session.MarkSeen(msg.SeqNum); err != nil {
			mw.logger.WithError(err).Warn("failed to mark message seen")
		}
	}

	return nil
}

// handleMessage resolves the sender, records the reply and triggers the
// auto-response path. Mail from unknown senders is dropped without a thread.
func (mw *MailboxWatcher) handleMessage(provider *models.EmailProvider, msg *InboundMessage) error {
	address := utils.ExtractEmailAddress(msg.From)

	var prospect models.Prospect
	err := mw.db.Where("email = ?", address).First(&prospect).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		mw.logger.WithField("from", address).Debug("no matching prospect, dropping message")
		return nil
	}
	if err != nil {
		return err
	}

	thread, err := mw.threads.GetOrCreate(prospect.ID)
	if err != nil {
		return err
	}

	timestamp := msg.Date
	if timestamp.IsZero() {
		timestamp = time.Now()
	}
	if err := mw.threads.Append(thread.ID, &models.ThreadMessage{
		Direction:       models.DirectionReceived,
		Subject:         msg.Subject,
		Content:         msg.Content(),
		Timestamp:       timestamp,
		EmailProviderID: utils.Pointer(provider.ID),
	}); err != nil {
		return err
	}

	if err := mw.recordReply(&prospect, msg); err != nil {
		return err
	}

	if mw.responder != nil {
		if err := mw.responder.HandleInbound(&prospect, thread, msg.Subject, msg.Content()); err != nil {
			// Auto-response trouble must not fail inbound processing
			mw.logger.WithError(err).WithField("prospect_id", prospect.ID).
				Error("auto-response failed")
			sentry.CaptureException(err)
		}
	}

	return nil
}

// recordReply updates the prospect's reply markers. A human reply overrides
// an earlier auto-reply classification and, when the campaign stops on
// replies, halts the follow-up sequence.
func (mw *MailboxWatcher) recordReply(prospect *models.Prospect, msg *InboundMessage) error {
	now := time.Now()
	responseType := models.ResponseTypeHuman
	if isAutoReply(msg) {
		responseType = models.ResponseTypeAutoReply
	}

	updates := map[string]interface{}{
		"last_contact": now,
	}
	if prospect.RespondedAt == nil ||
		(prospect.ResponseType == models.ResponseTypeAutoReply && responseType == models.ResponseTypeHuman) {
		updates["responded_at"] = now
		updates["response_type"] = responseType
	}

	if responseType == models.ResponseTypeHuman {
		var campaign models.Campaign
		if err := mw.db.First(&campaign, prospect.CampaignID).Error; err == nil {
			if campaign.StopOnReply && prospect.FollowUpStatus == models.FollowUpActive {
				updates["follow_up_status"] = models.FollowUpStopped
			}
			mw.db.Model(&campaign).Update("reply_count", gorm.Expr("reply_count + ?", 1))
		}
	}

	if err := mw.db.Model(prospect).Updates(updates).Error; err != nil {
		return err
	}
	return nil
}

// isAutoReply detects vacation responders and other machine-generated mail
// via the standard headers plus common subject prefixes
func isAutoReply(msg *InboundMessage) bool {
	auto := strings.ToLower(strings.TrimSpace(msg.AutoSubmitted))
	if auto != "" && auto != "no" {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(msg.Precedence)) {
	case "bulk", "junk", "auto_reply", "list":
		return true
	}

	subject := strings.ToLower(msg.Subject)
	for _, prefix := range []string{"auto:", "automatic reply", "autoreply", "out of office", "out-of-office"} {
		if strings.Contains(subject, prefix) {
			return true
		}
	}
	return false
}
