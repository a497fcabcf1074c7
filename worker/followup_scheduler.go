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

// Courtesy pause between sends within one tick. Not a correctness mechanism.
const interSendDelay = 100 * time.Millisecond

// FollowUpScheduler is the recurring control loop that finds prospects due
// for a follow-up, enforces timing, time-window, weekday and provider
// consistency rules, then renders and sends the next template in sequence.
type FollowUpScheduler struct {
	db      *gorm.DB
	logger  *logrus.Logger
	gateway *utils.SendGateway
	threads *utils.ThreadStore

	interval  time.Duration
	sendDelay time.Duration

	// Overridable in tests
	Now func() time.Time

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
	done    chan struct{}
}

func NewFollowUpScheduler(db *gorm.DB, logger *logrus.Logger, gateway *utils.SendGateway, threads *utils.ThreadStore, interval time.Duration) *FollowUpScheduler {
	return &FollowUpScheduler{
		db:        db,
		logger:    logger,
		gateway:   gateway,
		threads:   threads,
		interval:  interval,
		sendDelay: interSendDelay,
		Now:       time.Now,
	}
}

// Start launches the tick loop. Calling Start on a running scheduler is a
// no-op.
func (s *FollowUpScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.done = make(chan struct{})

	go s.run(runCtx)
	s.logger.Info("follow-up scheduler started")
}

// Stop requests shutdown and waits for the in-flight tick to finish
func (s *FollowUpScheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	s.logger.Info("follow-up scheduler stopped")
}

func (s *FollowUpScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *FollowUpScheduler) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick processes one scheduling pass over every eligible campaign. Exported
// so the control surface and tests can drive a pass directly.
func (s *FollowUpScheduler) Tick(ctx context.Context) {
	var campaigns []models.Campaign
	if err := s.db.Where("follow_up_enabled = ? AND status IN ?", true, []string{"active", "sending"}).
		Find(&campaigns).Error; err != nil {
		s.logger.WithError(err).Error("failed to load campaigns")
		return
	}

	for i := range campaigns {
		select {
		case <-ctx.Done():
			return
		default:
		}
		s.processCampaign(ctx, &campaigns[i])
	}
}

func (s *FollowUpScheduler) processCampaign(ctx context.Context, campaign *models.Campaign) {
	if len(campaign.FollowUpIntervals) == 0 {
		return
	}

	loc, err := time.LoadLocation(campaign.FollowUpTimezone)
	if err != nil {
		s.logger.WithField("campaign_id", campaign.ID).
			Warnf("unknown timezone %q, falling back to UTC", campaign.FollowUpTimezone)
		loc = time.UTC
	}

	// An auto-reply from the prospect's mail server does not stop the
	// sequence; a human reply does.
	var prospects []models.Prospect
	if err := s.db.Where(
		"campaign_id = ? AND follow_up_status = ? AND status <> ? AND (responded_at IS NULL OR response_type = ?)",
		campaign.ID, models.FollowUpActive, "unsubscribed", models.ResponseTypeAutoReply,
	).Find(&prospects).Error; err != nil {
		s.logger.WithError(err).WithField("campaign_id", campaign.ID).
			Error("failed to load follow-up candidates")
		return
	}

	for i := range prospects {
		select {
		case <-ctx.Done():
			return
		default:
		}

		sent, err := s.processProspect(campaign, &prospects[i], loc)
		if err != nil {
			// One prospect's trouble never aborts the batch
			s.logger.WithError(err).WithFields(logrus.Fields{
				"campaign_id": campaign.ID,
				"prospect_id": prospects[i].ID,
			}).Error("follow-up processing failed")
			sentry.CaptureException(err)
			continue
		}
		if sent {
			time.Sleep(s.sendDelay)
		}
	}
}

// processProspect applies the full rule chain to one candidate and sends the
// next follow-up when everything passes. Policy skips return (false, nil).
func (s *FollowUpScheduler) processProspect(campaign *models.Campaign, prospect *models.Prospect, loc *time.Location) (bool, error) {
	intervals := campaign.FollowUpIntervals

	// The last interval repeats for prospects past the end of the list
	idx := prospect.FollowUpCount
	if idx >= len(intervals) {
		idx = len(intervals) - 1
	}
	wait := intervalDuration(intervals[idx])

	reference := prospect.CreatedAt
	if prospect.LastContact != nil {
		reference = *prospect.LastContact
	}

	now := s.Now().In(loc)
	if now.Sub(reference) < wait {
		return false, nil
	}

	if !dayAllowed(campaign, now) || !withinTimeWindow(campaign, now) {
		// Remains pending, re-evaluated on a later tick
		return false, nil
	}

	providerID, err := resolveProviderID(s.db, prospect)
	if err != nil {
		// Data error: skip this candidate, continue the batch
		s.logger.WithError(err).WithField("prospect_id", prospect.ID).
			Warn("cannot resolve provider, skipping candidate")
		return false, nil
	}

	sequence := prospect.FollowUpCount + 1

	// Duplicate guard: overlapping ticks and process restarts must not
	// double-send the same slot. An existing sent record means the work
	// already happened; resync the counter instead of erroring.
	var existing int64
	if err := s.db.Model(&models.EmailRecord{}).Where(
		"campaign_id = ? AND prospect_id = ? AND is_follow_up = ? AND follow_up_sequence = ? AND status = ?",
		campaign.ID, prospect.ID, true, sequence, models.EmailStatusSent,
	).Count(&existing).Error; err != nil {
		return false, err
	}
	if existing > 0 {
		s.logger.WithFields(logrus.Fields{
			"prospect_id": prospect.ID,
			"sequence":    sequence,
		}).Info("follow-up already recorded, resyncing counter")
		return false, s.db.Model(prospect).
			Where("follow_up_count < ?", sequence).
			Update("follow_up_count", sequence).Error
	}

	template, subject, templateID, err := s.selectTemplate(campaign, prospect.FollowUpCount)
	if err != nil {
		s.logger.WithError(err).WithField("campaign_id", campaign.ID).
			Warn("no usable follow-up template, skipping candidate")
		return false, nil
	}

	subject = utils.Personalize(subject, prospect)
	content := utils.Personalize(template.Body(), prospect)

	thread, err := s.threads.GetOrCreate(prospect.ID)
	if err != nil {
		return false, err
	}

	messageID, sendErr := s.gateway.Send(providerID, prospect.Email, subject, content)
	if sendErr != nil {
		if errors.Is(sendErr, utils.ErrRateLimited) {
			// Not an error, just "not yet"
			s.logger.WithField("provider_id", providerID).
				Debug("provider at send limit, retrying later")
			return false, nil
		}
		// Record the failed attempt; the slot is retried on a later tick
		// because the sequence counter stays put
		record := models.EmailRecord{
			ProspectID:       prospect.ID,
			CampaignID:       campaign.ID,
			EmailProviderID:  providerID,
			ThreadID:         utils.Pointer(thread.ID),
			IsFollowUp:       true,
			FollowUpSequence: sequence,
			Status:           models.EmailStatusFailed,
			Subject:          subject,
			Error:            sendErr.Error(),
		}
		if err := s.db.Create(&record).Error; err != nil {
			s.logger.WithError(err).Error("failed to record failed send")
		}
		return false, sendErr
	}

	now = s.Now()
	record := models.EmailRecord{
		ProspectID:       prospect.ID,
		CampaignID:       campaign.ID,
		EmailProviderID:  providerID,
		ThreadID:         utils.Pointer(thread.ID),
		IsFollowUp:       true,
		FollowUpSequence: sequence,
		Status:           models.EmailStatusSent,
		Subject:          subject,
		MessageID:        messageID,
		SentAt:           utils.Pointer(now),
	}
	if err := s.db.Create(&record).Error; err != nil {
		return true, err
	}

	if err := s.threads.Append(thread.ID, &models.ThreadMessage{
		Direction:        models.DirectionSent,
		Subject:          subject,
		Content:          content,
		SentByUs:         true,
		IsFollowUp:       true,
		FollowUpSequence: sequence,
		EmailProviderID:  utils.Pointer(providerID),
		TemplateID:       templateID,
	}); err != nil {
		return true, err
	}

	updates := map[string]interface{}{
		"follow_up_count":   gorm.Expr("follow_up_count + ?", 1),
		"last_follow_up":    now,
		"last_contact":      now,
		"email_provider_id": providerID,
	}
	// No interval left after this one: the sequence is complete
	if sequence >= len(intervals) {
		updates["follow_up_status"] = models.FollowUpCompleted
	}
	if err := s.db.Model(prospect).Updates(updates).Error; err != nil {
		return true, err
	}

	if err := s.db.Model(campaign).Updates(map[string]interface{}{
		"follow_up_count": gorm.Expr("follow_up_count + ?", 1),
		"sent_count":      gorm.Expr("sent_count + ?", 1),
	}).Error; err != nil {
		s.logger.WithError(err).Warn("failed to update campaign counters")
	}

	s.logger.WithFields(logrus.Fields{
		"campaign_id": campaign.ID,
		"prospect_id": prospect.ID,
		"sequence":    sequence,
		"provider_id": providerID,
	}).Info("follow-up sent")
	return true, nil
}

// selectTemplate picks the campaign's follow-up template for the given step,
// falling back to the primary template with a "Follow-up: " subject prefix
func (s *FollowUpScheduler) selectTemplate(campaign *models.Campaign, step int) (*models.Template, string, *uint, error) {
	if step < len(campaign.FollowUpTemplateIDs) {
		var tmpl models.Template
		if err := s.db.First(&tmpl, campaign.FollowUpTemplateIDs[step]).Error; err == nil {
			return &tmpl, tmpl.Subject, utils.Pointer(tmpl.ID), nil
		}
		s.logger.WithField("template_id", campaign.FollowUpTemplateIDs[step]).
			Warn("follow-up template missing, using campaign fallback")
	}

	if campaign.TemplateID == nil {
		return nil, "", nil, errors.New("campaign has no fallback template")
	}
	var tmpl models.Template
	if err := s.db.First(&tmpl, *campaign.TemplateID).Error; err != nil {
		return nil, "", nil, err
	}
	return &tmpl, "Follow-up: " + tmpl.Subject, utils.Pointer(tmpl.ID), nil
}

// intervalDuration interprets a configured interval: values below 1440 are
// minutes, larger values are whole days expressed in minutes
func intervalDuration(interval int) time.Duration {
	if interval < 1440 {
		return time.Duration(interval) * time.Minute
	}
	return time.Duration(interval/1440) * 24 * time.Hour
}

func dayAllowed(campaign *models.Campaign, now time.Time) bool {
	if len(campaign.FollowUpDaysOfWeek) == 0 {
		return true
	}
	today := strings.ToLower(now.Weekday().String())
	for _, day := range campaign.FollowUpDaysOfWeek {
		if strings.ToLower(strings.TrimSpace(day)) == today {
			return true
		}
	}
	return false
}

// withinTimeWindow compares zero-padded HH:MM strings lexicographically,
// bounds inclusive
func withinTimeWindow(campaign *models.Campaign, now time.Time) bool {
	start := campaign.FollowUpTimeWindowStart
	end := campaign.FollowUpTimeWindowEnd
	if start == "" || end == "" {
		return true
	}
	current := now.Format("15:04")
	return current >= start && current <= end
}
