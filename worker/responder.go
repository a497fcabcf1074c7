package worker

import (
	"errors"

	"replyloop/models"
	"replyloop/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AutoResponder turns classified inbound mail into an optional automatic
// reply. It never retries within a cycle; a failed generation or send is
// logged and the message is left for a human.
type AutoResponder struct {
	db      *gorm.DB
	logger  *logrus.Logger
	ai      utils.ResponseAI
	gateway *utils.SendGateway
	threads *utils.ThreadStore
}

func NewAutoResponder(db *gorm.DB, logger *logrus.Logger, ai utils.ResponseAI, gateway *utils.SendGateway, threads *utils.ThreadStore) *AutoResponder {
	return &AutoResponder{
		db:      db,
		logger:  logger,
		ai:      ai,
		gateway: gateway,
		threads: threads,
	}
}

// ShouldAutoRespond reports whether any detected intent is configured for
// automatic replies. Classification confidence is deliberately not consulted:
// the stored threshold is informational.
func (ar *AutoResponder) ShouldAutoRespond(intents []utils.DetectedIntent) bool {
	if len(intents) == 0 {
		return false
	}

	ids := make([]uint, 0, len(intents))
	for _, intent := range intents {
		ids = append(ids, intent.IntentID)
	}

	var count int64
	if err := ar.db.Model(&models.IntentConfig{}).
		Where("id IN ? AND auto_respond = ?", ids, true).
		Count(&count).Error; err != nil {
		ar.logger.WithError(err).Error("failed to check intent configs")
		return false
	}
	return count > 0
}

// HandleInbound classifies a received message and, when policy allows, sends
// a personalized AI-drafted reply and appends it to the thread.
func (ar *AutoResponder) HandleInbound(prospect *models.Prospect, thread *models.Thread, subject, content string) error {
	intents, err := ar.ai.Classify(content, subject)
	if err != nil {
		return err
	}
	if !ar.ShouldAutoRespond(intents) {
		ar.logger.WithField("prospect_id", prospect.ID).
			Debug("no auto-respond intent matched")
		return nil
	}

	full, err := ar.threads.Get(thread.ID)
	if err != nil {
		return err
	}

	reply, err := ar.ai.Generate(content, subject, intents, full.Messages, prospect)
	if err != nil {
		// No partial send and no retry here; transport-level retry only
		ar.logger.WithError(err).WithField("prospect_id", prospect.ID).
			Error("reply generation failed, skipping auto-response")
		return nil
	}

	providerID, err := resolveProviderID(ar.db, prospect)
	if err != nil {
		return err
	}

	replySubject := utils.Personalize(reply.Subject, prospect)
	replyContent := utils.Personalize(reply.Content, prospect)

	if _, err := ar.gateway.Send(providerID, prospect.Email, replySubject, replyContent); err != nil {
		if errors.Is(err, utils.ErrRateLimited) {
			// Not an error, just "not yet"
			ar.logger.WithField("provider_id", providerID).
				Debug("provider at send limit, skipping auto-response")
			return nil
		}
		return err
	}

	if err := ar.threads.Append(thread.ID, &models.ThreadMessage{
		Direction:       models.DirectionSent,
		Subject:         replySubject,
		Content:         replyContent,
		SentByUs:        true,
		AIGenerated:     true,
		EmailProviderID: utils.Pointer(providerID),
		TemplateID:      reply.TemplateUsed,
	}); err != nil {
		return err
	}

	ar.logger.WithFields(logrus.Fields{
		"prospect_id": prospect.ID,
		"intent":      intents[0].Name,
		"confidence":  intents[0].Confidence,
	}).Info("auto-response sent")
	return nil
}
