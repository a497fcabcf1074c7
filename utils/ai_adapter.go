package utils

import (
	"fmt"
	"sort"
	"strings"

	"replyloop/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DetectedIntent is one classified purpose of an inbound email, ranked by
// confidence
type DetectedIntent struct {
	IntentID   uint    `json:"intent_id"`
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// GeneratedReply is a drafted response to an inbound email
type GeneratedReply struct {
	Subject      string  `json:"subject"`
	Content      string  `json:"content"`
	TemplateUsed *uint   `json:"template_used"`
	Confidence   float64 `json:"confidence"`
}

// ResponseAI is the contract boundary to the classification/generation
// service. The engine never inspects the implementation; an LLM-backed
// client and the keyword fallback below satisfy the same interface, as do
// the test doubles.
type ResponseAI interface {
	Classify(text, subject string) ([]DetectedIntent, error)
	Generate(text, subject string, intents []DetectedIntent, history []models.ThreadMessage, prospect *models.Prospect) (*GeneratedReply, error)
}

// KeywordClassifier scores inbound mail against the keyword lists stored on
// each IntentConfig and drafts replies from the matched intent's primary
// template. It is the default adapter when no external AI is configured.
type KeywordClassifier struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewKeywordClassifier(db *gorm.DB, logger *logrus.Logger) *KeywordClassifier {
	return &KeywordClassifier{
		db:     db,
		logger: logger,
	}
}

func (kc *KeywordClassifier) Classify(text, subject string) ([]DetectedIntent, error) {
	var configs []models.IntentConfig
	if err := kc.db.Where("is_active = ?", true).Find(&configs).Error; err != nil {
		return nil, err
	}

	haystack := strings.ToLower(subject + " " + text)

	var intents []DetectedIntent
	for _, cfg := range configs {
		if len(cfg.Keywords) == 0 {
			continue
		}
		var matched []string
		for _, kw := range cfg.Keywords {
			if kw != "" && strings.Contains(haystack, strings.ToLower(kw)) {
				matched = append(matched, kw)
			}
		}
		if len(matched) == 0 {
			continue
		}
		intents = append(intents, DetectedIntent{
			IntentID:   cfg.ID,
			Name:       cfg.Name,
			Confidence: float64(len(matched)) / float64(len(cfg.Keywords)),
			Reasoning:  fmt.Sprintf("matched %d of %d keywords: %s", len(matched), len(cfg.Keywords), strings.Join(matched, ", ")),
		})
	}

	sort.SliceStable(intents, func(i, j int) bool {
		return intents[i].Confidence > intents[j].Confidence
	})
	return intents, nil
}

func (kc *KeywordClassifier) Generate(text, subject string, intents []DetectedIntent, history []models.ThreadMessage, prospect *models.Prospect) (*GeneratedReply, error) {
	for _, intent := range intents {
		var cfg models.IntentConfig
		if err := kc.db.First(&cfg, intent.IntentID).Error; err != nil {
			continue
		}
		if cfg.PrimaryTemplateID == nil {
			continue
		}

		var tmpl models.Template
		if err := kc.db.First(&tmpl, *cfg.PrimaryTemplateID).Error; err != nil {
			kc.logger.WithField("template_id", *cfg.PrimaryTemplateID).
				Warn("intent template missing, trying next intent")
			continue
		}

		return &GeneratedReply{
			Subject:      replySubject(subject),
			Content:      tmpl.Body(),
			TemplateUsed: cfg.PrimaryTemplateID,
			Confidence:   intent.Confidence,
		}, nil
	}

	return nil, fmt.Errorf("no response template configured for detected intents")
}

func replySubject(subject string) string {
	if strings.HasPrefix(strings.ToLower(subject), "re:") {
		return subject
	}
	return "Re: " + subject
}
