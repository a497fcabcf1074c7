package utils

import (
	"errors"
	"time"

	"replyloop/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ThreadStore is the durable append-only conversation log, one thread per
// prospect. Everything that touches a conversation goes through it so
// last_activity stays accurate for the follow-up timing math.
type ThreadStore struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewThreadStore(db *gorm.DB, logger *logrus.Logger) *ThreadStore {
	return &ThreadStore{
		db:     db,
		logger: logger,
	}
}

// GetOrCreate returns the prospect's thread, creating it when absent.
// Concurrent creators converge on one thread: the unique index on
// prospect_id rejects the loser, who then re-reads the winner's row.
func (ts *ThreadStore) GetOrCreate(prospectID uint) (*models.Thread, error) {
	var thread models.Thread
	err := ts.db.Where("prospect_id = ?", prospectID).First(&thread).Error
	if err == nil {
		return &thread, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	thread = models.Thread{
		ProspectID:   prospectID,
		Status:       "open",
		LastActivity: time.Now(),
	}
	if createErr := ts.db.Create(&thread).Error; createErr != nil {
		// Lost the race against a concurrent creator
		var existing models.Thread
		if err := ts.db.Where("prospect_id = ?", prospectID).First(&existing).Error; err == nil {
			return &existing, nil
		}
		return nil, createErr
	}
	return &thread, nil
}

// Append atomically adds a message and bumps last_activity
func (ts *ThreadStore) Append(threadID uint, msg *models.ThreadMessage) error {
	msg.ThreadID = threadID
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	return ts.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		return tx.Model(&models.Thread{}).
			Where("id = ?", threadID).
			Update("last_activity", msg.Timestamp).Error
	})
}

// Get returns a thread with its messages in insertion order
func (ts *ThreadStore) Get(threadID uint) (*models.Thread, error) {
	var thread models.Thread
	err := ts.db.Preload("Messages", func(db *gorm.DB) *gorm.DB {
		return db.Order("thread_messages.id ASC")
	}).First(&thread, threadID).Error
	if err != nil {
		return nil, err
	}
	return &thread, nil
}

// GetByProspect returns the prospect's thread with messages, or nil when the
// prospect has never been part of a conversation
func (ts *ThreadStore) GetByProspect(prospectID uint) (*models.Thread, error) {
	var thread models.Thread
	err := ts.db.Preload("Messages", func(db *gorm.DB) *gorm.DB {
		return db.Order("thread_messages.id ASC")
	}).Where("prospect_id = ?", prospectID).First(&thread).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &thread, nil
}
