package worker

import (
	"errors"
	"fmt"

	"replyloop/models"

	"gorm.io/gorm"
)

// resolveProviderID finds the provider every message to this prospect must
// go through so reply threading and sender identity stay consistent: the
// provider stored on the prospect, else the one on the earliest send record,
// else the account default.
func resolveProviderID(db *gorm.DB, prospect *models.Prospect) (uint, error) {
	if prospect.EmailProviderID != nil {
		return *prospect.EmailProviderID, nil
	}

	var record models.EmailRecord
	err := db.Where("prospect_id = ?", prospect.ID).
		Order("id ASC").
		First(&record).Error
	if err == nil {
		return record.EmailProviderID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}

	var provider models.EmailProvider
	err = db.Where("is_default = ? AND is_active = ?", true, true).
		First(&provider).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("no provider available for prospect %d", prospect.ID)
	}
	if err != nil {
		return 0, err
	}
	return provider.ID, nil
}
