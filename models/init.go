package models

import "gorm.io/gorm"

// Migrate runs schema auto-migration for every engine model. Called from
// config on startup and from tests against an in-memory database.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&EmailProvider{},
		&Campaign{},
		&Template{},
		&Prospect{},
		&Thread{},
		&ThreadMessage{},
		&EmailRecord{},
		&IntentConfig{},
	)
}
