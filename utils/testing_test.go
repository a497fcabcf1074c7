package utils

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"replyloop/config"
	"replyloop/models"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// openTestDB gives each test its own migrated in-memory database. The pool is
// capped at one connection so concurrent test goroutines serialize at the
// driver instead of tripping SQLite lock errors.
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
