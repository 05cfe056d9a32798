package services

import (
	"io"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/markettask/markettask-api/internal/models"
)

// openTestDB creates an in-memory SQLite database with the full schema.
func openTestDB() (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Task{},
		&models.TaskStatusChange{},
		&models.Offer{},
		&models.Payment{},
		&models.Transaction{},
		&models.Receipt{},
		&models.ReceiptSequence{},
		&models.Review{},
		&models.RatingSummary{},
	)
	if err != nil {
		return nil, err
	}

	return db, nil
}

// newTestLogger returns a logger that swallows output.
func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
