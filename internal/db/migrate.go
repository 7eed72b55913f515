package db

import (
	"fmt"

	"github.com/nishio/dealroom/internal/models"
	"gorm.io/gorm"
)

// AllModels returns every GORM model for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.Transaction{},
		&models.Message{},
		&models.MessageImage{},
		&models.MessageRead{},
		&models.Rating{},
		&models.ReminderSent{},
	}
}

// AutoMigrate creates or updates all tables, including the composite
// primary keys and the unique index backing the one-rating-per-party rule.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}
