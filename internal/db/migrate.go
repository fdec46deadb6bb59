package db

import (
	"fmt"

	"github.com/automatix-sh/automatix/internal/models"
	"gorm.io/gorm"
)

// AllModels returns all GORM models for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.Run{},
		&models.StepResult{},
		&models.CommandLog{},
		&models.HostKey{},
		&models.ScheduledScript{},
	}
}

// AutoMigrate creates or updates all history tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// Reset drops every history table and re-migrates.
func Reset(db *gorm.DB) error {
	if err := db.Migrator().DropTable(AllModels()...); err != nil {
		return fmt.Errorf("db: drop tables: %w", err)
	}
	return AutoMigrate(db)
}
