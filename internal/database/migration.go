package database

import (
	"fmt"

	"rental-reconciliation-backend/internal/models"

	"gorm.io/gorm"
)

// AutoMigrate runs schema migrations for all models.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Bank{},
		&models.Platform{},
		&models.Property{},
		&models.ImportBatch{},
		&models.BankTransaction{},
		&models.PlatformTransaction{},
		&models.ReconciliationRule{},
		&models.ReconciliationLog{},
		&models.ReconciliationMatch{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
