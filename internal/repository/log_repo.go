package repository

import (
	"time"

	"rental-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LogRepository struct {
	db *gorm.DB
}

func NewLogRepository(db *gorm.DB) *LogRepository {
	return &LogRepository{db: db}
}

func (r *LogRepository) Create(log *models.ReconciliationLog) error {
	return r.db.Create(log).Error
}

func (r *LogRepository) GetByID(id uuid.UUID) (*models.ReconciliationLog, error) {
	var log models.ReconciliationLog
	if err := r.db.First(&log, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &log, nil
}

func (r *LogRepository) List(limit int) ([]models.ReconciliationLog, error) {
	var logs []models.ReconciliationLog
	err := r.db.Order("created_at DESC").Limit(limit).Find(&logs).Error
	return logs, err
}

// MarkConfirmed records the outcome of confirming a log. Counts accumulate
// when a log is confirmed more than once.
func (r *LogRepository) MarkConfirmed(id uuid.UUID, confirmed, skipped, errs int) error {
	now := time.Now()
	return r.db.Model(&models.ReconciliationLog{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":          models.LogConfirmed,
			"confirmed_count": gorm.Expr("confirmed_count + ?", confirmed),
			"skipped_count":   gorm.Expr("skipped_count + ?", skipped),
			"error_count":     gorm.Expr("error_count + ?", errs),
			"confirmed_at":    now,
		}).Error
}
