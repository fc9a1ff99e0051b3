package repository

import (
	"time"

	"rental-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BatchRepository struct {
	db *gorm.DB
}

func NewBatchRepository(db *gorm.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

func (r *BatchRepository) WithTx(tx *gorm.DB) *BatchRepository {
	return &BatchRepository{db: tx}
}

func (r *BatchRepository) Create(batch *models.ImportBatch) error {
	return r.db.Create(batch).Error
}

func (r *BatchRepository) GetByID(id uuid.UUID) (*models.ImportBatch, error) {
	var batch models.ImportBatch
	if err := r.db.First(&batch, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &batch, nil
}

// List returns batches newest first, optionally restricted to one source type.
func (r *BatchRepository) List(source models.SourceType) ([]models.ImportBatch, error) {
	var batches []models.ImportBatch
	q := r.db.Order("created_at DESC")
	if source != "" {
		q = q.Where("source_type = ?", source)
	}
	err := q.Find(&batches).Error
	return batches, err
}

// MarkCompleted sets the final record count and completion time.
func (r *BatchRepository) MarkCompleted(id uuid.UUID, count int) error {
	now := time.Now()
	return r.db.Model(&models.ImportBatch{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"records_count": count,
			"status":        models.BatchCompleted,
			"completed_at":  now,
		}).Error
}

// Delete removes a batch and every transaction it owns.
func (r *BatchRepository) Delete(id uuid.UUID) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("batch_id = ?", id).Delete(&models.BankTransaction{}).Error; err != nil {
			return err
		}
		if err := tx.Where("batch_id = ?", id).Delete(&models.PlatformTransaction{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.ImportBatch{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
