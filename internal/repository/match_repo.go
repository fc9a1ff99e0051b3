package repository

import (
	"rental-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MatchRepository is append-only: audit rows are never updated.
type MatchRepository struct {
	db *gorm.DB
}

func NewMatchRepository(db *gorm.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

func (r *MatchRepository) WithTx(tx *gorm.DB) *MatchRepository {
	return &MatchRepository{db: tx}
}

func (r *MatchRepository) Create(m *models.ReconciliationMatch) error {
	return r.db.Create(m).Error
}

// List returns audit rows newest first, optionally for one bank transaction.
func (r *MatchRepository) List(bankTransactionID *uuid.UUID, limit int) ([]models.ReconciliationMatch, error) {
	var out []models.ReconciliationMatch
	q := r.db.Order("created_at DESC")
	if bankTransactionID != nil {
		q = q.Where("bank_transaction_id = ?", *bankTransactionID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

func (r *MatchRepository) CountByLog(logID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.Model(&models.ReconciliationMatch{}).Where("log_id = ?", logID).Count(&n).Error
	return n, err
}
