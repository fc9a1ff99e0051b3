package repository

import (
	"database/sql"

	"rental-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PlatformTransactionRepository struct {
	db *gorm.DB
}

func NewPlatformTransactionRepository(db *gorm.DB) *PlatformTransactionRepository {
	return &PlatformTransactionRepository{db: db}
}

func (r *PlatformTransactionRepository) WithTx(tx *gorm.DB) *PlatformTransactionRepository {
	return &PlatformTransactionRepository{db: tx}
}

func (r *PlatformTransactionRepository) BulkInsert(rows []models.PlatformTransaction) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.CreateInBatches(rows, insertChunk).Error
}

func (r *PlatformTransactionRepository) GetByID(id uuid.UUID) (*models.PlatformTransaction, error) {
	var tx models.PlatformTransaction
	if err := r.db.First(&tx, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &tx, nil
}

// ListByBatch returns every row of one batch in import order; this is the
// input of the association resolver.
func (r *PlatformTransactionRepository) ListByBatch(batchID uuid.UUID) ([]models.PlatformTransaction, error) {
	var txs []models.PlatformTransaction
	err := r.db.Where("batch_id = ?", batchID).Order("row_index ASC").Find(&txs).Error
	return txs, err
}

// ListPage pages one batch by row index, see BankTransactionRepository.ListPage.
func (r *PlatformTransactionRepository) ListPage(batchID uuid.UUID, status models.ReconciliationStatus, cursor, limit int) ([]models.PlatformTransaction, bool, error) {
	var txs []models.PlatformTransaction
	q := r.db.
		Where("batch_id = ? AND row_index > ?", batchID, cursor).
		Order("row_index ASC").
		Limit(limit + 1)
	if status != "" {
		q = q.Where("reconciliation_status = ?", status)
	}
	if err := q.Find(&txs).Error; err != nil {
		return nil, false, err
	}
	hasMore := len(txs) > limit
	if hasMore {
		txs = txs[:limit]
	}
	return txs, hasMore, nil
}

func (r *PlatformTransactionRepository) FindByConfirmationCode(code string) ([]models.PlatformTransaction, error) {
	var txs []models.PlatformTransaction
	err := r.db.Where("confirmation_code = ?", code).Order("batch_id ASC, row_index ASC").Find(&txs).Error
	return txs, err
}

// ConfirmationCodes lists the distinct non-empty codes of a batch.
func (r *PlatformTransactionRepository) ConfirmationCodes(batchID uuid.UUID) ([]string, error) {
	var codes []string
	err := r.db.Model(&models.PlatformTransaction{}).
		Where("batch_id = ? AND confirmation_code IS NOT NULL AND confirmation_code <> ''", batchID).
		Distinct().
		Order("confirmation_code ASC").
		Pluck("confirmation_code", &codes).Error
	return codes, err
}

func (r *PlatformTransactionRepository) NaturalKeys(batchID uuid.UUID) (map[string]bool, error) {
	var keys []string
	if err := r.db.Model(&models.PlatformTransaction{}).Where("batch_id = ?", batchID).Pluck("natural_key", &keys).Error; err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(keys))
	for _, k := range keys {
		out[k] = true
	}
	return out, nil
}

func (r *PlatformTransactionRepository) MaxRowIndex(batchID uuid.UUID) (int, error) {
	var max sql.NullInt64
	err := r.db.Model(&models.PlatformTransaction{}).Where("batch_id = ?", batchID).Select("MAX(row_index)").Row().Scan(&max)
	if err != nil || !max.Valid {
		return -1, err
	}
	return int(max.Int64), nil
}

func (r *PlatformTransactionRepository) DeleteByBatch(batchID uuid.UUID) error {
	return r.db.Where("batch_id = ?", batchID).Delete(&models.PlatformTransaction{}).Error
}

// MarkPayoutReconciled links a still-unreconciled Payout to a bank transaction
// code. It reports whether the row changed.
func (r *PlatformTransactionRepository) MarkPayoutReconciled(id uuid.UUID, bankCode string) (bool, error) {
	res := r.db.Model(&models.PlatformTransaction{}).
		Where("id = ? AND reconciliation_status = ?", id, models.StatusUnreconciled).
		Updates(map[string]interface{}{
			"reconciliation_status":         models.StatusReconciled,
			"matched_bank_transaction_code": bankCode,
		})
	return res.RowsAffected > 0, res.Error
}

// SetPayoutMatch links a Payout to a bank code whatever its current status.
func (r *PlatformTransactionRepository) SetPayoutMatch(id uuid.UUID, bankCode string) error {
	return r.db.Model(&models.PlatformTransaction{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"reconciliation_status":         models.StatusReconciled,
			"matched_bank_transaction_code": bankCode,
		}).Error
}

// MarkReconciled sets status only; bookings carry no bank code.
func (r *PlatformTransactionRepository) MarkReconciled(ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.Model(&models.PlatformTransaction{}).
		Where("id IN ? AND reconciliation_status = ?", ids, models.StatusUnreconciled).
		Update("reconciliation_status", models.StatusReconciled)
	return res.RowsAffected, res.Error
}

// Stats groups a batch's rows by reconciliation status with the payout_amount sum.
func (r *PlatformTransactionRepository) Stats(batchID uuid.UUID) ([]StatRow, error) {
	var rows []StatRow
	err := r.db.Model(&models.PlatformTransaction{}).
		Where("batch_id = ?", batchID).
		Select("reconciliation_status AS status, COUNT(*) AS count, COALESCE(SUM(payout_amount), 0) AS sum").
		Group("reconciliation_status").
		Scan(&rows).Error
	return rows, err
}
