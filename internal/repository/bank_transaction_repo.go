package repository

import (
	"database/sql"

	"rental-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type BankTransactionRepository struct {
	db *gorm.DB
}

func NewBankTransactionRepository(db *gorm.DB) *BankTransactionRepository {
	return &BankTransactionRepository{db: db}
}

func (r *BankTransactionRepository) WithTx(tx *gorm.DB) *BankTransactionRepository {
	return &BankTransactionRepository{db: tx}
}

func (r *BankTransactionRepository) BulkInsert(rows []models.BankTransaction) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.CreateInBatches(rows, insertChunk).Error
}

func (r *BankTransactionRepository) GetByID(id uuid.UUID) (*models.BankTransaction, error) {
	var tx models.BankTransaction
	if err := r.db.First(&tx, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &tx, nil
}

// ListByBatches returns the rows batch by batch in the order the ids are
// given, each batch in row order. No ids means every bank batch, oldest
// import first. An empty status returns every row.
func (r *BankTransactionRepository) ListByBatches(batchIDs []uuid.UUID, status models.ReconciliationStatus) ([]models.BankTransaction, error) {
	if len(batchIDs) == 0 {
		err := r.db.Model(&models.ImportBatch{}).
			Where("source_type = ?", models.SourceBank).
			Order("created_at ASC").
			Pluck("id", &batchIDs).Error
		if err != nil {
			return nil, err
		}
	}

	txs := []models.BankTransaction{}
	for _, id := range batchIDs {
		var rows []models.BankTransaction
		q := r.db.Where("batch_id = ?", id).Order("row_index ASC")
		if status != "" {
			q = q.Where("reconciliation_status = ?", status)
		}
		if err := q.Find(&rows).Error; err != nil {
			return nil, err
		}
		txs = append(txs, rows...)
	}
	return txs, nil
}

// ListPage pages one batch by row index. cursor is the last row index seen,
// -1 for the first page.
func (r *BankTransactionRepository) ListPage(batchID uuid.UUID, status models.ReconciliationStatus, cursor, limit int) ([]models.BankTransaction, bool, error) {
	var txs []models.BankTransaction
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

func (r *BankTransactionRepository) FindByTransactionCode(code string) ([]models.BankTransaction, error) {
	var txs []models.BankTransaction
	err := r.db.Where("transaction_code = ?", code).Order("transaction_date ASC, row_index ASC").Find(&txs).Error
	return txs, err
}

// NaturalKeys returns the natural keys already present in a batch.
func (r *BankTransactionRepository) NaturalKeys(batchID uuid.UUID) (map[string]bool, error) {
	var keys []string
	if err := r.db.Model(&models.BankTransaction{}).Where("batch_id = ?", batchID).Pluck("natural_key", &keys).Error; err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(keys))
	for _, k := range keys {
		out[k] = true
	}
	return out, nil
}

// MaxRowIndex returns the highest row index of a batch, -1 when it is empty.
func (r *BankTransactionRepository) MaxRowIndex(batchID uuid.UUID) (int, error) {
	var max sql.NullInt64
	err := r.db.Model(&models.BankTransaction{}).Where("batch_id = ?", batchID).Select("MAX(row_index)").Row().Scan(&max)
	if err != nil || !max.Valid {
		return -1, err
	}
	return int(max.Int64), nil
}

func (r *BankTransactionRepository) DeleteByBatch(batchID uuid.UUID) error {
	return r.db.Where("batch_id = ?", batchID).Delete(&models.BankTransaction{}).Error
}

// MarkReconciled reconciles a row only if it is still unreconciled, so two
// racing confirmations cannot both claim it. It reports whether the row changed.
func (r *BankTransactionRepository) MarkReconciled(id uuid.UUID, codes []string) (bool, error) {
	res := r.db.Model(&models.BankTransaction{}).
		Where("id = ? AND reconciliation_status = ?", id, models.StatusUnreconciled).
		Updates(map[string]interface{}{
			"reconciliation_status":      models.StatusReconciled,
			"matched_confirmation_codes": datatypes.JSONSlice[string](codes),
		})
	return res.RowsAffected > 0, res.Error
}

// SetMatchedCodes overwrites the matched codes and reconciles the row whatever
// its current status. Manual annotation uses it to append to earlier matches.
func (r *BankTransactionRepository) SetMatchedCodes(id uuid.UUID, codes []string) error {
	return r.db.Model(&models.BankTransaction{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"reconciliation_status":      models.StatusReconciled,
			"matched_confirmation_codes": datatypes.JSONSlice[string](codes),
		}).Error
}

// Stats groups a batch's rows by reconciliation status with the amount sum.
func (r *BankTransactionRepository) Stats(batchID uuid.UUID) ([]StatRow, error) {
	var rows []StatRow
	err := r.db.Model(&models.BankTransaction{}).
		Where("batch_id = ?", batchID).
		Select("reconciliation_status AS status, COUNT(*) AS count, COALESCE(SUM(amount), 0) AS sum").
		Group("reconciliation_status").
		Scan(&rows).Error
	return rows, err
}
