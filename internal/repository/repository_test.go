package repository

import (
	"testing"
	"time"

	"rental-reconciliation-backend/internal/models"
	"rental-reconciliation-backend/internal/testutil"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedBankBatch(t *testing.T, db *gorm.DB, amounts ...int64) (*models.ImportBatch, []models.BankTransaction) {
	t.Helper()
	batch := &models.ImportBatch{SourceType: models.SourceBank, FileName: "bank.csv", Status: models.BatchProcessing, StartedAt: time.Now()}
	require.NoError(t, NewBatchRepository(db).Create(batch))

	rows := make([]models.BankTransaction, 0, len(amounts))
	for i, a := range amounts {
		rows = append(rows, models.BankTransaction{
			BatchID:         batch.ID,
			RowIndex:        i,
			TransactionDate: time.Date(2024, 6, 1+i, 0, 0, 0, 0, time.UTC),
			Amount:          decimal.NewFromInt(a),
			IsIncome:        a > 0,
			TransactionCode: "RB" + uuid.NewString()[:6],
			NaturalKey:      uuid.NewString(),
		})
	}
	require.NoError(t, NewBankTransactionRepository(db).BulkInsert(rows))
	return batch, rows
}

func TestBankRepo_ListByBatchesOrderAndFilter(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewBankTransactionRepository(db)
	batch, rows := seedBankBatch(t, db, 100, 200, 300)

	ok, err := repo.MarkReconciled(rows[1].ID, []string{"ABC123"})
	require.NoError(t, err)
	assert.True(t, ok)

	all, err := repo.ListByBatches([]uuid.UUID{batch.ID}, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i, tx := range all {
		assert.Equal(t, i, tx.RowIndex)
	}

	open, err := repo.ListByBatches([]uuid.UUID{batch.ID}, models.StatusUnreconciled)
	require.NoError(t, err)
	assert.Len(t, open, 2)

	got, err := repo.GetByID(rows[1].ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReconciled, got.ReconciliationStatus)
	assert.Equal(t, []string{"ABC123"}, []string(got.MatchedConfirmationCodes))
}

func TestBankRepo_MarkReconciledIsConditional(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewBankTransactionRepository(db)
	_, rows := seedBankBatch(t, db, 100)

	ok, err := repo.MarkReconciled(rows[0].ID, []string{"A"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.MarkReconciled(rows[0].ID, []string{"B"})
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := repo.GetByID(rows[0].ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, []string(got.MatchedConfirmationCodes))
}

func TestBankRepo_MaxRowIndexAndNaturalKeys(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewBankTransactionRepository(db)

	max, err := repo.MaxRowIndex(uuid.New())
	require.NoError(t, err)
	assert.Equal(t, -1, max)

	batch, rows := seedBankBatch(t, db, 1, 2, 3)
	max, err = repo.MaxRowIndex(batch.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, max)

	keys, err := repo.NaturalKeys(batch.ID)
	require.NoError(t, err)
	assert.Len(t, keys, 3)
	assert.True(t, keys[rows[0].NaturalKey])
}

func TestBankRepo_ListPage(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewBankTransactionRepository(db)
	batch, _ := seedBankBatch(t, db, 1, 2, 3, 4, 5)

	page, more, err := repo.ListPage(batch.ID, "", -1, 2)
	require.NoError(t, err)
	assert.True(t, more)
	require.Len(t, page, 2)

	page, more, err = repo.ListPage(batch.ID, "", page[1].RowIndex, 10)
	require.NoError(t, err)
	assert.False(t, more)
	require.Len(t, page, 3)
	assert.Equal(t, 2, page[0].RowIndex)
}

func TestBankRepo_ListByBatchesFollowsRequestOrder(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewBankTransactionRepository(db)
	first, _ := seedBankBatch(t, db, 100, 200)
	second, _ := seedBankBatch(t, db, 300)

	got, err := repo.ListByBatches([]uuid.UUID{second.ID, first.ID}, "")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, second.ID, got[0].BatchID)
	assert.Equal(t, first.ID, got[1].BatchID)
	assert.Equal(t, 0, got[1].RowIndex)
	assert.Equal(t, 1, got[2].RowIndex)

	// oldest import first without ids
	require.NoError(t, db.Model(&models.ImportBatch{}).Where("id = ?", second.ID).
		Update("created_at", time.Now().Add(-time.Hour)).Error)
	got, err = repo.ListByBatches(nil, "")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, second.ID, got[0].BatchID)
	assert.Equal(t, first.ID, got[2].BatchID)
}

func TestBatchRepo_DeleteCascades(t *testing.T) {
	db := testutil.NewTestDB(t)
	batches := NewBatchRepository(db)
	bank := NewBankTransactionRepository(db)
	batch, _ := seedBankBatch(t, db, 1, 2)
	other, _ := seedBankBatch(t, db, 3)

	require.NoError(t, batches.Delete(batch.ID))

	_, err := batches.GetByID(batch.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	left, err := bank.ListByBatches(nil, "")
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, other.ID, left[0].BatchID)

	assert.ErrorIs(t, batches.Delete(batch.ID), ErrNotFound)
}

func TestBatchRepo_MarkCompleted(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewBatchRepository(db)
	batch, _ := seedBankBatch(t, db, 1)

	require.NoError(t, repo.MarkCompleted(batch.ID, 1))

	got, err := repo.GetByID(batch.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BatchCompleted, got.Status)
	assert.Equal(t, 1, got.RecordsCount)
	assert.NotNil(t, got.CompletedAt)
}

func TestPlatformRepo_PayoutAndBookings(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewPlatformTransactionRepository(db)
	batchID := uuid.New()
	code := "ABC123"
	rows := []models.PlatformTransaction{
		{BatchID: batchID, RowIndex: 0, Type: models.TypePayout, PayoutAmount: decimal.NewFromInt(50000), NaturalKey: "0"},
		{BatchID: batchID, RowIndex: 1, Type: models.TypeBooking, ConfirmationCode: &code, NaturalKey: "1"},
	}
	require.NoError(t, repo.BulkInsert(rows))

	listed, err := repo.ListByBatch(batchID)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.True(t, listed[0].IsPayout())

	ok, err := repo.MarkPayoutReconciled(rows[0].ID, "RB2406010000")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.MarkPayoutReconciled(rows[0].ID, "RB2406010000")
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := repo.MarkReconciled([]uuid.UUID{rows[1].ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	found, err := repo.FindByConfirmationCode(code)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, models.StatusReconciled, found[0].ReconciliationStatus)

	codes, err := repo.ConfirmationCodes(batchID)
	require.NoError(t, err)
	assert.Equal(t, []string{code}, codes)

	stats, err := repo.Stats(batchID)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, models.StatusReconciled, stats[0].Status)
	assert.EqualValues(t, 2, stats[0].Count)
	assert.True(t, decimal.NewFromInt(50000).Equal(stats[0].Sum))
}

func TestReferenceRepo_FindOrCreate(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewReferenceRepository(db)

	a, err := repo.FindOrCreateBank("Rakuten", "")
	require.NoError(t, err)
	b, err := repo.FindOrCreateBank(" Rakuten ", "RB")
	require.NoError(t, err)
	assert.Equal(t, a.ID, b.ID)
	assert.Equal(t, "RB", b.Code)

	p1, err := repo.FindOrCreatePlatform("Airbnb", "host@example.com")
	require.NoError(t, err)
	p2, err := repo.FindOrCreatePlatform("Airbnb", "other@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, p1.ID, p2.ID)

	h1, err := repo.FindOrCreateProperty("Shibuya 201")
	require.NoError(t, err)
	h2, err := repo.FindOrCreateProperty("Shibuya 201")
	require.NoError(t, err)
	assert.Equal(t, h1.ID, h2.ID)
}

func TestRuleRepo_UpsertByName(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewRuleRepository(db)

	require.NoError(t, repo.Upsert(&models.ReconciliationRule{Name: "airbnb", BankField: "金額", PlatformField: "收款"}))
	require.NoError(t, repo.Upsert(&models.ReconciliationRule{Name: "airbnb", BankField: "お預入金額", PlatformField: "收款"}))

	rules, err := repo.List()
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "お預入金額", rules[0].BankField)

	require.NoError(t, repo.Delete(rules[0].ID))
	assert.ErrorIs(t, repo.Delete(rules[0].ID), ErrNotFound)
}

func TestLogRepo_MarkConfirmedAccumulates(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewLogRepository(db)
	log := &models.ReconciliationLog{Matches: []models.ProposedMatch{{BankTransactionID: uuid.New(), PayoutID: uuid.New()}}}
	require.NoError(t, repo.Create(log))

	require.NoError(t, repo.MarkConfirmed(log.ID, 1, 0, 0))
	require.NoError(t, repo.MarkConfirmed(log.ID, 0, 1, 0))

	got, err := repo.GetByID(log.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LogConfirmed, got.Status)
	assert.Equal(t, 1, got.ConfirmedCount)
	assert.Equal(t, 1, got.SkippedCount)
	require.Len(t, got.Matches, 1)
	assert.Equal(t, log.Matches[0].PayoutID, got.Matches[0].PayoutID)
}
