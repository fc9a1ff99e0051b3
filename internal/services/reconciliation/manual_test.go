package reconciliation

import (
	"context"
	"testing"

	"rental-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManual_PlatformPayoutHarvestsBookingCodes(t *testing.T) {
	f := setup(t, bankCSV, platformCSV)

	res, err := f.svc.Manual(context.Background(), ManualRequest{
		Type:          ManualPlatform,
		TransactionID: f.platform[0].ID,
		Code:          "RB2406010000",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, []string{"ABC123", "DEF456"}, res.ConfirmationCodes)

	bank := f.bankRow(t, f.bank[0].ID)
	assert.Equal(t, models.StatusReconciled, bank.ReconciliationStatus)
	assert.Equal(t, []string{"ABC123", "DEF456"}, []string(bank.MatchedConfirmationCodes))

	payout := f.platformRow(t, f.platform[0].ID)
	assert.Equal(t, models.StatusReconciled, payout.ReconciliationStatus)
	assert.Equal(t, "RB2406010000", *payout.MatchedBankTransactionCode)
	assert.Equal(t, models.StatusReconciled, f.platformRow(t, f.platform[1].ID).ReconciliationStatus)
	assert.Equal(t, models.StatusReconciled, f.platformRow(t, f.platform[2].ID).ReconciliationStatus)
	assert.Equal(t, models.StatusUnreconciled, f.platformRow(t, f.platform[3].ID).ReconciliationStatus)

	audits, err := f.svc.ListMatches(context.Background(), &f.bank[0].ID, 0)
	require.NoError(t, err)
	require.Len(t, audits, 1)
	assert.True(t, audits[0].IsManual)
	assert.Equal(t, models.MatchSourceManual, audits[0].Source)
}

func TestManual_BookingRedirectsToPayout(t *testing.T) {
	f := setup(t, bankCSV, platformCSV)

	res, err := f.svc.Manual(context.Background(), ManualRequest{
		Type:          ManualPlatform,
		TransactionID: f.platform[2].ID,
		Code:          "RB2406010000",
	})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{f.platform[0].ID}, res.PayoutIDs)
	assert.Equal(t, "RB2406010000", *f.platformRow(t, f.platform[0].ID).MatchedBankTransactionCode)
	assert.Nil(t, f.platformRow(t, f.platform[2].ID).MatchedBankTransactionCode)
}

func TestManual_PlatformAppendsToExistingCodes(t *testing.T) {
	f := setup(t, bankCSV, platformCSV)
	ctx := context.Background()

	_, err := f.svc.Manual(ctx, ManualRequest{Type: ManualBank, TransactionID: f.bank[0].ID, Code: "ZZZ999"})
	assert.ErrorIs(t, err, ErrNoPlatformTransaction)

	_, err = f.svc.Manual(ctx, ManualRequest{Type: ManualPlatform, TransactionID: f.platform[3].ID, Code: "RB2406010000"})
	require.NoError(t, err)
	_, err = f.svc.Manual(ctx, ManualRequest{Type: ManualPlatform, TransactionID: f.platform[0].ID, Code: "RB2406010000"})
	require.NoError(t, err)

	assert.Equal(t, []string{"GHI789", "ABC123", "DEF456"}, []string(f.bankRow(t, f.bank[0].ID).MatchedConfirmationCodes))
}

func TestManual_BookingWithoutPayout(t *testing.T) {
	data := "日期,類型,確認碼,收款\n" +
		"2024/05/27,預訂,EARLY1,\n" +
		"2024/06/01,Payout,,\"50,000\"\n"
	f := setup(t, bankCSV, data)

	_, err := f.svc.Manual(context.Background(), ManualRequest{
		Type:          ManualPlatform,
		TransactionID: f.platform[0].ID,
		Code:          "RB2406010000",
	})
	assert.ErrorIs(t, err, ErrNoOwningPayout)
}

func TestManual_UnknownBankCode(t *testing.T) {
	f := setup(t, bankCSV, platformCSV)

	_, err := f.svc.Manual(context.Background(), ManualRequest{
		Type:          ManualPlatform,
		TransactionID: f.platform[0].ID,
		Code:          "XX0000000000",
	})
	assert.ErrorIs(t, err, ErrNoBankTransaction)
	assert.Equal(t, models.StatusUnreconciled, f.platformRow(t, f.platform[0].ID).ReconciliationStatus)
}

func TestManual_BankSideLinksOwningPayout(t *testing.T) {
	f := setup(t, bankCSV, platformCSV)
	ctx := context.Background()

	res, err := f.svc.Manual(ctx, ManualRequest{Type: ManualBank, TransactionID: f.bank[0].ID, Code: "DEF456"})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{f.platform[0].ID}, res.PayoutIDs)
	assert.Equal(t, []uuid.UUID{f.platform[2].ID}, res.BookingIDs)

	assert.Equal(t, models.StatusReconciled, f.platformRow(t, f.platform[2].ID).ReconciliationStatus)
	// only the code-bearing booking is reconciled
	assert.Equal(t, models.StatusUnreconciled, f.platformRow(t, f.platform[1].ID).ReconciliationStatus)
	assert.Equal(t, "RB2406010000", *f.platformRow(t, f.platform[0].ID).MatchedBankTransactionCode)

	_, err = f.svc.Manual(ctx, ManualRequest{Type: ManualBank, TransactionID: f.bank[0].ID, Code: "ABC123"})
	require.NoError(t, err)
	assert.Equal(t, []string{"DEF456", "ABC123"}, []string(f.bankRow(t, f.bank[0].ID).MatchedConfirmationCodes))
	assert.Equal(t, 2, f.auditCount(t))
}

func TestManual_Validation(t *testing.T) {
	f := setup(t, bankCSV, platformCSV)
	ctx := context.Background()

	_, err := f.svc.Manual(ctx, ManualRequest{Type: ManualBank, TransactionID: f.bank[0].ID, Code: "  "})
	assert.ErrorIs(t, err, ErrCodeRequired)

	_, err = f.svc.Manual(ctx, ManualRequest{Type: "invoice", TransactionID: f.bank[0].ID, Code: "ABC123"})
	assert.ErrorIs(t, err, ErrInvalidManualType)
}
