package matching

import (
	"context"
	"fmt"
	"testing"
	"time"

	"rental-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var rule = models.ReconciliationRule{Name: "airbnb", BankField: "金額", PlatformField: "收款"}

func day(d int) time.Time {
	return time.Date(2024, 6, d, 0, 0, 0, 0, time.UTC)
}

func bankRow(amount string, d int) models.BankTransaction {
	return models.BankTransaction{
		ID:              uuid.New(),
		TransactionDate: day(d),
		Amount:          decimal.RequireFromString(amount),
		Raw:             models.NewRawRecord([]string{"取引日", "金額"}, []string{day(d).Format("20060102"), amount}),
	}
}

func payout(amount string, d int, bookings ...*models.PlatformTransaction) Payout {
	date := day(d)
	return Payout{
		Row: &models.PlatformTransaction{
			ID:           uuid.New(),
			Type:         models.TypePayout,
			PayoutDate:   &date,
			PayoutAmount: decimal.RequireFromString(amount),
			Raw:          models.NewRawRecord([]string{"日期", "收款"}, []string{"", amount}),
		},
		Bookings: bookings,
	}
}

func booking(code string) *models.PlatformTransaction {
	return &models.PlatformTransaction{ID: uuid.New(), Type: models.TypeBooking, ConfirmationCode: &code}
}

func TestPreview_GreedyTieBreak(t *testing.T) {
	bank := []models.BankTransaction{bankRow("50000", 1), bankRow("30000", 2)}
	payouts := []Payout{payout("50000", 1), payout("50000", 3)}

	got, err := Preview(context.Background(), rule, bank, payouts)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, bank[0].ID, got[0].BankTransactionID)
	assert.Equal(t, payouts[0].Row.ID, got[0].PayoutID)
}

func TestPreview_ConsumesEachSideOnce(t *testing.T) {
	var bank []models.BankTransaction
	var payouts []Payout
	for i := 0; i < 12; i++ {
		amount := fmt.Sprint(1000 * (i%3 + 1))
		bank = append(bank, bankRow(amount, i%9+1))
		payouts = append(payouts, payout(amount, i%9+1))
	}

	got, err := Preview(context.Background(), rule, bank, payouts)
	require.NoError(t, err)
	assert.Len(t, got, 12)

	seenBank := map[uuid.UUID]bool{}
	seenPayout := map[uuid.UUID]bool{}
	for _, m := range got {
		assert.False(t, seenBank[m.BankTransactionID])
		assert.False(t, seenPayout[m.PayoutID])
		seenBank[m.BankTransactionID] = true
		seenPayout[m.PayoutID] = true
		assert.True(t, m.BankAmount.Equal(m.PayoutAmount))
	}
}

func TestPreview_IgnoresNonPositiveBankRowsAndDates(t *testing.T) {
	bank := []models.BankTransaction{bankRow("-50000", 1), bankRow("0", 1), bankRow("50000", 28)}
	payouts := []Payout{payout("50000", 1)}

	got, err := Preview(context.Background(), rule, bank, payouts)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, bank[2].ID, got[0].BankTransactionID)
}

func TestPreview_ReadsRuleColumnsFromRaw(t *testing.T) {
	b := bankRow("1", 1)
	b.Raw = models.NewRawRecord([]string{"お預入金額"}, []string{"¥12,345"})
	p := payout("0", 1)
	p.Row.Raw = models.NewRawRecord([]string{"收款"}, []string{"12,345"})

	r := models.ReconciliationRule{BankField: "お預入金額", PlatformField: "收款"}
	got, err := Preview(context.Background(), r, []models.BankTransaction{b}, []Payout{p})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, decimal.NewFromInt(12345).Equal(got[0].BankAmount))
}

func TestPreview_ToleranceIsBelowOneCent(t *testing.T) {
	bank := []models.BankTransaction{bankRow("100.00", 1), bankRow("200.00", 1)}
	payouts := []Payout{payout("100.009", 1), payout("200.01", 1)}

	got, err := Preview(context.Background(), rule, bank, payouts)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, payouts[0].Row.ID, got[0].PayoutID)
}

func TestPreview_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Preview(ctx, rule, []models.BankTransaction{bankRow("1", 1)}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPayoutCodes(t *testing.T) {
	p := payout("50000", 1, booking("ABC123"), booking("DEF456"), booking("ABC123"))
	p.Row.Raw.Set(ConfirmationCodeField, " HM0001 ")

	assert.Equal(t, []string{"HM0001", "ABC123", "DEF456"}, p.Codes())
	assert.Len(t, p.BookingIDs(), 3)

	empty := payout("1", 1)
	assert.Equal(t, []string{}, empty.Codes())
}

func TestAuto_AmountAndWindow(t *testing.T) {
	bank := []models.BankTransaction{
		bankRow("50000.40", 12), // seven days after the Payout
		bankRow("50000.40", 6),
		bankRow("30000", 10),
	}
	payouts := []Payout{payout("50000", 5), payout("30000", 5)}

	got, err := Auto(context.Background(), bank, payouts, 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, bank[1].ID, got[0].BankTransactionID)
	assert.Equal(t, bank[2].ID, got[1].BankTransactionID)
}

func TestAuto_BankRowUsedOnce(t *testing.T) {
	bank := []models.BankTransaction{bankRow("1000", 3)}
	payouts := []Payout{payout("1000", 2), payout("1000", 4)}

	got, err := Auto(context.Background(), bank, payouts, 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, payouts[0].Row.ID, got[0].PayoutID)
}

func TestAuto_PayoutIsNotConsumed(t *testing.T) {
	bank := []models.BankTransaction{bankRow("100", 6), bankRow("100", 5)}
	payouts := []Payout{payout("100", 1), payout("100", 10)}

	got, err := Auto(context.Background(), bank, payouts, 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, bank[0].ID, got[0].BankTransactionID)
	assert.Equal(t, bank[1].ID, got[1].BankTransactionID)
	for _, m := range got {
		assert.Equal(t, payouts[0].Row.ID, m.PayoutID)
	}
}

func TestAuto_UsesTransactionDateWithoutPayoutDate(t *testing.T) {
	p := payout("1000", 1)
	p.Row.PayoutDate = nil
	p.Row.TransactionDate = day(20)

	got, err := Auto(context.Background(), []models.BankTransaction{bankRow("1000", 1)}, []Payout{p}, 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDayDiff(t *testing.T) {
	a := time.Date(2024, 6, 1, 23, 0, 0, 0, time.UTC)
	b := time.Date(2024, 6, 6, 1, 0, 0, 0, time.UTC)
	assert.Equal(t, 5, DayDiff(a, b))
	assert.Equal(t, 5, DayDiff(b, a))
	assert.Equal(t, 0, DayDiff(a, a))
}
