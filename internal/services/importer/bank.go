package importer

import (
	"strings"
	"time"

	"rental-reconciliation-backend/internal/models"
	"rental-reconciliation-backend/internal/services/coerce"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type bankTarget struct {
	bankID  uuid.UUID
	code    string
	batchID uuid.UUID
}

// buildBankRows never drops a row: an unparseable date becomes now and an
// unparseable amount becomes zero, both flagged and logged.
func (i *BatchImporter) buildBankRows(records []models.RawRecord, target bankTarget, firstIndex int) []models.BankTransaction {
	now := i.now().UTC()
	out := make([]models.BankTransaction, 0, len(records))

	for n, rec := range records {
		rowIndex := firstIndex + n
		rawDate, _ := rec.Lookup(bankDateCols...)
		date, ok := coerce.ParseDate(rawDate)
		fallback := false
		if !ok {
			date = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
			fallback = true
			i.log.Warn().
				Str("batch_id", target.batchID.String()).
				Int("row_index", rowIndex).
				Str("raw_date", rawDate).
				Msg("unparseable bank date, using today")
		}

		amount, rawAmount, found := bankAmount(rec)
		if !found || (amount.IsZero() && !isZeroLiteral(rawAmount)) {
			i.log.Warn().
				Str("batch_id", target.batchID.String()).
				Int("row_index", rowIndex).
				Str("raw_amount", rawAmount).
				Msg("unparseable bank amount, using 0")
		}

		rawBalance, _ := rec.Lookup(bankBalanceCols...)
		balance := coerce.ParseAmount(rawBalance)
		description, _ := rec.Lookup(bankDescriptionCols...)

		out = append(out, models.BankTransaction{
			BankID:          target.bankID,
			BatchID:         target.batchID,
			RowIndex:        rowIndex,
			TransactionDate: date,
			Amount:          amount,
			Balance:         balance,
			Description:     description,
			IsIncome:        amount.IsPositive(),
			TransactionCode: coerce.TransactionCode(target.code, date, amount),
			NaturalKey:      bankNaturalKey(date, amount, balance, description),
			DateFallback:    fallback,
			Raw:             rec,
		})
	}
	return out
}

// bankAmount prefers a signed amount column named exactly, then a
// deposit/withdrawal pair, then any header containing an amount alias.
func bankAmount(rec models.RawRecord) (decimal.Decimal, string, bool) {
	for _, a := range bankAmountCols {
		if v, ok := rec.Get(a); ok {
			v = strings.TrimSpace(v)
			return coerce.ParseAmount(v), v, true
		}
	}

	dep, hasDep := rec.Lookup(bankDepositCols...)
	wd, hasWd := rec.Lookup(bankWithdrawalCols...)
	if hasDep || hasWd {
		raw := dep
		if raw == "" {
			raw = wd
		}
		return coerce.ParseAmount(dep).Sub(coerce.ParseAmount(wd)), raw, true
	}

	v, ok := rec.Lookup(bankAmountCols...)
	return coerce.ParseAmount(v), v, ok
}

func isZeroLiteral(s string) bool {
	return s == "" || (coerce.ParseAmount(s).IsZero() && strings.ContainsAny(s, "0０"))
}

func bankNaturalKey(date time.Time, amount, balance decimal.Decimal, description string) string {
	return strings.Join([]string{
		date.Format("2006-01-02"),
		amount.StringFixed(2),
		balance.StringFixed(2),
		description,
	}, "|")
}
