package importer

import (
	"strconv"
	"strings"
	"time"

	"rental-reconciliation-backend/internal/models"
	"rental-reconciliation-backend/internal/services/coerce"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type platformTarget struct {
	platformID uuid.UUID
	propertyID *uuid.UUID
	batchID    uuid.UUID
	// property resolves a per-row listing name; nil keeps propertyID.
	property func(name string) (*uuid.UUID, error)
}

// buildPlatformRows drops rows without a parseable transaction date. The
// returned count is the number of dropped rows.
func (i *BatchImporter) buildPlatformRows(records []models.RawRecord, target platformTarget, firstIndex int) ([]models.PlatformTransaction, int, error) {
	out := make([]models.PlatformTransaction, 0, len(records))
	dropped := 0

	for n, rec := range records {
		rowIndex := firstIndex + n
		rawDate, _ := rec.Lookup(platformDateCols...)
		date, ok := coerce.ParseDate(rawDate)
		if !ok {
			dropped++
			i.log.Debug().
				Str("batch_id", target.batchID.String()).
				Int("row_index", rowIndex).
				Str("raw_date", rawDate).
				Msg("dropping platform row without date")
			continue
		}

		code, _ := rec.Lookup(platformCodeCols...)
		label, _ := rec.Lookup(platformTypeCols...)
		amount := lookupAmount(rec, platformAmountCols)
		payout := lookupAmount(rec, platformPayoutCols)
		typ := classify(label, code, !payout.IsZero())
		if typ == models.TypePayout && payout.IsZero() {
			payout = amount
		}

		var payoutDate *time.Time
		if raw, ok := rec.Lookup(platformPayoutDateCols...); ok {
			if d, ok := coerce.ParseDate(raw); ok {
				payoutDate = &d
			}
		}
		if payoutDate == nil && typ == models.TypePayout {
			d := date
			payoutDate = &d
		}

		propertyID := target.propertyID
		if name, ok := rec.Lookup(platformPropertyCols...); ok && name != "" && target.property != nil {
			id, err := target.property(name)
			if err != nil {
				return nil, dropped, err
			}
			propertyID = id
		}

		var codePtr *string
		if code != "" {
			c := code
			codePtr = &c
		}

		out = append(out, models.PlatformTransaction{
			PlatformID:       target.platformID,
			PropertyID:       propertyID,
			BatchID:          target.batchID,
			RowIndex:         rowIndex,
			TransactionDate:  date,
			Type:             typ,
			TypeLabel:        label,
			ConfirmationCode: codePtr,
			PayoutDate:       payoutDate,
			Amount:           amount,
			PayoutAmount:     payout,
			TotalRevenue:     lookupAmount(rec, platformRevenueCols),
			ServiceFee:       lookupAmount(rec, platformServiceFeeCols),
			CleaningFee:      lookupAmount(rec, platformCleaningCols),
			AccommodationTax: lookupAmount(rec, platformTaxCols),
			Nights:           lookupInt(rec, platformNightsCols),
			NaturalKey:       platformNaturalKey(date, typ, code, amount, payout),
			Raw:              rec,
		})
	}
	return out, dropped, nil
}

func lookupAmount(rec models.RawRecord, aliases []string) decimal.Decimal {
	v, _ := rec.Lookup(aliases...)
	return coerce.ParseAmount(v)
}

func lookupInt(rec models.RawRecord, aliases []string) int {
	v, _ := rec.Lookup(aliases...)
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0
	}
	return n
}

func platformNaturalKey(date time.Time, typ models.PlatformTransactionType, code string, amount, payout decimal.Decimal) string {
	return strings.Join([]string{
		date.Format("2006-01-02"),
		string(typ),
		code,
		amount.StringFixed(2),
		payout.StringFixed(2),
	}, "|")
}
