// Package matching pairs bank deposits with platform Payouts. It only computes
// proposals; applying them is the reconciliation service's job.
package matching

import (
	"context"
	"strings"
	"time"

	"rental-reconciliation-backend/internal/models"
	"rental-reconciliation-backend/internal/services/coerce"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ConfirmationCodeField is the raw platform column holding a reservation code.
const ConfirmationCodeField = "確認碼"

// DefaultDateWindowDays bounds the Payout/bank date distance in auto mode.
const DefaultDateWindowDays = 5

var tolerance = decimal.New(1, -2)

// Payout is a candidate Payout together with its positional bookings.
type Payout struct {
	Row      *models.PlatformTransaction
	Bookings []*models.PlatformTransaction
}

// Codes returns the Payout's own code followed by its bookings' codes, in row
// order, without duplicates.
func (p Payout) Codes() []string {
	seen := map[string]bool{}
	codes := []string{}
	add := func(c string) {
		if c == "" || seen[c] {
			return
		}
		seen[c] = true
		codes = append(codes, c)
	}

	if v, ok := p.Row.Raw.Get(ConfirmationCodeField); ok {
		add(strings.TrimSpace(v))
	}
	add(p.Row.Code())
	for _, b := range p.Bookings {
		add(b.Code())
	}
	return codes
}

func (p Payout) BookingIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(p.Bookings))
	for _, b := range p.Bookings {
		ids = append(ids, b.ID)
	}
	return ids
}

func (p Payout) date() time.Time {
	if p.Row.PayoutDate != nil {
		return *p.Row.PayoutDate
	}
	return p.Row.TransactionDate
}

// BankAmount reads a rule's bank column from the raw row, falling back to the
// normalized amount when the export has no such column.
func BankAmount(tx *models.BankTransaction, field string) decimal.Decimal {
	if v, ok := tx.Raw.Lookup(field); ok && field != "" {
		return coerce.ParseAmount(v)
	}
	return tx.Amount
}

// PayoutAmount is BankAmount for the platform side.
func PayoutAmount(p *models.PlatformTransaction, field string) decimal.Decimal {
	if v, ok := p.Raw.Lookup(field); ok && field != "" {
		return coerce.ParseAmount(v)
	}
	return p.PayoutAmount
}

// Preview runs rule-based matching. Bank rows are visited in order; each takes
// the first not yet used Payout whose rule amount is within 0.01 of its own.
// No date window applies. Ties go to the earlier Payout, so equal amounts are
// assigned greedily rather than optimally. ctx is checked once per bank row.
func Preview(ctx context.Context, rule models.ReconciliationRule, bank []models.BankTransaction, payouts []Payout) ([]models.ProposedMatch, error) {
	used := make([]bool, len(payouts))
	amounts := make([]decimal.Decimal, len(payouts))
	for i, p := range payouts {
		amounts[i] = PayoutAmount(p.Row, rule.PlatformField)
	}

	matches := []models.ProposedMatch{}
	for bi := range bank {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b := &bank[bi]
		amount := BankAmount(b, rule.BankField)
		if !amount.IsPositive() {
			continue
		}

		for pi, p := range payouts {
			if used[pi] {
				continue
			}
			if amount.Sub(amounts[pi]).Abs().LessThan(tolerance) {
				used[pi] = true
				matches = append(matches, proposal(b, p, amount, amounts[pi]))
				break
			}
		}
	}
	return matches, nil
}

// Auto runs the legacy amount and date match: amounts rounded to whole units
// must be equal and the Payout date within windowDays of the bank date. Bank
// rows are consumed; Payouts are not, so one Payout claims every unused bank
// row that qualifies and a later Payout may find none left. Extra pairings on
// the same Payout are skipped when applied.
func Auto(ctx context.Context, bank []models.BankTransaction, payouts []Payout, windowDays int) ([]models.ProposedMatch, error) {
	if windowDays < 0 {
		windowDays = DefaultDateWindowDays
	}
	used := make([]bool, len(bank))

	matches := []models.ProposedMatch{}
	for _, p := range payouts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		payoutAmount := p.Row.PayoutAmount.Round(0)
		if !payoutAmount.IsPositive() {
			continue
		}

		for bi := range bank {
			b := &bank[bi]
			if used[bi] || !b.Amount.IsPositive() {
				continue
			}
			if !b.Amount.Round(0).Equal(payoutAmount) {
				continue
			}
			if DayDiff(b.TransactionDate, p.date()) > windowDays {
				continue
			}
			used[bi] = true
			matches = append(matches, proposal(b, p, b.Amount, p.Row.PayoutAmount))
		}
	}
	return matches, nil
}

// DayDiff is the absolute number of calendar days between two dates.
func DayDiff(a, b time.Time) int {
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	days := int(da.Sub(db).Hours() / 24)
	if days < 0 {
		return -days
	}
	return days
}

func proposal(b *models.BankTransaction, p Payout, bankAmount, payoutAmount decimal.Decimal) models.ProposedMatch {
	return models.ProposedMatch{
		BankTransactionID: b.ID,
		PayoutID:          p.Row.ID,
		BookingIDs:        p.BookingIDs(),
		ConfirmationCodes: p.Codes(),
		BankAmount:        bankAmount,
		PayoutAmount:      payoutAmount,
	}
}
