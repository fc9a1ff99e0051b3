// Package association rebuilds the Payout -> booking relationship of a
// platform batch from row order.
package association

import (
	"sort"

	"rental-reconciliation-backend/internal/models"

	"github.com/google/uuid"
)

// Associations is the positional grouping of one platform batch.
type Associations struct {
	bookingToPayout  map[uuid.UUID]uuid.UUID
	payoutToBookings map[uuid.UUID][]uuid.UUID
	payouts          []uuid.UUID
}

// Resolve groups every non-Payout row under the nearest preceding Payout of
// the batch. Rows before the first Payout have no owner. The input is not
// modified and need not be sorted.
func Resolve(rows []models.PlatformTransaction) *Associations {
	sorted := make([]*models.PlatformTransaction, len(rows))
	for i := range rows {
		sorted[i] = &rows[i]
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].RowIndex < sorted[j].RowIndex
	})

	a := &Associations{
		bookingToPayout:  make(map[uuid.UUID]uuid.UUID),
		payoutToBookings: make(map[uuid.UUID][]uuid.UUID),
	}

	var current uuid.UUID
	for _, row := range sorted {
		if row.IsPayout() {
			current = row.ID
			a.payouts = append(a.payouts, row.ID)
			a.payoutToBookings[row.ID] = []uuid.UUID{}
			continue
		}
		if current == uuid.Nil {
			continue
		}
		a.bookingToPayout[row.ID] = current
		a.payoutToBookings[current] = append(a.payoutToBookings[current], row.ID)
	}
	return a
}

// OwnerOf returns the Payout owning a non-Payout row.
func (a *Associations) OwnerOf(bookingID uuid.UUID) (uuid.UUID, bool) {
	id, ok := a.bookingToPayout[bookingID]
	return id, ok
}

// BookingsOf returns the rows between a Payout and the next one, in row order.
func (a *Associations) BookingsOf(payoutID uuid.UUID) []uuid.UUID {
	return a.payoutToBookings[payoutID]
}

// Payouts lists the batch's Payout ids in row order.
func (a *Associations) Payouts() []uuid.UUID {
	return a.payouts
}

// PayoutToBookings exposes the full grouping, keyed by Payout id.
func (a *Associations) PayoutToBookings() map[uuid.UUID][]uuid.UUID {
	return a.payoutToBookings
}
