package repository

import (
	"rental-reconciliation-backend/internal/models"

	"github.com/shopspring/decimal"
)

// StatRow is one status bucket of a batch.
type StatRow struct {
	Status models.ReconciliationStatus
	Count  int64
	Sum    decimal.Decimal
}
