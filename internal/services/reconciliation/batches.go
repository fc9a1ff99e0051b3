package reconciliation

import (
	"context"
	"fmt"

	"rental-reconciliation-backend/internal/models"
	"rental-reconciliation-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func (s *ReconciliationService) ListBatches(ctx context.Context, source models.SourceType) ([]models.ImportBatch, error) {
	return repository.NewBatchRepository(s.db.WithContext(ctx)).List(source)
}

func (s *ReconciliationService) GetBatch(ctx context.Context, id uuid.UUID) (*models.ImportBatch, error) {
	return repository.NewBatchRepository(s.db.WithContext(ctx)).GetByID(id)
}

// DeleteBatch removes a batch with its transactions. Audit rows stay.
func (s *ReconciliationService) DeleteBatch(ctx context.Context, id uuid.UUID) error {
	if err := repository.NewBatchRepository(s.db.WithContext(ctx)).Delete(id); err != nil {
		return err
	}
	s.log.Info().Str("batch_id", id.String()).Msg("batch deleted")
	return nil
}

type TransactionPage struct {
	Items      interface{} `json:"items"`
	NextCursor *int        `json:"next_cursor"`
	HasMore    bool        `json:"has_more"`
	Stats      BatchStats  `json:"stats"`
}

// ListTransactions pages a batch by row index. cursor is the last row index of
// the previous page, -1 for the first.
func (s *ReconciliationService) ListTransactions(ctx context.Context, batchID uuid.UUID, status models.ReconciliationStatus, cursor, limit int) (*TransactionPage, error) {
	db := s.db.WithContext(ctx)
	batch, err := repository.NewBatchRepository(db).GetByID(batchID)
	if err != nil {
		return nil, err
	}

	page := &TransactionPage{}
	lastIndex := -1
	switch batch.SourceType {
	case models.SourceBank:
		items, more, err := repository.NewBankTransactionRepository(db).ListPage(batchID, status, cursor, limit)
		if err != nil {
			return nil, err
		}
		page.Items, page.HasMore = items, more
		if len(items) > 0 {
			lastIndex = items[len(items)-1].RowIndex
		}
	default:
		items, more, err := repository.NewPlatformTransactionRepository(db).ListPage(batchID, status, cursor, limit)
		if err != nil {
			return nil, err
		}
		page.Items, page.HasMore = items, more
		if len(items) > 0 {
			lastIndex = items[len(items)-1].RowIndex
		}
	}
	if page.HasMore {
		page.NextCursor = &lastIndex
	}

	stats, err := s.BatchStats(ctx, batch)
	if err != nil {
		return nil, err
	}
	page.Stats = stats
	return page, nil
}

// BatchStats sums a batch per status: bank amounts, or Payout amounts for a
// platform batch.
type BatchStats struct {
	Total             int64           `json:"total"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	ReconciledCount   int64           `json:"reconciled_count"`
	ReconciledSum     decimal.Decimal `json:"reconciled_sum"`
	UnreconciledCount int64           `json:"unreconciled_count"`
	UnreconciledSum   decimal.Decimal `json:"unreconciled_sum"`
}

func (s *ReconciliationService) BatchStats(ctx context.Context, batch *models.ImportBatch) (BatchStats, error) {
	var (
		stats BatchStats
		rows  []repository.StatRow
		err   error
	)
	db := s.db.WithContext(ctx)
	if batch.SourceType == models.SourceBank {
		rows, err = repository.NewBankTransactionRepository(db).Stats(batch.ID)
	} else {
		rows, err = repository.NewPlatformTransactionRepository(db).Stats(batch.ID)
	}
	if err != nil {
		return stats, fmt.Errorf("batch stats: %w", err)
	}

	for _, r := range rows {
		stats.Total += r.Count
		stats.TotalAmount = stats.TotalAmount.Add(r.Sum)
		switch r.Status {
		case models.StatusReconciled:
			stats.ReconciledCount = r.Count
			stats.ReconciledSum = r.Sum
		case models.StatusUnreconciled:
			stats.UnreconciledCount = r.Count
			stats.UnreconciledSum = r.Sum
		}
	}
	return stats, nil
}

// PayoutGroup is one Payout of a platform batch and the rows it owns.
type PayoutGroup struct {
	PayoutID   uuid.UUID   `json:"payout_id"`
	RowIndex   int         `json:"row_index"`
	Status     string      `json:"status"`
	BookingIDs []uuid.UUID `json:"booking_ids"`
	Codes      []string    `json:"confirmation_codes"`
}

// Associations lists the positional Payout grouping of a platform batch.
func (s *ReconciliationService) Associations(ctx context.Context, batchID uuid.UUID) ([]PayoutGroup, error) {
	db := s.db.WithContext(ctx)
	batch, err := repository.NewBatchRepository(db).GetByID(batchID)
	if err != nil {
		return nil, err
	}
	if batch.SourceType != models.SourcePlatform {
		return nil, fmt.Errorf("batch %s: %w", batchID, ErrNotPlatformBatch)
	}

	rows, err := repository.NewPlatformTransactionRepository(db).ListByBatch(batchID)
	if err != nil {
		return nil, err
	}

	out := []PayoutGroup{}
	for _, g := range groupPayouts(rows, false) {
		out = append(out, PayoutGroup{
			PayoutID:   g.Row.ID,
			RowIndex:   g.Row.RowIndex,
			Status:     string(g.Row.ReconciliationStatus),
			BookingIDs: g.BookingIDs(),
			Codes:      g.Codes(),
		})
	}
	return out, nil
}

func (s *ReconciliationService) ListMatches(ctx context.Context, bankTransactionID *uuid.UUID, limit int) ([]models.ReconciliationMatch, error) {
	return repository.NewMatchRepository(s.db.WithContext(ctx)).List(bankTransactionID, limit)
}

func (s *ReconciliationService) GetLog(ctx context.Context, id uuid.UUID) (*models.ReconciliationLog, error) {
	return repository.NewLogRepository(s.db.WithContext(ctx)).GetByID(id)
}

func (s *ReconciliationService) ListLogs(ctx context.Context, limit int) ([]models.ReconciliationLog, error) {
	return repository.NewLogRepository(s.db.WithContext(ctx)).List(limit)
}

// BatchCodes lists the distinct confirmation codes of a platform batch.
func (s *ReconciliationService) BatchCodes(ctx context.Context, batchID uuid.UUID) ([]string, error) {
	return repository.NewPlatformTransactionRepository(s.db.WithContext(ctx)).ConfirmationCodes(batchID)
}
