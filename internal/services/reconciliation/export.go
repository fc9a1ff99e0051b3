package reconciliation

import (
	"context"
	"fmt"
	"io"

	"rental-reconciliation-backend/internal/export"
	"rental-reconciliation-backend/internal/repository"

	"github.com/google/uuid"
)

// ExportLog writes a preview log as an XLSX workbook. Rows whose transactions
// were deleted since the preview are left out.
func (s *ReconciliationService) ExportLog(ctx context.Context, logID uuid.UUID, w io.Writer) error {
	db := s.db.WithContext(ctx)
	entry, err := repository.NewLogRepository(db).GetByID(logID)
	if err != nil {
		return err
	}

	bankRepo := repository.NewBankTransactionRepository(db)
	platformRepo := repository.NewPlatformTransactionRepository(db)

	rows := make([]export.MatchRow, 0, len(entry.Matches))
	for _, m := range entry.Matches {
		bank, err := bankRepo.GetByID(m.BankTransactionID)
		if err != nil {
			s.log.Debug().Err(err).Str("bank_transaction_id", m.BankTransactionID.String()).Msg("skipping export row")
			continue
		}
		payout, err := platformRepo.GetByID(m.PayoutID)
		if err != nil {
			s.log.Debug().Err(err).Str("payout_id", m.PayoutID.String()).Msg("skipping export row")
			continue
		}
		rows = append(rows, export.MatchRow{
			BankTransactionID: bank.ID,
			TransactionCode:   bank.TransactionCode,
			BankDate:          bank.TransactionDate,
			BankAmount:        m.BankAmount,
			PayoutID:          payout.ID,
			PayoutDate:        payout.PayoutDate,
			PayoutAmount:      m.PayoutAmount,
			Codes:             m.ConfirmationCodes,
			Status:            string(bank.ReconciliationStatus),
		})
	}

	if err := export.WriteMatches(w, rows); err != nil {
		return fmt.Errorf("export log %s: %w", logID, err)
	}
	return nil
}
