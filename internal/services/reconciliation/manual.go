package reconciliation

import (
	"context"
	"fmt"
	"strings"

	"rental-reconciliation-backend/internal/models"
	"rental-reconciliation-backend/internal/repository"
	"rental-reconciliation-backend/internal/services/association"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ManualType string

const (
	// ManualBank annotates a bank row with a confirmation code.
	ManualBank ManualType = "bank"
	// ManualPlatform annotates a platform row with a bank transaction code.
	ManualPlatform ManualType = "platform"
)

type ManualRequest struct {
	Type          ManualType `json:"type"`
	TransactionID uuid.UUID  `json:"transaction_id"`
	Code          string     `json:"code"`
}

type ManualResult struct {
	Success            bool        `json:"success"`
	PayoutIDs          []uuid.UUID `json:"payout_ids"`
	BookingIDs         []uuid.UUID `json:"booking_ids"`
	BankTransactionIDs []uuid.UUID `json:"bank_transaction_ids"`
	ConfirmationCodes  []string    `json:"confirmation_codes"`
}

// Manual links one transaction by code, overriding earlier links. Codes are
// appended to a bank row's matched codes, never replaced.
func (s *ReconciliationService) Manual(ctx context.Context, req ManualRequest) (*ManualResult, error) {
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return nil, ErrCodeRequired
	}

	var (
		res *ManualResult
		err error
	)
	switch req.Type {
	case ManualBank:
		res, err = s.manualBank(ctx, req.TransactionID, code)
	case ManualPlatform:
		res, err = s.manualPlatform(ctx, req.TransactionID, code)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidManualType, req.Type)
	}
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("type", string(req.Type)).
		Str("transaction_id", req.TransactionID.String()).
		Str("code", code).
		Int("payouts", len(res.PayoutIDs)).
		Int("bank_rows", len(res.BankTransactionIDs)).
		Msg("manual match applied")
	return res, nil
}

// manualBank finds every platform row carrying the confirmation code, marks
// the bookings reconciled and links their owning Payouts to the bank row.
func (s *ReconciliationService) manualBank(ctx context.Context, bankID uuid.UUID, code string) (*ManualResult, error) {
	res := &ManualResult{Success: true, BankTransactionIDs: []uuid.UUID{bankID}, ConfirmationCodes: []string{code}}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bankRepo := repository.NewBankTransactionRepository(tx)
		platformRepo := repository.NewPlatformTransactionRepository(tx)

		bank, err := bankRepo.GetByID(bankID)
		if err != nil {
			return fmt.Errorf("bank transaction %s: %w", bankID, err)
		}
		rows, err := platformRepo.FindByConfirmationCode(code)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return fmt.Errorf("%q: %w", code, ErrNoPlatformTransaction)
		}

		resolved := map[uuid.UUID]*association.Associations{}
		payouts := newIDSet()
		touched := newIDSet()
		for _, row := range rows {
			touched.add(row.ID)
			if row.IsPayout() {
				payouts.add(row.ID)
				continue
			}
			res.BookingIDs = append(res.BookingIDs, row.ID)

			assoc, ok := resolved[row.BatchID]
			if !ok {
				batchRows, err := platformRepo.ListByBatch(row.BatchID)
				if err != nil {
					return err
				}
				assoc = association.Resolve(batchRows)
				resolved[row.BatchID] = assoc
			}
			if owner, ok := assoc.OwnerOf(row.ID); ok {
				payouts.add(owner)
			}
		}

		if _, err := platformRepo.MarkReconciled(res.BookingIDs); err != nil {
			return err
		}
		for _, pid := range payouts.ids {
			if err := platformRepo.SetPayoutMatch(pid, bank.TransactionCode); err != nil {
				return err
			}
		}
		if err := bankRepo.SetMatchedCodes(bank.ID, appendUnique(bank.MatchedConfirmationCodes, code)); err != nil {
			return err
		}
		res.PayoutIDs = payouts.ids

		platformIDs := append(append([]uuid.UUID{}, payouts.ids...), touched.ids...)
		return repository.NewMatchRepository(tx).Create(&models.ReconciliationMatch{
			BankTransactionID:      bank.ID,
			PlatformTransactionIDs: idStrings(newIDSet(platformIDs...).ids),
			ConfirmationCodes:      []string{code},
			IsManual:               true,
			Source:                 models.MatchSourceManual,
		})
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// manualPlatform links a Payout to the bank rows sharing a transaction code.
// A booking is redirected to its owning Payout. The Payout's bookings are
// reconciled and their codes appended to every such bank row.
func (s *ReconciliationService) manualPlatform(ctx context.Context, rowID uuid.UUID, bankCode string) (*ManualResult, error) {
	res := &ManualResult{Success: true}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bankRepo := repository.NewBankTransactionRepository(tx)
		platformRepo := repository.NewPlatformTransactionRepository(tx)
		matches := repository.NewMatchRepository(tx)

		row, err := platformRepo.GetByID(rowID)
		if err != nil {
			return fmt.Errorf("platform transaction %s: %w", rowID, err)
		}
		batchRows, err := platformRepo.ListByBatch(row.BatchID)
		if err != nil {
			return err
		}

		assoc := association.Resolve(batchRows)
		payoutID := row.ID
		if !row.IsPayout() {
			owner, ok := assoc.OwnerOf(row.ID)
			if !ok {
				return fmt.Errorf("%s: %w", row.ID, ErrNoOwningPayout)
			}
			payoutID = owner
		}
		group := payoutGroup(indexRows(batchRows), assoc, payoutID)

		banks, err := bankRepo.FindByTransactionCode(bankCode)
		if err != nil {
			return err
		}
		if len(banks) == 0 {
			return fmt.Errorf("%q: %w", bankCode, ErrNoBankTransaction)
		}

		if err := platformRepo.SetPayoutMatch(group.Row.ID, bankCode); err != nil {
			return err
		}
		bookingIDs := group.BookingIDs()
		if _, err := platformRepo.MarkReconciled(bookingIDs); err != nil {
			return err
		}

		codes := group.Codes()
		platformIDs := idStrings(append([]uuid.UUID{group.Row.ID}, bookingIDs...))
		for _, b := range banks {
			if err := bankRepo.SetMatchedCodes(b.ID, appendUnique(b.MatchedConfirmationCodes, codes...)); err != nil {
				return err
			}
			err := matches.Create(&models.ReconciliationMatch{
				BankTransactionID:      b.ID,
				PlatformTransactionIDs: platformIDs,
				ConfirmationCodes:      codes,
				IsManual:               true,
				Source:                 models.MatchSourceManual,
			})
			if err != nil {
				return err
			}
			res.BankTransactionIDs = append(res.BankTransactionIDs, b.ID)
		}

		res.PayoutIDs = []uuid.UUID{group.Row.ID}
		res.BookingIDs = bookingIDs
		res.ConfirmationCodes = codes
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// idSet keeps insertion order.
type idSet struct {
	ids  []uuid.UUID
	seen map[uuid.UUID]bool
}

func newIDSet(ids ...uuid.UUID) *idSet {
	s := &idSet{ids: []uuid.UUID{}, seen: map[uuid.UUID]bool{}}
	for _, id := range ids {
		s.add(id)
	}
	return s
}

func (s *idSet) add(id uuid.UUID) {
	if s.seen[id] {
		return
	}
	s.seen[id] = true
	s.ids = append(s.ids, id)
}

func appendUnique(existing []string, codes ...string) []string {
	out := append([]string{}, existing...)
	seen := make(map[string]bool, len(out))
	for _, c := range out {
		seen[c] = true
	}
	for _, c := range codes {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
