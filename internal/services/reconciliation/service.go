// Package reconciliation applies matches between bank transactions and
// platform Payouts and keeps the audit trail.
package reconciliation

import (
	"context"
	"errors"
	"fmt"

	"rental-reconciliation-backend/internal/models"
	"rental-reconciliation-backend/internal/repository"
	"rental-reconciliation-backend/internal/services/association"
	"rental-reconciliation-backend/internal/services/matching"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

var (
	ErrNothingToConfirm      = errors.New("no matches to confirm")
	ErrNotPayout             = errors.New("platform transaction is not a payout")
	ErrNoOwningPayout        = errors.New("booking has no owning payout in its batch")
	ErrNoBankTransaction     = errors.New("no bank transaction with that transaction code")
	ErrNoPlatformTransaction = errors.New("no platform transaction with that confirmation code")
	ErrInvalidManualType     = errors.New("manual type must be bank or platform")
	ErrCodeRequired          = errors.New("code is required")
	ErrNotPlatformBatch      = errors.New("not a platform batch")
)

// errAlreadyReconciled rolls back a pairing whose rows were claimed earlier.
var errAlreadyReconciled = errors.New("already reconciled")

type ReconciliationService struct {
	db         *gorm.DB
	log        zerolog.Logger
	windowDays int
}

func NewReconciliationService(db *gorm.DB, log zerolog.Logger, windowDays int) *ReconciliationService {
	return &ReconciliationService{
		db:         db,
		log:        log.With().Str("component", "reconciliation").Logger(),
		windowDays: windowDays,
	}
}

type PreviewRequest struct {
	RuleID           uuid.UUID   `json:"rule_id"`
	BankBatchIDs     []uuid.UUID `json:"bank_batch_ids"`
	PlatformBatchIDs []uuid.UUID `json:"platform_batch_ids"`
}

type PreviewResult struct {
	LogID   uuid.UUID              `json:"log_id"`
	Matches []models.ProposedMatch `json:"matches"`
}

// Preview computes rule-based matches over the unreconciled rows of the given
// batches and stores them as a pending log. Nothing is reconciled. Empty batch
// lists mean every batch of that side.
func (s *ReconciliationService) Preview(ctx context.Context, req PreviewRequest) (*PreviewResult, error) {
	db := s.db.WithContext(ctx)

	rule, err := repository.NewRuleRepository(db).GetByID(req.RuleID)
	if err != nil {
		return nil, fmt.Errorf("load rule %s: %w", req.RuleID, err)
	}

	bank, err := repository.NewBankTransactionRepository(db).ListByBatches(req.BankBatchIDs, models.StatusUnreconciled)
	if err != nil {
		return nil, fmt.Errorf("load bank transactions: %w", err)
	}
	payouts, err := s.payoutCandidates(db, req.PlatformBatchIDs)
	if err != nil {
		return nil, err
	}

	matches, err := matching.Preview(ctx, *rule, bank, payouts)
	if err != nil {
		return nil, err
	}

	entry := &models.ReconciliationLog{
		RuleID:           &rule.ID,
		BankBatchIDs:     idStrings(req.BankBatchIDs),
		PlatformBatchIDs: idStrings(req.PlatformBatchIDs),
		Matches:          matches,
		Status:           models.LogPending,
	}
	if err := repository.NewLogRepository(db).Create(entry); err != nil {
		return nil, fmt.Errorf("save preview log: %w", err)
	}

	s.log.Info().
		Str("log_id", entry.ID.String()).
		Str("rule", rule.Name).
		Int("bank_rows", len(bank)).
		Int("payouts", len(payouts)).
		Int("matches", len(matches)).
		Msg("preview computed")
	return &PreviewResult{LogID: entry.ID, Matches: matches}, nil
}

type ConfirmRequest struct {
	LogID   *uuid.UUID             `json:"log_id"`
	Matches []models.ProposedMatch `json:"matches"`
}

// ConfirmResult tallies a confirm call. A pairing whose bank row or Payout was
// already reconciled is skipped and leaves no audit row.
type ConfirmResult struct {
	Confirmed    int        `json:"confirmed"`
	Skipped      int        `json:"skipped"`
	Errors       int        `json:"errors"`
	FirstErrorID *uuid.UUID `json:"first_error_id,omitempty"`
	FirstError   string     `json:"first_error,omitempty"`
}

func (r *ConfirmResult) fail(id uuid.UUID, err error) {
	r.Errors++
	if r.FirstErrorID == nil {
		r.FirstErrorID = &id
		r.FirstError = err.Error()
	}
}

// Confirm applies proposals by log id or as given. Each pairing is applied in
// its own transaction; a failing pairing is counted and the rest continue.
func (s *ReconciliationService) Confirm(ctx context.Context, req ConfirmRequest) (*ConfirmResult, error) {
	db := s.db.WithContext(ctx)
	logs := repository.NewLogRepository(db)

	matches := req.Matches
	var ruleID *uuid.UUID
	if req.LogID != nil {
		entry, err := logs.GetByID(*req.LogID)
		if err != nil {
			return nil, fmt.Errorf("load preview log %s: %w", *req.LogID, err)
		}
		matches = entry.Matches
		ruleID = entry.RuleID
	}
	if len(matches) == 0 {
		return nil, ErrNothingToConfirm
	}

	res, err := s.applyAll(ctx, matches, pairingMeta{ruleID: ruleID, logID: req.LogID, source: models.MatchSourceRule})

	if req.LogID != nil {
		if lerr := logs.MarkConfirmed(*req.LogID, res.Confirmed, res.Skipped, res.Errors); lerr != nil {
			s.log.Error().Err(lerr).Str("log_id", req.LogID.String()).Msg("update preview log")
		}
	}
	return res, err
}

type AutoRequest struct {
	BankBatchIDs     []uuid.UUID `json:"bank_batch_ids"`
	PlatformBatchIDs []uuid.UUID `json:"platform_batch_ids"`
	// WindowDays overrides the configured date window when set.
	WindowDays *int `json:"window_days"`
}

type AutoResult struct {
	Matches []models.ProposedMatch `json:"matches"`
	ConfirmResult
}

// Auto runs the amount and date match and applies the result directly.
func (s *ReconciliationService) Auto(ctx context.Context, req AutoRequest) (*AutoResult, error) {
	db := s.db.WithContext(ctx)

	window := s.windowDays
	if req.WindowDays != nil {
		window = *req.WindowDays
	}

	bank, err := repository.NewBankTransactionRepository(db).ListByBatches(req.BankBatchIDs, models.StatusUnreconciled)
	if err != nil {
		return nil, fmt.Errorf("load bank transactions: %w", err)
	}
	payouts, err := s.payoutCandidates(db, req.PlatformBatchIDs)
	if err != nil {
		return nil, err
	}

	matches, err := matching.Auto(ctx, bank, payouts, window)
	if err != nil {
		return nil, err
	}

	out := &AutoResult{Matches: matches}
	if len(matches) == 0 {
		return out, nil
	}
	res, err := s.applyAll(ctx, matches, pairingMeta{source: models.MatchSourceAuto})
	out.ConfirmResult = *res
	return out, err
}

type pairingMeta struct {
	ruleID *uuid.UUID
	logID  *uuid.UUID
	source models.MatchSource
}

// applyAll stops between pairings when ctx is cancelled and returns the tally
// so far with the context error.
func (s *ReconciliationService) applyAll(ctx context.Context, matches []models.ProposedMatch, meta pairingMeta) (*ConfirmResult, error) {
	res := &ConfirmResult{}
	for _, m := range matches {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		err := s.applyPairing(ctx, m, meta)
		switch {
		case err == nil:
			res.Confirmed++
		case errors.Is(err, errAlreadyReconciled):
			res.Skipped++
		default:
			res.fail(m.BankTransactionID, err)
			s.log.Warn().Err(err).
				Str("bank_transaction_id", m.BankTransactionID.String()).
				Str("payout_id", m.PayoutID.String()).
				Msg("pairing failed")
		}
	}

	s.log.Info().
		Str("source", string(meta.source)).
		Int("confirmed", res.Confirmed).
		Int("skipped", res.Skipped).
		Int("errors", res.Errors).
		Msg("matches applied")
	return res, nil
}

// applyPairing reconciles the bank row and the Payout together, then the
// Payout's bookings, then appends the audit row. Both sides are claimed only
// if still unreconciled. Booking ids the Payout does not own are ignored.
func (s *ReconciliationService) applyPairing(ctx context.Context, m models.ProposedMatch, meta pairingMeta) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bankRepo := repository.NewBankTransactionRepository(tx)
		platformRepo := repository.NewPlatformTransactionRepository(tx)

		bank, err := bankRepo.GetByID(m.BankTransactionID)
		if err != nil {
			return fmt.Errorf("bank transaction %s: %w", m.BankTransactionID, err)
		}
		payout, err := platformRepo.GetByID(m.PayoutID)
		if err != nil {
			return fmt.Errorf("payout %s: %w", m.PayoutID, err)
		}
		if !payout.IsPayout() {
			return fmt.Errorf("%s: %w", payout.ID, ErrNotPayout)
		}
		bookings, err := ownedBookings(platformRepo, payout, m.BookingIDs)
		if err != nil {
			return err
		}
		if dropped := len(m.BookingIDs) - len(bookings); dropped > 0 {
			s.log.Warn().
				Str("payout_id", payout.ID.String()).
				Int("dropped", dropped).
				Msg("ignoring bookings not owned by payout")
		}

		codes := m.ConfirmationCodes
		if codes == nil {
			codes = []string{}
		}
		ok, err := bankRepo.MarkReconciled(bank.ID, codes)
		if err != nil {
			return err
		}
		if !ok {
			return errAlreadyReconciled
		}
		ok, err = platformRepo.MarkPayoutReconciled(payout.ID, bank.TransactionCode)
		if err != nil {
			return err
		}
		if !ok {
			return errAlreadyReconciled
		}
		if _, err := platformRepo.MarkReconciled(bookings); err != nil {
			return err
		}

		platformIDs := append([]uuid.UUID{payout.ID}, bookings...)
		return repository.NewMatchRepository(tx).Create(&models.ReconciliationMatch{
			RuleID:                 meta.ruleID,
			LogID:                  meta.logID,
			BankTransactionID:      bank.ID,
			PlatformTransactionIDs: idStrings(platformIDs),
			ConfirmationCodes:      codes,
			IsManual:               meta.source == models.MatchSourceManual,
			Source:                 meta.source,
		})
	})
}

// ownedBookings keeps the ids that the Payout owns in its own batch, in the
// given order.
func ownedBookings(repo *repository.PlatformTransactionRepository, payout *models.PlatformTransaction, ids []uuid.UUID) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := repo.ListByBatch(payout.BatchID)
	if err != nil {
		return nil, fmt.Errorf("load platform batch %s: %w", payout.BatchID, err)
	}
	owned := newIDSet(association.Resolve(rows).BookingsOf(payout.ID)...)
	kept := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if owned.seen[id] {
			kept = append(kept, id)
		}
	}
	return kept, nil
}

// payoutCandidates loads the unreconciled Payouts of the given platform
// batches, in batch then row order, each with its positional bookings.
func (s *ReconciliationService) payoutCandidates(db *gorm.DB, batchIDs []uuid.UUID) ([]matching.Payout, error) {
	if len(batchIDs) == 0 {
		batches, err := repository.NewBatchRepository(db).List(models.SourcePlatform)
		if err != nil {
			return nil, fmt.Errorf("list platform batches: %w", err)
		}
		for i := len(batches) - 1; i >= 0; i-- {
			batchIDs = append(batchIDs, batches[i].ID)
		}
	}

	repo := repository.NewPlatformTransactionRepository(db)
	var out []matching.Payout
	for _, id := range batchIDs {
		rows, err := repo.ListByBatch(id)
		if err != nil {
			return nil, fmt.Errorf("load platform batch %s: %w", id, err)
		}
		out = append(out, groupPayouts(rows, true)...)
	}
	return out, nil
}

// groupPayouts resolves one batch's rows into Payouts with their bookings.
func groupPayouts(rows []models.PlatformTransaction, unreconciledOnly bool) []matching.Payout {
	assoc := association.Resolve(rows)
	byID := indexRows(rows)
	var out []matching.Payout
	for _, pid := range assoc.Payouts() {
		g := payoutGroup(byID, assoc, pid)
		if unreconciledOnly && g.Row.ReconciliationStatus != models.StatusUnreconciled {
			continue
		}
		out = append(out, g)
	}
	return out
}

func indexRows(rows []models.PlatformTransaction) map[uuid.UUID]*models.PlatformTransaction {
	byID := make(map[uuid.UUID]*models.PlatformTransaction, len(rows))
	for i := range rows {
		byID[rows[i].ID] = &rows[i]
	}
	return byID
}

func payoutGroup(byID map[uuid.UUID]*models.PlatformTransaction, assoc *association.Associations, payoutID uuid.UUID) matching.Payout {
	bookingIDs := assoc.BookingsOf(payoutID)
	bookings := make([]*models.PlatformTransaction, 0, len(bookingIDs))
	for _, id := range bookingIDs {
		bookings = append(bookings, byID[id])
	}
	return matching.Payout{Row: byID[payoutID], Bookings: bookings}
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}
