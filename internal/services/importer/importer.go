// Package importer turns normalized CSV exports into persisted bank and
// platform transactions, one import batch per file.
package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"rental-reconciliation-backend/internal/models"
	"rental-reconciliation-backend/internal/repository"
	"rental-reconciliation-backend/internal/services/normalize"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type Mode string

const (
	// ModeNew creates a batch.
	ModeNew Mode = "new"
	// ModeMerge appends to an existing batch, skipping rows whose natural key
	// is already present. New rows are indexed after the batch's last row.
	ModeMerge Mode = "merge"
	// ModeReplace deletes the batch's transactions and re-inserts from index 0.
	ModeReplace Mode = "replace"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeNew, nil
	case ModeNew, ModeMerge, ModeReplace:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

type BankMeta struct {
	BankName string
	BankCode string
}

type PlatformMeta struct {
	PlatformName string
	Account      string
	PropertyName string
}

type Request struct {
	Source   models.SourceType
	FileName string
	Data     []byte
	Mode     Mode
	// BatchID names the target batch for merge and replace.
	BatchID   uuid.UUID
	Delimiter rune
	Bank      BankMeta
	Platform  PlatformMeta
}

type Result struct {
	BatchID uuid.UUID `json:"batch_id"`
	Count   int       `json:"count"`
	// Skipped counts merge rows whose natural key already existed.
	Skipped int `json:"skipped"`
	// Dropped counts platform rows without a parseable date.
	Dropped int `json:"dropped"`
	// Fallbacks counts bank rows whose date defaulted to the import day.
	Fallbacks int `json:"fallbacks"`
}

type BatchImporter struct {
	db  *gorm.DB
	log zerolog.Logger
	now func() time.Time
}

func NewBatchImporter(db *gorm.DB, log zerolog.Logger) *BatchImporter {
	return &BatchImporter{
		db:  db,
		log: log.With().Str("component", "importer").Logger(),
		now: time.Now,
	}
}

// Import parses req.Data and stores its rows. A file with no header or no
// usable rows yields a *ParseError. A failure after a new batch was created
// deletes that batch before the error is returned.
func (i *BatchImporter) Import(ctx context.Context, req Request) (*Result, error) {
	if req.Mode == "" {
		req.Mode = ModeNew
	}
	if _, err := ParseMode(string(req.Mode)); err != nil {
		return nil, err
	}
	if req.Source != models.SourceBank && req.Source != models.SourcePlatform {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSource, req.Source)
	}
	if req.Mode != ModeNew && req.BatchID == uuid.Nil {
		return nil, ErrBatchRequired
	}

	table, err := normalize.Parse(req.Data, normalize.Options{Delimiter: req.Delimiter})
	if err != nil {
		return nil, &ParseError{FileName: req.FileName, Reason: err.Error(), Err: err}
	}
	if len(table.Rows) == 0 {
		return nil, &ParseError{
			FileName: req.FileName,
			Headers:  table.Headers,
			RowCount: 0,
			Reason:   "no data rows after header",
			Err:      ErrEmptyImport,
		}
	}
	records := table.Records()

	db := i.db.WithContext(ctx)
	batches := repository.NewBatchRepository(db)

	batch, created, err := i.openBatch(db, req)
	if err != nil {
		return nil, err
	}

	res, err := i.store(ctx, db, req, batch, records, table.Headers)
	if err != nil {
		if created {
			if cerr := batches.Delete(batch.ID); cerr != nil && !errors.Is(cerr, repository.ErrNotFound) {
				i.log.Error().Err(cerr).Str("batch_id", batch.ID.String()).Msg("cleanup of failed batch")
			}
		}
		return nil, err
	}

	i.log.Info().
		Str("batch_id", batch.ID.String()).
		Str("source", string(req.Source)).
		Str("mode", string(req.Mode)).
		Str("file", req.FileName).
		Int("count", res.Count).
		Int("skipped", res.Skipped).
		Int("dropped", res.Dropped).
		Int("fallbacks", res.Fallbacks).
		Msg("import completed")
	return res, nil
}

// openBatch creates the batch for ModeNew or loads and flags the existing one.
func (i *BatchImporter) openBatch(db *gorm.DB, req Request) (*models.ImportBatch, bool, error) {
	batches := repository.NewBatchRepository(db)

	if req.Mode != ModeNew {
		batch, err := batches.GetByID(req.BatchID)
		if err != nil {
			return nil, false, fmt.Errorf("load batch %s: %w", req.BatchID, err)
		}
		if batch.SourceType != req.Source {
			return nil, false, ErrBatchSourceDiffer
		}
		return batch, false, nil
	}

	refs := repository.NewReferenceRepository(db)
	batch := &models.ImportBatch{
		SourceType: req.Source,
		FileName:   req.FileName,
		Status:     models.BatchProcessing,
		StartedAt:  i.now(),
	}

	switch req.Source {
	case models.SourceBank:
		if strings.TrimSpace(req.Bank.BankName) == "" {
			return nil, false, ErrMissingReference
		}
		bank, err := refs.FindOrCreateBank(req.Bank.BankName, strings.ToUpper(strings.TrimSpace(req.Bank.BankCode)))
		if err != nil {
			return nil, false, fmt.Errorf("resolve bank: %w", err)
		}
		batch.BankID = &bank.ID
	case models.SourcePlatform:
		if strings.TrimSpace(req.Platform.PlatformName) == "" {
			return nil, false, ErrMissingReference
		}
		platform, err := refs.FindOrCreatePlatform(req.Platform.PlatformName, req.Platform.Account)
		if err != nil {
			return nil, false, fmt.Errorf("resolve platform: %w", err)
		}
		batch.PlatformID = &platform.ID
		if strings.TrimSpace(req.Platform.PropertyName) != "" {
			property, err := refs.FindOrCreateProperty(req.Platform.PropertyName)
			if err != nil {
				return nil, false, fmt.Errorf("resolve property: %w", err)
			}
			batch.PropertyID = &property.ID
		}
	}

	if err := batches.Create(batch); err != nil {
		return nil, false, fmt.Errorf("create batch: %w", err)
	}
	return batch, true, nil
}

// store writes the rows and completes the batch in one transaction.
func (i *BatchImporter) store(ctx context.Context, db *gorm.DB, req Request, batch *models.ImportBatch, records []models.RawRecord, headers []string) (*Result, error) {
	res := &Result{BatchID: batch.ID}

	err := db.Transaction(func(tx *gorm.DB) error {
		batches := repository.NewBatchRepository(tx)
		refs := repository.NewReferenceRepository(tx)

		switch batch.SourceType {
		case models.SourceBank:
			return i.storeBank(ctx, tx, req.Mode, batch, records, refs, batches, res)
		default:
			return i.storePlatform(ctx, tx, req.Mode, batch, records, headers, refs, batches, res)
		}
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (i *BatchImporter) storeBank(ctx context.Context, tx *gorm.DB, mode Mode, batch *models.ImportBatch, records []models.RawRecord, refs *repository.ReferenceRepository, batches *repository.BatchRepository, res *Result) error {
	repo := repository.NewBankTransactionRepository(tx)

	if batch.BankID == nil {
		return fmt.Errorf("bank batch %s has no bank", batch.ID)
	}
	bank, err := refs.GetBank(*batch.BankID)
	if err != nil {
		return fmt.Errorf("load bank: %w", err)
	}
	code := bank.Code
	if code == "" {
		code = deriveBankCode(bank.Name)
	}

	first, existing, err := i.prepareTarget(mode, batch.ID, repo.DeleteByBatch, repo.MaxRowIndex, repo.NaturalKeys)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	rows := i.buildBankRows(records, bankTarget{bankID: bank.ID, code: code, batchID: batch.ID}, first)
	kept := rows[:0]
	for _, r := range rows {
		if existing[r.NaturalKey] {
			res.Skipped++
			continue
		}
		if r.DateFallback {
			res.Fallbacks++
		}
		kept = append(kept, r)
	}

	if err := repo.BulkInsert(kept); err != nil {
		return fmt.Errorf("insert bank transactions: %w", err)
	}
	res.Count = len(kept)
	return complete(batches, batch, mode, res.Count)
}

func (i *BatchImporter) storePlatform(ctx context.Context, tx *gorm.DB, mode Mode, batch *models.ImportBatch, records []models.RawRecord, headers []string, refs *repository.ReferenceRepository, batches *repository.BatchRepository, res *Result) error {
	repo := repository.NewPlatformTransactionRepository(tx)

	if batch.PlatformID == nil {
		return fmt.Errorf("platform batch %s has no platform", batch.ID)
	}

	first, existing, err := i.prepareTarget(mode, batch.ID, repo.DeleteByBatch, repo.MaxRowIndex, repo.NaturalKeys)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	properties := map[string]*uuid.UUID{}
	target := platformTarget{
		platformID: *batch.PlatformID,
		propertyID: batch.PropertyID,
		batchID:    batch.ID,
		property: func(name string) (*uuid.UUID, error) {
			if id, ok := properties[name]; ok {
				return id, nil
			}
			p, err := refs.FindOrCreateProperty(name)
			if err != nil {
				return nil, fmt.Errorf("resolve property %q: %w", name, err)
			}
			properties[name] = &p.ID
			return &p.ID, nil
		},
	}

	rows, dropped, err := i.buildPlatformRows(records, target, first)
	if err != nil {
		return err
	}
	res.Dropped = dropped
	if len(rows) == 0 {
		return &ParseError{
			FileName: batch.FileName,
			Headers:  headers,
			RowCount: len(records),
			Reason:   "no rows with a parseable date",
			Err:      ErrEmptyImport,
		}
	}

	kept := rows[:0]
	for _, r := range rows {
		if existing[r.NaturalKey] {
			res.Skipped++
			continue
		}
		kept = append(kept, r)
	}

	if err := repo.BulkInsert(kept); err != nil {
		return fmt.Errorf("insert platform transactions: %w", err)
	}
	res.Count = len(kept)
	return complete(batches, batch, mode, res.Count)
}

// prepareTarget clears the batch for replace and returns the first row index.
// For merge it also returns the natural keys already stored; rows repeated
// within one file are kept.
func (i *BatchImporter) prepareTarget(
	mode Mode,
	batchID uuid.UUID,
	deleteByBatch func(uuid.UUID) error,
	maxRowIndex func(uuid.UUID) (int, error),
	naturalKeys func(uuid.UUID) (map[string]bool, error),
) (int, map[string]bool, error) {
	switch mode {
	case ModeReplace:
		if err := deleteByBatch(batchID); err != nil {
			return 0, nil, fmt.Errorf("clear batch: %w", err)
		}
		return 0, nil, nil
	case ModeMerge:
		max, err := maxRowIndex(batchID)
		if err != nil {
			return 0, nil, fmt.Errorf("read last row index: %w", err)
		}
		keys, err := naturalKeys(batchID)
		if err != nil {
			return 0, nil, fmt.Errorf("read natural keys: %w", err)
		}
		return max + 1, keys, nil
	default:
		return 0, nil, nil
	}
}

// complete records the batch's row count. A merge adds to the previous count.
func complete(batches *repository.BatchRepository, batch *models.ImportBatch, mode Mode, inserted int) error {
	count := inserted
	if mode == ModeMerge {
		count += batch.RecordsCount
	}
	if err := batches.MarkCompleted(batch.ID, count); err != nil {
		return fmt.Errorf("complete batch: %w", err)
	}
	return nil
}

// deriveBankCode builds a two-letter code from the bank name when none was
// configured, e.g. "Rakuten Bank" -> "RB".
func deriveBankCode(name string) string {
	var b strings.Builder
	for _, word := range strings.Fields(name) {
		r := []rune(word)[0]
		if r < unicode.MaxASCII && unicode.IsLetter(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
		if b.Len() == 2 {
			break
		}
	}
	if b.Len() == 0 {
		return "BK"
	}
	return b.String()
}
