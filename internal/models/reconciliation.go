package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ReconciliationStatus string

const (
	StatusUnreconciled ReconciliationStatus = "unreconciled"
	StatusReconciled   ReconciliationStatus = "reconciled"
)

// ReconciliationRule names the raw columns holding comparable amounts on each side.
type ReconciliationRule struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name          string    `gorm:"uniqueIndex"`
	BankField     string
	PlatformField string
	CreatedAt     time.Time
}

func (r *ReconciliationRule) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// ProposedMatch is a bank row paired with a Payout, not yet applied.
type ProposedMatch struct {
	BankTransactionID uuid.UUID       `json:"bank_transaction_id"`
	PayoutID          uuid.UUID       `json:"payout_id"`
	BookingIDs        []uuid.UUID     `json:"booking_ids,omitempty"`
	ConfirmationCodes []string        `json:"confirmation_codes"`
	BankAmount        decimal.Decimal `json:"bank_amount"`
	PayoutAmount      decimal.Decimal `json:"payout_amount"`
}

const (
	LogPending   = "pending"
	LogConfirmed = "confirmed"
)

// ReconciliationLog holds a preview so it can be reviewed and confirmed later.
type ReconciliationLog struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey"`
	RuleID           *uuid.UUID `gorm:"type:uuid;index"`
	BankBatchIDs     datatypes.JSONSlice[string]
	PlatformBatchIDs datatypes.JSONSlice[string]
	Matches          datatypes.JSONSlice[ProposedMatch]
	Status           string `gorm:"index"`
	ConfirmedCount   int
	SkippedCount     int
	ErrorCount       int
	CreatedAt        time.Time
	ConfirmedAt      *time.Time
}

func (l *ReconciliationLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.Status == "" {
		l.Status = LogPending
	}
	return nil
}

type MatchSource string

const (
	MatchSourceRule   MatchSource = "rule"
	MatchSourceManual MatchSource = "manual"
	MatchSourceAuto   MatchSource = "auto"
)
