package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PlatformTransactionType classifies a platform export row.
type PlatformTransactionType string

const (
	TypePayout  PlatformTransactionType = "Payout"
	TypeBooking PlatformTransactionType = "Booking"
	// TypeOther rows (adjustments, resolutions) are kept but never matched.
	TypeOther PlatformTransactionType = "Other"
)

// PlatformTransaction is one row of a platform payout export. Bookings belong
// to the nearest preceding Payout of the same batch by RowIndex; there is no
// foreign key between them.
type PlatformTransaction struct {
	ID                         uuid.UUID               `gorm:"type:uuid;primaryKey"`
	PlatformID                 uuid.UUID               `gorm:"type:uuid;index"`
	PropertyID                 *uuid.UUID              `gorm:"type:uuid;index"`
	BatchID                    uuid.UUID               `gorm:"type:uuid;index"`
	RowIndex                   int                     `gorm:"index"`
	TransactionDate            time.Time               `gorm:"column:transaction_date;index"`
	Type                       PlatformTransactionType `gorm:"index"`
	TypeLabel                  string
	ConfirmationCode           *string `gorm:"index"`
	PayoutDate                 *time.Time
	Amount                     decimal.Decimal `gorm:"type:decimal(15,2)"`
	PayoutAmount               decimal.Decimal `gorm:"type:decimal(15,2)"`
	TotalRevenue               decimal.Decimal `gorm:"type:decimal(15,2)"`
	ServiceFee                 decimal.Decimal `gorm:"type:decimal(15,2)"`
	CleaningFee                decimal.Decimal `gorm:"type:decimal(15,2)"`
	AccommodationTax           decimal.Decimal `gorm:"type:decimal(15,2)"`
	Nights                     int
	NaturalKey                 string               `gorm:"index"`
	ReconciliationStatus       ReconciliationStatus `gorm:"index;default:unreconciled"`
	MatchedBankTransactionCode *string              `gorm:"index"`
	Raw                        RawRecord
	CreatedAt                  time.Time
	UpdatedAt                  time.Time
}

func (t *PlatformTransaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.ReconciliationStatus == "" {
		t.ReconciliationStatus = StatusUnreconciled
	}
	return nil
}

func (t *PlatformTransaction) IsPayout() bool {
	return t.Type == TypePayout
}

// Code returns the confirmation code or "" when the row has none.
func (t *PlatformTransaction) Code() string {
	if t.ConfirmationCode == nil {
		return ""
	}
	return *t.ConfirmationCode
}
