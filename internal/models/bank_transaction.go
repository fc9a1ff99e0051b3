package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type BankTransaction struct {
	ID                       uuid.UUID       `gorm:"type:uuid;primaryKey"`
	BankID                   uuid.UUID       `gorm:"type:uuid;index"`
	BatchID                  uuid.UUID       `gorm:"type:uuid;index"`
	RowIndex                 int             `gorm:"index"`
	TransactionDate          time.Time       `gorm:"column:transaction_date;index"`
	Amount                   decimal.Decimal `gorm:"type:decimal(15,2)"`
	Balance                  decimal.Decimal `gorm:"type:decimal(15,2)"`
	Description              string
	IsIncome                 bool
	TransactionCode          string `gorm:"index"`
	NaturalKey               string `gorm:"index"`
	DateFallback             bool
	ReconciliationStatus     ReconciliationStatus `gorm:"index;default:unreconciled"`
	MatchedConfirmationCodes datatypes.JSONSlice[string]
	Raw                      RawRecord
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

func (t *BankTransaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.ReconciliationStatus == "" {
		t.ReconciliationStatus = StatusUnreconciled
	}
	return nil
}
