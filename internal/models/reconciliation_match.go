package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ReconciliationMatch is the append-only audit record of one applied pairing.
type ReconciliationMatch struct {
	ID                     uuid.UUID  `gorm:"type:uuid;primaryKey"`
	RuleID                 *uuid.UUID `gorm:"type:uuid;index"`
	LogID                  *uuid.UUID `gorm:"type:uuid;index"`
	BankTransactionID      uuid.UUID  `gorm:"type:uuid;index"`
	PlatformTransactionIDs datatypes.JSONSlice[string]
	ConfirmationCodes      datatypes.JSONSlice[string]
	IsManual               bool
	Source                 MatchSource
	CreatedAt              time.Time
}

func (m *ReconciliationMatch) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
