package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SourceType string

const (
	SourceBank     SourceType = "bank"
	SourcePlatform SourceType = "platform"
)

const (
	BatchProcessing = "processing"
	BatchCompleted  = "completed"
)

// ImportBatch is one CSV import. Its transactions reference it by BatchID and
// are deleted with it.
type ImportBatch struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	SourceType   SourceType `gorm:"index"`
	BankID       *uuid.UUID `gorm:"type:uuid;index"`
	PlatformID   *uuid.UUID `gorm:"type:uuid;index"`
	PropertyID   *uuid.UUID `gorm:"type:uuid"`
	FileName     string
	RecordsCount int
	Status       string `gorm:"index"`
	StartedAt    time.Time
	CompletedAt  *time.Time
	CreatedAt    time.Time
}

func (b *ImportBatch) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
