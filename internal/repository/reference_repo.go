package repository

import (
	"strings"

	"rental-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReferenceRepository resolves banks, platforms and properties by name,
// creating them on first use.
type ReferenceRepository struct {
	db *gorm.DB
}

func NewReferenceRepository(db *gorm.DB) *ReferenceRepository {
	return &ReferenceRepository{db: db}
}

func (r *ReferenceRepository) WithTx(tx *gorm.DB) *ReferenceRepository {
	return &ReferenceRepository{db: tx}
}

// FindOrCreateBank returns the bank with the given name. An empty code on an
// existing bank is filled in; a differing code is left alone.
func (r *ReferenceRepository) FindOrCreateBank(name, code string) (*models.Bank, error) {
	name = strings.TrimSpace(name)
	bank := models.Bank{Name: name, Code: code}
	if err := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&bank).Error; err != nil {
		return nil, err
	}
	var out models.Bank
	if err := r.db.Where("name = ?", name).First(&out).Error; err != nil {
		return nil, translate(err)
	}
	if out.Code == "" && code != "" {
		if err := r.db.Model(&out).Update("code", code).Error; err != nil {
			return nil, err
		}
		out.Code = code
	}
	return &out, nil
}

func (r *ReferenceRepository) GetBank(id uuid.UUID) (*models.Bank, error) {
	var bank models.Bank
	if err := r.db.First(&bank, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &bank, nil
}

func (r *ReferenceRepository) FindOrCreatePlatform(name, account string) (*models.Platform, error) {
	p := models.Platform{Name: strings.TrimSpace(name), Account: strings.TrimSpace(account)}
	if err := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&p).Error; err != nil {
		return nil, err
	}
	var out models.Platform
	if err := r.db.Where("name = ? AND account = ?", p.Name, p.Account).First(&out).Error; err != nil {
		return nil, translate(err)
	}
	return &out, nil
}

func (r *ReferenceRepository) FindOrCreateProperty(name string) (*models.Property, error) {
	p := models.Property{Name: strings.TrimSpace(name)}
	if err := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&p).Error; err != nil {
		return nil, err
	}
	var out models.Property
	if err := r.db.Where("name = ?", p.Name).First(&out).Error; err != nil {
		return nil, translate(err)
	}
	return &out, nil
}
