package repository

import (
	"rental-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RuleRepository struct {
	db *gorm.DB
}

func NewRuleRepository(db *gorm.DB) *RuleRepository {
	return &RuleRepository{db: db}
}

func (r *RuleRepository) Create(rule *models.ReconciliationRule) error {
	return r.db.Create(rule).Error
}

// Upsert creates the rule or updates the fields of the rule with the same name.
func (r *RuleRepository) Upsert(rule *models.ReconciliationRule) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"bank_field", "platform_field"}),
	}).Create(rule).Error
}

func (r *RuleRepository) GetByID(id uuid.UUID) (*models.ReconciliationRule, error) {
	var rule models.ReconciliationRule
	if err := r.db.First(&rule, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &rule, nil
}

func (r *RuleRepository) GetByName(name string) (*models.ReconciliationRule, error) {
	var rule models.ReconciliationRule
	if err := r.db.First(&rule, "name = ?", name).Error; err != nil {
		return nil, translate(err)
	}
	return &rule, nil
}

func (r *RuleRepository) List() ([]models.ReconciliationRule, error) {
	var rules []models.ReconciliationRule
	err := r.db.Order("name ASC").Find(&rules).Error
	return rules, err
}

func (r *RuleRepository) Delete(id uuid.UUID) error {
	res := r.db.Where("id = ?", id).Delete(&models.ReconciliationRule{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
