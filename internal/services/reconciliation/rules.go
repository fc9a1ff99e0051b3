package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"rental-reconciliation-backend/internal/models"
	"rental-reconciliation-backend/internal/repository"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

var ErrInvalidRule = errors.New("rule needs name, bank_field and platform_field")

type RuleInput struct {
	Name          string `json:"name" yaml:"name"`
	BankField     string `json:"bank_field" yaml:"bank_field"`
	PlatformField string `json:"platform_field" yaml:"platform_field"`
}

func (in RuleInput) toModel() (*models.ReconciliationRule, error) {
	r := &models.ReconciliationRule{
		Name:          strings.TrimSpace(in.Name),
		BankField:     strings.TrimSpace(in.BankField),
		PlatformField: strings.TrimSpace(in.PlatformField),
	}
	if r.Name == "" || r.BankField == "" || r.PlatformField == "" {
		return nil, ErrInvalidRule
	}
	return r, nil
}

func (s *ReconciliationService) CreateRule(ctx context.Context, in RuleInput) (*models.ReconciliationRule, error) {
	rule, err := in.toModel()
	if err != nil {
		return nil, err
	}
	if err := repository.NewRuleRepository(s.db.WithContext(ctx)).Create(rule); err != nil {
		return nil, fmt.Errorf("create rule: %w", err)
	}
	return rule, nil
}

func (s *ReconciliationService) ListRules(ctx context.Context) ([]models.ReconciliationRule, error) {
	return repository.NewRuleRepository(s.db.WithContext(ctx)).List()
}

func (s *ReconciliationService) DeleteRule(ctx context.Context, id uuid.UUID) error {
	return repository.NewRuleRepository(s.db.WithContext(ctx)).Delete(id)
}

type ruleFile struct {
	Rules []RuleInput `yaml:"rules"`
}

// LoadRuleFile reads rules from YAML:
//
//	rules:
//	  - name: airbnb-rakuten
//	    bank_field: お預入金額
//	    platform_field: 收款
func LoadRuleFile(path string) ([]RuleInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	var f ruleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse rules file %s: %w", path, err)
	}
	return f.Rules, nil
}

// SeedRules upserts rules by name and returns how many were written.
func (s *ReconciliationService) SeedRules(ctx context.Context, rules []RuleInput) (int, error) {
	repo := repository.NewRuleRepository(s.db.WithContext(ctx))
	n := 0
	for _, in := range rules {
		rule, err := in.toModel()
		if err != nil {
			return n, fmt.Errorf("rule %q: %w", in.Name, err)
		}
		if err := repo.Upsert(rule); err != nil {
			return n, fmt.Errorf("seed rule %q: %w", rule.Name, err)
		}
		n++
	}
	s.log.Info().Int("rules", n).Msg("rules seeded")
	return n, nil
}
