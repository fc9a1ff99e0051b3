package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"rental-reconciliation-backend/internal/repository"
	service "rental-reconciliation-backend/internal/services/reconciliation"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func (a *app) previewCommand() *cobra.Command {
	var (
		rule     string
		bankIDs  []string
		platIDs  []string
		xlsxPath string
	)
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Propose rule-based matches and store them as a pending log",
		RunE: func(cmd *cobra.Command, args []string) error {
			ruleID, err := a.resolveRule(rule)
			if err != nil {
				return err
			}
			req := service.PreviewRequest{RuleID: ruleID}
			if req.BankBatchIDs, err = parseIDs(bankIDs); err != nil {
				return err
			}
			if req.PlatformBatchIDs, err = parseIDs(platIDs); err != nil {
				return err
			}

			res, err := a.svc.Preview(cmd.Context(), req)
			if err != nil {
				return err
			}
			if xlsxPath != "" {
				if err := a.writeExport(cmd, res.LogID, xlsxPath); err != nil {
					return err
				}
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&rule, "rule", "", "rule id or name")
	cmd.Flags().StringSliceVar(&bankIDs, "bank-batch", nil, "bank batch ids (default all)")
	cmd.Flags().StringSliceVar(&platIDs, "platform-batch", nil, "platform batch ids (default all)")
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "also write the proposals to this XLSX file")
	_ = cmd.MarkFlagRequired("rule")
	return cmd
}

func (a *app) confirmCommand() *cobra.Command {
	var logID, matchesFile string
	cmd := &cobra.Command{
		Use:   "confirm",
		Short: "Apply a stored preview or a JSON list of matches",
		RunE: func(cmd *cobra.Command, args []string) error {
			var req service.ConfirmRequest
			switch {
			case logID != "":
				id, err := uuid.Parse(logID)
				if err != nil {
					return fmt.Errorf("--log: %w", err)
				}
				req.LogID = &id
			case matchesFile != "":
				data, err := os.ReadFile(matchesFile)
				if err != nil {
					return err
				}
				if err := json.Unmarshal(data, &req.Matches); err != nil {
					return fmt.Errorf("decode %s: %w", matchesFile, err)
				}
			default:
				return fmt.Errorf("one of --log or --matches is required")
			}

			res, err := a.svc.Confirm(cmd.Context(), req)
			if res != nil {
				if perr := printJSON(cmd.OutOrStdout(), res); perr != nil {
					return perr
				}
			}
			return err
		},
	}
	cmd.Flags().StringVar(&logID, "log", "", "preview log id")
	cmd.Flags().StringVar(&matchesFile, "matches", "", "JSON file with proposed matches")
	cmd.MarkFlagsMutuallyExclusive("log", "matches")
	return cmd
}

func (a *app) autoCommand() *cobra.Command {
	var (
		bankIDs []string
		platIDs []string
		window  int
	)
	cmd := &cobra.Command{
		Use:   "auto",
		Short: "Match by amount and date window and apply directly",
		RunE: func(cmd *cobra.Command, args []string) error {
			var req service.AutoRequest
			var err error
			if req.BankBatchIDs, err = parseIDs(bankIDs); err != nil {
				return err
			}
			if req.PlatformBatchIDs, err = parseIDs(platIDs); err != nil {
				return err
			}
			if cmd.Flags().Changed("window") {
				if window < 0 {
					return fmt.Errorf("--window must be >= 0")
				}
				req.WindowDays = &window
			}

			res, err := a.svc.Auto(cmd.Context(), req)
			if res != nil {
				if perr := printJSON(cmd.OutOrStdout(), res); perr != nil {
					return perr
				}
			}
			return err
		},
	}
	cmd.Flags().StringSliceVar(&bankIDs, "bank-batch", nil, "bank batch ids (default all)")
	cmd.Flags().StringSliceVar(&platIDs, "platform-batch", nil, "platform batch ids (default all)")
	cmd.Flags().IntVar(&window, "window", 0, "date window in days (default from config)")
	return cmd
}

func (a *app) manualCommand() *cobra.Command {
	var kind, txID, code string
	cmd := &cobra.Command{
		Use:   "manual",
		Short: "Link one transaction by code",
		Long: `Link one transaction by code. With --type bank the code is a confirmation
code looked up on the platform side; with --type platform it is a bank
transaction code.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(txID)
			if err != nil {
				return fmt.Errorf("--id: %w", err)
			}
			res, err := a.svc.Manual(cmd.Context(), service.ManualRequest{
				Type:          service.ManualType(kind),
				TransactionID: id,
				Code:          code,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVarP(&kind, "type", "t", "", "bank or platform")
	cmd.Flags().StringVar(&txID, "id", "", "transaction id")
	cmd.Flags().StringVar(&code, "code", "", "confirmation or bank transaction code")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("code")
	return cmd
}

func (a *app) writeExport(cmd *cobra.Command, logID uuid.UUID, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := a.svc.ExportLog(cmd.Context(), logID, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// resolveRule accepts a rule id or a rule name.
func (a *app) resolveRule(s string) (uuid.UUID, error) {
	if id, err := uuid.Parse(s); err == nil {
		return id, nil
	}
	rule, err := repository.NewRuleRepository(a.db).GetByName(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("rule %q: %w", s, err)
	}
	return rule.ID, nil
}

func parseIDs(in []string) ([]uuid.UUID, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make([]uuid.UUID, 0, len(in))
	for _, s := range in {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("batch id %q: %w", s, err)
		}
		out = append(out, id)
	}
	return out, nil
}
