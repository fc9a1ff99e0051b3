package cli

import (
	"fmt"

	"rental-reconciliation-backend/internal/models"
	service "rental-reconciliation-backend/internal/services/reconciliation"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func (a *app) batchesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batches",
		Short: "List and delete import batches",
	}

	var source string
	list := &cobra.Command{
		Use:   "list",
		Short: "List batches, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			batches, err := a.svc.ListBatches(cmd.Context(), models.SourceType(source))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), batches)
		},
	}
	list.Flags().StringVarP(&source, "type", "t", "", "bank or platform (default both)")

	del := &cobra.Command{
		Use:   "delete BATCH_ID",
		Short: "Delete a batch and its transactions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return err
			}
			if err := a.svc.DeleteBatch(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", id)
			return nil
		},
	}

	cmd.AddCommand(list, del)
	return cmd
}

func (a *app) rulesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage reconciliation rules",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, err := a.svc.ListRules(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rules)
		},
	}

	load := &cobra.Command{
		Use:   "load FILE",
		Short: "Upsert rules from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, err := service.LoadRuleFile(args[0])
			if err != nil {
				return err
			}
			n, err := a.svc.SeedRules(cmd.Context(), rules)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "loaded %d rules\n", n)
			return nil
		},
	}

	cmd.AddCommand(list, load)
	return cmd
}
