package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"rental-reconciliation-backend/internal/models"
	"rental-reconciliation-backend/internal/services/importer"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type importFlags struct {
	source       string
	mode         string
	batchID      string
	bankName     string
	bankCode     string
	platformName string
	account      string
	propertyName string
	jobs         int
}

func (a *app) importCommand() *cobra.Command {
	var f importFlags
	cmd := &cobra.Command{
		Use:   "import FILE...",
		Short: "Import CSV exports, one batch per file",
		Long: `Import bank or platform CSV exports. With mode new every file becomes its
own batch and files are imported concurrently. Merge and replace target the
batch given by --batch and take a single file.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runImport(cmd, f, args)
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&f.source, "type", "t", "", "bank or platform")
	fl.StringVar(&f.mode, "mode", "new", "new, merge or replace")
	fl.StringVar(&f.batchID, "batch", "", "target batch for merge and replace")
	fl.StringVar(&f.bankName, "bank-name", "", "bank name (bank imports)")
	fl.StringVar(&f.bankCode, "bank-code", "", "bank code used in transaction codes")
	fl.StringVar(&f.platformName, "platform-name", "", "platform name (platform imports)")
	fl.StringVar(&f.account, "account", "", "platform account")
	fl.StringVar(&f.propertyName, "property", "", "property name")
	fl.IntVarP(&f.jobs, "jobs", "j", 4, "files imported in parallel")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func (a *app) runImport(cmd *cobra.Command, f importFlags, files []string) error {
	mode, err := importer.ParseMode(f.mode)
	if err != nil {
		return err
	}
	base := importer.Request{
		Source: models.SourceType(f.source),
		Mode:   mode,
		Bank:   importer.BankMeta{BankName: f.bankName, BankCode: f.bankCode},
		Platform: importer.PlatformMeta{
			PlatformName: f.platformName,
			Account:      f.account,
			PropertyName: f.propertyName,
		},
	}
	if mode != importer.ModeNew {
		if len(files) != 1 {
			return fmt.Errorf("mode %s takes exactly one file", mode)
		}
		if base.BatchID, err = uuid.Parse(f.batchID); err != nil {
			return fmt.Errorf("--batch: %w", err)
		}
	}

	jobs := f.jobs
	if jobs < 1 || a.cfg.Database.Driver == "sqlite" {
		// sqlite has a single writer
		jobs = 1
	}

	results := make([]*importer.Result, len(files))
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(jobs)
	for i, path := range files {
		g.Go(func() error {
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			req := base
			req.FileName = filepath.Base(path)
			req.Data = data

			res, err := a.importer.Import(ctx, req)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), results)
}
