// Package cli is the reconcilectl command tree: imports and reconciliation
// runs against the same database the server uses.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"rental-reconciliation-backend/internal/config"
	"rental-reconciliation-backend/internal/database"
	"rental-reconciliation-backend/internal/services/importer"
	service "rental-reconciliation-backend/internal/services/reconciliation"
	"rental-reconciliation-backend/pkg/logger"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// OpenFunc opens the database for a loaded config.
type OpenFunc func(cfg *config.Config) (*gorm.DB, error)

type app struct {
	cfgFile string
	verbose bool
	open    OpenFunc

	cfg      *config.Config
	log      zerolog.Logger
	db       *gorm.DB
	svc      *service.ReconciliationService
	importer *importer.BatchImporter
}

func defaultOpen(cfg *config.Config) (*gorm.DB, error) {
	db, err := database.Init(cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := database.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Execute runs the command tree and exits non-zero on error.
func Execute() {
	if err := NewRootCommand(nil).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// NewRootCommand builds reconcilectl. A nil open uses the configured database.
func NewRootCommand(open OpenFunc) *cobra.Command {
	if open == nil {
		open = defaultOpen
	}
	a := &app{open: open}

	root := &cobra.Command{
		Use:           "reconcilectl",
		Short:         "Import bank and platform exports and reconcile them",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "path to config.yaml (default ./config.yaml)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		a.importCommand(),
		a.previewCommand(),
		a.confirmCommand(),
		a.autoCommand(),
		a.manualCommand(),
		a.batchesCommand(),
		a.rulesCommand(),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	if a.verbose {
		cfg.Log.Level = "debug"
	}
	a.cfg = cfg
	// stdout carries command output
	a.log = logger.NewWithWriter(logger.Config{Level: cfg.Log.Level, Pretty: true}, cmd.ErrOrStderr())

	db, err := a.open(cfg)
	if err != nil {
		return err
	}
	a.db = db
	a.svc = service.NewReconciliationService(db, a.log, cfg.Reconcile.DateWindowDays)
	a.importer = importer.NewBatchImporter(db, a.log)
	return nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
