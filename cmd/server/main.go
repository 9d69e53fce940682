package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"statusboard/internal/adapters/storage"
	"statusboard/internal/adapters/storage/kv"
	trackerStore "statusboard/internal/adapters/storage/tracker"
	"statusboard/internal/config"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// rootFlags are shared by every subcommand.
type rootFlags struct {
	configPath string
	dbPath     string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "statusboard",
		Short:         "Migration status board",
		Long:          "Statusboard serves a public migration status page and a passphrase-gated dashboard for updating it.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", config.DefaultPath, "TOML config file (optional)")
	root.PersistentFlags().StringVar(&flags.dbPath, "db", "", "SQLite database path (overrides config)")

	root.AddCommand(newServeCmd(flags), newStateCmd(flags), newStatusCmd(flags), newAuditCmd(flags))
	return root
}

// loadConfig layers the command-line flags over the file and environment.
func (f *rootFlags) loadConfig() (config.Config, error) {
	cfg, err := config.Load(f.configPath, os.Getenv)
	if err != nil {
		return config.Config{}, err
	}
	if f.dbPath != "" {
		cfg.Data.DB = f.dbPath
	}
	return cfg, nil
}

// openStateStore opens and migrates the database for the offline commands.
// POST: the caller closes the returned *sql.DB
func openStateStore(ctx context.Context, cfg config.Config) (*sql.DB, *trackerStore.KVStore, error) {
	db, err := storage.Open(cfg.Data.DB)
	if err != nil {
		return nil, nil, err
	}
	if err := storage.MigrateDB(ctx, db); err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, trackerStore.NewKVStore(kv.NewSQLiteStore(db), nil), nil
}
