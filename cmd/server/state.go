package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	auditStore "statusboard/internal/adapters/storage/audit"
	"statusboard/internal/domain/audit"
	"statusboard/internal/domain/tracker"
)

func newStateCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Inspect or reset the stored record",
	}

	var asYAML bool
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the stored record",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			db, store, err := openStateStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			st, err := store.Load(cmd.Context())
			if err != nil {
				return err
			}
			return writeState(cmd.OutOrStdout(), st, asYAML)
		},
	}
	show.Flags().BoolVar(&asYAML, "yaml", false, "print YAML instead of JSON")

	var confirmed bool
	reset := &cobra.Command{
		Use:   "reset",
		Short: "Replace the stored record with defaults",
		Long:  "Replace the stored record with defaults. Every update and comment is lost.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !confirmed {
				return errors.New("refusing to reset without --yes")
			}
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			db, store, err := openStateStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			st, err := store.Reset(cmd.Context())
			if err != nil {
				return err
			}
			event := audit.NewEvent(audit.ActorCLI, audit.ActionResetState, time.Now()).
				WithDescription("state reset from the command line")
			if err := auditStore.NewSQLiteStore(db).Save(cmd.Context(), event); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "State reset: %d categories, overall %d%%\n", len(st.Categories), st.OverallProgress)
			return nil
		},
	}
	reset.Flags().BoolVar(&confirmed, "yes", false, "confirm the reset")

	cmd.AddCommand(show, reset)
	return cmd
}

// writeState prints st as indented JSON, the stored format, or as YAML.
func writeState(w io.Writer, st tracker.State, asYAML bool) error {
	if asYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(st); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(st)
}
