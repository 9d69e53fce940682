package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	auditStore "statusboard/internal/adapters/storage/audit"
	"statusboard/internal/domain/audit"
)

func newAuditCmd(flags *rootFlags) *cobra.Command {
	var limit int
	var action string
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "List recent dashboard activity",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit <= 0 {
				return errors.New("--limit must be positive")
			}
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			loc, err := cfg.Location()
			if err != nil {
				return err
			}
			db, _, err := openStateStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			var filter auditStore.Filter
			if action != "" {
				a := audit.Action(action)
				filter.Action = &a
			}
			events, err := auditStore.NewSQLiteStore(db).List(cmd.Context(), filter, limit)
			if err != nil {
				return err
			}
			writeAudit(cmd.OutOrStdout(), events, loc)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of events to show")
	cmd.Flags().StringVar(&action, "action", "", "only show this action, e.g. delete_update")
	return cmd
}

// writeAudit prints one line per event, newest first.
func writeAudit(w io.Writer, events []audit.Event, loc *time.Location) {
	if len(events) == 0 {
		fmt.Fprintln(w, "No activity recorded.")
		return
	}
	for _, e := range events {
		line := fmt.Sprintf("%s  %-6s  %-14s", e.Timestamp.In(loc).Format(time.DateTime), e.Actor, e.Action)
		if e.ResourceType != "" {
			line += fmt.Sprintf("  %s:%s", e.ResourceType, e.ResourceID)
		}
		if e.Description != "" {
			line += "  " + e.Description
		}
		fmt.Fprintln(w, line)
	}
}
