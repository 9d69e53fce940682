package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"statusboard/internal/application/projections"
)

const (
	barWidth       = 20
	recentUpdates  = 5
	categoryColumn = 28
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	barStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))

	badgeStyles = map[string]lipgloss.Style{
		"status-not-started": mutedStyle,
		"status-in-progress": lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")),
		"status-complete":    lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true),
	}
)

func newStatusCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print a progress summary",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			loc, err := cfg.Location()
			if err != nil {
				return err
			}
			db, store, err := openStateStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			view, err := projections.QueryGetStatusView(cmd.Context(), projections.GetStatusViewDeps{
				StateStore: store,
				Location:   loc,
			})
			if err != nil {
				return err
			}
			styled := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
			renderStatus(cmd.OutOrStdout(), view, styled)
			return nil
		},
	}
}

// renderStatus writes a terminal summary of v. Plain output carries the same
// text without escape codes.
func renderStatus(w io.Writer, v projections.StatusView, styled bool) {
	paint := func(s lipgloss.Style, text string) string {
		if !styled {
			return text
		}
		return s.Render(text)
	}

	fmt.Fprintln(w, paint(headingStyle, "Migration progress"))
	fmt.Fprintf(w, "%s %3d%%  %s\n",
		paint(barStyle, progressBar(v.OverallProgress)),
		v.OverallProgress,
		paint(badgeStyles[v.StatusClass], v.StatusLabel))
	fmt.Fprintln(w, paint(mutedStyle, "Last updated "+v.LastUpdated))
	fmt.Fprintln(w)

	fmt.Fprintln(w, paint(headingStyle, "Categories"))
	for _, c := range v.Categories {
		fmt.Fprintf(w, "  %-*s %s %3d%%  %s\n",
			categoryColumn, c.Name,
			paint(barStyle, progressBar(c.Progress)),
			c.Progress,
			paint(badgeStyles[c.StatusClass], c.StatusLabel))
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, paint(headingStyle, fmt.Sprintf("Updates (%d)", len(v.Updates))))
	if !v.HasUpdates {
		fmt.Fprintln(w, paint(mutedStyle, "  No updates yet."))
		return
	}
	for i, u := range v.Updates {
		if i == recentUpdates {
			fmt.Fprintln(w, paint(mutedStyle, fmt.Sprintf("  ... and %d more", len(v.Updates)-recentUpdates)))
			break
		}
		fmt.Fprintf(w, "  %s  [%s] %s %s\n",
			paint(mutedStyle, u.Timestamp),
			u.Type,
			u.Title,
			paint(mutedStyle, fmt.Sprintf("(%d comments)", u.CommentCount)))
	}
}

// progressBar draws pct (0-100) as a fixed-width bar.
func progressBar(pct int) string {
	filled := pct * barWidth / 100
	filled = max(0, min(barWidth, filled))
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", barWidth-filled) + "]"
}
