package cli

import (
	"fmt"
	"io"

	"github.com/ai-barometer/cli/internal/config"
	"github.com/ai-barometer/cli/internal/gitadapter"
	"github.com/ai-barometer/cli/internal/pending"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	var detailed bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show AI Barometer configuration and activity for this repository",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd.OutOrStdout(), detailed)
		},
	}

	cmd.Flags().BoolVar(&detailed, "detailed", false, "Show per-pending-commit detail")

	return cmd
}

func runStatus(w io.Writer, detailed bool) error {
	a, err := gitadapter.Open()
	if err != nil {
		err := fmt.Errorf("not a git repository")
		printWarning("status failed: %v", err)
		return NewSilentError(err)
	}

	enabled, err := config.Enabled(a)
	if err != nil {
		return fmt.Errorf("status: reading enabled flag: %w", err)
	}
	if enabled {
		fmt.Fprintln(w, "✓ enabled for this repository")
	} else {
		fmt.Fprintln(w, "✕ disabled for this repository (ai.barometer.enabled = false)")
	}

	org, err := config.Org(a)
	if err != nil {
		return fmt.Errorf("status: reading org: %w", err)
	}
	if org != "" {
		fmt.Fprintf(w, "  organization allow-list: %s\n", org)
	} else {
		fmt.Fprintln(w, "  organization allow-list: (none)")
	}

	consent, err := config.PushConsent(a)
	if err != nil {
		return fmt.Errorf("status: reading push consent: %w", err)
	}
	switch consent {
	case "yes":
		fmt.Fprintln(w, "  push consent: granted")
	case "no":
		fmt.Fprintln(w, "  push consent: denied")
	default:
		fmt.Fprintln(w, "  push consent: not yet decided")
	}

	if a.NotesRefExists() {
		fmt.Fprintf(w, "✓ notes ref %s exists\n", gitadapter.NotesRef)
	} else {
		fmt.Fprintf(w, "○ notes ref %s has not been created yet\n", gitadapter.NotesRef)
	}

	return reportPending(w, a, detailed)
}

func reportPending(w io.Writer, a *gitadapter.Adapter, detailed bool) error {
	root, err := pending.DefaultRoot()
	if err != nil {
		fmt.Fprintln(w, "  pending: unknown (no home directory)")
		return nil //nolint:nilerr // degraded reporting, not a command failure
	}

	records, err := pending.New(root).List(a.RepoRoot())
	if err != nil {
		return fmt.Errorf("status: listing pending records: %w", err)
	}

	fmt.Fprintf(w, "  pending commits: %d\n", len(records))
	if detailed {
		for _, rec := range records {
			fmt.Fprintf(w, "    %s  attempts=%d/%d  first_seen=%d\n", rec.Commit[:7], rec.Attempts, pending.MaxAttempts, rec.FirstSeen)
		}
	}
	return nil
}
