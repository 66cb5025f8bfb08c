package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ai-barometer/cli/internal/hydrate"

	"github.com/spf13/cobra"
)

func newHydrateCmd() *cobra.Command {
	var since string
	var push bool
	var verbose bool

	cmd := &cobra.Command{
		Use:   "hydrate",
		Short: "Backfill notes from local agent logs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			window, err := parseSinceDays(since)
			if err != nil {
				return NewSilentError(fmt.Errorf("invalid --since %q: %w", since, err))
			}

			cwd, err := cmdWorkingDir()
			if err != nil {
				return NewSilentError(err)
			}

			_, err = hydrate.Run(context.Background(), cmd.OutOrStdout(), cwd, hydrate.Options{
				Since:       window,
				Push:        push,
				Verbose:     verbose,
				ToolVersion: Version,
			})
			if err != nil {
				printWarning("hydrate failed: %v", err)
				return NewSilentError(err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&since, "since", "7d", "How far back to scan agent logs, as <N>d")
	cmd.Flags().BoolVar(&push, "push", false, "Push the notes ref afterward, subject to the push gate")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "Print per-session and per-commit progress")

	return cmd
}

// parseSinceDays parses spec §6's "<N>d" duration shorthand.
func parseSinceDays(s string) (time.Duration, error) {
	trimmed := strings.TrimSuffix(strings.TrimSpace(s), "d")
	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("expected <N>d, e.g. 7d")
	}
	if n < 0 {
		return 0, fmt.Errorf("day count must be non-negative")
	}
	return time.Duration(n) * 24 * time.Hour, nil
}
