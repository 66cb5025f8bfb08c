package cli

import (
	"context"
	"fmt"

	"github.com/ai-barometer/cli/internal/hook"

	"github.com/spf13/cobra"
)

func newRetryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "retry",
		Short: "Drain the pending retry queue for the repository at the current directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cwd, err := cmdWorkingDir()
			if err != nil {
				return NewSilentError(err)
			}

			result := hook.RunRetry(context.Background(), cwd, hook.Deps{ToolVersion: Version})
			if result.Reason == hook.ReasonNotARepo {
				err := fmt.Errorf("not a git repository")
				printWarning("retry failed: %v", err)
				return NewSilentError(err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "retried %d pending commit(s)\n", result.DrainedCount)
			return nil
		},
	}
}
