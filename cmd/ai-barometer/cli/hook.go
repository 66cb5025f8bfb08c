package cli

import (
	"context"
	"os"

	"github.com/ai-barometer/cli/internal/hook"
	"github.com/ai-barometer/cli/internal/logging"

	"github.com/spf13/cobra"
)

func newHookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:    "hook",
		Short:  "Git hook handlers",
		Hidden: true,
	}
	cmd.AddCommand(newHookPostCommitCmd())
	return cmd
}

func newHookPostCommitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "post-commit",
		Short: "Run the post-commit correlation pipeline",
		Args:  cobra.NoArgs,
		// RunE always returns nil: per spec §4.G, this subcommand exits 0
		// regardless of what happened internally.
		RunE: func(_ *cobra.Command, _ []string) error {
			runHookPostCommit()
			return nil
		},
	}
}

func runHookPostCommit() {
	defer func() {
		if r := recover(); r != nil {
			printWarning("internal error: %v", r)
		}
	}()

	cwd, err := os.Getwd()
	if err != nil {
		printWarning("cannot determine working directory: %v", err)
		return
	}

	if err := logging.Init(cwd); err == nil {
		defer logging.Close()
	}

	ctx := context.Background()
	result := hook.RunPostCommit(ctx, cwd, hook.Deps{ToolVersion: Version})
	logging.Debug(ctx, "hook post-commit finished", "reason", string(result.Reason), "drained", result.DrainedCount)
}
