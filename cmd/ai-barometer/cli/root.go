// Package cli assembles the ai-barometer command tree. It is the "external
// collaborator" surface spec §6 names: thin dispatch only, with every
// substantive operation delegated to the internal/ packages.
//
// Grounded on the teacher's cmd/entire/cli/root.go (SilenceErrors, a
// SilentError sentinel so main doesn't double-print, the RunE-returns-help
// default) and cmd/entire/cli/hooks_cmd.go (a hidden internal command tree
// for hook entry points).
package cli

import (
	"github.com/spf13/cobra"
)

// Version information, set at build time via -ldflags.
var (
	Version = "0.0.0-dev"
	Commit  = "unknown"
)

// NewRootCmd builds the ai-barometer command tree.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ai-barometer",
		Short:         "Attach AI coding-agent session transcripts to the commits they produced",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newInstallCmd())
	cmd.AddCommand(newHookCmd())
	cmd.AddCommand(newHydrateCmd())
	cmd.AddCommand(newRetryCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("ai-barometer %s (%s)\n", Version, Commit)
		},
	}
}
