package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ai-barometer/cli/internal/config"
	"github.com/ai-barometer/cli/internal/gitadapter"
	"github.com/ai-barometer/cli/internal/hydrate"

	"github.com/spf13/cobra"
)

const hookShimContent = "#!/bin/sh\nexec ai-barometer hook post-commit\n"

// hooksMarker is the literal token spec §6 says identifies a hook shim as
// ours. A pre-existing file lacking it is a foreign hook and gets
// overwritten with a warning rather than silently.
const hooksMarker = "ai-barometer"

func newInstallCmd() *cobra.Command {
	var org string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install the post-commit hook shim and run an initial backfill",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := runInstall(cmd.OutOrStdout(), org, verbose); err != nil {
				printWarning("install failed: %v", err)
				return NewSilentError(err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&org, "org", "", "Restrict notes pushes to remotes under this organization")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "Print per-session and per-commit progress during the initial backfill")

	return cmd
}

// runInstall is best-effort: each step's failure is reported via
// printWarning and the next step is attempted regardless, per spec §7. The
// final line distinguishes a clean install from one that hit errors along
// the way; it never returns a non-nil error itself.
func runInstall(w io.Writer, org string, verbose bool) error {
	var errored bool

	home, err := os.UserHomeDir()
	if err != nil {
		printWarning("install: no home directory: %v", err)
		errored = true
	} else {
		hooksDir := filepath.Join(home, ".git-hooks")
		if err := os.MkdirAll(hooksDir, 0o750); err != nil {
			printWarning("install: creating %s: %v", hooksDir, err)
			errored = true
		} else {
			shimPath := filepath.Join(hooksDir, "post-commit")
			if err := writeHookShim(w, shimPath); err != nil {
				printWarning("install: %v", err)
				errored = true
			}

			if err := gitadapter.SetGlobalConfig("core.hooksPath", hooksDir); err != nil {
				printWarning("install: setting core.hooksPath: %v", err)
				errored = true
			} else {
				fmt.Fprintf(w, "✓ core.hooksPath set to %s\n", hooksDir)
			}
		}
	}

	if org != "" {
		if err := config.SetOrgGlobal(org); err != nil {
			printWarning("install: persisting --org: %v", err)
			errored = true
		} else {
			fmt.Fprintf(w, "✓ organization allow-list set to %s\n", org)
		}
	}

	fmt.Fprintln(w, "Running initial backfill (last 7 days)...")
	cwd, err := cmdWorkingDir()
	if err != nil {
		cwd = "."
	}
	summary, err := hydrate.Run(context.Background(), w, cwd, hydrate.Options{
		Since:       7 * 24 * time.Hour,
		Verbose:     verbose,
		ToolVersion: Version,
	})
	if err != nil {
		printWarning("install: backfill failed: %v", err)
		errored = true
	} else {
		fmt.Fprintf(w, "  %d note(s) attached during backfill\n", summary.Attached)
	}

	if errored {
		fmt.Fprintln(w, "✕ install completed with errors")
	} else {
		fmt.Fprintln(w, "✓ install complete")
	}
	return nil
}

// writeHookShim writes the shim to path, unless an existing file there is
// already one of ours (idempotent reinstall), in which case it is
// overwritten silently. Any other pre-existing file is overwritten with a
// loud warning and no backup, per spec §6 and DESIGN.md's resolution of
// Open Question #2.
func writeHookShim(w io.Writer, path string) error {
	if existing, err := os.ReadFile(path); err == nil { //nolint:gosec // fixed, user-controlled path
		if !strings.Contains(string(existing), hooksMarker) {
			firstLine := strings.SplitN(string(existing), "\n", 2)[0]
			fmt.Fprintf(w, "⚠ overwriting existing post-commit hook at %s (was: %q); no backup is kept\n", path, firstLine)
		}
	}

	if err := os.WriteFile(path, []byte(hookShimContent), 0o755); err != nil { //nolint:gosec // hook must be executable
		return fmt.Errorf("install: writing hook shim: %w", err)
	}
	fmt.Fprintf(w, "✓ hook shim written to %s\n", path)
	return nil
}
