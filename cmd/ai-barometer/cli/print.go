package cli

import (
	"fmt"
	"os"
)

// printWarning writes a "[ai-barometer]"-prefixed line to stderr. Used by
// code paths (the hook entry point above all) that must never fail the
// calling command, only warn.
func printWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "[ai-barometer] "+format+"\n", args...)
}

// cmdWorkingDir returns the process's current directory, wrapped with
// context on failure.
func cmdWorkingDir() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("cannot determine working directory: %w", err)
	}
	return cwd, nil
}
