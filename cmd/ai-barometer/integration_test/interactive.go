//go:build integration

package integration

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/creack/pty"
)

// runInteractive starts args against the built binary inside a pty rooted at
// dir with the given environment, lets respond drive stdin/stdout through
// the pty, and returns whatever output remains once the process exits.
//
// Grounded on the teacher's cmd/entire/cli/integration_test/interactive.go;
// trimmed to the one shape this repo's tests need (drive one prompt, collect
// the rest of stdout).
func runInteractive(dir string, env []string, args []string, respond func(ptyFile *os.File) string) (string, error) {
	cmd := exec.Command(getTestBinary(), args...)
	cmd.Dir = dir
	cmd.Env = env

	ptmx, err := pty.Start(cmd)
	if err != nil {
		return "", fmt.Errorf("failed to start pty: %w", err)
	}
	defer ptmx.Close()

	var respondOutput string
	respondDone := make(chan struct{})
	go func() {
		defer close(respondDone)
		respondOutput = respond(ptmx)
	}()

	select {
	case <-respondDone:
	case <-time.After(10 * time.Second):
	}

	var remaining bytes.Buffer
	remainingDone := make(chan struct{})
	go func() {
		defer close(remainingDone)
		_, _ = io.Copy(&remaining, ptmx)
	}()

	cmdDone := make(chan error, 1)
	go func() {
		cmdDone <- cmd.Wait()
	}()

	var cmdErr error
	select {
	case cmdErr = <-cmdDone:
	case <-time.After(10 * time.Second):
		_ = cmd.Process.Kill()
		cmdErr = fmt.Errorf("process timed out")
	}

	select {
	case <-remainingDone:
	case <-time.After(1 * time.Second):
	}

	return respondOutput + remaining.String(), cmdErr
}
