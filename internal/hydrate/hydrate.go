// Package hydrate implements the backfill pipeline: a log-first sweep over
// every local agent's transcript files within a time window, extracting
// every commit hash each file mentions and attaching a note wherever one is
// missing and warranted. It is the inverse of the hook pipeline, which is
// commit-first.
//
// The per-item, never-fail-the-whole-run accounting style is grounded on
// the teacher's cmd/entire/cli/doctor.go (loop over stuck sessions,
// individually fixable, individually reportable). The supplementary JSONL
// event log is grounded on original_source/src/backfill_log.rs's
// BackfillLogger, reimplemented as internal/logging.EventLogger.
package hydrate

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
	"github.com/ai-barometer/cli/internal/locator"
	"github.com/ai-barometer/cli/internal/logging"
	"github.com/ai-barometer/cli/internal/noteformat"
	"github.com/ai-barometer/cli/internal/pushgate"
	"github.com/ai-barometer/cli/internal/scanner"
)

// Options configures one hydration run.
type Options struct {
	Since       time.Duration
	Push        bool
	Now         time.Time // defaults to time.Now() if zero
	Home        string    // defaults to os.UserHomeDir() if empty
	ToolVersion string
	Verbose     bool
	Prompt      pushgate.ConsentPrompter
}

// Summary is the final tally printed as spec §4.H.4's "Done." line.
type Summary struct {
	Attached               int
	SkippedNoHashes        int
	SkippedAlreadyAttached int
	Errors                 int
}

// Run scans every registered agent's recent logs and attaches missing
// notes, writing progress to out per spec §4.H's print sequence.
func Run(ctx context.Context, out io.Writer, cwd string, opts Options) (Summary, error) {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	home := opts.Home
	if home == "" {
		h, err := os.UserHomeDir()
		if err != nil {
			return Summary{}, fmt.Errorf("hydrate: no home directory: %w", err)
		}
		home = h
	}

	var events *logging.EventLogger
	if dir, err := ConfigDir(home); err == nil {
		if el, err := logging.NewEventLogger(dir, now); err == nil {
			events = el
			defer events.Close()
		}
	}

	scan := &scanState{
		ctx:     ctx,
		out:     out,
		events:  events,
		verbose: opts.Verbose,
		repos:   make(map[string]*gitadapter.Adapter),
	}

	days := opts.Since / (24 * time.Hour)
	for _, c := range locator.All() {
		dirs := c.Roots(home, "")
		files := locator.RecentFiles(dirs, now, opts.Since)
		fmt.Fprintf(out, "Scanning %s logs (last %dd)...\n", c.Name, days)
		fmt.Fprintf(out, "  %d file(s) found\n", len(files))

		for _, file := range files {
			scan.processFile(file, opts.ToolVersion)
		}
	}

	fmt.Fprintf(out, "Done. %d attached, %d skipped, %d errors.\n",
		scan.summary.Attached,
		scan.summary.SkippedNoHashes+scan.summary.SkippedAlreadyAttached,
		scan.summary.Errors)

	if opts.Push {
		if a, err := gitadapter.OpenAt(cwd); err == nil {
			pushgate.Attempt(ctx, a, promptOrDefault(opts.Prompt))
		}
	}

	return scan.summary, nil
}

func promptOrDefault(p pushgate.ConsentPrompter) pushgate.ConsentPrompter {
	if p != nil {
		return p
	}
	return pushgate.Prompt
}

// ConfigDir returns $HOME/.ai-barometer, the parent of both the pending
// store and the hydration event log.
func ConfigDir(home string) (string, error) {
	if home == "" {
		return "", fmt.Errorf("hydrate: home directory is empty")
	}
	return filepath.Join(home, ".ai-barometer"), nil
}

// scanState carries per-run accumulators: the tally, a cache of opened repo
// adapters (one repo may be referenced by many hashes across many files),
// and the optional event log.
type scanState struct {
	ctx     context.Context
	out     io.Writer
	events  *logging.EventLogger
	verbose bool
	summary Summary
	repos   map[string]*gitadapter.Adapter
}

func (s *scanState) processFile(file, toolVersion string) {
	hashes, err := scanner.ExtractCommitHashes(file)
	if err != nil {
		s.summary.Errors++
		logging.Warn(s.ctx, "hydrate: extracting commit hashes failed", "file", file, "error", err)
		s.events.Event("session_skipped", "file", file, "reason", "extract_error", "error", err.Error())
		return
	}
	if len(hashes) == 0 {
		s.summary.SkippedNoHashes++
		s.events.Event("session_skipped", "file", file, "reason", "no_hashes")
		return
	}

	metadata, err := scanner.ParseSessionMetadata(file)
	if err != nil {
		s.summary.Errors++
		logging.Warn(s.ctx, "hydrate: parsing session metadata failed", "file", file, "error", err)
		s.events.Event("session_skipped", "file", file, "reason", "metadata_error", "error", err.Error())
		return
	}

	s.events.Event("session_scanned", "file", file, "hashes", len(hashes))
	if s.verbose {
		fmt.Fprintf(s.out, "  scanning %s (%d commit hash(es))\n", file, len(hashes))
	}

	var payload []byte
	payloadLoaded := false

	for hash := range hashes {
		s.processHash(file, hash, metadata, toolVersion, &payload, &payloadLoaded)
	}
}

func (s *scanState) processHash(file, hash string, metadata scanner.SessionMetadata, toolVersion string, payload *[]byte, payloadLoaded *bool) {
	if metadata.Cwd == "" {
		return // unresolved repo root: skip uncounted
	}

	a, ok := s.repos[metadata.Cwd]
	if !ok {
		opened, err := gitadapter.OpenAt(metadata.Cwd)
		if err != nil {
			s.repos[metadata.Cwd] = nil
			return // unresolved repo root: skip uncounted
		}
		a = opened
		s.repos[metadata.Cwd] = a
		s.repos[a.RepoRoot()] = a
	}
	if a == nil {
		return
	}

	if !a.CommitExists(hash) {
		s.events.Event("hash_skipped_no_commit", "commit", hash, "repo", a.RepoRoot())
		return // not a commit in this repo: skip uncounted
	}

	enabled, err := config.Enabled(a)
	if err != nil || !enabled {
		return // disabled repo: skip uncounted
	}

	noteExists, err := a.NoteExists(hash)
	if err != nil {
		s.summary.Errors++
		s.events.Event("session_skipped", "commit", hash, "repo", a.RepoRoot(), "reason", "note_check_error", "error", err.Error())
		return
	}
	if noteExists {
		s.summary.SkippedAlreadyAttached++
		s.events.Event("session_skipped", "commit", hash, "repo", a.RepoRoot(), "reason", "already_attached")
		if s.verbose {
			fmt.Fprintf(s.out, "  %s already attached in %s\n", hash[:7], a.RepoRoot())
		}
		return
	}

	if !*payloadLoaded {
		data, err := os.ReadFile(file) //nolint:gosec // path comes from the locator under a known agent root
		if err != nil {
			s.summary.Errors++
			s.events.Event("session_skipped", "file", file, "reason", "read_error", "error", err.Error())
			return
		}
		*payload = data
		*payloadLoaded = true
	}

	noteMeta := noteformat.Metadata{Agent: inferAgentFromPath(file), SessionID: metadata.SessionID}
	value := noteformat.Format(noteMeta, toolVersion, *payload)
	if err := a.AddNote(hash, value); err != nil {
		s.summary.Errors++
		s.events.Event("session_skipped", "commit", hash, "repo", a.RepoRoot(), "reason", "add_note_error", "error", err.Error())
		return
	}

	s.summary.Attached++
	s.events.Event("note_attached", "commit", hash, "repo", a.RepoRoot(), "file", file)
	if s.verbose {
		fmt.Fprintf(s.out, "  attached %s in %s\n", hash[:7], a.RepoRoot())
	}
}

func inferAgentFromPath(path string) string {
	switch {
	case strings.Contains(path, "/.claude/"):
		return "claude"
	case strings.Contains(path, "/.codex/"):
		return "codex"
	default:
		return "unknown"
	}
}
