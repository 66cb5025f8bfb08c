// Package hook implements the post-commit orchestrator: attach a note for
// the commit that was just made, drain the repository's retry queue, then
// invoke the push gate. Grounded on the teacher's cmd/entire/cli/
// hooks_git_cmd.go dispatch shape and cmd/entire/cli/hooks.go's catch-all
// error handling, re-purposed for a single post-commit step instead of a
// family of agent-callback hooks.
//
// Every exported entry point here absorbs its own panics and errors: the
// outer invariant is that this package's failure can never be the reason a
// commit is blocked.
package hook

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ai-barometer/cli/internal/config"
	"github.com/ai-barometer/cli/internal/gitadapter"
	"github.com/ai-barometer/cli/internal/locator"
	"github.com/ai-barometer/cli/internal/logging"
	"github.com/ai-barometer/cli/internal/noteformat"
	"github.com/ai-barometer/cli/internal/pending"
	"github.com/ai-barometer/cli/internal/pushgate"
	"github.com/ai-barometer/cli/internal/scanner"
)

// candidateWindow is the hook-time search window around the commit's own
// timestamp, per spec §4.G.5.
const candidateWindow = 10 * time.Minute

// retryWindow is the widened window used when draining the pending queue,
// per spec §4.G.9.
const retryWindow = 24 * time.Hour

// Reason enumerates why RunPostCommit ended the way it did, for logging and
// tests. It carries no behavior of its own.
type Reason string

const (
	ReasonNotARepo       Reason = "not_a_repo"
	ReasonDisabled       Reason = "disabled"
	ReasonAlreadyNoted   Reason = "already_noted"
	ReasonAttached       Reason = "attached"
	ReasonPending        Reason = "pending"
	ReasonNoUpstreamInfo Reason = "no_upstream_info"
)

// Result summarizes one RunPostCommit invocation.
type Result struct {
	Reason       Reason
	RepoRoot     string
	Hash         string
	DrainedCount int
	PushOutcome  pushgate.Outcome
}

// Deps lets callers override the toolVersion stamped into notes and the
// push-consent prompter; tests substitute a non-interactive prompter.
type Deps struct {
	ToolVersion string
	Prompt      pushgate.ConsentPrompter
}

// RunPostCommit runs the full post-commit pipeline for the repository
// containing cwd. It never panics and never returns an error the caller
// must act on: every failure path degrades to logging and a Result that
// reflects what happened, per spec §4.G's outer invariant.
func RunPostCommit(ctx context.Context, cwd string, deps Deps) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "[ai-barometer] internal error: %v\n", r)
			result = Result{Reason: ReasonNotARepo}
		}
	}()

	a, err := gitadapter.OpenAt(cwd)
	if err != nil {
		return Result{Reason: ReasonNotARepo}
	}
	repoRoot := a.RepoRoot()
	ctx = logging.WithRepo(logging.WithComponent(ctx, "hook"), repoRoot)

	enabled, err := config.Enabled(a)
	if err != nil {
		logging.Warn(ctx, "hook: reading enabled flag failed", "error", err)
	}
	if !enabled {
		return Result{Reason: ReasonDisabled, RepoRoot: repoRoot}
	}

	hash, err := a.HeadHash()
	if err != nil {
		logging.Warn(ctx, "hook: no HEAD", "error", err)
		return Result{Reason: ReasonNotARepo, RepoRoot: repoRoot}
	}
	headTime, err := a.HeadCommitTime()
	if err != nil {
		logging.Warn(ctx, "hook: no HEAD commit time", "error", err)
		return Result{Reason: ReasonNotARepo, RepoRoot: repoRoot}
	}

	ctx = logging.WithCommit(ctx, hash)
	result = Result{RepoRoot: repoRoot, Hash: hash}

	store := pendingStore()

	if exists, err := a.NoteExists(hash); err != nil {
		logging.Warn(ctx, "hook: checking note existence failed", "error", err)
	} else if exists {
		result.Reason = ReasonAlreadyNoted
	} else {
		attached := attemptAttach(ctx, a, repoRoot, hash, gitadapter.Time(headTime), candidateWindow, deps.ToolVersion)
		if attached {
			result.Reason = ReasonAttached
			if store != nil {
				_ = store.Remove(repoRoot, hash)
			}
		} else {
			result.Reason = ReasonPending
			if store != nil {
				_ = store.Upsert(repoRoot, hash, headTime, time.Now().Unix())
			}
		}
	}

	result.DrainedCount = drainPending(ctx, a, store, repoRoot, hash, deps.ToolVersion)

	pr := pushgate.Attempt(ctx, a, promptOrDefault(deps.Prompt))
	result.PushOutcome = pr.Outcome

	return result
}

// RunRetry drains the pending queue for the repository containing cwd and
// then invokes the push gate, without attempting to attach a note for any
// fresh commit first. This is spec §6's "retry" command: steps 9-10 of the
// hook pipeline on their own.
func RunRetry(ctx context.Context, cwd string, deps Deps) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "[ai-barometer] internal error: %v\n", r)
			result = Result{Reason: ReasonNotARepo}
		}
	}()

	a, err := gitadapter.OpenAt(cwd)
	if err != nil {
		return Result{Reason: ReasonNotARepo}
	}
	repoRoot := a.RepoRoot()
	ctx = logging.WithRepo(logging.WithComponent(ctx, "retry"), repoRoot)

	result = Result{RepoRoot: repoRoot}
	result.DrainedCount = drainPending(ctx, a, pendingStore(), repoRoot, "", deps.ToolVersion)

	pr := pushgate.Attempt(ctx, a, promptOrDefault(deps.Prompt))
	result.PushOutcome = pr.Outcome
	return result
}

func promptOrDefault(p pushgate.ConsentPrompter) pushgate.ConsentPrompter {
	if p != nil {
		return p
	}
	return pushgate.Prompt
}

func pendingStore() *pending.Store {
	root, err := pending.DefaultRoot()
	if err != nil {
		return nil
	}
	return pending.New(root)
}

// attemptAttach runs locator→scanner→verify→format→add_note for one
// (repoRoot, hash, anchor, window) triple. It returns true iff a note was
// attached; any failure along the way is logged and treated as "no match."
func attemptAttach(ctx context.Context, a *gitadapter.Adapter, repoRoot, hash string, anchor time.Time, window time.Duration, toolVersion string) bool {
	home, err := os.UserHomeDir()
	if err != nil {
		logging.Warn(ctx, "hook: no home directory", "error", err)
		return false
	}

	var files []string
	for _, c := range locator.All() {
		dirs := c.Roots(home, repoRoot)
		files = append(files, locator.CandidateFiles(dirs, anchor, window)...)
	}

	match, found, err := scanner.FindSessionForCommit(files, hash)
	if err != nil || !found {
		return false
	}

	metadata, err := scanner.ParseSessionMetadata(match.File)
	if err != nil {
		logging.Debug(ctx, "hook: metadata parse failed", "file", match.File, "error", err)
		return false
	}

	if !scanner.VerifyMatch(repoRoot, metadata, hash, resolveRepoRoot, commitExistsIn) {
		logging.Debug(ctx, "hook: match verification failed", "file", match.File)
		return false
	}

	payload, err := os.ReadFile(match.File) //nolint:gosec // path came from the locator under a known agent root
	if err != nil {
		logging.Warn(ctx, "hook: reading transcript payload failed", "file", match.File, "error", err)
		return false
	}

	// session_start is left unset: nothing upstream of this point extracts a
	// session start timestamp, so the header omits it per spec's "emitted
	// when known" rule for that field.
	noteMeta := noteformat.Metadata{Agent: match.AgentKind.String(), SessionID: metadata.SessionID}

	value := noteformat.Format(noteMeta, toolVersion, payload)
	if err := a.AddNote(hash, value); err != nil {
		logging.Warn(ctx, "hook: add_note failed", "error", err)
		return false
	}

	logging.Info(ctx, "hook: note attached", "agent", match.AgentKind.String(), "file", match.File)
	return true
}

func resolveRepoRoot(dir string) (string, error) {
	a, err := gitadapter.OpenAt(dir)
	if err != nil {
		return "", err
	}
	return a.RepoRoot(), nil
}

func commitExistsIn(dir, hash string) bool {
	a, err := gitadapter.OpenAt(dir)
	if err != nil {
		return false
	}
	return a.CommitExists(hash)
}

// drainPending retries every pending record for repoRoot (other than the
// commit just processed, which this invocation has already handled) with the
// widened retry window, per spec §4.G.9.
func drainPending(ctx context.Context, a *gitadapter.Adapter, store *pending.Store, repoRoot, justProcessedHash, toolVersion string) int {
	if store == nil {
		return 0
	}
	records, err := store.List(repoRoot)
	if err != nil {
		logging.Warn(ctx, "hook: listing pending records failed", "error", err)
		return 0
	}

	drained := 0
	for _, rec := range records {
		if rec.Commit == justProcessedHash {
			continue
		}
		drained++
		anchor := gitadapter.Time(rec.HeadTime)
		if attemptAttach(ctx, a, repoRoot, rec.Commit, anchor, retryWindow, toolVersion) {
			_ = store.Remove(repoRoot, rec.Commit)
			continue
		}
		_ = store.Upsert(repoRoot, rec.Commit, rec.HeadTime, time.Now().Unix())
	}
	return drained
}
