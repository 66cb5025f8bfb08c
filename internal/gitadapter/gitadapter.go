// Package gitadapter wraps access to a local Git repository: repo
// discovery, HEAD metadata, and note/config/remote operations. Reads that
// go-git exposes cleanly (repo root, HEAD, commit existence, remotes) use
// go-git directly; note and config mutation shell out to the git binary,
// since the write path must be fully subprocess-based per the never-shell
// rule (every argument is passed positionally, separated by "--").
package gitadapter

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/ai-barometer/cli/internal/giterrs"
	"github.com/ai-barometer/cli/internal/validation"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// NotesRef is the single, fixed notes ref used by every operation in this
// codebase. It must never vary by caller.
const NotesRef = "refs/notes/ai-sessions"

// PushOutcome describes the result of a notes push attempt.
type PushOutcome int

const (
	PushOK PushOutcome = iota
	PushNoUpstream
	PushRejected
	PushOther
)

// Adapter is a typed wrapper over one repository's Git state. A zero-value
// Adapter is not usable; construct with Open or OpenAt.
type Adapter struct {
	cwd  string // directory git subprocess calls run from
	repo *git.Repository
	root string
}

// Open opens the repository containing the current working directory.
func Open() (*Adapter, error) {
	return OpenAt("")
}

// OpenAt opens the repository containing cwd (or the process's current
// directory if cwd is empty).
func OpenAt(cwd string) (*Adapter, error) {
	repo, err := git.PlainOpenWithOptions(orDot(cwd), &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", giterrs.ErrNotARepo, err)
	}

	wt, err := repo.Worktree()
	root := ""
	if err == nil {
		root = wt.Filesystem.Root()
	} else {
		// Bare repos / detached worktree filesystems: fall back to the
		// subprocess form, which handles linked worktrees correctly too.
		root, err = repoRootViaSubprocess(cwd)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", giterrs.ErrNotARepo, err)
		}
	}

	return &Adapter{cwd: orDot(cwd), repo: repo, root: root}, nil
}

func orDot(cwd string) string {
	if cwd == "" {
		return "."
	}
	return cwd
}

// RepoRoot returns the absolute repository root directory.
func (a *Adapter) RepoRoot() string { return a.root }

func repoRootViaSubprocess(cwd string) (string, error) {
	out, err := runGit(cwd, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// HeadHash returns the 40-character hex hash of HEAD.
func (a *Adapter) HeadHash() (string, error) {
	ref, err := a.repo.Head()
	if err != nil {
		return "", fmt.Errorf("%w: %v", giterrs.ErrNoHead, err)
	}
	return ref.Hash().String(), nil
}

// HeadCommitTime returns the commit timestamp of HEAD, in seconds since the
// Unix epoch.
func (a *Adapter) HeadCommitTime() (int64, error) {
	ref, err := a.repo.Head()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", giterrs.ErrNoHead, err)
	}
	commit, err := a.repo.CommitObject(ref.Hash())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", giterrs.ErrNoHead, err)
	}
	return commit.Author.When.Unix(), nil
}

// CommitExists reports whether hash resolves to a commit in this
// repository. Absence is not an error.
func (a *Adapter) CommitExists(hash string) bool {
	if err := validation.ValidateCommitHash(hash); err != nil {
		return false
	}
	_, err := a.repo.CommitObject(plumbing.NewHash(hash))
	return err == nil
}

// NotesRefExists reports whether NotesRef has been created at all in this
// repository, independent of any single commit.
func (a *Adapter) NotesRefExists() bool {
	_, err := runGit(a.cwd, "show-ref", "--verify", "--quiet", NotesRef)
	return err == nil
}

// NoteExists reports whether a note already exists for hash on NotesRef.
func (a *Adapter) NoteExists(hash string) (bool, error) {
	if err := validation.ValidateFullCommitHash(hash); err != nil {
		return false, err
	}
	_, err := runGit(a.cwd, "notes", "--ref", NotesRef, "show", "--", hash)
	if err != nil {
		// git notes show exits non-zero both for "no note" and for real
		// errors; treat any failure here as "no note" per spec (absence is
		// not an error), callers that need to distinguish real failures
		// should inspect AddNote's error instead.
		return false, nil //nolint:nilerr // absence is not an error
	}
	return true, nil
}

// AddNote attaches value to hash on NotesRef. Fails with ErrNoteAddFailed
// (wrapping the git binary's stderr) if the write does not succeed -- most
// commonly because another process won the ref lock first.
func (a *Adapter) AddNote(hash string, value []byte) error {
	if err := validation.ValidateFullCommitHash(hash); err != nil {
		return err
	}

	cmd := exec.CommandContext(context.Background(), "git", "notes", "--ref", NotesRef, "add", "-F", "-", "--", hash)
	cmd.Dir = a.cwd
	cmd.Stdin = bytes.NewReader(value)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return &giterrs.GitSubprocessError{
			Args:   cmd.Args,
			Stderr: stderr.String(),
			Err:    fmt.Errorf("%w: %v", giterrs.ErrNoteAddFailed, err),
		}
	}
	return nil
}

// ConfigGet reads a git config key, scoped to this repo (global=false) or
// the user's global config (global=true). Returns ("", nil) if unset.
func (a *Adapter) ConfigGet(global bool, key string) (string, error) {
	args := []string{"config"}
	if global {
		args = append(args, "--global")
	}
	args = append(args, "--get", key)

	out, err := runGit(a.cwd, args...)
	if err != nil {
		// git config --get exits 1 for "unset", which is not an error here.
		return "", nil //nolint:nilerr // unset is not an error
	}
	return strings.TrimSpace(out), nil
}

// ConfigSet writes a git config key, scoped to this repo or globally.
func (a *Adapter) ConfigSet(global bool, key, value string) error {
	args := []string{"config"}
	if global {
		args = append(args, "--global")
	}
	args = append(args, "--", key, value)

	_, err := runGit(a.cwd, args...)
	return err
}

// RemoteURLs returns the configured URL of every remote in the repository,
// keyed by remote name.
func (a *Adapter) RemoteURLs() (map[string]string, error) {
	remotes, err := a.repo.Remotes()
	if err != nil {
		return nil, fmt.Errorf("listing remotes: %w", err)
	}
	urls := make(map[string]string, len(remotes))
	for _, r := range remotes {
		cfg := r.Config()
		if len(cfg.URLs) > 0 {
			urls[cfg.Name] = cfg.URLs[0]
		}
	}
	return urls, nil
}

// HasUpstream reports whether the repository has at least one remote with
// a configured URL.
func (a *Adapter) HasUpstream() (bool, error) {
	urls, err := a.RemoteURLs()
	if err != nil {
		return false, err
	}
	return len(urls) > 0, nil
}

// FetchNotes fetches NotesRef from remote into its matching local ref.
// Every fetch failure is swallowed and nil is returned.
func (a *Adapter) FetchNotes(remote string) error {
	refspec := fmt.Sprintf("+%s:%s", NotesRef, NotesRef)
	_, err := runGit(a.cwd, "fetch", remote, refspec)
	if err != nil {
		// Any failure, including a remote with no notes ref yet, is ignored;
		// the caller goes on to push either way.
		return nil //nolint:nilerr // see doc comment
	}
	return nil
}

// PushNotes pushes NotesRef to remote and classifies the outcome.
func (a *Adapter) PushNotes(remote string) (PushOutcome, error) {
	if ok, err := a.HasUpstream(); err != nil || !ok {
		return PushNoUpstream, giterrs.ErrNoUpstream
	}

	refspec := fmt.Sprintf("%s:%s", NotesRef, NotesRef)
	out, err := runGit(a.cwd, "push", remote, refspec)
	if err == nil {
		return PushOK, nil
	}

	combined := out + err.Error()
	if strings.Contains(combined, "non-fast-forward") || strings.Contains(combined, "fetch first") {
		return PushRejected, fmt.Errorf("%w: %s", giterrs.ErrPushRejected, out)
	}
	return PushOther, &giterrs.GitSubprocessError{Args: []string{"push", remote, refspec}, Stderr: out, Err: err}
}

// SetGlobalConfig writes a git config key to the user's global config. It
// does not require an open repository, unlike Adapter.ConfigSet, since the
// installer runs before any repo-scoped state exists.
func SetGlobalConfig(key, value string) error {
	_, err := runGit("", "config", "--global", "--", key, value)
	return err
}

// Time returns the time.Time corresponding to a Unix timestamp, used to
// format session_start headers. Kept here so callers don't import time
// solely to wrap one int64.
func Time(unix int64) time.Time { return time.Unix(unix, 0).UTC() }

func runGit(dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(context.Background(), "git", args...)
	cmd.Dir = orDot(dir)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return stdout.String(), &giterrs.GitSubprocessError{Args: cmd.Args, Stderr: stderr.String(), Err: err}
	}
	return stdout.String(), nil
}
