// Package testutil provides shared fixtures for this module's tests: git
// repo setup and fake agent transcript files. Grounded on the teacher's
// cmd/entire/cli/testutil/testutil.go, trimmed to what this domain's tests
// need (no checkpoint/rewind fixtures) and extended with fake transcript
// generators for the two supported agent kinds.
package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/format/config"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/ai-barometer/cli/internal/locator"
	"github.com/google/uuid"
)

// InitRepo initializes a git repository in repoDir with test committer
// identity and GPG signing disabled, so CommitAll never blocks on a
// missing signing key.
func InitRepo(t *testing.T, repoDir string) {
	t.Helper()

	repo, err := git.PlainInit(repoDir, false)
	if err != nil {
		t.Fatalf("failed to init git repo: %v", err)
	}

	cfg, err := repo.Config()
	if err != nil {
		t.Fatalf("failed to get repo config: %v", err)
	}
	cfg.User.Name = "Test User"
	cfg.User.Email = "test@example.com"
	if cfg.Raw == nil {
		cfg.Raw = config.New()
	}
	cfg.Raw.Section("commit").SetOption("gpgsign", "false")

	if err := repo.SetConfig(cfg); err != nil {
		t.Fatalf("failed to set repo config: %v", err)
	}
}

// WriteFile creates a file with content under repoDir, creating parent
// directories as needed.
func WriteFile(t *testing.T, repoDir, path, content string) {
	t.Helper()

	fullPath := filepath.Join(repoDir, path)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil { //nolint:gosec // test fixture
		t.Fatalf("failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(fullPath, []byte(content), 0o644); err != nil { //nolint:gosec // test fixture
		t.Fatalf("failed to write file %s: %v", path, err)
	}
}

// CommitAll stages every change in the worktree and commits it, returning
// the new commit's hash.
func CommitAll(t *testing.T, repoDir, message string) string {
	t.Helper()

	repo, err := git.PlainOpen(repoDir)
	if err != nil {
		t.Fatalf("failed to open git repo: %v", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		t.Fatalf("failed to get worktree: %v", err)
	}
	if _, err := worktree.Add("."); err != nil {
		t.Fatalf("failed to stage changes: %v", err)
	}

	hash, err := worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  "Test User",
			Email: "test@example.com",
			When:  time.Now(),
		},
	})
	if err != nil {
		t.Fatalf("failed to commit: %v", err)
	}
	return hash.String()
}

// GetHeadHash returns the current HEAD commit hash of repoDir.
func GetHeadHash(t *testing.T, repoDir string) string {
	t.Helper()

	repo, err := git.PlainOpen(repoDir)
	if err != nil {
		t.Fatalf("failed to open git repo: %v", err)
	}
	head, err := repo.Head()
	if err != nil {
		t.Fatalf("failed to get HEAD: %v", err)
	}
	return head.Hash().String()
}

// transcriptLine is the minimal shape both fake generators emit; it uses the
// session_id key and "cwd", the first of the cwd-like keys internal/scanner
// reads.
type transcriptLine struct {
	SessionID string `json:"session_id,omitempty"`
	Cwd       string `json:"cwd,omitempty"`
	Message   string `json:"message,omitempty"`
}

// FakeClaudeLog writes a Claude-like transcript file under
// <home>/.claude/projects/<encoded-repoPath>/<uuid>.jsonl mentioning commit
// hash hash, with repoPath as its cwd and a freshly generated session_id. It
// returns the file path and the session id used.
func FakeClaudeLog(t *testing.T, home, repoPath, hash string) (path, sessionID string) {
	t.Helper()

	encoded := locator.EncodeRepoPath(repoPath)
	dir := filepath.Join(home, ".claude", "projects", encoded)
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // test fixture
		t.Fatalf("failed to create claude project dir: %v", err)
	}

	sessionID = uuid.NewString()
	path = filepath.Join(dir, uuid.NewString()+".jsonl")
	writeTranscript(t, path, sessionID, repoPath, hash)
	return path, sessionID
}

// FakeCodexLog writes a Codex-like transcript file under
// <home>/.codex/sessions/<uuid>/<uuid>.jsonl mentioning commit hash hash.
func FakeCodexLog(t *testing.T, home, repoPath, hash string) (path, sessionID string) {
	t.Helper()

	dir := filepath.Join(home, ".codex", "sessions", uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // test fixture
		t.Fatalf("failed to create codex session dir: %v", err)
	}

	sessionID = uuid.NewString()
	path = filepath.Join(dir, uuid.NewString()+".jsonl")
	writeTranscript(t, path, sessionID, repoPath, hash)
	return path, sessionID
}

func writeTranscript(t *testing.T, path, sessionID, cwd, hash string) {
	t.Helper()

	lines := []transcriptLine{
		{SessionID: sessionID, Cwd: cwd},
		{Message: "committed as " + hash},
	}

	var buf []byte
	for _, l := range lines {
		data, err := json.Marshal(l)
		if err != nil {
			t.Fatalf("failed to marshal fixture line: %v", err)
		}
		buf = append(buf, data...)
		buf = append(buf, '\n')
	}

	if err := os.WriteFile(path, buf, 0o644); err != nil { //nolint:gosec // test fixture
		t.Fatalf("failed to write transcript %s: %v", path, err)
	}
}
