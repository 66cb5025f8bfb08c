package hydrate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ai-barometer/cli/internal/gitadapter"
	"github.com/ai-barometer/cli/internal/testutil"
	"github.com/google/uuid"
)

func chtimes(path string, mtime time.Time) error {
	return os.Chtimes(path, mtime, mtime)
}

func newTestRepo(t *testing.T) (repoDir, home string) {
	t.Helper()
	home = t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", "")

	repoDir = t.TempDir()
	testutil.InitRepo(t, repoDir)
	return repoDir, home
}

func TestRun_AttachesNoteForHashMentionedInLog(t *testing.T) {
	repoDir, home := newTestRepo(t)
	testutil.WriteFile(t, repoDir, "README.md", "hello")
	hash := testutil.CommitAll(t, repoDir, "initial")
	testutil.FakeClaudeLog(t, home, repoDir, hash)

	var out bytes.Buffer
	summary, err := Run(context.Background(), &out, repoDir, Options{
		Since:       7 * 24 * time.Hour,
		Home:        home,
		ToolVersion: "0.5.0",
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if summary.Attached != 1 {
		t.Errorf("Attached = %d, want 1\noutput:\n%s", summary.Attached, out.String())
	}

	a, err := gitadapter.OpenAt(repoDir)
	if err != nil {
		t.Fatalf("OpenAt returned error: %v", err)
	}
	exists, err := a.NoteExists(hash)
	if err != nil {
		t.Fatalf("NoteExists returned error: %v", err)
	}
	if !exists {
		t.Error("NoteExists() = false after hydration, want true")
	}
}

func TestRun_SkipsAlreadyAttachedCommit(t *testing.T) {
	repoDir, home := newTestRepo(t)
	testutil.WriteFile(t, repoDir, "README.md", "hello")
	hash := testutil.CommitAll(t, repoDir, "initial")
	testutil.FakeClaudeLog(t, home, repoDir, hash)

	var out bytes.Buffer
	opts := Options{Since: 7 * 24 * time.Hour, Home: home, ToolVersion: "0.5.0"}
	if _, err := Run(context.Background(), &out, repoDir, opts); err != nil {
		t.Fatalf("first Run returned error: %v", err)
	}

	summary, err := Run(context.Background(), &out, repoDir, opts)
	if err != nil {
		t.Fatalf("second Run returned error: %v", err)
	}
	if summary.Attached != 0 {
		t.Errorf("Attached = %d on second run, want 0", summary.Attached)
	}
	if summary.SkippedAlreadyAttached != 1 {
		t.Errorf("SkippedAlreadyAttached = %d, want 1", summary.SkippedAlreadyAttached)
	}
}

func TestRun_SkipsFileWithNoHashes(t *testing.T) {
	repoDir, home := newTestRepo(t)
	testutil.WriteFile(t, repoDir, "README.md", "hello")
	testutil.CommitAll(t, repoDir, "initial")

	// One recent session log that mentions no commit hash at all.
	dir := filepath.Join(home, ".claude", "projects", "-no-hashes")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll returned error: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "session.jsonl"), []byte(`{"message":"no commit mentioned here"}`+"\n"), 0o600); err != nil {
		t.Fatalf("WriteFile returned error: %v", err)
	}

	var out bytes.Buffer
	summary, err := Run(context.Background(), &out, repoDir, Options{
		Since:       7 * 24 * time.Hour,
		Home:        home,
		ToolVersion: "0.5.0",
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if summary.SkippedNoHashes != 1 {
		t.Errorf("SkippedNoHashes = %d, want 1 for a log with no hashes", summary.SkippedNoHashes)
	}
	if summary.Attached != 0 {
		t.Errorf("Attached = %d, want 0 with no hashes present", summary.Attached)
	}
}

func TestRun_LogWithOneRealHashAndOneTraceIDAttachesOnlyTheReal(t *testing.T) {
	repoDir, home := newTestRepo(t)
	testutil.WriteFile(t, repoDir, "README.md", "hello")
	hash := testutil.CommitAll(t, repoDir, "initial")

	traceID := "ffffffffffffffffffffffffffffffffffffffff"
	dir := filepath.Join(home, ".codex", "sessions", uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll returned error: %v", err)
	}
	path := filepath.Join(dir, "session.jsonl")
	writeCodexLogWithTwoHashes(t, path, repoDir, hash, traceID)

	var out bytes.Buffer
	summary, err := Run(context.Background(), &out, repoDir, Options{
		Since:       7 * 24 * time.Hour,
		Home:        home,
		ToolVersion: "0.5.0",
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if summary.Attached != 1 {
		t.Errorf("Attached = %d, want exactly 1 (the real commit, not the trace id)\noutput:\n%s", summary.Attached, out.String())
	}

	a, err := gitadapter.OpenAt(repoDir)
	if err != nil {
		t.Fatalf("OpenAt returned error: %v", err)
	}
	if exists, err := a.NoteExists(traceID); err == nil && exists {
		t.Error("a note was attached for the trace id, which is not a real commit")
	}
}

func writeCodexLogWithTwoHashes(t *testing.T, path, cwd, realHash, traceID string) {
	t.Helper()

	type line struct {
		SessionID string `json:"session_id,omitempty"`
		Cwd       string `json:"cwd,omitempty"`
		Message   string `json:"message,omitempty"`
	}
	lines := []line{
		{SessionID: uuid.NewString(), Cwd: cwd},
		{Message: fmt.Sprintf("committed as %s, saw trace %s in the logs", realHash, traceID)},
	}

	var buf []byte
	for _, l := range lines {
		data, err := json.Marshal(l)
		if err != nil {
			t.Fatalf("marshaling transcript line: %v", err)
		}
		buf = append(buf, data...)
		buf = append(buf, '\n')
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil { //nolint:gosec // test fixture
		t.Fatalf("writing transcript: %v", err)
	}
}

func TestRun_VerboseOptionPrintsPerCommitProgress(t *testing.T) {
	repoDir, home := newTestRepo(t)
	testutil.WriteFile(t, repoDir, "README.md", "hello")
	hash := testutil.CommitAll(t, repoDir, "initial")
	testutil.FakeClaudeLog(t, home, repoDir, hash)

	var out bytes.Buffer
	if _, err := Run(context.Background(), &out, repoDir, Options{
		Since:       7 * 24 * time.Hour,
		Home:        home,
		ToolVersion: "0.5.0",
		Verbose:     true,
	}); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !bytes.Contains(out.Bytes(), []byte("attached "+hash[:7])) {
		t.Errorf("output = %q, want a verbose attached-commit line for %s", out.String(), hash[:7])
	}
}

func TestRun_QuietByDefaultOmitsPerCommitProgress(t *testing.T) {
	repoDir, home := newTestRepo(t)
	testutil.WriteFile(t, repoDir, "README.md", "hello")
	hash := testutil.CommitAll(t, repoDir, "initial")
	testutil.FakeClaudeLog(t, home, repoDir, hash)

	var out bytes.Buffer
	if _, err := Run(context.Background(), &out, repoDir, Options{
		Since:       7 * 24 * time.Hour,
		Home:        home,
		ToolVersion: "0.5.0",
	}); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if bytes.Contains(out.Bytes(), []byte("attached "+hash[:7])) {
		t.Errorf("output = %q, want no per-commit line without --verbose", out.String())
	}
}

func TestRun_EventLogUsesDocumentedEventNames(t *testing.T) {
	repoDir, home := newTestRepo(t)
	testutil.WriteFile(t, repoDir, "README.md", "hello")
	hash := testutil.CommitAll(t, repoDir, "initial")
	testutil.FakeClaudeLog(t, home, repoDir, hash)

	var out bytes.Buffer
	if _, err := Run(context.Background(), &out, repoDir, Options{
		Since:       7 * 24 * time.Hour,
		Home:        home,
		ToolVersion: "0.5.0",
	}); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	configDir, err := ConfigDir(home)
	if err != nil {
		t.Fatalf("ConfigDir returned error: %v", err)
	}
	entries, err := os.ReadDir(configDir)
	if err != nil {
		t.Fatalf("ReadDir returned error: %v", err)
	}

	var logPath string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "backfill.") {
			logPath = filepath.Join(configDir, e.Name())
		}
	}
	if logPath == "" {
		t.Fatal("no backfill.*.log file was created")
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("ReadFile returned error: %v", err)
	}

	documented := map[string]bool{
		"session_scanned":        true,
		"session_skipped":        true,
		"note_attached":          true,
		"hash_skipped_no_commit": true,
	}
	sawNoteAttached := false
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		var row struct {
			Event string `json:"event"`
		}
		if err := json.Unmarshal([]byte(line), &row); err != nil {
			t.Fatalf("unmarshaling event log row %q: %v", line, err)
		}
		if !documented[row.Event] {
			t.Errorf("event log row has undocumented event name %q", row.Event)
		}
		if row.Event == "note_attached" {
			sawNoteAttached = true
		}
	}
	if !sawNoteAttached {
		t.Error("event log never recorded a note_attached event for the attached commit")
	}
}

func TestRun_OutsideSinceWindowIsNotScanned(t *testing.T) {
	repoDir, home := newTestRepo(t)
	testutil.WriteFile(t, repoDir, "README.md", "hello")
	hash := testutil.CommitAll(t, repoDir, "initial")
	path, _ := testutil.FakeClaudeLog(t, home, repoDir, hash)

	old := time.Now().Add(-30 * 24 * time.Hour)
	if err := chtimes(path, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	var out bytes.Buffer
	summary, err := Run(context.Background(), &out, repoDir, Options{
		Since:       7 * 24 * time.Hour,
		Home:        home,
		ToolVersion: "0.5.0",
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if summary.Attached != 0 {
		t.Errorf("Attached = %d, want 0 for a log outside the --since window", summary.Attached)
	}
}
