package scanner

import (
	"os"
	"path/filepath"
	"testing"
)

const fullHash = "1234567890abcdef1234567890abcdef12345678"

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil { //nolint:gosec // test fixture
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}

func TestFindSessionForCommit_MatchesFullHash(t *testing.T) {
	dir := t.TempDir()
	a := writeTempFile(t, dir, "a.jsonl", `{"message":"hello"}`+"\n")
	b := writeTempFile(t, dir, "b.jsonl", `{"message":"committed as `+fullHash+`"}`+"\n")

	match, found, err := FindSessionForCommit([]string{a, b}, fullHash)
	if err != nil {
		t.Fatalf("FindSessionForCommit returned error: %v", err)
	}
	if !found {
		t.Fatal("found = false, want true")
	}
	if match.File != b {
		t.Errorf("File = %q, want %q", match.File, b)
	}
}

func TestFindSessionForCommit_MatchesShortHashPrefix(t *testing.T) {
	dir := t.TempDir()
	short := fullHash[:7]
	f := writeTempFile(t, dir, "a.jsonl", `{"message":"see `+short+` for details"}`+"\n")

	_, found, err := FindSessionForCommit([]string{f}, fullHash)
	if err != nil {
		t.Fatalf("FindSessionForCommit returned error: %v", err)
	}
	if !found {
		t.Error("found = false, want true for a short-hash substring match")
	}
}

func TestFindSessionForCommit_NoMatch(t *testing.T) {
	dir := t.TempDir()
	f := writeTempFile(t, dir, "a.jsonl", `{"message":"nothing relevant here"}`+"\n")

	_, found, err := FindSessionForCommit([]string{f}, fullHash)
	if err != nil {
		t.Fatalf("FindSessionForCommit returned error: %v", err)
	}
	if found {
		t.Error("found = true, want false")
	}
}

func TestFindSessionForCommit_RejectsShortHashArgument(t *testing.T) {
	_, _, err := FindSessionForCommit(nil, fullHash[:7])
	if err == nil {
		t.Error("FindSessionForCommit with a short hash argument returned nil error, want rejection")
	}
}

func TestFindSessionForCommit_SkipsUnreadableFiles(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "does-not-exist.jsonl")
	present := writeTempFile(t, dir, "b.jsonl", `{"message":"`+fullHash+`"}`+"\n")

	match, found, err := FindSessionForCommit([]string{missing, present}, fullHash)
	if err != nil {
		t.Fatalf("FindSessionForCommit returned error: %v", err)
	}
	if !found || match.File != present {
		t.Errorf("expected match on %q, got found=%v file=%q", present, found, match.File)
	}
}

func TestFindSessionForCommit_ShortPrefixCollisionIsAPermissiveMatch(t *testing.T) {
	// A transcript mentioning a different commit that happens to share
	// hash's 7-character prefix still counts as a substring match here:
	// short-hash matching is deliberately permissive, and it's VerifyMatch,
	// not FindSessionForCommit, that is responsible for rejecting the false
	// positives this admits.
	dir := t.TempDir()
	otherHash := fullHash[:7] + "fffffffffffffffffffffffffffff0000"
	if otherHash == fullHash || len(otherHash) != 40 {
		t.Fatalf("test fixture invariant broken: otherHash=%q fullHash=%q", otherHash, fullHash)
	}
	f := writeTempFile(t, dir, "a.jsonl", `{"message":"see `+otherHash+` for details"}`+"\n")

	_, found, err := FindSessionForCommit([]string{f}, fullHash)
	if err != nil {
		t.Fatalf("FindSessionForCommit returned error: %v", err)
	}
	if !found {
		t.Error("found = false for a prefix-colliding commit, want true (permissive short-hash match)")
	}
}

func TestParseSessionMetadata_FirstValueWins(t *testing.T) {
	dir := t.TempDir()
	content := `{"session_id":"first","cwd":"/repo/one"}
{"session_id":"second","cwd":"/repo/two"}
`
	f := writeTempFile(t, dir, "a.jsonl", content)

	meta, err := ParseSessionMetadata(f)
	if err != nil {
		t.Fatalf("ParseSessionMetadata returned error: %v", err)
	}
	if meta.SessionID != "first" {
		t.Errorf("SessionID = %q, want %q", meta.SessionID, "first")
	}
	if meta.Cwd != "/repo/one" {
		t.Errorf("Cwd = %q, want %q", meta.Cwd, "/repo/one")
	}
}

func TestParseSessionMetadata_TriesAlternateCwdKeys(t *testing.T) {
	dir := t.TempDir()
	f := writeTempFile(t, dir, "a.jsonl", `{"workdir":"/repo/alt"}`+"\n")

	meta, err := ParseSessionMetadata(f)
	if err != nil {
		t.Fatalf("ParseSessionMetadata returned error: %v", err)
	}
	if meta.Cwd != "/repo/alt" {
		t.Errorf("Cwd = %q, want %q", meta.Cwd, "/repo/alt")
	}
}

func TestParseSessionMetadata_SkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	content := "not json\n" + `{"session_id":"ok","cwd":"/repo"}` + "\n"
	f := writeTempFile(t, dir, "a.jsonl", content)

	meta, err := ParseSessionMetadata(f)
	if err != nil {
		t.Fatalf("ParseSessionMetadata returned error: %v", err)
	}
	if meta.SessionID != "ok" {
		t.Errorf("SessionID = %q, want ok", meta.SessionID)
	}
}

func TestVerifyMatch_SucceedsWhenRootAndCommitMatch(t *testing.T) {
	resolve := func(dir string) (string, error) { return "/repo", nil }
	exists := func(dir, hash string) bool { return true }

	meta := SessionMetadata{Cwd: "/repo/sub"}
	if !VerifyMatch("/repo", meta, fullHash, resolve, exists) {
		t.Error("VerifyMatch() = false, want true")
	}
}

func TestVerifyMatch_FailsOnRootMismatch(t *testing.T) {
	resolve := func(dir string) (string, error) { return "/other-repo", nil }
	exists := func(dir, hash string) bool { return true }

	meta := SessionMetadata{Cwd: "/repo/sub"}
	if VerifyMatch("/repo", meta, fullHash, resolve, exists) {
		t.Error("VerifyMatch() = true, want false on root mismatch")
	}
}

func TestVerifyMatch_FailsWhenCommitAbsent(t *testing.T) {
	resolve := func(dir string) (string, error) { return "/repo", nil }
	exists := func(dir, hash string) bool { return false }

	meta := SessionMetadata{Cwd: "/repo"}
	if VerifyMatch("/repo", meta, fullHash, resolve, exists) {
		t.Error("VerifyMatch() = true, want false when the commit doesn't exist")
	}
}

func TestVerifyMatch_FailsWhenCwdUnset(t *testing.T) {
	resolve := func(dir string) (string, error) { return "/repo", nil }
	exists := func(dir, hash string) bool { return true }

	if VerifyMatch("/repo", SessionMetadata{}, fullHash, resolve, exists) {
		t.Error("VerifyMatch() = true, want false when metadata.Cwd is empty")
	}
}

func TestVerifyMatch_FallsBackSafelyOnResolverError(t *testing.T) {
	resolve := func(dir string) (string, error) { return "", os.ErrNotExist }
	exists := func(dir, hash string) bool { return true }

	meta := SessionMetadata{Cwd: "/repo"}
	// resolve fails, so the raw cwd string is compared against repoRoot
	// directly; here they match.
	if !VerifyMatch("/repo", meta, fullHash, resolve, exists) {
		t.Error("VerifyMatch() = false, want true when the fallback string compare matches")
	}
}

func TestExtractCommitHashes_FindsOnlyExactly40CharRuns(t *testing.T) {
	dir := t.TempDir()
	short := fullHash[:39]
	long := fullHash + "9"
	content := fullHash + "\n" + short + "\n" + long + "\n"
	f := writeTempFile(t, dir, "a.jsonl", content)

	hashes, err := ExtractCommitHashes(f)
	if err != nil {
		t.Fatalf("ExtractCommitHashes returned error: %v", err)
	}
	if len(hashes) != 1 {
		t.Fatalf("len(hashes) = %d, want 1; got %v", len(hashes), hashes)
	}
	if _, ok := hashes[fullHash]; !ok {
		t.Errorf("expected %q in result set, got %v", fullHash, hashes)
	}
}

func TestExtractCommitHashes_DedupsAndLowercases(t *testing.T) {
	dir := t.TempDir()
	upper := "1234567890ABCDEF1234567890ABCDEF12345678"
	content := fullHash + "\n" + upper + "\n" + fullHash + "\n"
	f := writeTempFile(t, dir, "a.jsonl", content)

	hashes, err := ExtractCommitHashes(f)
	if err != nil {
		t.Fatalf("ExtractCommitHashes returned error: %v", err)
	}
	if len(hashes) != 1 {
		t.Fatalf("len(hashes) = %d, want 1 (deduped, case-insensitive); got %v", len(hashes), hashes)
	}
}

func TestExtractCommitHashes_EmptyFileYieldsNoHashes(t *testing.T) {
	dir := t.TempDir()
	f := writeTempFile(t, dir, "a.jsonl", "")

	hashes, err := ExtractCommitHashes(f)
	if err != nil {
		t.Fatalf("ExtractCommitHashes returned error: %v", err)
	}
	if len(hashes) != 0 {
		t.Errorf("len(hashes) = %d, want 0", len(hashes))
	}
}
