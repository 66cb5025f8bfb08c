// Package pending implements the per-repository, per-commit retry queue for
// commits that could not be matched to a session at hook time. Records are
// plain JSON files written with a write-to-temp-then-rename pattern so an
// observer never sees a partially written file, grounded on
// original_source/src/pending.rs's directory layout and list/remove shape.
package pending

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ai-barometer/cli/internal/validation"
)

// MaxAttempts is the retry ceiling: a record is removed, not incremented
// past this, after it reaches it.
const MaxAttempts = 20

// Record is one pending commit awaiting a session match.
type Record struct {
	Commit    string `json:"commit"`
	HeadTime  int64  `json:"head_time"`
	Attempts  uint32 `json:"attempts"`
	FirstSeen int64  `json:"first_seen"`
}

// Store is the pending retry queue rooted at a single directory (normally
// $HOME/.ai-barometer/pending).
type Store struct {
	root string
}

// New returns a Store rooted at root. root is created lazily on first write.
func New(root string) *Store { return &Store{root: root} }

// DefaultRoot returns $HOME/.ai-barometer/pending, or an error if HOME is
// unset.
func DefaultRoot() (string, error) {
	home := os.Getenv("HOME")
	if home == "" {
		return "", fmt.Errorf("pending: HOME is not set")
	}
	return filepath.Join(home, ".ai-barometer", "pending"), nil
}

// Fingerprint stably encodes an absolute repo root into a filesystem-safe
// directory name. It reuses the "/" -> "-" encoding the Claude log
// convention already uses elsewhere in this codebase for consistency, and
// appends a short content hash to avoid collisions between paths that would
// otherwise encode identically (e.g. differing only in case on a
// case-insensitive mount).
func Fingerprint(absRepoRoot string) string {
	sum := sha256.Sum256([]byte(absRepoRoot))
	suffix := hex.EncodeToString(sum[:])[:8]
	encoded := strings.ToLower(strings.ReplaceAll(absRepoRoot, "/", "-"))
	encoded = strings.TrimPrefix(encoded, "-")
	return encoded + "-" + suffix
}

func (s *Store) repoDir(absRepoRoot string) string {
	return filepath.Join(s.root, Fingerprint(absRepoRoot))
}

func (s *Store) recordPath(absRepoRoot, commit string) string {
	return filepath.Join(s.repoDir(absRepoRoot), commit+".json")
}

// Upsert creates or updates the pending record for commit. If no record
// exists, one is created with Attempts=1. If a record exists, Attempts is
// incremented. If the increment reaches MaxAttempts, the record is removed
// instead of written, and the commit is permanently abandoned: the caller
// observes this only as the record's absence on the next List.
func (s *Store) Upsert(absRepoRoot, commit string, headTime, now int64) error {
	if err := validation.ValidateFullCommitHash(commit); err != nil {
		return err
	}

	dir := s.repoDir(absRepoRoot)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("pending: creating %s: %w", dir, err)
	}

	path := s.recordPath(absRepoRoot, commit)
	rec := Record{Commit: commit, HeadTime: headTime, Attempts: 1, FirstSeen: now}
	if existing, err := readRecord(path); err == nil {
		rec = *existing
		rec.Attempts++
	}

	if rec.Attempts >= MaxAttempts {
		return s.Remove(absRepoRoot, commit)
	}

	return writeAtomic(path, rec)
}

// List returns every well-formed pending record for the repository.
// Malformed files are skipped, not deleted -- they remain as a breadcrumb
// for a human to investigate.
func (s *Store) List(absRepoRoot string) ([]Record, error) {
	dir := s.repoDir(absRepoRoot)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("pending: listing %s: %w", dir, err)
	}

	var out []Record
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		rec, err := readRecord(filepath.Join(dir, e.Name()))
		if err != nil {
			continue // malformed: leave it, skip it
		}
		out = append(out, *rec)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Commit < out[j].Commit })
	return out, nil
}

// Remove deletes the pending record for commit, if any. Removing an absent
// record is not an error.
func (s *Store) Remove(absRepoRoot, commit string) error {
	path := s.recordPath(absRepoRoot, commit)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("pending: removing %s: %w", path, err)
	}
	return nil
}

func readRecord(path string) (*Record, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path built from validated fingerprint + validated commit hash
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// writeAtomic writes rec to a temp file in the same directory as path, then
// renames it onto path. Concurrent writers racing on the same commit may
// both see the file absent and both write Attempts=1; one rename wins and
// the loser's content is discarded. This is acceptable because Attempts is
// advisory, not a strict counter.
func writeAtomic(path string, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("pending: marshaling record: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("pending: writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("pending: renaming %s to %s: %w", tmp, path, err)
	}
	return nil
}
