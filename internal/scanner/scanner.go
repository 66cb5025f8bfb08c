// Package scanner implements the correlation core: finding which transcript
// file (if any) mentions a given commit hash, extracting the session
// metadata that file carries, verifying that metadata actually belongs to
// the commit's repository, and — for hydration — pulling every commit hash
// out of a file at once.
package scanner

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ai-barometer/cli/internal/validation"
)

// scannerBufferSize matches the teacher's transcript scanner: some agent
// logs embed large tool outputs on a single line.
const scannerBufferSize = 10 * 1024 * 1024

// shortHashLen is the length of the abbreviated hash used for substring
// search, per spec (§4.C): matching on the short hash is deliberately
// permissive; verification downstream filters out the false positives it
// admits.
const shortHashLen = 7

// FindSessionForCommit scans files in order and returns the first one
// whose bytes contain hash (as the full hash or its 7-character prefix) as
// a plain substring. It streams each file line by line and never loads a
// whole file into memory; once one file matches, remaining files are not
// opened. hash must already be a validated 40-character hex hash.
func FindSessionForCommit(files []string, hash string) (Match, bool, error) {
	if err := validation.ValidateFullCommitHash(hash); err != nil {
		return Match{}, false, err
	}
	short := hash[:shortHashLen]

	for _, path := range files {
		found, err := fileContainsHash(path, hash, short)
		if err != nil {
			continue // unreadable file: treat like "no match" and try the next
		}
		if found {
			return Match{File: path, AgentKind: inferAgentKind(path)}, true, nil
		}
	}
	return Match{}, false, nil
}

func fileContainsHash(path, full, short string) (bool, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the locator, under a known agent root
	if err != nil {
		return false, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), scannerBufferSize)
	fullB, shortB := []byte(full), []byte(short)
	for scanner.Scan() {
		line := scanner.Bytes()
		if bytes.Contains(line, fullB) || bytes.Contains(line, shortB) {
			return true, nil
		}
	}
	return false, scanner.Err()
}

// metadataLine is the subset of a transcript's JSON shape this pipeline
// reads. Agents vary in which key they use for working directory, so all
// three are tried in the order given; session_id is a separate top-level
// key every agent we support uses directly.
type metadataLine struct {
	SessionID        string `json:"session_id"`
	Cwd              string `json:"cwd"`
	Workdir          string `json:"workdir"`
	WorkingDirectory string `json:"working_directory"`
}

// ParseSessionMetadata streams path line by line, parsing each as a single
// JSON value. The first occurrence of session_id and of any cwd-like key
// wins; once both fields are set, the scan stops early. Unparseable lines
// are skipped, not treated as an error. If neither field is ever found, the
// returned metadata has empty SessionID/Cwd and an AgentKind inferred from
// path alone.
func ParseSessionMetadata(path string) (SessionMetadata, error) {
	meta := SessionMetadata{AgentKind: inferAgentKind(path)}

	f, err := os.Open(path) //nolint:gosec // path comes from the locator/scanner, under a known agent root
	if err != nil {
		return meta, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), scannerBufferSize)

	for scanner.Scan() {
		var line metadataLine
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			continue
		}

		if meta.SessionID == "" && line.SessionID != "" {
			meta.SessionID = line.SessionID
		}
		if meta.Cwd == "" {
			if cwd := firstNonEmpty(line.Cwd, line.Workdir, line.WorkingDirectory); cwd != "" {
				meta.Cwd = cwd
			}
		}

		if meta.SessionID != "" && meta.Cwd != "" {
			break
		}
	}

	return meta, scanner.Err()
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// RepoRootResolver resolves the repository root that contains a given
// directory, matching gitadapter.OpenAt's behavior without creating an
// import cycle between scanner and gitadapter.
type RepoRootResolver func(dir string) (string, error)

// CommitExistsChecker reports whether hash exists in the repository rooted
// at (or reachable from) dir.
type CommitExistsChecker func(dir, hash string) bool

// VerifyMatch is true iff metadata.Cwd is set, the repo root discovered
// from metadata.Cwd canonicalizes to repoRoot, and hash exists in that
// repository. Canonicalization failures fall back to a raw string compare;
// that fallback is safe-negative by construction (it can only cause a
// retry, never a wrong attachment), so resolver errors are not propagated.
func VerifyMatch(repoRoot string, metadata SessionMetadata, hash string, resolve RepoRootResolver, exists CommitExistsChecker) bool {
	if metadata.Cwd == "" {
		return false
	}

	matchedRoot, err := resolve(metadata.Cwd)
	if err != nil || matchedRoot == "" {
		matchedRoot = metadata.Cwd // safe-negative fallback
	}
	wantRoot := repoRoot
	if c, err := filepath.EvalSymlinks(matchedRoot); err == nil {
		matchedRoot = c
	}
	if c, err := filepath.EvalSymlinks(repoRoot); err == nil {
		wantRoot = c
	}
	if matchedRoot != wantRoot {
		return false
	}

	return exists(metadata.Cwd, hash)
}

// ExtractCommitHashes streams path and returns the set of distinct,
// lowercased 40-character hex runs it contains, for hydration's log-first
// scan. A "run" is maximal: it is bounded by a non-hex character (or the
// start/end of the line) on both sides, so runs of 39 or 41 hex characters
// do not match.
func ExtractCommitHashes(path string) (map[string]struct{}, error) {
	hashes := make(map[string]struct{})

	f, err := os.Open(path) //nolint:gosec // path comes from the locator, under a known agent root
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), scannerBufferSize)

	for scanner.Scan() {
		for _, run := range maximalHexRuns(scanner.Text()) {
			if len(run) == validation.MaxHashLen {
				hashes[strings.ToLower(run)] = struct{}{}
			}
		}
	}

	return hashes, scanner.Err()
}

// maximalHexRuns splits line into its maximal runs of hex characters,
// discarding everything in between.
func maximalHexRuns(line string) []string {
	var runs []string
	start := -1
	for i := 0; i <= len(line); i++ {
		isHex := i < len(line) && isHexChar(line[i])
		switch {
		case isHex && start == -1:
			start = i
		case !isHex && start != -1:
			runs = append(runs, line[start:i])
			start = -1
		}
	}
	return runs
}

func isHexChar(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
