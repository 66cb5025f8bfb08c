// Package noteformat serializes and parses the Git note value attached to
// a commit: an ordered key:value header, a blank line, then the transcript
// payload verbatim. The header's payload_sha256 binds the two together.
//
// The key ordering and formatting mirror the teacher codebase's commit
// trailer vocabulary (cmd/entire/cli/trailers), re-purposed here for a note
// body instead of a commit message trailer block.
package noteformat

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"golang.org/x/mod/semver"
)

// Confidence is the only confidence value this system ever emits: every
// match is a verbatim commit-hash substring match, never a heuristic.
const Confidence = "exact_hash_match"

// FallbackToolVersion is used when the build-time version string fails
// semver validation, so a broken build doesn't produce an unparsable header.
const FallbackToolVersion = "0.0.0"

// Header keys, in the fixed emission order required by the format.
const (
	KeyAgent        = "agent"
	KeySessionID    = "session_id"
	KeySessionStart = "session_start"
	KeyConfidence   = "confidence"
	KeyPayloadSHA   = "payload_sha256"
	KeyToolVersion  = "tool_version"
)

var headerOrder = []string{KeyAgent, KeySessionID, KeySessionStart, KeyConfidence, KeyPayloadSHA, KeyToolVersion}

// Metadata is the subset of session metadata needed to format a note.
type Metadata struct {
	Agent        string // "claude" | "codex" | "unknown"
	SessionID    string // empty if unknown
	SessionStart *time.Time
}

// Note is the parsed form of a formatted note value.
type Note struct {
	Header  map[string]string
	Payload []byte
}

// Format serializes metadata and payload into a note value: the header
// block (in fixed key order, optional fields omitted when unset), a single
// blank line, then payload verbatim. It is a pure function: the same
// inputs always produce the same bytes.
func Format(meta Metadata, toolVersion string, payload []byte) []byte {
	sum := sha256.Sum256(payload)
	sha := hex.EncodeToString(sum[:])

	version := toolVersion
	if !semver.IsValid(normalizeSemver(version)) {
		version = FallbackToolVersion
	}

	values := map[string]string{
		KeyAgent:       normalizeAgent(meta.Agent),
		KeyConfidence:  Confidence,
		KeyPayloadSHA:  sha,
		KeyToolVersion: version,
	}
	// session_id is emitted even when empty, per spec: "empty if unknown"
	// is itself the specified value, unlike every other optional key.
	values[KeySessionID] = meta.SessionID
	if meta.SessionStart != nil {
		values[KeySessionStart] = meta.SessionStart.UTC().Format(time.RFC3339)
	}

	var buf bytes.Buffer
	for _, key := range headerOrder {
		val, ok := values[key]
		if !ok {
			continue
		}
		if val == "" && key != KeySessionID {
			continue
		}
		fmt.Fprintf(&buf, "%s: %s\n", key, val)
	}
	buf.WriteByte('\n')
	buf.Write(payload)
	return buf.Bytes()
}

// Parse is the inverse of Format: it splits value on the first blank line
// into a header block and a payload, and parses the header's key:value
// lines into a map. It does not itself verify payload_sha256 against the
// payload; callers that need that check call VerifyPayload.
func Parse(value []byte) (*Note, error) {
	sep := []byte("\n\n")
	idx := bytes.Index(value, sep)
	if idx < 0 {
		return nil, fmt.Errorf("noteformat: no header/payload separator found")
	}

	headerBlock := value[:idx]
	payload := value[idx+len(sep):]

	header := make(map[string]string)
	for _, line := range strings.Split(string(headerBlock), "\n") {
		if line == "" {
			continue
		}
		key, val, ok := strings.Cut(line, ": ")
		if !ok {
			return nil, fmt.Errorf("noteformat: malformed header line %q", line)
		}
		header[key] = val
	}

	return &Note{Header: header, Payload: payload}, nil
}

// VerifyPayload reports whether n.Header[payload_sha256] matches the
// SHA-256 of n.Payload, the round-trip invariant every formatted note must
// satisfy.
func (n *Note) VerifyPayload() bool {
	sum := sha256.Sum256(n.Payload)
	return n.Header[KeyPayloadSHA] == hex.EncodeToString(sum[:])
}

func normalizeAgent(agent string) string {
	switch agent {
	case "claude", "codex":
		return agent
	default:
		return "unknown"
	}
}

// normalizeSemver ensures the string has the "v" prefix golang.org/x/mod's
// semver package requires, without forcing every caller to remember that.
func normalizeSemver(v string) string {
	if v == "" {
		return ""
	}
	if v[0] != 'v' {
		return "v" + v
	}
	return v
}
