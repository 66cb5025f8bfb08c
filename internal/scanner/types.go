package scanner

import (
	"strings"

	"github.com/ai-barometer/cli/internal/locator"
)

// SessionMetadata holds the fields extracted from a transcript file.
type SessionMetadata struct {
	SessionID string
	Cwd       string
	AgentKind locator.AgentKind
}

// Match is the result of FindSessionForCommit: the file that contained the
// hash, ready for metadata extraction.
type Match struct {
	File      string
	AgentKind locator.AgentKind
}

// inferAgentKind guesses the agent from a transcript file's path. The
// scanner reads no agent field from file contents, so the path is the only
// source of AgentKind.
func inferAgentKind(path string) locator.AgentKind {
	switch {
	case strings.Contains(path, "/.claude/"):
		return locator.AgentClaude
	case strings.Contains(path, "/.codex/"):
		return locator.AgentCodex
	default:
		return locator.AgentUnknown
	}
}
