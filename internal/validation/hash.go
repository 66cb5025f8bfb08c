// Package validation provides input validation shared across the
// ai-barometer pipeline. It has no dependencies on other internal packages
// to avoid import cycles.
package validation

import (
	"fmt"

	"github.com/ai-barometer/cli/internal/giterrs"
)

// MinHashLen is the shortest commit-identifier prefix accepted by the
// validator (the "short hash" used for in-log substring search).
const MinHashLen = 7

// MaxHashLen is the length of a full commit hash.
const MaxHashLen = 40

// ValidateCommitHash checks that s is a lowercase hex string of length
// [MinHashLen, MaxHashLen]. It rejects uppercase hex on purpose: every hash
// this system produces or compares against (git rev-parse, JSON transcript
// fields) is already lowercase, so accepting mixed case would only mask
// bugs upstream.
func ValidateCommitHash(s string) error {
	if len(s) < MinHashLen || len(s) > MaxHashLen {
		return fmt.Errorf("%w: %q has length %d, want [%d,%d]", giterrs.ErrInvalidHash, s, len(s), MinHashLen, MaxHashLen)
	}
	for _, c := range s {
		if !isLowerHex(c) {
			return fmt.Errorf("%w: %q contains non-hex character %q", giterrs.ErrInvalidHash, s, c)
		}
	}
	return nil
}

// ValidateFullCommitHash checks that s is exactly MaxHashLen lowercase hex
// characters. Note operations require the full hash, not a prefix.
func ValidateFullCommitHash(s string) error {
	if len(s) != MaxHashLen {
		return fmt.Errorf("%w: %q has length %d, want %d", giterrs.ErrInvalidHash, s, len(s), MaxHashLen)
	}
	return ValidateCommitHash(s)
}

func isLowerHex(c rune) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')
}
