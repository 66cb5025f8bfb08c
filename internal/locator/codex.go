package locator

import (
	"os"
	"path/filepath"
)

func init() {
	Register(Capability{
		Kind:       AgentCodex,
		Name:       "codex",
		RepoScoped: false,
		Roots:      codexRoots,
	})
}

// codexRoots returns every child directory of $HOME/.codex/sessions.
// Codex sessions are not repo-scoped, so repoPath is ignored: every session
// directory is a candidate regardless of which repo the hook is running in.
func codexRoots(home, _ string) []string {
	if home == "" {
		return nil
	}
	sessionsRoot := filepath.Join(home, ".codex", "sessions")
	entries, err := os.ReadDir(sessionsRoot)
	if err != nil {
		return nil
	}

	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, filepath.Join(sessionsRoot, e.Name()))
		}
	}
	return dirs
}
