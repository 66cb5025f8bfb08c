package locator

import (
	"os"
	"path/filepath"
	"strings"
)

func init() {
	Register(Capability{
		Kind:       AgentClaude,
		Name:       "claude",
		RepoScoped: true,
		Roots:      claudeRoots,
	})
}

// claudeRoots returns every child directory of $HOME/.claude/projects whose
// name contains the encoded form of repoPath, tolerating arbitrary
// prefixes/suffixes Claude Code may add to the directory name.
func claudeRoots(home, repoPath string) []string {
	if home == "" {
		return nil
	}
	projectsRoot := filepath.Join(home, ".claude", "projects")
	entries, err := os.ReadDir(projectsRoot)
	if err != nil {
		return nil
	}

	encoded := EncodeRepoPath(repoPath)
	var dirs []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if strings.Contains(e.Name(), encoded) {
			dirs = append(dirs, filepath.Join(projectsRoot, e.Name()))
		}
	}
	return dirs
}
