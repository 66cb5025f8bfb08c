package logging

import "context"

// Context keys for logging values. Using private types avoids key collisions
// with values set by other packages.
type contextKey int

const (
	repoKey contextKey = iota
	commitKey
	componentKey
	agentKey
)

// WithRepo adds a repository root path to the context.
func WithRepo(ctx context.Context, repo string) context.Context {
	return context.WithValue(ctx, repoKey, repo)
}

// WithCommit adds a commit hash to the context.
func WithCommit(ctx context.Context, commit string) context.Context {
	return context.WithValue(ctx, commitKey, commit)
}

// WithComponent adds a component name (e.g. "hook", "hydrate", "scanner")
// to the context.
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, componentKey, component)
}

// WithAgent adds an agent kind (e.g. "claude", "codex") to the context.
func WithAgent(ctx context.Context, agent string) context.Context {
	return context.WithValue(ctx, agentKey, agent)
}

// RepoFromContext extracts the repository root from the context.
func RepoFromContext(ctx context.Context) string {
	return stringValue(ctx, repoKey)
}

// CommitFromContext extracts the commit hash from the context.
func CommitFromContext(ctx context.Context) string {
	return stringValue(ctx, commitKey)
}

// ComponentFromContext extracts the component name from the context.
func ComponentFromContext(ctx context.Context) string {
	return stringValue(ctx, componentKey)
}

// AgentFromContext extracts the agent kind from the context.
func AgentFromContext(ctx context.Context) string {
	return stringValue(ctx, agentKey)
}

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v := ctx.Value(key); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
