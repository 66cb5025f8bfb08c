package logging

import (
	"context"
	"testing"
)

func TestWithRepo_RoundTripsThroughContext(t *testing.T) {
	ctx := WithRepo(context.Background(), "/repo")
	if got := RepoFromContext(ctx); got != "/repo" {
		t.Errorf("RepoFromContext() = %q, want %q", got, "/repo")
	}
}

func TestWithCommit_RoundTripsThroughContext(t *testing.T) {
	ctx := WithCommit(context.Background(), "abc123")
	if got := CommitFromContext(ctx); got != "abc123" {
		t.Errorf("CommitFromContext() = %q, want %q", got, "abc123")
	}
}

func TestWithComponent_RoundTripsThroughContext(t *testing.T) {
	ctx := WithComponent(context.Background(), "hook")
	if got := ComponentFromContext(ctx); got != "hook" {
		t.Errorf("ComponentFromContext() = %q, want %q", got, "hook")
	}
}

func TestWithAgent_RoundTripsThroughContext(t *testing.T) {
	ctx := WithAgent(context.Background(), "claude")
	if got := AgentFromContext(ctx); got != "claude" {
		t.Errorf("AgentFromContext() = %q, want %q", got, "claude")
	}
}

func TestWithValues_ComposeWithoutOverwriting(t *testing.T) {
	ctx := context.Background()
	ctx = WithRepo(ctx, "/repo")
	ctx = WithCommit(ctx, "abc123")
	ctx = WithComponent(ctx, "hydrate")
	ctx = WithAgent(ctx, "codex")

	if got := RepoFromContext(ctx); got != "/repo" {
		t.Errorf("RepoFromContext() = %q, want %q", got, "/repo")
	}
	if got := CommitFromContext(ctx); got != "abc123" {
		t.Errorf("CommitFromContext() = %q, want %q", got, "abc123")
	}
	if got := ComponentFromContext(ctx); got != "hydrate" {
		t.Errorf("ComponentFromContext() = %q, want %q", got, "hydrate")
	}
	if got := AgentFromContext(ctx); got != "codex" {
		t.Errorf("AgentFromContext() = %q, want %q", got, "codex")
	}
}

func TestFromContext_EmptyWhenUnset(t *testing.T) {
	ctx := context.Background()
	if got := RepoFromContext(ctx); got != "" {
		t.Errorf("RepoFromContext() = %q on a bare context, want empty", got)
	}
	if got := CommitFromContext(ctx); got != "" {
		t.Errorf("CommitFromContext() = %q on a bare context, want empty", got)
	}
	if got := ComponentFromContext(ctx); got != "" {
		t.Errorf("ComponentFromContext() = %q on a bare context, want empty", got)
	}
	if got := AgentFromContext(ctx); got != "" {
		t.Errorf("AgentFromContext() = %q on a bare context, want empty", got)
	}
}

func TestFromContext_SafeOnNilContext(t *testing.T) {
	if got := RepoFromContext(nil); got != "" { //nolint:staticcheck // exercising the nil-safety guard
		t.Errorf("RepoFromContext(nil) = %q, want empty", got)
	}
}
