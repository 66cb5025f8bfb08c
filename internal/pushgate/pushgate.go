// Package pushgate decides whether the notes ref should be pushed after a
// commit, and performs that push. The decision procedure -- upstream check,
// org allow-list, one-time consent -- is grounded on original_source/src/
// push.rs's should_push/check_org_filter/check_or_request_consent ordering;
// the fetch-then-retry-once push shape is grounded on the teacher's
// cmd/entire/cli/strategy/push_common.go.
//
// Every failure in this package is logged, never returned to a caller that
// would propagate it into the hook's exit status: per spec, a push failure
// must never affect the commit.
package pushgate

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/ai-barometer/cli/internal/config"
	"github.com/ai-barometer/cli/internal/gitadapter"
	"github.com/ai-barometer/cli/internal/logging"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"
)

const (
	consentYes = "yes"
	consentNo  = "no"
)

// Outcome classifies why Attempt did or didn't push.
type Outcome int

const (
	OutcomeNoUpstream Outcome = iota
	OutcomeOrgFilterRejected
	OutcomeConsentDenied
	OutcomePushed
	OutcomePushFailed
)

// Result is the outcome of one Attempt call, reported to the caller mainly
// for tests; the hook pipeline only logs it.
type Result struct {
	Outcome Outcome
	Pushed  []string // remotes successfully pushed to
	Failed  map[string]error
}

// ConsentPrompter asks the operator whether to enable autopush and returns
// their answer. The production prompter is Prompt (below); tests supply a
// stub.
type ConsentPrompter func() (bool, error)

// Attempt runs the full push-gate decision procedure and, if it decides to
// push, pushes the notes ref to every remote the org filter allows. It never
// returns an error: every failure is folded into Result and logged.
func Attempt(ctx context.Context, a *gitadapter.Adapter, prompt ConsentPrompter) Result {
	hasUpstream, err := a.HasUpstream()
	if err != nil || !hasUpstream {
		logging.Debug(ctx, "push gate: no upstream, skipping")
		return Result{Outcome: OutcomeNoUpstream}
	}

	urls, err := a.RemoteURLs()
	if err != nil {
		logging.Warn(ctx, "push gate: listing remotes failed", "error", err)
		return Result{Outcome: OutcomeNoUpstream}
	}

	org, _ := config.Org(a)
	remotes := candidateRemotes(urls, org)
	if len(remotes) == 0 {
		logging.Debug(ctx, "push gate: no remote matches org filter", "org", org)
		return Result{Outcome: OutcomeOrgFilterRejected}
	}

	consented, err := checkOrRequestConsent(a, prompt)
	if err != nil {
		logging.Warn(ctx, "push gate: consent check failed", "error", err)
		return Result{Outcome: OutcomeConsentDenied}
	}
	if !consented {
		logging.Debug(ctx, "push gate: consent not given")
		return Result{Outcome: OutcomeConsentDenied}
	}

	result := Result{Outcome: OutcomePushed, Failed: make(map[string]error)}
	for _, remote := range remotes {
		if err := pushOneRemote(ctx, a, remote); err != nil {
			logging.Warn(ctx, "push gate: push failed", "remote", remote, "error", err)
			result.Failed[remote] = err
			continue
		}
		result.Pushed = append(result.Pushed, remote)
	}

	if len(result.Pushed) == 0 && len(result.Failed) > 0 {
		result.Outcome = OutcomePushFailed
	}
	return result
}

// pushOneRemote fetches, pushes, and on a non-fast-forward rejection fetches
// again and retries exactly once, per spec §4.F.4.
func pushOneRemote(ctx context.Context, a *gitadapter.Adapter, remote string) error {
	if err := a.FetchNotes(remote); err != nil {
		logging.Debug(ctx, "push gate: fetch before push failed, continuing anyway", "remote", remote, "error", err)
	}

	outcome, err := a.PushNotes(remote)
	switch outcome {
	case gitadapter.PushOK:
		return nil
	case gitadapter.PushRejected:
		if ferr := a.FetchNotes(remote); ferr != nil {
			return fmt.Errorf("re-fetch after rejection: %w", ferr)
		}
		if outcome2, err2 := a.PushNotes(remote); outcome2 == gitadapter.PushOK {
			return nil
		} else {
			return fmt.Errorf("push retry failed: %w", err2)
		}
	default:
		return err
	}
}

// candidateRemotes returns the names of remotes a push should target. With
// no org filter, every remote with a URL is a candidate. With a filter, only
// remotes whose URL's org segment matches (case-insensitively) qualify.
func candidateRemotes(urls map[string]string, org string) []string {
	var out []string
	for name, url := range urls {
		if org == "" {
			out = append(out, name)
			continue
		}
		if remoteOrg, ok := extractOrg(url); ok && strings.EqualFold(remoteOrg, org) {
			out = append(out, name)
		}
	}
	return out
}

var (
	httpsOrgPattern = regexp.MustCompile(`^https?://[^/]+/([^/]+)/`)
	sshOrgPattern   = regexp.MustCompile(`^[^@]+@[^:]+:([^/]+)/`)
)

// extractOrg pulls the organization segment out of a remote URL in either
// the "https://host/<org>/<repo>" or "git@host:<org>/<repo>.git" form.
func extractOrg(url string) (string, bool) {
	if m := httpsOrgPattern.FindStringSubmatch(url); m != nil {
		return m[1], true
	}
	if m := sshOrgPattern.FindStringSubmatch(url); m != nil {
		return m[1], true
	}
	return "", false
}

// checkOrRequestConsent reads the persisted consent setting; if unset, it
// prompts interactively exactly once (or defaults to "no" on a non-TTY
// stdin) and persists the answer globally.
func checkOrRequestConsent(a *gitadapter.Adapter, prompt ConsentPrompter) (bool, error) {
	val, err := config.PushConsent(a)
	if err != nil {
		return false, err
	}
	switch val {
	case consentYes:
		return true, nil
	case consentNo:
		return false, nil
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false, config.SetPushConsent(a, false)
	}

	granted, err := prompt()
	if err != nil {
		return false, err
	}
	if err := config.SetPushConsent(a, granted); err != nil {
		return false, err
	}
	return granted, nil
}

// Prompt is the production ConsentPrompter: a single yes/no confirmation
// asking whether AI Barometer may push session notes to the remote.
func Prompt() (bool, error) {
	var confirmed bool
	err := huh.NewConfirm().
		Title("Push AI session notes to the remote?").
		Description("AI Barometer will push refs/notes/ai-sessions alongside your commits.\nYou can change this later with: git config --global ai.barometer.push-consent no").
		Affirmative("Yes").
		Negative("No").
		Value(&confirmed).
		Run()
	if err != nil {
		return false, fmt.Errorf("pushgate: consent prompt: %w", err)
	}
	return confirmed, nil
}
