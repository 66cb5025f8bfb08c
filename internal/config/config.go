// Package config provides typed getters and setters over the
// ai.barometer.* git config keys spec §3 defines, instead of the teacher's
// own JSON settings file (cmd/entire/cli/settings/settings.go) -- this
// system has no project settings file, only git config.
package config

import "github.com/ai-barometer/cli/internal/gitadapter"

const (
	keyEnabled     = "ai.barometer.enabled"
	keyOrg         = "ai.barometer.org"
	keyPushConsent = "ai.barometer.push-consent"
)

// Enabled reports whether AI Barometer is active for the adapter's repo.
// Per spec §4.G.2, only an explicit "false" disables it; unset or any other
// value means enabled.
func Enabled(a *gitadapter.Adapter) (bool, error) {
	val, err := a.ConfigGet(false, keyEnabled)
	if err != nil {
		return false, err
	}
	return val != "false", nil
}

// SetEnabled writes the per-repo enabled flag.
func SetEnabled(a *gitadapter.Adapter, enabled bool) error {
	return a.ConfigSet(false, keyEnabled, boolStr(enabled))
}

// Org returns the global org allow-list value, or "" if unset.
func Org(a *gitadapter.Adapter) (string, error) {
	return a.ConfigGet(true, keyOrg)
}

// SetOrg persists the global org allow-list value.
func SetOrg(a *gitadapter.Adapter, org string) error {
	return a.ConfigSet(true, keyOrg, org)
}

// SetOrgGlobal persists the global org allow-list value without requiring an
// open repository, for use by the installer, which may run outside one.
func SetOrgGlobal(org string) error {
	return gitadapter.SetGlobalConfig(keyOrg, org)
}

// PushConsent returns the raw persisted consent value ("yes", "no", or "").
func PushConsent(a *gitadapter.Adapter) (string, error) {
	return a.ConfigGet(true, keyPushConsent)
}

// SetPushConsent persists the operator's push-consent decision globally.
func SetPushConsent(a *gitadapter.Adapter, granted bool) error {
	val := "no"
	if granted {
		val = "yes"
	}
	return a.ConfigSet(true, keyPushConsent, val)
}

func boolStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
