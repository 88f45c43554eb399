package manager

import (
	"time"

	"aegis-hq/warden/pkg/policy/git"
)

// Status reports the manager's view of the loaded bundle and reload
// history. It feeds the serve command's status surface.
type Status struct {
	// Mode is the configured source mode ("file" or "git").
	Mode string `json:"mode"`

	// Path is the bundle file, directory, or git checkout path.
	Path string `json:"path"`

	// BundleVersion is the version of the currently loaded bundle.
	BundleVersion string `json:"bundle_version,omitempty"`

	// RuleCount is the number of evaluable rules in the snapshot.
	RuleCount int `json:"rule_count"`

	// WarningCount is the number of validation warnings from the last
	// successful load.
	WarningCount int `json:"warning_count"`

	// LastReloadTime is when the bundle last loaded successfully.
	LastReloadTime time.Time `json:"last_reload_time"`

	// LastReloadError is the error from the most recent reload attempt,
	// empty when it succeeded.
	LastReloadError string `json:"last_reload_error,omitempty"`

	// ReloadCount is the number of reloads attempted since startup,
	// including the initial load.
	ReloadCount int `json:"reload_count"`

	// Commit describes HEAD of the policy checkout in git mode.
	Commit *git.CommitInfo `json:"commit,omitempty"`
}
