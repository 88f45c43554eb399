package ast

import "time"

// ActionType identifies what an action does when its rule wins.
type ActionType string

const (
	// Terminal actions resolve the decision's disposition.
	ActionAllow           ActionType = "allow"
	ActionBlock           ActionType = "block"
	ActionEscalate        ActionType = "escalate"
	ActionRequireApproval ActionType = "require_approval"

	// Side-effecting actions run regardless of the terminal outcome.
	ActionLog       ActionType = "log"
	ActionNotify    ActionType = "notify"
	ActionRateLimit ActionType = "rate_limit"
	ActionTransform ActionType = "transform"
)

// Valid reports whether the action type is recognized.
func (t ActionType) Valid() bool {
	switch t {
	case ActionAllow, ActionBlock, ActionEscalate, ActionRequireApproval,
		ActionLog, ActionNotify, ActionRateLimit, ActionTransform:
		return true
	}
	return false
}

// Terminal reports whether the action type consumes the decision. The
// orchestrator maps the first terminal action of the winning rule to the
// final disposition; side-effecting actions never do.
func (t ActionType) Terminal() bool {
	switch t {
	case ActionAllow, ActionBlock, ActionEscalate, ActionRequireApproval:
		return true
	}
	return false
}

// TransformKind is the mutation a transform action describes. The engine
// never applies it; it returns the descriptor for the caller to apply.
type TransformKind string

const (
	TransformSet    TransformKind = "set"
	TransformRedact TransformKind = "redact"
	TransformRemove TransformKind = "remove"
)

// Valid reports whether the transform kind is recognized.
func (k TransformKind) Valid() bool {
	switch k {
	case TransformSet, TransformRedact, TransformRemove:
		return true
	}
	return false
}

// NotifyConfig parameterizes a notify action.
type NotifyConfig struct {
	Channels []string // Named channels to fan out to (non-empty)
	Message  string   // Message body; empty means a generated summary
}

// RateLimitConfig parameterizes a rate_limit action.
type RateLimitConfig struct {
	Limit         int64     // Maximum requests admitted per window (> 0)
	WindowSeconds int       // Window length in seconds (> 0)
	SubjectField  FieldPath // Context field keying the subject; defaults to request.user_id
}

// Window returns the configured window as a duration.
func (c *RateLimitConfig) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}

// LogConfig parameterizes a log action.
type LogConfig struct {
	Level   string // debug, info, warn, error; defaults to info
	Message string // Message recorded with the audit entry
}

// TransformConfig parameterizes a transform action.
type TransformConfig struct {
	Field FieldPath     // Context field the caller should mutate
	Op    TransformKind // set, redact, or remove
	Value string        // Replacement value; required for set
}

// ActionConfig is one entry of a rule's action list. The loose config map
// an operator console emits is decoded into exactly one typed config per
// side-effecting action type at load time; terminal actions carry none.
// At most one of the typed config pointers is non-nil, matching Type.
type ActionConfig struct {
	Type      ActionType
	Notify    *NotifyConfig
	RateLimit *RateLimitConfig
	Log       *LogConfig
	Transform *TransformConfig
	Location  Location

	// IgnoredConfig records that the source carried a config map the
	// action type does not take. The validator warns; the config is
	// dropped.
	IgnoredConfig bool
}
