package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError is a validation failure for one configuration field.
type FieldError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError aggregates every field failure found in one pass.
type ValidationError struct {
	Errors []FieldError
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		msgs[i] = fe.Error()
	}
	return fmt.Sprintf("invalid configuration (%d errors): %s", len(e.Errors), strings.Join(msgs, "; "))
}

// Validate checks the configuration after defaults are applied. All
// failures are collected so operators fix the file in one round trip.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validatePolicy(&cfg.Policy)...)
	errs = append(errs, validateEngine(&cfg.Engine)...)
	errs = append(errs, validateLimits(&cfg.Limits)...)
	errs = append(errs, validateAudit(&cfg.Audit)...)
	errs = append(errs, validateNotify(&cfg.Notify)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validatePolicy(cfg *PolicyConfig) []FieldError {
	var errs []FieldError

	switch cfg.Mode {
	case "file":
		if cfg.Path == "" {
			errs = append(errs, FieldError{"policy.path", "required in file mode"})
		}
	case "git":
		if cfg.Git.Repository == "" {
			errs = append(errs, FieldError{"policy.git.repository", "required in git mode"})
		}
		switch cfg.Git.Auth.Method {
		case "none":
		case "token":
			if cfg.Git.Auth.Token == "" {
				errs = append(errs, FieldError{"policy.git.auth.token", "required for token auth"})
			}
		case "ssh":
			if cfg.Git.Auth.SSHKeyPath == "" {
				errs = append(errs, FieldError{"policy.git.auth.ssh_key_path", "required for ssh auth"})
			}
		default:
			errs = append(errs, FieldError{"policy.git.auth.method", fmt.Sprintf("unknown method %q (none, token, ssh)", cfg.Git.Auth.Method)})
		}
	default:
		errs = append(errs, FieldError{"policy.mode", fmt.Sprintf("unknown mode %q (file, git)", cfg.Mode)})
	}

	return errs
}

func validateEngine(cfg *EngineConfig) []FieldError {
	var errs []FieldError
	if cfg.RegexTimeout <= 0 {
		errs = append(errs, FieldError{"engine.regex_timeout", "must be positive"})
	}
	if cfg.DispatchTimeout <= 0 {
		errs = append(errs, FieldError{"engine.dispatch_timeout", "must be positive"})
	}
	if cfg.MaxRules <= 0 {
		errs = append(errs, FieldError{"engine.max_rules", "must be positive"})
	}
	return errs
}

func validateLimits(cfg *LimitsConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "memory":
	case "sqlite":
		if cfg.SQLitePath == "" {
			errs = append(errs, FieldError{"limits.sqlite_path", "required for sqlite backend"})
		}
	default:
		errs = append(errs, FieldError{"limits.backend", fmt.Sprintf("unknown backend %q (memory, sqlite)", cfg.Backend)})
	}

	if cfg.MaxKeys <= 0 {
		errs = append(errs, FieldError{"limits.max_keys", "must be positive"})
	}
	return errs
}

func validateAudit(cfg *AuditConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "memory":
	case "sqlite":
		if cfg.SQLitePath == "" {
			errs = append(errs, FieldError{"audit.sqlite_path", "required for sqlite backend"})
		}
	default:
		errs = append(errs, FieldError{"audit.backend", fmt.Sprintf("unknown backend %q (memory, sqlite)", cfg.Backend)})
	}

	if cfg.RetentionDays < 0 {
		errs = append(errs, FieldError{"audit.retention_days", "must not be negative"})
	}
	if cfg.PruneSchedule != "" {
		if _, err := cron.ParseStandard(cfg.PruneSchedule); err != nil {
			errs = append(errs, FieldError{"audit.prune_schedule", fmt.Sprintf("invalid cron expression: %v", err)})
		}
	}
	if cfg.ArchiveBeforeDelete && cfg.ArchivePath == "" {
		errs = append(errs, FieldError{"audit.archive_path", "required when archive_before_delete is set"})
	}
	return errs
}

func validateNotify(cfg *NotifyConfig) []FieldError {
	var errs []FieldError

	for name, channel := range cfg.Channels {
		field := "notify.channels." + name
		switch channel.Type {
		case "webhook", "slack":
			if channel.URL == "" {
				errs = append(errs, FieldError{field + ".url", "required for " + channel.Type + " channels"})
			}
		case "stdout":
		default:
			errs = append(errs, FieldError{field + ".type", fmt.Sprintf("unknown type %q (webhook, slack, stdout)", channel.Type)})
		}
	}
	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{"telemetry.logging.level", fmt.Sprintf("unknown level %q", cfg.Logging.Level)})
	}
	switch cfg.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, FieldError{"telemetry.logging.format", fmt.Sprintf("unknown format %q (json, text)", cfg.Logging.Format)})
	}

	if cfg.Metrics.Enabled && cfg.Metrics.ListenAddress == "" {
		errs = append(errs, FieldError{"telemetry.metrics.listen_address", "required when metrics are enabled"})
	}
	if cfg.Tracing.Enabled {
		if cfg.Tracing.Endpoint == "" {
			errs = append(errs, FieldError{"telemetry.tracing.endpoint", "required when tracing is enabled"})
		}
		if cfg.Tracing.SampleRate < 0 || cfg.Tracing.SampleRate > 1 {
			errs = append(errs, FieldError{"telemetry.tracing.sample_rate", "must be between 0 and 1"})
		}
	}
	return errs
}
