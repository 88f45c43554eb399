package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any
// errors. Environment variables are not consulted; use
// LoadConfigWithEnvOverrides for that behavior.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)
	expandSecrets(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Variables follow the naming convention
// AEGIS_SECTION_FIELD (for example AEGIS_POLICY_PATH) and always take
// precedence over file-based configuration.
//
// The loading sequence is:
// 1. Load YAML from file (this already applies defaults)
// 2. Apply environment variable overrides
// 3. Re-validate the final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies AEGIS_SECTION_FIELD environment variables to the
// configuration.
func applyEnvOverrides(cfg *Config) {
	// Policy overrides
	if val := os.Getenv("AEGIS_POLICY_MODE"); val != "" {
		cfg.Policy.Mode = val
	}
	if val := os.Getenv("AEGIS_POLICY_PATH"); val != "" {
		cfg.Policy.Path = val
	}
	if val := os.Getenv("AEGIS_POLICY_WATCH"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Policy.Watch = b
		}
	}
	if val := os.Getenv("AEGIS_POLICY_GIT_REPOSITORY"); val != "" {
		cfg.Policy.Git.Repository = val
	}
	if val := os.Getenv("AEGIS_POLICY_GIT_BRANCH"); val != "" {
		cfg.Policy.Git.Branch = val
	}
	if val := os.Getenv("AEGIS_POLICY_GIT_PATH"); val != "" {
		cfg.Policy.Git.Path = val
	}
	if val := os.Getenv("AEGIS_POLICY_GIT_POLL_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Policy.Git.PollInterval = d
		}
	}
	if val := os.Getenv("AEGIS_POLICY_GIT_AUTH_METHOD"); val != "" {
		cfg.Policy.Git.Auth.Method = val
	}
	if val := os.Getenv("AEGIS_POLICY_GIT_AUTH_TOKEN"); val != "" {
		cfg.Policy.Git.Auth.Token = val
	}
	if val := os.Getenv("AEGIS_POLICY_GIT_AUTH_SSH_KEY_PATH"); val != "" {
		cfg.Policy.Git.Auth.SSHKeyPath = val
	}

	// Engine overrides
	if val := os.Getenv("AEGIS_ENGINE_REGEX_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Engine.RegexTimeout = d
		}
	}
	if val := os.Getenv("AEGIS_ENGINE_DISPATCH_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Engine.DispatchTimeout = d
		}
	}
	if val := os.Getenv("AEGIS_ENGINE_MAX_RULES"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Engine.MaxRules = i
		}
	}
	if val := os.Getenv("AEGIS_ENGINE_TRACE"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Engine.Trace = b
		}
	}

	// Limits overrides
	if val := os.Getenv("AEGIS_LIMITS_BACKEND"); val != "" {
		cfg.Limits.Backend = val
	}
	if val := os.Getenv("AEGIS_LIMITS_SQLITE_PATH"); val != "" {
		cfg.Limits.SQLitePath = val
	}
	if val := os.Getenv("AEGIS_LIMITS_MAX_KEYS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Limits.MaxKeys = i
		}
	}

	// Audit overrides
	if val := os.Getenv("AEGIS_AUDIT_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Audit.Enabled = b
		}
	}
	if val := os.Getenv("AEGIS_AUDIT_BACKEND"); val != "" {
		cfg.Audit.Backend = val
	}
	if val := os.Getenv("AEGIS_AUDIT_SQLITE_PATH"); val != "" {
		cfg.Audit.SQLitePath = val
	}
	if val := os.Getenv("AEGIS_AUDIT_RETENTION_DAYS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Audit.RetentionDays = i
		}
	}

	// Telemetry overrides
	if val := os.Getenv("AEGIS_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("AEGIS_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv("AEGIS_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = b
		}
	}
	if val := os.Getenv("AEGIS_METRICS_LISTEN_ADDRESS"); val != "" {
		cfg.Telemetry.Metrics.ListenAddress = val
	}
	if val := os.Getenv("AEGIS_TRACING_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Tracing.Enabled = b
		}
	}
	if val := os.Getenv("AEGIS_TRACING_ENDPOINT"); val != "" {
		cfg.Telemetry.Tracing.Endpoint = val
	}
}

// expandSecrets substitutes ${VAR} references with environment values in the
// fields that commonly carry credentials. Unset variables expand to empty
// strings so validation catches the missing secret.
func expandSecrets(cfg *Config) {
	cfg.Policy.Git.Auth.Token = expandEnv(cfg.Policy.Git.Auth.Token)
	cfg.Policy.Git.Auth.SSHKeyPassphrase = expandEnv(cfg.Policy.Git.Auth.SSHKeyPassphrase)

	for name, channel := range cfg.Notify.Channels {
		channel.URL = expandEnv(channel.URL)
		for k, v := range channel.Headers {
			channel.Headers[k] = expandEnv(v)
		}
		cfg.Notify.Channels[name] = channel
	}
}

// expandEnv expands ${VAR} references. Values without a reference pass
// through untouched.
func expandEnv(value string) string {
	if !strings.Contains(value, "${") {
		return value
	}
	return os.Expand(value, os.Getenv)
}
