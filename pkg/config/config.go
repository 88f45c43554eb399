package config

import "time"

// Config is the root configuration structure for the warden daemon and
// CLI. It covers the bundle source, the decision engine, rate limit
// storage, the audit trail, notification channels, and telemetry.
type Config struct {
	// Policy configures where guardrail bundles come from and how they
	// are reloaded.
	Policy PolicyConfig `yaml:"policy"`

	// Engine configures decision evaluation.
	Engine EngineConfig `yaml:"engine"`

	// Limits configures rate limit counter storage.
	Limits LimitsConfig `yaml:"limits"`

	// Audit configures the audit trail.
	Audit AuditConfig `yaml:"audit"`

	// Notify configures notification channels.
	Notify NotifyConfig `yaml:"notify"`

	// Telemetry configures logging, metrics, tracing, and health
	// endpoints.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// PolicyConfig configures the bundle source.
type PolicyConfig struct {
	// Mode selects the source: "file" or "git".
	// Default: "file"
	Mode string `yaml:"mode"`

	// Path is the bundle file or directory for file mode.
	// Default: "policies/bundle.yaml"
	Path string `yaml:"path"`

	// Watch reloads the bundle when the file changes.
	// Default: true
	Watch bool `yaml:"watch"`

	// WatchDebounce coalesces rapid file events into one reload.
	// Default: 500ms
	WatchDebounce time.Duration `yaml:"watch_debounce"`

	// Git configures the git source for git mode.
	Git GitConfig `yaml:"git"`
}

// GitConfig configures a git-backed bundle source.
type GitConfig struct {
	// Repository is the clone URL.
	Repository string `yaml:"repository"`

	// Branch is the branch policies are loaded from.
	// Default: "main"
	Branch string `yaml:"branch"`

	// Path is the bundle path inside the repository.
	// Default: "bundle.yaml"
	Path string `yaml:"path"`

	// PollInterval is how often to check for new commits.
	// Default: 1m
	PollInterval time.Duration `yaml:"poll_interval"`

	// CloneDir is the local checkout directory.
	// Default: "data/policies"
	CloneDir string `yaml:"clone_dir"`

	// Auth configures repository authentication.
	Auth GitAuthConfig `yaml:"auth"`
}

// GitAuthConfig configures git authentication.
type GitAuthConfig struct {
	// Method is "none", "token", or "ssh".
	// Default: "none"
	Method string `yaml:"method"`

	// Token is the access token for token auth. Supports ${ENV}
	// expansion so the token never lives in the file.
	Token string `yaml:"token"`

	// SSHKeyPath is the private key path for ssh auth.
	SSHKeyPath string `yaml:"ssh_key_path"`

	// SSHKeyPassphrase unlocks an encrypted key. Supports ${ENV}
	// expansion.
	SSHKeyPassphrase string `yaml:"ssh_key_passphrase"`
}

// EngineConfig configures decision evaluation.
type EngineConfig struct {
	// RegexTimeout bounds a single regex match.
	// Default: 50ms
	RegexTimeout time.Duration `yaml:"regex_timeout"`

	// DispatchTimeout bounds side-effect dispatch for one decision.
	// Default: 5s
	DispatchTimeout time.Duration `yaml:"dispatch_timeout"`

	// MaxRules caps the loaded rule set.
	// Default: 500
	MaxRules int `yaml:"max_rules"`

	// Trace records evaluation traces on every decision.
	// Default: false
	Trace bool `yaml:"trace"`
}

// LimitsConfig configures rate limit counter storage.
type LimitsConfig struct {
	// Backend is "memory" or "sqlite".
	// Default: "memory"
	Backend string `yaml:"backend"`

	// SQLitePath is the counter database path for the sqlite backend.
	// Default: "data/limits.db"
	SQLitePath string `yaml:"sqlite_path"`

	// MaxKeys bounds the memory backend's tracked counters.
	// Default: 100000
	MaxKeys int `yaml:"max_keys"`

	// CleanupInterval is how often idle counters are swept.
	// Default: 1m
	CleanupInterval time.Duration `yaml:"cleanup_interval"`

	// IdleAfter is how long a counter may sit untouched before the
	// sweep drops it.
	// Default: 1h
	IdleAfter time.Duration `yaml:"idle_after"`
}

// AuditConfig configures the audit trail.
type AuditConfig struct {
	// Enabled turns audit recording on.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Backend is "sqlite" or "memory".
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLitePath is the audit database path.
	// Default: "data/audit.db"
	SQLitePath string `yaml:"sqlite_path"`

	// AsyncBuffer is the recorder's queue size.
	// Default: 1000
	AsyncBuffer int `yaml:"async_buffer"`

	// WriteTimeout bounds one storage write.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// RetentionDays is how long records are kept; 0 keeps forever.
	// Default: 90
	RetentionDays int `yaml:"retention_days"`

	// PruneSchedule is the retention cron expression; empty disables
	// scheduled pruning.
	// Default: "0 3 * * *"
	PruneSchedule string `yaml:"prune_schedule"`

	// ArchiveBeforeDelete exports records to JSON before pruning.
	// Default: false
	ArchiveBeforeDelete bool `yaml:"archive_before_delete"`

	// ArchivePath is where archives are written.
	// Default: "data/archives"
	ArchivePath string `yaml:"archive_path"`
}

// NotifyConfig configures notification delivery.
type NotifyConfig struct {
	// QueueSize bounds the delivery queue.
	// Default: 1000
	QueueSize int `yaml:"queue_size"`

	// Workers is the delivery concurrency.
	// Default: 4
	Workers int `yaml:"workers"`

	// MaxRetries caps attempts per delivery.
	// Default: 4
	MaxRetries int `yaml:"max_retries"`

	// AttemptTimeout bounds each send attempt.
	// Default: 10s
	AttemptTimeout time.Duration `yaml:"attempt_timeout"`

	// Channels maps channel names to their destinations.
	Channels map[string]ChannelConfig `yaml:"channels"`
}

// ChannelConfig configures one notification channel.
type ChannelConfig struct {
	// Type is "webhook", "slack", or "stdout".
	Type string `yaml:"type"`

	// URL is the endpoint for webhook and slack channels. Supports
	// ${ENV} expansion.
	URL string `yaml:"url"`

	// Headers ride on every webhook request. Values support ${ENV}
	// expansion.
	Headers map[string]string `yaml:"headers"`
}

// TelemetryConfig configures observability.
type TelemetryConfig struct {
	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics configures the Prometheus endpoint.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing configures OpenTelemetry tracing.
	Tracing TracingConfig `yaml:"tracing"`

	// Health configures the health endpoints.
	Health HealthConfig `yaml:"health"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is "debug", "info", "warn", or "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is "json" or "text".
	// Default: "json"
	Format string `yaml:"format"`

	// Output is "stdout", "stderr", or a file path.
	// Default: "stdout"
	Output string `yaml:"output"`

	// RedactFields are context fields masked in logs.
	RedactFields []string `yaml:"redact_fields"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Enabled serves /metrics.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// ListenAddress is the metrics listener.
	// Default: "127.0.0.1:9090"
	ListenAddress string `yaml:"listen_address"`

	// Path is the metrics path.
	// Default: "/metrics"
	Path string `yaml:"path"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	// Enabled turns span export on.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Endpoint is the OTLP gRPC collector address.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// ServiceName identifies this process in traces.
	// Default: "warden"
	ServiceName string `yaml:"service_name"`

	// SampleRate is the fraction of decisions traced, 0 to 1.
	// Default: 0.1
	SampleRate float64 `yaml:"sample_rate"`

	// Insecure disables TLS to the collector.
	// Default: true
	Insecure bool `yaml:"insecure"`
}

// HealthConfig configures the health endpoints.
type HealthConfig struct {
	// Enabled serves /healthz and /readyz.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// ListenAddress is the health listener. Empty shares the metrics
	// listener.
	ListenAddress string `yaml:"listen_address"`
}
