package config

import "time"

// Default values applied to zero fields before validation.
const (
	DefaultPolicyMode    = "file"
	DefaultPolicyPath    = "policies/bundle.yaml"
	DefaultWatchDebounce = 500 * time.Millisecond

	DefaultGitBranch       = "main"
	DefaultGitPath         = "bundle.yaml"
	DefaultGitPollInterval = time.Minute
	DefaultGitCloneDir     = "data/policies"
	DefaultGitAuthMethod   = "none"

	DefaultRegexTimeout    = 50 * time.Millisecond
	DefaultDispatchTimeout = 5 * time.Second
	DefaultMaxRules        = 500

	DefaultLimitsBackend   = "memory"
	DefaultLimitsPath      = "data/limits.db"
	DefaultLimitsMaxKeys   = 100_000
	DefaultLimitsCleanup   = time.Minute
	DefaultLimitsIdleAfter = time.Hour

	DefaultAuditBackend      = "sqlite"
	DefaultAuditPath         = "data/audit.db"
	DefaultAuditBuffer       = 1000
	DefaultAuditWriteTimeout = 5 * time.Second
	DefaultRetentionDays     = 90
	DefaultPruneSchedule     = "0 3 * * *"
	DefaultArchivePath       = "data/archives"

	DefaultNotifyQueueSize      = 1000
	DefaultNotifyWorkers        = 4
	DefaultNotifyMaxRetries     = 4
	DefaultNotifyAttemptTimeout = 10 * time.Second

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
	DefaultLogOutput = "stdout"

	DefaultMetricsAddress = "127.0.0.1:9090"
	DefaultMetricsPath    = "/metrics"

	DefaultTracingEndpoint = "localhost:4317"
	DefaultServiceName     = "warden"
	DefaultSampleRate      = 0.1
)

// NewDefaultConfig returns a config with every default applied,
// suitable for running without a config file at all.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	cfg.Policy.Watch = true
	cfg.Audit.Enabled = true
	cfg.Telemetry.Metrics.Enabled = true
	cfg.Telemetry.Health.Enabled = true
	cfg.Telemetry.Tracing.Insecure = true
	return cfg
}

// ApplyDefaults fills zero-valued fields. Boolean fields keep whatever
// the file said; YAML cannot distinguish false from absent, so their
// defaults live in NewDefaultConfig only.
func ApplyDefaults(cfg *Config) {
	if cfg.Policy.Mode == "" {
		cfg.Policy.Mode = DefaultPolicyMode
	}
	if cfg.Policy.Path == "" {
		cfg.Policy.Path = DefaultPolicyPath
	}
	if cfg.Policy.WatchDebounce <= 0 {
		cfg.Policy.WatchDebounce = DefaultWatchDebounce
	}
	if cfg.Policy.Git.Branch == "" {
		cfg.Policy.Git.Branch = DefaultGitBranch
	}
	if cfg.Policy.Git.Path == "" {
		cfg.Policy.Git.Path = DefaultGitPath
	}
	if cfg.Policy.Git.PollInterval <= 0 {
		cfg.Policy.Git.PollInterval = DefaultGitPollInterval
	}
	if cfg.Policy.Git.CloneDir == "" {
		cfg.Policy.Git.CloneDir = DefaultGitCloneDir
	}
	if cfg.Policy.Git.Auth.Method == "" {
		cfg.Policy.Git.Auth.Method = DefaultGitAuthMethod
	}

	if cfg.Engine.RegexTimeout <= 0 {
		cfg.Engine.RegexTimeout = DefaultRegexTimeout
	}
	if cfg.Engine.DispatchTimeout <= 0 {
		cfg.Engine.DispatchTimeout = DefaultDispatchTimeout
	}
	if cfg.Engine.MaxRules <= 0 {
		cfg.Engine.MaxRules = DefaultMaxRules
	}

	if cfg.Limits.Backend == "" {
		cfg.Limits.Backend = DefaultLimitsBackend
	}
	if cfg.Limits.SQLitePath == "" {
		cfg.Limits.SQLitePath = DefaultLimitsPath
	}
	if cfg.Limits.MaxKeys <= 0 {
		cfg.Limits.MaxKeys = DefaultLimitsMaxKeys
	}
	if cfg.Limits.CleanupInterval <= 0 {
		cfg.Limits.CleanupInterval = DefaultLimitsCleanup
	}
	if cfg.Limits.IdleAfter <= 0 {
		cfg.Limits.IdleAfter = DefaultLimitsIdleAfter
	}

	if cfg.Audit.Backend == "" {
		cfg.Audit.Backend = DefaultAuditBackend
	}
	if cfg.Audit.SQLitePath == "" {
		cfg.Audit.SQLitePath = DefaultAuditPath
	}
	if cfg.Audit.AsyncBuffer <= 0 {
		cfg.Audit.AsyncBuffer = DefaultAuditBuffer
	}
	if cfg.Audit.WriteTimeout <= 0 {
		cfg.Audit.WriteTimeout = DefaultAuditWriteTimeout
	}
	if cfg.Audit.RetentionDays < 0 {
		cfg.Audit.RetentionDays = DefaultRetentionDays
	}
	if cfg.Audit.PruneSchedule == "" {
		cfg.Audit.PruneSchedule = DefaultPruneSchedule
	}
	if cfg.Audit.ArchivePath == "" {
		cfg.Audit.ArchivePath = DefaultArchivePath
	}

	if cfg.Notify.QueueSize <= 0 {
		cfg.Notify.QueueSize = DefaultNotifyQueueSize
	}
	if cfg.Notify.Workers <= 0 {
		cfg.Notify.Workers = DefaultNotifyWorkers
	}
	if cfg.Notify.MaxRetries <= 0 {
		cfg.Notify.MaxRetries = DefaultNotifyMaxRetries
	}
	if cfg.Notify.AttemptTimeout <= 0 {
		cfg.Notify.AttemptTimeout = DefaultNotifyAttemptTimeout
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLogLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLogFormat
	}
	if cfg.Telemetry.Logging.Output == "" {
		cfg.Telemetry.Logging.Output = DefaultLogOutput
	}
	if cfg.Telemetry.Metrics.ListenAddress == "" {
		cfg.Telemetry.Metrics.ListenAddress = DefaultMetricsAddress
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Tracing.Endpoint == "" {
		cfg.Telemetry.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultServiceName
	}
	if cfg.Telemetry.Tracing.SampleRate <= 0 {
		cfg.Telemetry.Tracing.SampleRate = DefaultSampleRate
	}
}
