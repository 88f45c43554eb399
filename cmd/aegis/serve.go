package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"aegis-hq/warden/pkg/audit"
	"aegis-hq/warden/pkg/audit/retention"
	auditStorage "aegis-hq/warden/pkg/audit/storage"
	"aegis-hq/warden/pkg/cli"
	"aegis-hq/warden/pkg/config"
	"aegis-hq/warden/pkg/limits"
	limitsStorage "aegis-hq/warden/pkg/limits/storage"
	"aegis-hq/warden/pkg/notify"
	"aegis-hq/warden/pkg/policy/engine"
	"aegis-hq/warden/pkg/policy/manager"
	"aegis-hq/warden/pkg/telemetry/health"
	"aegis-hq/warden/pkg/telemetry/logging"
	"aegis-hq/warden/pkg/telemetry/metrics"
	"aegis-hq/warden/pkg/telemetry/tracing"
)

var serveFlags struct {
	logLevel string
	dryRun   bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the warden daemon",
	Long: `Run the warden daemon with the specified configuration.

The daemon keeps the bundle snapshot hot (file watch or git polling),
runs the audit recorder and retention scheduler, delivers notifications,
and serves the metrics and health endpoints.

Examples:
  # Start with default config
  aegis serve

  # Start with custom config
  aegis serve --config /etc/aegis/config.yaml

  # Validate config and bundle without starting
  aegis serve --dry-run`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	serveCmd.Flags().BoolVar(&serveFlags.dryRun, "dry-run", false, "validate config and bundle without starting")
}

func runServe(cmd *cobra.Command, args []string) error {
	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewCommandError("serve", fmt.Errorf("failed to load config: %w", err))
	}
	cfg := config.GetConfig()

	if serveFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = serveFlags.logLevel
	}

	wardenLog, err := logging.FromConfig(cfg.Telemetry.Logging)
	if err != nil {
		return cli.NewCommandError("serve", fmt.Errorf("failed to initialize logging: %w", err))
	}
	defer func() { _ = wardenLog.Shutdown() }()
	logger := wardenLog.Slog()

	fmt.Printf("Aegis Warden v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Println("✓ Configuration loaded")

	// Rate limit store.
	var limitsBackend limitsStorage.Backend
	switch cfg.Limits.Backend {
	case "sqlite":
		limitsBackend, err = limitsStorage.NewSQLiteBackend(cfg.Limits.SQLitePath)
		if err != nil {
			return cli.NewCommandError("serve", fmt.Errorf("failed to open limits store: %w", err))
		}
	case "memory", "":
		limitsBackend = limitsStorage.NewMemoryBackendWithCapacity(cfg.Limits.MaxKeys)
	default:
		return fmt.Errorf("unsupported limits backend: %s", cfg.Limits.Backend)
	}

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	limiter := limits.NewLimiter(limitsBackend,
		limits.WithLogger(logger),
		limits.WithMetrics(limits.NewMetricsWith(registry)),
		limits.WithCleanupInterval(cfg.Limits.CleanupInterval, cfg.Limits.IdleAfter),
	)
	defer func() { _ = limiter.Close() }()
	fmt.Printf("✓ Rate limit store initialized (%s)\n", backendName(cfg.Limits.Backend))

	// Audit trail.
	var auditSink engine.AuditSink
	var auditStore audit.Storage
	var scheduler *retention.Scheduler
	if cfg.Audit.Enabled {
		switch cfg.Audit.Backend {
		case "sqlite":
			auditStore, err = auditStorage.NewSQLiteStorage(cfg.Audit.SQLitePath)
			if err != nil {
				return cli.NewCommandError("serve", fmt.Errorf("failed to open audit store: %w", err))
			}
		case "memory", "":
			auditStore = auditStorage.NewMemoryStorage()
		default:
			return fmt.Errorf("unsupported audit backend: %s", cfg.Audit.Backend)
		}
		defer func() { _ = auditStore.Close() }()

		recorder := audit.NewRecorder(auditStore, &audit.RecorderConfig{
			AsyncBuffer:  cfg.Audit.AsyncBuffer,
			WriteTimeout: cfg.Audit.WriteTimeout,
		}, logger)
		defer func() { _ = recorder.Close() }()
		auditSink = audit.NewSink(recorder)

		if cfg.Audit.PruneSchedule != "" {
			pruner := retention.NewPruner(auditStore, &retention.Config{
				RetentionDays:       cfg.Audit.RetentionDays,
				PruneSchedule:       cfg.Audit.PruneSchedule,
				ArchiveBeforeDelete: cfg.Audit.ArchiveBeforeDelete,
				ArchivePath:         cfg.Audit.ArchivePath,
			}, logger)
			scheduler = retention.NewScheduler(pruner)
			if err := scheduler.Start(cmd.Context()); err != nil {
				logger.Warn("failed to start retention scheduler", "error", err)
				scheduler = nil
			} else {
				defer scheduler.Stop()
			}
		}

		fmt.Printf("✓ Audit trail initialized (%s)\n", backendName(cfg.Audit.Backend))
	}

	// Notification channels.
	var notifier engine.Notifier
	if len(cfg.Notify.Channels) > 0 {
		channels := make([]notify.Channel, 0, len(cfg.Notify.Channels))
		for name, chCfg := range cfg.Notify.Channels {
			switch chCfg.Type {
			case "webhook":
				channels = append(channels, notify.NewWebhookChannel(name, chCfg.URL, chCfg.Headers, cfg.Notify.AttemptTimeout))
			case "slack":
				channels = append(channels, notify.NewSlackChannel(name, chCfg.URL, cfg.Notify.AttemptTimeout))
			case "stdout":
				channels = append(channels, notify.NewStdoutChannel(name))
			default:
				return fmt.Errorf("unsupported notify channel type %q for channel %q", chCfg.Type, name)
			}
		}
		notifyManager := notify.NewManager(channels, &notify.ManagerConfig{
			QueueSize:      cfg.Notify.QueueSize,
			Workers:        cfg.Notify.Workers,
			MaxRetries:     cfg.Notify.MaxRetries,
			AttemptTimeout: cfg.Notify.AttemptTimeout,
		}, logger)
		defer func() { _ = notifyManager.Close() }()
		notifier = notifyManager
		fmt.Printf("✓ Notification channels initialized (%d channels)\n", len(channels))
	}

	// Engine and bundle source.
	engineConfig := engine.DefaultEngineConfig()
	if cfg.Engine.RegexTimeout > 0 {
		engineConfig.RegexTimeout = cfg.Engine.RegexTimeout
	}
	if cfg.Engine.DispatchTimeout > 0 {
		engineConfig.DispatchTimeout = cfg.Engine.DispatchTimeout
	}
	if cfg.Engine.MaxRules > 0 {
		engineConfig.MaxRules = cfg.Engine.MaxRules
	}
	engineConfig.EnableTrace = cfg.Engine.Trace

	tracer, err := tracing.New(&cfg.Telemetry.Tracing, Version)
	if err != nil {
		return cli.NewCommandError("serve", fmt.Errorf("failed to initialize tracing: %w", err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tracer.Shutdown(shutdownCtx)
	}()

	mgr, err := manager.NewManager(&cfg.Policy, engineConfig, engine.Collaborators{
		RateLimiter: limiter,
		Audit:       auditSink,
		Notifier:    notifier,
		Metrics:     collector,
		Tracer:      tracer,
	}, logger)
	if err != nil {
		return cli.NewCommandError("serve", fmt.Errorf("failed to load bundle: %w", err))
	}
	defer func() { _ = mgr.Close() }()

	status := mgr.Status()
	fmt.Printf("✓ Bundle loaded (%s, %d rules)\n", status.BundleVersion, status.RuleCount)

	if serveFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	checker := health.New(5 * time.Second)
	checker.RegisterCheck("limits_store", func(ctx context.Context) error {
		_, err := limitsBackend.Load(ctx, "healthcheck")
		return err
	})
	if auditStore != nil {
		store := auditStore
		checker.RegisterCheck("audit_store", func(ctx context.Context) error {
			_, err := store.Count(ctx, &audit.Query{Limit: 1})
			return err
		})
	}
	checker.RegisterCheck("bundle", func(ctx context.Context) error {
		s := mgr.Status()
		if s.LastReloadError != "" {
			return fmt.Errorf("last reload failed: %s", s.LastReloadError)
		}
		return nil
	})

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	errChan := make(chan error, 3)

	// Bundle watching (file watcher or git polling).
	if cfg.Policy.Watch || cfg.Policy.Mode == "git" {
		go func() {
			if err := mgr.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errChan <- fmt.Errorf("bundle watch error: %w", err)
			}
		}()
		fmt.Println("✓ Bundle watching started")
	}

	servers := startTelemetryServers(cfg, collector, checker, errChan)
	for _, srv := range servers {
		fmt.Printf("✓ %s\n", srv.banner)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	sigChan := cli.WaitForShutdown()

	select {
	case err := <-errChan:
		return cli.NewCommandError("serve", err)
	case sig := <-sigChan:
		fmt.Printf("\nReceived signal %s, shutting down gracefully...\n", sig)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		for _, srv := range servers {
			if err := srv.shutdown(shutdownCtx); err != nil {
				logger.Error("server shutdown failed", "error", err)
			}
		}

		fmt.Println("✓ Stopped")
		return nil
	}
}

// telemetryServer pairs a running listener with its shutdown handle.
type telemetryServer struct {
	banner   string
	shutdown func(context.Context) error
}

// startTelemetryServers brings up the metrics and health listeners.
// When the health listener address is empty, the health endpoints share
// the metrics listener.
func startTelemetryServers(cfg *config.Config, collector *metrics.Collector, checker *health.Checker, errChan chan<- error) []telemetryServer {
	var servers []telemetryServer

	shareListener := cfg.Telemetry.Metrics.Enabled &&
		cfg.Telemetry.Health.Enabled &&
		cfg.Telemetry.Health.ListenAddress == ""

	if shareListener {
		mux := http.NewServeMux()
		mux.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
		checker.Register(mux, Version, GitCommit, BuildDate)

		srv := &http.Server{
			Addr:              cfg.Telemetry.Metrics.ListenAddress,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- fmt.Errorf("telemetry server error: %w", err)
			}
		}()
		return append(servers, telemetryServer{
			banner:   fmt.Sprintf("Metrics and health endpoints: http://%s", cfg.Telemetry.Metrics.ListenAddress),
			shutdown: srv.Shutdown,
		})
	}

	if metricsServer := metrics.NewServer(cfg.Telemetry.Metrics, collector); metricsServer != nil {
		go func() {
			if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
		servers = append(servers, telemetryServer{
			banner:   fmt.Sprintf("Metrics endpoint: http://%s%s", cfg.Telemetry.Metrics.ListenAddress, cfg.Telemetry.Metrics.Path),
			shutdown: metricsServer.Shutdown,
		})
	}

	if cfg.Telemetry.Health.Enabled && cfg.Telemetry.Health.ListenAddress != "" {
		healthServer := health.NewServer(cfg.Telemetry.Health.ListenAddress, checker, Version, GitCommit, BuildDate)
		go func() {
			if err := healthServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- fmt.Errorf("health server error: %w", err)
			}
		}()
		servers = append(servers, telemetryServer{
			banner:   fmt.Sprintf("Health endpoints: http://%s", cfg.Telemetry.Health.ListenAddress),
			shutdown: healthServer.Shutdown,
		})
	}

	return servers
}

func backendName(backend string) string {
	if backend == "" {
		return "memory"
	}
	return backend
}
