package manager

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"aegis-hq/warden/pkg/apl/validator"
	"aegis-hq/warden/pkg/config"
	"aegis-hq/warden/pkg/policy/engine"
	"aegis-hq/warden/pkg/policy/engine/source"
	"aegis-hq/warden/pkg/policy/git"
)

// Manager binds a bundle source, the decision engine, and hot reload
// into one lifecycle. It constructs the source from configuration,
// feeds it to the engine, and in file mode runs the filesystem watcher
// that triggers debounced reloads.
type Manager struct {
	config *config.PolicyConfig
	engine *engine.Engine
	source engine.BundleSource
	logger *slog.Logger

	// gitSource is set when the configured mode is "git", for commit
	// metadata on the status surface.
	gitSource *git.GitSource

	mu              sync.RWMutex
	lastReloadTime  time.Time
	lastReloadError error
	reloadCount     int

	watchMu sync.Mutex
	watcher *FileWatcher
}

// NewSource constructs the bundle source selected by configuration.
// Exported so one-shot commands can load bundles without an engine.
func NewSource(cfg *config.PolicyConfig, logger *slog.Logger) (engine.BundleSource, error) {
	if cfg == nil {
		return nil, fmt.Errorf("policy config cannot be nil")
	}

	switch cfg.Mode {
	case "file", "":
		return source.NewFileSource(cfg.Path, logger), nil

	case "git":
		gitSource, err := git.NewGitSource(&cfg.Git, logger)
		if err != nil {
			return nil, &SourceError{Mode: cfg.Mode, Cause: err}
		}
		return gitSource, nil

	default:
		return nil, &SourceError{Mode: cfg.Mode}
	}
}

// NewManager creates the bundle source and the engine, and loads the
// initial bundle. A bundle that fails to load or validate is a startup
// error.
func NewManager(
	cfg *config.PolicyConfig,
	engineConfig *engine.EngineConfig,
	collab engine.Collaborators,
	logger *slog.Logger,
) (*Manager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("policy config cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	src, err := NewSource(cfg, logger)
	if err != nil {
		return nil, err
	}

	eng, err := engine.NewEngine(engineConfig, src, collab, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	m := &Manager{
		config:         cfg,
		engine:         eng,
		source:         src,
		logger:         logger,
		lastReloadTime: time.Now(),
		reloadCount:    1,
	}
	if gitSource, ok := src.(*git.GitSource); ok {
		m.gitSource = gitSource
	}

	return m, nil
}

// Engine returns the decision engine.
func (m *Manager) Engine() *engine.Engine {
	return m.engine
}

// Source returns the bundle source.
func (m *Manager) Source() engine.BundleSource {
	return m.source
}

// Reload reloads the bundle through the engine and records the result.
// A failed reload keeps the previous snapshot active.
func (m *Manager) Reload(ctx context.Context) error {
	err := m.engine.Reload(ctx)

	m.mu.Lock()
	m.reloadCount++
	m.lastReloadError = err
	if err == nil {
		m.lastReloadTime = time.Now()
	}
	m.mu.Unlock()

	return err
}

// Watch blocks watching the bundle source for changes until the context
// is cancelled. In git mode the source's own polling drives reloads
// through the engine, so Watch only waits. In file mode it runs the
// filesystem watcher with debounced reloads.
func (m *Manager) Watch(ctx context.Context) error {
	if m.config.Mode == "git" {
		m.logger.Info("bundle watch active",
			"mode", "git",
			"repository", m.config.Git.Repository,
			"poll_interval", m.config.Git.PollInterval,
		)
		<-ctx.Done()
		return nil
	}

	if !m.config.Watch {
		return ErrWatchNotEnabled
	}

	m.watchMu.Lock()
	if m.watcher != nil {
		m.watchMu.Unlock()
		return ErrAlreadyWatching
	}

	watcher, err := NewFileWatcher(m.config.Path, m.config.WatchDebounce, m.logger)
	if err != nil {
		m.watchMu.Unlock()
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	m.watcher = watcher
	m.watchMu.Unlock()

	defer func() {
		m.watchMu.Lock()
		m.watcher = nil
		m.watchMu.Unlock()
	}()

	return watcher.Watch(ctx, func() error {
		return m.Reload(context.Background())
	})
}

// Status reports the loaded bundle and reload history.
func (m *Manager) Status() Status {
	m.mu.RLock()
	status := Status{
		Mode:           m.config.Mode,
		Path:           m.config.Path,
		LastReloadTime: m.lastReloadTime,
		ReloadCount:    m.reloadCount,
	}
	if m.config.Mode == "" {
		status.Mode = "file"
	}
	if m.lastReloadError != nil {
		status.LastReloadError = m.lastReloadError.Error()
	}
	m.mu.RUnlock()

	if snapshot := m.engine.Snapshot(); snapshot != nil {
		status.BundleVersion = snapshot.Version
		status.RuleCount = len(snapshot.RuleSet.Rules)
	}
	status.WarningCount = len(m.engine.Warnings())

	if m.gitSource != nil {
		status.Path = m.gitSource.Repository().BundlePath()
		if commit, err := m.gitSource.Repository().Head(); err == nil {
			status.Commit = commit
		}
	}

	return status
}

// DryRun loads and validates the bundle without touching the engine's
// snapshot. Useful for checking edits before they go live.
func (m *Manager) DryRun(ctx context.Context) (*validator.Report, error) {
	bundle, err := m.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load bundle: %w", err)
	}

	report, err := validator.NewValidator().Validate(bundle)
	if err != nil {
		return nil, fmt.Errorf("bundle validation failed: %w", err)
	}

	m.logger.Info("dry-run validation complete",
		"bundle", bundle.Name,
		"rule_count", len(report.RuleSet.Rules),
		"excluded_rules", len(report.ExcludedRuleIDs),
		"warnings", len(report.Warnings),
	)

	return report, nil
}

// Close stops watching and shuts down the engine.
func (m *Manager) Close() error {
	m.watchMu.Lock()
	watcher := m.watcher
	m.watchMu.Unlock()

	if watcher != nil {
		if err := watcher.Stop(); err != nil {
			m.logger.Error("failed to stop file watcher", "error", err)
		}
	}

	if err := m.engine.Close(); err != nil {
		return err
	}

	m.logger.Info("policy manager closed")
	return nil
}
