package git

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"aegis-hq/warden/pkg/apl/ast"
	"aegis-hq/warden/pkg/apl/parser"
	"aegis-hq/warden/pkg/config"
	"aegis-hq/warden/pkg/policy/engine"
)

// GitSource loads bundles from a git repository and polls the remote for
// new commits. It implements engine.BundleSource.
type GitSource struct {
	repo         *Repository
	pollInterval time.Duration
	logger       *slog.Logger

	cloneOnce sync.Once
	cloneErr  error
}

// NewGitSource creates a git-backed bundle source. The repository is
// cloned lazily on the first Load.
func NewGitSource(cfg *config.GitConfig, logger *slog.Logger) (*GitSource, error) {
	if logger == nil {
		logger = slog.Default()
	}

	repo, err := NewRepository(cfg)
	if err != nil {
		return nil, err
	}

	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = time.Minute
	}

	return &GitSource{
		repo:         repo,
		pollInterval: pollInterval,
		logger:       logger,
	}, nil
}

// Repository exposes the underlying checkout for commands that surface
// commit metadata.
func (s *GitSource) Repository() *Repository {
	return s.repo
}

// Load clones the repository if needed and parses the bundle at the
// configured path.
func (s *GitSource) Load(ctx context.Context) (*ast.Bundle, error) {
	s.cloneOnce.Do(func() {
		s.cloneErr = s.repo.Clone(ctx)
	})
	if s.cloneErr != nil {
		return nil, fmt.Errorf("git source clone: %w", s.cloneErr)
	}

	path := s.repo.BundlePath()
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat bundle path %q: %w", path, err)
	}

	p := parser.NewParser()

	var bundle *ast.Bundle
	if info.IsDir() {
		bundle, err = p.ParseDir(path)
	} else {
		bundle, err = p.Parse(path)
	}
	if err != nil {
		return nil, err
	}

	head, err := s.repo.Head()
	if err == nil {
		s.logger.Info("loaded bundle from git",
			"repository", head.Repository,
			"branch", head.Branch,
			"commit", head.SHA,
			"bundle", bundle.Name,
			"rule_count", len(bundle.Rules),
		)
	}

	return bundle, nil
}

// Watch polls the remote at the configured interval and emits a modified
// event whenever HEAD moves. Pull failures surface as error events and
// polling continues.
func (s *GitSource) Watch(ctx context.Context) (<-chan engine.BundleEvent, error) {
	eventCh := make(chan engine.BundleEvent)

	go func() {
		defer close(eventCh)

		ticker := time.NewTicker(s.pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				result, err := s.repo.Pull(ctx)
				if err != nil {
					s.logger.Warn("policy repository pull failed", "error", err)
					select {
					case eventCh <- engine.BundleEvent{Error: err}:
					case <-ctx.Done():
						return
					}
					continue
				}

				if !result.HadChanges {
					continue
				}

				s.logger.Info("policy repository advanced",
					"from", result.FromSHA,
					"to", result.ToSHA,
				)
				select {
				case eventCh <- engine.BundleEvent{
					Type: engine.BundleEventModified,
					Path: s.repo.BundlePath(),
				}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return eventCh, nil
}
