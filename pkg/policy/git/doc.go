// Package git provides a git-backed bundle source for GitOps policy
// management.
//
// The source clones a policy repository, parses the bundle at a
// configured path, and polls the remote for new commits. When HEAD
// moves, the source emits a bundle event so the policy manager can
// reload.
//
// # Basic Usage
//
//	cfg := &config.GitConfig{
//		Repository: "https://github.com/company/policies.git",
//		Branch:     "main",
//		Path:       "bundle.yaml",
//	}
//
//	source, err := git.NewGitSource(cfg, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	bundle, err := source.Load(ctx)
//
// # Authentication
//
// Supported authentication methods:
//   - Token-based (HTTPS): GitHub, GitLab, Bitbucket tokens
//   - SSH key-based: public key authentication
//   - None: public repositories
//
// # Change Detection
//
// Watch pulls the remote at the configured poll interval and emits a
// modified event whenever the pull advances HEAD. Pull failures are
// reported as error events and polling continues.
package git
