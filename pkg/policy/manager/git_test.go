package manager

import (
	"os"
	"path/filepath"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// gitInitWithBundle initializes a git repository in dir with a
// committed bundle.yaml, for git mode tests.
func gitInitWithBundle(dir string) (*gogit.Repository, error) {
	repo, err := gogit.PlainInit(dir, false)
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(filepath.Join(dir, "bundle.yaml"), []byte(oneRuleBundle), 0644); err != nil {
		return nil, err
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return nil, err
	}
	if _, err := worktree.Add("bundle.yaml"); err != nil {
		return nil, err
	}
	_, err = worktree.Commit("initial bundle", &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  "Test User",
			Email: "test@example.com",
			When:  time.Now(),
		},
	})
	if err != nil {
		return nil, err
	}

	return repo, nil
}
