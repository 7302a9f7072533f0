// Package git implements the ports.RevisionSource interface with a pure-Go
// repository reader — no git binary required, which matters inside minimal CI
// images.
package git

import (
	"errors"
	"fmt"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/reiken/berth/internal/ports"
)

// Source reads revisions from the repository enclosing a directory.
type Source struct{}

// New returns a revision source.
func New() *Source { return &Source{} }

// Head resolves the revision the workspace sits on. Detached HEADs work —
// only the hash is required; the branch name is a bonus. A repository with no
// commits yet reports ErrNoCommits, since there is nothing to derive a tag
// from.
func (s *Source) Head(dir string) (ports.Revision, error) {
	repo, err := gogit.PlainOpenWithOptions(dir, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, gogit.ErrRepositoryNotExists) {
			return ports.Revision{}, ports.ErrNoRepository
		}
		return ports.Revision{}, fmt.Errorf("open repository: %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return ports.Revision{}, ports.ErrNoCommits
		}
		return ports.Revision{}, fmt.Errorf("read HEAD: %w", err)
	}

	rev := ports.Revision{Hash: head.Hash().String()}
	if head.Name().IsBranch() {
		rev.Branch = head.Name().Short()
	}

	wt, err := repo.Worktree()
	if err != nil {
		// Bare repository: no worktree means nothing can be dirty.
		return rev, nil
	}
	status, err := wt.Status()
	if err != nil {
		// Failing open would let a modified build masquerade as its commit.
		return ports.Revision{}, fmt.Errorf("read worktree status: %w", err)
	}
	rev.Dirty = !status.IsClean()

	return rev, nil
}
