package ports

import "errors"

// ErrNoRepository is returned by RevisionSource when the workspace is not
// inside a version-controlled directory. Callers decide whether that is fatal
// (release: yes, unless an explicit tag is given) or fine (preview: always).
var ErrNoRepository = errors.New("not a git repository")

// ErrNoCommits is returned when the workspace is a repository whose HEAD has
// no commits yet. Callers should not fall back to the dev tag here the way
// they do for ErrNoRepository: a repository exists, so the operator meant to
// version this workspace.
var ErrNoCommits = errors.New("repository has no commits yet — commit your work first")

// Revision describes the VCS state an image is cut from. The hash feeds the
// commit-derived tag; Dirty marks builds from a modified worktree.
type Revision struct {
	Hash   string // full commit hash
	Branch string // symbolic branch name, "" when detached
	Dirty  bool
}

// RevisionSource resolves the current revision of a workspace directory.
type RevisionSource interface {
	// Head returns the revision at the directory's HEAD.
	// Returns ErrNoRepository when dir is not inside a repository, and
	// ErrNoCommits when the repository's HEAD is unborn.
	Head(dir string) (Revision, error)
}