package git

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reiken/berth/internal/ports"
)

// initRepo creates a repository with one committed file and returns its path.
func initRepo(t *testing.T) (string, *gogit.Repository) {
	t.Helper()
	dir := t.TempDir()

	repo, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>hi</h1>"), 0o644))
	commitAll(t, repo, "initial page")

	return dir, repo
}

func commitAll(t *testing.T, repo *gogit.Repository, msg string) {
	t.Helper()
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add(".")
	require.NoError(t, err)
	_, err = wt.Commit(msg, &gogit.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)
}

func TestHeadCleanRepo(t *testing.T) {
	dir, _ := initRepo(t)

	rev, err := New().Head(dir)
	require.NoError(t, err)

	assert.Len(t, rev.Hash, 40)
	assert.Equal(t, "master", rev.Branch)
	assert.False(t, rev.Dirty)
}

func TestHeadDirtyWorktree(t *testing.T) {
	dir, _ := initRepo(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>changed</h1>"), 0o644))

	rev, err := New().Head(dir)
	require.NoError(t, err)
	assert.True(t, rev.Dirty)
}

func TestHeadUntrackedFileIsDirty(t *testing.T) {
	dir, _ := initRepo(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.css"), []byte("a{}"), 0o644))

	rev, err := New().Head(dir)
	require.NoError(t, err)
	assert.True(t, rev.Dirty, "an untracked file still means the build differs from the commit")
}

func TestHeadFromSubdirectory(t *testing.T) {
	dir, _ := initRepo(t)
	sub := filepath.Join(dir, "site", "css")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	rev, err := New().Head(sub)
	require.NoError(t, err)
	assert.Len(t, rev.Hash, 40, "dot-git discovery walks up from nested dirs")
}

func TestHeadDetached(t *testing.T) {
	dir, repo := initRepo(t)

	head, err := repo.Head()
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, wt.Checkout(&gogit.CheckoutOptions{Hash: head.Hash()}))

	rev, err := New().Head(dir)
	require.NoError(t, err)
	assert.Equal(t, head.Hash().String(), rev.Hash)
	assert.Empty(t, rev.Branch, "detached HEAD has no branch")
}

func TestHeadNotARepository(t *testing.T) {
	_, err := New().Head(t.TempDir())
	assert.ErrorIs(t, err, ports.ErrNoRepository)
}

func TestHeadEmptyRepository(t *testing.T) {
	dir := t.TempDir()
	_, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)

	_, err = New().Head(dir)
	assert.ErrorIs(t, err, ports.ErrNoCommits)
	assert.NotErrorIs(t, err, ports.ErrNoRepository, "an initialized repository must not pass for a missing one")
}
