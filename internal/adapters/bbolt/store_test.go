package bbolt

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reiken/berth/internal/ports"
)

// newTestStore creates a temporary bbolt store for testing.
func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")
	store, err := NewStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, path
}

// makeBuildRecord creates a realistic build record at the given time.
func makeBuildRecord(at time.Time) ports.BuildRecord {
	return ports.BuildRecord{
		ID:           "b-1",
		Ref:          "landing:4f2d9a81c3e7",
		ImageID:      "sha256:9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08",
		ContextBytes: 14336,
		Files:        7,
		DurationMs:   2150,
		At:           at,
	}
}

func makeReleaseRecord(at time.Time) ports.ReleaseRecord {
	return ports.ReleaseRecord{
		ID:         "r-1",
		Repository: "ghcr.io/acme/landing",
		Tags:       []string{"4f2d9a81c3e7", "latest"},
		Digest:     "sha256:9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08",
		Revision:   "4f2d9a81c3e7b5061a8d2c4e9f0b7a3d5c1e8f2a",
		At:         at,
	}
}

func TestStore_AppendAndHistory_Roundtrip(t *testing.T) {
	// A build, a run, and a release come back from History as one
	// timeline, newest first, with every field intact.
	store, _ := newTestStore(t)
	base := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)

	build := makeBuildRecord(base)
	run := ports.RunRecord{ID: "rn-1", Container: "landing", Image: "landing:4f2d9a81c3e7", HostPort: 8080, At: base.Add(time.Minute)}
	release := makeReleaseRecord(base.Add(2 * time.Minute))

	require.NoError(t, store.AppendBuild("landing", build))
	require.NoError(t, store.AppendRun("landing", run))
	require.NoError(t, store.AppendRelease("landing", release))

	entries, err := store.History("landing", 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "release", entries[0].Kind)
	assert.Equal(t, "run", entries[1].Kind)
	assert.Equal(t, "build", entries[2].Kind)

	require.NotNil(t, entries[2].Build)
	assert.Equal(t, build.Ref, entries[2].Build.Ref)
	assert.Equal(t, build.ContextBytes, entries[2].Build.ContextBytes)
	assert.Equal(t, build.DurationMs, entries[2].Build.DurationMs)

	require.NotNil(t, entries[1].Run)
	assert.Equal(t, 8080, entries[1].Run.HostPort)

	require.NotNil(t, entries[0].Release)
	assert.Equal(t, release.Tags, entries[0].Release.Tags)
	assert.Equal(t, release.Digest, entries[0].Release.Digest)
}

func TestStore_History_Truncates(t *testing.T) {
	store, _ := newTestStore(t)
	base := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 10; i++ {
		rec := makeBuildRecord(base.Add(time.Duration(i) * time.Minute))
		rec.ID = fmt.Sprintf("b-%d", i)
		require.NoError(t, store.AppendBuild("landing", rec))
	}

	entries, err := store.History("landing", 3)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "b-9", entries[0].Build.ID, "newest first")
	assert.Equal(t, "b-7", entries[2].Build.ID)
}

func TestStore_History_EmptySite(t *testing.T) {
	store, _ := newTestStore(t)

	entries, err := store.History("never-seen", 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStore_LastRelease(t *testing.T) {
	store, _ := newTestStore(t)
	base := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)

	// No releases yet: nil, nil.
	rec, err := store.LastRelease("landing")
	require.NoError(t, err)
	assert.Nil(t, rec)

	first := makeReleaseRecord(base)
	second := makeReleaseRecord(base.Add(time.Hour))
	second.ID = "r-2"
	second.Tags = []string{"aa00bb11cc22", "latest"}
	require.NoError(t, store.AppendRelease("landing", first))
	require.NoError(t, store.AppendRelease("landing", second))

	rec, err = store.LastRelease("landing")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "r-2", rec.ID)
	assert.Equal(t, []string{"aa00bb11cc22", "latest"}, rec.Tags)
}

func TestStore_SiteIsolation(t *testing.T) {
	// Two sites in one database never see each other's history.
	store, _ := newTestStore(t)
	now := time.Now()

	require.NoError(t, store.AppendBuild("site-a", makeBuildRecord(now)))
	require.NoError(t, store.AppendRelease("site-b", makeReleaseRecord(now)))

	a, err := store.History("site-a", 0)
	require.NoError(t, err)
	require.Len(t, a, 1)
	assert.Equal(t, "build", a[0].Kind)

	b, err := store.History("site-b", 0)
	require.NoError(t, err)
	require.Len(t, b, 1)
	assert.Equal(t, "release", b[0].Kind)
}

func TestStore_Wipe(t *testing.T) {
	store, _ := newTestStore(t)

	require.NoError(t, store.AppendBuild("landing", makeBuildRecord(time.Now())))
	require.NoError(t, store.Wipe("landing"))

	entries, err := store.History("landing", 0)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// Idempotent: wiping again (or a site never written) is fine.
	require.NoError(t, store.Wipe("landing"))
	require.NoError(t, store.Wipe("ghost"))
}

func TestStore_Reopen(t *testing.T) {
	// Committed history survives close and reopen — bbolt's transactional
	// writes guarantee this.
	dir := t.TempDir()
	path := filepath.Join(dir, "reopen.db")

	store, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, store.AppendRelease("landing", makeReleaseRecord(time.Now())))
	require.NoError(t, store.Close())

	reopened, err := NewStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	rec, err := reopened.LastRelease("landing")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "r-1", rec.ID)
}

func TestStore_ConcurrentAppends(t *testing.T) {
	// bbolt serializes writers; concurrent appends must all land.
	store, _ := newTestStore(t)
	now := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			rec := makeBuildRecord(now.Add(time.Duration(n) * time.Second))
			rec.ID = fmt.Sprintf("b-%d", n)
			assert.NoError(t, store.AppendBuild("landing", rec))
		}(i)
	}
	wg.Wait()

	entries, err := store.History("landing", 0)
	require.NoError(t, err)
	assert.Len(t, entries, 8)
}
