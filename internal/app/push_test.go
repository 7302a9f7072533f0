package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reiken/berth/internal/domain/tags"
	"github.com/reiken/berth/internal/ports"
)

// pushReadyApp builds a committed workspace with a registry repository and a
// locally built image, with canned auth and verification.
func pushReadyApp(t *testing.T) (*App, *fakeEngine, *fakeStore, string) {
	t.Helper()
	a, fe, fs := newTestApp(t, map[string]string{
		"berth.yaml":      manifestYAML,
		"site/index.html": "<h1>hi</h1>",
	})
	hash := commitAll(t, a.Root)
	_, err := a.Build(context.Background(), BuildRequest{})
	require.NoError(t, err)

	a.auth = &fakeAuth{name: "static", creds: ports.Credentials{
		Username: "bob", Secret: "hunter2", ServerAddress: "ghcr.io",
	}}
	a.verify = &fakeVerify{dg: fe.pushDigest}
	return a, fe, fs, hash
}

func TestPush_DerivedTags(t *testing.T) {
	a, fe, fs, hash := pushReadyApp(t)
	abbrev := tags.Abbrev(hash)

	out, err := a.Push(context.Background(), PushRequest{})
	require.NoError(t, err)

	assert.Equal(t, "ghcr.io/acme/landing", out.Repository)
	assert.Equal(t, []string{abbrev, "latest"}, out.Tags, "commit tag first, then the default extra")
	assert.Equal(t, []string{
		"ghcr.io/acme/landing:" + abbrev,
		"ghcr.io/acme/landing:latest",
	}, out.Refs)
	assert.Equal(t, fe.pushDigest, out.Digest)
	assert.Equal(t, "static", out.Auth)

	assert.Equal(t, out.Refs, fe.pushedRefs)
	assert.Equal(t, out.Refs, a.verify.(*fakeVerify).calls, "every pushed tag is verified")

	require.Len(t, fs.releases["landing"], 1)
	rec := fs.releases["landing"][0]
	assert.Equal(t, "ghcr.io/acme/landing", rec.Repository)
	assert.Equal(t, []string{abbrev, "latest"}, rec.Tags)
	assert.Equal(t, fe.pushDigest.String(), rec.Digest)
	assert.Equal(t, abbrev, rec.Revision)
	assert.False(t, rec.Dirty)
}

func TestPush_OverrideTag(t *testing.T) {
	a, fe, fs := newTestApp(t, map[string]string{
		"berth.yaml":      manifestYAML,
		"site/index.html": "<h1>hi</h1>",
	})
	_, err := a.Build(context.Background(), BuildRequest{})
	require.NoError(t, err)
	a.auth = &fakeAuth{name: "static"}
	a.verify = &fakeVerify{dg: fe.pushDigest}

	out, err := a.Push(context.Background(), PushRequest{Tag: "v1"})
	require.NoError(t, err)

	assert.Equal(t, []string{"v1", "latest"}, out.Tags)
	require.Len(t, fs.releases["landing"], 1)
	assert.Empty(t, fs.releases["landing"][0].Revision)
}

func TestPush_RequiresTagOutsideRepository(t *testing.T) {
	a, _, _ := newTestApp(t, map[string]string{
		"berth.yaml":      manifestYAML,
		"site/index.html": "<h1>hi</h1>",
	})

	_, err := a.Push(context.Background(), PushRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--tag")
}

func TestPush_NoRepositoryConfigured(t *testing.T) {
	a, _, _ := newTestApp(t, map[string]string{
		"berth.yaml":      localManifestYAML,
		"site/index.html": "<h1>hi</h1>",
	})

	_, err := a.Push(context.Background(), PushRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "image.repository")
}

func TestPush_MissingImage(t *testing.T) {
	a, _, _ := newTestApp(t, map[string]string{
		"berth.yaml":      manifestYAML,
		"site/index.html": "<h1>hi</h1>",
	})
	commitAll(t, a.Root)
	a.auth = &fakeAuth{name: "static"}

	_, err := a.Push(context.Background(), PushRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "berth build")
}

func TestPush_RegistryDisagrees(t *testing.T) {
	a, _, fs, _ := pushReadyApp(t)
	a.verify = &fakeVerify{dg: "sha256:cccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccc"}

	_, err := a.Push(context.Background(), PushRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disagrees")
	assert.Empty(t, fs.releases["landing"], "unverified pushes are not recorded")
}

func TestPush_AuthFailure(t *testing.T) {
	a, _, _, _ := pushReadyApp(t)
	a.auth = &fakeAuth{name: "static", err: errors.New("password variable not set")}

	_, err := a.Push(context.Background(), PushRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "authenticate to ghcr.io")
	assert.Contains(t, err.Error(), "password variable")
}

func TestPush_InvalidOverrideTag(t *testing.T) {
	a, _, _, _ := pushReadyApp(t)

	_, err := a.Push(context.Background(), PushRequest{Tag: "not a tag"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid tag")
}

func TestRelease_BuildsThenPushes(t *testing.T) {
	a, fe, fs := newTestApp(t, map[string]string{
		"berth.yaml":      manifestYAML,
		"site/index.html": "<h1>hi</h1>",
	})
	commitAll(t, a.Root)
	a.auth = &fakeAuth{name: "static"}
	a.verify = &fakeVerify{dg: fe.pushDigest}

	build, push, err := a.Release(context.Background(), ReleaseRequest{})
	require.NoError(t, err)
	require.NotNil(t, build)
	require.NotNil(t, push)

	assert.Len(t, fe.pushedRefs, 2)
	assert.Len(t, fs.builds["landing"], 1)
	assert.Len(t, fs.releases["landing"], 1)
}

func TestPushTags(t *testing.T) {
	rev := ports.Revision{Hash: "4f2d9a81c3e7b5061a2e8d94c7f013a5d2e6b890"}

	set, err := pushTags(rev, "", []string{"latest", "latest", ""})
	require.NoError(t, err)
	assert.Equal(t, []string{"4f2d9a81c3e7", "latest"}, set)

	set, err = pushTags(rev, "v2", []string{"latest", "v2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"v2", "latest"}, set, "override replaces the derived tag and dedupes extras")

	_, err = pushTags(ports.Revision{}, "", []string{"latest"})
	require.Error(t, err)
}
