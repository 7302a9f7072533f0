package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPaths(t *testing.T) {
	p := NewPaths("/project")
	assert.Equal(t, filepath.Join("/project", ".berth"), p.Root)
	assert.Equal(t, filepath.Join("/project", ".berth", "history.db"), p.DB)
	assert.Equal(t, filepath.Join("/project", ".berth", "Dockerfile"), p.Dockerfile)
	assert.Equal(t, filepath.Join("/project", ".berth", "run"), p.RunDir)
	assert.Equal(t, filepath.Join("/project", ".berth", "run", "preview.port"), p.PortFile)
}

func TestEnsureDirs(t *testing.T) {
	dir := t.TempDir()
	p := NewPaths(dir)

	// First call creates directories.
	require.NoError(t, p.EnsureDirs())
	for _, d := range []string{p.Root, p.RunDir} {
		info, err := os.Stat(d)
		require.NoError(t, err, "dir %s should exist", d)
		assert.True(t, info.IsDir())
	}

	// Second call is idempotent — no error.
	require.NoError(t, p.EnsureDirs())
}

func TestCleanEphemeral(t *testing.T) {
	dir := t.TempDir()
	p := NewPaths(dir)
	require.NoError(t, p.EnsureDirs())

	require.NoError(t, os.WriteFile(p.PortFile, []byte("8080"), 0644))

	p.CleanEphemeral()
	_, err := os.Stat(p.PortFile)
	assert.True(t, os.IsNotExist(err), "port file should be removed")

	// Calling again with nothing to remove is fine.
	p.CleanEphemeral()
}
