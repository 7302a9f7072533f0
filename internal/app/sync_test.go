package app

import (
	"archive/tar"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartSync_PushesChanges(t *testing.T) {
	a, fe, _ := builtApp(t)
	_, err := a.Run(context.Background())
	require.NoError(t, err)

	synced := make(chan error, 8)
	s, err := a.StartSync(context.Background(), func(_ string, err error) {
		synced <- err
	})
	require.NoError(t, err)
	defer s.Stop()

	require.NoError(t, os.WriteFile(
		filepath.Join(a.Root, "site", "index.html"), []byte("<h1>new</h1>"), 0o644))

	select {
	case err := <-synced:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for sync")
	}

	fe.mu.Lock()
	payload := append([]byte(nil), fe.syncTar...)
	fe.mu.Unlock()

	tr := tar.NewReader(bytes.NewReader(payload))
	contents := map[string]string{}
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		body, err := io.ReadAll(tr)
		require.NoError(t, err)
		contents[hdr.Name] = string(body)
	}
	assert.Equal(t, "<h1>new</h1>", contents["index.html"],
		"payload is re-rooted at the web root, not the workspace")
}

func TestStartSync_RequiresRunningContainer(t *testing.T) {
	a, _, _ := builtApp(t)

	_, err := a.StartSync(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "berth run")
}
