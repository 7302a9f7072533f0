package web

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reiken/berth/internal/ports"
)

// fakeStore implements ports.Store with canned history.
type fakeStore struct {
	build   *ports.BuildRecord
	release *ports.ReleaseRecord
}

func (f *fakeStore) AppendBuild(string, ports.BuildRecord) error     { return nil }
func (f *fakeStore) AppendRun(string, ports.RunRecord) error         { return nil }
func (f *fakeStore) AppendRelease(string, ports.ReleaseRecord) error { return nil }
func (f *fakeStore) Wipe(string) error                               { return nil }
func (f *fakeStore) Close() error                                    { return nil }

func (f *fakeStore) LastRelease(string) (*ports.ReleaseRecord, error) {
	return f.release, nil
}

func (f *fakeStore) History(string, int) ([]ports.HistoryEntry, error) {
	var entries []ports.HistoryEntry
	if f.build != nil {
		entries = append(entries, ports.HistoryEntry{Kind: "build", At: f.build.At, Build: f.build})
	}
	return entries, nil
}

// setupTestServer serves a small site dir through the same mux Start wires.
func setupTestServer(t *testing.T, store ports.Store) (*Server, *httptest.Server) {
	t.Helper()

	siteDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(siteDir, "index.html"), []byte("<h1>preview</h1>"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(siteDir, "style.css"), []byte("body{}"), 0644))

	srv := NewServer("landing", siteDir, store, "")
	srv.started = time.Now()

	mux := http.NewServeMux()
	mux.Handle("GET /", noCache(http.FileServer(http.Dir(siteDir))))
	mux.HandleFunc("GET /api/status", srv.handleStatus)
	mux.HandleFunc("GET /api/reload", srv.handleReload)

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return srv, ts
}

func TestServesSiteFiles(t *testing.T) {
	_, ts := setupTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/index.html")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"), "edits must show on plain refresh")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "<h1>preview</h1>", string(body))
}

func TestStatusEndpoint(t *testing.T) {
	at := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	store := &fakeStore{
		build: &ports.BuildRecord{ID: "b-1", Ref: "landing:4f2d9a81c3e7", At: at},
		release: &ports.ReleaseRecord{
			ID:     "r-1",
			Tags:   []string{"4f2d9a81c3e7", "latest"},
			Digest: "sha256:9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08",
			At:     at,
		},
	}
	_, ts := setupTestServer(t, store)

	resp, err := http.Get(ts.URL + "/api/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var result statusResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, "landing", result.Site)
	assert.Equal(t, 2, result.Files)
	require.NotNil(t, result.LastBuild)
	assert.Equal(t, "landing:4f2d9a81c3e7", result.LastBuild.Ref)
	require.NotNil(t, result.LastRelease)
	assert.Equal(t, []string{"4f2d9a81c3e7", "latest"}, result.LastRelease.Tags)
}

func TestStatusWithoutStore(t *testing.T) {
	_, ts := setupTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/api/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	var result statusResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, "landing", result.Site)
	assert.Nil(t, result.LastBuild)
	assert.Nil(t, result.LastRelease)
}

func TestReloadAnswersImmediatelyWhenBehind(t *testing.T) {
	srv, ts := setupTestServer(t, nil)
	srv.NotifyChanged()

	resp, err := http.Get(ts.URL + "/api/reload?seq=0")
	require.NoError(t, err)
	defer resp.Body.Close()

	var result reloadResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, uint64(1), result.Seq)
}

func TestReloadWakesOnChange(t *testing.T) {
	srv, ts := setupTestServer(t, nil)

	results := make(chan uint64, 1)
	go func() {
		resp, err := http.Get(fmt.Sprintf("%s/api/reload?seq=%d", ts.URL, 0))
		if err != nil {
			close(results)
			return
		}
		defer resp.Body.Close()
		var result reloadResult
		if json.NewDecoder(resp.Body).Decode(&result) == nil {
			results <- result.Seq
		}
	}()

	// Let the poll settle in before the change happens.
	time.Sleep(100 * time.Millisecond)
	srv.NotifyChanged()

	select {
	case seq, ok := <-results:
		require.True(t, ok)
		assert.Equal(t, uint64(1), seq)
	case <-time.After(3 * time.Second):
		t.Fatal("reload poll never woke up")
	}
}

func TestStartStop(t *testing.T) {
	siteDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(siteDir, "index.html"), []byte("<h1>hi</h1>"), 0644))
	portFile := filepath.Join(t.TempDir(), "preview.port")

	srv := NewServer("landing", siteDir, nil, portFile)
	require.NoError(t, srv.Start(0))
	defer srv.Stop()

	assert.Greater(t, srv.Port(), 0)
	assert.Contains(t, srv.URL(), "http://localhost:")

	data, err := os.ReadFile(portFile)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("%d", srv.Port()), string(data))

	resp, err := http.Get(srv.URL() + "/index.html")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)

	srv.Stop()
	_, err = os.Stat(portFile)
	assert.True(t, os.IsNotExist(err), "port file removed on stop")

	// Idempotent
	srv.Stop()
}

func TestStartFallsBackWhenPortTaken(t *testing.T) {
	siteDir := t.TempDir()

	first := NewServer("landing", siteDir, nil, "")
	require.NoError(t, first.Start(0))
	defer first.Stop()

	second := NewServer("landing", siteDir, nil, "")
	require.NoError(t, second.Start(first.Port()), "a taken port falls back to ephemeral")
	defer second.Stop()

	assert.NotEqual(t, first.Port(), second.Port())
}
