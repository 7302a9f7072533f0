// Package web serves a local preview of the site directory plus a small JSON
// status API. It answers "does the page load" without a container — nginx
// semantics (real directory handling, custom error pages) still belong to the
// engine run. Binds to localhost only — no network exposure, no auth needed.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/reiken/berth/internal/ports"
)

// reloadPollWindow caps how long a reload poll hangs before the client is
// told to come back. Below common proxy/browser idle timeouts.
const reloadPollWindow = 25 * time.Second

// Server serves the site files and the status/reload API over HTTP.
type Server struct {
	site     string
	siteDir  string
	store    ports.Store
	listener net.Listener
	httpSrv  *http.Server
	port     int
	started  time.Time
	stopOnce sync.Once

	portFilePath string // .berth/preview.port

	// reload fan-out: seq bumps on every change, the channel is closed and
	// replaced to wake all pending polls at once.
	mu        sync.Mutex
	reloadSeq uint64
	reloadCh  chan struct{}
}

// NewServer creates a preview server for a site directory. store may be nil;
// the status endpoint then omits history. The portFilePath is where the bound
// port is written for discovery.
func NewServer(site, siteDir string, store ports.Store, portFilePath string) *Server {
	return &Server{
		site:         site,
		siteDir:      siteDir,
		store:        store,
		portFilePath: portFilePath,
		reloadCh:     make(chan struct{}),
	}
}

// Start begins listening on the preferred port, falling back to an ephemeral
// one when it is taken. Writes the bound port to the port file.
func (s *Server) Start(preferredPort int) error {
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", preferredPort))
	if err != nil {
		ln, err = net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	}
	s.listener = ln
	s.port = ln.Addr().(*net.TCPAddr).Port
	s.started = time.Now()

	mux := http.NewServeMux()
	mux.Handle("GET /", noCache(http.FileServer(http.Dir(s.siteDir))))
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/reload", s.handleReload)

	s.httpSrv = &http.Server{Handler: mux}

	// Write port file for discovery
	if s.portFilePath != "" {
		os.WriteFile(s.portFilePath, []byte(strconv.Itoa(s.port)), 0644)
	}

	go s.httpSrv.Serve(ln)
	return nil
}

// Stop gracefully shuts down the HTTP server. Idempotent.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		if s.httpSrv != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			s.httpSrv.Shutdown(ctx)
		}
		if s.portFilePath != "" {
			os.Remove(s.portFilePath)
		}
	})
}

// Port returns the bound port number.
func (s *Server) Port() int {
	return s.port
}

// URL returns the preview URL.
func (s *Server) URL() string {
	return fmt.Sprintf("http://localhost:%d", s.port)
}

// NotifyChanged wakes every pending reload poll. Wired to the site watcher's
// onChange callback.
func (s *Server) NotifyChanged() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reloadSeq++
	close(s.reloadCh)
	s.reloadCh = make(chan struct{})
}

// statusResult is the response of GET /api/status.
type statusResult struct {
	Site        string              `json:"site"`
	Files       int                 `json:"files"`
	Port        int                 `json:"port"`
	Uptime      string              `json:"uptime"`
	LastBuild   *ports.BuildRecord  `json:"last_build,omitempty"`
	LastRelease *ports.ReleaseRecord `json:"last_release,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	result := statusResult{
		Site:   s.site,
		Files:  countFiles(s.siteDir),
		Port:   s.port,
		Uptime: time.Since(s.started).Round(time.Second).String(),
	}

	if s.store != nil {
		if rel, err := s.store.LastRelease(s.site); err == nil {
			result.LastRelease = rel
		}
		if entries, err := s.store.History(s.site, 20); err == nil {
			for _, e := range entries {
				if e.Kind == "build" {
					result.LastBuild = e.Build
					break
				}
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// reloadResult is the response of GET /api/reload. Clients poll with their
// last seen seq; a bigger seq in the answer means refresh.
type reloadResult struct {
	Seq uint64 `json:"seq"`
}

// handleReload long-polls: it answers immediately when the site changed since
// the client's seq, otherwise it hangs until a change or the poll window
// closes.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	since, _ := strconv.ParseUint(r.URL.Query().Get("seq"), 10, 64)

	s.mu.Lock()
	seq := s.reloadSeq
	ch := s.reloadCh
	s.mu.Unlock()

	if seq <= since {
		select {
		case <-ch:
			s.mu.Lock()
			seq = s.reloadSeq
			s.mu.Unlock()
		case <-time.After(reloadPollWindow):
		case <-r.Context().Done():
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(reloadResult{Seq: seq})
}

// noCache disables client caching so edits show up on plain refresh.
func noCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// countFiles counts regular files under dir. Good enough for status output;
// errors just truncate the count.
func countFiles(dir string) int {
	count := 0
	filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err == nil && d.Type().IsRegular() {
			count++
		}
		return nil
	})
	return count
}
