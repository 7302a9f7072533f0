package app

import (
	"fmt"
	"os"
	"path/filepath"

	fsw "github.com/reiken/berth/internal/adapters/fsnotify"
	"github.com/reiken/berth/internal/adapters/web"
	"github.com/reiken/berth/internal/ports"
)

// PreviewSession is a running preview server, optionally with a watcher
// driving browser reloads.
type PreviewSession struct {
	Server  *web.Server
	watcher ports.Watcher
}

// StartPreview serves the site directory over local HTTP without any
// container: the fastest "does the page load" check there is. With watch,
// file changes wake the reload endpoint so an open browser tab refreshes
// itself. The preferred port is the manifest host port + 1, to stay clear of
// a running container.
func (a *App) StartPreview(watch bool) (*PreviewSession, error) {
	m, err := a.Manifest()
	if err != nil {
		return nil, err
	}
	siteDir := filepath.Join(a.Root, m.Site.Dir)
	if _, err := os.Stat(siteDir); err != nil {
		return nil, fmt.Errorf("site directory %q not found, run `berth init` to scaffold it", m.Site.Dir)
	}

	// State files are best-effort — the preview must still work in a
	// workspace where .berth/ cannot be created.
	store, err := a.Store()
	if err != nil {
		a.Log.Debug("preview without history", "err", err)
		store = nil
	}
	portFile := a.Paths.PortFile
	if err := a.Paths.EnsureDirs(); err != nil {
		a.Log.Debug("preview without port file", "err", err)
		portFile = ""
	}

	srv := web.NewServer(m.Site.Name, siteDir, store, portFile)
	if err := srv.Start(m.Run.HostPort + 1); err != nil {
		return nil, err
	}

	s := &PreviewSession{Server: srv}
	if watch {
		w, err := fsw.NewWatcher()
		if err != nil {
			srv.Stop()
			return nil, fmt.Errorf("create watcher: %w", err)
		}
		if err := w.Watch(siteDir, func(string) { srv.NotifyChanged() }); err != nil {
			srv.Stop()
			w.Stop()
			return nil, fmt.Errorf("watch %s: %w", siteDir, err)
		}
		s.watcher = w
	}
	a.Log.Debug("preview serving", "url", srv.URL(), "watch", watch)
	return s, nil
}

// Stop shuts the preview down and removes the port file.
func (p *PreviewSession) Stop() {
	if p.watcher != nil {
		p.watcher.Stop()
	}
	p.Server.Stop()
}
