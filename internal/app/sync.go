package app

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"sync"

	fsw "github.com/reiken/berth/internal/adapters/fsnotify"
	"github.com/reiken/berth/internal/domain/site"
	"github.com/reiken/berth/internal/ports"
)

// SyncSession mirrors site directory changes into the running container's
// web root, so edits show up on refresh without a rebuild. The whole site is
// re-shipped on every change — for a static site that is a handful of
// kilobytes, and it makes deletes and renames come out right.
type SyncSession struct {
	app       *App
	container string
	siteDir   string
	spec      site.Spec

	mu      sync.Mutex // serializes pushes; watcher callbacks are concurrent
	watcher ports.Watcher
}

// StartSync begins watching the site directory and pushing changes into the
// named container. onSync is invoked after every push attempt with the
// changed path and the push error, nil on success.
func (a *App) StartSync(ctx context.Context, onSync func(path string, err error)) (*SyncSession, error) {
	m, err := a.Manifest()
	if err != nil {
		return nil, err
	}
	engine, err := a.Engine()
	if err != nil {
		return nil, err
	}
	state, err := engine.Inspect(ctx, m.Run.Name)
	if err != nil {
		return nil, err
	}
	if state == nil || !state.Running {
		return nil, fmt.Errorf("container %s is not running — run `berth run` first", m.Run.Name)
	}

	w, err := fsw.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	s := &SyncSession{
		app:       a,
		container: m.Run.Name,
		siteDir:   m.Site.Dir,
		spec: site.Spec{
			Dir:        m.Site.Dir,
			Base:       m.Image.Base,
			Port:       m.Image.Port,
			Dockerfile: m.Image.Dockerfile,
		},
		watcher: w,
	}

	dir := filepath.Join(a.Root, m.Site.Dir)
	if err := w.Watch(dir, func(changed string) {
		err := s.push(ctx)
		if onSync != nil {
			onSync(changed, err)
		}
	}); err != nil {
		w.Stop()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	a.Log.Debug("live sync watching", "dir", dir, "container", m.Run.Name)

	return s, nil
}

// push re-assembles the site content and extracts it into the web root.
func (s *SyncSession) push(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bc, err := site.Assemble(s.app.Root, s.spec)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := bc.TarContent(s.siteDir, &buf); err != nil {
		return err
	}

	engine, err := s.app.Engine()
	if err != nil {
		return err
	}
	if err := engine.SyncFiles(ctx, s.container, &buf, site.Webroot); err != nil {
		return fmt.Errorf("sync into %s: %w", s.container, err)
	}
	return nil
}

// Stop ends the watch. A push already in flight finishes on its own.
func (s *SyncSession) Stop() {
	s.watcher.Stop()
}
