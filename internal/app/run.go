package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/reiken/berth/internal/adapters/docker"
	"github.com/reiken/berth/internal/ports"
)

// stopTimeout is how long a container gets to exit gracefully before the
// engine kills it.
const stopTimeout = 10 * time.Second

// RunOutcome describes the container a Run created.
type RunOutcome struct {
	Container string
	ID        string
	Image     string
	HostPort  int
	URL       string
}

// Run creates and starts the site's container with the manifest port mapping.
// The image for the current revision must already be built.
func (a *App) Run(ctx context.Context) (*RunOutcome, error) {
	m, err := a.Manifest()
	if err != nil {
		return nil, err
	}
	_, localTag, err := a.buildTag()
	if err != nil {
		return nil, err
	}
	ref, err := imageRef(m, localTag)
	if err != nil {
		return nil, err
	}

	engine, err := a.Engine()
	if err != nil {
		return nil, err
	}
	img, err := engine.ImageSummary(ctx, ref)
	if err != nil {
		return nil, err
	}
	if img == nil {
		return nil, fmt.Errorf("no local image %s for this revision — run `berth build` first", ref)
	}

	id, err := engine.Create(ctx, ports.ContainerSpec{
		Name:          m.Run.Name,
		Image:         ref,
		ContainerPort: m.Image.Port,
		HostPort:      m.Run.HostPort,
		Labels:        map[string]string{docker.LabelSite: m.Site.Name},
	})
	if err != nil {
		return nil, err
	}
	if err := engine.Start(ctx, m.Run.Name); err != nil {
		return nil, err
	}
	a.Log.Debug("container started",
		"name", m.Run.Name, "id", id, "hostPort", m.Run.HostPort)

	store, err := a.Store()
	if err != nil {
		return nil, err
	}
	rec := ports.RunRecord{
		ID:        uuid.NewString(),
		Container: m.Run.Name,
		Image:     ref,
		HostPort:  m.Run.HostPort,
		At:        time.Now().UTC(),
	}
	if err := store.AppendRun(m.Site.Name, rec); err != nil {
		return nil, fmt.Errorf("record run: %w", err)
	}

	return &RunOutcome{
		Container: m.Run.Name,
		ID:        id,
		Image:     ref,
		HostPort:  m.Run.HostPort,
		URL:       fmt.Sprintf("http://localhost:%d/", m.Run.HostPort),
	}, nil
}

// Stop gracefully stops the site's container. Returns the container name.
func (a *App) Stop(ctx context.Context) (string, error) {
	m, err := a.Manifest()
	if err != nil {
		return "", err
	}
	engine, err := a.Engine()
	if err != nil {
		return "", err
	}
	return m.Run.Name, engine.Stop(ctx, m.Run.Name, stopTimeout)
}

// Start starts the site's existing (stopped) container. Returns the name.
func (a *App) Start(ctx context.Context) (string, error) {
	m, err := a.Manifest()
	if err != nil {
		return "", err
	}
	engine, err := a.Engine()
	if err != nil {
		return "", err
	}
	return m.Run.Name, engine.Start(ctx, m.Run.Name)
}

// Remove deletes the site's container. With force a running container is
// killed first.
func (a *App) Remove(ctx context.Context, force bool) (string, error) {
	m, err := a.Manifest()
	if err != nil {
		return "", err
	}
	engine, err := a.Engine()
	if err != nil {
		return "", err
	}
	return m.Run.Name, engine.Remove(ctx, m.Run.Name, force)
}

// Logs copies the container's output streams to the given writers.
func (a *App) Logs(ctx context.Context, opts ports.LogOptions, stdout, stderr io.Writer) error {
	m, err := a.Manifest()
	if err != nil {
		return err
	}
	engine, err := a.Engine()
	if err != nil {
		return err
	}
	return engine.Logs(ctx, m.Run.Name, opts, stdout, stderr)
}

// SiteStatus aggregates everything `berth status` displays.
type SiteStatus struct {
	Site        string
	Container   *ports.ContainerState // nil when the container does not exist
	ImageRef    string                // the current revision's local reference
	Image       *ports.ImageSummary   // nil when not built
	LastBuild   *ports.BuildRecord
	LastRelease *ports.ReleaseRecord
}

// Status inspects the engine and the history store.
func (a *App) Status(ctx context.Context) (*SiteStatus, error) {
	m, err := a.Manifest()
	if err != nil {
		return nil, err
	}
	engine, err := a.Engine()
	if err != nil {
		return nil, err
	}

	st := &SiteStatus{Site: m.Site.Name}

	st.Container, err = engine.Inspect(ctx, m.Run.Name)
	if err != nil {
		return nil, err
	}

	if _, localTag, err := a.buildTag(); err == nil {
		if ref, err := imageRef(m, localTag); err == nil {
			st.ImageRef = ref
			st.Image, err = engine.ImageSummary(ctx, ref)
			if err != nil {
				return nil, err
			}
		}
	}

	store, err := a.Store()
	if err != nil {
		return nil, err
	}
	st.LastRelease, err = store.LastRelease(m.Site.Name)
	if err != nil {
		return nil, err
	}
	entries, err := store.History(m.Site.Name, 0)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.Build != nil {
			st.LastBuild = e.Build
			break
		}
	}

	return st, nil
}

// Probe issues one HTTP request against the mapped host port — the
// walkthrough's manual "does the page load" check, automated.
func (a *App) Probe(ctx context.Context, hostPort int) (int, time.Duration, error) {
	url := fmt.Sprintf("http://localhost:%d/", hostPort)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, 0, err
	}
	client := &http.Client{Timeout: 5 * time.Second}
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, time.Since(start), nil
}

// CleanOutcome reports what Clean removed.
type CleanOutcome struct {
	Removed      []string // container names, possibly from older manifests
	HistoryWiped bool
}

// Clean removes the site's containers (running or not), wipes its delivery
// history, and clears ephemeral state files. Images are left for the engine's
// own garbage collection.
func (a *App) Clean(ctx context.Context) (*CleanOutcome, error) {
	m, err := a.Manifest()
	if err != nil {
		return nil, err
	}
	engine, err := a.Engine()
	if err != nil {
		return nil, err
	}

	out := &CleanOutcome{}

	// Sweep by label rather than by run.name: a container created under an
	// earlier name still belongs to this site, and a foreign container that
	// merely shares the current name does not.
	states, err := engine.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, state := range states {
		if state.Labels[docker.LabelSite] == m.Site.Name {
			out.Removed = append(out.Removed, state.Name)
		}
	}
	sort.Strings(out.Removed)
	for _, name := range out.Removed {
		if err := engine.Remove(ctx, name, true); err != nil {
			return nil, err
		}
	}

	store, err := a.Store()
	if err != nil {
		return nil, err
	}
	if err := store.Wipe(m.Site.Name); err != nil {
		return nil, fmt.Errorf("wipe history: %w", err)
	}
	out.HistoryWiped = true

	a.Paths.CleanEphemeral()
	return out, nil
}
