package docker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/nat"

	"github.com/reiken/berth/internal/ports"
)

// Create makes a container with the single host→container port mapping the
// spec names. The container is not started. A name conflict surfaces as the
// engine's conflict error so callers can suggest `start` or `rm`.
func (e *Engine) Create(ctx context.Context, spec ports.ContainerSpec) (string, error) {
	port, err := nat.NewPort("tcp", strconv.Itoa(spec.ContainerPort))
	if err != nil {
		return "", fmt.Errorf("container port %d: %w", spec.ContainerPort, err)
	}

	cfg := &container.Config{
		Image:        spec.Image,
		Labels:       managedLabels(spec.Labels),
		ExposedPorts: nat.PortSet{port: struct{}{}},
	}
	hostCfg := &container.HostConfig{
		PortBindings: nat.PortMap{
			port: []nat.PortBinding{{HostPort: strconv.Itoa(spec.HostPort)}},
		},
	}

	resp, err := e.cli.ContainerCreate(ctx, cfg, hostCfg, nil, nil, spec.Name)
	if err != nil {
		return "", fmt.Errorf("create container %s: %w", spec.Name, err)
	}
	return resp.ID, nil
}

// Start starts a created or stopped container.
func (e *Engine) Start(ctx context.Context, name string) error {
	if err := e.cli.ContainerStart(ctx, name, container.StartOptions{}); err != nil {
		return fmt.Errorf("start container %s: %w", name, err)
	}
	return nil
}

// Stop stops a running container. timeout <= 0 leaves the engine's default
// grace period in place.
func (e *Engine) Stop(ctx context.Context, name string, timeout time.Duration) error {
	opts := container.StopOptions{}
	if timeout > 0 {
		seconds := int(timeout.Seconds())
		opts.Timeout = &seconds
	}
	if err := e.cli.ContainerStop(ctx, name, opts); err != nil {
		return fmt.Errorf("stop container %s: %w", name, err)
	}
	return nil
}

// Remove deletes a container. Without force, the engine refuses to remove a
// running one and that refusal is passed through.
func (e *Engine) Remove(ctx context.Context, name string, force bool) error {
	if err := e.cli.ContainerRemove(ctx, name, container.RemoveOptions{Force: force}); err != nil {
		return fmt.Errorf("remove container %s: %w", name, err)
	}
	return nil
}

// Logs copies the container's output to stdout and stderr. berth containers
// run without a TTY, so the stream arrives multiplexed and is demuxed here.
// During --follow, context cancellation is the normal way out.
func (e *Engine) Logs(ctx context.Context, name string, opts ports.LogOptions, stdout, stderr io.Writer) error {
	tail := "all"
	if opts.Tail > 0 {
		tail = strconv.Itoa(opts.Tail)
	}

	body, err := e.cli.ContainerLogs(ctx, name, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     opts.Follow,
		Tail:       tail,
	})
	if err != nil {
		return fmt.Errorf("fetch logs for %s: %w", name, err)
	}
	defer body.Close()

	if _, err := stdcopy.StdCopy(stdout, stderr, body); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
			return nil
		}
		return fmt.Errorf("read logs for %s: %w", name, err)
	}
	return nil
}

// Inspect returns the container's state, or nil, nil when it doesn't exist.
func (e *Engine) Inspect(ctx context.Context, name string) (*ports.ContainerState, error) {
	res, err := e.cli.ContainerInspect(ctx, name)
	if err != nil {
		if cerrdefs.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("inspect container %s: %w", name, err)
	}

	state := &ports.ContainerState{
		ID:   res.ID,
		Name: strings.TrimPrefix(res.Name, "/"),
	}
	if res.Config != nil {
		state.Image = res.Config.Image
		state.Labels = res.Config.Labels
	}
	if res.State != nil {
		state.Status = res.State.Status
		state.Running = res.State.Running
		if t, err := time.Parse(time.RFC3339Nano, res.State.StartedAt); err == nil {
			state.StartedAt = t
		}
	}
	// A stopped container has no live network state; the host config still
	// remembers the requested binding.
	if res.NetworkSettings != nil {
		state.HostPort, state.ContainerPort = firstBinding(res.NetworkSettings.Ports)
	}
	if state.HostPort == 0 && res.HostConfig != nil {
		state.HostPort, state.ContainerPort = firstBinding(res.HostConfig.PortBindings)
	}
	return state, nil
}

// List returns every berth-managed container, running or not. The label
// filter keeps foreign containers out.
func (e *Engine) List(ctx context.Context) ([]ports.ContainerState, error) {
	summaries, err := e.cli.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("label", LabelManaged+"=true")),
	})
	if err != nil {
		return nil, fmt.Errorf("list containers: %w", err)
	}

	states := make([]ports.ContainerState, 0, len(summaries))
	for _, s := range summaries {
		st := ports.ContainerState{
			ID:      s.ID,
			Image:   s.Image,
			Status:  string(s.State),
			Running: string(s.State) == "running",
			Labels:  s.Labels,
		}
		if len(s.Names) > 0 {
			st.Name = strings.TrimPrefix(s.Names[0], "/")
		}
		for _, p := range s.Ports {
			if p.PublicPort != 0 {
				st.HostPort = int(p.PublicPort)
				st.ContainerPort = int(p.PrivatePort)
				break
			}
		}
		states = append(states, st)
	}
	return states, nil
}

// SyncFiles extracts a tar stream into destDir inside a running container.
func (e *Engine) SyncFiles(ctx context.Context, name string, content io.Reader, destDir string) error {
	err := e.cli.CopyToContainer(ctx, name, destDir, content, container.CopyToContainerOptions{})
	if err != nil {
		return fmt.Errorf("copy files into %s: %w", name, err)
	}
	return nil
}

// firstBinding extracts the single port mapping berth containers carry.
// Returns zeros when no binding is present.
func firstBinding(m nat.PortMap) (hostPort, containerPort int) {
	for port, bindings := range m {
		for _, b := range bindings {
			h, err := strconv.Atoi(b.HostPort)
			if err != nil {
				continue
			}
			return h, port.Int()
		}
	}
	return 0, 0
}
