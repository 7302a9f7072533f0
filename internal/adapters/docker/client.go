// Package docker implements the ports.Engine interface over the Docker Engine
// HTTP API. Every operation maps to exactly one engine endpoint — the engine
// owns image layering, container networking, and port forwarding; this adapter
// contributes argument values and decodes responses. Errors pass through
// wrapped, so callers can classify them with the errdefs helpers (not found,
// conflict, unauthorized).
package docker

import (
	"context"
	"fmt"

	"github.com/docker/docker/client"

	"github.com/reiken/berth/internal/ports"
)

// Container labels. Managed marks a container as berth-owned — List filters on
// it so foreign containers never show up. Site carries the site name for
// status output.
const (
	LabelManaged = "sh.berth.managed"
	LabelSite    = "sh.berth.site"
)

// Engine implements ports.Engine against a local Docker-compatible daemon.
type Engine struct {
	cli *client.Client
}

// New connects to the daemon using the standard environment variables
// (DOCKER_HOST, DOCKER_API_VERSION, ...) and negotiates the API version, so
// one binary works against old and new daemons alike.
func New() (*Engine, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	return &Engine{cli: cli}, nil
}

// Ping verifies the daemon is reachable. The error is returned unwrapped of
// guidance — the CLI layer turns a failed ping into "is Docker running?"
// diagnostics.
func (e *Engine) Ping(ctx context.Context) (ports.EngineInfo, error) {
	p, err := e.cli.Ping(ctx)
	if err != nil {
		return ports.EngineInfo{}, fmt.Errorf("ping docker daemon: %w", err)
	}
	return ports.EngineInfo{APIVersion: p.APIVersion, OSType: p.OSType}, nil
}

// Close releases the underlying HTTP client.
func (e *Engine) Close() error {
	return e.cli.Close()
}

// managedLabels merges the caller's labels with the ownership marker every
// berth container carries. The caller's labels win on collision, except the
// marker itself.
func managedLabels(extra map[string]string) map[string]string {
	labels := make(map[string]string, len(extra)+1)
	for k, v := range extra {
		labels[k] = v
	}
	labels[LabelManaged] = "true"
	return labels
}
