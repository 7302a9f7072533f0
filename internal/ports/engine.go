// Package ports defines the interfaces (contracts) that adapters must implement.
// These are the boundaries of the hexagonal architecture. Domain logic depends
// only on these interfaces, never on concrete implementations.
//
// Everything behind these ports is an external system: the container engine
// owns image layering, container networking, and port forwarding; the registry
// owns artifact storage and auth protocols. berth contributes argument values
// and orchestration, never runtime behavior.
package ports

import (
	"context"
	"io"
	"time"

	"github.com/opencontainers/go-digest"
)

// Engine is the port to the container engine's HTTP API. The concrete
// implementation (internal/adapters/docker) talks to a local Docker-compatible
// daemon. All operations are context-bound; a cancelled context aborts the
// underlying API call.
type Engine interface {
	// Ping verifies the daemon is reachable and returns version info for
	// diagnostics. A failed ping is the canonical "is Docker running?" signal.
	Ping(ctx context.Context) (EngineInfo, error)

	// Build streams a tar build context to the engine and tags the result.
	// The engine's own builder does the layering; Build only decodes the
	// message stream, surfaces build errors verbatim, and returns the image ID.
	Build(ctx context.Context, contextTar io.Reader, opts BuildOptions) (BuildResult, error)

	// Tag applies an additional reference to a local image.
	Tag(ctx context.Context, src, dst string) error

	// ImageSummary returns local metadata for a built image.
	// Returns nil, nil if the image does not exist locally.
	ImageSummary(ctx context.Context, ref string) (*ImageSummary, error)

	// Push uploads a tagged image. encodedAuth is the base64 registry auth
	// blob the engine API expects. Progress messages are written to progress
	// (may be nil). The returned digest comes from the engine's final status
	// message — callers should verify it against the registry independently.
	Push(ctx context.Context, ref string, encodedAuth string, progress io.Writer) (digest.Digest, error)

	// Create makes a container from spec without starting it. Returns the
	// container ID. Name conflicts surface as engine conflict errors.
	Create(ctx context.Context, spec ContainerSpec) (string, error)

	// Start starts a created or stopped container by name.
	Start(ctx context.Context, name string) error

	// Stop stops a running container, giving it timeout to exit gracefully.
	Stop(ctx context.Context, name string, timeout time.Duration) error

	// Remove deletes a container. With force, a running container is killed
	// first; without it, removing a running container is an error.
	Remove(ctx context.Context, name string, force bool) error

	// Logs copies the container's demultiplexed output streams to stdout and
	// stderr. With opts.Follow it blocks until the context is cancelled or
	// the container exits.
	Logs(ctx context.Context, name string, opts LogOptions, stdout, stderr io.Writer) error

	// Inspect returns the current state of a container by name.
	// Returns nil, nil if no such container exists.
	Inspect(ctx context.Context, name string) (*ContainerState, error)

	// List returns all berth-managed containers (label-filtered), running or
	// not. Foreign containers are never included.
	List(ctx context.Context) ([]ContainerState, error)

	// SyncFiles extracts a tar stream into destDir inside a running
	// container. Used by live sync to refresh the served web root without a
	// rebuild.
	SyncFiles(ctx context.Context, name string, content io.Reader, destDir string) error

	// Close releases the underlying API client.
	Close() error
}

// EngineInfo describes the daemon answering the ping.
type EngineInfo struct {
	APIVersion string
	OSType     string
}

// BuildOptions parameterizes an image build. Tags must be valid references;
// Labels are applied to the resulting image config.
type BuildOptions struct {
	Tags    []string
	Labels  map[string]string
	NoCache bool
	Pull    bool // always attempt to pull a newer base image

	// Progress receives the engine's human-readable build output (step
	// lines, layer pulls). May be nil to discard.
	Progress io.Writer
}

// BuildResult is the decoded outcome of a successful build.
type BuildResult struct {
	ImageID string // content-addressed image ID ("sha256:...")
}

// ImageSummary is local image metadata for status output.
type ImageSummary struct {
	ID      string
	Size    int64
	Created time.Time
}

// ContainerSpec carries everything Create needs. HostPort→ContainerPort is
// the single port mapping the engine's NAT layer will provide.
type ContainerSpec struct {
	Name          string
	Image         string
	ContainerPort int
	HostPort      int
	Labels        map[string]string
}

// LogOptions controls log retrieval. Tail <= 0 means all lines.
type LogOptions struct {
	Follow bool
	Tail   int
}

// ContainerState is the decoded inspect result berth cares about.
type ContainerState struct {
	ID            string
	Name          string
	Image         string
	Status        string // engine status string: "created", "running", "exited", ...
	Running       bool
	HostPort      int
	ContainerPort int
	StartedAt     time.Time
	Labels        map[string]string
}
