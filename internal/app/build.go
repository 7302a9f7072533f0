package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/distribution/reference"
	"github.com/google/uuid"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/reiken/berth/internal/adapters/docker"
	"github.com/reiken/berth/internal/domain/site"
	"github.com/reiken/berth/internal/domain/tags"
	"github.com/reiken/berth/internal/manifest"
	"github.com/reiken/berth/internal/ports"
)

// devTag names images built outside version control, where no commit hash
// exists to derive a tag from.
const devTag = "dev"

// BuildRequest parameterizes one image build.
type BuildRequest struct {
	NoCache bool
	Pull    bool // always attempt to pull a newer base image

	// Progress receives the engine's build output. May be nil.
	Progress io.Writer
}

// BuildOutcome summarizes a finished build for display and history.
type BuildOutcome struct {
	Ref          string // the tag the image was built under
	ImageID      string
	Files        int
	ContextBytes int64
	Duration     time.Duration
	Warnings     []string
	Revision     ports.Revision // zero Hash when the workspace has no repository
}

// Build assembles the site's build context, streams it to the engine, and
// records the result. The image is tagged with the commit-derived tag (or
// "dev" outside version control); push-time extras like "latest" are applied
// later by the release flow.
func (a *App) Build(ctx context.Context, req BuildRequest) (*BuildOutcome, error) {
	m, err := a.Manifest()
	if err != nil {
		return nil, err
	}

	rev, tag, err := a.buildTag()
	if err != nil {
		return nil, err
	}
	ref, err := imageRef(m, tag)
	if err != nil {
		return nil, err
	}

	spec := site.Spec{
		Dir:        m.Site.Dir,
		Base:       m.Image.Base,
		Port:       m.Image.Port,
		Dockerfile: m.Image.Dockerfile,
	}
	bc, err := site.Assemble(a.Root, spec)
	if err != nil {
		return nil, err
	}
	info, err := site.InspectDockerfile(bc.Dockerfile)
	if err != nil {
		return nil, fmt.Errorf("parse build file: %w", err)
	}
	warnings, err := info.Check(spec)
	if err != nil {
		return nil, err
	}
	if !bc.HasIndex {
		warnings = append(warnings, fmt.Sprintf("%s/ contains no index.html — the server will answer with its default page", m.Site.Dir))
	}
	for _, p := range bc.Skipped {
		warnings = append(warnings, fmt.Sprintf("%s is not a regular file and was left out of the image", p))
	}

	a.mirrorDockerfile(bc.Dockerfile)

	var buf bytes.Buffer
	if err := bc.Tar(&buf); err != nil {
		return nil, fmt.Errorf("archive build context: %w", err)
	}
	contextBytes := int64(buf.Len())
	a.Log.Debug("build context assembled",
		"files", len(bc.Files), "bytes", contextBytes, "ref", ref)

	labels := map[string]string{
		docker.LabelSite:          m.Site.Name,
		ocispec.AnnotationCreated: time.Now().UTC().Format(time.RFC3339),
	}
	if rev.Hash != "" {
		labels[ocispec.AnnotationRevision] = rev.Hash
	}

	engine, err := a.Engine()
	if err != nil {
		return nil, err
	}
	start := time.Now()
	res, err := engine.Build(ctx, &buf, ports.BuildOptions{
		Tags:     []string{ref},
		Labels:   labels,
		NoCache:  req.NoCache,
		Pull:     req.Pull,
		Progress: req.Progress,
	})
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	store, err := a.Store()
	if err != nil {
		return nil, err
	}
	rec := ports.BuildRecord{
		ID:           uuid.NewString(),
		Ref:          ref,
		ImageID:      res.ImageID,
		ContextBytes: contextBytes,
		Files:        len(bc.Files),
		DurationMs:   elapsed.Milliseconds(),
		At:           time.Now().UTC(),
	}
	if err := store.AppendBuild(m.Site.Name, rec); err != nil {
		return nil, fmt.Errorf("record build: %w", err)
	}

	return &BuildOutcome{
		Ref:          ref,
		ImageID:      res.ImageID,
		Files:        len(bc.Files),
		ContextBytes: contextBytes,
		Duration:     elapsed,
		Warnings:     warnings,
		Revision:     rev,
	}, nil
}

// buildTag resolves the workspace revision and the tag a fresh build gets.
// Outside version control the revision is zero and the tag is "dev".
func (a *App) buildTag() (ports.Revision, string, error) {
	rev, err := a.VCS().Head(a.Root)
	if err != nil {
		if errors.Is(err, ports.ErrNoRepository) {
			return ports.Revision{}, devTag, nil
		}
		return ports.Revision{}, "", fmt.Errorf("resolve revision: %w", err)
	}
	return rev, tags.Derive(rev)[0], nil
}

// imageRef joins the image name and tag into a reference the engine accepts.
// The name is the manifest repository when set, the lowercased site name
// otherwise.
func imageRef(m *manifest.Manifest, tag string) (string, error) {
	name := m.Image.Repository
	if name == "" {
		name = strings.ToLower(m.Site.Name)
	}
	ref := name + ":" + tag
	if _, err := reference.ParseNormalizedNamed(ref); err != nil {
		return "", fmt.Errorf("image reference %q: %w", ref, err)
	}
	return ref, nil
}

// mirrorDockerfile writes the build file the engine saw into .berth/ so
// operators can inspect it. Best effort.
func (a *App) mirrorDockerfile(content []byte) {
	if err := a.Paths.EnsureDirs(); err != nil {
		a.Log.Debug("mirror build file", "err", err)
		return
	}
	if err := os.WriteFile(a.Paths.Dockerfile, content, 0644); err != nil {
		a.Log.Debug("mirror build file", "err", err)
	}
}
