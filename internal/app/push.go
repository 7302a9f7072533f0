package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/distribution/reference"
	"github.com/google/uuid"
	"github.com/opencontainers/go-digest"

	"github.com/reiken/berth/internal/adapters/docker"
	"github.com/reiken/berth/internal/adapters/registry"
	"github.com/reiken/berth/internal/domain/tags"
	"github.com/reiken/berth/internal/manifest"
	"github.com/reiken/berth/internal/ports"
)

// PushRequest parameterizes a push of the current revision's image.
type PushRequest struct {
	// Tag overrides the commit-derived tag. Required when the workspace is
	// not under version control. Manifest extra tags still apply.
	Tag string

	// Progress receives the engine's push output. May be nil.
	Progress io.Writer
}

// PushOutcome summarizes a completed multi-tag push.
type PushOutcome struct {
	Repository string   // familiar repository name
	Tags       []string // tags pushed, primary first
	Refs       []string // full references, same order as Tags
	Digest     digest.Digest
	Auth       string // auth strategy used ("ecr", "static", "keychain")
	Revision   ports.Revision
}

// Push tags the locally built image for the registry repository, uploads
// every derived tag, and confirms with the registry that each tag resolves to
// the digest the engine reported. The release is recorded only after that
// confirmation.
func (a *App) Push(ctx context.Context, req PushRequest) (*PushOutcome, error) {
	m, err := a.Manifest()
	if err != nil {
		return nil, err
	}
	repo, err := m.Repository()
	if err != nil {
		return nil, err
	}

	rev, localTag, err := a.buildTag()
	if err != nil {
		return nil, err
	}
	tagSet, err := pushTags(rev, req.Tag, m.Release.ExtraTags)
	if err != nil {
		return nil, err
	}

	srcRef, err := imageRef(m, localTag)
	if err != nil {
		return nil, err
	}
	engine, err := a.Engine()
	if err != nil {
		return nil, err
	}
	img, err := engine.ImageSummary(ctx, srcRef)
	if err != nil {
		return nil, err
	}
	if img == nil {
		return nil, fmt.Errorf("no local image %s for this revision — run `berth build` first", srcRef)
	}

	auth := a.authenticator(m, repo)
	creds, err := auth.Credentials(ctx)
	if err != nil {
		return nil, fmt.Errorf("authenticate to %s (%s): %w", reference.Domain(repo), auth.Name(), err)
	}
	encodedAuth, err := docker.EncodeAuth(creds)
	if err != nil {
		return nil, err
	}
	a.Log.Debug("registry auth resolved",
		"strategy", auth.Name(), "server", creds.ServerAddress)

	var (
		pushed    digest.Digest
		refs      []string
		pushedRef []reference.NamedTagged
	)
	for _, t := range tagSet {
		dst, err := tags.WithTag(repo, t)
		if err != nil {
			return nil, err
		}
		ref := reference.FamiliarString(dst)
		if err := engine.Tag(ctx, srcRef, ref); err != nil {
			return nil, err
		}
		dg, err := engine.Push(ctx, ref, encodedAuth, req.Progress)
		if err != nil {
			return nil, err
		}
		if pushed == "" {
			pushed = dg
		} else if dg != pushed {
			return nil, fmt.Errorf("pushed tags disagree on digest: %s is %s, expected %s", ref, dg, pushed)
		}
		refs = append(refs, ref)
		pushedRef = append(pushedRef, dst)
	}

	verifier := a.verifier(auth)
	for _, dst := range pushedRef {
		ref := reference.FamiliarString(dst)
		got, err := verifier.Resolve(ctx, dst.String())
		if err != nil {
			return nil, fmt.Errorf("verify %s: %w", ref, err)
		}
		if got != pushed {
			return nil, fmt.Errorf("registry disagrees on %s: serves %s, engine pushed %s", ref, got, pushed)
		}
	}
	a.Log.Debug("push verified", "digest", pushed, "tags", len(tagSet))

	store, err := a.Store()
	if err != nil {
		return nil, err
	}
	rec := ports.ReleaseRecord{
		ID:         uuid.NewString(),
		Repository: reference.FamiliarName(repo),
		Tags:       tagSet,
		Digest:     pushed.String(),
		Revision:   tags.Abbrev(rev.Hash),
		Dirty:      rev.Dirty,
		At:         time.Now().UTC(),
	}
	if err := store.AppendRelease(m.Site.Name, rec); err != nil {
		return nil, fmt.Errorf("record release: %w", err)
	}

	return &PushOutcome{
		Repository: reference.FamiliarName(repo),
		Tags:       tagSet,
		Refs:       refs,
		Digest:     pushed,
		Auth:       auth.Name(),
		Revision:   rev,
	}, nil
}

// ReleaseRequest parameterizes the full build-and-push flow.
type ReleaseRequest struct {
	Tag      string // optional override for the commit-derived tag
	NoCache  bool
	Pull     bool
	Progress io.Writer
}

// Release runs the CI workflow body: build the image for the current
// revision, push all tags, verify against the registry, record.
func (a *App) Release(ctx context.Context, req ReleaseRequest) (*BuildOutcome, *PushOutcome, error) {
	build, err := a.Build(ctx, BuildRequest{
		NoCache:  req.NoCache,
		Pull:     req.Pull,
		Progress: req.Progress,
	})
	if err != nil {
		return nil, nil, err
	}
	push, err := a.Push(ctx, PushRequest{Tag: req.Tag, Progress: req.Progress})
	if err != nil {
		return build, nil, err
	}
	return build, push, nil
}

// pushTags computes the ordered tag set for a push: the override or the
// commit-derived tag first, then manifest extras with duplicates dropped.
func pushTags(rev ports.Revision, override string, extras []string) ([]string, error) {
	if override == "" {
		if rev.Hash == "" {
			return nil, errors.New("workspace is not a git repository — pass --tag to push without a commit-derived tag")
		}
		return tags.Derive(rev, extras...), nil
	}
	if !tags.Valid(override) {
		return nil, fmt.Errorf("invalid tag %q", override)
	}
	set := []string{override}
	for _, t := range extras {
		if t != override {
			set = append(set, t)
		}
	}
	return set, nil
}

// authenticator picks the auth strategy for the manifest's registry settings.
func (a *App) authenticator(m *manifest.Manifest, repo reference.Named) ports.Authenticator {
	if a.auth != nil {
		return a.auth
	}
	cfg := registry.Config{
		Username:    m.Registry.Username,
		PasswordEnv: m.Registry.PasswordEnv,
	}
	if m.Registry.ECR != nil {
		cfg.ECRRegion = m.Registry.ECR.Region
	}
	return registry.Resolve(cfg, repo)
}

// verifier builds the post-push verifier for the chosen auth strategy.
func (a *App) verifier(auth ports.Authenticator) ports.Verifier {
	if a.verify != nil {
		return a.verify
	}
	return registry.NewVerifier(auth)
}
