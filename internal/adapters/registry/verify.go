package registry

import (
	"context"
	"fmt"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	"github.com/opencontainers/go-digest"

	"github.com/reiken/berth/internal/ports"
)

// Verifier confirms a pushed tag resolves on the registry to the digest the
// engine reported, by HEADing the manifest directly. The engine and the
// verifier take independent paths to the registry, so a lying proxy or a
// half-applied push shows up here instead of in production.
type Verifier struct {
	auth ports.Authenticator
}

// NewVerifier builds a verifier that authenticates with the same strategy
// the push used.
func NewVerifier(auth ports.Authenticator) *Verifier {
	return &Verifier{auth: auth}
}

// Resolve returns the digest the registry serves for ref. Transient registry
// failures are retried; an unknown tag or a credential failure is not.
func (v *Verifier) Resolve(ctx context.Context, refStr string) (digest.Digest, error) {
	ref, err := name.ParseReference(refStr)
	if err != nil {
		return "", fmt.Errorf("parse reference %q: %w", refStr, err)
	}

	creds, err := v.auth.Credentials(ctx)
	if err != nil {
		return "", err
	}
	authenticator := authn.FromConfig(authn.AuthConfig{
		Username: creds.Username,
		Password: creds.Secret,
	})

	var desc *v1.Descriptor
	err = retryTransient(ctx, func() error {
		var headErr error
		desc, headErr = remote.Head(ref, remote.WithContext(ctx), remote.WithAuth(authenticator))
		return headErr
	})
	if err != nil {
		return "", fmt.Errorf("resolve %s on the registry: %w", refStr, err)
	}
	return digest.Digest(desc.Digest.String()), nil
}
