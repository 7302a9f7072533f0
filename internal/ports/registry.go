package ports

import (
	"context"
	"time"

	"github.com/opencontainers/go-digest"
)

// Authenticator produces registry credentials. Implementations cover the three
// login paths the release flow supports: cloud token exchange (ECR), static
// username/password from the environment, and the local docker keychain.
// Credentials are only ever passed to the engine's push endpoint and the
// registry verifier — they must never be logged or persisted.
type Authenticator interface {
	// Name identifies the auth strategy for diagnostics ("ecr", "static",
	// "keychain", "anonymous").
	Name() string

	// Credentials returns a credential set valid at call time. Token-based
	// implementations refresh expired material instead of returning it.
	Credentials(ctx context.Context) (Credentials, error)
}

// Credentials is a resolved registry login.
type Credentials struct {
	Username      string
	Secret        string
	ServerAddress string
	// ExpiresAt is zero for non-expiring credentials.
	ExpiresAt time.Time
}

// Expired reports whether the credentials are past their expiry (with a small
// safety margin so a push that starts near expiry does not fail mid-upload).
func (c Credentials) Expired(now time.Time) bool {
	if c.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(2 * time.Minute).Before(c.ExpiresAt)
}

// Verifier resolves what the registry actually serves for a reference.
// Used after a push to confirm the manifest landed: the digest reported by the
// engine and the digest served by the registry must agree.
type Verifier interface {
	// Resolve HEADs the manifest for ref and returns its digest.
	Resolve(ctx context.Context, ref string) (digest.Digest, error)
}
