package registry

import (
	"context"
	"fmt"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"

	"github.com/reiken/berth/internal/ports"
)

// Keychain reads credentials from the operator's docker login state — the
// same config.json and credential helpers the docker CLI uses.
type Keychain struct {
	server   string
	keychain authn.Keychain
}

// NewKeychain returns a keychain authenticator for the given registry host.
func NewKeychain(server string) *Keychain {
	return &Keychain{server: server, keychain: authn.DefaultKeychain}
}

// Name identifies the strategy in status output.
func (k *Keychain) Name() string { return "keychain" }

// Credentials resolves the host against the docker keychain. No stored login
// is an error with a pointer at `docker login` — a push is never attempted
// anonymously.
func (k *Keychain) Credentials(ctx context.Context) (ports.Credentials, error) {
	reg, err := name.NewRegistry(k.server)
	if err != nil {
		return ports.Credentials{}, fmt.Errorf("registry host %q: %w", k.server, err)
	}

	auth, err := k.keychain.Resolve(reg)
	if err != nil {
		return ports.Credentials{}, fmt.Errorf("resolve credentials for %s: %w", k.server, err)
	}
	cfg, err := auth.Authorization()
	if err != nil {
		return ports.Credentials{}, fmt.Errorf("read credentials for %s: %w", k.server, err)
	}
	if *cfg == (authn.AuthConfig{}) {
		return ports.Credentials{}, fmt.Errorf("no stored credentials for %s — run `docker login %s` or configure registry auth in berth.yaml", k.server, k.server)
	}

	creds := ports.Credentials{
		Username:      cfg.Username,
		Secret:        cfg.Password,
		ServerAddress: k.server,
	}
	// Token-based helpers hand back an identity token instead of a password.
	if creds.Secret == "" && cfg.IdentityToken != "" {
		creds.Secret = cfg.IdentityToken
	}
	return creds, nil
}
