// Package registry implements the ports.Authenticator and ports.Verifier
// interfaces for the push targets berth supports: a managed cloud registry
// (ECR, credentials minted from the ambient AWS identity), a static
// username/password pair with the secret sourced from the environment, and
// the local docker keychain as the fallback. Credentials are held in memory
// only — never logged, never written to disk.
package registry

import (
	"github.com/distribution/reference"

	"github.com/reiken/berth/internal/ports"
)

// Config mirrors the manifest's registry block.
type Config struct {
	// ECRRegion enables cloud token exchange when non-empty.
	ECRRegion string
	// Username + PasswordEnv select static auth: the password is read from
	// the named environment variable at push time.
	Username    string
	PasswordEnv string
}

// Resolve picks the authenticator for a push target. Explicit configuration
// wins: ECR first, then static, then whatever the operator's docker login
// state provides.
func Resolve(cfg Config, repo reference.Named) ports.Authenticator {
	switch {
	case cfg.ECRRegion != "":
		return NewECR(cfg.ECRRegion)
	case cfg.Username != "":
		return NewStatic(cfg.Username, cfg.PasswordEnv, reference.Domain(repo))
	default:
		return NewKeychain(reference.Domain(repo))
	}
}
