package registry

import (
	"context"
	"fmt"
	"os"

	"github.com/reiken/berth/internal/ports"
)

// Static authenticates with a fixed username and a password pulled from the
// environment at use time. The variable name lives in the manifest; the
// secret itself never does.
type Static struct {
	username    string
	passwordEnv string
	server      string
}

// NewStatic returns a static authenticator for the given registry host.
func NewStatic(username, passwordEnv, server string) *Static {
	return &Static{username: username, passwordEnv: passwordEnv, server: server}
}

// Name identifies the strategy in status output.
func (s *Static) Name() string { return "static" }

// Credentials reads the password from the configured environment variable.
// An unset or empty variable is an error — pushing anonymously would only
// produce a confusing denial later.
func (s *Static) Credentials(ctx context.Context) (ports.Credentials, error) {
	password := os.Getenv(s.passwordEnv)
	if password == "" {
		return ports.Credentials{}, fmt.Errorf("registry password variable %s is not set — export it or add it to .env", s.passwordEnv)
	}
	return ports.Credentials{
		Username:      s.username,
		Secret:        password,
		ServerAddress: s.server,
	}, nil
}
