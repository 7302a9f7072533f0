package docker

import (
	"fmt"

	"github.com/docker/docker/api/types/registry"

	"github.com/reiken/berth/internal/ports"
)

// EncodeAuth converts resolved credentials into the base64 X-Registry-Auth
// blob the engine's push endpoint expects. The blob only ever travels over
// the local daemon socket.
func EncodeAuth(creds ports.Credentials) (string, error) {
	encoded, err := registry.EncodeAuthConfig(registry.AuthConfig{
		Username:      creds.Username,
		Password:      creds.Secret,
		ServerAddress: creds.ServerAddress,
	})
	if err != nil {
		return "", fmt.Errorf("encode registry auth: %w", err)
	}
	return encoded, nil
}
