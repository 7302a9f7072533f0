package cmd

import (
	"errors"
	"fmt"
	"strings"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/docker/docker/client"

	"github.com/reiken/berth/internal/manifest"
)

// diagnose rewrites well-known failures into multi-line guidance an operator
// can act on without reading engine internals. Errors it does not recognize
// pass through unchanged.
func diagnose(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, manifest.ErrNotFound):
		return fmt.Errorf("%v\n"+
			"  → scaffold one:   berth init\n"+
			"  → or point --dir at the workspace", err)
	case client.IsErrConnectionFailed(err):
		return errors.New("container engine is not reachable\n" +
			"  → is the docker daemon running?\n" +
			"  → check:          docker version\n" +
			"  → remote engines: set DOCKER_HOST")
	case isPortConflict(err):
		return fmt.Errorf("%v\n"+
			"  → something else owns the host port\n"+
			"  → stop it, or change run.hostPort in berth.yaml", err)
	case isNameConflict(err):
		return fmt.Errorf("%v\n"+
			"  → a container with this name already exists\n"+
			"  → see it:         berth status\n"+
			"  → replace it:     berth rm -f && berth run", err)
	case isDBLock(err):
		return errors.New("history database is locked\n" +
			"  → another berth command is holding it (a running preview?)\n" +
			"  → stop it and retry")
	}
	return err
}

// isPortConflict matches the engine's port-binding failures. The engine
// reports these as plain 500s, so the message text is the only signal.
func isPortConflict(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "port is already allocated") ||
		strings.Contains(msg, "address already in use")
}

// isNameConflict matches a create against an existing container name.
func isNameConflict(err error) bool {
	return cerrdefs.IsConflict(err)
}

// isDBLock matches bbolt's lock timeout: a second berth process holds the
// database file.
func isDBLock(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "bbolt open") && strings.Contains(msg, "timeout")
}

// isAuthError matches credential failures from any point of the push path:
// resolving credentials, the engine's push stream, or the verification HEAD.
func isAuthError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "authenticate to") ||
		strings.Contains(msg, "unauthorized") ||
		strings.Contains(msg, "authentication required") ||
		strings.Contains(msg, "no basic auth credentials") ||
		strings.Contains(msg, "requested access to the resource is denied")
}

// diagnoseAuth wraps a rejected push with the three ways berth can hold
// registry credentials.
func diagnoseAuth(err error) error {
	return fmt.Errorf("%v\n"+
		"  → registry.ecr.region set:  credentials come from the AWS default chain\n"+
		"  → registry.username set:    password is read from the env var named by registry.passwordEnv\n"+
		"  → neither set:              local docker login state is used\n"+
		"  → fix the manifest or environment, then retry", err)
}
