package docker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"time"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/build"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/opencontainers/go-digest"

	"github.com/reiken/berth/internal/ports"
)

// digestRe matches the digest in a push status line like
// "latest: digest: sha256:9f86d0... size: 3056". Fallback for engines that
// omit the aux result.
var digestRe = regexp.MustCompile(`digest:\s*(sha256:[a-f0-9]{64})`)

// Build streams the tar context to the engine's build endpoint and decodes
// the JSON message stream. Build errors come back verbatim — the engine's
// message already names the failing instruction.
func (e *Engine) Build(ctx context.Context, contextTar io.Reader, opts ports.BuildOptions) (ports.BuildResult, error) {
	resp, err := e.cli.ImageBuild(ctx, contextTar, build.ImageBuildOptions{
		Tags:       opts.Tags,
		Labels:     opts.Labels,
		NoCache:    opts.NoCache,
		PullParent: opts.Pull,
		Remove:     true,
		Dockerfile: "Dockerfile",
	})
	if err != nil {
		return ports.BuildResult{}, fmt.Errorf("start build: %w", err)
	}
	defer resp.Body.Close()

	var result ports.BuildResult
	dec := json.NewDecoder(resp.Body)
	for {
		var msg jsonmessage.JSONMessage
		if err := dec.Decode(&msg); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return ports.BuildResult{}, fmt.Errorf("decode build output: %w", err)
		}
		if msg.Error != nil {
			return ports.BuildResult{}, fmt.Errorf("build failed: %s", msg.Error.Message)
		}
		if msg.Aux != nil {
			var aux struct {
				ID string `json:"ID"`
			}
			if json.Unmarshal(*msg.Aux, &aux) == nil && aux.ID != "" {
				result.ImageID = aux.ID
			}
		}
		writeProgress(opts.Progress, msg)
	}

	// Old daemons omit the aux record; fall back to inspecting the tag.
	if result.ImageID == "" && len(opts.Tags) > 0 {
		if sum, err := e.ImageSummary(ctx, opts.Tags[0]); err == nil && sum != nil {
			result.ImageID = sum.ID
		}
	}
	if result.ImageID == "" {
		return ports.BuildResult{}, errors.New("build finished but no image ID was reported")
	}
	return result, nil
}

// Tag applies an additional reference to a local image.
func (e *Engine) Tag(ctx context.Context, src, dst string) error {
	if err := e.cli.ImageTag(ctx, src, dst); err != nil {
		return fmt.Errorf("tag %s as %s: %w", src, dst, err)
	}
	return nil
}

// ImageSummary returns local metadata for ref, or nil, nil when the image
// does not exist.
func (e *Engine) ImageSummary(ctx context.Context, ref string) (*ports.ImageSummary, error) {
	inspect, err := e.cli.ImageInspect(ctx, ref)
	if err != nil {
		if cerrdefs.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("inspect image %s: %w", ref, err)
	}

	sum := &ports.ImageSummary{ID: inspect.ID, Size: inspect.Size}
	if t, err := time.Parse(time.RFC3339Nano, inspect.Created); err == nil {
		sum.Created = t
	}
	return sum, nil
}

// Push uploads ref and returns the digest the registry assigned. The digest
// is taken from the engine's aux record when present, otherwise scraped from
// the final status line.
func (e *Engine) Push(ctx context.Context, ref string, encodedAuth string, progress io.Writer) (digest.Digest, error) {
	body, err := e.cli.ImagePush(ctx, ref, image.PushOptions{RegistryAuth: encodedAuth})
	if err != nil {
		return "", fmt.Errorf("start push of %s: %w", ref, err)
	}
	defer body.Close()

	var dgst digest.Digest
	dec := json.NewDecoder(body)
	for {
		var msg jsonmessage.JSONMessage
		if err := dec.Decode(&msg); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return "", fmt.Errorf("decode push output: %w", err)
		}
		if msg.Error != nil {
			return "", fmt.Errorf("push %s: %s", ref, msg.Error.Message)
		}
		if msg.Aux != nil {
			var aux struct {
				Digest string `json:"Digest"`
			}
			if json.Unmarshal(*msg.Aux, &aux) == nil && aux.Digest != "" {
				if d := digest.Digest(aux.Digest); d.Validate() == nil {
					dgst = d
				}
			}
		}
		if dgst == "" && msg.Status != "" {
			if m := digestRe.FindStringSubmatch(msg.Status); m != nil {
				dgst = digest.Digest(m[1])
			}
		}
		writeProgress(progress, msg)
	}

	if dgst == "" {
		return "", fmt.Errorf("push of %s finished but the engine reported no digest", ref)
	}
	return dgst, nil
}

// writeProgress renders a message the way the docker CLI would, minus the
// terminal control sequences: stream chunks verbatim, status lines one per
// line.
func writeProgress(w io.Writer, msg jsonmessage.JSONMessage) {
	if w == nil {
		return
	}
	switch {
	case msg.Stream != "":
		io.WriteString(w, msg.Stream)
	case msg.Status != "" && msg.Progress == nil:
		// Progress-bearing updates repeat at high frequency; skipping
		// them keeps non-TTY output readable.
		if msg.ID != "" {
			fmt.Fprintf(w, "%s: %s\n", msg.ID, msg.Status)
		} else {
			fmt.Fprintln(w, msg.Status)
		}
	}
}
