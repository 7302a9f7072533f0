// Package site turns a static-site directory into a build context: a rendered
// (or user-maintained) Dockerfile plus the file set that accompanies it, and a
// deterministic tar stream of both for the engine's build endpoint.
package site

import (
	"bytes"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/moby/buildkit/frontend/dockerfile/instructions"
	"github.com/moby/buildkit/frontend/dockerfile/parser"
)

// Webroot is where the nginx base images serve static content from.
const Webroot = "/usr/share/nginx/html"

// Spec carries the manifest fields the assembler needs. Keeping it local
// avoids a dependency on the config layer.
type Spec struct {
	// Dir is the workspace-relative directory holding the page(s).
	Dir string
	// Base is the web server image the site is layered onto.
	Base string
	// Port is the container port the base image's server listens on.
	Port int
	// Dockerfile optionally names a user-maintained build file that
	// replaces the rendered one. Workspace-relative.
	Dockerfile string
}

// RenderDockerfile produces the five-instruction build file: start from the
// base image, clear its default webroot, copy the site in, declare the port,
// and run the server in the foreground so the container stays up.
func RenderDockerfile(s Spec) []byte {
	dir := path.Clean(s.Dir)
	var b bytes.Buffer
	fmt.Fprintf(&b, "FROM %s\n", s.Base)
	fmt.Fprintf(&b, "RUN rm -rf %s/*\n", Webroot)
	fmt.Fprintf(&b, "COPY %s/ %s/\n", dir, Webroot)
	fmt.Fprintf(&b, "EXPOSE %d\n", s.Port)
	b.WriteString(`CMD ["nginx", "-g", "daemon off;"]` + "\n")
	return b.Bytes()
}

// DockerfileInfo summarizes the instructions that matter for a site image.
type DockerfileInfo struct {
	// Base is the first stage's FROM reference, verbatim. May contain
	// build-arg placeholders.
	Base string
	// Exposed lists the ports declared by EXPOSE instructions across all
	// stages. Ports written with variables are omitted.
	Exposed []int
	// Copies counts COPY and ADD instructions across all stages.
	Copies int
}

// InspectDockerfile parses content and extracts the instructions berth cares
// about. A file the builder would reject fails here first, with the parser's
// line information intact.
func InspectDockerfile(content []byte) (DockerfileInfo, error) {
	var info DockerfileInfo

	res, err := parser.Parse(bytes.NewReader(content))
	if err != nil {
		return info, fmt.Errorf("parse dockerfile: %w", err)
	}
	stages, _, err := instructions.Parse(res.AST, nil)
	if err != nil {
		return info, fmt.Errorf("parse dockerfile instructions: %w", err)
	}
	if len(stages) == 0 {
		return info, fmt.Errorf("dockerfile has no FROM instruction")
	}

	info.Base = stages[0].BaseName
	for _, stage := range stages {
		for _, cmd := range stage.Commands {
			switch c := cmd.(type) {
			case *instructions.ExposeCommand:
				for _, p := range c.Ports {
					if port, ok := parsePort(p); ok {
						info.Exposed = append(info.Exposed, port)
					}
				}
			case *instructions.CopyCommand:
				info.Copies++
			case *instructions.AddCommand:
				info.Copies++
			}
		}
	}
	return info, nil
}

// Exposes reports whether port appears in an EXPOSE instruction.
func (i DockerfileInfo) Exposes(port int) bool {
	for _, p := range i.Exposed {
		if p == port {
			return true
		}
	}
	return false
}

// Check validates a user-maintained dockerfile against the manifest. A file
// that copies nothing would produce an image without the site, so that is an
// error; a missing EXPOSE or a diverging base image still builds and runs,
// so those come back as warnings for the operator.
func (i DockerfileInfo) Check(s Spec) (warnings []string, err error) {
	if i.Copies == 0 {
		return nil, fmt.Errorf("dockerfile contains no COPY or ADD instruction, the image would ship without the site")
	}
	if !i.Exposes(s.Port) {
		warnings = append(warnings, fmt.Sprintf("dockerfile does not EXPOSE port %d from berth.yaml", s.Port))
	}
	if i.Base != "" && s.Base != "" && !strings.Contains(i.Base, "$") && i.Base != s.Base {
		warnings = append(warnings, fmt.Sprintf("dockerfile builds from %s, berth.yaml says %s", i.Base, s.Base))
	}
	return warnings, nil
}

// parsePort extracts the numeric port from an EXPOSE token like "80" or
// "80/tcp". Tokens carrying unexpanded variables report !ok.
func parsePort(s string) (int, bool) {
	s, _, _ = strings.Cut(s, "/")
	p, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return p, true
}
