// Package manifest loads and validates berth.yaml, the per-site manifest.
// The manifest carries exactly the argument values an operator would otherwise
// repeat on every docker invocation: image repository and base, site
// directory, container name, and the host→container port mapping. Decoding is
// strict — unknown keys are rejected so typos fail loudly instead of being
// silently ignored.
package manifest

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/distribution/reference"
	"gopkg.in/yaml.v3"

	"github.com/reiken/berth/internal/domain/tags"
)

// Filename is the manifest file name expected at the workspace root.
const Filename = "berth.yaml"

// Defaults applied by Load when the manifest omits a field.
const (
	DefaultBase     = "nginx:1.29-alpine"
	DefaultSiteDir  = "site"
	DefaultPort     = 80
	DefaultHostPort = 8080
)

// ErrNotFound is returned by Load when no manifest exists in the workspace.
var ErrNotFound = errors.New("berth.yaml not found")

// containerNameRe matches the engine's container naming rules.
var containerNameRe = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]*$`)

// Manifest is the decoded berth.yaml.
type Manifest struct {
	Site     Site     `yaml:"site"`
	Image    Image    `yaml:"image"`
	Run      Run      `yaml:"run"`
	Registry Registry `yaml:"registry"`
	Release  Release  `yaml:"release"`
}

// Site names the project and locates its static content.
type Site struct {
	Name string `yaml:"name"`
	// Dir is the workspace-relative directory holding the page(s).
	Dir string `yaml:"dir"`
}

// Image describes what gets built.
type Image struct {
	// Repository is the push target without a tag or digest — tags are
	// always derived (commit hash + extras), never hand-written here.
	Repository string `yaml:"repository"`
	// Base is the web server image the site is layered onto.
	Base string `yaml:"base"`
	// Port is the container port the base image's server listens on.
	Port int `yaml:"port"`
	// Dockerfile optionally points at a user-maintained build file that
	// replaces the generated one. Workspace-relative.
	Dockerfile string `yaml:"dockerfile"`
}

// Run describes the local container.
type Run struct {
	Name     string `yaml:"name"`
	HostPort int    `yaml:"hostPort"`
}

// Registry selects the auth strategy. With ECR set, credentials come from the
// AWS default chain. With Username set, the password is read from the
// environment variable named by PasswordEnv. With neither, the local docker
// keychain is consulted.
type Registry struct {
	ECR         *ECR   `yaml:"ecr,omitempty"`
	Username    string `yaml:"username"`
	PasswordEnv string `yaml:"passwordEnv"`
}

// ECR configures cloud token exchange for a managed registry.
type ECR struct {
	Region string `yaml:"region"`
}

// Release controls which tags are pushed besides the commit-derived one.
type Release struct {
	// ExtraTags defaults to ["latest"]. Operators running immutable-tag
	// workflows set it to an empty list explicitly.
	ExtraTags []string `yaml:"extraTags"`
}

// Load reads, decodes, defaults, and validates the manifest in dir.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, Filename)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w in %s", ErrNotFound, dir)
		}
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()

	var m Manifest
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s is empty: %w", Filename, ErrNotFound)
		}
		return nil, fmt.Errorf("parse %s: %w", Filename, err)
	}

	m.applyDefaults()
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", Filename, err)
	}
	return &m, nil
}

// Default returns an in-memory manifest for a fresh site, as written by
// `berth init`. Repository is left empty — pushing requires the operator to
// fill it in.
func Default(name string) *Manifest {
	m := &Manifest{
		Site: Site{Name: name, Dir: DefaultSiteDir},
		Image: Image{
			Base: DefaultBase,
			Port: DefaultPort,
		},
		Run: Run{Name: name, HostPort: DefaultHostPort},
	}
	m.applyDefaults()
	return m
}

// applyDefaults fills zero-valued fields. Called before Validate so the
// invariants below only ever see a complete manifest.
func (m *Manifest) applyDefaults() {
	if m.Site.Dir == "" {
		m.Site.Dir = DefaultSiteDir
	}
	if m.Image.Base == "" {
		m.Image.Base = DefaultBase
	}
	if m.Image.Port == 0 {
		m.Image.Port = DefaultPort
	}
	if m.Run.Name == "" {
		m.Run.Name = m.Site.Name
	}
	if m.Run.HostPort == 0 {
		m.Run.HostPort = DefaultHostPort
	}
	if m.Release.ExtraTags == nil {
		m.Release.ExtraTags = []string{"latest"}
	}
}

// Validate checks every manifest invariant and returns the first violation.
func (m *Manifest) Validate() error {
	if m.Site.Name == "" {
		return errors.New("site.name is required")
	}
	if !containerNameRe.MatchString(m.Site.Name) {
		return fmt.Errorf("site.name %q: must start with an alphanumeric and contain only [a-zA-Z0-9_.-]", m.Site.Name)
	}
	if !containerNameRe.MatchString(m.Run.Name) {
		return fmt.Errorf("run.name %q: must start with an alphanumeric and contain only [a-zA-Z0-9_.-]", m.Run.Name)
	}

	if err := validateDir("site.dir", m.Site.Dir); err != nil {
		return err
	}
	if m.Image.Dockerfile != "" {
		if err := validateDir("image.dockerfile", m.Image.Dockerfile); err != nil {
			return err
		}
	}

	if err := validatePort("image.port", m.Image.Port); err != nil {
		return err
	}
	if err := validatePort("run.hostPort", m.Run.HostPort); err != nil {
		return err
	}

	if m.Image.Repository != "" {
		named, err := reference.ParseNormalizedNamed(m.Image.Repository)
		if err != nil {
			return fmt.Errorf("image.repository %q: %w", m.Image.Repository, err)
		}
		if !reference.IsNameOnly(named) {
			return fmt.Errorf("image.repository %q: must not carry a tag or digest (tags are derived at push time)", m.Image.Repository)
		}
	}

	if _, err := reference.ParseNormalizedNamed(m.Image.Base); err != nil {
		return fmt.Errorf("image.base %q: %w", m.Image.Base, err)
	}

	if m.Registry.PasswordEnv != "" && m.Registry.Username == "" {
		return errors.New("registry.passwordEnv is set but registry.username is empty")
	}
	if m.Registry.ECR != nil && m.Registry.ECR.Region == "" {
		return errors.New("registry.ecr.region is required when ecr auth is configured")
	}

	for _, t := range m.Release.ExtraTags {
		if !tags.Valid(t) {
			return fmt.Errorf("release.extraTags: %q is not a valid tag", t)
		}
	}

	return nil
}

// Repository returns the parsed push target, or an error when the manifest
// does not configure one.
func (m *Manifest) Repository() (reference.Named, error) {
	if m.Image.Repository == "" {
		return nil, errors.New("image.repository is not set — add the registry repository to berth.yaml before pushing")
	}
	return reference.ParseNormalizedNamed(m.Image.Repository)
}

// validateDir rejects absolute, tilde, and escaping workspace-relative paths.
func validateDir(field, dir string) error {
	if dir == "" {
		return fmt.Errorf("%s is required", field)
	}
	if filepath.IsAbs(dir) || strings.HasPrefix(dir, "~") {
		return fmt.Errorf("%s %q: must be workspace-relative", field, dir)
	}
	clean := filepath.Clean(dir)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%s %q: escapes the workspace", field, dir)
	}
	return nil
}

func validatePort(field string, p int) error {
	if p < 1 || p > 65535 {
		return fmt.Errorf("%s %d: must be between 1 and 65535", field, p)
	}
	return nil
}
