package app

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/reiken/berth/internal/domain/site"
	"github.com/reiken/berth/internal/manifest"
	"github.com/reiken/berth/starter"
)

// ScaffoldRequest controls what `berth init` writes.
type ScaffoldRequest struct {
	// Name is the site name. Empty defaults to the workspace directory name.
	Name string
	// CI additionally writes the GitHub Actions release workflow.
	CI bool
	// Dockerfile materializes the generated build file for hand editing and
	// points the manifest at it.
	Dockerfile bool
}

// ScaffoldOutcome reports what Scaffold wrote and what it left alone. Paths
// are workspace-relative.
type ScaffoldOutcome struct {
	Name    string // resolved site name
	Created []string
	Skipped []string
}

// workflowPath is where the release workflow lands, relative to the workspace.
const workflowPath = ".github/workflows/release.yml"

// Scaffold writes a fresh site into the workspace: berth.yaml, the starter
// pages, and optionally the CI workflow and a materialized Dockerfile. Files
// that already exist are skipped, never overwritten, so re-running init in a
// half-scaffolded workspace fills in only what is missing.
func (a *App) Scaffold(req ScaffoldRequest) (*ScaffoldOutcome, error) {
	name := req.Name
	if name == "" {
		name = filepath.Base(a.Root)
	}

	m := manifest.Default(name)
	if req.Dockerfile {
		m.Image.Dockerfile = "Dockerfile"
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	data := struct {
		Name       string
		Dockerfile bool
	}{Name: name, Dockerfile: req.Dockerfile}

	out := &ScaffoldOutcome{Name: name}

	manifestYAML, err := renderStarter("berth.yaml", data)
	if err != nil {
		return nil, err
	}
	if err := a.writeScaffoldFile(manifest.Filename, manifestYAML, out); err != nil {
		return nil, err
	}

	index, err := renderStarter("index.html", data)
	if err != nil {
		return nil, err
	}
	if err := a.writeScaffoldFile(filepath.Join(m.Site.Dir, "index.html"), index, out); err != nil {
		return nil, err
	}

	notFound, err := starter.FS.ReadFile("templates/404.html")
	if err != nil {
		return nil, fmt.Errorf("read 404 template: %w", err)
	}
	if err := a.writeScaffoldFile(filepath.Join(m.Site.Dir, "404.html"), notFound, out); err != nil {
		return nil, err
	}

	if req.CI {
		wf, err := starter.FS.ReadFile("templates/release.yml")
		if err != nil {
			return nil, fmt.Errorf("read workflow template: %w", err)
		}
		if err := a.writeScaffoldFile(workflowPath, wf, out); err != nil {
			return nil, err
		}
	}

	if req.Dockerfile {
		df := site.RenderDockerfile(site.Spec{
			Dir:  m.Site.Dir,
			Base: m.Image.Base,
			Port: m.Image.Port,
		})
		if err := a.writeScaffoldFile("Dockerfile", df, out); err != nil {
			return nil, err
		}
	}

	a.Log.Debug("scaffolded workspace",
		"site", name, "created", len(out.Created), "skipped", len(out.Skipped))
	return out, nil
}

// renderStarter executes one embedded template. The workflow file is not a
// template — its `${{ }}` expressions belong to the CI runner, not to us.
func renderStarter(name string, data any) ([]byte, error) {
	t, err := template.ParseFS(starter.FS, "templates/"+name)
	if err != nil {
		return nil, fmt.Errorf("parse %s template: %w", name, err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

func (a *App) writeScaffoldFile(rel string, content []byte, out *ScaffoldOutcome) error {
	abs := filepath.Join(a.Root, rel)
	if _, err := os.Stat(abs); err == nil {
		out.Skipped = append(out.Skipped, rel)
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat %s: %w", rel, err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(rel), err)
	}
	if err := os.WriteFile(abs, content, 0644); err != nil {
		return fmt.Errorf("write %s: %w", rel, err)
	}
	out.Created = append(out.Created, rel)
	return nil
}
